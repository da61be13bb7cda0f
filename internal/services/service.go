/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "fmt"
    "sort"
    "strconv"
    "time"

    "github.com/nathanspencer1/sprint-report/internal/adapters/jira"
    "github.com/nathanspencer1/sprint-report/internal/config"
    "github.com/nathanspencer1/sprint-report/internal/domain"
    "github.com/rs/zerolog"
    "golang.org/x/text/collate"
    "golang.org/x/text/language"
)

// recentSprintLimit bounds the sprint listing to what the picker renders.
const recentSprintLimit = 26

type Service struct {
    cfg  config.Config
    log  zerolog.Logger
    jira *jira.Client
}

func NewService(cfg config.Config, logger zerolog.Logger, jc *jira.Client) *Service {
    return &Service{cfg: cfg, log: logger, jira: jc}
}

// Login validates the credentials against Jira and returns the canonical base
// URL plus the authenticated identity. A non-2xx from /myself comes back as a
// *jira.APIError for the handler to map to 401.
func (s *Service) Login(ctx context.Context, domainInput, email, apiToken string) (string, domain.User, error) {
    baseURL := NormalizeBaseURL(domainInput)
    creds := jira.Credentials{BaseURL: baseURL, Email: email, APIToken: apiToken}
    user, err := s.jira.Myself(ctx, creds)
    if err != nil { return "", domain.User{}, err }
    return baseURL, user, nil
}

// ListBoards fetches every board page and sorts ascending by name with
// locale-aware, case-insensitive collation.
func (s *Service) ListBoards(ctx context.Context, creds jira.Credentials) ([]domain.Board, error) {
    raw, err := s.jira.Boards(ctx, creds)
    if err != nil { return nil, err }
    boards := make([]domain.Board, 0, len(raw))
    for _, m := range raw {
        boards = append(boards, domain.Board{
            ID:   toInt64(m["id"]),
            Name: toStr(m["name"]),
            Type: toStr(m["type"]),
        })
    }
    coll := collate.New(language.Und, collate.IgnoreCase)
    sort.SliceStable(boards, func(i, j int) bool {
        return coll.CompareString(boards[i].Name, boards[j].Name) < 0
    })
    return boards, nil
}

type SprintList struct {
    Sprints      []domain.Sprint `json:"sprints"`
    TotalFetched int             `json:"totalFetched"`
}

// ListRecentSprints fetches every sprint page for the board, keeps the 26 most
// recent and orders that set by name descending for display. Recency comes
// from startDate, then completeDate, then createdDate; sprints with no
// parseable date sort by their numeric id, below anything with a date.
func (s *Service) ListRecentSprints(ctx context.Context, creds jira.Credentials, boardID int64) (SprintList, error) {
    raw, err := s.jira.BoardSprints(ctx, creds, boardID, "active,closed,future")
    if err != nil { return SprintList{}, err }

    type keyed struct {
        sprint domain.Sprint
        key    float64
    }
    all := make([]keyed, 0, len(raw))
    for _, m := range raw {
        sp := domain.Sprint{
            ID:            toInt64(m["id"]),
            Name:          toStr(m["name"]),
            State:         toStr(m["state"]),
            StartDate:     toStr(m["startDate"]),
            CompleteDate:  toStr(m["completeDate"]),
            CreatedDate:   toStr(m["createdDate"]),
            OriginBoardID: toInt64(m["originBoardId"]),
        }
        all = append(all, keyed{sprint: sp, key: sprintRecency(sp)})
    }
    sort.SliceStable(all, func(i, j int) bool { return all[i].key > all[j].key })
    if len(all) > recentSprintLimit { all = all[:recentSprintLimit] }

    coll := collate.New(language.Und, collate.IgnoreCase)
    sort.SliceStable(all, func(i, j int) bool {
        return coll.CompareString(all[i].sprint.Name, all[j].sprint.Name) > 0
    })

    out := make([]domain.Sprint, 0, len(all))
    for _, k := range all { out = append(out, k.sprint) }
    return SprintList{Sprints: out, TotalFetched: len(raw)}, nil
}

// sprintRecency collapses the sprint's date fields into one sortable number:
// unix millis of the first parseable date, else the numeric id (which is tiny
// next to any epoch value, so dated sprints always outrank undated ones).
func sprintRecency(sp domain.Sprint) float64 {
    for _, d := range []string{sp.StartDate, sp.CompleteDate, sp.CreatedDate} {
        if t := parseTime(d); t != nil { return float64(t.UnixMilli()) }
    }
    return float64(sp.ID)
}

func parseTime(s string) *time.Time {
    if s == "" { return nil }
    layouts := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000-0700", "2006-01-02T15:04:05-0700"}
    for _, l := range layouts {
        if t, err := time.Parse(l, s); err == nil {
            tt := t.UTC()
            return &tt
        }
    }
    return nil
}

// ---- upstream shape coercion ----

func toStr(v any) string {
    if v == nil { return "" }
    if s, ok := v.(string); ok { return s }
    return fmt.Sprintf("%v", v)
}

func toInt64(v any) int64 {
    switch t := v.(type) {
    case float64:
        return int64(t)
    case int64:
        return t
    case int:
        return int64(t)
    case string:
        n, err := strconv.ParseInt(t, 10, 64)
        if err != nil { return 0 }
        return n
    }
    return 0
}

// toFloat normalizes the heterogeneous story-point representations: numbers,
// numeric strings, or nothing at all.
func toFloat(v any) *float64 {
    switch t := v.(type) {
    case float64:
        f := t
        return &f
    case int:
        f := float64(t)
        return &f
    case int64:
        f := float64(t)
        return &f
    case string:
        f, err := strconv.ParseFloat(t, 64)
        if err != nil { return nil }
        return &f
    }
    return nil
}
