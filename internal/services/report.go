/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "fmt"
    "math"
    "regexp"
    "strings"

    "github.com/nathanspencer1/sprint-report/internal/adapters/jira"
    "github.com/nathanspencer1/sprint-report/internal/domain"
)

const defaultStoryPointField = "customfield_10016"

var storyPointNameRe = regexp.MustCompile(`(?i)^\s*story\s*points\s*$`)

// BuildSprintReport assembles the report for one sprint. The rich greenhopper
// report is the primary source; when the originating board cannot be resolved,
// the call fails, or it yields no issues, the builder falls back to a plain
// JQL search. Failures of the best-effort calls are absorbed; a failed
// fallback search is surfaced.
func (s *Service) BuildSprintReport(ctx context.Context, creds jira.Credentials, sprintID int64) (domain.Report, error) {
    rows, spField := []domain.ReportRow(nil), defaultStoryPointField

    if boardID := s.resolveOriginBoard(ctx, creds, sprintID); boardID > 0 {
        rep, err := s.jira.SprintReport(ctx, creds, boardID, sprintID)
        if err != nil {
            s.log.Warn().Err(err).Int64("sprint", sprintID).Int64("board", boardID).Msg("sprint report fetch failed, using search fallback")
        } else {
            rows, spField = richReportRows(rep)
        }
    }

    if len(rows) == 0 {
        return s.searchReport(ctx, creds, sprintID)
    }

    totals := domain.ReportTotals{}
    for _, r := range rows {
        switch r.Action {
        case domain.ActionCompleted:
            totals.Completed++
        case domain.ActionNotCompleted:
            totals.NotCompleted++
        case domain.ActionRemoved:
            totals.Removed++
        }
    }
    return domain.Report{
        SprintID: sprintID,
        Rows:     rows,
        Totals:   totals,
        Meta:     domain.ReportMeta{StoryPointField: spField},
    }, nil
}

// resolveOriginBoard looks up the sprint's originating board. Any failure here
// is absorbed: the caller just proceeds to the search fallback.
func (s *Service) resolveOriginBoard(ctx context.Context, creds jira.Credentials, sprintID int64) int64 {
    m, err := s.jira.Sprint(ctx, creds, sprintID)
    if err != nil {
        s.log.Debug().Err(err).Int64("sprint", sprintID).Msg("sprint detail lookup failed")
        return 0
    }
    if id := toInt64(m["originBoardId"]); id > 0 { return id }
    return toInt64(m["rapidViewId"])
}

// richReportRows flattens the greenhopper response into report rows, in fixed
// bucket order: completed, not completed, removed.
func richReportRows(rep map[string]any) ([]domain.ReportRow, string) {
    contents, _ := rep["contents"].(map[string]any)
    if contents == nil { return nil, defaultStoryPointField }

    added := addedKeySet(contents["issueKeysAddedDuringSprint"])
    spField := defaultStoryPointField

    var rows []domain.ReportRow
    buckets := []struct {
        field  string
        action string
    }{
        {"completedIssues", domain.ActionCompleted},
        {"issuesNotCompletedInCurrentSprint", domain.ActionNotCompleted},
        {"puntedIssues", domain.ActionRemoved},
    }
    for _, b := range buckets {
        issues, _ := contents[b.field].([]any)
        for _, it := range issues {
            m, _ := it.(map[string]any)
            if m == nil { continue }
            if id := estimateFieldID(m); id != "" && spField == defaultStoryPointField { spField = id }
            initial := estimateValue(m["estimateStatistic"])
            final := estimateValue(m["currentEstimateStatistic"])
            key := toStr(m["key"])
            mark := ""
            if _, ok := added[key]; ok { mark = "*" }
            rows = append(rows, domain.ReportRow{
                Action:        b.action,
                Key:           key,
                Added:         mark,
                Summary:       toStr(m["summary"]),
                IssueType:     toStr(m["typeName"]),
                Priority:      toStr(m["priorityName"]),
                Status:        toStr(m["statusName"]),
                Assignee:      reportAssignee(m),
                PointsInitial: initial,
                PointsFinal:   final,
                PointsChange:  pointsChange(initial, final),
            })
        }
    }
    return rows, spField
}

// addedKeySet normalizes the two shapes the added-during-sprint field arrives
// in — an array of keys or an object keyed by issue key — into one set.
func addedKeySet(v any) map[string]struct{} {
    set := map[string]struct{}{}
    switch t := v.(type) {
    case []any:
        for _, k := range t {
            if s, ok := k.(string); ok && s != "" { set[s] = struct{}{} }
        }
    case map[string]any:
        for k := range t {
            if k != "" { set[k] = struct{}{} }
        }
    }
    return set
}

// estimateFieldID pulls the custom-field id out of an issue's estimate
// statistic; greenhopper reports it as "field_customfield_XXXXX".
func estimateFieldID(issue map[string]any) string {
    est, _ := issue["estimateStatistic"].(map[string]any)
    if est == nil { return "" }
    id := toStr(est["statFieldId"])
    id = strings.TrimPrefix(id, "field_")
    if strings.HasPrefix(id, "customfield_") { return id }
    return ""
}

func estimateValue(v any) *float64 {
    stat, _ := v.(map[string]any)
    if stat == nil { return nil }
    fv, _ := stat["statFieldValue"].(map[string]any)
    if fv == nil { return nil }
    return toFloat(fv["value"])
}

func pointsChange(initial, final *float64) *float64 {
    if initial == nil || final == nil { return nil }
    d := math.Abs(*final - *initial)
    return &d
}

// reportAssignee resolves the assignee with the preference order the report
// buckets use: display name, then plain name, then the raw assignee field.
func reportAssignee(issue map[string]any) string {
    if s := toStr(issue["assigneeDisplayName"]); s != "" { return s }
    if s := toStr(issue["assigneeName"]); s != "" { return s }
    switch t := issue["assignee"].(type) {
    case string:
        return t
    case map[string]any:
        if s := toStr(t["displayName"]); s != "" { return s }
        return toStr(t["name"])
    }
    return ""
}

// searchReport is the fallback strategy: a plain JQL search over the sprint.
// Scope-change and initial-estimate data is unavailable here, so Added stays
// empty and PointsInitial/PointsChange stay nil.
func (s *Service) searchReport(ctx context.Context, creds jira.Credentials, sprintID int64) (domain.Report, error) {
    spField := defaultStoryPointField
    fields := []string{"summary", "issuetype", "priority", "status", "assignee", spField}
    jql := fmt.Sprintf("sprint = %d ORDER BY status, priority, key", sprintID)
    res, err := s.jira.Search(ctx, creds, jql, fields, 200)
    if err != nil { return domain.Report{}, err }

    issues, _ := res["issues"].([]any)
    if !anyHasField(issues, spField) {
        // The default story-point field is tenant-specific; consult the field
        // catalog for one actually named "story points". The issues already
        // fetched are NOT re-queried with the discovered id, so pointsFinal
        // can stay nil even when the id resolves; meta still reports it.
        if cat, err := s.jira.Fields(ctx, creds); err == nil {
            if id := findStoryPointField(cat); id != "" { spField = id }
        } else {
            s.log.Debug().Err(err).Msg("field catalog lookup failed")
        }
    }

    totals := domain.ReportTotals{}
    rows := make([]domain.ReportRow, 0, len(issues))
    for _, it := range issues {
        m, _ := it.(map[string]any)
        if m == nil { continue }
        f, _ := m["fields"].(map[string]any)
        if f == nil { f = map[string]any{} }

        statusName, categoryKey := "", ""
        if st, ok := f["status"].(map[string]any); ok {
            statusName = toStr(st["name"])
            if cat, ok := st["statusCategory"].(map[string]any); ok { categoryKey = toStr(cat["key"]) }
        }
        action := domain.ActionNotCompleted
        if strings.EqualFold(statusName, "done") || categoryKey == "done" {
            action = domain.ActionCompleted
            totals.Completed++
        } else {
            totals.NotCompleted++
        }

        rows = append(rows, domain.ReportRow{
            Action:      action,
            Key:         toStr(m["key"]),
            Summary:     toStr(f["summary"]),
            IssueType:   nameOf(f["issuetype"]),
            Priority:    nameOf(f["priority"]),
            Status:      statusName,
            Assignee:    reportAssignee(map[string]any{"assignee": f["assignee"]}),
            PointsFinal: toFloat(f[defaultStoryPointField]),
        })
    }

    return domain.Report{
        SprintID: sprintID,
        Rows:     rows,
        Totals:   totals,
        Meta:     domain.ReportMeta{StoryPointField: spField},
    }, nil
}

// anyHasField reports whether any issue carries a non-null value for the
// given field id.
func anyHasField(issues []any, field string) bool {
    for _, it := range issues {
        m, _ := it.(map[string]any)
        if m == nil { continue }
        if f, ok := m["fields"].(map[string]any); ok {
            if v, present := f[field]; present && v != nil { return true }
        }
    }
    return false
}

func findStoryPointField(catalog []map[string]any) string {
    for _, f := range catalog {
        if storyPointNameRe.MatchString(toStr(f["name"])) {
            return toStr(f["id"])
        }
    }
    return ""
}

func nameOf(v any) string {
    if m, ok := v.(map[string]any); ok { return toStr(m["name"]) }
    return ""
}
