/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strconv"
    "strings"

    "github.com/nathanspencer1/sprint-report/internal/config"
    "github.com/nathanspencer1/sprint-report/internal/domain"
    "github.com/rs/zerolog"
)

// Credentials identify one Jira Cloud tenant and user. Every call is made on
// behalf of a session, so credentials travel per request rather than living on
// the client.
type Credentials struct {
    BaseURL  string
    Email    string
    APIToken string
}

// APIError is a non-2xx upstream response, kept with its raw body so handlers
// can propagate the status and detail.
type APIError struct {
    StatusCode int
    Body       string
}

func (e *APIError) Error() string {
    return fmt.Sprintf("jira api status=%d body=%s", e.StatusCode, e.Body)
}

type Client struct {
    http *http.Client
    log  zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{
        http: &http.Client{ Timeout: cfg.HTTPTimeout },
        log:  log,
    }
}

func apiURL(base, path string, q url.Values) string {
    base = strings.TrimRight(base, "/")
    if !strings.HasPrefix(path, "/") { path = "/" + path }
    u := base + path
    if len(q) > 0 { u = u + "?" + q.Encode() }
    return u
}

func (c *Client) do(ctx context.Context, creds Credentials, method, path string, q url.Values) ([]byte, error) {
    if creds.BaseURL == "" { return nil, errors.New("jira: empty baseURL") }
    req, err := http.NewRequestWithContext(ctx, method, apiURL(creds.BaseURL, path, q), nil)
    if err != nil { return nil, err }
    req.SetBasicAuth(creds.Email, creds.APIToken)
    req.Header.Set("Accept", "application/json")
    req.Header.Set("Content-Type", "application/json")
    resp, err := c.http.Do(req)
    if err != nil { return nil, err }
    defer resp.Body.Close()
    b, err := io.ReadAll(resp.Body)
    if err != nil { return nil, err }
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
    }
    return b, nil
}

func (c *Client) getJSON(ctx context.Context, creds Credentials, path string, q url.Values) (map[string]any, error) {
    b, err := c.do(ctx, creds, http.MethodGet, path, q)
    if err != nil { return nil, err }
    var out map[string]any
    if err := json.Unmarshal(b, &out); err != nil { return nil, err }
    return out, nil
}

// Myself validates credentials and resolves the caller's identity.
func (c *Client) Myself(ctx context.Context, creds Credentials) (domain.User, error) {
    b, err := c.do(ctx, creds, http.MethodGet, "/rest/api/3/myself", nil)
    if err != nil { return domain.User{}, err }
    var me domain.User
    if err := json.Unmarshal(b, &me); err != nil { return domain.User{}, err }
    return me, nil
}

// Paginate walks a cursor-paged listing at path, accumulating values until the
// upstream flags the last page, the running offset reaches the reported total,
// or a safety cap trips. The caps guard against broken upstream pagination
// metadata; zero disables the respective cap.
func (c *Client) Paginate(ctx context.Context, creds Credentials, path string, q url.Values, pageSize, maxOffset, maxPages int) ([]map[string]any, error) {
    var out []map[string]any
    startAt := 0
    for page := 0; ; page++ {
        if maxPages > 0 && page >= maxPages { break }
        if maxOffset > 0 && startAt > maxOffset { break }
        qq := url.Values{}
        for k, vs := range q { qq[k] = vs }
        qq.Set("startAt", strconv.Itoa(startAt))
        qq.Set("maxResults", strconv.Itoa(pageSize))
        m, err := c.getJSON(ctx, creds, path, qq)
        if err != nil { return nil, err }
        vals, _ := m["values"].([]any)
        if len(vals) == 0 { break }
        for _, v := range vals {
            if mm, ok := v.(map[string]any); ok { out = append(out, mm) }
        }
        startAt += len(vals)
        if isLast, _ := m["isLast"].(bool); isLast { break }
        if total := intFrom(m["total"]); total > 0 && startAt >= total { break }
    }
    return out, nil
}

// Boards lists Agile boards across all pages. Offset is capped at 1000.
func (c *Client) Boards(ctx context.Context, creds Credentials) ([]map[string]any, error) {
    return c.Paginate(ctx, creds, "/rest/agile/1.0/board", nil, 50, 1000, 0)
}

// BoardSprints lists a board's sprints in the given states across all pages,
// bounded at 200 page iterations.
func (c *Client) BoardSprints(ctx context.Context, creds Credentials, boardID int64, states string) ([]map[string]any, error) {
    if boardID <= 0 { return nil, errors.New("jira: invalid board id") }
    q := url.Values{}
    q.Set("state", states)
    path := "/rest/agile/1.0/board/" + strconv.FormatInt(boardID, 10) + "/sprint"
    return c.Paginate(ctx, creds, path, q, 50, 0, 200)
}

// Sprint fetches a single sprint, mainly for its originBoardId.
func (c *Client) Sprint(ctx context.Context, creds Credentials, sprintID int64) (map[string]any, error) {
    return c.getJSON(ctx, creds, "/rest/agile/1.0/sprint/"+strconv.FormatInt(sprintID, 10), nil)
}

// SprintReport calls the greenhopper sprint-report endpoint backing the Jira
// UI. Not a documented API; callers must be prepared for it to fail.
func (c *Client) SprintReport(ctx context.Context, creds Credentials, boardID, sprintID int64) (map[string]any, error) {
    q := url.Values{}
    q.Set("rapidViewId", strconv.FormatInt(boardID, 10))
    q.Set("sprintId", strconv.FormatInt(sprintID, 10))
    return c.getJSON(ctx, creds, "/rest/greenhopper/1.0/rapid/charts/sprintreport", q)
}

// Search runs a JQL query requesting only the given fields.
func (c *Client) Search(ctx context.Context, creds Credentials, jql string, fields []string, maxResults int) (map[string]any, error) {
    if jql == "" { return nil, errors.New("jira: empty jql") }
    q := url.Values{}
    q.Set("jql", jql)
    if maxResults > 0 { q.Set("maxResults", strconv.Itoa(maxResults)) }
    if len(fields) > 0 { q.Set("fields", strings.Join(fields, ",")) }
    return c.getJSON(ctx, creds, "/rest/api/3/search", q)
}

// Fields lists the field catalog (for discovering the story-points field id).
func (c *Client) Fields(ctx context.Context, creds Credentials) ([]map[string]any, error) {
    b, err := c.do(ctx, creds, http.MethodGet, "/rest/api/3/field", nil)
    if err != nil { return nil, err }
    var out []map[string]any
    if err := json.Unmarshal(b, &out); err != nil { return nil, err }
    return out, nil
}

func intFrom(v any) int {
    switch t := v.(type) {
    case float64:
        return int(t)
    case int:
        return t
    case int64:
        return int(t)
    }
    return 0
}
