package services

import (
    "context"
    "net/http"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/nathanspencer1/sprint-report/internal/adapters/jira"
    "github.com/nathanspencer1/sprint-report/internal/domain"
)

func richReportMux(added any) *http.ServeMux {
    mux := http.NewServeMux()
    mux.HandleFunc("/rest/agile/1.0/sprint/42", func(w http.ResponseWriter, r *http.Request) {
        writeJSON(w, map[string]any{"id": 42, "originBoardId": 7})
    })
    mux.HandleFunc("/rest/greenhopper/1.0/rapid/charts/sprintreport", func(w http.ResponseWriter, r *http.Request) {
        writeJSON(w, map[string]any{
            "contents": map[string]any{
                "issueKeysAddedDuringSprint": added,
                "completedIssues": []any{
                    map[string]any{
                        "key": "PRJ-1", "summary": "ship it", "typeName": "Story",
                        "priorityName": "High", "statusName": "Done",
                        "assigneeDisplayName": "Alice Doe",
                        "estimateStatistic": map[string]any{
                            "statFieldId":    "field_customfield_10031",
                            "statFieldValue": map[string]any{"value": 5},
                        },
                        "currentEstimateStatistic": map[string]any{
                            "statFieldId":    "field_customfield_10031",
                            "statFieldValue": map[string]any{"value": 8},
                        },
                    },
                },
                "issuesNotCompletedInCurrentSprint": []any{
                    map[string]any{
                        "key": "PRJ-2", "summary": "still going", "typeName": "Bug",
                        "priorityName": "Low", "statusName": "In Progress",
                        "assigneeName": "bob",
                        "estimateStatistic": map[string]any{
                            "statFieldId":    "field_customfield_10031",
                            "statFieldValue": map[string]any{"value": "3"},
                        },
                        "currentEstimateStatistic": map[string]any{
                            "statFieldId":    "field_customfield_10031",
                            "statFieldValue": map[string]any{},
                        },
                    },
                },
                "puntedIssues": []any{
                    map[string]any{
                        "key": "PRJ-3", "summary": "punted", "typeName": "Task",
                        "priorityName": "Medium", "statusName": "To Do",
                        "assignee": map[string]any{"displayName": "Carol"},
                    },
                },
            },
        })
    })
    return mux
}

func TestBuildSprintReportPrimaryStrategy(t *testing.T) {
    svc, creds := newTestService(t, richReportMux(map[string]any{"PRJ-2": true}))

    rep, err := svc.BuildSprintReport(context.Background(), creds, 42)
    require.NoError(t, err)

    require.Len(t, rep.Rows, 3)
    assert.Equal(t, int64(42), rep.SprintID)
    assert.Equal(t, "customfield_10031", rep.Meta.StoryPointField)

    // fixed bucket order
    assert.Equal(t, domain.ActionCompleted, rep.Rows[0].Action)
    assert.Equal(t, domain.ActionNotCompleted, rep.Rows[1].Action)
    assert.Equal(t, domain.ActionRemoved, rep.Rows[2].Action)

    done := rep.Rows[0]
    assert.Equal(t, "PRJ-1", done.Key)
    assert.Equal(t, "Alice Doe", done.Assignee)
    assert.Equal(t, "", done.Added)
    require.NotNil(t, done.PointsInitial)
    require.NotNil(t, done.PointsFinal)
    require.NotNil(t, done.PointsChange)
    assert.Equal(t, 5.0, *done.PointsInitial)
    assert.Equal(t, 8.0, *done.PointsFinal)
    assert.Equal(t, 3.0, *done.PointsChange)

    open := rep.Rows[1]
    assert.Equal(t, "*", open.Added)
    assert.Equal(t, "bob", open.Assignee)
    require.NotNil(t, open.PointsInitial)
    assert.Equal(t, 3.0, *open.PointsInitial)
    assert.Nil(t, open.PointsFinal)
    assert.Nil(t, open.PointsChange, "change must be nil unless both endpoints are set")

    punted := rep.Rows[2]
    assert.Equal(t, "Carol", punted.Assignee)
    assert.Nil(t, punted.PointsInitial)
    assert.Nil(t, punted.PointsChange)

    assert.Equal(t, domain.ReportTotals{Completed: 1, NotCompleted: 1, Removed: 1}, rep.Totals)
    assert.Equal(t, len(rep.Rows), rep.Totals.Completed+rep.Totals.NotCompleted+rep.Totals.Removed)
}

func TestBuildSprintReportAddedSetArrayShape(t *testing.T) {
    svc, creds := newTestService(t, richReportMux([]any{"PRJ-1", "PRJ-3"}))

    rep, err := svc.BuildSprintReport(context.Background(), creds, 42)
    require.NoError(t, err)
    require.Len(t, rep.Rows, 3)
    assert.Equal(t, "*", rep.Rows[0].Added)
    assert.Equal(t, "", rep.Rows[1].Added)
    assert.Equal(t, "*", rep.Rows[2].Added)
}

func fallbackSearchBody(withPoints bool) map[string]any {
    doneFields := map[string]any{
        "summary":   "done thing",
        "issuetype": map[string]any{"name": "Story"},
        "priority":  map[string]any{"name": "High"},
        "status": map[string]any{
            "name":           "Done",
            "statusCategory": map[string]any{"key": "done"},
        },
        "assignee": map[string]any{"displayName": "Alice Doe"},
    }
    openFields := map[string]any{
        "summary":   "open thing",
        "issuetype": map[string]any{"name": "Bug"},
        "priority":  map[string]any{"name": "Low"},
        "status": map[string]any{
            "name":           "In Progress",
            "statusCategory": map[string]any{"key": "indeterminate"},
        },
        "assignee": nil,
    }
    if withPoints {
        doneFields["customfield_10016"] = 5
        openFields["customfield_10016"] = nil
    } else {
        doneFields["customfield_10016"] = nil
        openFields["customfield_10016"] = nil
    }
    return map[string]any{
        "issues": []any{
            map[string]any{"key": "PRJ-1", "fields": doneFields},
            map[string]any{"key": "PRJ-2", "fields": openFields},
        },
    }
}

func TestBuildSprintReportFallbackWhenSprintLookupFails(t *testing.T) {
    searched := false
    mux := http.NewServeMux()
    mux.HandleFunc("/rest/agile/1.0/sprint/42", func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, `{"errorMessages":["no sprint"]}`, http.StatusNotFound)
    })
    mux.HandleFunc("/rest/api/3/search", func(w http.ResponseWriter, r *http.Request) {
        searched = true
        assert.Equal(t, "sprint = 42 ORDER BY status, priority, key", r.URL.Query().Get("jql"))
        assert.Equal(t, "200", r.URL.Query().Get("maxResults"))
        writeJSON(w, fallbackSearchBody(true))
    })
    svc, creds := newTestService(t, mux)

    rep, err := svc.BuildSprintReport(context.Background(), creds, 42)
    require.NoError(t, err)
    assert.True(t, searched)

    require.Len(t, rep.Rows, 2)
    assert.Equal(t, domain.ActionCompleted, rep.Rows[0].Action)
    assert.Equal(t, domain.ActionNotCompleted, rep.Rows[1].Action)
    assert.Equal(t, domain.ReportTotals{Completed: 1, NotCompleted: 1}, rep.Totals)
    assert.Equal(t, "customfield_10016", rep.Meta.StoryPointField)

    // scope-change data is unavailable via plain search
    for _, row := range rep.Rows {
        assert.Equal(t, "", row.Added)
        assert.Nil(t, row.PointsInitial)
        assert.Nil(t, row.PointsChange)
    }
    require.NotNil(t, rep.Rows[0].PointsFinal)
    assert.Equal(t, 5.0, *rep.Rows[0].PointsFinal)
    assert.Nil(t, rep.Rows[1].PointsFinal)
    assert.Equal(t, "Alice Doe", rep.Rows[0].Assignee)
    assert.Equal(t, "", rep.Rows[1].Assignee)
}

func TestBuildSprintReportFallbackWhenRichReportFails(t *testing.T) {
    mux := http.NewServeMux()
    mux.HandleFunc("/rest/agile/1.0/sprint/42", func(w http.ResponseWriter, r *http.Request) {
        writeJSON(w, map[string]any{"id": 42, "rapidViewId": 7})
    })
    mux.HandleFunc("/rest/greenhopper/1.0/rapid/charts/sprintreport", func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, "nope", http.StatusInternalServerError)
    })
    mux.HandleFunc("/rest/api/3/search", func(w http.ResponseWriter, r *http.Request) {
        writeJSON(w, fallbackSearchBody(true))
    })
    svc, creds := newTestService(t, mux)

    rep, err := svc.BuildSprintReport(context.Background(), creds, 42)
    require.NoError(t, err, "rich report failure must be absorbed")
    assert.Len(t, rep.Rows, 2)
}

func TestBuildSprintReportFallbackWhenRichReportEmpty(t *testing.T) {
    mux := http.NewServeMux()
    mux.HandleFunc("/rest/agile/1.0/sprint/42", func(w http.ResponseWriter, r *http.Request) {
        writeJSON(w, map[string]any{"id": 42, "originBoardId": 7})
    })
    mux.HandleFunc("/rest/greenhopper/1.0/rapid/charts/sprintreport", func(w http.ResponseWriter, r *http.Request) {
        writeJSON(w, map[string]any{"contents": map[string]any{
            "completedIssues":                   []any{},
            "issuesNotCompletedInCurrentSprint": []any{},
            "puntedIssues":                      []any{},
        }})
    })
    mux.HandleFunc("/rest/api/3/search", func(w http.ResponseWriter, r *http.Request) {
        writeJSON(w, fallbackSearchBody(true))
    })
    svc, creds := newTestService(t, mux)

    rep, err := svc.BuildSprintReport(context.Background(), creds, 42)
    require.NoError(t, err)
    assert.Len(t, rep.Rows, 2)
}

func TestBuildSprintReportFallbackFieldRediscovery(t *testing.T) {
    catalogAsked := false
    mux := http.NewServeMux()
    mux.HandleFunc("/rest/agile/1.0/sprint/42", func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, "gone", http.StatusNotFound)
    })
    mux.HandleFunc("/rest/api/3/search", func(w http.ResponseWriter, r *http.Request) {
        writeJSON(w, fallbackSearchBody(false))
    })
    mux.HandleFunc("/rest/api/3/field", func(w http.ResponseWriter, r *http.Request) {
        catalogAsked = true
        writeJSON(w, []any{
            map[string]any{"id": "summary", "name": "Summary"},
            map[string]any{"id": "customfield_10042", "name": "Story  Points"},
        })
    })
    svc, creds := newTestService(t, mux)

    rep, err := svc.BuildSprintReport(context.Background(), creds, 42)
    require.NoError(t, err)
    assert.True(t, catalogAsked)
    assert.Equal(t, "customfield_10042", rep.Meta.StoryPointField)
    // the issues are not re-queried with the discovered field id
    for _, row := range rep.Rows {
        assert.Nil(t, row.PointsFinal)
    }
}

func TestBuildSprintReportFallbackSearchErrorSurfaced(t *testing.T) {
    mux := http.NewServeMux()
    mux.HandleFunc("/rest/agile/1.0/sprint/42", func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, "gone", http.StatusNotFound)
    })
    mux.HandleFunc("/rest/api/3/search", func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, `{"errorMessages":["jql broken"]}`, http.StatusBadRequest)
    })
    svc, creds := newTestService(t, mux)

    _, err := svc.BuildSprintReport(context.Background(), creds, 42)
    var apiErr *jira.APIError
    require.ErrorAs(t, err, &apiErr)
    assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
    assert.Contains(t, apiErr.Body, "jql broken")
}

func TestAddedKeySetShapes(t *testing.T) {
    fromArray := addedKeySet([]any{"A-1", "A-2", ""})
    assert.Len(t, fromArray, 2)
    _, ok := fromArray["A-1"]
    assert.True(t, ok)

    fromMap := addedKeySet(map[string]any{"B-1": true, "B-2": map[string]any{}})
    assert.Len(t, fromMap, 2)
    _, ok = fromMap["B-2"]
    assert.True(t, ok)

    assert.Empty(t, addedKeySet(nil))
    assert.Empty(t, addedKeySet("B-9"))
}
