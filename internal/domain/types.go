package domain

// User is the Jira identity behind a session, as returned by /myself.
type User struct {
    AccountID   string `json:"accountId"`
    DisplayName string `json:"displayName"`
}

// Board is an Agile board. Only Name participates in ordering; the rest is
// passed through for the client.
type Board struct {
    ID   int64  `json:"id"`
    Name string `json:"name"`
    Type string `json:"type,omitempty"`
}

// Sprint carries the subset of sprint fields the client renders. Date fields
// stay in their upstream string form.
type Sprint struct {
    ID            int64  `json:"id"`
    Name          string `json:"name"`
    State         string `json:"state,omitempty"`
    StartDate     string `json:"startDate,omitempty"`
    CompleteDate  string `json:"completeDate,omitempty"`
    CreatedDate   string `json:"createdDate,omitempty"`
    OriginBoardID int64  `json:"originBoardId,omitempty"`
}

const (
    ActionCompleted    = "Completed"
    ActionNotCompleted = "NotCompleted"
    ActionRemoved      = "Removed"
)

// ReportRow is one issue in a sprint report. Points are nil when the upstream
// carries no numeric value; PointsChange is nil unless both endpoints are set.
type ReportRow struct {
    Action        string   `json:"action"`
    Key           string   `json:"key"`
    Added         string   `json:"added"`
    Summary       string   `json:"summary"`
    IssueType     string   `json:"issueType"`
    Priority      string   `json:"priority"`
    Status        string   `json:"status"`
    Assignee      string   `json:"assignee"`
    PointsInitial *float64 `json:"pointsInitial"`
    PointsFinal   *float64 `json:"pointsFinal"`
    PointsChange  *float64 `json:"pointsChange"`
}

type ReportTotals struct {
    Completed    int `json:"completed"`
    NotCompleted int `json:"notCompleted"`
    Removed      int `json:"removed"`
}

type ReportMeta struct {
    StoryPointField string `json:"storyPointField"`
}

type Report struct {
    SprintID int64        `json:"sprintId"`
    Rows     []ReportRow  `json:"rows"`
    Totals   ReportTotals `json:"totals"`
    Meta     ReportMeta   `json:"meta"`
}
