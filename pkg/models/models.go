// Package models provides the public API DTOs for the htnql gateway: the
// JSON shape of a report request, a run response, and an explain response.
package models

// ReportRequest is the JSON wire shape of a reportspec.Spec submitted to
// the gateway's /api/v1/report endpoint.
type ReportRequest struct {
	Name    string         `json:"name"`
	Metrics []MetricDTO    `json:"metrics"`
	GroupBy []string       `json:"group_by"`
	Filters []FilterDTO    `json:"filters"`
	Limit   *int           `json:"limit,omitempty"`
	RawSQL  string         `json:"raw_sql,omitempty"`
	BaseSQL string         `json:"base_sql,omitempty"`
	Agent   string         `json:"agent,omitempty"`
}

// MetricDTO mirrors reportspec.Metric over the wire.
type MetricDTO struct {
	Expression string `json:"expression"`
	Alias      string `json:"alias"`
}

// FilterDTO mirrors reportspec.Filter over the wire.
type FilterDTO struct {
	Column string `json:"column"`
	Op     string `json:"op"`
	Value  any    `json:"value"`
}

// ReportResponse is the API response for a successful run_report call.
type ReportResponse struct {
	QueryID  string           `json:"query_id"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
	Mode     string           `json:"mode"`
	Duration string           `json:"duration"`
}

// ExplainResponse is the API response for run_report_with_trace: the
// emitted SQL, bound values, and the full kernel trace, without executing
// the SQL against a database.
type ExplainResponse struct {
	SQL         string      `json:"sql"`
	BoundValues []any       `json:"bound_values"`
	Mode        string      `json:"mode"`
	Tables      []string    `json:"tables"`
	Trace       []TraceStep `json:"trace"`
}

// TraceStep is the wire form of htn.TraceStep.
type TraceStep struct {
	TaskName         string   `json:"task_name"`
	MethodName       string   `json:"method_name,omitempty"`
	Depth            int      `json:"depth"`
	StateKeysChanged []string `json:"state_keys_changed,omitempty"`
}

// ErrorResponse is the API response for a failed request.
type ErrorResponse struct {
	Error      string `json:"error"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Code       int    `json:"code"`
}
