// Package gatewayhttp is the HTTP facade over queryengine.Engine: the
// "/api/v1/report" endpoint plus health/readiness checks the htnqld
// gateway serves.
package gatewayhttp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/htnql/htnql/internal/dbexec"
	"github.com/htnql/htnql/internal/htn"
	"github.com/htnql/htnql/internal/htnerrors"
	"github.com/htnql/htnql/internal/queryengine"
	"github.com/htnql/htnql/internal/reportspec"
	"github.com/htnql/htnql/pkg/api"
	"github.com/htnql/htnql/pkg/models"
)

// Pinger is the subset of an executor the readiness check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires an Engine to an http.Handler.
type Server struct {
	Engine *queryengine.Engine
	Ping   Pinger // optional; nil disables the readiness DB check
	mux    *http.ServeMux
}

// NewServer builds the gateway's http.Handler.
func NewServer(engine *queryengine.Engine, ping Pinger) *Server {
	s := &Server{Engine: engine, Ping: ping, mux: http.NewServeMux()}
	s.mux.HandleFunc(api.EndpointReport, s.handleReport)
	s.mux.HandleFunc(api.EndpointExplain, s.handleExplain)
	s.mux.HandleFunc(api.EndpointHealth, s.handleHealth)
	s.mux.HandleFunc(api.EndpointReady, s.handleReady)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, htnerrors.NewSpecError("body", err.Error(), "submit a valid JSON ReportRequest"))
		return
	}

	spec := specFromRequest(req)
	rows, err := s.Engine.RunReport(r.Context(), spec, agentOf(req.Agent))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ReportResponse{
		Rows:     rows,
		RowCount: len(rows),
		Mode:     modeOf(spec),
	})
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, htnerrors.NewSpecError("body", err.Error(), "submit a valid JSON ReportRequest"))
		return
	}

	spec := specFromRequest(req)
	capture := &capturingExecutor{}
	dry := *s.Engine
	dry.Executor = capture

	_, trace, err := dry.RunReportWithTrace(r.Context(), spec, agentOf(req.Agent))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := models.ExplainResponse{
		SQL:         capture.sql,
		BoundValues: capture.boundValues,
		Mode:        modeOf(spec),
		Trace:       traceToModels(trace),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.Ping != nil {
		result := dbexec.ExecuteWithRetry(r.Context(), dbexec.DefaultRetryConfig(), func() error {
			return s.Ping.Ping(r.Context())
		})
		if !result.Success {
			writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: result.String(), Code: http.StatusServiceUnavailable})
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

func modeOf(spec reportspec.Spec) string {
	switch {
	case spec.RawSQL != "":
		return "raw"
	case spec.BaseSQL != "":
		return "base"
	default:
		return "auto"
	}
}

func traceToModels(trace []htn.TraceStep) []models.TraceStep {
	out := make([]models.TraceStep, len(trace))
	for i, t := range trace {
		out[i] = models.TraceStep{TaskName: t.TaskName, MethodName: t.MethodName, Depth: t.Depth, StateKeysChanged: t.StateKeysChanged}
	}
	return out
}

func agentOf(agent string) string {
	if agent == "" {
		return "default"
	}
	return agent
}

func specFromRequest(req models.ReportRequest) reportspec.Spec {
	metrics := make([]reportspec.Metric, len(req.Metrics))
	for i, m := range req.Metrics {
		metrics[i] = reportspec.Metric{Expression: m.Expression, Alias: m.Alias}
	}
	filters := make([]reportspec.Filter, len(req.Filters))
	for i, f := range req.Filters {
		filters[i] = reportspec.Filter{Column: f.Column, Op: reportspec.FilterOp(f.Op), Value: f.Value}
	}
	return reportspec.Spec{
		Name:    req.Name,
		Metrics: metrics,
		GroupBy: req.GroupBy,
		Filters: filters,
		Limit:   req.Limit,
		RawSQL:  req.RawSQL,
		BaseSQL: req.BaseSQL,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", api.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code, status := http.StatusInternalServerError, http.StatusInternalServerError
	reason, suggestion := "", ""
	switch e := err.(type) {
	case *htnerrors.SpecError:
		code, status, reason, suggestion = int(e.Code), http.StatusBadRequest, e.Reason, e.Suggestion
	case *htnerrors.SchemaError:
		code, status, reason, suggestion = int(e.Code), http.StatusBadRequest, e.Reason, e.Suggestion
	case *htnerrors.JoinError:
		code, status, reason, suggestion = int(e.Code), http.StatusUnprocessableEntity, e.Reason, e.Suggestion
	case *htnerrors.AgentError:
		code, status, reason, suggestion = int(e.Code), http.StatusBadRequest, e.Reason, e.Suggestion
	case *htnerrors.PlannerError:
		code, status, reason, suggestion = int(e.Code), http.StatusUnprocessableEntity, e.Reason, e.Suggestion
	case *htnerrors.PrimitiveError:
		code, status, reason, suggestion = int(e.Code), http.StatusUnprocessableEntity, e.Reason, e.Suggestion
	case *htnerrors.CancelledError:
		code, status, reason, suggestion = int(e.Code), http.StatusRequestTimeout, e.Reason, e.Suggestion
	case *htnerrors.ExecutionError:
		code, status, reason, suggestion = int(e.Code), http.StatusBadGateway, e.Reason, e.Suggestion
	}
	writeJSON(w, status, models.ErrorResponse{Error: err.Error(), Reason: reason, Suggestion: suggestion, Code: code})
}

type capturingExecutor struct {
	sql         string
	boundValues []any
}

func (c *capturingExecutor) Execute(ctx context.Context, sql string, boundValues []any) ([]queryengine.Row, error) {
	c.sql = sql
	c.boundValues = boundValues
	return nil, nil
}
