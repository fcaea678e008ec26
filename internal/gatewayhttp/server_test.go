package gatewayhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htnql/htnql/internal/agents"
	"github.com/htnql/htnql/internal/queryengine"
	"github.com/htnql/htnql/internal/schema"
	"github.com/htnql/htnql/pkg/models"
)

func testSchema(t *testing.T) *schema.Graph {
	t.Helper()
	g, err := schema.New(
		[]schema.Table{{Name: "orders", Columns: []string{"id", "amount_cents"}}},
		nil,
	)
	require.NoError(t, err)
	return g
}

type fakeExecutor struct {
	rows []queryengine.Row
}

func (f *fakeExecutor) Execute(ctx context.Context, sql string, boundValues []any) ([]queryengine.Row, error) {
	return f.rows, nil
}

func TestHandleReportReturnsRows(t *testing.T) {
	engine := queryengine.New(testSchema(t), agents.Builtins(), nil, &fakeExecutor{rows: []queryengine.Row{{"n": 1}}}, nil)
	srv := NewServer(engine, nil)

	body, _ := json.Marshal(models.ReportRequest{RawSQL: "SELECT 1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/report", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.RowCount)
	assert.Equal(t, "raw", resp.Mode)
}

func TestHandleReportRejectsNonPost(t *testing.T) {
	engine := queryengine.New(testSchema(t), agents.Builtins(), nil, &fakeExecutor{}, nil)
	srv := NewServer(engine, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleReportRejectsInvalidJSON(t *testing.T) {
	engine := queryengine.New(testSchema(t), agents.Builtins(), nil, &fakeExecutor{}, nil)
	srv := NewServer(engine, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/report", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleExplainReturnsSQLWithoutExecuting(t *testing.T) {
	engine := queryengine.New(testSchema(t), agents.Builtins(), nil, &fakeExecutor{rows: []queryengine.Row{{"n": 1}}}, nil)
	srv := NewServer(engine, nil)

	body, _ := json.Marshal(models.ReportRequest{
		Metrics: []models.MetricDTO{{Expression: "COUNT(*)", Alias: "total"}},
		GroupBy: []string{"orders.amount_cents"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/report/explain", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ExplainResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.SQL, "COUNT(*)")
	assert.Equal(t, "auto", resp.Mode)
	assert.NotEmpty(t, resp.Trace)
}

func TestHandleHealthAlwaysOK(t *testing.T) {
	engine := queryengine.New(testSchema(t), agents.Builtins(), nil, &fakeExecutor{}, nil)
	srv := NewServer(engine, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type failingPing struct{}

func (failingPing) Ping(ctx context.Context) error { return assertErr("down") }

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestHandleReadyReflectsPingFailure(t *testing.T) {
	engine := queryengine.New(testSchema(t), agents.Builtins(), nil, &fakeExecutor{}, nil)
	srv := NewServer(engine, failingPing{})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleReadyOKWithoutPinger(t *testing.T) {
	engine := queryengine.New(testSchema(t), agents.Builtins(), nil, &fakeExecutor{}, nil)
	srv := NewServer(engine, nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
