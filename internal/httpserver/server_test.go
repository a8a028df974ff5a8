package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/govsnap/internal/duckdb"
	"github.com/tinytelemetry/govsnap/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*duckdb.Store, http.Handler) {
	t.Helper()
	store, err := duckdb.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.BeginRun("run-1", []string{"uniswap"}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	err = store.InsertProposals("run-1", []model.Proposal{
		{ID: "0xp1", Title: "Fee switch", Choices: []string{"Yes", "No"}, State: "closed", Space: model.Space{ID: "uniswap", Name: "Uniswap"}},
		{ID: "0xp2", Title: "Grants", Choices: []string{"For", "Against"}, State: "closed", Space: model.Space{ID: "uniswap", Name: "Uniswap"}},
	})
	if err != nil {
		t.Fatalf("InsertProposals: %v", err)
	}

	return store, NewServer("", store, "run-1").Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var decoded map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w, decoded
}

func TestHealthEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	w, body := do(t, h, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if body["status"] != "ok" || body["run_id"] != "run-1" {
		t.Errorf("health body = %v", body)
	}
	counts, ok := body["row_counts"].(map[string]interface{})
	if !ok || counts["proposals"] != float64(2) {
		t.Errorf("row_counts = %v", body["row_counts"])
	}
}

func TestHealthEndpoint_WrongMethod(t *testing.T) {
	_, h := newTestServer(t)

	w, _ := do(t, h, http.MethodPost, "/api/health", "")
	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("health POST status = %d, want 405 or 404", w.Code)
	}
}

func TestSchemaEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	w, body := do(t, h, http.MethodGet, "/api/schema", "")
	if w.Code != http.StatusOK {
		t.Fatalf("schema status = %d, want %d", w.Code, http.StatusOK)
	}
	tables, ok := body["tables"].(map[string]interface{})
	if !ok {
		t.Fatalf("tables = %v", body["tables"])
	}
	for _, name := range []string{"export_runs", "proposals", "votes"} {
		if _, ok := tables[name]; !ok {
			t.Errorf("schema missing table %s", name)
		}
	}
	if _, ok := tables["schema_migrations"]; ok {
		t.Error("schema_migrations should be hidden")
	}
}

func TestRunsEndpoint(t *testing.T) {
	_, h := newTestServer(t)

	w, body := do(t, h, http.MethodGet, "/api/runs?limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("runs status = %d; body: %s", w.Code, w.Body.String())
	}
	runs, ok := body["runs"].([]interface{})
	if !ok || len(runs) != 1 {
		t.Fatalf("runs = %v", body["runs"])
	}

	w, _ = do(t, h, http.MethodGet, "/api/runs?limit=zero", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestQueryEndpoint_ValidSelect(t *testing.T) {
	_, h := newTestServer(t)

	w, body := do(t, h, http.MethodPost, "/api/query", `{"sql": "SELECT id, title FROM proposals ORDER BY seq"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("query status = %d; body: %s", w.Code, w.Body.String())
	}
	if body["row_count"] != float64(2) {
		t.Errorf("row_count = %v, want 2", body["row_count"])
	}
	columns, _ := body["columns"].([]interface{})
	if len(columns) != 2 || columns[0] != "id" || columns[1] != "title" {
		t.Errorf("columns = %v", columns)
	}
}

func TestQueryEndpoint_ValidWith(t *testing.T) {
	_, h := newTestServer(t)

	w, _ := do(t, h, http.MethodPost, "/api/query", `{"sql": "WITH c AS (SELECT COUNT(*) AS cnt FROM votes) SELECT cnt FROM c"}`)
	if w.Code != http.StatusOK {
		t.Errorf("query WITH status = %d; body: %s", w.Code, w.Body.String())
	}
}

func TestQueryEndpoint_Rejects(t *testing.T) {
	_, h := newTestServer(t)

	tests := map[string]string{
		"insert": `{"sql": "INSERT INTO proposals (id) VALUES ('x')"}`,
		"drop":   `{"sql": "DROP TABLE votes"}`,
		"copy":   `{"sql": "SELECT 1; COPY votes TO '/tmp/evil.csv'"}`,
		"attach": `{"sql": "SELECT 1; ATTACH '/tmp/evil.db'"}`,
		"empty":  `{"sql": ""}`,
		"json":   `not json`,
	}
	for name, body := range tests {
		w, _ := do(t, h, http.MethodPost, "/api/query", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", name, w.Code, http.StatusBadRequest)
		}
	}
}

func TestQueryEndpoint_WrongMethod(t *testing.T) {
	_, h := newTestServer(t)

	w, _ := do(t, h, http.MethodGet, "/api/query", "")
	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("query GET status = %d, want 405 or 404", w.Code)
	}
}

func TestStopWithoutStart(t *testing.T) {
	srv := NewServer("", nil, "")
	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestServeUntilStop(t *testing.T) {
	store, _ := newTestServer(t)
	srv := NewServer("127.0.0.1:0", store, "run-1")
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	resp, err := http.Get("http://" + srv.Addr() + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve after Stop = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Stop")
	}
}

func TestServeReportsListenerFailure(t *testing.T) {
	srv := NewServer("127.0.0.1:0", nil, "")
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	srv.listener.Close()

	if err := srv.Serve(); err == nil {
		t.Fatal("Serve on a closed listener returned nil")
	}
}

func TestServeBeforeStart(t *testing.T) {
	if err := NewServer("", nil, "").Serve(); err == nil {
		t.Fatal("Serve without Start returned nil")
	}
}
