package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/govsnap/internal/duckdb"
)

// hubHandler answers every proposals query with one closed proposal and
// every votes query with two votes.
func hubHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(req.Query, "votes(") {
			_, _ = w.Write([]byte(`{"data":{"votes":[
				{"proposal":{"id":"0xp1","title":"Fee switch","choices":["Yes","No"]},"voter":"0xa","vp":10,"vp_state":"final","created":1650000000,"choice":1,"space":{"id":"uniswap"}},
				{"proposal":{"id":"0xp1","title":"Fee switch","choices":["Yes","No"]},"voter":"0xb","vp":2.5,"vp_state":"final","created":1650000100,"choice":{"1":1},"space":{"id":"uniswap"}}
			]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"proposals":[
			{"id":"0xp1","title":"Fee switch","body":"","choices":["Yes","No"],"start":1,"end":2,"snapshot":"100","state":"closed","author":"0xauthor","space":{"id":"uniswap","name":"Uniswap"}}
		]}}`))
	}
}

func TestRunExport_WritesFilesAndSnapshot(t *testing.T) {
	isolateHome(t)
	hub := httptest.NewServer(hubHandler(t))
	defer hub.Close()

	outDir := filepath.Join(t.TempDir(), "exports")
	cfg := appConfig{
		Endpoint:         hub.URL,
		Spaces:           []string{"uniswap"},
		NamespaceDelay:   time.Minute,
		RequestTimeout:   5 * time.Second,
		ProposalPageSize: 100,
		VotePageSize:     100,
		RetryMaxAttempts: 1,
		OutputDir:        outDir,
		DBSnapshot:       true,
		QueryTimeout:     time.Minute,
		KeepLast:         1,
		APIPort:          defaultAPIPort,
	}

	if err := runExport(cfg); err != nil {
		t.Fatalf("runExport: %v", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	var csvs, dbs int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".csv"):
			csvs++
		case strings.HasPrefix(e.Name(), "snapshot_staging_") && strings.HasSuffix(e.Name(), ".duckdb"):
			dbs++
		}
	}
	if csvs != 2 || dbs != 1 {
		t.Fatalf("output files = %v, want 2 csv and 1 staging db", entries)
	}

	votes, err := filepath.Glob(filepath.Join(outDir, "snapshot_votes_df_*.csv"))
	if err != nil || len(votes) != 1 {
		t.Fatalf("votes export = %v, %v", votes, err)
	}
	data, err := os.ReadFile(votes[0])
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("votes lines = %d, want 3:\n%s", len(lines), data)
	}
	if !strings.HasSuffix(lines[1], ",Yes") || !strings.HasSuffix(lines[2], ",") {
		t.Errorf("choice_str column wrong:\n%s", data)
	}
}

func TestRunExport_FailsOnHubError(t *testing.T) {
	isolateHome(t)
	hub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer hub.Close()

	outDir := filepath.Join(t.TempDir(), "exports")
	err := runExport(appConfig{
		Endpoint:         hub.URL,
		Spaces:           []string{"uniswap"},
		RequestTimeout:   5 * time.Second,
		ProposalPageSize: 100,
		VotePageSize:     100,
		RetryMaxAttempts: 3,
		OutputDir:        outDir,
		APIPort:          defaultAPIPort,
	})
	if err == nil || !strings.Contains(err.Error(), "returning code of 400") {
		t.Fatalf("err = %v, want status 400 error", err)
	}
	if _, statErr := os.Stat(outDir); !os.IsNotExist(statErr) {
		t.Errorf("output dir created on failure")
	}
}

func TestServeAPI_ReturnsOnCancel(t *testing.T) {
	store, err := duckdb.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := serveAPI(ctx, appConfig{APIAddr: "127.0.0.1:0"}, store, "run-1"); err != nil {
		t.Fatalf("serveAPI: %v", err)
	}
}

func TestServeAPI_FailsOnBusyAddress(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()

	store, err := duckdb.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	err = serveAPI(context.Background(), appConfig{APIAddr: busy.Addr().String()}, store, "run-1")
	if err == nil {
		t.Fatal("serveAPI on a busy address returned nil")
	}
}
