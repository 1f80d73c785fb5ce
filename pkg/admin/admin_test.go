package admin

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/procsl/llm-gateway/pkg/health"
	"github.com/procsl/llm-gateway/pkg/model"
	"github.com/procsl/llm-gateway/pkg/store"
)

func todayFileName() string {
	return time.Now().UTC().Format("2006-01-02") + ".log"
}

func newTestSurface(t *testing.T) (*Surface, *store.Store, *health.Tracker, string) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "config"), log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}

	tracker := health.New()
	s := New(st, tracker, logDir, log)
	return s, st, tracker, logDir
}

func TestProviderCRUD(t *testing.T) {
	s, st, _, _ := newTestSurface(t)
	mux := http.NewServeMux()
	s.Register(mux)

	body := `{"name":"pA","protocol":"O","endpoint":"https://example.test","apiKey":"k"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/api/providers", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if _, ok := st.GetProvider("pA"); !ok {
		t.Fatal("expected provider pA to be persisted")
	}

	del := httptest.NewRequest(http.MethodDelete, "/admin/api/providers/pA", nil)
	delRec := httptest.NewRecorder()
	mux.ServeHTTP(delRec, del)
	if delRec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", delRec.Code)
	}
	if _, ok := st.GetProvider("pA"); ok {
		t.Fatal("expected provider pA to be removed")
	}
}

func TestKeyUpsertSynthesizesToken(t *testing.T) {
	s, _, _, _ := newTestSurface(t)
	mux := http.NewServeMux()
	s.Register(mux)

	req := httptest.NewRequest(http.MethodPost, "/admin/api/keys", strings.NewReader(`{"name":"ci"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var got model.AccessKey
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID == "" || !strings.HasPrefix(got.Token, "sk-") {
		t.Fatalf("got %+v, want generated id and sk- token", got)
	}
}

func TestHealthStatusReflectsTrackerPenalty(t *testing.T) {
	s, st, tracker, _ := newTestSurface(t)
	mux := http.NewServeMux()
	s.Register(mux)

	st.UpsertProvider(model.Provider{Name: "pA", Protocol: model.ProtocolOpenAI, Endpoint: "https://example.test", APIKey: "k"})
	tracker.RecordError("pA", 429)
	tracker.RecordError("pA", 429)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var got map[string]providerHealth
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	pa, ok := got["pA"]
	if !ok {
		t.Fatal("expected pA in health response")
	}
	if pa.Current != 40 {
		t.Fatalf("current = %v, want 40 (1000/25)", pa.Current)
	}
	if pa.RecentErrorCount != 2 {
		t.Fatalf("recentErrorCount = %d, want 2", pa.RecentErrorCount)
	}

	resetReq := httptest.NewRequest(http.MethodPost, "/admin/api/health/reset/pA", nil)
	resetRec := httptest.NewRecorder()
	mux.ServeHTTP(resetRec, resetReq)
	if resetRec.Code != http.StatusNoContent {
		t.Fatalf("reset status = %d", resetRec.Code)
	}
	if w := tracker.Weight("pA", 1000); w != 1000 {
		t.Fatalf("weight after reset = %v, want 1000", w)
	}
}

func TestQueryLogsFiltersAndPaginates(t *testing.T) {
	s, _, _, logDir := newTestSurface(t)
	mux := http.NewServeMux()
	s.Register(mux)

	today := todayFileName()
	lines := []string{
		`{"id":"1","status":200,"keyName":"ci","routing":{"group":"gpt"}}`,
		`{"id":"2","status":500,"keyName":"ci","routing":{"group":"claude"}}`,
		`{"id":"3","status":200,"keyName":"other","routing":{"group":"gpt"}}`,
	}
	if err := os.WriteFile(filepath.Join(logDir, today), []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/api/logs?errorOnly=true", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var got struct {
		Logs     []map[string]any `json:"logs"`
		Total    int              `json:"total"`
		Filtered int              `json:"filtered"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total != 3 || got.Filtered != 1 || len(got.Logs) != 1 {
		t.Fatalf("got %+v", got)
	}
	if got.Logs[0]["id"] != "2" {
		t.Fatalf("expected entry 2, got %v", got.Logs[0]["id"])
	}
}

func TestQueryLogsMatchesKeywordInsideResponseBody(t *testing.T) {
	s, _, _, logDir := newTestSurface(t)
	mux := http.NewServeMux()
	s.Register(mux)

	today := todayFileName()
	lines := []string{
		`{"id":"1","status":200,"keyName":"ci","finalResponse":{"choices":[{"message":{"content":"hello needle world"}}]}}`,
		`{"id":"2","status":200,"keyName":"ci","finalResponse":{"choices":[{"message":{"content":"unrelated text"}}]}}`,
		`{"id":"3","status":500,"keyName":"ci","attempts":[{"provider":"pA","responseBody":{"error":{"message":"needle in attempt"}}}]}`,
	}
	if err := os.WriteFile(filepath.Join(logDir, today), []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/api/logs?keyword=needle", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var got struct {
		Logs     []map[string]any `json:"logs"`
		Total    int              `json:"total"`
		Filtered int              `json:"filtered"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total != 3 || got.Filtered != 2 || len(got.Logs) != 2 {
		t.Fatalf("got %+v", got)
	}
	ids := map[string]bool{}
	for _, l := range got.Logs {
		ids[l["id"].(string)] = true
	}
	if !ids["1"] || !ids["3"] {
		t.Fatalf("expected entries 1 and 3 to match, got %+v", got.Logs)
	}
}

func TestClearLogsToday(t *testing.T) {
	s, _, _, logDir := newTestSurface(t)
	mux := http.NewServeMux()
	s.Register(mux)

	today := todayFileName()
	if err := os.WriteFile(filepath.Join(logDir, today), []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/api/logs/clear", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, err := os.Stat(filepath.Join(logDir, today)); !os.IsNotExist(err) {
		t.Fatal("expected today's log to be removed")
	}
}
