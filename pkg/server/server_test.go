package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/procsl/llm-gateway/pkg/admin"
	"github.com/procsl/llm-gateway/pkg/auth"
	"github.com/procsl/llm-gateway/pkg/forwarding"
	"github.com/procsl/llm-gateway/pkg/health"
	"github.com/procsl/llm-gateway/pkg/model"
	"github.com/procsl/llm-gateway/pkg/store"
	"github.com/procsl/llm-gateway/pkg/trace"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "config"), log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logDir := filepath.Join(dir, "logs")
	rec, err := trace.NewRecorder(logDir, log)
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	t.Cleanup(func() { rec.Close() })

	tracker := health.New()
	engine := forwarding.New(st, tracker, rec, nil, log)
	adm := admin.New(st, tracker, logDir, log)

	cfg := Config{
		Addr:        "127.0.0.1:0",
		CORSEnabled: true,
		AdminCreds:  auth.AdminCredentials{Username: "admin", Password: "admin"},
	}
	return New(cfg, st, engine, adm, nil, log), st
}

func TestHandleModelsListsGroups(t *testing.T) {
	s, st := newTestServer(t)
	st.UpsertGroup(model.Group{Name: "gpt", Protocol: model.ProtocolOpenAI, Providers: []string{}})

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var got struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Data) != 1 || got.Data[0]["id"] != "gpt" {
		t.Fatalf("got %+v", got)
	}
}

func TestInferenceRequiresBearerToken(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{"model":"gpt"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAdminRoutesRequireBasicAuth(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/providers", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	ok := httptest.NewRequest(http.MethodGet, "/admin/api/providers", nil)
	ok.SetBasicAuth("admin", "admin")
	okRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(okRec, ok)
	if okRec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", okRec.Code)
	}
}
