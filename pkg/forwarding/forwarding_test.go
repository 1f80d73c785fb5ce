package forwarding

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/procsl/llm-gateway/pkg/health"
	"github.com/procsl/llm-gateway/pkg/model"
	"github.com/procsl/llm-gateway/pkg/store"
	"github.com/procsl/llm-gateway/pkg/trace"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store, *health.Tracker) {
	t.Helper()
	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.Open(dir, log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	rec, err := trace.NewRecorder(filepath.Join(dir, "logs"), log)
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	t.Cleanup(func() { rec.Close() })

	tracker := health.New()
	return New(st, tracker, rec, nil, log), st, tracker
}

func doRequest(t *testing.T, e *Engine, path string, protocol model.Protocol, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	e.Handle(rec, req, protocol, "test-key", body)
	return rec
}

func TestHandleUnaryHappyPath(t *testing.T) {
	e, st, _ := newTestEngine(t)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer upstream.Close()

	st.UpsertProvider(model.Provider{Name: "pA", Protocol: model.ProtocolOpenAI, Endpoint: upstream.URL, APIKey: "k"})
	st.UpsertGroup(model.Group{Name: "gpt", Protocol: model.ProtocolOpenAI, Providers: []string{"pA"}})

	rec := doRequest(t, e, "/v1/chat/completions", model.ProtocolOpenAI, map[string]any{"model": "gpt", "stream": false})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["id"] != "x" {
		t.Fatalf("body = %v", got)
	}
}

func TestHandleFailover(t *testing.T) {
	e, st, tracker := newTestEngine(t)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer healthy.Close()

	st.UpsertProvider(model.Provider{Name: "pA", Protocol: model.ProtocolOpenAI, Endpoint: failing.URL, APIKey: "k"})
	st.UpsertProvider(model.Provider{Name: "pB", Protocol: model.ProtocolOpenAI, Endpoint: healthy.URL, APIKey: "k"})
	st.UpsertGroup(model.Group{Name: "gpt", Protocol: model.ProtocolOpenAI, Providers: []string{"pA", "pB"}})

	rec := doRequest(t, e, "/v1/chat/completions", model.ProtocolOpenAI, map[string]any{"model": "gpt"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	stats := st.Stats()
	if stats["pA"].Failures != 1 {
		t.Fatalf("pA failures = %d, want 1", stats["pA"].Failures)
	}
	if s := tracker.Stats("pA"); s.RecentErrorCount != 1 {
		t.Fatalf("pA recent errors = %d, want 1", s.RecentErrorCount)
	}
}

func TestHandleAllFail(t *testing.T) {
	e, st, _ := newTestEngine(t)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	st.UpsertProvider(model.Provider{Name: "pA", Protocol: model.ProtocolOpenAI, Endpoint: failing.URL, APIKey: "k"})
	st.UpsertProvider(model.Provider{Name: "pB", Protocol: model.ProtocolOpenAI, Endpoint: failing.URL, APIKey: "k"})
	st.UpsertGroup(model.Group{Name: "gpt", Protocol: model.ProtocolOpenAI, Providers: []string{"pA", "pB"}})

	rec := doRequest(t, e, "/v1/chat/completions", model.ProtocolOpenAI, map[string]any{"model": "gpt"})

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var got map[string]any
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got["error"] != "All providers failed" {
		t.Fatalf("body = %v", got)
	}
}

func TestHandleModelNotFound(t *testing.T) {
	e, _, _ := newTestEngine(t)
	rec := doRequest(t, e, "/v1/chat/completions", model.ProtocolOpenAI, map[string]any{"model": "nope"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleProtocolMismatch(t *testing.T) {
	e, st, _ := newTestEngine(t)
	st.UpsertGroup(model.Group{Name: "g", Protocol: model.ProtocolOpenAI, Providers: []string{}})

	rec := doRequest(t, e, "/v1/messages", model.ProtocolAnthropic, map[string]any{"model": "g"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleStreamingCapture(t *testing.T) {
	e, st, _ := newTestEngine(t)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, chunk := range []string{"he", "ll", "o\n"} {
			w.Write([]byte(chunk))
			flusher.Flush()
		}
	}))
	defer upstream.Close()

	st.UpsertProvider(model.Provider{Name: "pA", Protocol: model.ProtocolOpenAI, Endpoint: upstream.URL, APIKey: "k"})
	st.UpsertGroup(model.Group{Name: "gpt", Protocol: model.ProtocolOpenAI, Providers: []string{"pA"}})

	rec := doRequest(t, e, "/v1/chat/completions", model.ProtocolOpenAI, map[string]any{"model": "gpt", "stream": true})

	if rec.Body.String() != "hello\n" {
		t.Fatalf("body = %q, want %q", rec.Body.String(), "hello\n")
	}
}
