// Package forwarding is the gateway's core: it routes an inbound request to
// a group, orders that group's providers into weighted candidates, drives
// the sequential failover loop against them, and streams or forwards the
// winning response to the client while recording exactly one trace per
// inbound request (see SPEC_FULL.md §4.1).
package forwarding

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/procsl/llm-gateway/pkg/gwerrors"
	"github.com/procsl/llm-gateway/pkg/health"
	"github.com/procsl/llm-gateway/pkg/metrics"
	"github.com/procsl/llm-gateway/pkg/model"
	"github.com/procsl/llm-gateway/pkg/store"
	"github.com/procsl/llm-gateway/pkg/trace"
)

// attemptTimeout bounds a single upstream attempt (SPEC_FULL.md §4.1, §5).
const attemptTimeout = 60 * time.Second

// Engine selects candidates, drives the failover loop, and appends exactly
// one trace line per inbound request it handles.
type Engine struct {
	store    *store.Store
	health   *health.Tracker
	recorder *trace.Recorder
	metrics  *metrics.Metrics
	log      *slog.Logger

	mu      sync.Mutex
	clients map[string]*http.Client // keyed by provider proxy URL, "" for direct
}

// New builds an Engine over the given store, health tracker, and recorder.
// m may be nil, in which case attempts and requests are not instrumented.
func New(st *store.Store, tracker *health.Tracker, recorder *trace.Recorder, m *metrics.Metrics, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: st, health: tracker, recorder: recorder, metrics: m, log: log, clients: make(map[string]*http.Client)}
}

// Handle routes, attempts, and responds to one inbound inference request.
// protocol is the wire shape of the endpoint that received the request (O
// for /v1/chat/completions, A for /v1/messages); keyName is the display
// name of the access key that authenticated it. body is the request's
// already-decoded JSON object.
func (e *Engine) Handle(w http.ResponseWriter, r *http.Request, protocol model.Protocol, keyName string, body map[string]any) {
	start := time.Now()
	t := &trace.Trace{
		ID:        uuid.NewString(),
		StartedAt: start,
		KeyName:   keyName,
		Request: trace.Request{
			Method:  r.Method,
			Path:    r.URL.Path,
			Headers: r.Header,
			Body:    body,
		},
	}

	modelName, _ := body["model"].(string)

	group, ok := e.store.GetGroup(modelName)
	if !ok {
		e.finishRouting(w, t, start, http.StatusNotFound, &gwerrors.ModelNotFoundError{Model: modelName})
		return
	}
	if group.Protocol != protocol {
		e.finishRouting(w, t, start, http.StatusBadRequest, &gwerrors.ProtocolMismatchError{
			Group:    group.Name,
			Expected: gwerrors.Protocol(group.Protocol),
			Got:      gwerrors.Protocol(protocol),
		})
		return
	}

	candidates := selectCandidates(group, e.store, e.health)
	t.Routing = trace.Routing{Model: modelName, Group: group.Name}
	for _, c := range candidates {
		t.Routing.Candidates = append(t.Routing.Candidates, trace.Candidate{Provider: c.provider.Name, Weight: c.weight})
		if e.metrics != nil {
			e.metrics.SetEffectiveWeight(c.provider.Name, c.weight)
		}
	}

	isStreaming := truthy(body["stream"])

	var lastErrMsg string
	for _, c := range candidates {
		attempt, handled := e.attempt(r.Context(), w, c, r.Header, body, isStreaming)
		t.Attempts = append(t.Attempts, attempt)
		if handled {
			t.FinalStatus = attempt.Status
			if attempt.Error == "" {
				t.FinalResponse = attempt.ResponseBody
			}
			t.DurationMillis = time.Since(start).Milliseconds()
			e.recorder.Record(t)
			if e.metrics != nil {
				e.metrics.ObserveRequest(group.Name, attempt.Status)
			}
			return
		}
		lastErrMsg = attempt.Error
	}

	allFailed := &gwerrors.AllUpstreamsFailedError{LastError: lastErrMsg}
	t.FinalStatus = http.StatusBadGateway
	t.FinalResponse = map[string]any{"error": "All providers failed", "last_error": lastErrMsg}
	t.DurationMillis = time.Since(start).Milliseconds()
	writeJSON(w, http.StatusBadGateway, map[string]any{"error": "All providers failed", "last_error": lastErrMsg})
	e.recorder.Record(t)
	if e.metrics != nil {
		e.metrics.ObserveRequest(group.Name, http.StatusBadGateway)
	}
	e.log.Warn("all upstreams failed", "error", allFailed, "group", group.Name)
}

func (e *Engine) finishRouting(w http.ResponseWriter, t *trace.Trace, start time.Time, status int, err error) {
	t.FinalStatus = status
	t.FinalResponse = map[string]string{"error": err.Error()}
	t.DurationMillis = time.Since(start).Milliseconds()
	writeJSON(w, status, map[string]string{"error": err.Error()})
	e.recorder.Record(t)
}

// attempt drives one upstream exchange. handled reports whether the client
// response has already been fully written — a terminal outcome for the
// whole request. When false the failover loop continues to the next
// candidate.
func (e *Engine) attempt(ctx context.Context, w http.ResponseWriter, c candidate, inboundHeaders http.Header, body map[string]any, isStreaming bool) (trace.Attempt, bool) {
	started := time.Now()
	outHeaders := outboundHeaders(inboundHeaders, c.provider)

	attempt := trace.Attempt{
		Provider:       c.provider.Name,
		Weight:         c.weight,
		IsStreaming:    isStreaming,
		RequestHeaders: outHeaders,
	}

	payload, err := json.Marshal(rewriteBody(body, c.provider))
	if err != nil {
		attempt.Error = err.Error()
		attempt.DurationMillis = time.Since(started).Milliseconds()
		return attempt, false
	}

	attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.provider.Endpoint, bytes.NewReader(payload))
	if err != nil {
		attempt.Error = err.Error()
		attempt.DurationMillis = time.Since(started).Milliseconds()
		return attempt, false
	}
	req.Header = outHeaders

	resp, err := e.clientFor(c.provider).Do(req)
	if err != nil {
		attempt.Status = 0
		attempt.Error = (&gwerrors.UpstreamTransportError{Provider: c.provider.Name, Cause: err}).Error()
		attempt.DurationMillis = time.Since(started).Milliseconds()
		e.recordFailure(c.provider.Name, 0)
		e.observeAttempt(c.provider.Name, false, started)
		return attempt, false
	}
	defer resp.Body.Close()

	attempt.ResponseHeaders = resp.Header
	attempt.Status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr, parsed := drainForDiagnostics(resp.Body)
		attempt.ResponseBody = parsed
		attempt.Error = (&gwerrors.UpstreamStatusError{Provider: c.provider.Name, StatusCode: resp.StatusCode, Body: bodyStr}).Error()
		attempt.DurationMillis = time.Since(started).Milliseconds()
		e.recordFailure(c.provider.Name, resp.StatusCode)
		e.observeAttempt(c.provider.Name, false, started)
		return attempt, false
	}

	if !isStreaming {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			attempt.Error = (&gwerrors.UpstreamStreamError{Provider: c.provider.Name, Cause: err}).Error()
			attempt.DurationMillis = time.Since(started).Milliseconds()
			return attempt, false
		}
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			decoded = string(raw)
		}
		attempt.ResponseBody = decoded
		attempt.DurationMillis = time.Since(started).Milliseconds()
		e.observeAttempt(c.provider.Name, true, started)

		copyResponseHeaders(w, resp.Header)
		w.WriteHeader(resp.StatusCode)
		w.Write(raw)
		return attempt, true
	}

	copyResponseHeaders(w, resp.Header)
	w.WriteHeader(resp.StatusCode)

	buf, streamErr := teeStream(w, resp.Body)
	attempt.DurationMillis = time.Since(started).Milliseconds()
	attempt.ResponseBody = string(buf)
	if streamErr != nil {
		attempt.Status = http.StatusInternalServerError
		attempt.Error = (&gwerrors.UpstreamStreamError{Provider: c.provider.Name, Cause: streamErr}).Error()
	}
	e.observeAttempt(c.provider.Name, attempt.Error == "", started)
	return attempt, true
}

func (e *Engine) observeAttempt(provider string, success bool, started time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveAttempt(provider, success, time.Since(started).Seconds())
	}
}

// recordFailure increments the provider's lifetime failure counter and, if
// the status is one the health tracker penalizes, records a recent-error
// event against it.
func (e *Engine) recordFailure(provider string, status int) {
	e.store.IncrementFailures(provider)
	if status == 429 || (status >= 500 && status < 600) {
		e.health.RecordError(provider, status)
	}
	if e.metrics != nil {
		e.metrics.ObserveFailure(provider)
	}
}

// clientFor returns the cached client for a provider's outbound proxy
// configuration, creating one on first use.
func (e *Engine) clientFor(p model.Provider) *http.Client {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.clients[p.ProxyURL]; ok {
		return c
	}

	transport := &http.Transport{ForceAttemptHTTP2: true}
	if p.ProxyURL != "" {
		if u, err := url.Parse(p.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		} else {
			e.log.Warn("invalid provider proxy url, using direct connection", "provider", p.Name, "error", err)
		}
	}
	client := &http.Client{Transport: transport}
	e.clients[p.ProxyURL] = client
	return client
}

func rewriteBody(body map[string]any, p model.Provider) map[string]any {
	if p.RealModel == "" {
		return body
	}
	out := make(map[string]any, len(body))
	for k, v := range body {
		out[k] = v
	}
	out["model"] = p.RealModel
	return out
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

// drainForDiagnostics reads a failed upstream response fully, per
// SPEC_FULL.md §4.1's open question: always drain to a string, then attempt
// a JSON parse for diagnostic fidelity, falling back to the raw string.
func drainForDiagnostics(r io.Reader) (string, any) {
	raw, _ := io.ReadAll(r)
	s := string(raw)
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return s, s
	}
	return s, parsed
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
