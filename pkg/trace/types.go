// Package trace builds and persists the per-request trace objects described
// in SPEC_FULL.md §3 and §4.3: one JSON-object line per inbound request,
// appended to a daily log file, written off the request's hot path by an
// async worker.
package trace

import (
	"net/http"
	"time"
)

// Candidate is one provider considered during routing, with its computed
// effective weight at selection time.
type Candidate struct {
	Provider string  `json:"provider"`
	Weight   float64 `json:"weight"`
}

// Routing captures the outcome of candidate selection for one request.
type Routing struct {
	Model      string      `json:"model"`
	Group      string      `json:"group,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Attempt records one upstream HTTP exchange inside a single inbound request.
type Attempt struct {
	Provider        string      `json:"provider"`
	Weight          float64     `json:"weight"`
	IsStreaming     bool        `json:"isStreaming"`
	RequestHeaders  http.Header `json:"requestHeaders,omitempty"`
	ResponseHeaders http.Header `json:"responseHeaders,omitempty"`
	Status          int         `json:"status"`
	ResponseBody    any         `json:"responseBody,omitempty"`
	Error           string      `json:"error,omitempty"`
	DurationMillis  int64       `json:"durationMs"`
}

// Request captures the client-facing side of one inbound request.
type Request struct {
	Method  string         `json:"method"`
	Path    string         `json:"path"`
	Headers http.Header    `json:"headers,omitempty"`
	Body    map[string]any `json:"body,omitempty"`
}

// Trace is the immutable, per-request record appended to the daily log.
type Trace struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"startedAt"`
	KeyName         string    `json:"keyName,omitempty"`
	Request         Request   `json:"request"`
	Routing         Routing   `json:"routing"`
	Attempts        []Attempt `json:"attempts"`
	FinalStatus     int       `json:"status"`
	FinalResponse   any       `json:"finalResponse,omitempty"`
	DurationMillis  int64     `json:"durationMs"`
}
