// Package admin implements the nine admin operations from SPEC_FULL.md
// §4.4: CRUD over providers/groups/keys, aggregate stats, health inspection
// and reset, log clearing and querying, and the upstream model-list probe.
// Every handler here is mounted behind HTTP Basic auth by the front
// controller.
package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/procsl/llm-gateway/pkg/health"
	"github.com/procsl/llm-gateway/pkg/store"
)

// probeTimeout bounds the upstream model-list probe (SPEC_FULL.md §4.4).
const probeTimeout = 10 * time.Second

// Surface wires the admin HTTP handlers to the store, health tracker, and
// trace log directory.
type Surface struct {
	store  *store.Store
	health *health.Tracker
	logDir string
	client *http.Client
	log    *slog.Logger
}

// New builds an admin Surface. logDir is the directory holding the daily
// trace log files that the log-query and log-clear operations read/delete.
func New(st *store.Store, tracker *health.Tracker, logDir string, log *slog.Logger) *Surface {
	if log == nil {
		log = slog.Default()
	}
	return &Surface{
		store:  st,
		health: tracker,
		logDir: logDir,
		client: &http.Client{Timeout: probeTimeout},
		log:    log,
	}
}

// Register mounts every admin handler onto mux. The caller is responsible
// for wrapping the returned routes in Basic-auth middleware.
func (s *Surface) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/api/providers", s.listProviders)
	mux.HandleFunc("POST /admin/api/providers", s.upsertProvider)
	mux.HandleFunc("DELETE /admin/api/providers/{name}", s.deleteProvider)
	mux.HandleFunc("GET /admin/api/providers/{name}/models", s.probeModels)

	mux.HandleFunc("GET /admin/api/groups", s.listGroups)
	mux.HandleFunc("POST /admin/api/groups", s.upsertGroup)
	mux.HandleFunc("DELETE /admin/api/groups/{name}", s.deleteGroup)

	mux.HandleFunc("GET /admin/api/keys", s.listKeys)
	mux.HandleFunc("POST /admin/api/keys", s.upsertKey)
	mux.HandleFunc("DELETE /admin/api/keys/{id}", s.deleteKey)

	mux.HandleFunc("GET /admin/api/stats", s.getStats)

	mux.HandleFunc("GET /admin/api/health", s.getHealth)
	mux.HandleFunc("POST /admin/api/health/reset", s.resetAllHealth)
	mux.HandleFunc("POST /admin/api/health/reset/{name}", s.resetOneHealth)

	mux.HandleFunc("POST /admin/api/logs/clear", s.clearLogs)
	mux.HandleFunc("GET /admin/api/logs", s.queryLogs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON[T any](r *http.Request) (T, error) {
	var v T
	err := json.NewDecoder(r.Body).Decode(&v)
	return v, err
}
