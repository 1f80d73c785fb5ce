// Package server provides the gateway's front controller.
//
// # Architecture
//
// The server package is the top-level orchestrator that:
//   - Wires the auth filter, forwarding engine, and admin surface onto one
//     HTTP mux
//   - Chains middleware for request ids, logging, CORS, and panic recovery
//   - Manages graceful shutdown and OS signal handling
//
// # Basic Usage
//
//	st, _ := store.Open(configDir, log)
//	tracker := health.New()
//	rec, _ := trace.NewRecorder(logDir, log)
//	engine := forwarding.New(st, tracker, rec, m, log)
//	adm := admin.New(st, tracker, logDir, log)
//
//	srv := server.New(server.Config{Addr: "127.0.0.1:3000", CORSEnabled: true}, st, engine, adm, m, log)
//	if err := srv.Start(context.Background()); err != nil {
//	    log.Error("server error", "error", err)
//	}
//
// # Graceful Shutdown
//
// Start blocks until the context is cancelled, SIGINT/SIGTERM arrives, or
// the listener fails; in every case it calls Shutdown, which drains
// in-flight requests against a bounded timeout.
//
// # Routes
//
//   - POST /v1/chat/completions — protocol-O inference, bearer auth
//   - POST /v1/messages — protocol-A inference, bearer auth
//   - GET /v1/models — lists configured groups as models
//   - /admin/api/* — CRUD, health, logs, metrics; HTTP Basic auth
//   - / — static admin UI assets
//
// # Middleware Chain
//
// Requests pass through the following middleware (innermost to outermost):
//  1. CORS: optional permissive cross-origin headers
//  2. RequestID: assigns/propagates a request id
//  3. Logging: one structured line per request
//  4. Recovery: recovers panics, responds 503 with permissive CORS headers
//
// The admin routes additionally sit behind a bounded Timeout middleware —
// the forwarding engine's routes never do, since a streamed response has no
// fixed deadline beyond the sum of its per-attempt timeouts.
package server
