// Command gateway runs the reverse-proxy LLM gateway: it accepts
// protocol-O and protocol-A inference requests, routes them to configured
// upstream providers with weighted failover, and serves the admin CRUD,
// health, and log-query surface alongside it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/procsl/llm-gateway/pkg/admin"
	"github.com/procsl/llm-gateway/pkg/auth"
	"github.com/procsl/llm-gateway/pkg/forwarding"
	"github.com/procsl/llm-gateway/pkg/health"
	"github.com/procsl/llm-gateway/pkg/metrics"
	"github.com/procsl/llm-gateway/pkg/retention"
	"github.com/procsl/llm-gateway/pkg/server"
	"github.com/procsl/llm-gateway/pkg/store"
	"github.com/procsl/llm-gateway/pkg/trace"
)

const retentionWindow = 30 * 24 * time.Hour

var flags struct {
	port      int
	host      string
	configDir string
	logDir    string
	noCORS    bool
}

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Reverse-proxy gateway for protocol-O and protocol-A inference requests",
		RunE:  runGateway,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.Flags().IntVarP(&flags.port, "port", "p", 3000, "listen port")
	cmd.Flags().StringVarP(&flags.host, "host", "h", "127.0.0.1", "listen host")
	cmd.Flags().StringVarP(&flags.configDir, "config-dir", "c", filepath.Join(cwd, "data"), "config directory")
	cmd.Flags().StringVarP(&flags.logDir, "log-dir", "l", "", "trace log directory (default: <config-dir>/logs)")
	cmd.Flags().BoolVar(&flags.noCORS, "no-cors", false, "disable permissive CORS headers")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	logDir := flags.logDir
	if logDir == "" {
		logDir = filepath.Join(flags.configDir, "logs")
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	st, err := store.Open(flags.configDir, log)
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer st.Close()

	rec, err := trace.NewRecorder(logDir, log)
	if err != nil {
		return fmt.Errorf("open trace recorder: %w", err)
	}
	defer rec.Close()

	tracker := health.New()
	m := metrics.New()
	engine := forwarding.New(st, tracker, rec, m, log)
	adminSurface := admin.New(st, tracker, logDir, log)

	pruner := retention.NewPruner(logDir, retentionWindow, log)
	scheduler, err := retention.NewScheduler(pruner)
	if err != nil {
		return fmt.Errorf("start retention scheduler: %w", err)
	}
	defer scheduler.Stop()

	cfg := server.Config{
		Addr:        fmt.Sprintf("%s:%d", flags.host, flags.port),
		CORSEnabled: !flags.noCORS,
		AdminCreds:  auth.AdminCredentials{Username: auth.DefaultAdminUser, Password: auth.DefaultAdminPassword},
	}
	srv := server.New(cfg, st, engine, adminSurface, m, log)

	log.Warn("admin surface is using built-in default credentials; replace them before exposing this gateway")

	return srv.Start(context.Background())
}
