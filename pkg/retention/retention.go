// Package retention prunes old daily trace log files on a schedule. The
// trace log's rotation is implicit in its date-stamped filename
// (SPEC_FULL.md §9 "Log file rotation"); this package is what actually
// removes files once they age out, grounded on the teacher's cron-driven
// evidence-retention pruner.
package retention

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes daily log files under logDir older than maxAge.
type Pruner struct {
	logDir string
	maxAge time.Duration
	log    *slog.Logger
	now    func() time.Time
}

// NewPruner builds a Pruner over logDir that removes *.log files whose
// date-stamped name is older than maxAge.
func NewPruner(logDir string, maxAge time.Duration, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	return &Pruner{logDir: logDir, maxAge: maxAge, log: log, now: time.Now}
}

// Prune deletes every log file whose date-stamped name is older than maxAge.
// It returns the number of files removed.
func (p *Pruner) Prune() int {
	entries, err := os.ReadDir(p.logDir)
	if err != nil {
		if !os.IsNotExist(err) {
			p.log.Warn("failed to list log dir for retention", "error", err, "dir", p.logDir)
		}
		return 0
	}

	cutoff := p.now().UTC().Add(-p.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		day, err := fileDate(entry.Name())
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			path := filepath.Join(p.logDir, entry.Name())
			if err := os.Remove(path); err != nil {
				p.log.Warn("failed to prune log file", "error", err, "file", entry.Name())
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		p.log.Info("pruned expired trace logs", "removed", removed)
	}
	return removed
}

func fileDate(name string) (time.Time, error) {
	base := strings.TrimSuffix(name, ".log")
	return time.Parse("2006-01-02", base)
}

// Scheduler runs a Pruner once a day via robfig/cron.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler starts a daily retention sweep at 03:17 server-local time —
// an off-peak minute chosen to avoid colliding with other midnight jobs.
func NewScheduler(p *Pruner) (*Scheduler, error) {
	c := cron.New()
	if _, err := c.AddFunc("17 3 * * *", func() { p.Prune() }); err != nil {
		return nil, fmt.Errorf("schedule retention job: %w", err)
	}
	c.Start()
	return &Scheduler{cron: c}, nil
}

// Stop halts the scheduler, waiting for any in-flight run to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
