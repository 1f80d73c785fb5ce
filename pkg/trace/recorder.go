package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// slowWriteThreshold is the append latency above which Recorder logs a
// warning (SPEC_FULL.md §4.3).
const slowWriteThreshold = 50 * time.Millisecond

// Recorder owns the daily trace log file and serializes appends to it from
// a single worker goroutine, so Record never blocks the caller on disk I/O
// and a slow write never delays client delivery of bytes.
type Recorder struct {
	logDir string
	log    *slog.Logger

	recordCh chan *Trace
	done     chan struct{}
	wg       sync.WaitGroup

	mu          sync.Mutex
	currentDate string
	file        *os.File
	writer      *bufio.Writer
}

// NewRecorder starts the background worker that owns logDir's daily files.
func NewRecorder(logDir string, log *slog.Logger) (*Recorder, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	r := &Recorder{
		logDir:   logDir,
		log:      log,
		recordCh: make(chan *Trace, 256),
		done:     make(chan struct{}),
	}

	r.wg.Add(1)
	go r.worker()
	return r, nil
}

// Record enqueues t for append. It never blocks on disk I/O; if the channel
// buffer is full the caller still only waits on channel backpressure, not
// on the file write itself.
func (r *Recorder) Record(t *Trace) {
	select {
	case r.recordCh <- t:
	case <-r.done:
		r.log.Warn("dropping trace: recorder closed", "trace_id", t.ID)
	}
}

// Close drains any pending traces and closes the current log file.
func (r *Recorder) Close() error {
	close(r.done)
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer != nil {
		r.writer.Flush()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case t := <-r.recordCh:
			r.write(t)
		case <-r.done:
			for {
				select {
				case t := <-r.recordCh:
					r.write(t)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(t *Trace) {
	start := time.Now()

	line, err := json.Marshal(sanitizeTrace(t))
	if err != nil {
		r.log.Error("failed to marshal trace, dropping", "error", err, "trace_id", t.ID)
		return
	}

	w, err := r.writerFor(time.Now().UTC())
	if err != nil {
		r.log.Error("failed to open daily log file, dropping trace", "error", err, "trace_id", t.ID)
		return
	}

	if _, err := w.Write(append(line, '\n')); err != nil {
		r.log.Error("failed to append trace, dropping", "error", err, "trace_id", t.ID)
		return
	}
	if err := w.Flush(); err != nil {
		r.log.Error("failed to flush trace append", "error", err, "trace_id", t.ID)
		return
	}

	if d := time.Since(start); d > slowWriteThreshold {
		r.log.Warn("slow trace append", "duration_ms", d.Milliseconds(), "trace_id", t.ID)
	}
}

// writerFor returns the buffered writer for the log file matching day,
// opening (and rotating to) a new file when the UTC date changes.
func (r *Recorder) writerFor(day time.Time) (*bufio.Writer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	date := day.Format("2006-01-02")
	if date == r.currentDate && r.writer != nil {
		return r.writer, nil
	}

	if r.writer != nil {
		r.writer.Flush()
	}
	if r.file != nil {
		r.file.Close()
	}

	path := filepath.Join(r.logDir, date+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	r.file = f
	r.writer = bufio.NewWriter(f)
	r.currentDate = date
	return r.writer, nil
}

func sanitizeTrace(t *Trace) *Trace {
	if t.Request.Body != nil {
		if m, ok := Sanitize(anyMap(t.Request.Body)).(map[string]any); ok {
			t.Request.Body = m
		}
	}
	t.FinalResponse = Sanitize(t.FinalResponse)
	for i := range t.Attempts {
		t.Attempts[i].ResponseBody = Sanitize(t.Attempts[i].ResponseBody)
	}
	return t
}

func anyMap(m map[string]any) any {
	return m
}
