package admin

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

func decodeLogLine(line []byte) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal(line, &m); err != nil {
		return nil, false
	}
	return m, true
}

const defaultLogLimit = 50

func (s *Surface) todayLogPath() string {
	return filepath.Join(s.logDir, time.Now().UTC().Format("2006-01-02")+".log")
}

// queryLogs implements the filter/pagination contract from SPEC_FULL.md
// §4.4: reads today's log file fully, parses each line as JSON (skipping
// malformed lines), optionally drops non-error entries, optionally filters
// by a case-insensitive keyword, then paginates from newest toward oldest.
// refresh=true instead returns the newest `limit` entries, newest first.
func (s *Surface) queryLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	keyword := strings.ToLower(strings.TrimSpace(q.Get("keyword")))
	errorOnly := q.Get("errorOnly") == "true"
	refresh := q.Get("refresh") == "true"
	offset := parseIntDefault(q.Get("offset"), 0)
	limit := parseIntDefault(q.Get("limit"), defaultLogLimit)
	if refresh {
		offset = 0
	}

	entries, total, err := s.readTodayLogs()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// newest first
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	filtered := entries[:0:0]
	for _, e := range entries {
		if errorOnly && e.status >= 200 && e.status < 300 {
			continue
		}
		if keyword != "" && !matchesKeyword(e, keyword) {
			continue
		}
		filtered = append(filtered, e)
	}

	startIndex := offset
	if startIndex > len(filtered) {
		startIndex = len(filtered)
	}
	endIndex := startIndex + limit
	if endIndex > len(filtered) {
		endIndex = len(filtered)
	}
	page := filtered[startIndex:endIndex]

	logs := make([]any, 0, len(page))
	for _, e := range page {
		logs = append(logs, e.raw)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logs":     logs,
		"hasMore":  startIndex > 0,
		"total":    total,
		"loaded":   len(logs),
		"filtered": len(filtered),
	})
}

type logEntry struct {
	raw    map[string]any
	status int
}

func (s *Surface) readTodayLogs() ([]logEntry, int, error) {
	f, err := os.Open(s.todayLogPath())
	if os.IsNotExist(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open today's log: %w", err)
	}
	defer f.Close()

	var entries []logEntry
	total := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		total++
		raw, ok := decodeLogLine(line)
		if !ok {
			continue
		}
		status, _ := raw["status"].(float64)
		entries = append(entries, logEntry{raw: raw, status: int(status)})
	}
	return entries, total, scanner.Err()
}

func matchesKeyword(e logEntry, keyword string) bool {
	candidates := []string{
		stringField(e.raw, "keyName"),
		stringField(e.raw, "status"),
		strconv.Itoa(e.status),
	}
	if req, ok := e.raw["request"].(map[string]any); ok {
		candidates = append(candidates, stringField(req, "path"))
		if body, ok := req["body"].(map[string]any); ok {
			candidates = append(candidates, stringField(body, "model"))
		}
	}
	if routing, ok := e.raw["routing"].(map[string]any); ok {
		candidates = append(candidates, stringField(routing, "model"), stringField(routing, "group"))
	}
	if attempts, ok := e.raw["attempts"].([]any); ok {
		for _, a := range attempts {
			am, ok := a.(map[string]any)
			if !ok {
				continue
			}
			candidates = append(candidates, stringField(am, "provider"), stringField(am, "error"))
			candidates = append(candidates, flattenToText(am["responseBody"]))
		}
	}
	candidates = append(candidates, flattenToText(e.raw["finalResponse"]))

	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c), keyword) {
			return true
		}
	}
	return false
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// flattenToText recursively walks a decoded JSON value (object, array,
// string, number, bool, or nil) and joins every scalar it contains into one
// space-separated string, so keyword search can match text buried inside a
// response body or error payload regardless of its shape.
func flattenToText(v any) string {
	var b strings.Builder
	flattenInto(&b, v)
	return b.String()
}

func flattenInto(b *strings.Builder, v any) {
	switch x := v.(type) {
	case string:
		b.WriteString(x)
		b.WriteByte(' ')
	case float64:
		b.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
		b.WriteByte(' ')
	case bool:
		b.WriteString(strconv.FormatBool(x))
		b.WriteByte(' ')
	case map[string]any:
		for _, nested := range x {
			flattenInto(b, nested)
		}
	case []any:
		for _, nested := range x {
			flattenInto(b, nested)
		}
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// clearLogs deletes today's log file, or every *.log file in the log
// directory, depending on the "scope" query parameter ("today" or "all").
func (s *Surface) clearLogs(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	switch scope {
	case "all":
		entries, err := os.ReadDir(s.logDir)
		if err != nil && !os.IsNotExist(err) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".log") {
				if err := os.Remove(filepath.Join(s.logDir, entry.Name())); err != nil {
					s.log.Warn("failed to remove log file", "error", err, "file", entry.Name())
				}
			}
		}
	default:
		if err := os.Remove(s.todayLogPath()); err != nil && !os.IsNotExist(err) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
