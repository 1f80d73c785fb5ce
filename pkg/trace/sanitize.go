package trace

import "io"

// Sentinel replaces any live stream or socket handle found while sanitizing
// a captured body before it is serialized into a trace line.
const Sentinel = "[Stream/Socket Data]"

// Sanitize walks v (as produced by json.Unmarshal into interface{}: maps,
// slices, strings, numbers, bools, nil) and replaces any value that exposes
// a pipe capability — io.Reader, io.Writer, or io.Closer — with Sentinel.
// Ordinary decoded JSON never contains such values; this guards against
// a caller accidentally passing a live body reader or connection through
// the same recursive walk that sanitizes captured request/response bodies.
func Sanitize(v any) any {
	if isStreamHandle(v) {
		return Sentinel
	}
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Sanitize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Sanitize(val)
		}
		return out
	default:
		return v
	}
}

func isStreamHandle(v any) bool {
	if v == nil {
		return false
	}
	switch v.(type) {
	case string, bool, float64, int, int64, nil:
		return false
	}
	switch v.(type) {
	case io.Reader, io.Writer, io.Closer:
		return true
	}
	return false
}
