package forwarding

import (
	"bytes"
	"io"
	"net/http"
)

// teeStream copies src to the client response writer, flushing after every
// chunk so bytes reach the client as they arrive, while simultaneously
// accumulating them into a buffer for the trace. It returns the buffered
// bytes and the first I/O error encountered, if any (io.EOF is not an
// error here — it signals a clean end of stream).
func teeStream(w http.ResponseWriter, src io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	flusher, _ := w.(http.Flusher)

	chunk := make([]byte, 32*1024)
	for {
		n, err := src.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if _, werr := w.Write(chunk[:n]); werr != nil {
				return buf.Bytes(), werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if err == io.EOF {
				return buf.Bytes(), nil
			}
			return buf.Bytes(), err
		}
	}
}
