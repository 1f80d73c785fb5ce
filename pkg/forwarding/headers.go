package forwarding

import (
	"net/http"
	"strings"

	"github.com/procsl/llm-gateway/pkg/model"
)

var hopByHop = map[string]bool{
	"host":              true,
	"content-length":    true,
	"connection":        true,
	"transfer-encoding": true,
}

var inboundCredentials = map[string]bool{
	"authorization":      true,
	"x-api-key":          true,
	"anthropic-version":  true,
}

var corsResponseHeaders = map[string]bool{
	"access-control-allow-origin":  true,
	"access-control-allow-methods": true,
	"access-control-allow-headers": true,
}

// outboundHeaders builds the headers sent to a provider: the inbound
// headers minus hop-by-hop and inbound-credential headers, plus the
// protocol-specific credential injection for that provider.
func outboundHeaders(inbound http.Header, p model.Provider) http.Header {
	out := make(http.Header, len(inbound)+2)
	for k, vs := range inbound {
		lk := strings.ToLower(k)
		if hopByHop[lk] || inboundCredentials[lk] {
			continue
		}
		out[k] = append([]string(nil), vs...)
	}

	out.Set("Content-Type", "application/json")
	switch p.Protocol {
	case model.ProtocolAnthropic:
		out.Set("x-api-key", p.APIKey)
		out.Set("Authorization", "Bearer "+p.APIKey)
		out.Set("anthropic-version", "2023-06-01")
	default:
		out.Set("Authorization", "Bearer "+p.APIKey)
	}
	return out
}

// copyResponseHeaders copies upstream response headers to the client,
// dropping hop-by-hop headers and the gateway's own CORS header set.
func copyResponseHeaders(dst http.ResponseWriter, src http.Header) {
	h := dst.Header()
	for k, vs := range src {
		lk := strings.ToLower(k)
		if hopByHop[lk] || corsResponseHeaders[lk] {
			continue
		}
		for _, v := range vs {
			h.Add(k, v)
		}
	}
}
