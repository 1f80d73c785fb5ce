package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesObservedMetrics(t *testing.T) {
	m := New()
	m.ObserveRequest("gpt", 200)
	m.ObserveAttempt("pA", true, 0.05)
	m.ObserveFailure("pB")
	m.SetEffectiveWeight("pA", 1000)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin/api/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		"gateway_requests_total",
		"gateway_upstream_attempts_total",
		"gateway_provider_failures_total",
		"gateway_provider_effective_weight",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
