package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	ObserveHTTPRequest("GET", "/v1/sites", 200, 5*time.Millisecond)
	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200"))
	if got != 1 {
		t.Errorf("expected http_requests_total{GET,200} to be 1, got %f", got)
	}
}

func TestObserveBeforeInit(t *testing.T) {
	// Must not panic when collectors are absent.
	saved := httpRequestsTotal
	httpRequestsTotal = nil
	defer func() { httpRequestsTotal = saved }()

	ObserveHTTPRequest("GET", "/healthz", 200, time.Millisecond)
}
