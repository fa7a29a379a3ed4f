// v1
// internal/httpapi/server_test.go
package httpapi

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/bus"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/harness"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/logging"
	"github.com/AgenticFactoria/AgenticFac-SupCon/internal/metrics"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	lg := logging.Discard()
	lb := bus.NewLoopback(lg)
	cfg := harness.Config{Duration: time.Minute}.WithDefaults()
	met := metrics.New()
	ctrl := harness.NewController(cfg, lb.Endpoint("harness"), harness.NewClock(cfg.Duration), nil, met, lg)
	return NewServer("127.0.0.1:0", ctrl, met, lg)
}

func TestHealth(t *testing.T) {
	srv := testServer(t)
	rr := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
	if rr.Code != 200 {
		t.Fatalf("health returned %d", rr.Code)
	}
}

func TestStatusIdleBeforeRun(t *testing.T) {
	srv := testServer(t)
	rr := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rr, httptest.NewRequest("GET", "/status", nil))
	if rr.Code != 200 {
		t.Fatalf("status returned %d", rr.Code)
	}
	var snap struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.State != "idle" {
		t.Fatalf("state = %q, want idle", snap.State)
	}
}

func TestLatestResultBeforeRun(t *testing.T) {
	srv := testServer(t)
	rr := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rr, httptest.NewRequest("GET", "/result/latest", nil))
	if rr.Code != 404 {
		t.Fatalf("result/latest returned %d, want 404", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t)
	rr := httptest.NewRecorder()
	srv.http.Handler.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	if rr.Code != 200 {
		t.Fatalf("metrics returned %d", rr.Code)
	}
}
