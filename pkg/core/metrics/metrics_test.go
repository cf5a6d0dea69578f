package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveQuery(t *testing.T) {
	before := testutil.ToFloat64(queriesTotal.WithLabelValues("success"))

	ObserveQuery("success", 15*time.Millisecond)
	ObserveQuery("success", 0)

	after := testutil.ToFloat64(queriesTotal.WithLabelValues("success"))
	if after-before != 2 {
		t.Errorf("queries_total delta = %v, want 2", after-before)
	}
}

func TestIncConnectAttempt(t *testing.T) {
	okBefore := testutil.ToFloat64(connectAttemptsTotal.WithLabelValues("success"))
	failBefore := testutil.ToFloat64(connectAttemptsTotal.WithLabelValues("failure"))

	IncConnectAttempt(true)
	IncConnectAttempt(false)
	IncConnectAttempt(false)

	if d := testutil.ToFloat64(connectAttemptsTotal.WithLabelValues("success")) - okBefore; d != 1 {
		t.Errorf("success delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(connectAttemptsTotal.WithLabelValues("failure")) - failBefore; d != 2 {
		t.Errorf("failure delta = %v, want 2", d)
	}
}

func TestAddStreamedRows_IgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(streamedRowsTotal)

	AddStreamedRows(0)
	AddStreamedRows(-3)
	AddStreamedRows(5)

	if d := testutil.ToFloat64(streamedRowsTotal) - before; d != 5 {
		t.Errorf("streamed rows delta = %v, want 5", d)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	IncListenerOutcome("stopped")
	ObserveTranslation("openai", time.Second)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, name := range []string{"equery_listener_outcomes_total", "equery_translation_duration_seconds"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestStart_ServesAndCloses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s, err := Start(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()

	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	cancel()
}

func TestHandler_ServesExtraRoutes(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("ok")) })
	srv := httptest.NewServer(Handler(Route{Pattern: "GET /healthz", Handler: ok}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}
