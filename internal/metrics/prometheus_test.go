package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAnalysis(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordAnalysis("detect_sounds", true, 0.2)
	m.RecordAnalysis("detect_sounds", false, 0.1)
	m.RecordAnalysis("detect_sounds", true, 0.3)

	if got := testutil.ToFloat64(m.Analyses.WithLabelValues("detect_sounds", "success")); got != 2 {
		t.Fatalf("success count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Analyses.WithLabelValues("detect_sounds", "failure")); got != 1 {
		t.Fatalf("failure count = %v, want 1", got)
	}
}

func TestRecordModelLoad(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordModelLoad("vad", false)
	if got := testutil.ToFloat64(m.ModelLoaded.WithLabelValues("vad")); got != 0 {
		t.Fatalf("model_loaded after failure = %v, want 0", got)
	}
	m.RecordModelLoad("vad", true)
	if got := testutil.ToFloat64(m.ModelLoaded.WithLabelValues("vad")); got != 1 {
		t.Fatalf("model_loaded after success = %v, want 1", got)
	}
	m.RecordModelUnload("vad")
	if got := testutil.ToFloat64(m.ModelLoaded.WithLabelValues("vad")); got != 0 {
		t.Fatalf("model_loaded after unload = %v, want 0", got)
	}
}

func TestSeparateRegistries(t *testing.T) {
	// Two instances on separate registries must not panic on duplicate registration.
	a := New(prometheus.NewRegistry())
	b := New(prometheus.NewRegistry())
	a.RecordEvent("music")
	if got := testutil.ToFloat64(b.EventsDetected.WithLabelValues("music")); got != 0 {
		t.Fatalf("registries share state: %v", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordHTTPRequest("GET", "/health", "200", 0.001)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "nupi_audio_http_requests_total") {
		t.Fatalf("metrics output missing http_requests_total:\n%s", body)
	}
}
