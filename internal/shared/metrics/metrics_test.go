package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHistogramRendersCumulativeBuckets(t *testing.T) {
	h := newHistogram([]float64{10, 100, 1000})
	h.Observe(5)
	h.Observe(50)
	h.Observe(5000)
	h.Observe(2.5)

	var b strings.Builder
	h.render(&b, "parse_ms", "Parse time")
	out := b.String()

	for _, line := range []string{
		`parse_ms_bucket{le="10"} 2`,
		`parse_ms_bucket{le="100"} 3`,
		`parse_ms_bucket{le="1000"} 3`,
		`parse_ms_bucket{le="+Inf"} 4`,
		`parse_ms_sum 5057.5`,
		`parse_ms_count 4`,
		`# TYPE parse_ms histogram`,
	} {
		if !strings.Contains(out, line+"\n") {
			t.Fatalf("missing %q in:\n%s", line, out)
		}
	}
}

func TestHandlerServesCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	before := jobsDropped.v.Load()
	IncAnalysisStarted()
	IncJobsDropped()
	ObserveUpload(2048)
	ObserveAnalysisDurationMs(-3)

	router := gin.New()
	router.GET("/metrics", Handler())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if resp.Code != http.StatusOK || !strings.HasPrefix(resp.Header().Get("Content-Type"), "text/plain; version=0.0.4") {
		t.Fatalf("unexpected response %d %q", resp.Code, resp.Header().Get("Content-Type"))
	}
	out := resp.Body.String()
	for _, name := range []string{"# TYPE analysis_started_total counter", "upload_bytes_total", `analysis_duration_ms_bucket{le="10"}`} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
	if jobsDropped.v.Load() != before+1 {
		t.Fatalf("expected dropped counter to advance")
	}
	if strings.Count(out, "# TYPE") != len(registry)+1 {
		t.Fatalf("expected one TYPE line per metric, got:\n%s", out)
	}
}

func TestRenderLocalQueueBacklog(t *testing.T) {
	if strings.Contains(Render(), "analysis_local_queue_pending") {
		t.Fatalf("gauge rendered without a source")
	}

	pending := 3
	SetLocalQueueBacklog(func() int { return pending })
	t.Cleanup(func() { SetLocalQueueBacklog(nil) })

	out := Render()
	for _, line := range []string{"# TYPE analysis_local_queue_pending gauge", "analysis_local_queue_pending 3"} {
		if !strings.Contains(out, line+"\n") {
			t.Fatalf("missing %q in:\n%s", line, out)
		}
	}
	pending = 12
	if !strings.Contains(Render(), "analysis_local_queue_pending 12\n") {
		t.Fatalf("gauge should read the current backlog")
	}
}
