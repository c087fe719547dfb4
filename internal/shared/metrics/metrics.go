package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// counter is a monotonically increasing value rendered as a Prometheus counter.
type counter struct {
	name string
	help string
	v    atomic.Uint64
}

var registry []*counter

func newCounter(name, help string) *counter {
	c := &counter{name: name, help: help}
	registry = append(registry, c)
	return c
}

var (
	analysisStarted   = newCounter("analysis_started_total", "Analyses picked up for processing")
	analysisCompleted = newCounter("analysis_completed_total", "Analyses that reached completed")
	analysisFailed    = newCounter("analysis_failed_total", "Analyses that reached failed")
	uploads           = newCounter("upload_total", "Spreadsheets accepted")
	uploadsRejected   = newCounter("upload_rejected_total", "Spreadsheets rejected before storage")
	uploadBytes       = newCounter("upload_bytes_total", "Bytes of accepted spreadsheets")
	jobsReceived      = newCounter("analysis_jobs_received_total", "Queue messages received by a worker")
	jobsCompleted     = newCounter("analysis_jobs_completed_total", "Queue messages processed and deleted")
	jobsFailed        = newCounter("analysis_jobs_failed_total", "Queue messages left for redelivery")
	jobsDropped       = newCounter("analysis_jobs_dropped_total", "Unparseable queue messages deleted")

	analysisDuration = newHistogram([]float64{10, 50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000})

	localQueueBacklog = &gauge{name: "analysis_local_queue_pending", help: "Analyses waiting for an in-process worker"}
)

// gauge reads its value from a source at render time. It is omitted while no
// source is set.
type gauge struct {
	name string
	help string
	mu   sync.Mutex
	read func() int
}

func (g *gauge) set(read func() int) {
	g.mu.Lock()
	g.read = read
	g.mu.Unlock()
}

func (g *gauge) render(b *strings.Builder) {
	g.mu.Lock()
	read := g.read
	g.mu.Unlock()
	if read == nil {
		return
	}
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n", g.name, g.help, g.name, g.name, read())
}

// SetLocalQueueBacklog reports the in-process queue backlog through read.
// A nil read removes the gauge.
func SetLocalQueueBacklog(read func() int) { localQueueBacklog.set(read) }

func IncAnalysisStarted()   { analysisStarted.v.Add(1) }
func IncAnalysisCompleted() { analysisCompleted.v.Add(1) }
func IncAnalysisFailed()    { analysisFailed.v.Add(1) }
func IncUploadRejected()    { uploadsRejected.v.Add(1) }
func IncJobsReceived()      { jobsReceived.v.Add(1) }
func IncJobsCompleted()     { jobsCompleted.v.Add(1) }
func IncJobsFailed()        { jobsFailed.v.Add(1) }

// IncJobsDropped counts messages deleted without processing.
func IncJobsDropped() { jobsDropped.v.Add(1) }

// ObserveUpload records an accepted upload of size bytes.
func ObserveUpload(size int64) {
	uploads.v.Add(1)
	if size > 0 {
		uploadBytes.v.Add(uint64(size))
	}
}

// ObserveAnalysisDurationMs records how long one analysis took.
func ObserveAnalysisDurationMs(ms float64) {
	analysisDuration.Observe(max(ms, 0))
}

// Handler serves the text exposition format on GET /metrics.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(Render()))
	}
}

// Render writes every counter, the backlog gauge and the duration histogram.
func Render() string {
	var b strings.Builder
	for _, c := range registry {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", c.name, c.help, c.name, c.name, c.v.Load())
	}
	localQueueBacklog.render(&b)
	analysisDuration.render(&b, "analysis_duration_ms", "Analysis duration in milliseconds")
	return b.String()
}

// histogram stores per-bucket counts; cumulative sums are computed on render.
type histogram struct {
	mu     sync.Mutex
	bounds []float64
	counts []uint64
	sum    float64
	total  uint64
}

func newHistogram(bounds []float64) *histogram {
	return &histogram{bounds: bounds, counts: make([]uint64, len(bounds))}
}

func (h *histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.total++
	h.sum += v
	for i, bound := range h.bounds {
		if v <= bound {
			h.counts[i]++
			return
		}
	}
}

// cumulative returns the running bucket counts, the sum and the total.
func (h *histogram) cumulative() ([]uint64, float64, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]uint64, len(h.counts))
	var running uint64
	for i, n := range h.counts {
		running += n
		out[i] = running
	}
	return out, h.sum, h.total
}

func (h *histogram) render(b *strings.Builder, name, help string) {
	counts, sum, total := h.cumulative()
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s histogram\n", name, help, name)
	for i, bound := range h.bounds {
		fmt.Fprintf(b, "%s_bucket{le=%q} %d\n", name, formatFloat(bound), counts[i])
	}
	fmt.Fprintf(b, "%s_bucket{le=\"+Inf\"} %d\n%s_sum %s\n%s_count %d\n", name, total, name, formatFloat(sum), name, total)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
