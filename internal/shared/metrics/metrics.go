package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

var durationBuckets = []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000}

var (
	transcriptions   = newCounterVec("transcriptions_total", "Audio transcription requests by outcome", "result")
	sectionParses    = newCounterVec("section_parses_total", "Section prompt calls by section and outcome", "section", "result")
	resumesGenerated = newCounterVec("resumes_generated_total", "DOCX resumes generated, by whether the PDF was produced", "pdf")
	httpRequests     = newCounterVec("http_requests_total", "HTTP requests by route and status", "route", "status")
	panics           = newCounterVec("panics_total", "Recovered handler panics by route", "route")

	speechDuration     = newHistogram("speech_request_duration_ms", "Speech pipeline call duration in milliseconds", durationBuckets)
	generationDuration = newHistogram("resume_generation_duration_ms", "Resume generation duration in milliseconds", durationBuckets)
	httpDuration       = newHistogram("http_request_duration_ms", "HTTP request duration in milliseconds", durationBuckets)
)

// IncTranscription counts an audio_to_text request; failed marks a sentinel or error result.
func IncTranscription(failed bool) {
	transcriptions.Inc(outcome(failed))
}

// IncSectionParse counts one section prompt round trip.
func IncSectionParse(section string, failed bool) {
	sectionParses.Inc(section, outcome(failed))
}

// IncResumeGenerated counts a stored DOCX; pdfReady reports whether conversion succeeded.
func IncResumeGenerated(pdfReady bool) {
	resumesGenerated.Inc(strconv.FormatBool(pdfReady))
}

// ObserveRequest records one served request. Unmatched routes are grouped.
func ObserveRequest(route string, status int, durationMs float64) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.Inc(route, strconv.Itoa(status))
	httpDuration.Observe(durationMs)
}

// IncPanic counts a recovered panic.
func IncPanic(route string) {
	if route == "" {
		route = "unmatched"
	}
	panics.Inc(route)
}

// ObserveSpeechDurationMs records a speech pipeline call duration in milliseconds.
func ObserveSpeechDurationMs(value float64) {
	speechDuration.Observe(value)
}

// ObserveGenerationDurationMs records a resume generation duration in milliseconds.
func ObserveGenerationDurationMs(value float64) {
	generationDuration.Observe(value)
}

// SinceMillis returns the milliseconds elapsed since start.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders every metric in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	for _, v := range []*counterVec{transcriptions, sectionParses, resumesGenerated, httpRequests, panics} {
		v.write(&buf)
	}
	for _, h := range []*histogram{speechDuration, generationDuration, httpDuration} {
		h.write(&buf)
	}
	return buf.String()
}

func outcome(failed bool) string {
	if failed {
		return "failed"
	}
	return "ok"
}

// counterVec is a counter family keyed by label values in declaration order.
type counterVec struct {
	name   string
	help   string
	labels []string

	mu     sync.Mutex
	values map[string]uint64
}

func newCounterVec(name, help string, labels ...string) *counterVec {
	return &counterVec{name: name, help: help, labels: labels, values: map[string]uint64{}}
}

// Inc adds one to the series for labelValues; missing values render as "".
func (v *counterVec) Inc(labelValues ...string) {
	v.mu.Lock()
	v.values[v.key(labelValues)]++
	v.mu.Unlock()
}

// Value returns the current count for labelValues.
func (v *counterVec) Value(labelValues ...string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.values[v.key(labelValues)]
}

func (v *counterVec) key(labelValues []string) string {
	parts := make([]string, len(v.labels))
	for i, label := range v.labels {
		val := ""
		if i < len(labelValues) {
			val = labelValues[i]
		}
		parts[i] = label + "=" + strconv.Quote(val)
	}
	return strings.Join(parts, ",")
}

func (v *counterVec) write(buf *bytes.Buffer) {
	v.mu.Lock()
	keys := make([]string, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	counts := make([]uint64, len(keys))
	for i, k := range keys {
		counts[i] = v.values[k]
	}
	v.mu.Unlock()

	fmt.Fprintf(buf, "# HELP %s %s\n", v.name, v.help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", v.name)
	for i, k := range keys {
		fmt.Fprintf(buf, "%s{%s} %d\n", v.name, k, counts[i])
	}
}

type histogram struct {
	name    string
	help    string
	buckets []float64

	mu     sync.Mutex
	counts []uint64
	sum    float64
	count  uint64
}

func newHistogram(name, help string, buckets []float64) *histogram {
	return &histogram{
		name:    name,
		help:    help,
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket whose bound it fits; write accumulates.
// Negative values are clamped to zero.
func (h *histogram) Observe(value float64) {
	if value < 0 {
		value = 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) write(buf *bytes.Buffer) {
	h.mu.Lock()
	counts := append([]uint64(nil), h.counts...)
	sum, count := h.sum, h.count
	h.mu.Unlock()

	fmt.Fprintf(buf, "# HELP %s %s\n", h.name, h.help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", h.name)
	var cumulative uint64
	for i, bound := range h.buckets {
		cumulative += counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", h.name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", h.name, count)
	fmt.Fprintf(buf, "%s_sum %s\n", h.name, formatFloat(sum))
	fmt.Fprintf(buf, "%s_count %d\n", h.name, count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
