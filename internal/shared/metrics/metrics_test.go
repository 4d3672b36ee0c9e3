package metrics

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistogramRendersCumulativeBuckets(t *testing.T) {
	h := newHistogram("test_duration_ms", "test", []float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)
	h.Observe(-1)

	var buf bytes.Buffer
	h.write(&buf)
	out := buf.String()

	assert.Contains(t, out, `test_duration_ms_bucket{le="10"} 2`)
	assert.Contains(t, out, `test_duration_ms_bucket{le="100"} 3`)
	assert.Contains(t, out, `test_duration_ms_bucket{le="+Inf"} 4`)
	assert.Contains(t, out, "test_duration_ms_sum 555\n")
	assert.Contains(t, out, "test_duration_ms_count 4\n")
}

func TestSectionParsesLabelledBySectionAndOutcome(t *testing.T) {
	before := sectionParses.Value("skills", "failed")
	IncSectionParse("skills", true)
	IncSectionParse("skills", false)

	assert.Equal(t, uint64(1), sectionParses.Value("skills", "failed")-before)
	assert.Contains(t, Render(), `section_parses_total{section="skills",result="ok"}`)
}

func TestRenderIncludesEveryFamily(t *testing.T) {
	IncResumeGenerated(false)
	ObserveRequest("", 404, 1.5)
	IncPanic("/boom")

	out := Render()
	for _, want := range []string{
		"# TYPE resumes_generated_total counter",
		`resumes_generated_total{pdf="false"}`,
		`http_requests_total{route="unmatched",status="404"}`,
		`panics_total{route="/boom"}`,
		"# TYPE speech_request_duration_ms histogram",
		"# TYPE http_request_duration_ms histogram",
	} {
		assert.True(t, strings.Contains(out, want), "missing %q", want)
	}
}

func TestCounterVecKeyPadsMissingLabels(t *testing.T) {
	v := newCounterVec("x_total", "x", "a", "b")
	v.Inc("1")
	assert.Equal(t, uint64(1), v.Value("1", ""))
}
