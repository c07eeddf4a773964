package metrics

import (
	"bytes"
	"strings"
	"testing"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100, 1000})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)
	h.Observe(5000)

	var buf bytes.Buffer
	writeHistogram(&buf, "test_ms", "help", h.Snapshot())
	out := buf.String()

	for _, line := range []string{
		`test_ms_bucket{le="10"} 1`,
		`test_ms_bucket{le="100"} 2`,
		`test_ms_bucket{le="1000"} 3`,
		`test_ms_bucket{le="+Inf"} 4`,
		`test_ms_count 4`,
		`test_ms_sum 5555`,
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("missing %q in output:\n%s", line, out)
		}
	}
}

func TestRenderIncludesJobCounters(t *testing.T) {
	IncJobsEnqueued()
	IncJobsCompleted()

	out := Render()
	for _, name := range []string{
		"jobs_enqueued_total",
		"jobs_claimed_total",
		"jobs_completed_total",
		"jobs_failed_total",
		"jobs_retried_total",
		"job_processing_duration_ms_bucket",
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("missing metric %s in output:\n%s", name, out)
		}
	}
}
