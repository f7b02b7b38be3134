// Package telemetry keeps in-process counters and histograms and serves
// them in the Prometheus text exposition format.
package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wellcheck/wellcheck/internal/domain/risk"
	"github.com/wellcheck/wellcheck/pkg/bilingual"
)

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// histogram keeps non-cumulative bucket counts; cumulative counts are
// computed at export time.
type histogram struct {
	boundaries   []float64
	mu           sync.Mutex
	bucketCounts []int64
	count        int64
	sum          uint64 // math.Float64bits
}

func newHistogram(boundaries []float64) *histogram {
	return &histogram{boundaries: boundaries, bucketCounts: make([]int64, len(boundaries))}
}

func (h *histogram) Observe(v float64) {
	atomic.AddInt64(&h.count, 1)
	for {
		old := atomic.LoadUint64(&h.sum)
		if atomic.CompareAndSwapUint64(&h.sum, old, math.Float64bits(math.Float64frombits(old)+v)) {
			break
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, b := range h.boundaries {
		if v <= b {
			h.bucketCounts[i]++
			return
		}
	}
}

func (h *histogram) Count() int64 { return atomic.LoadInt64(&h.count) }

func (h *histogram) Sum() float64 { return math.Float64frombits(atomic.LoadUint64(&h.sum)) }

func (h *histogram) cumulative() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]int64, len(h.bucketCounts))
	var running int64
	for i, c := range h.bucketCounts {
		running += c
		out[i] = running
	}
	return out
}

// series is a metric family keyed by its rendered label set.
type series[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	newFn func() T
}

func newSeries[T any](mk func() T) *series[T] {
	return &series[T]{items: make(map[string]T), newFn: mk}
}

func (s *series[T]) get(labels string) T {
	s.mu.RLock()
	v, ok := s.items[labels]
	s.mu.RUnlock()
	if ok {
		return v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok = s.items[labels]; !ok {
		v = s.newFn()
		s.items[labels] = v
	}
	return v
}

// sorted returns the label sets in order so output is stable.
func (s *series[T]) sorted() ([]string, map[string]T) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	cp := make(map[string]T, len(s.items))
	for k, v := range s.items {
		keys = append(keys, k)
		cp[k] = v
	}
	sort.Strings(keys)
	return keys, cp
}

func newCounter() *int64 { return new(int64) }

func labels(pairs ...string) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, fmt.Sprintf("%s=%q", pairs[i], pairs[i+1]))
	}
	return strings.Join(parts, ",")
}

// Metrics is the process metric registry.
type Metrics struct {
	active      int64
	durations   *series[*histogram]
	assessments *series[*int64]
	analyses    *series[*int64]
	jobs        *series[*int64]
}

func New() *Metrics {
	return &Metrics{
		durations:   newSeries(func() *histogram { return newHistogram(durationBuckets) }),
		assessments: newSeries(newCounter),
		analyses:    newSeries(newCounter),
		jobs:        newSeries(newCounter),
	}
}

// AssessmentStored counts a saved result.
func (m *Metrics) AssessmentStored(category string, level risk.Level) {
	atomic.AddInt64(m.assessments.get(labels("category", category, "risk_level", string(level))), 1)
}

// AnalysisFinished counts one language's analysis call by outcome.
func (m *Metrics) AnalysisFinished(loc bilingual.Locale, outcome string) {
	atomic.AddInt64(m.analyses.get(labels("language", loc.String(), "outcome", outcome)), 1)
}

// JobFinished counts a housekeeping run.
func (m *Metrics) JobFinished(name string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	atomic.AddInt64(m.jobs.get(labels("job", name, "outcome", outcome)), 1)
}

// Middleware records request durations by method, route and status.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&m.active, 1)
			start := time.Now()
			err := next(c)
			atomic.AddInt64(&m.active, -1)

			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				status = http.StatusInternalServerError
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.durations.get(labels("method", c.Request().Method, "route", route, "status_code", strconv.Itoa(status))).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry at /metrics.
func (m *Metrics) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var b strings.Builder

		b.WriteString("# HELP http_server_request_duration_seconds Duration of HTTP requests in seconds.\n")
		b.WriteString("# TYPE http_server_request_duration_seconds histogram\n")
		keys, hs := m.durations.sorted()
		for _, k := range keys {
			writeHistogram(&b, "http_server_request_duration_seconds", k, hs[k])
		}
		b.WriteByte('\n')

		b.WriteString("# HELP http_server_active_requests Number of in-flight HTTP requests.\n")
		b.WriteString("# TYPE http_server_active_requests gauge\n")
		fmt.Fprintf(&b, "http_server_active_requests %d\n\n", atomic.LoadInt64(&m.active))

		writeCounters(&b, "wellcheck_assessments_stored_total", "Assessment results saved, by category and risk level.", m.assessments)
		writeCounters(&b, "wellcheck_analysis_calls_total", "AI analysis calls, by language and outcome.", m.analyses)
		writeCounters(&b, "wellcheck_jobs_total", "Housekeeping job runs, by job and outcome.", m.jobs)

		return c.Blob(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
	}
}

func writeCounters(b *strings.Builder, name, help string, s *series[*int64]) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s counter\n", name)
	keys, cs := s.sorted()
	for _, k := range keys {
		fmt.Fprintf(b, "%s{%s} %d\n", name, k, atomic.LoadInt64(cs[k]))
	}
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, lbl string, h *histogram) {
	cum := h.cumulative()
	total := h.Count()
	for i, bound := range h.boundaries {
		fmt.Fprintf(b, "%s_bucket{%s,le=\"%g\"} %d\n", name, lbl, bound, cum[i])
	}
	fmt.Fprintf(b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, lbl, total)
	fmt.Fprintf(b, "%s_sum{%s} %g\n", name, lbl, h.Sum())
	fmt.Fprintf(b, "%s_count{%s} %d\n", name, lbl, total)
}
