package telemetry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry is a minimal, labeled, name-prefix-addressable metric
// surface: counters, gauges, and histograms, each renderable as
// line-oriented text. There is no export protocol here — Render just
// produces lines a caller can print, log, or scrape over an HTTP
// handler of their own.
type Registry struct {
	mu         sync.Mutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

// Counter returns the named Counter, creating it on first use.
func (r *Registry) Counter(name string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.counters[name]
	if !ok {
		c = &Counter{name: name}
		r.counters[name] = c
	}
	return c
}

// Gauge returns the named Gauge, creating it on first use.
func (r *Registry) Gauge(name string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.gauges[name]
	if !ok {
		g = &Gauge{name: name}
		r.gauges[name] = g
	}
	return g
}

// Histogram returns the named Histogram, creating it on first use.
func (r *Registry) Histogram(name string) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.histograms[name]
	if !ok {
		h = newHistogram(name)
		r.histograms[name] = h
	}
	return h
}

// Names returns every registered metric name (across all three kinds),
// sorted, optionally filtered to those with the given prefix.
func (r *Registry) Names(prefix string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	for n := range r.counters {
		names = append(names, n)
	}
	for n := range r.gauges {
		names = append(names, n)
	}
	for n := range r.histograms {
		names = append(names, n)
	}
	sort.Strings(names)
	if prefix == "" {
		return names
	}
	filtered := names[:0]
	for _, n := range names {
		if strings.HasPrefix(n, prefix) {
			filtered = append(filtered, n)
		}
	}
	return filtered
}

// Render writes every registered metric as one line per series, sorted
// by name: "name{labels} value". Gauges and counters render their
// current value; histograms render count, sum, min, max and mean
// lines.
func (r *Registry) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	names := make([]string, 0, len(r.counters)+len(r.gauges)+len(r.histograms))
	for n := range r.counters {
		names = append(names, "c:"+n)
	}
	for n := range r.gauges {
		names = append(names, "g:"+n)
	}
	for n := range r.histograms {
		names = append(names, "h:"+n)
	}
	sort.Strings(names)

	for _, key := range names {
		kind, name := key[:1], key[2:]
		switch kind {
		case "c":
			fmt.Fprintf(&b, "%s %s\n", r.counters[name].render(), "")
		case "g":
			fmt.Fprintf(&b, "%s %s\n", r.gauges[name].render(), "")
		case "h":
			b.WriteString(r.histograms[name].render())
		}
	}
	return b.String()
}

// Counter only ever increases.
type Counter struct {
	mu     sync.Mutex
	name   string
	value  float64
	labels map[string]string
}

// Inc adds delta (which must be >= 0) to the counter.
func (c *Counter) Inc(delta float64) {
	if delta < 0 {
		return
	}
	c.mu.Lock()
	c.value += delta
	c.mu.Unlock()
}

// Value returns the counter's current total.
func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// WithLabels attaches a label set rendered alongside the metric name.
// Returns the same Counter for chaining at the call site.
func (c *Counter) WithLabels(labels map[string]string) *Counter {
	c.mu.Lock()
	c.labels = labels
	c.mu.Unlock()
	return c
}

func (c *Counter) render() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("%s%s %s", c.name, renderLabels(c.labels), formatFloat(c.value))
}

// Gauge can move in either direction.
type Gauge struct {
	mu     sync.Mutex
	name   string
	value  float64
	labels map[string]string
}

// Set replaces the gauge's current value.
func (g *Gauge) Set(value float64) {
	g.mu.Lock()
	g.value = value
	g.mu.Unlock()
}

// Add adjusts the gauge's current value by delta (may be negative).
func (g *Gauge) Add(delta float64) {
	g.mu.Lock()
	g.value += delta
	g.mu.Unlock()
}

// Value returns the gauge's current value.
func (g *Gauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

func (g *Gauge) render() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("%s%s %s", g.name, renderLabels(g.labels), formatFloat(g.value))
}

// Histogram accumulates observations and reports count, sum, and a
// running min/max; it does not bucket, trading quantile precision for
// simplicity appropriate to a process-local text surface.
type Histogram struct {
	mu    sync.Mutex
	name  string
	count int64
	sum   float64
	min   float64
	max   float64
}

func newHistogram(name string) *Histogram {
	return &Histogram{name: name}
}

// Observe records one sample.
func (h *Histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 || value < h.min {
		h.min = value
	}
	if h.count == 0 || value > h.max {
		h.max = value
	}
	h.count++
	h.sum += value
}

// Snapshot returns the histogram's current count/sum/min/max/mean.
func (h *Histogram) Snapshot() (count int64, sum, min, max, mean float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	mean = 0
	if h.count > 0 {
		mean = h.sum / float64(h.count)
	}
	return h.count, h.sum, h.min, h.max, mean
}

func (h *Histogram) render() string {
	count, sum, min, max, mean := h.Snapshot()
	return fmt.Sprintf(
		"%s_count %d\n%s_sum %s\n%s_min %s\n%s_max %s\n%s_mean %s\n",
		h.name, count,
		h.name, formatFloat(sum),
		h.name, formatFloat(min),
		h.name, formatFloat(max),
		h.name, formatFloat(mean),
	)
}

func renderLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func formatFloat(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", f), "0"), ".")
}
