package testutil

import (
	"sync"
	"time"
)

// Metric is one call recorded by RecordingSink.
type Metric struct {
	Kind  string // "count", "gauge" or "timing"
	Name  string
	Value float64
	Tags  map[string]string
}

// RecordingSink is a statsd.Sink that keeps every call in memory for assertions.
type RecordingSink struct {
	mu      sync.Mutex
	metrics []Metric
}

func (s *RecordingSink) Count(name string, value int64, tags map[string]string) {
	s.add(Metric{Kind: "count", Name: name, Value: float64(value), Tags: tags})
}

func (s *RecordingSink) Gauge(name string, value float64, tags map[string]string) {
	s.add(Metric{Kind: "gauge", Name: name, Value: value, Tags: tags})
}

func (s *RecordingSink) Timing(name string, value time.Duration, tags map[string]string) {
	s.add(Metric{Kind: "timing", Name: name, Value: float64(value), Tags: tags})
}

func (s *RecordingSink) add(m Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, m)
}

// Metrics returns a copy of everything recorded so far.
func (s *RecordingSink) Metrics() []Metric {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Metric(nil), s.metrics...)
}

// Find returns the recorded metrics with the given name.
func (s *RecordingSink) Find(name string) []Metric {
	var out []Metric
	for _, m := range s.Metrics() {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}
