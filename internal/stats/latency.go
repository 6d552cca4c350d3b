// Package stats keeps rolling latency aggregates for the service's hot paths.
package stats

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	at  time.Time
	dur time.Duration
}

// Snapshot is a point-in-time aggregate of the samples in the window, in
// microseconds.
type Snapshot struct {
	Count int     `json:"count"`
	MinUs int64   `json:"min_us"`
	MaxUs int64   `json:"max_us"`
	AvgUs float64 `json:"avg_us"`
	P50Us float64 `json:"p50_us"`
	P95Us float64 `json:"p95_us"`
	P99Us float64 `json:"p99_us"`
}

// Latency tracks recent durations within a rolling window.
type Latency struct {
	mu      sync.Mutex
	samples []sample
	window  time.Duration
	now     func() time.Time
}

func NewLatency(window time.Duration) *Latency {
	if window <= 0 {
		window = time.Hour
	}
	return &Latency{
		samples: make([]sample, 0, 256),
		window:  window,
		now:     time.Now,
	}
}

func (l *Latency) Record(d time.Duration) {
	if d < 0 {
		d = 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)
	l.samples = append(l.samples, sample{at: now, dur: d})
}

// Since records the time elapsed since start.
func (l *Latency) Since(start time.Time) {
	l.Record(l.now().Sub(start))
}

func (l *Latency) Snapshot() Snapshot {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)
	if len(l.samples) == 0 {
		return Snapshot{}
	}

	values := make([]int64, 0, len(l.samples))
	var sum int64
	for _, s := range l.samples {
		us := s.dur.Microseconds()
		values = append(values, us)
		sum += us
	}
	slices.Sort(values)

	return Snapshot{
		Count: len(values),
		MinUs: values[0],
		MaxUs: values[len(values)-1],
		AvgUs: float64(sum) / float64(len(values)),
		P50Us: percentile(values, 50),
		P95Us: percentile(values, 95),
		P99Us: percentile(values, 99),
	}
}

func (l *Latency) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.window)
	l.samples = slices.DeleteFunc(l.samples, func(s sample) bool {
		return s.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the two closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}

	index := float64(len(sorted)-1) * pct / 100.0
	lower := int(index)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := index - float64(lower)
	lo := float64(sorted[lower])
	hi := float64(sorted[lower+1])
	return lo + (hi-lo)*weight
}
