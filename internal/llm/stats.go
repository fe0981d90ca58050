package llm

import (
	"context"
	"slices"
	"sync"
	"time"
)

type sample struct {
	at       time.Time
	duration time.Duration
	failed   bool
}

// StatsSnapshot aggregates the latency samples inside the window.
type StatsSnapshot struct {
	Count  int     `json:"count"`
	Errors int     `json:"errors"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// Stats keeps model call latencies for a rolling window.
type Stats struct {
	mu      sync.Mutex
	samples []sample
	window  time.Duration
	now     func() time.Time
}

func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{
		samples: make([]sample, 0, 64),
		window:  window,
		now:     time.Now,
	}
}

// Observe records one call. Negative durations are clamped to zero.
func (s *Stats) Observe(d time.Duration, err error) {
	if d < 0 {
		d = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{at: now, duration: d, failed: err != nil})
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	ms := make([]int64, len(s.samples))
	var sum int64
	errs := 0
	for i, sm := range s.samples {
		ms[i] = sm.duration.Milliseconds()
		sum += ms[i]
		if sm.failed {
			errs++
		}
	}
	slices.Sort(ms)

	return StatsSnapshot{
		Count:  len(ms),
		Errors: errs,
		MinMs:  ms[0],
		MaxMs:  ms[len(ms)-1],
		AvgMs:  float64(sum) / float64(len(ms)),
		P50Ms:  percentile(ms, 50),
		P95Ms:  percentile(ms, 95),
		P99Ms:  percentile(ms, 99),
	}
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.samples = slices.DeleteFunc(s.samples, func(sm sample) bool {
		return sm.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	rank := float64(len(sorted)-1) * pct / 100
	lower := int(rank)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(rank-float64(lower))
}

// Timed wraps a Client and records the latency of every Generate call.
type Timed struct {
	Client
	Stats *Stats
}

// WithStats returns c wrapped so that its calls feed stats.
func WithStats(c Client, stats *Stats) *Timed {
	return &Timed{Client: c, Stats: stats}
}

func (t *Timed) Generate(ctx context.Context, prompt string) (Response, error) {
	start := time.Now()
	resp, err := t.Client.Generate(ctx, prompt)
	t.Stats.Observe(time.Since(start), err)
	return resp, err
}
