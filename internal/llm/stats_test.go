package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStatsSnapshotPercentiles(t *testing.T) {
	stats := NewStats(time.Hour)
	for _, ms := range []int{100, 200, 300, 400, 500} {
		stats.Observe(time.Duration(ms)*time.Millisecond, nil)
	}

	snap := stats.Snapshot()
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 {
		t.Fatalf("expected min=100 max=500, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewStats(time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stats.now = func() time.Time { return now }

	stats.Observe(100*time.Millisecond, nil)
	now = now.Add(2 * time.Minute)

	if snap := stats.Snapshot(); snap.Count != 0 {
		t.Fatalf("expected count=0 after prune, got %d", snap.Count)
	}

	stats.Observe(200*time.Millisecond, errors.New("boom"))
	snap := stats.Snapshot()
	if snap.Count != 1 || snap.Errors != 1 {
		t.Fatalf("expected one failed sample, got count=%d errors=%d", snap.Count, snap.Errors)
	}
	if snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected min=max=200, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}

func TestStatsClampsNegativeDuration(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.Observe(-10*time.Millisecond, nil)
	snap := stats.Snapshot()
	if snap.Count != 1 || snap.MinMs != 0 {
		t.Fatalf("expected one clamped sample, got %+v", snap)
	}
}

type fixedClient struct {
	text string
	err  error
}

func (f fixedClient) Generate(context.Context, string) (Response, error) {
	return Response{Text: f.text}, f.err
}

func (f fixedClient) Model() string { return "fixed" }

func TestTimedRecordsCalls(t *testing.T) {
	stats := NewStats(time.Hour)
	c := WithStats(fixedClient{text: "ok"}, stats)

	resp, err := c.Generate(context.Background(), "hi")
	if err != nil || resp.Text != "ok" {
		t.Fatalf("unexpected result %q, %v", resp.Text, err)
	}
	if c.Model() != "fixed" {
		t.Errorf("expected wrapped model name, got %q", c.Model())
	}

	failing := WithStats(fixedClient{err: errors.New("down")}, stats)
	if _, err := failing.Generate(context.Background(), "hi"); err == nil {
		t.Fatal("expected error to pass through")
	}

	snap := stats.Snapshot()
	if snap.Count != 2 || snap.Errors != 1 {
		t.Fatalf("expected 2 calls with 1 error, got %+v", snap)
	}
}
