package media_test

import (
	"testing"

	"sessionscribe/internal/media"
)

func TestAutoStrategyScalesSegmentLength(t *testing.T) {
	cases := []struct {
		duration     float64
		wantSegDur   int
		wantSegments int
	}{
		{90, 5, 18},
		{600, 15, 40},
		{1200, 30, 40},
	}
	for _, tc := range cases {
		segDur, count := media.PlanSegments(media.StrategyAuto, tc.duration)
		if segDur != tc.wantSegDur {
			t.Errorf("auto segment duration for %gs = %d, want %d", tc.duration, segDur, tc.wantSegDur)
		}
		if count != tc.wantSegments {
			t.Errorf("auto segment count for %gs = %d, want %d", tc.duration, count, tc.wantSegments)
		}
	}
}

func TestExplicitStrategies(t *testing.T) {
	if got := media.SegmentDuration(media.StrategyShort, 1200); got != 5 {
		t.Fatalf("short = %d, want 5", got)
	}
	if got := media.SegmentDuration(media.StrategyMedium, 1200); got != 15 {
		t.Fatalf("medium = %d, want 15", got)
	}
	if got := media.SegmentDuration(media.StrategyLong, 90); got != 30 {
		t.Fatalf("long = %d, want 30", got)
	}
}

func TestSegmentCountRoundsUp(t *testing.T) {
	if got := media.SegmentCount(91, 5); got != 19 {
		t.Fatalf("partial tail must count, got %d", got)
	}
	if got := media.SegmentCount(0, 5); got != 0 {
		t.Fatalf("zero duration yields zero segments, got %d", got)
	}
}
