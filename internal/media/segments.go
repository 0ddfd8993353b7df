package media

import "math"

// Segment strategies. Auto scales segment length with recording duration so
// short clips keep fine granularity without exploding the segment count on
// long sessions.
const (
	StrategyAuto   = "auto"
	StrategyShort  = "short"
	StrategyMedium = "medium"
	StrategyLong   = "long"
)

// Explicit per-strategy segment lengths in seconds.
const (
	shortSegmentSeconds  = 5
	mediumSegmentSeconds = 15
	longSegmentSeconds   = 30
)

// SegmentDuration resolves a strategy to a segment length in seconds for a
// recording of the given total duration.
func SegmentDuration(strategy string, totalDurationSec float64) int {
	switch strategy {
	case StrategyShort:
		return shortSegmentSeconds
	case StrategyMedium:
		return mediumSegmentSeconds
	case StrategyLong:
		return longSegmentSeconds
	default:
		switch {
		case totalDurationSec <= 5*60:
			return shortSegmentSeconds
		case totalDurationSec <= 15*60:
			return mediumSegmentSeconds
		default:
			return longSegmentSeconds
		}
	}
}

// SegmentCount returns how many segments a recording splits into. The final
// partial segment counts as a whole one.
func SegmentCount(totalDurationSec float64, segmentDurationSec int) int {
	if totalDurationSec <= 0 || segmentDurationSec <= 0 {
		return 0
	}
	return int(math.Ceil(totalDurationSec / float64(segmentDurationSec)))
}

// PlanSegments resolves strategy and duration in one step.
func PlanSegments(strategy string, totalDurationSec float64) (segmentDuration, count int) {
	segmentDuration = SegmentDuration(strategy, totalDurationSec)
	return segmentDuration, SegmentCount(totalDurationSec, segmentDuration)
}
