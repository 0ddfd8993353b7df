// Package metrics persists observed transcription throughput and turns it
// into calibrated runtime estimates for queued jobs.
package metrics

import (
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"sessionscribe/internal/fileutil"
	"sessionscribe/internal/presets"
)

// DefaultAlpha is the EMA smoothing factor for throughput observations.
const DefaultAlpha = 0.2

// OverheadSeconds is the fixed per-job cost (probe, ingest, compose) added on
// top of per-segment transcription time in every runtime estimate.
const OverheadSeconds = 10

// Duration buckets. Throughput differs enough between short and long segments
// that one blended rate would mis-estimate both.
const (
	BucketShort  = "short"
	BucketMedium = "medium"
	BucketLong   = "long"
)

// Bucket maps a segment duration in seconds to its throughput bucket.
func Bucket(segmentDuration int) string {
	switch {
	case segmentDuration <= 5:
		return BucketShort
	case segmentDuration <= 15:
		return BucketMedium
	default:
		return BucketLong
	}
}

// Throughput is the persisted record for one (preset, bucket) key.
type Throughput struct {
	Samples       int       `json:"samples"`
	AvgRateEMA    float64   `json:"avg_rate_ema"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// Store holds throughput metrics in a single shared JSON file, keyed by
// preset then bucket. Reads tolerate a missing or corrupt file by starting
// fresh; writes are atomic so external pollers never see a torn file.
type Store struct {
	path string

	mu      sync.Mutex
	metrics map[string]map[string]*Throughput
}

// Open loads the metrics file, starting empty when it is absent or
// unparseable.
func Open(path string) *Store {
	s := &Store{path: path, metrics: make(map[string]map[string]*Throughput)}
	var parsed map[string]map[string]*Throughput
	if err := fileutil.ReadJSON(path, &parsed); err == nil {
		for preset, buckets := range parsed {
			s.metrics[preset] = make(map[string]*Throughput, len(buckets))
			for bucket, record := range buckets {
				if record != nil {
					s.metrics[preset][bucket] = record
				}
			}
		}
	} else if !os.IsNotExist(err) {
		// Corrupt metrics only cost estimate quality; start over.
		s.metrics = make(map[string]map[string]*Throughput)
	}
	return s
}

// Record folds an observed rate (segments per second) into the EMA for the
// preset and segment-duration bucket, then persists the store. The first
// observation seeds the EMA directly.
func (s *Store) Record(preset string, segmentDuration int, observedRate float64) error {
	if observedRate <= 0 {
		return fmt.Errorf("observed rate must be positive, got %g", observedRate)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := Bucket(segmentDuration)
	buckets, ok := s.metrics[preset]
	if !ok {
		buckets = make(map[string]*Throughput)
		s.metrics[preset] = buckets
	}
	record, ok := buckets[bucket]
	if !ok {
		record = &Throughput{}
		buckets[bucket] = record
	}

	if record.Samples == 0 {
		record.AvgRateEMA = observedRate
	} else {
		record.AvgRateEMA = DefaultAlpha*observedRate + (1-DefaultAlpha)*record.AvgRateEMA
	}
	record.Samples++
	record.LastUpdatedAt = time.Now().UTC()

	if err := fileutil.WriteJSONAtomic(s.path, s.metrics); err != nil {
		return fmt.Errorf("persist metrics: %w", err)
	}
	return nil
}

// Lookup returns the throughput record for a preset and segment duration, or
// nil when no observation exists yet.
func (s *Store) Lookup(preset string, segmentDuration int) *Throughput {
	s.mu.Lock()
	defer s.mu.Unlock()

	buckets, ok := s.metrics[preset]
	if !ok {
		return nil
	}
	record, ok := buckets[Bucket(segmentDuration)]
	if !ok {
		return nil
	}
	copied := *record
	return &copied
}

// ObservedRate converts a completed-segment count and elapsed time into a
// rate, returning false when the inputs cannot yield one.
func ObservedRate(done int, elapsedSec float64) (float64, bool) {
	if done < 1 || elapsedSec <= 0 {
		return 0, false
	}
	return float64(done) / elapsedSec, true
}

// EstimateRuntime predicts total processing seconds for a job. With a
// calibrated rate the estimate is overhead + segments/rate; without one it
// falls back to a per-segment heuristic for the preset.
func (s *Store) EstimateRuntime(segments int, preset string, segmentDuration int) int {
	if record := s.Lookup(preset, segmentDuration); record != nil && record.AvgRateEMA > 0 {
		return OverheadSeconds + int(math.Ceil(float64(segments)/record.AvgRateEMA))
	}
	return OverheadSeconds + segments*heuristicSecondsPerSegment(preset)
}

func heuristicSecondsPerSegment(preset string) int {
	if preset == "quality" {
		return presets.QualitySecondsPerSegment
	}
	return presets.FastSecondsPerSegment
}
