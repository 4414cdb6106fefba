// Package compare scores a sung performance against a reference.
package compare

import (
	"math"
	"sort"

	"github.com/himanishpuri/KaraokeScore/pkg/models"
)

const (
	// PitchToleranceSemitones is the pitch gap that is not penalized.
	PitchToleranceSemitones = 1.0

	// OctaveSemitones is the gap at which the pitch component reaches zero.
	OctaveSemitones = 12.0

	// ConfidenceTolerance is the detector-confidence gap that is not penalized.
	ConfidenceTolerance = 0.1
)

// CompareOnePitch scores a single candidate observation against a reference one, in [0,1].
// Either side being unvoiced (pitch 0) scores 0.
func CompareOnePitch(ref, cand models.PitchObservation) float64 {
	if ref.AveragePitch == 0 || cand.AveragePitch == 0 {
		return 0
	}

	pitchDiff := math.Abs(ref.AveragePitch - cand.AveragePitch)
	normalizedDiff := math.Max(0, pitchDiff-PitchToleranceSemitones)
	pitchScore := 1 - normalizedDiff/OctaveSemitones

	confidenceDiff := math.Abs(ref.AverageConfidence - cand.AverageConfidence)
	normalizedConfDiff := math.Max(0, confidenceDiff-ConfidenceTolerance)
	confidenceScore := 1 - normalizedConfDiff

	blended := math.Max(confidenceScore, ref.AverageConfidence)

	return clamp01((pitchScore + blended) / 2)
}

// ComparePitch pairs observations by index after sorting both sequences by window start
// and returns the best pairwise score. An empty side scores 0.
func ComparePitch(refSeq, candSeq []models.PitchObservation) float64 {
	if len(refSeq) == 0 || len(candSeq) == 0 {
		return 0
	}

	ref := sortedByStart(refSeq)
	cand := sortedByStart(candSeq)

	n := min(len(ref), len(cand))
	best := 0.0
	for i := 0; i < n; i++ {
		if s := CompareOnePitch(ref[i], cand[i]); s > best {
			best = s
		}
	}
	return best
}

// sortedByStart returns a sorted copy; the caller's slice is left untouched.
func sortedByStart(seq []models.PitchObservation) []models.PitchObservation {
	out := make([]models.PitchObservation, len(seq))
	copy(out, seq)
	sort.SliceStable(out, func(i, j int) bool { return out[i].WindowStart < out[j].WindowStart })
	return out
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
