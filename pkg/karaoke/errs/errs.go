// Package errs holds the error kinds surfaced by the scoring engine.
// Callers match them with errors.Is; every layer wraps with fmt.Errorf("...: %w").
package errs

import "errors"

var (
	// ErrNotFound means the reference song id does not resolve.
	ErrNotFound = errors.New("reference song not found")

	// ErrFetch means the reference audio could not be downloaded.
	ErrFetch = errors.New("reference audio fetch failed")

	// ErrProbe means the duration probe failed.
	ErrProbe = errors.New("duration probe failed")

	// ErrSegment means the segmenting utility failed or produced unreadable output.
	ErrSegment = errors.New("segmentation failed")

	// ErrAnalysisCall means a transcription or pitch-extraction call failed.
	ErrAnalysisCall = errors.New("analysis call failed")

	// ErrTimeout means an analysis call exceeded its bound. It also matches ErrAnalysisCall.
	ErrTimeout error = timeoutError{}

	// ErrRecordingTooShort means the candidate recording is below the minimum duration.
	ErrRecordingTooShort = errors.New("recording too short")
)

type timeoutError struct{}

func (timeoutError) Error() string { return "analysis call timed out" }

func (timeoutError) Is(target error) bool { return target == ErrAnalysisCall }

func (timeoutError) Timeout() bool { return true }
