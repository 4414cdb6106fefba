package models

// PitchObservation is a time-windowed pitch estimate from the pitch-extraction service.
// AveragePitch 0 means the window is silent or unvoiced.
type PitchObservation struct {
	WindowStart       float64 `json:"window_start"`
	WindowEnd         float64 `json:"window_end"`
	AveragePitch      float64 `json:"average_pitch"`
	AverageConfidence float64 `json:"average_confidence"`
}

// AudioChunk is one fixed-duration slice of a recording. It lives for one scoring call.
type AudioChunk struct {
	Index int
	Data  []byte
}
