package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/errs"
	"github.com/himanishpuri/KaraokeScore/pkg/models"
)

// PitchExtractor turns an audio chunk into pitch observations.
type PitchExtractor interface {
	ExtractPitch(ctx context.Context, data []byte, fileName string) ([]models.PitchObservation, error)
}

type pitchResp struct {
	PitchData json.RawMessage `json:"pitch_data"`
}

// PitchClient calls the pitch-analysis service.
type PitchClient struct {
	http *HTTP
	url  string
}

var _ PitchExtractor = (*PitchClient)(nil)

func NewPitchClient(h *HTTP, url string) *PitchClient {
	return &PitchClient{http: h, url: url}
}

// ExtractPitch returns the service's observations in response order. A missing or
// non-array pitch_data yields an empty list, not an error.
func (c *PitchClient) ExtractPitch(ctx context.Context, data []byte, fileName string) ([]models.PitchObservation, error) {
	body, err := c.http.postFile(ctx, "pitch", c.url, data, fileName)
	if err != nil {
		return nil, err
	}

	var out pitchResp
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: pitch decode: %v", errs.ErrAnalysisCall, err)
	}
	return parsePitchData(out.PitchData), nil
}

func parsePitchData(raw json.RawMessage) []models.PitchObservation {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return []models.PitchObservation{}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []models.PitchObservation{}
	}

	obs := make([]models.PitchObservation, 0, len(items))
	for _, it := range items {
		it = bytes.TrimSpace(it)
		if len(it) == 0 || it[0] != '{' {
			continue
		}
		var o models.PitchObservation
		if err := json.Unmarshal(it, &o); err != nil {
			continue
		}
		obs = append(obs, o)
	}
	return obs
}
