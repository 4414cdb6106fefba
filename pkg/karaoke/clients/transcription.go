package clients

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/errs"
)

// Transcriber turns an audio chunk into text.
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, fileName string) (string, error)
}

type transcriptionResp struct {
	Transcription *string `json:"transcription"`
}

// TranscriptionClient calls the speech-to-text service.
type TranscriptionClient struct {
	http *HTTP
	url  string
}

var _ Transcriber = (*TranscriptionClient)(nil)

func NewTranscriptionClient(h *HTTP, url string) *TranscriptionClient {
	return &TranscriptionClient{http: h, url: url}
}

func (c *TranscriptionClient) Transcribe(ctx context.Context, data []byte, fileName string) (string, error) {
	body, err := c.http.postFile(ctx, "transcription", c.url, data, fileName)
	if err != nil {
		return "", err
	}

	var out transcriptionResp
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: transcription decode: %v", errs.ErrAnalysisCall, err)
	}
	if out.Transcription == nil {
		return "", fmt.Errorf("%w: transcription response has no transcription field", errs.ErrAnalysisCall)
	}
	return *out.Transcription, nil
}
