package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/errs"
)

// AudioFetcher downloads reference audio.
type AudioFetcher interface {
	FetchAudio(ctx context.Context, audioURL string) ([]byte, error)
}

// Fetcher reads http(s) URLs over the network and file:// URLs or bare paths from disk.
type Fetcher struct {
	http *HTTP
}

var _ AudioFetcher = (*Fetcher)(nil)

func NewFetcher(h *HTTP) *Fetcher { return &Fetcher{http: h} }

func (f *Fetcher) FetchAudio(ctx context.Context, audioURL string) ([]byte, error) {
	u, err := url.Parse(audioURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid url %q: %v", errs.ErrFetch, audioURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.get(ctx, audioURL)
	case "file":
		return readLocal(u.Path)
	case "":
		return readLocal(audioURL)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", errs.ErrFetch, u.Scheme)
	}
}

func (f *Fetcher) get(ctx context.Context, audioURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrFetch, err)
	}

	resp, err := f.http.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %s: %s", errs.ErrFetch, resp.Status, string(body))
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", errs.ErrFetch, err)
	}
	return b, nil
}

func readLocal(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrFetch, err)
	}
	return b, nil
}
