// Package clients talks to the hosted analysis services and fetches reference audio.
package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/errs"
)

// DefaultTimeout tolerates a cold-starting hosted inference service.
const DefaultTimeout = 5 * time.Minute

const maxErrorBody = 512

// HTTP is the transport shared by every client in this package.
type HTTP struct{ c *http.Client }

// NewHTTP returns a transport whose calls are bounded by timeout (DefaultTimeout when <= 0).
func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{c: &http.Client{Timeout: timeout}}
}

// NewHTTPWithClient wraps an existing client, e.g. one from httptest.
func NewHTTPWithClient(c *http.Client) *HTTP { return &HTTP{c: c} }

// encodeUpload writes data into dst as multipart field "file" and returns the form's content type.
func encodeUpload(dst io.Writer, service string, data []byte, fileName string) (string, error) {
	w := multipart.NewWriter(dst)

	fw, err := w.CreateFormFile("file", filepath.Base(fileName))
	if err != nil {
		return "", fmt.Errorf("%w: %s request body: %v", errs.ErrAnalysisCall, service, err)
	}
	if _, err = fw.Write(data); err != nil {
		return "", fmt.Errorf("%w: %s request body: %v", errs.ErrAnalysisCall, service, err)
	}
	if err = w.Close(); err != nil {
		return "", fmt.Errorf("%w: %s request body: %v", errs.ErrAnalysisCall, service, err)
	}
	return w.FormDataContentType(), nil
}

// postFile uploads data as multipart field "file" and returns the 2xx response body.
func (h *HTTP) postFile(ctx context.Context, service, url string, data []byte, fileName string) ([]byte, error) {
	var b bytes.Buffer
	contentType, err := encodeUpload(&b, service, data, fileName)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &b)
	if err != nil {
		return nil, fmt.Errorf("%w: %s request: %v", errs.ErrAnalysisCall, service, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, classify(service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(service, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s: %s", errs.ErrAnalysisCall, service, resp.Status, excerpt(body))
	}
	return body, nil
}

// classify maps transport errors to ErrTimeout or ErrAnalysisCall.
func classify(service string, err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %s: %v", errs.ErrTimeout, service, err)
	}
	return fmt.Errorf("%w: %s: %v", errs.ErrAnalysisCall, service, err)
}

func excerpt(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
