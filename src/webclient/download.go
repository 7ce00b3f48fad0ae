package webclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrTooLarge is returned when a download exceeds its size limit.
var ErrTooLarge = errors.New("webclient: response too large")

// Downloader fetches small files such as uploaded attachments.
type Downloader struct {
	Client   *http.Client
	MaxBytes int64
	Attempts int
	Delay    time.Duration
}

// NewDownloader returns a downloader with a timeout-bound client.
func NewDownloader(timeout time.Duration, maxBytes int64) *Downloader {
	return &Downloader{
		Client:   NewDefault(timeout),
		MaxBytes: maxBytes,
		Attempts: 3,
		Delay:    time.Second,
	}
}

// Get downloads url, retrying transient failures. Any non-2xx final status is
// an error. Oversized bodies are not retried.
func (d *Downloader) Get(ctx context.Context, url string) ([]byte, error) {
	var tooLarge bool
	status, body, err := DoWithRetry(ctx, d.Attempts, d.Delay, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return 0, nil, err
		}
		resp, err := d.Client.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()

		reader := io.Reader(resp.Body)
		if d.MaxBytes > 0 {
			reader = io.LimitReader(resp.Body, d.MaxBytes+1)
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return resp.StatusCode, nil, err
		}
		if d.MaxBytes > 0 && int64(len(data)) > d.MaxBytes {
			tooLarge = true
			return resp.StatusCode, nil, nil
		}
		return resp.StatusCode, data, nil
	})
	if tooLarge {
		return nil, ErrTooLarge
	}
	if err != nil {
		return nil, fmt.Errorf("webclient: get: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("webclient: get: unexpected status %d", status)
	}
	return body, nil
}
