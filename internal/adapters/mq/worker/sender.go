package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultSendTimeout = 5 * time.Second

// ErrUnexpectedStatus is returned for non-2xx collector responses.
var ErrUnexpectedStatus = errors.New("unexpected collector status")

// Sender delivers one envelope body.
type Sender interface {
	Send(ctx context.Context, e Envelope) error
}

// HTTPSender POSTs envelope bodies as JSON to a fixed collector URL.
// There is no authentication and no retry.
type HTTPSender struct {
	url    string
	client *http.Client
}

// NewHTTPSender returns a sender for url. A non-positive timeout uses the default.
func NewHTTPSender(url string, timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &HTTPSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Send posts e.Body.
func (s *HTTPSender) Send(ctx context.Context, e Envelope) error { //nolint:gocritic // hugeParam: Envelope is passed by value for channel semantics
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(e.Body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", e.Kind, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

// CloseIdleConnections releases pooled keep-alive connections.
func (s *HTTPSender) CloseIdleConnections() {
	s.client.CloseIdleConnections()
}
