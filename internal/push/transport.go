package push

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aryan-mod/suraksha-setu/pkg/logger"
)

// ErrSubscriptionGone marks a handle the transport reports as permanently
// invalid. The dispatcher removes such subscriptions instead of retrying.
var ErrSubscriptionGone = errors.New("push: subscription gone")

// Transport delivers a serialized payload to one subscription handle. The
// handle is opaque to this layer; its meaning belongs to the provider.
type Transport interface {
	Send(ctx context.Context, handle string, payload []byte) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, handle string, payload []byte) error

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, handle string, payload []byte) error {
	return f(ctx, handle, payload)
}

// HTTPTransport treats each subscription handle as an endpoint URL and
// POSTs the payload to it. Suitable for webhook-style push providers.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport constructs an HTTP transport with the given timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTransport{client: &http.Client{Timeout: timeout}}
}

// Send posts the payload to the handle URL.
func (t *HTTPTransport) Send(ctx context.Context, handle string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, handle, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("push: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("push: send: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push: endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// LogTransport records deliveries without sending anything. Used in demo
// mode when no provider is configured.
type LogTransport struct {
	log *zap.Logger
}

// NewLogTransport constructs a logging transport.
func NewLogTransport() *LogTransport {
	return &LogTransport{log: logger.WithModule("push.transport")}
}

// Send logs the delivery and reports success.
func (t *LogTransport) Send(_ context.Context, handle string, payload []byte) error {
	t.log.Info("push delivery (log transport)",
		zap.String("handle", handle),
		zap.Int("payload_bytes", len(payload)),
	)
	return nil
}
