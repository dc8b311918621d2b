// Package sms provides a client for dispatching text messages through an
// HTTP gateway. The gateway contract is a JSON POST; any non-2xx response is
// treated as a delivery failure.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrGatewayURLRequired is returned when the gateway URL is missing.
var ErrGatewayURLRequired = errors.New("sms gateway url is required")

// Message represents a text message payload.
type Message struct {
	// To is the destination phone number in E.164 form.
	To string `json:"to"`
	// From is an optional sender ID; fallback is the configured default.
	From string `json:"from,omitempty"`
	// Body is the message text.
	Body string `json:"body"`
}

// Client abstracts an SMS provider.
type Client interface {
	io.Closer
	// Send dispatches the given message through the underlying provider.
	Send(ctx context.Context, msg Message) error
}

// HTTPGateway is a Client backed by a JSON-over-HTTP gateway.
type HTTPGateway struct {
	url         string
	apiKey      string
	defaultFrom string
	httpClient  *http.Client
}

// HTTPGatewayConfig configures the gateway client.
type HTTPGatewayConfig struct {
	// URL is the gateway send endpoint.
	URL string
	// APIKey is sent as a bearer token.
	APIKey string
	// From is the default sender ID when Message.From is empty.
	From string
	// Timeout bounds each send; zero means 10 seconds.
	Timeout time.Duration
}

// NewHTTPGateway constructs an HTTP gateway SMS client.
func NewHTTPGateway(cfg HTTPGatewayConfig) (*HTTPGateway, error) {
	if cfg.URL == "" {
		return nil, ErrGatewayURLRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPGateway{
		url:         cfg.URL,
		apiKey:      cfg.APIKey,
		defaultFrom: cfg.From,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

// Send delivers a message through the gateway.
func (g *HTTPGateway) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = g.defaultFrom
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	return nil
}

// Close implements io.Closer for interface compatibility.
func (g *HTTPGateway) Close() error {
	g.httpClient.CloseIdleConnections()
	return nil
}
