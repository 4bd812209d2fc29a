// Package extension speaks the host side of the sidecar: registration
// with the extensions API, the logs subscription, the HTTP listener that
// receives batches, and the event loop that waits for shutdown.
package extension

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/segmentio/encoding/json"
)

const (
	registerPath  = "/2020-01-01/extension/register"
	nextEventPath = "/2020-01-01/extension/event/next"
	logsPath      = "/2020-08-15/logs"

	headerName       = "Lambda-Extension-Name"
	headerIdentifier = "Lambda-Extension-Identifier"

	eventShutdown = "SHUTDOWN"
)

// Buffering controls how the host groups raw records into batches before
// delivering them. The defaults favor low latency over batch efficiency.
type Buffering struct {
	TimeoutMS int `json:"timeoutMs"`
	MaxBytes  int `json:"maxBytes"`
	MaxItems  int `json:"maxItems"`
}

// DefaultBuffering returns the registration-time thresholds: 25ms,
// 256KiB, 1000 items.
func DefaultBuffering() Buffering {
	return Buffering{TimeoutMS: 25, MaxBytes: 262144, MaxItems: 1000}
}

// Client talks to the host's extensions and logs APIs. Register must
// succeed before any other call.
type Client struct {
	http       *http.Client
	runtimeAPI string
	name       string
	id         string
}

// NewClient creates a client for the extensions API at runtimeAPI
// (host:port), registering under the given extension name.
func NewClient(runtimeAPI, name string) *Client {
	return &Client{
		// No overall timeout: event/next blocks until the host has
		// something to say.
		http:       &http.Client{},
		runtimeAPI: runtimeAPI,
		name:       name,
	}
}

// Identifier returns the identifier assigned at registration.
func (c *Client) Identifier() string {
	return c.id
}

type registerRequest struct {
	Events []string `json:"events"`
}

// Register announces the extension to the host and subscribes it to
// shutdown notifications. The returned identifier authenticates all
// later calls.
func (c *Client) Register(ctx context.Context) error {
	body, err := json.Marshal(registerRequest{Events: []string{eventShutdown}})
	if err != nil {
		return fmt.Errorf("register: encode request: %w", err)
	}

	url := fmt.Sprintf("http://%s%s", c.runtimeAPI, registerPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	req.Header.Set(headerName, c.name)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("register: unexpected status %s", resp.Status)
	}

	id := resp.Header.Get(headerIdentifier)
	if id == "" {
		return fmt.Errorf("register: response missing %s header", headerIdentifier)
	}
	c.id = id
	return nil
}

type subscribeRequest struct {
	SchemaVersion string          `json:"schemaVersion"`
	Types         []string        `json:"types"`
	Buffering     Buffering       `json:"buffering"`
	Destination   wireDestination `json:"destination"`
}

type wireDestination struct {
	Protocol string `json:"protocol"`
	URI      string `json:"URI"`
}

// SubscribeLogs subscribes to function and platform log streams,
// directing them at destinationURI with the given buffering thresholds.
// The telemetry API is deliberately left unsubscribed.
func (c *Client) SubscribeLogs(ctx context.Context, destinationURI string, buf Buffering) error {
	body, err := json.Marshal(subscribeRequest{
		SchemaVersion: "2020-08-15",
		Types:         []string{"function", "platform"},
		Buffering:     buf,
		Destination:   wireDestination{Protocol: "HTTP", URI: destinationURI},
	})
	if err != nil {
		return fmt.Errorf("subscribe logs: encode request: %w", err)
	}

	url := fmt.Sprintf("http://%s%s", c.runtimeAPI, logsPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}
	req.Header.Set(headerIdentifier, c.id)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("subscribe logs: unexpected status %s", resp.Status)
	}
	return nil
}

// HostEvent is one lifecycle notification from the host.
type HostEvent struct {
	EventType      string `json:"eventType"`
	ShutdownReason string `json:"shutdownReason,omitempty"`
	DeadlineMS     int64  `json:"deadlineMs,omitempty"`
	RequestID      string `json:"requestId,omitempty"`
}

// NextEvent blocks until the host delivers the next lifecycle event.
func (c *Client) NextEvent(ctx context.Context) (HostEvent, error) {
	url := fmt.Sprintf("http://%s%s", c.runtimeAPI, nextEventPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return HostEvent{}, fmt.Errorf("next event: %w", err)
	}
	req.Header.Set(headerIdentifier, c.id)

	resp, err := c.http.Do(req)
	if err != nil {
		return HostEvent{}, fmt.Errorf("next event: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return HostEvent{}, fmt.Errorf("next event: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return HostEvent{}, fmt.Errorf("next event: read body: %w", err)
	}
	var ev HostEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return HostEvent{}, fmt.Errorf("next event: decode body: %w", err)
	}
	return ev, nil
}

// Run polls the host's event stream until a shutdown event or a dead
// host ends the process lifetime. Invoke events need no action here; the
// log batches themselves arrive on the listener.
func (c *Client) Run(ctx context.Context) error {
	for {
		ev, err := c.NextEvent(ctx)
		if err != nil {
			return err
		}
		if ev.EventType == eventShutdown {
			slog.Info("host requested shutdown", "reason", ev.ShutdownReason,
				"deadline", time.UnixMilli(ev.DeadlineMS))
			return nil
		}
		slog.Debug("host event", "type", ev.EventType, "request_id", ev.RequestID)
	}
}
