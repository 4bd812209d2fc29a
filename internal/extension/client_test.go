package extension

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHost simulates the extensions and logs APIs.
type fakeHost struct {
	t          *testing.T
	events     []HostEvent
	nextCalls  int
	subscribed subscribeRequest
}

func (h *fakeHost) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(registerPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(headerName) == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set(headerIdentifier, "ext-id-42")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc(logsPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(headerIdentifier) != "ext-id-42" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&h.subscribed); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc(nextEventPath, func(w http.ResponseWriter, r *http.Request) {
		if h.nextCalls >= len(h.events) {
			h.t.Error("event/next polled past the last event")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		ev := h.events[h.nextCalls]
		h.nextCalls++
		body, _ := json.Marshal(ev)
		w.Write(body)
	})
	return mux
}

func newTestClient(t *testing.T, host *fakeHost) *Client {
	t.Helper()
	srv := httptest.NewServer(host.handler())
	t.Cleanup(srv.Close)
	return NewClient(strings.TrimPrefix(srv.URL, "http://"), "logship")
}

func TestRegisterStoresIdentifier(t *testing.T) {
	c := newTestClient(t, &fakeHost{t: t})

	require.NoError(t, c.Register(context.Background()))
	assert.Equal(t, "ext-id-42", c.Identifier())
}

func TestSubscribeLogsSendsBufferingAndDestination(t *testing.T) {
	host := &fakeHost{t: t}
	c := newTestClient(t, host)
	require.NoError(t, c.Register(context.Background()))

	err := c.SubscribeLogs(context.Background(), "http://sandbox.localdomain:8254", DefaultBuffering())
	require.NoError(t, err)

	assert.Equal(t, "2020-08-15", host.subscribed.SchemaVersion)
	assert.Equal(t, []string{"function", "platform"}, host.subscribed.Types)
	assert.Equal(t, Buffering{TimeoutMS: 25, MaxBytes: 262144, MaxItems: 1000}, host.subscribed.Buffering)
	assert.Equal(t, "HTTP", host.subscribed.Destination.Protocol)
	assert.Equal(t, "http://sandbox.localdomain:8254", host.subscribed.Destination.URI)
}

func TestRunStopsOnShutdownEvent(t *testing.T) {
	host := &fakeHost{t: t, events: []HostEvent{
		{EventType: "INVOKE", RequestID: "req-1"},
		{EventType: "INVOKE", RequestID: "req-2"},
		{EventType: eventShutdown, ShutdownReason: "spindown"},
	}}
	c := newTestClient(t, host)
	require.NoError(t, c.Register(context.Background()))

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, 3, host.nextCalls)
}

func TestRunReturnsOnCancelledContext(t *testing.T) {
	// A host that never answers: Run must end when the context does.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	c := NewClient(strings.TrimPrefix(srv.URL, "http://"), "logship")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegisterFailsWithoutIdentifierHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(strings.TrimPrefix(srv.URL, "http://"), "logship")
	err := c.Register(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), headerIdentifier)
}
