package httpclient

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtleson01/bird-app/internal/errors"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil config", func(t *testing.T) {
		client := New(nil)
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, defaultUserAgent, client.userAgent)
	})

	t.Run("custom config", func(t *testing.T) {
		cfg := Config{DefaultTimeout: 5 * time.Second, UserAgent: "TestAgent/1.0"}
		client := New(&cfg)
		assert.Equal(t, 5*time.Second, client.defaultTimeout)
		assert.Equal(t, "TestAgent/1.0", client.userAgent)
		assert.Nil(t, cfg.Transport, "caller config must not be modified")
	})

	t.Run("zero values use defaults", func(t *testing.T) {
		client := New(&Config{})
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, defaultUserAgent, client.userAgent)
	})
}

func TestDoInjectsUserAgent(t *testing.T) {
	t.Parallel()

	var received atomic.Value
	server := wikiServer(t, func(w http.ResponseWriter, r *http.Request) {
		received.Store(r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	})
	client := newTestClient(t, &Config{UserAgent: "BirdApp/test"})

	resp, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err)
	drain(t, resp)
	assert.Equal(t, "BirdApp/test", received.Load())

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "explicit")
	resp, err = client.Do(t.Context(), req)
	require.NoError(t, err)
	drain(t, resp)
	assert.Equal(t, "explicit", received.Load())
}

func TestDoAppliesDefaultTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := wikiServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	client := newTestClient(t, &Config{DefaultTimeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDoKeepsBodyReadableAfterReturn(t *testing.T) {
	t.Parallel()

	server := wikiServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64<<10)))
	})
	client := newTestClient(t, &Config{DefaultTimeout: 5 * time.Second})

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer drain(t, resp)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Len(t, body, 64<<10)
}

func TestHooks(t *testing.T) {
	t.Parallel()

	server := wikiServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	client := newTestClient(t, nil)

	var before, after atomic.Int32
	var status atomic.Int32
	client.SetBeforeRequestHook(func(*http.Request) { before.Add(1) })
	client.SetAfterResponseHook(func(_ *http.Request, resp *http.Response, err error) {
		after.Add(1)
		if err == nil {
			status.Store(int32(resp.StatusCode))
		}
	})

	resp, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err)
	drain(t, resp)

	assert.EqualValues(t, 1, before.Load())
	assert.EqualValues(t, 1, after.Load())
	assert.EqualValues(t, http.StatusTeapot, status.Load())
}

func TestReadBody(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, "https://example.test/ok", httpmock.NewStringResponder(http.StatusOK, "hello"))
	transport.RegisterResponder(http.MethodGet, "https://example.test/missing", httpmock.NewStringResponder(http.StatusNotFound, "nope"))
	transport.RegisterResponder(http.MethodGet, "https://example.test/big", httpmock.NewStringResponder(http.StatusOK, strings.Repeat("y", 100)))

	client := newTestClient(t, &Config{Transport: transport})

	body, err := client.ReadBody(t.Context(), "https://example.test/ok", 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	_, err = client.ReadBody(t.Context(), "https://example.test/missing", 0)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)

	_, err = client.ReadBody(t.Context(), "https://example.test/big", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 10 bytes")

	assert.Equal(t, 3, transport.GetTotalCallCount())
}

func TestDoRejectsNilRequest(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Do(context.Background(), nil)
	require.Error(t, err)
}
