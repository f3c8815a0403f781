package identify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtleson01/bird-app/internal/errors"
)

// requestLog records request paths and bodies seen by the fake endpoint
type requestLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *requestLog) add(entries ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entries...)
}

func (l *requestLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func newGeminiServer(t *testing.T, status int, reply string, seen *requestLog) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen.add(r.URL.Path, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": reply}},
				},
				"finishReason": "STOP",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeminiIdentifier(t *testing.T) {
	t.Parallel()

	seen := &requestLog{}
	srv := newGeminiServer(t, http.StatusOK, "참새 | 부리가 짧고 몸통이 둥글다", seen)

	g, err := NewGeminiIdentifier(context.Background(), GeminiConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	}, nil)
	require.NoError(t, err)

	res := IdentifyAll(context.Background(), g, []Image{img("sparrow.png")}, "")[0]
	require.NoError(t, res.Err)
	assert.Equal(t, "참새", res.Name)
	assert.Equal(t, "부리가 짧고 몸통이 둥글다", res.Rationale)

	entries := seen.all()
	require.Len(t, entries, 2)
	assert.True(t, strings.HasSuffix(entries[0], "models/"+DefaultModel+":generateContent"), entries[0])
	assert.Contains(t, entries[1], "image/png")
	assert.Contains(t, entries[1], "이름 | 판단 이유")
}

func TestGeminiIdentifierFailureIsNetworkError(t *testing.T) {
	t.Parallel()

	srv := newGeminiServer(t, http.StatusBadRequest, "", &requestLog{})

	g, err := NewGeminiIdentifier(context.Background(), GeminiConfig{
		APIKey:     "test-key",
		Model:      "gemini-test",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	}, nil)
	require.NoError(t, err)

	_, err = g.Identify(context.Background(), img("x.png"), FormatRequest(""))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}

func TestGeminiIdentifierRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewGeminiIdentifier(context.Background(), GeminiConfig{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
