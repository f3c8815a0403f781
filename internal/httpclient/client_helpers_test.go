package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient builds a Client closed at test end. A nil cfg uses the defaults.
func newTestClient(t *testing.T, cfg *Config) *Client {
	t.Helper()
	if cfg == nil {
		def := DefaultConfig()
		cfg = &def
	}
	c := New(cfg)
	t.Cleanup(c.Close)
	return c
}

// wikiServer serves handler in place of the encyclopedia API.
func wikiServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func drain(t *testing.T, resp *http.Response) {
	t.Helper()
	if resp == nil || resp.Body == nil {
		return
	}
	if err := resp.Body.Close(); err != nil {
		t.Logf("close body: %v", err)
	}
}
