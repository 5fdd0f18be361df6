package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFingerprint(t *testing.T) {
	fp, err := ParseFingerprint("")
	require.NoError(t, err)
	assert.Equal(t, FingerprintGo, fp)

	fp, err = ParseFingerprint("chrome")
	require.NoError(t, err)
	assert.Equal(t, FingerprintChrome, fp)

	_, err = ParseFingerprint("netscape")
	assert.Error(t, err)
}

func TestNewClientPlainHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// The chrome fingerprint only replaces the TLS dialer, plain HTTP still works.
	for _, fp := range []Fingerprint{FingerprintGo, FingerprintChrome} {
		c := NewClient(Config{Timeout: time.Second, Fingerprint: fp})
		resp, err := c.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestNewClientRedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/again", http.StatusFound)
	}))
	defer srv.Close()

	c := NewClient(Config{Timeout: time.Second, MaxRedirects: 2})
	_, err := c.Get(srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped after 2 redirects")
}

func TestUserAgent(t *testing.T) {
	assert.Contains(t, userAgents, UserAgent())
}
