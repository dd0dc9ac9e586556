package utils

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "remote addr", remoteAddr: "192.0.2.10:5555", want: "192.0.2.10"},
		{name: "ipv6 remote addr", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "forwarded for ignored", remoteAddr: "192.0.2.10:1", headers: map[string]string{"X-Forwarded-For": "203.0.113.5"}, want: "192.0.2.10"},
		{name: "real ip ignored", remoteAddr: "192.0.2.10:1", headers: map[string]string{"X-Real-IP": "198.51.100.2"}, want: "192.0.2.10"},
		{name: "no port", remoteAddr: "pipe", want: "pipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a***@example.com", MaskEmail("alice@example.com"))
	assert.Equal(t, "b***", MaskEmail("bob"))
	assert.Equal(t, "", MaskEmail(""))
}

func TestParseTrustedProxies(t *testing.T) {
	got, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.1 ", "", "2001:db8::/32"})
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.0.2.1/32"),
		netip.MustParsePrefix("2001:db8::/32"),
	}, got)

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}

// TrustProxies runs in front of chi's RealIP, the same way the server stacks them.
func TestTrustProxies(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	var seen string
	handler := TrustProxies(trusted)(middleware.RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIP(r)
	})))

	tests := []struct {
		name       string
		remoteAddr string
		header     string
		value      string
		want       string
	}{
		{name: "untrusted peer spoofs forwarded for", remoteAddr: "198.51.100.7:4000", header: "X-Forwarded-For", value: "203.0.113.5", want: "198.51.100.7"},
		{name: "untrusted peer spoofs real ip", remoteAddr: "198.51.100.7:4000", header: "X-Real-IP", value: "203.0.113.5", want: "198.51.100.7"},
		{name: "untrusted peer spoofs true client ip", remoteAddr: "198.51.100.7:4000", header: "True-Client-IP", value: "203.0.113.5", want: "198.51.100.7"},
		{name: "trusted proxy forwards client", remoteAddr: "10.1.2.3:4000", header: "X-Forwarded-For", value: "203.0.113.5", want: "203.0.113.5"},
		{name: "trusted proxy without header", remoteAddr: "10.1.2.3:4000", want: "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/login", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, seen)
		})
	}
}

func TestTrustProxiesNoneTrusted(t *testing.T) {
	var forwarded string
	handler := TrustProxies(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwarded = r.Header.Get("X-Forwarded-For")
	}))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.1.2.3:4000"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, forwarded)
}
