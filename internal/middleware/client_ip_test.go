package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientIP(t *testing.T) {
	_, trusted, err := net.ParseCIDR("10.0.0.0/8")
	require.NoError(t, err)

	tests := []struct {
		name       string
		remoteAddr string
		realIP     string
		forwarded  string
		trusted    *net.IPNet
		expected   string
	}{
		{name: "No proxy configured", remoteAddr: "203.0.113.5:4000", realIP: "198.51.100.1", expected: "203.0.113.5"},
		{name: "Trusted proxy with X-Real-IP", remoteAddr: "10.1.2.3:4000", realIP: "198.51.100.1", trusted: trusted, expected: "198.51.100.1"},
		{name: "Trusted proxy with X-Forwarded-For", remoteAddr: "10.1.2.3:4000", forwarded: "198.51.100.7, 10.1.2.3", trusted: trusted, expected: "198.51.100.7"},
		{name: "Untrusted peer spoofing headers", remoteAddr: "203.0.113.5:4000", realIP: "198.51.100.1", trusted: trusted, expected: "203.0.113.5"},
		{name: "Trusted proxy with invalid header", remoteAddr: "10.1.2.3:4000", realIP: "not-an-ip", trusted: trusted, expected: "10.1.2.3"},
		{name: "IPv6 peer", remoteAddr: "[2001:db8::1]:4000", expected: "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/abc", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			assert.Equal(t, tt.expected, ClientIP(req, tt.trusted))
		})
	}
}

func TestClientIPMiddleware(t *testing.T) {
	var got string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetClientIP(r)
	})

	req := httptest.NewRequest(http.MethodGet, "/abc", nil)
	req.RemoteAddr = "192.168.1.10:5555"
	req.Header.Set("X-Real-IP", "198.51.100.1")

	ClientIPMiddleware("192.168.1.0/24", zap.NewNop())(handler).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "198.51.100.1", got)

	// Некорректная подсеть: заголовки игнорируются
	ClientIPMiddleware("bad-cidr", zap.NewNop())(handler).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "192.168.1.10", got)
}

func TestGetClientIP_WithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:1234"
	assert.Equal(t, "203.0.113.9", GetClientIP(req))
}
