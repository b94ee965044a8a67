package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempizhere/linkgate/internal/auth"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header   string
		expected string
		ok       bool
	}{
		{header: "Bearer abc.def.ghi", expected: "abc.def.ghi", ok: true},
		{header: "bearer   token  ", expected: "token", ok: true},
		{header: "Basic dXNlcjpwYXNz"},
		{header: "Bearer "},
		{header: "token"},
		{header: ""},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			token, ok := BearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, token)
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	valid, err := auth.SignToken("owner-1", testSecret, time.Hour)
	require.NoError(t, err)
	foreign, err := auth.SignToken("owner-1", "other-secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedOwner  string
	}{
		{name: "Valid token", header: "Bearer " + valid, expectedStatus: http.StatusOK, expectedOwner: "owner-1"},
		{name: "Missing header", expectedStatus: http.StatusUnauthorized},
		{name: "Wrong secret", header: "Bearer " + foreign, expectedStatus: http.StatusUnauthorized},
		{name: "Garbage token", header: "Bearer garbage", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var owner string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				owner, _ = GetOwnerID(r)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/urls", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			AuthMiddleware(testSecret, zap.NewNop())(handler).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedOwner, owner)
			if tt.expectedStatus == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
				assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestGetOwnerID(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)

	ownerID, exists := GetOwnerID(req)
	assert.False(t, exists)
	assert.Equal(t, "", ownerID)

	req = req.WithContext(WithOwnerID(req.Context(), "test_owner"))
	ownerID, exists = GetOwnerID(req)
	assert.True(t, exists)
	assert.Equal(t, "test_owner", ownerID)

	req = req.WithContext(WithOwnerID(req.Context(), ""))
	_, exists = GetOwnerID(req)
	assert.False(t, exists)
}
