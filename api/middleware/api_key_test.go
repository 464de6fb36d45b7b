package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAPIKeyAuth(t *testing.T) {
	hash, err := HashAPIKey("secret-key")
	require.NoError(t, err)
	h := APIKeyAuth(hash)(okHandler())

	cases := []struct {
		name string
		key  string
		code int
	}{
		{"缺少Key", "", http.StatusUnauthorized},
		{"错误Key", "wrong", http.StatusUnauthorized},
		{"正确Key", "secret-key", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/sync/run", nil)
			if tc.key != "" {
				req.Header.Set(APIKeyHeader, tc.key)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tc.code, rr.Code)
		})
	}
}

func TestAPIKeyAuthDisabled(t *testing.T) {
	rr := httptest.NewRecorder()
	APIKeyAuth("")(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sync/run", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
