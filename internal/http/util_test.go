package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	newReq := func(header, value string) *http.Request {
		r, _ := http.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set(header, value)
		}
		return r
	}

	require.Equal(t, "tok", bearerToken(newReq("X-Authorization", "Bearer tok")))
	require.Equal(t, "tok", bearerToken(newReq("Authorization", "bearer tok")))
	require.Equal(t, "tok", bearerToken(newReq("X-Authorization", "tok")))
	require.Equal(t, "", bearerToken(newReq("", "")))

	// X-Authorization takes precedence over Authorization.
	r := newReq("X-Authorization", "Bearer primary")
	r.Header.Set("Authorization", "Bearer secondary")
	require.Equal(t, "primary", bearerToken(r))
}

func TestIsBackendCall(t *testing.T) {
	r, _ := http.NewRequest(http.MethodPost, "/", nil)
	require.False(t, isBackendCall(r))

	r.Header.Set("x-api-source", "backend")
	require.True(t, isBackendCall(r))

	r.Header.Set("x-api-source", "frontend")
	require.False(t, isBackendCall(r))
}
