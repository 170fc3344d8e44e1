package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the error envelope of the config/dashboard APIs.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	writeJSON(w, status, errorBody{Message: message, Error: detail})
}

// bearerToken extracts the ThingsBoard token from X-Authorization or
// Authorization, with or without the "Bearer " prefix.
func bearerToken(r *http.Request) string {
	for _, header := range []string{"X-Authorization", "Authorization"} {
		v := strings.TrimSpace(r.Header.Get(header))
		if v == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(v), "bearer ") {
			return strings.TrimSpace(v[len("bearer "):])
		}
		return v
	}
	return ""
}

// isBackendCall reports whether the request carries the backend
// bypass marker used by internal jobs and smoke tests.
func isBackendCall(r *http.Request) bool {
	return r.Header.Get("x-api-source") == "backend"
}
