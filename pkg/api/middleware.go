package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// apiKeyMiddleware rejects requests whose X-API-Key header does not match
// expectedKey. An empty expectedKey lets every request through.
func apiKeyMiddleware(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expectedKey == "" {
			return next
		}
		want := []byte(expectedKey)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-API-Key")
			switch {
			case got == "":
				sendError(w, "Missing X-API-Key header", http.StatusUnauthorized)
			case subtle.ConstantTimeCompare([]byte(got), want) != 1:
				sendError(w, "Invalid API key", http.StatusUnauthorized)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func sendSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func sendError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, APIResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
