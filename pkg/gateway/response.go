package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/voicebrew/ttsgate/pkg/logger"
)

// apiResponse is the default JSON shape for status and error bodies.
type apiResponse struct {
	Code        int    `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var statusNames = map[int]string{
	http.StatusOK:                  "Success",
	http.StatusTeapot:              "Success",
	http.StatusBadRequest:          "Bad Request",
	http.StatusUnauthorized:        "Unauthorized",
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "Not Found",
	http.StatusTooManyRequests:     "Too Many Requests",
	http.StatusInternalServerError: "Internal Server Error",
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.ErrorCF("gateway", "failed to encode JSON response", map[string]any{"error": err.Error()})
	}
}

// writeStatus emits the {code, name, description} shape used by every
// informational and error endpoint.
func writeStatus(w http.ResponseWriter, code int, description string) {
	name := statusNames[code]
	if name == "" {
		name = http.StatusText(code)
	}
	writeJSON(w, code, apiResponse{Code: code, Name: name, Description: description})
}
