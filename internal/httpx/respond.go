package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/swayne275/bitly-metrics/internal/errx"
)

// ErrorResponse is the JSON error envelope returned for every failed request.
// The errortype integer comes from the closed errx.Kind taxonomy so clients
// can react mechanically (re-authenticate on 4, retry later on the rest).
type ErrorResponse struct {
	ErrorType    int    `json:"errortype"`
	ErrorMessage string `json:"errormessage"`
	URI          string `json:"uri"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		// At this point headers are already sent, so we can't change the response
		// Just log the error
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes the standard error envelope for the request, echoing the
// request URI the way the success envelope does.
func WriteError(w http.ResponseWriter, r *http.Request, status int, kind errx.Kind, message string) {
	resp := ErrorResponse{
		ErrorType:    kind.Code(),
		ErrorMessage: message,
		URI:          r.URL.RequestURI(),
	}
	WriteJSON(w, status, resp)
}
