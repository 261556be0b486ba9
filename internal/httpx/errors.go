package httpx

import (
	"net/http"

	"github.com/swayne275/bitly-metrics/internal/errx"
)

// ErrorKindToStatus maps errx.Kind to HTTP status codes. Credential problems
// are the caller's fault (401); upstream failures surface as bad gateway so
// callers can tell them apart from faults in this service.
func ErrorKindToStatus(kind errx.Kind) int {
	switch kind {
	case errx.BadCredential:
		return http.StatusUnauthorized
	case errx.UpstreamHTTP:
		return http.StatusBadGateway
	case errx.UpstreamData:
		return http.StatusBadGateway
	case errx.Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
