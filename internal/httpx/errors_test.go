package httpx

import (
	"net/http"
	"testing"

	"github.com/swayne275/bitly-metrics/internal/errx"
)

func TestErrorKindToStatus(t *testing.T) {
	tests := []struct {
		kind errx.Kind
		want int
	}{
		{errx.BadCredential, http.StatusUnauthorized},
		{errx.UpstreamHTTP, http.StatusBadGateway},
		{errx.UpstreamData, http.StatusBadGateway},
		{errx.Internal, http.StatusInternalServerError},
		{errx.Kind(0), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := ErrorKindToStatus(tt.kind); got != tt.want {
				t.Errorf("ErrorKindToStatus(%v) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}
