package index

import (
	"net/http"

	"github.com/muyo/sno"
	"github.com/rs/zerolog/log"
)

// makeLogMiddleware tags every request with a short ID and puts a matching
// logger into the request context.
func makeLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		reqID := sno.New(0)
		logger := log.With().Str("req", reqID.String()).Logger()

		logger.Debug().Msgf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(rw, r.WithContext(logger.WithContext(r.Context())))
	})
}
