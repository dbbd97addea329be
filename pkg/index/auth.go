package index

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/aidarkhanov/nanoid"
	"github.com/rs/zerolog"
	guardian "github.com/shaj13/go-guardian/v2/auth"
	"github.com/shaj13/go-guardian/v2/auth/strategies/token"
	"github.com/shaj13/libcache"

	// Provides libcache.LRU
	_ "github.com/shaj13/libcache/lru"
)

// GenerateToken returns a fresh upload token.
func GenerateToken() (string, error) {
	return nanoid.Generate(nanoid.DefaultAlphabet, 64)
}

func newTokenStrategy(expected string) guardian.Strategy {
	cache := libcache.LRU.New(0)
	secret := []byte(expected)

	return token.New(func(ctx context.Context, r *http.Request, value string) (guardian.Info, time.Time, error) {
		if subtle.ConstantTimeCompare([]byte(value), secret) == 1 {
			return guardian.NewDefaultUser("publisher", "1", nil, nil), time.Now().Add(5 * time.Minute), nil
		}

		return nil, time.Time{}, token.ErrInvalidToken
	}, cache)
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.strategy.Authenticate(r.Context(), r)
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Rejected upload")
			w.Header().Set("WWW-Authenticate", `Bearer realm="yagni-index"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token missing or invalid"})
			return
		}

		zerolog.Ctx(r.Context()).Debug().Msgf("Authenticated as %s", user.GetUserName())
		next(w, r)
	}
}
