// Package index implements a development-grade package index so the whole
// build/upload flow can be exercised without external infrastructure.
// Artifacts are stored as plain files under <dataDir>/<name>/<version>/.
package index

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	guardian "github.com/shaj13/go-guardian/v2/auth"
	"github.com/unrolled/secure"

	"github.com/and3rson/yagni/pkg/config"
)

// Server holds the state shared between request handlers.
type Server struct {
	dataDir  string
	strategy guardian.Strategy
}

// New prepares the data directory and the auth strategy.
func New(cfg *config.Config) (*Server, error) {
	if cfg.Index.Token == "" {
		return nil, eris.New("An upload token is required (run `tool gen-token` and set index.token)")
	}

	if err := os.MkdirAll(cfg.Index.DataDir, os.FileMode(0770)); err != nil {
		return nil, eris.Wrapf(err, "Failed to create %s", cfg.Index.DataDir)
	}

	return &Server{
		dataDir:  cfg.Index.DataDir,
		strategy: newTokenStrategy(cfg.Index.Token),
	}, nil
}

// Handler returns the fully assembled HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.HandleFunc("/api/v1/upload", s.requireAuth(s.handleUpload)).Methods("POST")
	r.HandleFunc("/api/v1/packages", s.handlePackages).Methods("GET")
	r.HandleFunc("/files/{name}/{version}/{file}", s.handleDownload).Methods("GET")

	sm := secure.New(secure.Options{
		IsDevelopment:      true,
		BrowserXssFilter:   true,
		ContentTypeNosniff: true,
		FrameDeny:          true,
	})

	return sm.Handler(makeLogMiddleware(r))
}

// StartServer runs the index until the listener fails. If no token is
// configured, a fresh one is generated and logged so a dev setup works out
// of the box.
func StartServer(cfg *config.Config) error {
	if cfg.Index.Token == "" {
		tokenValue, err := GenerateToken()
		if err != nil {
			return err
		}

		cfg.Index.Token = tokenValue
		log.Info().Msgf("Generated upload token: %s", tokenValue)
	}

	srv, err := New(cfg)
	if err != nil {
		return err
	}

	server := http.Server{
		Handler:      srv.Handler(),
		Addr:         cfg.Index.Address,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Info().Msgf("Listening on %s", cfg.Index.Address)
	return server.ListenAndServe()
}
