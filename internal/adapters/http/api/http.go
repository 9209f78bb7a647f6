// Package api serves the game's scoring routes and the operational
// endpoints over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/okian/jmscore/internal/adapters/http/swagger"
	"github.com/okian/jmscore/internal/domain/model"
	"github.com/okian/jmscore/internal/domain/ranking"
	"github.com/okian/jmscore/internal/domain/types"
	"github.com/okian/jmscore/pkg/logger"
)

// Default server configuration.
const (
	defaultRoutePrefix    = "/JM_test/service"
	defaultMOTD           = "Jewelry Master Server Emulator by Hipnosis, 2022"
	defaultMaxReplayBytes = 4 << 20
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Authenticate(ctx context.Context, id, password string) (ranking.AuthResult, error)
	Submit(ctx context.Context, sub model.Submission) (ranking.SubmitResult, error)
	PersonalRanking(ctx context.Context, playerID string, mode int) ([]types.PersonalRow, error)
	GlobalRanking(ctx context.Context, q ranking.GlobalQuery) ([]types.GlobalRow, error)
	Replay(ctx context.Context, entryID string) ([]byte, error)
}

// Server wires HTTP routes for the scoring service.
type Server struct {
	game   *GameHandler
	health *HealthHandler
	stats  *StatsHandler

	routePrefix    string
	motd           string
	maxReplayBytes int64
	logger         logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		routePrefix:    defaultRoutePrefix,
		motd:           defaultMOTD,
		maxReplayBytes: defaultMaxReplayBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("http")
	}

	s.game = &GameHandler{
		deps:           deps,
		motd:           s.motd,
		maxReplayBytes: s.maxReplayBytes,
		logger:         s.logger,
	}
	s.health = NewHealthHandler()
	s.stats = NewStatsHandler(statsProvider)
	return s
}

// Handler builds the router with every route and middleware attached.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := mux.NewRouter()
	r.Use(RequestIDMiddleware(s.logger))
	r.Use(MetricsMiddleware)
	r.Use(handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(false),
	))

	r.HandleFunc("/", s.game.HandleRoot).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/healthz", s.health.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.stats.HandleStats).Methods(http.MethodGet)
	swagger.Register(ctx, r)

	game := r.PathPrefix(strings.TrimRight(s.routePrefix, "/")).Subrouter()
	game.HandleFunc("/GameEntry", s.game.HandleGameEntry).Methods(http.MethodGet)
	game.HandleFunc("/GetRanking", s.game.HandleGetRanking).Methods(http.MethodGet)
	game.HandleFunc("/ScoreEntry", s.game.HandleScoreEntry).Methods(http.MethodPost)
	game.HandleFunc("/GetReplay", s.game.HandleGetReplay).Methods(http.MethodGet)
	game.HandleFunc("/GetMessage", s.game.HandleGetMessage).Methods(http.MethodGet)
	game.HandleFunc("/GetName", s.game.HandleGetName).Methods(http.MethodGet)

	return r
}

// recoveryLogger routes recovered panics into the structured logger.
type recoveryLogger struct {
	l logger.Logger
}

func (r recoveryLogger) Println(v ...any) {
	r.l.Error(context.Background(), "handler panic", logger.String("panic", fmt.Sprint(v...)))
}
