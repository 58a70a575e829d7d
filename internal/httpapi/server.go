// Package httpapi is the JSON HTTP surface of §6: health, registration,
// verify, submit, and the leaderboard query, wired on top of
// net/http's method-aware ServeMux and the teacher's logging/recovery/
// CORS middleware chain.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mapfarena/verifier/internal/auth"
	"github.com/mapfarena/verifier/internal/coordinator"
	"github.com/mapfarena/verifier/internal/storage"
)

// Leaderboard is the narrow slice of *storage.LeaderboardCache the
// server needs, so tests can stub it without miniredis.
type Leaderboard interface {
	Leaderboard(ctx context.Context, mapName, scenarioName string, limit int) ([]storage.LeaderboardRow, error)
}

// Users is the narrow account-creation surface handlers need.
type Users interface {
	CreateUser(ctx context.Context, username string) (uuid.UUID, error)
}

// Server holds everything a request handler needs and wires routes
// once at construction, exactly the teacher's NewServer/routes split.
type Server struct {
	mux          *http.ServeMux
	logger       zerolog.Logger
	coordinator  *coordinator.Coordinator
	authService  *auth.Service
	users        Users
	leaderboard  Leaderboard
	validate     *validator.Validate
	corsOrigins  []string
	maxWasmBytes int64
}

// Config bundles Server's construction-time dependencies.
type Config struct {
	Coordinator  *coordinator.Coordinator
	AuthService  *auth.Service
	Users        Users
	Leaderboard  Leaderboard
	CORSOrigins  []string
	MaxWasmBytes int64
	Logger       zerolog.Logger
}

func NewServer(cfg Config) *Server {
	s := &Server{
		mux:          http.NewServeMux(),
		logger:       cfg.Logger,
		coordinator:  cfg.Coordinator,
		authService:  cfg.AuthService,
		users:        cfg.Users,
		leaderboard:  cfg.Leaderboard,
		validate:     validator.New(),
		corsOrigins:  cfg.CORSOrigins,
		maxWasmBytes: cfg.MaxWasmBytes,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/verify", s.handleVerify)
	s.mux.Handle("POST /api/submit", bearerAuthMiddleware(s.verifyBearer, http.HandlerFunc(s.handleSubmit)))
	s.mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
}

func (s *Server) verifyBearer(ctx context.Context, presentedKey string) (uuid.UUID, error) {
	key, err := s.authService.Verify(ctx, presentedKey)
	if err != nil {
		return uuid.Nil, err
	}
	return key.UserID, nil
}

// Handler returns the fully wrapped handler (logging -> recovery ->
// CORS -> routes), ready to hand to an http.Server.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = corsMiddleware(s.corsOrigins, h)
	h = recoveryMiddleware(s.logger, h)
	h = loggingMiddleware(s.logger, h)
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
