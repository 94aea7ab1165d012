// Package http exposes the service over a REST API. Handlers decode
// requests, delegate to the services layer, and translate service errors
// into HTTP statuses; no business rules live here.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dgtwins/ms-auth/internal/logging"
	"github.com/dgtwins/ms-auth/internal/server/models"
	"github.com/dgtwins/ms-auth/internal/server/repositories/users"
	"github.com/dgtwins/ms-auth/internal/server/services"
)

// AuthService is the slice of the auth service the handlers use.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*services.Session, error)
	CurrentUser(ctx context.Context, token string) (*models.User, error)
	Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error)
}

// RecoveryService is the slice of the recovery service the handlers use.
type RecoveryService interface {
	ForgotPassword(ctx context.Context, in services.ForgotInput) (*services.RecoveryOutcome, error)
	ResetPassword(ctx context.Context, in services.ResetInput) error
}

// UsersService is the slice of the users service the handlers use.
type UsersService interface {
	List(ctx context.Context, filter users.ListFilter) ([]*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, id int64, in services.UpdateInput) (*models.User, error)
	ToggleStatus(ctx context.Context, id int64) (bool, error)
	AdminResetPassword(ctx context.Context, id int64) (string, error)
	ChangePassword(ctx context.Context, id int64, current, next string) error
	RoleCatalog() []services.RoleInfo
}

type Server struct {
	address  string
	logger   logging.Logger
	auth     AuthService
	recovery RecoveryService
	users    UsersService

	// ping checks storage reachability for the health endpoint. Nil means
	// the check is skipped.
	ping func(ctx context.Context) error
}

func NewServer(addr string, l logging.Logger, a AuthService, r RecoveryService, u UsersService, ping func(ctx context.Context) error) *Server {
	return &Server{
		address:  addr,
		logger:   l.With("module", "http_server"),
		auth:     a,
		recovery: r,
		users:    u,
		ping:     ping,
	}
}

// Handler builds the full route table. Split out from Run so tests can
// drive it through httptest without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.withError(s.handleHealth))

	mux.HandleFunc("POST /api/v1/auth/login", s.withError(s.handleLogin))
	mux.HandleFunc("POST /api/v1/auth/register", s.withError(s.handleRegister))
	mux.HandleFunc("POST /api/v1/auth/logout", s.withError(s.requireAuth(s.handleLogout)))
	mux.HandleFunc("GET /api/v1/auth/me", s.withError(s.requireAuth(s.handleMe)))
	mux.HandleFunc("POST /api/v1/auth/forgot-password", s.withError(s.handleForgotPassword))
	mux.HandleFunc("POST /api/v1/auth/reset-password", s.withError(s.handleResetPassword))
	mux.HandleFunc("POST /api/v1/auth/change-password", s.withError(s.requireAuth(s.handleChangePassword)))

	mux.HandleFunc("GET /api/v1/users", s.withError(s.requireAdmin(s.handleListUsers)))
	mux.HandleFunc("GET /api/v1/users/roles", s.withError(s.requireAdmin(s.handleRoles)))
	mux.HandleFunc("GET /api/v1/users/{id}", s.withError(s.requireAdmin(s.handleGetUser)))
	mux.HandleFunc("PUT /api/v1/users/{id}", s.withError(s.requireAdmin(s.handleUpdateUser)))
	mux.HandleFunc("PATCH /api/v1/users/{id}/status", s.withError(s.requireAdmin(s.handleToggleStatus)))
	mux.HandleFunc("POST /api/v1/users/{id}/reset-password", s.withError(s.requireAdmin(s.handleAdminResetPassword)))

	return s.requestID(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.address,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// withError adapts error-returning handlers. Any error that reaches here
// was not translated to a client-facing status, so it is logged and masked
// as a 500.
func (s *Server) withError(h func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.logger.Error(r.Context(), "handler error", "path", r.URL.Path, "error", err.Error())
			_ = writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "error interno"})
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) error {
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			s.logger.Warn(r.Context(), "health check: storage unreachable", "error", err.Error())
			return writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
	}
	return writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
