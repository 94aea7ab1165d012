package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dgtwins/ms-auth/internal/server/models"
)

type ctxKey string

const currentUserKey ctxKey = "currentUser"

const requestIDHeader = "X-Request-Id"

func withCurrentUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, currentUserKey, u)
}

// CurrentUser returns the authenticated user stored by requireAuth, or nil
// outside an authenticated request.
func CurrentUser(ctx context.Context) *models.User {
	u, _ := ctx.Value(currentUserKey).(*models.User)
	return u
}

// requestID assigns each request an id, echoed in the response header so
// clients can quote it when reporting problems.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from the Authorization header. Both the
// "Bearer <token>" form and a bare token are accepted.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return header
}

// requireAuth validates the bearer token against the live user record and
// stores the user in the request context.
func (s *Server) requireAuth(h func(http.ResponseWriter, *http.Request) error) func(http.ResponseWriter, *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		token := bearerToken(r)
		if token == "" {
			return writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "token requerido"})
		}

		user, err := s.auth.CurrentUser(r.Context(), token)
		if err != nil {
			return writeServiceError(w, err)
		}

		r = r.WithContext(withCurrentUser(r.Context(), user))
		return h(w, r)
	}
}

// requireAdmin additionally checks the ADMIN role.
func (s *Server) requireAdmin(h func(http.ResponseWriter, *http.Request) error) func(http.ResponseWriter, *http.Request) error {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) error {
		user := CurrentUser(r.Context())
		if user == nil || user.Role != models.RoleAdmin {
			return writeJSON(w, http.StatusForbidden, errorResponse{Error: "se requiere rol de administrador"})
		}
		return h(w, r)
	})
}
