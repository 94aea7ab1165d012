package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgtwins/ms-auth/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// writeServiceError translates a service error into an HTTP status and a
// JSON error body. Unknown errors fall through to 500 without exposing
// details to the client.
func writeServiceError(w http.ResponseWriter, err error) error {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		return writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "credenciales inválidas"})
	case errors.Is(err, common.ErrAccountInactive):
		return writeJSON(w, http.StatusForbidden, errorResponse{Error: "cuenta desactivada"})
	case errors.Is(err, common.ErrUnauthorizedVerification):
		return writeJSON(w, http.StatusForbidden, errorResponse{Error: "verificación fallida"})
	case errors.Is(err, common.ErrUserNotFound), errors.Is(err, common.ErrorNotFound):
		return writeJSON(w, http.StatusNotFound, errorResponse{Error: "usuario no encontrado"})
	case errors.Is(err, common.ErrEmailAlreadyExists):
		return writeJSON(w, http.StatusConflict, errorResponse{Error: "el correo ya está registrado"})
	case errors.Is(err, common.ErrWeakPassword):
		return writeJSON(w, http.StatusBadRequest, errorResponse{Error: "la contraseña no cumple la política"})
	case errors.Is(err, common.ErrInvalidRole):
		return writeJSON(w, http.StatusBadRequest, errorResponse{Error: "rol inválido"})
	case errors.Is(err, common.ErrInvalidMethod):
		return writeJSON(w, http.StatusBadRequest, errorResponse{Error: "método de recuperación inválido"})
	case errors.Is(err, common.ErrPhoneRequired):
		return writeJSON(w, http.StatusBadRequest, errorResponse{Error: "número de teléfono requerido"})
	case errors.Is(err, common.ErrMissingSecretInput):
		return writeJSON(w, http.StatusBadRequest, errorResponse{Error: "código o token requerido"})
	case errors.Is(err, common.ErrSecretMismatch):
		return writeJSON(w, http.StatusBadRequest, errorResponse{Error: "código o token inválido"})
	case errors.Is(err, common.ErrSecretExpired):
		return writeJSON(w, http.StatusBadRequest, errorResponse{Error: "código o token expirado"})
	default:
		return err
	}
}

func badRequest(w http.ResponseWriter, msg string) error {
	return writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
