package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dgtwins/ms-auth/internal/server/models"
	"github.com/dgtwins/ms-auth/internal/server/services"
)

// userView is the client-facing shape of a user. Password hashes and
// recovery secrets never appear here.
type userView struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	IsActive         bool      `json:"is_active"`
	PhoneNumber      string    `json:"phone_number,omitempty"`
	SecurityQuestion string    `json:"security_question,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func viewOf(u *models.User) userView {
	return userView{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Role:             string(u.Role),
		IsActive:         u.IsActive,
		PhoneNumber:      u.PhoneNumber,
		SecurityQuestion: u.SecurityQuestion,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
	User        userView `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) error {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest(w, "json inválido")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(w, "email y password son requeridos")
	}

	sess, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return writeServiceError(w, err)
	}

	return writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: sess.Token,
		TokenType:   sess.TokenType,
		ExpiresIn:   sess.ExpiresIn,
		User:        viewOf(sess.User),
	})
}

type registerRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	Role             string `json:"role"`
	PhoneNumber      string `json:"phone_number"`
	SecurityQuestion string `json:"security_question"`
	SecurityAnswer   string `json:"security_answer"`
}

type registerResponse struct {
	User userView `json:"user"`
	// TemporaryPassword is present only when the service generated one.
	TemporaryPassword string `json:"temporary_password,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) error {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest(w, "json inválido")
	}
	if req.Email == "" {
		return badRequest(w, "email es requerido")
	}

	res, err := s.auth.Register(r.Context(), services.RegisterInput{
		Name:             req.Name,
		Email:            req.Email,
		Password:         req.Password,
		Role:             models.Role(req.Role),
		PhoneNumber:      req.PhoneNumber,
		SecurityQuestion: req.SecurityQuestion,
		SecurityAnswer:   req.SecurityAnswer,
	})
	if err != nil {
		return writeServiceError(w, err)
	}

	return writeJSON(w, http.StatusCreated, registerResponse{
		User:              viewOf(res.User),
		TemporaryPassword: res.TemporaryPassword,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, viewOf(CurrentUser(r.Context())))
}

// handleLogout acknowledges the logout. Tokens are stateless, so there is
// nothing to revoke server-side; the client discards its copy.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]string{"message": "Sesión cerrada exitosamente"})
}

type forgotRequest struct {
	Email          string `json:"email"`
	Method         string `json:"method"`
	Phone          string `json:"phone"`
	SecurityAnswer string `json:"security_answer"`
}

type forgotResponse struct {
	Message          string `json:"message"`
	Code             string `json:"code,omitempty"`
	Token            string `json:"token,omitempty"`
	SecurityQuestion string `json:"security_question,omitempty"`
	Disclosed        bool   `json:"disclosed,omitempty"`
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) error {
	var req forgotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest(w, "json inválido")
	}
	if req.Email == "" {
		return badRequest(w, "email es requerido")
	}

	out, err := s.recovery.ForgotPassword(r.Context(), services.ForgotInput{
		Email:          req.Email,
		Method:         services.RecoveryMethod(req.Method),
		Phone:          req.Phone,
		SecurityAnswer: req.SecurityAnswer,
	})
	if err != nil {
		return writeServiceError(w, err)
	}

	return writeJSON(w, http.StatusOK, forgotResponse{
		Message:          out.Message,
		Code:             out.Code,
		Token:            out.Token,
		SecurityQuestion: out.SecurityQuestion,
		Disclosed:        out.Disclosed,
	})
}

type resetRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) error {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest(w, "json inválido")
	}
	if req.Email == "" || req.NewPassword == "" {
		return badRequest(w, "email y new_password son requeridos")
	}

	err := s.recovery.ResetPassword(r.Context(), services.ResetInput{
		Email:       req.Email,
		Code:        req.Code,
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return writeServiceError(w, err)
	}

	return writeJSON(w, http.StatusOK, map[string]string{"message": "Contraseña actualizada exitosamente"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) error {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest(w, "json inválido")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return badRequest(w, "current_password y new_password son requeridos")
	}

	user := CurrentUser(r.Context())
	if err := s.users.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return writeServiceError(w, err)
	}

	return writeJSON(w, http.StatusOK, map[string]string{"message": "Contraseña actualizada exitosamente"})
}
