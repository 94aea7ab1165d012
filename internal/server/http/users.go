package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dgtwins/ms-auth/internal/server/models"
	usersrepo "github.com/dgtwins/ms-auth/internal/server/repositories/users"
	"github.com/dgtwins/ms-auth/internal/server/services"
)

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	filter := usersrepo.ListFilter{}
	if v := q.Get("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(w, "is_active inválido")
		}
		filter.IsActive = &active
	}
	if v := q.Get("role"); v != "" {
		role := models.Role(v)
		if !role.Valid() {
			return badRequest(w, "rol inválido")
		}
		filter.Role = &role
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}

	list, err := s.users.List(r.Context(), filter)
	if err != nil {
		return writeServiceError(w, err)
	}

	views := make([]userView, 0, len(list))
	for _, u := range list {
		views = append(views, viewOf(u))
	}
	return writeJSON(w, http.StatusOK, map[string]any{"users": views})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) error {
	id, ok := pathID(r)
	if !ok {
		return badRequest(w, "id inválido")
	}

	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		return writeServiceError(w, err)
	}
	return writeJSON(w, http.StatusOK, viewOf(user))
}

type updateUserRequest struct {
	Name             *string `json:"name"`
	Email            *string `json:"email"`
	Role             *string `json:"role"`
	PhoneNumber      *string `json:"phone_number"`
	SecurityQuestion *string `json:"security_question"`
	SecurityAnswer   *string `json:"security_answer"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) error {
	id, ok := pathID(r)
	if !ok {
		return badRequest(w, "id inválido")
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest(w, "json inválido")
	}

	in := services.UpdateInput{
		Name:             req.Name,
		Email:            req.Email,
		PhoneNumber:      req.PhoneNumber,
		SecurityQuestion: req.SecurityQuestion,
		SecurityAnswer:   req.SecurityAnswer,
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		in.Role = &role
	}

	user, err := s.users.Update(r.Context(), id, in)
	if err != nil {
		return writeServiceError(w, err)
	}
	return writeJSON(w, http.StatusOK, viewOf(user))
}

func (s *Server) handleToggleStatus(w http.ResponseWriter, r *http.Request) error {
	id, ok := pathID(r)
	if !ok {
		return badRequest(w, "id inválido")
	}

	active, err := s.users.ToggleStatus(r.Context(), id)
	if err != nil {
		return writeServiceError(w, err)
	}
	return writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_active": active})
}

func (s *Server) handleAdminResetPassword(w http.ResponseWriter, r *http.Request) error {
	id, ok := pathID(r)
	if !ok {
		return badRequest(w, "id inválido")
	}

	password, err := s.users.AdminResetPassword(r.Context(), id)
	if err != nil {
		return writeServiceError(w, err)
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"message":            "Contraseña temporal generada",
		"temporary_password": password,
	})
}

type roleView struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

func (s *Server) handleRoles(w http.ResponseWriter, r *http.Request) error {
	catalog := s.users.RoleCatalog()
	views := make([]roleView, 0, len(catalog))
	for _, role := range catalog {
		views = append(views, roleView{
			Value:       string(role.Value),
			Label:       role.Label,
			Description: role.Description,
		})
	}
	return writeJSON(w, http.StatusOK, map[string]any{"roles": views})
}
