package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dgtwins/ms-auth/internal/common"
	"github.com/dgtwins/ms-auth/internal/logging"
	"github.com/dgtwins/ms-auth/internal/server/auth"
	"github.com/dgtwins/ms-auth/internal/server/models"
	"github.com/dgtwins/ms-auth/internal/server/repositories/repomanager"
	"github.com/dgtwins/ms-auth/internal/server/repositories/users"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// UpdateInput carries a partial user update. Nil pointer fields are left
// untouched.
type UpdateInput struct {
	Name             *string
	Email            *string
	Role             *models.Role
	PhoneNumber      *string
	SecurityQuestion *string
	SecurityAnswer   *string
}

// RoleInfo is one row of the role catalog.
type RoleInfo struct {
	Value       models.Role
	Label       string
	Description string
}

// UsersService implements the administrative user operations: listing,
// profile updates, activation toggles, and password management.
type UsersService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

func NewUsersService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *UsersService {
	return &UsersService{
		db:     db,
		repos:  m,
		logger: l.With("module", "users_service"),
	}
}

// List returns users matching the filter. The limit is clamped to keep a
// single response bounded.
func (s *UsersService) List(ctx context.Context, filter users.ListFilter) ([]*models.User, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	list, err := s.repos.Users(s.db).List(ctx, filter)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return list, nil
}

// Get returns a single user by id.
func (s *UsersService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repos.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// Update applies a partial profile update. Changing the email re-checks
// uniqueness; changing the security answer re-hashes it.
func (s *UsersService) Update(ctx context.Context, id int64, in UpdateInput) (*models.User, error) {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, common.ErrorInternal
	}

	if in.Email != nil && *in.Email != user.Email {
		other, err := repo.GetByEmail(ctx, *in.Email)
		if err == nil && other.ID != user.ID {
			return nil, common.ErrEmailAlreadyExists
		}
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInternal
		}
		user.Email = *in.Email
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, common.ErrInvalidRole
		}
		user.Role = *in.Role
	}
	if in.PhoneNumber != nil {
		user.PhoneNumber = *in.PhoneNumber
	}
	if in.SecurityQuestion != nil {
		user.SecurityQuestion = *in.SecurityQuestion
	}
	if in.SecurityAnswer != nil && *in.SecurityAnswer != "" {
		hash, err := auth.HashSecurityAnswer(*in.SecurityAnswer)
		if err != nil {
			return nil, common.ErrorInternal
		}
		user.SecurityAnswerHash = hash
	}

	if err := repo.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "user updated", "user_id", user.ID)
	return user, nil
}

// ToggleStatus flips the active flag and returns the new value.
func (s *UsersService) ToggleStatus(ctx context.Context, id int64) (bool, error) {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, common.ErrUserNotFound
		}
		return false, common.ErrorInternal
	}

	next := !user.IsActive
	if err := repo.SetActive(ctx, id, next); err != nil {
		return false, common.ErrorInternal
	}

	s.logger.Info(ctx, "user status toggled", "user_id", id, "active", next)
	return next, nil
}

// AdminResetPassword replaces a user's password with a generated temporary
// one, returned exactly once. Any pending recovery secret is cleared so the
// dead credential cannot still be consumed.
func (s *UsersService) AdminResetPassword(ctx context.Context, id int64) (string, error) {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrUserNotFound
		}
		return "", common.ErrorInternal
	}

	password, err := auth.GenerateTemporaryPassword()
	if err != nil {
		return "", common.ErrorInternal
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", common.ErrorInternal
	}

	if err := repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return "", common.ErrorInternal
	}
	if err := repo.ClearRecoverySecret(ctx, user.ID); err != nil {
		return "", common.ErrorInternal
	}

	s.logger.Info(ctx, "admin password reset", "user_id", user.ID)
	return password, nil
}

// ChangePassword sets a new password for an authenticated user after
// verifying the current one.
func (s *UsersService) ChangePassword(ctx context.Context, id int64, current, next string) error {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return common.ErrorInternal
	}

	if !auth.CheckPassword(current, user.PasswordHash) {
		return common.ErrInvalidCredentials
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return common.ErrorInternal
	}
	if err := repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return common.ErrorInternal
	}

	s.logger.Info(ctx, "password changed", "user_id", user.ID)
	return nil
}

// RoleCatalog lists the assignable roles with display metadata.
func (s *UsersService) RoleCatalog() []RoleInfo {
	return []RoleInfo{
		{Value: models.RoleAdmin, Label: "Administrador", Description: "Acceso completo al sistema"},
		{Value: models.RoleTendero, Label: "Tendero", Description: "Gestión de tienda e inventario"},
		{Value: models.RoleVendedor, Label: "Vendedor", Description: "Registro de ventas"},
	}
}
