package users

import (
	"context"

	"github.com/dgtwins/ms-auth/internal/server/models"
)

// ListFilter narrows and pages a user listing. Nil pointer fields mean
// "no filter".
type ListFilter struct {
	IsActive *bool
	Role     *models.Role
	Offset   int
	Limit    int
}

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, filter ListFilter) ([]*models.User, error)

	// UpdateProfile persists name, email, role, active flag, phone, and
	// security question fields from the given snapshot.
	UpdateProfile(ctx context.Context, user *models.User) error
	SetActive(ctx context.Context, id int64, active bool) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error

	// SetRecoverySecret stores the given secret and clears the sibling
	// secret columns in the same statement, so at most one secret is ever
	// active.
	SetRecoverySecret(ctx context.Context, id int64, secret models.RecoverySecret) error

	// ClearRecoverySecret removes any pending secret.
	ClearRecoverySecret(ctx context.Context, id int64) error

	// ConsumeRecoverySecret atomically clears the secret and writes the new
	// password hash, guarded by the secret still matching. Returns false
	// when the guard misses (already consumed or replaced concurrently).
	ConsumeRecoverySecret(ctx context.Context, id int64, kind models.SecretKind, value string, newHash string) (bool, error)
}
