// Package services contains server-side business logic. This file implements
// AuthService, the gateway sequencing login, session validation, and
// registration.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dgtwins/ms-auth/internal/common"
	"github.com/dgtwins/ms-auth/internal/logging"
	"github.com/dgtwins/ms-auth/internal/server/auth"
	"github.com/dgtwins/ms-auth/internal/server/config"
	"github.com/dgtwins/ms-auth/internal/server/models"
	"github.com/dgtwins/ms-auth/internal/server/repositories/repomanager"
)

// Session is the result of a successful login: a signed bearer assertion
// plus the user snapshot it was issued for.
type Session struct {
	Token     string
	TokenType string
	ExpiresIn int // seconds
	User      *models.User
}

// RegisterInput carries a new user's fields. Password may be empty, in
// which case a temporary password is generated and returned once.
type RegisterInput struct {
	Name             string
	Email            string
	Password         string
	Role             models.Role
	PhoneNumber      string
	SecurityQuestion string
	SecurityAnswer   string
}

// RegisterResult is the created user plus, when generated, the one-time
// temporary password. The temporary password is never persisted or logged.
type RegisterResult struct {
	User              *models.User
	TemporaryPassword string
}

// AuthService provides authentication operations:
// - Login: verify credentials and mint a session token
// - CurrentUser: validate a token against the live user record
// - Register: create users with policy-checked or generated passwords
type AuthService struct {
	db        *sql.DB
	repos     repomanager.RepositoryManager
	logger    logging.Logger
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, l logging.Logger) *AuthService {
	return &AuthService{
		db:        db,
		repos:     m,
		logger:    l.With("module", "auth_service"),
		jwtSecret: []byte(cfg.SecretKey),
		tokenTTL:  cfg.AccessTokenValidityDuration,
	}
}

// Login authenticates by email and password. Unknown email and wrong
// password return the same error so callers cannot enumerate accounts; the
// active check runs only after the credentials are confirmed.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, common.ErrorInternal
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, common.ErrAccountInactive
	}

	token, err := auth.GenerateToken(user.Email, string(user.Role), s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "login", "user_id", user.ID)

	return &Session{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(s.tokenTTL.Seconds()),
		User:      user,
	}, nil
}

// CurrentUser validates a session token and re-fetches the live record, so
// an account deactivated after issuance is rejected even with a
// structurally valid token.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	email, _, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, common.ErrInvalidCredentials
	}

	user, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, common.ErrorInternal
	}

	if !user.IsActive {
		return nil, common.ErrAccountInactive
	}

	return user, nil
}

// Register creates a new user. A supplied password must pass the policy; an
// absent one is replaced by a generated temporary password returned once in
// the result.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	role := in.Role
	if role == "" {
		role = models.RoleAdmin
	}
	if !role.Valid() {
		return nil, common.ErrInvalidRole
	}

	repo := s.repos.Users(s.db)

	if _, err := repo.GetByEmail(ctx, in.Email); err == nil {
		return nil, common.ErrEmailAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorInternal
	}

	password := in.Password
	temporary := ""
	if password == "" {
		generated, err := auth.GenerateTemporaryPassword()
		if err != nil {
			return nil, common.ErrorInternal
		}
		password = generated
		temporary = generated
	} else if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	answerHash := ""
	if in.SecurityQuestion != "" && in.SecurityAnswer != "" {
		answerHash, err = auth.HashSecurityAnswer(in.SecurityAnswer)
		if err != nil {
			return nil, common.ErrorInternal
		}
	}

	user := &models.User{
		Name:               in.Name,
		Email:              in.Email,
		PasswordHash:       hash,
		Role:               role,
		IsActive:           true,
		PhoneNumber:        in.PhoneNumber,
		SecurityQuestion:   in.SecurityQuestion,
		SecurityAnswerHash: answerHash,
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "user registered", "user_id", created.ID, "role", string(created.Role))

	return &RegisterResult{User: created, TemporaryPassword: temporary}, nil
}
