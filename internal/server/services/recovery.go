package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dgtwins/ms-auth/internal/common"
	"github.com/dgtwins/ms-auth/internal/dbx"
	"github.com/dgtwins/ms-auth/internal/logging"
	"github.com/dgtwins/ms-auth/internal/server/auth"
	"github.com/dgtwins/ms-auth/internal/server/config"
	"github.com/dgtwins/ms-auth/internal/server/models"
	"github.com/dgtwins/ms-auth/internal/server/notify"
	"github.com/dgtwins/ms-auth/internal/server/repositories/repomanager"
)

// RecoveryMethod selects how a forgot-password request is verified before a
// secret is issued.
type RecoveryMethod string

const (
	// MethodSimple issues a short-lived code with no extra verification.
	MethodSimple RecoveryMethod = ""
	// MethodPhone requires the caller to supply the phone number on file.
	MethodPhone RecoveryMethod = "phone"
	// MethodSecurityQuestion is a two-step exchange: first call returns the
	// question, second call verifies the answer and issues a token.
	MethodSecurityQuestion RecoveryMethod = "security_question"
)

// ForgotInput is a forgot-password request.
type ForgotInput struct {
	Email          string
	Method         RecoveryMethod
	Phone          string
	SecurityAnswer string
}

// RecoveryOutcome is what a forgot-password call returns. Code and Token are
// only populated when delivery failed and the secret is disclosed in-band,
// or on verification paths that never deliver out-of-band. SecurityQuestion
// is set on the first step of the question exchange.
type RecoveryOutcome struct {
	Message          string
	Code             string
	Token            string
	SecurityQuestion string

	// Disclosed marks that the secret is carried in this response because
	// outbound delivery failed or is disabled.
	Disclosed bool
}

// ResetInput completes a recovery. Exactly one of Code or Token is
// expected; when both are present the code takes precedence.
type ResetInput struct {
	Email       string
	Code        string
	Token       string
	NewPassword string
}

// RecoveryService orchestrates the forgot-password and reset-password flow.
// Method-specific verification lives in small strategy values so adding a
// channel does not touch the shared issue/consume logic.
type RecoveryService struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	logger   logging.Logger
	notifier notify.Notifier
	codeTTL  time.Duration
	tokenTTL time.Duration
}

func NewRecoveryService(db *sql.DB, m repomanager.RepositoryManager, n notify.Notifier, cfg *config.Config, l logging.Logger) *RecoveryService {
	return &RecoveryService{
		db:       db,
		repos:    m,
		logger:   l.With("module", "recovery_service"),
		notifier: n,
		codeTTL:  cfg.ResetCodeValidityDuration,
		tokenTTL: cfg.ResetTokenValidityDuration,
	}
}

// recoveryStrategy verifies one channel and issues the matching secret.
type recoveryStrategy interface {
	initiate(ctx context.Context, s *RecoveryService, user *models.User, in ForgotInput) (*RecoveryOutcome, error)
}

func strategyFor(method RecoveryMethod) (recoveryStrategy, error) {
	switch method {
	case MethodSimple:
		return simpleStrategy{}, nil
	case MethodPhone:
		return phoneStrategy{}, nil
	case MethodSecurityQuestion:
		return questionStrategy{}, nil
	default:
		return nil, common.ErrInvalidMethod
	}
}

const genericRecoveryMessage = "Si el correo existe, se ha enviado un código de recuperación"

// ForgotPassword starts a recovery. Unknown and inactive accounts get the
// same generic outcome as a successful start, so the endpoint cannot be
// used to enumerate accounts. Verification failures on the phone and
// question channels do surface as errors, since reaching them already
// required knowing the email.
func (s *RecoveryService) ForgotPassword(ctx context.Context, in ForgotInput) (*RecoveryOutcome, error) {
	strategy, err := strategyFor(in.Method)
	if err != nil {
		return nil, err
	}

	user, err := s.repos.Users(s.db).GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Debug(ctx, "recovery for unknown email")
			return &RecoveryOutcome{Message: genericRecoveryMessage}, nil
		}
		return nil, common.ErrorInternal
	}
	if !user.IsActive {
		s.logger.Debug(ctx, "recovery for inactive account", "user_id", user.ID)
		return &RecoveryOutcome{Message: genericRecoveryMessage}, nil
	}

	return strategy.initiate(ctx, s, user, in)
}

// simpleStrategy issues a short numeric code with no extra verification.
type simpleStrategy struct{}

func (simpleStrategy) initiate(ctx context.Context, s *RecoveryService, user *models.User, _ ForgotInput) (*RecoveryOutcome, error) {
	return s.issueCode(ctx, user)
}

// phoneStrategy verifies the supplied phone number against the one on file.
// Accounts without a phone on file are downgraded to the token path.
type phoneStrategy struct{}

func (phoneStrategy) initiate(ctx context.Context, s *RecoveryService, user *models.User, in ForgotInput) (*RecoveryOutcome, error) {
	if in.Phone == "" {
		return nil, common.ErrPhoneRequired
	}
	if user.PhoneNumber == "" {
		s.logger.Info(ctx, "phone recovery without phone on file, issuing token", "user_id", user.ID)
		return s.issueToken(ctx, user, false)
	}
	if normalizePhone(in.Phone) != normalizePhone(user.PhoneNumber) {
		return nil, common.ErrUnauthorizedVerification
	}
	return s.issueCode(ctx, user)
}

// questionStrategy runs the two-step security question exchange.
type questionStrategy struct{}

func (questionStrategy) initiate(ctx context.Context, s *RecoveryService, user *models.User, in ForgotInput) (*RecoveryOutcome, error) {
	// Only a missing question downgrades. A question with no stored answer
	// hash still runs the exchange; every answer then fails verification.
	if user.SecurityQuestion == "" {
		s.logger.Info(ctx, "question recovery without question on file, issuing token", "user_id", user.ID)
		return s.issueToken(ctx, user, false)
	}
	if in.SecurityAnswer == "" {
		return &RecoveryOutcome{
			Message:          "Responda la pregunta de seguridad para continuar",
			SecurityQuestion: user.SecurityQuestion,
		}, nil
	}
	if !auth.CheckSecurityAnswer(in.SecurityAnswer, user.SecurityAnswerHash) {
		return nil, common.ErrUnauthorizedVerification
	}
	return s.issueToken(ctx, user, true)
}

// normalizePhone strips separators so "+57 300-123-4567" and "573001234567"
// compare equal. No digits are reordered or removed.
var phoneReplacer = strings.NewReplacer(" ", "", "-", "", "+", "")

func normalizePhone(phone string) string {
	return phoneReplacer.Replace(phone)
}

// issueCode stores a numeric code and tries to deliver it. A delivery
// failure never fails the request; the code is disclosed in the response
// instead so the user is not locked out.
func (s *RecoveryService) issueCode(ctx context.Context, user *models.User) (*RecoveryOutcome, error) {
	code, err := auth.GenerateResetCode()
	if err != nil {
		return nil, common.ErrorInternal
	}

	secret := models.RecoverySecret{
		Kind:      models.SecretCode,
		Value:     code,
		ExpiresAt: auth.ExpiryAt(s.codeTTL),
	}
	if err := s.repos.Users(s.db).SetRecoverySecret(ctx, user.ID, secret); err != nil {
		return nil, common.ErrorInternal
	}

	if err := s.notifier.SendRecoverySecret(ctx, user.Email, user.Name, secret); err != nil {
		s.logger.Warn(ctx, "recovery delivery failed, disclosing code", "user_id", user.ID, "error", err.Error())
		return &RecoveryOutcome{
			Message:   "No se pudo enviar el correo, use el código mostrado",
			Code:      code,
			Disclosed: true,
		}, nil
	}

	s.logger.Info(ctx, "recovery code sent", "user_id", user.ID)
	return &RecoveryOutcome{Message: genericRecoveryMessage}, nil
}

// issueToken stores a long token. When deliver is false (verification
// downgrade paths) the token is returned directly without a delivery
// attempt; otherwise delivery is attempted with the same disclosure
// fallback as the code path.
func (s *RecoveryService) issueToken(ctx context.Context, user *models.User, deliver bool) (*RecoveryOutcome, error) {
	token, err := auth.GenerateResetToken()
	if err != nil {
		return nil, common.ErrorInternal
	}

	secret := models.RecoverySecret{
		Kind:      models.SecretToken,
		Value:     token,
		ExpiresAt: auth.ExpiryAt(s.tokenTTL),
	}
	if err := s.repos.Users(s.db).SetRecoverySecret(ctx, user.ID, secret); err != nil {
		return nil, common.ErrorInternal
	}

	if !deliver {
		return &RecoveryOutcome{
			Message:   "Use el token para restablecer su contraseña",
			Token:     token,
			Disclosed: true,
		}, nil
	}

	if err := s.notifier.SendRecoverySecret(ctx, user.Email, user.Name, secret); err != nil {
		s.logger.Warn(ctx, "recovery delivery failed, disclosing token", "user_id", user.ID, "error", err.Error())
		return &RecoveryOutcome{
			Message:   "No se pudo enviar el correo, use el token mostrado",
			Token:     token,
			Disclosed: true,
		}, nil
	}

	s.logger.Info(ctx, "recovery token sent", "user_id", user.ID)
	return &RecoveryOutcome{Message: genericRecoveryMessage}, nil
}

// ResetPassword completes a recovery. The match against the stored secret
// happens twice: once on the loaded snapshot to classify the failure
// (mismatch vs expired), and once inside the consuming UPDATE so a
// concurrent consume of the same secret cannot apply two passwords.
func (s *RecoveryService) ResetPassword(ctx context.Context, in ResetInput) error {
	user, err := s.repos.Users(s.db).GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return common.ErrorInternal
	}
	if !user.IsActive {
		return common.ErrAccountInactive
	}

	var kind models.SecretKind
	var value string
	switch {
	case in.Code != "":
		kind, value = models.SecretCode, in.Code
	case in.Token != "":
		kind, value = models.SecretToken, in.Token
	default:
		return common.ErrMissingSecretInput
	}

	if user.Recovery == nil || user.Recovery.Kind != kind || user.Recovery.Value != value {
		return common.ErrSecretMismatch
	}
	if !auth.SecretValid(&user.Recovery.ExpiresAt) {
		// The secret matched but is stale. Clear it so it cannot be retried.
		if err := s.repos.Users(s.db).ClearRecoverySecret(ctx, user.ID); err != nil {
			return common.ErrorInternal
		}
		return common.ErrSecretExpired
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return common.ErrorInternal
	}

	var consumed bool
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var txErr error
		consumed, txErr = s.repos.Users(tx).ConsumeRecoverySecret(ctx, user.ID, kind, value, hash)
		return txErr
	})
	if err != nil {
		return common.ErrorInternal
	}
	if !consumed {
		return common.ErrSecretMismatch
	}

	s.logger.Info(ctx, "password reset completed", "user_id", user.ID, "kind", string(kind))
	return nil
}
