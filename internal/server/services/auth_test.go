package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dgtwins/ms-auth/internal/common"
	"github.com/dgtwins/ms-auth/internal/dbx"
	"github.com/dgtwins/ms-auth/internal/logging"
	"github.com/dgtwins/ms-auth/internal/server/auth"
	"github.com/dgtwins/ms-auth/internal/server/config"
	"github.com/dgtwins/ms-auth/internal/server/models"
	usersrepo "github.com/dgtwins/ms-auth/internal/server/repositories/users"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                   "k",
		AccessTokenValidityDuration: time.Hour,
		ResetCodeValidityDuration:   10 * time.Minute,
		ResetTokenValidityDuration:  time.Hour,
	}
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	return h
}

type fakeUsersRepo struct {
	byEmail    map[string]*models.User
	byEmailErr error

	byID    map[int64]*models.User
	byIDErr error

	createOut *models.User
	createErr error

	listOut []*models.User
	listErr error

	updateProfileErr  error
	setActiveErr      error
	updatePasswordErr error
	setSecretErr      error
	clearSecretErr    error

	consumeOut bool
	consumeErr error

	// recorded calls
	setSecret     *models.RecoverySecret
	clearedID     int64
	updatedHash   string
	setActiveLast *bool
	consumedValue string
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	out := *u
	out.ID = 1
	return &out, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.byEmailErr != nil {
		return nil, f.byEmailErr
	}
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) List(ctx context.Context, filter usersrepo.ListFilter) ([]*models.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}

func (f *fakeUsersRepo) UpdateProfile(ctx context.Context, u *models.User) error {
	return f.updateProfileErr
}

func (f *fakeUsersRepo) SetActive(ctx context.Context, id int64, active bool) error {
	f.setActiveLast = &active
	return f.setActiveErr
}

func (f *fakeUsersRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	f.updatedHash = hash
	return f.updatePasswordErr
}

func (f *fakeUsersRepo) SetRecoverySecret(ctx context.Context, id int64, secret models.RecoverySecret) error {
	f.setSecret = &secret
	return f.setSecretErr
}

func (f *fakeUsersRepo) ClearRecoverySecret(ctx context.Context, id int64) error {
	f.clearedID = id
	return f.clearSecretErr
}

func (f *fakeUsersRepo) ConsumeRecoverySecret(ctx context.Context, id int64, kind models.SecretKind, value string, newHash string) (bool, error) {
	f.consumedValue = value
	f.updatedHash = newHash
	return f.consumeOut, f.consumeErr
}

type fakeRepoManager struct {
	u *fakeUsersRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository      { return m.u }

func newAuthService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *AuthService {
	t.Helper()
	return NewAuthService(db, rm, testConfig(), testLogger())
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{byEmail: map[string]*models.User{
		"alice@example.com": {
			ID: 1, Email: "alice@example.com", Role: models.RoleAdmin,
			IsActive: true, PasswordHash: mustHash(t, "Secret123"),
		},
	}}}
	s := newAuthService(t, db, rm)

	sess, err := s.Login(context.Background(), "alice@example.com", "Secret123")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if sess.Token == "" || sess.TokenType != "bearer" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if sess.ExpiresIn != 3600 {
		t.Fatalf("ExpiresIn = %d, want 3600", sess.ExpiresIn)
	}

	email, role, err := auth.ParseToken(sess.Token, []byte("k"))
	if err != nil || email != "alice@example.com" || role != "ADMIN" {
		t.Fatalf("token claims: email=%q role=%q err=%v", email, role, err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newAuthService(t, db, &fakeRepoManager{u: &fakeUsersRepo{}})
	if _, err := s.Login(context.Background(), "ghost@example.com", "x"); err != common.ErrInvalidCredentials {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{byEmail: map[string]*models.User{
		"a@b.c": {ID: 1, Email: "a@b.c", IsActive: true, PasswordHash: mustHash(t, "Right1234")},
	}}}
	s := newAuthService(t, db, rm)

	if _, err := s.Login(context.Background(), "a@b.c", "Wrong1234"); err != common.ErrInvalidCredentials {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_InactiveAfterPasswordCheck(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	hash := mustHash(t, "Secret123")
	rm := &fakeRepoManager{u: &fakeUsersRepo{byEmail: map[string]*models.User{
		"a@b.c": {ID: 1, Email: "a@b.c", IsActive: false, PasswordHash: hash},
	}}}
	s := newAuthService(t, db, rm)

	// wrong password on an inactive account still reads as bad credentials
	if _, err := s.Login(context.Background(), "a@b.c", "Wrong1234"); err != common.ErrInvalidCredentials {
		t.Fatalf("wrong password: want ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.Login(context.Background(), "a@b.c", "Secret123"); err != common.ErrAccountInactive {
		t.Fatalf("right password: want ErrAccountInactive, got %v", err)
	}
}

func TestLogin_RepoError(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newAuthService(t, db, &fakeRepoManager{u: &fakeUsersRepo{byEmailErr: errBoom{}}})
	if _, err := s.Login(context.Background(), "a@b.c", "x"); err != common.ErrorInternal {
		t.Fatalf("want ErrorInternal, got %v", err)
	}
}

// --- CurrentUser ---

func TestCurrentUser_LiveRecheck(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	active := &models.User{ID: 1, Email: "a@b.c", Role: models.RoleTendero, IsActive: true}
	rm := &fakeRepoManager{u: &fakeUsersRepo{byEmail: map[string]*models.User{"a@b.c": active}}}
	s := newAuthService(t, db, rm)

	token, err := auth.GenerateToken("a@b.c", "TENDERO", []byte("k"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	got, err := s.CurrentUser(context.Background(), token)
	if err != nil || got.ID != 1 {
		t.Fatalf("CurrentUser: got (%+v, %v)", got, err)
	}

	// deactivation invalidates a still-valid token
	active.IsActive = false
	if _, err := s.CurrentUser(context.Background(), token); err != common.ErrAccountInactive {
		t.Fatalf("inactive: want ErrAccountInactive, got %v", err)
	}
}

func TestCurrentUser_BadTokenAndDeletedUser(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newAuthService(t, db, &fakeRepoManager{u: &fakeUsersRepo{}})

	if _, err := s.CurrentUser(context.Background(), "not-a-token"); err != common.ErrInvalidCredentials {
		t.Fatalf("malformed: want ErrInvalidCredentials, got %v", err)
	}

	token, _ := auth.GenerateToken("gone@b.c", "ADMIN", []byte("k"), time.Hour)
	if _, err := s.CurrentUser(context.Background(), token); err != common.ErrInvalidCredentials {
		t.Fatalf("deleted user: want ErrInvalidCredentials, got %v", err)
	}
}

// --- Register ---

func TestRegister_SuppliedPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeUsersRepo{}
	s := newAuthService(t, db, &fakeRepoManager{u: repo})

	res, err := s.Register(context.Background(), RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "Secret123",
		Role:     models.RoleVendedor,
	})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if res.TemporaryPassword != "" {
		t.Fatalf("temporary password on supplied-password register: %q", res.TemporaryPassword)
	}
	if res.User.Role != models.RoleVendedor || !res.User.IsActive {
		t.Fatalf("unexpected user: %+v", res.User)
	}
	if !auth.CheckPassword("Secret123", res.User.PasswordHash) {
		t.Fatalf("stored hash does not verify")
	}
}

func TestRegister_GeneratedPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newAuthService(t, db, &fakeRepoManager{u: &fakeUsersRepo{}})

	res, err := s.Register(context.Background(), RegisterInput{Name: "Bob", Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if len(res.TemporaryPassword) != 12 {
		t.Fatalf("temporary password length = %d", len(res.TemporaryPassword))
	}
	if res.User.Role != models.RoleAdmin {
		t.Fatalf("default role = %v, want ADMIN", res.User.Role)
	}
	if !auth.CheckPassword(res.TemporaryPassword, res.User.PasswordHash) {
		t.Fatalf("temporary password does not match stored hash")
	}
}

func TestRegister_Validation(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newAuthService(t, db, &fakeRepoManager{u: &fakeUsersRepo{byEmail: map[string]*models.User{
		"taken@example.com": {ID: 7, Email: "taken@example.com"},
	}}})

	if _, err := s.Register(context.Background(), RegisterInput{Email: "x@y.z", Role: "SUPERVISOR"}); err != common.ErrInvalidRole {
		t.Fatalf("bad role: want ErrInvalidRole, got %v", err)
	}
	if _, err := s.Register(context.Background(), RegisterInput{Email: "taken@example.com"}); err != common.ErrEmailAlreadyExists {
		t.Fatalf("duplicate: want ErrEmailAlreadyExists, got %v", err)
	}
	if _, err := s.Register(context.Background(), RegisterInput{Email: "x@y.z", Password: "weak"}); err != common.ErrWeakPassword {
		t.Fatalf("weak password: want ErrWeakPassword, got %v", err)
	}
}

func TestRegister_SecurityAnswerHashed(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newAuthService(t, db, &fakeRepoManager{u: &fakeUsersRepo{}})

	res, err := s.Register(context.Background(), RegisterInput{
		Email:            "c@d.e",
		Password:         "Secret123",
		SecurityQuestion: "¿Ciudad natal?",
		SecurityAnswer:   "  Bogotá ",
	})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if strings.Contains(res.User.SecurityAnswerHash, "Bogot") {
		t.Fatalf("answer stored in clear: %q", res.User.SecurityAnswerHash)
	}
	if !auth.CheckSecurityAnswer("BOGOTÁ", res.User.SecurityAnswerHash) {
		t.Fatalf("normalized answer does not verify")
	}
}
