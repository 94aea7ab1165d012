package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dgtwins/ms-auth/internal/common"
	"github.com/dgtwins/ms-auth/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "role", "is_active",
		"phone_number", "security_question", "security_answer_hash",
		"reset_token", "reset_token_expires", "reset_code", "reset_code_expires",
		"created_at", "updated_at",
	})
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+users\s*\(name,\s*email,\s*password_hash,\s*role,\s*is_active,.*\)\s*VALUES.*RETURNING\s+id,\s*created_at,\s*updated_at\s*$`

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(42), now, now)
	mock.ExpectQuery(q).
		WithArgs("Ana", "ana@example.com", "hash", "ADMIN", true,
			sql.NullString{}, sql.NullString{}, sql.NullString{}).
		WillReturnRows(rows)

	u := &models.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "hash", Role: models.RoleAdmin, IsActive: true}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 42 {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Name: "Ana", Email: "x@y", Role: models.RoleAdmin})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.*\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`

	now := time.Now()
	rows := userRows().AddRow(int64(7), "Ana", "ana@example.com", "hash", "TENDERO", true,
		nil, nil, nil, nil, nil, nil, nil, now, now)
	mock.ExpectQuery(q).WithArgs("ana@example.com").WillReturnRows(rows)

	got, err := repo.GetByEmail(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.ID != 7 || got.Role != models.RoleTendero || got.Recovery != nil {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+email`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByID_MapsPendingCode(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	exp := now.Add(10 * time.Minute)
	rows := userRows().AddRow(int64(7), "Ana", "ana@example.com", "hash", "ADMIN", true,
		"15550100", nil, nil, nil, nil, "123456", exp, now, now)
	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id`).WithArgs(int64(7)).WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.Recovery == nil || got.Recovery.Kind != models.SecretCode || got.Recovery.Value != "123456" {
		t.Fatalf("expected pending code secret, got %+v", got.Recovery)
	}
	if !got.Recovery.ExpiresAt.Equal(exp) {
		t.Fatalf("expiry mismatch: %v", got.Recovery.ExpiresAt)
	}
	if got.PhoneNumber != "15550100" {
		t.Fatalf("phone mismatch: %q", got.PhoneNumber)
	}
}

func TestList_FiltersAndPaging(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.*\s+FROM\s+users\s+WHERE\s+is_active\s*=\s*\$1\s+AND\s+role\s*=\s*\$2\s+ORDER\s+BY\s+id\s+LIMIT\s+\$3\s+OFFSET\s+\$4\s*$`

	now := time.Now()
	rows := userRows().AddRow(int64(1), "Ana", "a@x", "h", "VENDEDOR", true,
		nil, nil, nil, nil, nil, nil, nil, now, now)
	active := true
	role := models.RoleVendedor
	mock.ExpectQuery(q).WithArgs(true, "VENDEDOR", 10, 5).WillReturnRows(rows)

	got, err := repo.List(context.Background(), ListFilter{IsActive: &active, Role: &role, Offset: 5, Limit: 10})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(got) != 1 || got[0].Role != models.RoleVendedor {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestSetRecoverySecret_CodeClearsToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+reset_code\s*=\s*\$1,\s*reset_code_expires\s*=\s*\$2,\s*reset_token\s*=\s*NULL,\s*reset_token_expires\s*=\s*NULL,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$3\s*$`

	exp := time.Now().Add(10 * time.Minute)
	mock.ExpectExec(q).WithArgs("123456", exp, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetRecoverySecret(context.Background(), 7,
		models.RecoverySecret{Kind: models.SecretCode, Value: "123456", ExpiresAt: exp})
	if err != nil {
		t.Fatalf("SetRecoverySecret error: %v", err)
	}
}

func TestSetRecoverySecret_TokenClearsCode(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+reset_token\s*=\s*\$1,\s*reset_token_expires\s*=\s*\$2,\s*reset_code\s*=\s*NULL,\s*reset_code_expires\s*=\s*NULL,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$3\s*$`

	exp := time.Now().Add(time.Hour)
	mock.ExpectExec(q).WithArgs("tok", exp, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetRecoverySecret(context.Background(), 7,
		models.RecoverySecret{Kind: models.SecretToken, Value: "tok", ExpiresAt: exp})
	if err != nil {
		t.Fatalf("SetRecoverySecret error: %v", err)
	}
}

func TestConsumeRecoverySecret_GuardHit(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$1,.*WHERE\s+id\s*=\s*\$2\s+AND\s+reset_code\s*=\s*\$3$`

	mock.ExpectExec(q).WithArgs("newhash", int64(7), "123456").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.ConsumeRecoverySecret(context.Background(), 7, models.SecretCode, "123456", "newhash")
	if err != nil {
		t.Fatalf("ConsumeRecoverySecret error: %v", err)
	}
	if !ok {
		t.Fatalf("expected guard hit")
	}
}

func TestConsumeRecoverySecret_GuardMiss(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+password_hash`).
		WithArgs("newhash", int64(7), "stale-token").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.ConsumeRecoverySecret(context.Background(), 7, models.SecretToken, "stale-token", "newhash")
	if err != nil {
		t.Fatalf("ConsumeRecoverySecret error: %v", err)
	}
	if ok {
		t.Fatalf("expected guard miss for replayed secret")
	}
}

func TestUpdatePasswordHash_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+users\s+SET\s+password_hash`).
		WithArgs("h", int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePasswordHash(context.Background(), 99, "h")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
