package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgtwins/ms-auth/internal/common"
	"github.com/dgtwins/ms-auth/internal/dbx"
	"github.com/dgtwins/ms-auth/internal/server/models"
)

const userColumns = `id, name, email, password_hash, role, is_active,
	 phone_number, security_question, security_answer_hash,
	 reset_token, reset_token_expires, reset_code, reset_code_expires,
	 created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (name, email, password_hash, role, is_active, phone_number, security_question, security_answer_hash)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Name, user.Email, user.PasswordHash, string(user.Role), user.IsActive,
		nullString(user.PhoneNumber), nullString(user.SecurityQuestion), nullString(user.SecurityAnswerHash)).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`

	var conds []string
	var args []any
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conds = append(conds, "is_active = $"+strconv.Itoa(len(args)))
	}
	if filter.Role != nil {
		args = append(args, string(*filter.Role))
		conds = append(conds, "role = $"+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += " ORDER BY id"
	args = append(args, filter.Limit)
	query += " LIMIT $" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users
		 SET name = $1, email = $2, role = $3, is_active = $4,
		     phone_number = $5, security_question = $6, security_answer_hash = $7,
		     updated_at = now()
		 WHERE id = $8
		 `

	return r.exec(ctx, query,
		user.Name, user.Email, string(user.Role), user.IsActive,
		nullString(user.PhoneNumber), nullString(user.SecurityQuestion), nullString(user.SecurityAnswerHash),
		user.ID)
}

func (r *PostgresRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE users SET is_active = $1, updated_at = now() WHERE id = $2`
	return r.exec(ctx, query, active, id)
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`
	return r.exec(ctx, query, hash, id)
}

func (r *PostgresRepository) SetRecoverySecret(ctx context.Context, id int64, secret models.RecoverySecret) error {
	// One statement writes the chosen secret and clears its sibling,
	// keeping the at-most-one-active invariant even under concurrent calls.
	var query string
	switch secret.Kind {
	case models.SecretCode:
		query =
			`UPDATE users
			 SET reset_code = $1, reset_code_expires = $2,
			     reset_token = NULL, reset_token_expires = NULL,
			     updated_at = now()
			 WHERE id = $3
			 `
	case models.SecretToken:
		query =
			`UPDATE users
			 SET reset_token = $1, reset_token_expires = $2,
			     reset_code = NULL, reset_code_expires = NULL,
			     updated_at = now()
			 WHERE id = $3
			 `
	default:
		return fmt.Errorf("unknown secret kind %q", secret.Kind)
	}

	return r.exec(ctx, query, secret.Value, secret.ExpiresAt, id)
}

func (r *PostgresRepository) ClearRecoverySecret(ctx context.Context, id int64) error {
	query :=
		`UPDATE users
		 SET reset_token = NULL, reset_token_expires = NULL,
		     reset_code = NULL, reset_code_expires = NULL,
		     updated_at = now()
		 WHERE id = $1
		 `
	return r.exec(ctx, query, id)
}

func (r *PostgresRepository) ConsumeRecoverySecret(ctx context.Context, id int64, kind models.SecretKind, value string, newHash string) (bool, error) {
	var guard string
	switch kind {
	case models.SecretCode:
		guard = "reset_code = $3"
	case models.SecretToken:
		guard = "reset_token = $3"
	default:
		return false, fmt.Errorf("unknown secret kind %q", kind)
	}

	query :=
		`UPDATE users
		 SET password_hash = $1,
		     reset_token = NULL, reset_token_expires = NULL,
		     reset_code = NULL, reset_code_expires = NULL,
		     updated_at = now()
		 WHERE id = $2 AND ` + guard

	res, err := r.db.ExecContext(ctx, query, newHash, id, value)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n > 0, nil
}

// --- helpers ---

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var role string
	var phone, question, answerHash sql.NullString
	var resetToken, resetCode sql.NullString
	var resetTokenExpires, resetCodeExpires sql.NullTime

	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &role, &user.IsActive,
		&phone, &question, &answerHash,
		&resetToken, &resetTokenExpires, &resetCode, &resetCodeExpires,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}

	user.Role = models.Role(role)
	user.PhoneNumber = phone.String
	user.SecurityQuestion = question.String
	user.SecurityAnswerHash = answerHash.String

	// The columns are dual, the model is single: a stored code wins over a
	// stored token, though the writes above never leave both set.
	switch {
	case resetCode.Valid:
		user.Recovery = &models.RecoverySecret{Kind: models.SecretCode, Value: resetCode.String}
		if resetCodeExpires.Valid {
			user.Recovery.ExpiresAt = resetCodeExpires.Time
		}
	case resetToken.Valid:
		user.Recovery = &models.RecoverySecret{Kind: models.SecretToken, Value: resetToken.String}
		if resetTokenExpires.Valid {
			user.Recovery.ExpiresAt = resetTokenExpires.Time
		}
	}

	return user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
