package database

import (
	"context"
	"errors"

	"fileshare/internal/models"
	"fileshare/internal/permissions"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, name, password_hash, role, is_verified, is_active,
	created_at, updated_at, last_login_at, email_confirmed_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	var role string
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&role,
		&user.IsVerified,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLoginAt,
		&user.EmailConfirmedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = permissions.Role(role)
	return &user, nil
}

// optionalUser turns pgx.ErrNoRows into (nil, nil).
func optionalUser(user *models.User, err error) (*models.User, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

type CreateUserParams struct {
	Email        string
	Name         string
	PasswordHash string
	Role         permissions.Role
	IsVerified   bool
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (*models.User, error) {
	query := `
		INSERT INTO users (email, name, password_hash, role, is_verified, email_confirmed_at)
		VALUES ($1, $2, $3, $4, $5, CASE WHEN $5 THEN NOW() END)
		RETURNING ` + userColumns

	user, err := scanUser(q.db.QueryRow(ctx, query,
		arg.Email, arg.Name, arg.PasswordHash, string(arg.Role), arg.IsVerified))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return user, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return optionalUser(scanUser(q.db.QueryRow(ctx, query, id)))
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return optionalUser(scanUser(q.db.QueryRow(ctx, query, email)))
}

// MarkUserVerified is idempotent: the first confirmation time is kept.
func (q *Queries) MarkUserVerified(ctx context.Context, id int64) (*models.User, error) {
	query := `
		UPDATE users
		SET is_verified = TRUE,
			email_confirmed_at = COALESCE(email_confirmed_at, NOW()),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return optionalUser(scanUser(q.db.QueryRow(ctx, query, id)))
}

func (q *Queries) UpdateLastLogin(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

func (q *Queries) UpdateUserPassword(ctx context.Context, userID int64, newPasswordHash string) (bool, error) {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	res, err := q.db.Exec(ctx, query, newPasswordHash, userID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) SetUserActive(ctx context.Context, userID int64, active bool) (bool, error) {
	query := `UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2`
	res, err := q.db.Exec(ctx, query, active, userID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) SetUserRole(ctx context.Context, userID int64, role permissions.Role) (bool, error) {
	query := `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`
	res, err := q.db.Exec(ctx, query, string(role), userID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// UpdateUserProfile changes name and email. A changed email is no longer
// considered verified.
func (q *Queries) UpdateUserProfile(ctx context.Context, userID int64, name, email string) (*models.User, error) {
	query := `
		UPDATE users
		SET name = $2,
			is_verified = CASE WHEN email = $3 THEN is_verified ELSE FALSE END,
			email_confirmed_at = CASE WHEN email = $3 THEN email_confirmed_at ELSE NULL END,
			email = $3,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := optionalUser(scanUser(q.db.QueryRow(ctx, query, userID, name, email)))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return user, nil
}

func (q *Queries) DeleteUser(ctx context.Context, userID int64) (bool, error) {
	res, err := q.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (q *Queries) ListUsers(ctx context.Context, limit int, offset int) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := q.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}
