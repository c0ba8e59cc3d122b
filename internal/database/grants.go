package database

import (
	"context"
	"errors"
	"time"

	"fileshare/internal/models"

	"github.com/jackc/pgx/v5"
)

const grantColumns = `file_id, user_id, can_write, can_delete, granted_at`

func scanGrant(row pgx.Row) (*models.Grant, error) {
	var g models.Grant
	if err := row.Scan(&g.FileID, &g.UserID, &g.CanWrite, &g.CanDelete, &g.GrantedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func optionalGrant(g *models.Grant, err error) (*models.Grant, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return g, nil
}

func (q *Queries) CreateGrant(ctx context.Context, fileID string, userID int64, canWrite, canDelete bool) (*models.Grant, error) {
	query := `
		INSERT INTO file_grants (file_id, user_id, can_write, can_delete)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + grantColumns

	g, err := scanGrant(q.db.QueryRow(ctx, query, fileID, userID, canWrite, canDelete))
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, ErrShareAlreadyExists
		case isForeignKeyViolation(err):
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return g, nil
}

func (q *Queries) GetGrant(ctx context.Context, fileID string, userID int64) (*models.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM file_grants WHERE file_id = $1 AND user_id = $2`
	return optionalGrant(scanGrant(q.db.QueryRow(ctx, query, fileID, userID)))
}

func (q *Queries) UpdateGrant(ctx context.Context, fileID string, userID int64, canWrite, canDelete bool) (*models.Grant, error) {
	query := `
		UPDATE file_grants SET can_write = $3, can_delete = $4
		WHERE file_id = $1 AND user_id = $2
		RETURNING ` + grantColumns
	return optionalGrant(scanGrant(q.db.QueryRow(ctx, query, fileID, userID, canWrite, canDelete)))
}

func (q *Queries) DeleteGrant(ctx context.Context, fileID string, userID int64) (bool, error) {
	res, err := q.db.Exec(ctx, `DELETE FROM file_grants WHERE file_id = $1 AND user_id = $2`, fileID, userID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

type GrantWithUser struct {
	models.Grant
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (q *Queries) ListGrantsForFile(ctx context.Context, fileID string) ([]GrantWithUser, error) {
	query := `
		SELECT g.file_id, g.user_id, g.can_write, g.can_delete, g.granted_at, u.email, u.name
		FROM file_grants g
		JOIN users u ON u.id = g.user_id
		WHERE g.file_id = $1
		ORDER BY g.granted_at, g.user_id`
	rows, err := q.db.Query(ctx, query, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grants := []GrantWithUser{}
	for rows.Next() {
		var g GrantWithUser
		err := rows.Scan(&g.FileID, &g.UserID, &g.CanWrite, &g.CanDelete, &g.GrantedAt, &g.Email, &g.Name)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

type OutgoingGrant struct {
	FileID           string    `json:"file_id"`
	OriginalFilename string    `json:"original_filename"`
	RecipientID      int64     `json:"recipient_id"`
	RecipientEmail   string    `json:"recipient_email"`
	CanWrite         bool      `json:"can_write"`
	CanDelete        bool      `json:"can_delete"`
	GrantedAt        time.Time `json:"granted_at"`
}

// ListOutgoingGrants lists grants on files the owner still owns.
func (q *Queries) ListOutgoingGrants(ctx context.Context, ownerID int64, limit int, offset int) ([]OutgoingGrant, error) {
	query := `
		SELECT f.id, f.original_filename, u.id, u.email, g.can_write, g.can_delete, g.granted_at
		FROM file_grants g
		JOIN files f ON f.id = g.file_id
		JOIN users u ON u.id = g.user_id
		WHERE f.owner_id = $1 AND g.user_id <> $1 AND NOT f.is_deleted
		ORDER BY g.granted_at DESC, f.id
		LIMIT $2 OFFSET $3`
	rows, err := q.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grants := []OutgoingGrant{}
	for rows.Next() {
		var g OutgoingGrant
		err := rows.Scan(&g.FileID, &g.OriginalFilename, &g.RecipientID, &g.RecipientEmail,
			&g.CanWrite, &g.CanDelete, &g.GrantedAt)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// GetGrantsForUser returns the user's grants on the given files keyed by file id.
func (q *Queries) GetGrantsForUser(ctx context.Context, userID int64, fileIDs []string) (map[string]*models.Grant, error) {
	grants := make(map[string]*models.Grant, len(fileIDs))
	if len(fileIDs) == 0 {
		return grants, nil
	}
	query := `SELECT ` + grantColumns + ` FROM file_grants WHERE user_id = $1 AND file_id = ANY($2)`
	rows, err := q.db.Query(ctx, query, userID, fileIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants[g.FileID] = g
	}
	return grants, rows.Err()
}
