package database

import (
	"context"
	"errors"

	"fileshare/internal/models"

	"github.com/jackc/pgx/v5"
)

const fileColumns = `id, filename, original_filename, path, size_bytes, mime_type, is_public,
	is_deleted, owner_id, created_at, updated_at, last_accessed_at, deleted_at`

func scanFile(row pgx.Row) (*models.File, error) {
	var file models.File
	err := row.Scan(
		&file.ID,
		&file.Filename,
		&file.OriginalFilename,
		&file.Path,
		&file.SizeBytes,
		&file.MimeType,
		&file.IsPublic,
		&file.IsDeleted,
		&file.OwnerID,
		&file.CreatedAt,
		&file.UpdatedAt,
		&file.LastAccessedAt,
		&file.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func optionalFile(file *models.File, err error) (*models.File, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return file, nil
}

func collectFiles(rows pgx.Rows, err error) ([]models.File, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

type CreateFileParams struct {
	ID               string
	Filename         string
	OriginalFilename string
	Path             string
	SizeBytes        int64
	MimeType         string
	IsPublic         bool
	OwnerID          int64
}

func (q *Queries) CreateFile(ctx context.Context, arg CreateFileParams) (*models.File, error) {
	query := `
		INSERT INTO files (id, filename, original_filename, path, size_bytes, mime_type, is_public, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + fileColumns

	file, err := scanFile(q.db.QueryRow(ctx, query,
		arg.ID,
		arg.Filename,
		arg.OriginalFilename,
		arg.Path,
		arg.SizeBytes,
		arg.MimeType,
		arg.IsPublic,
		arg.OwnerID,
	))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return file, nil
}

func (q *Queries) FileExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM files WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// GetFile returns the row whatever its deletion state, or nil.
func (q *Queries) GetFile(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	return optionalFile(scanFile(q.db.QueryRow(ctx, query, id)))
}

// GetFileForUpdate locks the row until the surrounding transaction ends.
func (q *Queries) GetFileForUpdate(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 FOR UPDATE`
	return optionalFile(scanFile(q.db.QueryRow(ctx, query, id)))
}

func (q *Queries) GetFilesByIDs(ctx context.Context, ids []string) ([]models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = ANY($1) ORDER BY created_at, id`
	return collectFiles(q.db.Query(ctx, query, ids))
}

func (q *Queries) ListOwnedFiles(ctx context.Context, ownerID int64, limit int, offset int) ([]models.File, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files
		WHERE owner_id = $1 AND NOT is_deleted
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`
	return collectFiles(q.db.Query(ctx, query, ownerID, limit, offset))
}

// ListAllOwnedFiles includes soft-deleted rows.
func (q *Queries) ListAllOwnedFiles(ctx context.Context, ownerID int64) ([]models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE owner_id = $1 ORDER BY id`
	return collectFiles(q.db.Query(ctx, query, ownerID))
}

func (q *Queries) ListSharedFiles(ctx context.Context, userID int64, limit int, offset int) ([]models.File, error) {
	query := `
		SELECT ` + prefixed("f", fileColumns) + `
		FROM files f
		JOIN file_grants g ON g.file_id = f.id
		WHERE g.user_id = $1 AND f.owner_id <> $1 AND NOT f.is_deleted
		ORDER BY g.granted_at DESC, f.id
		LIMIT $2 OFFSET $3`
	return collectFiles(q.db.Query(ctx, query, userID, limit, offset))
}

func (q *Queries) ListTrash(ctx context.Context, ownerID int64, limit int, offset int) ([]models.File, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files
		WHERE owner_id = $1 AND is_deleted
		ORDER BY deleted_at DESC, id
		LIMIT $2 OFFSET $3`
	return collectFiles(q.db.Query(ctx, query, ownerID, limit, offset))
}

// SoftDeleteFile returns nil when the file does not exist or is already deleted.
func (q *Queries) SoftDeleteFile(ctx context.Context, id string) (*models.File, error) {
	query := `
		UPDATE files
		SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted
		RETURNING ` + fileColumns
	return optionalFile(scanFile(q.db.QueryRow(ctx, query, id)))
}

func (q *Queries) RestoreFile(ctx context.Context, id string) (*models.File, error) {
	query := `
		UPDATE files
		SET is_deleted = FALSE, deleted_at = NULL, updated_at = NOW()
		WHERE id = $1 AND is_deleted
		RETURNING ` + fileColumns
	return optionalFile(scanFile(q.db.QueryRow(ctx, query, id)))
}

func (q *Queries) UpdateFileLocation(ctx context.Context, id string, ownerID int64, path, filename string) (*models.File, error) {
	query := `
		UPDATE files
		SET owner_id = $2, path = $3, filename = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + fileColumns
	file, err := optionalFile(scanFile(q.db.QueryRow(ctx, query, id, ownerID, path, filename)))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return file, nil
}

func (q *Queries) SetFilePublic(ctx context.Context, id string, public bool) (*models.File, error) {
	query := `
		UPDATE files SET is_public = $2, updated_at = NOW()
		WHERE id = $1 AND NOT is_deleted
		RETURNING ` + fileColumns
	return optionalFile(scanFile(q.db.QueryRow(ctx, query, id, public)))
}

func (q *Queries) TouchFile(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, `UPDATE files SET last_accessed_at = NOW() WHERE id = $1`, id)
	return err
}

func (q *Queries) TouchFiles(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.db.Exec(ctx, `UPDATE files SET last_accessed_at = NOW() WHERE id = ANY($1)`, ids)
	return err
}

// PurgeTrash hard-deletes the owner's soft-deleted rows and returns their paths.
func (q *Queries) PurgeTrash(ctx context.Context, ownerID int64) ([]string, error) {
	rows, err := q.db.Query(ctx, `DELETE FROM files WHERE owner_id = $1 AND is_deleted RETURNING path`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

type UserStats struct {
	OwnedFiles   int64 `json:"owned_files"`
	SharedWithMe int64 `json:"shared_with_me"`
	TrashedFiles int64 `json:"trashed_files"`
	TotalBytes   int64 `json:"total_bytes"`
}

func (q *Queries) GetUserStats(ctx context.Context, userID int64) (UserStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM files WHERE owner_id = $1 AND NOT is_deleted),
			(SELECT COUNT(*) FROM file_grants g JOIN files f ON f.id = g.file_id
				WHERE g.user_id = $1 AND f.owner_id <> $1 AND NOT f.is_deleted),
			(SELECT COUNT(*) FROM files WHERE owner_id = $1 AND is_deleted),
			(SELECT COALESCE(SUM(size_bytes), 0)::BIGINT FROM files WHERE owner_id = $1 AND NOT is_deleted)`

	var stats UserStats
	err := q.db.QueryRow(ctx, query, userID).Scan(
		&stats.OwnedFiles,
		&stats.SharedWithMe,
		&stats.TrashedFiles,
		&stats.TotalBytes,
	)
	return stats, err
}
