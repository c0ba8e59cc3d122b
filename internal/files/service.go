// Package files owns file metadata and keeps it consistent with the bytes in
// storage.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"fileshare/internal/access"
	"fileshare/internal/database"
	"fileshare/internal/models"
	"fileshare/internal/permissions"
	"fileshare/internal/storage"

	"github.com/jaevor/go-nanoid"
	"go.uber.org/zap"
)

const (
	defaultMimeType = "application/octet-stream"
	maxIDRetries    = 10
	maxNameRetries  = 5
)

type Config struct {
	MaxUploadBytes    int64
	AllowedExtensions []string
	UnlinkOnDelete    bool
}

type Service struct {
	store     *database.Store
	storage   *storage.LocalStorage
	access    *access.Evaluator
	namer     *storage.Namer
	newID     func() string
	cfg       Config
	allowed   map[string]struct{}
	publisher database.Publisher
	log       *zap.Logger
}

func NewService(store *database.Store, st *storage.LocalStorage, ev *access.Evaluator, cfg Config, pub database.Publisher, log *zap.Logger) (*Service, error) {
	generateID, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize nanoid generator: %w", err)
	}
	namer, err := storage.NewNamer()
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &Service{
		store:     store,
		storage:   st,
		access:    ev,
		namer:     namer,
		newID:     generateID,
		cfg:       cfg,
		allowed:   allowed,
		publisher: pub,
		log:       log.Named("files"),
	}, nil
}

func (s *Service) Storage() *storage.LocalStorage { return s.storage }

func (s *Service) MaxUploadBytes() int64 { return s.cfg.MaxUploadBytes }

func (s *Service) generateUniqueID(ctx context.Context) (string, error) {
	for i := 0; i < maxIDRetries; i++ {
		id := s.newID()
		exists, err := s.store.FileExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("failed to check for file existence: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique ID after %d attempts", maxIDRetries)
}

// Validate checks a prospective upload without touching storage and returns
// the cleaned original name and its extension.
func (s *Service) Validate(originalFilename string, declaredSize int64) (string, string, error) {
	name := storage.CleanOriginalName(originalFilename)
	if name == "" || name == "." || name == ".." {
		return "", "", ErrInvalidFilename
	}
	ext := storage.Extension(name)
	if _, ok := s.allowed[ext]; !ok || ext == "" {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	if declaredSize > s.cfg.MaxUploadBytes {
		return "", "", ErrSizeExceeded
	}
	return name, ext, nil
}

func detectMimeType(contentType, ext string) string {
	if ct, _, err := mime.ParseMediaType(contentType); err == nil && ct != "" && ct != defaultMimeType {
		return ct
	}
	if byExt := mime.TypeByExtension("." + ext); byExt != "" {
		if ct, _, err := mime.ParseMediaType(byExt); err == nil {
			return ct
		}
	}
	return defaultMimeType
}

// Save stores an upload. The metadata row is created only after the bytes are
// on disk and verified; on any failure neither bytes nor row remain.
func (s *Service) Save(ctx context.Context, ownerID int64, originalFilename, contentType string, r io.Reader, declaredSize int64) (*models.File, error) {
	original, ext, err := s.Validate(originalFilename, declaredSize)
	if err != nil {
		return nil, err
	}

	var (
		rel      string
		filename string
		written  int64
	)
	for attempt := 0; ; attempt++ {
		filename = s.namer.Generate(original, ext)
		rel, written, err = s.storage.Write(ownerID, filename, r, s.cfg.MaxUploadBytes)
		if errors.Is(err, storage.ErrExists) && attempt < maxNameRetries-1 {
			continue
		}
		break
	}
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrLimitExceeded):
		return nil, ErrSizeExceeded
	default:
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	file, err := s.commitUpload(ctx, ownerID, original, ext, contentType, rel, filename, written, declaredSize)
	if err != nil {
		if rmErr := s.storage.Remove(rel); rmErr != nil {
			s.log.Warn("failed to remove rejected upload", zap.String("path", rel), zap.Error(rmErr))
		}
		return nil, err
	}
	return file, nil
}

func (s *Service) commitUpload(ctx context.Context, ownerID int64, original, ext, contentType, rel, filename string, written, declaredSize int64) (*models.File, error) {
	info, err := s.storage.Stat(rel)
	if err != nil {
		return nil, fmt.Errorf("%w: verify %s: %v", ErrStorageIO, rel, err)
	}
	if info.Size() != written {
		return nil, fmt.Errorf("%w: wrote %d bytes, found %d", ErrStorageIO, written, info.Size())
	}
	if declaredSize > 0 && declaredSize != written {
		return nil, fmt.Errorf("%w: declared %d, received %d", ErrSizeMismatch, declaredSize, written)
	}

	id, err := s.generateUniqueID(ctx)
	if err != nil {
		return nil, err
	}

	var (
		file   *models.File
		outbox database.Outbox
	)
	err = s.store.ExecTx(ctx, func(q *database.Queries) error {
		var err error
		file, err = q.CreateFile(ctx, database.CreateFileParams{
			ID:               id,
			Filename:         filename,
			OriginalFilename: original,
			Path:             rel,
			SizeBytes:        written,
			MimeType:         detectMimeType(contentType, ext),
			OwnerID:          ownerID,
		})
		if err != nil {
			return err
		}
		return outbox.Log(ctx, q, ownerID, database.EventFileUploaded, file)
	})
	if err != nil {
		return nil, err
	}
	outbox.Flush(s.publisher)

	s.log.Info("file uploaded",
		zap.String("file_id", file.ID),
		zap.Int64("owner_id", ownerID),
		zap.Int64("size_bytes", written),
	)
	return file, nil
}

// Open streams the stored bytes of f. It does not authorise.
func (s *Service) Open(_ context.Context, f *models.File) (io.ReadCloser, error) {
	rc, err := s.storage.Open(f.Path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFoundOnDisk
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	return rc, nil
}

func (s *Service) Touch(ctx context.Context, fileID string) error {
	return s.store.TouchFile(ctx, fileID)
}

// Get returns the file's metadata if the user may see it. Soft-deleted files
// stay visible so their history can be resolved.
func (s *Service) Get(ctx context.Context, user *models.User, fileID string) (*models.File, error) {
	f, _, err := s.access.Authorize(ctx, s.store.Queries, fileID, user, access.ActionAccess)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Download authorises the user, opens the bytes and records the access.
func (s *Service) Download(ctx context.Context, user *models.User, fileID string) (*models.File, io.ReadCloser, error) {
	f, _, err := s.access.Authorize(ctx, s.store.Queries, fileID, user, access.ActionAccess)
	if err != nil {
		return nil, nil, err
	}
	if f.IsDeleted {
		return nil, nil, ErrFileNotFound
	}

	rc, err := s.Open(ctx, f)
	if err != nil {
		if errors.Is(err, ErrNotFoundOnDisk) {
			s.log.Warn("file missing on disk", zap.String("file_id", f.ID), zap.String("path", f.Path))
		}
		return nil, nil, err
	}
	if err := s.Touch(ctx, f.ID); err != nil {
		s.log.Warn("failed to update last access", zap.String("file_id", f.ID), zap.Error(err))
	}
	return f, rc, nil
}

// lockedLoader reads the file row with FOR UPDATE so the access decision and
// the state change happen against the same row version.
type lockedLoader struct {
	q *database.Queries
}

func (l lockedLoader) GetFile(ctx context.Context, id string) (*models.File, error) {
	return l.q.GetFileForUpdate(ctx, id)
}

func (l lockedLoader) GetGrant(ctx context.Context, fileID string, userID int64) (*models.Grant, error) {
	return l.q.GetGrant(ctx, fileID, userID)
}

// Delete soft-deletes a file the user may delete. Unlinking the bytes happens
// after commit and its failure is only journaled.
func (s *Service) Delete(ctx context.Context, user *models.User, fileID string) (*models.File, error) {
	var (
		deleted *models.File
		outbox  database.Outbox
	)
	err := s.store.ExecTx(ctx, func(q *database.Queries) error {
		f, _, err := s.access.Authorize(ctx, lockedLoader{q}, fileID, user, access.ActionDelete)
		if err != nil {
			return err
		}
		if f.IsDeleted {
			return ErrFileNotFound
		}
		deleted, err = q.SoftDeleteFile(ctx, f.ID)
		if err != nil {
			return err
		}
		if deleted == nil {
			return ErrFileNotFound
		}
		payload := map[string]interface{}{"file_id": f.ID, "deleted_by": user.ID}
		if err := outbox.Log(ctx, q, f.OwnerID, database.EventFileDeleted, payload); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	outbox.Flush(s.publisher)

	if s.cfg.UnlinkOnDelete {
		if err := s.unlink(ctx, deleted); err != nil {
			s.log.Error("failed to unlink deleted file", zap.String("file_id", deleted.ID), zap.Error(err))
		}
	}
	return deleted, nil
}

// unlink removes the bytes of a deleted file. The row is re-locked first so
// a Restore that committed in between keeps its bytes; the remove happens
// while the lock is held.
func (s *Service) unlink(ctx context.Context, f *models.File) error {
	return s.store.ExecTx(ctx, func(q *database.Queries) error {
		current, err := q.GetFileForUpdate(ctx, f.ID)
		if err != nil {
			return err
		}
		if current == nil || !current.IsDeleted || current.Path != f.Path {
			return nil
		}
		rmErr := s.storage.Remove(current.Path)
		if rmErr == nil {
			return nil
		}
		s.log.Warn("failed to unlink deleted file",
			zap.String("file_id", current.ID),
			zap.String("path", current.Path),
			zap.Error(rmErr),
		)
		payload := map[string]string{"file_id": current.ID, "path": current.Path, "error": rmErr.Error()}
		_, err = q.LogEvent(ctx, current.OwnerID, database.EventFileUnlinkFailed, payload)
		return err
	})
}

// Restore brings a soft-deleted file back. Only the owner or an admin may
// restore, and only while the bytes still exist.
func (s *Service) Restore(ctx context.Context, user *models.User, fileID string) (*models.File, error) {
	var (
		restored *models.File
		outbox   database.Outbox
	)
	err := s.store.ExecTx(ctx, func(q *database.Queries) error {
		f, _, err := s.access.Authorize(ctx, lockedLoader{q}, fileID, user, access.ActionAccess)
		if err != nil {
			return err
		}
		if f.OwnerID != user.ID && user.Role != permissions.RoleAdmin {
			return ErrAccessDenied
		}
		if !f.IsDeleted {
			return ErrNotDeleted
		}
		if _, err := s.storage.Stat(f.Path); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrNotFoundOnDisk
			}
			return fmt.Errorf("%w: %v", ErrStorageIO, err)
		}
		restored, err = q.RestoreFile(ctx, f.ID)
		if err != nil {
			return err
		}
		if restored == nil {
			return ErrNotDeleted
		}
		return outbox.Log(ctx, q, f.OwnerID, database.EventFileRestored, map[string]string{"file_id": f.ID})
	})
	if err != nil {
		return nil, err
	}
	outbox.Flush(s.publisher)
	return restored, nil
}

func (s *Service) SetPublic(ctx context.Context, user *models.User, fileID string, public bool) (*models.File, error) {
	var updated *models.File
	err := s.store.ExecTx(ctx, func(q *database.Queries) error {
		f, _, err := s.access.Authorize(ctx, lockedLoader{q}, fileID, user, access.ActionEdit)
		if err != nil {
			return err
		}
		if f.IsDeleted {
			return ErrFileNotFound
		}
		updated, err = q.SetFilePublic(ctx, f.ID, public)
		if err != nil {
			return err
		}
		if updated == nil {
			return ErrFileNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// PurgeTrash permanently removes the owner's soft-deleted files and returns
// how many were purged.
func (s *Service) PurgeTrash(ctx context.Context, ownerID int64) (int, error) {
	var (
		paths  []string
		outbox database.Outbox
	)
	err := s.store.ExecTx(ctx, func(q *database.Queries) error {
		var err error
		paths, err = q.PurgeTrash(ctx, ownerID)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return nil
		}
		return outbox.Log(ctx, q, ownerID, database.EventTrashPurged, map[string]int{"count": len(paths)})
	})
	if err != nil {
		return 0, err
	}
	outbox.Flush(s.publisher)

	for _, p := range paths {
		if err := s.storage.Remove(p); err != nil {
			s.log.Warn("failed to remove purged file", zap.String("path", p), zap.Error(err))
		}
	}
	return len(paths), nil
}

// Move relocates f's bytes into newOwnerID's namespace and rewrites its
// metadata through q, which is expected to belong to the caller's unit of
// work. The returned undo moves the bytes back; call it if the unit of work
// fails after Move returned.
func (s *Service) Move(ctx context.Context, q *database.Queries, f *models.File, newOwnerID int64) (*models.File, func() error, error) {
	newRel, newName, err := s.storage.Move(f.Path, newOwnerID, f.Filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrNotFoundOnDisk
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	undo := func() error {
		return s.storage.Relocate(newRel, f.Path)
	}

	updated, err := q.UpdateFileLocation(ctx, f.ID, newOwnerID, newRel, newName)
	if err == nil && updated == nil {
		err = ErrFileNotFound
	}
	if err != nil {
		if undoErr := undo(); undoErr != nil {
			s.ReportIntegrity(f.ID, newRel, f.Path, undoErr)
			return nil, nil, fmt.Errorf("%w: %v (reverse move failed: %v)", ErrIntegrity, err, undoErr)
		}
		return nil, nil, err
	}
	return updated, undo, nil
}

// ReportIntegrity logs a metadata/storage divergence that needs an operator.
func (s *Service) ReportIntegrity(fileID, actualPath, recordedPath string, cause error) {
	s.log.Error("file storage diverged from metadata",
		zap.String("severity", "critical"),
		zap.String("file_id", fileID),
		zap.String("actual_path", actualPath),
		zap.String("recorded_path", recordedPath),
		zap.Error(cause),
	)
}

func (s *Service) ListOwned(ctx context.Context, ownerID int64, limit, offset int) ([]models.File, error) {
	return s.store.ListOwnedFiles(ctx, ownerID, limit, offset)
}

func (s *Service) ListShared(ctx context.Context, userID int64, limit, offset int) ([]models.File, error) {
	return s.store.ListSharedFiles(ctx, userID, limit, offset)
}

func (s *Service) ListTrash(ctx context.Context, ownerID int64, limit, offset int) ([]models.File, error) {
	return s.store.ListTrash(ctx, ownerID, limit, offset)
}

func (s *Service) Stats(ctx context.Context, userID int64) (database.UserStats, error) {
	return s.store.GetUserStats(ctx, userID)
}

// RemoveOwnerData deletes every byte stored for the given files and then the
// owner's namespace. Failures are logged and otherwise ignored.
func (s *Service) RemoveOwnerData(ownerID int64, owned []models.File) {
	for _, f := range owned {
		if err := s.storage.Remove(f.Path); err != nil {
			s.log.Warn("failed to remove file of deleted account",
				zap.Int64("owner_id", ownerID), zap.String("path", f.Path), zap.Error(err))
		}
	}
	if err := s.storage.RemoveNamespace(ownerID); err != nil {
		s.log.Warn("failed to remove namespace of deleted account", zap.Int64("owner_id", ownerID), zap.Error(err))
	}
}

func since(t time.Time) zap.Field { return zap.Duration("elapsed", time.Since(t)) }
