package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"fileshare/internal/archive"
	"fileshare/internal/models"

	"go.uber.org/zap"
)

// PrepareExport resolves the requested ids to the non-deleted files the user
// can access, in request order and without duplicates.
func (s *Service) PrepareExport(ctx context.Context, user *models.User, fileIDs []string) ([]models.File, error) {
	if user == nil {
		return nil, ErrNothingToExport
	}
	seen := make(map[string]struct{}, len(fileIDs))
	ids := make([]string, 0, len(fileIDs))
	for _, id := range fileIDs {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, ErrNothingToExport
	}

	found, err := s.store.GetFilesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	grants, err := s.store.GetGrantsForUser(ctx, user.ID, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.File, len(found))
	for _, f := range found {
		byID[f.ID] = f
	}
	selected := make([]models.File, 0, len(found))
	for _, id := range ids {
		f, ok := byID[id]
		if !ok || f.IsDeleted {
			continue
		}
		if !s.access.CanAccess(&f, user, grants[id]) {
			continue
		}
		selected = append(selected, f)
	}
	if len(selected) == 0 {
		return nil, ErrNothingToExport
	}
	return selected, nil
}

// WriteExport streams a zip of files to w, naming entries after the original
// file names. Files whose bytes are missing are skipped. It returns the number
// of files included.
func (s *Service) WriteExport(ctx context.Context, files []models.File, w io.Writer) (int, error) {
	start := time.Now()
	zw := archive.NewWriter(w)
	included := make([]string, 0, len(files))

	for i := range files {
		f := &files[i]
		rc, err := s.Open(ctx, f)
		if err != nil {
			if errors.Is(err, ErrNotFoundOnDisk) {
				s.log.Warn("skipping file missing on disk in export", zap.String("file_id", f.ID), zap.String("path", f.Path))
				continue
			}
			zw.Close()
			return len(included), err
		}
		_, err = zw.Add(f.OriginalFilename, f.UpdatedAt, rc)
		rc.Close()
		if err != nil {
			zw.Close()
			return len(included), fmt.Errorf("%w: %v", ErrStorageIO, err)
		}
		included = append(included, f.ID)
	}
	if err := zw.Close(); err != nil {
		return len(included), err
	}

	if err := s.store.TouchFiles(ctx, included); err != nil {
		s.log.Warn("failed to update last access for export", zap.Error(err))
	}
	s.log.Info("export written", zap.Int("files", len(included)), since(start))
	return len(included), nil
}

// Export is PrepareExport followed by WriteExport.
func (s *Service) Export(ctx context.Context, user *models.User, fileIDs []string, w io.Writer) (int, error) {
	selected, err := s.PrepareExport(ctx, user, fileIDs)
	if err != nil {
		return 0, err
	}
	return s.WriteExport(ctx, selected, w)
}
