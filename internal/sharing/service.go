// Package sharing records who besides the owner may use a file, and moves
// ownership between users.
package sharing

import (
	"context"
	"errors"
	"fmt"

	"fileshare/internal/database"
	"fileshare/internal/files"
	"fileshare/internal/models"

	"go.uber.org/zap"
)

var (
	ErrNotOwner      = errors.New("only the owner can do this")
	ErrSelfShare     = errors.New("cannot share a file with its owner")
	ErrSelfTransfer  = errors.New("file already belongs to this user")
	ErrAlreadyShared = errors.New("file is already shared with this user")
	ErrNotShared     = errors.New("file is not shared with this user")
	ErrStaleFile     = errors.New("file changed since it was loaded")
	ErrUserNotFound  = errors.New("user not found")
	ErrFileNotFound  = files.ErrFileNotFound
)

type Service struct {
	store     *database.Store
	files     *files.Service
	publisher database.Publisher
	log       *zap.Logger
}

func NewService(store *database.Store, fs *files.Service, pub database.Publisher, log *zap.Logger) *Service {
	return &Service{store: store, files: fs, publisher: pub, log: log.Named("sharing")}
}

// lockOwned re-reads the file under a row lock and checks callerID still owns it.
func lockOwned(ctx context.Context, q *database.Queries, fileID string, callerID int64) (*models.File, error) {
	f, err := q.GetFileForUpdate(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f == nil || f.IsDeleted {
		return nil, ErrFileNotFound
	}
	if f.OwnerID != callerID {
		return nil, ErrNotOwner
	}
	return f, nil
}

func (s *Service) Grant(ctx context.Context, file *models.File, callerID, granteeID int64, canWrite, canDelete bool) (*models.Grant, error) {
	if file.OwnerID != callerID {
		return nil, ErrNotOwner
	}
	if granteeID == file.OwnerID {
		return nil, ErrSelfShare
	}

	var (
		grant  *models.Grant
		outbox database.Outbox
	)
	err := s.store.ExecTx(ctx, func(q *database.Queries) error {
		f, err := lockOwned(ctx, q, file.ID, callerID)
		if err != nil {
			return err
		}
		grantee, err := q.GetUserByID(ctx, granteeID)
		if err != nil {
			return err
		}
		if grantee == nil {
			return ErrUserNotFound
		}

		grant, err = q.CreateGrant(ctx, f.ID, granteeID, canWrite, canDelete)
		switch {
		case errors.Is(err, database.ErrShareAlreadyExists):
			return ErrAlreadyShared
		case errors.Is(err, database.ErrUserNotFound):
			return ErrUserNotFound
		case err != nil:
			return err
		}

		payload := map[string]interface{}{
			"file_id":           f.ID,
			"original_filename": f.OriginalFilename,
			"owner_id":          f.OwnerID,
			"can_write":         canWrite,
			"can_delete":        canDelete,
		}
		return outbox.Log(ctx, q, granteeID, database.EventFileSharedWithYou, payload)
	})
	if err != nil {
		return nil, err
	}
	outbox.Flush(s.publisher)

	s.log.Info("file shared",
		zap.String("file_id", file.ID),
		zap.Int64("owner_id", callerID),
		zap.Int64("grantee_id", granteeID),
	)
	return grant, nil
}

func (s *Service) Revoke(ctx context.Context, file *models.File, callerID, granteeID int64) error {
	if file.OwnerID != callerID {
		return ErrNotOwner
	}

	var outbox database.Outbox
	err := s.store.ExecTx(ctx, func(q *database.Queries) error {
		f, err := lockOwned(ctx, q, file.ID, callerID)
		if err != nil {
			return err
		}
		removed, err := q.DeleteGrant(ctx, f.ID, granteeID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrNotShared
		}
		return outbox.Log(ctx, q, granteeID, database.EventShareRevokedForYou, map[string]string{"file_id": f.ID})
	})
	if err != nil {
		return err
	}
	outbox.Flush(s.publisher)
	return nil
}

func (s *Service) UpdateGrant(ctx context.Context, file *models.File, callerID, granteeID int64, canWrite, canDelete bool) (*models.Grant, error) {
	if file.OwnerID != callerID {
		return nil, ErrNotOwner
	}

	var (
		grant  *models.Grant
		outbox database.Outbox
	)
	err := s.store.ExecTx(ctx, func(q *database.Queries) error {
		f, err := lockOwned(ctx, q, file.ID, callerID)
		if err != nil {
			return err
		}
		grant, err = q.UpdateGrant(ctx, f.ID, granteeID, canWrite, canDelete)
		if err != nil {
			return err
		}
		if grant == nil {
			return ErrNotShared
		}
		payload := map[string]interface{}{"file_id": f.ID, "can_write": canWrite, "can_delete": canDelete}
		return outbox.Log(ctx, q, granteeID, database.EventShareUpdated, payload)
	})
	if err != nil {
		return nil, err
	}
	outbox.Flush(s.publisher)
	return grant, nil
}

// TransferOwnership hands file to newOwnerID. file is the caller's snapshot:
// if the row's owner or modification time moved on since it was loaded, the
// transfer is refused with ErrStaleFile.
func (s *Service) TransferOwnership(ctx context.Context, file *models.File, callerID, newOwnerID int64) (*models.File, error) {
	if file.OwnerID != callerID {
		return nil, ErrNotOwner
	}
	if newOwnerID == file.OwnerID {
		return nil, ErrSelfTransfer
	}

	var (
		moved  *models.File
		undo   func() error
		outbox database.Outbox
	)
	err := s.store.ExecTx(ctx, func(q *database.Queries) error {
		current, err := q.GetFileForUpdate(ctx, file.ID)
		if err != nil {
			return err
		}
		if current == nil || current.IsDeleted {
			return ErrFileNotFound
		}
		if current.OwnerID != file.OwnerID || !current.UpdatedAt.Equal(file.UpdatedAt) {
			return ErrStaleFile
		}

		newOwner, err := q.GetUserByID(ctx, newOwnerID)
		if err != nil {
			return err
		}
		if newOwner == nil {
			return ErrUserNotFound
		}

		moved, undo, err = s.files.Move(ctx, q, current, newOwnerID)
		if err != nil {
			return err
		}

		if _, err := q.DeleteGrant(ctx, current.ID, newOwnerID); err != nil {
			return err
		}

		payload := map[string]interface{}{
			"file_id":           current.ID,
			"original_filename": current.OriginalFilename,
			"previous_owner_id": current.OwnerID,
		}
		if err := outbox.Log(ctx, q, newOwnerID, database.EventFileTransferredToYou, payload); err != nil {
			return err
		}
		return outbox.Log(ctx, q, current.OwnerID, database.EventFileTransferredAway,
			map[string]interface{}{"file_id": current.ID, "new_owner_id": newOwnerID})
	})
	if err != nil {
		if undo != nil {
			if undoErr := undo(); undoErr != nil {
				s.files.ReportIntegrity(file.ID, moved.Path, file.Path, undoErr)
				return nil, fmt.Errorf("%w: %v (reverse move failed: %v)", files.ErrIntegrity, err, undoErr)
			}
		}
		return nil, err
	}
	outbox.Flush(s.publisher)

	s.log.Info("ownership transferred",
		zap.String("file_id", file.ID),
		zap.Int64("from", callerID),
		zap.Int64("to", newOwnerID),
	)
	return moved, nil
}

func (s *Service) ListGrants(ctx context.Context, fileID string) ([]database.GrantWithUser, error) {
	return s.store.ListGrantsForFile(ctx, fileID)
}

func (s *Service) GetGrant(ctx context.Context, fileID string, userID int64) (*models.Grant, error) {
	return s.store.GetGrant(ctx, fileID, userID)
}

func (s *Service) ListOutgoing(ctx context.Context, ownerID int64, limit, offset int) ([]database.OutgoingGrant, error) {
	return s.store.ListOutgoingGrants(ctx, ownerID, limit, offset)
}
