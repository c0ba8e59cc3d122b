package files

import (
	"errors"

	"fileshare/internal/access"
)

var (
	ErrUnsupportedType = errors.New("file type not allowed")
	ErrSizeExceeded    = errors.New("file exceeds maximum upload size")
	ErrSizeMismatch    = errors.New("stored size differs from declared size")
	ErrInvalidFilename = errors.New("invalid file name")
	ErrNotFoundOnDisk  = errors.New("file contents missing from storage")
	ErrStorageIO       = errors.New("storage i/o failure")
	ErrNothingToExport = errors.New("no accessible files selected")
	ErrNotDeleted      = errors.New("file is not in the trash")
	ErrIntegrity       = errors.New("file metadata and storage are inconsistent")

	ErrFileNotFound = access.ErrFileNotFound
	ErrAccessDenied = access.ErrAccessDenied
)
