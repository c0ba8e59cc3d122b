package models

import "time"

type File struct {
	ID               string     `json:"id"`
	Filename         string     `json:"filename"`
	OriginalFilename string     `json:"original_filename"`
	Path             string     `json:"-"`
	SizeBytes        int64      `json:"size_bytes"`
	MimeType         string     `json:"mime_type"`
	IsPublic         bool       `json:"is_public"`
	IsDeleted        bool       `json:"is_deleted"`
	OwnerID          int64      `json:"owner_id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	LastAccessedAt   *time.Time `json:"last_accessed_at,omitempty"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
}

type FileState string

const (
	FileActive      FileState = "active"
	FileSoftDeleted FileState = "soft_deleted"
)

func (f *File) State() FileState {
	if f.IsDeleted {
		return FileSoftDeleted
	}
	return FileActive
}
