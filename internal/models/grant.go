package models

import "time"

// Grant gives a non-owning user access to a file.
type Grant struct {
	FileID    string    `json:"file_id"`
	UserID    int64     `json:"user_id"`
	CanWrite  bool      `json:"can_write"`
	CanDelete bool      `json:"can_delete"`
	GrantedAt time.Time `json:"granted_at"`
}

func (g *Grant) Matches(fileID string, userID int64) bool {
	return g != nil && g.FileID == fileID && g.UserID == userID
}
