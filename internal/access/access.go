// Package access decides whether a user may read, edit or delete a file.
//
// The predicates are pure functions of already-loaded state: the file, the user
// and the user's grant on that file (nil when there is none).
package access

import (
	"context"
	"errors"

	"fileshare/internal/models"
	"fileshare/internal/permissions"
)

var ErrFileNotFound = errors.New("file not found")
var ErrUserNotFound = errors.New("user not found")
var ErrAccessDenied = errors.New("access denied")

type Action int

const (
	ActionAccess Action = iota
	ActionEdit
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionAccess:
		return "access"
	case ActionEdit:
		return "edit"
	case ActionDelete:
		return "delete"
	}
	return "unknown"
}

// Loader fetches the state the evaluator needs. Missing rows are returned as
// (nil, nil); *database.Queries satisfies it.
type Loader interface {
	GetFile(ctx context.Context, id string) (*models.File, error)
	GetGrant(ctx context.Context, fileID string, userID int64) (*models.Grant, error)
}

type Evaluator struct {
	perms *permissions.Table
}

func New(perms *permissions.Table) *Evaluator {
	if perms == nil {
		perms = permissions.Default()
	}
	return &Evaluator{perms: perms}
}

func (e *Evaluator) Permissions() *permissions.Table { return e.perms }

func isOwner(f *models.File, u *models.User) bool {
	return f.OwnerID == u.ID
}

func (e *Evaluator) CanAccess(f *models.File, u *models.User, g *models.Grant) bool {
	return isOwner(f, u) ||
		f.IsPublic ||
		g.Matches(f.ID, u.ID) ||
		e.perms.RoleHas(u.Role, permissions.ManageFiles)
}

// CanEdit does not honour manage_files.
func (e *Evaluator) CanEdit(f *models.File, u *models.User, g *models.Grant) bool {
	return isOwner(f, u) || (g.Matches(f.ID, u.ID) && g.CanWrite)
}

func (e *Evaluator) CanDelete(f *models.File, u *models.User, g *models.Grant) bool {
	if isOwner(f, u) || (g.Matches(f.ID, u.ID) && g.CanDelete) {
		return true
	}
	if u.Role == permissions.RoleAdmin {
		return true
	}
	return e.perms.RoleHas(u.Role, permissions.DeleteFiles) && isOwner(f, u)
}

func (e *Evaluator) Allowed(a Action, f *models.File, u *models.User, g *models.Grant) bool {
	switch a {
	case ActionAccess:
		return e.CanAccess(f, u, g)
	case ActionEdit:
		return e.CanEdit(f, u, g)
	case ActionDelete:
		return e.CanDelete(f, u, g)
	}
	return false
}

// Authorize loads the file and the user's grant and evaluates a. A caller who
// cannot see the file at all gets ErrFileNotFound so existence is not leaked;
// one who can see it but lacks the requested right gets ErrAccessDenied.
func (e *Evaluator) Authorize(ctx context.Context, l Loader, fileID string, u *models.User, a Action) (*models.File, *models.Grant, error) {
	if u == nil {
		return nil, nil, ErrUserNotFound
	}
	f, err := l.GetFile(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if f == nil {
		return nil, nil, ErrFileNotFound
	}

	var g *models.Grant
	if !isOwner(f, u) {
		g, err = l.GetGrant(ctx, f.ID, u.ID)
		if err != nil {
			return nil, nil, err
		}
	}

	if !e.CanAccess(f, u, g) {
		return nil, nil, ErrFileNotFound
	}
	if !e.Allowed(a, f, u, g) {
		return f, g, ErrAccessDenied
	}
	return f, g, nil
}
