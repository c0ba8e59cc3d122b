package access

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"fileshare/internal/models"
	"fileshare/internal/permissions"

	"github.com/stretchr/testify/require"
)

func newUser(id int64, role permissions.Role) *models.User {
	return &models.User{ID: id, Role: role, IsActive: true}
}

func TestCanAccess(t *testing.T) {
	e := New(nil)
	owner := newUser(1, permissions.RoleUser)
	other := newUser(2, permissions.RoleUser)
	manager := newUser(3, permissions.RoleManager)
	guest := newUser(4, permissions.RoleGuest)
	f := &models.File{ID: "f1", OwnerID: owner.ID}

	require.True(t, e.CanAccess(f, owner, nil))
	require.False(t, e.CanAccess(f, other, nil))
	require.False(t, e.CanAccess(f, guest, nil))
	require.True(t, e.CanAccess(f, manager, nil), "manage_files reaches every file")

	g := &models.Grant{FileID: f.ID, UserID: other.ID}
	require.True(t, e.CanAccess(f, other, g))

	wrongGrant := &models.Grant{FileID: "f2", UserID: other.ID}
	require.False(t, e.CanAccess(f, other, wrongGrant), "a grant on another file does not count")

	public := &models.File{ID: "f3", OwnerID: owner.ID, IsPublic: true}
	require.True(t, e.CanAccess(public, guest, nil))
}

func TestCanEditIgnoresManageFiles(t *testing.T) {
	e := New(nil)
	owner := newUser(1, permissions.RoleUser)
	other := newUser(2, permissions.RoleUser)
	admin := newUser(3, permissions.RoleAdmin)
	f := &models.File{ID: "f1", OwnerID: owner.ID}

	require.True(t, e.CanEdit(f, owner, nil))
	require.False(t, e.CanEdit(f, admin, nil))
	require.False(t, e.CanEdit(f, other, &models.Grant{FileID: f.ID, UserID: other.ID}))
	require.True(t, e.CanEdit(f, other, &models.Grant{FileID: f.ID, UserID: other.ID, CanWrite: true}))
}

func TestCanDelete(t *testing.T) {
	e := New(nil)
	owner := newUser(1, permissions.RoleUser)
	other := newUser(2, permissions.RoleUser)
	admin := newUser(3, permissions.RoleAdmin)
	manager := newUser(4, permissions.RoleManager)
	f := &models.File{ID: "f1", OwnerID: owner.ID}

	require.True(t, e.CanDelete(f, owner, nil))
	require.True(t, e.CanDelete(f, admin, nil))
	require.False(t, e.CanDelete(f, manager, nil), "delete_files alone does not reach other owners' files")
	require.False(t, e.CanDelete(f, other, &models.Grant{FileID: f.ID, UserID: other.ID, CanWrite: true}))
	require.True(t, e.CanDelete(f, other, &models.Grant{FileID: f.ID, UserID: other.ID, CanDelete: true}))
}

func TestGrantWriteWithoutDelete(t *testing.T) {
	e := New(nil)
	owner := newUser(1, permissions.RoleUser)
	grantee := newUser(2, permissions.RoleUser)
	f := &models.File{ID: "f1", OwnerID: owner.ID}
	g := &models.Grant{FileID: f.ID, UserID: grantee.ID, CanWrite: true}

	require.True(t, e.CanEdit(f, grantee, g))
	require.False(t, e.CanDelete(f, grantee, g))

	require.False(t, e.CanEdit(f, grantee, nil))
	require.False(t, e.CanDelete(f, grantee, nil))
}

func TestCustomTable(t *testing.T) {
	table, err := permissions.NewTable(map[permissions.Role][]permissions.Capability{
		permissions.RoleGuest: {permissions.ManageFiles},
	})
	require.NoError(t, err)
	e := New(table)

	f := &models.File{ID: "f1", OwnerID: 1}
	require.True(t, e.CanAccess(f, newUser(9, permissions.RoleGuest), nil))
	require.False(t, e.CanAccess(f, newUser(8, permissions.RoleManager), nil))
}

type fakeLoader struct {
	files  map[string]*models.File
	grants map[string]*models.Grant
	err    error
}

func grantKey(fileID string, userID int64) string {
	return fmt.Sprintf("%s/%d", fileID, userID)
}

func (l *fakeLoader) GetFile(_ context.Context, id string) (*models.File, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.files[id], nil
}

func (l *fakeLoader) GetGrant(_ context.Context, fileID string, userID int64) (*models.Grant, error) {
	return l.grants[grantKey(fileID, userID)], nil
}

func TestAuthorize(t *testing.T) {
	e := New(nil)
	owner := newUser(1, permissions.RoleUser)
	reader := newUser(2, permissions.RoleUser)
	stranger := newUser(3, permissions.RoleUser)
	f := &models.File{ID: "f1", OwnerID: owner.ID}
	l := &fakeLoader{
		files:  map[string]*models.File{f.ID: f},
		grants: map[string]*models.Grant{grantKey(f.ID, reader.ID): {FileID: f.ID, UserID: reader.ID}},
	}
	ctx := context.Background()

	got, _, err := e.Authorize(ctx, l, f.ID, owner, ActionDelete)
	require.NoError(t, err)
	require.Equal(t, f, got)

	got, g, err := e.Authorize(ctx, l, f.ID, reader, ActionAccess)
	require.NoError(t, err)
	require.Equal(t, f, got)
	require.NotNil(t, g)

	_, _, err = e.Authorize(ctx, l, f.ID, reader, ActionEdit)
	require.ErrorIs(t, err, ErrAccessDenied)

	_, _, err = e.Authorize(ctx, l, f.ID, stranger, ActionAccess)
	require.ErrorIs(t, err, ErrFileNotFound, "invisible files look missing")

	_, _, err = e.Authorize(ctx, l, "missing", owner, ActionAccess)
	require.ErrorIs(t, err, ErrFileNotFound)

	_, _, err = e.Authorize(ctx, l, f.ID, nil, ActionAccess)
	require.ErrorIs(t, err, ErrUserNotFound)

	boom := errors.New("db down")
	_, _, err = e.Authorize(ctx, &fakeLoader{err: boom}, f.ID, owner, ActionAccess)
	require.ErrorIs(t, err, boom)
}
