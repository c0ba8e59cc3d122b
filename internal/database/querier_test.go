package database

import (
	"context"
	"encoding/json"
	"testing"

	"fileshare/internal/database/dbtest"
	"fileshare/internal/models"
	"fileshare/internal/permissions"

	"github.com/jaevor/go-nanoid"
	"github.com/stretchr/testify/require"
)

var newID = func() func() string {
	gen, err := nanoid.Standard(21)
	if err != nil {
		panic(err)
	}
	return gen
}()

func createTestUser(t *testing.T, prefix string) *models.User {
	t.Helper()
	user, err := testStore.CreateUser(context.Background(), CreateUserParams{
		Email:        dbtest.Email(prefix),
		Name:         "User " + prefix,
		PasswordHash: "hash",
		Role:         permissions.RoleUser,
	})
	require.NoError(t, err)
	return user
}

func createTestFile(t *testing.T, ownerID int64, name string) *models.File {
	t.Helper()
	id := newID()
	file, err := testStore.CreateFile(context.Background(), CreateFileParams{
		ID:               id,
		Filename:         id + "_" + name,
		OriginalFilename: name,
		Path:             "x/" + id,
		SizeBytes:        10,
		MimeType:         "text/plain",
		OwnerID:          ownerID,
	})
	require.NoError(t, err)
	return file
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	user := createTestUser(t, "dup")
	require.False(t, user.IsVerified)
	require.True(t, user.IsActive)
	require.Nil(t, user.EmailConfirmedAt)
	require.Equal(t, permissions.RoleUser, user.Role)

	_, err := testStore.CreateUser(ctx, CreateUserParams{
		Email: user.Email, Name: "again", PasswordHash: "hash", Role: permissions.RoleUser,
	})
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestGetUserMissing(t *testing.T) {
	requireDB(t)
	user, err := testStore.GetUserByID(context.Background(), -1)
	require.NoError(t, err)
	require.Nil(t, user)

	user, err = testStore.GetUserByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestMarkUserVerifiedIsIdempotent(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	user := createTestUser(t, "verify")

	first, err := testStore.MarkUserVerified(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, first.IsVerified)
	require.NotNil(t, first.EmailConfirmedAt)

	second, err := testStore.MarkUserVerified(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, first.EmailConfirmedAt.Equal(*second.EmailConfirmedAt))
}

func TestUpdateUserProfileClearsVerification(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	user := createTestUser(t, "profile")
	other := createTestUser(t, "profile_other")
	_, err := testStore.MarkUserVerified(ctx, user.ID)
	require.NoError(t, err)

	same, err := testStore.UpdateUserProfile(ctx, user.ID, "Renamed", user.Email)
	require.NoError(t, err)
	require.Equal(t, "Renamed", same.Name)
	require.True(t, same.IsVerified)

	moved, err := testStore.UpdateUserProfile(ctx, user.ID, "Renamed", dbtest.Email("profile_new"))
	require.NoError(t, err)
	require.False(t, moved.IsVerified)
	require.Nil(t, moved.EmailConfirmedAt)

	_, err = testStore.UpdateUserProfile(ctx, user.ID, "Renamed", other.Email)
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestFileLifecycle(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	owner := createTestUser(t, "lifecycle")
	file := createTestFile(t, owner.ID, "a.txt")
	require.False(t, file.IsDeleted)

	exists, err := testStore.FileExists(ctx, file.ID)
	require.NoError(t, err)
	require.True(t, exists)

	owned, err := testStore.ListOwnedFiles(ctx, owner.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, owned, 1)

	deleted, err := testStore.SoftDeleteFile(ctx, file.ID)
	require.NoError(t, err)
	require.True(t, deleted.IsDeleted)
	require.NotNil(t, deleted.DeletedAt)

	again, err := testStore.SoftDeleteFile(ctx, file.ID)
	require.NoError(t, err)
	require.Nil(t, again, "deleting twice is a no-op")

	owned, err = testStore.ListOwnedFiles(ctx, owner.ID, 10, 0)
	require.NoError(t, err)
	require.Empty(t, owned)

	trash, err := testStore.ListTrash(ctx, owner.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, trash, 1)

	stillVisible, err := testStore.GetFile(ctx, file.ID)
	require.NoError(t, err)
	require.True(t, stillVisible.IsDeleted)

	restored, err := testStore.RestoreFile(ctx, file.ID)
	require.NoError(t, err)
	require.False(t, restored.IsDeleted)
	require.Nil(t, restored.DeletedAt)

	_, err = testStore.SoftDeleteFile(ctx, file.ID)
	require.NoError(t, err)
	paths, err := testStore.PurgeTrash(ctx, owner.ID)
	require.NoError(t, err)
	require.Equal(t, []string{file.Path}, paths)

	gone, err := testStore.GetFile(ctx, file.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestCreateFileUnknownOwner(t *testing.T) {
	requireDB(t)
	_, err := testStore.CreateFile(context.Background(), CreateFileParams{
		ID: newID(), Filename: "f", OriginalFilename: "f", Path: "0/f", MimeType: "text/plain", OwnerID: -42,
	})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGrants(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	owner := createTestUser(t, "grant_owner")
	grantee := createTestUser(t, "grant_grantee")
	file := createTestFile(t, owner.ID, "shared.txt")

	g, err := testStore.CreateGrant(ctx, file.ID, grantee.ID, true, false)
	require.NoError(t, err)
	require.True(t, g.CanWrite)
	require.False(t, g.CanDelete)

	_, err = testStore.CreateGrant(ctx, file.ID, grantee.ID, false, false)
	require.ErrorIs(t, err, ErrShareAlreadyExists)

	_, err = testStore.CreateGrant(ctx, file.ID, -7, false, false)
	require.ErrorIs(t, err, ErrUserNotFound)

	shared, err := testStore.ListSharedFiles(ctx, grantee.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	require.Equal(t, file.ID, shared[0].ID)

	byFile, err := testStore.ListGrantsForFile(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, byFile, 1)
	require.Equal(t, grantee.Email, byFile[0].Email)

	outgoing, err := testStore.ListOutgoingGrants(ctx, owner.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	require.Equal(t, "shared.txt", outgoing[0].OriginalFilename)

	m, err := testStore.GetGrantsForUser(ctx, grantee.ID, []string{file.ID, "other"})
	require.NoError(t, err)
	require.Len(t, m, 1)
	require.NotNil(t, m[file.ID])

	updated, err := testStore.UpdateGrant(ctx, file.ID, grantee.ID, false, true)
	require.NoError(t, err)
	require.False(t, updated.CanWrite)
	require.True(t, updated.CanDelete)

	removed, err := testStore.DeleteGrant(ctx, file.ID, grantee.ID)
	require.NoError(t, err)
	require.True(t, removed)

	missing, err := testStore.GetGrant(ctx, file.ID, grantee.ID)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestDeleteUserCascades(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	owner := createTestUser(t, "cascade_owner")
	grantee := createTestUser(t, "cascade_grantee")
	file := createTestFile(t, owner.ID, "doomed.txt")
	_, err := testStore.CreateGrant(ctx, file.ID, grantee.ID, false, false)
	require.NoError(t, err)

	ok, err := testStore.DeleteUser(ctx, owner.ID)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := testStore.GetFile(ctx, file.ID)
	require.NoError(t, err)
	require.Nil(t, got)

	g, err := testStore.GetGrant(ctx, file.ID, grantee.ID)
	require.NoError(t, err)
	require.Nil(t, g)
}

func TestUserStats(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	owner := createTestUser(t, "stats_owner")
	other := createTestUser(t, "stats_other")
	createTestFile(t, owner.ID, "one.txt")
	trashed := createTestFile(t, owner.ID, "two.txt")
	_, err := testStore.SoftDeleteFile(ctx, trashed.ID)
	require.NoError(t, err)
	theirs := createTestFile(t, other.ID, "theirs.txt")
	_, err = testStore.CreateGrant(ctx, theirs.ID, owner.ID, false, false)
	require.NoError(t, err)

	stats, err := testStore.GetUserStats(ctx, owner.ID)
	require.NoError(t, err)
	require.Equal(t, UserStats{OwnedFiles: 1, SharedWithMe: 1, TrashedFiles: 1, TotalBytes: 10}, stats)
}

func TestExecTxRollsBack(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	owner := createTestUser(t, "tx_owner")
	var id string

	err := testStore.ExecTx(ctx, func(q *Queries) error {
		id = newID()
		_, err := q.CreateFile(ctx, CreateFileParams{
			ID: id, Filename: "f", OriginalFilename: "f", Path: "p/f", MimeType: "text/plain", OwnerID: owner.ID,
		})
		require.NoError(t, err)
		_, err = q.CreateGrant(ctx, id, -1, false, false)
		return err
	})
	require.ErrorIs(t, err, ErrUserNotFound)

	file, err := testStore.GetFile(ctx, id)
	require.NoError(t, err)
	require.Nil(t, file)
}

type recordingPublisher struct {
	got map[int64][][]byte
}

func (p *recordingPublisher) PublishEvent(userID int64, msg []byte) {
	if p.got == nil {
		p.got = map[int64][][]byte{}
	}
	p.got[userID] = append(p.got[userID], msg)
}

func TestEventsAndOutbox(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	user := createTestUser(t, "events")
	var outbox Outbox

	err := testStore.ExecTx(ctx, func(q *Queries) error {
		return outbox.Log(ctx, q, user.ID, EventFileUploaded, map[string]string{"file_id": "abc"})
	})
	require.NoError(t, err)

	pub := &recordingPublisher{}
	outbox.Flush(pub)
	require.Len(t, pub.got[user.ID], 1)

	events, err := testStore.GetEventsSince(ctx, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, EventFileUploaded, events[0].EventType)

	var body struct {
		EventType string            `json:"event_type"`
		Payload   map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(events[0].Payload, &body))
	require.Equal(t, "abc", body.Payload["file_id"])

	later, err := testStore.GetEventsSince(ctx, user.ID, events[0].ID)
	require.NoError(t, err)
	require.Empty(t, later)
}
