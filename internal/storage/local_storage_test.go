package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return storage
}

func TestNewLocalStorage(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "nested", "root")

	storage, err := NewLocalStorage(tempDir)
	require.NoError(t, err)
	require.NotNil(t, storage)
	require.Equal(t, tempDir, storage.BasePath())

	_, err = os.Stat(tempDir)
	require.NoError(t, err, "Base directory should be created")
}

func TestLocalStorage_WriteOpenRemove(t *testing.T) {
	storage := newTestStorage(t)
	content := "Hello, world!"

	rel, n, err := storage.Write(42, "greeting.txt", strings.NewReader(content), 1024)
	require.NoError(t, err)
	require.Equal(t, "42/greeting.txt", rel)
	require.Equal(t, int64(len(content)), n)

	info, err := storage.Stat(rel)
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), info.Size())

	rc, err := storage.Open(rel)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, content, string(got))

	require.NoError(t, storage.Remove(rel))
	_, err = storage.Stat(rel)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, storage.Remove(rel), "removing a missing file is not an error")
}

func TestLocalStorage_WriteNeverOverwrites(t *testing.T) {
	storage := newTestStorage(t)

	_, _, err := storage.Write(1, "a.txt", strings.NewReader("first"), 100)
	require.NoError(t, err)

	_, _, err = storage.Write(1, "a.txt", strings.NewReader("second"), 100)
	require.ErrorIs(t, err, ErrExists)

	rc, err := storage.Open("1/a.txt")
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	require.Equal(t, "first", string(got))
}

func TestLocalStorage_WriteLimit(t *testing.T) {
	storage := newTestStorage(t)

	_, n, err := storage.Write(1, "exact.bin", bytes.NewReader(make([]byte, 10)), 10)
	require.NoError(t, err)
	require.Equal(t, int64(10), n)

	_, _, err = storage.Write(1, "big.bin", bytes.NewReader(make([]byte, 11)), 10)
	require.ErrorIs(t, err, ErrLimitExceeded)
	_, err = storage.Stat("1/big.bin")
	require.ErrorIs(t, err, ErrNotFound, "oversized writes leave nothing behind")
}

func TestLocalStorage_OpenNonExistent(t *testing.T) {
	storage := newTestStorage(t)

	_, err := storage.Open("9/missing.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_PathEscape(t *testing.T) {
	storage := newTestStorage(t)

	for _, rel := range []string{"", "../x", "1/../../x", "/etc/passwd", `1\..\x`, ".."} {
		_, err := storage.Open(rel)
		require.ErrorIs(t, err, ErrPathEscape, rel)
	}

	_, _, err := storage.Write(1, "../escape.txt", strings.NewReader("x"), 10)
	require.ErrorIs(t, err, ErrPathEscape)
}

func TestLocalStorage_MoveWithCollisions(t *testing.T) {
	storage := newTestStorage(t)

	_, _, err := storage.Write(2, "report.pdf", strings.NewReader("theirs"), 100)
	require.NoError(t, err)
	_, _, err = storage.Write(2, "report_1.pdf", strings.NewReader("theirs too"), 100)
	require.NoError(t, err)
	src, _, err := storage.Write(1, "report.pdf", strings.NewReader("mine"), 100)
	require.NoError(t, err)

	dst, name, err := storage.Move(src, 2, "report.pdf")
	require.NoError(t, err)
	require.Equal(t, "2/report_2.pdf", dst)
	require.Equal(t, "report_2.pdf", name)

	_, err = storage.Stat(src)
	require.ErrorIs(t, err, ErrNotFound)

	rc, err := storage.Open(dst)
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	rc.Close()
	require.Equal(t, "mine", string(got))

	require.NoError(t, storage.Relocate(dst, src), "moving back restores the original path")
	_, err = storage.Stat(src)
	require.NoError(t, err)
}

func TestLocalStorage_MoveMissing(t *testing.T) {
	storage := newTestStorage(t)

	_, _, err := storage.Move("1/nothing.txt", 2, "nothing.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorage_RelocateRefusesOverwrite(t *testing.T) {
	storage := newTestStorage(t)

	a, _, err := storage.Write(1, "a.txt", strings.NewReader("a"), 10)
	require.NoError(t, err)
	b, _, err := storage.Write(1, "b.txt", strings.NewReader("b"), 10)
	require.NoError(t, err)

	require.ErrorIs(t, storage.Relocate(a, b), ErrExists)
	_, err = storage.Stat(a)
	require.NoError(t, err)
}

func TestLocalStorage_RemoveNamespace(t *testing.T) {
	storage := newTestStorage(t)

	_, _, err := storage.Write(5, "a.txt", strings.NewReader("a"), 10)
	require.NoError(t, err)

	require.NoError(t, storage.RemoveNamespace(5))
	_, err = os.Stat(filepath.Join(storage.BasePath(), "5"))
	require.True(t, os.IsNotExist(err))

	require.NoError(t, storage.RemoveNamespace(5))
}
