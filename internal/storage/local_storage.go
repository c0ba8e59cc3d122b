package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrPathEscape    = errors.New("path escapes storage root")
	ErrExists        = errors.New("file already exists")
	ErrNotFound      = errors.New("file not found on disk")
	ErrLimitExceeded = errors.New("stream exceeds size limit")
	ErrNotRegular    = errors.New("not a regular file")
)

const maxMoveCandidates = 1000

// LocalStorage keeps file contents under basePath, one directory per owner.
// Paths handed in and out are relative and slash separated: "<ownerID>/<name>".
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, err
	}
	return &LocalStorage{basePath: abs}, nil
}

func (ls *LocalStorage) BasePath() string { return ls.basePath }

func RelPath(ownerID int64, name string) string {
	return path.Join(Namespace(ownerID), name)
}

func Namespace(ownerID int64) string {
	return strconv.FormatInt(ownerID, 10)
}

// resolve maps a relative path onto the filesystem, refusing anything that
// would land outside the root.
func (ls *LocalStorage) resolve(rel string) (string, error) {
	if rel == "" || path.IsAbs(rel) || filepath.IsAbs(rel) || strings.Contains(rel, "\\") {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, rel)
	}
	clean := path.Clean(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, rel)
	}
	full := filepath.Join(ls.basePath, filepath.FromSlash(clean))
	if !strings.HasPrefix(full, ls.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, rel)
	}
	return full, nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrPathEscape, name)
	}
	return nil
}

func (ls *LocalStorage) ensureNamespace(ownerID int64) error {
	dir, err := ls.resolve(Namespace(ownerID))
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o750)
}

// Write streams r into a new file in the owner's namespace. It never
// overwrites: an existing name yields ErrExists. At most limit bytes are
// accepted; a longer stream is removed and reported as ErrLimitExceeded.
func (ls *LocalStorage) Write(ownerID int64, name string, r io.Reader, limit int64) (string, int64, error) {
	if err := validName(name); err != nil {
		return "", 0, err
	}
	rel := RelPath(ownerID, name)
	full, err := ls.resolve(rel)
	if err != nil {
		return "", 0, err
	}
	if err := ls.ensureNamespace(ownerID); err != nil {
		return "", 0, err
	}

	file, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", 0, ErrExists
		}
		return "", 0, err
	}

	n, err := io.Copy(file, io.LimitReader(r, limit+1))
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > limit {
		err = ErrLimitExceeded
	}
	if err != nil {
		_ = os.Remove(full)
		return "", n, err
	}
	return rel, n, nil
}

func (ls *LocalStorage) Stat(rel string) (fs.FileInfo, error) {
	full, err := ls.resolve(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotRegular
	}
	return info, nil
}

func (ls *LocalStorage) Open(rel string) (io.ReadCloser, error) {
	full, err := ls.resolve(rel)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", rel, ErrNotFound)
		}
		return nil, err
	}

	return file, nil
}

// Remove deletes a file. A file that is already gone is not an error.
func (ls *LocalStorage) Remove(rel string) error {
	full, err := ls.resolve(rel)
	if err != nil {
		return err
	}

	err = os.Remove(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

// Move places rel into the namespace of newOwnerID under name, or under the
// first free "name_N.ext" if name is taken. It returns the new relative path
// and file name.
func (ls *LocalStorage) Move(rel string, newOwnerID int64, name string) (string, string, error) {
	if err := validName(name); err != nil {
		return "", "", err
	}
	src, err := ls.resolve(rel)
	if err != nil {
		return "", "", err
	}
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", "", ErrNotFound
		}
		return "", "", err
	}
	if err := ls.ensureNamespace(newOwnerID); err != nil {
		return "", "", err
	}

	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 0; i < maxMoveCandidates; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		dstRel := RelPath(newOwnerID, candidate)
		err := ls.Relocate(rel, dstRel)
		if err == nil {
			return dstRel, candidate, nil
		}
		if !errors.Is(err, ErrExists) {
			return "", "", err
		}
	}
	return "", "", fmt.Errorf("no free name for %s in namespace %d: %w", name, newOwnerID, ErrExists)
}

// Relocate moves src to exactly dst, failing with ErrExists rather than
// replacing an existing file.
func (ls *LocalStorage) Relocate(srcRel, dstRel string) error {
	src, err := ls.resolve(srcRel)
	if err != nil {
		return err
	}
	dst, err := ls.resolve(dstRel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}

	if err := os.Link(src, dst); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}

// RemoveNamespace deletes the owner's directory and everything left in it.
func (ls *LocalStorage) RemoveNamespace(ownerID int64) error {
	dir, err := ls.resolve(Namespace(ownerID))
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}
