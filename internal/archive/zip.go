// Package archive bundles several files into a single zip stream.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

type Writer struct {
	zw    *zip.Writer
	names map[string]struct{}
	count int
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w), names: make(map[string]struct{})}
}

// Add copies r into the archive under name. A name already used in this
// archive is stored as "name (1).ext", "name (2).ext" and so on. It returns
// the entry name actually used.
func (w *Writer) Add(name string, modified time.Time, r io.Reader) (string, error) {
	entry := w.uniqueName(entryName(name))

	fw, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     entry,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return "", fmt.Errorf("writing %s: %w", entry, err)
	}
	w.names[entry] = struct{}{}
	w.count++
	return entry, nil
}

func (w *Writer) Len() int { return w.count }

func (w *Writer) Close() error {
	return w.zw.Close()
}

func entryName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." || name == "" {
		return "file"
	}
	return name
}

func (w *Writer) uniqueName(name string) string {
	if _, taken := w.names[name]; !taken {
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if _, taken := w.names[candidate]; !taken {
			return candidate
		}
	}
}
