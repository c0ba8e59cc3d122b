package storage

import (
	"strings"
	"time"
	"unicode"

	"github.com/jaevor/go-nanoid"
)

const (
	maxBaseLen     = 50
	suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffixLen      = 8
	stampLayout    = "20060102_150405"
)

// Namer produces server-side file names.
type Namer struct {
	suffix func() string
	now    func() time.Time
}

func NewNamer() (*Namer, error) {
	gen, err := nanoid.CustomASCII(suffixAlphabet, suffixLen)
	if err != nil {
		return nil, err
	}
	return &Namer{suffix: gen, now: time.Now}, nil
}

// Generate returns "YYYYMMDD_HHMMSS_<random>_<base><.ext>" for an uploaded name.
// ext is expected to be already validated and lower-cased.
func (n *Namer) Generate(original, ext string) string {
	base := CleanOriginalName(original)
	if Extension(base) != "" {
		base = base[:strings.LastIndexByte(base, '.')]
	}
	base = SanitizeName(base)
	if base == "" {
		base = "file"
	}
	var b strings.Builder
	b.WriteString(n.now().UTC().Format(stampLayout))
	b.WriteByte('_')
	b.WriteString(n.suffix())
	b.WriteByte('_')
	b.WriteString(base)
	if ext != "" {
		b.WriteByte('.')
		b.WriteString(ext)
	}
	return b.String()
}

// CleanOriginalName drops any directory part a client may have sent and
// strips control characters.
func CleanOriginalName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(name)
}

// Extension returns the lower-cased text after the last dot, or "".
func Extension(name string) string {
	name = CleanOriginalName(name)
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// SanitizeName keeps ASCII letters, digits, '-' and '_'; spaces become '_'.
// The result is at most 50 bytes.
func SanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
		if b.Len() >= maxBaseLen {
			break
		}
	}
	return strings.Trim(b.String(), "_")
}
