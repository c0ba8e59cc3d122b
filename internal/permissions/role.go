// Package permissions maps the fixed set of user roles onto capability tokens.
//
// The mapping is configuration, not data: it is built once at startup and never
// mutated afterwards, so a *Table can be shared freely between goroutines.
package permissions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownRole = errors.New("unknown role")
var ErrUnknownCapability = errors.New("unknown capability")

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
	RoleGuest   Role = "guest"
)

var Roles = []Role{RoleAdmin, RoleManager, RoleUser, RoleGuest}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser, RoleGuest:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

type Capability string

const (
	ManageUsers    Capability = "manage_users"
	ManageRoles    Capability = "manage_roles"
	ManageFiles    Capability = "manage_files"
	UploadFiles    Capability = "upload_files"
	DownloadFiles  Capability = "download_files"
	ShareFiles     Capability = "share_files"
	DeleteFiles    Capability = "delete_files"
	DeleteOwnFiles Capability = "delete_own_files"
	ViewAnalytics  Capability = "view_analytics"
)

var knownCapabilities = map[Capability]struct{}{
	ManageUsers: {}, ManageRoles: {}, ManageFiles: {}, UploadFiles: {}, DownloadFiles: {},
	ShareFiles: {}, DeleteFiles: {}, DeleteOwnFiles: {}, ViewAnalytics: {},
}

func ParseCapability(s string) (Capability, error) {
	c := Capability(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownCapabilities[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCapability, s)
	}
	return c, nil
}

// Table is an immutable role to capability-set mapping.
type Table struct {
	caps map[Role]map[Capability]struct{}
}

var defaultCapabilities = map[Role][]Capability{
	RoleAdmin: {
		ManageUsers, ManageRoles, ManageFiles, UploadFiles,
		DownloadFiles, ShareFiles, DeleteFiles, ViewAnalytics,
	},
	RoleManager: {
		ManageFiles, UploadFiles, DownloadFiles, ShareFiles, DeleteFiles, ViewAnalytics,
	},
	RoleUser: {
		UploadFiles, DownloadFiles, ShareFiles, DeleteOwnFiles,
	},
	RoleGuest: {
		DownloadFiles,
	},
}

var defaultTable = mustTable(defaultCapabilities)

// Default returns the built-in table.
func Default() *Table { return defaultTable }

// NewTable builds a table from m. Roles missing from m get no capabilities.
func NewTable(m map[Role][]Capability) (*Table, error) {
	t := &Table{caps: make(map[Role]map[Capability]struct{}, len(Roles))}
	for _, r := range Roles {
		t.caps[r] = map[Capability]struct{}{}
	}
	for r, list := range m {
		if !r.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRole, r)
		}
		for _, c := range list {
			if _, ok := knownCapabilities[c]; !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownCapability, c)
			}
			t.caps[r][c] = struct{}{}
		}
	}
	return t, nil
}

// ParseTable converts a configuration map (role name -> capability names).
// An empty map yields the default table.
func ParseTable(raw map[string][]string) (*Table, error) {
	if len(raw) == 0 {
		return Default(), nil
	}
	m := make(map[Role][]Capability, len(raw))
	for rs, list := range raw {
		r, err := ParseRole(rs)
		if err != nil {
			return nil, err
		}
		for _, cs := range list {
			c, err := ParseCapability(cs)
			if err != nil {
				return nil, fmt.Errorf("role %s: %w", r, err)
			}
			m[r] = append(m[r], c)
		}
	}
	return NewTable(m)
}

func mustTable(m map[Role][]Capability) *Table {
	t, err := NewTable(m)
	if err != nil {
		panic(err)
	}
	return t
}

// CapabilitiesOf returns a sorted copy of the role's capability set.
func (t *Table) CapabilitiesOf(r Role) []Capability {
	set := t.caps[r]
	out := make([]Capability, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *Table) RoleHas(r Role, c Capability) bool {
	_, ok := t.caps[r][c]
	return ok
}

func CapabilitiesOf(r Role) []Capability { return defaultTable.CapabilitiesOf(r) }

func RoleHas(r Role, c Capability) bool { return defaultTable.RoleHas(r, c) }
