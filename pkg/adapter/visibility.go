package adapter

import (
	"fmt"
	"strings"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// Visibility is the two-valued exposure of an object.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ParseVisibility accepts "public" or "private" in any case.
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(strings.ToLower(strings.TrimSpace(s))); v {
	case VisibilityPublic, VisibilityPrivate:
		return v, nil
	}
	return "", fmt.Errorf("%w: visibility must be %q or %q, got %q", ErrInvalidArgument, VisibilityPublic, VisibilityPrivate, s)
}

// VisibilityConverter maps visibility to canned ACLs and back.
type VisibilityConverter interface {
	VisibilityToACL(v Visibility) string
	ACLToVisibility(grants []provider.Grant) Visibility
	DefaultForDirectories() Visibility
}

// DefaultAllUsersGrantees are grantee identities treated as "everyone".
// AWS reports the group URI; OBS has used both "Everyone" and a bare
// "AllUsers" across API versions.
var DefaultAllUsersGrantees = []string{
	provider.AllUsersURI,
	"AllUsers",
	"Everyone",
}

// PortableVisibilityConverter is the standard VisibilityConverter.
type PortableVisibilityConverter struct {
	directoryDefault Visibility
	allUsers         map[string]struct{}
}

// ConverterOption configures a PortableVisibilityConverter.
type ConverterOption func(*PortableVisibilityConverter)

// WithDirectoryVisibility sets the visibility used for new directory markers.
func WithDirectoryVisibility(v Visibility) ConverterOption {
	return func(c *PortableVisibilityConverter) {
		c.directoryDefault = v
	}
}

// WithAllUsersGrantees adds grantee identities to the all-users set.
func WithAllUsersGrantees(ids ...string) ConverterOption {
	return func(c *PortableVisibilityConverter) {
		for _, id := range ids {
			c.allUsers[id] = struct{}{}
		}
	}
}

// NewPortableVisibilityConverter returns a converter whose directory default
// is public.
func NewPortableVisibilityConverter(opts ...ConverterOption) *PortableVisibilityConverter {
	c := &PortableVisibilityConverter{
		directoryDefault: VisibilityPublic,
		allUsers:         make(map[string]struct{}, len(DefaultAllUsersGrantees)),
	}
	for _, id := range DefaultAllUsersGrantees {
		c.allUsers[id] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VisibilityToACL maps public to public-read and everything else to private.
func (c *PortableVisibilityConverter) VisibilityToACL(v Visibility) string {
	if v == VisibilityPublic {
		return provider.ACLPublicRead
	}
	return provider.ACLPrivate
}

// ACLToVisibility returns public on the first all-users grant allowing read.
func (c *PortableVisibilityConverter) ACLToVisibility(grants []provider.Grant) Visibility {
	for _, g := range grants {
		if c.isAllUsers(g.Grantee) && allowsRead(g.Permission) {
			return VisibilityPublic
		}
	}
	return VisibilityPrivate
}

// DefaultForDirectories implements VisibilityConverter.
func (c *PortableVisibilityConverter) DefaultForDirectories() Visibility {
	return c.directoryDefault
}

func (c *PortableVisibilityConverter) isAllUsers(g provider.Grantee) bool {
	for _, id := range []string{g.URI, g.ID} {
		if id == "" {
			continue
		}
		if _, ok := c.allUsers[id]; ok {
			return true
		}
	}
	return false
}

func allowsRead(permission string) bool {
	switch strings.ToUpper(permission) {
	case provider.PermissionRead, provider.PermissionFullControl:
		return true
	}
	return false
}
