package domain

import (
	"fmt"
	"strings"
)

type IdentityKind string

const (
	IdentityUser    IdentityKind = "user"
	IdentitySession IdentityKind = "session"
)

// Identity is the owner key of a cart: an authenticated user or an anonymous session.
type Identity struct {
	Kind IdentityKind
	Key  string
}

func UserIdentity(userID string) Identity { return Identity{Kind: IdentityUser, Key: userID} }

func SessionIdentity(token string) Identity { return Identity{Kind: IdentitySession, Key: token} }

// ParseIdentity accepts the "user:<id>" and "session:<token>" forms.
func ParseIdentity(s string) (Identity, error) {
	kind, key, ok := strings.Cut(s, ":")
	if !ok || key == "" {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidIdentity, s)
	}
	id := Identity{Kind: IdentityKind(kind), Key: key}
	if !id.Valid() {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidIdentity, s)
	}
	return id, nil
}

func (i Identity) Valid() bool {
	return (i.Kind == IdentityUser || i.Kind == IdentitySession) && strings.TrimSpace(i.Key) != ""
}

func (i Identity) IsAuthenticated() bool { return i.Kind == IdentityUser && i.Key != "" }

// UserID returns the user id for authenticated identities.
func (i Identity) UserID() (string, bool) {
	if !i.IsAuthenticated() {
		return "", false
	}
	return i.Key, true
}

func (i Identity) String() string { return string(i.Kind) + ":" + i.Key }
