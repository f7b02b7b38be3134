package auth

import (
	"context"
	"fmt"
)

// Kind tells a signed-in user from an anonymous guest.
type Kind string

const (
	KindUser  Kind = "user"
	KindGuest Kind = "guest"
)

// Identity is who a request acts for. Users are identified by the token
// subject, guests by the id the client got from POST /guest/session.
type Identity struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

func User(id string) Identity  { return Identity{Kind: KindUser, ID: id} }
func Guest(id string) Identity { return Identity{Kind: KindGuest, ID: id} }

func (i Identity) IsZero() bool  { return i.ID == "" }
func (i Identity) IsUser() bool  { return i.Kind == KindUser && i.ID != "" }
func (i Identity) IsGuest() bool { return i.Kind == KindGuest && i.ID != "" }

func (i Identity) String() string {
	if i.IsZero() {
		return "anonymous"
	}
	return fmt.Sprintf("%s:%s", i.Kind, i.ID)
}

type contextKey string

const (
	identityKey contextKey = "identity"
	claimsKey   contextKey = "claims"
	// GuestIDHeader carries the guest id on requests without a token.
	GuestIDHeader = "X-Guest-ID"
)

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity the request was authenticated
// as, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && !id.IsZero()
}

// ClaimsFromContext returns the verified token claims of a user request.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

func contextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}
