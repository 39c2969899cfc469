package executor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// SessionResolver resolves the ambient identity for jobs submitted without an
// explicit user, typically the deployment's default operations user.
type SessionResolver interface {
	ResolveSessionUser(ctx context.Context) (uuid.UUID, error)
}

type identityKind int

const (
	identityFromSession identityKind = iota
	identityExplicit
)

// Identity selects whose behalf a job runs on. The choice is made at the
// call boundary: either the caller names a user, or the session default is
// resolved at execution time.
type Identity struct {
	kind   identityKind
	userID uuid.UUID
}

// SessionIdentity defers to the session resolver.
func SessionIdentity() Identity {
	return Identity{kind: identityFromSession}
}

// ExplicitIdentity pins the job to a specific user.
func ExplicitIdentity(userID uuid.UUID) Identity {
	return Identity{kind: identityExplicit, userID: userID}
}

// Resolve returns the concrete user id for this identity.
func (id Identity) Resolve(ctx context.Context, resolver SessionResolver) (uuid.UUID, error) {
	switch id.kind {
	case identityExplicit:
		if id.userID == uuid.Nil {
			return uuid.Nil, fmt.Errorf("explicit identity with nil user id")
		}
		return id.userID, nil
	default:
		return resolver.ResolveSessionUser(ctx)
	}
}
