// Package session persists per-browser-session state (identity, verification,
// confirmed address) under a namespaced key, surviving page reloads.
package session

import (
	"context"

	"github.com/SIACAML/cooqu-order/internal/domain"
)

// keyPrefix namespaces session entries in the backing store.
const keyPrefix = "cooqu:session:"

// Store persists sessions keyed by session ID.
//
// Get never fabricates partial state: an absent session yields a fresh zero
// session, while a corrupt or unreadable one surfaces the error so callers
// can treat the store as "not yet hydrated" instead of rendering the wrong
// step.
type Store interface {
	// Get loads the session for sid. A missing session returns a fresh
	// zero-value session, not an error.
	Get(ctx context.Context, sid string) (*domain.Session, error)

	// Save replaces the whole session value and refreshes its TTL.
	Save(ctx context.Context, sid string, s *domain.Session) error

	// Logout atomically clears user, userID, accessToken, and isVerified,
	// retaining the confirmed address.
	Logout(ctx context.Context, sid string) error
}

func key(sid string) string {
	return keyPrefix + sid
}
