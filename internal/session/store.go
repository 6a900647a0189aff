// Package session defines the SessionStore port. Adapters live in the
// memory and sqlite subpackages.
package session

import (
	"context"

	"github.com/ventabot/ventabot/internal/domain"
)

// Store persists per-customer sessions. Implementations must be safe for
// concurrent use across customer keys; per-key turn serialization is the
// engine's responsibility, not the store's.
type Store interface {
	// Get returns the session for key, or a KindNotFound error when the
	// customer has never been seen.
	Get(ctx context.Context, key string) (*domain.Session, error)

	// Create creates an empty IDLE session for key.
	Create(ctx context.Context, key string) (*domain.Session, error)

	// Update sets the session state and merges contextPatch into the
	// context. A patch value of "" deletes the key.
	Update(ctx context.Context, key string, state domain.State, contextPatch map[string]string) error

	// AppendHistory appends one turn to the session's history.
	AppendHistory(ctx context.Context, key string, turn domain.Turn) error

	// RecentHistory returns up to n most recent turns, oldest first.
	RecentHistory(ctx context.Context, key string, n int) ([]domain.Turn, error)
}

// GetOrCreate fetches the session, creating it on first contact.
func GetOrCreate(ctx context.Context, s Store, key string) (*domain.Session, error) {
	sess, err := s.Get(ctx, key)
	if err == nil {
		return sess, nil
	}
	if domain.IsKind(err, domain.KindNotFound) {
		return s.Create(ctx, key)
	}
	return nil, err
}

// ClearTransientPatch builds an Update patch that deletes every transient
// context key. Applied whenever a flow returns the session to IDLE.
func ClearTransientPatch() map[string]string {
	patch := make(map[string]string, len(domain.TransientContextKeys))
	for _, k := range domain.TransientContextKeys {
		patch[k] = ""
	}
	return patch
}
