// Package connections caches read-only snapshots of each user's connected
// integrations. The broker's backend owns the authoritative set; anything
// held here is stale after the TTL and must be re-fetched.
package connections

import (
	"context"
	"errors"
	"time"
)

// ErrSnapshotNotFound is returned by stores when no fresh snapshot exists.
var ErrSnapshotNotFound = errors.New("connected integration snapshot not found")

// Connection is one integration a user has authorized through the broker.
type Connection struct {
	Integration    string    `json:"integration"`
	ConnectedAt    time.Time `json:"connected_at"`
	LastVerifiedAt time.Time `json:"last_verified_at"`
}

// Snapshot is the point-in-time view of a user's ConnectedIntegrationSet.
type Snapshot struct {
	UserID      string       `json:"user_id"`
	Connections []Connection `json:"connections"`
	FetchedAt   time.Time    `json:"fetched_at"`
}

func (s *Snapshot) Has(integration string) bool {
	for _, c := range s.Connections {
		if c.Integration == integration {
			return true
		}
	}

	return false
}

// FetchFunc retrieves the authoritative set from the broker.
type FetchFunc func(ctx context.Context, userID string) ([]Connection, error)

// Store persists snapshots with a TTL. Implementations must expire entries
// themselves; Get never returns a snapshot older than the TTL it was stored
// with.
type Store interface {
	Get(ctx context.Context, userID string) (*Snapshot, error)
	Set(ctx context.Context, snapshot *Snapshot, ttl time.Duration) error
	Delete(ctx context.Context, userID string) error
	Close() error
}
