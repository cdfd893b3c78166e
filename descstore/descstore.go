// Package descstore defines a host-side cache of decoded function
// descriptions keyed by destination and function name. Servers use it to
// avoid a live metadata round-trip per inbound function name; entries carry
// a TTL because the remote signature can change underneath the cache.
package descstore

import (
	"context"
	"time"

	"github.com/nwbridge/rfc-server-go/rfc"
)

// Store is the minimal contract the dispatch layer needs. Implementations
// must be safe for concurrent use; the engine resolves metadata from its own
// worker context.
type Store interface {
	// Get returns the cached description and whether one was present. An
	// absent or expired entry is (zero, false, nil), not an error.
	Get(ctx context.Context, destination, name string) (rfc.FunctionDescription, bool, error)

	// Set stores a description. A non-positive ttl means the implementation's
	// default retention.
	Set(ctx context.Context, destination, name string, desc rfc.FunctionDescription, ttl time.Duration) error

	// Delete drops a cached description if present.
	Delete(ctx context.Context, destination, name string) error

	// Close releases backend resources.
	Close() error
}
