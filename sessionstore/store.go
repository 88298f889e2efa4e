package sessionstore

import "context"

// Store persists session Records, keyed by MQTT client ID. It is the
// external collaborator the wire engine assumes exists but never talks to
// directly: a caller loads a Record before constructing an engine (to
// decide session_present) and saves it back after notify_closed.
type Store interface {
	// Save stores or updates a record.
	Save(ctx context.Context, clientID string, record Record) error

	// Load retrieves a record by client ID.
	Load(ctx context.Context, clientID string) (Record, error)

	// Delete removes a record.
	Delete(ctx context.Context, clientID string) error

	// Exists checks if a record exists for the given client ID.
	Exists(ctx context.Context, clientID string) (bool, error)

	// List returns every client ID with a stored record.
	List(ctx context.Context) ([]string, error)

	// Close closes the store.
	Close() error
}

// Metrics is optionally implemented by a Store to expose cheap counts.
type Metrics interface {
	Count(ctx context.Context) (int64, error)
}
