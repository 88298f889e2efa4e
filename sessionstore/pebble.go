package sessionstore

import (
	"context"
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"
)

// PebbleStore is a Pebble-backed Store, suitable for an embedded
// single-node broker that wants session records to survive a restart
// without standing up an external database.
type PebbleStore struct {
	db     *pebble.DB
	mu     sync.RWMutex
	closed bool
	prefix []byte
}

// PebbleStoreConfig configures the Pebble-backed store.
type PebbleStoreConfig struct {
	Path   string
	Prefix string // Optional prefix for keys (useful when sharing a DB)
	Opts   *pebble.Options
}

// NewPebbleStore opens (or creates) a Pebble-backed session store.
func NewPebbleStore(config PebbleStoreConfig) (*PebbleStore, error) {
	opts := config.Opts
	if opts == nil {
		opts = &pebble.Options{
			ErrorIfExists: false,
		}
	}

	db, err := pebble.Open(config.Path, opts)
	if err != nil {
		return nil, err
	}

	prefix := []byte(config.Prefix)
	if len(prefix) == 0 {
		prefix = []byte("session:")
	}

	return &PebbleStore{
		db:     db,
		prefix: prefix,
	}, nil
}

// makeKey creates a key with the prefix
func (p *PebbleStore) makeKey(clientID string) []byte {
	fullKey := make([]byte, len(p.prefix)+len(clientID))
	copy(fullKey, p.prefix)
	copy(fullKey[len(p.prefix):], clientID)
	return fullKey
}

// Save stores or updates a record.
func (p *PebbleStore) Save(ctx context.Context, clientID string, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrStoreClosed
	}
	p.mu.RUnlock()

	data, err := cbor.Marshal(record)
	if err != nil {
		return err
	}

	fullKey := p.makeKey(clientID)
	return p.db.Set(fullKey, data, pebble.Sync)
}

// Load retrieves a record by client ID.
func (p *PebbleStore) Load(ctx context.Context, clientID string) (Record, error) {
	var zero Record
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return zero, ErrStoreClosed
	}
	p.mu.RUnlock()

	fullKey := p.makeKey(clientID)
	data, closer, err := p.db.Get(fullKey)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	defer closer.Close()

	var record Record
	if err := cbor.Unmarshal(data, &record); err != nil {
		return zero, err
	}

	return record, nil
}

// Delete removes a record.
func (p *PebbleStore) Delete(ctx context.Context, clientID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrStoreClosed
	}
	p.mu.RUnlock()

	fullKey := p.makeKey(clientID)
	return p.db.Delete(fullKey, pebble.Sync)
}

// Exists checks if a record exists for the given client ID.
func (p *PebbleStore) Exists(ctx context.Context, clientID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return false, ErrStoreClosed
	}
	p.mu.RUnlock()

	fullKey := p.makeKey(clientID)
	_, closer, err := p.db.Get(fullKey)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	closer.Close()
	return true, nil
}

// List returns every client ID with a stored record.
func (p *PebbleStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	p.mu.RUnlock()

	var clientIDs []string

	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: p.prefix,
		UpperBound: append(append([]byte{}, p.prefix...), 0xff),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		clientIDs = append(clientIDs, string(key[len(p.prefix):]))
	}

	if err := iter.Error(); err != nil {
		return nil, err
	}

	return clientIDs, nil
}

// Close closes the store.
func (p *PebbleStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrStoreClosed
	}

	p.closed = true
	return p.db.Close()
}

// Count returns the total number of stored records.
func (p *PebbleStore) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return 0, ErrStoreClosed
	}
	p.mu.RUnlock()

	var count int64

	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: p.prefix,
		UpperBound: append(append([]byte{}, p.prefix...), 0xff),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		count++
	}

	if err := iter.Error(); err != nil {
		return 0, err
	}

	return count, nil
}
