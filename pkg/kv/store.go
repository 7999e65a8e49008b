// Package kv defines the Durable KV port: a prefixed-keyspace read/write/
// list/delete facade with caller-supplied serialization. In production this
// is backed by an external etcd (assumed, per the system's non-goals: it
// implements no consensus of its own); this module ships a bbolt-backed
// implementation for the embedded/single-node and test deployment path.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Store is the Durable KV port. Keys are opaque strings owned by the
// caller's keyspace layout; values are caller-serialized bytes (YAML for
// artifacts/ResourceState, JSON for NodeInfo).
type Store interface {
	// Put writes value under key, creating or overwriting it.
	Put(ctx context.Context, key string, value []byte) error
	// Get reads the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns every key/value pair whose key has the given prefix.
	List(ctx context.Context, prefix string) (map[string][]byte, error)
	// Close releases underlying resources.
	Close() error
}
