// Package localstore is a namespaced string key/value store with the
// semantics of browser localStorage: values are opaque strings, writes
// replace the whole value, and every namespace is independent.
package localstore

import (
	"context"
	"time"
)

// LocalStorage is the guest storage contract. A missing key is not an
// error: GetItem reports it with ok=false.
type LocalStorage interface {
	GetItem(ctx context.Context, namespace, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, namespace, key, value string) error
	RemoveItem(ctx context.Context, namespace, key string) error
	// Clear removes every key in namespace.
	Clear(ctx context.Context, namespace string) error
	// PurgeOlderThan removes namespaces with no write since cutoff and
	// returns how many keys were removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
