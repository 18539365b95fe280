package cache

import (
	"context"
	"time"
)

const (
	NamespaceEmbeddings = "embeddings"
	NamespaceQueries    = "queries"
)

// Entry is the stored form of a cached value. Value holds JSON.
type Entry struct {
	Value          []byte
	CreatedAt      time.Time
	ExpiresAt      time.Time
	HitCount       int64
	LastAccessedAt time.Time
}

func (e *Entry) Expired(now time.Time) bool {
	return e == nil || !now.Before(e.ExpiresAt)
}

// Store is the persistence behind Cache. Get returns nil, nil on a miss and
// does not check expiry.
type Store interface {
	Name() string
	Get(ctx context.Context, namespace, key string) (*Entry, error)
	Set(ctx context.Context, namespace, key string, e Entry) error
	Touch(ctx context.Context, namespace, key string, at time.Time) error
	Delete(ctx context.Context, namespace, key string) error
	Sweep(ctx context.Context, namespace string, now time.Time) (int64, error)
}

type noopStore struct{}

// NewNoopStore returns a Store that never holds anything.
func NewNoopStore() Store { return noopStore{} }

func (noopStore) Name() string { return "none" }

func (noopStore) Get(context.Context, string, string) (*Entry, error) { return nil, nil }

func (noopStore) Set(context.Context, string, string, Entry) error { return nil }

func (noopStore) Touch(context.Context, string, string, time.Time) error { return nil }

func (noopStore) Delete(context.Context, string, string) error { return nil }

func (noopStore) Sweep(context.Context, string, time.Time) (int64, error) { return 0, nil }
