package domain

import (
	"context"
	"encoding/json"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// UPCClient looks a product up in the authoritative UPC database
type UPCClient interface {
	Lookup(ctx context.Context, upc string) (*ProductRecord, error)
}

// AIClient sends a prompt to the generative AI endpoint and returns the JSON object
// extracted from its answer
type AIClient interface {
	Generate(ctx context.Context, prompt string, useSearchTools bool) (json.RawMessage, error)
}

// ProductStore persists previously resolved products
type ProductStore interface {
	FindByUPC(ctx context.Context, upc string) (*ProductRecord, error)
	Upsert(ctx context.Context, record *ProductRecord) (*ProductRecord, error)
}
