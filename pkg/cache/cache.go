// Package cache stores canonical responses to non-streaming completions so
// identical requests can be answered without calling the upstream.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/papercomputeco/llmgateway/pkg/llm"
)

// ErrMiss is returned by Get when no entry exists for a key.
var ErrMiss = errors.New("cache miss")

// Entry is a cached response.
type Entry struct {
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	StoredAt    time.Time `json:"stored_at"`
}

// MarshalBinary implements encoding.BinaryMarshaler for Redis.
func (e *Entry) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Redis.
func (e *Entry) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}

// Cache is a response store.
type Cache interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, e *Entry, ttl time.Duration) error
	Close() error
}

// Cacheable reports whether req may be answered from cache. Streams are
// never cached, and neither are requests that ask for sampling variety.
func Cacheable(req *llm.ChatRequest) bool {
	if req == nil || req.IsStreaming() {
		return false
	}
	if req.N != nil && *req.N > 1 {
		return false
	}
	return true
}

// Key derives the cache key for req sent to provider. Requests that
// serialize identically share a key.
func Key(provider string, req *llm.ChatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding cache key: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(provider))
	h.Write([]byte{0})
	h.Write(body)
	return "completion:" + provider + ":" + hex.EncodeToString(h.Sum(nil)), nil
}
