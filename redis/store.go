package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"
)

// ErrCorrupt is wrapped by Load when the stored bytes are not valid JSON
// for the target type.
var ErrCorrupt = stderrors.New("redis: corrupt value")

// JSONStore keeps values of type V as JSON documents under an optional
// namespace. Keys are joined to the namespace with ":".
type JSONStore[V any] struct {
	client    *Client
	namespace string
}

// NewJSONStore returns a store over client. An empty namespace leaves keys
// untouched.
func NewJSONStore[V any](client *Client, namespace string) *JSONStore[V] {
	return &JSONStore[V]{client: client, namespace: namespace}
}

func (s *JSONStore[V]) key(k string) string {
	if s.namespace != "" {
		k = s.namespace + ":" + k
	}
	return k
}

// Load returns (nil, nil) for a missing key.
func (s *JSONStore[V]) Load(ctx context.Context, k string) (*V, error) {
	raw, err := s.client.rdb.Get(ctx, s.key(k)).Bytes()
	switch {
	case IsNil(err):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("redis get %q: %w", k, err)
	}
	out := new(V)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("redis get %q: %w (%v)", k, ErrCorrupt, err)
	}
	return out, nil
}

// Save writes val under k. A zero ttl keeps the key until deleted.
func (s *JSONStore[V]) Save(ctx context.Context, k string, val *V, ttl time.Duration) error {
	doc, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("redis encode %q: %w", k, err)
	}
	return s.client.Set(ctx, s.key(k), doc, ttl)
}

func (s *JSONStore[V]) Delete(ctx context.Context, k string) error {
	return s.client.Del(ctx, s.key(k))
}

// DeletePrefix clears every key in the namespace that starts with prefix.
func (s *JSONStore[V]) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	return s.client.DeletePrefix(ctx, s.key(prefix))
}
