// Package cache memoizes pipeline results keyed by a hash of their
// effective inputs.
package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Key returns the SHA-256 hex of the JSON encoding of parts. Parts must be
// JSON-encodable; map keys are sorted by encoding/json so the result is stable.
func Key(parts ...any) (string, error) {
	data, err := json.Marshal(parts)
	if err != nil {
		return "", eris.Wrap(err, "cache: encode key")
	}
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h), nil
}

// Memo is a bounded key → value store. When full, the oldest entry is
// evicted. Get and Do hand out clones so no caller shares state with the
// cache or with another caller.
type Memo[V any] struct {
	name  string
	max   int
	clone func(V) V

	mu      sync.Mutex
	entries map[string]V
	order   []string

	group singleflight.Group
}

// NewMemo creates a memo holding at most max entries. clone may be nil when
// V is immutable.
func NewMemo[V any](name string, max int, clone func(V) V) *Memo[V] {
	if max <= 0 {
		max = 1
	}
	if clone == nil {
		clone = func(v V) V { return v }
	}
	return &Memo[V]{
		name:    name,
		max:     max,
		clone:   clone,
		entries: make(map[string]V),
	}
}

// Get returns a copy of the cached value for key.
func (m *Memo[V]) Get(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return m.clone(v), true
}

// Set stores value under key, evicting the oldest entry when full.
func (m *Memo[V]) Set(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		m.order = append(m.order, key)
	}
	m.entries[key] = value
	for len(m.order) > m.max {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}
}

// Do returns the cached value for key, or computes and stores it. Concurrent
// calls for the same key share one computation. Errors are not cached.
func (m *Memo[V]) Do(key string, fn func() (V, error)) (V, error) {
	if v, ok := m.Get(key); ok {
		zap.L().Debug("cache: hit", zap.String("memo", m.name), zap.String("key", shortKey(key)))
		return v, nil
	}

	res, err, _ := m.group.Do(key, func() (any, error) {
		if v, ok := m.Get(key); ok {
			return v, nil
		}
		v, err := fn()
		if err != nil {
			return v, err
		}
		m.Set(key, v)
		zap.L().Debug("cache: stored", zap.String("memo", m.name), zap.String("key", shortKey(key)))
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return m.clone(res.(V)), nil
}

// Invalidate drops the entry for key.
func (m *Memo[V]) Invalidate(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		return
	}
	delete(m.entries, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Reset drops every entry.
func (m *Memo[V]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]V)
	m.order = nil
}

// Len returns the number of cached entries.
func (m *Memo[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
