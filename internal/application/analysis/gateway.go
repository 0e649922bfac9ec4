package analysis

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/turtacn/KeyGap-Intelligence/pkg/errors"
)

// KVStore is the key/value port snapshots are written through.  Get returns
// an error satisfying errors.IsNotFound when key is absent.  Put overwrites.
type KVStore interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Key returns the store key of analysis id.
func Key(id string) string { return "analysis/" + id }

// Gateway stores and loads analysis snapshots as JSON.
type Gateway struct {
	store KVStore
}

// NewGateway returns a Gateway over store.
func NewGateway(store KVStore) (*Gateway, error) {
	if store == nil {
		return nil, errors.New(errors.ErrCodeValidation, "gateway requires a KVStore")
	}
	return &Gateway{store: store}, nil
}

// Store writes result under id.  Any failure is reported as ErrCodeStorage.
func (g *Gateway) Store(ctx context.Context, id string, result *Result) error {
	if id == "" || result == nil {
		return errors.New(errors.ErrCodeValidation, "store requires an id and a result")
	}
	data, err := json.Marshal(result)
	if err != nil {
		return errors.Storage(err, "failed to encode snapshot").WithDetail(id)
	}
	if err := g.store.Put(ctx, Key(id), data); err != nil {
		if errors.IsCode(err, errors.ErrCodeStorage) {
			return err
		}
		return errors.Storage(err, "failed to write snapshot").WithDetail(id)
	}
	return nil
}

// Load reads the snapshot stored under id.
func (g *Gateway) Load(ctx context.Context, id string) (*Result, error) {
	data, err := g.store.Get(ctx, Key(id))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.New(errors.ErrCodeAnalysisNotFound, "analysis not found").WithDetail(id).WithCause(err)
		}
		if errors.IsCode(err, errors.ErrCodeStorage) {
			return nil, err
		}
		return nil, errors.Storage(err, "failed to read snapshot").WithDetail(id)
	}
	var out Result
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "snapshot is not valid JSON").WithDetail(id)
	}
	return &out, nil
}

// MemoryStore is an in-process KVStore.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	m.mu.Lock()
	m.data[key] = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.NotFound("key not found").WithDetail(key)
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

// Len returns the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

//Personal.AI order the ending
