// Package registry manages the lifecycle of graph instances. It fronts
// the graph store with an in-memory descriptor cache and hands out
// per-graph locks so that dropping a graph never races in-flight writes.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/graphmind-ai/graphmind/pkg/driver"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

// ErrGraphNotFound aliases the store sentinel so callers can match on
// either package.
var ErrGraphNotFound = driver.ErrGraphNotFound

// Registry tracks known graph instances.
type Registry struct {
	store  driver.GraphStore
	logger *slog.Logger

	mu     sync.RWMutex
	cache  map[string]*types.GraphInfo
	guards map[string]*sync.RWMutex
}

// NewRegistry creates a registry backed by store.
func NewRegistry(store driver.GraphStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:  store,
		logger: logger,
		cache:  make(map[string]*types.GraphInfo),
		guards: make(map[string]*sync.RWMutex),
	}
}

// Create provisions a new graph instance with a generated identifier.
// A store failure is fatal; no descriptor is cached for a graph that was
// never persisted.
func (r *Registry) Create(ctx context.Context, name string) (*types.GraphInfo, error) {
	info := &types.GraphInfo{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	if err := r.store.CreateGraph(ctx, *info); err != nil {
		return nil, fmt.Errorf("create graph %s: %w", info.ID, err)
	}

	r.mu.Lock()
	r.cache[info.ID] = info
	r.mu.Unlock()

	r.logger.Info("created graph instance", "graph_id", info.ID, "name", name)
	return info, nil
}

// Get returns the descriptor for graphID. A cache miss falls through to
// the store so descriptors survive process restarts.
func (r *Registry) Get(ctx context.Context, graphID string) (*types.GraphInfo, error) {
	r.mu.RLock()
	info, ok := r.cache[graphID]
	r.mu.RUnlock()
	if ok {
		return info, nil
	}

	info, err := r.store.GetGraphInfo(ctx, graphID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[graphID] = info
	r.mu.Unlock()
	return info, nil
}

// List returns descriptors for all known graph instances.
func (r *Registry) List(ctx context.Context) ([]types.GraphInfo, error) {
	infos, err := r.store.ListGraphs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list graphs: %w", err)
	}

	r.mu.Lock()
	for i := range infos {
		info := infos[i]
		r.cache[info.ID] = &info
	}
	r.mu.Unlock()

	return infos, nil
}

// Delete drops the graph and all of its data. It takes the graph's
// exclusive lock first, so in-flight ingestion runs finish before the
// data disappears underneath them.
func (r *Registry) Delete(ctx context.Context, graphID string) error {
	guard := r.guard(graphID)
	guard.Lock()
	defer guard.Unlock()

	if _, err := r.Get(ctx, graphID); err != nil {
		return err
	}

	if err := r.store.DropGraph(ctx, graphID); err != nil {
		return fmt.Errorf("drop graph %s: %w", graphID, err)
	}

	r.mu.Lock()
	delete(r.cache, graphID)
	delete(r.guards, graphID)
	r.mu.Unlock()

	r.logger.Info("deleted graph instance", "graph_id", graphID)
	return nil
}

// AcquireWrite takes the graph's shared lock for the duration of a write
// batch. Multiple writers may proceed concurrently; Delete waits for all
// of them. The returned function releases the lock.
func (r *Registry) AcquireWrite(graphID string) func() {
	guard := r.guard(graphID)
	guard.RLock()
	return guard.RUnlock
}

func (r *Registry) guard(graphID string) *sync.RWMutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	guard, ok := r.guards[graphID]
	if !ok {
		guard = &sync.RWMutex{}
		r.guards[graphID] = guard
	}
	return guard
}
