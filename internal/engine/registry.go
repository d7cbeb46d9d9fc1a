package engine

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// BuildFunc constructs an engine for a workspace, typically by loading or
// rebuilding its index snapshot.
type BuildFunc func(ctx context.Context, workspaceID string) (*Engine, error)

// Registry hands out one engine per workspace, building lazily on first use.
// A per-workspace mutex serializes builds so concurrent requests for the same
// workspace trigger at most one rebuild; different workspaces build in
// parallel.
type Registry struct {
	build  BuildFunc
	logger *zap.Logger

	mu      sync.Mutex
	engines map[string]*Engine
	locks   map[string]*sync.Mutex
}

// NewRegistry creates a registry using build for engine construction.
func NewRegistry(build BuildFunc, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		build:   build,
		logger:  logger,
		engines: make(map[string]*Engine),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Get returns the engine for workspaceID, building it if absent. A failed
// build leaves nothing cached, so the next call retries.
func (r *Registry) Get(ctx context.Context, workspaceID string) (*Engine, error) {
	lock := r.workspaceLock(workspaceID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	eng, ok := r.engines[workspaceID]
	r.mu.Unlock()
	if ok {
		return eng, nil
	}

	r.logger.Info("building workspace engine", zap.String("workspace", workspaceID))
	eng, err := r.build(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.engines[workspaceID] = eng
	r.mu.Unlock()
	return eng, nil
}

// Invalidate drops the cached engine for workspaceID. The next Get rebuilds.
func (r *Registry) Invalidate(workspaceID string) {
	r.mu.Lock()
	_, ok := r.engines[workspaceID]
	delete(r.engines, workspaceID)
	r.mu.Unlock()
	if ok {
		r.logger.Info("invalidated workspace engine", zap.String("workspace", workspaceID))
	}
}

// Loaded returns the workspace IDs with a cached engine, sorted.
func (r *Registry) Loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// workspaceLock returns the build lock for workspaceID, creating it once.
func (r *Registry) workspaceLock(workspaceID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[workspaceID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[workspaceID] = lock
	}
	return lock
}
