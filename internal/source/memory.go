package source

import (
	"context"
	"slices"
	"sync"

	"github.com/sells-group/coverage-cli/internal/coverage"
)

// Memory is an in-process Source, used by tests and by callers that already
// hold their inputs.
type Memory struct {
	mu          sync.RWMutex
	regions     map[string]coverage.Boundary
	collections map[string][]coverage.GeoPoint
}

// NewMemory returns an empty Memory source.
func NewMemory() *Memory {
	return &Memory{
		regions:     make(map[string]coverage.Boundary),
		collections: make(map[string][]coverage.GeoPoint),
	}
}

// SetRegion registers a boundary.
func (m *Memory) SetRegion(name string, b coverage.Boundary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regions[name] = b
}

// SetPoints registers a collection; the slice is copied.
func (m *Memory) SetPoints(name string, points []coverage.GeoPoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[name] = slices.Clone(points)
}

// Boundary returns a registered region.
func (m *Memory) Boundary(_ context.Context, region string) (coverage.Boundary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.regions[region]
	if !ok {
		return nil, notFound("region", region)
	}
	return b, nil
}

// Points returns a copy of a registered collection.
func (m *Memory) Points(_ context.Context, collection string) ([]coverage.GeoPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pts, ok := m.collections[collection]
	if !ok {
		return nil, notFound("collection", collection)
	}
	return slices.Clone(pts), nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
