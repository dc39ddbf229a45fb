package driver

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/graphmind-ai/graphmind/pkg/types"
)

// MemoryStore implements GraphStore entirely in process memory. It backs
// demo setups and tests where no graph database is available.
type MemoryStore struct {
	mu     sync.RWMutex
	graphs map[string]*memoryGraph
}

type memoryGraph struct {
	info  types.GraphInfo
	nodes map[string]*types.Node
	edges map[string]*types.Edge
}

// NewMemoryStore creates an empty in-memory graph store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		graphs: make(map[string]*memoryGraph),
	}
}

// CreateGraph initializes an empty graph instance.
func (m *MemoryStore) CreateGraph(ctx context.Context, info types.GraphInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.graphs[info.ID] = &memoryGraph{
		info:  info,
		nodes: make(map[string]*types.Node),
		edges: make(map[string]*types.Edge),
	}
	return nil
}

// GetGraphInfo returns the descriptor of a graph instance.
func (m *MemoryStore) GetGraphInfo(ctx context.Context, graphID string) (*types.GraphInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.graphs[graphID]
	if !ok {
		return nil, ErrGraphNotFound
	}

	info := g.info
	info.NodeCount = int64(len(g.nodes))
	info.EdgeCount = int64(len(g.edges))
	return &info, nil
}

// ListGraphs returns descriptors of all graph instances.
func (m *MemoryStore) ListGraphs(ctx context.Context) ([]types.GraphInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]types.GraphInfo, 0, len(m.graphs))
	for _, g := range m.graphs {
		info := g.info
		info.NodeCount = int64(len(g.nodes))
		info.EdgeCount = int64(len(g.edges))
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos, nil
}

// DropGraph removes a graph instance and all contained data.
func (m *MemoryStore) DropGraph(ctx context.Context, graphID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.graphs[graphID]; !ok {
		return ErrGraphNotFound
	}
	delete(m.graphs, graphID)
	return nil
}

// UpsertNode creates or updates a node.
func (m *MemoryStore) UpsertNode(ctx context.Context, node *types.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.graphs[node.GraphID]
	if !ok {
		return ErrGraphNotFound
	}

	stored := *node
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = time.Now()
	g.nodes[stored.ID] = &stored
	return nil
}

// UpsertEdge creates or updates an edge.
func (m *MemoryStore) UpsertEdge(ctx context.Context, edge *types.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.graphs[edge.GraphID]
	if !ok {
		return ErrGraphNotFound
	}

	stored := *edge
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = time.Now()
	g.edges[stored.ID] = &stored
	return nil
}

// GetNode retrieves a node by id.
func (m *MemoryStore) GetNode(ctx context.Context, graphID, nodeID string) (*types.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.graphs[graphID]
	if !ok {
		return nil, ErrGraphNotFound
	}
	node, ok := g.nodes[nodeID]
	if !ok {
		return nil, ErrNodeNotFound
	}

	copied := *node
	return &copied, nil
}

// ListNodes returns nodes matching filters, up to limit.
func (m *MemoryStore) ListNodes(ctx context.Context, graphID string, filters types.SnapshotFilters, limit int) ([]*types.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.graphs[graphID]
	if !ok {
		return nil, ErrGraphNotFound
	}

	var nodes []*types.Node
	for _, node := range g.nodes {
		if !matchesFilters(node, filters) {
			continue
		}
		copied := *node
		nodes = append(nodes, &copied)
	}

	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
			return nodes[i].ID < nodes[j].ID
		}
		return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
	})

	if limit > 0 && len(nodes) > limit {
		nodes = nodes[:limit]
	}
	return nodes, nil
}

// ListEdges returns edges of a graph, up to limit.
func (m *MemoryStore) ListEdges(ctx context.Context, graphID string, limit int) ([]*types.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.graphs[graphID]
	if !ok {
		return nil, ErrGraphNotFound
	}

	var edges []*types.Edge
	for _, edge := range g.edges {
		copied := *edge
		edges = append(edges, &copied)
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].CreatedAt.Equal(edges[j].CreatedAt) {
			return edges[i].ID < edges[j].ID
		}
		return edges[i].CreatedAt.Before(edges[j].CreatedAt)
	})

	if limit > 0 && len(edges) > limit {
		edges = edges[:limit]
	}
	return edges, nil
}

// NodeEdges returns all edges touching nodeID in either direction.
func (m *MemoryStore) NodeEdges(ctx context.Context, graphID, nodeID string) ([]*types.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.graphs[graphID]
	if !ok {
		return nil, ErrGraphNotFound
	}

	var edges []*types.Edge
	for _, edge := range g.edges {
		if edge.SourceID != nodeID && edge.TargetID != nodeID {
			continue
		}
		copied := *edge
		edges = append(edges, &copied)
	}

	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges, nil
}

// Stats returns node/edge counts by type and the temporal range.
func (m *MemoryStore) Stats(ctx context.Context, graphID string) (*types.GraphStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.graphs[graphID]
	if !ok {
		return nil, ErrGraphNotFound
	}

	stats := &types.GraphStats{
		GraphID:     graphID,
		NodeCount:   int64(len(g.nodes)),
		EdgeCount:   int64(len(g.edges)),
		NodesByType: make(map[string]int64),
		EdgesByType: make(map[string]int64),
	}

	var earliest, latest time.Time
	for _, node := range g.nodes {
		stats.NodesByType[string(node.Type)]++
		if earliest.IsZero() || node.CreatedAt.Before(earliest) {
			earliest = node.CreatedAt
		}
		if node.CreatedAt.After(latest) {
			latest = node.CreatedAt
		}
	}
	for _, edge := range g.edges {
		name := edge.Name
		if name == "" {
			name = "related_to"
		}
		stats.EdgesByType[name]++
	}

	if !earliest.IsZero() {
		stats.TemporalRange = &types.TimeRange{Start: earliest, End: latest}
	}
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}

func matchesFilters(node *types.Node, filters types.SnapshotFilters) bool {
	if !filters.TimeRange.Contains(node.CreatedAt) {
		return false
	}
	if len(filters.NodeTypes) > 0 {
		found := false
		for _, t := range filters.NodeTypes {
			if node.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(filters.EntityTypes) > 0 {
		found := false
		for _, t := range filters.EntityTypes {
			if node.EntityType == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
