package driver

import (
	"context"
	"errors"

	"github.com/graphmind-ai/graphmind/pkg/types"
)

var (
	// ErrGraphNotFound is returned when a graph instance does not exist
	// in the backing store.
	ErrGraphNotFound = errors.New("graph not found")
	// ErrNodeNotFound is returned when a node does not exist in a graph.
	ErrNodeNotFound = errors.New("node not found")
)

// GraphStore defines the interface for graph database backends. Each graph
// instance is an isolated named store of nodes and edges; implementations
// scope all node and edge operations by graph id.
type GraphStore interface {
	// Graph lifecycle
	CreateGraph(ctx context.Context, info types.GraphInfo) error
	GetGraphInfo(ctx context.Context, graphID string) (*types.GraphInfo, error)
	ListGraphs(ctx context.Context) ([]types.GraphInfo, error)
	DropGraph(ctx context.Context, graphID string) error

	// Node and edge operations
	UpsertNode(ctx context.Context, node *types.Node) error
	UpsertEdge(ctx context.Context, edge *types.Edge) error
	GetNode(ctx context.Context, graphID, nodeID string) (*types.Node, error)

	// ListNodes returns nodes matching filters, up to limit (<= 0 means
	// unbounded). Filter categories compose with AND, values within a
	// category with OR.
	ListNodes(ctx context.Context, graphID string, filters types.SnapshotFilters, limit int) ([]*types.Node, error)
	ListEdges(ctx context.Context, graphID string, limit int) ([]*types.Edge, error)

	// NodeEdges returns all edges touching nodeID in either direction.
	NodeEdges(ctx context.Context, graphID, nodeID string) ([]*types.Edge, error)

	Stats(ctx context.Context, graphID string) (*types.GraphStats, error)

	Close(ctx context.Context) error
}
