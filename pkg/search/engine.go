// Package search implements relevance queries, visualization snapshots,
// timeline bucketing and subgraph expansion over graph instances.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/graphmind-ai/graphmind/pkg/driver"
	"github.com/graphmind-ai/graphmind/pkg/types"
)

const (
	// defaultSearchLimit applies when a relevance query does not specify
	// a limit.
	defaultSearchLimit = 10
	// maxBucketSamples bounds the representative records per timeline
	// bucket.
	maxBucketSamples = 10
	// contentPreviewLimit bounds result content length.
	contentPreviewLimit = 200
)

// Engine answers read queries against graph instances.
type Engine struct {
	store  driver.GraphStore
	logger *slog.Logger
}

// NewEngine creates a search engine over store.
func NewEngine(store driver.GraphStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger}
}

// Search ranks graph records by lexical overlap with the query terms.
// Ties break most-recent-first. An empty graph yields an empty result
// set, not an error; a missing graph does.
func (e *Engine) Search(ctx context.Context, graphID, query string, limit int, timeRange *types.TimeRange) (*types.SearchResults, error) {
	if _, err := e.store.GetGraphInfo(ctx, graphID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	nodes, err := e.store.ListNodes(ctx, graphID, types.SnapshotFilters{TimeRange: timeRange}, 0)
	if err != nil {
		return nil, fmt.Errorf("list nodes for search: %w", err)
	}

	terms := queryTerms(query)
	var results []types.SearchResult
	for _, node := range nodes {
		score := scoreNode(node, terms)
		if score <= 0 {
			continue
		}
		results = append(results, types.SearchResult{
			ID:        node.ID,
			Content:   preview(nodeText(node)),
			Type:      node.Type,
			Score:     score,
			Metadata:  node.Metadata,
			CreatedAt: node.CreatedAt,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	total := len(results)
	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []types.SearchResult{}
	}

	e.logger.Info("search completed", "graph_id", graphID, "query", query, "results", total)
	return &types.SearchResults{Results: results, Query: query, Total: total}, nil
}

// Visualize returns a bounded snapshot of the graph. Edges whose
// endpoints fall outside the filtered node set are dropped so the
// snapshot never contains dangling references.
func (e *Engine) Visualize(ctx context.Context, graphID string, filters types.SnapshotFilters, limit int) (*types.GraphSnapshot, error) {
	if _, err := e.store.GetGraphInfo(ctx, graphID); err != nil {
		return nil, err
	}

	nodes, err := e.store.ListNodes(ctx, graphID, filters, limit)
	if err != nil {
		return nil, fmt.Errorf("list nodes for snapshot: %w", err)
	}

	edges, err := e.store.ListEdges(ctx, graphID, 0)
	if err != nil {
		return nil, fmt.Errorf("list edges for snapshot: %w", err)
	}

	present := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		present[node.ID] = struct{}{}
	}

	kept := make([]*types.Edge, 0, len(edges))
	for _, edge := range edges {
		if _, ok := present[edge.SourceID]; !ok {
			continue
		}
		if _, ok := present[edge.TargetID]; !ok {
			continue
		}
		kept = append(kept, edge)
	}

	return &types.GraphSnapshot{Nodes: nodes, Edges: kept}, nil
}

// Timeline buckets the graph's records by creation time at the given
// granularity. Buckets are returned oldest first, each carrying counts,
// the distinct node types seen and up to ten sample records.
func (e *Engine) Timeline(ctx context.Context, graphID string, granularity types.Granularity, timeRange *types.TimeRange) ([]types.TimelineBucket, error) {
	if _, err := e.store.GetGraphInfo(ctx, graphID); err != nil {
		return nil, err
	}

	nodes, err := e.store.ListNodes(ctx, graphID, types.SnapshotFilters{TimeRange: timeRange}, 0)
	if err != nil {
		return nil, fmt.Errorf("list nodes for timeline: %w", err)
	}

	buckets := make(map[time.Time]*types.TimelineBucket)
	typesSeen := make(map[time.Time]map[string]struct{})
	for _, node := range nodes {
		period, err := truncateToPeriod(node.CreatedAt, granularity)
		if err != nil {
			return nil, err
		}

		bucket, ok := buckets[period]
		if !ok {
			bucket = &types.TimelineBucket{Period: period}
			buckets[period] = bucket
			typesSeen[period] = make(map[string]struct{})
		}

		bucket.NodeCount++
		if _, seen := typesSeen[period][string(node.Type)]; !seen {
			typesSeen[period][string(node.Type)] = struct{}{}
			bucket.NodeTypes = append(bucket.NodeTypes, string(node.Type))
		}
		if len(bucket.Samples) < maxBucketSamples {
			bucket.Samples = append(bucket.Samples, node)
		}
	}

	out := make([]types.TimelineBucket, 0, len(buckets))
	for _, bucket := range buckets {
		sort.Strings(bucket.NodeTypes)
		out = append(out, *bucket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })

	return out, nil
}

// Subgraph expands the neighborhood around nodeID breadth-first up to
// depth hops, bounded by limit nodes. Returned edges connect only
// returned nodes.
func (e *Engine) Subgraph(ctx context.Context, graphID, nodeID string, depth, limit int) (*types.GraphSnapshot, error) {
	center, err := e.store.GetNode(ctx, graphID, nodeID)
	if err != nil {
		return nil, err
	}
	if depth <= 0 {
		depth = 1
	}
	if limit <= 0 {
		limit = 50
	}

	visited := map[string]*types.Node{center.ID: center}
	order := []*types.Node{center}
	frontier := []string{center.ID}
	edgeSet := make(map[string]*types.Edge)

	for hop := 0; hop < depth && len(frontier) > 0 && len(order) < limit; hop++ {
		var next []string
		for _, id := range frontier {
			edges, err := e.store.NodeEdges(ctx, graphID, id)
			if err != nil {
				return nil, fmt.Errorf("expand node %s: %w", id, err)
			}

			for _, edge := range edges {
				edgeSet[edge.ID] = edge

				for _, neighborID := range []string{edge.SourceID, edge.TargetID} {
					if _, ok := visited[neighborID]; ok {
						continue
					}
					if len(order) >= limit {
						break
					}
					neighbor, err := e.store.GetNode(ctx, graphID, neighborID)
					if err != nil {
						// An edge may outlive its endpoint; skip it.
						continue
					}
					visited[neighborID] = neighbor
					order = append(order, neighbor)
					next = append(next, neighborID)
				}
			}
		}
		frontier = next
	}

	edges := make([]*types.Edge, 0, len(edgeSet))
	for _, edge := range edgeSet {
		if _, ok := visited[edge.SourceID]; !ok {
			continue
		}
		if _, ok := visited[edge.TargetID]; !ok {
			continue
		}
		edges = append(edges, edge)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })

	return &types.GraphSnapshot{Nodes: order, Edges: edges}, nil
}

// queryTerms lowercases and splits the query into scoring terms.
func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'")
		if f != "" {
			terms = append(terms, f)
		}
	}
	return terms
}

// scoreNode is the fraction of query terms present in the node's text.
func scoreNode(node *types.Node, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	text := strings.ToLower(nodeText(node))
	matched := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

func nodeText(node *types.Node) string {
	if node.Content != "" {
		return node.Content
	}
	if node.Summary != "" {
		return node.Name + ": " + node.Summary
	}
	return node.Name
}

func preview(s string) string {
	if len(s) > contentPreviewLimit {
		return s[:contentPreviewLimit] + "..."
	}
	return s
}

// truncateToPeriod aligns t to the start of its bucket in UTC. Weeks
// start on Monday.
func truncateToPeriod(t time.Time, granularity types.Granularity) (time.Time, error) {
	t = t.UTC()
	switch granularity {
	case types.GranularityHour:
		return t.Truncate(time.Hour), nil
	case types.GranularityDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	case types.GranularityWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset), nil
	case types.GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, fmt.Errorf("unknown timeline granularity %q", granularity)
	}
}
