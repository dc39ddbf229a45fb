package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/graphmind-ai/graphmind/pkg/types"
)

// Neo4jStore implements GraphStore for Neo4j databases. Graph instances
// share one physical database and are isolated by a graph_id property;
// descriptors live on dedicated GraphMeta nodes.
type Neo4jStore struct {
	client   neo4j.DriverWithContext
	database string
}

// NewNeo4jStore creates a new Neo4j-backed graph store.
func NewNeo4jStore(uri, username, password, database string) (*Neo4jStore, error) {
	client, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if database == "" {
		database = "neo4j"
	}

	return &Neo4jStore{
		client:   client,
		database: database,
	}, nil
}

func (n *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
}

// CreateGraph initializes an empty graph instance.
func (n *Neo4jStore) CreateGraph(ctx context.Context, info types.GraphInfo) error {
	session := n.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MERGE (g:GraphMeta {graph_id: $graph_id})
			SET g.name = $name, g.created_at = $created_at
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"graph_id":   info.ID,
			"name":       info.Name,
			"created_at": info.CreatedAt.Format(time.RFC3339Nano),
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to create graph %s: %w", info.ID, err)
	}
	return nil
}

// GetGraphInfo returns the descriptor of a graph instance, including
// current node and edge counts.
func (n *Neo4jStore) GetGraphInfo(ctx context.Context, graphID string) (*types.GraphInfo, error) {
	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (g:GraphMeta {graph_id: $graph_id})
			OPTIONAL MATCH (n:Record {graph_id: $graph_id})
			WITH g, count(n) AS node_count
			OPTIONAL MATCH (:Record {graph_id: $graph_id})-[r:RELATES_TO]->(:Record)
			RETURN g.name AS name, g.created_at AS created_at,
			       node_count, count(r) AS edge_count
		`
		res, err := tx.Run(ctx, query, map[string]any{"graph_id": graphID})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}

	records := result.([]*db.Record)
	if len(records) == 0 {
		return nil, ErrGraphNotFound
	}

	record := records[0]
	info := &types.GraphInfo{ID: graphID}
	if name, ok := record.Get("name"); ok {
		info.Name, _ = name.(string)
	}
	if created, ok := record.Get("created_at"); ok {
		info.CreatedAt = parseTime(created)
	}
	if count, ok := record.Get("node_count"); ok {
		info.NodeCount, _ = count.(int64)
	}
	if count, ok := record.Get("edge_count"); ok {
		info.EdgeCount, _ = count.(int64)
	}
	return info, nil
}

// ListGraphs returns descriptors of all graph instances.
func (n *Neo4jStore) ListGraphs(ctx context.Context) ([]types.GraphInfo, error) {
	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (g:GraphMeta)
			OPTIONAL MATCH (n:Record {graph_id: g.graph_id})
			WITH g, count(n) AS node_count
			OPTIONAL MATCH (:Record {graph_id: g.graph_id})-[r:RELATES_TO]->(:Record)
			RETURN g.graph_id AS graph_id, g.name AS name, g.created_at AS created_at,
			       node_count, count(r) AS edge_count
			ORDER BY g.created_at
		`
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}

	records := result.([]*db.Record)
	infos := make([]types.GraphInfo, 0, len(records))
	for _, record := range records {
		var info types.GraphInfo
		if v, ok := record.Get("graph_id"); ok {
			info.ID, _ = v.(string)
		}
		if v, ok := record.Get("name"); ok {
			info.Name, _ = v.(string)
		}
		if v, ok := record.Get("created_at"); ok {
			info.CreatedAt = parseTime(v)
		}
		if v, ok := record.Get("node_count"); ok {
			info.NodeCount, _ = v.(int64)
		}
		if v, ok := record.Get("edge_count"); ok {
			info.EdgeCount, _ = v.(int64)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// DropGraph removes a graph instance and all contained data.
func (n *Neo4jStore) DropGraph(ctx context.Context, graphID string) error {
	if _, err := n.GetGraphInfo(ctx, graphID); err != nil {
		return err
	}

	session := n.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (n {graph_id: $graph_id})
			DETACH DELETE n
		`
		_, err := tx.Run(ctx, query, map[string]any{"graph_id": graphID})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to drop graph %s: %w", graphID, err)
	}
	return nil
}

// UpsertNode creates or updates a node.
func (n *Neo4jStore) UpsertNode(ctx context.Context, node *types.Node) error {
	if node == nil {
		return fmt.Errorf("cannot upsert nil node")
	}

	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now()
	}
	node.UpdatedAt = time.Now()

	session := n.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MERGE (n:Record {id: $id, graph_id: $graph_id})
			SET n += $properties
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"id":         node.ID,
			"graph_id":   node.GraphID,
			"properties": nodeProperties(node),
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert node %s: %w", node.ID, err)
	}
	return nil
}

// UpsertEdge creates or updates an edge between two existing nodes.
func (n *Neo4jStore) UpsertEdge(ctx context.Context, edge *types.Edge) error {
	if edge == nil {
		return fmt.Errorf("cannot upsert nil edge")
	}

	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now()
	}
	edge.UpdatedAt = time.Now()

	session := n.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (a:Record {id: $source_id, graph_id: $graph_id})
			MATCH (b:Record {id: $target_id, graph_id: $graph_id})
			MERGE (a)-[r:RELATES_TO {id: $id}]->(b)
			SET r += $properties
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"id":         edge.ID,
			"graph_id":   edge.GraphID,
			"source_id":  edge.SourceID,
			"target_id":  edge.TargetID,
			"properties": edgeProperties(edge),
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert edge %s: %w", edge.ID, err)
	}
	return nil
}

// GetNode retrieves a node by id.
func (n *Neo4jStore) GetNode(ctx context.Context, graphID, nodeID string) (*types.Node, error) {
	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (n:Record {id: $id, graph_id: $graph_id})
			RETURN properties(n) AS props
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"id":       nodeID,
			"graph_id": graphID,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}

	records := result.([]*db.Record)
	if len(records) == 0 {
		return nil, ErrNodeNotFound
	}
	return nodeFromRecord(records[0]), nil
}

// ListNodes returns nodes matching filters, up to limit.
func (n *Neo4jStore) ListNodes(ctx context.Context, graphID string, filters types.SnapshotFilters, limit int) ([]*types.Node, error) {
	conditions := "n.graph_id = $graph_id"
	params := map[string]any{"graph_id": graphID}

	if filters.TimeRange != nil {
		if !filters.TimeRange.Start.IsZero() {
			conditions += " AND n.created_at >= $start"
			params["start"] = filters.TimeRange.Start.Format(time.RFC3339Nano)
		}
		if !filters.TimeRange.End.IsZero() {
			conditions += " AND n.created_at <= $end"
			params["end"] = filters.TimeRange.End.Format(time.RFC3339Nano)
		}
	}
	if len(filters.NodeTypes) > 0 {
		nodeTypes := make([]string, len(filters.NodeTypes))
		for i, t := range filters.NodeTypes {
			nodeTypes[i] = string(t)
		}
		conditions += " AND n.type IN $node_types"
		params["node_types"] = nodeTypes
	}
	if len(filters.EntityTypes) > 0 {
		conditions += " AND n.entity_type IN $entity_types"
		params["entity_types"] = filters.EntityTypes
	}

	query := fmt.Sprintf(`
		MATCH (n:Record)
		WHERE %s
		RETURN properties(n) AS props
		ORDER BY n.created_at, n.id
	`, conditions)
	if limit > 0 {
		query += " LIMIT $limit"
		params["limit"] = limit
	}

	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}

	records := result.([]*db.Record)
	nodes := make([]*types.Node, 0, len(records))
	for _, record := range records {
		nodes = append(nodes, nodeFromRecord(record))
	}
	return nodes, nil
}

// ListEdges returns edges of a graph, up to limit.
func (n *Neo4jStore) ListEdges(ctx context.Context, graphID string, limit int) ([]*types.Edge, error) {
	params := map[string]any{"graph_id": graphID}
	query := `
		MATCH (:Record {graph_id: $graph_id})-[r:RELATES_TO]->(:Record)
		RETURN properties(r) AS props
		ORDER BY r.created_at, r.id
	`
	if limit > 0 {
		query += " LIMIT $limit"
		params["limit"] = limit
	}

	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}

	records := result.([]*db.Record)
	edges := make([]*types.Edge, 0, len(records))
	for _, record := range records {
		edges = append(edges, edgeFromRecord(record))
	}
	return edges, nil
}

// NodeEdges returns all edges touching nodeID in either direction.
func (n *Neo4jStore) NodeEdges(ctx context.Context, graphID, nodeID string) ([]*types.Edge, error) {
	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (n:Record {id: $id, graph_id: $graph_id})-[r:RELATES_TO]-(:Record)
			RETURN DISTINCT properties(r) AS props
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"id":       nodeID,
			"graph_id": graphID,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}

	records := result.([]*db.Record)
	edges := make([]*types.Edge, 0, len(records))
	for _, record := range records {
		edges = append(edges, edgeFromRecord(record))
	}
	return edges, nil
}

// Stats returns node/edge counts by type and the temporal range.
func (n *Neo4jStore) Stats(ctx context.Context, graphID string) (*types.GraphStats, error) {
	if _, err := n.GetGraphInfo(ctx, graphID); err != nil {
		return nil, err
	}

	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (n:Record {graph_id: $graph_id})
			WITH n.type AS node_type, count(n) AS node_count,
			     min(n.created_at) AS earliest, max(n.created_at) AS latest
			RETURN node_type, node_count, earliest, latest
		`
		res, err := tx.Run(ctx, query, map[string]any{"graph_id": graphID})
		if err != nil {
			return nil, err
		}
		nodeRecords, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		edgeQuery := `
			MATCH (:Record {graph_id: $graph_id})-[r:RELATES_TO]->(:Record)
			RETURN coalesce(r.name, 'related_to') AS edge_type, count(r) AS edge_count
		`
		res, err = tx.Run(ctx, edgeQuery, map[string]any{"graph_id": graphID})
		if err != nil {
			return nil, err
		}
		edgeRecords, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return [2][]*db.Record{nodeRecords, edgeRecords}, nil
	})
	if err != nil {
		return nil, err
	}

	pair := result.([2][]*db.Record)
	stats := &types.GraphStats{
		GraphID:     graphID,
		NodesByType: make(map[string]int64),
		EdgesByType: make(map[string]int64),
	}

	var earliest, latest time.Time
	for _, record := range pair[0] {
		nodeType, _ := recordString(record, "node_type")
		if count, ok := record.Get("node_count"); ok {
			c, _ := count.(int64)
			stats.NodesByType[nodeType] += c
			stats.NodeCount += c
		}
		if v, ok := record.Get("earliest"); ok {
			if t := parseTime(v); !t.IsZero() && (earliest.IsZero() || t.Before(earliest)) {
				earliest = t
			}
		}
		if v, ok := record.Get("latest"); ok {
			if t := parseTime(v); t.After(latest) {
				latest = t
			}
		}
	}
	for _, record := range pair[1] {
		edgeType, _ := recordString(record, "edge_type")
		if count, ok := record.Get("edge_count"); ok {
			c, _ := count.(int64)
			stats.EdgesByType[edgeType] += c
			stats.EdgeCount += c
		}
	}

	if !earliest.IsZero() {
		stats.TemporalRange = &types.TimeRange{Start: earliest, End: latest}
	}
	return stats, nil
}

// Close closes the underlying driver.
func (n *Neo4jStore) Close(ctx context.Context) error {
	return n.client.Close(ctx)
}

func nodeProperties(node *types.Node) map[string]any {
	props := map[string]any{
		"name":       node.Name,
		"type":       string(node.Type),
		"created_at": node.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": node.UpdatedAt.Format(time.RFC3339Nano),
	}
	if node.Content != "" {
		props["content"] = node.Content
	}
	if node.EntityType != "" {
		props["entity_type"] = node.EntityType
	}
	if node.Summary != "" {
		props["summary"] = node.Summary
	}
	if len(node.Metadata) > 0 {
		if data, err := json.Marshal(node.Metadata); err == nil {
			props["metadata"] = string(data)
		}
	}
	return props
}

func edgeProperties(edge *types.Edge) map[string]any {
	props := map[string]any{
		"graph_id":   edge.GraphID,
		"source_id":  edge.SourceID,
		"target_id":  edge.TargetID,
		"created_at": edge.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": edge.UpdatedAt.Format(time.RFC3339Nano),
	}
	if edge.Name != "" {
		props["name"] = edge.Name
	}
	if edge.Summary != "" {
		props["summary"] = edge.Summary
	}
	if len(edge.Metadata) > 0 {
		if data, err := json.Marshal(edge.Metadata); err == nil {
			props["metadata"] = string(data)
		}
	}
	return props
}

func nodeFromRecord(record *db.Record) *types.Node {
	props := recordProps(record)
	node := &types.Node{}
	node.ID, _ = props["id"].(string)
	node.GraphID, _ = props["graph_id"].(string)
	node.Name, _ = props["name"].(string)
	if t, ok := props["type"].(string); ok {
		node.Type = types.NodeType(t)
	}
	node.Content, _ = props["content"].(string)
	node.EntityType, _ = props["entity_type"].(string)
	node.Summary, _ = props["summary"].(string)
	node.CreatedAt = parseTime(props["created_at"])
	node.UpdatedAt = parseTime(props["updated_at"])
	if raw, ok := props["metadata"].(string); ok && raw != "" {
		var metadata map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &metadata); err == nil {
			node.Metadata = metadata
		}
	}
	return node
}

func edgeFromRecord(record *db.Record) *types.Edge {
	props := recordProps(record)
	edge := &types.Edge{}
	edge.ID, _ = props["id"].(string)
	edge.GraphID, _ = props["graph_id"].(string)
	edge.SourceID, _ = props["source_id"].(string)
	edge.TargetID, _ = props["target_id"].(string)
	edge.Name, _ = props["name"].(string)
	edge.Summary, _ = props["summary"].(string)
	edge.CreatedAt = parseTime(props["created_at"])
	edge.UpdatedAt = parseTime(props["updated_at"])
	if raw, ok := props["metadata"].(string); ok && raw != "" {
		var metadata map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &metadata); err == nil {
			edge.Metadata = metadata
		}
	}
	return edge
}

func recordProps(record *db.Record) map[string]any {
	if v, ok := record.Get("props"); ok {
		if props, ok := v.(map[string]any); ok {
			return props
		}
	}
	return map[string]any{}
}

func recordString(record *db.Record, key string) (string, bool) {
	if v, ok := record.Get(key); ok {
		s, ok := v.(string)
		return s, ok
	}
	return "", false
}

func parseTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
