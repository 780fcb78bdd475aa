package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore serves the section tree from Neo4j. Sections are stored as
// (:Section) nodes with an `ord` property recording creation order, linked
// by (parent)-[:HAS_CHILD {order}]->(child) edges.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
}

func NewNeo4jStore(driver neo4j.DriverWithContext) *Neo4jStore {
	return &Neo4jStore{driver: driver}
}

const sectionReturn = `s.id AS id,
	       s.parent_id AS parentID,
	       s.title AS title,
	       s.level AS level,
	       s.start_line AS startLine,
	       s.end_line AS endLine,
	       s.summary AS summary,
	       s.embedding AS embedding`

func (s *Neo4jStore) Node(ctx context.Context, id string) (*SectionNode, error) {
	nodes, err := s.query(ctx, `
		MATCH (s:Section {id: $id})
		RETURN `+sectionReturn, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("node %s: %w", id, ErrNodeNotFound)
	}
	return nodes[0], nil
}

func (s *Neo4jStore) NodesWithEmbeddings(ctx context.Context) ([]*SectionNode, error) {
	return s.query(ctx, `
		MATCH (s:Section)
		WHERE s.embedding IS NOT NULL AND size(s.embedding) > 0
		RETURN `+sectionReturn+`
		ORDER BY s.ord`, nil)
}

func (s *Neo4jStore) Children(ctx context.Context, id string) ([]*SectionNode, error) {
	return s.query(ctx, `
		MATCH (:Section {id: $id})-[r:HAS_CHILD]->(s:Section)
		RETURN `+sectionReturn+`
		ORDER BY r.order`, map[string]any{"id": id})
}

func (s *Neo4jStore) Parent(ctx context.Context, id string) (*SectionNode, error) {
	nodes, err := s.query(ctx, `
		MATCH (s:Section)-[:HAS_CHILD]->(:Section {id: $id})
		RETURN `+sectionReturn, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return nodes[0], nil
}

func (s *Neo4jStore) SearchByKeyword(ctx context.Context, terms []string) ([]*SectionNode, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	return s.query(ctx, `
		MATCH (s:Section)
		WHERE any(term IN $terms WHERE toLower(s.title) CONTAINS term OR toLower(s.id) CONTAINS term)
		RETURN `+sectionReturn+`
		ORDER BY s.ord`, map[string]any{"terms": terms})
}

func (s *Neo4jStore) query(ctx context.Context, cypher string, params map[string]any) ([]*SectionNode, error) {
	if s.driver == nil {
		return nil, fmt.Errorf("neo4j driver is nil")
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("run neo4j section query: %w", err)
	}

	nodes := make([]*SectionNode, 0)
	for result.Next(ctx) {
		record := result.Record()
		node := &SectionNode{}

		if v, ok := record.Get("id"); ok {
			node.ID, _ = v.(string)
		}
		if node.ID == "" {
			continue
		}
		if v, ok := record.Get("parentID"); ok {
			node.ParentID, _ = v.(string)
		}
		if v, ok := record.Get("title"); ok {
			node.Title, _ = v.(string)
		}
		if v, ok := record.Get("level"); ok {
			node.Level, _ = toInt(v)
		}
		if v, ok := record.Get("startLine"); ok {
			node.StartLine, _ = toInt(v)
		}
		if v, ok := record.Get("endLine"); ok {
			node.EndLine, _ = toInt(v)
		}
		if v, ok := record.Get("summary"); ok {
			node.Summary, _ = v.(string)
		}
		if v, ok := record.Get("embedding"); ok {
			node.SummaryEmbedding = toFloat32Slice(v)
		}

		nodes = append(nodes, node)
	}

	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("neo4j section result error: %w", err)
	}

	return nodes, nil
}

// SyncNodes writes a batch of section nodes and their containment edges to
// Neo4j. It is called by the snapshot loader, never by the query path.
func (s *Neo4jStore) SyncNodes(ctx context.Context, nodes []SectionNode) error {
	if s.driver == nil {
		return fmt.Errorf("neo4j driver is nil")
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for ord, node := range nodes {
			if err := node.Validate(); err != nil {
				return nil, err
			}

			params := map[string]any{
				"id":         node.ID,
				"parent_id":  node.ParentID,
				"title":      node.Title,
				"level":      node.Level,
				"start_line": node.StartLine,
				"end_line":   node.EndLine,
				"summary":    node.Summary,
				"embedding":  toFloat64Slice(node.SummaryEmbedding),
				"ord":        ord,
			}

			if _, err := tx.Run(ctx, `
				MERGE (s:Section {id: $id})
				SET s.parent_id = $parent_id,
				    s.title = $title,
				    s.level = $level,
				    s.start_line = $start_line,
				    s.end_line = $end_line,
				    s.summary = $summary,
				    s.embedding = $embedding,
				    s.ord = $ord,
				    s.updated_at = datetime()
			`, params); err != nil {
				return nil, fmt.Errorf("upsert section node %s: %w", node.ID, err)
			}

			if node.ParentID == "" {
				continue
			}
			if _, err := tx.Run(ctx, `
				MATCH (p:Section {id: $parent_id}), (s:Section {id: $id})
				MERGE (p)-[r:HAS_CHILD]->(s)
				SET r.order = $ord
			`, params); err != nil {
				return nil, fmt.Errorf("link section node %s to parent: %w", node.ID, err)
			}
		}
		return nil, nil
	})

	return err
}

var _ Store = (*Neo4jStore)(nil)

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func toFloat32Slice(value any) []float32 {
	raw, ok := value.([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	result := make([]float32, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case float64:
			result = append(result, float32(v))
		case float32:
			result = append(result, v)
		case int64:
			result = append(result, float32(v))
		}
	}
	return result
}

func toFloat64Slice(values []float32) []float64 {
	if len(values) == 0 {
		return nil
	}
	result := make([]float64, len(values))
	for i, v := range values {
		result[i] = float64(v)
	}
	return result
}
