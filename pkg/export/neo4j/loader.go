package neo4j

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	neo4jdriver "github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/matzehuels/flatmap/pkg/errors"
	"github.com/matzehuels/flatmap/pkg/network"
	"github.com/matzehuels/flatmap/pkg/route"
)

// Executor runs one Cypher statement.
type Executor interface {
	Execute(ctx context.Context, cypher string, params map[string]any) error
}

// Config locates the database.
type Config struct {
	URI      string
	User     string
	Password string
	Database string
}

// driverExecutor runs statements through the official driver.
type driverExecutor struct {
	driver   neo4jdriver.DriverWithContext
	database string
}

func (d *driverExecutor) Execute(ctx context.Context, cypher string, params map[string]any) error {
	_, err := neo4jdriver.ExecuteQuery(ctx, d.driver, cypher, params,
		neo4jdriver.EagerResultTransformer,
		neo4jdriver.ExecuteQueryWithDatabase(d.database))
	return err
}

// Loader writes one map's graph into Neo4j using batch UNWIND queries.
type Loader struct {
	exec   Executor
	mapID  string
	logger *log.Logger
	close  func(context.Context) error
}

// Connect opens a driver for cfg and checks that the server is reachable.
func Connect(ctx context.Context, cfg Config, mapID string, logger *log.Logger) (*Loader, error) {
	if cfg.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "neo4j uri is not configured")
	}
	driver, err := neo4jdriver.NewDriverWithContext(cfg.URI, neo4jdriver.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to %s", cfg.URI)
	}
	l := NewLoader(&driverExecutor{driver: driver, database: cfg.Database}, mapID, logger)
	l.close = driver.Close
	return l, nil
}

// NewLoader returns a loader writing through exec.
func NewLoader(exec Executor, mapID string, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{exec: exec, mapID: mapID, logger: logger}
}

// Close releases the underlying driver, if the loader owns one.
func (l *Loader) Close(ctx context.Context) error {
	if l.close == nil {
		return nil
	}
	return l.close(ctx)
}

// Export replaces the map's records with g and paths.
func (l *Loader) Export(ctx context.Context, g *network.Graph, paths []route.RoutedPath) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"indexes", l.CreateIndexes},
		{"clean", l.Clean},
		{"nodes", func(ctx context.Context) error { return l.LoadNodes(ctx, g) }},
		{"edges", func(ctx context.Context) error { return l.LoadEdges(ctx, g) }},
		{"paths", func(ctx context.Context) error { return l.LoadPaths(ctx, paths) }},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// CreateIndexes ensures the lookup indexes exist.
func (l *Loader) CreateIndexes(ctx context.Context) error {
	indexes := []string{
		"CREATE INDEX flatmap_node_key IF NOT EXISTS FOR (n:FlatmapNode) ON (n.map, n.id)",
		"CREATE INDEX flatmap_path_key IF NOT EXISTS FOR (n:FlatmapPath) ON (n.map, n.id)",
	}
	for _, q := range indexes {
		if err := l.exec.Execute(ctx, q, nil); err != nil {
			return err
		}
	}
	return nil
}

// Clean removes every record of the map.
func (l *Loader) Clean(ctx context.Context) error {
	l.logger.Debug("cleaning map records", "map", l.mapID)
	queries := []string{
		"MATCH (n:FlatmapPath {map: $map}) DETACH DELETE n",
		"MATCH (n:FlatmapNode {map: $map}) DETACH DELETE n",
	}
	for _, q := range queries {
		if err := l.exec.Execute(ctx, q, map[string]any{"map": l.mapID}); err != nil {
			return err
		}
	}
	return nil
}

// LoadNodes upserts graph nodes.
func (l *Loader) LoadNodes(ctx context.Context, g *network.Graph) error {
	if g == nil || len(g.Nodes) == 0 {
		return nil
	}
	l.logger.Info("loading nodes", "count", len(g.Nodes))
	batch := make([]map[string]any, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		batch = append(batch, map[string]any{
			"id":       n.ID,
			"models":   n.Models,
			"junction": n.IsJunction(),
			"x":        n.Point[0],
			"y":        n.Point[1],
		})
	}
	return l.exec.Execute(ctx,
		`UNWIND $batch AS row
		 MERGE (n:FlatmapNode {map: $map, id: row.id})
		 SET n.models = row.models, n.junction = row.junction, n.x = row.x, n.y = row.y`,
		map[string]any{"map": l.mapID, "batch": batch},
	)
}

// LoadEdges upserts one CENTRELINE relationship per graph edge.
func (l *Loader) LoadEdges(ctx context.Context, g *network.Graph) error {
	if g == nil || len(g.Edges) == 0 {
		return nil
	}
	l.logger.Info("loading centrelines", "count", len(g.Edges))
	batch := make([]map[string]any, 0, len(g.Edges))
	for _, e := range g.Edges {
		batch = append(batch, map[string]any{
			"id":       e.ID,
			"a":        g.Nodes[e.A].ID,
			"b":        g.Nodes[e.B].ID,
			"feature":  e.FeatureID,
			"length":   e.Length,
			"capacity": e.Capacity,
		})
	}
	return l.exec.Execute(ctx,
		`UNWIND $batch AS row
		 MATCH (a:FlatmapNode {map: $map, id: row.a}), (b:FlatmapNode {map: $map, id: row.b})
		 MERGE (a)-[r:CENTRELINE {id: row.id}]->(b)
		 SET r.feature = row.feature, r.length = row.length, r.capacity = row.capacity`,
		map[string]any{"map": l.mapID, "batch": batch},
	)
}

// LoadPaths upserts routed paths and their ROUTED_OVER relationships, one
// per visited node in route order.
func (l *Loader) LoadPaths(ctx context.Context, paths []route.RoutedPath) error {
	if len(paths) == 0 {
		return nil
	}
	sorted := make([]route.RoutedPath, len(paths))
	copy(sorted, paths)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	l.logger.Info("loading paths", "count", len(sorted))
	batch := make([]map[string]any, 0, len(sorted))
	var hops []map[string]any
	for _, p := range sorted {
		batch = append(batch, map[string]any{
			"id":     p.ID,
			"type":   p.Type,
			"label":  p.Label,
			"models": p.Models,
			"length": p.Length,
		})
		for i, n := range p.Nodes {
			hop := map[string]any{"path": p.ID, "node": n, "seq": i, "edge": ""}
			if i > 0 && i-1 < len(p.Edges) {
				hop["edge"] = p.Edges[i-1]
			}
			hops = append(hops, hop)
		}
	}
	err := l.exec.Execute(ctx,
		`UNWIND $batch AS row
		 MERGE (p:FlatmapPath {map: $map, id: row.id})
		 SET p.type = row.type, p.label = row.label, p.models = row.models, p.length = row.length`,
		map[string]any{"map": l.mapID, "batch": batch},
	)
	if err != nil {
		return err
	}
	if len(hops) == 0 {
		return nil
	}
	return l.exec.Execute(ctx,
		`UNWIND $batch AS row
		 MATCH (p:FlatmapPath {map: $map, id: row.path}), (n:FlatmapNode {map: $map, id: row.node})
		 MERGE (p)-[r:ROUTED_OVER {seq: row.seq}]->(n)
		 SET r.edge = row.edge`,
		map[string]any{"map": l.mapID, "batch": hops},
	)
}
