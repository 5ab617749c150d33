package graph

import "context"

// Row is one record returned by a read query.
type Row map[string]any

// Query is a parameterized Cypher statement.
type Query struct {
	Cypher string
	Params map[string]any
}

// WriteSummary aggregates the change counters reported by the store for
// one or more write statements.
type WriteSummary struct {
	NodesCreated         int
	NodesDeleted         int
	RelationshipsCreated int
	RelationshipsDeleted int
	PropertiesSet        int
}

// Add accumulates another summary into this one.
func (s *WriteSummary) Add(other WriteSummary) {
	s.NodesCreated += other.NodesCreated
	s.NodesDeleted += other.NodesDeleted
	s.RelationshipsCreated += other.RelationshipsCreated
	s.RelationshipsDeleted += other.RelationshipsDeleted
	s.PropertiesSet += other.PropertiesSet
}

// Store is the graph database surface the loader, linker directory, and
// backfill work discovery depend on. The production implementation is
// Neo4j; tests substitute an in-memory fake.
type Store interface {
	// Read executes a read query and returns its rows.
	Read(ctx context.Context, cypher string, params map[string]any) ([]Row, error)

	// Write executes a single write statement and returns its counters.
	Write(ctx context.Context, cypher string, params map[string]any) (WriteSummary, error)

	// WriteBatch executes all statements inside one write transaction.
	// Either every statement commits or none do.
	WriteBatch(ctx context.Context, queries []Query) (WriteSummary, error)

	Close(ctx context.Context) error
}
