package graph

import (
	"context"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/corpintel/edgargraph/internal/errors"
	"github.com/corpintel/edgargraph/internal/logging"
)

// Neo4jStore implements Store over the official Neo4j driver.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	log      *slog.Logger
}

// NewNeo4jStore connects to Neo4j and verifies connectivity before
// returning, so configuration problems surface at startup rather than on
// the first write.
func NewNeo4jStore(ctx context.Context, uri, username, password, database string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, errors.Storef(err, "create driver for %s", uri)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, errors.Storef(err, "connect to %s", uri)
	}
	return &Neo4jStore{
		driver:   driver,
		database: database,
		log:      logging.Component("graph.neo4j"),
	}, nil
}

func (s *Neo4jStore) Read(ctx context.Context, cypher string, params map[string]any) ([]Row, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, errors.Storef(err, "read query failed")
	}
	rows := make([]Row, 0, len(result.Records))
	for _, record := range result.Records {
		rows = append(rows, Row(record.AsMap()))
	}
	return rows, nil
}

func (s *Neo4jStore) Write(ctx context.Context, cypher string, params map[string]any) (WriteSummary, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database))
	if err != nil {
		return WriteSummary{}, errors.Storef(err, "write query failed")
	}
	return summaryFromCounters(result.Summary.Counters()), nil
}

// WriteBatch runs all statements in a single managed write transaction.
func (s *Neo4jStore) WriteBatch(ctx context.Context, queries []Query) (WriteSummary, error) {
	if len(queries) == 0 {
		return WriteSummary{}, nil
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	total, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		var acc WriteSummary
		for i, q := range queries {
			res, err := tx.Run(ctx, q.Cypher, q.Params)
			if err != nil {
				return nil, errors.Storef(err, "batch statement %d failed", i)
			}
			summary, err := res.Consume(ctx)
			if err != nil {
				return nil, errors.Storef(err, "batch statement %d consume failed", i)
			}
			acc.Add(summaryFromCounters(summary.Counters()))
		}
		return acc, nil
	})
	if err != nil {
		if _, ok := err.(*errors.Error); ok {
			return WriteSummary{}, err
		}
		return WriteSummary{}, errors.Storef(err, "batch transaction failed")
	}
	return total.(WriteSummary), nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func summaryFromCounters(c neo4j.Counters) WriteSummary {
	return WriteSummary{
		NodesCreated:         c.NodesCreated(),
		NodesDeleted:         c.NodesDeleted(),
		RelationshipsCreated: c.RelationshipsCreated(),
		RelationshipsDeleted: c.RelationshipsDeleted(),
		PropertiesSet:        c.PropertiesSet(),
	}
}
