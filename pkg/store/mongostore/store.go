// Package mongostore persists completed layout runs in MongoDB. The HTTP API
// uses it so a computed layout can be fetched again by run ID, surviving
// restarts and cache eviction.
package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Prairie2Cloud/treelisty-sub006/pkg/errors"
	"github.com/Prairie2Cloud/treelisty-sub006/pkg/graph"
)

// DefaultDatabase is the database name used when none is configured.
const DefaultDatabase = "treelayout"

// runsCollection holds one document per completed layout run.
const runsCollection = "runs"

// Run is the persisted record of one layout computation.
type Run struct {
	ID         string          `bson:"_id" json:"id"`
	GraphHash  string          `bson:"graph_hash" json:"graph_hash"`
	Algorithm  string          `bson:"algorithm" json:"algorithm"`
	State      string          `bson:"state" json:"state"`
	Iterations int             `bson:"iterations" json:"iterations"`
	Energy     float64         `bson:"energy" json:"energy"`
	Positions  graph.Positions `bson:"positions" json:"positions"`
	CreatedAt  time.Time       `bson:"created_at" json:"created_at"`
}

// FromLayout builds a Run record from a finished layout.
func FromLayout(id string, l graph.Layout) Run {
	return Run{
		ID:         id,
		GraphHash:  l.GraphHash,
		Algorithm:  l.Algorithm,
		State:      l.State,
		Iterations: l.Iterations,
		Energy:     l.Energy,
		Positions:  l.Positions,
		CreatedAt:  time.Now().UTC(),
	}
}

// Store wraps a MongoDB collection of layout runs.
type Store struct {
	client *mongo.Client
	runs   *mongo.Collection
}

// Connect establishes a MongoDB connection and verifies it with a ping.
// An empty database name means DefaultDatabase.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "connect mongodb")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "ping mongodb")
	}

	return &Store{
		client: client,
		runs:   client.Database(database).Collection(runsCollection),
	}, nil
}

// SaveRun upserts a run record by ID.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	_, err := s.runs.ReplaceOne(ctx,
		bson.M{"_id": run.ID},
		run,
		options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "save run %s", run.ID)
	}
	return nil
}

// GetRun fetches a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	var run Run
	err := s.runs.FindOne(ctx, bson.M{"_id": id}).Decode(&run)
	if err == mongo.ErrNoDocuments {
		return Run{}, errors.New(errors.ErrCodeNotFound, "run %q not found", id)
	}
	if err != nil {
		return Run{}, errors.Wrap(errors.ErrCodeInternal, err, "get run %s", id)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int64) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	cursor, err := s.runs.Find(ctx, bson.M{},
		options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list runs")
	}
	defer cursor.Close(ctx)

	var runs []Run
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode runs")
	}
	return runs, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
