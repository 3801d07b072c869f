package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	mongoConnectTimeout = 10 * time.Second
	mongoPingTimeout    = 2 * time.Second
)

// NewMongo connects to uri, verifies the primary is reachable and returns the
// named database. Writes are acknowledged by a majority.
func NewMongo(ctx context.Context, uri, database string) (*mongo.Database, error) {
	connectCtx, connectCancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer connectCancel()
	client, err := mongo.Connect(
		connectCtx,
		options.Client().ApplyURI(uri).SetWriteConcern(writeconcern.Majority()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to mongo")
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, mongoPingTimeout)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "error pinging mongo")
	}

	return client.Database(database), nil
}
