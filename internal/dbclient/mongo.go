package dbclient

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"passengerexport/internal/config"
	"passengerexport/internal/domain"
)

// MongoReports reads passenger reports from one MongoDB collection.
type MongoReports struct {
	client *mongo.Client
	coll   *mongo.Collection
	log    *logrus.Entry
}

// ConnectMongo connects to the database named in uri and pings it so an
// unreachable server fails here rather than on the first cursor advance.
func ConnectMongo(ctx context.Context, uri config.DocumentURI, log *logrus.Entry) (*MongoReports, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithFields(logrus.Fields{
		"component":  "mongo",
		"database":   uri.Database,
		"collection": uri.Collection,
	})
	log.WithField("uri", config.MaskPassword(uri.ClientURI)).Debug("connecting")

	client, err := mongo.Connect(options.Client().ApplyURI(uri.ClientURI))
	if err != nil {
		return nil, fmt.Errorf("%w: connect mongo: %w", domain.ErrConnection, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		log.WithError(err).Error("ping failed")
		return nil, fmt.Errorf("%w: ping mongo: %w", domain.ErrConnection, err)
	}

	log.Debug("connected")
	return &MongoReports{
		client: client,
		coll:   client.Database(uri.Database).Collection(uri.Collection),
		log:    log,
	}, nil
}

// StreamAll opens a cursor over every document in natural order.
func (m *MongoReports) StreamAll(ctx context.Context) (Cursor, error) {
	cursor, err := m.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("%w: find: %w", domain.ErrCursor, err)
	}
	return cursor, nil
}

// Close disconnects the client.
func (m *MongoReports) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
