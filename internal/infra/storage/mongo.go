package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/financas-familia-bfa-go/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	mongoCollection = "ledger_kv"
	casAttempts     = 5
)

type kvDoc struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	Version   int64     `bson:"version"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Mongo stores one document per key and updates it with a compare-and-swap
// on the version field, retrying a few times when another writer wins.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *zap.Logger
}

// OpenMongo connects and pings the server.
func OpenMongo(ctx context.Context, uri, database string, logger *zap.Logger) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", database))

	return &Mongo{
		client: client,
		coll:   client.Database(database).Collection(mongoCollection),
		logger: logger,
	}, nil
}

func (m *Mongo) load(ctx context.Context, key string) (*kvDoc, error) {
	var doc kvDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", key, err)
	}
	return &doc, nil
}

func (m *Mongo) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Mongo.Get")
	defer span.End()
	span.SetAttributes(attribute.String("kv.key", key))

	doc, err := m.load(ctx, key)
	if err != nil || doc == nil {
		return nil, err
	}
	return []byte(doc.Value), nil
}

func (m *Mongo) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	ctx, span := tracer.Start(ctx, "Mongo.Update")
	defer span.End()
	span.SetAttributes(attribute.String("kv.key", key))

	for attempt := 1; attempt <= casAttempts; attempt++ {
		doc, err := m.load(ctx, key)
		if err != nil {
			return err
		}

		var current []byte
		if doc != nil {
			current = []byte(doc.Value)
		}
		next, err := fn(current)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if doc == nil {
			_, err := m.coll.InsertOne(ctx, kvDoc{Key: key, Value: string(next), Version: 1, UpdatedAt: now})
			if mongo.IsDuplicateKeyError(err) {
				m.logger.Debug("mongo: insert lost race, retrying", zap.String("key", key), zap.Int("attempt", attempt))
				continue
			}
			if err != nil {
				return fmt.Errorf("insert %s: %w", key, err)
			}
			return nil
		}

		res, err := m.coll.UpdateOne(ctx,
			bson.M{"_id": key, "version": doc.Version},
			bson.M{
				"$set": bson.M{"value": string(next), "updated_at": now},
				"$inc": bson.M{"version": 1},
			},
		)
		if err != nil {
			return fmt.Errorf("update %s: %w", key, err)
		}
		if res.MatchedCount == 1 {
			return nil
		}
		m.logger.Debug("mongo: version changed, retrying", zap.String("key", key), zap.Int("attempt", attempt))
	}
	return &domain.ErrConflict{Message: fmt.Sprintf("não foi possível gravar %s: escrita concorrente", key)}
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
