package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const resultCollection = "scan_results"

// MongoResultStore persists scan details in a MongoDB collection
type MongoResultStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ ResultStore = (*MongoResultStore)(nil)

// NewMongoResultStore connects to uri and ensures the lookup index exists
func NewMongoResultStore(ctx context.Context, uri, database string) (*MongoResultStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(database).Collection(resultCollection)
	_, err = collection.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "subject_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		logrus.WithError(err).Warn("Failed to create scan result index")
	}

	logrus.Infof("Connected to MongoDB database %s", database)
	return &MongoResultStore{client: client, collection: collection}, nil
}

// Save inserts the detail, replacing a document with the same id
func (s *MongoResultStore) Save(ctx context.Context, detail models.ScanDetail) error {
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": detail.ID}, detail, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save scan %s: %w", detail.ID, err)
	}
	return nil
}

// Latest returns the newest document for subjectID
func (s *MongoResultStore) Latest(ctx context.Context, subjectID string) (*models.ScanDetail, error) {
	var detail models.ScanDetail
	opts := options.FindOne().SetSort(bson.M{"created_at": -1})

	err := s.collection.FindOne(ctx, bson.M{"subject_id": subjectID}, opts).Decode(&detail)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest scan for %s: %w", subjectID, err)
	}
	return &detail, nil
}

// Close disconnects the underlying client
func (s *MongoResultStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
