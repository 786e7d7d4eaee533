package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/suvichaar/storygen/internal/models"
)

// ErrNotFound is returned when a story does not exist.
var ErrNotFound = errors.New("story not found")

// MongoStore handles story document CRUD in MongoDB.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("stories")}
}

// EnsureIndexes creates the unique record_id index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "record_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Upsert writes the whole record keyed by its id.
func (s *MongoStore) Upsert(ctx context.Context, rec *models.StoryRecord) error {
	_, err := s.col.ReplaceOne(ctx, bson.M{"record_id": rec.ID}, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo upsert: %w", err)
	}
	return nil
}

func (s *MongoStore) ListRecent(ctx context.Context, limit int64) ([]models.StoryRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	docs := []models.StoryRecord{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *MongoStore) GetByID(ctx context.Context, id string) (*models.StoryRecord, error) {
	var rec models.StoryRecord
	err := s.col.FindOne(ctx, bson.M{"record_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
