package repository

import (
	"context"
	"fmt"
	"time"

	"pagebot-core-console/internal/domain"
	"pagebot-core-console/internal/infrastructure/repository/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCommandRepository implements CommandRepository using MongoDB
type MongoCommandRepository struct {
	collection *mongo.Collection
}

// NewMongoCommandRepository creates a new MongoDB command repository
func NewMongoCommandRepository(db *mongo.Database) *MongoCommandRepository {
	return &MongoCommandRepository{
		collection: db.Collection("command_events"),
	}
}

// EnsureIndexes creates the page history index
func (r *MongoCommandRepository) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "pageId", Value: 1}, {Key: "occurredAt", Value: -1}},
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create command index: %w", err)
	}
	return nil
}

// Record stores one command outcome
func (r *MongoCommandRepository) Record(ctx context.Context, record *domain.CommandRecord) error {
	doc := entity.MongoCommandDocFromDomain(record)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	doc.CreatedAt = time.Now()
	if doc.OccurredAt.IsZero() {
		doc.OccurredAt = doc.CreatedAt
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to record command: %w", err)
	}

	record.ID = doc.ID.Hex()
	return nil
}

// ListByPage returns the most recent outcomes for a page, newest first
func (r *MongoCommandRepository) ListByPage(ctx context.Context, pageID string, limit int64) ([]*domain.CommandRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "occurredAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"pageId": pageID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list commands: %w", err)
	}
	defer cursor.Close(ctx)

	records := []*domain.CommandRecord{}
	for cursor.Next(ctx) {
		var doc entity.MongoCommandDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode command: %w", err)
		}
		records = append(records, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return records, nil
}
