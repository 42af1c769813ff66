package contacts

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"wacrm/internal/constants"
	"wacrm/internal/segment"
	"wacrm/pkg/metrics"
)

type Repository interface {
	Find(ctx context.Context, scope segment.Scope, filter bson.M, page Page) ([]Contact, error)
	Count(ctx context.Context, scope segment.Scope, filter bson.M) (int64, error)
}

type MongoDBRepository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *MongoDBRepository {
	return &MongoDBRepository{
		collection: db.Collection(constants.ContactsCollection),
	}
}

// SearchSort orders contacts by most recent activity; contacts that never
// messaged sort last, ties fall back to creation time.
func SearchSort() bson.D {
	return bson.D{
		{Key: "lastMessageAt", Value: -1},
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	}
}

func (r *MongoDBRepository) Find(ctx context.Context, scope segment.Scope, filter bson.M, page Page) ([]Contact, error) {
	page = page.Normalize()
	opts := options.Find().
		SetSort(SearchSort()).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))

	start := time.Now()
	cursor, err := r.collection.Find(ctx, Scoped(scope, filter), opts)
	if err != nil {
		observeQuery("find", start, err)
		return nil, fmt.Errorf("failed to find contacts: %w", err)
	}
	defer cursor.Close(ctx)

	contacts := make([]Contact, 0, page.Limit)
	if err := cursor.All(ctx, &contacts); err != nil {
		observeQuery("find", start, err)
		return nil, fmt.Errorf("failed to decode contacts: %w", err)
	}

	observeQuery("find", start, nil)
	return contacts, nil
}

func (r *MongoDBRepository) Count(ctx context.Context, scope segment.Scope, filter bson.M) (int64, error) {
	start := time.Now()
	total, err := r.collection.CountDocuments(ctx, Scoped(scope, filter))
	observeQuery("count", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return total, nil
}

func observeQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery("contacts", "mongodb", operation, status)
	metrics.ObserveDatabaseQueryDuration("contacts", "mongodb", operation, time.Since(start))
}
