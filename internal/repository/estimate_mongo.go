package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tranzac/internal/config"
	"tranzac/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoEstimateRepository persists estimate aggregates, one document per
// rental request. The whole aggregate is written back on every save; a
// revision counter in the document guards against lost updates.
type MongoEstimateRepository struct {
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoClient connects and pings within the configured timeout.
func NewMongoClient(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

func NewMongoEstimateRepository(client *mongo.Client, cfg config.MongoConfig) *MongoEstimateRepository {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MongoEstimateRepository{
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		timeout:    timeout,
	}
}

func (r *MongoEstimateRepository) GetByRentalRequestID(ctx context.Context, rentalRequestID string) (*models.CostEstimate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var estimate models.CostEstimate
	err := r.collection.FindOne(ctx, bson.M{"rentalrequestid": rentalRequestID}).Decode(&estimate)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("estimate for rental request %q: %w", rentalRequestID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load estimate: %w", err)
	}
	return &estimate, nil
}

// Save writes the aggregate back. The filter matches the revision the
// caller loaded; a concurrent writer bumps it first and the replace
// matches nothing, which surfaces as ErrConcurrentModification.
func (r *MongoEstimateRepository) Save(ctx context.Context, estimate *models.CostEstimate) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	loaded := estimate.Revision
	estimate.Revision = loaded + 1

	filter := bson.M{
		"rentalrequestid": estimate.RentalRequestID,
		"revision":        loaded,
	}
	res, err := r.collection.ReplaceOne(ctx, filter, estimate, options.Replace().SetUpsert(loaded == 0))
	if err != nil {
		estimate.Revision = loaded
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("estimate for rental request %q: %w", estimate.RentalRequestID, models.ErrConcurrentModification)
		}
		return fmt.Errorf("failed to save estimate: %w", err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		estimate.Revision = loaded
		return fmt.Errorf("estimate for rental request %q: %w", estimate.RentalRequestID, models.ErrConcurrentModification)
	}
	return nil
}

func (r *MongoEstimateRepository) List(ctx context.Context, status string, limit int64) ([]*models.CostEstimate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "updatedat", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list estimates: %w", err)
	}
	defer cursor.Close(ctx)

	var estimates []*models.CostEstimate
	if err := cursor.All(ctx, &estimates); err != nil {
		return nil, fmt.Errorf("failed to decode estimates: %w", err)
	}
	return estimates, nil
}

func (r *MongoEstimateRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.collection.Database().Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique rental-request index the CAS filter
// relies on. Safe to call on every startup.
func (r *MongoEstimateRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "rentalrequestid", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create estimate indexes: %w", err)
	}
	return nil
}
