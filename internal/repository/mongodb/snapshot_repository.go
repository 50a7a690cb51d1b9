package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmsales/internal/config"
	"github.com/mamadbah2/farmsales/internal/domain/models"
)

const (
	snapshotsCollection = "sales_snapshots"
	connectTimeout      = 10 * time.Second
)

// SnapshotRepository stores one KPI snapshot per calendar day.
type SnapshotRepository struct {
	client    *mongo.Client
	snapshots *mongo.Collection
	logger    *zap.Logger
}

// NewSnapshotRepository connects to MongoDB and makes sure the per-day unique index exists.
func NewSnapshotRepository(ctx context.Context, cfg config.MongoDBConfig, logger *zap.Logger) (*SnapshotRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := &SnapshotRepository{
		client:    client,
		snapshots: client.Database(cfg.DBName).Collection(snapshotsCollection),
		logger:    logger,
	}

	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_date"),
	}
	if _, err := repo.snapshots.Indexes().CreateOne(ctx, index); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create snapshot index: %w", err)
	}

	logger.Info("connected to mongodb", zap.String("db", cfg.DBName))
	return repo, nil
}

// SaveSalesSnapshot stores the snapshot for its date, replacing an earlier one for the same day.
func (r *SnapshotRepository) SaveSalesSnapshot(ctx context.Context, snapshot models.SalesSnapshot) error {
	res, err := r.snapshots.ReplaceOne(ctx,
		bson.M{"date": snapshot.Date},
		snapshot,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert sales snapshot %s: %w", snapshot.Date, err)
	}

	r.logger.Debug("sales snapshot stored",
		zap.String("date", snapshot.Date),
		zap.Bool("replaced", res.MatchedCount > 0))
	return nil
}

// Close closes the MongoDB connection.
func (r *SnapshotRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
