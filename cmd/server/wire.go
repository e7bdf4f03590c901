package main

import (
	"context"
	"fmt"
	"net/http"

	natsadapter "github.com/Abdurahmanit/nodepop/internal/adapter/messaging/nats"
	"github.com/Abdurahmanit/nodepop/internal/adapter/repository/cache"
	"github.com/Abdurahmanit/nodepop/internal/adapter/repository/mongodb"
	"github.com/Abdurahmanit/nodepop/internal/adapter/repository/sqlite"
	"github.com/Abdurahmanit/nodepop/internal/adapter/storage/local"
	"github.com/Abdurahmanit/nodepop/internal/adapter/storage/s3"
	"github.com/Abdurahmanit/nodepop/internal/config"
	"github.com/Abdurahmanit/nodepop/internal/listing/domain"
	"github.com/Abdurahmanit/nodepop/internal/listing/usecase"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// defaultTags seeds the tag list of a fresh database.
var defaultTags = []string{"work", "lifestyle", "motor", "mobile"}

type listingStore struct {
	listings domain.ListingRepository
	tags     domain.TagRepository
	close    func()
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*listingStore, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLite.DSN)
		if err != nil {
			return nil, err
		}
		tags := sqlite.NewTagRepository(db)
		if err := tags.Seed(ctx, defaultTags...); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("Using SQLite listing store", zap.String("dsn", cfg.SQLite.DSN))
		return &listingStore{
			listings: sqlite.NewListingRepository(db, logger.Named("sqlite")),
			tags:     tags,
			close:    func() { _ = db.Close() },
		}, nil

	default:
		client, err := mongodb.NewMongoDBConnection(&cfg.Mongo)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.Mongo.Database)
		listings := mongodb.NewListingRepository(db, logger.Named("mongodb"))
		if err := listings.EnsureIndexes(ctx); err != nil {
			logger.Warn("Failed to ensure listing indexes", zap.Error(err))
		}
		tags := mongodb.NewTagRepository(db)
		if err := tags.Seed(ctx, defaultTags...); err != nil {
			logger.Warn("Failed to seed tags", zap.Error(err))
		}
		logger.Info("Using MongoDB listing store", zap.String("database", cfg.Mongo.Database))
		return &listingStore{
			listings: listings,
			tags:     tags,
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
				}
			},
		}, nil
	}
}

type photoStorage struct {
	storage domain.Storage
	// images is non-nil when photos can be served by this process.
	images http.FileSystem
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*photoStorage, error) {
	switch cfg.Storage.Driver {
	case "minio":
		st, err := s3.NewS3Storage(ctx, cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey,
			cfg.MinIO.Bucket, cfg.MinIO.UseSSL, logger.Named("s3"))
		if err != nil {
			return nil, err
		}
		logger.Info("Using MinIO photo storage", zap.String("bucket", cfg.MinIO.Bucket))
		return &photoStorage{storage: st}, nil

	default:
		fs := afero.NewOsFs()
		st, err := local.NewStorage(fs, cfg.Storage.LocalDir)
		if err != nil {
			return nil, fmt.Errorf("local storage: %w", err)
		}
		logger.Info("Using local photo storage", zap.String("dir", cfg.Storage.LocalDir))
		return &photoStorage{
			storage: st,
			images:  afero.NewHttpFs(afero.NewReadOnlyFs(fs)).Dir(cfg.Storage.LocalDir),
		}, nil
	}
}

// openCache returns a nil cache when redis is not configured or unreachable.
func openCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (usecase.ListingCache, func()) {
	if cfg.Redis.Addr == "" {
		return nil, func() {}
	}
	client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, running without cache", zap.Error(err))
		return nil, func() {}
	}
	logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	return cache.NewListingCache(client, cfg.Redis.TTL), func() { _ = client.Close() }
}

// openPublisher returns a nil publisher when NATS is not configured or unreachable.
func openPublisher(cfg *config.Config, logger *zap.Logger) (usecase.EventPublisher, func()) {
	if cfg.NATS.URL == "" {
		return nil, func() {}
	}
	pub, err := natsadapter.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject, logger.Named("nats"))
	if err != nil {
		logger.Warn("NATS unavailable, listing events disabled", zap.Error(err))
		return nil, func() {}
	}
	return pub, pub.Close
}
