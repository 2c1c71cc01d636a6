package stores

import (
	"context"
	"fmt"
	"slideshow-server/config"
	"slideshow-server/core"
	"slideshow-server/stores/aws"
	"slideshow-server/stores/filesystem"
	"slideshow-server/stores/memory"
	"slideshow-server/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// Store is a union interface that includes all store types.
type Store interface {
	core.SlideStore
	core.LegacyStore
	Close() error
}

// Open builds the store selected by cfg.StorageType and initializes it. An error wraps
// core.ErrStorageUnavailable; callers fall back to OpenMemory.
func Open(ctx context.Context, cfg config.AppConfig) (Store, error) {
	var store Store

	storageField := logrus.Fields{
		"storageType": cfg.StorageType,
	}

	switch cfg.StorageType {
	case "filesystem":
		storageField["basePath"] = cfg.LocalStoragePath
		store = filesystem.NewStore(cfg.LocalStoragePath, cfg.LegacyKey)
	case "sqlite":
		driver := cfg.SQLiteDriver
		if driver == sqlite.DriverCGO && !sqlite.CGOEnabled {
			logrus.Warn("go-sqlite3 needs cgo, using the pure Go driver instead")
			driver = sqlite.DriverPure
		}
		storageField["dataSourceName"] = cfg.DataSourceName
		storageField["driver"] = driver
		store = sqlite.NewStore(driver, cfg.DataSourceName, cfg.LegacyKey)
	case "s3":
		if cfg.S3BucketName == "" {
			return nil, fmt.Errorf("%w: S3_BUCKET_NAME must be set for s3 storage type", core.ErrStorageUnavailable)
		}
		storageField["bucketName"] = cfg.S3BucketName
		storageField["prefix"] = cfg.S3Prefix
		s3Store, err := aws.NewStore(ctx, cfg.S3BucketName, cfg.S3Prefix, cfg.LegacyKey)
		if err != nil {
			return nil, err
		}
		store = s3Store
	default:
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	}

	if err := store.Initialize(ctx); err != nil {
		store.Close()
		logrus.WithFields(storageField).WithError(err).Warn("Storage unavailable")
		return nil, err
	}

	logrus.WithFields(storageField).Info("Use storage")
	return store, nil
}

// OpenMemory returns the non-durable store used when nothing else is available.
func OpenMemory() Store {
	return memory.NewStore()
}
