package app

import (
	"context"
	"fmt"

	"dondog-go/internal/config"
	"dondog-go/internal/storage"
)

func openBlobs(ctx context.Context, cfg config.Config) (storage.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Blob.Driver {
	case config.BlobDriverGCS:
		store, err := storage.NewGCS(ctx, cfg.Blob.Bucket, cfg.Blob.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	case config.BlobDriverS3:
		store, err := storage.NewS3(ctx, storage.S3Config{
			Bucket:          cfg.Blob.Bucket,
			Region:          cfg.Blob.Region,
			Endpoint:        cfg.Blob.Endpoint,
			PublicURL:       cfg.Blob.PublicURL,
			AccessKeyID:     cfg.Blob.AccessKeyID,
			SecretAccessKey: cfg.Blob.SecretAccessKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	case config.BlobDriverSupabase:
		return storage.NewSupabase(cfg.Supabase.URL, cfg.Blob.Bucket, cfg.Supabase.ServiceRoleKey, cfg.Supabase.AuthTimeout), noop, nil

	case config.BlobDriverMemory:
		return storage.NewMemory(cfg.Blob.PublicURL), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown blob driver %q", cfg.Blob.Driver)
	}
}
