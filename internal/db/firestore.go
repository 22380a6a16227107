package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"dondog-go/internal/config"
	"dondog-go/pkg/logger"
	"google.golang.org/api/option"
)

func NewFirestore(ctx context.Context, cfg config.FirestoreConfig, log logger.Logger) (*firestore.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	log.Info("db: connecting to firestore", "project", cfg.ProjectID)
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return client, nil
}
