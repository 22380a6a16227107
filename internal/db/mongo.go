package db

import (
	"context"
	"fmt"

	"dondog-go/internal/config"
	"dondog-go/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func NewMongo(ctx context.Context, cfg config.MongoConfig, log logger.Logger) (*mongo.Client, error) {
	timeout := orDefault(cfg.ConnectTimeout, pingTimeout)
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Info("db: connecting to mongo", "database", cfg.Database)
	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	log.Info("db: connected")
	return client, nil
}
