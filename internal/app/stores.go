package app

import (
	"context"
	"fmt"

	"dondog-go/internal/config"
	"dondog-go/internal/db"
	accountdomain "dondog-go/internal/domain/account"
	pairingdomain "dondog-go/internal/domain/pairing"
	postsdomain "dondog-go/internal/domain/posts"
	userdomain "dondog-go/internal/domain/user"
	firestorerepo "dondog-go/internal/repository/firestore"
	"dondog-go/internal/repository/inmemory"
	mongorepo "dondog-go/internal/repository/mongo"
	accountrepo "dondog-go/internal/repository/postgres/account"
	pairingrepo "dondog-go/internal/repository/postgres/pairing"
	postsrepo "dondog-go/internal/repository/postgres/posts"
	userrepo "dondog-go/internal/repository/postgres/user"
	"dondog-go/pkg/logger"
	"gorm.io/gorm"
)

// Stores holds one repository per domain. Single-store drivers put the same
// value in every field.
type Stores struct {
	Users   userdomain.Repository
	Pairing pairingdomain.Repository
	Account accountdomain.Repository
	Posts   postsdomain.Repository
}

type documentStore interface {
	userdomain.Repository
	pairingdomain.Repository
	accountdomain.Repository
	postsdomain.Repository
}

func storesOf(s documentStore) Stores {
	return Stores{Users: s, Pairing: s, Account: s, Posts: s}
}

// PostgresStores builds the gorm repositories over one connection.
func PostgresStores(dbConn *gorm.DB) Stores {
	return Stores{
		Users:   userrepo.NewPostgres(dbConn),
		Pairing: pairingrepo.NewPostgres(dbConn),
		Account: accountrepo.NewPostgres(dbConn),
		Posts:   postsrepo.NewPostgres(dbConn),
	}
}

func openStores(ctx context.Context, cfg config.Config, log logger.Logger) (Stores, func() error, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		dbConn, err := db.NewPostgres(ctx, cfg.DB, log)
		if err != nil {
			return Stores{}, nil, err
		}
		closeDB := func() error {
			sqlDB, err := dbConn.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}
		if err := db.Migrate(dbConn, log); err != nil {
			_ = closeDB()
			return Stores{}, nil, fmt.Errorf("migrate: %w", err)
		}
		return PostgresStores(dbConn), closeDB, nil

	case config.StoreDriverMongo:
		client, err := db.NewMongo(ctx, cfg.Mongo, log)
		if err != nil {
			return Stores{}, nil, err
		}
		closeClient := func() error { return client.Disconnect(context.Background()) }
		store := mongorepo.NewStore(client, cfg.Mongo.Database)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = closeClient()
			return Stores{}, nil, err
		}
		return storesOf(store), closeClient, nil

	case config.StoreDriverFirestore:
		client, err := db.NewFirestore(ctx, cfg.Firestore, log)
		if err != nil {
			return Stores{}, nil, err
		}
		return storesOf(firestorerepo.NewStore(client)), client.Close, nil

	case config.StoreDriverMemory:
		log.Warn("app: using in-memory store, data is lost on restart")
		return storesOf(inmemory.NewStore()), func() error { return nil }, nil

	default:
		return Stores{}, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
