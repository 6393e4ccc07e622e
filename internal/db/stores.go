package db

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront/internal/config"
	"storefront/internal/model"
	"storefront/internal/store"
)

// Collection names. With the file driver each is DATA_DIR/<name>.json.
const (
	UsersCollection     = "users"
	ProductsCollection  = "products"
	CountriesCollection = "countries_states"
)

// Stores holds the opened collections and the lock set they share.
type Stores struct {
	Locks     *store.LockSet
	Users     *store.JSONCollection[model.User, *model.User]
	Products  *store.JSONCollection[model.Product, *model.Product]
	Countries *store.Document[model.Countries]

	sql *gorm.DB
}

// Open builds the collections on the configured driver. validateProduct runs
// on every product written.
func Open(cfg *config.Config, log *zap.Logger, validateProduct func(*model.Product) error) (*Stores, error) {
	s := &Stores{Locks: store.NewLockSet(cfg.StoreLockTimeout)}

	var backend func(name string) store.Backend
	switch cfg.StoreDriver {
	case config.DriverMySQL:
		gormDB, err := NewMySQL(cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		if err := Migrate(gormDB); err != nil {
			return nil, err
		}
		s.sql = gormDB
		backend = func(name string) store.Backend { return store.NewSQLBackend(gormDB, name) }
		log.Info("using mysql collection store")
	default:
		backend = func(name string) store.Backend {
			return store.NewFileBackend(filepath.Join(cfg.DataDir, name+".json"))
		}
		log.Info("using file collection store", zap.String("data_dir", cfg.DataDir))
	}

	s.Users = store.NewCollection[model.User, *model.User](backend(UsersCollection), s.Locks, store.Options[model.User]{
		Name:     UsersCollection,
		IDPrefix: model.UserIDPrefix,
		Logger:   log,
	})
	s.Products = store.NewCollection[model.Product, *model.Product](backend(ProductsCollection), s.Locks, store.Options[model.Product]{
		Name:     ProductsCollection,
		IDPrefix: model.ProductIDPrefix,
		Validate: validateProduct,
		Logger:   log,
	})
	s.Countries = store.NewDocument[model.Countries](CountriesCollection, backend(CountriesCollection), s.Locks, log)
	return s, nil
}

// Ensure creates empty user and product collections where none exist.
func (s *Stores) Ensure(ctx context.Context) error {
	if err := s.Users.Ensure(ctx); err != nil {
		return fmt.Errorf("ensure %s: %w", UsersCollection, err)
	}
	if err := s.Products.Ensure(ctx); err != nil {
		return fmt.Errorf("ensure %s: %w", ProductsCollection, err)
	}
	return nil
}

// Close releases the database pool, if any.
func (s *Stores) Close() error {
	if s.sql == nil {
		return nil
	}
	sqlDB, err := s.sql.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
