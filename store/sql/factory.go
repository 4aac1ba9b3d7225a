package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	soapmigrations "github.com/goliatone/go-soap/migrations"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// PersistenceConfig satisfies the go-persistence-bun config contract.
type PersistenceConfig struct {
	Driver      string        `koanf:"driver" mapstructure:"driver"`
	Server      string        `koanf:"server" mapstructure:"server"`
	Debug       bool          `koanf:"debug" mapstructure:"debug"`
	PingTimeout time.Duration `koanf:"ping_timeout" mapstructure:"ping_timeout"`
}

func (c PersistenceConfig) GetDebug() bool {
	return c.Debug
}

func (c PersistenceConfig) GetDriver() string {
	return c.Driver
}

func (c PersistenceConfig) GetServer() string {
	return c.Server
}

func (c PersistenceConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c PersistenceConfig) GetOtelIdentifier() string {
	return "go-soap"
}

// OpenPersistence opens the database, registers the call journal migrations
// for the driver's dialect and applies them.
func OpenPersistence(ctx context.Context, cfg PersistenceConfig) (*persistence.Client, error) {
	migrationName, err := soapmigrations.DialectForDriver(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}
	// Driver aliases collapse onto the drivers this package imports.
	driver := DriverPostgres
	var dialect schema.Dialect = pgdialect.New()
	if migrationName == soapmigrations.DialectSQLite {
		driver = DriverSQLite
		dialect = sqlitedialect.New()
	}
	if strings.TrimSpace(cfg.Server) == "" {
		return nil, fmt.Errorf("sqlstore: server dsn is required")
	}
	cfg.Driver = driver

	sqlDB, err := sql.Open(driver, cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}

	_, err = soapmigrations.Register(ctx, func(_ context.Context, name string, _ string, fsys fs.FS) error {
		if name != migrationName {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, soapmigrations.WithValidationTargets(migrationName))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return client, nil
}

type RepositoryFactory struct {
	db *bun.DB

	callJournalStore *CallJournalStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	if client == nil {
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	}
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// BuildStores accepts a *bun.DB or anything exposing DB() *bun.DB.
func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.callJournalStore != nil {
		return nil
	}
	store, err := NewCallJournalStore(f.db)
	if err != nil {
		return err
	}
	f.callJournalStore = store
	return nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) CallJournalStore() *CallJournalStore {
	if f == nil {
		return nil
	}
	return f.callJournalStore
}

// resolveBunDB treats a typed nil pointer like a missing client.
func resolveBunDB(candidate any) (*bun.DB, error) {
	if value := reflect.ValueOf(candidate); value.Kind() == reflect.Pointer && value.IsNil() {
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	}
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}

