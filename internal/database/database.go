// Package database opens the gorm connection for the configured driver and
// runs the schema migrations.
package database

import (
	"fmt"

	"github.com/axellelanca/linkstats/internal/config"
	"github.com/axellelanca/linkstats/internal/logger"
	"github.com/axellelanca/linkstats/internal/models"
	"github.com/glebarez/sqlite"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open ouvre la base décrite par cfg. TranslateError est activé pour que
// les violations d'unicité remontent en gorm.ErrDuplicatedKey.
func Open(cfg config.Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(cfg.Log.GormLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Database.Driver, err)
	}
	return db, nil
}

func dialectorFor(cfg config.Config) (gorm.Dialector, error) {
	switch cfg.Database.Driver {
	case "", "sqlite":
		return sqlite.Open(cfg.Database.Name), nil
	case "postgres":
		if cfg.Database.DSN == "" {
			return nil, fmt.Errorf("database.dsn is required for the postgres driver")
		}
		return postgres.Open(cfg.Database.DSN), nil
	case "libsql":
		if cfg.Database.DSN == "" {
			return nil, fmt.Errorf("database.dsn is required for the libsql driver")
		}
		// libsql parle le dialecte SQLite : on réutilise le dialecteur glebarez
		// avec le driver database/sql enregistré par libsql-client-go.
		return &sqlite.Dialector{DriverName: "libsql", DSN: cfg.Database.DSN}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// Migrate crée ou met à jour les tables links et visits.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Link{}, &models.Visit{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close libère la connexion sous-jacente.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	return sqlDB.Close()
}
