package database

import (
	"fmt"
	"strings"

	"github.com/Baaaki/roomchat/internal/config"
	"github.com/Baaaki/roomchat/internal/models"
	"github.com/Baaaki/roomchat/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the message store named by cfg.DatabaseURL.
// postgres:// and postgresql:// URLs use Postgres; anything else is a SQLite DSN.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{}
	if cfg.IsProduction() {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	dialector, driver := Dialector(cfg.DatabaseURL)

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// SQLite allows one writer; a single connection avoids "database is locked".
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	logger.Log.Info("Database connected successfully",
		zap.String("driver", driver),
	)

	return db, nil
}

// Dialector picks the gorm driver for a database URL.
func Dialector(databaseURL string) (gorm.Dialector, string) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return postgres.Open(databaseURL), "postgres"
	}
	return sqlite.Open(databaseURL), "sqlite"
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Message{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	logger.Log.Info("Database migration completed")
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
