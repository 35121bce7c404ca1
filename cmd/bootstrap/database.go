package bootstrap

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/LingByte/LingIVR/internal/models"
	"github.com/LingByte/LingIVR/pkg/config"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const DriverNone = "none"

// Options controls database setup
type Options struct {
	Database    config.DatabaseConfig
	AutoMigrate bool
	Debug       bool // log every SQL statement
}

// SetupDatabase opens the configured database. It returns (nil, nil) when
// call records are disabled with driver "none".
func SetupDatabase(w io.Writer, opts *Options) (*gorm.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Database.Driver))
	if driver == DriverNone {
		fmt.Fprintln(w, "database: disabled, call records will not be stored")
		return nil, nil
	}

	dialector, err := openDialector(driver, opts.Database.DSN)
	if err != nil {
		return nil, err
	}

	logLevel := gormlogger.Warn
	if opts.Debug {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	if driver == "sqlite" || driver == "sqlite3" {
		// single writer avoids SQLITE_BUSY under concurrent status callbacks
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
	}

	if opts.AutoMigrate {
		if err := db.AutoMigrate(&models.CallRecord{}); err != nil {
			return nil, fmt.Errorf("migrate call records: %w", err)
		}
		fmt.Fprintf(w, "database: migrated %s\n", models.TableCallRecords)
	}

	fmt.Fprintf(w, "database: %s ready\n", driver)
	return db, nil
}

func openDialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		return sqlite.Open(dsn), nil
	case "sqlite3":
		return gormsqlite.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
