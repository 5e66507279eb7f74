package db

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zulandar/parsinator/internal/config"
)

// MemoryPath opens a throwaway in-memory SQLite database.
const MemoryPath = ":memory:"

// DSN builds the MySQL DSN for a store config.
func DSN(cfg config.StoreConfig) string {
	c := gomysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.DBName = cfg.Database
	c.ParseTime = true
	return c.FormatDSN()
}

// Open opens a GORM connection to the history database described by cfg.
// SQLite parent directories are created as needed.
func Open(cfg config.StoreConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite, "":
		if cfg.Path != MemoryPath {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("db: create directory for %s: %w", cfg.Path, err)
			}
		}
		dialector = sqlite.Open(cfg.Path)
	case config.DriverMySQL:
		dialector = mysql.Open(DSN(cfg))
	default:
		return nil, fmt.Errorf("db: unknown driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open %s store: %w", cfg.Driver, err)
	}
	if cfg.Path == MemoryPath {
		// Each pooled connection would see its own empty in-memory database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("db: open memory store: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db: close: %w", err)
	}
	return sqlDB.Close()
}
