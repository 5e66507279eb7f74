//go:build integration

package db

import (
	"os"
	"strconv"
	"testing"

	"github.com/zulandar/parsinator/internal/config"
)

// mysqlConfig reads connection settings for a live MySQL server from
// PSR_MYSQL_HOST, PSR_MYSQL_PORT, PSR_MYSQL_USER, PSR_MYSQL_PASSWORD and
// PSR_MYSQL_DATABASE. The test is skipped when no host is set.
func mysqlConfig(t *testing.T) config.StoreConfig {
	t.Helper()
	host := os.Getenv("PSR_MYSQL_HOST")
	if host == "" {
		t.Skip("PSR_MYSQL_HOST not set")
	}
	port := 3306
	if p := os.Getenv("PSR_MYSQL_PORT"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			t.Fatalf("PSR_MYSQL_PORT: %v", err)
		}
		port = n
	}
	cfg := config.StoreConfig{
		Driver:   config.DriverMySQL,
		Host:     host,
		Port:     port,
		User:     os.Getenv("PSR_MYSQL_USER"),
		Password: os.Getenv("PSR_MYSQL_PASSWORD"),
		Database: os.Getenv("PSR_MYSQL_DATABASE"),
	}
	if cfg.User == "" {
		cfg.User = "root"
	}
	if cfg.Database == "" {
		cfg.Database = "parsinator_test"
	}
	return cfg
}

func TestIntegration_MySQLMigrate(t *testing.T) {
	cfg := mysqlConfig(t)

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer Close(db)

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, m := range AllModels() {
		if !db.Migrator().HasTable(m) {
			t.Errorf("table for %T not created", m)
		}
	}
}
