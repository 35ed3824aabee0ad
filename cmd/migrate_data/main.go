// Command migrate_data copies a SQLite sandbox database into the database
// configured by DB_DRIVER, typically PostgreSQL.
package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"whatsapp-console/internal/config"
	"whatsapp-console/internal/database"
	"whatsapp-console/internal/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	from := flag.String("from", cfg.Sandbox.DBPath, "path of the source SQLite database")
	flag.Parse()

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if cfg.Sandbox.DBDriver != "postgres" {
		zl.Fatal("Destination must be postgres; set DB_DRIVER=postgres", zap.String("driver", cfg.Sandbox.DBDriver))
	}

	src, err := database.Open(config.SandboxConfig{DBDriver: "sqlite", DBPath: *from}, zl)
	if err != nil {
		zl.Fatal("Failed to open source database", zap.String("path", *from), zap.Error(err))
	}
	dst, err := database.Open(cfg.Sandbox, zl)
	if err != nil {
		zl.Fatal("Failed to open destination database", zap.Error(err))
	}

	zl.Info("starting data migration", zap.String("from", *from), zap.String("to", cfg.Sandbox.DBHost))
	result, err := database.Copy(src, dst, zl)
	if err != nil {
		zl.Fatal("Data migration failed", zap.Error(err))
	}
	for table, rows := range result {
		zl.Info("migrated", zap.String("table", table), zap.Int64("rows", rows))
	}
	zl.Info("data migration completed")
}
