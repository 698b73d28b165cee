package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/types"
	"github.com/recallhq/recall/internal/utils"
)

type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSQLiteService(log *logger.Logger) (*SQLiteService, error) {
	serviceLog := log.With("service", "SQLiteService")

	path := utils.GetEnv("SQLITE_PATH", "recall.db", log)

	log.Info("Opening SQLite database...", "path", path)
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Error("Failed to open SQLite database", "path", path, "error", err)
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// The log is written from per-session actors concurrently; WAL keeps
	// readers from blocking the single writer.
	if err := gdb.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
		serviceLog.Warn("Failed to enable WAL journal mode", "error", err)
	}

	return &SQLiteService{db: gdb, log: serviceLog}, nil
}

// AutoMigrateAll creates the chat log relation. Safe to run repeatedly:
// migration is a no-op when the table already exists and never drops data.
func (s *SQLiteService) AutoMigrateAll() error {
	s.log.Info("Auto migrating sqlite tables...")
	if err := s.db.AutoMigrate(&types.ChatTurn{}); err != nil {
		s.log.Error("Auto migration failed for sqlite tables", "error", err)
		return err
	}
	return nil
}

func (s *SQLiteService) DB() *gorm.DB {
	return s.db
}
