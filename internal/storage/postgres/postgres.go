// Package postgres stores results in PostgreSQL through the GORM backend.
package postgres

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/vajra-sim/vajra/internal/config"
	"github.com/vajra-sim/vajra/internal/database"
	"github.com/vajra-sim/vajra/internal/logging"
	gormstorage "github.com/vajra-sim/vajra/internal/storage/gorm"
	"github.com/vajra-sim/vajra/pkg/core"
)

// ErrNotInitialized is returned when the backend is used before Init.
var ErrNotInitialized = errors.New("postgres backend not initialized")

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	// DB is used as-is when set; otherwise Init connects with Config.
	DB         *gorm.DB
	Config     config.DBConfig
	LogManager *logging.SlogManager
	// Log is used by the connection manager when Config.FallbackPath is set.
	Log zerolog.Logger
}

// Backend embeds the GORM backend and owns the Postgres connection.
type Backend struct {
	*gormstorage.Backend
	deps    Dependencies
	manager *database.Manager
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{deps: deps}
}

// Init connects if no DB was injected, then migrates and starts the writer.
// With a fallback path an unreachable server is replaced by local SQLite.
func (b *Backend) Init() error {
	if b.deps.DB == nil && b.deps.Config.FallbackPath != "" {
		m := database.NewManager(b.deps.Log)
		if err := m.Connect(b.deps.Config, b.deps.Config.FallbackPath); err != nil {
			return fmt.Errorf("failed to connect to postgres or fallback: %w", err)
		}
		b.manager = m
		b.deps.DB = m.DB
		if m.ShouldSaveLocal {
			b.deps.LogManager.WriteLog("postgres:Init", fmt.Sprintf("Postgres unreachable, results go to %s", m.SqliteFilePath), "WARN")
		}
	} else if b.deps.DB == nil {
		db, err := database.GetPostgresDB(b.deps.Config)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
		b.deps.LogManager.WriteLog("postgres:Init", fmt.Sprintf("Connected to %s@%s", b.deps.Config.Database, b.deps.Config.Host), "INFO")
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:         b.deps.DB,
		LogManager: b.deps.LogManager,
	})
	return b.Backend.Init()
}

// RecordResult queues r. It fails before a successful Init.
func (b *Backend) RecordResult(r *core.ResultRecord) error {
	if b.Backend == nil {
		return ErrNotInitialized
	}
	return b.Backend.RecordResult(r)
}

// ListResults returns stored results, newest first.
func (b *Backend) ListResults(limit int) ([]core.ResultRecord, error) {
	if b.Backend == nil {
		return nil, ErrNotInitialized
	}
	return b.Backend.ListResults(limit)
}

// Fallback reports whether results are going to the local SQLite fallback.
func (b *Backend) Fallback() bool {
	return b.manager != nil && b.manager.ShouldSaveLocal
}

// Close flushes queued results and releases a managed connection. It is
// safe to call when Init failed.
func (b *Backend) Close() error {
	var err error
	if b.Backend != nil {
		err = b.Backend.Close()
	}
	if b.manager != nil {
		err = errors.Join(err, b.manager.Close())
		b.manager = nil
	}
	return err
}
