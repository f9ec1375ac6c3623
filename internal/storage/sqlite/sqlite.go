// Package sqlitestorage stores results in SQLite. With a dump interval the
// database lives in memory and is copied to disk via VACUUM INTO; otherwise
// it is opened directly on disk. Writes go through the GORM backend.
package sqlitestorage

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/vajra-sim/vajra/internal/config"
	"github.com/vajra-sim/vajra/internal/database"
	"github.com/vajra-sim/vajra/internal/logging"
	gormstorage "github.com/vajra-sim/vajra/internal/storage/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	log      *logging.SlogManager
	stopChan chan struct{}
	done     chan struct{}
	looping  bool

	closeOnce sync.Once
	closeErr  error
}

// New opens the SQLite database described by cfg.
func New(cfg config.SQLiteConfig, logManager *logging.SlogManager) (*Backend, error) {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}

	path := cfg.Path
	if cfg.DumpInterval > 0 {
		path = ""
	}
	db, err := database.GetSqliteDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:         db,
		LogManager: logManager,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      logManager,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// InMemory reports whether the database is periodically dumped rather than on disk.
func (b *Backend) InMemory() bool {
	return b.cfg.DumpInterval > 0 && b.cfg.Path != ""
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.InMemory() {
		b.looping = true
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine, flushes the GORM backend, and writes a
// final dump for in-memory databases.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.close()
	})
	return b.closeErr
}

func (b *Backend) close() error {
	close(b.stopChan)
	if b.looping {
		<-b.done
	}

	err := b.Backend.Close()
	if b.InMemory() {
		if dumpErr := b.dump(); dumpErr != nil && err == nil {
			err = dumpErr
		}
	}
	if sqlDB, dbErr := b.db.DB(); dbErr == nil {
		sqlDB.Close()
	}
	return err
}

func (b *Backend) dump() error {
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.Path); err != nil {
		b.log.WriteLog("sqlite:dump", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
		return err
	}
	b.log.WriteLog("sqlite:dump", fmt.Sprintf("Dumped to disk in %s", time.Since(start)), "DEBUG")
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				continue
			}
			_ = b.dump()
		}
	}
}
