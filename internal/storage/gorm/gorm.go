// Package gormstorage implements result storage on top of GORM with an
// internal queue and a background DB writer goroutine. The postgres and
// sqlite backends wrap it.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/vajra-sim/vajra/internal/database"
	"github.com/vajra-sim/vajra/internal/logging"
	"github.com/vajra-sim/vajra/internal/model"
	"github.com/vajra-sim/vajra/internal/model/convert"
	"github.com/vajra-sim/vajra/internal/queue"
	"github.com/vajra-sim/vajra/pkg/core"
)

// DefaultFlushInterval is how often queued results are written.
const DefaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	InstanceName  string
	FlushInterval time.Duration
}

// Backend queues result rows and writes them in batches.
type Backend struct {
	deps    Dependencies
	results *queue.Queue[model.SimulationResult]

	writeMu   sync.Mutex
	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.InstanceName == "" {
		deps.InstanceName = logging.ServiceName
	}
	return &Backend{
		deps:    deps,
		results: queue.New[model.SimulationResult](),
	}
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend has no database")
	}

	b.deps.LogManager.WriteLog("setupDB", "Migrating schema", "INFO")
	if err := database.Setup(b.deps.DB, b.deps.InstanceName); err != nil {
		b.deps.LogManager.WriteLog("setupDB", err.Error(), "ERROR")
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.deps.LogManager.WriteLog("setupDB", "Database setup complete", "INFO")

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.startDBWriter()
	return nil
}

// Close stops the writer and flushes whatever is still queued.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			<-b.done
		}
	})
	if b.deps.DB == nil {
		return nil
	}
	return b.Flush()
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Pending returns the number of queued, unwritten results.
func (b *Backend) Pending() int {
	return b.results.Len()
}

// RecordResult queues r for the next write cycle.
func (b *Backend) RecordResult(r *core.ResultRecord) error {
	b.results.Push(convert.CoreToResult(*r))
	return nil
}

// Flush writes queued results now. Failed batches stay queued.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return writeQueue(b.deps.DB, b.results, "simulation results", b.deps.LogManager.WriteLog, stampCreated, nil)
}

// ListResults flushes pending rows and returns the newest limit results,
// newest first. limit <= 0 returns all of them.
func (b *Backend) ListResults(limit int) ([]core.ResultRecord, error) {
	if err := b.Flush(); err != nil {
		return nil, err
	}

	var rows []model.SimulationResult
	tx := b.deps.DB.Order("timestamp desc").Order("id desc")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return convert.ResultsToCore(rows), nil
}

func stampCreated(items []model.SimulationResult) {
	now := time.Now().UTC()
	for i := range items {
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = now
		}
	}
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string), prepare func([]T), onSuccess func([]T)) error {
	if q.Empty() {
		return nil
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Push(items...)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := tx.Commit().Error; err != nil {
		q.Push(items...)
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	log(":DB:WRITER:", fmt.Sprintf("Wrote %d %s", len(items), name), "DEBUG")
	if onSuccess != nil {
		onSuccess(items)
	}
	return nil
}

// startDBWriter periodically drains the queue into the DB until Close.
func (b *Backend) startDBWriter() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.Flush()
		}
	}
}
