package memory

import (
	"sync"
	"time"

	"github.com/vajra-sim/vajra/internal/config"
	"github.com/vajra-sim/vajra/pkg/core"
)

// Backend keeps result records in memory and exports them to JSON on Close.
type Backend struct {
	cfg     config.MemoryConfig
	records []core.ResultRecord
	now     func() time.Time

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports the collected records when an output directory is set.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.OutputDir == "" || len(b.records) == 0 {
		return nil
	}
	return b.exportJSON()
}

// RecordResult stores a copy of r.
func (b *Backend) RecordResult(r *core.ResultRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = append(b.records, *r)
	return nil
}

// ListResults returns the newest limit records, newest first. limit <= 0
// returns all of them.
func (b *Backend) ListResults(limit int) ([]core.ResultRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]core.ResultRecord, 0, n)
	for i := len(b.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, b.records[i])
	}
	return out, nil
}

// ExportedFilePath returns the path of the last export, if any.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
