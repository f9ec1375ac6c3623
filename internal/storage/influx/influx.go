// Package influxstorage writes result records as InfluxDB points.
package influxstorage

import (
	"context"
	"errors"
	"time"

	"github.com/vajra-sim/vajra/internal/influx"
	"github.com/vajra-sim/vajra/pkg/core"
)

const connectTimeout = 10 * time.Second

// Backend records results through an influx.Manager. The manager may be
// shared with the monitor; Backend connects it only if nobody has yet.
type Backend struct {
	m     *influx.Manager
	owned bool
}

// New wraps m.
func New(m *influx.Manager) *Backend {
	return &Backend{m: m}
}

// Init connects the manager unless it is already writing somewhere.
func (b *Backend) Init() error {
	if b.m == nil {
		return errors.New("influx backend has no manager")
	}
	if b.m.IsValid || b.m.BackupWriter != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := b.m.Connect(ctx); err != nil {
		return err
	}
	b.owned = true
	return nil
}

// Close closes the manager if Init connected it.
func (b *Backend) Close() error {
	if !b.owned {
		return nil
	}
	return b.m.Close()
}

// RecordResult writes r to the results bucket.
func (b *Backend) RecordResult(r *core.ResultRecord) error {
	return b.m.RecordResult(r)
}
