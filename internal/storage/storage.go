// Package storage defines the result persistence interfaces and the
// backend factory.
package storage

import (
	"errors"

	"github.com/vajra-sim/vajra/pkg/core"
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// RecordResult persists one finished or reset run.
	RecordResult(r *core.ResultRecord) error
}

// Reader is implemented by backends that can list what they stored.
type Reader interface {
	// ListResults returns up to limit records, newest first. limit <= 0
	// means all of them.
	ListResults(limit int) ([]core.ResultRecord, error)
}

// Exportable is implemented by backends that write an export file on Close.
type Exportable interface {
	ExportedFilePath() string
}

// ErrNotReadable is returned by Multi.ListResults when no backend is a Reader.
var ErrNotReadable = errors.New("no storage backend supports listing results")

// Multi fans every record out to all of its backends.
type Multi []Backend

// Init initializes every backend, closing the ones already started if one fails.
func (m Multi) Init() error {
	for i, b := range m {
		if err := b.Init(); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = m[j].Close()
			}
			return err
		}
	}
	return nil
}

// Close closes every backend and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, b := range m {
		errs = append(errs, b.Close())
	}
	return errors.Join(errs...)
}

// RecordResult writes r to every backend. A failing backend does not stop the others.
func (m Multi) RecordResult(r *core.ResultRecord) error {
	var errs []error
	for _, b := range m {
		errs = append(errs, b.RecordResult(r))
	}
	return errors.Join(errs...)
}

// ListResults reads from the first backend that implements Reader.
func (m Multi) ListResults(limit int) ([]core.ResultRecord, error) {
	for _, b := range m {
		if r, ok := b.(Reader); ok {
			return r.ListResults(limit)
		}
	}
	return nil, ErrNotReadable
}
