// Package csvstorage appends result records to a CSV log.
package csvstorage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/vajra-sim/vajra/internal/config"
	"github.com/vajra-sim/vajra/pkg/core"
)

// Header is the first row of every results file.
var Header = []string{
	"timestamp",
	"scenario_id",
	"sim_time_sec",
	"neutralizations",
	"friendly_losses",
	"assets_saved",
	"avg_intercept_time",
}

// Backend appends one row per result.
type Backend struct {
	path string
	mu   sync.Mutex
}

// New creates a CSV backend writing to cfg.Path.
func New(cfg config.CSVConfig) *Backend {
	return &Backend{path: cfg.Path}
}

// Init creates the parent directory and writes the header if the file is new.
func (b *Backend) Init() error {
	if b.path == "" {
		return errors.New("csv path not set")
	}
	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create csv directory: %w", err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.appendRows()
}

// Close is a no-op; every write is flushed immediately.
func (b *Backend) Close() error {
	return nil
}

// RecordResult appends r to the file.
func (b *Backend) RecordResult(r *core.ResultRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.appendRows(toRow(r))
}

func (b *Backend) appendRows(rows ...[]string) error {
	f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat results file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return err
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

// ListResults reads the file back, newest first. limit <= 0 returns every row.
// AI level and speed are not stored in the file and come back empty.
func (b *Backend) ListResults(limit int) ([]core.ResultRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := os.Open(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)

	var records []core.ResultRecord
	for line := 1; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && row[0] == Header[0] {
			continue
		}
		rec, err := fromRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	n := len(records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]core.ResultRecord, 0, n)
	for i := len(records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, records[i])
	}
	return out, nil
}

func toRow(r *core.ResultRecord) []string {
	return []string{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.ScenarioID,
		strconv.FormatFloat(r.SimTimeSec, 'f', 2, 64),
		strconv.Itoa(r.Neutralizations),
		strconv.Itoa(r.FriendlyLosses),
		strconv.Itoa(r.AssetsSaved),
		strconv.FormatFloat(r.AvgInterceptTime, 'f', 2, 64),
	}
}

func fromRow(row []string) (core.ResultRecord, error) {
	var rec core.ResultRecord
	var err error

	if rec.Timestamp, err = time.Parse(time.RFC3339, row[0]); err != nil {
		return rec, fmt.Errorf("timestamp: %w", err)
	}
	rec.ScenarioID = row[1]
	if rec.SimTimeSec, err = strconv.ParseFloat(row[2], 64); err != nil {
		return rec, fmt.Errorf("sim_time_sec: %w", err)
	}
	if rec.Neutralizations, err = strconv.Atoi(row[3]); err != nil {
		return rec, fmt.Errorf("neutralizations: %w", err)
	}
	if rec.FriendlyLosses, err = strconv.Atoi(row[4]); err != nil {
		return rec, fmt.Errorf("friendly_losses: %w", err)
	}
	if rec.AssetsSaved, err = strconv.Atoi(row[5]); err != nil {
		return rec, fmt.Errorf("assets_saved: %w", err)
	}
	if rec.AvgInterceptTime, err = strconv.ParseFloat(row[6], 64); err != nil {
		return rec, fmt.Errorf("avg_intercept_time: %w", err)
	}
	return rec, nil
}
