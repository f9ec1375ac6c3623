package storage_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vajra-sim/vajra/internal/config"
	"github.com/vajra-sim/vajra/internal/influx"
	"github.com/vajra-sim/vajra/internal/storage"
	csvstorage "github.com/vajra-sim/vajra/internal/storage/csv"
	influxstorage "github.com/vajra-sim/vajra/internal/storage/influx"
	"github.com/vajra-sim/vajra/internal/storage/memory"
	"github.com/vajra-sim/vajra/internal/storage/postgres"
	"github.com/vajra-sim/vajra/internal/storage/remote"
	sqlitestorage "github.com/vajra-sim/vajra/internal/storage/sqlite"
	"github.com/vajra-sim/vajra/pkg/core"

	"github.com/rs/zerolog"
)

// Compile-time interface checks
var (
	_ storage.Backend    = (*memory.Backend)(nil)
	_ storage.Reader     = (*memory.Backend)(nil)
	_ storage.Exportable = (*memory.Backend)(nil)
	_ storage.Backend    = (*csvstorage.Backend)(nil)
	_ storage.Reader     = (*csvstorage.Backend)(nil)
	_ storage.Backend    = (*sqlitestorage.Backend)(nil)
	_ storage.Reader     = (*sqlitestorage.Backend)(nil)
	_ storage.Backend    = (*postgres.Backend)(nil)
	_ storage.Reader     = (*postgres.Backend)(nil)
	_ storage.Backend    = (*influxstorage.Backend)(nil)
	_ storage.Backend    = (*remote.Backend)(nil)
	_ storage.Backend    = storage.Multi(nil)
	_ storage.Reader     = storage.Multi(nil)
)

func TestNewBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := config.StorageConfig{
		Memory: config.MemoryConfig{OutputDir: dir},
		CSV:    config.CSVConfig{Path: filepath.Join(dir, "r.csv")},
		SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "r.db")},
		Remote: config.RemoteConfig{URL: "ws://localhost:1/results"},
	}
	deps := storage.Dependencies{Influx: influx.NewManager(zerolog.Nop(), config.InfluxConfig{})}

	tests := []struct {
		typ  string
		want any
	}{
		{storage.TypeMemory, &memory.Backend{}},
		{storage.TypeCSV, &csvstorage.Backend{}},
		{"", &csvstorage.Backend{}},
		{storage.TypeSQLite, &sqlitestorage.Backend{}},
		{storage.TypePostgres, &postgres.Backend{}},
		{storage.TypeInflux, &influxstorage.Backend{}},
		{storage.TypeRemote, &remote.Backend{}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			cfg.Type = tt.typ
			b, err := storage.NewBackend(cfg, deps)
			require.NoError(t, err)
			assert.IsType(t, tt.want, b)
		})
	}
}

func TestNewBackend_Errors(t *testing.T) {
	_, err := storage.NewBackend(config.StorageConfig{Type: "tape"}, storage.Dependencies{})
	assert.ErrorContains(t, err, "unknown storage type")

	_, err = storage.NewBackend(config.StorageConfig{Type: storage.TypeInflux}, storage.Dependencies{})
	assert.Error(t, err)
}

type stubBackend struct {
	name      string
	initErr   error
	recordErr error
	inited    bool
	closed    bool
	records   []core.ResultRecord
}

func (s *stubBackend) Init() error {
	s.inited = s.initErr == nil
	return s.initErr
}

func (s *stubBackend) Close() error {
	s.closed = true
	return nil
}

func (s *stubBackend) RecordResult(r *core.ResultRecord) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.records = append(s.records, *r)
	return nil
}

func TestMulti_FanOut(t *testing.T) {
	a := &stubBackend{name: "a", recordErr: errors.New("disk full")}
	b := &stubBackend{name: "b"}
	m := storage.Multi{a, b}

	require.NoError(t, m.Init())
	err := m.RecordResult(&core.ResultRecord{ScenarioID: "x"})
	assert.ErrorContains(t, err, "disk full")
	assert.Len(t, b.records, 1, "later backends still receive the record")

	require.NoError(t, m.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestMulti_InitFailureClosesStarted(t *testing.T) {
	a := &stubBackend{name: "a"}
	b := &stubBackend{name: "b", initErr: errors.New("nope")}
	c := &stubBackend{name: "c"}

	err := storage.Multi{a, b, c}.Init()
	require.Error(t, err)
	assert.True(t, a.closed)
	assert.False(t, c.inited)
}

func TestMulti_ListResults(t *testing.T) {
	mem := memory.New(config.MemoryConfig{})
	require.NoError(t, mem.RecordResult(&core.ResultRecord{ScenarioID: "small_swarm"}))

	got, err := storage.Multi{&stubBackend{}, mem}.ListResults(10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "small_swarm", got[0].ScenarioID)

	_, err = storage.Multi{&stubBackend{}}.ListResults(1)
	assert.ErrorIs(t, err, storage.ErrNotReadable)
}
