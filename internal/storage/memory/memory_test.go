package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vajra-sim/vajra/internal/config"
	"github.com/vajra-sim/vajra/pkg/core"
)

var fixedTime = time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

func newTestBackend(cfg config.MemoryConfig) *Backend {
	b := New(cfg)
	b.now = func() time.Time { return fixedTime }
	return b
}

func record(id string, neut, losses int, avg float64) *core.ResultRecord {
	return &core.ResultRecord{
		Timestamp:        fixedTime,
		ScenarioID:       id,
		SimTimeSec:       30,
		Neutralizations:  neut,
		FriendlyLosses:   losses,
		AssetsSaved:      1,
		AvgInterceptTime: avg,
		AILevel:          "basic",
		SpeedMultiplier:  1,
	}
}

func TestRecordAndList(t *testing.T) {
	b := newTestBackend(config.MemoryConfig{})
	require.NoError(t, b.Init())

	require.NoError(t, b.RecordResult(record("a", 1, 0, 10)))
	require.NoError(t, b.RecordResult(record("b", 2, 1, 0)))
	require.NoError(t, b.RecordResult(record("c", 3, 2, 20)))

	all, err := b.ListResults(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ScenarioID, "newest first")

	two, err := b.ListResults(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, []string{two[0].ScenarioID, two[1].ScenarioID})
}

func TestRecordResultCopies(t *testing.T) {
	b := newTestBackend(config.MemoryConfig{})
	r := record("a", 1, 0, 0)
	require.NoError(t, b.RecordResult(r))
	r.ScenarioID = "mutated"

	got, _ := b.ListResults(1)
	assert.Equal(t, "a", got[0].ScenarioID)
}

func TestCloseWithoutOutputDir(t *testing.T) {
	b := newTestBackend(config.MemoryConfig{})
	require.NoError(t, b.RecordResult(record("a", 1, 0, 0)))
	require.NoError(t, b.Close())
	assert.Empty(t, b.ExportedFilePath())
}

func TestCloseWithoutRecords(t *testing.T) {
	dir := t.TempDir()
	b := newTestBackend(config.MemoryConfig{OutputDir: dir})
	require.NoError(t, b.Close())
	assert.Empty(t, b.ExportedFilePath())
}

func TestExportJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	b := newTestBackend(config.MemoryConfig{OutputDir: dir})
	require.NoError(t, b.RecordResult(record("small_swarm", 2, 1, 10)))
	require.NoError(t, b.RecordResult(record("small_swarm", 4, 0, 0)))
	require.NoError(t, b.RecordResult(record("custom", 1, 3, 30)))
	require.NoError(t, b.Close())

	path := b.ExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "vajra_results_20260506_070809.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var export ResultsExport
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, fixedTime, export.ExportedAt)
	assert.Len(t, export.Results, 3)
	assert.Equal(t, 3, export.Summary.Runs)
	assert.Equal(t, 7, export.Summary.TotalNeutralizations)
	assert.Equal(t, 4, export.Summary.TotalFriendlyLosses)
	assert.Equal(t, 3, export.Summary.TotalAssetsSaved)
	assert.InDelta(t, 20.0, export.Summary.MeanInterceptTime, 1e-9)
	assert.Equal(t, map[string]int{"small_swarm": 2, "custom": 1}, export.Summary.ByScenario)
}

func TestExportGzip(t *testing.T) {
	dir := t.TempDir()
	b := newTestBackend(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	require.NoError(t, b.RecordResult(record("asset_under_threat", 5, 2, 12.5)))
	require.NoError(t, b.Close())

	path := b.ExportedFilePath()
	assert.Equal(t, ".gz", filepath.Ext(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var export ResultsExport
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	require.Len(t, export.Results, 1)
	assert.Equal(t, "asset_under_threat", export.Results[0].ScenarioID)
	assert.Equal(t, 12.5, export.Summary.MeanInterceptTime)
}
