package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vajra-sim/vajra/internal/config"
	"github.com/vajra-sim/vajra/pkg/core"
)

func unreachable(backup string) config.InfluxConfig {
	return config.InfluxConfig{
		Enabled:    true,
		Host:       "127.0.0.1",
		Port:       "1",
		Protocol:   "http",
		Token:      "token",
		Org:        "vajra",
		BackupPath: backup,
	}
}

func readBackup(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	return string(data)
}

func sampleResult() *core.ResultRecord {
	return &core.ResultRecord{
		Timestamp:        time.Unix(1_700_000_000, 0).UTC(),
		ScenarioID:       "small_swarm",
		SimTimeSec:       25.5,
		Neutralizations:  2,
		FriendlyLosses:   1,
		AssetsSaved:      1,
		AvgInterceptTime: 9.5,
		AILevel:          "basic",
		SpeedMultiplier:  1,
	}
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.False(t, m.IsValid)
	assert.NoError(t, m.Close())
}

func TestConnect_FallsBackToBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.lp.gz")
	m := NewManager(zerolog.Nop(), unreachable(path))
	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid)
	require.NotNil(t, m.BackupWriter)

	require.NoError(t, m.RecordResult(sampleResult()))
	require.NoError(t, m.WritePerformance(PerformanceSample{
		SessionID:  "s1",
		Status:     "running",
		Ticks:      120,
		Friendlies: 3,
		Time:       time.Unix(1_700_000_001, 0),
	}))
	require.NoError(t, m.Close())

	content := readBackup(t, path)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "result,ai_level=basic,scenario_id=small_swarm "))
	assert.Contains(t, lines[0], "neutralizations=2i")
	assert.True(t, strings.HasSuffix(lines[0], " 1700000000000000000"))
	assert.True(t, strings.HasPrefix(lines[1], "engine,session=s1,status=running "))
	assert.Contains(t, lines[1], "ticks=120i")
}

func TestConnect_NoBackupPath(t *testing.T) {
	m := NewManager(zerolog.Nop(), unreachable(""))
	assert.Error(t, m.Connect(context.Background()))
	assert.Error(t, m.RecordResult(sampleResult()))
}

func TestWritePoint_UnknownBucket(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	m.IsValid = true
	err := m.WritePoint("nope", influxdb2_write.NewPointWithMeasurement("x").AddField("v", 1))
	assert.ErrorContains(t, err, "not registered")
}

func TestPerformancePoint_Tags(t *testing.T) {
	p := PerformancePoint(PerformanceSample{SessionID: "a", Status: "idle"})
	names := map[string]string{}
	for _, tag := range p.TagList() {
		names[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"session": "a", "status": "idle"}, names)
	assert.False(t, p.Time().IsZero())

	p = PerformancePoint(PerformanceSample{SessionID: "a", Status: "running", ScenarioID: "custom"})
	assert.Len(t, p.TagList(), 3)
}

func TestResultPoint(t *testing.T) {
	p := ResultPoint(sampleResult())
	assert.Equal(t, "result", p.Name())
	assert.Len(t, p.FieldList(), 6)
	assert.Equal(t, time.Unix(1_700_000_000, 0).UTC(), p.Time())
}
