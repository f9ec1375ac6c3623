package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vajra-sim/vajra/internal/config"
	"github.com/vajra-sim/vajra/internal/model"
)

func TestGetSqliteDB_MemoryIsPrivate(t *testing.T) {
	a, err := GetSqliteDB("")
	require.NoError(t, err)
	b, err := GetSqliteDB("")
	require.NoError(t, err)

	require.NoError(t, Setup(a, "a"))
	assert.True(t, a.Migrator().HasTable(&model.SimulationResult{}))
	assert.False(t, b.Migrator().HasTable(&model.SimulationResult{}))
}

func TestSetup_SeedsServerInfoOnce(t *testing.T) {
	db, err := GetSqliteDB("")
	require.NoError(t, err)

	require.NoError(t, Setup(db, "test-instance"))
	require.NoError(t, Setup(db, "other"))

	var infos []model.ServerInfo
	require.NoError(t, db.Find(&infos).Error)
	require.Len(t, infos, 1)
	assert.Equal(t, "test-instance", infos[0].InstanceName)
	assert.Equal(t, SchemaLevel, infos[0].SchemaLevel)
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := GetSqliteDB("")
	require.NoError(t, err)
	require.NoError(t, Setup(db, "dump"))
	require.NoError(t, db.Create(&model.SimulationResult{ScenarioID: "small_swarm", Neutralizations: 2}).Error)

	path := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))
	require.NoError(t, DumpMemoryDBToDisk(db, path))

	onDisk, err := GetSqliteDB(path)
	require.NoError(t, err)
	var got []model.SimulationResult
	require.NoError(t, onDisk.Find(&got).Error)
	require.Len(t, got, 1)
	assert.Equal(t, "small_swarm", got[0].ScenarioID)
	assert.Equal(t, 2, got[0].Neutralizations)
}

func TestManager_ConnectFallsBackToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.db")
	m := NewManager(zerolog.Nop())

	err := m.Connect(config.DBConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "nobody",
		Password: "nothing",
		Database: "none",
	}, path)
	require.NoError(t, err)
	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())

	require.NoError(t, m.Setup("fallback"))
	require.NoError(t, m.Close())
	assert.False(t, m.IsValid)

	_, err = os.Stat(path)
	assert.NoError(t, err, "close dumps the local DB")
}

func TestManager_SetupWithoutConnect(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.Error(t, m.Setup("x"))
	assert.NoError(t, m.Close())
	assert.Error(t, m.DumpMemoryToDisk())
}
