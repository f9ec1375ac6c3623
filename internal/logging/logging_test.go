package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runStart = time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

func TestLogFilePath(t *testing.T) {
	tests := map[string]struct {
		dir  string
		want string
	}{
		"relative": {"logs", filepath.Join("logs", "vajra-server.20260212_213836.log")},
		"dotted":   {"./logs", filepath.Join("logs", "vajra-server.20260212_213836.log")},
		"absolute": {filepath.Join("/var", "log", "vajra"), filepath.Join("/var", "log", "vajra", "vajra-server.20260212_213836.log")},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.dir, ServiceName, runStart))
		})
	}
}

func TestOpenLogFile_CreatesDirAndRotates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	f, path, err := OpenLogFile(dir, ServiceName, runStart)
	require.NoError(t, err)
	_, err = f.WriteString("first run\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, samePath, err := OpenLogFile(dir, ServiceName, runStart)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	assert.Equal(t, path, samePath)

	old, err := os.ReadFile(path + ".old")
	require.NoError(t, err)
	assert.Equal(t, "first run\n", string(old))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestOpenLogFile_BadDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, _, err := OpenLogFile(filepath.Join(blocker, "logs"), ServiceName, runStart)
	assert.Error(t, err)
}
