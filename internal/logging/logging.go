package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LogFilePath names the log file of one process run, e.g.
// logs/vajra-server.20260212_213836.log.
func LogFilePath(logsDir, serviceName string, processStart time.Time) string {
	name := fmt.Sprintf("%s.%s.log", serviceName, processStart.Format("20060102_150405"))
	return filepath.Join(logsDir, name)
}

// OpenLogFile creates logsDir if needed and opens the run's log file for
// appending. A file already at that path is kept as <path>.old.
func OpenLogFile(logsDir, serviceName string, processStart time.Time) (*os.File, string, error) {
	path := LogFilePath(logsDir, serviceName, processStart)
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, path, fmt.Errorf("create logs dir: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+".old")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return nil, path, fmt.Errorf("open log file: %w", err)
	}
	return f, path, nil
}
