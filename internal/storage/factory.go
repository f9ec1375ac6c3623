package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vajra-sim/vajra/internal/config"
	"github.com/vajra-sim/vajra/internal/influx"
	"github.com/vajra-sim/vajra/internal/logging"
	csvstorage "github.com/vajra-sim/vajra/internal/storage/csv"
	influxstorage "github.com/vajra-sim/vajra/internal/storage/influx"
	"github.com/vajra-sim/vajra/internal/storage/memory"
	"github.com/vajra-sim/vajra/internal/storage/postgres"
	"github.com/vajra-sim/vajra/internal/storage/remote"
	sqlitestorage "github.com/vajra-sim/vajra/internal/storage/sqlite"
)

// Backend type names accepted in storage.type.
const (
	TypeMemory   = "memory"
	TypeCSV      = "csv"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeInflux   = "influx"
	TypeRemote   = "remote"
)

// Dependencies carries what the non-file backends need.
type Dependencies struct {
	DB         config.DBConfig
	Influx     *influx.Manager
	LogManager *logging.SlogManager
	Log        zerolog.Logger
}

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	switch cfg.Type {
	case TypeMemory:
		return memory.New(cfg.Memory), nil
	case TypeCSV, "":
		return csvstorage.New(cfg.CSV), nil
	case TypeSQLite:
		b, err := sqlitestorage.New(cfg.SQLite, deps.LogManager)
		if err != nil {
			return nil, err
		}
		return b, nil
	case TypePostgres:
		return postgres.New(postgres.Dependencies{
			Config:     deps.DB,
			LogManager: deps.LogManager,
			Log:        deps.Log,
		}), nil
	case TypeInflux:
		if deps.Influx == nil {
			return nil, fmt.Errorf("influx storage needs an influx manager")
		}
		return influxstorage.New(deps.Influx), nil
	case TypeRemote:
		opts := []remote.Option{remote.WithInstance(logging.ServiceName)}
		if deps.LogManager != nil {
			opts = append(opts, remote.WithLogger(deps.LogManager.Logger()))
		}
		return remote.New(cfg.Remote, opts...), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
