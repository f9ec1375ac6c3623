package main

import (
	"context"
	"fmt"

	"github.com/vajra-sim/vajra/internal/config"
	"github.com/vajra-sim/vajra/internal/dispatcher"
	"github.com/vajra-sim/vajra/internal/handlers"
	"github.com/vajra-sim/vajra/internal/influx"
	"github.com/vajra-sim/vajra/internal/logging"
	"github.com/vajra-sim/vajra/internal/storage"
	influxstorage "github.com/vajra-sim/vajra/internal/storage/influx"
)

// resultBufferSize bounds records waiting for a slow store.
const resultBufferSize = 64

// resultStore is the storage side of the process: the configured backend, the
// shared influx manager and the dispatcher queue engines record into.
type resultStore struct {
	backend    storage.Backend
	influx     *influx.Manager
	dispatcher *dispatcher.Dispatcher
	recorder   *handlers.DispatchRecorder
}

func openResults(ctx context.Context) (*resultStore, error) {
	storageCfg := config.GetStorageConfig()
	influxCfg := config.GetInfluxConfig()

	r := &resultStore{}
	if influxCfg.Enabled || storageCfg.Type == storage.TypeInflux {
		r.influx = influx.NewManager(ZLog.With().Str("component", "influx").Logger(), influxCfg)
		if err := r.influx.Connect(ctx); err != nil {
			Logger.Error("InfluxDB unavailable", "error", err)
			if storageCfg.Type == storage.TypeInflux {
				return nil, fmt.Errorf("influx storage: %w", err)
			}
			r.influx = nil
		}
	}

	backend, err := createStorageBackend(storageCfg, r.influx)
	if err != nil {
		r.closeInflux()
		return nil, err
	}
	if err := backend.Init(); err != nil {
		r.closeInflux()
		return nil, fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}
	r.backend = backend

	var settings []dispatcher.Setting
	if OTelProvider != nil {
		settings = append(settings, dispatcher.WithMeter(OTelProvider.Meter("github.com/vajra-sim/vajra/internal/dispatcher")))
	}
	d, err := dispatcher.New(logging.NewZerologAdapter(ZLog, "dispatcher"), settings...)
	if err != nil {
		_ = backend.Close()
		r.closeInflux()
		return nil, fmt.Errorf("failed to create result dispatcher: %w", err)
	}
	handlers.RegisterStorage(d, backend, resultBufferSize)
	r.dispatcher = d
	r.recorder = handlers.NewDispatchRecorder(d)

	Logger.Info("Storage initialized", "type", storageCfg.Type, "influx", r.influx != nil)
	return r, nil
}

// createStorageBackend builds the configured backend. A live influx
// manager is added alongside any other backend.
func createStorageBackend(storageCfg config.StorageConfig, m *influx.Manager) (storage.Backend, error) {
	backend, err := storage.NewBackend(storageCfg, storage.Dependencies{
		DB:         config.GetDBConfig(),
		Influx:     m,
		LogManager: SlogManager,
		Log:        ZLog.With().Str("component", "database").Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	if m != nil && storageCfg.Type != storage.TypeInflux {
		return storage.Multi{backend, influxstorage.New(m)}, nil
	}
	return backend, nil
}

// Close drains queued records, then closes the stores.
func (r *resultStore) Close() {
	if r.dispatcher != nil {
		if err := r.dispatcher.Close(); err != nil {
			Logger.Warn("Result dispatcher close", "error", err)
		}
	}
	if r.backend != nil {
		if err := r.backend.Close(); err != nil {
			Logger.Error("Failed to close storage", "error", err)
		}
	}
	r.closeInflux()
}

func (r *resultStore) closeInflux() {
	if r.influx == nil {
		return
	}
	if err := r.influx.Close(); err != nil {
		Logger.Warn("Failed to close InfluxDB", "error", err)
	}
	r.influx = nil
}
