package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/vajra-sim/vajra/internal/config"
	"github.com/vajra-sim/vajra/internal/logging"
	"github.com/vajra-sim/vajra/internal/monitor"
	intOtel "github.com/vajra-sim/vajra/internal/otel"
	"github.com/vajra-sim/vajra/internal/scenario"
	"github.com/vajra-sim/vajra/internal/server"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"
)

var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// ZLog is handed to the zerolog-based storage managers.
	ZLog zerolog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	LogFilePath string
	LogFile     *os.File

	SessionStartTime time.Time = time.Now()

	logClosers []io.Closer
)

const usage = `Usage: vajra-server [command] [flags]

Commands:
  serve     run the HTTP and websocket server (default)
  run       run one scenario headless and store its result
  results   list stored results

Flags:
`

func main() {
	command, args := splitCommand(os.Args[1:])

	fs := pflag.NewFlagSet(command, pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	configDir := fs.String("config-dir", ".", "directory containing "+config.FileName)
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("address", ":8000", "listen address for serve")

	var run runOptions
	var results resultsOptions
	switch command {
	case "serve":
	case "run":
		run.bind(fs)
	case "results":
		results.bind(fs)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		fs.Usage()
		os.Exit(2)
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if err := loadConfig(*configDir, fs); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config, using defaults: %v\n", err)
	}

	setupLogging(command != "serve")
	defer shutdownLogging()
	Logger.Info("Starting up...", "command", command, "version", CurrentVersion, "build", BuildDate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch command {
	case "serve":
		err = serve(ctx)
	case "run":
		err = runHeadless(ctx, run, os.Stdout)
	case "results":
		err = listResults(ctx, results, os.Stdout)
	}
	if err != nil {
		Logger.Error("Command failed", "command", command, "error", err)
		shutdownLogging()
		os.Exit(1)
	}
}

// splitCommand separates a leading subcommand from its flags. Without one
// the server is started.
func splitCommand(args []string) (string, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "serve", args
	}
	return strings.ToLower(args[0]), args[1:]
}

func loadConfig(configDir string, fs *pflag.FlagSet) error {
	err := config.Load(configDir)

	// Flags win over the file only when given explicitly.
	_ = viper.BindPFlag("logLevel", fs.Lookup("log-level"))
	_ = viper.BindPFlag("server.address", fs.Lookup("address"))
	return err
}

// setupLogging wires the log file, OTel and Graylog into SlogManager.
// Short-lived commands keep logging on stderr so stdout stays clean.
func setupLogging(quiet bool) {
	SlogManager = logging.NewSlogManager()
	level := viper.GetString("logLevel")

	var err error
	LogFile, LogFilePath, err = logging.OpenLogFile(viper.GetString("logsDir"), logging.ServiceName, SessionStartTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging to stderr only: %v\n", err)
		LogFile = nil
	}

	var out io.Writer = os.Stderr
	if LogFile != nil {
		out = LogFile
		if !quiet {
			out = io.MultiWriter(os.Stdout, LogFile)
		}
	}

	zlevel, zerr := zerolog.ParseLevel(strings.ToLower(level))
	if zerr != nil || zlevel == zerolog.NoLevel {
		zlevel = zerolog.InfoLevel
	}
	ZLog = zerolog.New(out).Level(zlevel).With().Timestamp().Str("service", logging.ServiceName).Logger()

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		var otelOut io.Writer
		if LogFile != nil {
			otelOut = LogFile
		}
		OTelProvider, err = intOtel.New(intOtel.FromConfig(otelCfg, otelOut, func(err error) {
			ZLog.Warn().Err(err).Msg("OTel SDK error")
		}))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize OTel provider: %v\n", err)
			OTelProvider = nil
		}
	}

	var extra []slog.Handler
	gl := config.GetGraylogConfig()
	if gl.Enabled {
		h, closer, err := logging.NewGraylogHandler(gl.Address, logging.ServiceName, level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to Graylog at %s: %v\n", gl.Address, err)
		} else {
			extra = append(extra, h)
			logClosers = append(logClosers, closer)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(logging.Options{
		Output:   out,
		Level:    level,
		Format:   viper.GetString("logFormat"),
		Provider: otelLogProvider,
		Extra:    extra,
	})
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath)
}

func shutdownLogging() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if SlogManager != nil {
		if err := SlogManager.Flush(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to flush logs: %v\n", err)
		}
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shut down OTel: %v\n", err)
		}
		OTelProvider = nil
	}
	for _, c := range logClosers {
		_ = c.Close()
	}
	logClosers = nil
	if LogFile != nil {
		_ = LogFile.Close()
		LogFile = nil
	}
}

// reloadOnHangup re-reads the config file on SIGHUP and applies the new
// log level.
func reloadOnHangup(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := viper.ReadInConfig(); err != nil {
				Logger.Warn("Config reload failed", "error", err)
				continue
			}
			SlogManager.SetLevel(viper.GetString("logLevel"))
			Logger.Info("Config reloaded", "logLevel", SlogManager.Level().String())
		}
	}
}

func newScenarios(sim config.SimulationConfig) (*scenario.Provider, error) {
	var opts []scenario.Option
	if sim.Seed != 0 {
		opts = append(opts, scenario.WithRand(rand.New(rand.NewSource(sim.Seed))))
	}
	return scenario.New(sim.WorldWidth, sim.WorldHeight, config.GetScenarioConfig().File, opts...)
}

func serve(ctx context.Context) error {
	sim := config.GetSimulationConfig()
	scenarios, err := newScenarios(sim)
	if err != nil {
		return err
	}

	results, err := openResults(ctx)
	if err != nil {
		return err
	}
	defer results.Close()

	deps := server.Dependencies{
		LogManager: SlogManager,
		Scenarios:  scenarios,
		Recorder:   results.recorder,
		Simulation: sim,
		Server:     config.GetServerConfig(),
	}
	if OTelProvider != nil {
		deps.Meter = OTelProvider.Meter(logging.ServiceName)
	}
	srv, err := server.New(deps)
	if err != nil {
		return err
	}

	monCfg := config.GetMonitorConfig()
	if monCfg.Enabled {
		monDeps := monitor.Dependencies{
			LogManager: SlogManager,
			Sessions:   srv,
			StatusFile: monCfg.StatusFile,
			Interval:   monCfg.Interval,
		}
		if m := results.influx; m != nil {
			monDeps.Influx = m
			monDeps.IsInfluxValid = func() bool { return m.IsValid }
		}
		mon := monitor.NewService(monDeps)
		if err := mon.Start(); err != nil {
			Logger.Warn("Status monitor not started", "error", err)
		} else {
			defer mon.Stop()
		}
	}

	go reloadOnHangup(ctx)

	addr := viper.GetString("server.address")
	Logger.Info("Serving simulations", "address", addr, "storage", config.GetStorageConfig().Type)
	return srv.ListenAndServe(ctx, addr)
}
