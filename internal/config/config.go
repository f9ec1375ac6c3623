package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "vajra.cfg.json"

// SimulationConfig holds everything an engine reads at construction.
type SimulationConfig struct {
	TickRate          float64 `json:"tickRate" mapstructure:"tickRate"`
	SpeedMultiplier   float64 `json:"speedMultiplier" mapstructure:"speedMultiplier"`
	Seed              int64   `json:"seed" mapstructure:"seed"`
	LogTail           int     `json:"logTail" mapstructure:"logTail"`
	VengeanceDuration float64 `json:"vengeanceDuration" mapstructure:"vengeanceDuration"`

	WorldWidth  float64 `json:"worldWidth" mapstructure:"worldWidth"`
	WorldHeight float64 `json:"worldHeight" mapstructure:"worldHeight"`

	FriendlySpeed float64 `json:"friendlySpeed" mapstructure:"friendlySpeed"`
	EnemySpeed    float64 `json:"enemySpeed" mapstructure:"enemySpeed"`

	FiringRange    float64 `json:"firingRange" mapstructure:"firingRange"`
	WeaponCooldown float64 `json:"weaponCooldown" mapstructure:"weaponCooldown"`
	WeaponDamage   int     `json:"weaponDamage" mapstructure:"weaponDamage"`

	AILevel            string  `json:"aiLevel" mapstructure:"aiLevel"`
	CommunicationRange float64 `json:"communicationRange" mapstructure:"communicationRange"`
	ThreateningRange   float64 `json:"threateningRange" mapstructure:"threateningRange"`
	SensorRange        float64 `json:"sensorRange" mapstructure:"sensorRange"`
	Guardians          int     `json:"guardians" mapstructure:"guardians"`
	CommChance         float64 `json:"commChance" mapstructure:"commChance"`
}

// TickInterval is the nominal simulation step in seconds.
func (c SimulationConfig) TickInterval() float64 {
	if c.TickRate <= 0 {
		return 1.0 / 60
	}
	return 1.0 / c.TickRate
}

// TickDuration is the wall-clock tick period for drivers.
func (c SimulationConfig) TickDuration() time.Duration {
	return time.Duration(c.TickInterval() * float64(time.Second))
}

// ServerConfig holds transport settings.
type ServerConfig struct {
	Address            string   `json:"address" mapstructure:"address"`
	AllowedOrigins     []string `json:"allowedOrigins" mapstructure:"allowedOrigins"`
	MaxPendingCommands int      `json:"maxPendingCommands" mapstructure:"maxPendingCommands"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// CSVConfig holds CSV result log settings.
type CSVConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// SQLiteConfig holds SQLite storage backend settings.
// A non-zero DumpInterval keeps the database in memory and copies it to
// Path on that interval and on close.
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// RemoteConfig holds the upstream collector for the remote backend.
type RemoteConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the result storage backend.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	CSV    CSVConfig    `json:"csv" mapstructure:"csv"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
	Remote RemoteConfig `json:"remote" mapstructure:"remote"`
}

// DBConfig holds Postgres connection settings.
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	// FallbackPath enables an in-memory SQLite fallback dumped here when
	// Postgres is unreachable.
	FallbackPath string
}

// InfluxConfig holds InfluxDB connection settings.
type InfluxConfig struct {
	Enabled    bool
	Host       string
	Port       string
	Protocol   string
	Token      string
	Org        string
	BackupPath string
}

// URL returns the InfluxDB server URL.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds GELF log shipping settings.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled        bool
	ServiceName    string
	BatchTimeout   time.Duration
	MetricInterval time.Duration
	Endpoint       string
	Insecure       bool
}

// MonitorConfig holds status monitor settings.
type MonitorConfig struct {
	Enabled    bool
	Interval   time.Duration
	StatusFile string
}

// ScenarioConfig points at an optional blueprint file.
type ScenarioConfig struct {
	File string
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("logFormat", "text")

	viper.SetDefault("simulation.tickRate", 60)
	viper.SetDefault("simulation.speedMultiplier", 1.0)
	viper.SetDefault("simulation.seed", 0)
	viper.SetDefault("simulation.logTail", 20)
	viper.SetDefault("simulation.vengeanceDuration", 10.0)

	viper.SetDefault("world.width", 1200)
	viper.SetDefault("world.height", 800)

	viper.SetDefault("units.friendlySpeed", 50.0)
	viper.SetDefault("units.enemySpeed", 50.0)

	viper.SetDefault("combat.firingRange", 250.0)
	viper.SetDefault("combat.weaponCooldown", 1.0)
	viper.SetDefault("combat.weaponDamage", 34)

	viper.SetDefault("ai.level", "basic")
	viper.SetDefault("ai.communicationRange", 400.0)
	viper.SetDefault("ai.threateningRange", 500.0)
	viper.SetDefault("ai.sensorRange", 800.0)
	viper.SetDefault("ai.guardians", 3)
	viper.SetDefault("ai.commChance", 0.05)

	viper.SetDefault("scenarios.file", "")

	viper.SetDefault("server.address", ":8000")
	viper.SetDefault("server.allowedOrigins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	viper.SetDefault("server.maxPendingCommands", 32)

	viper.SetDefault("storage.type", "csv")
	viper.SetDefault("storage.csv.path", "simulation_results.csv")
	viper.SetDefault("storage.memory.outputDir", "./results")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "vajra_results.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "0s")
	viper.SetDefault("storage.remote.url", "ws://localhost:5000/api/v1/results")
	viper.SetDefault("storage.remote.secret", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "vajra")
	viper.SetDefault("db.fallbackPath", "vajra_results_fallback.db")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "vajra-metrics")
	viper.SetDefault("influx.backupPath", "influx_backup.lp.gz")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "vajra-server")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.metricInterval", "30s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "1s")
	viper.SetDefault("monitor.statusFile", "status.txt")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Defaults stay in
// effect when the file cannot be read.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSimulationConfig assembles the engine configuration.
func GetSimulationConfig() SimulationConfig {
	return SimulationConfig{
		TickRate:          viper.GetFloat64("simulation.tickRate"),
		SpeedMultiplier:   viper.GetFloat64("simulation.speedMultiplier"),
		Seed:              viper.GetInt64("simulation.seed"),
		LogTail:           viper.GetInt("simulation.logTail"),
		VengeanceDuration: viper.GetFloat64("simulation.vengeanceDuration"),

		WorldWidth:  viper.GetFloat64("world.width"),
		WorldHeight: viper.GetFloat64("world.height"),

		FriendlySpeed: viper.GetFloat64("units.friendlySpeed"),
		EnemySpeed:    viper.GetFloat64("units.enemySpeed"),

		FiringRange:    viper.GetFloat64("combat.firingRange"),
		WeaponCooldown: viper.GetFloat64("combat.weaponCooldown"),
		WeaponDamage:   viper.GetInt("combat.weaponDamage"),

		AILevel:            viper.GetString("ai.level"),
		CommunicationRange: viper.GetFloat64("ai.communicationRange"),
		ThreateningRange:   viper.GetFloat64("ai.threateningRange"),
		SensorRange:        viper.GetFloat64("ai.sensorRange"),
		Guardians:          viper.GetInt("ai.guardians"),
		CommChance:         viper.GetFloat64("ai.commChance"),
	}
}

// GetServerConfig returns the transport settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Address:            viper.GetString("server.address"),
		AllowedOrigins:     viper.GetStringSlice("server.allowedOrigins"),
		MaxPendingCommands: viper.GetInt("server.maxPendingCommands"),
	}
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		CSV: CSVConfig{
			Path: viper.GetString("storage.csv.path"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Remote: RemoteConfig{
			URL:    viper.GetString("storage.remote.url"),
			Secret: viper.GetString("storage.remote.secret"),
		},
	}
}

// GetDBConfig returns the Postgres connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),

		FallbackPath: viper.GetString("db.fallbackPath"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		Host:       viper.GetString("influx.host"),
		Port:       viper.GetString("influx.port"),
		Protocol:   viper.GetString("influx.protocol"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

// GetGraylogConfig returns the GELF settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
	}
}

// GetMonitorConfig returns the status monitor settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:    viper.GetBool("monitor.enabled"),
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}

// GetScenarioConfig returns the scenario catalogue settings.
func GetScenarioConfig() ScenarioConfig {
	return ScenarioConfig{File: viper.GetString("scenarios.file")}
}
