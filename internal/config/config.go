package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "artycalc.cfg.json"

// FileStoreConfig holds JSON preset directory settings
type FileStoreConfig struct {
	Dir      string `json:"dir" mapstructure:"dir"`
	Compress bool   `json:"compress" mapstructure:"compress"`
}

// SQLiteConfig holds SQLite preset store settings. An empty path means in-memory.
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// StorageConfig selects and configures the preset storage backend
type StorageConfig struct {
	Type   string          `json:"type" mapstructure:"type"`
	File   FileStoreConfig `json:"file" mapstructure:"file"`
	SQLite SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// SetDefaults registers the default value of every known key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("graylog.address", "")

	viper.SetDefault("recompute.delayMs", 100)
	viper.SetDefault("viewport.margin", 10.0)

	viper.SetDefault("storage.type", "file")
	viper.SetDefault("storage.file.dir", "./presets")
	viper.SetDefault("storage.file.compress", false)
	viper.SetDefault("storage.sqlite.path", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "artycalc")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "artycalc")
	viper.SetDefault("influx.bucket", "fire_missions")
	viper.SetDefault("influx.backupPath", "./logs/fire_missions.lp.gz")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "artycalc")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("api.listen", ":8080")
}

// Load sets default values and reads the JSON config file from configDir.
// Defaults stay in effect when the file cannot be read.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// GetFloat returns a float config value such as viewport.margin.
func GetFloat(key string) float64 {
	return viper.GetFloat64(key)
}

// GetRecomputeDelay returns the scheduler quiet period.
func GetRecomputeDelay() time.Duration {
	return time.Duration(viper.GetInt("recompute.delayMs")) * time.Millisecond
}

// GetStorageConfig returns the preset storage settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		File: FileStoreConfig{
			Dir:      viper.GetString("storage.file.dir"),
			Compress: viper.GetBool("storage.file.compress"),
		},
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
