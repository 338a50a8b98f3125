// Package config holds the bridge configuration. It is loaded once at
// startup and passed explicitly to the components that need it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Telemetry backends.
const (
	BackendLog   = "log"
	BackendMQTT  = "mqtt"
	BackendKafka = "kafka"
)

// Keystore types.
const (
	KeystoreJKS    = "JKS"
	KeystorePKCS12 = "PKCS12"
)

// DefaultKeystoreFile is the keystore name searched under the credentials
// directories when no path is configured.
const DefaultKeystoreFile = "serverKeyStore.jks"

// DefaultTimeout applies when no positive dispatch timeout is configured.
const DefaultTimeout = 2 * time.Minute

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level configuration.
type Config struct {
	Timeout   time.Duration `yaml:"timeout"`
	Workers   int           `yaml:"workers"`
	QueueSize int           `yaml:"queue_size"`
	BaseDir   string        `yaml:"base_dir"`

	Models      ModelsConfig    `yaml:"models"`
	Keystore    KeystoreConfig  `yaml:"keystore"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Redis       RedisConfig     `yaml:"redis"`
	ProtocolLog string          `yaml:"protocol_log"`
	Pending     PendingConfig   `yaml:"pending"`
}

// ModelsConfig locates object-model definition files.
type ModelsConfig struct {
	Path string `yaml:"path"`
}

// KeystoreConfig locates the server keystore.
type KeystoreConfig struct {
	Type        string `yaml:"type"`
	Path        string `yaml:"path"`
	Password    string `yaml:"password"`
	RootAlias   string `yaml:"root_alias"`
	ServerAlias string `yaml:"server_alias"`
}

// TelemetryConfig selects where sink messages and device data are published.
type TelemetryConfig struct {
	Backend     string      `yaml:"backend"` // "log", "mqtt" or "kafka"
	TopicPrefix string      `yaml:"topic_prefix"`
	QueueSize   int         `yaml:"queue_size"`
	MQTT        MQTTConfig  `yaml:"mqtt"`
	Kafka       KafkaConfig `yaml:"kafka"`
}

// MQTTConfig defines MQTT broker settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

// KafkaConfig defines Kafka broker settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

// RedisConfig enables the Redis-backed object-model store. An empty URL
// disables it.
type RedisConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`
}

// PendingConfig controls pending-request expiry.
type PendingConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Sweep   string        `yaml:"sweep"` // cron spec
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		Timeout:   DefaultTimeout,
		Workers:   8,
		QueueSize: 256,
		Keystore: KeystoreConfig{
			Type:        KeystoreJKS,
			RootAlias:   "rootca",
			ServerAlias: "server",
		},
		Telemetry: TelemetryConfig{
			Backend:     BackendLog,
			TopicPrefix: "lwm2m",
			QueueSize:   1024,
			MQTT: MQTTConfig{
				Broker:   "localhost",
				Port:     1883,
				ClientID: "lwm2m-bridge",
			},
		},
		Redis: RedisConfig{
			KeyPrefix: "lwm2m:models",
		},
		Pending: PendingConfig{
			Timeout: DefaultTimeout,
			Sweep:   "@every 1s",
		},
	}
}

// Load reads a YAML config file. If the file doesn't exist, defaults are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects unknown backends and negative sizes.
func (c *Config) Validate() error {
	switch c.Telemetry.Backend {
	case BackendLog, BackendMQTT, BackendKafka:
	default:
		return fmt.Errorf("%w: unknown telemetry backend %q", ErrInvalidConfig, c.Telemetry.Backend)
	}
	if c.Workers < 0 || c.QueueSize < 0 || c.Telemetry.QueueSize < 0 {
		return fmt.Errorf("%w: sizes must not be negative", ErrInvalidConfig)
	}
	if c.Telemetry.Backend == BackendKafka && len(c.Telemetry.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: kafka backend needs brokers", ErrInvalidConfig)
	}
	return nil
}

// DispatchTimeout returns the configured timeout, or DefaultTimeout when it
// is not positive.
func (c *Config) DispatchTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// ResolveBaseDir returns the configured base directory, or the working
// directory with a trailing "bin" or "conf" element removed.
func (c *Config) ResolveBaseDir() string {
	if c.BaseDir != "" {
		return c.BaseDir
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return trimLaunchDir(wd)
}

func trimLaunchDir(dir string) string {
	switch filepath.Base(dir) {
	case "bin", "conf":
		return filepath.Dir(dir)
	}
	return dir
}

// ModelsDir returns the object-model directory: the explicit path, else
// <base>/data/models if it is a directory, else the source-tree resources
// directory.
func (c *Config) ModelsDir() string {
	if c.Models.Path != "" {
		return c.Models.Path
	}
	base := c.ResolveBaseDir()
	installed := filepath.Join(base, "data", "models")
	if isDir(installed) {
		return installed
	}
	return filepath.Join(base, "common", "transport", "lwm2m", "src", "main", "resources", "models")
}

// KeystorePath returns the keystore file: the explicit path, else
// <base>/data/credentials/serverKeyStore.jks if it exists, else the
// source-tree resources file.
func (c *Config) KeystorePath() string {
	if c.Keystore.Path != "" {
		return c.Keystore.Path
	}
	base := c.ResolveBaseDir()
	installed := filepath.Join(base, "data", "credentials", DefaultKeystoreFile)
	if isFile(installed) {
		return installed
	}
	return filepath.Join(base, "common", "transport", "lwm2m", "src", "main", "resources", "credentials", DefaultKeystoreFile)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
