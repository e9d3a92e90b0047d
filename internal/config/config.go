package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL      = "http://127.0.0.1:3000"
	DefaultLogLevel    = "info"
	DefaultBackend     = "sqlite"
	DefaultBlobBackend = "disk"
	DefaultDataDirName = ".sealnote"

	DefaultMaxAttachmentBytes int64 = 10 * 1024 * 1024
	DefaultMaxRequestBytes    int64 = 50 * 1024 * 1024
	DefaultWriteRPS                 = 10.0
	DefaultWriteBurst               = 20

	configFileName     = ".sealnote.toml"
	yamlConfigFileName = ".sealnote.yaml"
	dotenvFileName     = ".env"

	configDirEnvKey          = "SEALNOTE_CONFIG_DIR"
	trustProjectConfigEnvKey = "SEALNOTE_TRUST_PROJECT_CONFIG"
)

// StorageConfig selects where notes and attachment payloads live.
type StorageConfig struct {
	Backend     string `toml:"backend" yaml:"backend"`
	BlobBackend string `toml:"blob_backend" yaml:"blob_backend"`
	DataDir     string `toml:"data_dir" yaml:"data_dir"`
	DBPath      string `toml:"db_path" yaml:"db_path"`
	MySQLDSN    string `toml:"mysql_dsn" yaml:"mysql_dsn"`
}

// LimitsConfig bounds request and attachment sizes and the write rate.
type LimitsConfig struct {
	MaxAttachmentBytes int64   `toml:"max_attachment_bytes" yaml:"max_attachment_bytes"`
	MaxRequestBytes    int64   `toml:"max_request_bytes" yaml:"max_request_bytes"`
	WriteRPS           float64 `toml:"write_rps" yaml:"write_rps"`
	WriteBurst         int     `toml:"write_burst" yaml:"write_burst"`
}

// Config defines runtime configuration for sealnote.
type Config struct {
	APIURL                   string        `toml:"api_url" yaml:"api_url"`
	LogLevel                 string        `toml:"log_level" yaml:"log_level"`
	Storage                  StorageConfig `toml:"storage" yaml:"storage"`
	Limits                   LimitsConfig  `toml:"limits" yaml:"limits"`
	TrustedProjectConfigPath string        `toml:"-" yaml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		LogLevel: DefaultLogLevel,
		Storage: StorageConfig{
			Backend:     DefaultBackend,
			BlobBackend: DefaultBlobBackend,
		},
		Limits: LimitsConfig{
			MaxAttachmentBytes: DefaultMaxAttachmentBytes,
			MaxRequestBytes:    DefaultMaxRequestBytes,
			WriteRPS:           DefaultWriteRPS,
			WriteBurst:         DefaultWriteBurst,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return false, err
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	default:
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return false, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"log_level",
	"storage.backend",
	"storage.blob_backend",
	"storage.data_dir",
	"storage.db_path",
	"storage.mysql_dsn",
	"limits.max_attachment_bytes",
	"limits.max_request_bytes",
	"limits.write_rps",
	"limits.write_burst",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "log_level":
		return c.LogLevel, nil
	case "storage.backend":
		return c.Storage.Backend, nil
	case "storage.blob_backend":
		return c.Storage.BlobBackend, nil
	case "storage.data_dir":
		return c.Storage.DataDir, nil
	case "storage.db_path":
		return c.Storage.DBPath, nil
	case "storage.mysql_dsn":
		return c.Storage.MySQLDSN, nil
	case "limits.max_attachment_bytes":
		return strconv.FormatInt(c.Limits.MaxAttachmentBytes, 10), nil
	case "limits.max_request_bytes":
		return strconv.FormatInt(c.Limits.MaxRequestBytes, 10), nil
	case "limits.write_rps":
		return strconv.FormatFloat(c.Limits.WriteRPS, 'g', -1, 64), nil
	case "limits.write_burst":
		return strconv.Itoa(c.Limits.WriteBurst), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				for _, name := range []string{configFileName, yamlConfigFileName} {
					projectPath := filepath.Join(cwd, name)
					loaded, err := loadFileIfExists(projectPath, &cfg)
					if err != nil {
						return nil, err
					}
					if loaded {
						cfg.TrustedProjectConfigPath = projectPath
						break
					}
				}
			}
		}
	}

	if err := loadDotenv(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.normalize()

	return &cfg, nil
}

// loadDotenv populates unset environment variables from ./.env.
func loadDotenv() error {
	cwd, err := os.Getwd()
	if err != nil {
		return nil
	}
	path := filepath.Join(cwd, dotenvFileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if apiURL := os.Getenv("SEALNOTE_API_URL"); apiURL != "" {
		c.APIURL = apiURL
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		updated, err := withPort(c.APIURL, port)
		if err != nil {
			return err
		}
		c.APIURL = updated
	}
	if level := os.Getenv("SEALNOTE_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if backend := os.Getenv("SEALNOTE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
	if blobBackend := os.Getenv("SEALNOTE_BLOB_BACKEND"); blobBackend != "" {
		c.Storage.BlobBackend = blobBackend
	}
	if dataDir := os.Getenv("SEALNOTE_DATA_DIR"); dataDir != "" {
		c.Storage.DataDir = dataDir
	}
	if dbPath := os.Getenv("SEALNOTE_DB"); dbPath != "" {
		c.Storage.DBPath = dbPath
	}
	if dsn := os.Getenv("SEALNOTE_MYSQL_DSN"); dsn != "" {
		c.Storage.MySQLDSN = dsn
	} else if dsn := os.Getenv("DATABASE_DSN"); dsn != "" && c.Storage.MySQLDSN == "" {
		c.Storage.MySQLDSN = dsn
	}
	if raw := strings.TrimSpace(os.Getenv("SEALNOTE_MAX_ATTACHMENT_BYTES")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("SEALNOTE_MAX_ATTACHMENT_BYTES must be a positive integer")
		}
		c.Limits.MaxAttachmentBytes = parsed
	}
	return nil
}

// withPort replaces the port in apiURL.
func withPort(apiURL, port string) (string, error) {
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return "", fmt.Errorf("invalid PORT %q", port)
	}
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid api_url %q", apiURL)
	}
	u.Host = net.JoinHostPort(u.Hostname(), port)
	return u.String(), nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "limits.max_attachment_bytes", "limits.max_request_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "limits.write_burst":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return int64(parsed), nil
	case "limits.write_rps":
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", key)
		}
		return parsed, nil
	case "storage.backend":
		switch strings.ToLower(value) {
		case "sqlite", "mysql", "badger", "file":
			return strings.ToLower(value), nil
		}
		return nil, fmt.Errorf("%s must be one of sqlite, mysql, badger, file", key)
	case "storage.blob_backend":
		switch strings.ToLower(value) {
		case "disk", "inline":
			return strings.ToLower(value), nil
		}
		return nil, fmt.Errorf("%s must be disk or inline", key)
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if strings.TrimSpace(c.Storage.Backend) == "" {
		c.Storage.Backend = DefaultBackend
	}
	if strings.TrimSpace(c.Storage.BlobBackend) == "" {
		c.Storage.BlobBackend = DefaultBlobBackend
	}
	if c.Storage.DataDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			c.Storage.DataDir = filepath.Join(cwd, DefaultDataDirName)
		}
	}
	if c.Limits.MaxAttachmentBytes <= 0 {
		c.Limits.MaxAttachmentBytes = DefaultMaxAttachmentBytes
	}
	if c.Limits.MaxRequestBytes <= 0 {
		c.Limits.MaxRequestBytes = DefaultMaxRequestBytes
	}
	if c.Limits.WriteBurst <= 0 {
		c.Limits.WriteBurst = DefaultWriteBurst
	}
}

// BlobDir is where the disk blob backend keeps attachment payloads.
func (c *Config) BlobDir() string {
	return filepath.Join(c.Storage.DataDir, "blobs")
}
