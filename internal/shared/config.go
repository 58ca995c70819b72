package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Gateway     GatewayConfig     `toml:"gateway"`
	Batch       BatchConfig       `toml:"batch"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains the remote service application credentials.
type CredentialsConfig struct {
	ClientID    string `toml:"client_id"`
	RedirectURI string `toml:"redirect_uri"`
	Scopes      string `toml:"scopes"`
}

// GatewayConfig tunes the request gateway's retry and pacing behavior.
type GatewayConfig struct {
	RetryBaseMS       int     `toml:"retry_base_ms"`        // initial 429 backoff, doubled on each retry
	ServerErrorWaitMS int     `toml:"server_error_wait_ms"` // fixed delay after a 5xx response
	MaxRetries        int     `toml:"max_retries"`          // 0 retries indefinitely
	RequestsPerSecond float64 `toml:"requests_per_second"`  // 0 disables pacing
}

// RetryBase returns the 429 backoff base as a duration.
func (g GatewayConfig) RetryBase() time.Duration {
	return time.Duration(g.RetryBaseMS) * time.Millisecond
}

// ServerErrorWait returns the 5xx delay as a duration.
func (g GatewayConfig) ServerErrorWait() time.Duration {
	return time.Duration(g.ServerErrorWaitMS) * time.Millisecond
}

// BatchConfig tunes the batching coordinators for each remote operation.
type BatchConfig struct {
	AlbumFetchSize   int `toml:"album_fetch_size"`    // max ids per albums request
	AlbumFetchWaitMS int `toml:"album_fetch_wait_ms"` // idle window before a partial albums batch flushes
	LibrarySize      int `toml:"library_size"`        // max ids per membership check / add request
	LibraryWaitMS    int `toml:"library_wait_ms"`     // idle window for library batches
}

// AlbumFetchWait returns the album fetch idle window as a duration.
func (b BatchConfig) AlbumFetchWait() time.Duration {
	return time.Duration(b.AlbumFetchWaitMS) * time.Millisecond
}

// LibraryWait returns the library batch idle window as a duration.
func (b BatchConfig) LibraryWait() time.Duration {
	return time.Duration(b.LibraryWaitMS) * time.Millisecond
}

// DatabaseConfig contains local snapshot database settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
