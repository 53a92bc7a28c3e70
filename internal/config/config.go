package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigRelPath = ".musigent/config.yaml"
	defaultLedgerRelPath = ".musigent/memory_db.json"

	defaultMinOriginality = 0.35
)

type GenerationConfig struct {
	Provider   string        `yaml:"provider"`
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

type RecognitionConfig struct {
	BaseURL       string        `yaml:"base_url"`
	APIToken      string        `yaml:"api_token"`
	Timeout       time.Duration `yaml:"timeout"`
	BaselineScore int           `yaml:"baseline_score"`
}

type QualityConfig struct {
	// MinOriginality is a pointer so an explicit 0 (never reject for repetition)
	// survives defaulting.
	MinOriginality *float64      `yaml:"min_originality"`
	ChunkSize      int           `yaml:"chunk_size"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	MaxAudioBytes  int64         `yaml:"max_audio_bytes"`
}

// Threshold returns the configured originality threshold, or the default when unset.
func (q QualityConfig) Threshold() float64 {
	if q.MinOriginality == nil {
		return defaultMinOriginality
	}
	return *q.MinOriginality
}

type LedgerConfig struct {
	Path string `yaml:"path"`
}

type ThrottleConfig struct {
	JinglePerMinute int           `yaml:"jingle_per_minute"`
	JinglePerDay    int           `yaml:"jingle_per_day"`
	Window          time.Duration `yaml:"window"`
}

type TasteConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type TimeInfoConfig struct {
	DetectTimezone bool          `yaml:"detect_timezone"`
	LookupURL      string        `yaml:"lookup_url"`
	Timeout        time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	RateLimit   string   `yaml:"rate_limit"`
	CORSOrigins []string `yaml:"cors_origins"`
	Debug       bool     `yaml:"debug"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

type Config struct {
	Generation  GenerationConfig  `yaml:"generation"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Quality     QualityConfig     `yaml:"quality"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Throttle    ThrottleConfig    `yaml:"throttle"`
	Taste       TasteConfig       `yaml:"taste"`
	TimeInfo    TimeInfoConfig    `yaml:"timeinfo"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

// DefaultPath returns ~/.musigent/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, defaultConfigRelPath), nil
}

// Load loads YAML config, then applies env overrides and defaults.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.SetDefaults()
	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.Generation.Provider == "" {
		c.Generation.Provider = "mock"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "chirp-v3-5"
	}
	if c.Generation.Timeout == 0 {
		c.Generation.Timeout = 60 * time.Second
	}
	if c.Generation.MaxRetries == 0 {
		c.Generation.MaxRetries = 3
	}
	if c.Recognition.BaseURL == "" {
		c.Recognition.BaseURL = "https://api.audd.io/"
	}
	if c.Recognition.Timeout == 0 {
		c.Recognition.Timeout = 30 * time.Second
	}
	if c.Recognition.BaselineScore == 0 {
		c.Recognition.BaselineScore = 70
	}
	if c.Quality.MinOriginality == nil {
		v := defaultMinOriginality
		c.Quality.MinOriginality = &v
	}
	if c.Quality.ChunkSize == 0 {
		c.Quality.ChunkSize = 2048
	}
	if c.Quality.FetchTimeout == 0 {
		c.Quality.FetchTimeout = 30 * time.Second
	}
	if c.Quality.MaxAudioBytes == 0 {
		c.Quality.MaxAudioBytes = 50 << 20
	}
	if c.Ledger.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Ledger.Path = filepath.Join(home, defaultLedgerRelPath)
		} else {
			c.Ledger.Path = "memory_db.json"
		}
	}
	if c.Throttle.JinglePerMinute == 0 {
		c.Throttle.JinglePerMinute = 5
	}
	if c.Throttle.JinglePerDay == 0 {
		c.Throttle.JinglePerDay = 5
	}
	if c.Throttle.Window == 0 {
		c.Throttle.Window = time.Minute
	}
	if c.Taste.TTL == 0 {
		c.Taste.TTL = 10 * time.Minute
	}
	if c.TimeInfo.LookupURL == "" {
		c.TimeInfo.LookupURL = "https://ipapi.co/json/"
	}
	if c.TimeInfo.Timeout == 0 {
		c.TimeInfo.Timeout = 5 * time.Second
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.RateLimit == "" {
		c.Server.RateLimit = "60-M"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSize == 0 {
		c.Log.MaxSize = 100
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 7
	}
	if c.Log.MaxAge == 0 {
		c.Log.MaxAge = 30
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Ledger.Path) == "" {
		return errors.New("ledger.path cannot be empty")
	}
	if v := c.Quality.Threshold(); v < 0 || v > 1 {
		return fmt.Errorf("quality.min_originality must be within [0,1], got %v", v)
	}
	if c.Quality.ChunkSize <= 0 {
		return errors.New("quality.chunk_size must be positive")
	}
	if c.Throttle.JinglePerMinute <= 0 || c.Throttle.JinglePerDay <= 0 {
		return errors.New("throttle limits must be positive")
	}
	if c.Throttle.Window <= 0 {
		return errors.New("throttle.window must be positive")
	}
	switch c.Generation.Provider {
	case "mock":
	case "http":
		if strings.TrimSpace(c.Generation.BaseURL) == "" {
			return errors.New("generation.base_url cannot be empty for the http provider")
		}
	default:
		return fmt.Errorf("unknown generation.provider %q", c.Generation.Provider)
	}
	if err := ensureWritableDir(filepath.Dir(c.Ledger.Path)); err != nil {
		return fmt.Errorf("ledger dir not writable: %w", err)
	}
	return nil
}

func ensureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func applyEnvOverrides(c *Config) {
	setString(&c.Generation.Provider, "MUSIGENT_GENERATION_PROVIDER")
	setString(&c.Generation.BaseURL, "MUSIGENT_GENERATION_BASE_URL")
	setString(&c.Generation.APIKey, "MUSIGENT_GENERATION_API_KEY")
	setString(&c.Generation.Model, "MUSIGENT_GENERATION_MODEL")
	setDuration(&c.Generation.Timeout, "MUSIGENT_GENERATION_TIMEOUT")
	setString(&c.Recognition.BaseURL, "MUSIGENT_RECOGNITION_BASE_URL")
	setString(&c.Recognition.APIToken, "MUSIGENT_RECOGNITION_API_TOKEN")
	setDuration(&c.Recognition.Timeout, "MUSIGENT_RECOGNITION_TIMEOUT")
	setFloatPtr(&c.Quality.MinOriginality, "MUSIGENT_QUALITY_MIN_ORIGINALITY")
	setString(&c.Ledger.Path, "MUSIGENT_LEDGER_PATH")
	setInt(&c.Throttle.JinglePerMinute, "MUSIGENT_THROTTLE_JINGLE_PER_MINUTE")
	setInt(&c.Throttle.JinglePerDay, "MUSIGENT_THROTTLE_JINGLE_PER_DAY")
	setString(&c.Server.Host, "MUSIGENT_SERVER_HOST")
	setInt(&c.Server.Port, "MUSIGENT_SERVER_PORT")
	setString(&c.Log.Level, "MUSIGENT_LOG_LEVEL")
	setString(&c.Log.File, "MUSIGENT_LOG_FILE")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloatPtr(dst **float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = &n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
