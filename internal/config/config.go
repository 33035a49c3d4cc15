package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const appDir = "geofind"

// Config holds every tunable of geofind.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Search  SearchConfig  `yaml:"search"`
	Map     MapConfig     `yaml:"map"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	Proxy   string        `yaml:"proxy"`
}

type SearchConfig struct {
	Debounce   time.Duration `yaml:"debounce"`
	RacePolicy string        `yaml:"race_policy"`
}

type MapConfig struct {
	Style   string  `yaml:"style"`
	Lng     float64 `yaml:"lng"`
	Lat     float64 `yaml:"lat"`
	Zoom    float64 `yaml:"zoom"`
	FlyZoom float64 `yaml:"fly_zoom"`
}

type HistoryConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// Dir returns the per-user config directory ($XDG_CONFIG_HOME/geofind).
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, appDir)
}

func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func Default() *Config {
	dir := Dir()
	return &Config{
		API: APIConfig{
			BaseURL: "https://restcountries.com",
			Timeout: 10 * time.Second,
		},
		Search: SearchConfig{
			Debounce:   500 * time.Millisecond,
			RacePolicy: "latest-issued",
		},
		Map: MapConfig{
			Style:   "standard",
			Lng:     20,
			Lat:     47,
			Zoom:    3,
			FlyZoom: 5,
		},
		History: HistoryConfig{Path: filepath.Join(dir, "history.db")},
		Log: LogConfig{
			Path:  filepath.Join(dir, "geofind.log"),
			Level: "info",
		},
	}
}

// Load layers defaults, the YAML file at path (missing is fine), a .env file
// in the working directory and GEOFIND_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	setString(&c.API.BaseURL, "GEOFIND_API_URL")
	setString(&c.API.Proxy, "GEOFIND_PROXY")
	setString(&c.Search.RacePolicy, "GEOFIND_RACE_POLICY")
	setString(&c.Map.Style, "GEOFIND_MAP_STYLE")
	setString(&c.History.Path, "GEOFIND_HISTORY_DB")
	setString(&c.Log.Path, "GEOFIND_LOG_FILE")
	setString(&c.Log.Level, "GEOFIND_LOG_LEVEL")

	if err := setDuration(&c.API.Timeout, "GEOFIND_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&c.Search.Debounce, "GEOFIND_DEBOUNCE"); err != nil {
		return err
	}
	if err := setFloat(&c.Map.Zoom, "GEOFIND_MAP_ZOOM"); err != nil {
		return err
	}
	return setFloat(&c.Map.FlyZoom, "GEOFIND_FLY_ZOOM")
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base url is empty")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive, got %s", c.API.Timeout)
	}
	if c.Search.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", c.Search.Debounce)
	}
	if c.Map.Lat < -90 || c.Map.Lat > 90 {
		return fmt.Errorf("map lat %v out of range", c.Map.Lat)
	}
	if c.Map.Zoom < 0 || c.Map.FlyZoom < 0 {
		return fmt.Errorf("map zoom must not be negative")
	}
	return nil
}

// Save writes the config as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}
