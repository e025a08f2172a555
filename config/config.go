// Package config loads natalglobe settings from defaults, an optional YAML
// file, NATALGLOBE_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// NATALGLOBE_RENDER_WIDTH.
const EnvPrefix = "NATALGLOBE"

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TextureConfig names the day and night equirectangular images. Empty paths
// fall back to solid colours.
type TextureConfig struct {
	Day   string `mapstructure:"day"`
	Night string `mapstructure:"night"`
}

type CatalogConfig struct {
	// Path to a YAML catalog; empty uses the embedded default.
	Path string `mapstructure:"path"`
}

type RenderConfig struct {
	Width       int `mapstructure:"width"`
	Height      int `mapstructure:"height"`
	Supersample int `mapstructure:"supersample"`
	Workers     int `mapstructure:"workers"`
	// Scale divides the window size to get the internal render resolution.
	Scale int `mapstructure:"scale"`
}

type CameraConfig struct {
	Altitude      float64       `mapstructure:"altitude"`
	FOV           float64       `mapstructure:"fov"`
	FlyToDuration time.Duration `mapstructure:"flyToDuration"`
}

type OverlayConfig struct {
	DashPeriod time.Duration `mapstructure:"dashPeriod"`
}

type TimeConfig struct {
	Initial float64 `mapstructure:"initial"`
}

// SessionConfig is the birth record that seeds a viewport session.
type SessionConfig struct {
	Lat  float64 `mapstructure:"lat"`
	Lng  float64 `mapstructure:"lng"`
	Name string  `mapstructure:"name"`
	// Date is RFC3339; empty means unknown.
	Date string `mapstructure:"date"`
}

// BirthDate parses Date. An empty date yields the zero time.
func (s SessionConfig) BirthDate() (time.Time, error) {
	if s.Date == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("session.date: %w", err)
	}
	return t, nil
}

type MetricsConfig struct {
	// Addr serves /metrics when non-empty, e.g. ":9090".
	Addr string `mapstructure:"addr"`
}

type Config struct {
	Log      LogConfig     `mapstructure:"log"`
	Textures TextureConfig `mapstructure:"textures"`
	Catalog  CatalogConfig `mapstructure:"catalog"`
	Render   RenderConfig  `mapstructure:"render"`
	Camera   CameraConfig  `mapstructure:"camera"`
	Overlay  OverlayConfig `mapstructure:"overlay"`
	Time     TimeConfig    `mapstructure:"time"`
	Session  SessionConfig `mapstructure:"session"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
}

// New returns a viper instance with every default set and environment
// overrides enabled. Callers may bind flags to it before calling Read.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("textures.day", "")
	v.SetDefault("textures.night", "")
	v.SetDefault("catalog.path", "")

	v.SetDefault("render.width", 960)
	v.SetDefault("render.height", 640)
	v.SetDefault("render.supersample", 1)
	v.SetDefault("render.workers", 0)
	v.SetDefault("render.scale", 2)

	v.SetDefault("camera.altitude", 2.5)
	v.SetDefault("camera.fov", 50.0)
	v.SetDefault("camera.flyToDuration", "1s")

	v.SetDefault("overlay.dashPeriod", "2s")
	v.SetDefault("time.initial", 12.0)

	v.SetDefault("session.lat", 0.0)
	v.SetDefault("session.lng", 0.0)
	v.SetDefault("session.name", "")
	v.SetDefault("session.date", "")

	v.SetDefault("metrics.addr", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Read loads the config file into v and decodes the result. An explicit path
// must exist; otherwise natalglobe.yaml is searched in the working directory
// and $HOME/.config/natalglobe, and its absence is not an error.
func Read(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("natalglobe")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "natalglobe"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load is Read on a fresh instance.
func Load(path string) (Config, error) {
	return Read(New(), path)
}

// Validate rejects settings no component can work with.
func (c Config) Validate() error {
	var errs []error
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		errs = append(errs, fmt.Errorf("render size %dx%d must be positive", c.Render.Width, c.Render.Height))
	}
	if c.Render.Supersample < 1 {
		errs = append(errs, fmt.Errorf("render.supersample %d must be at least 1", c.Render.Supersample))
	}
	if c.Render.Scale < 1 {
		errs = append(errs, fmt.Errorf("render.scale %d must be at least 1", c.Render.Scale))
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		errs = append(errs, fmt.Errorf("camera.fov %v must be in (0, 180)", c.Camera.FOV))
	}
	if c.Session.Lat < -90 || c.Session.Lat > 90 {
		errs = append(errs, fmt.Errorf("session.lat %v out of range", c.Session.Lat))
	}
	if c.Session.Lng < -180 || c.Session.Lng > 180 {
		errs = append(errs, fmt.Errorf("session.lng %v out of range", c.Session.Lng))
	}
	if _, err := c.Session.BirthDate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
