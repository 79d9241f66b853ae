// Package config loads the cloudbake scene file. YAML and TOML are accepted,
// chosen by file extension; unset keys keep their defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/bakecache/cloudlayer"
)

// Config mirrors the scene file schema.
type Config struct {
	// Clouds is the base cloud-layer configuration every renderer starts from.
	Clouds cloudlayer.Settings `yaml:"clouds" toml:"clouds"`
	// Variants override Clouds per renderer, round robin. Renderers that land
	// on the same variant share precomputed data.
	Variants []Variant `yaml:"variants" toml:"variants"`

	Sun    Sun    `yaml:"sun" toml:"sun"`
	Frames Frames `yaml:"frames" toml:"frames"`
	Device Device `yaml:"device" toml:"device"`
	Store  Store  `yaml:"store" toml:"store"`
	Log    Log    `yaml:"log" toml:"log"`
}

// Variant holds optional overrides of the base cloud settings.
type Variant struct {
	Name        string                     `yaml:"name" toml:"name"`
	Resolution  *int                       `yaml:"resolution" toml:"resolution"`
	Layers      *cloudlayer.MapMode        `yaml:"layers" toml:"layers"`
	CloudMap    *string                    `yaml:"cloud_map" toml:"cloud_map"`
	CastShadows *bool                      `yaml:"cast_shadows" toml:"cast_shadows"`
	ScrollSpeed *float32                   `yaml:"scroll_speed" toml:"scroll_speed"`
	Distortion  *cloudlayer.DistortionMode `yaml:"distortion" toml:"distortion"`
}

// Apply returns base with the variant's overrides applied to it and layer A.
func (v Variant) Apply(base cloudlayer.Settings) cloudlayer.Settings {
	s := base
	if v.Resolution != nil {
		s.Resolution = *v.Resolution
	}
	if v.Layers != nil {
		s.Layers = *v.Layers
	}
	if v.CloudMap != nil {
		s.A.CloudMap = *v.CloudMap
	}
	if v.CastShadows != nil {
		s.A.CastShadows = *v.CastShadows
	}
	if v.ScrollSpeed != nil {
		s.A.ScrollSpeed = *v.ScrollSpeed
	}
	if v.Distortion != nil {
		s.A.DistortionMode = *v.Distortion
	}
	return s
}

type Sun struct {
	Elevation float64    `yaml:"elevation" toml:"elevation"` // degrees
	Azimuth   float64    `yaml:"azimuth" toml:"azimuth"`     // degrees
	Orbit     float64    `yaml:"orbit" toml:"orbit"`         // azimuth degrees per frame
	Color     [3]float32 `yaml:"color" toml:"color"`
	Intensity float32    `yaml:"intensity" toml:"intensity"`
	// Temperature in kelvin filters Color; 0 leaves it unfiltered.
	Temperature float32 `yaml:"temperature" toml:"temperature"`
	Disabled    bool    `yaml:"disabled" toml:"disabled"` // no directional light
}

// At returns the sun of the given frame, or nil when disabled.
func (s Sun) At(frame int) *cloudlayer.Sun {
	if s.Disabled {
		return nil
	}
	sun := cloudlayer.SunFromAngles(s.Elevation, s.Azimuth+s.Orbit*float64(frame))
	sun.Color, sun.Intensity, sun.Temperature = s.Color, s.Intensity, s.Temperature
	return &sun
}

type Frames struct {
	Count   int    `yaml:"count" toml:"count"`
	Step    string `yaml:"step" toml:"step"` // duration between frames
	Animate bool   `yaml:"animate" toml:"animate"`
}

type Device struct {
	BudgetMB     int64 `yaml:"budget_mb" toml:"budget_mb"` // 0 = unlimited
	Synchronized bool  `yaml:"synchronized" toml:"synchronized"`
}

// Store selects the bake store backend. An empty Backend disables persistence.
type Store struct {
	Backend   string `yaml:"backend" toml:"backend"` // "", ristretto, bigcache, kioshun, redis
	Namespace string `yaml:"namespace" toml:"namespace"`
	TTL       string `yaml:"ttl" toml:"ttl"`

	Ristretto Ristretto `yaml:"ristretto" toml:"ristretto"`
	Bigcache  Bigcache  `yaml:"bigcache" toml:"bigcache"`
	Kioshun   Kioshun   `yaml:"kioshun" toml:"kioshun"`
	Redis     Redis     `yaml:"redis" toml:"redis"`
}

type Ristretto struct {
	MaxCostMB int64 `yaml:"max_cost_mb" toml:"max_cost_mb"`
}

type Bigcache struct {
	LifeWindow string `yaml:"life_window" toml:"life_window"`
	HardMaxMB  int    `yaml:"hard_max_mb" toml:"hard_max_mb"`
}

type Kioshun struct {
	MaxItems int64 `yaml:"max_items" toml:"max_items"` // 0 = unlimited
}

type Redis struct {
	Addr     string `yaml:"addr" toml:"addr"`
	DB       int    `yaml:"db" toml:"db"`
	Password string `yaml:"password" toml:"password"`
}

type Log struct {
	Level   string `yaml:"level" toml:"level"`     // debug, info, warn, error
	Adapter string `yaml:"adapter" toml:"adapter"` // zap, logrus, slog
	Hooks   bool   `yaml:"hooks" toml:"hooks"`     // log cache events through sloghooks
}

func Default() Config {
	return Config{
		Clouds: cloudlayer.DefaultSettings(),
		Sun: Sun{
			Elevation: 35,
			Azimuth:   120,
			Color:     [3]float32{1, 0.96, 0.9},
			Intensity: 1,
		},
		Frames: Frames{Count: 120, Step: "16ms", Animate: true},
		Store: Store{
			Namespace: "cloudlayer",
			TTL:       "1h",
			Ristretto: Ristretto{MaxCostMB: 256},
			Bigcache:  Bigcache{LifeWindow: "10m", HardMaxMB: 256},
			Kioshun:   Kioshun{MaxItems: 64},
			Redis:     Redis{Addr: "localhost:6379"},
		},
		Log: Log{Level: "info", Adapter: "zap"},
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	case ".toml":
		format = "toml"
	default:
		return Config{}, fmt.Errorf("%s: unsupported config extension", path)
	}
	cfg, err := Parse(data, format)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the given format ("yaml" or "toml"). Unknown keys are errors.
func Parse(data []byte, format string) (Config, error) {
	cfg := Default()
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse yaml: %w", err)
		}
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("unknown format %q", format)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if err := c.Clouds.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("clouds: %w", err))
	}
	for i, v := range c.Variants {
		if err := v.Apply(c.Clouds).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("variants[%d] %q: %w", i, v.Name, err))
		}
	}
	if c.Frames.Count < 0 {
		errs = append(errs, fmt.Errorf("frames.count %d: must be >= 0", c.Frames.Count))
	}
	if _, err := c.FrameStep(); err != nil {
		errs = append(errs, err)
	}
	if c.Device.BudgetMB < 0 {
		errs = append(errs, fmt.Errorf("device.budget_mb %d: must be >= 0", c.Device.BudgetMB))
	}
	switch c.Store.Backend {
	case "", "ristretto", "bigcache", "kioshun", "redis":
	default:
		errs = append(errs, fmt.Errorf("store.backend %q: unknown", c.Store.Backend))
	}
	if _, err := c.StoreTTL(); err != nil {
		errs = append(errs, err)
	}
	if c.Store.Kioshun.MaxItems < 0 {
		errs = append(errs, fmt.Errorf("store.kioshun.max_items %d: must be >= 0", c.Store.Kioshun.MaxItems))
	}
	if c.Store.Backend == "bigcache" {
		if _, err := time.ParseDuration(c.Store.Bigcache.LifeWindow); err != nil {
			errs = append(errs, fmt.Errorf("store.bigcache.life_window: %w", err))
		}
	}
	switch c.Log.Adapter {
	case "zap", "logrus", "slog":
	default:
		errs = append(errs, fmt.Errorf("log.adapter %q: unknown", c.Log.Adapter))
	}
	return errors.Join(errs...)
}

func (c Config) FrameStep() (time.Duration, error) {
	d, err := time.ParseDuration(c.Frames.Step)
	if err != nil {
		return 0, fmt.Errorf("frames.step: %w", err)
	}
	return d, nil
}

func (c Config) StoreTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Store.TTL)
	if err != nil {
		return 0, fmt.Errorf("store.ttl: %w", err)
	}
	return d, nil
}

// SettingsFor returns the cloud settings of renderer i.
func (c Config) SettingsFor(i int) cloudlayer.Settings {
	if len(c.Variants) == 0 {
		return c.Clouds
	}
	return c.Variants[i%len(c.Variants)].Apply(c.Clouds)
}
