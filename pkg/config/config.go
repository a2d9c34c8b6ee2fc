// Package config loads and saves the nodewire configuration file.
//
// The file is TOML and lives at $XDG_CONFIG_HOME/nodewire/config.toml
// (~/.config/nodewire/config.toml when XDG_CONFIG_HOME is unset). A missing
// file is not an error: every field has a default, and fields left out of the
// file keep theirs.
//
//	[editor]
//	mode = "edit"
//	curvature = 0.5
//	reroute = true
//
//	[zoom]
//	min = 0.5
//	max = 1.6
//	step = 0.1
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/nodewire/pkg/editor"
	"github.com/matzehuels/nodewire/pkg/errors"
	"github.com/matzehuels/nodewire/pkg/geometry"
	"github.com/matzehuels/nodewire/pkg/projection"
)

const appName = "nodewire"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the whole configuration file.
type Config struct {
	Editor EditorConfig `toml:"editor"`
	Zoom   ZoomConfig   `toml:"zoom"`
	Layout LayoutConfig `toml:"layout"`
	Server ServerConfig `toml:"server"`
	Cache  CacheConfig  `toml:"cache"`
}

// EditorConfig holds the interaction switches.
type EditorConfig struct {
	Mode                     string  `toml:"mode"`
	Curvature                float64 `toml:"curvature"`
	RerouteCurvatureStartEnd float64 `toml:"reroute_curvature_start_end"`
	RerouteCurvature         float64 `toml:"reroute_curvature"`
	Reroute                  bool    `toml:"reroute"`
	RerouteFixCurvature      bool    `toml:"reroute_fix_curvature"`
	ForceFirstInput          bool    `toml:"force_first_input"`
	DraggableInputs          bool    `toml:"draggable_inputs"`
}

// ZoomConfig bounds the zoom factor.
type ZoomConfig struct {
	Min  float64 `toml:"min"`
	Max  float64 `toml:"max"`
	Step float64 `toml:"step"`
}

// LayoutConfig sizes node boxes for hosts that use the built-in layout.
type LayoutConfig struct {
	NodeWidth      float64 `toml:"node_width"`
	HeaderHeight   float64 `toml:"header_height"`
	PortSpacing    float64 `toml:"port_spacing"`
	PortSize       float64 `toml:"port_size"`
	MinHeight      float64 `toml:"min_height"`
	ViewportWidth  float64 `toml:"viewport_width"`
	ViewportHeight float64 `toml:"viewport_height"`
}

// ServerConfig configures the HTTP host.
type ServerConfig struct {
	Addr            string `toml:"addr"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
	MaxBodyBytes    int64  `toml:"max_body_bytes"`
}

// CacheConfig selects and configures the render cache.
type CacheConfig struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	TTL           string `toml:"ttl"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// Default returns the built-in configuration.
func Default() Config {
	c := geometry.DefaultCurvatures()
	m := projection.DefaultMetrics()
	return Config{
		Editor: EditorConfig{
			Mode:                     editor.ModeEdit.String(),
			Curvature:                c.Direct,
			RerouteCurvatureStartEnd: c.StartEnd,
			RerouteCurvature:         c.Reroute,
			Reroute:                  true,
			DraggableInputs:          true,
		},
		Zoom: ZoomConfig{
			Min:  editor.DefaultZoomMin,
			Max:  editor.DefaultZoomMax,
			Step: editor.DefaultZoomStep,
		},
		Layout: LayoutConfig{
			NodeWidth:      m.NodeWidth,
			HeaderHeight:   m.HeaderHeight,
			PortSpacing:    m.PortSpacing,
			PortSize:       m.PortSize,
			MinHeight:      m.MinHeight,
			ViewportWidth:  m.ViewportWidth,
			ViewportHeight: m.ViewportHeight,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8750",
			ShutdownTimeout: "10s",
			MaxBodyBytes:    8 << 20,
		},
		Cache: CacheConfig{
			Backend: BackendFile,
			TTL:     "168h",
		},
	}
}

// Dir returns the configuration directory.
func Dir() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve home directory")
	}
	return filepath.Join(home, ".config", appName), nil
}

// Path returns the configuration file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the directory for the file cache: Cache.Dir when set,
// otherwise $XDG_CACHE_HOME/nodewire or ~/.cache/nodewire.
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if home := os.Getenv("XDG_CACHE_HOME"); home != "" {
		return filepath.Join(home, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve home directory")
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Load reads the file at path over the defaults. An empty path means
// [Path]. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := Path()
		if err != nil {
			return cfg, err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", path)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Default(), errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Default(), errors.New(errors.ErrCodeInvalidFormat, "%s: unknown key %s", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}

// Validate checks field values that the type system cannot.
func (c Config) Validate() error {
	if _, ok := editor.ParseMode(c.Editor.Mode); !ok {
		return errors.New(errors.ErrCodeInvalidInput, "editor.mode: unknown mode %q", c.Editor.Mode)
	}
	if c.Zoom.Min <= 0 || c.Zoom.Max < c.Zoom.Min || c.Zoom.Step <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "zoom: need 0 < min <= max and step > 0")
	}
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "cache.backend: unknown backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache.redis_addr is required for the redis backend")
	}
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	if _, err := c.ShutdownTimeout(); err != nil {
		return err
	}
	return nil
}

// EditorConfig converts the [editor] and [zoom] sections to an editor
// configuration.
func (c Config) EditorConfig() editor.Config {
	mode, _ := editor.ParseMode(c.Editor.Mode)
	ec := editor.DefaultConfig()
	ec.Mode = mode
	ec.Curvature = geometry.Curvature{
		Direct:   c.Editor.Curvature,
		StartEnd: c.Editor.RerouteCurvatureStartEnd,
		Reroute:  c.Editor.RerouteCurvature,
	}
	ec.Reroute = c.Editor.Reroute
	ec.RerouteFixCurvature = c.Editor.RerouteFixCurvature
	ec.ForceFirstInput = c.Editor.ForceFirstInput
	ec.DraggableInputs = c.Editor.DraggableInputs
	ec.ZoomMin, ec.ZoomMax, ec.ZoomStep = c.Zoom.Min, c.Zoom.Max, c.Zoom.Step
	return ec
}

// Metrics converts the [layout] section to layout metrics.
func (c Config) Metrics() projection.Metrics {
	m := projection.DefaultMetrics()
	l := c.Layout
	set := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	set(&m.NodeWidth, l.NodeWidth)
	set(&m.HeaderHeight, l.HeaderHeight)
	set(&m.PortSpacing, l.PortSpacing)
	set(&m.PortSize, l.PortSize)
	set(&m.MinHeight, l.MinHeight)
	set(&m.ViewportWidth, l.ViewportWidth)
	set(&m.ViewportHeight, l.ViewportHeight)
	return m
}

// CacheTTL parses cache.ttl. An empty value means no expiry.
func (c Config) CacheTTL() (time.Duration, error) {
	return parseDuration("cache.ttl", c.Cache.TTL)
}

// ShutdownTimeout parses server.shutdown_timeout.
func (c Config) ShutdownTimeout() (time.Duration, error) {
	return parseDuration("server.shutdown_timeout", c.Server.ShutdownTimeout)
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "%s: invalid duration %q", field, s)
	}
	return d, nil
}
