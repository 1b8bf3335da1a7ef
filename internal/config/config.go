// Package config holds plankitt settings: canvas limits, node sizes, the
// card palette, storage locations and logging.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/kittclouds/plankitt/pkg/geometry"
	"github.com/kittclouds/plankitt/pkg/graph"
	"github.com/kittclouds/plankitt/pkg/render"
)

// Config holds plankitt configuration.
type Config struct {
	Canvas CanvasConfig `toml:"canvas" json:"canvas"`
	Nodes  NodeConfig   `toml:"nodes" json:"nodes"`
	Theme  render.Theme `toml:"theme" json:"theme"`
	Store  StoreConfig  `toml:"store" json:"store"`
	Log    LogConfig    `toml:"log" json:"log"`
}

// CanvasConfig controls zoom and the background grid.
type CanvasConfig struct {
	MinScale float64 `toml:"min_scale" json:"minScale" validate:"gt=0"`
	MaxScale float64 `toml:"max_scale" json:"maxScale" validate:"gtfield=MinScale"`
	ZoomStep float64 `toml:"zoom_step" json:"zoomStep" validate:"gt=0"`
	GridSize float64 `toml:"grid_size" json:"gridSize" validate:"gt=0"`
}

// NodeConfig sets the default card size of new nodes.
type NodeConfig struct {
	Width          float64 `toml:"width" json:"width" validate:"gt=0"`
	Height         float64 `toml:"height" json:"height" validate:"gt=0"`
	ExtendedHeight float64 `toml:"extended_height" json:"extendedHeight" validate:"gtefield=Height"`
}

// StoreConfig locates persisted data.
type StoreConfig struct {
	DSN        string `toml:"dsn" json:"dsn" validate:"required"`
	PlanDir    string `toml:"plan_dir" json:"planDir" validate:"required"`
	VectorPath string `toml:"vector_path" json:"vectorPath" validate:"required"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `toml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" json:"format" validate:"oneof=json console"`
}

var validate = validator.New()

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Canvas: CanvasConfig{
			MinScale: geometry.DefaultMinScale,
			MaxScale: geometry.DefaultMaxScale,
			ZoomStep: geometry.DefaultStep,
			GridSize: render.GridSize,
		},
		Nodes: NodeConfig{
			Width:          graph.DefaultNodeWidth,
			Height:         graph.DefaultNodeHeight,
			ExtendedHeight: graph.DefaultNodeHeightExtended,
		},
		Theme: render.DefaultTheme(),
		Store: StoreConfig{
			DSN:        "plankitt.db",
			PlanDir:    "plans",
			VectorPath: "vectors.bin",
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration from defaults, the TOML file at path (a
// missing file is not an error) and PLANKITT_* environment variables, then
// validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := cfg.decodeTOML(data); err != nil {
				return nil, err
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse builds the configuration from defaults overlaid with a JSON
// document, as sent by the browser shell. Empty input yields the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(data) > 0 {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeTOML(data []byte) error {
	// Theme entries in the file extend the default palette.
	theme := c.Theme
	c.Theme = nil
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	for t, s := range c.Theme {
		theme[t] = s
	}
	c.Theme = theme
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for t, s := range c.Theme {
		if !t.Valid() {
			return fmt.Errorf("invalid config: theme has unknown node type %q", t)
		}
		if err := validate.Struct(s); err != nil {
			return fmt.Errorf("invalid config: theme %s: %w", t, err)
		}
	}
	return nil
}

// Limits returns the viewport zoom limits.
func (c *Config) Limits() geometry.Limits {
	return geometry.Limits{MinScale: c.Canvas.MinScale, MaxScale: c.Canvas.MaxScale, Step: c.Canvas.ZoomStep}
}

// Sizing returns the default node box.
func (c *Config) Sizing() graph.Sizing {
	return graph.Sizing{Width: c.Nodes.Width, Height: c.Nodes.Height, ExtendedHeight: c.Nodes.ExtendedHeight}
}

// applyEnv overlays PLANKITT_* environment variables.
func (c *Config) applyEnv() {
	c.Canvas.MinScale = getEnvFloat("PLANKITT_MIN_SCALE", c.Canvas.MinScale)
	c.Canvas.MaxScale = getEnvFloat("PLANKITT_MAX_SCALE", c.Canvas.MaxScale)
	c.Canvas.ZoomStep = getEnvFloat("PLANKITT_ZOOM_STEP", c.Canvas.ZoomStep)
	c.Canvas.GridSize = getEnvFloat("PLANKITT_GRID_SIZE", c.Canvas.GridSize)
	c.Store.DSN = getEnv("PLANKITT_DSN", c.Store.DSN)
	c.Store.PlanDir = getEnv("PLANKITT_PLAN_DIR", c.Store.PlanDir)
	c.Store.VectorPath = getEnv("PLANKITT_VECTOR_PATH", c.Store.VectorPath)
	c.Log.Level = getEnv("PLANKITT_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("PLANKITT_LOG_FORMAT", c.Log.Format)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
