package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kittclouds/plankitt/pkg/geometry"
	"github.com/kittclouds/plankitt/pkg/graph"
	"github.com/kittclouds/plankitt/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, geometry.DefaultLimits(), cfg.Limits())
	assert.Equal(t, graph.DefaultSizing(), cfg.Sizing())
	assert.Equal(t, render.GridSize, cfg.Canvas.GridSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Len(t, cfg.Theme, len(graph.NodeTypes))
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Canvas, cfg.Canvas)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plankitt.toml")
	data := `
[canvas]
max_scale = 2.5
grid_size = 24

[nodes]
width = 240

[theme.goal]
fill = "#ffffff"
stroke = "#000000"

[store]
dsn = "/tmp/plans.db"

[log]
level = "debug"
format = "console"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.Canvas.MaxScale)
	assert.Equal(t, geometry.DefaultMinScale, cfg.Canvas.MinScale, "unset keys keep defaults")
	assert.Equal(t, 24.0, cfg.Canvas.GridSize)
	assert.Equal(t, 240.0, cfg.Nodes.Width)
	assert.Equal(t, graph.DefaultNodeHeight, cfg.Nodes.Height)
	assert.Equal(t, "/tmp/plans.db", cfg.Store.DSN)
	assert.Equal(t, "plans", cfg.Store.PlanDir)
	assert.Equal(t, "debug", cfg.Log.Level)

	assert.Equal(t, "#ffffff", cfg.Theme[graph.TypeGoal].Fill)
	assert.Equal(t, render.DefaultTheme()[graph.TypeTask], cfg.Theme[graph.TypeTask], "other types keep the default palette")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PLANKITT_MAX_SCALE", "4")
	t.Setenv("PLANKITT_DSN", ":memory:")
	t.Setenv("PLANKITT_LOG_LEVEL", "warn")
	t.Setenv("PLANKITT_ZOOM_STEP", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4.0, cfg.Canvas.MaxScale)
	assert.Equal(t, ":memory:", cfg.Store.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, geometry.DefaultStep, cfg.Canvas.ZoomStep, "unparsable values are ignored")
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string]string{
		"bad toml":        "[canvas\n",
		"inverted limits": "[canvas]\nmin_scale = 2.0\nmax_scale = 1.0\n",
		"zero step":       "[canvas]\nzoom_step = 0.0\n",
		"short extended":  "[nodes]\nheight = 120.0\n",
		"log level":       "[log]\nlevel = \"loud\"\n",
		"bad colour":      "[theme.task]\nfill = \"blue\"\nstroke = \"#000\"\n",
		"unknown type":    "[theme.epic]\nfill = \"#fff\"\nstroke = \"#000\"\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "plankitt.toml")
			require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestParseJSON(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default().Canvas, cfg.Canvas)

	cfg, err = Parse([]byte(`{"canvas":{"maxScale":5},"theme":{"note":{"fill":"#eeeeee","stroke":"#111111"}}}`))
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.Canvas.MaxScale)
	assert.Equal(t, geometry.DefaultMinScale, cfg.Canvas.MinScale)
	assert.Equal(t, "#eeeeee", cfg.Theme[graph.TypeNote].Fill)
	assert.Equal(t, render.DefaultTheme()[graph.TypeGoal], cfg.Theme[graph.TypeGoal])

	_, err = Parse([]byte(`{"log":{"format":"xml"}}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{`))
	assert.Error(t, err)
}
