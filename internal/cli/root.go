// Package cli implements the plankitt developer command line: validating and
// rendering plan documents, instantiating templates, reporting and managing
// stored plan versions.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/kittclouds/plankitt/internal/config"
	"github.com/kittclouds/plankitt/internal/logging"
	"github.com/kittclouds/plankitt/pkg/canvas"
	"github.com/kittclouds/plankitt/pkg/graph"
	"github.com/kittclouds/plankitt/pkg/loader"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is the state shared by every command of one invocation.
type app struct {
	configPath string
	today      string

	cfg *config.Config
	log *zap.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "plankitt",
		Short:         "plankitt: career plan canvas tools",
		Long:          Brand.Sprint("plankitt") + " validates, renders and stores career plans\n" + Subtle.Sprint("Documents are the JSON or YAML payloads the canvas loads and exports"),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logging.Must(cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}
	root.SetVersionTemplate("plankitt {{ .Version }}\n")
	root.PersistentFlags().StringVar(&a.configPath, "config", "plankitt.toml", "Path to the TOML config file")
	root.PersistentFlags().StringVar(&a.today, "today", "", "Reference date for due dates (YYYY-MM-DD, default today)")

	root.AddCommand(
		validateCmd(a),
		renderCmd(a),
		templateCmd(a),
		statsCmd(a),
		calendarCmd(a),
		plansCmd(a),
	)
	return root
}

// Execute runs the command tree, printing any error.
func Execute(version string) error {
	root := NewRootCmd(version)
	if err := root.Execute(); err != nil {
		Bad.Fprintf(os.Stderr, "plankitt: %v\n", err)
		return err
	}
	return nil
}

// now resolves --today.
func (a *app) now() (time.Time, error) {
	if a.today == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(graph.DateLayout, a.today)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --today %q: %w", a.today, err)
	}
	return t, nil
}

// session creates a canvas session configured from the loaded config.
func (a *app) session() (*canvas.Session, error) {
	now, err := a.now()
	if err != nil {
		return nil, err
	}
	return canvas.New(
		canvas.WithLogger(a.log),
		canvas.WithLimits(a.cfg.Limits()),
		canvas.WithSizing(a.cfg.Sizing()),
		canvas.WithTheme(a.cfg.Theme),
		canvas.WithGridSize(a.cfg.Canvas.GridSize),
		canvas.WithClock(func() time.Time { return now }),
	), nil
}

// readPayload reads and decodes a document; the format follows the extension.
func readPayload(path string) (loader.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return loader.Payload{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return loader.Decode(data, loader.FormatFromPath(path))
}

// open loads a document into a fresh session.
func (a *app) open(path string) (*canvas.Session, error) {
	p, err := readPayload(path)
	if err != nil {
		return nil, err
	}
	s, err := a.session()
	if err != nil {
		return nil, err
	}
	if err := s.LoadData(p); err != nil {
		return nil, err
	}
	return s, nil
}
