package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/kittclouds/plankitt/pkg/filter"
	"github.com/kittclouds/plankitt/pkg/graph"
	"github.com/kittclouds/plankitt/pkg/loader"
	"github.com/spf13/cobra"
)

func validateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a plan document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			p, err := readPayload(args[0])
			if err != nil {
				return err
			}
			if err := loader.Validate(p); err != nil {
				fmt.Fprintf(w, "  %s %s\n", statusIcon(false), err)
				return err
			}
			fmt.Fprintf(w, "  %s %s: %d nodes, %d connections\n", statusIcon(true), args[0], len(p.Nodes), len(p.Connections))
			return nil
		},
	}
}

func renderCmd(a *app) *cobra.Command {
	var (
		out    string
		width  float64
		height float64
		crit   filter.Criteria
		types  []string
	)

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a plan document to SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(args[0])
			if err != nil {
				return err
			}
			for _, t := range types {
				nt, err := graph.ParseNodeType(t)
				if err != nil {
					return err
				}
				crit.Types = append(crit.Types, nt)
			}
			if err := s.SetFilter(crit); err != nil {
				return err
			}
			if width > 0 && height > 0 {
				s.SetViewportSize(width, height)
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if err := s.RenderSVG(w); err != nil {
				return err
			}
			if out != "" && out != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s wrote %s\n", statusIcon(true), out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().Float64Var(&width, "width", 0, "Viewport width in pixels (default: whole canvas)")
	cmd.Flags().Float64Var(&height, "height", 0, "Viewport height in pixels")
	cmd.Flags().StringVar(&crit.Text, "text", "", "Only show nodes matching this text")
	cmd.Flags().StringSliceVar(&types, "type", nil, "Only show nodes of these types")
	cmd.Flags().StringVar(&crit.DueFrom, "due-from", "", "Only show nodes due on or after this date")
	cmd.Flags().StringVar(&crit.DueTo, "due-to", "", "Only show nodes due on or before this date")
	return cmd
}

func templateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "List and instantiate built-in templates",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			for _, t := range loader.Builtin() {
				rows = append(rows, []string{t.Key, t.Name, fmt.Sprint(len(t.Nodes)), t.Description})
			}
			table(cmd.OutOrStdout(), []string{"KEY", "NAME", "NODES", "DESCRIPTION"}, rows)
			return nil
		},
	}

	var out, format string
	apply := &cobra.Command{
		Use:   "apply <key>",
		Short: "Write a fresh instance of a template as a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := loader.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown template %q", args[0])
			}
			today, err := a.now()
			if err != nil {
				return err
			}
			p, err := loader.Instantiate(t, today)
			if err != nil {
				return err
			}

			f := loader.Format(format)
			if format == "" {
				f = loader.FormatFromPath(out)
			}
			data, err := loader.Encode(p, f)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %s wrote %s (%d nodes)\n", statusIcon(true), out, len(p.Nodes))
			return nil
		},
	}
	apply.Flags().StringVarP(&out, "output", "o", "", "Output file (default stdout)")
	apply.Flags().StringVar(&format, "format", "", "json or yaml (default from the output extension)")

	cmd.AddCommand(list, apply)
	return cmd
}
