package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	osfs "github.com/hack-pad/hackpadfs/os"
	"github.com/kittclouds/plankitt/internal/store"
	"github.com/kittclouds/plankitt/pkg/loader"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func plansCmd(a *app) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Manage stored plans and their versions",
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "SQLite database (default from config)")

	// withStore opens the plan database around fn.
	withStore := func(fn func(s store.Storer) error) error {
		path := dsn
		if path == "" {
			path = a.cfg.Store.DSN
		}
		s, err := store.NewSQLiteStoreWithDSN(path)
		if err != nil {
			return err
		}
		defer s.Close()
		a.log.Debug("plan store opened", zap.String("dsn", path))
		return fn(s)
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s store.Storer) error {
				plans, err := s.ListPlans()
				if err != nil {
					return err
				}
				if len(plans) == 0 {
					Subtle.Fprintln(cmd.OutOrStdout(), "  No plans stored.")
					return nil
				}
				var rows [][]string
				for _, p := range plans {
					rows = append(rows, []string{p.ID, p.Title, strconv.Itoa(p.Version), strconv.Itoa(len(p.Nodes)), stamp(p.UpdatedAt)})
				}
				table(cmd.OutOrStdout(), []string{"ID", "TITLE", "VERSION", "NODES", "UPDATED"}, rows)
				return nil
			})
		},
	}

	var id, title, description, reason string
	save := &cobra.Command{
		Use:   "save <file>",
		Short: "Store a document as a new plan version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(args[0])
			if err != nil {
				return err
			}
			if id == "" {
				base := filepath.Base(args[0])
				id = base[:len(base)-len(filepath.Ext(base))]
			}
			if title == "" {
				title = id
			}
			p, err := s.Plan(id, title, description)
			if err != nil {
				return err
			}
			rec := &store.PlanRecord{Plan: p}
			rec.UpdatedAt = time.Now().UnixMilli()

			return withStore(func(st store.Storer) error {
				if err := st.UpdatePlan(rec, reason); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s saved %s v%d\n", statusIcon(true), rec.ID, rec.Version)
				return nil
			})
		},
	}
	save.Flags().StringVar(&id, "id", "", "Plan id (default: file name)")
	save.Flags().StringVar(&title, "title", "", "Plan title (default: id)")
	save.Flags().StringVar(&description, "description", "", "Plan description")
	save.Flags().StringVar(&reason, "reason", "cli save", "Change reason recorded with the version")

	history := &cobra.Command{
		Use:   "history <id>",
		Short: "List the versions of a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s store.Storer) error {
				versions, err := s.ListPlanVersions(args[0])
				if err != nil {
					return err
				}
				if len(versions) == 0 {
					return fmt.Errorf("plan %s not found", args[0])
				}
				var rows [][]string
				for _, v := range versions {
					cur := ""
					if v.IsCurrent {
						cur = "*"
					}
					rows = append(rows, []string{strconv.Itoa(v.Version) + cur, stamp(v.ValidFrom), v.ChangeReason, strconv.Itoa(len(v.Nodes))})
				}
				table(cmd.OutOrStdout(), []string{"VERSION", "FROM", "REASON", "NODES"}, rows)
				return nil
			})
		},
	}

	restore := &cobra.Command{
		Use:   "restore <id> <version>",
		Short: "Make an earlier version current again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[1])
			}
			return withStore(func(s store.Storer) error {
				if err := s.RestorePlanVersion(args[0], version); err != nil {
					return err
				}
				cur, err := s.GetPlan(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s restored %s v%d as v%d\n", statusIcon(true), args[0], version, cur.Version)
				return nil
			})
		},
	}

	var dir, format string
	var version int
	export := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a stored plan to a document file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s store.Storer) error {
				var rec *store.PlanRecord
				var err error
				if version > 0 {
					rec, err = s.GetPlanVersion(args[0], version)
				} else {
					rec, err = s.GetPlan(args[0])
				}
				if err != nil {
					return err
				}
				if rec == nil {
					return fmt.Errorf("plan %s not found", args[0])
				}

				files, err := planFilesAt(dir)
				if err != nil {
					return err
				}
				name, err := files.Export(rec, loader.Format(format))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s wrote %s\n", statusIcon(true), filepath.Join(dir, filepath.Base(name)))
				return nil
			})
		},
	}
	export.Flags().StringVar(&dir, "dir", ".", "Directory to write to")
	export.Flags().StringVar(&format, "format", "json", "json or yaml")
	export.Flags().IntVar(&version, "version", 0, "Version to export (default current)")

	var importID string
	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Store a plan file written by export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := planFilesAt(filepath.Dir(args[0]))
			if err != nil {
				return err
			}
			rec, err := files.Import(filepath.Base(args[0]))
			if err != nil {
				return err
			}
			if importID != "" {
				rec.ID = importID
			}
			return withStore(func(s store.Storer) error {
				if err := s.UpdatePlan(rec, "import"); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s imported %s v%d\n", statusIcon(true), rec.ID, rec.Version)
				return nil
			})
		},
	}
	importCmd.Flags().StringVar(&importID, "id", "", "Store under this id instead of the file's")

	cmd.AddCommand(list, save, history, restore, export, importCmd)
	return cmd
}

// planFilesAt opens dir on the host filesystem as a plan file directory.
func planFilesAt(dir string) (*store.PlanFiles, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	fs := osfs.NewFS()
	root, err := fs.FromOSPath(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dir, err)
	}
	sub, err := fs.Sub(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dir, err)
	}
	return store.NewPlanFiles(sub, ".")
}

func stamp(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}
