package cli

import (
	"fmt"

	"github.com/kittclouds/plankitt/pkg/graph"
	"github.com/spf13/cobra"
)

func statsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file>",
		Short: "Summarise a plan document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(args[0])
			if err != nil {
				return err
			}
			st := s.Stats()
			w := cmd.OutOrStdout()

			fmt.Fprintf(w, "  Nodes:        %d\n", st.Nodes)
			fmt.Fprintf(w, "  Connections:  %d\n", st.Connections)
			fmt.Fprintf(w, "  Completed:    %d (%.0f%%)\n", st.Completed, st.CompletionRatio*100)
			if st.Overdue > 0 {
				Warn.Fprintf(w, "  Overdue:      %d\n", st.Overdue)
			} else {
				fmt.Fprintf(w, "  Overdue:      0\n")
			}
			fmt.Fprintf(w, "  Unlinked:     %d\n", st.Orphans)

			var rows [][]string
			for _, t := range graph.NodeTypes {
				if n := st.ByType[t]; n > 0 {
					rows = append(rows, []string{string(t), fmt.Sprint(n)})
				}
			}
			if len(rows) > 0 {
				fmt.Fprintln(w)
				table(w, []string{"TYPE", "COUNT"}, rows)
			}
			return nil
		},
	}
}

func calendarCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "calendar <file>",
		Short: "List the dated nodes of a plan document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(args[0])
			if err != nil {
				return err
			}
			entries := s.Calendar()
			if len(entries) == 0 {
				Subtle.Fprintln(cmd.OutOrStdout(), "  No dated nodes.")
				return nil
			}

			var rows [][]string
			for _, e := range entries {
				rows = append(rows, []string{e.DueDate, e.Title, e.ID})
			}
			table(cmd.OutOrStdout(), []string{"DUE", "TITLE", "ID"}, rows)
			return nil
		},
	}
}
