package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/wafbench/wbt/pkg/jsonutil"
	"github.com/wafbench/wbt/pkg/payloads"
	"github.com/wafbench/wbt/pkg/report"
)

func newVectorsCmd(g *globalOptions) *cobra.Command {
	var (
		payloadDir string
		category   string
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "vectors",
		Short: "List the attack vectors in the payload catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(g, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			catalog, err := a.loadCatalog(payloadDir)
			if err != nil {
				return err
			}
			vectors := filterCategory(catalog.AllVectors(), category)

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := jsonutil.NewEncoder(out)
				enc.SetIndent("  ")
				return enc.Encode(vectors)
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "CATEGORY", "METHOD", "LOCATION", "PAYLOAD")
			for _, v := range vectors {
				t.Row(v.ID, v.Category, v.Method, string(v.Location), report.Truncate(v.Payload, 48))
			}
			fmt.Fprintln(out, t.Render())
			fmt.Fprintf(out, "%d vectors in %d categories\n", len(vectors), countCategories(vectors))
			for _, s := range catalog.Skipped() {
				fmt.Fprintf(out, "skipped %s: %s\n", s.Path, s.Reason)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&payloadDir, "payloads", "p", "", "payload directory (default from settings)")
	f.StringVar(&category, "category", "", "only list this category (case-insensitive)")
	f.BoolVar(&jsonOut, "json", false, "print JSON")
	return cmd
}

func filterCategory(vs []payloads.AttackVector, category string) []payloads.AttackVector {
	if category == "" {
		return vs
	}
	out := make([]payloads.AttackVector, 0, len(vs))
	for _, v := range vs {
		if strings.EqualFold(v.Category, category) {
			out = append(out, v)
		}
	}
	return out
}

func countCategories(vs []payloads.AttackVector) int {
	seen := map[string]struct{}{}
	for _, v := range vs {
		seen[v.Category] = struct{}{}
	}
	return len(seen)
}
