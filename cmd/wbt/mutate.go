package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wafbench/wbt/pkg/jsonutil"
	"github.com/wafbench/wbt/pkg/mutation"
)

func newMutateCmd(_ *globalOptions) *cobra.Command {
	var (
		level   int
		seed    uint64
		id      string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "mutate <payload>",
		Short: "Print the evasion variants of a payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []mutation.Option{}
			if cmd.Flags().Changed("seed") {
				opts = append(opts, mutation.WithSeed(seed))
			}
			muts := mutation.NewGenerator(opts...).ForVector(id, args[0], mutation.ParseLevel(level))

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := jsonutil.NewEncoder(out)
				enc.SetIndent("  ")
				return enc.Encode(muts)
			}
			for _, m := range muts {
				fmt.Fprintf(out, "%d\t%q\n", m.Index, m.Payload)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVarP(&level, "level", "l", 1, "evasion level (0-2, clamped)")
	f.Uint64Var(&seed, "seed", 0, "seed for case mixing")
	f.StringVar(&id, "id", "cli", "vector id to tag variants with")
	f.BoolVar(&jsonOut, "json", false, "print JSON")
	return cmd
}
