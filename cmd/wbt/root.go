package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wafbench/wbt/pkg/defaults"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	ConfigDir    string
	EnvFiles     []string
	LogLevel     string
	LogJSON      bool
	LogFile      string
	NoColor      bool
	Silent       bool
	OTLPEndpoint string
}

func newRootCmd() *cobra.Command {
	var g globalOptions

	cmd := &cobra.Command{
		Use:           defaults.ToolName,
		Short:         "WAF Benchmark Toolkit",
		Long:          "Sends attack vectors and legitimate traffic to a target, correlates the protection system's verdicts and scores its effectiveness.",
		Version:       defaults.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.ConfigDir, "config-dir", defaults.ConfigDir, "directory holding target.yaml and waf.yaml")
	pf.StringSliceVar(&g.EnvFiles, "env-file", nil, "dotenv files to load before reading WBT_* variables")
	pf.StringVar(&g.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&g.LogJSON, "log-json", false, "emit JSON logs on stderr")
	pf.StringVar(&g.LogFile, "log-file", "", "also append JSON logs to this file")
	pf.BoolVar(&g.NoColor, "no-color", false, "disable colored console output")
	pf.BoolVarP(&g.Silent, "silent", "s", false, "suppress console summaries")
	pf.StringVar(&g.OTLPEndpoint, "otlp-endpoint", "", "OTLP gRPC endpoint for run traces")

	cmd.AddCommand(newRunCmd(&g))
	cmd.AddCommand(newServeCmd(&g))
	cmd.AddCommand(newMutateCmd(&g))
	cmd.AddCommand(newVectorsCmd(&g))
	return cmd
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		cancel()
		os.Exit(1)
	}
}
