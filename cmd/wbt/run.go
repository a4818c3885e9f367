package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wafbench/wbt/pkg/analyzer"
	"github.com/wafbench/wbt/pkg/config"
	"github.com/wafbench/wbt/pkg/jsonutil"
	"github.com/wafbench/wbt/pkg/mutation"
	"github.com/wafbench/wbt/pkg/orchestrator"
	"github.com/wafbench/wbt/pkg/report"
)

type runOptions struct {
	Mode         string
	PayloadDir   string
	ReportDir    string
	NoReports    bool
	JSON         bool
	ErrorPolicy  string
	Seed         uint64
	TargetURL    string
	Concurrency  int
	EvasionLevel int
	Timeout      int
	RateLimit    float64
}

func newRunCmd(g *globalOptions) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one benchmark and write reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(g, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			mode, err := orchestrator.ParseMode(opts.Mode)
			if err != nil {
				return err
			}
			if err := applyTargetFlags(cmd, &opts, &a.settings.Target); err != nil {
				return err
			}

			catalog, err := a.loadCatalog(opts.PayloadDir)
			if err != nil {
				return err
			}
			tp, err := a.tracing(cmd.Context())
			if err != nil {
				return err
			}

			orchOpts := []orchestrator.Option{
				orchestrator.WithLogger(a.logger),
				orchestrator.WithTracer(tp.Tracer()),
				orchestrator.WithErrorPolicy(analyzer.ParseErrorPolicy(opts.ErrorPolicy)),
			}
			if cmd.Flags().Changed("seed") {
				orchOpts = append(orchOpts, orchestrator.WithGenerator(mutation.NewGenerator(mutation.WithSeed(opts.Seed))))
			}
			if !opts.NoReports {
				dir := opts.ReportDir
				if dir == "" {
					dir = a.settings.ReportDir
				}
				orchOpts = append(orchOpts, orchestrator.WithReports(report.NewGenerator(dir, report.WithLogger(a.logger))))
			}

			// Flag overrides are not written back to the config files.
			store := config.NewStore(&config.Settings{Target: a.settings.Target, Protection: a.settings.Protection})
			res := orchestrator.New(store, catalog, orchOpts...).Start(cmd.Context(), mode)

			if opts.JSON {
				enc := jsonutil.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				a.console.Banner()
				a.console.Summary(res.Results, res.Reports)
			}

			if res.Status != orchestrator.StatusSuccess {
				if res.Err != nil {
					return res.Err
				}
				return errors.New(res.Message)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Mode, "mode", "m", string(orchestrator.ModeConcurrent), "execution mode: sequential or concurrent")
	f.StringVarP(&opts.PayloadDir, "payloads", "p", "", "payload directory (default from settings)")
	f.StringVar(&opts.ReportDir, "report-dir", "", "report directory (default from settings)")
	f.BoolVar(&opts.NoReports, "no-reports", false, "skip JSON/PDF/Markdown reports")
	f.BoolVar(&opts.JSON, "json", false, "print the run result as JSON")
	f.StringVar(&opts.ErrorPolicy, "error-policy", analyzer.ErrorPolicyExclude.String(), "transport errors: exclude or blocked")
	f.Uint64Var(&opts.Seed, "seed", 0, "seed for case-mixing mutations")
	f.StringVarP(&opts.TargetURL, "target", "u", "", "target URL override")
	f.IntVarP(&opts.Concurrency, "concurrency", "c", 0, "concurrency override")
	f.IntVarP(&opts.EvasionLevel, "evasion-level", "e", 0, "evasion level override (0-2)")
	f.IntVar(&opts.Timeout, "timeout", 0, "request timeout override in seconds")
	f.Float64Var(&opts.RateLimit, "rate-limit", 0, "requests per second override, 0 = unlimited")
	return cmd
}

// applyTargetFlags copies the flags the user set onto t and validates it.
func applyTargetFlags(cmd *cobra.Command, opts *runOptions, t *config.TargetConfig) error {
	f := cmd.Flags()
	if f.Changed("target") {
		t.URL = opts.TargetURL
	}
	if f.Changed("concurrency") {
		t.Concurrency = opts.Concurrency
	}
	if f.Changed("evasion-level") {
		t.EvasionLevel = opts.EvasionLevel
	}
	if f.Changed("timeout") {
		t.Timeout = opts.Timeout
	}
	if f.Changed("rate-limit") {
		t.RateLimit = opts.RateLimit
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("target flags: %w", err)
	}
	return nil
}
