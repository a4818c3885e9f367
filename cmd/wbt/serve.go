package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/wafbench/wbt/internal/api"
	"github.com/wafbench/wbt/pkg/config"
	"github.com/wafbench/wbt/pkg/metrics"
	"github.com/wafbench/wbt/pkg/orchestrator"
	"github.com/wafbench/wbt/pkg/report"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var addr, payloadDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP control surface",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(g, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.settings.ListenAddr
			}
			catalog, err := a.loadCatalog(payloadDir)
			if err != nil {
				return err
			}
			tp, err := a.tracing(cmd.Context())
			if err != nil {
				return err
			}

			store := config.NewStore(a.settings)
			reports := report.NewGenerator(a.settings.ReportDir, report.WithLogger(a.logger))
			collector := metrics.NewCollector()
			orch := orchestrator.New(store, catalog,
				orchestrator.WithLogger(a.logger),
				orchestrator.WithReports(reports),
				orchestrator.WithCollector(collector),
				orchestrator.WithTracer(tp.Tracer()),
			)

			srv := api.New(orch, store, reports,
				api.WithLogger(a.logger),
				api.WithMetrics(collector.Handler()),
				api.WithLogFile(a.settings.LogFile),
			)
			a.console.Banner()
			a.logger.Info("starting control surface",
				slog.String("addr", addr),
				slog.String("target", store.Target().URL),
				slog.String("protection", store.Protection().Type))
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from settings)")
	cmd.Flags().StringVarP(&payloadDir, "payloads", "p", "", "payload directory (default from settings)")
	return cmd
}
