package cmd

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/armadaproject/pubload/internal/common/app"
	"github.com/armadaproject/pubload/internal/common/serve"
	"github.com/armadaproject/pubload/internal/pubload/configuration"
	"github.com/armadaproject/pubload/internal/pubload/executor"
	"github.com/armadaproject/pubload/internal/pubload/idpool"
	"github.com/armadaproject/pubload/internal/pubload/metrics"
	"github.com/armadaproject/pubload/internal/pubload/workload"
)

// Run the load test and print the report.
func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Publish batches of events for a fixed duration and report the outcome.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadRunConfig(cmd)
			if err != nil {
				return err
			}
			return runLoadTest(config, cmd.OutOrStdout())
		},
	}

	d := configuration.Default()
	f := cmd.Flags()
	f.String("targetUrl", d.TargetUrl, "Endpoint receiving the batches, also read from "+configuration.TargetUrlEnv)
	f.Int("virtualUsers", d.VirtualUsers, "Number of concurrent virtual users")
	f.Duration("duration", d.Duration, "How long to keep starting iterations")
	f.Int("batchSize", d.BatchSize, "Events per request")
	f.Int("poolSize", d.PoolSize, "Number of reusable event ids")
	f.Float64("poolHitProbability", d.PoolHitProbability, "Probability that an event reuses an id from the pool")
	f.Duration("requestTimeout", d.RequestTimeout, "Upper bound on a single request")
	f.Duration("paceDelay", d.PaceDelay, "Pause after each request")
	f.String("source", d.Source, "Value of the source field of every event")
	f.StringSlice("topics", d.Topics, "Topics events are spread over")
	f.Duration("progressInterval", d.ProgressInterval, "How often to log progress, 0 to disable")
	f.String("reportFile", d.ReportFile, "Write the final report to this file")
	f.String("reportFormat", d.ReportFormat, "Report file format: json or yaml")
	f.Uint16("metricsPort", d.MetricsPort, "Serve /metrics and /health on this port during the run, 0 to disable")
	f.Int("maxErrorsToCollect", d.MaxErrorsToCollect, "Number of distinct error messages kept for the report")
	return cmd
}

func loadRunConfig(cmd *cobra.Command) (configuration.LoadConfig, error) {
	v, err := newViper(cmd.Flags())
	if err != nil {
		return configuration.LoadConfig{}, err
	}
	configuration.SetDefaults(v)
	if err := configuration.BindEnv(v); err != nil {
		return configuration.LoadConfig{}, err
	}
	config, err := configuration.Load(v)
	if err != nil {
		return configuration.LoadConfig{}, err
	}
	if err := config.Validate(); err != nil {
		return configuration.LoadConfig{}, err
	}
	return config, nil
}

func runLoadTest(config configuration.LoadConfig, out io.Writer) error {
	ctx, cancel := app.CreateContextWithShutdown()
	defer cancel()

	pool, err := idpool.New(config.PoolSize)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	runMetrics := metrics.NewRunMetrics(registry, config.MaxErrorsToCollect)
	iteration := workload.NewIterationFromConfig(config, pool, nil)
	runner := executor.NewRunner(config, iteration, runMetrics, registry)

	if config.MetricsPort != 0 {
		shutdown := serve.ServeHttp(config.MetricsPort, metrics.NewHandler(prometheus.Gatherers{registry, prometheus.DefaultGatherer}, runner))
		defer shutdown()
	}

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	if err := report.Print(out); err != nil {
		return err
	}
	if config.ReportFile != "" {
		if err := metrics.WriteReportToFile(report, config.ReportFile, config.ReportFormat); err != nil {
			return err
		}
		log.Infof("Report written to %s", config.ReportFile)
	}
	return nil
}
