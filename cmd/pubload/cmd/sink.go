package cmd

import (
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/armadaproject/pubload/internal/common/app"
	"github.com/armadaproject/pubload/internal/common/serve"
	"github.com/armadaproject/pubload/internal/pubload/configuration"
	"github.com/armadaproject/pubload/internal/pubload/sink"
)

// Serve a local deduplicating ingestion endpoint to run against.
func sinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sink",
		Short: "Serve an in-memory ingestion endpoint that deduplicates events on (topic, event_id).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd.Flags())
			if err != nil {
				return err
			}
			configuration.SetSinkDefaults(v)
			config, err := configuration.LoadSink(v)
			if err != nil {
				return err
			}
			if err := config.Validate(); err != nil {
				return err
			}
			return runSink(config)
		},
	}

	d := configuration.DefaultSink()
	cmd.Flags().Uint16("port", d.Port, "Port to listen on")
	cmd.Flags().Duration("dedupTtl", d.DedupTtl, "How long an event id is remembered")
	cmd.Flags().Int("recentEvents", d.RecentEvents, "Number of inserted events listed by GET /events")
	return cmd
}

func runSink(config configuration.SinkConfig) error {
	ctx, cancel := app.CreateContextWithShutdown()
	defer cancel()

	registry := prometheus.NewRegistry()
	store := sink.NewStore(config.DedupTtl, config.RecentEvents, nil, registry)

	log.WithFields(log.Fields{
		"port":     config.Port,
		"dedupTtl": config.DedupTtl,
	}).Info("Starting sink")
	return serve.ListenAndServe(ctx, config.Port, sink.NewRouter(store, prometheus.Gatherers{registry, prometheus.DefaultGatherer}))
}
