package cmd

import (
	"os"
	"sync"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/weaveworks/promrus"

	"github.com/armadaproject/pubload/internal/common/logging"
)

const (
	configFlag    = "config"
	logLevelFlag  = "logLevel"
	logFormatFlag = "logFormat"
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pubload",
		Short: "pubload generates a sustained stream of batched publish requests against an event ingestion endpoint.",
		Long: `pubload generates a sustained stream of batched publish requests against an event ingestion endpoint.

Options can be given as flags, as PUBLOAD_<OPTION> environment variables (e.g. PUBLOAD_VIRTUALUSERS=20)
or in a YAML file passed with --config. The target can also be set with TARGET_URL.

Example config:

targetUrl: http://localhost:8080/publish
virtualUsers: 50
duration: 20s
poolHitProbability: 0.3
reportFile: results/report.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := cmd.Flags().GetString(logLevelFlag)
			if err != nil {
				return errors.WithStack(err)
			}
			format, err := cmd.Flags().GetString(logFormatFlag)
			if err != nil {
				return errors.WithStack(err)
			}
			if err := logging.ConfigureLogging(level, format); err != nil {
				return err
			}
			addLogMetricsHook()
			return nil
		},
	}

	cmd.PersistentFlags().String(configFlag, "", "YAML config file")
	cmd.PersistentFlags().String(logLevelFlag, "info", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().String(logFormatFlag, logging.FormatCli, "Log format: cli, text or json")

	cmd.AddCommand(
		runCmd(),
		sinkCmd(),
		versionCmd(),
	)
	return cmd
}

// Execute runs the root command and exits non-zero if it fails.
func Execute() {
	if err := RootCmd().Execute(); err != nil {
		logging.WithStacktrace(log.NewEntry(log.StandardLogger()), err).Error("pubload failed")
		os.Exit(1)
	}
}

// newViper returns a viper instance reading flags and, if --config was given, that file.
func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return nil, errors.WithStack(err)
	}
	configFile, err := flags.GetString(configFlag)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if configFile != "" {
		configFile, err = homedir.Expand(configFile)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", configFile)
		}
	}
	return v, nil
}

var logHookOnce sync.Once

// addLogMetricsHook counts log messages by level on the default Prometheus registry.
func addLogMetricsHook() {
	logHookOnce.Do(func() {
		hook, err := promrus.NewPrometheusHook()
		if err != nil {
			log.WithError(err).Warn("Log message metrics disabled")
			return
		}
		log.AddHook(hook)
	})
}
