package logging

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJson = "json"
	FormatCli  = "cli"
)

// ConfigureCliLogging sets up logrus for interactive command line use: messages only, on stdout.
func ConfigureCliLogging() {
	log.SetFormatter(&CommandLineFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
}

// ConfigureLogging switches the standard logger to the given level and format.
// Valid formats are text, json and cli.
func ConfigureLogging(level string, format string) error {
	parsedLevel, err := log.ParseLevel(level)
	if err != nil {
		return errors.WithStack(err)
	}
	formatter, err := newFormatter(format)
	if err != nil {
		return err
	}
	log.SetLevel(parsedLevel)
	log.SetFormatter(formatter)
	log.SetOutput(os.Stdout)
	return nil
}

func newFormatter(format string) (log.Formatter, error) {
	switch strings.ToLower(format) {
	case FormatText:
		return &log.TextFormatter{ForceColors: true, FullTimestamp: true}, nil
	case FormatJson:
		return &log.JSONFormatter{TimestampFormat: RFC3339Milli}, nil
	case FormatCli, "":
		return &CommandLineFormatter{}, nil
	default:
		return nil, errors.Errorf("unknown log format: %s. Valid formats are %s, %s and %s", format, FormatText, FormatJson, FormatCli)
	}
}

const RFC3339Milli = "2006-01-02T15:04:05.000Z07:00"
