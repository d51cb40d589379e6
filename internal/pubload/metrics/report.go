package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v2"

	"github.com/armadaproject/pubload/internal/common/publoaderrors"
)

const (
	FormatJson = "json"
	FormatYaml = "yaml"
)

// Report is the final summary of a run. Durations are rendered as Go duration strings.
type Report struct {
	RunId               string            `json:"runId" yaml:"runId"`
	TargetUrl           string            `json:"targetUrl" yaml:"targetUrl"`
	VirtualUsers        int               `json:"virtualUsers" yaml:"virtualUsers"`
	ConfiguredDuration  string            `json:"configuredDuration" yaml:"configuredDuration"`
	ActualDuration      string            `json:"actualDuration" yaml:"actualDuration"`
	Iterations          uint64            `json:"iterations" yaml:"iterations"`
	Accepted            uint64            `json:"accepted" yaml:"accepted"`
	Rejected            uint64            `json:"rejected" yaml:"rejected"`
	TransportErrors     uint64            `json:"transportErrors" yaml:"transportErrors"`
	Timeouts            uint64            `json:"timeouts" yaml:"timeouts"`
	StatusCodes         map[string]uint64 `json:"statusCodes" yaml:"statusCodes"`
	EventsSent          uint64            `json:"eventsSent" yaml:"eventsSent"`
	PoolHits            uint64            `json:"poolHits" yaml:"poolHits"`
	PoolHitRate         float64           `json:"poolHitRate" yaml:"poolHitRate"`
	IterationsPerSecond float64           `json:"iterationsPerSecond" yaml:"iterationsPerSecond"`
	EventsPerSecond     float64           `json:"eventsPerSecond" yaml:"eventsPerSecond"`
	Latency             LatencyReport     `json:"latency" yaml:"latency"`
	// Only present when the endpoint returned publish summaries.
	Server *ServerReport  `json:"server,omitempty" yaml:"server,omitempty"`
	Errors []ErrorSummary `json:"errors" yaml:"errors"`
}

type LatencyReport struct {
	P50     string `json:"p50" yaml:"p50"`
	P95     string `json:"p95" yaml:"p95"`
	P99     string `json:"p99" yaml:"p99"`
	Max     string `json:"max" yaml:"max"`
	Average string `json:"average" yaml:"average"`
}

// ServerReport sums the publish summaries returned by the endpoint.
type ServerReport struct {
	Responses     uint64  `json:"responses" yaml:"responses"`
	Received      uint64  `json:"received" yaml:"received"`
	Inserted      uint64  `json:"inserted" yaml:"inserted"`
	Duplicates    uint64  `json:"duplicates" yaml:"duplicates"`
	DuplicateRate float64 `json:"duplicateRate" yaml:"duplicateRate"`
}

type ErrorSummary struct {
	Message string `json:"message" yaml:"message"`
	Count   int    `json:"count" yaml:"count"`
}

// Passed reports whether every iteration was accepted.
func (r *Report) Passed() bool {
	return r.Iterations > 0 && r.Rejected == 0
}

func statusCodeKey(code int) string {
	return strconv.Itoa(code)
}

// Print writes a human readable version of the report to out.
func (r *Report) Print(out io.Writer) error {
	w := tabwriter.NewWriter(out, 1, 1, 2, ' ', 0)
	fmt.Fprintf(w, "Run id:\t%s\n", r.RunId)
	fmt.Fprintf(w, "Target:\t%s\n", r.TargetUrl)
	fmt.Fprintf(w, "Virtual users:\t%d\n", r.VirtualUsers)
	fmt.Fprintf(w, "Duration:\t%s (configured %s)\n", r.ActualDuration, r.ConfiguredDuration)
	fmt.Fprintf(w, "Iterations:\t%d (%.1f/s)\n", r.Iterations, r.IterationsPerSecond)
	fmt.Fprintf(w, "Accepted:\t%d\n", r.Accepted)
	fmt.Fprintf(w, "Rejected:\t%d (transport errors %d, timeouts %d)\n", r.Rejected, r.TransportErrors, r.Timeouts)

	codes := maps.Keys(r.StatusCodes)
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  HTTP %s:\t%d\n", code, r.StatusCodes[code])
	}

	fmt.Fprintf(w, "Events sent:\t%d (%.1f/s)\n", r.EventsSent, r.EventsPerSecond)
	fmt.Fprintf(w, "Pool hits:\t%d (%.2f%%)\n", r.PoolHits, r.PoolHitRate*100)
	fmt.Fprintf(w, "Latency:\tp50 %s, p95 %s, p99 %s, max %s\n", r.Latency.P50, r.Latency.P95, r.Latency.P99, r.Latency.Max)
	if r.Server != nil {
		fmt.Fprintf(w, "Server received:\t%d (inserted %d, duplicates %d, %.2f%%)\n",
			r.Server.Received, r.Server.Inserted, r.Server.Duplicates, r.Server.DuplicateRate*100)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "Error x%d:\t%s\n", e.Count, e.Message)
	}
	return errors.WithStack(w.Flush())
}

// Marshal renders the report in the given format.
func (r *Report) Marshal(format string) ([]byte, error) {
	switch format {
	case FormatJson:
		data, err := json.MarshalIndent(r, "", "  ")
		return data, errors.WithStack(err)
	case FormatYaml:
		data, err := yaml.Marshal(r)
		return data, errors.WithStack(err)
	default:
		return nil, errors.WithStack(&publoaderrors.ErrInvalidArgument{
			Name:    "reportFormat",
			Value:   format,
			Message: "must be json or yaml",
		})
	}
}

// WriteReportToFile writes the report to path, creating missing parent directories.
func WriteReportToFile(report *Report, path string, format string) error {
	data, err := report.Marshal(format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "creating report directory")
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing report to %s", path)
	}
	return nil
}
