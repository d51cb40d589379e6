package executor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/armadaproject/pubload/internal/common/task"
	"github.com/armadaproject/pubload/internal/common/util"
	"github.com/armadaproject/pubload/internal/pubload/configuration"
	"github.com/armadaproject/pubload/internal/pubload/metrics"
	"github.com/armadaproject/pubload/internal/pubload/workload"
)

const taskShutdownTimeout = 5 * time.Second

// IterationRunner runs one iteration for a virtual user. *workload.Iteration implements it.
type IterationRunner interface {
	Run(ctx context.Context, vu *workload.VirtualUser, iteration uint64) workload.IterationResult
}

// Runner drives a load test: it starts the virtual users, stops them once the run duration has
// elapsed and builds the final report.
type Runner struct {
	config     configuration.LoadConfig
	iteration  IterationRunner
	metrics    *metrics.RunMetrics
	registerer prometheus.Registerer
	running    atomic.Bool
}

// NewRunner creates a Runner. registerer is used for the progress task histogram and may be nil.
func NewRunner(config configuration.LoadConfig, iteration IterationRunner, runMetrics *metrics.RunMetrics, registerer prometheus.Registerer) *Runner {
	return &Runner{
		config:     config,
		iteration:  iteration,
		metrics:    runMetrics,
		registerer: registerer,
	}
}

// Run starts config.VirtualUsers virtual users, each looping iterations until config.Duration has
// elapsed or ctx is cancelled. Iterations in flight when the run ends are allowed to finish.
// Rejected batches never end the run early; they are only counted.
func (r *Runner) Run(ctx context.Context) (*metrics.Report, error) {
	runId := util.NewULID()
	logger := log.WithField("runId", runId)
	logger.WithFields(log.Fields{
		"target":       r.config.TargetUrl,
		"virtualUsers": r.config.VirtualUsers,
		"duration":     r.config.Duration,
		"batchSize":    r.config.BatchSize,
	}).Info("Starting load test")

	runCtx, cancel := context.WithTimeout(ctx, r.config.Duration)
	defer cancel()

	start := time.Now()
	r.running.Store(true)
	defer r.running.Store(false)

	tasks := task.NewBackgroundTaskManager(metrics.MetricPrefix, r.registerer)
	if r.config.ProgressInterval > 0 {
		tasks.Register(func() { r.logProgress(logger, start) }, r.config.ProgressInterval, "progress_log")
	}

	var g errgroup.Group
	for i := 1; i <= r.config.VirtualUsers; i++ {
		index := i
		g.Go(func() error {
			return r.runVirtualUser(runCtx, index)
		})
	}
	err := g.Wait()
	elapsed := time.Since(start)

	if tasks.StopAll(taskShutdownTimeout) {
		logger.Warn("Progress logging did not stop in time")
	}
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		logger.Warn("Load test interrupted before its configured duration")
	}

	report := r.metrics.GenerateReport(metrics.RunInfo{
		RunId:              runId,
		TargetUrl:          r.config.TargetUrl,
		VirtualUsers:       r.config.VirtualUsers,
		ConfiguredDuration: r.config.Duration,
		ActualDuration:     elapsed,
	})
	logger.WithFields(log.Fields{
		"iterations": report.Iterations,
		"accepted":   report.Accepted,
		"rejected":   report.Rejected,
		"elapsed":    elapsed.Round(time.Millisecond),
	}).Info("Load test complete")
	return report, nil
}

func (r *Runner) runVirtualUser(ctx context.Context, index int) error {
	vu := workload.NewVirtualUser(index)
	for iteration := uint64(0); ctx.Err() == nil; iteration++ {
		r.metrics.Record(r.runIteration(ctx, vu, iteration))
	}
	return nil
}

// runIteration turns a panicking iteration into a rejected one so a single bad iteration cannot
// take the whole run down.
func (r *Runner) runIteration(ctx context.Context, vu *workload.VirtualUser, iteration uint64) (result workload.IterationResult) {
	defer func() {
		if p := recover(); p != nil {
			result = workload.IterationResult{
				VU:        vu.Index,
				Iteration: iteration,
				Err:       errors.Errorf("iteration panicked: %v", p),
			}
		}
	}()
	return r.iteration.Run(ctx, vu, iteration)
}

func (r *Runner) logProgress(logger *log.Entry, start time.Time) {
	p := r.metrics.Progress()
	logger.WithFields(log.Fields{
		"elapsed":          time.Since(start).Round(time.Second),
		"iterations":       p.Iterations,
		"accepted":         p.Accepted,
		"rejected":         p.Rejected,
		"transport_errors": p.TransportErrors,
		"events_sent":      p.EventsSent,
	}).Info("Load test progress")
}

// Check reports whether a run is in progress.
func (r *Runner) Check() error {
	if !r.running.Load() {
		return errors.New("no load test running")
	}
	return nil
}
