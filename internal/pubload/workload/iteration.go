package workload

import (
	"context"
	"net/http"
	"time"

	"github.com/armadaproject/pubload/internal/common/util"
	"github.com/armadaproject/pubload/internal/pubload/configuration"
	"github.com/armadaproject/pubload/internal/pubload/idpool"
)

// Iteration is one unit of simulated user behaviour: build a batch, publish it, classify the
// response and pace. It holds no per-call state and may be run concurrently by any number of
// virtual users.
type Iteration struct {
	builder    *Builder
	dispatcher *Dispatcher
	clock      util.Clock
	batchSize  int
	paceDelay  time.Duration
}

func NewIteration(builder *Builder, dispatcher *Dispatcher, clock util.Clock, batchSize int, paceDelay time.Duration) *Iteration {
	if clock == nil {
		clock = &util.DefaultClock{}
	}
	return &Iteration{
		builder:    builder,
		dispatcher: dispatcher,
		clock:      clock,
		batchSize:  batchSize,
		paceDelay:  paceDelay,
	}
}

// NewIterationFromConfig wires an Iteration for config around a shared pool.
func NewIterationFromConfig(config configuration.LoadConfig, pool *idpool.Pool, client *http.Client) *Iteration {
	selector := NewSelector(pool, config.PoolHitProbability)
	builder := NewBuilder(selector, toTopics(config.Topics), config.Source)
	dispatcher := NewDispatcher(config.TargetUrl, config.RequestTimeout, client)
	return NewIteration(builder, dispatcher, nil, config.BatchSize, config.PaceDelay)
}

// Run executes one iteration for vu.
//
// The publish request is not cancelled by ctx: once dispatched it completes or times out on its
// own. ctx only cuts the pacing pause short so that a finished run stops promptly.
func (it *Iteration) Run(ctx context.Context, vu *VirtualUser, iteration uint64) IterationResult {
	batch := it.builder.Build(vu, iteration, it.batchSize, it.clock.Now())
	result := it.dispatcher.Dispatch(context.WithoutCancel(ctx), batch)
	pace(ctx, it.paceDelay)
	return result
}

func pace(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
