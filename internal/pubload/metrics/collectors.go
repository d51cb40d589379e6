package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/armadaproject/pubload/internal/pubload/workload"
)

const MetricPrefix = "pubload_"

const (
	resultAccepted = "accepted"
	resultRejected = "rejected"

	transportTimeout    = "timeout"
	transportConnection = "connection"

	originPool  = "pool"
	originFresh = "fresh"
)

type collectors struct {
	iterations      *prometheus.CounterVec
	responses       *prometheus.CounterVec
	transportErrors *prometheus.CounterVec
	eventsSent      *prometheus.CounterVec
	dispatchLatency prometheus.Histogram
}

func newCollectors(registerer prometheus.Registerer) *collectors {
	c := &collectors{
		iterations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPrefix + "iterations_total",
				Help: "Completed iterations by outcome",
			},
			[]string{"result"},
		),
		responses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPrefix + "http_responses_total",
				Help: "Responses received from the publish endpoint by status code",
			},
			[]string{"code"},
		),
		transportErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPrefix + "transport_errors_total",
				Help: "Publish requests that got no response",
			},
			[]string{"kind"},
		),
		eventsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPrefix + "events_sent_total",
				Help: "Events sent by identifier origin",
			},
			[]string{"origin"},
		),
		dispatchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricPrefix + "dispatch_latency_seconds",
				Help:    "Time from sending a batch to reading its response",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
			},
		),
	}
	registerer.MustRegister(c.iterations, c.responses, c.transportErrors, c.eventsSent, c.dispatchLatency)
	return c
}

func (c *collectors) record(result workload.IterationResult) {
	if result.Accepted {
		c.iterations.WithLabelValues(resultAccepted).Inc()
	} else {
		c.iterations.WithLabelValues(resultRejected).Inc()
	}
	if result.StatusCode != 0 {
		c.responses.WithLabelValues(strconv.Itoa(result.StatusCode)).Inc()
	} else if result.Timeout {
		c.transportErrors.WithLabelValues(transportTimeout).Inc()
	} else {
		c.transportErrors.WithLabelValues(transportConnection).Inc()
	}
	c.eventsSent.WithLabelValues(originPool).Add(float64(result.PoolHits))
	c.eventsSent.WithLabelValues(originFresh).Add(float64(result.Events - result.PoolHits))
	c.dispatchLatency.Observe(result.Duration.Seconds())
}
