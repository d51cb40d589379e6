package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/armadaproject/pubload/internal/common/health"
)

// NewHandler serves gatherer on /metrics and checker on /health.
func NewHandler(gatherer prometheus.Gatherer, checker health.Checker) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	health.SetupHttpMux(mux, checker)
	return mux
}
