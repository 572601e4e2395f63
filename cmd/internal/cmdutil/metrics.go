package cmdutil

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type metricsConfig struct {
	listenAddr string
}

var metricsCfg = metricsConfig{
	listenAddr: "127.0.0.1:3030",
}

var (
	comparisonsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tmcheck",
		Name:      "comparisons_total",
		Help:      "Comparisons run, by outcome.",
	}, []string{"outcome"})
	lastMatchPercentage = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tmcheck",
		Name:      "last_match_percentage",
		Help:      "Match percentage of the most recent successful comparison.",
	})
)

func RegisterMetricsFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&metricsCfg.listenAddr,
		"metrics-listen-addr",
		metricsCfg.listenAddr,
		"address the /metrics and /healthz endpoints listen on while a comparison runs; empty disables them",
	)
}

// RecordComparison exports the outcome of a comparison.
func RecordComparison(matchPercentage float64, err error) {
	if err != nil {
		comparisonsTotal.WithLabelValues("error").Inc()
		return
	}
	comparisonsTotal.WithLabelValues("ok").Inc()
	lastMatchPercentage.Set(matchPercentage)
}

func MetricsServer(logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := fmt.Fprint(w, "OK"); err != nil {
			logger.Err(err).Msgf("error writing to healthz")
		}
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// RunMetricsServer serves metrics in the background. The returned func shuts
// the server down.
func RunMetricsServer(logger zerolog.Logger) func(context.Context) error {
	if metricsCfg.listenAddr == "" {
		return func(context.Context) error { return nil }
	}
	srv := &http.Server{
		Addr:    metricsCfg.listenAddr,
		Handler: MetricsServer(logger),
	}
	go func() {
		logger.Debug().Str("listen_addr", srv.Addr).Msgf("starting metrics server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Err(err).Msgf("error exposing metrics endpoints")
		}
	}()
	return srv.Shutdown
}
