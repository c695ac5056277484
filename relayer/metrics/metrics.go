package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics represents the metrics server for the relayer
type Metrics struct {
	server            *http.Server
	logger            *utils.ZapLogger
	registry          *prometheus.Registry
	trustedHeight     *prometheus.GaugeVec
	eventsObserved    *prometheus.CounterVec
	updatesEmitted    *prometheus.CounterVec
	datagrams         *prometheus.CounterVec
	taskRetries       *prometheus.CounterVec
	relayJobFailures  *prometheus.CounterVec
	relayJobDuration  *prometheus.HistogramVec
	lastRelayedPacket *prometheus.GaugeVec
}

func newMetrics(logger *utils.ZapLogger) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		logger:   logger,
		registry: registry,
		trustedHeight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ibc_relayer_client_trusted_height",
				Help: "The latest height verified by a relayed light client, as last read by the relayer",
			},
			[]string{"chain", "client"},
		),
		eventsObserved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ibc_relayer_events_observed_count",
				Help: "The total number of IBC events observed on a source chain since startup",
			},
			[]string{"chain"},
		),
		updatesEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ibc_relayer_client_updates_emitted_count",
				Help: "The total number of update client messages assembled for a light client",
			},
			[]string{"chain", "client"},
		),
		datagrams: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ibc_relayer_datagrams_count",
				Help: "The total number of datagrams handed to a destination chain, by kind and outcome",
			},
			[]string{"chain", "kind", "outcome"},
		),
		taskRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ibc_relayer_task_retries_count",
				Help: "The total number of transient failures requeued by the task scheduler",
			},
			[]string{"family"},
		),
		relayJobFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ibc_relayer_relay_job_failure_count",
				Help: "The total number of relay jobs that ended with an error",
			},
			[]string{"chain"},
		),
		relayJobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ibc_relayer_relay_job_duration_seconds",
				Help:    "Time from picking up an event until its datagrams are included",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"chain"},
		),
		lastRelayedPacket: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ibc_relayer_last_relay_timestamp_seconds",
				Help: "The Unix timestamp (in seconds) of the last successful relay job",
			},
			[]string{"chain"},
		),
	}

	// Register metrics with Prometheus registry
	registry.MustRegister(
		m.trustedHeight,
		m.eventsObserved,
		m.updatesEmitted,
		m.datagrams,
		m.taskRetries,
		m.relayJobFailures,
		m.relayJobDuration,
		m.lastRelayedPacket,
	)
	return m
}

// NewMetrics creates a new metrics server
func NewMetrics(logger *utils.ZapLogger, address string) *Metrics {
	m := newMetrics(logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	m.server = &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return m
}

// NewMockMetricsForTest creates metrics without an HTTP server, so tests can
// run without binding to ports
func NewMockMetricsForTest(logger *utils.ZapLogger) *Metrics {
	return newMetrics(logger)
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Start starts the metrics server
func (m *Metrics) Start() error {
	m.logger.Infof("Starting metrics server on %s", m.server.Addr)
	return m.server.ListenAndServe()
}

// Stop stops the metrics server
func (m *Metrics) Stop(ctx context.Context) error {
	m.logger.Info("Stopping metrics server")
	return m.server.Shutdown(ctx)
}

func (m *Metrics) UpdateTrustedHeight(chainId string, clientId types.ClientId, height types.Height) {
	m.trustedHeight.WithLabelValues(chainId, clientId.String()).Set(float64(height.RevisionHeight))
}

func (m *Metrics) RecordEvent(chainId string) {
	m.eventsObserved.WithLabelValues(chainId).Inc()
}

func (m *Metrics) RecordUpdatesEmitted(chainId string, clientId types.ClientId, count int) {
	m.updatesEmitted.WithLabelValues(chainId, clientId.String()).Add(float64(count))
}

// RecordDatagram counts a datagram by the way its submission ended
func (m *Metrics) RecordDatagram(chainId string, kind types.DatagramKind, outcome string) {
	m.datagrams.WithLabelValues(chainId, kind.String(), outcome).Inc()
}

// RecordRetry counts a requeued task of the given family
func (m *Metrics) RecordRetry(family string) {
	m.taskRetries.WithLabelValues(family).Inc()
}

// RecordRelayJob observes a finished relay job of an event from chainId
func (m *Metrics) RecordRelayJob(chainId string, elapsed time.Duration, err error) {
	m.relayJobDuration.WithLabelValues(chainId).Observe(elapsed.Seconds())
	if err != nil {
		m.relayJobFailures.WithLabelValues(chainId).Inc()
		return
	}
	m.lastRelayedPacket.WithLabelValues(chainId).Set(float64(time.Now().Unix()))
}
