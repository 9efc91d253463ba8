package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chat-relay/pkg/config"
	"github.com/chat-relay/pkg/logging"
	"github.com/chat-relay/pkg/metrics"
	"github.com/chat-relay/pkg/registry"
)

// NewRelayServer creates a new relay server
func NewRelayServer(cfg *config.Config) (*RelayServer, error) {
	promRegistry := prometheus.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())

	server := &RelayServer{
		cfg:          cfg,
		peers:        registry.New(cfg.Limits.MaxPeers),
		events:       make(chan hubEvent, 1024),
		nextID:       1,
		ctx:          ctx,
		cancel:       cancel,
		promRegistry: promRegistry,
	}
	server.highWaterMark.Store(int64(registry.NoPeers))

	// Create collector with callbacks that read the atomic mirrors, never the
	// hub-owned registry itself.
	collector := metrics.NewCollector(
		func() int {
			return int(server.peersConnected.Load())
		},
		func() int64 {
			return server.highWaterMark.Load()
		},
	)

	server.collector = collector
	promRegistry.MustRegister(collector)

	return server, nil
}

// Shutdown stops accepting, tears down all peers, and waits for the hub and
// reader goroutines to finish.
func (s *RelayServer) Shutdown() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
}

// StartMetricsServer starts the metrics server
func (s *RelayServer) StartMetricsServer(metricsAddr, metricsPath string) error {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>
<head><title>Chat Relay Exporter</title></head>
<body>
<h1>Chat Relay Exporter</h1>
<p><a href="` + metricsPath + `">Metrics</a></p>
</body>
</html>`))
	})

	logging.Logf("[listen] metrics addr=%s path=%s health=/healthz", metricsAddr, metricsPath)
	return http.ListenAndServe(metricsAddr, mux)
}
