package main

import (
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/chat-relay/pkg/config"
	"github.com/chat-relay/pkg/logging"
	"github.com/chat-relay/pkg/server"
)

var (
	configFile    = kingpin.Flag("config.file", "Path to configuration file.").Default("config.yaml").String()
	listenAddress = kingpin.Flag("web.listen-address", "Address to listen on for web interface and telemetry.").Default(":9090").String()
	telemetryPath = kingpin.Flag("web.telemetry-path", "Path under which to expose metrics.").Default("/metrics").String()
	bindAddr      = kingpin.Flag("bind-addr", "Address to bind for the chat relay (listening)").Default(":7711").String()

	// Global config
	appConfig *config.Config
)

func main() {
	kingpin.Parse()

	// Load configuration
	var err error
	appConfig, err = config.LoadConfig(*configFile)
	if err != nil {
		// If config file doesn't exist, continue with defaults
		logging.Logf("Warning: Failed to load config file: %v, using defaults", err)
		appConfig = &config.Config{}
		appConfig.SetDefaults()
		appConfig.ApplyEnvOverrides()
	}

	// Initialize relay ID early
	relayID := logging.GetRelayID()
	logging.Logf("Relay initialized with ID: %s", relayID)

	relayServer, err := server.NewRelayServer(appConfig)
	if err != nil {
		logging.Fatalf("Failed to create relay: %v", err)
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logging.Log("Received shutdown signal, shutting down gracefully...")
		relayServer.Shutdown()
		logging.Flush()
		os.Exit(0)
	}()

	// Get bind address from command line or config
	bindAddress := *bindAddr
	if appConfig.Relay.BindAddr != "" {
		bindAddress = appConfig.Relay.BindAddr
	}

	// Start relay listener
	go func() {
		if err := relayServer.StartRelayListener(bindAddress); err != nil {
			logging.Fatalf("Relay listener error: %v", err)
		}
	}()

	// Get metrics config from command line or config file
	metricsPath := *telemetryPath
	metricsAddr := *listenAddress
	if appConfig.Relay.TelemetryPath != "" {
		metricsPath = appConfig.Relay.TelemetryPath
	}
	if appConfig.Relay.ListenAddress != "" {
		metricsAddr = appConfig.Relay.ListenAddress
	}

	// Start metrics server
	if err := relayServer.StartMetricsServer(metricsAddr, metricsPath); err != nil {
		logging.Fatalf("Metrics server error: %v", err)
	}
}
