package metrics

import (
	"fmt"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector Prometheus metrics collector for the relay
type Collector struct {
	// Live state callbacks, provided by the server
	GetPeersConnected func() int
	GetHighWaterMark  func() int64

	// Info metric (always 1)
	relayInfo *prometheus.Desc

	// Peer metrics
	peersConnected   *prometheus.Desc
	peersHWM         *prometheus.Desc
	peersAccepted    *prometheus.Desc
	peersRejected    *prometheus.Desc
	disconnectsTotal *prometheus.Desc

	// Message metrics
	broadcastsTotal *prometheus.Desc
	directsTotal    *prometheus.Desc
	commandsTotal   *prometheus.Desc
	commandErrors   *prometheus.Desc
	bytesRx         *prometheus.Desc
	bytesTx         *prometheus.Desc

	// Counters (protected by mutex)
	metricsLock        sync.RWMutex
	acceptedCount      float64
	rejectedCount      float64
	disconnectsByCause map[string]float64
	broadcastsCount    float64
	directsCount       float64
	commandsByName     map[string]float64
	commandErrorsByKey map[string]float64
	bytesRxCount       float64
	bytesTxCount       float64
}

// NewCollector creates a new metrics collector
func NewCollector(getPeersConnected func() int, getHighWaterMark func() int64) *Collector {
	return &Collector{
		GetPeersConnected: getPeersConnected,
		GetHighWaterMark:  getHighWaterMark,
		relayInfo: prometheus.NewDesc(
			"chat_relay_info",
			"Relay process info metric (always 1). Present when the relay is listening for peers.",
			[]string{"node", "pod"},
			nil,
		),
		peersConnected: prometheus.NewDesc(
			"chat_relay_peers_connected",
			"Number of currently connected peers",
			[]string{"node", "pod"},
			nil,
		),
		peersHWM: prometheus.NewDesc(
			"chat_relay_peers_high_water_mark",
			"Greatest live peer id (-1 when the registry is empty)",
			[]string{"node", "pod"},
			nil,
		),
		peersAccepted: prometheus.NewDesc(
			"chat_relay_peers_accepted_total",
			"Total peer connections accepted",
			[]string{"node", "pod"},
			nil,
		),
		peersRejected: prometheus.NewDesc(
			"chat_relay_peers_rejected_total",
			"Total peer connections refused because the registry was full",
			[]string{"node", "pod"},
			nil,
		),
		disconnectsTotal: prometheus.NewDesc(
			"chat_relay_disconnects_total",
			"Total peer teardowns by cause (closed, read_error, line_too_long, shutdown)",
			[]string{"cause", "node", "pod"},
			nil,
		),
		broadcastsTotal: prometheus.NewDesc(
			"chat_relay_broadcasts_total",
			"Total chat lines fanned out to all other peers",
			[]string{"node", "pod"},
			nil,
		),
		directsTotal: prometheus.NewDesc(
			"chat_relay_direct_messages_total",
			"Total direct messages delivered to a single peer",
			[]string{"node", "pod"},
			nil,
		),
		commandsTotal: prometheus.NewDesc(
			"chat_relay_commands_total",
			"Total commands dispatched by command name",
			[]string{"command", "node", "pod"},
			nil,
		),
		commandErrors: prometheus.NewDesc(
			"chat_relay_command_errors_total",
			"Total command errors reported to senders by command and reason",
			[]string{"command", "reason", "node", "pod"},
			nil,
		),
		bytesRx: prometheus.NewDesc(
			"chat_relay_bytes_rx_total",
			"Total bytes read from peer connections",
			[]string{"node", "pod"},
			nil,
		),
		bytesTx: prometheus.NewDesc(
			"chat_relay_bytes_tx_total",
			"Total bytes written to peer connections",
			[]string{"node", "pod"},
			nil,
		),
		disconnectsByCause: make(map[string]float64),
		commandsByName:     make(map[string]float64),
		commandErrorsByKey: make(map[string]float64),
	}
}

// RecordPeerAccepted records an accepted peer connection.
func (c *Collector) RecordPeerAccepted() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.acceptedCount++
}

// RecordPeerRejected records a connection refused at the peer cap.
func (c *Collector) RecordPeerRejected() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.rejectedCount++
}

// RecordDisconnect records a peer teardown by cause (low cardinality).
func (c *Collector) RecordDisconnect(cause string) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.disconnectsByCause[cause]++
}

// RecordBroadcast records one chat line fanned out.
func (c *Collector) RecordBroadcast() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.broadcastsCount++
}

// RecordDirectMessage records one delivered DM.
func (c *Collector) RecordDirectMessage() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.directsCount++
}

// RecordCommand records a dispatched command by name.
func (c *Collector) RecordCommand(command string) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.commandsByName[command]++
}

// RecordCommandError records an error reply by command and reason.
func (c *Collector) RecordCommandError(command, reason string) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	key := fmt.Sprintf("%s:%s", command, reason)
	c.commandErrorsByKey[key]++
}

// AddBytesRx accumulates bytes read from peers.
func (c *Collector) AddBytesRx(n int) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.bytesRxCount += float64(n)
}

// AddBytesTx accumulates bytes written to peers.
func (c *Collector) AddBytesTx(n int) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.bytesTxCount += float64(n)
}

// Describe implements prometheus.Collector interface
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.relayInfo
	ch <- c.peersConnected
	ch <- c.peersHWM
	ch <- c.peersAccepted
	ch <- c.peersRejected
	ch <- c.disconnectsTotal
	ch <- c.broadcastsTotal
	ch <- c.directsTotal
	ch <- c.commandsTotal
	ch <- c.commandErrors
	ch <- c.bytesRx
	ch <- c.bytesTx
}

// Collect implements prometheus.Collector interface
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	nodeName := os.Getenv("NODE_NAME")
	if nodeName == "" {
		nodeName = "unknown"
	}

	podName := os.Getenv("POD_NAME")
	if podName == "" {
		podName = os.Getenv("HOSTNAME")
		if podName == "" {
			podName = "unknown"
		}
	}

	ch <- prometheus.MustNewConstMetric(
		c.relayInfo,
		prometheus.GaugeValue,
		1,
		nodeName, podName,
	)

	if c.GetPeersConnected != nil {
		ch <- prometheus.MustNewConstMetric(
			c.peersConnected,
			prometheus.GaugeValue,
			float64(c.GetPeersConnected()),
			nodeName, podName,
		)
	}
	if c.GetHighWaterMark != nil {
		ch <- prometheus.MustNewConstMetric(
			c.peersHWM,
			prometheus.GaugeValue,
			float64(c.GetHighWaterMark()),
			nodeName, podName,
		)
	}

	c.metricsLock.RLock()
	defer c.metricsLock.RUnlock()

	ch <- prometheus.MustNewConstMetric(
		c.peersAccepted,
		prometheus.CounterValue,
		c.acceptedCount,
		nodeName, podName,
	)
	ch <- prometheus.MustNewConstMetric(
		c.peersRejected,
		prometheus.CounterValue,
		c.rejectedCount,
		nodeName, podName,
	)
	for cause, v := range c.disconnectsByCause {
		ch <- prometheus.MustNewConstMetric(
			c.disconnectsTotal,
			prometheus.CounterValue,
			v,
			cause, nodeName, podName,
		)
	}
	ch <- prometheus.MustNewConstMetric(
		c.broadcastsTotal,
		prometheus.CounterValue,
		c.broadcastsCount,
		nodeName, podName,
	)
	ch <- prometheus.MustNewConstMetric(
		c.directsTotal,
		prometheus.CounterValue,
		c.directsCount,
		nodeName, podName,
	)
	for command, v := range c.commandsByName {
		ch <- prometheus.MustNewConstMetric(
			c.commandsTotal,
			prometheus.CounterValue,
			v,
			command, nodeName, podName,
		)
	}
	for key, v := range c.commandErrorsByKey {
		command, reason := splitKey(key)
		ch <- prometheus.MustNewConstMetric(
			c.commandErrors,
			prometheus.CounterValue,
			v,
			command, reason, nodeName, podName,
		)
	}
	ch <- prometheus.MustNewConstMetric(
		c.bytesRx,
		prometheus.CounterValue,
		c.bytesRxCount,
		nodeName, podName,
	)
	ch <- prometheus.MustNewConstMetric(
		c.bytesTx,
		prometheus.CounterValue,
		c.bytesTxCount,
		nodeName, podName,
	)
}

func splitKey(key string) (string, string) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}
