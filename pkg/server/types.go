package server

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chat-relay/pkg/config"
	"github.com/chat-relay/pkg/metrics"
	"github.com/chat-relay/pkg/registry"
)

// teardown causes, used for logging and the disconnects metric
const (
	causeClosed      = "closed"
	causeReadError   = "read_error"
	causeLineTooLong = "line_too_long"
	causeShutdown    = "shutdown"
)

type eventKind int

const (
	eventAccept eventKind = iota
	eventLine
	eventClose
)

// hubEvent is one unit of work for the hub goroutine. Accept events carry
// conn; line and close events carry the peer id they belong to.
type hubEvent struct {
	kind  eventKind
	conn  net.Conn
	id    registry.PeerID
	line  string
	cause string
}

// RelayServer is the connection-multiplexed relay engine. Reader goroutines
// do nothing but read; the hub goroutine is the single owner of the peer
// registry and of every outbound write.
type RelayServer struct {
	cfg      *config.Config
	peers    *registry.Registry
	events   chan hubEvent
	nextID   registry.PeerID
	listener net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Mirrors of registry state for the metrics scrape goroutine, which must
	// not touch the hub-owned registry directly.
	peersConnected atomic.Int64
	highWaterMark  atomic.Int64

	promRegistry *prometheus.Registry
	collector    *metrics.Collector
}
