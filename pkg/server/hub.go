package server

import (
	"net"
	"time"

	"github.com/chat-relay/pkg/logging"
	"github.com/chat-relay/pkg/registry"
)

// runHub is the relay's single logical thread of control. It alone mutates
// the peer registry and writes to peer connections, so no locks guard either.
// Events arrive serialized: accepts, completed lines, and closes in the order
// the readers produced them.
func (s *RelayServer) runHub() {
	ticker := time.NewTicker(s.cfg.GetTickInterval())
	defer ticker.Stop()

	for {
		select {
		case ev := <-s.events:
			switch ev.kind {
			case eventAccept:
				s.handleAccept(ev.conn)
			case eventLine:
				s.handleLine(ev.id, ev.line)
			case eventClose:
				s.teardownPeer(ev.id, ev.cause)
			}
		case <-ticker.C:
			// Liveness hook for periodic work (idle eviction, announcements).
			// Nothing scheduled today; gauges are kept fresh on mutation.
		case <-s.ctx.Done():
			s.teardownAll()
			return
		}
	}
}

// handleAccept registers a freshly accepted connection, or refuses it when
// the registry is at its cap.
func (s *RelayServer) handleAccept(conn net.Conn) {
	if s.peers.Full() {
		logging.Logf("[accept] registry full, refusing peer remote=%s", remoteAddr(conn))
		s.collector.RecordPeerRejected()
		_, _ = conn.Write([]byte("too many connections, try again later\n"))
		_ = conn.Close()
		return
	}

	id := s.nextID
	s.nextID++

	peer, err := s.peers.Add(id, conn)
	if err != nil {
		// Ids are issued monotonically, so this cannot happen short of a bug.
		logging.Logf("[accept] failed to register peer id=%d remote=%s err=%v", id, remoteAddr(conn), err)
		_ = conn.Close()
		return
	}
	s.syncGauges()
	s.collector.RecordPeerAccepted()

	logging.Logf("[accept] peer connected id=%d nick=%s remote=%s total=%d",
		id, peer.Nickname, remoteAddr(conn), s.peers.Count())

	s.writePeer(peer, s.cfg.Relay.Welcome+"\n")

	s.wg.Add(1)
	go s.readLoop(id, conn)
}

// teardownPeer closes the transport and removes the registry entry. Safe to
// call twice for one id; the second call is a no-op.
func (s *RelayServer) teardownPeer(id registry.PeerID, cause string) {
	peer, ok := s.peers.Get(id)
	if !ok {
		return
	}
	logging.Logf("[hub] peer disconnected id=%d nick=%s cause=%s", id, peer.Nickname, cause)
	_ = peer.Conn.Close()
	s.peers.Remove(id)
	s.syncGauges()
	s.collector.RecordDisconnect(cause)
}

// teardownAll drains every live peer during shutdown.
func (s *RelayServer) teardownAll() {
	ids := make([]registry.PeerID, 0, s.peers.Count())
	s.peers.ForEachLive(func(p *registry.Peer) {
		ids = append(ids, p.ID)
	})
	for _, id := range ids {
		s.teardownPeer(id, causeShutdown)
	}
}

// syncGauges refreshes the atomic mirrors the metrics scraper reads.
func (s *RelayServer) syncGauges() {
	s.peersConnected.Store(int64(s.peers.Count()))
	s.highWaterMark.Store(int64(s.peers.HighWaterMark()))
}

func remoteAddr(conn net.Conn) string {
	if conn == nil || conn.RemoteAddr() == nil {
		return ""
	}
	return conn.RemoteAddr().String()
}
