package server

import (
	"time"

	"github.com/chat-relay/pkg/logging"
	"github.com/chat-relay/pkg/registry"
)

// sendToAllExcept writes text to every live peer except the excluded one, in
// ascending id order. Delivery is best-effort: no retry, no partial-write
// recovery. A peer that cannot keep up eventually fails its own read and is
// torn down there.
func (s *RelayServer) sendToAllExcept(excluded registry.PeerID, text string) {
	s.peers.ForEachLive(func(p *registry.Peer) {
		if p.ID == excluded {
			return
		}
		s.writePeer(p, text)
	})
}

// writePeer writes one formatted line to a single peer. The write deadline
// bounds how long one stuck peer can stall the hub; failures are logged at
// debug level and otherwise silently accepted.
func (s *RelayServer) writePeer(p *registry.Peer, text string) {
	_ = p.Conn.SetWriteDeadline(time.Now().Add(s.cfg.GetWriteTimeout()))
	n, err := p.Conn.Write([]byte(text))
	_ = p.Conn.SetWriteDeadline(time.Time{})
	if n > 0 {
		s.collector.AddBytesTx(n)
	}
	if err != nil && s.cfg.Log.Level == "debug" {
		logging.Logf("[hub][debug] write failed id=%d nick=%s err=%v", p.ID, p.Nickname, err)
	}
}
