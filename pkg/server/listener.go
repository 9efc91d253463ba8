package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/chat-relay/pkg/logging"
	"github.com/chat-relay/pkg/protocol"
	"github.com/chat-relay/pkg/registry"
)

// StartRelayListener binds the relay port and serves until Shutdown.
func (s *RelayServer) StartRelayListener(bindAddr string) error {
	if err := s.Listen(bindAddr); err != nil {
		return err
	}
	return s.Serve()
}

// Listen binds the relay port.
func (s *RelayServer) Listen(bindAddr string) error {
	listener, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %v", bindAddr, err)
	}
	s.listener = listener
	logging.Logf("[listen] relay addr=%s", listener.Addr())
	return nil
}

// Addr returns the bound relay address, nil before Listen.
func (s *RelayServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the accept loop until Shutdown. The hub runs on its own
// goroutine; readers are spawned per peer by the hub.
func (s *RelayServer) Serve() error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runHub()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return nil
			default:
			}
			// Transient accept failures are retried, mirroring the classic
			// retry-on-EINTR accept loop.
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				logging.Logf("[accept] transient error, retrying: %v", err)
				time.Sleep(10 * time.Millisecond)
				continue
			}
			return fmt.Errorf("accept failed: %v", err)
		}

		tuneConn(conn)

		select {
		case s.events <- hubEvent{kind: eventAccept, conn: conn}:
		case <-s.ctx.Done():
			_ = conn.Close()
			return nil
		}
	}
}

// tuneConn applies low-latency socket options. Best effort.
func tuneConn(conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetKeepAlive(true)
	}
}

// readLoop is the per-peer reader goroutine. It owns this peer's line
// assembler and nothing else; every completed line and the final close are
// handed to the hub. One bounded read per iteration.
func (s *RelayServer) readLoop(id registry.PeerID, conn net.Conn) {
	defer s.wg.Done()

	assembler := protocol.NewLineAssembler(s.cfg.Limits.MaxLineBytes)
	buf := make([]byte, s.cfg.Limits.ReadBufferBytes)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			s.collector.AddBytesRx(n)
			lines, feedErr := assembler.Feed(buf[:n])
			for _, line := range lines {
				if !s.emit(hubEvent{kind: eventLine, id: id, line: line}) {
					return
				}
			}
			if feedErr != nil {
				// Oversized line: tear the peer down, never truncate.
				s.emit(hubEvent{kind: eventClose, id: id, cause: causeLineTooLong})
				return
			}
		}
		if err != nil {
			cause := causeReadError
			if errors.Is(err, io.EOF) {
				cause = causeClosed
			}
			s.emit(hubEvent{kind: eventClose, id: id, cause: cause})
			return
		}
	}
}

// emit hands an event to the hub, giving up when the server is stopping.
func (s *RelayServer) emit(ev hubEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}
