package server

import (
	"time"

	"github.com/chat-relay/pkg/logging"
	"github.com/chat-relay/pkg/protocol"
	"github.com/chat-relay/pkg/registry"
)

// handleLine processes one complete line from a peer: either a slash-command
// or chat text relayed to everyone else.
func (s *RelayServer) handleLine(id registry.PeerID, line string) {
	peer, ok := s.peers.Get(id)
	if !ok {
		// The peer was torn down between the read and this event.
		return
	}

	line = protocol.TrimLine(line)
	if line == "" {
		return
	}

	cmd, isCmd := protocol.ParseCommand(line)
	if !isCmd {
		s.relayChat(peer, line)
		return
	}

	if s.cfg.Log.Level == "debug" {
		logging.Logf("[hub][debug] command from id=%d nick=%s cmd=%s arg=%q", id, peer.Nickname, cmd.Name, cmd.Arg)
	}

	switch cmd.Name {
	case protocol.CmdNick:
		s.handleNick(peer, cmd.Arg)
	case protocol.CmdList:
		s.handleList(peer)
	case protocol.CmdDM:
		s.handleDM(peer, cmd.Arg)
	default:
		s.collector.RecordCommandError(cmd.Name, "unsupported")
		s.reply(peer, protocol.ErrUnsupportedCommand)
	}
}

// relayChat fans a chat line out to every peer but the sender.
func (s *RelayServer) relayChat(sender *registry.Peer, text string) {
	msg := protocol.FormatChat(time.Now(), sender.Nickname, text)
	logging.Logf("[chat] %s> %s", sender.Nickname, text)
	s.sendToAllExcept(sender.ID, msg)
	s.collector.RecordBroadcast()
}

// handleNick replaces the sender's nickname. Uniqueness is not enforced:
// colliding nicknames are legal and /dm resolves to the first match.
func (s *RelayServer) handleNick(peer *registry.Peer, name string) {
	if name == "" {
		s.collector.RecordCommandError(protocol.CmdNick, "usage")
		s.reply(peer, protocol.ErrNickUsage)
		return
	}
	old := peer.Nickname
	peer.Nickname = name
	s.collector.RecordCommand(protocol.CmdNick)
	logging.Logf("[hub] peer renamed id=%d old=%s new=%s", peer.ID, old, name)
	s.reply(peer, "Nickname set to "+name)
}

// handleList replies to the sender only: every live nickname in ascending id
// order, one per line, then a count summary. Read-only over the registry.
func (s *RelayServer) handleList(peer *registry.Peer) {
	for _, nick := range s.peers.Nicknames() {
		s.reply(peer, nick)
	}
	s.reply(peer, protocol.FormatListSummary(s.peers.Count()))
	s.collector.RecordCommand(protocol.CmdList)
}

// handleDM delivers a private message to the first peer matching the target
// nickname. Never broadcast; all failures are reported to the sender only.
func (s *RelayServer) handleDM(peer *registry.Peer, arg string) {
	target, message, ok := protocol.ParseDMArg(arg)
	if !ok {
		s.collector.RecordCommandError(protocol.CmdDM, "usage")
		s.reply(peer, protocol.ErrDMUsage)
		return
	}
	recipient, found := s.peers.ByNickname(target)
	if !found {
		s.collector.RecordCommandError(protocol.CmdDM, "not_found")
		s.reply(peer, protocol.ErrUserNotFound)
		return
	}
	s.writePeer(recipient, protocol.FormatDM(time.Now(), peer.Nickname, message))
	s.collector.RecordCommand(protocol.CmdDM)
	s.collector.RecordDirectMessage()
}

// reply sends a single timestamped line back to the sender.
func (s *RelayServer) reply(peer *registry.Peer, text string) {
	s.writePeer(peer, protocol.FormatReply(time.Now(), text))
}
