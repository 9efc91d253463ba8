package registry

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubConn is a do-nothing net.Conn for registry tests.
type stubConn struct{}

func (stubConn) Read(b []byte) (int, error)         { return 0, nil }
func (stubConn) Write(b []byte) (int, error)        { return len(b), nil }
func (stubConn) Close() error                       { return nil }
func (stubConn) LocalAddr() net.Addr                { return nil }
func (stubConn) RemoteAddr() net.Addr               { return nil }
func (stubConn) SetDeadline(t time.Time) error      { return nil }
func (stubConn) SetReadDeadline(t time.Time) error  { return nil }
func (stubConn) SetWriteDeadline(t time.Time) error { return nil }

func TestAddAssignsDefaultNickname(t *testing.T) {
	r := New(0)

	p, err := r.Add(5, stubConn{})
	require.NoError(t, err)
	assert.Equal(t, "user:5", p.Nickname)
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, PeerID(5), r.HighWaterMark())
}

func TestAddDuplicateID(t *testing.T) {
	r := New(0)

	_, err := r.Add(1, stubConn{})
	require.NoError(t, err)
	_, err = r.Add(1, stubConn{})
	assert.ErrorIs(t, err, ErrDuplicatePeer)
	assert.Equal(t, 1, r.Count())
}

func TestRegistryFull(t *testing.T) {
	r := New(2)

	_, err := r.Add(1, stubConn{})
	require.NoError(t, err)
	_, err = r.Add(2, stubConn{})
	require.NoError(t, err)
	assert.True(t, r.Full())

	_, err = r.Add(3, stubConn{})
	assert.ErrorIs(t, err, ErrRegistryFull)

	r.Remove(1)
	assert.False(t, r.Full())
}

func TestCountTracksAddRemove(t *testing.T) {
	r := New(0)

	for id := PeerID(1); id <= 5; id++ {
		_, err := r.Add(id, stubConn{})
		require.NoError(t, err)
	}
	assert.Equal(t, 5, r.Count())

	r.Remove(2)
	r.Remove(4)
	r.Remove(4) // no-op
	assert.Equal(t, 3, r.Count())
}

func TestHighWaterMarkRecomputedOnRemoval(t *testing.T) {
	r := New(0)

	for _, id := range []PeerID{3, 7, 12} {
		_, err := r.Add(id, stubConn{})
		require.NoError(t, err)
	}
	assert.Equal(t, PeerID(12), r.HighWaterMark())

	// Removing a non-holder leaves the mark alone.
	r.Remove(7)
	assert.Equal(t, PeerID(12), r.HighWaterMark())

	// Removing the holder scans down to the next live id.
	r.Remove(12)
	assert.Equal(t, PeerID(3), r.HighWaterMark())

	r.Remove(3)
	assert.Equal(t, NoPeers, r.HighWaterMark())
	assert.Equal(t, 0, r.Count())
}

func TestForEachLiveAscendingOrder(t *testing.T) {
	r := New(0)

	for _, id := range []PeerID{9, 2, 6} {
		_, err := r.Add(id, stubConn{})
		require.NoError(t, err)
	}

	var order []PeerID
	r.ForEachLive(func(p *Peer) {
		order = append(order, p.ID)
	})
	assert.Equal(t, []PeerID{2, 6, 9}, order)
}

func TestForEachLiveToleratesRemovalMidPass(t *testing.T) {
	r := New(0)

	for id := PeerID(1); id <= 4; id++ {
		_, err := r.Add(id, stubConn{})
		require.NoError(t, err)
	}

	var visited []PeerID
	r.ForEachLive(func(p *Peer) {
		visited = append(visited, p.ID)
		if p.ID == 1 {
			// A removal triggered while processing this peer's line must not
			// lead to visiting a freed entry.
			r.Remove(3)
		}
	})
	assert.Equal(t, []PeerID{1, 2, 4}, visited)
}

func TestByNicknameFirstMatchWins(t *testing.T) {
	r := New(0)

	a, err := r.Add(1, stubConn{})
	require.NoError(t, err)
	b, err := r.Add(2, stubConn{})
	require.NoError(t, err)

	// Nicknames may collide; lookup resolves to the lowest id.
	a.Nickname = "dup"
	b.Nickname = "dup"

	found, ok := r.ByNickname("dup")
	require.True(t, ok)
	assert.Equal(t, PeerID(1), found.ID)

	_, ok = r.ByNickname("nobody")
	assert.False(t, ok)
}

func TestNicknames(t *testing.T) {
	r := New(0)

	p1, err := r.Add(1, stubConn{})
	require.NoError(t, err)
	_, err = r.Add(2, stubConn{})
	require.NoError(t, err)

	p1.Nickname = "alice"
	assert.Equal(t, []string{"alice", "user:2"}, r.Nicknames())
}
