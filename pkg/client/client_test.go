package client

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chat-relay/pkg/config"
	"github.com/chat-relay/pkg/server"
)

var timestampRE = regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2}\] `)

func startRelay(t *testing.T) *server.RelayServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.SetDefaults()

	s, err := server.NewRelayServer(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Listen("127.0.0.1:0"))
	go func() {
		_ = s.Serve()
	}()
	t.Cleanup(s.Shutdown)
	return s
}

func nextLine(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case line, ok := <-c.Lines():
		require.True(t, ok, "connection closed")
		return timestampRE.ReplaceAllString(line, "")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server line")
		return ""
	}
}

func TestClientChat(t *testing.T) {
	s := startRelay(t)

	a, err := Dial(s.Addr().String(), time.Second)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	assert.Contains(t, nextLine(t, a), "Welcome")

	b, err := Dial(s.Addr().String(), time.Second)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	assert.Contains(t, nextLine(t, b), "Welcome")

	require.NoError(t, a.Nick("alice"))
	assert.Equal(t, "Nickname set to alice", nextLine(t, a))

	require.NoError(t, a.Send("hello all"))
	assert.Equal(t, "alice> hello all", nextLine(t, b))

	require.NoError(t, b.Nick("bob"))
	assert.Equal(t, "Nickname set to bob", nextLine(t, b))

	require.NoError(t, a.DM("bob", "just you"))
	assert.Equal(t, "DM from alice: just you", nextLine(t, b))

	require.NoError(t, a.List())
	assert.Equal(t, "alice", nextLine(t, a))
	assert.Equal(t, "bob", nextLine(t, a))
	assert.Equal(t, "Number of connected users: 2", nextLine(t, a))
}

func TestClientLinesCloseOnDisconnect(t *testing.T) {
	s := startRelay(t)

	c, err := Dial(s.Addr().String(), time.Second)
	require.NoError(t, err)
	assert.Contains(t, nextLine(t, c), "Welcome")

	c.Close()
	select {
	case _, ok := <-c.Lines():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("lines channel did not close")
	}
}

func TestRunSessionGivesUpAfterMaxReconnect(t *testing.T) {
	// Nothing listens here; RunSession must stop after the attempt budget.
	err := RunSession("127.0.0.1:1", 10*time.Millisecond, 2, func(c *Client) error {
		t.Fatal("handler must not run without a connection")
		return nil
	})
	assert.Error(t, err)
}
