package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector() *Collector {
	return NewCollector(
		func() int { return 3 },
		func() int64 { return 7 },
	)
}

func TestCollectorGauges(t *testing.T) {
	c := newTestCollector()

	got := testutil.CollectAndCount(c, "chat_relay_peers_connected", "chat_relay_peers_high_water_mark")
	assert.Equal(t, 2, got)
}

func TestCollectorCounters(t *testing.T) {
	t.Setenv("NODE_NAME", "testnode")
	t.Setenv("POD_NAME", "testpod")

	c := newTestCollector()

	c.RecordPeerAccepted()
	c.RecordPeerAccepted()
	c.RecordPeerRejected()
	c.RecordBroadcast()
	c.RecordDirectMessage()
	c.RecordCommand("/nick")
	c.RecordCommandError("/dm", "not_found")
	c.RecordDisconnect("closed")
	c.AddBytesRx(128)
	c.AddBytesTx(256)

	expected := `
# HELP chat_relay_peers_accepted_total Total peer connections accepted
# TYPE chat_relay_peers_accepted_total counter
chat_relay_peers_accepted_total{node="testnode",pod="testpod"} 2
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "chat_relay_peers_accepted_total"))

	assert.Equal(t, 1, testutil.CollectAndCount(c, "chat_relay_commands_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "chat_relay_command_errors_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "chat_relay_disconnects_total"))
}

func TestSplitKey(t *testing.T) {
	cmd, reason := splitKey("/dm:not_found")
	assert.Equal(t, "/dm", cmd)
	assert.Equal(t, "not_found", reason)

	cmd, reason = splitKey("bare")
	assert.Equal(t, "bare", cmd)
	assert.Equal(t, "", reason)
}
