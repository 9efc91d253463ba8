package client

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/chat-relay/pkg/logging"
	"github.com/chat-relay/pkg/protocol"
)

// Client is a minimal line-oriented relay client: it dials the relay, pushes
// every inbound server line onto Lines, and sends outbound text with Send.
// Used by tooling and the server's integration tests.
type Client struct {
	conn  net.Conn
	lines chan string

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to a relay at addr and starts the inbound line pump.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to relay %s: %v", addr, err)
	}

	c := &Client{
		conn:  conn,
		lines: make(chan string, 64),
		done:  make(chan struct{}),
	}
	go c.pump()
	return c, nil
}

// Lines returns the channel of inbound server lines, trimmed of their line
// terminator. The channel closes when the connection does.
func (c *Client) Lines() <-chan string {
	return c.lines
}

// Send writes one line of text to the relay, appending the terminator.
func (c *Client) Send(text string) error {
	_, err := c.conn.Write([]byte(text + "\n"))
	if err != nil {
		return fmt.Errorf("failed to send to relay: %v", err)
	}
	return nil
}

// Nick sends a /nick command.
func (c *Client) Nick(name string) error {
	return c.Send(protocol.CmdNick + " " + name)
}

// DM sends a /dm command to the named peer.
func (c *Client) DM(target, message string) error {
	return c.Send(protocol.CmdDM + " " + target + " " + message)
}

// List requests the live nickname list.
func (c *Client) List() error {
	return c.Send(protocol.CmdList)
}

// Close tears down the connection and the line pump.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) pump() {
	defer close(c.lines)
	reader := bufio.NewReader(c.conn)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			select {
			case c.lines <- strings.TrimRight(line, "\r\n"):
			case <-c.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// RunSession maintains a connection to the relay, reconnecting with a fixed
// interval until handler returns nil or maxReconnect attempts are exhausted
// (0 means retry forever). The handler owns the client for the lifetime of
// one connection.
func RunSession(addr string, reconnectInterval time.Duration, maxReconnect int, handler func(*Client) error) error {
	reconnectCount := 0
	for {
		c, err := Dial(addr, 10*time.Second)
		if err != nil {
			logging.Logf("Failed to connect to relay %s: %v", addr, err)
			if maxReconnect > 0 && reconnectCount >= maxReconnect {
				return err
			}
			reconnectCount++
			logging.Logf("Reconnecting to %s in %v (attempt %d)...", addr, reconnectInterval, reconnectCount)
			time.Sleep(reconnectInterval)
			continue
		}

		reconnectCount = 0
		err = handler(c)
		c.Close()
		if err == nil {
			return nil
		}
		logging.Logf("Session with %s ended: %v", addr, err)

		if maxReconnect > 0 && reconnectCount >= maxReconnect {
			return err
		}
		reconnectCount++
		logging.Logf("Reconnecting to %s in %v (attempt %d)...", addr, reconnectInterval, reconnectCount)
		time.Sleep(reconnectInterval)
	}
}
