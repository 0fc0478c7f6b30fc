// Package client tracks the state of a single connected player and the set of
// all connections.
package client

import (
	"net"
	"strings"
	"sync"
	"time"

	"cardroom/internal/wire"
)

// Status describes where a client is in the flow from connecting to playing.
type Status int

const (
	// StatusIdle means the client is connected but in the main menu.
	StatusIdle Status = iota
	// StatusSearching means the client asked to be matched into a table.
	StatusSearching
	// StatusInGame means the client is at a table as a spectator.
	StatusInGame
	// StatusPlaying means the client is seated at a table.
	StatusPlaying
)

// Client represents one connected player.
type Client struct {
	connection net.Conn
	ipAddr     string
	port       string

	sendMu sync.Mutex

	mu      sync.RWMutex
	name    string
	status  Status
	tableID string

	// Decoder reassembles this connection's request stream. Only the
	// connection's read goroutine touches it.
	Decoder wire.Decoder

	// LastHandledRequestID guards against duplicate delivery of a request.
	// Only the connection's read goroutine touches it.
	LastHandledRequestID uint64

	disconnected bool
}

// NewClient returns a Client wrapping the given connection.
func NewClient(connection net.Conn) *Client {
	addr := strings.Split(connection.RemoteAddr().String(), ":")
	c := &Client{connection: connection, ipAddr: addr[0]}
	if len(addr) > 1 {
		c.port = addr[1]
	}
	return c
}

func (c *Client) IPAddr() string { return c.ipAddr }
func (c *Client) Port() string   { return c.port }

// Name returns the identity the client registered with hello, or "" before that.
func (c *Client) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Client) SetName(name string) {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
}

func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Client) SetStatus(status Status) {
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
}

// TableID returns the id of the table the client is at, or "" if none.
func (c *Client) TableID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

func (c *Client) SetTableID(id string) {
	c.mu.Lock()
	c.tableID = id
	c.mu.Unlock()
}

// Read consumes the available bytes directly from the client's connection.
func (c *Client) Read(b []byte) (int, error) {
	return c.connection.Read(b)
}

// SetReadDeadline bounds the next Read on the underlying connection.
func (c *Client) SetReadDeadline(t time.Time) error {
	return c.connection.SetReadDeadline(t)
}

// Send writes a complete wire record to the client. Sends may happen from the
// table goroutine concurrently with pings from the lobby, so writes are
// serialized here.
func (c *Client) Send(data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	sent := 0
	for sent < len(data) {
		n, err := c.connection.Write(data[sent:])
		if err != nil {
			return err
		}
		sent += n
	}
	return nil
}

// Disconnected reports whether the client has been marked dead. Sends to a
// disconnected client are pointless but harmless.
func (c *Client) Disconnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disconnected
}

// MarkDisconnected flags the client as dead before teardown.
func (c *Client) MarkDisconnected() {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
}

// Close the underlying connection.
func (c *Client) Close() error {
	return c.connection.Close()
}
