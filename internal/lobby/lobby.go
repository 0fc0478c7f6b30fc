// Package lobby implements the client-facing backend: identification, pings,
// matchmaking and routing of game traffic to tables.
package lobby

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"cardroom/internal/core"
	"cardroom/internal/core/client"
	"cardroom/internal/wire"
)

const (
	nameLengthMin = 3
	nameLengthMax = 20

	matchmakingInterval = time.Second
)

// namePattern matches runs of the characters allowed in a player name: ASCII
// letters and digits plus most Latin letters with diacritics.
var namePattern = regexp.MustCompile(`[a-zA-Z0-9\x{00C0}-\x{00F6}\x{00F8}-\x{01BF}\x{01C4}-\x{024F}]+`)

// pingRecord remembers the token and send time of the last ping pushed to a
// client so the echoed token can be matched and the latency measured.
type pingRecord struct {
	token  string
	sentAt time.Time
}

// Server is the lobby backend. Every connection lands here; the lobby owns
// the hello handshake, the ping clock and matchmaking, and forwards game data
// to the client's table.
type Server struct {
	Name   string
	Config *core.Config
	Logger *logrus.Logger

	Clients *client.List
	Tables  *Registry

	pings *cache.Cache
}

func (s *Server) Identifier() string {
	return s.Name
}

func (s *Server) Init(ctx context.Context) error {
	interval := s.pingInterval()
	s.pings = cache.New(2*interval, time.Minute)

	go s.pingLoop(ctx, interval)
	go s.matchmakingLoop(ctx)
	return nil
}

func (s *Server) pingInterval() time.Duration {
	return time.Duration(s.Config.GameServer.PingInterval) * time.Second
}

func (s *Server) SetUpClient(c *client.Client) {
	c.SetStatus(client.StatusIdle)
}

// Handle processes one decoded request from a client. A non-nil return tears
// the connection down.
func (s *Server) Handle(ctx context.Context, c *client.Client, req wire.Request) error {
	if req.ID == c.LastHandledRequestID {
		// Duplicate delivery is a protocol violation, never a re-execution.
		return fmt.Errorf("duplicate delivery of request %d from %s", req.ID, c.IPAddr())
	}

	var err error
	switch req.Type {
	case wire.TypeHello:
		err = s.handleHello(c, req)
	case wire.TypePing:
		err = s.handlePingEcho(c, req)
	case wire.TypeSearchOpponent:
		err = s.handleSearch(c, req)
	case wire.TypeGameInfo:
		s.Tables.Deliver(c, req.Payload)
	default:
		s.Logger.Infof("received unknown request %#02x from %s", req.Type, c.IPAddr())
	}
	if err != nil {
		return err
	}

	c.LastHandledRequestID = req.ID
	return nil
}

// HandleDisconnect detaches a dropped client from its table and the registry.
func (s *Server) HandleDisconnect(c *client.Client) {
	c.MarkDisconnected()
	s.Tables.PlayerDisconnect(c)
	s.Clients.Remove(c)
	s.pings.Delete(pingKey(c))
}

// handleHello validates the client's requested name and registers it. The
// reply mirrors the hello type with either the accepted name or an error code;
// a failed hello closes the connection.
func (s *Server) handleHello(c *client.Client, req wire.Request) error {
	name := string(req.Payload)

	if !utf8.ValidString(name) {
		return s.rejectHello(c, wire.ErrCodeInvalidUsername, "name is not valid UTF-8")
	}

	if utf8.RuneCountInString(name) < nameLengthMin {
		return s.rejectHello(c, wire.ErrCodeUsernameTooShort, fmt.Sprintf("name %q is too short", name))
	}
	if utf8.RuneCountInString(name) > nameLengthMax {
		return s.rejectHello(c, wire.ErrCodeUsernameTooLong, fmt.Sprintf("name %q is too long", name))
	}

	// The name must consist solely of allowed characters separated by single
	// spaces, with none leading or trailing.
	if parsed := strings.Join(namePattern.FindAllString(name, -1), " "); name != parsed {
		return s.rejectHello(c, wire.ErrCodeInvalidUsername, fmt.Sprintf("name %q contains invalid characters", name))
	}

	c.SetName(name)
	if err := s.Clients.Add(c); err != nil {
		switch err {
		case client.ErrNameTaken:
			return s.rejectHello(c, wire.ErrCodeNameTaken, fmt.Sprintf("name %q is already in use", name))
		case client.ErrAlreadyConnected:
			return s.rejectHello(c, wire.ErrCodeAlreadyConnected, fmt.Sprintf("client %s is already registered", c.IPAddr()))
		default:
			return err
		}
	}

	s.Logger.Infof("client %s identified as %q", c.IPAddr(), name)
	return c.Send(wire.Message(wire.TypeHello, name))
}

func (s *Server) rejectHello(c *client.Client, code byte, reason string) error {
	s.Logger.Infof("rejecting hello from %s: %s", c.IPAddr(), reason)
	if err := c.Send(wire.CodeMessage(wire.TypeHello, code)); err != nil {
		return err
	}
	return fmt.Errorf("hello rejected: %s", reason)
}

// handleSearch marks the client as waiting for a seat. A client already at a
// table leaves it first.
func (s *Server) handleSearch(c *client.Client, req wire.Request) error {
	if len(req.Payload) == 0 || req.Payload[0] == wire.GameTypeNone {
		return nil
	}

	if status := c.Status(); status == client.StatusInGame || status == client.StatusPlaying {
		s.Logger.Infof("%s is searching for a game but is already at a table", c.Name())
		s.Tables.PlayerDisconnect(c)
	}

	c.SetStatus(client.StatusSearching)
	s.Logger.Infof("%s is now searching for a game", c.Name())
	return c.Send(wire.CodeMessage(wire.TypeSearchOpponent, wire.SearchAcknowledged))
}

// pingLoop periodically pushes a ping with a fresh token to every registered
// client. Clients that cannot be written to are left for their read loop to
// reap.
func (s *Server) pingLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, c := range s.Clients.All() {
				if c.Disconnected() {
					continue
				}
				token := uuid.NewString()
				s.pings.SetDefault(pingKey(c), pingRecord{token: token, sentAt: time.Now()})
				if err := c.Send(wire.Message(wire.TypePing, token)); err != nil {
					s.Logger.Debugf("ping to %s failed: %v", c.Name(), err)
				}
			}
		}
	}
}

// handlePingEcho answers a client's echo of a server ping. The response
// carries the measured round trip in milliseconds when the echoed token
// matches the one last sent; a stale or unknown token yields an empty
// response.
func (s *Server) handlePingEcho(c *client.Client, req wire.Request) error {
	var fields []string
	if entry, ok := s.pings.Get(pingKey(c)); ok {
		record := entry.(pingRecord)
		if record.token == string(req.Payload) {
			latency := time.Since(record.sentAt).Milliseconds()
			fields = append(fields, strconv.FormatInt(latency, 10))
		}
	}
	return c.Send(wire.Message(wire.TypePingResponse, fields...))
}

func pingKey(c *client.Client) string {
	return c.IPAddr() + ":" + c.Port()
}

// matchmakingLoop periodically sweeps up searching clients and places them at
// the fullest table with open seats, opening a new table when none exists.
func (s *Server) matchmakingLoop(ctx context.Context) {
	ticker := time.NewTicker(matchmakingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.matchMake(ctx)
		}
	}
}

func (s *Server) matchMake(ctx context.Context) {
	searchers := s.Clients.Searching()
	if len(searchers) == 0 {
		return
	}

	table := s.Tables.FindJoinable()
	if table == nil {
		table = s.Tables.Create(ctx)
		s.Logger.Infof("opened table %s for %d searching clients", table.ID, len(searchers))
	}

	for _, c := range searchers {
		if err := c.Send(wire.CodeMessage(wire.TypeSearchOpponent, wire.OpponentFound)); err != nil {
			s.Logger.Debugf("failed to notify %s of a match: %v", c.Name(), err)
			continue
		}
		c.SetStatus(client.StatusInGame)
		table.Join(c)
	}
}
