package internal

import (
	"context"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"cardroom/internal/core"
	"cardroom/internal/core/client"
	coredebug "cardroom/internal/core/debug"
)

var (
	connectedClientsMu sync.Mutex
	connectedClients   = make(map[string]*client.Client)
)

func connectedClientCount() int {
	connectedClientsMu.Lock()
	defer connectedClientsMu.Unlock()
	return len(connectedClients)
}

// frontend implements the concurrent client connection logic.
//
// Data is read from any connected clients and decoded into requests that are
// passed to a backend instance, abstracting the lower level connection
// details away from the Backends.
type frontend struct {
	Address string
	Backend Backend
	Config  *core.Config
	Logger  *logrus.Logger
}

// Start initializes the server backend and opens a TCP socket for the
// specified server. A blocking loop for accepting client connections is spun
// off in its own goroutine and added to the WaitGroup. Context cancellations
// will stop the server.
func (f *frontend) Start(ctx context.Context, wg *sync.WaitGroup) error {
	if err := f.Backend.Init(ctx); err != nil {
		return fmt.Errorf("error initializing %s server: %v", f.Backend.Identifier(), err)
	}

	socket, err := f.createSocket()
	if err != nil {
		return fmt.Errorf("error creating socket on %s: %v", f.Address, err)
	}

	wg.Add(1)
	go f.startBlockingLoop(ctx, socket, wg)

	return nil
}

// createSocket opens a TCP socket to listen for client connections on the
// Address provided to the frontend.
func (f *frontend) createSocket() (*net.TCPListener, error) {
	hostAddr, err := net.ResolveTCPAddr("tcp", f.Address)
	if err != nil {
		return nil, fmt.Errorf("error resolving address %s", err.Error())
	}

	socket, err := net.ListenTCP("tcp", hostAddr)
	if err != nil {
		return nil, fmt.Errorf("error listening on socket: %s", err.Error())
	}

	return socket, nil
}

// startBlockingLoop implements a connection handling loop that's purely
// responsible for accepting new connections and spinning off goroutines for
// the Backend to handle them.
func (f *frontend) startBlockingLoop(ctx context.Context, socket *net.TCPListener, wg *sync.WaitGroup) {
	defer wg.Done()

	f.Logger.Printf("[%s] waiting for connections on %v", f.Backend.Identifier(), f.Address)

	connections := make(chan *net.TCPConn)
	go func() {
		for {
			// Poll until we can accept more clients.
			for connectedClientCount() > f.Config.MaxConnections {
				time.Sleep(10 * time.Second)
			}

			connection, err := socket.AcceptTCP()
			if err != nil {
				f.Logger.Warnf("failed to accept connection: %s", err.Error())
				continue
			}

			connections <- connection
		}
	}()

	clientWg := &sync.WaitGroup{}
handleLoop:
	for {
		select {
		case <-ctx.Done():
			break handleLoop
		case connection := <-connections:
			clientWg.Add(1)
			go f.acceptClient(ctx, connection, clientWg)
		}
	}

	f.Logger.Infof("[%v] shutting down (waiting for connections to close)", f.Backend.Identifier())
	clientWg.Wait()
	f.Logger.Infof("[%v] exited", f.Backend.Identifier())
}

// acceptClient takes a connection and initiates a session by setting up the
// Client before moving into the request processing loop.
func (f *frontend) acceptClient(ctx context.Context, connection *net.TCPConn, wg *sync.WaitGroup) {
	defer wg.Done()

	c := client.NewClient(connection)
	f.Backend.SetUpClient(c)

	f.Logger.Infof("[%s] accepted connection from %s:%s", f.Backend.Identifier(), c.IPAddr(), c.Port())

	addr := c.IPAddr() + ":" + c.Port()
	connectedClientsMu.Lock()
	connectedClients[addr] = c
	connectedClientsMu.Unlock()

	f.processRequests(ctx, c)
}

// processRequests starts a blocking loop dedicated to reading data sent from
// a game client and only returns once the connection has closed.
func (f *frontend) processRequests(ctx context.Context, c *client.Client) {
	defer f.closeConnectionAndRecover(f.Backend.Identifier(), c)

	idleTimeout := time.Duration(f.Config.GameServer.IdleTimeout) * time.Second
	buffer := make([]byte, 256)

	for {
		select {
		case <-ctx.Done():
			// Just allow the deferred function to close the connection.
			return
		default:
		}

		if idleTimeout > 0 {
			if err := c.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
				f.Logger.Warnf("failed to set read deadline for %s: %v", c.IPAddr(), err)
			}
		}

		// A read may return data together with EOF, so any received bytes are
		// decoded and handled before the connection state is acted on.
		n, err := c.Read(buffer)
		if n > 0 {
			requests, decodeErr := c.Decoder.Feed(buffer[:n])
			for _, req := range requests {
				if f.Config.Debugging.PacketLoggingEnabled {
					f.Logger.Debugf("[%s] received request from %s:\n%s",
						f.Backend.Identifier(), c.IPAddr(), coredebug.DumpRequest(req))
				}

				if err := f.Backend.Handle(ctx, c, req); err != nil {
					f.Logger.Warnf("error in client communication: %s", err)
					return
				}
			}
			// Requests decoded ahead of a protocol error are still handled;
			// the stream itself cannot be resynced afterwards.
			if decodeErr != nil {
				f.Logger.Warnf("protocol error from %s: %v", c.IPAddr(), decodeErr)
				break
			}
		}

		if n == 0 || err == io.EOF {
			break
		} else if err != nil {
			f.Logger.Warnf("socket error (%s): %v", c.IPAddr(), err)
			break
		}
	}
}

// closeConnectionAndRecover is the failsafe that catches any panics,
// disconnects the client, and removes them from the list regardless of the
// state of the connection.
func (f *frontend) closeConnectionAndRecover(serverName string, c *client.Client) {
	if err := recover(); err != nil {
		f.Logger.Errorf("error in client communication with %s: error=%s, trace: %s",
			c.IPAddr(), err, debug.Stack())
	}

	f.Backend.HandleDisconnect(c)

	if err := c.Close(); err != nil {
		f.Logger.Warnf("failed to close client connection: %s", err)
	}

	connectedClientsMu.Lock()
	delete(connectedClients, c.IPAddr()+":"+c.Port())
	connectedClientsMu.Unlock()

	f.Logger.Infof("[%s] disconnected client %s", serverName, c.IPAddr())
}
