package internal

import (
	"context"

	"cardroom/internal/core/client"
	"cardroom/internal/wire"
)

// Backend is an interface for a sub-server that handles a specific set of
// client interactions as part of the game flow.
type Backend interface {
	// Identifier returns a uniquely identifying string.
	Identifier() string

	// Init is called before a Backend is started as a hook for the Backend to
	// perform any necessary initialization before it can accept clients.
	Init(ctx context.Context) error

	// SetUpClient performs any initialization on the Client needed to be
	// able to begin the session.
	SetUpClient(c *client.Client)

	// Handle is the main entry point for processing client requests. It's
	// responsible for handling every decoded request from a client as well as
	// sending any responses. Returning an error closes the connection.
	Handle(ctx context.Context, c *client.Client, req wire.Request) error

	// HandleDisconnect is invoked once the client's connection has been torn
	// down, whether by the client or by the server.
	HandleDisconnect(c *client.Client)
}
