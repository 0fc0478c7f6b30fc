package internal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"cardroom/internal/core"
	"cardroom/internal/core/client"
	"cardroom/internal/core/data"
	"cardroom/internal/core/debug"
	"cardroom/internal/game"
	"cardroom/internal/lobby"
)

// Controller is the main entrypoint for the server. It's responsible for
// initializing any shared resources (such as database and logging), defining
// the servers, and launching everything.
type Controller struct {
	Config *core.Config

	logger *logrus.Logger
	wg     sync.WaitGroup

	db      *gorm.DB
	servers []*frontend
}

func (c *Controller) Start(ctx context.Context) error {
	defer c.Shutdown()

	var err error
	// Set up the logger, which will be used by all sub-servers.
	c.logger, err = core.NewLogger(c.Config)
	if err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}

	// Start any debug utilities if we're configured to do so.
	if c.Config.Debugging.PprofEnabled {
		debug.StartUtilities(c.logger, c.Config.Debugging.PprofPort)
	}

	// Hand results are only recorded when a database is configured.
	var recorder game.Recorder
	if c.Config.Database.Enabled {
		c.db, err = data.Initialize(c.Config.DatabaseURL(), c.Config.Debugging.DatabaseLoggingEnabled)
		if err != nil {
			return err
		}
		c.logger.Infof("connected to database %s:%d", c.Config.Database.Host, c.Config.Database.Port)
		recorder = data.NewHandRecorder(c.db, c.logger)
	}

	c.declareServers(recorder)
	return c.run(ctx)
}

// Set up all of the servers we want to run.
func (c *Controller) declareServers(recorder game.Recorder) {
	tableConfig := game.Config{
		SmallBlind:    c.Config.Game.SmallBlind,
		StartingChips: c.Config.Game.StartingChips,
		MaxPlayers:    c.Config.Game.MaxPlayers,
		TurnTimeout:   time.Duration(c.Config.Game.TurnSeconds) * time.Second,
	}

	c.servers = []*frontend{
		{
			Address: c.buildAddress(c.Config.GameServer.Port),
			Backend: &lobby.Server{
				Name:    "GAME",
				Config:  c.Config,
				Logger:  c.logger,
				Clients: client.NewList(),
				Tables:  lobby.NewRegistry(tableConfig, c.logger, recorder),
			},
		},
	}
}

func (c *Controller) run(ctx context.Context) error {
	// Start all of our servers. Failure to initialize one of the registered
	// servers is considered terminal.
	for _, server := range c.servers {
		server.Config = c.Config
		server.Logger = c.logger

		if err := server.Start(ctx, &c.wg); err != nil {
			return fmt.Errorf("error starting %s server: %w", server.Backend.Identifier(), err)
		}
	}

	c.wg.Wait()
	return nil
}

func (c *Controller) buildAddress(port int) string {
	return fmt.Sprintf("%s:%v", c.Config.Hostname, port)
}

func (c *Controller) Shutdown() {
	c.wg.Wait()
	if c.db != nil {
		if err := data.Shutdown(c.db); err != nil {
			c.logger.Errorf("error closing database connection: %v", err)
		}
	}
}
