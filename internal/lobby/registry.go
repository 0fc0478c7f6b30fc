package lobby

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cardroom/internal/core/client"
	"cardroom/internal/game"
)

// Registry tracks every live table and routes game traffic to them. Tables
// remove themselves once their last participant leaves.
type Registry struct {
	logger   *logrus.Logger
	tableCfg game.Config
	recorder game.Recorder

	mu     sync.RWMutex
	tables map[string]*game.Table
}

func NewRegistry(tableCfg game.Config, logger *logrus.Logger, recorder game.Recorder) *Registry {
	return &Registry{
		logger:   logger,
		tableCfg: tableCfg,
		recorder: recorder,
		tables:   make(map[string]*game.Table),
	}
}

// Create opens a new table and starts its control loop.
func (r *Registry) Create(ctx context.Context) *game.Table {
	table := game.NewTable(uuid.NewString(), r.tableCfg, r.logger, r.recorder, r.remove)

	r.mu.Lock()
	r.tables[table.ID] = table
	r.mu.Unlock()

	go table.Run(ctx)
	return table
}

func (r *Registry) remove(table *game.Table) {
	r.mu.Lock()
	delete(r.tables, table.ID)
	r.mu.Unlock()
	r.logger.Infof("removed table %s, %d tables remain", table.ID, r.Count())
}

// FindJoinable returns the fullest table that still has an open seat, or nil
// when every table is full or none exist.
func (r *Registry) FindJoinable() *game.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *game.Table
	bestSeated := -1
	for _, table := range r.tables {
		seated := table.SeatedCount()
		if seated > bestSeated && seated < table.MaxPlayers() {
			best = table
			bestSeated = seated
		}
	}
	return best
}

// Get returns the table with the given id, or nil.
func (r *Registry) Get(id string) *game.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tables[id]
}

// Count returns the number of live tables.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

// Deliver hands a game data payload to the table the client is at.
func (r *Registry) Deliver(c *client.Client, payload []byte) {
	table := r.Get(c.TableID())
	if table == nil {
		r.logger.Debugf("dropping game data from %s: not at a table", c.Name())
		return
	}
	table.Deliver(c, payload)
}

// PlayerDisconnect detaches the client from whatever table it occupies.
func (r *Registry) PlayerDisconnect(c *client.Client) {
	if table := r.Get(c.TableID()); table != nil {
		table.Leave(c)
	}
}
