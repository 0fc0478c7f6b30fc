package client

import (
	"container/list"
	"errors"
	"sync"
)

// Registration errors surfaced to the hello handler.
var (
	ErrNameTaken        = errors.New("name already in use")
	ErrAlreadyConnected = errors.New("client already registered")
)

// List is a concurrency-safe collection of the registered clients. A client
// joins the list once its hello request passes the name policy and leaves it
// on disconnect.
type List struct {
	clients *list.List
	sync.RWMutex
}

func NewList() *List {
	return &List{clients: list.New()}
}

// Add registers a client under its name. Names are unique across the server;
// re-registering the same client is also an error.
func (cl *List) Add(c *Client) error {
	cl.Lock()
	defer cl.Unlock()

	for e := cl.clients.Front(); e != nil; e = e.Next() {
		other := e.Value.(*Client)
		if other == c {
			return ErrAlreadyConnected
		}
		if other.Name() == c.Name() {
			return ErrNameTaken
		}
	}

	cl.clients.PushBack(c)
	return nil
}

// Remove takes a client out of the list, if present.
func (cl *List) Remove(c *Client) {
	cl.Lock()
	defer cl.Unlock()

	for e := cl.clients.Front(); e != nil; e = e.Next() {
		if e.Value.(*Client) == c {
			cl.clients.Remove(e)
			break
		}
	}
}

// Len returns the number of registered clients.
func (cl *List) Len() int {
	cl.RLock()
	defer cl.RUnlock()
	return cl.clients.Len()
}

// All returns a snapshot of every registered client.
func (cl *List) All() []*Client {
	cl.RLock()
	defer cl.RUnlock()

	all := make([]*Client, 0, cl.clients.Len())
	for e := cl.clients.Front(); e != nil; e = e.Next() {
		all = append(all, e.Value.(*Client))
	}
	return all
}

// Searching returns every client currently waiting to be matched into a table.
func (cl *List) Searching() []*Client {
	cl.RLock()
	defer cl.RUnlock()

	var searching []*Client
	for e := cl.clients.Front(); e != nil; e = e.Next() {
		c := e.Value.(*Client)
		if c.Status() == StatusSearching {
			searching = append(searching, c)
		}
	}
	return searching
}
