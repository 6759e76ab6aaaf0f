// Package notify is an in-process stand-in for database change
// notifications: every successful write publishes a (table, op) event and
// subscribers re-fetch wholesale. No debouncing and no diffing; data volumes
// are small enough that redundant re-fetches are acceptable.
package notify

import (
	"sync"
)

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

type Event struct {
	Table string `json:"table"`
	Op    Op     `json:"op"`
}

type subscriber struct {
	tables map[string]bool // empty means all tables
	ch     chan Event
}

type Hub struct {
	mu     sync.Mutex
	nextId int
	subs   map[int]*subscriber
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[int]*subscriber),
	}
}

// Subscribe registers interest in the given tables (none means every table)
// and returns the event channel plus a cancel function. Events for slow
// subscribers are dropped rather than blocking writers.
func (h *Hub) Subscribe(tables ...string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &subscriber{
		tables: make(map[string]bool, len(tables)),
		ch:     make(chan Event, 16),
	}
	for _, table := range tables {
		sub.tables[table] = true
	}

	id := h.nextId
	h.nextId++
	h.subs[id] = sub

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if s, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

func (h *Hub) Publish(table string, op Op) {
	h.mu.Lock()
	defer h.mu.Unlock()

	event := Event{Table: table, Op: op}
	for _, sub := range h.subs {
		if len(sub.tables) > 0 && !sub.tables[table] {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
