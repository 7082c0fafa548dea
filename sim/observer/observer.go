// Package observer implements a websocket endpoint that streams snapshots of
// a running simulation to any number of subscribed clients.
package observer

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/phlipsje/continuum/sim/world"
)

// Snapshot is the wire form of the state of a simulation at one tick.
type Snapshot struct {
	Tick      int64          `json:"tick"`
	Organisms []OrganismView `json:"organisms"`
}

// OrganismView is the wire form of a single organism.
type OrganismView struct {
	ID   string     `json:"id"`
	Key  string     `json:"key"`
	Pos  [3]float64 `json:"pos"`
	Size float64    `json:"size"`
}

// Observer upgrades HTTP requests to websocket subscriptions and broadcasts
// simulation snapshots to them. Clients that cannot keep up are dropped
// rather than allowed to stall the tick loop.
type Observer struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]chan []byte
}

// New creates an Observer logging to the logger passed, or to slog.Default()
// if nil.
func New(log *slog.Logger) *Observer {
	if log == nil {
		log = slog.Default()
	}
	return &Observer{log: log, conns: make(map[*websocket.Conn]chan []byte)}
}

// ServeHTTP upgrades the request to a websocket subscription. The connection
// is served until the client disconnects or falls too far behind.
func (obs *Observer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := obs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		obs.log.Debug("Observer upgrade failed.", "err", err)
		return
	}
	send := make(chan []byte, 8)
	obs.mu.Lock()
	obs.conns[conn] = send
	obs.mu.Unlock()

	go obs.writeLoop(conn, send)
}

// writeLoop writes queued snapshots to a single client until its channel is
// closed.
func (obs *Observer) writeLoop(conn *websocket.Conn, send chan []byte) {
	defer func() {
		_ = conn.Close()
	}()
	for msg := range send {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			obs.drop(conn)
			return
		}
	}
}

// drop unsubscribes a client.
func (obs *Observer) drop(conn *websocket.Conn) {
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if send, ok := obs.conns[conn]; ok {
		delete(obs.conns, conn)
		close(send)
	}
}

// Broadcast queues a snapshot of the index passed on every subscribed
// client. Clients whose queue is full are dropped.
func (obs *Observer) Broadcast(idx *world.ChunkedIndex) {
	snap := Snapshot{Tick: idx.Tick(), Organisms: make([]OrganismView, 0, idx.OrganismCount())}
	for o := range idx.Organisms() {
		snap.Organisms = append(snap.Organisms, OrganismView{
			ID:   o.ID().String(),
			Key:  o.Key(),
			Pos:  [3]float64(o.Position()),
			Size: o.Size(),
		})
	}
	msg, err := json.Marshal(snap)
	if err != nil {
		obs.log.Error("Observer snapshot encoding failed.", "err", err)
		return
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	for conn, send := range obs.conns {
		select {
		case send <- msg:
		default:
			delete(obs.conns, conn)
			close(send)
		}
	}
}

// Close drops every subscribed client.
func (obs *Observer) Close() {
	obs.mu.Lock()
	defer obs.mu.Unlock()
	for conn, send := range obs.conns {
		delete(obs.conns, conn)
		close(send)
	}
}

// SubscriberCount returns the number of currently subscribed clients.
func (obs *Observer) SubscriberCount() int {
	obs.mu.Lock()
	defer obs.mu.Unlock()
	return len(obs.conns)
}
