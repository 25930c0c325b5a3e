// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

// Package hub broadcasts per-frame scene event snapshots to websocket
// consumers. Slow clients are dropped, never waited on; the event
// pipeline must not be throttled by a stalled UI.
package hub

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/parallax-vision/sceneflow/internal/logging"
	"github.com/parallax-vision/sceneflow/internal/metrics"
	"github.com/parallax-vision/sceneflow/internal/scene"
)

// Message types sent over the wire.
const (
	MessageTypeEvents = "scene_events"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
)

// Message is one websocket frame.
type Message struct {
	Type  string `json:"type"`
	Scene string `json:"scene,omitempty"`
	When  string `json:"when,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// Hub maintains the set of active clients and fans event snapshots out
// to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
}

// New returns a hub ready to Serve.
func New() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Serve runs the hub loop until ctx is canceled, then closes every
// connected client. Lifecycle events are drained before broadcasts so
// client state is consistent when a message fans out.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.register:
			h.addClient(client)
			continue
		case client := <-h.unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (h *Hub) String() string {
	return "event-hub"
}

// BroadcastEvents queues one scene's event snapshot. A full queue drops
// the message rather than blocking the pipeline.
func (h *Hub) BroadcastEvents(sceneName string, when time.Time, snapshot scene.Snapshot) {
	msg := Message{
		Type:  MessageTypeEvents,
		Scene: sceneName,
		When:  when.UTC().Format(time.RFC3339Nano),
		Data:  snapshot,
	}
	select {
	case h.broadcast <- msg:
	default:
		logging.Warn().Str("scene", sceneName).Msg("hub queue full, dropping event snapshot")
		metrics.HubMessagesDropped.Inc()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.HubClients.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("hub client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	metrics.HubClients.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("hub client disconnected")
}

// fanOut delivers one message to every client in id order. Clients whose
// send buffer is full are disconnected on the spot.
func (h *Hub) fanOut(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var dropped []*Client
	for _, client := range clients {
		select {
		case client.send <- msg:
		default:
			dropped = append(dropped, client)
		}
	}
	for _, client := range dropped {
		close(client.send)
		delete(h.clients, client)
		metrics.HubMessagesDropped.Inc()
		logging.Warn().Uint64("client", client.id).Msg("dropping slow hub client")
	}
	metrics.HubClients.Set(float64(len(h.clients)))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.HubClients.Set(0)
	logging.Info().Msg("event hub stopped, all clients closed")
}
