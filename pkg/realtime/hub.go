// Package realtime fans JSON messages out to websocket subscribers grouped by topic.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrHubStopped is returned by Publish once Run has exited.
var ErrHubStopped = errors.New("realtime hub stopped")

// Message is the frame written to subscribers.
type Message struct {
	Type   string      `json:"type"`
	Topic  string      `json:"topic"`
	Data   interface{} `json:"data"`
	SentAt time.Time   `json:"sent_at"`
}

// SnapshotFunc loads the message a new subscriber of topic receives before
// any broadcast.
type SnapshotFunc func(ctx context.Context, topic string) (msgType string, data interface{}, err error)

const snapshotTimeout = 2 * time.Second

type outbound struct {
	topic   string
	payload []byte
}

type direct struct {
	client  *Client
	payload []byte
}

// Hub tracks subscribers per topic. All membership changes and sends happen on
// the Run goroutine.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
	prime      chan direct
	done       chan struct{}
	snapshot   SnapshotFunc

	mu     sync.RWMutex
	counts map[string]int

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub builds a hub. An empty allowedOrigins accepts any origin.
func NewHub(logger *zap.Logger, allowedOrigins []string) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[strings.TrimRight(origin, "/")] = struct{}{}
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 64),
		prime:      make(chan direct),
		done:       make(chan struct{}),
		counts:     make(map[string]int),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				_, ok := origins[strings.TrimRight(r.Header.Get("Origin"), "/")]
				return ok
			},
		},
		logger: logger,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for topic, clients := range h.clients {
			for client := range clients {
				close(client.send)
			}
			delete(h.clients, topic)
		}
		h.mu.Lock()
		h.counts = make(map[string]int)
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			if _, ok := h.clients[client.topic]; !ok {
				h.clients[client.topic] = make(map[*Client]struct{})
			}
			h.clients[client.topic][client] = struct{}{}
			h.setCount(client.topic, len(h.clients[client.topic]))
			h.logger.Debug("realtime client registered", zap.String("topic", client.topic), zap.String("addr", client.addr))
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.broadcast:
			for client := range h.clients[msg.topic] {
				client.live = true
				h.deliver(client, msg.payload)
			}
		case msg := <-h.prime:
			// A broadcast already delivered is at least as fresh as the snapshot.
			if _, ok := h.clients[msg.client.topic][msg.client]; !ok || msg.client.live {
				continue
			}
			h.deliver(msg.client, msg.payload)
		}
	}
}

// SetSnapshot installs the loader used to prime new subscribers. Call it
// before the hub starts serving.
func (h *Hub) SetSnapshot(fn SnapshotFunc) {
	h.snapshot = fn
}

// Publish queues msgType/data for every subscriber of topic.
func (h *Hub) Publish(ctx context.Context, topic, msgType string, data interface{}) error {
	payload, err := encode(topic, msgType, data)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- outbound{topic: topic, payload: payload}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Count returns the number of subscribers on topic.
func (h *Hub) Count(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.counts[topic]
}

// Serve upgrades the request and subscribes the connection to topic. It
// returns once the connection is registered and, when a snapshot loader is
// set, primed; pumps run in the background.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, topic string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade websocket: %w", err)
	}
	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, 16),
		topic: topic,
		addr:  conn.RemoteAddr().String(),
	}
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return ErrHubStopped
	}
	go client.writePump()
	go client.readPump()
	h.primeClient(r.Context(), client)
	return nil
}

func (h *Hub) primeClient(ctx context.Context, client *Client) {
	if h.snapshot == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	msgType, data, err := h.snapshot(ctx, client.topic)
	if err != nil {
		h.logger.Warn("load realtime snapshot failed", zap.String("topic", client.topic), zap.Error(err))
		return
	}
	payload, err := encode(client.topic, msgType, data)
	if err != nil {
		h.logger.Warn("encode realtime snapshot failed", zap.String("topic", client.topic), zap.Error(err))
		return
	}
	select {
	case h.prime <- direct{client: client, payload: payload}:
	case <-h.done:
	case <-ctx.Done():
	}
}

func (h *Hub) deliver(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		h.logger.Warn("dropping slow realtime client", zap.String("topic", client.topic), zap.String("addr", client.addr))
		h.remove(client)
	}
}

func encode(topic, msgType string, data interface{}) ([]byte, error) {
	payload, err := json.Marshal(Message{Type: msgType, Topic: topic, Data: data, SentAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("marshal realtime message: %w", err)
	}
	return payload, nil
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.topic]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.topic)
	}
	h.setCount(client.topic, len(clients))
}

func (h *Hub) setCount(topic string, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n == 0 {
		delete(h.counts, topic)
		return
	}
	h.counts[topic] = n
}
