package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/aeroguard/aeroguard-api/internal/model"
	"github.com/redis/go-redis/v9"
)

const redisChannel = "aeroguard:measurements"

// Hub fans out live measurement events to connected dashboard clients.
// With a Redis client it uses Pub/Sub so every API instance delivers events
// regardless of which instance ingested them; without one it degrades to
// local-only fan-out (single-instance deployments, tests).
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *model.WSEvent

	rdb *redis.Client // nil => local-only
}

// NewHub creates a measurement event hub. rdb may be nil.
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *model.WSEvent, 256),
		rdb:        rdb,
	}
}

// Run starts the Hub's main event loop
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case event := <-h.broadcast:
			h.broadcastToLocal(event)
		}
	}
}

// Register queues a client for registration with the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// PublishMeasurement emits a new-measurement event to all subscribers. It is
// fire-and-forget: a full local buffer drops the event rather than stalling
// the ingest path, and the returned error is for the caller's log only.
func (h *Hub) PublishMeasurement(event model.MeasurementEvent) error {
	wsEvent := &model.WSEvent{
		Type:    model.WSEventNewMeasurement,
		Payload: event,
	}

	if h.rdb != nil {
		data, err := json.Marshal(wsEvent)
		if err != nil {
			return err
		}
		return h.rdb.Publish(context.Background(), redisChannel, data).Err()
	}

	select {
	case h.broadcast <- wsEvent:
		return nil
	default:
		return errors.New("event buffer full, dropping measurement event")
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	log.Printf("✅ WS client connected (filter=%q, total: %d)", client.DeviceFilter, len(h.clients))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	log.Printf("❌ WS client disconnected (total: %d)", len(h.clients))
}

// broadcastToLocal delivers an event to every local client whose device
// filter matches.
func (h *Hub) broadcastToLocal(event *model.WSEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling broadcast event: %v", err)
		return
	}

	deviceID := eventDeviceID(event)
	for client := range h.clients {
		if client.DeviceFilter != "" && client.DeviceFilter != deviceID {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Client's send buffer is full, close connection
			close(client.send)
			delete(h.clients, client)
		}
	}
}

// ClientCount reports the number of connected local clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func eventDeviceID(event *model.WSEvent) string {
	if me, ok := event.Payload.(model.MeasurementEvent); ok {
		return me.DeviceID
	}
	return ""
}

// subscribeRedis delivers Pub/Sub events from other instances to local clients
func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	log.Println("📡 Redis Pub/Sub subscriber started")

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			var event struct {
				Type    string                 `json:"type"`
				Payload model.MeasurementEvent `json:"payload"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("Error unmarshaling Redis message: %v", err)
				continue
			}
			h.broadcastToLocal(&model.WSEvent{Type: event.Type, Payload: event.Payload})
		}
	}
}
