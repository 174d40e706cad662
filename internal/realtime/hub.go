// internal/realtime/hub.go
package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/metrics"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/models"
)

const sendBuffer = 64

// Client is one live session. A client with ProjectID == uuid.Nil only
// receives notifications addressed to its user.
type Client struct {
	ID        string
	UserID    uuid.UUID
	ProjectID uuid.UUID
	Send      chan []byte
}

// Event is the frame written to sockets.
type Event struct {
	Type      string          `json:"type"`
	ProjectID uuid.UUID       `json:"project_id"`
	Data      json.RawMessage `json:"data"`
}

const (
	EventChatMessage  = "chat_message"
	EventNotification = "notification"
)

// Hub keeps project rooms of connected clients. With a Redis client every
// publish goes through Redis so that all API instances share the rooms;
// without one it fans out in process.
type Hub struct {
	clients map[string]*Client
	rooms   map[uuid.UUID]map[string]*Client
	mu      sync.RWMutex

	rdb *redis.Client
	log *zap.Logger
}

func NewHub(rdb *redis.Client, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[uuid.UUID]map[string]*Client),
		rdb:     rdb,
		log:     log,
	}
}

func (h *Hub) RegisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	if client.ProjectID != uuid.Nil {
		room := h.rooms[client.ProjectID]
		if room == nil {
			room = make(map[string]*Client)
			h.rooms[client.ProjectID] = room
		}
		room[client.ID] = client
	}
	h.log.Debug("client registered",
		zap.String("client_id", client.ID),
		zap.Stringer("user_id", client.UserID),
		zap.Stringer("project_id", client.ProjectID),
	)
}

// UnregisterClient removes the client and closes its Send channel. Calling
// it twice is harmless.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	old, ok := h.clients[client.ID]
	if !ok {
		return
	}
	delete(h.clients, client.ID)
	if room := h.rooms[old.ProjectID]; room != nil {
		delete(room, old.ID)
		if len(room) == 0 {
			delete(h.rooms, old.ProjectID)
		}
	}
	close(old.Send)
	h.log.Debug("client unregistered", zap.String("client_id", client.ID))
}

// Subscribe joins a project room and returns the client whose Send channel
// streams the room's events. Pair it with Unsubscribe.
func (h *Hub) Subscribe(projectID, userID uuid.UUID) *Client {
	c := &Client{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProjectID: projectID,
		Send:      make(chan []byte, sendBuffer),
	}
	h.RegisterClient(c)
	return c
}

func (h *Hub) Unsubscribe(c *Client) { h.UnregisterClient(c) }

// RoomSize returns the number of sessions in a project room.
func (h *Hub) RoomSize(projectID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[projectID])
}

// Publish relays a stored chat message to the project's room.
func (h *Hub) Publish(ctx context.Context, projectID uuid.UUID, msg models.ChatMessage) {
	payload, err := encode(EventChatMessage, projectID, msg)
	if err != nil {
		h.log.Error("encode chat event", zap.Error(err))
		return
	}
	if h.rdb != nil {
		err := h.rdb.Publish(ctx, chatChannel(projectID), payload).Err()
		if err == nil {
			metrics.RecordRelay(metrics.RelayPublished)
			return
		}
		metrics.RecordRelay(metrics.RelayPublishFailed)
		h.log.Warn("redis publish failed, delivering locally", zap.Stringer("project_id", projectID), zap.Error(err))
	}
	h.SendToProject(projectID, payload)
}

// Notify pushes a notification to every session of one user.
func (h *Hub) Notify(ctx context.Context, userID uuid.UUID, n models.Notification) {
	payload, err := encode(EventNotification, n.ProjectID, n)
	if err != nil {
		h.log.Error("encode notification", zap.Error(err))
		return
	}
	if h.rdb != nil {
		err := h.rdb.Publish(ctx, notifyChannel(userID), payload).Err()
		if err == nil {
			metrics.RecordRelay(metrics.RelayPublished)
			return
		}
		metrics.RecordRelay(metrics.RelayPublishFailed)
		h.log.Warn("redis publish failed, delivering locally", zap.Stringer("user_id", userID), zap.Error(err))
	}
	h.SendToUser(userID, payload)
}

// SendToProject delivers an encoded event to the local room. A session
// whose buffer is full misses the event.
func (h *Hub) SendToProject(projectID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.rooms[projectID] {
		deliver(client, payload)
	}
}

// SendToUser sends message to specific user
func (h *Hub) SendToUser(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.UserID == userID {
			deliver(client, payload)
		}
	}
}

func deliver(client *Client, payload []byte) {
	select {
	case client.Send <- payload:
		metrics.RecordRelay(metrics.RelayDelivered)
	default:
		// full buffer: drop, never block
		metrics.RecordRelay(metrics.RelayDropped)
	}
}

func encode(kind string, projectID uuid.UUID, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: kind, ProjectID: projectID, Data: data})
}

func chatChannel(projectID uuid.UUID) string { return "project:" + projectID.String() + ":chat" }

func notifyChannel(userID uuid.UUID) string { return "notifications:" + userID.String() }

// Run forwards Redis pub/sub traffic to local sessions until ctx ends.
// Without Redis there is nothing to forward and it just waits.
func (h *Hub) Run(ctx context.Context) error {
	if h.rdb == nil {
		<-ctx.Done()
		return nil
	}
	sub := h.rdb.PSubscribe(ctx, "project:*:chat", "notifications:*")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	h.log.Info("relay subscribed to redis")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			h.route(m.Channel, []byte(m.Payload))
		}
	}
}

func (h *Hub) route(channel string, payload []byte) {
	switch {
	case strings.HasPrefix(channel, "notifications:"):
		id, err := uuid.Parse(strings.TrimPrefix(channel, "notifications:"))
		if err != nil {
			h.log.Warn("bad notification channel", zap.String("channel", channel))
			return
		}
		h.SendToUser(id, payload)
	case strings.HasPrefix(channel, "project:") && strings.HasSuffix(channel, ":chat"):
		raw := strings.TrimSuffix(strings.TrimPrefix(channel, "project:"), ":chat")
		id, err := uuid.Parse(raw)
		if err != nil {
			h.log.Warn("bad chat channel", zap.String("channel", channel))
			return
		}
		h.SendToProject(id, payload)
	}
}
