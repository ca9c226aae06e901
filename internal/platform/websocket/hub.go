// Package websocket pushes transient events (toasts, collection changes) to
// connected browsers. Clients join topics; a new connection starts on the
// toast topic.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Topics every client may join.
const (
	ToastTopic         = "toast"
	NotificationsTopic = "notifications"
)

// Event is the envelope written to clients.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Toast is a short-lived message shown by the client. Variant is "default"
// or "destructive".
type Toast struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant"`
}

// ClientMessage is an inbound subscription change.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// Client is a single connection.
type Client struct {
	ID     string
	Topics []string
	Send   chan []byte
}

// Hub tracks clients and their topics. Safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> clients
	all     map[*Client]struct{}
	log     zerolog.Logger
	now     func() time.Time
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		log:     log,
		now:     time.Now,
	}
}

// Register adds client and joins its initial topics.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.all[client] = struct{}{}
	h.join(client, client.Topics)
}

// Unregister drops client and closes its Send channel. Calling it twice is
// harmless.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.all[client]; !ok {
		return
	}
	h.leave(client, client.Topics)
	delete(h.all, client)
	close(client.Send)
}

func (h *Hub) join(client *Client, topics []string) {
	for _, topic := range topics {
		if h.clients[topic] == nil {
			h.clients[topic] = make(map[*Client]struct{})
		}
		h.clients[topic][client] = struct{}{}
	}
}

func (h *Hub) leave(client *Client, topics []string) {
	for _, topic := range topics {
		if subs, ok := h.clients[topic]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.clients, topic)
			}
		}
	}
}

// Apply handles a subscribe or unsubscribe message. Unknown actions are
// ignored.
func (h *Hub) Apply(client *Client, msg ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch msg.Action {
	case "subscribe":
		var added []string
		for _, t := range msg.Topics {
			if !contains(client.Topics, t) {
				added = append(added, t)
			}
		}
		h.join(client, added)
		client.Topics = append(client.Topics, added...)
	case "unsubscribe":
		h.leave(client, msg.Topics)
		kept := client.Topics[:0]
		for _, t := range client.Topics {
			if !contains(msg.Topics, t) {
				kept = append(kept, t)
			}
		}
		client.Topics = kept
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Publish encodes payload into an Event and sends it to the topic's
// subscribers. Slow clients whose buffer is full miss the event.
func (h *Hub) Publish(_ context.Context, topic, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	msg, err := json.Marshal(Event{Type: eventType, Topic: topic, Timestamp: h.now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	dropped := 0
	for client := range h.clients[topic] {
		select {
		case client.Send <- msg:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.log.Warn().Str("topic", topic).Int("dropped", dropped).Msg("websocket clients too slow, event dropped")
	}
	return nil
}

// PublishToast sends t on the toast topic.
func (h *Hub) PublishToast(ctx context.Context, t Toast) error {
	if t.Variant == "" {
		t.Variant = "default"
	}
	return h.Publish(ctx, ToastTopic, "toast", t)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// Handler upgrades HTTP requests and runs the read/write pumps.
type Handler struct {
	hub      *Hub
	upgrader gorillawebsocket.Upgrader
}

// NewHandler builds a Handler. An empty allowedOrigins list, or one holding
// "*", accepts any origin.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	return &Handler{
		hub: hub,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

func (wh *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", wh.HandleConnect)
}

// HandleConnect upgrades the connection and subscribes it to toasts.
func (wh *Handler) HandleConnect(c echo.Context) error {
	ws, err := wh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	client := &Client{
		ID:     uuid.NewString(),
		Topics: []string{ToastTopic},
		Send:   make(chan []byte, 64),
	}
	wh.hub.Register(client)
	wh.hub.log.Debug().Str("client", client.ID).Msg("websocket connected")

	go wh.writePump(client, ws)
	go wh.readPump(client, ws)
	return nil
}

func (wh *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		wh.hub.Unregister(client)
		ws.Close()
		wh.hub.log.Debug().Str("client", client.ID).Msg("websocket disconnected")
	}()
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		wh.hub.Apply(client, msg)
	}
}

func (wh *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	defer ws.Close()
	for msg := range client.Send {
		if err := ws.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			return
		}
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, msg); err != nil {
			return
		}
	}
}
