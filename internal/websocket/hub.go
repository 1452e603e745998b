package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"sricli/internal/infrastructure"
	"sricli/pkg/contracts/events"
)

// Hub fans frames out to every connected client. Registration, removal
// and broadcasts all flow through channels into a single run loop, so the
// client set is only mutated from one goroutine.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool

	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	quit    chan struct{}
	stopped chan struct{}
}

// NewHub creates a hub. The metrics set may be nil, for example in the
// standalone CLI binaries.
func NewHub(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Start launches the run loop. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop terminates the run loop and closes every client send channel,
// which makes the write pumps emit a close frame and exit. It blocks
// until the loop has drained.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.stopped
}

func (h *Hub) run() {
	defer close(h.stopped)
	defer h.closeAll()

	for {
		select {
		case <-h.quit:
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case frame := <-h.broadcast:
			h.fanOut(frame)
		}
	}
}

// Broadcast queues one frame for every connected client. A zero envelope
// timestamp is filled in. When the queue is full the frame is dropped
// with a warning instead of blocking the caller.
func (h *Hub) Broadcast(msg events.Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast frame",
			slog.String("type", string(msg.Type)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- frame:
	default:
		h.logger.Warn("broadcast queue full, frame dropped",
			slog.String("type", string(msg.Type)))
	}
}

// Register hands a new client to the run loop.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.send)
	}
}

// drop asks the run loop to forget a client. Safe to call after Stop.
func (h *Hub) drop(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	ctx := context.Background()
	if client.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, client.traceID)
	}
	infrastructure.RecordWSConnectionChange(ctx, h.metrics, 1)
	h.logger.InfoContext(ctx, "client registered",
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr),
		slog.Int("total_clients", count))

	welcome := events.Message{
		Type:      events.MessageTypeConnect,
		Data:      events.ConnectionData{Status: "connected", ClientID: client.id},
		Timestamp: time.Now().UTC(),
		TraceID:   client.traceID,
	}
	frame, err := json.Marshal(welcome)
	if err != nil {
		return
	}
	select {
	case client.send <- frame:
	default:
		h.logger.WarnContext(ctx, "welcome frame dropped, client buffer full",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	count := len(h.clients)
	h.mu.Unlock()
	close(client.send)

	ctx := context.Background()
	if client.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, client.traceID)
	}
	infrastructure.RecordWSConnectionChange(ctx, h.metrics, -1)
	h.logger.InfoContext(ctx, "client unregistered",
		slog.String("client_id", client.id),
		slog.Duration("connected_for", time.Since(client.connectedAt)),
		slog.Int("total_clients", count))
}

func (h *Hub) fanOut(frame []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, client := range clients {
		select {
		case client.send <- frame:
			delivered++
		default:
			// The client stopped draining its queue, cut it loose.
			h.logger.Warn("evicting slow client",
				slog.String("client_id", client.id))
			h.removeClient(client)
		}
	}

	infrastructure.RecordWSBroadcast(context.Background(), h.metrics, int64(delivered))
}

// closeAll runs on the loop goroutine after shutdown, so no send can
// race with the channel closes.
func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()

	for client := range clients {
		close(client.send)
	}
	if len(clients) > 0 {
		infrastructure.RecordWSConnectionChange(context.Background(), h.metrics, -int64(len(clients)))
	}
	h.logger.Info("hub stopped", slog.Int("clients_closed", len(clients)))
}
