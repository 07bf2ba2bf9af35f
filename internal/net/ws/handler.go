package ws

import (
	"context"
	"errors"
	nethttp "net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"snak8s/internal/net/proto"
	"snak8s/internal/session"
	"snak8s/internal/telemetry"
	"snak8s/logging"
	"snak8s/logging/network"
)

// Inbound drop reasons reported on network.inbound_dropped.
const (
	ReasonMalformed        = "malformed"
	ReasonUnknownType      = "unknown_type"
	ReasonInvalidDirection = "invalid_direction"
	ReasonJoinRejected     = "join_rejected"
)

type HandlerConfig struct {
	Logger     telemetry.Logger
	Publisher  logging.Publisher
	Metrics    telemetry.Metrics
	SendBuffer int
}

// Handler upgrades HTTP requests and runs one session per connection.
type Handler struct {
	router     *session.Router
	logger     telemetry.Logger
	publisher  logging.Publisher
	metrics    telemetry.Metrics
	sendBuffer int
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*Client
	active  atomic.Int64
}

func NewHandler(router *session.Router, cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = telemetry.DiscardLogger()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NopMetrics()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		router:     router,
		logger:     cfg.Logger,
		publisher:  cfg.Publisher,
		metrics:    cfg.Metrics,
		sendBuffer: cfg.SendBuffer,
		upgrader:   upgrader,
		clients:    make(map[string]*Client),
	}
}

// Handle upgrades the request and blocks until the connection ends. Losing
// the connection is an implicit leave.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := newClient(uuid.NewString(), conn, h.sendBuffer, h.publisher)
	h.track(client)
	defer h.untrack(client)

	go client.writePump()
	h.readLoop(client)

	if err := h.router.Disconnect(client.ID()); err != nil && !errors.Is(err, session.ErrUnknownConnection) {
		h.logger.Printf("disconnect %s failed: %v", client.ID(), err)
	}
	client.close()
}

// Close ends every open connection.
func (h *Handler) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
}

// Active reports the number of open connections.
func (h *Handler) Active() int {
	return int(h.active.Load())
}

func (h *Handler) readLoop(client *Client) {
	conn := client.conn
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.logger.Printf("connection %s closed: %v", client.ID(), err)
			}
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("discarding message from %s: %v", client.ID(), err)
			h.dropInbound(client, dropReason(err), len(payload))
			continue
		}

		switch msg.Type {
		case proto.TypeJoin:
			h.join(client, *msg.Join, len(payload))
		case proto.TypeDirection:
			h.router.Direction(client.ID(), msg.Direction.Direction)
		}
	}
}

func (h *Handler) join(client *Client, msg proto.JoinMessage, size int) {
	client.beginJoin()
	joined, err := h.router.Join(client.ID(), client, msg)
	if err != nil {
		client.finishJoin(nil)
		h.logger.Printf("join from %s rejected: %v", client.ID(), err)
		h.dropInbound(client, ReasonJoinRejected, size)
		return
	}

	frame, err := proto.Encode(joined)
	if err != nil {
		client.finishJoin(nil)
		h.logger.Printf("failed to encode joined for %s: %v", client.ID(), err)
		return
	}
	client.finishJoin(frame)
}

func (h *Handler) dropInbound(client *Client, reason string, size int) {
	h.metrics.Add(telemetry.MetricInboundDropped, 1)
	network.InboundDropped(context.Background(), h.publisher, client.ID(), network.InboundDroppedPayload{
		Reason: reason,
		Bytes:  size,
	})
}

func (h *Handler) track(client *Client) {
	h.mu.Lock()
	h.clients[client.ID()] = client
	h.mu.Unlock()
	h.metrics.Store(telemetry.MetricConnections, uint64(h.active.Add(1)))
}

func (h *Handler) untrack(client *Client) {
	h.mu.Lock()
	delete(h.clients, client.ID())
	h.mu.Unlock()
	h.metrics.Store(telemetry.MetricConnections, uint64(h.active.Add(-1)))
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, proto.ErrUnknownType):
		return ReasonUnknownType
	case errors.Is(err, proto.ErrInvalidDirection):
		return ReasonInvalidDirection
	default:
		return ReasonMalformed
	}
}
