package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"snak8s/internal/game"
	"snak8s/internal/net/proto"
	"snak8s/internal/rooms"
	"snak8s/internal/telemetry"
)

// DefaultPlayerName is used when a join carries no name.
const DefaultPlayerName = "anonymous-snake"

// ErrUnknownConnection is returned for operations on a connection that never
// joined.
var ErrUnknownConnection = errors.New("connection not bound to a room")

type binding struct {
	roomID   string
	playerID string
}

// Router binds connections to the room and player they joined and forwards
// their events. Bindings are not persisted; a reconnect is a fresh join.
type Router struct {
	registry *rooms.Registry
	logger   telemetry.Logger

	mu       sync.Mutex
	bindings map[string]binding
}

func NewRouter(registry *rooms.Registry, logger telemetry.Logger) *Router {
	if logger == nil {
		logger = telemetry.DiscardLogger()
	}
	return &Router{
		registry: registry,
		logger:   logger,
		bindings: make(map[string]binding),
	}
}

// Join places the connection's player in the requested room. A connection
// that already joined leaves its previous room first.
func (r *Router) Join(connID string, outbound game.Outbound, msg proto.JoinMessage) (proto.JoinedMessage, error) {
	playerID := strings.TrimSpace(msg.PlayerID)
	if playerID == "" {
		playerID = uuid.NewString()
	}
	name := strings.TrimSpace(msg.PlayerName)
	if name == "" {
		name = DefaultPlayerName
	}
	theme := ""
	if msg.Theme != nil {
		theme = msg.Theme.Name
	}
	roomID := rooms.NormalizeRoomID(msg.RoomID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, ok := r.bindings[connID]; ok {
		delete(r.bindings, connID)
		r.registry.Leave(previous.roomID, previous.playerID)
	}

	_, _, err := r.registry.Join(roomID, game.JoinRequest{
		PlayerID: playerID,
		Name:     name,
		Theme:    theme,
		Outbound: outbound,
	})
	if err != nil {
		return proto.JoinedMessage{}, fmt.Errorf("connection %s: %w", connID, err)
	}
	r.bindings[connID] = binding{roomID: roomID, playerID: playerID}
	r.logger.Printf("connection %s joined room %s as %s", connID, roomID, playerID)

	return proto.NewJoined(playerID, game.WireThemes()), nil
}

// Direction forwards a direction vector to the connection's player. It
// reports whether the room accepted the change; unbound connections and
// rejected vectors are ignored.
func (r *Router) Direction(connID string, vector proto.Point) bool {
	r.mu.Lock()
	bound, ok := r.bindings[connID]
	r.mu.Unlock()
	if !ok {
		return false
	}

	room, ok := r.registry.Lookup(bound.roomID)
	if !ok {
		return false
	}
	dir, ok := game.DirectionFromVector(vector.X, vector.Y, room.Config().Grid.CellSize)
	if !ok {
		return false
	}
	return room.ChangeDirection(bound.playerID, dir)
}

// Disconnect removes the connection's player from its room.
func (r *Router) Disconnect(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bound, ok := r.bindings[connID]
	if !ok {
		return ErrUnknownConnection
	}
	delete(r.bindings, connID)
	remaining, _ := r.registry.Leave(bound.roomID, bound.playerID)
	r.logger.Printf("connection %s left room %s (%d remaining)", connID, bound.roomID, remaining)
	return nil
}

// Binding reports the room and player a connection is bound to.
func (r *Router) Binding(connID string) (roomID, playerID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bound, ok := r.bindings[connID]
	return bound.roomID, bound.playerID, ok
}

// Len reports the number of bound connections.
func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bindings)
}
