package rooms

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"snak8s/internal/game"
	"snak8s/internal/net/proto"
	"snak8s/internal/telemetry"
	"snak8s/logging"
	"snak8s/logging/lifecycle"
)

// ErrClosed is returned by Join once the registry has been shut down.
var ErrClosed = errors.New("room registry closed")

// Config is shared by every room the registry creates.
type Config struct {
	// Room is the template for new rooms. Its RNG is ignored; each room gets
	// its own generator derived from Seed and the room id.
	Room game.Config
	// Seed makes room randomness reproducible. Empty seeds from the clock.
	Seed string
	// ManualTicks leaves new rooms stopped so callers drive Room.Step.
	ManualTicks bool
}

// Registry maps room ids to live rooms. A room exists exactly while it has
// at least one player.
type Registry struct {
	cfg Config

	mu     sync.Mutex
	rooms  map[string]*game.Room
	closed bool
}

func NewRegistry(cfg Config) *Registry {
	if cfg.Room.Publisher == nil {
		cfg.Room.Publisher = logging.NopPublisher()
	}
	if cfg.Room.Logger == nil {
		cfg.Room.Logger = telemetry.DiscardLogger()
	}
	if cfg.Room.Metrics == nil {
		cfg.Room.Metrics = telemetry.NopMetrics()
	}
	return &Registry{cfg: cfg, rooms: make(map[string]*game.Room)}
}

// NormalizeRoomID maps blank ids to the default room.
func NormalizeRoomID(roomID string) string {
	if strings.TrimSpace(roomID) == "" {
		return proto.DefaultRoomID
	}
	return roomID
}

// Join places a player in roomID, creating and starting the room if needed.
// Creation and the join happen under the registry lock, so a concurrent
// Leave cannot release a room a player is entering.
func (r *Registry) Join(roomID string, req game.JoinRequest) (*game.Room, game.Player, error) {
	roomID = NormalizeRoomID(roomID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, game.Player{}, ErrClosed
	}

	room, created := r.getOrCreateLocked(roomID)
	player, err := room.Join(req)
	if err != nil {
		if created {
			r.releaseLocked(room)
		}
		return nil, game.Player{}, fmt.Errorf("join room %s: %w", roomID, err)
	}
	return room, player, nil
}

// Leave removes the player and releases the room once it is empty. The
// returned count is the number of players left in the room.
func (r *Registry) Leave(roomID, playerID string) (int, bool) {
	roomID = NormalizeRoomID(roomID)

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return 0, false
	}
	remaining, ok := room.Leave(playerID)
	if !ok {
		return remaining, false
	}
	if remaining == 0 {
		r.releaseLocked(room)
	}
	return remaining, true
}

func (r *Registry) Lookup(roomID string) (*game.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[NormalizeRoomID(roomID)]
	return room, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Diagnostics reports every live room ordered by id.
func (r *Registry) Diagnostics() []game.Diagnostics {
	r.mu.Lock()
	rooms := make([]*game.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.Unlock()

	out := make([]game.Diagnostics, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Diagnostics())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close stops every room and rejects further joins. It is safe to call more
// than once.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for _, room := range r.rooms {
		r.releaseLocked(room)
	}
}

func (r *Registry) getOrCreateLocked(roomID string) (*game.Room, bool) {
	if room, ok := r.rooms[roomID]; ok {
		return room, false
	}

	cfg := r.cfg.Room
	cfg.RNG = game.NewRoomRNG(r.cfg.Seed, roomID)
	room := game.NewRoom(roomID, cfg)
	r.rooms[roomID] = room
	if !r.cfg.ManualTicks {
		room.Start()
	}

	r.cfg.Room.Metrics.Add(telemetry.MetricRoomsCreated, 1)
	r.cfg.Room.Metrics.Store(telemetry.MetricRoomsActive, uint64(len(r.rooms)))
	lifecycle.RoomCreated(context.Background(), r.cfg.Room.Publisher, roomID, lifecycle.RoomPayload{
		TickIntervalMillis: room.Config().TickInterval.Milliseconds(),
	})
	r.cfg.Room.Logger.Printf("room %s created", roomID)
	return room, true
}

// releaseLocked stops the room's loop and forgets it. The tick never takes
// the registry lock, so waiting for the loop here cannot deadlock.
func (r *Registry) releaseLocked(room *game.Room) {
	room.Stop()
	delete(r.rooms, room.ID())

	r.cfg.Room.Metrics.Add(telemetry.MetricRoomsDestroyed, 1)
	r.cfg.Room.Metrics.Store(telemetry.MetricRoomsActive, uint64(len(r.rooms)))
	lifecycle.RoomDestroyed(context.Background(), r.cfg.Room.Publisher, room.ID(), lifecycle.RoomPayload{
		TickIntervalMillis: room.Config().TickInterval.Milliseconds(),
		Ticks:              room.Tick(),
	})
	r.cfg.Room.Logger.Printf("room %s destroyed after %d ticks", room.ID(), room.Tick())
}
