package lifecycle

import (
	"context"

	"snak8s/logging"
)

const (
	// EventPlayerJoined is emitted when a player enters a room.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerLeft is emitted when a player's session leaves a room.
	EventPlayerLeft logging.EventType = "lifecycle.player_left"
	// EventRoomCreated is emitted when the first join creates a room.
	EventRoomCreated logging.EventType = "lifecycle.room_created"
	// EventRoomDestroyed is emitted when the last player leaves a room.
	EventRoomDestroyed logging.EventType = "lifecycle.room_destroyed"
)

// PlayerJoinedPayload captures spawn metadata for a new player.
type PlayerJoinedPayload struct {
	Name   string `json:"name"`
	Theme  string `json:"theme"`
	SpawnX int    `json:"spawnX"`
	SpawnY int    `json:"spawnY"`
}

// PlayerLeftPayload captures the final state of a departing player.
type PlayerLeftPayload struct {
	Score     int  `json:"score"`
	Alive     bool `json:"alive"`
	Remaining int  `json:"remaining"`
}

// RoomPayload describes the room a lifecycle event refers to.
type RoomPayload struct {
	TickIntervalMillis int64  `json:"tickIntervalMillis,omitempty"`
	Ticks              uint64 `json:"ticks,omitempty"`
}

// PlayerJoined publishes a player join event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, room string, tick uint64, playerID string, payload PlayerJoinedPayload) {
	publish(ctx, pub, logging.Event{
		Type:    EventPlayerJoined,
		Tick:    tick,
		Room:    room,
		Actor:   logging.PlayerRef(playerID),
		Payload: payload,
	})
}

// PlayerLeft publishes a player leave event.
func PlayerLeft(ctx context.Context, pub logging.Publisher, room string, tick uint64, playerID string, payload PlayerLeftPayload) {
	publish(ctx, pub, logging.Event{
		Type:    EventPlayerLeft,
		Tick:    tick,
		Room:    room,
		Actor:   logging.PlayerRef(playerID),
		Payload: payload,
	})
}

// RoomCreated publishes a room creation event.
func RoomCreated(ctx context.Context, pub logging.Publisher, room string, payload RoomPayload) {
	publish(ctx, pub, logging.Event{
		Type:    EventRoomCreated,
		Room:    room,
		Actor:   logging.RoomRef(room),
		Payload: payload,
	})
}

// RoomDestroyed publishes a room teardown event.
func RoomDestroyed(ctx context.Context, pub logging.Publisher, room string, payload RoomPayload) {
	publish(ctx, pub, logging.Event{
		Type:    EventRoomDestroyed,
		Tick:    payload.Ticks,
		Room:    room,
		Actor:   logging.RoomRef(room),
		Payload: payload,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Severity = logging.SeverityInfo
	event.Category = logging.CategoryLifecycle
	pub.Publish(ctx, event)
}
