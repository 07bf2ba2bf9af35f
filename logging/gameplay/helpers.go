package gameplay

import (
	"context"

	"snak8s/logging"
)

const (
	// EventPlayerDied is emitted once per death, in the tick it happens.
	EventPlayerDied logging.EventType = "gameplay.player_died"
	// EventFoodEaten is emitted when a snake head consumes a food item.
	EventFoodEaten logging.EventType = "gameplay.food_eaten"
)

// Death causes reported in PlayerDiedPayload.
const (
	CauseSelf   = "self"
	CausePlayer = "player"
	CauseHeadOn = "head_on"
)

// PlayerDiedPayload captures why and where a snake died.
type PlayerDiedPayload struct {
	Cause  string `json:"cause"`
	Other  string `json:"other,omitempty"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Length int    `json:"length"`
	Score  int    `json:"score"`
}

// FoodEatenPayload captures scoring details for a consumed food item.
type FoodEatenPayload struct {
	Kind   string `json:"kind"`
	Points int    `json:"points"`
	Bonus  int    `json:"bonus,omitempty"`
	Combo  int    `json:"combo"`
	Score  int    `json:"score"`
}

// PlayerDied publishes a death event.
func PlayerDied(ctx context.Context, pub logging.Publisher, room string, tick uint64, playerID string, payload PlayerDiedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerDied,
		Tick:     tick,
		Room:     room,
		Actor:    logging.PlayerRef(playerID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}

// FoodEaten publishes a debug event for every consumed food item.
func FoodEaten(ctx context.Context, pub logging.Publisher, room string, tick uint64, playerID string, payload FoodEatenPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventFoodEaten,
		Tick:     tick,
		Room:     room,
		Actor:    logging.PlayerRef(playerID),
		Severity: logging.SeverityDebug,
		Category: logging.CategoryGameplay,
		Payload:  payload,
	})
}
