package proto

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client message type identifiers.
const (
	TypeJoin      = "join"
	TypeDirection = "direction"
)

// Server message type identifiers.
const (
	TypeJoined    = "joined"
	TypeGameState = "gameState"
	TypeComment   = "comment"
)

// DefaultRoomID is used when a join does not name a room.
const DefaultRoomID = "default"

var (
	// ErrMalformed wraps frames that are not valid JSON objects of the expected shape.
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownType is returned for frames whose type is not a client message.
	ErrUnknownType = errors.New("unknown message type")
	// ErrInvalidDirection is returned when a direction vector is not axis-aligned.
	ErrInvalidDirection = errors.New("invalid direction vector")
)

// Theme is the visual identity a client picks and the server echoes back.
type Theme struct {
	Name  string `json:"name" jsonschema:"title=Theme name,minLength=1"`
	Color string `json:"color" jsonschema:"title=Hex color,pattern=^#[0-9A-Fa-f]{6}$"`
	Logo  string `json:"logo" jsonschema:"title=Glyph drawn on the snake head"`
}

// Point is a grid-aligned pixel coordinate or a direction vector.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// JoinMessage asks the server to place the connection's player in a room.
type JoinMessage struct {
	Type       string `json:"type" jsonschema:"enum=join"`
	PlayerID   string `json:"playerId" jsonschema:"description=Client generated player id; the server assigns one when empty"`
	PlayerName string `json:"playerName"`
	RoomID     string `json:"roomId,omitempty" jsonschema:"description=Room to join or create; defaults to default"`
	Theme      *Theme `json:"theme,omitempty"`
}

// DirectionMessage queues the next heading for the connection's player.
type DirectionMessage struct {
	Type      string `json:"type" jsonschema:"enum=direction"`
	Direction Point  `json:"direction" jsonschema:"description=Exactly one axis non-zero with magnitude equal to the cell size"`
}

// JoinedMessage acknowledges a join.
type JoinedMessage struct {
	Type     string  `json:"type" jsonschema:"enum=joined"`
	PlayerID string  `json:"playerId"`
	Themes   []Theme `json:"themes"`
}

// PlayerState is one player entry in a game state snapshot.
type PlayerState struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Theme Theme   `json:"theme"`
	Snake []Point `json:"snake" jsonschema:"description=Head first"`
	Score int     `json:"score"`
	Alive bool    `json:"alive"`
	Combo int     `json:"combo"`
}

// FoodState is one food entry in a game state snapshot.
type FoodState struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Type string `json:"type"`
}

// GameStateMessage is the full room snapshot broadcast every tick.
type GameStateMessage struct {
	Type    string        `json:"type" jsonschema:"enum=gameState"`
	Players []PlayerState `json:"players"`
	Food    []FoodState   `json:"food"`
}

// CommentMessage is sent to a player in the tick its snake dies.
type CommentMessage struct {
	Type    string `json:"type" jsonschema:"enum=comment"`
	Message string `json:"message"`
}

// Inbound is a decoded client frame. Exactly one of the payload pointers is
// set, matching Type.
type Inbound struct {
	Type      string
	Join      *JoinMessage
	Direction *DirectionMessage
}

type envelope struct {
	Type string `json:"type"`
}

// DecodeClientMessage parses a raw websocket frame into an Inbound message.
func DecodeClientMessage(payload []byte) (Inbound, error) {
	var head envelope
	if err := json.Unmarshal(payload, &head); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch head.Type {
	case TypeJoin:
		var msg JoinMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return Inbound{}, fmt.Errorf("%w: join: %v", ErrMalformed, err)
		}
		if msg.RoomID == "" {
			msg.RoomID = DefaultRoomID
		}
		return Inbound{Type: TypeJoin, Join: &msg}, nil
	case TypeDirection:
		var msg DirectionMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return Inbound{}, fmt.Errorf("%w: direction: %v", ErrMalformed, err)
		}
		if !axisAligned(msg.Direction) {
			return Inbound{}, fmt.Errorf("%w: (%d,%d)", ErrInvalidDirection, msg.Direction.X, msg.Direction.Y)
		}
		return Inbound{Type: TypeDirection, Direction: &msg}, nil
	default:
		return Inbound{}, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
	}
}

func axisAligned(p Point) bool {
	return (p.X == 0) != (p.Y == 0)
}

// NewJoined builds a joined acknowledgement.
func NewJoined(playerID string, themes []Theme) JoinedMessage {
	if themes == nil {
		themes = []Theme{}
	}
	return JoinedMessage{Type: TypeJoined, PlayerID: playerID, Themes: themes}
}

// NewGameState builds a gameState snapshot; nil slices are encoded as [].
func NewGameState(players []PlayerState, food []FoodState) GameStateMessage {
	if players == nil {
		players = []PlayerState{}
	}
	if food == nil {
		food = []FoodState{}
	}
	return GameStateMessage{Type: TypeGameState, Players: players, Food: food}
}

// NewComment builds a comment message.
func NewComment(message string) CommentMessage {
	return CommentMessage{Type: TypeComment, Message: message}
}

// Encode renders any server message as a JSON frame.
func Encode(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", msg, err)
	}
	return data, nil
}
