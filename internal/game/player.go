package game

import (
	"time"

	"snak8s/internal/net/proto"
)

// Outbound is the capability a room uses to push frames to a player's
// connection. Send must not block; it reports false when the frame was
// skipped because the connection is slow or gone.
type Outbound interface {
	Send(frame []byte) bool
}

// OutboundFunc adapts a function to Outbound.
type OutboundFunc func(frame []byte) bool

func (f OutboundFunc) Send(frame []byte) bool {
	if f == nil {
		return false
	}
	return f(frame)
}

// Player is a snake owned by a Room. Snake is head first and never empty.
type Player struct {
	ID               string
	Name             string
	Theme            Theme
	Snake            []Position
	Direction        Direction
	PendingDirection Direction
	Score            int
	Combo            int
	LastEat          time.Time
	Alive            bool

	outbound Outbound
}

func (p *Player) Head() Position {
	return p.Snake[0]
}

func (p *Player) Length() int {
	return len(p.Snake)
}

func (p *Player) occupies(pos Position) bool {
	for _, segment := range p.Snake {
		if segment == pos {
			return true
		}
	}
	return false
}

// clone returns a copy that shares no slices with the room's player.
func (p *Player) clone() Player {
	cloned := *p
	cloned.Snake = append([]Position(nil), p.Snake...)
	cloned.outbound = nil
	return cloned
}

func (p *Player) wire() proto.PlayerState {
	snake := make([]proto.Point, len(p.Snake))
	for i, segment := range p.Snake {
		snake[i] = proto.Point{X: segment.X, Y: segment.Y}
	}
	return proto.PlayerState{
		ID:    p.ID,
		Name:  p.Name,
		Theme: p.Theme.Wire(),
		Snake: snake,
		Score: p.Score,
		Alive: p.Alive,
		Combo: p.Combo,
	}
}
