package game

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingOutbound struct {
	mu     sync.Mutex
	frames [][]byte
	reject bool
}

func (o *recordingOutbound) Send(frame []byte) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.reject {
		return false
	}
	o.frames = append(o.frames, append([]byte(nil), frame...))
	return true
}

func (o *recordingOutbound) types(t *testing.T) []string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	types := make([]string, 0, len(o.frames))
	for _, frame := range o.frames {
		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(frame, &envelope); err != nil {
			t.Fatalf("failed to decode frame %s: %v", frame, err)
		}
		types = append(types, envelope.Type)
	}
	return types
}

func newTestRoom(t *testing.T, clock *manualClock) *Room {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Clock = clock
	cfg.RNG = NewDeterministicRNG("room-test", t.Name())
	return NewRoom("test", cfg)
}

func mustJoin(t *testing.T, r *Room, id string, out Outbound) Player {
	t.Helper()
	player, err := r.Join(JoinRequest{PlayerID: id, Name: id, Outbound: out})
	if err != nil {
		t.Fatalf("join %s failed: %v", id, err)
	}
	return player
}

// setSnake places a player's snake and commits dir as both the current and
// the pending heading.
func setSnake(t *testing.T, r *Room, id string, dir Direction, segments ...Position) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.index[id]
	if !ok {
		t.Fatalf("unknown player %s", id)
	}
	player.Snake = append([]Position(nil), segments...)
	player.Direction = dir
	player.PendingDirection = dir
}

// setFood replaces the food list. Unused slots are parked in the bottom row
// far from the cells tests move through.
func setFood(t *testing.T, r *Room, items ...FoodItem) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.food = append([]FoodItem(nil), items...)
	for i := 0; len(r.food) < r.cfg.FoodTarget; i++ {
		r.food = append(r.food, FoodItem{
			Position: Position{X: r.cfg.Grid.Width - (i+1)*r.cfg.Grid.CellSize, Y: r.cfg.Grid.Height - r.cfg.Grid.CellSize},
			Kind:     FoodKubernetes,
		})
	}
}

func pos(x, y int) Position {
	return Position{X: x, Y: y}
}
