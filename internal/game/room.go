package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"snak8s/internal/net/proto"
	"snak8s/internal/sim"
	"snak8s/internal/telemetry"
	"snak8s/logging"
	"snak8s/logging/gameplay"
	"snak8s/logging/lifecycle"
	"snak8s/logging/simulation"
)

const (
	DefaultFoodTarget  = 5
	DefaultComboWindow = 2000 * time.Millisecond
)

var (
	// ErrDuplicatePlayer is returned when a join reuses an id already present in the room.
	ErrDuplicatePlayer = errors.New("player already in room")
	// ErrMissingPlayerID is returned when a join carries no player id.
	ErrMissingPlayerID = errors.New("missing player id")
)

// Config tunes a single room. Zero values fall back to the defaults.
type Config struct {
	Grid         Grid
	TickInterval time.Duration
	FoodTarget   int
	ComboWindow  time.Duration

	Clock     logging.Clock
	RNG       *rand.Rand
	Publisher logging.Publisher
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
}

func DefaultConfig() Config {
	return Config{
		Grid:         DefaultGrid(),
		TickInterval: sim.DefaultTickInterval,
		FoodTarget:   DefaultFoodTarget,
		ComboWindow:  DefaultComboWindow,
	}
}

func (c Config) normalized(roomID string) Config {
	c.Grid = c.Grid.Normalized()
	if c.TickInterval <= 0 {
		c.TickInterval = sim.DefaultTickInterval
	}
	if c.FoodTarget <= 0 {
		c.FoodTarget = DefaultFoodTarget
	}
	if c.ComboWindow <= 0 {
		c.ComboWindow = DefaultComboWindow
	}
	if c.Clock == nil {
		c.Clock = logging.SystemClock{}
	}
	if c.RNG == nil {
		c.RNG = NewRoomRNG("", roomID)
	}
	if c.Publisher == nil {
		c.Publisher = logging.NopPublisher()
	}
	if c.Logger == nil {
		c.Logger = telemetry.DiscardLogger()
	}
	if c.Metrics == nil {
		c.Metrics = telemetry.NopMetrics()
	}
	return c
}

// JoinRequest carries what a session knows about a new player.
type JoinRequest struct {
	PlayerID string
	Name     string
	Theme    string
	Outbound Outbound
}

// Death records a player that died during a step.
type Death struct {
	PlayerID string
	Cause    string
	Other    string
}

// Meal records a food item consumed during a step.
type Meal struct {
	PlayerID string
	Kind     FoodKind
	Points   int
	Bonus    int
	Combo    int
}

// StepReport summarizes one tick.
type StepReport struct {
	Tick          uint64
	Deaths        []Death
	Meals         []Meal
	FrameBytes    int
	FramesSent    int
	FramesDropped int
}

// Diagnostics is the read-only view of a room served on /diagnostics.
type Diagnostics struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
	Alive   int    `json:"alive"`
	Food    int    `json:"food"`
	Tick    uint64 `json:"tick"`
}

type tickRecorder interface {
	RecordTickDuration(room string, duration time.Duration)
}

// Room is one arena: its players, its food and the loop that advances them.
// Every mutation and every step takes mu, so a step is never observed half
// applied and direction changes land between ticks.
type Room struct {
	id  string
	cfg Config

	mu      sync.Mutex
	players []*Player
	index   map[string]*Player
	food    []FoodItem
	tick    uint64

	loop          *sim.Loop
	overrunStreak uint64
}

// NewRoom builds a room with its initial food. The tick loop is not running
// until Start.
func NewRoom(id string, cfg Config) *Room {
	cfg = cfg.normalized(id)
	r := &Room{
		id:    id,
		cfg:   cfg,
		index: make(map[string]*Player),
	}
	r.replenishFoodLocked()
	r.loop = sim.NewLoop(
		sim.LoopConfig{Interval: cfg.TickInterval, Clock: cfg.Clock},
		func(sim.TickContext) { r.Step() },
		sim.LoopHooks{AfterStep: r.afterStep},
	)
	return r
}

func (r *Room) ID() string {
	return r.id
}

func (r *Room) Config() Config {
	return r.cfg
}

// Start begins ticking. Repeated calls are ignored.
func (r *Room) Start() {
	r.loop.Start()
}

// Stop cancels the tick loop. It is idempotent and must not be called while
// holding the room lock.
func (r *Room) Stop() {
	r.loop.Stop()
}

func (r *Room) Running() bool {
	return r.loop.Running()
}

// Join adds a fresh player on a random cell heading right.
func (r *Room) Join(req JoinRequest) (Player, error) {
	if req.PlayerID == "" {
		return Player{}, ErrMissingPlayerID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[req.PlayerID]; exists {
		return Player{}, fmt.Errorf("%w: %s", ErrDuplicatePlayer, req.PlayerID)
	}

	spawn := r.cfg.Grid.RandomCell(r.cfg.RNG)
	player := &Player{
		ID:               req.PlayerID,
		Name:             req.Name,
		Theme:            ResolveTheme(req.Theme, len(r.players)),
		Snake:            []Position{spawn},
		Direction:        Right,
		PendingDirection: Right,
		Alive:            true,
		outbound:         req.Outbound,
	}
	r.players = append(r.players, player)
	r.index[player.ID] = player

	lifecycle.PlayerJoined(context.Background(), r.cfg.Publisher, r.id, r.tick, player.ID, lifecycle.PlayerJoinedPayload{
		Name:   player.Name,
		Theme:  player.Theme.Name,
		SpawnX: spawn.X,
		SpawnY: spawn.Y,
	})

	return player.clone(), nil
}

// Leave removes the player immediately and reports how many remain.
func (r *Room) Leave(playerID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.index[playerID]
	if !ok {
		return len(r.players), false
	}
	delete(r.index, playerID)
	for i, candidate := range r.players {
		if candidate == player {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}

	lifecycle.PlayerLeft(context.Background(), r.cfg.Publisher, r.id, r.tick, playerID, lifecycle.PlayerLeftPayload{
		Score:     player.Score,
		Alive:     player.Alive,
		Remaining: len(r.players),
	})

	return len(r.players), true
}

// ChangeDirection queues dir for the next tick. Unknown or dead players and
// exact reversals of the committed direction are ignored.
func (r *Room) ChangeDirection(playerID string, dir Direction) bool {
	if !dir.Valid() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.index[playerID]
	if !ok || !player.Alive {
		return false
	}
	if dir == player.Direction.Opposite() {
		return false
	}
	player.PendingDirection = dir
	return true
}

// Step runs one tick: advance every living snake, replenish food, then
// broadcast the snapshot to every player's outbound.
func (r *Room) Step() StepReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tick++
	report := StepReport{Tick: r.tick}
	r.advanceLocked(r.cfg.Clock.Now(), &report)
	r.replenishFoodLocked()
	r.broadcastLocked(&report)
	r.cfg.Metrics.Add(telemetry.MetricTicks, 1)
	return report
}

type plannedMove struct {
	live bool
	self bool
	next Position
}

func (r *Room) advanceLocked(now time.Time, report *StepReport) {
	grid := r.cfg.Grid
	moves := make([]plannedMove, len(r.players))

	// Collisions are resolved against the world as it stood before the tick,
	// so iteration order never decides who survives.
	occupied := make(map[Position][]int)
	for i, player := range r.players {
		if !player.Alive {
			continue
		}
		for _, segment := range player.Snake {
			occupied[segment] = append(occupied[segment], i)
		}
	}

	heads := make(map[Position][]int)
	for i, player := range r.players {
		if !player.Alive {
			continue
		}
		player.Direction = player.PendingDirection
		next := grid.Step(player.Head(), player.Direction)
		self := player.occupies(next)
		moves[i] = plannedMove{live: true, self: self, next: next}
		if !self {
			heads[next] = append(heads[next], i)
		}
	}

	for i, player := range r.players {
		move := moves[i]
		if !move.live {
			continue
		}
		if move.self {
			r.killLocked(player, gameplay.CauseSelf, "", move.next, report)
			continue
		}
		if other, ok := firstOther(occupied[move.next], i); ok {
			r.killLocked(player, gameplay.CausePlayer, r.players[other].ID, move.next, report)
			continue
		}
		if other, ok := firstOther(heads[move.next], i); ok {
			r.killLocked(player, gameplay.CauseHeadOn, r.players[other].ID, move.next, report)
			continue
		}

		player.Snake = append([]Position{move.next}, player.Snake...)
		if !r.consumeFoodLocked(player, now, report) {
			player.Snake = player.Snake[:len(player.Snake)-1]
		}
	}
}

func firstOther(indices []int, self int) (int, bool) {
	for _, idx := range indices {
		if idx != self {
			return idx, true
		}
	}
	return 0, false
}

func (r *Room) killLocked(player *Player, cause, other string, at Position, report *StepReport) {
	player.Alive = false
	report.Deaths = append(report.Deaths, Death{PlayerID: player.ID, Cause: cause, Other: other})
	r.cfg.Metrics.Add(telemetry.MetricPlayerDeaths, 1)

	gameplay.PlayerDied(context.Background(), r.cfg.Publisher, r.id, r.tick, player.ID, gameplay.PlayerDiedPayload{
		Cause:  cause,
		Other:  other,
		X:      at.X,
		Y:      at.Y,
		Length: player.Length(),
		Score:  player.Score,
	})

	if player.outbound == nil {
		return
	}
	frame, err := proto.Encode(proto.NewComment(pickComment(r.cfg.RNG)))
	if err != nil {
		r.cfg.Logger.Printf("room %s: failed to encode comment for %s: %v", r.id, player.ID, err)
		return
	}
	player.outbound.Send(frame)
}

// consumeFoodLocked eats the first food item under the player's new head.
func (r *Room) consumeFoodLocked(player *Player, now time.Time, report *StepReport) bool {
	head := player.Head()
	for i, item := range r.food {
		if item.Position != head {
			continue
		}
		spec, _ := LookupFood(item.Kind)
		player.Score += spec.Points

		bonus := 0
		if !player.LastEat.IsZero() && now.Sub(player.LastEat) < r.cfg.ComboWindow {
			bonus = spec.Bonus
			player.Score += bonus
			player.Combo++
		} else {
			player.Combo = 0
		}
		player.LastEat = now
		r.food = append(r.food[:i], r.food[i+1:]...)

		report.Meals = append(report.Meals, Meal{
			PlayerID: player.ID,
			Kind:     item.Kind,
			Points:   spec.Points,
			Bonus:    bonus,
			Combo:    player.Combo,
		})
		r.cfg.Metrics.Add(telemetry.MetricFoodEaten, 1)
		gameplay.FoodEaten(context.Background(), r.cfg.Publisher, r.id, r.tick, player.ID, gameplay.FoodEatenPayload{
			Kind:   string(item.Kind),
			Points: spec.Points,
			Bonus:  bonus,
			Combo:  player.Combo,
			Score:  player.Score,
		})
		return true
	}
	return false
}

// replenishFoodLocked tops food up to the target. Positions are not checked
// against snakes or other food.
func (r *Room) replenishFoodLocked() {
	for len(r.food) < r.cfg.FoodTarget {
		r.food = append(r.food, FoodItem{
			Position: r.cfg.Grid.RandomCell(r.cfg.RNG),
			Kind:     randomFoodKind(r.cfg.RNG),
		})
	}
}

func (r *Room) broadcastLocked(report *StepReport) {
	frame, err := proto.Encode(r.snapshotLocked())
	if err != nil {
		r.cfg.Logger.Printf("room %s: failed to encode game state: %v", r.id, err)
		return
	}
	report.FrameBytes = len(frame)

	for _, player := range r.players {
		if player.outbound == nil {
			continue
		}
		if player.outbound.Send(frame) {
			report.FramesSent++
		} else {
			report.FramesDropped++
		}
	}

	r.cfg.Metrics.Add(telemetry.MetricBroadcasts, 1)
	r.cfg.Metrics.Add(telemetry.MetricFramesSent, uint64(report.FramesSent))
	r.cfg.Metrics.Add(telemetry.MetricBytesSent, uint64(report.FrameBytes*report.FramesSent))
	r.cfg.Metrics.Store(telemetry.MetricLastFrameBytes, uint64(report.FrameBytes))
	if report.FramesDropped > 0 {
		r.cfg.Metrics.Add(telemetry.MetricFramesDropped, uint64(report.FramesDropped))
	}
}

func (r *Room) afterStep(result sim.StepResult) {
	if recorder, ok := r.cfg.Metrics.(tickRecorder); ok {
		recorder.RecordTickDuration(r.id, result.Duration)
	}
	if !result.Overrun {
		r.overrunStreak = 0
		return
	}
	r.overrunStreak++
	r.cfg.Metrics.Add(telemetry.MetricTickOverruns, 1)
	ratio := 0.0
	if result.Budget > 0 {
		ratio = float64(result.Duration) / float64(result.Budget)
	}
	simulation.TickBudgetOverrun(context.Background(), r.cfg.Publisher, r.id, result.Tick, simulation.TickBudgetOverrunPayload{
		DurationMillis: result.Duration.Milliseconds(),
		BudgetMillis:   result.Budget.Milliseconds(),
		Ratio:          ratio,
		Streak:         r.overrunStreak,
	})
}

// Snapshot renders the gameState message for the current room state.
func (r *Room) Snapshot() proto.GameStateMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() proto.GameStateMessage {
	players := make([]proto.PlayerState, 0, len(r.players))
	for _, player := range r.players {
		players = append(players, player.wire())
	}
	food := make([]proto.FoodState, 0, len(r.food))
	for _, item := range r.food {
		food = append(food, proto.FoodState{X: item.Position.X, Y: item.Position.Y, Type: string(item.Kind)})
	}
	return proto.NewGameState(players, food)
}

// Player returns a copy of the named player.
func (r *Room) Player(id string) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	player, ok := r.index[id]
	if !ok {
		return Player{}, false
	}
	return player.clone(), true
}

// Players returns copies of every player in join order.
func (r *Room) Players() []Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Player, 0, len(r.players))
	for _, player := range r.players {
		out = append(out, player.clone())
	}
	return out
}

// Food returns a copy of the live food list.
func (r *Room) Food() []FoodItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FoodItem(nil), r.food...)
}

func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Room) Tick() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tick
}

func (r *Room) Diagnostics() Diagnostics {
	r.mu.Lock()
	defer r.mu.Unlock()
	alive := 0
	for _, player := range r.players {
		if player.Alive {
			alive++
		}
	}
	return Diagnostics{
		ID:      r.id,
		Players: len(r.players),
		Alive:   alive,
		Food:    len(r.food),
		Tick:    r.tick,
	}
}
