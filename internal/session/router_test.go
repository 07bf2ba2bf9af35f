package session

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"snak8s/internal/game"
	"snak8s/internal/net/proto"
	"snak8s/internal/rooms"
)

type frameRecorder struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *frameRecorder) Send(frame []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, append([]byte(nil), frame...))
	return true
}

func (f *frameRecorder) lastState(t *testing.T) proto.GameStateMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.frames) - 1; i >= 0; i-- {
		var state proto.GameStateMessage
		if err := json.Unmarshal(f.frames[i], &state); err != nil {
			t.Fatalf("failed to decode frame: %v", err)
		}
		if state.Type == proto.TypeGameState {
			return state
		}
	}
	t.Fatalf("expected at least one gameState frame")
	return proto.GameStateMessage{}
}

func newTestRouter(t *testing.T) (*Router, *rooms.Registry) {
	t.Helper()
	registry := rooms.NewRegistry(rooms.Config{Room: game.DefaultConfig(), Seed: t.Name(), ManualTicks: true})
	t.Cleanup(registry.Close)
	return NewRouter(registry, nil), registry
}

func TestJoinReturnsThemesAndBindsConnection(t *testing.T) {
	router, registry := newTestRouter(t)

	joined, err := router.Join("conn-1", &frameRecorder{}, proto.JoinMessage{
		Type:       proto.TypeJoin,
		PlayerID:   "p1",
		PlayerName: "kube",
		RoomID:     "alpha",
		Theme:      &proto.Theme{Name: "Prometheus"},
	})
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if joined.Type != proto.TypeJoined || joined.PlayerID != "p1" {
		t.Fatalf("unexpected joined message %+v", joined)
	}
	if len(joined.Themes) != len(game.Themes()) {
		t.Fatalf("expected %d themes, got %d", len(game.Themes()), len(joined.Themes))
	}

	roomID, playerID, ok := router.Binding("conn-1")
	if !ok || roomID != "alpha" || playerID != "p1" {
		t.Fatalf("unexpected binding %q/%q/%v", roomID, playerID, ok)
	}

	room, ok := registry.Lookup("alpha")
	if !ok {
		t.Fatalf("expected room alpha to exist")
	}
	player, _ := room.Player("p1")
	if player.Name != "kube" || player.Theme.Name != "Prometheus" {
		t.Fatalf("unexpected player %+v", player)
	}
}

func TestJoinFillsMissingIdentity(t *testing.T) {
	router, registry := newTestRouter(t)

	joined, err := router.Join("conn-1", nil, proto.JoinMessage{Type: proto.TypeJoin})
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if _, err := uuid.Parse(joined.PlayerID); err != nil {
		t.Fatalf("expected generated uuid player id, got %q: %v", joined.PlayerID, err)
	}

	room, ok := registry.Lookup(proto.DefaultRoomID)
	if !ok {
		t.Fatalf("expected default room to be used")
	}
	player, _ := room.Player(joined.PlayerID)
	if player.Name != DefaultPlayerName {
		t.Fatalf("expected default name, got %q", player.Name)
	}
}

func TestRejoinLeavesPreviousRoom(t *testing.T) {
	router, registry := newTestRouter(t)

	if _, err := router.Join("conn-1", nil, proto.JoinMessage{PlayerID: "p1", RoomID: "alpha"}); err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	if _, err := router.Join("conn-1", nil, proto.JoinMessage{PlayerID: "p1", RoomID: "beta"}); err != nil {
		t.Fatalf("second join failed: %v", err)
	}

	if _, ok := registry.Lookup("alpha"); ok {
		t.Fatalf("expected alpha to be released after the rejoin")
	}
	if _, ok := registry.Lookup("beta"); !ok {
		t.Fatalf("expected beta to exist")
	}
	if router.Len() != 1 {
		t.Fatalf("expected a single binding, got %d", router.Len())
	}

	// Rejoining the same room with the same id replaces the old player.
	if _, err := router.Join("conn-1", nil, proto.JoinMessage{PlayerID: "p1", RoomID: "beta"}); err != nil {
		t.Fatalf("same-room rejoin failed: %v", err)
	}
	room, _ := registry.Lookup("beta")
	if room.Len() != 1 {
		t.Fatalf("expected one player after same-room rejoin, got %d", room.Len())
	}
}

func TestJoinRejectsDuplicatePlayerAcrossConnections(t *testing.T) {
	router, _ := newTestRouter(t)

	if _, err := router.Join("conn-1", nil, proto.JoinMessage{PlayerID: "p1"}); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	_, err := router.Join("conn-2", nil, proto.JoinMessage{PlayerID: "p1"})
	if !errors.Is(err, game.ErrDuplicatePlayer) {
		t.Fatalf("expected ErrDuplicatePlayer, got %v", err)
	}
	if _, _, ok := router.Binding("conn-2"); ok {
		t.Fatalf("expected failed join to leave the connection unbound")
	}
}

func TestDirectionForwardsToRoom(t *testing.T) {
	router, registry := newTestRouter(t)
	router.Join("conn-1", nil, proto.JoinMessage{PlayerID: "p1"})
	room, _ := registry.Lookup(proto.DefaultRoomID)

	if !router.Direction("conn-1", proto.Point{X: 0, Y: -20}) {
		t.Fatalf("expected up to be accepted")
	}
	player, _ := room.Player("p1")
	if player.PendingDirection != game.Up {
		t.Fatalf("expected pending up, got %+v", player.PendingDirection)
	}

	cases := map[string]proto.Point{
		"reversal":       {X: -20, Y: 0},
		"wrong scale":    {X: 0, Y: 1},
		"diagonal":       {X: 20, Y: 20},
		"zero vector":    {X: 0, Y: 0},
		"double stepped": {X: 40, Y: 0},
	}
	for name, vector := range cases {
		t.Run(name, func(t *testing.T) {
			if router.Direction("conn-1", vector) {
				t.Fatalf("expected %+v to be rejected", vector)
			}
		})
	}

	if router.Direction("stranger", proto.Point{X: 20}) {
		t.Fatalf("expected unbound connection to be ignored")
	}
}

func TestDisconnectReleasesRoom(t *testing.T) {
	router, registry := newTestRouter(t)
	router.Join("conn-1", nil, proto.JoinMessage{PlayerID: "p1"})
	router.Join("conn-2", nil, proto.JoinMessage{PlayerID: "p2"})

	if err := router.Disconnect("conn-1"); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	if registry.Len() != 1 {
		t.Fatalf("expected room to survive with one player")
	}
	if err := router.Disconnect("conn-2"); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("expected room to be released")
	}
	if err := router.Disconnect("conn-2"); !errors.Is(err, ErrUnknownConnection) {
		t.Fatalf("expected ErrUnknownConnection, got %v", err)
	}
}

func TestRightwardTicksThroughBroadcast(t *testing.T) {
	router, registry := newTestRouter(t)
	out := &frameRecorder{}
	if _, err := router.Join("conn-1", out, proto.JoinMessage{PlayerID: "p1"}); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	room, _ := registry.Lookup(proto.DefaultRoomID)
	start, _ := room.Player("p1")
	grid := room.Config().Grid

	const ticks = 45
	for i := 0; i < ticks; i++ {
		room.Step()
	}

	state := out.lastState(t)
	if len(state.Players) != 1 {
		t.Fatalf("expected one player in broadcast, got %d", len(state.Players))
	}
	head := state.Players[0].Snake[0]
	wantX := (start.Head().X + ticks*grid.CellSize) % grid.Width
	if head.X != wantX || head.Y != start.Head().Y {
		t.Fatalf("expected head at (%d,%d), got (%d,%d)", wantX, start.Head().Y, head.X, head.Y)
	}
	if !state.Players[0].Alive {
		t.Fatalf("expected player to stay alive moving in a straight line")
	}
}
