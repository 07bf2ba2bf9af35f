package net

import (
	"encoding/json"
	nethttp "net/http"
	"time"

	"snak8s/internal/game"
	"snak8s/internal/net/proto"
	"snak8s/internal/net/ws"
	"snak8s/internal/rooms"
	"snak8s/internal/telemetry"
)

type HTTPHandlerConfig struct {
	// ClientDir, when set, is served at / for the browser client.
	ClientDir    string
	TickInterval time.Duration
	Logger       telemetry.Logger
	Counters     *telemetry.Counters
}

type foodEntry struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	Emoji  string `json:"emoji"`
	Points int    `json:"points"`
	Bonus  int    `json:"bonus"`
}

func NewHTTPHandler(registry *rooms.Registry, socket *ws.Handler, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.DiscardLogger()
	}
	grid := game.DefaultGrid()

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status       string                     `json:"status"`
			ServerTime   int64                      `json:"serverTime"`
			TickInterval int64                      `json:"tickIntervalMillis"`
			Connections  int                        `json:"connections"`
			Rooms        []game.Diagnostics         `json:"rooms"`
			Telemetry    telemetry.CountersSnapshot `json:"telemetry"`
		}{
			Status:       "ok",
			ServerTime:   time.Now().UnixMilli(),
			TickInterval: cfg.TickInterval.Milliseconds(),
			Connections:  socket.Active(),
			Rooms:        registry.Diagnostics(),
			Telemetry:    cfg.Counters.Snapshot(),
		}
		writeJSON(w, logger, payload)
	})

	mux.HandleFunc("/themes", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		food := make([]foodEntry, 0, len(game.FoodKinds()))
		for _, kind := range game.FoodKinds() {
			info, _ := game.LookupFood(kind)
			food = append(food, foodEntry{
				Type:   string(kind),
				Name:   info.Name,
				Emoji:  info.Emoji,
				Points: info.Points,
				Bonus:  info.Bonus,
			})
		}

		payload := struct {
			Themes   []proto.Theme `json:"themes"`
			Food     []foodEntry   `json:"food"`
			Width    int           `json:"width"`
			Height   int           `json:"height"`
			CellSize int           `json:"cellSize"`
		}{
			Themes:   game.WireThemes(),
			Food:     food,
			Width:    grid.Width,
			Height:   grid.Height,
			CellSize: grid.CellSize,
		}
		writeJSON(w, logger, payload)
	})

	mux.HandleFunc("/ws", socket.Handle)

	if cfg.ClientDir != "" {
		mux.Handle("/", nethttp.FileServer(nethttp.Dir(cfg.ClientDir)))
	}

	return mux
}

func writeJSON(w nethttp.ResponseWriter, logger telemetry.Logger, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("failed to encode response: %v", err)
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
