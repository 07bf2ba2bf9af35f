package app

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"snak8s/internal/game"
	"snak8s/internal/net/ws"
	"snak8s/internal/sim"
	"snak8s/internal/telemetry"
	"snak8s/logging"
)

const (
	DefaultPort    = 3000
	DefaultEnvFile = ".env"
)

// Config is the resolved process configuration.
type Config struct {
	Port           int
	TickInterval   time.Duration
	FoodTarget     int
	ComboWindow    time.Duration
	SendBuffer     int
	Seed           string
	ClientDir      string
	DebugTelemetry bool
	Logging        logging.Config

	Logger telemetry.Logger
}

func DefaultConfig() Config {
	return Config{
		Port:         DefaultPort,
		TickInterval: sim.DefaultTickInterval,
		FoodTarget:   game.DefaultFoodTarget,
		ComboWindow:  game.DefaultComboWindow,
		SendBuffer:   ws.DefaultSendBuffer,
		Logging:      logging.DefaultConfig(),
	}
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// LoadConfig starts from DefaultConfig and applies environment overrides.
// Variables from envFile fill in anything the process environment does not
// set; a missing file is not an error. Invalid values are logged and the
// default kept.
func LoadConfig(envFile string, logger telemetry.Logger) (Config, error) {
	if logger == nil {
		logger = telemetry.DiscardLogger()
	}

	fileValues := map[string]string{}
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileValues = values
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, err
		}
	}

	env := envSource{file: fileValues, logger: logger}
	cfg := DefaultConfig()
	cfg.Logger = logger

	env.setInt("PORT", &cfg.Port)
	env.setMillis("TICK_INTERVAL_MS", &cfg.TickInterval)
	env.setInt("FOOD_TARGET", &cfg.FoodTarget)
	env.setMillis("COMBO_WINDOW_MS", &cfg.ComboWindow)
	env.setInt("SEND_BUFFER", &cfg.SendBuffer)
	env.setBool("DEBUG_TELEMETRY", &cfg.DebugTelemetry)
	env.setString("ROOM_SEED", &cfg.Seed)
	env.setString("CLIENT_DIR", &cfg.ClientDir)

	if raw, ok := env.lookup("LOG_MIN_SEVERITY"); ok {
		if severity, err := logging.ParseSeverity(raw); err == nil {
			cfg.Logging.MinimumSeverity = severity
		} else {
			logger.Printf("invalid LOG_MIN_SEVERITY=%q: %v", raw, err)
		}
	}
	if path, ok := env.lookup("LOG_JSON_PATH"); ok && path != "" {
		cfg.Logging.JSON.FilePath = path
		if !cfg.Logging.HasSink("json") {
			cfg.Logging.EnabledSinks = append(cfg.Logging.EnabledSinks, "json")
		}
	}

	return cfg, nil
}

type envSource struct {
	file   map[string]string
	logger telemetry.Logger
}

func (e envSource) lookup(key string) (string, bool) {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value), true
	}
	value, ok := e.file[key]
	return strings.TrimSpace(value), ok
}

func (e envSource) setString(key string, dst *string) {
	if raw, ok := e.lookup(key); ok {
		*dst = raw
	}
}

func (e envSource) setInt(key string, dst *int) {
	raw, ok := e.lookup(key)
	if !ok || raw == "" {
		return
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		e.logger.Printf("invalid %s=%q: expected a positive integer", key, raw)
		return
	}
	*dst = value
}

func (e envSource) setMillis(key string, dst *time.Duration) {
	value := 0
	e.setInt(key, &value)
	if value > 0 {
		*dst = time.Duration(value) * time.Millisecond
	}
}

func (e envSource) setBool(key string, dst *bool) {
	raw, ok := e.lookup(key)
	if !ok || raw == "" {
		return
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		e.logger.Printf("invalid %s=%q: %v", key, raw, err)
		return
	}
	*dst = value
}
