package telemetry

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Well-known counter keys.
const (
	MetricTicks          = "ticks"
	MetricBroadcasts     = "broadcasts"
	MetricBytesSent      = "bytes_sent"
	MetricFramesSent     = "frames_sent"
	MetricFramesDropped  = "frames_dropped"
	MetricInboundDropped = "inbound_dropped"
	MetricRoomsCreated   = "rooms_created"
	MetricRoomsDestroyed = "rooms_destroyed"
	MetricRoomsActive    = "rooms_active"
	MetricConnections    = "connections_active"
	MetricPlayerDeaths   = "player_deaths"
	MetricFoodEaten      = "food_eaten"
	MetricTickOverruns   = "tick_overruns"
	MetricLastFrameBytes = "last_frame_bytes"
)

// Counters is the process-wide Metrics implementation surfaced on /diagnostics.
type Counters struct {
	mu     sync.Mutex
	values map[string]uint64

	tickDurationMicros atomic.Int64
	debug              bool
	logger             Logger
}

// CountersSnapshot is the JSON view of Counters.
type CountersSnapshot struct {
	Values             map[string]uint64 `json:"values"`
	TickDurationMicros int64             `json:"tickDurationMicros"`
}

// NewCounters builds an empty counter set. With debug enabled every tick
// duration sample is printed through logger.
func NewCounters(debug bool, logger Logger) *Counters {
	if logger == nil {
		logger = DiscardLogger()
	}
	return &Counters{
		values: make(map[string]uint64),
		debug:  debug,
		logger: logger,
	}
}

func (c *Counters) Add(key string, delta uint64) {
	if c == nil || key == "" {
		return
	}
	c.mu.Lock()
	c.values[key] += delta
	c.mu.Unlock()
}

func (c *Counters) Store(key string, value uint64) {
	if c == nil || key == "" {
		return
	}
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
}

// Value returns the current value of a single counter.
func (c *Counters) Value(key string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key]
}

// RecordTickDuration stores the most recent step duration.
func (c *Counters) RecordTickDuration(room string, duration time.Duration) {
	if c == nil {
		return
	}
	micros := duration.Microseconds()
	if micros < 0 {
		micros = 0
	}
	c.tickDurationMicros.Store(micros)
	if c.debug {
		c.logger.Printf(
			"[telemetry] room=%s tick=%dus frameBytes=%d totalBytes=%d dropped=%d",
			room,
			micros,
			c.Value(MetricLastFrameBytes),
			c.Value(MetricBytesSent),
			c.Value(MetricFramesDropped),
		)
	}
}

func (c *Counters) DebugEnabled() bool {
	return c != nil && c.debug
}

// Keys lists every counter recorded so far in sorted order.
func (c *Counters) Keys() []string {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	keys := make([]string, 0, len(c.values))
	for key := range c.values {
		keys = append(keys, key)
	}
	c.mu.Unlock()
	sort.Strings(keys)
	return keys
}

func (c *Counters) Snapshot() CountersSnapshot {
	if c == nil {
		return CountersSnapshot{Values: map[string]uint64{}}
	}
	c.mu.Lock()
	values := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		values[k] = v
	}
	c.mu.Unlock()
	return CountersSnapshot{
		Values:             values,
		TickDurationMicros: c.tickDurationMicros.Load(),
	}
}

var _ Metrics = (*Counters)(nil)
