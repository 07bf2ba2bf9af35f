package sim

import (
	"sync"
	"sync/atomic"
	"time"

	"snak8s/logging"
)

// DefaultTickInterval matches the 10 Hz cadence clients render at.
const DefaultTickInterval = 100 * time.Millisecond

// LoopConfig tunes the fixed-rate scheduler.
type LoopConfig struct {
	Interval time.Duration
	Clock    logging.Clock
}

// TickContext is handed to the step function on every tick.
type TickContext struct {
	Tick uint64
	Now  time.Time
}

// StepResult reports timing for a completed tick.
type StepResult struct {
	Tick     uint64
	Now      time.Time
	Duration time.Duration
	Budget   time.Duration
	Overrun  bool
}

// LoopHooks lets callers observe the loop without owning it.
type LoopHooks struct {
	AfterStep func(StepResult)
}

// StepFunc executes one simulation step.
type StepFunc func(TickContext)

// Loop is a fixed-rate repeating task. It is started at most once and
// stopped at most once; Stop is safe to call repeatedly and before Start.
type Loop struct {
	config LoopConfig
	step   StepFunc
	hooks  LoopHooks

	mu      sync.Mutex
	started bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}

	ticks atomic.Uint64
}

// NewLoop wraps step in a scheduler that fires every cfg.Interval.
func NewLoop(cfg LoopConfig, step StepFunc, hooks LoopHooks) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTickInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = logging.SystemClock{}
	}
	return &Loop{
		config: cfg,
		step:   step,
		hooks:  hooks,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Interval returns the configured tick interval.
func (l *Loop) Interval() time.Duration {
	if l == nil {
		return 0
	}
	return l.config.Interval
}

// Ticks reports how many steps have completed.
func (l *Loop) Ticks() uint64 {
	if l == nil {
		return 0
	}
	return l.ticks.Load()
}

// Running reports whether the loop goroutine is active.
func (l *Loop) Running() bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started && !l.stopped
}

// Start launches the ticker goroutine. Calls after the first, or after Stop,
// do nothing.
func (l *Loop) Start() {
	if l == nil || l.step == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.stopped {
		return
	}
	l.started = true
	go l.run()
}

// Stop cancels the ticker and waits for an in-flight step to finish. It must
// not be called from inside the step function.
func (l *Loop) Stop() {
	if l == nil {
		return
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	started := l.started
	close(l.stop)
	l.mu.Unlock()

	if started {
		<-l.done
	}
}

func (l *Loop) run() {
	defer close(l.done)

	ticker := time.NewTicker(l.config.Interval)
	defer ticker.Stop()

	clock := l.config.Clock
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			// A stop that raced the ticker wins.
			select {
			case <-l.stop:
				return
			default:
			}

			tick := l.ticks.Load() + 1
			start := clock.Now()
			l.step(TickContext{Tick: tick, Now: start})
			l.ticks.Store(tick)

			if l.hooks.AfterStep != nil {
				duration := clock.Now().Sub(start)
				l.hooks.AfterStep(StepResult{
					Tick:     tick,
					Now:      start,
					Duration: duration,
					Budget:   l.config.Interval,
					Overrun:  duration > l.config.Interval,
				})
			}
		}
	}
}
