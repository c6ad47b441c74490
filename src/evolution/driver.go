//Package evolution runs universes in the background and keeps the universe the user sees.
//
//A Driver ticks a private copy of the universe on its own goroutine and publishes every
//generation as a Status on a buffered channel. A Board owns the visible universe: it swaps
//published generations in, applies user edits and keeps the rewind history. The two never
//share a universe, generations travel by message only.
package evolution

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"gameoflife/src/config"
	"gameoflife/src/universe"
)

//RunningState is the state of the driver
type RunningState int

const (
	StateIdle RunningState = iota
	StateRunning
)

func (s RunningState) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

//Status is published for every generation computed by the driver, in production order
//the last Status of an episode that ended by itself has RunningMode StateIdle
type Status struct {
	Episode       uuid.UUID
	RunningMode   RunningState
	Generation    uint64
	LiveCells     int
	IterationTime time.Duration
	Universe      *universe.Universe //owned by the receiver
}

var (
	ErrAlreadyRunning = errors.New("evolution: already running")
	ErrNoUniverse     = errors.New("evolution: no universe to run")
	ErrClosed         = errors.New("evolution: driver closed")
)

//Driver ticks a private working copy of a universe at the configured evolution speed
type Driver struct {
	store    *config.Store
	log      *slog.Logger
	statusCh chan Status
	closeCh  chan struct{}
	wg       sync.WaitGroup

	mu       sync.Mutex
	active   uuid.UUID //running episode, uuid.Nil when idle
	finished uuid.UUID //last episode that ended by itself
	cancel   context.CancelFunc
	done     chan struct{}
	limiter  *rate.Limiter
	closed   bool

	unsubscribe func()
}

//NewDriver creates an idle driver, speed and limits are read from store
func NewDriver(store *config.Store, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	d := &Driver{
		store:    store,
		log:      log.With("component", "driver"),
		statusCh: make(chan Status, store.Settings().ChannelBuffer),
		closeCh:  make(chan struct{}),
	}
	d.unsubscribe = store.OnChange(d.onSettingsChange)
	return d
}

//StatusCh returns the channel with the published generations
//it is closed by Close
func (d *Driver) StatusCh() <-chan Status {
	return d.statusCh
}

//IsRunning reports whether an episode is running
func (d *Driver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}

//Episode returns the id of the running episode, uuid.Nil when idle
func (d *Driver) Episode() uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

//Current reports whether st belongs to the running episode or to the episode that just ended by itself
//statuses of a halted episode are stale
func (d *Driver) Current(st Status) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return st.Episode != uuid.Nil && (st.Episode == d.active || st.Episode == d.finished)
}

//Run starts a new episode ticking a copy of u, returns immediately
//u is not touched afterwards, the caller keeps owning it
func (d *Driver) Run(u *universe.Universe) error {
	if u == nil {
		return ErrNoUniverse
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.cancel != nil {
		return errors.Wrapf(ErrAlreadyRunning, "episode %s", d.active)
	}

	s := d.store.Settings()
	working := u.Clone()
	working.SetCorpseFreezeRate(s.CorpseFreezeRate)

	ctx, cancel := context.WithCancel(context.Background())
	episode := uuid.New()
	limiter := rate.NewLimiter(rate.Every(s.Interval()), 1)
	//the first generation waits for a full interval too
	limiter.Allow()

	d.active = episode
	d.finished = uuid.Nil
	d.cancel = cancel
	d.done = make(chan struct{})
	d.limiter = limiter

	d.wg.Add(1)
	go d.run(ctx, cancel, episode, working, limiter, s, d.done)

	episodesTotal.Inc()
	driverRunning.Set(1)
	d.log.Info("evolution started", "episode", episode, "speed", s.EvolutionSpeed,
		"generation", working.Generations())
	return nil
}

//Halt stops the running episode and waits until its goroutine is gone
//once Halt returns nothing more is published for that episode
//halting an idle driver does nothing
func (d *Driver) Halt() {
	d.mu.Lock()
	cancel, done, episode := d.cancel, d.done, d.active
	d.clearEpisode()
	d.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	episodesEnded.WithLabelValues("halted").Inc()
	d.log.Info("evolution halted", "episode", episode)
}

//ToggleRun halts a running driver or runs u
func (d *Driver) ToggleRun(u *universe.Universe) error {
	if d.IsRunning() {
		d.Halt()
		return nil
	}
	return d.Run(u)
}

//Close halts the driver, stops listening to the settings and closes the status channel
func (d *Driver) Close() {
	d.Halt()
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.closeCh)
	d.mu.Unlock()
	d.unsubscribe()
	d.wg.Wait()
	close(d.statusCh)
}

//clearEpisode switches to idle, must be called with mu held
func (d *Driver) clearEpisode() {
	d.active = uuid.Nil
	d.cancel = nil
	d.done = nil
	d.limiter = nil
	driverRunning.Set(0)
}

//onSettingsChange applies a new evolution speed to the running episode
func (d *Driver) onSettingsChange(s config.Settings) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.limiter == nil {
		return
	}
	limit := rate.Every(s.Interval())
	if d.limiter.Limit() != limit {
		d.limiter.SetLimit(limit)
		d.log.Debug("evolution speed changed", "episode", d.active, "speed", s.EvolutionSpeed)
	}
}

//run is the ticking loop of one episode
//the episode context is checked by the pacing wait, before each tick and by every send
func (d *Driver) run(ctx context.Context, cancel context.CancelFunc, episode uuid.UUID, u *universe.Universe,
	limiter *rate.Limiter, s config.Settings, done chan struct{}) {
	defer d.wg.Done()
	defer close(done)
	defer cancel()

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		u.Tick()
		elapsed := time.Since(start)
		tickDuration.Observe(elapsed.Seconds())
		generationsTotal.Inc()

		st := Status{
			Episode:       episode,
			RunningMode:   StateRunning,
			Generation:    u.Generations(),
			LiveCells:     u.AliveCount(),
			IterationTime: elapsed,
		}
		reason := finishReason(u, st, s)
		if reason != "" && d.finish(episode) {
			st.RunningMode = StateIdle
		} else {
			reason = ""
		}
		st.Universe = u.Clone()

		if ctx.Err() != nil {
			return
		}
		select {
		case d.statusCh <- st:
		case <-ctx.Done():
			return
		case <-d.closeCh:
			return
		}

		if reason != "" {
			episodesEnded.WithLabelValues(reason).Inc()
			d.log.Info("evolution finished", "episode", episode, "reason", reason, "generation", st.Generation)
			return
		}
	}
}

//finish switches the driver to idle on behalf of the episode that ended by itself
//false if the episode is not the running one anymore (it is being halted)
func (d *Driver) finish(episode uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active != episode {
		return false
	}
	d.clearEpisode()
	d.finished = episode
	return true
}

//finishReason tells why the episode should end after this generation, empty to keep running
func finishReason(u *universe.Universe, st Status, s config.Settings) string {
	if s.MaxGenerations != 0 && st.Generation >= s.MaxGenerations {
		return "max_generations"
	}
	if s.StopWhenStable && (st.LiveCells == 0 || len(u.LastDelta()) == 0) {
		return "stable"
	}
	return ""
}
