package evolution

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"gameoflife/src/config"
	"gameoflife/src/history"
	"gameoflife/src/universe"
)

//Viewer is the interface to any Viewer - the object who can display the board or control it
type Viewer interface {
	Refresh()
	Register(b *Board)
	Start()
}

//BoardStatus represents the status of the Board at concrete moment
type BoardStatus struct {
	Generation    uint64
	LiveCells     int
	RunningMode   RunningState
	Episode       uuid.UUID
	IterationTime time.Duration
	CanRewind     bool
	Locked        bool
}

var (
	ErrRunning         = errors.New("evolution: not allowed while running")
	ErrLocked          = errors.New("evolution: board is locked")
	ErrNothingToRewind = errors.New("evolution: no previous generation")
)

//Board owns the visible universe
//
//Published generations replace the visible universe as a whole. Cell edits made while
//the driver is running are applied to the visible universe only, the running episode never
//sees them and the next published generation overwrites them.
//Every replacement of the whole universe pushes the previous one to the rewind history.
type Board struct {
	driver *Driver
	store  *config.Store
	log    *slog.Logger

	mu            sync.Mutex
	universe      *universe.Universe
	history       *history.Stack[*universe.Universe]
	locked        bool
	iterationTime time.Duration
	//episode the board follows and its mode, set by Run and by every applied generation
	mode    RunningState
	episode uuid.UUID

	viewsMu sync.Mutex
	views   []Viewer
}

//NewBoard creates the board showing u, driven by d
func NewBoard(u *universe.Universe, d *Driver, store *config.Store, log *slog.Logger) (*Board, error) {
	if u == nil {
		return nil, ErrNoUniverse
	}
	if log == nil {
		log = slog.Default()
	}
	return &Board{
		driver:   d,
		store:    store,
		log:      log.With("component", "board"),
		universe: u,
		history:  history.New[*universe.Universe](store.Settings().HistoryCapacity),
	}, nil
}

//RegisterViewer registers the viewer - the board will call the viewer when the universe is changed
func (b *Board) RegisterViewer(v Viewer) {
	b.viewsMu.Lock()
	b.views = append(b.views, v)
	b.viewsMu.Unlock()
	v.Register(b)
}

//Universe returns a copy of the visible universe
func (b *Board) Universe() *universe.Universe {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.universe.Clone()
}

//Read calls fn with the visible universe, fn must not keep or modify it
func (b *Board) Read(fn func(u *universe.Universe)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.universe)
}

//Status returns current board status represented by BoardStatus struct
//the board stays running until the last generation of a finished episode is applied
func (b *Board) Status() BoardStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := BoardStatus{
		Generation:    b.universe.Generations(),
		LiveCells:     b.universe.AliveCount(),
		IterationTime: b.iterationTime,
		CanRewind:     !b.history.IsEmpty(),
		Locked:        b.locked,
	}
	if b.running() {
		st.RunningMode = StateRunning
		st.Episode = b.episode
	}
	return st
}

//running reports whether the followed episode may still replace the visible universe:
//the driver runs it, or it ended by itself and its last generation is not applied yet
//must be called with mu held
func (b *Board) running() bool {
	if b.mode != StateRunning {
		return false
	}
	return b.driver.Current(Status{Episode: b.episode})
}

//Apply swaps a published generation of the followed episode in
//statuses of halted or foreign episodes are ignored, false is returned for them
func (b *Board) Apply(st Status) bool {
	b.mu.Lock()
	if st.Universe == nil || st.Episode != b.episode || !b.running() {
		b.mu.Unlock()
		staleGenerations.Inc()
		b.log.Debug("stale generation dropped", "episode", st.Episode, "generation", st.Generation)
		return false
	}
	b.history.Push(b.universe)
	b.universe = st.Universe
	b.iterationTime = st.IterationTime
	b.mode, b.episode = st.RunningMode, st.Episode
	b.mu.Unlock()
	b.refreshView()
	return true
}

//Process applies the driver's generations until ctx is done or the driver is closed
func (b *Board) Process(ctx context.Context) {
	ch := b.driver.StatusCh()
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-ch:
			if !ok {
				return
			}
			b.Apply(st)
		}
	}
}

//SetLocked forbids (or allows again) interactive edits
func (b *Board) SetLocked(locked bool) {
	b.mu.Lock()
	b.locked = locked
	b.mu.Unlock()
	b.refreshView()
}

//Editable reports whether cell edits are accepted and kept
func (b *Board) Editable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.locked && !b.running()
}

//Edit sets the cell at row, column
func (b *Board) Edit(row int, column int, value universe.Cell) (universe.Point, error) {
	return b.edit(func(u *universe.Universe) (universe.Point, error) {
		return u.Set(row, column, value)
	})
}

//Toggle inverts the cell at row, column
func (b *Board) Toggle(row int, column int) (universe.Point, error) {
	return b.edit(func(u *universe.Universe) (universe.Point, error) {
		return u.Toggle(row, column)
	})
}

func (b *Board) edit(fn func(u *universe.Universe) (universe.Point, error)) (universe.Point, error) {
	b.mu.Lock()
	if b.locked {
		b.mu.Unlock()
		return universe.Point{}, ErrLocked
	}
	p, err := fn(b.universe)
	b.mu.Unlock()
	if err != nil {
		return p, err
	}
	b.refreshView()
	return p, nil
}

//StepForward computes one generation of the visible universe
func (b *Board) StepForward() error {
	return b.replace(func(u *universe.Universe) (*universe.Universe, error) {
		next := u.Clone()
		next.SetCorpseFreezeRate(b.store.CorpseFreezeRate())
		start := time.Now()
		next.Tick()
		b.iterationTime = time.Since(start)
		return next, nil
	})
}

//Rewind restores the previous universe from the history
func (b *Board) Rewind() error {
	b.mu.Lock()
	if b.running() {
		b.mu.Unlock()
		return ErrRunning
	}
	prev, ok := b.history.Pop()
	if ok {
		b.universe = prev
	}
	b.mu.Unlock()
	if !ok {
		return ErrNothingToRewind
	}
	b.refreshView()
	return nil
}

//CanRewind reports whether a previous universe is available
func (b *Board) CanRewind() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.history.IsEmpty()
}

//Snapshot captures the visible universe
func (b *Board) Snapshot() *universe.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.universe.Snapshot()
}

//Load replaces the visible universe with the one stored in s
func (b *Board) Load(s *universe.Snapshot) error {
	if s == nil {
		return ErrNoUniverse
	}
	o := b.store.Settings().UniverseOptions()
	u, err := universe.FromSnapshot(s, &o)
	if err != nil {
		return err
	}
	if err := b.Replace(u); err != nil {
		return err
	}
	b.log.Info("snapshot loaded", "rows", s.Rows(), "columns", s.Columns(), "alive", s.AliveCount())
	return nil
}

//Replace shows u instead of the visible universe
func (b *Board) Replace(u *universe.Universe) error {
	if u == nil {
		return ErrNoUniverse
	}
	return b.replace(func(*universe.Universe) (*universe.Universe, error) {
		return u, nil
	})
}

//RandomSeed replaces the visible universe with a random one of the same size
func (b *Board) RandomSeed(rnd universe.RandomSource) error {
	s := b.store.Settings()
	return b.replace(func(cur *universe.Universe) (*universe.Universe, error) {
		o := s.UniverseOptions()
		o.Rows, o.Columns = cur.Rows(), cur.Columns()
		u, err := universe.New(&o)
		if err != nil {
			return nil, err
		}
		u.SeedRandom(s.AliveProbability, rnd)
		return u, nil
	})
}

//Clear replaces the visible universe with an empty one of the same size
func (b *Board) Clear() error {
	return b.replace(func(cur *universe.Universe) (*universe.Universe, error) {
		next := cur.Clone()
		next.Clear()
		return next, nil
	})
}

//replace swaps the universe built by fn in, pushing the current one to the history
func (b *Board) replace(fn func(cur *universe.Universe) (*universe.Universe, error)) error {
	b.mu.Lock()
	if b.running() {
		b.mu.Unlock()
		return ErrRunning
	}
	next, err := fn(b.universe)
	if err == nil {
		b.history.Push(b.universe)
		b.universe = next
	}
	b.mu.Unlock()
	if err != nil {
		return err
	}
	b.refreshView()
	return nil
}

//Run starts the evolution of the visible universe
func (b *Board) Run() error {
	b.mu.Lock()
	if b.running() {
		b.mu.Unlock()
		return errors.Wrapf(ErrAlreadyRunning, "episode %s", b.episode)
	}
	err := b.driver.Run(b.universe)
	if err == nil {
		b.mode, b.episode = StateRunning, b.driver.Episode()
	}
	b.mu.Unlock()
	if err != nil {
		return err
	}
	b.refreshView()
	return nil
}

//Halt stops the evolution, generations still queued are discarded
//the last generation of an episode that ended by itself is discarded too if it is not applied yet
func (b *Board) Halt() {
	b.driver.Halt()
	b.mu.Lock()
	b.mode = StateIdle
	b.mu.Unlock()
	b.refreshView()
}

func (b *Board) ToggleRun() error {
	if b.IsRunning() {
		b.Halt()
		return nil
	}
	return b.Run()
}

//IsRunning reports whether the followed episode may still change the visible universe
func (b *Board) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running()
}

//refreshView calls Refresh event for all registered views
func (b *Board) refreshView() {
	b.viewsMu.Lock()
	views := append([]Viewer(nil), b.views...)
	b.viewsMu.Unlock()
	for _, v := range views {
		v.Refresh()
	}
}
