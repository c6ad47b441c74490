package evolution

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gameoflife/src/config"
	"gameoflife/src/universe"
)

type countingViewer struct {
	refreshed atomic.Int32
	board     *Board
}

func (v *countingViewer) Refresh()          { v.refreshed.Add(1) }
func (v *countingViewer) Register(b *Board) { v.board = b }
func (v *countingViewer) Start()            {}

//zeroSource always draws 0, every cell becomes alive
type zeroSource struct{}

func (zeroSource) Float64() float64 { return 0 }

func newBoard(t *testing.T, mutate func(s *config.Settings)) (*Board, *Driver) {
	t.Helper()
	store := newStore(t, mutate)
	d := NewDriver(store, nil)
	t.Cleanup(d.Close)
	b, err := NewBoard(blinker(t), d, store, nil)
	require.NoError(t, err)
	return b, d
}

func TestNewBoard_NilUniverse(t *testing.T) {
	store := newStore(t, nil)
	_, err := NewBoard(nil, NewDriver(store, nil), store, nil)
	assert.ErrorIs(t, err, ErrNoUniverse)
}

func TestBoard_ApplyPublishedGenerations(t *testing.T) {
	b, d := newBoard(t, nil)
	v := &countingViewer{}
	b.RegisterViewer(v)
	assert.Same(t, b, v.board)

	require.NoError(t, b.Run())
	assert.True(t, b.IsRunning())
	for i := 0; i < 3; i++ {
		assert.True(t, b.Apply(receive(t, d)))
	}
	st := b.Status()
	assert.Equal(t, uint64(3), st.Generation)
	assert.Equal(t, StateRunning, st.RunningMode)
	assert.Equal(t, d.Episode(), st.Episode)
	assert.True(t, st.CanRewind)

	b.Halt()
	assert.Equal(t, StateIdle, b.Status().RunningMode)
	assert.GreaterOrEqual(t, v.refreshed.Load(), int32(5))

	require.NoError(t, b.Rewind())
	assert.Equal(t, uint64(2), b.Universe().Generations())
}

func TestBoard_DiscardsGenerationsOfHaltedEpisode(t *testing.T) {
	b, d := newBoard(t, nil)
	require.NoError(t, b.Run())
	st := receive(t, d)
	b.Halt()

	assert.False(t, b.Apply(st))
	assert.Zero(t, b.Universe().Generations())
	assert.False(t, b.CanRewind())
}

func TestBoard_AcceptsLastGenerationOfFinishedEpisode(t *testing.T) {
	b, d := newBoard(t, func(s *config.Settings) { s.MaxGenerations = 2 })
	require.NoError(t, b.Run())
	assert.True(t, b.Apply(receive(t, d)))
	last := receive(t, d)
	assert.Equal(t, StateIdle, last.RunningMode)
	assert.True(t, b.Apply(last))
	assert.Equal(t, uint64(2), b.Status().Generation)
	assert.False(t, b.IsRunning())
}

func TestBoard_RunningUntilLastGenerationApplied(t *testing.T) {
	b, d := newBoard(t, func(s *config.Settings) { s.MaxGenerations = 2 })
	require.NoError(t, b.Run())
	first := receive(t, d)
	last := receive(t, d)
	require.False(t, d.IsRunning())

	require.True(t, b.Apply(first))
	assert.Equal(t, StateRunning, b.Status().RunningMode)
	require.True(t, b.Apply(last))
	assert.Equal(t, StateIdle, b.Status().RunningMode)
}

func TestBoard_Process(t *testing.T) {
	b, _ := newBoard(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.Process(ctx)
	}()

	require.NoError(t, b.Run())
	assert.Eventually(t, func() bool {
		return b.Status().Generation >= 4
	}, receiveTimeout, 5*time.Millisecond)
	b.Halt()

	cancel()
	wg.Wait()
}

func TestBoard_EditWhileRunningIsOverwritten(t *testing.T) {
	b, d := newBoard(t, nil)
	require.NoError(t, b.Run())
	assert.False(t, b.Editable())

	p, err := b.Toggle(0, 0)
	require.NoError(t, err)
	assert.Equal(t, universe.Alive, p.Cell())

	require.True(t, b.Apply(receive(t, d)))
	b.Read(func(u *universe.Universe) {
		p, _ := u.Get(0, 0)
		assert.Equal(t, universe.Dead, p.Cell())
	})
}

func TestBoard_WholeUniverseChangesNeedIdle(t *testing.T) {
	b, _ := newBoard(t, nil)
	require.NoError(t, b.Run())

	assert.ErrorIs(t, b.StepForward(), ErrRunning)
	assert.ErrorIs(t, b.Rewind(), ErrRunning)
	assert.ErrorIs(t, b.Clear(), ErrRunning)
	assert.ErrorIs(t, b.RandomSeed(nil), ErrRunning)
	assert.ErrorIs(t, b.Replace(blinker(t)), ErrRunning)
	assert.ErrorIs(t, b.Run(), ErrAlreadyRunning)

	require.NoError(t, b.ToggleRun())
	assert.False(t, b.IsRunning())
	require.NoError(t, b.StepForward())
}

func TestBoard_StepForwardAndRewind(t *testing.T) {
	b, _ := newBoard(t, func(s *config.Settings) { s.HistoryCapacity = 3 })
	for i := 0; i < 5; i++ {
		require.NoError(t, b.StepForward())
	}
	assert.Equal(t, uint64(5), b.Status().Generation)

	for want := uint64(4); want >= 2; want-- {
		require.NoError(t, b.Rewind())
		assert.Equal(t, want, b.Status().Generation)
	}
	assert.ErrorIs(t, b.Rewind(), ErrNothingToRewind)
	assert.False(t, b.Status().CanRewind)
}

func TestBoard_Locked(t *testing.T) {
	b, _ := newBoard(t, nil)
	b.SetLocked(true)
	assert.False(t, b.Editable())
	assert.True(t, b.Status().Locked)
	_, err := b.Edit(0, 0, universe.Alive)
	assert.ErrorIs(t, err, ErrLocked)

	b.SetLocked(false)
	assert.True(t, b.Editable())
	p, err := b.Edit(0, 0, universe.Alive)
	require.NoError(t, err)
	assert.Equal(t, universe.Alive, p.Cell())

	_, err = b.Edit(10, 0, universe.Alive)
	assert.ErrorIs(t, err, universe.ErrOutOfBounds)
}

func TestBoard_SnapshotLoad(t *testing.T) {
	b, _ := newBoard(t, nil)
	require.NoError(t, b.StepForward())
	s := b.Snapshot()

	require.NoError(t, b.Clear())
	assert.Zero(t, b.Status().LiveCells)

	require.NoError(t, b.Load(s))
	u := b.Universe()
	assert.Zero(t, u.Generations())
	assert.Equal(t, s.Serialize(), u.Snapshot().Serialize())
	assert.Equal(t, config.Default().CorpseFreezeRate, u.CorpseFreezeRate())

	require.NoError(t, b.Rewind())
	assert.Zero(t, b.Status().LiveCells)
}

func TestBoard_RandomSeedKeepsDimensions(t *testing.T) {
	b, _ := newBoard(t, nil)
	require.NoError(t, b.RandomSeed(zeroSource{}))
	u := b.Universe()
	assert.Equal(t, 5, u.Rows())
	assert.Equal(t, 5, u.Columns())
	assert.Equal(t, 25, u.AliveCount())
	assert.ErrorIs(t, b.Replace(nil), ErrNoUniverse)
}

func TestBoard_FinishedEpisodeKeepsBoardBusyUntilApplied(t *testing.T) {
	b, d := newBoard(t, func(s *config.Settings) { s.MaxGenerations = 1 })
	require.NoError(t, b.Run())
	episode := d.Episode()
	require.Eventually(t, func() bool { return !d.IsRunning() }, receiveTimeout, time.Millisecond)

	st := b.Status()
	assert.Equal(t, StateRunning, st.RunningMode)
	assert.Equal(t, episode, st.Episode)
	assert.True(t, b.IsRunning())
	assert.False(t, b.Editable())
	assert.ErrorIs(t, b.Clear(), ErrRunning)
	assert.ErrorIs(t, b.StepForward(), ErrRunning)
	assert.ErrorIs(t, b.Rewind(), ErrRunning)
	assert.ErrorIs(t, b.Run(), ErrAlreadyRunning)

	require.True(t, b.Apply(receive(t, d)))
	st = b.Status()
	assert.Equal(t, StateIdle, st.RunningMode)
	assert.Equal(t, uint64(1), st.Generation)
	require.NoError(t, b.Clear())
	require.NoError(t, b.Rewind())
	require.NoError(t, b.Rewind())
	assert.ErrorIs(t, b.Rewind(), ErrNothingToRewind)
}

func TestBoard_HaltDropsUnappliedLastGeneration(t *testing.T) {
	b, d := newBoard(t, func(s *config.Settings) { s.MaxGenerations = 1 })
	require.NoError(t, b.Run())
	last := receive(t, d)
	require.NoError(t, b.ToggleRun())
	assert.False(t, b.IsRunning())

	assert.False(t, b.Apply(last))
	assert.Zero(t, b.Status().Generation)
	require.NoError(t, b.Clear())
}

func TestBoard_ClearRacingRun(t *testing.T) {
	for i := 0; i < 20; i++ {
		b, d := newBoard(t, nil)
		var clearErr, runErr error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			clearErr = b.Clear()
		}()
		go func() {
			defer wg.Done()
			runErr = b.Run()
		}()
		wg.Wait()
		require.NoError(t, runErr)

		shown := b.Status().LiveCells
		st := receive(t, d)
		if clearErr == nil {
			//cleared before the episode started: the episode evolves the empty universe
			assert.Zero(t, shown)
			assert.Zero(t, st.LiveCells)
		} else {
			assert.ErrorIs(t, clearErr, ErrRunning)
			assert.Equal(t, 3, shown)
			assert.Equal(t, 3, st.LiveCells)
		}
		b.Halt()
	}
}

func TestBoard_LoadNil(t *testing.T) {
	b, _ := newBoard(t, nil)
	assert.ErrorIs(t, b.Load(nil), ErrNoUniverse)
	assert.False(t, b.CanRewind())
}
