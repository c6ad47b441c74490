package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gameoflife/src/universe"
)

func TestDefault_IsValid(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())
	assert.Equal(t, 200*time.Millisecond, s.Interval())
	assert.Equal(t, universe.DefAliveProbability, s.AliveProbability)
	assert.Equal(t, 10, s.HistoryCapacity)
}

func TestParse_OverridesDefaults(t *testing.T) {
	s, err := Parse([]byte(`
rows: 30
columns: 40
evolution_speed: 20
corpse_freeze_rate: 0.1
animated: false
`))
	require.NoError(t, err)
	assert.Equal(t, 30, s.Rows)
	assert.Equal(t, 40, s.Columns)
	assert.Equal(t, 20, s.EvolutionSpeed)
	assert.Equal(t, 50*time.Millisecond, s.Interval())
	assert.Equal(t, 0.1, s.CorpseFreezeRate)
	assert.False(t, s.Animated)
	assert.Equal(t, universe.DefCorpseHeat, s.CorpseHeat)

	o := s.UniverseOptions()
	assert.Equal(t, 30, o.Rows)
	assert.Equal(t, 0.1, o.CorpseFreezeRate)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"not yaml":         "rows: [",
		"zero rows":        "rows: 0",
		"too many cells":   "rows: 1048576\ncolumns: 1048576",
		"speed too low":    "evolution_speed: 0",
		"speed too high":   "evolution_speed: 101",
		"probability":      "alive_probability: 1.5",
		"negative heat":    "corpse_heat: -1",
		"negative freeze":  "corpse_freeze_rate: -0.1",
		"history":          "history_capacity: 0",
		"workers":          "workers: 0",
		"channel buffer":   "channel_buffer: 0",
		"wrong value type": "rows: many",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.ErrorIs(t, err, ErrInvalidSettings)
		})
	}
}

func TestIntervalForSpeed(t *testing.T) {
	assert.Equal(t, time.Second, IntervalForSpeed(1))
	assert.Equal(t, 10*time.Millisecond, IntervalForSpeed(100))
	assert.Equal(t, 333*time.Millisecond, IntervalForSpeed(3))
	assert.Equal(t, time.Second, IntervalForSpeed(0))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gol.yaml")
	data, err := Default().Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), s)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestStore_NotifiesEffectiveChanges(t *testing.T) {
	st, err := NewStore(Default())
	require.NoError(t, err)

	var got []int
	cancel := st.OnChange(func(s Settings) { got = append(got, s.EvolutionSpeed) })

	require.NoError(t, st.SetEvolutionSpeed(10))
	require.NoError(t, st.SetEvolutionSpeed(10))
	assert.ErrorIs(t, st.SetEvolutionSpeed(500), ErrInvalidSettings)
	assert.Equal(t, 10, st.EvolutionSpeed())

	require.NoError(t, st.SetAnimated(false))
	assert.False(t, st.Animated())
	require.NoError(t, st.SetCorpseFreezeRate(0.2))
	assert.Equal(t, 0.2, st.CorpseFreezeRate())

	cancel()
	require.NoError(t, st.SetEvolutionSpeed(11))
	assert.Equal(t, []int{10, 10, 10}, got)
}

func TestNewStore_RejectsInvalid(t *testing.T) {
	s := Default()
	s.Workers = 0
	_, err := NewStore(s)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gol.yaml")
	require.NoError(t, os.WriteFile(path, []byte("evolution_speed: 5\n"), 0o644))

	st, err := NewStore(Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, Watch(ctx, path, st, nil))
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	//the watcher may not be registered yet, keep writing until it is seen
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("evolution_speed: 42\n"), 0o644)
		return st.EvolutionSpeed() == 42
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("evolution_speed: 0\n"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 42, st.EvolutionSpeed())
}
