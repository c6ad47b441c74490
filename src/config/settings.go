//Package config holds the settings injected into the universe, the board and the evolution driver.
//
//Settings are plain values read from YAML. A Store wraps them for the running application:
//it validates every change and notifies the registered listeners, which is how a new evolution
//speed reaches a driver that is already running.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"gameoflife/src/universe"
)

//Settings is the application configuration
type Settings struct {
	Rows             int     `yaml:"rows"`
	Columns          int     `yaml:"columns"`
	EvolutionSpeed   int     `yaml:"evolution_speed"` //generations per second
	AliveProbability float64 `yaml:"alive_probability"`
	CorpseHeat       float64 `yaml:"corpse_heat"`
	CorpseFreezeRate float64 `yaml:"corpse_freeze_rate"`
	HistoryCapacity  int     `yaml:"history_capacity"`
	Workers          int     `yaml:"workers"`
	ChannelBuffer    int     `yaml:"channel_buffer"`
	MaxGenerations   uint64  `yaml:"max_generations"` //0 means unlimited
	StopWhenStable   bool    `yaml:"stop_when_stable"`
	Animated         bool    `yaml:"animated"`
}

const (
	MinEvolutionSpeed = 1
	MaxEvolutionSpeed = 100
	DefEvolutionSpeed = 5
	DefChannelBuffer  = 64
)

var ErrInvalidSettings = errors.New("config: invalid settings")

//Default returns the settings used when nothing else is configured
func Default() Settings {
	return Settings{
		Rows:             universe.DefRows,
		Columns:          universe.DefColumns,
		EvolutionSpeed:   DefEvolutionSpeed,
		AliveProbability: universe.DefAliveProbability,
		CorpseHeat:       universe.DefCorpseHeat,
		CorpseFreezeRate: universe.DefCorpseFreezeRate,
		HistoryCapacity:  10,
		Workers:          universe.DefWorkers,
		ChannelBuffer:    DefChannelBuffer,
		Animated:         true,
	}
}

//Parse reads YAML on top of the defaults and validates the result
func Parse(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, errors.Wrap(ErrInvalidSettings, err.Error())
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

//Load reads and parses the settings file at path
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, errors.Wrapf(err, "read settings %s", path)
	}
	s, err := Parse(data)
	if err != nil {
		return Settings{}, errors.WithMessage(err, path)
	}
	return s, nil
}

//Validate checks every value, the first violation is returned
func (s Settings) Validate() error {
	switch {
	case s.Rows <= 0 || s.Columns <= 0:
		return errors.Wrapf(ErrInvalidSettings, "dimensions %d x %d", s.Rows, s.Columns)
	case s.Rows > universe.MaxCells/s.Columns:
		return errors.Wrapf(ErrInvalidSettings, "dimensions %d x %d exceed %d cells", s.Rows, s.Columns, universe.MaxCells)
	case s.EvolutionSpeed < MinEvolutionSpeed || s.EvolutionSpeed > MaxEvolutionSpeed:
		return errors.Wrapf(ErrInvalidSettings, "evolution speed %d not in [%d,%d]", s.EvolutionSpeed, MinEvolutionSpeed, MaxEvolutionSpeed)
	case s.AliveProbability < 0 || s.AliveProbability > 1:
		return errors.Wrapf(ErrInvalidSettings, "alive probability %v not in [0,1]", s.AliveProbability)
	case s.CorpseHeat < 0:
		return errors.Wrapf(ErrInvalidSettings, "corpse heat %v", s.CorpseHeat)
	case s.CorpseFreezeRate < 0:
		return errors.Wrapf(ErrInvalidSettings, "corpse freeze rate %v", s.CorpseFreezeRate)
	case s.HistoryCapacity < 1:
		return errors.Wrapf(ErrInvalidSettings, "history capacity %d", s.HistoryCapacity)
	case s.Workers < 1:
		return errors.Wrapf(ErrInvalidSettings, "workers %d", s.Workers)
	case s.ChannelBuffer < 1:
		return errors.Wrapf(ErrInvalidSettings, "channel buffer %d", s.ChannelBuffer)
	}
	return nil
}

//Interval is the pause between two generations
func (s Settings) Interval() time.Duration {
	return IntervalForSpeed(s.EvolutionSpeed)
}

//IntervalForSpeed converts generations per second into the tick interval (1000ms / speed)
func IntervalForSpeed(speed int) time.Duration {
	if speed < MinEvolutionSpeed {
		speed = MinEvolutionSpeed
	}
	return time.Duration(1000/speed) * time.Millisecond
}

//UniverseOptions projects the settings on the universe options
func (s Settings) UniverseOptions() universe.Options {
	return universe.Options{
		Rows:             s.Rows,
		Columns:          s.Columns,
		AliveProbability: s.AliveProbability,
		CorpseHeat:       s.CorpseHeat,
		CorpseFreezeRate: s.CorpseFreezeRate,
		Workers:          s.Workers,
	}
}

//Marshal encodes the settings as YAML
func (s Settings) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
