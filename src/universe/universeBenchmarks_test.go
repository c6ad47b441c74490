package universe

import (
	"math/rand"
	"sort"
	"testing"
)

var (
	engines = map[string]func(o *Options) (*Universe, error){
		"sequential": New,
		"banded": func(o *Options) (*Universe, error) {
			o.Workers = 10
			return New(o)
		},
	}
)

const (
	rows    = 200
	columns = 200
)

func newUniverseOptions() *Options {
	o := DefaultUniverseOptions
	o.Rows = rows
	o.Columns = columns
	return &o
}

func engineNames() (engineNames []string) {
	engineNames = make([]string, 0, len(engines))
	for k := range engines {
		engineNames = append(engineNames, k)
	}
	sort.Strings(engineNames)
	return
}

func Benchmark_Tick(b *testing.B) {
	for _, e := range engineNames() {
		b.Run(e, func(b *testing.B) {
			u, err := engines[e](newUniverseOptions())
			if err != nil {
				b.Fatal(err)
			}
			u.SeedRandom(DefAliveProbability, rand.New(rand.NewSource(1)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				u.Tick()
			}
		})
	}
}

func Benchmark_Snapshot(b *testing.B) {
	u, err := New(newUniverseOptions())
	if err != nil {
		b.Fatal(err)
	}
	u.SeedRandom(DefAliveProbability, rand.New(rand.NewSource(1)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Deserialize(u.Snapshot().Serialize()); err != nil {
			b.Fatal(err)
		}
	}
}
