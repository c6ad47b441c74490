package universe

import (
	"iter"
	"strings"

	"github.com/pkg/errors"
)

//Universe is a toroidal grid of cells evolving under Conway's rules
//every cell carries the corpse heat used to fade recently dead cells
//the tick strategy is chosen at construction (see Options.Workers)
type Universe struct {
	rows             int
	columns          int
	cells            []Cell
	deathMap         []float64
	aliveProbability float64
	corpseHeat       float64
	corpseFreezeRate float64
	generations      uint64
	lastDelta        []Point
	ticked           bool //lastDelta is valid only after the first tick
	workers          int
	bands            []band
	nextIteration    func(next []Cell, heat []float64) []Point
}

//New creates an empty (all dead) universe with options o
//nil o means DefaultUniverseOptions
func New(o *Options) (*Universe, error) {
	if o == nil {
		d := DefaultUniverseOptions
		o = &d
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	size := o.Rows * o.Columns
	u := &Universe{
		rows:             o.Rows,
		columns:          o.Columns,
		cells:            make([]Cell, size),
		deathMap:         make([]float64, size),
		aliveProbability: clampUnit(o.AliveProbability),
		corpseHeat:       o.CorpseHeat,
		corpseFreezeRate: nonNegative(o.CorpseFreezeRate),
	}
	u.setEngine(o.Workers)
	return u, nil
}

//NewEmpty creates an all dead universe with the default options
func NewEmpty(rows int, columns int) (*Universe, error) {
	o := DefaultUniverseOptions
	o.Rows, o.Columns = rows, columns
	return New(&o)
}

//NewRandom creates a universe seeded with DefAliveProbability
//rnd may be nil
func NewRandom(rows int, columns int, rnd RandomSource) (*Universe, error) {
	u, err := NewEmpty(rows, columns)
	if err != nil {
		return nil, err
	}
	u.SeedRandom(u.aliveProbability, rnd)
	return u, nil
}

func (u *Universe) Rows() int { return u.rows }

func (u *Universe) Columns() int { return u.columns }

//Generations returns the number of ticks since creation, seeding or loading
func (u *Universe) Generations() uint64 { return u.generations }

func (u *Universe) CorpseHeat() float64 { return u.corpseHeat }

func (u *Universe) AliveProbability() float64 { return u.aliveProbability }

func (u *Universe) CorpseFreezeRate() float64 {
	return u.corpseFreezeRate
}

//SetCorpseFreezeRate sets the heat lost per tick by dead cells, negative values are treated as 0
func (u *Universe) SetCorpseFreezeRate(rate float64) {
	u.corpseFreezeRate = nonNegative(rate)
}

//SeedRandom makes every cell alive with the given probability
//the universe starts over: heat is zeroed, generation counter and delta are reset
func (u *Universe) SeedRandom(probability float64, rnd RandomSource) {
	if rnd == nil {
		rnd = defaultRandomSource()
	}
	probability = clampUnit(probability)
	for i := range u.cells {
		if rnd.Float64() < probability {
			u.cells[i] = Alive
		} else {
			u.cells[i] = Dead
		}
		u.deathMap[i] = 0
	}
	u.resetCounters()
}

//Clear kills every cell and resets all counters
func (u *Universe) Clear() {
	for i := range u.cells {
		u.cells[i] = Dead
		u.deathMap[i] = 0
	}
	u.resetCounters()
}

func (u *Universe) resetCounters() {
	u.generations = 0
	u.lastDelta = nil
	u.ticked = false
}

//Get returns the point at row, column; false if it is outside the universe
func (u *Universe) Get(row int, column int) (Point, bool) {
	if !u.contains(row, column) {
		return Point{}, false
	}
	i := u.index(row, column)
	return NewPoint(row, column, u.cells[i], u.deathMap[i]), true
}

//SetCell overwrites the cell at row, column without applying any rule
func (u *Universe) SetCell(row int, column int, value Cell) error {
	if !u.contains(row, column) {
		return errors.Wrapf(ErrOutOfBounds, "set %d,%d on %dx%d", row, column, u.rows, u.columns)
	}
	u.cells[u.index(row, column)] = value
	return nil
}

//Set overwrites the cell at row, column and returns the altered point
func (u *Universe) Set(row int, column int, value Cell) (Point, error) {
	if err := u.SetCell(row, column, value); err != nil {
		return Point{}, err
	}
	p, _ := u.Get(row, column)
	return p, nil
}

//Toggle inverts the cell at row, column
func (u *Universe) Toggle(row int, column int) (Point, error) {
	p, ok := u.Get(row, column)
	if !ok {
		return Point{}, errors.Wrapf(ErrOutOfBounds, "toggle %d,%d on %dx%d", row, column, u.rows, u.columns)
	}
	return u.Set(row, column, p.Cell().Not())
}

//NeighbourCount counts alive cells among the 8 toroidally wrapped neighbours
func (u *Universe) NeighbourCount(row int, column int) int {
	count := 0
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			//skip my position
			if dr == 0 && dc == 0 {
				continue
			}
			//with 1 row or column every offset wraps back onto the cell itself
			nr := (row + u.rows + dr) % u.rows
			nc := (column + u.columns + dc) % u.columns
			if u.cells[u.index(nr, nc)] == Alive {
				count++
			}
		}
	}
	return count
}

//NextState calculates the next state for the cell
func (u *Universe) NextState(row int, column int) Cell {
	n := u.NeighbourCount(row, column)
	if n == 3 || (n == 2 && u.cells[u.index(row, column)] == Alive) {
		return Alive
	}
	return Dead
}

//Tick computes the next generation
//every next state is calculated from the current buffers into fresh ones
//which then replace the current buffers, so the scan never sees a partial update
func (u *Universe) Tick() {
	next := make([]Cell, len(u.cells))
	heat := make([]float64, len(u.deathMap))
	delta := u.nextIteration(next, heat)
	u.cells = next
	u.deathMap = heat
	u.generations++
	u.lastDelta = delta
	u.ticked = true
}

//evolveRows calculates rows [from, to) into next and heat
//returns the points whose cell changed
func (u *Universe) evolveRows(from int, to int, next []Cell, heat []float64) []Point {
	delta := make([]Point, 0)
	for row := from; row < to; row++ {
		for column := 0; column < u.columns; column++ {
			i := u.index(row, column)
			current := u.cells[i]
			state := u.NextState(row, column)
			h := u.deathMap[i]
			switch {
			case state != current && state == Alive:
				h = 0
			case state != current:
				h = u.corpseHeat
			case current == Dead && h > 0:
				//corpse keeps freezing, never below zero
				h -= u.corpseFreezeRate
				if h < 0 {
					h = 0
				}
			}
			next[i] = state
			heat[i] = h
			if state != current {
				delta = append(delta, NewPoint(row, column, state, h))
			}
		}
	}
	return delta
}

//AliveCount calculates the count of live cells
func (u *Universe) AliveCount() int {
	return countAlive(u.cells)
}

//DeadCount calculates the count of dead cells
func (u *Universe) DeadCount() int {
	return len(u.cells) - countAlive(u.cells)
}

//LastDelta returns the points changed by the last tick
//before the first tick every point is returned, so a fresh universe can be drawn incrementally
func (u *Universe) LastDelta() []Point {
	if !u.ticked {
		return u.allPoints()
	}
	d := make([]Point, len(u.lastDelta))
	copy(d, u.lastDelta)
	return d
}

//Points enumerates the universe row by row, every call gives a fresh sequence
func (u *Universe) Points() iter.Seq[Point] {
	return func(yield func(Point) bool) {
		for row := 0; row < u.rows; row++ {
			for column := 0; column < u.columns; column++ {
				i := u.index(row, column)
				if !yield(NewPoint(row, column, u.cells[i], u.deathMap[i])) {
					return
				}
			}
		}
	}
}

//Snapshot projects the universe cells into a read-only Snapshot
func (u *Universe) Snapshot() *Snapshot {
	return NewSnapshot(u)
}

//Clone creates a deep copy sharing no memory with u
func (u *Universe) Clone() *Universe {
	c := *u
	c.cells = append([]Cell(nil), u.cells...)
	c.deathMap = append([]float64(nil), u.deathMap...)
	if u.lastDelta != nil {
		c.lastDelta = append([]Point(nil), u.lastDelta...)
	}
	//the engine closure is bound to the receiver
	c.setEngine(u.workers)
	return &c
}

func (u *Universe) String() string {
	var b strings.Builder
	for row := 0; row < u.rows; row++ {
		for _, c := range u.cells[row*u.columns : (row+1)*u.columns] {
			if c == Alive {
				b.WriteRune('◼')
			} else {
				b.WriteRune('◻')
			}
		}
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}

func (u *Universe) allPoints() []Point {
	points := make([]Point, 0, len(u.cells))
	for p := range u.Points() {
		points = append(points, p)
	}
	return points
}

func (u *Universe) index(row int, column int) int {
	return row*u.columns + column
}

func (u *Universe) contains(row int, column int) bool {
	return row >= 0 && column >= 0 && row < u.rows && column < u.columns
}

func countAlive(cells []Cell) int {
	n := 0
	for _, c := range cells {
		if c == Alive {
			n++
		}
	}
	return n
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
