package universe

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

//Cell is the state of one position of the universe
type Cell uint8

const (
	Dead  Cell = 0
	Alive Cell = 1
)

//IsAlive reports whether the cell is alive
func (c Cell) IsAlive() bool {
	return c == Alive
}

//Not returns the inverted cell, used by the toggle edit gesture
func (c Cell) Not() Cell {
	if c == Alive {
		return Dead
	}
	return Alive
}

func (c Cell) String() string {
	if c.IsAlive() {
		return "Alive"
	}
	return "Dead"
}

//Point is a read-only view of one universe position at a moment in time
type Point struct {
	row        int
	column     int
	cell       Cell
	corpseHeat float64
}

//NewPoint creates the Point
func NewPoint(row int, column int, cell Cell, corpseHeat float64) Point {
	return Point{row: row, column: column, cell: cell, corpseHeat: corpseHeat}
}

func (p Point) Row() int { return p.row }

func (p Point) Column() int { return p.column }

func (p Point) Cell() Cell { return p.cell }

//CorpseHeat tells how recently the cell died, render state only
func (p Point) CorpseHeat() float64 { return p.corpseHeat }

//PointMatrix is implemented by everything that exposes cells by row and column
type PointMatrix interface {
	Rows() int
	Columns() int
	Get(row int, column int) (Point, bool)
	Set(row int, column int, value Cell) (Point, error)
}

//RandomSource is the source of uniform draws in [0,1) used for seeding
type RandomSource interface {
	Float64() float64
}

//Options represents the Universe's configurable options
type Options struct {
	Rows             int
	Columns          int
	AliveProbability float64 //probability of a cell to be alive after random seeding
	CorpseHeat       float64 //heat assigned to a cell the moment it dies
	CorpseFreezeRate float64 //heat lost by a dead cell on each tick
	Workers          int     //bands computed concurrently by tick, <= 1 means sequential
}

//default options
const (
	DefRows             = 200
	DefColumns          = 200
	DefAliveProbability = 0.4
	DefCorpseHeat       = 0.65
	DefCorpseFreezeRate = 0.30
	DefWorkers          = 1
)

var DefaultUniverseOptions = Options{
	Rows:             DefRows,
	Columns:          DefColumns,
	AliveProbability: DefAliveProbability,
	CorpseHeat:       DefCorpseHeat,
	CorpseFreezeRate: DefCorpseFreezeRate,
	Workers:          DefWorkers,
}

var (
	ErrInvalidDimensions = errors.New("universe: invalid dimensions")
	ErrOutOfBounds       = errors.New("universe: point out of bounds")
	ErrReadOnly          = errors.New("universe: snapshot is read-only")
	ErrInvalidFormat     = errors.New("universe: invalid snapshot format")
)

//validate checks the dimensions, the only fatal misconfiguration
func (o *Options) validate() error {
	if o.Rows <= 0 || o.Columns <= 0 {
		return errors.Wrapf(ErrInvalidDimensions, "%d x %d", o.Rows, o.Columns)
	}
	if !fits(uint64(o.Rows), uint64(o.Columns)) {
		return errors.Wrapf(ErrInvalidDimensions, "%d x %d exceeds %d cells", o.Rows, o.Columns, MaxCells)
	}
	return nil
}

//MaxCells bounds rows*columns, a universe holds one byte and one float64 per cell
const MaxCells = 1 << 24

//fits reports whether a rows x columns universe stays within MaxCells
func fits(rows uint64, columns uint64) bool {
	return rows <= MaxCells && columns <= MaxCells && rows*columns <= MaxCells
}

func defaultRandomSource() RandomSource {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
