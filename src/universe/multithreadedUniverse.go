package universe

import "golang.org/x/sync/errgroup"

/*
	Tick engine with multithreaded computation algorithm
	the field is splitted into bands of rows each of which is computed by individual goroutine
	bands write disjoint parts of the fresh buffers, their deltas are joined in row order
*/

const (
	DefMinRowsPerWorker = 3 //minimum rows for one worker
)

//band describes the rows [from, to) computed by one worker
type band struct {
	from int
	to   int
}

//splitBands divides rows between workers, never less than DefMinRowsPerWorker rows per band
func splitBands(rows int, workers int) []band {
	linesPerWorker := rows / workers
	if linesPerWorker < DefMinRowsPerWorker {
		linesPerWorker = DefMinRowsPerWorker
	} else if linesPerWorker*workers < rows {
		linesPerWorker++
	}
	bands := make([]band, 0, workers)
	for from := 0; from < rows; from += linesPerWorker {
		to := from + linesPerWorker
		if to > rows {
			to = rows
		}
		bands = append(bands, band{from, to})
	}
	return bands
}

//bandedIteration starts one goroutine per band and waits for all of them
func (u *Universe) bandedIteration(next []Cell, heat []float64) []Point {
	deltas := make([][]Point, len(u.bands))
	var g errgroup.Group
	for i, b := range u.bands {
		g.Go(func() error {
			deltas[i] = u.evolveRows(b.from, b.to, next, heat)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, d := range deltas {
		total += len(d)
	}
	delta := make([]Point, 0, total)
	for _, d := range deltas {
		delta = append(delta, d...)
	}
	return delta
}
