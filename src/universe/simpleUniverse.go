package universe

/*
	Sequential tick engine
	All cells are calculated to the fresh buffers by one scan of the entire area
*/

//sequentialIteration does one simulation cycle walking all rows in order
func (u *Universe) sequentialIteration(next []Cell, heat []float64) []Point {
	return u.evolveRows(0, u.rows, next, heat)
}

//setEngine chooses the tick strategy for the number of workers
func (u *Universe) setEngine(workers int) {
	u.workers = workers
	u.bands = nil
	if workers <= 1 {
		u.nextIteration = u.sequentialIteration
		return
	}
	u.bands = splitBands(u.rows, workers)
	if len(u.bands) < 2 {
		u.bands = nil
		u.nextIteration = u.sequentialIteration
		return
	}
	u.nextIteration = u.bandedIteration
}
