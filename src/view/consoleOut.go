package view

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/logrusorgru/aurora"

	"gameoflife/src/config"
	"gameoflife/src/evolution"
)

//DefProgressEvery is how often (in generations) the progress is printed
const DefProgressEvery = 10

//ConsoleOut prints the progress of a headless run
type ConsoleOut struct {
	b     *evolution.Board
	store *config.Store
	out   io.Writer
	every uint64

	mu        sync.Mutex
	startTime time.Time
	started   bool
	printed   uint64
	done      chan struct{}
}

func NewConsoleOut(store *config.Store, out io.Writer) *ConsoleOut {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleOut{
		store: store,
		out:   out,
		every: DefProgressEvery,
		done:  make(chan struct{}),
	}
}

//Done is closed once the started evolution is over
func (c *ConsoleOut) Done() <-chan struct{} {
	return c.done
}

func (c *ConsoleOut) Refresh() {
	st := c.b.Status()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return
	}
	if st.RunningMode == evolution.StateIdle {
		totalTime := time.Since(c.startTime).Round(time.Millisecond)
		resultData := map[string]interface{}{
			"Last generation": st.Generation,
			"Total time":      totalTime,
			"Live cells":      st.LiveCells,
		}
		_, _ = fmt.Fprintln(c.out, "\n"+aurora.Red("Finished:").String())
		c.printHashData(resultData)
		c.started = false
		select {
		case <-c.done:
		default:
			close(c.done)
		}
		return
	}
	if st.Generation%c.every == 0 && st.Generation != c.printed {
		c.printed = st.Generation
		_, _ = fmt.Fprintf(c.out, "  Generations done: %v, live cells: %v\n", aurora.Cyan(st.Generation), st.LiveCells)
	}
}

func (c *ConsoleOut) Register(b *evolution.Board) {
	c.b = b
	o := c.store.Settings()
	u := b.Universe()
	_, _ = fmt.Fprintln(c.out, aurora.Green("Running configuration:"))
	_, _ = fmt.Fprintf(c.out, "  Dimension: %v x %v\n", u.Rows(), u.Columns())
	_, _ = fmt.Fprintf(c.out, "  Interval: %v\n", o.Interval())
	_, _ = fmt.Fprintf(c.out, "  Max generations: %v\n", maxGenerationsDescr(o.MaxGenerations))
	c.printHashData(map[string]interface{}{
		"Alive probability":  o.AliveProbability,
		"Corpse heat":        o.CorpseHeat,
		"Corpse freeze rate": o.CorpseFreezeRate,
		"Stop when stable":   o.StopWhenStable,
		"Workers":            o.Workers,
	})
}

//Start marks the beginning of the evolution, call it right before running the board
func (c *ConsoleOut) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
	c.started = true
	_, _ = fmt.Fprintln(c.out, "\nSimulation started...")
}

func (c *ConsoleOut) printHashData(d map[string]interface{}) {
	propNames := make([]string, 0, len(d))
	for k := range d {
		propNames = append(propNames, k)
	}
	sort.Strings(propNames)
	for _, propName := range propNames {
		_, _ = fmt.Fprintf(c.out, "  %s: %v\n", propName, d[propName])
	}
}
