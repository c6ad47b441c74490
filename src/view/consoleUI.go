package view

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jroimartin/gocui"
	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"

	"gameoflife/src/config"
	"gameoflife/src/evolution"
	"gameoflife/src/universe"
)

const DefSnapshotPath = "universe.gol"

type keyBindings struct {
	key      interface{}
	name     string
	descr    string
	handler  func(v *gocui.View) error
	viewName string
}

//ConsoleUI is the interactive terminal board
type ConsoleUI struct {
	b            *evolution.Board
	store        *config.Store
	log          *slog.Logger
	g            *gocui.Gui
	k            []keyBindings
	snapshotPath string

	liveFiller  string
	deadFiller  string
	heatFillers []string //hottest first

	msgMu   sync.Mutex
	message string

	unsubscribe func()
}

var (
	runningStateDescr = map[evolution.RunningState]string{
		evolution.StateIdle:    aurora.Colorize("waiting", aurora.BlueFg).String(),
		evolution.StateRunning: aurora.Colorize("running", aurora.CyanFg).String(),
	}
)

//NewViewTerminal creates the terminal UI, snapshots are saved to snapshotPath
func NewViewTerminal(store *config.Store, snapshotPath string, log *slog.Logger) (*ConsoleUI, error) {
	if log == nil {
		log = slog.Default()
	}
	if snapshotPath == "" {
		snapshotPath = DefSnapshotPath
	}
	t := ConsoleUI{
		store:        store,
		log:          log.With("component", "console"),
		snapshotPath: snapshotPath,
		liveFiller:   aurora.Green("█").BgBrightGreen().String(),
		deadFiller:   "░",
		heatFillers: []string{
			aurora.Red("▓").String(),
			aurora.Yellow("▒").String(),
			aurora.BrightBlack("▒").String(),
		},
	}

	var err error
	t.g, err = gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, errors.Wrap(err, "init terminal")
	}

	t.g.Mouse = true
	t.k = []keyBindings{
		{gocui.KeyCtrlC, "^C", "Exit", t.cmdQuit, ""},
		{'n', "N", "Next step", t.cmdNextRound, ""},
		{'b', "B", "Back", t.cmdRewind, ""},
		{'r', "R", "Run", t.cmdRun, ""},
		{'s', "S", "Stop", t.cmdStop, ""},
		{'c', "C", "Clear", t.cmdClear, ""},
		{'w', "W", "Settle with random", t.cmdSettleWithRandom, ""},
		{'+', "+", "Faster", t.cmdFaster, ""},
		{'-', "-", "Slower", t.cmdSlower, ""},
		{'a', "A", "Animation", t.cmdAnimation, ""},
		{'l', "L", "Lock", t.cmdLock, ""},
		{'p', "P", "Save", t.cmdSave, ""},
		{gocui.MouseLeft, "MOUSE", "Toggle the cell", t.cmdMouseClick, "battlefield"},
	}
	t.g.SetManagerFunc(t.layout)

	if err := t.initKeyBindings(t.k); err != nil {
		t.g.Close()
		return nil, err
	}
	t.unsubscribe = store.OnChange(func(config.Settings) { t.renderConfiguration() })

	return &t, nil
}

func (t *ConsoleUI) initKeyBindings(k []keyBindings) error {
	for _, kb := range k {
		h := kb.handler
		if err := t.g.SetKeybinding(kb.viewName, kb.key, gocui.ModNone, func(gui *gocui.Gui, view *gocui.View) error { return h(view) }); err != nil {
			return errors.Wrapf(err, "bind %s", kb.name)
		}
	}
	return nil
}

func (t *ConsoleUI) Register(b *evolution.Board) {
	t.b = b
}

//Start runs the terminal main loop until the user quits
func (t *ConsoleUI) Start() {
	defer t.unsubscribe()
	if err := t.g.MainLoop(); err != nil && err != gocui.ErrQuit {
		t.log.Error("terminal main loop", "error", err)
	}
	t.g.Close()
}

func (t *ConsoleUI) Refresh() {
	t.renderField()
	t.renderStatus()
}

func (t *ConsoleUI) renderField() {
	t.g.Update(func(g *gocui.Gui) error {
		v, e := g.View("battlefield")
		if e != nil {
			return e
		}
		//the entire field is redrawing at once
		v.Clear()
		maxW, maxH := v.Size()
		settings := t.store.Settings()

		var b bytes.Buffer
		t.b.Read(func(u *universe.Universe) {
			crop := u.Columns() > maxW || u.Rows() > maxH
			for p := range u.Points() {
				i, j := p.Row(), p.Column()
				//discard the data outside the view area
				if i >= maxH {
					break
				}
				if j >= maxW {
					continue
				}
				if j == 0 && i != 0 {
					b.WriteByte('\n')
				}
				if crop && i == maxH-1 {
					if j == 0 {
						b.WriteString(aurora.Red("The field size is larger than the viewing area").BgBlack().String())
					}
					continue
				}
				b.WriteString(t.filler(p, settings.Animated, settings.CorpseHeat))
			}
		})
		_, _ = fmt.Fprint(v, b.String())
		return nil
	})
}

//filler picks the character of one cell, recently dead cells fade out when animated
//corpseHeat is the heat of a cell that has just died
func (t *ConsoleUI) filler(p universe.Point, animated bool, corpseHeat float64) string {
	if p.Cell().IsAlive() {
		return t.liveFiller
	}
	if !animated || p.CorpseHeat() <= 0 || corpseHeat <= 0 {
		return t.deadFiller
	}
	step := corpseHeat / float64(len(t.heatFillers))
	for i, f := range t.heatFillers {
		if p.CorpseHeat() > corpseHeat-float64(i+1)*step {
			return f
		}
	}
	return t.heatFillers[len(t.heatFillers)-1]
}

func (t *ConsoleUI) renderStatus() {
	s := t.b.Status()
	msg := t.lastMessage()
	t.g.Update(func(g *gocui.Gui) error {
		if v, e := g.View("status"); e == nil {
			v.Clear()
			_, _ = fmt.Fprintln(v, t.renderProp("Generation", "%v", s.Generation))
			_, _ = fmt.Fprintln(v, t.renderProp("Live Cells", "%v", s.LiveCells))
			_, _ = fmt.Fprintln(v, t.renderProp("Evaluation time", "%v", s.IterationTime.Round(time.Microsecond)))
			_, _ = fmt.Fprintln(v, t.renderProp("Mode", "%v", runningStateDescr[s.RunningMode]))
			_, _ = fmt.Fprintln(v, t.renderProp("Can go back", "%v", s.CanRewind))
			_, _ = fmt.Fprintln(v, t.renderProp("Locked", "%v", s.Locked))
			if msg != "" {
				_, _ = fmt.Fprintln(v, " "+aurora.Red(msg).String())
			}
		}
		return nil
	})
}

func (t *ConsoleUI) renderConfiguration() {
	//it needs to call Update when calls from goroutine
	t.g.Update(func(g *gocui.Gui) error {
		c := t.store.Settings()
		if v, e := g.View("configuration"); e == nil {
			v.Clear()
			_, _ = fmt.Fprintln(v, t.renderProp("Dimension", "%v x %v", c.Rows, c.Columns))
			_, _ = fmt.Fprintln(v, t.renderProp("Speed", "%v gen/s", c.EvolutionSpeed))
			_, _ = fmt.Fprintln(v, t.renderProp("Interval", "%v", c.Interval()))
			_, _ = fmt.Fprintln(v, t.renderProp("Freeze rate", "%.2f", c.CorpseFreezeRate))
			_, _ = fmt.Fprintln(v, t.renderProp("Generations", "%v", maxGenerationsDescr(c.MaxGenerations)))
			_, _ = fmt.Fprintln(v, t.renderProp("Animated", "%v", c.Animated))
			_, _ = fmt.Fprintln(v, t.renderProp("Workers", "%v", c.Workers))
		}
		return nil
	})
}

func maxGenerationsDescr(n uint64) string {
	if n == 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%v max", n)
}

func (t *ConsoleUI) renderProp(name string, valueformat string, values ...interface{}) string {
	return fmt.Sprintf(" "+aurora.Colorize(name, aurora.GreenFg).String()+": "+valueformat, values...)
}

func (t *ConsoleUI) layout(g *gocui.Gui) error {

	maxX, maxY := g.Size()
	leftColumnWidth := 28
	minWindowHeight := 20

	if maxY < minWindowHeight {
		if _, err := t.headerLayout(g, maxY, "Terminal height too small"); err != nil {
			if err != gocui.ErrUnknownView {
				return err
			}
		}
		_ = g.DeleteView("configuration")
		_ = g.DeleteView("status")
		_ = g.DeleteView("battlefield")
		return nil
	}
	if _, err := t.headerLayout(g, 3, "Conway's Game of Life"); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
	}

	if v, err := g.SetView("configuration", 0, 3, leftColumnWidth, 3+(maxY-5-3)/2); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Title = "Configuration"
		v.Frame = true
		t.renderConfiguration()
	}

	if v, err := g.SetView("status", 0, 3+(maxY-5-3)/2+1, leftColumnWidth, maxY-5); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Title = "Status"
		v.Frame = true
		t.renderStatus()
	}

	if v, err := g.SetView("battlefield", leftColumnWidth+1, 3, maxX-1, maxY-5); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Title = "Universe"
		v.Frame = true
	}
	t.renderField()

	if v, err := g.SetView("help", -1, maxY-5, maxX, maxY-3); err != nil {
		if err != gocui.ErrUnknownView || v == nil {
			return err
		}
		v.Frame = false
		v.Wrap = true
		b := bytes.Buffer{}
		b.WriteString("KEYBINDINGS: ")
		for i, k := range t.k {
			if i != 0 {
				b.WriteString(", ")
			}
			b.WriteString(aurora.Green(k.name).String())
			b.WriteString(": ")
			b.WriteString(k.descr)
		}
		_, _ = fmt.Fprintln(v, b.String())
	}

	return nil
}

func (t *ConsoleUI) headerLayout(g *gocui.Gui, height int, text string) (v *gocui.View, err error) {
	maxX, _ := g.Size()
	if v, err = g.SetView("header", -1, -1, maxX+1, height); err != nil {
		if err == gocui.ErrUnknownView && v != nil {
			v.Frame = false
			v.BgColor = gocui.ColorCyan
			v.FgColor = gocui.ColorBlack
		}
	}
	if v != nil {
		v.Clear()
		pad := 0
		if maxX > len(text) {
			pad = (maxX - len(text)) / 2
		}
		_, _ = fmt.Fprintln(v, strings.Repeat("\n", height/2+1)+strings.Repeat(" ", pad)+text)
	}
	return
}

//report shows err in the status pane, nil clears the previous message
func (t *ConsoleUI) report(action string, err error) {
	t.msgMu.Lock()
	if err != nil {
		t.message = fmt.Sprintf("%s: %v", action, err)
	} else {
		t.message = ""
	}
	t.msgMu.Unlock()
	if err != nil {
		t.log.Warn("command failed", "command", action, "error", err)
	}
	t.renderStatus()
}

func (t *ConsoleUI) lastMessage() string {
	t.msgMu.Lock()
	defer t.msgMu.Unlock()
	return t.message
}

func (t *ConsoleUI) cmdQuit(_ *gocui.View) error {
	return gocui.ErrQuit
}

func (t *ConsoleUI) cmdNextRound(_ *gocui.View) error {
	t.report("next step", t.b.StepForward())
	return nil
}

func (t *ConsoleUI) cmdRewind(_ *gocui.View) error {
	t.report("back", t.b.Rewind())
	return nil
}

func (t *ConsoleUI) cmdRun(_ *gocui.View) error {
	err := t.b.Run()
	if errors.Is(err, evolution.ErrAlreadyRunning) {
		err = nil
	}
	t.report("run", err)
	return nil
}

func (t *ConsoleUI) cmdStop(_ *gocui.View) error {
	t.b.Halt()
	t.report("stop", nil)
	return nil
}

func (t *ConsoleUI) cmdClear(_ *gocui.View) error {
	t.report("clear", t.b.Clear())
	return nil
}

func (t *ConsoleUI) cmdSettleWithRandom(_ *gocui.View) error {
	t.report("random", t.b.RandomSeed(nil))
	return nil
}

func (t *ConsoleUI) cmdFaster(_ *gocui.View) error {
	t.changeSpeed(1)
	return nil
}

func (t *ConsoleUI) cmdSlower(_ *gocui.View) error {
	t.changeSpeed(-1)
	return nil
}

func (t *ConsoleUI) changeSpeed(delta int) {
	speed := t.store.EvolutionSpeed() + delta
	if speed < config.MinEvolutionSpeed || speed > config.MaxEvolutionSpeed {
		return
	}
	t.report("speed", t.store.SetEvolutionSpeed(speed))
}

func (t *ConsoleUI) cmdAnimation(_ *gocui.View) error {
	t.report("animation", t.store.SetAnimated(!t.store.Animated()))
	t.renderField()
	return nil
}

func (t *ConsoleUI) cmdLock(_ *gocui.View) error {
	t.b.SetLocked(!t.b.Status().Locked)
	return nil
}

func (t *ConsoleUI) cmdSave(_ *gocui.View) error {
	data := t.b.Snapshot().Serialize()
	err := os.WriteFile(t.snapshotPath, data, 0o644)
	if err == nil {
		t.log.Info("snapshot saved", "path", t.snapshotPath, "bytes", len(data))
	}
	t.report("save", err)
	return nil
}

func (t *ConsoleUI) cmdMouseClick(v *gocui.View) error {
	cx, cy := v.Cursor()
	_, err := t.b.Toggle(cy, cx)
	t.report("toggle", err)
	return nil
}
