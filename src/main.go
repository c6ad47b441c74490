package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/integrii/flaggy"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gameoflife/src/config"
	"gameoflife/src/evolution"
	"gameoflife/src/templates"
	"gameoflife/src/universe"
	"gameoflife/src/view"
)

const defLogPath = "gameoflife.log"

type EnvOptions struct {
	interactive bool
	empty       bool
	template    string
	configPath  string
	loadPath    string
	savePath    string
	metricsAddr string
	logPath     string
	verbose     bool
}

//FlagOptions override the settings file, zero values keep the file (or default) value
type FlagOptions struct {
	rows           int
	columns        int
	speed          int
	maxGenerations int
	workers        int
	freezeRate     float64
	stable         bool
	static         bool
}

func main() {
	eo, fo := initOptions()

	log, closeLog, err := newLogger(eo)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(eo, fo, log); err != nil {
		log.Error("game of life failed", "error", err)
		closeLog()
		if eo.interactive {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
	closeLog()
}

func run(eo *EnvOptions, fo *FlagOptions, log *slog.Logger) error {
	settings, err := loadSettings(eo, fo)
	if err != nil {
		return err
	}
	store, err := config.NewStore(settings)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if eo.configPath != "" {
		go func() {
			if err := config.Watch(ctx, eo.configPath, store, log); err != nil {
				log.Warn("settings hot reload disabled", "error", err)
			}
		}()
	}

	u, err := initialUniverse(eo, settings)
	if err != nil {
		return err
	}

	d := evolution.NewDriver(store, log)
	defer d.Close()
	b, err := evolution.NewBoard(u, d, store, log)
	if err != nil {
		return err
	}
	go b.Process(ctx)

	if eo.interactive {
		v, err := view.NewViewTerminal(store, eo.savePath, log)
		if err != nil {
			return err
		}
		b.RegisterViewer(v)
		v.Start()
		b.Halt()
		return nil
	}

	if eo.metricsAddr != "" {
		srv := serveMetrics(eo.metricsAddr, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	out := view.NewConsoleOut(store, os.Stdout)
	b.RegisterViewer(out)
	out.Start()
	if err := b.Run(); err != nil {
		return err
	}
	select {
	case <-out.Done():
	case <-ctx.Done():
		b.Halt()
	}

	if eo.savePath != "" {
		if err := os.WriteFile(eo.savePath, b.Snapshot().Serialize(), 0o644); err != nil {
			return errors.Wrap(err, "save snapshot")
		}
		log.Info("snapshot saved", "path", eo.savePath)
	}
	return nil
}

func initOptions() (eo *EnvOptions, fo *FlagOptions) {
	eo = &EnvOptions{}
	fo = &FlagOptions{}

	flaggy.SetName("gameoflife")
	flaggy.SetDescription("Conway's Game of Life on a toroidal universe")
	flaggy.DefaultParser.ShowHelpOnUnexpected = true
	flaggy.Int(&fo.rows, "y", "rows", "Rows of the universe")
	flaggy.Int(&fo.columns, "x", "columns", "Columns of the universe")
	flaggy.Int(&fo.speed, "p", "speed", fmt.Sprintf("Evolution speed in generations per second [%d..%d]",
		config.MinEvolutionSpeed, config.MaxEvolutionSpeed))
	flaggy.Int(&fo.maxGenerations, "s", "maxGenerations", "Stop the evolution after maxGenerations")
	flaggy.Int(&fo.workers, "w", "workers", "Number of goroutines computing one generation")
	flaggy.Float64(&fo.freezeRate, "f", "freezeRate", "Heat lost by dead cells every generation")
	flaggy.Bool(&fo.stable, "", "stable", "Stop the evolution when nothing changes anymore")
	flaggy.Bool(&fo.static, "", "static", "Do not animate dying cells")
	flaggy.Bool(&eo.interactive, "n", "interactive", "Start interactive mode")
	flaggy.Bool(&eo.empty, "e", "empty", "Start with an empty universe")
	flaggy.String(&eo.template, "t", "template", "Start from a template ["+strings.Join(templates.Names(), "|")+"]")
	flaggy.String(&eo.configPath, "c", "config", "YAML settings file, reloaded when it changes")
	flaggy.String(&eo.loadPath, "l", "load", "Start from a saved snapshot")
	flaggy.String(&eo.savePath, "o", "save", "Snapshot file written at the end (or with P in interactive mode)")
	flaggy.String(&eo.metricsAddr, "m", "metrics", "Serve prometheus metrics on this address, for example :9090")
	flaggy.String(&eo.logPath, "", "log", "Log file, interactive mode logs to "+defLogPath+" by default")
	flaggy.Bool(&eo.verbose, "d", "verbose", "Debug logging")

	flaggy.Parse()

	if eo.template != "" && eo.loadPath != "" {
		flaggy.ShowHelpAndExit("template and load are exclusive")
	}
	return
}

//loadSettings reads the settings file and applies the flags on top
func loadSettings(eo *EnvOptions, fo *FlagOptions) (config.Settings, error) {
	s := config.Default()
	if eo.configPath != "" {
		var err error
		if s, err = config.Load(eo.configPath); err != nil {
			return s, err
		}
	}
	if fo.rows != 0 {
		s.Rows = fo.rows
	}
	if fo.columns != 0 {
		s.Columns = fo.columns
	}
	if fo.speed != 0 {
		s.EvolutionSpeed = fo.speed
	}
	if fo.maxGenerations > 0 {
		s.MaxGenerations = uint64(fo.maxGenerations)
	}
	if fo.workers != 0 {
		s.Workers = fo.workers
	}
	if fo.freezeRate != 0 {
		s.CorpseFreezeRate = fo.freezeRate
	}
	if fo.stable {
		s.StopWhenStable = true
	}
	if fo.static {
		s.Animated = false
	}
	return s, s.Validate()
}

func initialUniverse(eo *EnvOptions, s config.Settings) (*universe.Universe, error) {
	o := s.UniverseOptions()
	switch {
	case eo.loadPath != "":
		data, err := os.ReadFile(eo.loadPath)
		if err != nil {
			return nil, err
		}
		snap, err := universe.Deserialize(data)
		if err != nil {
			return nil, errors.Wrapf(err, "load %s", eo.loadPath)
		}
		return universe.FromSnapshot(snap, &o)
	case eo.template != "":
		return templates.Universe(eo.template, &o)
	}
	u, err := universe.New(&o)
	if err != nil {
		return nil, err
	}
	if !eo.empty {
		u.SeedRandom(s.AliveProbability, nil)
	}
	return u, nil
}

//newLogger logs to stderr, or to a file in interactive mode where the terminal belongs to the UI
func newLogger(eo *EnvOptions) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if eo.verbose {
		level = slog.LevelDebug
	}
	path := eo.logPath
	if path == "" && eo.interactive {
		path = defLogPath
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open log file")
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}
	log := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	return log, closeFn, nil
}

func serveMetrics(addr string, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "addr", addr, "error", err)
		}
	}()
	log.Info("serving metrics", "addr", addr)
	return srv
}
