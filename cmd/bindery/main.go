package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/bindery/internal/config"
	"git.home.luguber.info/inful/bindery/internal/history"
	"git.home.luguber.info/inful/bindery/internal/metrics"
	"git.home.luguber.info/inful/bindery/internal/render"
	"git.home.luguber.info/inful/bindery/internal/sweep"
	"git.home.luguber.info/inful/bindery/internal/unit"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"bindery.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Compile struct {
		Sources []string          `arg:"" help:"Source files; more than one compiles a virtual merged unit"`
		Formats []string          `short:"f" help:"Output formats to produce" default:"html,tex"`
		Out     string            `short:"o" help:"Unit name for a merged compile (defaults to the first source's name)"`
		Title   string            `help:"Title header for a merged compile"`
		Author  string            `help:"Author header for a merged compile"`
		Option  map[string]string `short:"O" help:"Render options (key=value)"`
	} `cmd:"" help:"Compile one unit, or several sources as one merged unit"`

	Sweep struct {
		Root    string   `arg:"" help:"Tree to walk for sources" default:"."`
		Formats []string `short:"f" help:"Output formats to produce" default:"html,tex"`
	} `cmd:"" help:"Recompile every unit in the tree whose status marker is missing or stale"`

	Watch struct {
		Root    string   `arg:"" help:"Tree to watch" default:"."`
		Formats []string `short:"f" help:"Output formats to produce" default:"html,tex"`
	} `cmd:"" help:"Recompile units as their sources change"`

	Daemon struct {
		Root string `arg:"" help:"Tree to sweep periodically" default:"."`
	} `cmd:"" help:"Run periodic sweeps on a schedule"`

	Clean struct {
		Root string `arg:"" help:"Tree to clean" default:"."`
	} `cmd:"" help:"Remove status markers so the next sweep recompiles everything"`

	History struct {
		Unit  string `arg:"" help:"Unit name"`
		Limit int    `help:"Maximum runs to list" default:"20"`
	} `cmd:"" help:"List recent compile runs for a unit"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`
}

func main() {
	_ = godotenv.Load()
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	var err error
	switch ctx.Command() {
	case "compile <sources>":
		err = runCompile()
	case "sweep", "sweep <root>":
		err = runSweep()
	case "watch", "watch <root>":
		err = runWatch()
	case "daemon", "daemon <root>":
		err = runDaemon()
	case "clean", "clean <root>":
		err = runClean()
	case "history <unit>":
		err = runHistory()
	case "init":
		err = config.Init(CLI.Config, CLI.Init.Force)
	default:
		err = fmt.Errorf("unknown command %q", ctx.Command())
	}
	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func parseFormats(names []string) ([]unit.Format, error) {
	var formats []unit.Format
	for _, raw := range names {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name == "" {
				continue
			}
			f, err := unit.ParseFormat(name)
			if err != nil {
				return nil, err
			}
			formats = append(formats, f)
		}
	}
	return formats, nil
}

func newService() (*sweep.Service, *history.Store, error) {
	cfg, err := config.LoadOrDefault(CLI.Config)
	if err != nil {
		return nil, nil, err
	}

	var store *history.Store
	if cfg.HistoryDB != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.HistoryDB), 0o750); err != nil {
			slog.Warn("Could not create history directory, disabling history", "error", err)
		} else if store, err = history.NewStore(cfg.HistoryDB); err != nil {
			slog.Warn("Could not open history store, disabling history", "error", err)
			store = nil
		}
	}

	return sweep.NewService(cfg, store, metrics.NoopRecorder{}), store, nil
}

func runCompile() error {
	svc, store, err := newService()
	if err != nil {
		return err
	}
	defer closeStore(store)

	formats, err := parseFormats(CLI.Compile.Formats)
	if err != nil {
		return err
	}

	explicit := render.Options(CLI.Compile.Option)
	ctx := context.Background()

	if len(CLI.Compile.Sources) == 1 {
		source := CLI.Compile.Sources[0]
		dir := filepath.Dir(source)
		name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
		return svc.CompileUnit(ctx, dir, name, formats, explicit)
	}

	outName := CLI.Compile.Out
	if outName == "" {
		first := CLI.Compile.Sources[0]
		outName = strings.TrimSuffix(filepath.Base(first), filepath.Ext(first)) + "-merged"
	}
	header := map[string]string{}
	if CLI.Compile.Title != "" {
		header["title"] = CLI.Compile.Title
	}
	if CLI.Compile.Author != "" {
		header["author"] = CLI.Compile.Author
	}
	dir := filepath.Dir(CLI.Compile.Sources[0])
	return svc.CompileMerged(ctx, dir, outName, CLI.Compile.Sources, header, formats, explicit)
}

func runSweep() error {
	svc, store, err := newService()
	if err != nil {
		return err
	}
	defer closeStore(store)

	formats, err := parseFormats(CLI.Sweep.Formats)
	if err != nil {
		return err
	}

	result, err := svc.Sweep(context.Background(), CLI.Sweep.Root, formats)
	slog.Info("Sweep finished",
		"compiled", result.Compiled, "skipped", result.Skipped, "failed", result.Failed)
	return err
}

func runWatch() error {
	svc, store, err := newService()
	if err != nil {
		return err
	}
	defer closeStore(store)

	formats, err := parseFormats(CLI.Watch.Formats)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return svc.Watch(ctx, CLI.Watch.Root, formats)
}

func runDaemon() error {
	cfg, err := config.LoadOrDefault(CLI.Config)
	if err != nil {
		return err
	}

	var store *history.Store
	if cfg.HistoryDB != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.HistoryDB), 0o750); err == nil {
			store, _ = history.NewStore(cfg.HistoryDB)
		}
	}
	defer closeStore(store)

	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)
	svc := sweep.NewService(cfg, store, recorder)

	formats, err := parseFormats(cfg.Formats)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Daemon.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: cfg.Daemon.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	interval := time.Duration(cfg.Daemon.IntervalMinutes) * time.Minute
	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			result, err := svc.Sweep(ctx, CLI.Daemon.Root, formats)
			if err != nil {
				slog.Error("Scheduled sweep failed", "error", err)
				return
			}
			slog.Info("Scheduled sweep finished",
				"compiled", result.Compiled, "skipped", result.Skipped, "failed", result.Failed)
		}),
		gocron.WithName("tree-sweep"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sweep job: %w", err)
	}

	slog.Info("Starting daemon", "root", CLI.Daemon.Root, "interval", interval)
	scheduler.Start()

	// one immediate sweep so a fresh daemon does not idle a full interval
	if result, err := svc.Sweep(ctx, CLI.Daemon.Root, formats); err != nil {
		slog.Error("Initial sweep failed", "error", err)
	} else {
		slog.Info("Initial sweep finished",
			"compiled", result.Compiled, "skipped", result.Skipped, "failed", result.Failed)
	}

	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping daemon")
	return scheduler.Shutdown()
}

func runClean() error {
	cfg, err := config.LoadOrDefault(CLI.Config)
	if err != nil {
		return err
	}

	removed := 0
	err = filepath.WalkDir(CLI.Clean.Root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), unit.ExtStatus) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("Status markers removed", "count", removed, "suffix", cfg.Suffix)
	return nil
}

func runHistory() error {
	cfg, err := config.LoadOrDefault(CLI.Config)
	if err != nil {
		return err
	}

	store, err := history.NewStore(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer closeStore(store)

	runs, err := store.ByUnit(context.Background(), CLI.History.Unit, CLI.History.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %-12s %-8s %6dms  %s\n",
			r.Started.Format(time.RFC3339), r.Format, r.Outcome, r.Duration.Milliseconds(), r.Fingerprint)
	}
	return nil
}

func closeStore(store *history.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		slog.Warn("Failed to close history store", "error", err)
	}
}
