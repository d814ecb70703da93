package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/desertwitch/govfs"
	"github.com/desertwitch/govfs/internal/ui"
	"github.com/desertwitch/govfs/locator"
	"github.com/desertwitch/govfs/transfer"
	"github.com/lmittmann/tint"
)

const (
	stackTraceBufMax = 1 << 24
)

//nolint:gochecknoglobals
var (
	ExitCode = 0
	Version  string

	logRouter = NewSlogRouter()

	uiEnabled  = flag.Bool("ui", true, "enable the UI (copy and move commands)")
	configFile = flag.String("config", "", "mount table configuration file (default: $GOVFS_CONFIG)")
	maxWorkers = flag.Int("workers", 1, "maximum concurrent transfers")
	allowOther = flag.Bool("allow-other", false, "allow other users access to a FUSE mount")
	spaceFloor = flag.Uint64("floor", 0, "minimum free bytes a transfer destination must retain")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
)

func setupLogging() {
	logRouter.AddHandler("terminal", tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))
}

func usage() {
	fmt.Fprintf(os.Stderr, "govfs %s - filesystem operations against a virtual mount table\n\n", Version)
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  govfs [flags] ls|stat|cat|touch|mkdir|rmdir|rm <scheme://path>\n")
	fmt.Fprintf(os.Stderr, "  govfs [flags] cp|mv <scheme://src> <scheme://dest>\n")
	fmt.Fprintf(os.Stderr, "  govfs [flags] mount <scheme> <mountpoint>\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flag.PrintDefaults()
}

func setupSignalHandlers(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChan
		cancel()
	}()

	sigChan2 := make(chan os.Signal, 1)
	signal.Notify(sigChan2, syscall.SIGUSR1)
	go func() {
		for range sigChan2 {
			buf := make([]byte, stackTraceBufMax)
			stacklen := runtime.Stack(buf, true)
			os.Stderr.Write(buf[:stacklen])
		}
	}()

	sigChan3 := make(chan os.Signal, 1)
	signal.Notify(sigChan3, syscall.SIGUSR2)
	go func() {
		for range sigChan3 {
			runtime.GC()
		}
	}()
}

func loadConfig() (*locator.Config, error) {
	if *configFile != "" {
		return locator.LoadFile(*configFile)
	}

	return locator.Load()
}

// wantsUI reports whether the invocation is a well-formed transfer command,
// the only kind the UI makes sense for.
func wantsUI(command string, args []string) bool {
	switch command {
	case "cp", "mv":
		return len(args) == 2 //nolint:mnd
	default:
		return false
	}
}

func startApp(ctx context.Context, wg *sync.WaitGroup, app *App) {
	defer wg.Done()

	if app.uiHandler != nil {
		slog.Info("Waiting for UI...")
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if app.uiHandler.Ready.Load() || app.uiHandler.Failed.Load() {
				break
			}
		}
	}

	if err := app.Launch(ctx); err != nil {
		slog.Error("Failure during execution.", "err", err)
		ExitCode = 1
	}
}

func startUI(wg *sync.WaitGroup, app *App) {
	defer wg.Done()

	if app.uiHandler != nil {
		defer setupLogging()
		defer logRouter.RemoveHandler("ui")

		logRouter.AddHandler("ui", tint.NewHandler(app.uiHandler.LogWriter, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		}))
		logRouter.RemoveHandler("terminal")

		if err := app.LaunchUI(); err != nil {
			slog.Error("UI failure: falling back to terminal.", "err", err)
		}
	}
}

func main() {
	defer func() {
		os.Exit(ExitCode)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flag.Usage = usage
	flag.Parse()

	slog.SetDefault(slog.New(logRouter))
	setupLogging()
	setupSignalHandlers(cancel)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		ExitCode = 2

		return
	}
	command, cmdArgs := args[0], args[1:]

	memObserver := newMemoryObserver(ctx)
	defer memObserver.Stop()

	cpuProfiler := NewCPUProfiler(ctx, cpuprofile)
	defer cpuProfiler.Stop()

	allocProfiler := NewAllocProfiler(ctx, memprofile)
	defer allocProfiler.Stop()

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load the mount table configuration.",
			"err", err,
		)
		ExitCode = 1

		return
	}

	table, err := locator.FromConfig(cfg)
	if err != nil {
		slog.Error("Failed to establish the resource locator.",
			"err", err,
		)
		ExitCode = 1

		return
	}

	vfs := govfs.New(table)
	transfers := transfer.NewHandler(vfs, transfer.WithSpaceFloor(*spaceFloor))

	var uiHandler *ui.Handler
	if *uiEnabled && wantsUI(command, cmdArgs) {
		uiHandler = ui.NewHandler(ctx, cancel, transfers)
	}

	var wg sync.WaitGroup
	app := NewApp(command, cmdArgs, *maxWorkers, *allowOther, vfs, table, transfers, uiHandler)

	wg.Add(1)
	go startUI(&wg, app)

	wg.Add(1)
	go startApp(ctx, &wg, app)

	wg.Wait()
}
