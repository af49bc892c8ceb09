package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"video-compressor/batch"
	"video-compressor/config"
	"video-compressor/encoder"
	"video-compressor/failure"
	"video-compressor/history"
	"video-compressor/logging"
	"video-compressor/media"
	"video-compressor/planner"
	"video-compressor/tui"
)

var version = "dev"

// exit codes
const (
	exitOK        = 0
	exitFailed    = 1
	exitUsage     = 2
	exitCancelled = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Default()

	sizeMB := flag.Float64("size", 0, "Target size in MB (1 MB = 1024*1024 bytes)")
	formatFlag := flag.String("format", "", "Output format; empty keeps the source container when possible")
	flag.IntVar(&cfg.AudioKbps, "audio-kbps", cfg.AudioKbps, "Audio bitrate in kbps")
	flag.Float64Var(&cfg.SafetyMargin, "margin", cfg.SafetyMargin, "Fraction of the computed video bitrate to use")
	manifestPath := flag.String("manifest", "", "YAML manifest with per-file targets")
	dryRun := flag.Bool("dry-run", false, "Probe and plan only, do not encode")
	noTUI := flag.Bool("no-tui", false, "Print plain progress lines instead of the full-screen view")
	flag.StringVar(&cfg.LogFile, "log-file", logging.DefaultPath(), "Log file (\"-\" for stderr)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flag.StringVar(&cfg.HistoryPath, "history", history.DefaultPath(), "History database (\"\" to disable)")
	showHistory := flag.Int("show-history", 0, "Print the last N recorded encodes and exit")
	showRun := flag.String("show-run", "", "Print the recorded encodes of one run ID and exit")
	flag.StringVar(&cfg.FFmpegPath, "ffmpeg", cfg.FFmpegPath, "ffmpeg binary")
	flag.StringVar(&cfg.FFprobePath, "ffprobe", cfg.FFprobePath, "ffprobe binary")
	listFormats := flag.Bool("list-formats", false, "List output formats and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Println("Usage: video-compressor [options] <file-or-directory>...")
		fmt.Println("       video-compressor [options] -manifest batch.yaml")
		fmt.Println()
		fmt.Println("Compresses videos to a target file size with a two-pass ffmpeg encode.")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("Formats:")
		for _, f := range config.AvailableFormats() {
			fmt.Printf("  %-6s %s\n", f, f.Description())
		}
		fmt.Println()
		fmt.Println("Inputs:", strings.Join(config.SupportedInputExtensions(), " "))
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  video-compressor -size 50 talk.mp4                 # Fit talk.mp4 into 50 MB")
		fmt.Println("  video-compressor -size 8 -format webm clips/       # Every video in clips/ as 8 MB WebM")
		fmt.Println("  video-compressor -manifest batch.yaml -dry-run     # Show the plan without encoding")
	}

	flag.Parse()

	if *showVersion {
		fmt.Println("video-compressor", version)
		return exitOK
	}
	if *listFormats {
		tui.PrintFormats(os.Stdout)
		return exitOK
	}

	if *showHistory > 0 || *showRun != "" {
		return printHistory(cfg.HistoryPath, *showHistory, *showRun)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	items, err := loadItems(*manifestPath, *sizeMB, *formatFlag, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			flag.Usage()
		}
		return exitUsage
	}

	logPath := cfg.LogFile
	if logPath == "-" {
		logPath = ""
	}
	log, closer, err := logging.New(logPath, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := encoder.New(cfg, logging.Component(log, "encoder"))
	if !*dryRun {
		if err := orch.CheckAvailable(ctx); err != nil {
			if errors.Is(err, failure.ErrCancelled) {
				return exitCancelled
			}
			fmt.Fprintf(os.Stderr, "Error: ffmpeg is not available (%v)\n", err)
			fmt.Fprintln(os.Stderr, "Install ffmpeg or point -ffmpeg at the binary.")
			return exitFailed
		}
	}

	session := batch.NewSession(cfg, *dryRun)
	seq := batch.New(session,
		media.NewProber(cfg.FFprobePath, logging.Component(log, "media")),
		planner.New(cfg),
		orch,
		logging.Component(log, "batch"),
	)

	recorded := false
	if cfg.HistoryPath != "" {
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			log.WithError(err).Warn("history disabled")
		} else {
			defer store.Close()
			seq.Recorder = store
			recorded = true
		}
	}

	var results []batch.Result
	if *noTUI {
		seq.Observer = tui.NewPrinter(os.Stdout, len(items))
		results = seq.Run(ctx, items)
	} else {
		tracker := batch.NewTracker(items)
		seq.Observer = tracker
		results, err = tui.Run(ctx, tracker, *dryRun, orch.Logs, func(ctx context.Context) []batch.Result {
			return seq.Run(ctx, items)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	fmt.Println()
	tui.PrintReport(os.Stdout, len(items), results)
	if recorded && len(results) > 0 {
		fmt.Printf("Run %s recorded; see it again with -show-run %s\n", session.RunID, session.RunID)
	}
	return exitCode(items, results, log)
}

var errUsage = errors.New("nothing to do")

// loadItems builds the batch from a manifest or from paths sharing one target
func loadItems(manifest string, sizeMB float64, format string, args []string) ([]batch.Item, error) {
	if manifest != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("give either -manifest or input paths, not both")
		}
		entries, err := config.LoadManifest(manifest)
		if err != nil {
			return nil, err
		}
		return batch.FromManifest(entries), nil
	}

	if len(args) == 0 {
		return nil, errUsage
	}
	if sizeMB <= 0 {
		return nil, fmt.Errorf("-size is required and must be greater than 0")
	}

	target := batch.Target{SizeMB: sizeMB}
	if format != "" {
		f, err := config.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		target.Format = f
	}

	paths, err := batch.Discover(args)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no supported video files found")
	}
	return batch.Shared(paths, target), nil
}

// printHistory lists one run when runID is set, otherwise the last n encodes
func printHistory(path string, n int, runID string) int {
	if path == "" {
		fmt.Fprintln(os.Stderr, "Error: history is disabled")
		return exitUsage
	}
	store, err := history.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailed
	}
	defer store.Close()

	var entries []history.Entry
	if runID != "" {
		entries, err = store.Run(context.Background(), runID)
	} else {
		entries, err = store.Recent(context.Background(), n)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailed
	}
	tui.PrintHistory(os.Stdout, entries)
	return exitOK
}

func exitCode(items []batch.Item, results []batch.Result, log logrus.FieldLogger) int {
	code := exitOK
	for _, r := range results {
		if r.Status != batch.StatusFailed {
			continue
		}
		if r.Reason == failure.KindCancelled {
			return exitCancelled
		}
		code = exitFailed
	}
	if len(results) < len(items) && code == exitOK {
		code = exitFailed
	}
	log.WithField("exit_code", code).Debug("exiting")
	return code
}
