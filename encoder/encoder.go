package encoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"video-compressor/config"
	"video-compressor/failure"
	"video-compressor/planner"
	"video-compressor/progress"
)

// waitDelay bounds how long Wait keeps the output pipes open after ffmpeg
// exits or is killed
const waitDelay = 5 * time.Second

// CommandFunc builds the command for one ffmpeg invocation
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Output describes a finished encode
type Output struct {
	Path      string
	SizeBytes int64
	Took      time.Duration
}

// Orchestrator runs the two encoder passes for a plan. It is reused across
// files but runs one plan at a time; State and Logs may be read concurrently.
type Orchestrator struct {
	FFmpeg string
	Window int
	Log    logrus.FieldLogger

	// OnState, when set, is called after every state transition
	OnState func(State)

	command   CommandFunc
	freeSpace FreeSpaceFunc
	tempDir   string

	mu    sync.Mutex
	state State
	tail  *lineTail
}

// New creates an orchestrator using the binary and progress window from cfg
func New(cfg config.Config, log logrus.FieldLogger) *Orchestrator {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Orchestrator{
		FFmpeg:    cfg.FFmpegPath,
		Window:    cfg.ProgressWindow,
		Log:       log,
		command:   exec.CommandContext,
		freeSpace: diskFree,
		tail:      &lineTail{},
	}
}

// WithCommand replaces the process factory
func (o *Orchestrator) WithCommand(cmd CommandFunc) *Orchestrator {
	o.command = cmd
	return o
}

// WithFreeSpace replaces the disk space probe used before pass 2
func (o *Orchestrator) WithFreeSpace(f FreeSpaceFunc) *Orchestrator {
	o.freeSpace = f
	return o
}

// WithTempDir sets where per-run pass-log directories are created
func (o *Orchestrator) WithTempDir(dir string) *Orchestrator {
	o.tempDir = dir
	return o
}

// State returns the current state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Logs returns the retained ffmpeg stderr lines of the current run
func (o *Orchestrator) Logs() []string {
	o.mu.Lock()
	tail := o.tail
	o.mu.Unlock()
	return tail.Lines()
}

func (o *Orchestrator) transition(to State) error {
	o.mu.Lock()
	from := o.state
	if !canTransition(from, to) {
		o.mu.Unlock()
		return transitionError{from: from, to: to}
	}
	o.state = to
	hook := o.OnState
	o.mu.Unlock()

	if hook != nil {
		hook(to)
	}
	return nil
}

func (o *Orchestrator) reset() {
	o.mu.Lock()
	o.state = StateIdle
	o.tail = &lineTail{}
	o.mu.Unlock()
}

func (o *Orchestrator) fail(err error) error {
	if terr := o.transition(StateFailed); terr != nil {
		o.Log.WithError(terr).Warn("state")
	}
	return err
}

// Run executes both passes for plan. onProgress receives every snapshot of
// either pass and may be nil.
func (o *Orchestrator) Run(ctx context.Context, plan planner.Plan, onProgress func(progress.Snapshot)) (Output, error) {
	o.reset()
	start := time.Now()
	log := o.Log.WithFields(logrus.Fields{
		"file":       filepath.Base(plan.InputPath),
		"video_kbps": plan.VideoKbps,
		"audio_kbps": plan.AudioKbps,
	})

	if plan.VideoKbps <= 0 || plan.InputPath == "" || plan.OutputPath == "" {
		return Output{}, o.fail(fmt.Errorf("%w: incomplete plan", failure.ErrInvalidInput))
	}
	if _, err := os.Stat(plan.OutputPath); err == nil {
		return Output{}, o.fail(fmt.Errorf("%w: output %s already exists", failure.ErrInvalidInput, plan.OutputPath))
	}

	passDir, err := os.MkdirTemp(o.tempDir, "video-compressor-pass-")
	if err != nil {
		return Output{}, o.fail(fmt.Errorf("%w: pass log directory: %v", failure.ErrDiskFull, err))
	}
	defer os.RemoveAll(passDir)
	passlog := filepath.Join(passDir, "ffmpeg2pass")

	if err := o.transition(StatePass1Running); err != nil {
		return Output{}, o.fail(err)
	}
	log.Info("pass 1 started")
	if err := o.runPass(ctx, plan, 1, passlog, onProgress); err != nil {
		log.WithError(err).Error("pass 1 failed")
		return Output{}, o.fail(err)
	}
	if err := o.transition(StatePass1Done); err != nil {
		return Output{}, o.fail(err)
	}

	if err := o.checkDisk(ctx, plan); err != nil {
		log.WithError(err).Error("disk preflight failed")
		return Output{}, o.fail(err)
	}

	if err := o.transition(StatePass2Running); err != nil {
		return Output{}, o.fail(err)
	}
	log.Info("pass 2 started")
	if err := o.runPass(ctx, plan, 2, passlog, onProgress); err != nil {
		log.WithError(err).Error("pass 2 failed")
		removePartial(plan.OutputPath, log)
		return Output{}, o.fail(err)
	}

	info, err := os.Stat(plan.OutputPath)
	if err != nil || info.Size() == 0 {
		removePartial(plan.OutputPath, log)
		return Output{}, o.fail(fmt.Errorf("%w: output missing or empty", failure.ErrEncodeFailed))
	}

	if err := o.transition(StateComplete); err != nil {
		return Output{}, o.fail(err)
	}
	out := Output{Path: plan.OutputPath, SizeBytes: info.Size(), Took: time.Since(start)}
	log.WithFields(logrus.Fields{
		"output":     out.Path,
		"size_bytes": out.SizeBytes,
		"took":       out.Took.Round(time.Second),
	}).Info("encode complete")
	return out, nil
}

// runPass starts one ffmpeg pass and feeds its progress stream to a fresh
// monitor until the process exits.
func (o *Orchestrator) runPass(ctx context.Context, plan planner.Plan, pass int, passlog string, onProgress func(progress.Snapshot)) error {
	o.mu.Lock()
	tail := o.tail
	o.mu.Unlock()

	args := passArgs(plan, pass, passlog)
	o.Log.WithField("pass", pass).Debugf("%s %v", o.FFmpeg, args)

	// failures are classified on this pass's stderr only
	passTail := &lineTail{}
	cmd := o.command(ctx, o.FFmpeg, args...)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = io.MultiWriter(tail, passTail)
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %s: %v", failure.ErrEncoderNotFound, o.FFmpeg, err)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", failure.ErrCancelled, ctx.Err())
		}
		return fmt.Errorf("%w: start ffmpeg: %v", failure.ErrEncodeFailed, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitErr <- err
	}()

	total := time.Duration(plan.Duration * float64(time.Second))
	monitor := progress.NewMonitor(pass, total, o.Window)
	var readErr error
	for snap, err := range progress.Stream(pr, monitor) {
		if err != nil {
			readErr = err
			break
		}
		if onProgress != nil {
			onProgress(snap)
		}
	}
	// keep the pipe drained so the copy into pw can finish
	io.Copy(io.Discard, pr)
	err := <-waitErr

	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("%w: pass %d: %v", failure.ErrCancelled, pass, ctx.Err())
	case err != nil:
		if MatchDiskIssue(passTail.String()) {
			return fmt.Errorf("%w: pass %d: %s", failure.ErrDiskFull, pass, passTail.lastLine())
		}
		return fmt.Errorf("%w: pass %d: %v: %s", failure.ErrEncodeFailed, pass, err, passTail.lastLine())
	case readErr != nil:
		return fmt.Errorf("%w: pass %d: reading progress: %v", failure.ErrEncodeFailed, pass, readErr)
	}
	return nil
}

// checkDisk refuses to start pass 2 when the output directory cannot hold
// the target size. An unreadable filesystem is logged and not treated as full.
func (o *Orchestrator) checkDisk(ctx context.Context, plan planner.Plan) error {
	if o.freeSpace == nil {
		return nil
	}
	dir := filepath.Dir(plan.OutputPath)
	free, err := o.freeSpace(ctx, dir)
	if err != nil {
		o.Log.WithError(err).WithField("dir", dir).Warn("could not read free disk space")
		return nil
	}
	if free < uint64(plan.TargetSizeBytes) {
		return fmt.Errorf("%w: %d bytes free in %s, need %d", failure.ErrDiskFull, free, dir, plan.TargetSizeBytes)
	}
	return nil
}

func removePartial(path string, log logrus.FieldLogger) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("could not remove partial output")
	}
}

// CheckAvailable verifies that the configured ffmpeg binary runs. A binary
// that does not answer within the timeout counts as unavailable.
func (o *Orchestrator) CheckAvailable(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := o.command(probeCtx, o.FFmpeg, "-version")
	cmd.WaitDelay = waitDelay
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", failure.ErrCancelled, ctx.Err())
		}
		return fmt.Errorf("%w: %s: %v", failure.ErrEncoderNotFound, o.FFmpeg, err)
	}
	return nil
}
