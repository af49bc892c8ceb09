package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"video-compressor/config"
	"video-compressor/encoder"
	"video-compressor/failure"
	"video-compressor/media"
	"video-compressor/planner"
	"video-compressor/progress"
)

// maxNameAttempts bounds the search for an output name that does not exist
const maxNameAttempts = 60

// Prober reads media facts from a file
type Prober interface {
	Probe(ctx context.Context, path string) (media.Info, error)
}

// Planner turns media facts and a target into an encode plan
type Planner interface {
	Plan(info media.Info, targetBytes int64, audioKbps int, format config.Format) (planner.Plan, error)
}

// Encoder executes a plan
type Encoder interface {
	Run(ctx context.Context, plan planner.Plan, onProgress func(progress.Snapshot)) (encoder.Output, error)
}

// Recorder persists finished results
type Recorder interface {
	Record(ctx context.Context, runID string, r Result) error
}

// Sequencer processes items strictly in order
type Sequencer struct {
	Session  Session
	Prober   Prober
	Planner  Planner
	Encoder  Encoder
	Observer Observer
	Recorder Recorder
	Log      logrus.FieldLogger
	Now      func() time.Time
}

// New creates a sequencer. Observer and Recorder are optional.
func New(session Session, prober Prober, plan Planner, enc Encoder, log logrus.FieldLogger) *Sequencer {
	return &Sequencer{
		Session: session,
		Prober:  prober,
		Planner: plan,
		Encoder: enc,
		Log:     log,
		Now:     time.Now,
	}
}

// Run processes items and returns one result per attempted item, in input
// order. A missing encoder or a cancelled ctx stops the batch after the
// current item; every other failure is recorded and the batch continues.
func (s *Sequencer) Run(ctx context.Context, items []Item) []Result {
	log := s.Log.WithField("run_id", s.Session.RunID)
	log.WithFields(logrus.Fields{"files": len(items), "dry_run": s.Session.DryRun}).Info("batch started")

	results := make([]Result, 0, len(items))
	for i, item := range items {
		r := s.runItem(ctx, i, item)
		results = append(results, r)

		if r.Status == StatusFailed && (failure.Fatal(r.Reason) || r.Reason == failure.KindCancelled) {
			log.WithField("reason", r.Reason).Warn("batch stopped")
			break
		}
	}

	sum := Summarize(results)
	log.WithFields(logrus.Fields{
		"succeeded": sum.Succeeded,
		"failed":    sum.Failed,
		"remaining": len(items) - len(results),
	}).Info("batch finished")
	return results
}

func (s *Sequencer) runItem(ctx context.Context, i int, item Item) Result {
	r := Result{
		Index:   i,
		Path:    item.Path,
		Status:  StatusRunning,
		Started: s.now(),
		DryRun:  s.Session.DryRun,
	}
	if s.Observer != nil {
		s.Observer.ItemStarted(i, r)
	}

	err := s.process(ctx, i, item, &r)
	r.Finished = s.now()
	if err != nil {
		r.Status = StatusFailed
		r.Reason = failure.KindOf(err)
		if ctx.Err() != nil {
			r.Reason = failure.KindCancelled
		}
		r.Err = err
	} else {
		r.Status = StatusSucceeded
	}

	s.finish(ctx, r)
	return r
}

func (s *Sequencer) process(ctx context.Context, i int, item Item, r *Result) error {
	log := s.Log.WithFields(logrus.Fields{"run_id": s.Session.RunID, "file": item.Path})

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", failure.ErrCancelled, err)
	}

	info, err := s.Prober.Probe(ctx, item.Path)
	if err != nil {
		return err
	}
	r.Info = &info

	targetBytes, err := planner.MBToBytes(item.Target.SizeMB)
	if err != nil {
		return err
	}
	format := item.Target.Format
	if format == "" {
		format = config.FormatForInput(item.Path)
	}

	plan, err := s.Planner.Plan(info, targetBytes, s.Session.Config.AudioKbps, format)
	if err != nil {
		return err
	}
	if err := s.claimOutput(&plan); err != nil {
		return err
	}
	r.Plan = &plan
	r.OutputPath = plan.OutputPath

	log.WithFields(logrus.Fields{
		"video_kbps": plan.VideoKbps,
		"audio_kbps": plan.AudioKbps,
		"format":     plan.Format,
		"quality":    plan.Quality,
		"tight":      plan.Tight,
	}).Info("planned")

	if s.Observer != nil {
		s.Observer.ItemPlanned(i, plan)
	}
	if s.Session.DryRun {
		return nil
	}

	out, err := s.Encoder.Run(ctx, plan, func(snap progress.Snapshot) {
		if s.Observer != nil {
			s.Observer.Progress(i, snap)
		}
	})
	if err != nil {
		return err
	}
	r.OutputPath = out.Path
	r.OutputSizeBytes = out.SizeBytes
	r.SizeDelta = out.SizeBytes - plan.TargetSizeBytes
	return nil
}

// claimOutput moves the name's timestamp forward until no file of that name
// exists, so an earlier output is never overwritten.
func (s *Sequencer) claimOutput(plan *planner.Plan) error {
	if !exists(plan.OutputPath) {
		return nil
	}
	base := s.now()
	for n := 1; n <= maxNameAttempts; n++ {
		candidate := planner.OutputPath(plan.InputPath, plan.TargetSizeBytes, base.Add(time.Duration(n)*time.Second), plan.Format)
		if !exists(candidate) {
			plan.OutputPath = candidate
			return nil
		}
	}
	return fmt.Errorf("%w: no free output name next to %s", failure.ErrInvalidInput, plan.InputPath)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

func (s *Sequencer) finish(ctx context.Context, r Result) {
	log := s.Log.WithFields(logrus.Fields{
		"run_id": s.Session.RunID,
		"file":   r.Path,
		"status": r.Status,
	})
	if r.Status == StatusFailed {
		log.WithError(r.Err).WithField("reason", r.Reason).Error("file failed")
	} else {
		log.WithField("output", r.OutputPath).Info("file done")
	}

	if s.Observer != nil {
		s.Observer.ItemFinished(r.Index, r)
	}
	if s.Recorder != nil {
		// a cancelled batch still records the item it stopped on
		if err := s.Recorder.Record(context.WithoutCancel(ctx), s.Session.RunID, r); err != nil {
			log.WithError(err).Warn("could not record result")
		}
	}
}

func (s *Sequencer) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
