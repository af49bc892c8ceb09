package tui

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"video-compressor/batch"
	"video-compressor/config"
	"video-compressor/failure"
	"video-compressor/history"
	"video-compressor/planner"
	"video-compressor/progress"
)

// progressStep is how far a pass must advance before Printer reports it again
const progressStep = 0.25

// Printer writes batch events as plain lines, for non-interactive output
type Printer struct {
	w     io.Writer
	total int

	pass int
	next float64
}

// NewPrinter creates a printer for a batch of total files
func NewPrinter(w io.Writer, total int) *Printer {
	return &Printer{w: w, total: total}
}

func (p *Printer) ItemStarted(index int, r batch.Result) {
	p.pass, p.next = 0, 0
	fmt.Fprintf(p.w, "[%d/%d] %s\n", index+1, p.total, r.Path)
}

func (p *Printer) ItemPlanned(_ int, plan planner.Plan) {
	fmt.Fprintf(p.w, "      %d kbps video, %d kbps audio, %s -> %s (quality %s)\n",
		plan.VideoKbps, plan.AudioKbps, formatMB(plan.TargetSizeBytes),
		filepath.Base(plan.OutputPath), plan.Quality)
	if plan.SourceSizeBytes > 0 {
		fmt.Fprintf(p.w, "      -%.1f%% of %s, %s long\n",
			plan.Reduction()*100, formatMB(plan.SourceSizeBytes),
			formatDuration(time.Duration(plan.Duration*float64(time.Second))))
	}
	if plan.Tight {
		fmt.Fprintln(p.w, "      warning: target is close to the audio size; quality will be low")
	}
}

func (p *Printer) Progress(_ int, s progress.Snapshot) {
	if s.Pass != p.pass {
		p.pass, p.next = s.Pass, progressStep
	}
	if !s.Done && s.Fraction < p.next {
		return
	}
	for p.next <= s.Fraction {
		p.next += progressStep
	}
	if s.Done {
		p.next = 2
		fmt.Fprintf(p.w, "      pass %d done in %s\n", s.Pass, formatDuration(s.Elapsed))
		return
	}
	fmt.Fprintf(p.w, "      pass %d %s  speed %s  eta %s\n",
		s.Pass, formatPercentage(s.Fraction, false), formatSpeed(s.EncoderSpeed),
		formatETADisplay(s.Remaining, s.RemainingKnown))
}

func (p *Printer) ItemFinished(_ int, r batch.Result) {
	mark := "ok"
	if r.Status == batch.StatusFailed {
		mark = "FAILED"
	}
	fmt.Fprintf(p.w, "      %s: %s\n", mark, describeResult(r))
}

// PrintReport writes the final per-file table and totals. total is the
// number of files the batch was given.
func PrintReport(w io.Writer, total int, results []batch.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tFILE\tSTATUS\tTARGET\tOUTPUT\tDELTA\tTIME")
	for _, r := range results {
		target, output, delta := "-", "-", "-"
		if r.Plan != nil {
			target = formatMB(r.Plan.TargetSizeBytes)
		}
		if r.Status == batch.StatusSucceeded && !r.DryRun {
			output = formatMB(r.OutputSizeBytes)
			delta = formatDelta(r.SizeDelta)
		}
		status := r.Status.String()
		switch {
		case r.Status == batch.StatusFailed:
			status = r.Reason.String()
		case r.DryRun:
			status = "planned"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Index+1, filepath.Base(r.Path), status, target, output, delta, formatDuration(r.Duration()))
	}
	tw.Flush()

	for _, r := range results {
		if r.Status != batch.StatusFailed || r.Err == nil {
			continue
		}
		if failure.Planning(r.Reason) {
			fmt.Fprintf(w, "  %s: not encoded: %v\n", filepath.Base(r.Path), r.Err)
			continue
		}
		fmt.Fprintf(w, "  %s: %v\n", filepath.Base(r.Path), r.Err)
	}

	sum := batch.Summarize(results)
	fmt.Fprintf(w, "\n%s", summaryLine(sum, total))
	if sum.OutputBytes > 0 {
		fmt.Fprintf(w, ", saved %s", formatBytes(sum.Saved()))
	}
	fmt.Fprintln(w)
}

// PrintHistory lists recorded encodes, newest first
func PrintHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no encodes recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tRUN\tFILE\tSTATUS\tTARGET\tOUTPUT")
	for _, e := range entries {
		status := e.Status
		if e.Reason != "" {
			status = e.Reason
		}
		if e.DryRun {
			status += " (dry run)"
		}
		output := "-"
		if e.OutputBytes > 0 {
			output = formatMB(e.OutputBytes)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.FinishedAt.Format("2006-01-02 15:04:05"), shortID(e.RunID),
			filepath.Base(e.InputPath), status, formatMB(e.TargetBytes), output)
	}
	tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// PrintFormats lists the output formats and their codecs
func PrintFormats(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMAT\tDESCRIPTION\tVIDEO\tAUDIO")
	for _, f := range config.AvailableFormats() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f, f.Description(), f.VideoCodec(), f.AudioCodec())
	}
	tw.Flush()
}
