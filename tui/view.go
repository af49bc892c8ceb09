package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"video-compressor/batch"
	"video-compressor/planner"
)

// Color palette - modern, readable
var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Violet
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan
	colorSuccess   = lipgloss.Color("#10B981") // Emerald
	colorError     = lipgloss.Color("#EF4444") // Red
	colorWarning   = lipgloss.Color("#F59E0B") // Amber
	colorMuted     = lipgloss.Color("#6B7280") // Gray
	colorText      = lipgloss.Color("#F9FAFB") // White
	colorTextDim   = lipgloss.Color("#9CA3AF") // Light gray
	colorBorder    = lipgloss.Color("#374151") // Dark gray
)

var (
	// Title bar
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText).
			Background(colorPrimary).
			Padding(0, 2).
			MarginBottom(1)

	// Section headers
	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true).
				MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(1, 2).
			MarginTop(1)

	statLabelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(10)

	statValueStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	statUnitStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	// File list
	fileBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 2).
			MarginTop(1)

	filePathStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	runningStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)

	logBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			MarginTop(1)

	// Percentage styles based on progress
	percentLowStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	percentMidStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)

	percentHighStyle = lipgloss.NewStyle().
				Foreground(colorSuccess).
				Bold(true)
)

// formatSpeed shows the encoder's realtime multiple
func formatSpeed(speed float64) string {
	if speed <= 0 {
		return "—"
	}
	return fmt.Sprintf("%.2fx", speed)
}

// formatETADisplay handles unavailable ETA gracefully
func formatETADisplay(eta time.Duration, available bool) string {
	if !available || eta < 0 {
		return "—"
	}
	return formatDuration(eta)
}

// formatPercentage renders fraction as a percentage. It stays below 100%
// until done so a finishing pass is not shown as complete.
func formatPercentage(fraction float64, done bool) string {
	if done {
		return "100.0%"
	}
	pct := fraction * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 99.9 {
		pct = 99.9
	}
	return fmt.Sprintf("%.1f%%", pct)
}

// getPercentageStyle returns appropriate style based on progress
func getPercentageStyle(pct float64) lipgloss.Style {
	if pct < 33 {
		return percentLowStyle
	} else if pct < 66 {
		return percentMidStyle
	}
	return percentHighStyle
}

func passLabel(pass int) string {
	switch pass {
	case 1:
		return "Pass 1/2 · analysing"
	case 2:
		return "Pass 2/2 · encoding"
	}
	return "Probing"
}

// itemFraction maps a pass snapshot onto the whole file, each pass being half
func itemFraction(pass int, fraction float64) float64 {
	if pass < 1 {
		return 0
	}
	f := (float64(pass-1) + fraction) / 2
	if f > 1 {
		return 1
	}
	return f
}

// overallFraction is the share of the batch done, counting the current file
// partially
func overallFraction(s batch.TrackerState) float64 {
	if len(s.Items) == 0 {
		return 0
	}
	done := float64(s.Completed())
	if s.Current >= 0 && s.Current < len(s.Items) && !s.Items[s.Current].Status.Terminal() {
		done += itemFraction(s.Progress.Pass, s.Progress.Fraction)
	}
	return done / float64(len(s.Items))
}

func statusIcon(r batch.Result) string {
	switch r.Status {
	case batch.StatusRunning:
		return runningStyle.Render("▶")
	case batch.StatusSucceeded:
		return successStyle.Render("✓")
	case batch.StatusFailed:
		return errorStyle.Render("✗")
	}
	return statUnitStyle.Render("·")
}

// describeResult is the one-line outcome shown next to a file
func describeResult(r batch.Result) string {
	switch r.Status {
	case batch.StatusPending:
		return "waiting"
	case batch.StatusRunning:
		if r.Plan != nil {
			return fmt.Sprintf("%d kbps video → %s", r.Plan.VideoKbps, formatBytes(r.Plan.TargetSizeBytes))
		}
		return "probing"
	case batch.StatusSucceeded:
		if r.DryRun {
			if r.Plan == nil {
				return "planned"
			}
			return fmt.Sprintf("planned %d kbps video, quality %s", r.Plan.VideoKbps, r.Plan.Quality)
		}
		return fmt.Sprintf("%s (%s vs target)", formatBytes(r.OutputSizeBytes), formatDelta(r.SizeDelta))
	case batch.StatusFailed:
		msg := r.Reason.String()
		if r.Err != nil {
			msg += ": " + r.Err.Error()
		}
		return msg
	}
	return ""
}

// View renders the TUI
func (m Model) View() string {
	var b strings.Builder

	name := " ▶ Video Compressor "
	if m.DryRun {
		name = " ▶ Video Compressor · dry run "
	}
	b.WriteString(titleStyle.Render(name) + "\n")

	switch m.State {
	case StateRunning, StateStopping:
		b.WriteString(m.renderBatchView())
	case StateDone:
		b.WriteString(m.renderDoneView())
	}

	var help string
	switch m.State {
	case StateRunning:
		help = "  [L] Toggle logs  •  [Q] Stop"
	case StateStopping:
		help = "  Stopping, removing partial output...  •  [Q] Force quit"
	default:
		help = "  [Q] Quit"
	}
	b.WriteString("\n" + helpStyle.Render(help) + "\n")

	return b.String()
}

func (m Model) renderBatchView() string {
	var b strings.Builder
	s := m.Snapshot

	b.WriteString(m.renderFileList(s))
	b.WriteString("\n")

	if s.Current < 0 || s.Current >= len(s.Items) {
		b.WriteString("\n" + statValueStyle.Render("  Starting...") + "\n")
		return b.String()
	}

	cur := s.Items[s.Current]
	snap := s.Progress
	b.WriteString(sectionHeaderStyle.Render(fmt.Sprintf("  %s  %s", filepath.Base(cur.Path), passLabel(snap.Pass))) + "\n")

	fraction := snap.Fraction
	if snap.Pass == 0 {
		// indeterminate until the first pass reports
		fraction = 0.01
	}
	pct := snap.Fraction * 100
	pctStyled := getPercentageStyle(pct).Render(formatPercentage(snap.Fraction, snap.Done))
	b.WriteString("  " + m.Progress.ViewAs(fraction) + "  " + pctStyled + "\n")

	b.WriteString(statsBoxStyle.Render(m.buildStatsGrid(s, cur)))

	if m.ShowLogs {
		b.WriteString("\n")
		b.WriteString(sectionHeaderStyle.Render("  Encoder Output") + "\n")
		b.WriteString(logBoxStyle.Render(m.LogViewport.View()))
	}

	return b.String()
}

func (m Model) buildStatsGrid(s batch.TrackerState, cur batch.Result) string {
	snap := s.Progress
	var lines []string

	position := "—"
	if snap.Pass > 0 {
		position = formatDuration(snap.Position)
		if cur.Plan != nil {
			position += " / " + formatDuration(time.Duration(cur.Plan.Duration*float64(time.Second)))
		}
	}

	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
		statLabelStyle.Render("Position"),
		statValueStyle.Render(position),
		lipgloss.NewStyle().Width(6).Render(""),
		statLabelStyle.Render("Speed"),
		statValueStyle.Render(formatSpeed(snap.EncoderSpeed)),
	))

	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
		statLabelStyle.Render("Pass ETA"),
		statValueStyle.Render(formatETADisplay(snap.Remaining, snap.RemainingKnown)),
		lipgloss.NewStyle().Width(12).Render(""),
		statLabelStyle.Render("Elapsed"),
		statValueStyle.Render(formatDuration(snap.Elapsed)),
	))

	if cur.Plan != nil {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			statLabelStyle.Render("Video"),
			statValueStyle.Render(fmt.Sprintf("%d", cur.Plan.VideoKbps)),
			statUnitStyle.Render(" kbps"),
			lipgloss.NewStyle().Width(6).Render(""),
			statLabelStyle.Render("Target"),
			statValueStyle.Render(formatBytes(cur.Plan.TargetSizeBytes)),
		))
		if cur.Plan.Tight {
			lines = append(lines, warningStyle.Render("Target is close to the audio size; quality will be low"))
		}
	}

	batchLine := fmt.Sprintf("%d of %d files", s.Completed(), len(s.Items))
	if !s.Started.IsZero() {
		batchLine += ", " + formatDuration(time.Since(s.Started))
	}
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
		statLabelStyle.Render("Batch"),
		statValueStyle.Render(fmt.Sprintf("%.0f%%", overallFraction(s)*100)),
		statUnitStyle.Render("  "+batchLine),
	))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderFileList(s batch.TrackerState) string {
	maxPathLen := m.Width/2 - 8
	if maxPathLen < 20 {
		maxPathLen = 40
	}

	var lines []string
	for _, r := range s.Items {
		name := truncatePath(filepath.Base(r.Path), maxPathLen)
		line := statusIcon(r) + " " + filePathStyle.Render(fmt.Sprintf("%-*s", maxPathLen, name)) +
			"  " + statUnitStyle.Render(describeResult(r))
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, statUnitStyle.Render("no files"))
	}
	return fileBoxStyle.Render(strings.Join(lines, "\n"))
}

func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	// Show beginning and end
	if maxLen < 20 {
		return path[:maxLen-3] + "..."
	}
	half := (maxLen - 5) / 2
	return path[:half] + " ... " + path[len(path)-half:]
}

func (m Model) renderDoneView() string {
	var b strings.Builder
	sum := batch.Summarize(m.Results)

	b.WriteString("\n")
	switch {
	case sum.Failed == 0 && len(m.Results) == len(m.Snapshot.Items):
		b.WriteString(successStyle.Render("  ✓ Batch Complete") + "\n")
	case len(m.Results) < len(m.Snapshot.Items):
		b.WriteString(warningStyle.Render("  ⊘ Batch Stopped") + "\n")
	case sum.Succeeded == 0:
		b.WriteString(errorStyle.Render("  ✗ Batch Failed") + "\n")
	default:
		b.WriteString(warningStyle.Render("  ⚠ Batch Finished With Errors") + "\n")
	}

	b.WriteString(m.renderFileList(m.Snapshot))
	b.WriteString("\n")

	var lines []string
	lines = append(lines,
		statLabelStyle.Render("Files")+statValueStyle.Render(summaryLine(sum, len(m.Snapshot.Items))))
	if sum.OutputBytes > 0 {
		lines = append(lines,
			statLabelStyle.Render("Saved")+statValueStyle.Render(formatBytes(sum.Saved())))
	}
	if !m.Snapshot.Started.IsZero() {
		lines = append(lines,
			statLabelStyle.Render("Time")+statValueStyle.Render(formatDuration(time.Since(m.Snapshot.Started))))
	}
	b.WriteString(statsBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))

	return b.String()
}

// summaryLine counts outcomes, e.g. "3 succeeded, 1 failed, 2 not run"
func summaryLine(sum batch.Summary, total int) string {
	parts := []string{fmt.Sprintf("%d succeeded", sum.Succeeded)}
	if sum.DryRun > 0 {
		parts[0] = fmt.Sprintf("%d planned", sum.DryRun)
		if n := sum.Succeeded - sum.DryRun; n > 0 {
			parts = append(parts, fmt.Sprintf("%d succeeded", n))
		}
	}
	if sum.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", sum.Failed))
	}
	if skipped := total - sum.Total; skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d not run", skipped))
	}
	return strings.Join(parts, ", ")
}

// formatDelta signs a size difference, e.g. "-1.2 MiB"
func formatDelta(delta int64) string {
	if delta < 0 {
		return "-" + formatBytes(-delta)
	}
	return "+" + formatBytes(delta)
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatMB shows a size the way output names do
func formatMB(bytes int64) string {
	return fmt.Sprintf("%.1f MB", planner.BytesToMB(bytes))
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		return "—"
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
