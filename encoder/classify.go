package encoder

import (
	"regexp"
	"strings"
	"sync"
)

// Pre-compiled patterns for ffmpeg stderr that indicate the output could
// not be written, as opposed to a decode or encode problem.
var reDiskIssue = regexp.MustCompile(
	`(?i)No space left on device|` +
		`Disk quota exceeded|` +
		`Read-only file system|` +
		`File too large|` +
		`Error writing trailer|` +
		`av_interleaved_write_frame\(\).*(I/O error|Input/output error|Permission denied)|` +
		`Could not open file .* for writing|` +
		`Error opening output file`)

// MatchDiskIssue reports whether stderr contains an output write failure
func MatchDiskIssue(stderr string) bool {
	return reDiskIssue.MatchString(stderr)
}

const maxLogs = 100

// lineTail is an io.Writer keeping the last maxLogs lines written to it.
// ffmpeg separates status updates with \r, so both \r and \n end a line.
type lineTail struct {
	mu      sync.Mutex
	partial []byte
	lines   []string
}

func (t *lineTail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, b := range p {
		if b == '\n' || b == '\r' {
			t.flushLocked()
			continue
		}
		t.partial = append(t.partial, b)
	}
	return len(p), nil
}

func (t *lineTail) flushLocked() {
	if len(t.partial) == 0 {
		return
	}
	t.lines = append(t.lines, string(t.partial))
	t.partial = t.partial[:0]
	if len(t.lines) > maxLogs {
		t.lines = t.lines[len(t.lines)-maxLogs:]
	}
}

// Lines returns a copy of the retained lines including any unterminated one
func (t *lineTail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.lines), len(t.lines)+1)
	copy(out, t.lines)
	if len(t.partial) > 0 {
		out = append(out, string(t.partial))
	}
	return out
}

func (t *lineTail) String() string {
	return strings.Join(t.Lines(), "\n")
}

// lastLine returns the final retained line, usually ffmpeg's error summary
func (t *lineTail) lastLine() string {
	lines := t.Lines()
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
