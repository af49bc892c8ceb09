package progress

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultWindow is the number of trailing samples used for the rate estimate
const DefaultWindow = 8

// Snapshot is the state of one encoder pass after a progress line
type Snapshot struct {
	Pass     int
	Fraction float64       // 0..1
	Position time.Duration // media time processed
	Elapsed  time.Duration // wall time since the pass started
	// Remaining is only meaningful when RemainingKnown is set
	Remaining      time.Duration
	RemainingKnown bool
	// Rate is media seconds encoded per wall second over the trailing window
	Rate float64
	// EncoderSpeed is ffmpeg's own speed= figure (0 when N/A)
	EncoderSpeed float64
	Done         bool
}

type sample struct {
	wall time.Time
	pos  time.Duration
}

// Monitor tracks a single pass. It is not safe for concurrent use; the
// orchestrator feeds it from one goroutine.
type Monitor struct {
	pass    int
	total   time.Duration
	window  int
	now     func() time.Time
	start   time.Time
	samples []sample
	speed   float64
	last    Snapshot
}

// NewMonitor creates a monitor for pass over a source of total duration.
// window below 2 uses DefaultWindow.
func NewMonitor(pass int, total time.Duration, window int) *Monitor {
	if window < 2 {
		window = DefaultWindow
	}
	m := &Monitor{
		pass:    pass,
		total:   total,
		window:  window,
		now:     time.Now,
		samples: make([]sample, 0, window),
	}
	m.start = m.now()
	return m
}

// WithClock replaces the wall clock and restarts the elapsed timer
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	m.start = now()
	return m
}

// classic stderr stats line: "frame=  250 fps= 50 ... time=00:00:10.01 bitrate=... speed=2.01x"
var (
	statsTimeRe  = regexp.MustCompile(`time=\s*(\d+:\d{2}:\d{2}(?:\.\d+)?)`)
	statsSpeedRe = regexp.MustCompile(`speed=\s*([\d.]+)x`)
)

// Feed parses one line. It returns a snapshot when the line carries a media
// position (or the end marker); any other line only updates auxiliary
// state or is ignored.
func (m *Monitor) Feed(line string) (Snapshot, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Snapshot{}, false
	}

	key, value, ok := strings.Cut(line, "=")
	if ok {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "out_time_us":
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
				return m.observe(time.Duration(us) * time.Microsecond), true
			}
			return Snapshot{}, false

		case "out_time_ms":
			// ffmpeg reports microseconds under this key as well
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
				return m.observe(time.Duration(us) * time.Microsecond), true
			}
			return Snapshot{}, false

		case "out_time":
			if us := parseOutTime(value); us >= 0 {
				return m.observe(time.Duration(us) * time.Microsecond), true
			}
			return Snapshot{}, false

		case "speed":
			if speed, _, ok := parseSpeed(value); ok {
				m.speed = speed
			}
			return Snapshot{}, false

		case "progress":
			if value == "end" {
				return m.finish(), true
			}
			return Snapshot{}, false
		}
	}

	// Not a -progress key; try a classic stats line
	if mt := statsTimeRe.FindStringSubmatch(line); mt != nil {
		if sp := statsSpeedRe.FindStringSubmatch(line); sp != nil {
			if speed, err := strconv.ParseFloat(sp[1], 64); err == nil {
				m.speed = speed
			}
		}
		if us := parseOutTime(mt[1]); us >= 0 {
			return m.observe(time.Duration(us) * time.Microsecond), true
		}
	}
	return Snapshot{}, false
}

func (m *Monitor) observe(pos time.Duration) Snapshot {
	now := m.now()

	// Repeated positions (ffmpeg writes out_time three ways per block) do
	// not add samples, so the window spans real progress.
	n := len(m.samples)
	if n == 0 || m.samples[n-1].pos != pos {
		if n == m.window {
			copy(m.samples, m.samples[1:])
			m.samples = m.samples[:n-1]
		}
		m.samples = append(m.samples, sample{wall: now, pos: pos})
	}

	s := Snapshot{
		Pass:         m.pass,
		Position:     pos,
		Elapsed:      now.Sub(m.start),
		EncoderSpeed: m.speed,
	}
	if m.total > 0 {
		s.Fraction = clampFraction(float64(pos) / float64(m.total))
	}

	if rate, ok := m.rate(); ok {
		s.Rate = rate
		if m.total > 0 {
			left := m.total - pos
			if left < 0 {
				left = 0
			}
			s.Remaining = time.Duration(float64(left) / rate)
			s.RemainingKnown = true
		}
	}

	m.last = s
	return s
}

// rate is media time per wall time between the oldest and newest samples
func (m *Monitor) rate() (float64, bool) {
	if len(m.samples) < 2 {
		return 0, false
	}
	oldest := m.samples[0]
	newest := m.samples[len(m.samples)-1]

	wall := newest.wall.Sub(oldest.wall)
	media := newest.pos - oldest.pos
	if wall <= 0 || media <= 0 {
		return 0, false
	}
	return float64(media) / float64(wall), true
}

func (m *Monitor) finish() Snapshot {
	s := m.last
	s.Pass = m.pass
	s.Fraction = 1
	if m.total > 0 {
		s.Position = m.total
	}
	s.Elapsed = m.now().Sub(m.start)
	s.Remaining = 0
	s.RemainingKnown = true
	s.EncoderSpeed = m.speed
	s.Done = true
	m.last = s
	return s
}

// clampFraction ensures a completion fraction is within [0, 1]
func clampFraction(f float64) float64 {
	if f < 0 || f != f {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// parseSpeed extracts the multiplier from "1.23x" or "N/A".
// Returns (speed, raw, ok); N/A is ok with speed 0.
func parseSpeed(value string) (float64, string, bool) {
	raw := strings.TrimSpace(value)
	if raw == "N/A" {
		return 0, raw, true
	}
	speed, err := strconv.ParseFloat(strings.TrimSuffix(raw, "x"), 64)
	if err != nil || speed < 0 {
		return 0, raw, false
	}
	return speed, raw, true
}

// parseOutTime parses "HH:MM:SS.micro" into microseconds, -1 if malformed
func parseOutTime(timeStr string) int64 {
	timeStr = strings.TrimSpace(timeStr)
	if timeStr == "" || timeStr == "N/A" || strings.HasPrefix(timeStr, "-") {
		return -1
	}

	parts := strings.Split(timeStr, ":")
	if len(parts) != 3 {
		return -1
	}

	hours, err1 := strconv.ParseInt(parts[0], 10, 64)
	mins, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil {
		return -1
	}

	secParts := strings.Split(parts[2], ".")
	secs, err3 := strconv.ParseInt(secParts[0], 10, 64)
	if err3 != nil {
		return -1
	}

	var microsecs int64
	if len(secParts) > 1 {
		// Pad or truncate to 6 digits
		usStr := secParts[1]
		for len(usStr) < 6 {
			usStr += "0"
		}
		if len(usStr) > 6 {
			usStr = usStr[:6]
		}
		microsecs, _ = strconv.ParseInt(usStr, 10, 64)
	}

	return hours*3600*1000000 + mins*60*1000000 + secs*1000000 + microsecs
}
