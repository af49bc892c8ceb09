package batch

import (
	"sync"
	"time"

	"video-compressor/planner"
	"video-compressor/progress"
)

// Observer receives batch events. Calls come from the goroutine running the
// batch and must not block.
type Observer interface {
	ItemStarted(index int, r Result)
	ItemPlanned(index int, plan planner.Plan)
	Progress(index int, s progress.Snapshot)
	ItemFinished(index int, r Result)
}

// TrackerState is a point-in-time copy of a Tracker
type TrackerState struct {
	Items    []Result
	Current  int // -1 before the first item starts
	Progress progress.Snapshot
	Started  time.Time
	Done     bool
}

// Completed counts items in a terminal status
func (s TrackerState) Completed() int {
	n := 0
	for _, r := range s.Items {
		if r.Status.Terminal() {
			n++
		}
	}
	return n
}

// Tracker keeps the latest batch state for a poller such as the TUI
type Tracker struct {
	mu    sync.Mutex
	state TrackerState
	now   func() time.Time
}

// NewTracker creates a tracker listing items as pending
func NewTracker(items []Item) *Tracker {
	t := &Tracker{now: time.Now}
	t.state.Current = -1
	t.state.Items = make([]Result, len(items))
	for i, it := range items {
		t.state.Items[i] = Result{Index: i, Path: it.Path, Status: StatusPending}
	}
	return t
}

func (t *Tracker) ItemStarted(index int, r Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Started.IsZero() {
		t.state.Started = t.now()
	}
	t.state.Current = index
	t.state.Progress = progress.Snapshot{}
	t.set(index, r)
}

func (t *Tracker) ItemPlanned(index int, plan planner.Plan) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.state.Items) || t.state.Items[index].Status.Terminal() {
		return
	}
	t.state.Items[index].Plan = &plan
	t.state.Items[index].OutputPath = plan.OutputPath
}

func (t *Tracker) Progress(index int, s progress.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index == t.state.Current {
		t.state.Progress = s
	}
}

func (t *Tracker) ItemFinished(index int, r Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.set(index, r)
}

// set stores r unless the slot already holds a terminal result
func (t *Tracker) set(index int, r Result) {
	if index < 0 || index >= len(t.state.Items) {
		return
	}
	if t.state.Items[index].Status.Terminal() {
		return
	}
	t.state.Items[index] = r
}

// Finish marks the batch as over
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Done = true
}

// State returns a copy of the current state
func (t *Tracker) State() TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state
	s.Items = append([]Result(nil), t.state.Items...)
	return s
}
