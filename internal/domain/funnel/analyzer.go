package funnel

import "fmt"

// Phases is the rotating status text shown while the analyzer runs.
var Phases = []string{
	"Analyzing your preferences...",
	"Matching your personality...",
	"Selecting perfect content...",
	"Crafting your calendar...",
}

// DefaultStep is the progress added per tick.
const DefaultStep = 0.25

// Checkpoint marks what a single Advance call ran into.
type Checkpoint int

const (
	CheckpointNone Checkpoint = iota
	// CheckpointEarly and CheckpointLate are the timed dwells at 20% and 65%.
	CheckpointEarly
	CheckpointLate
	// CheckpointAck is the 90% gate: progress stays blocked until the user
	// explicitly acknowledges, not until a timer elapses.
	CheckpointAck
	CheckpointDone
)

// Analyzer models the analyzing screen's progress bar: a single value
// climbing from 0 to 100 with three distinct pause points. The model is
// pure; timers live in the runner so tests can drive it tick by tick.
type Analyzer struct {
	progress    float64
	phase       int
	paused      bool
	awaitingAck bool
	hitEarly    bool
	hitLate     bool
	hitAck      bool
	done        bool
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Advance moves progress forward by step and reports any checkpoint crossed.
// While paused or awaiting acknowledgment the call is a no-op.
func (a *Analyzer) Advance(step float64) Checkpoint {
	if a.done || a.paused || a.awaitingAck {
		return CheckpointNone
	}

	a.progress += step

	switch {
	case a.progress >= 20 && !a.hitEarly:
		a.progress = 20
		a.hitEarly = true
		a.paused = true
		return CheckpointEarly
	case a.progress >= 65 && !a.hitLate:
		a.progress = 65
		a.hitLate = true
		a.paused = true
		return CheckpointLate
	case a.progress >= 90 && !a.hitAck:
		a.progress = 90
		a.hitAck = true
		a.awaitingAck = true
		return CheckpointAck
	case a.progress >= 100:
		a.progress = 100
		a.done = true
		return CheckpointDone
	}
	return CheckpointNone
}

// Resume clears a timed pause. It does not clear the acknowledgment gate.
func (a *Analyzer) Resume() {
	a.paused = false
}

// Acknowledge clears the 90% gate.
func (a *Analyzer) Acknowledge() error {
	if !a.awaitingAck {
		return fmt.Errorf("analyzer is not awaiting acknowledgment")
	}
	a.awaitingAck = false
	return nil
}

// RotatePhase advances the status text. Driven by its own timer,
// independent of the progress ticker.
func (a *Analyzer) RotatePhase() {
	a.phase = (a.phase + 1) % len(Phases)
}

// Phase returns the current status text.
func (a *Analyzer) Phase() string {
	return Phases[a.phase]
}

func (a *Analyzer) Progress() float64 { return a.progress }
func (a *Analyzer) AwaitingAck() bool { return a.awaitingAck }
func (a *Analyzer) Done() bool        { return a.done }
