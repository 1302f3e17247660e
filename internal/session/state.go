package session

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dgnsrekt/drill/internal/deck"
)

var (
	// ErrInvalidTransition is returned when an intent is not valid in the
	// current phase. The controller state is left unchanged.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrEmptyDeck is returned by Start when there is nothing to play.
	ErrEmptyDeck = errors.New("deck is empty")
)

// Phase is the playback phase of a controller.
type Phase int

const (
	// PhaseIdle means no session is running.
	PhaseIdle Phase = iota
	// PhasePlaying means the session loop is narrating items.
	PhasePlaying
	// PhasePaused means the loop parks before the next item.
	PhasePaused
	// PhaseStopping means in-flight work is being torn down.
	PhaseStopping
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlaying:
		return "playing"
	case PhasePaused:
		return "paused"
	case PhaseStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

var transitions = map[Phase][]Phase{
	PhaseIdle:     {PhasePlaying},
	PhasePlaying:  {PhasePaused, PhaseStopping, PhaseIdle},
	PhasePaused:   {PhasePlaying, PhaseStopping, PhaseIdle},
	PhaseStopping: {PhaseIdle},
}

// canTransition reports whether the table allows from -> to.
func canTransition(from, to Phase) bool {
	return slices.Contains(transitions[from], to)
}

func transitionError(intent string, from Phase) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, intent, from)
}

// State is a snapshot of a controller for display.
type State struct {
	Phase     Phase
	SessionID string

	Round  int // 0-based
	Rounds int
	Item   int // 0-based index into the round order
	Total  int // items in the round order

	Completed int // items completed in this session
	Current   deck.Item
	Cursor    int // durable batch cursor
}

// IsActive returns true while a session is running.
func (s State) IsActive() bool {
	return s.Phase == PhasePlaying || s.Phase == PhasePaused
}

// CanStart returns true if a session can be started.
func (s State) CanStart() bool { return s.Phase == PhaseIdle }

// CanPause returns true if playback can be paused.
func (s State) CanPause() bool { return s.Phase == PhasePlaying }

// CanResume returns true if playback can be resumed.
func (s State) CanResume() bool { return s.Phase == PhasePaused }

// CanSkip returns true if the current item can be skipped.
func (s State) CanSkip() bool { return s.IsActive() }

// CanStop returns true if the session can be stopped.
func (s State) CanStop() bool { return s.IsActive() }

// Progress returns the completed fraction of the session in [0, 1].
func (s State) Progress() float64 {
	total := s.Rounds * s.Total
	if total == 0 {
		return 0
	}
	done := s.Round*s.Total + s.Item
	if done > total {
		done = total
	}
	return float64(done) / float64(total)
}
