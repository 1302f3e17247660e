// Package srs implements the spaced-repetition scheduler: which items are
// due, which one to review next, and how grading moves an item's schedule.
package srs

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dgnsrekt/drill/internal/deck"
)

var (
	// ErrNoItemsDue is returned when nothing is due for review. It is an
	// informational condition, not a failure.
	ErrNoItemsDue = errors.New("no items due")

	// ErrUnknownItem is returned when grading an id that is not in the deck.
	ErrUnknownItem = deck.ErrUnknownItem

	// ErrInvalidOutcome is returned for outcomes other than Again and Good.
	ErrInvalidOutcome = errors.New("invalid outcome")
)

// IntervalUnit is the length of one interval step.
const IntervalUnit = time.Minute

// Stats are the cumulative review counters.
type Stats struct {
	Drilled int `json:"drilled"` // grading calls
	Unique  int `json:"unique"`  // items graded at least once
	Played  int `json:"played"`  // items completed in playback sessions
}

// IsDue reports whether it is eligible for review at now. Items that were
// never reviewed are always due.
func IsDue(it deck.Item, now time.Time) bool {
	return it.ReviewCount == 0 || it.NextDueAt == 0 || it.NextDueAt <= now.UnixMilli()
}

// DueItems returns the items due at now, in deck order.
func DueItems(items []deck.Item, now time.Time) []deck.Item {
	due := make([]deck.Item, 0, len(items))
	for _, it := range items {
		if IsDue(it, now) {
			due = append(due, it)
		}
	}
	return due
}

// NextInterval returns the interval in minutes that follows current after
// grading with o.
func NextInterval(current int, o Outcome) int {
	if o == Again || current <= 0 {
		return 1
	}
	return current * 2
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRand sets the random source used to pick the next item.
func WithRand(r *rand.Rand) Option {
	return func(s *Scheduler) {
		s.rng = r
	}
}

// WithStats seeds the counters, typically from persisted progress.
func WithStats(st Stats) Option {
	return func(s *Scheduler) {
		s.stats = st
	}
}

// Scheduler grades items of a deck in place and keeps review counters.
type Scheduler struct {
	deck *deck.Deck

	mu    sync.Mutex
	rng   *rand.Rand
	stats Stats
}

// New returns a scheduler bound to d.
func New(d *deck.Deck, opts ...Option) *Scheduler {
	s := &Scheduler{deck: d}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano()) //nolint:gosec
		s.rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return s
}

// Deck returns the deck the scheduler operates on.
func (s *Scheduler) Deck() *deck.Deck {
	return s.deck
}

// PickNext chooses uniformly at random among due.
func (s *Scheduler) PickNext(due []deck.Item) (deck.Item, error) {
	if len(due) == 0 {
		return deck.Item{}, ErrNoItemsDue
	}
	s.mu.Lock()
	i := s.rng.IntN(len(due))
	s.mu.Unlock()
	return due[i], nil
}

// Next picks a due item of the bound deck.
func (s *Scheduler) Next(now time.Time) (deck.Item, error) {
	return s.PickNext(DueItems(s.deck.Items(), now))
}

// Grade records a review of the item id at now and returns the updated
// item.
func (s *Scheduler) Grade(id string, o Outcome, now time.Time) (deck.Item, error) {
	if !o.IsValid() {
		return deck.Item{}, fmt.Errorf("%w: %d", ErrInvalidOutcome, int(o))
	}

	var first bool
	it, err := s.deck.Update(id, func(it *deck.Item) {
		it.Interval = NextInterval(it.Interval, o)
		it.NextDueAt = now.UnixMilli() + int64(it.Interval)*IntervalUnit.Milliseconds()
		first = it.ReviewCount == 0
		it.ReviewCount++
	})
	if err != nil {
		return deck.Item{}, err //nolint:wrapcheck
	}

	s.mu.Lock()
	s.stats.Drilled++
	if first {
		s.stats.Unique++
	}
	s.mu.Unlock()
	return it, nil
}

// RecordPlayed counts an item completed during a playback session.
func (s *Scheduler) RecordPlayed() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Played++
	return s.stats
}

// Stats returns a copy of the counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
