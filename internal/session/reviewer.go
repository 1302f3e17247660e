package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/drill/internal/deck"
	"github.com/dgnsrekt/drill/internal/progress"
	"github.com/dgnsrekt/drill/internal/srs"
	"github.com/dgnsrekt/drill/internal/tts"
)

// ErrNoCurrentItem is returned when grading or replaying before an item was
// picked.
var ErrNoCurrentItem = errors.New("no item under review")

// ReviewerConfig wires a Reviewer to its collaborators.
type ReviewerConfig struct {
	Scheduler *srs.Scheduler
	Speaker   Speaker
	Progress  *progress.Progress // optional
	Options   Options
	Logger    *log.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Reviewer walks due items one at a time: pick, listen, grade.
type Reviewer struct {
	sched    *srs.Scheduler
	speaker  Speaker
	progress *progress.Progress
	opts     Options
	logger   *log.Logger
	now      func() time.Time

	mu      sync.Mutex
	current deck.Item
	has     bool
}

// NewReviewer creates a reviewer.
func NewReviewer(cfg ReviewerConfig) (*Reviewer, error) {
	if cfg.Scheduler == nil {
		return nil, errors.New("session: scheduler is required")
	}
	if cfg.Speaker == nil {
		return nil, errors.New("session: speaker is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reviewer{
		sched:    cfg.Scheduler,
		speaker:  cfg.Speaker,
		progress: cfg.Progress,
		opts:     cfg.Options.normalize(),
		logger:   cfg.Logger,
		now:      cfg.Now,
	}, nil
}

// Pick selects a random due item without narrating it. It returns
// srs.ErrNoItemsDue when nothing is due.
func (r *Reviewer) Pick() (deck.Item, error) {
	it, err := r.sched.Next(r.now())
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.current, r.has = deck.Item{}, false
		return deck.Item{}, err //nolint:wrapcheck
	}
	r.current, r.has = it, true
	return it, nil
}

// Next picks a due item and narrates it. Narration failures are logged; the
// item stays under review either way.
func (r *Reviewer) Next(ctx context.Context) (deck.Item, error) {
	it, err := r.Pick()
	if err != nil {
		return deck.Item{}, err
	}
	r.speak(ctx, it)
	return it, nil
}

// Replay narrates the current item again.
func (r *Reviewer) Replay(ctx context.Context) error {
	it, ok := r.Current()
	if !ok {
		return ErrNoCurrentItem
	}
	r.speak(ctx, it)
	return nil
}

// Current returns the item under review.
func (r *Reviewer) Current() (deck.Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.has
}

// Grade records the outcome for the current item, persists the schedule and
// the counters, and clears the current item.
func (r *Reviewer) Grade(ctx context.Context, o srs.Outcome) (deck.Item, error) {
	r.mu.Lock()
	it, ok := r.current, r.has
	r.mu.Unlock()
	if !ok {
		return deck.Item{}, ErrNoCurrentItem
	}

	r.speaker.CancelAll()

	graded, err := r.sched.Grade(it.ID, o, r.now())
	if err != nil {
		return deck.Item{}, err //nolint:wrapcheck
	}

	r.mu.Lock()
	r.current, r.has = deck.Item{}, false
	r.mu.Unlock()

	r.logger.Debug("item graded", "item", graded.ID, "outcome", o,
		"interval", graded.Interval, "reviews", graded.ReviewCount)
	r.persist(ctx)
	return graded, nil
}

// Stats returns the review counters.
func (r *Reviewer) Stats() srs.Stats {
	return r.sched.Stats()
}

// Due returns the number of items due now.
func (r *Reviewer) Due() int {
	return len(srs.DueItems(r.sched.Deck().Items(), r.now()))
}

// Stop cancels narration in flight.
func (r *Reviewer) Stop() {
	r.speaker.CancelAll()
}

func (r *Reviewer) speak(ctx context.Context, it deck.Item) {
	err := r.speaker.SpeakRepeated(ctx, it.Text, r.opts.SourceVoice, r.opts.Rate,
		r.opts.RepetitionsPerItem, r.opts.ShadowDelay)
	if err != nil && !tts.IsCanceled(err) {
		r.logger.Warn("narration failed", "item", it.ID, "error", err)
	}
}

func (r *Reviewer) persist(ctx context.Context) {
	if r.progress == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := r.progress.SaveSchedule(ctx, r.sched.Deck().Items()); err != nil {
		r.logger.Warn("failed to save schedule", "error", err)
	}
	if err := r.progress.SaveStats(ctx, r.sched.Stats()); err != nil {
		r.logger.Warn("failed to save stats", "error", err)
	}
}
