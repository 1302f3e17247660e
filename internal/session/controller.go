// Package session runs drill sessions: the playback controller that narrates
// a deck item by item, and the reviewer that walks due items through the
// spaced-repetition scheduler.
package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/drill/internal/deck"
	"github.com/dgnsrekt/drill/internal/progress"
	"github.com/dgnsrekt/drill/internal/srs"
	"github.com/dgnsrekt/drill/internal/tts"
	"github.com/google/uuid"
)

// Speaker narrates text. *tts.Narrator implements it.
type Speaker interface {
	SpeakOnce(ctx context.Context, text string, voice tts.VoiceSelector, rate float64) error
	SpeakRepeated(ctx context.Context, text string, voice tts.VoiceSelector, rate float64, repetitions int, gap time.Duration) error
	CancelAll()
}

// Config wires a Controller to its collaborators.
type Config struct {
	Deck    *deck.Deck
	Speaker Speaker

	// Progress persists the cursor and stats. Optional.
	Progress *progress.Progress

	// Scheduler keeps the stats counters. Optional; one is created over
	// Deck when nil.
	Scheduler *srs.Scheduler

	Logger *log.Logger
	Rand   *rand.Rand
}

// Controller is the playback state machine. Intents (Start, Pause, Resume,
// Skip, Stop) may be called from any goroutine; the session itself runs on
// a single goroutine owned by the controller.
type Controller struct {
	deck     *deck.Deck
	speaker  Speaker
	progress *progress.Progress
	sched    *srs.Scheduler
	logger   *log.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	mu    sync.Mutex
	state State
	opts  Options

	cancel     context.CancelFunc // session
	stepCancel context.CancelFunc // current item
	done       chan struct{}      // closed when the loop exits

	// wake is closed and replaced whenever a parked loop should re-check
	// the phase.
	wake chan struct{}

	// seq numbers the items begun in this session; skipSeq marks the one
	// a Skip applies to.
	seq     int64
	skipSeq int64

	listeners []func(Event)
}

// NewController creates an idle controller.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Deck == nil {
		return nil, errors.New("session: deck is required")
	}
	if cfg.Speaker == nil {
		return nil, errors.New("session: speaker is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Rand == nil {
		seed := uint64(time.Now().UnixNano()) //nolint:gosec
		cfg.Rand = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	if cfg.Scheduler == nil {
		var st srs.Stats
		if cfg.Progress != nil {
			st = cfg.Progress.LoadStats(context.Background())
		}
		cfg.Scheduler = srs.New(cfg.Deck, srs.WithStats(st))
	}

	c := &Controller{
		deck:     cfg.Deck,
		speaker:  cfg.Speaker,
		progress: cfg.Progress,
		sched:    cfg.Scheduler,
		logger:   cfg.Logger,
		rng:      cfg.Rand,
		opts:     DefaultOptions().normalize(),
		wake:     make(chan struct{}),
		skipSeq:  -1,
	}
	if c.progress != nil {
		c.state.Cursor = c.clampCursor(c.progress.LoadCursor(context.Background()))
	}
	return c, nil
}

// OnEvent registers fn to receive session events. Listeners run on the
// goroutine that caused the event and must not block or call back into the
// controller synchronously.
func (c *Controller) OnEvent(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins a session. It is only valid while idle. The first item is
// selected before Start returns; narration runs in the background.
func (c *Controller) Start(ctx context.Context, opts Options) error {
	opts = opts.normalize()

	c.mu.Lock()
	if c.state.Phase != PhaseIdle {
		err := transitionError("start", c.state.Phase)
		c.mu.Unlock()
		return err
	}
	if c.deck.Len() == 0 {
		c.mu.Unlock()
		return ErrEmptyDeck
	}

	sctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.opts = opts
	c.seq = 0
	c.skipSeq = -1
	c.state = State{
		Phase:     PhasePlaying,
		SessionID: uuid.NewString(),
		Rounds:    opts.Rounds,
		Cursor:    c.state.Cursor,
	}
	c.notifyLocked()
	st := c.state
	done := c.done
	c.mu.Unlock()

	c.logger.Debug("session started", "session", st.SessionID, "rounds", opts.Rounds,
		"repetitions", opts.RepetitionsPerItem, "shuffle", opts.Shuffle, "batch", opts.BatchSize)
	c.emit(Event{Type: EventPhaseChanged, State: st})

	go c.run(sctx, opts, done)
	return nil
}

// Pause parks the session before the next item. The utterance in flight
// finishes normally.
func (c *Controller) Pause() error {
	return c.setPhase("pause", PhasePlaying, PhasePaused)
}

// Resume continues a paused session from the parked item.
func (c *Controller) Resume() error {
	return c.setPhase("resume", PhasePaused, PhasePlaying)
}

// Toggle pauses a playing session and resumes a paused one.
func (c *Controller) Toggle() error {
	if c.State().Phase == PhasePaused {
		return c.Resume()
	}
	return c.Pause()
}

func (c *Controller) setPhase(intent string, from, to Phase) error {
	c.mu.Lock()
	if c.state.Phase != from || !canTransition(from, to) {
		err := transitionError(intent, c.state.Phase)
		c.mu.Unlock()
		return err
	}
	c.state.Phase = to
	c.notifyLocked()
	st := c.state
	c.mu.Unlock()

	c.logger.Debug("session "+intent, "session", st.SessionID, "item", st.Item)
	c.emit(Event{Type: EventPhaseChanged, State: st})
	return nil
}

// Skip abandons the current item, including its remaining repetitions and
// delays, and moves on to the next one. A paused session stays paused.
func (c *Controller) Skip() error {
	c.mu.Lock()
	if !c.state.IsActive() {
		err := transitionError("skip", c.state.Phase)
		c.mu.Unlock()
		return err
	}
	c.skipSeq = c.seq
	// The loop cannot begin the next item while mu is held, so this
	// cancel only reaches the skipped utterance.
	c.speaker.CancelAll()
	if c.stepCancel != nil {
		c.stepCancel()
	}
	c.notifyLocked()
	c.mu.Unlock()
	return nil
}

// Stop ends the session and waits until the loop has exited. Progress saved
// for completed items is kept. Stopping an idle controller does nothing.
func (c *Controller) Stop() error {
	c.mu.Lock()
	changed := false
	switch c.state.Phase {
	case PhaseIdle:
		c.mu.Unlock()
		return nil
	case PhasePlaying, PhasePaused:
		c.state.Phase = PhaseStopping
		c.cancel()
		c.notifyLocked()
		changed = true
	}
	st := c.state
	done := c.done
	c.mu.Unlock()

	if changed {
		c.logger.Debug("session stopping", "session", st.SessionID)
		c.emit(Event{Type: EventPhaseChanged, State: st})
	}
	c.speaker.CancelAll()
	<-done
	return nil
}

// SetRate changes the speech rate. It applies from the next item on.
func (c *Controller) SetRate(rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Rate = tts.ClampRate(rate)
}

// Options returns the options of the current or last session.
func (c *Controller) Options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts
}

// Wait blocks until the current session, if any, has returned to idle.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// notifyLocked wakes a parked loop. Must be called with mu held.
func (c *Controller) notifyLocked() {
	close(c.wake)
	c.wake = make(chan struct{})
}

func (c *Controller) emit(ev Event) {
	c.mu.Lock()
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

func (c *Controller) run(ctx context.Context, opts Options, done chan struct{}) {
	completed := c.playRounds(ctx, opts)

	c.mu.Lock()
	c.cancel()
	c.cancel = nil
	c.stepCancel = nil
	id := c.state.SessionID
	c.state = State{Phase: PhaseIdle, Cursor: c.state.Cursor}
	st := c.state
	close(done)
	c.mu.Unlock()

	if completed {
		c.logger.Info("session completed", "session", id)
		c.emit(Event{Type: EventSessionCompleted, State: st, Message: c.celebration()})
	} else {
		c.logger.Debug("session stopped", "session", id)
	}
	c.emit(Event{Type: EventPhaseChanged, State: st})
}

// playRounds returns false if the session was stopped.
func (c *Controller) playRounds(ctx context.Context, opts Options) bool {
	windowStart, window := c.window(opts)

	for round := 0; round < opts.Rounds; round++ {
		order := c.order(opts, window)

		c.mu.Lock()
		c.state.Round = round
		c.state.Item = 0
		c.state.Total = len(order)
		c.mu.Unlock()

		completed := 0
		for i, it := range order {
			if _, ok := c.deck.Get(it.ID); !ok {
				continue
			}
			c.mu.Lock()
			c.state.Item = i
			c.state.Current = it
			c.mu.Unlock()

			if !c.park(ctx) {
				return false
			}
			if c.playItem(ctx, opts, round, i, it) {
				completed++
			}
			if ctx.Err() != nil {
				return false
			}
		}

		c.advanceCursor(ctx, opts, windowStart, completed)

		c.mu.Lock()
		c.state.Item = len(order)
		st := c.state
		c.mu.Unlock()
		c.emit(Event{Type: EventRoundCompleted, State: st})
	}
	return ctx.Err() == nil
}

// window returns the items a session covers: the whole deck, or the batch
// starting at the durable cursor. An exhausted batch cursor starts over.
func (c *Controller) window(opts Options) (int, []deck.Item) {
	if opts.BatchSize == 0 {
		return 0, c.deck.Items()
	}

	c.mu.Lock()
	start := c.clampCursor(c.state.Cursor)
	if start >= c.deck.Len() {
		c.logger.Info("reached the end of the deck, starting over")
		start = 0
		c.state.Cursor = 0
	}
	c.mu.Unlock()
	return start, c.deck.Window(start, opts.BatchSize)
}

// order takes a fresh snapshot for the round. Items removed from the deck
// since the session started are dropped.
func (c *Controller) order(opts Options, window []deck.Item) []deck.Item {
	order := make([]deck.Item, 0, len(window))
	for _, it := range window {
		if cur, ok := c.deck.Get(it.ID); ok {
			order = append(order, cur)
		}
	}
	if opts.Shuffle {
		c.rngMu.Lock()
		c.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		c.rngMu.Unlock()
	}
	return order
}

// park blocks while paused. It returns early when a skip targets the
// parked item and returns false once the session is stopped.
func (c *Controller) park(ctx context.Context) bool {
	for {
		c.mu.Lock()
		if c.state.Phase != PhasePaused || c.skipSeq == c.seq {
			c.mu.Unlock()
			return ctx.Err() == nil
		}
		wake := c.wake
		c.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return false
		}
	}
}

// playItem narrates one item and reports whether it completed.
func (c *Controller) playItem(ctx context.Context, opts Options, round, index int, it deck.Item) bool {
	c.mu.Lock()
	c.state.Round = round
	c.state.Item = index
	c.state.Current = it
	if c.skipSeq == c.seq {
		c.seq++
		st := c.state
		c.mu.Unlock()
		c.emit(Event{Type: EventItemSkipped, State: st, Item: it})
		return false
	}
	stepCtx, cancel := context.WithCancel(ctx)
	c.stepCancel = cancel
	opts.Rate = c.opts.Rate
	st := c.state
	c.mu.Unlock()

	c.emit(Event{Type: EventItemStarted, State: st, Item: it})
	interrupted := c.narrate(stepCtx, opts, st, it)

	c.mu.Lock()
	cancel()
	c.stepCancel = nil
	skipped := c.skipSeq == c.seq
	c.seq++
	if !interrupted && !skipped {
		c.state.Completed++
	}
	st = c.state
	c.mu.Unlock()

	switch {
	case ctx.Err() != nil:
		return false
	case interrupted || skipped:
		c.logger.Debug("item skipped", "session", st.SessionID, "item", it.ID)
		c.emit(Event{Type: EventItemSkipped, State: st, Item: it})
		return false
	}

	c.recordPlayed(ctx)
	c.emit(Event{Type: EventItemCompleted, State: st, Item: it})
	return true
}

// narrate runs the primary text, the pair gap, the secondary text and the
// item gap. It returns true if ctx was canceled part way.
func (c *Controller) narrate(ctx context.Context, opts Options, st State, it deck.Item) bool {
	err := c.speaker.SpeakRepeated(ctx, it.Text, opts.SourceVoice, opts.Rate, opts.RepetitionsPerItem, opts.ShadowDelay)
	c.report(ctx, st, it, err)
	if ctx.Err() != nil {
		return true
	}

	if it.HasTranslation() {
		if !sleep(ctx, opts.PairGap) {
			return true
		}
		err := c.speaker.SpeakOnce(ctx, it.Translation, opts.TargetVoice, opts.Rate)
		c.report(ctx, st, it, err)
		if ctx.Err() != nil {
			return true
		}
	}

	return !sleep(ctx, opts.ItemGap)
}

// report logs a narration failure and lets playback proceed. Cancellation
// is expected control flow and not reported. A fatal failure, such as a
// lost audio device, ends the session.
func (c *Controller) report(ctx context.Context, st State, it deck.Item, err error) {
	if err == nil || ctx.Err() != nil || tts.IsCanceled(err) {
		return
	}
	if !tts.IsFatal(err) {
		c.logger.Warn("narration failed", "session", st.SessionID, "item", it.ID, "error", err)
		c.emit(Event{Type: EventNarrationFailed, State: st, Item: it, Err: err})
		return
	}

	c.logger.Error("narration unavailable, ending session", "session", st.SessionID, "item", it.ID, "error", err)
	c.emit(Event{Type: EventNarrationFailed, State: st, Item: it, Err: err})
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
}

func (c *Controller) recordPlayed(ctx context.Context) {
	st := c.sched.RecordPlayed()
	if c.progress == nil {
		return
	}
	if err := c.progress.SaveStats(context.WithoutCancel(ctx), st); err != nil {
		c.logger.Warn("failed to save stats", "error", err)
	}
}

// advanceCursor moves the durable cursor past the items completed in a
// round. Repeated rounds over the same batch do not move it further.
func (c *Controller) advanceCursor(ctx context.Context, opts Options, windowStart, completed int) {
	c.mu.Lock()
	cursor := c.state.Cursor
	if opts.BatchSize > 0 {
		cursor = max(cursor, windowStart+completed)
	} else {
		cursor += completed
	}
	cursor = c.clampCursor(cursor)
	changed := cursor != c.state.Cursor
	c.state.Cursor = cursor
	c.mu.Unlock()

	if !changed || c.progress == nil {
		return
	}
	if err := c.progress.SaveCursor(context.WithoutCancel(ctx), cursor); err != nil {
		c.logger.Warn("failed to save cursor", "error", err)
	}
}

func (c *Controller) clampCursor(n int) int {
	return min(max(n, 0), c.deck.Len())
}

func (c *Controller) celebration() string {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return celebrations[c.rng.IntN(len(celebrations))]
}

// sleep waits d or until ctx is done and reports whether the full delay
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
