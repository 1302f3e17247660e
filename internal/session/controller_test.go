package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/drill/internal/deck"
	"github.com/dgnsrekt/drill/internal/progress"
	"github.com/dgnsrekt/drill/internal/tts"
)

// fakeSpeaker takes a fixed time per utterance and honors ctx.
type fakeSpeaker struct {
	mu       sync.Mutex
	duration time.Duration
	fail     map[string]error
	started  []string
	finished []string
	rates    []float64
	cancels  int

	startedCh chan string
}

func newFakeSpeaker(d time.Duration) *fakeSpeaker {
	return &fakeSpeaker{
		duration:  d,
		fail:      map[string]error{},
		startedCh: make(chan string, 64),
	}
}

func (f *fakeSpeaker) SpeakOnce(ctx context.Context, text string, _ tts.VoiceSelector, rate float64) error {
	f.mu.Lock()
	f.started = append(f.started, text)
	f.rates = append(f.rates, rate)
	err := f.fail[text]
	f.mu.Unlock()
	select {
	case f.startedCh <- text:
	default:
	}

	if err != nil {
		return err
	}

	t := time.NewTimer(f.duration)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", tts.ErrCanceled, ctx.Err())
	}

	f.mu.Lock()
	f.finished = append(f.finished, text)
	f.mu.Unlock()
	return nil
}

func (f *fakeSpeaker) SpeakRepeated(ctx context.Context, text string, sel tts.VoiceSelector, rate float64, reps int, gap time.Duration) error {
	var errs []error
	for i := 0; i < reps; i++ {
		if i > 0 && !sleep(ctx, gap) {
			return tts.ErrCanceled
		}
		err := f.SpeakOnce(ctx, text, sel, rate)
		if tts.IsCanceled(err) {
			return err
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fakeSpeaker) CancelAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeSpeaker) Started() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.started)
}

func (f *fakeSpeaker) Finished() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.finished)
}

// waitStarted blocks until text starts narrating.
func (f *fakeSpeaker) waitStarted(t *testing.T, text string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case got := <-f.startedCh:
			if got == text {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q to start", text)
		}
	}
}

// recorder collects events and signals the return to idle.
type recorder struct {
	mu     sync.Mutex
	events []Event
	idle   chan struct{}
	once   sync.Once
}

func newRecorder(c *Controller) *recorder {
	r := &recorder{idle: make(chan struct{})}
	c.OnEvent(func(ev Event) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
		if ev.Type == EventPhaseChanged && ev.State.Phase == PhaseIdle {
			r.once.Do(func() { close(r.idle) })
		}
	})
	return r
}

func (r *recorder) waitIdle(t *testing.T) {
	t.Helper()
	select {
	case <-r.idle:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the session to end")
	}
}

// ids returns the ids of item events of the given type, in order.
func (r *recorder) ids(typ EventType) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, ev := range r.events {
		if ev.Type == typ {
			ids = append(ids, ev.Item.ID)
		}
	}
	return ids
}

func (r *recorder) count(typ EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func testDeck(t *testing.T, n int, translated bool) *deck.Deck {
	t.Helper()
	items := make([]deck.Item, n)
	for i := range items {
		items[i] = deck.Item{ID: fmt.Sprint(i + 1), Text: fmt.Sprintf("text %d", i+1)}
		if translated {
			items[i].Translation = fmt.Sprintf("translation %d", i+1)
		}
	}
	d, err := deck.New(items)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func quietLogger() *log.Logger {
	l := log.New(io.Discard)
	l.SetLevel(log.FatalLevel)
	return l
}

func newTestController(t *testing.T, d *deck.Deck, sp Speaker, p *progress.Progress) *Controller {
	t.Helper()
	c, err := NewController(Config{
		Deck:     d,
		Speaker:  sp,
		Progress: p,
		Logger:   quietLogger(),
		Rand:     rand.New(rand.NewPCG(1, 2)),
	})
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	return c
}

// fastOptions plays each item once in deck order without delays.
func fastOptions() Options {
	return Options{Rounds: 1, RepetitionsPerItem: 1, Rate: 1}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPhaseString(t *testing.T) {
	tests := map[Phase]string{
		PhaseIdle:     "idle",
		PhasePlaying:  "playing",
		PhasePaused:   "paused",
		PhaseStopping: "stopping",
		Phase(42):     "unknown",
	}
	for phase, want := range tests {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseIdle, PhasePlaying, true},
		{PhaseIdle, PhasePaused, false},
		{PhasePlaying, PhasePaused, true},
		{PhasePaused, PhasePlaying, true},
		{PhasePlaying, PhaseStopping, true},
		{PhasePaused, PhaseStopping, true},
		{PhaseStopping, PhaseIdle, true},
		{PhaseStopping, PhasePlaying, false},
	}
	for _, tt := range tests {
		if got := canTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("canTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStateControls(t *testing.T) {
	tests := []struct {
		phase                                   Phase
		start, pause, resume, skip, stop, active bool
	}{
		{PhaseIdle, true, false, false, false, false, false},
		{PhasePlaying, false, true, false, true, true, true},
		{PhasePaused, false, false, true, true, true, true},
		{PhaseStopping, false, false, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.phase.String(), func(t *testing.T) {
			s := State{Phase: tt.phase}
			got := []bool{s.CanStart(), s.CanPause(), s.CanResume(), s.CanSkip(), s.CanStop(), s.IsActive()}
			want := []bool{tt.start, tt.pause, tt.resume, tt.skip, tt.stop, tt.active}
			if !slices.Equal(got, want) {
				t.Errorf("controls = %v, want %v", got, want)
			}
		})
	}
}

func TestStartEmptyDeck(t *testing.T) {
	d, _ := deck.New(nil)
	c := newTestController(t, d, newFakeSpeaker(0), nil)

	if err := c.Start(context.Background(), fastOptions()); !errors.Is(err, ErrEmptyDeck) {
		t.Fatalf("Start() error = %v, want ErrEmptyDeck", err)
	}
	if c.State().Phase != PhaseIdle {
		t.Errorf("phase = %s, want idle", c.State().Phase)
	}
}

func TestInvalidTransitions(t *testing.T) {
	c := newTestController(t, testDeck(t, 2, false), newFakeSpeaker(20*time.Millisecond), nil)

	for name, intent := range map[string]func() error{
		"pause":  c.Pause,
		"resume": c.Resume,
		"skip":   c.Skip,
	} {
		if err := intent(); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s while idle: error = %v, want ErrInvalidTransition", name, err)
		}
	}
	if err := c.Stop(); err != nil {
		t.Errorf("Stop while idle: error = %v, want nil", err)
	}

	if err := c.Start(context.Background(), fastOptions()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Stop() //nolint:errcheck

	if err := c.Start(context.Background(), fastOptions()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Start: error = %v, want ErrInvalidTransition", err)
	}
	if err := c.Resume(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Resume while playing: error = %v, want ErrInvalidTransition", err)
	}
	if c.State().Phase != PhasePlaying {
		t.Errorf("rejected intents changed the phase to %s", c.State().Phase)
	}

	if err := c.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if err := c.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Pause while paused: error = %v, want ErrInvalidTransition", err)
	}
}

func TestSessionPlaysEveryItemInOrder(t *testing.T) {
	sp := newFakeSpeaker(time.Millisecond)
	p := progress.New(progress.NewMemoryStore(), quietLogger())
	c := newTestController(t, testDeck(t, 3, true), sp, p)
	rec := newRecorder(c)

	if err := c.Start(context.Background(), fastOptions()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	rec.waitIdle(t)

	want := []string{"text 1", "translation 1", "text 2", "translation 2", "text 3", "translation 3"}
	if got := sp.Finished(); !slices.Equal(got, want) {
		t.Errorf("narrated %q, want %q", got, want)
	}
	if got := rec.ids(EventItemCompleted); !slices.Equal(got, []string{"1", "2", "3"}) {
		t.Errorf("completed %v", got)
	}
	if rec.count(EventRoundCompleted) != 1 || rec.count(EventSessionCompleted) != 1 {
		t.Errorf("round/session events = %d/%d, want 1/1",
			rec.count(EventRoundCompleted), rec.count(EventSessionCompleted))
	}

	ctx := context.Background()
	if got := p.LoadCursor(ctx); got != 3 {
		t.Errorf("persisted cursor = %d, want 3", got)
	}
	if got := p.LoadStats(ctx).Played; got != 3 {
		t.Errorf("persisted played = %d, want 3", got)
	}
	if st := c.State(); st.Phase != PhaseIdle || st.Cursor != 3 || st.SessionID != "" {
		t.Errorf("final state = %+v", st)
	}
}

func TestSessionCompletedCarriesCelebration(t *testing.T) {
	c := newTestController(t, testDeck(t, 1, false), newFakeSpeaker(0), nil)
	msgs := make(chan string, 1)
	c.OnEvent(func(ev Event) {
		if ev.Type == EventSessionCompleted {
			msgs <- ev.Message
		}
	})

	if err := c.Start(context.Background(), fastOptions()); err != nil {
		t.Fatal(err)
	}
	select {
	case msg := <-msgs:
		if !slices.Contains(celebrations, msg) {
			t.Errorf("message = %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no session-completed event")
	}
}

func TestRepetitionsAndRounds(t *testing.T) {
	sp := newFakeSpeaker(0)
	c := newTestController(t, testDeck(t, 4, false), sp, nil)
	rec := newRecorder(c)

	opts := Options{Rounds: 2, RepetitionsPerItem: 3, Rate: 1, Shuffle: true, ShadowDelay: time.Millisecond}
	if err := c.Start(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	rec.waitIdle(t)

	finished := sp.Finished()
	if len(finished) != 4*3*2 {
		t.Fatalf("narrated %d utterances, want 24", len(finished))
	}
	for i := 1; i <= 4; i++ {
		text := fmt.Sprintf("text %d", i)
		if n := countOf(finished, text); n != 6 {
			t.Errorf("%q narrated %d times, want 6", text, n)
		}
	}
	// Repetitions of one item are consecutive.
	for i := 0; i < len(finished); i += 3 {
		if finished[i] != finished[i+1] || finished[i] != finished[i+2] {
			t.Errorf("repetitions interleaved at %d: %q", i, finished[i:i+3])
		}
	}
	if rec.count(EventRoundCompleted) != 2 {
		t.Errorf("round events = %d, want 2", rec.count(EventRoundCompleted))
	}
}

func countOf(list []string, s string) int {
	n := 0
	for _, v := range list {
		if v == s {
			n++
		}
	}
	return n
}

// Pausing mid-utterance lets it finish, parks, and resumes without
// replaying anything.
func TestPauseResumeMidUtterance(t *testing.T) {
	sp := newFakeSpeaker(50 * time.Millisecond)
	c := newTestController(t, testDeck(t, 2, false), sp, nil)
	rec := newRecorder(c)

	if err := c.Start(context.Background(), fastOptions()); err != nil {
		t.Fatal(err)
	}
	sp.waitStarted(t, "text 1")
	if err := c.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}

	waitFor(t, "first item to complete", func() bool { return len(rec.ids(EventItemCompleted)) == 1 })
	time.Sleep(80 * time.Millisecond)
	if got := sp.Started(); !slices.Equal(got, []string{"text 1"}) {
		t.Fatalf("narration continued while paused: %q", got)
	}
	if st := c.State(); st.Phase != PhasePaused || st.Item != 1 || st.Current.ID != "2" {
		t.Errorf("parked state = %+v, want paused at item 1", st)
	}

	if err := c.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	rec.waitIdle(t)

	if got := sp.Finished(); !slices.Equal(got, []string{"text 1", "text 2"}) {
		t.Errorf("narrated %q, want each item exactly once", got)
	}
	if got := rec.ids(EventItemCompleted); !slices.Equal(got, []string{"1", "2"}) {
		t.Errorf("completed %v", got)
	}
}

func TestSkipImmediatelyAfterStart(t *testing.T) {
	sp := newFakeSpeaker(30 * time.Millisecond)
	c := newTestController(t, testDeck(t, 3, false), sp, nil)
	rec := newRecorder(c)

	if err := c.Start(context.Background(), fastOptions()); err != nil {
		t.Fatal(err)
	}
	if err := c.Skip(); err != nil {
		t.Fatalf("Skip() error = %v", err)
	}
	rec.waitIdle(t)

	if got := rec.ids(EventItemCompleted); !slices.Equal(got, []string{"2", "3"}) {
		t.Errorf("completed %v, want [2 3]", got)
	}
	if got := rec.ids(EventItemSkipped); !slices.Equal(got, []string{"1"}) {
		t.Errorf("skipped %v, want [1]", got)
	}
	if slices.Contains(sp.Finished(), "text 1") {
		t.Error("skipped item finished narrating")
	}
}

func TestSkipMidItemAbandonsRepetitions(t *testing.T) {
	sp := newFakeSpeaker(30 * time.Millisecond)
	c := newTestController(t, testDeck(t, 2, true), sp, nil)
	rec := newRecorder(c)

	opts := fastOptions()
	opts.RepetitionsPerItem = 5
	if err := c.Start(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	sp.waitStarted(t, "text 1")
	if err := c.Skip(); err != nil {
		t.Fatal(err)
	}
	rec.waitIdle(t)

	started := sp.Started()
	if n := countOf(started, "text 1"); n != 1 {
		t.Errorf("text 1 started %d times, want 1", n)
	}
	if slices.Contains(started, "translation 1") {
		t.Error("secondary text of a skipped item was narrated")
	}
	if n := countOf(sp.Finished(), "text 2"); n != 5 {
		t.Errorf("text 2 narrated %d times, want 5", n)
	}
	if got := rec.ids(EventItemCompleted); !slices.Equal(got, []string{"2"}) {
		t.Errorf("completed %v, want [2]", got)
	}
}

func TestSkipWhilePausedStaysPaused(t *testing.T) {
	sp := newFakeSpeaker(40 * time.Millisecond)
	c := newTestController(t, testDeck(t, 3, false), sp, nil)
	rec := newRecorder(c)

	if err := c.Start(context.Background(), fastOptions()); err != nil {
		t.Fatal(err)
	}
	sp.waitStarted(t, "text 1")
	if err := c.Pause(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "park at item 1", func() bool { return len(rec.ids(EventItemCompleted)) == 1 })

	if err := c.Skip(); err != nil {
		t.Fatalf("Skip() error = %v", err)
	}
	waitFor(t, "cursor to advance", func() bool { return c.State().Item == 2 })
	if st := c.State(); st.Phase != PhasePaused {
		t.Errorf("phase after skip = %s, want paused", st.Phase)
	}

	if err := c.Resume(); err != nil {
		t.Fatal(err)
	}
	rec.waitIdle(t)

	if got := rec.ids(EventItemCompleted); !slices.Equal(got, []string{"1", "3"}) {
		t.Errorf("completed %v, want [1 3]", got)
	}
	if slices.Contains(sp.Started(), "text 2") {
		t.Error("skipped item was narrated")
	}
}

// Stopping mid-session returns to idle and keeps the progress recorded so
// far.
func TestStopKeepsRecordedProgress(t *testing.T) {
	sp := newFakeSpeaker(30 * time.Millisecond)
	p := progress.New(progress.NewMemoryStore(), quietLogger())
	c := newTestController(t, testDeck(t, 3, false), sp, p)
	rec := newRecorder(c)

	if err := c.Start(context.Background(), fastOptions()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "first item", func() bool { return len(rec.ids(EventItemCompleted)) == 1 })
	sp.waitStarted(t, "text 2")

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if c.State().Phase != PhaseIdle {
		t.Fatalf("phase after Stop = %s, want idle", c.State().Phase)
	}

	ctx := context.Background()
	if got := p.LoadStats(ctx).Played; got != 1 {
		t.Errorf("persisted played = %d, want 1", got)
	}
	if got := p.LoadCursor(ctx); got != 0 {
		t.Errorf("cursor = %d, want 0 for an aborted round", got)
	}
	if rec.count(EventSessionCompleted) != 0 {
		t.Error("stopped session reported completion")
	}
	if got := rec.ids(EventItemCompleted); !slices.Equal(got, []string{"1"}) {
		t.Errorf("completed %v, want [1]", got)
	}

	// A fresh session starts from scratch.
	if err := c.Start(ctx, fastOptions()); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestStopWhilePaused(t *testing.T) {
	sp := newFakeSpeaker(10 * time.Millisecond)
	c := newTestController(t, testDeck(t, 3, false), sp, nil)
	rec := newRecorder(c)

	if err := c.Start(context.Background(), fastOptions()); err != nil {
		t.Fatal(err)
	}
	if err := c.Pause(); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
	rec.waitIdle(t)

	if c.State().Phase != PhaseIdle {
		t.Errorf("phase = %s, want idle", c.State().Phase)
	}
	if len(sp.Started()) > 1 {
		t.Errorf("narrated %q after pausing", sp.Started())
	}
}

func TestNarrationFailureDoesNotHaltSession(t *testing.T) {
	sp := newFakeSpeaker(time.Millisecond)
	sp.fail["text 2"] = tts.NewTTSError(tts.ErrorCodeEngineFailure, "boom", nil)
	c := newTestController(t, testDeck(t, 3, false), sp, nil)
	rec := newRecorder(c)

	if err := c.Start(context.Background(), fastOptions()); err != nil {
		t.Fatal(err)
	}
	rec.waitIdle(t)

	if got := rec.ids(EventNarrationFailed); !slices.Equal(got, []string{"2"}) {
		t.Errorf("failures reported for %v, want [2]", got)
	}
	if got := sp.Finished(); !slices.Equal(got, []string{"text 1", "text 3"}) {
		t.Errorf("narrated %q", got)
	}
	if rec.count(EventSessionCompleted) != 1 {
		t.Error("session did not complete")
	}
}

func TestLostAudioDeviceEndsSession(t *testing.T) {
	sp := newFakeSpeaker(time.Millisecond)
	sp.fail["text 2"] = tts.NewTTSError(tts.ErrorCodeAudioDevice, "player closed", tts.ErrAudioDeviceUnavailable)
	c := newTestController(t, testDeck(t, 3, true), sp, nil)
	rec := newRecorder(c)

	if err := c.Start(context.Background(), fastOptions()); err != nil {
		t.Fatal(err)
	}
	rec.waitIdle(t)

	if got := rec.ids(EventNarrationFailed); !slices.Equal(got, []string{"2"}) {
		t.Errorf("failures reported for %v, want [2]", got)
	}
	if got := sp.Started(); !slices.Equal(got, []string{"text 1", "translation 1", "text 2"}) {
		t.Errorf("started %q, want nothing after the lost device", got)
	}
	if got := rec.ids(EventItemCompleted); !slices.Equal(got, []string{"1"}) {
		t.Errorf("completed %v, want [1]", got)
	}
	if rec.count(EventSessionCompleted) != 0 {
		t.Error("session should end without completing")
	}
	if got := c.State().Phase; got != PhaseIdle {
		t.Errorf("phase = %v, want idle", got)
	}
}

func TestBatchWindowAdvancesCursor(t *testing.T) {
	sp := newFakeSpeaker(0)
	p := progress.New(progress.NewMemoryStore(), quietLogger())
	d := testDeck(t, 5, false)
	ctx := context.Background()

	opts := fastOptions()
	opts.BatchSize = 2
	opts.Rounds = 2

	tests := []struct {
		played []string
		cursor int
	}{
		{[]string{"1", "2"}, 2},
		{[]string{"3", "4"}, 4},
		{[]string{"5"}, 5},
		{[]string{"1", "2"}, 2}, // starts over
	}
	for i, tt := range tests {
		c := newTestController(t, d, sp, p)
		rec := newRecorder(c)
		if err := c.Start(ctx, opts); err != nil {
			t.Fatal(err)
		}
		rec.waitIdle(t)

		completed := rec.ids(EventItemCompleted)
		if len(completed) != 2*len(tt.played) {
			t.Errorf("session %d: completed %v", i, completed)
		}
		for _, id := range tt.played {
			if countOf(completed, id) != 2 {
				t.Errorf("session %d: item %s completed %d times, want 2", i, id, countOf(completed, id))
			}
		}
		if got := p.LoadCursor(ctx); got != tt.cursor {
			t.Errorf("session %d: cursor = %d, want %d", i, got, tt.cursor)
		}
	}
}

func TestDeckEmptiedDuringSession(t *testing.T) {
	d := testDeck(t, 2, false)
	c := newTestController(t, d, newFakeSpeaker(time.Millisecond), nil)
	rec := newRecorder(c)
	c.OnEvent(func(ev Event) {
		if ev.Type == EventItemStarted && ev.Item.ID == "1" {
			d.Replace(nil) //nolint:errcheck
		}
	})

	opts := fastOptions()
	opts.Rounds = 3
	if err := c.Start(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	rec.waitIdle(t)

	if rec.count(EventSessionCompleted) != 1 {
		t.Error("session did not complete")
	}
	if got := rec.ids(EventItemStarted); !slices.Equal(got, []string{"1"}) {
		t.Errorf("started %v, want [1]", got)
	}
}

func TestSetRateAppliesToNextItem(t *testing.T) {
	sp := newFakeSpeaker(20 * time.Millisecond)
	c := newTestController(t, testDeck(t, 2, false), sp, nil)
	rec := newRecorder(c)

	if err := c.Start(context.Background(), fastOptions()); err != nil {
		t.Fatal(err)
	}
	sp.waitStarted(t, "text 1")
	c.SetRate(1.5)
	rec.waitIdle(t)

	sp.mu.Lock()
	defer sp.mu.Unlock()
	if !slices.Equal(sp.rates, []float64{1, 1.5}) {
		t.Errorf("rates = %v, want [1 1.5]", sp.rates)
	}
}

func TestOptionsFromSettings(t *testing.T) {
	opts := DefaultOptions()
	if opts.Rounds != 1 || opts.RepetitionsPerItem != 1 || !opts.Shuffle {
		t.Errorf("DefaultOptions() = %+v", opts)
	}
	if opts.PairGap != 300*time.Millisecond || opts.ItemGap != 400*time.Millisecond {
		t.Errorf("gaps = %v/%v, want 300ms/400ms", opts.PairGap, opts.ItemGap)
	}
	if opts.SourceVoice.Language != "es" || opts.TargetVoice.Language != "en" {
		t.Errorf("voices = %v/%v", opts.SourceVoice, opts.TargetVoice)
	}

	n := Options{Rounds: -1, RepetitionsPerItem: 0, Rate: 0, ShadowDelay: -time.Second}.normalize()
	if n.Rounds != 1 || n.RepetitionsPerItem != 1 || n.Rate != tts.DefaultRate || n.ShadowDelay != 0 {
		t.Errorf("normalize() = %+v", n)
	}
}
