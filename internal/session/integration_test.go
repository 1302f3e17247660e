package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/drill/internal/audio"
	"github.com/dgnsrekt/drill/internal/tts"
	"github.com/dgnsrekt/drill/internal/tts/engines/mock"
)

func newTestNarrator(t *testing.T) (*tts.Narrator, *mock.Engine, *audio.MockPlayer) {
	t.Helper()
	engine := mock.New()
	player := audio.NewMockPlayer()
	player.SetDelayFactor(0)
	n := tts.NewNarrator(engine, player, tts.WithLogger(quietLogger()))
	t.Cleanup(func() { n.Close() }) //nolint:errcheck
	return n, engine, player
}

func TestSessionWithNarrator(t *testing.T) {
	n, engine, player := newTestNarrator(t)
	c := newTestController(t, testDeck(t, 2, true), n, nil)
	rec := newRecorder(c)

	opts := fastOptions()
	opts.RepetitionsPerItem = 2
	opts.SourceVoice = tts.VoiceSelector{Language: "es"}
	opts.TargetVoice = tts.VoiceSelector{Language: "en-GB"}
	if err := c.Start(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	rec.waitIdle(t)

	if got := player.PlayCount(); got != 6 {
		t.Errorf("played %d clips, want 6", got)
	}

	var voices []string
	for _, call := range engine.Calls() {
		voices = append(voices, call.Voice.ID)
	}
	want := []string{"mock-es", "mock-es", "mock-en", "mock-es", "mock-es", "mock-en"}
	if !slices.Equal(voices, want) {
		t.Errorf("voices = %v, want %v", voices, want)
	}
	if got := rec.ids(EventItemCompleted); !slices.Equal(got, []string{"1", "2"}) {
		t.Errorf("completed %v", got)
	}
}

func TestSessionSurvivesEngineFailure(t *testing.T) {
	n, engine, _ := newTestNarrator(t)
	engine.FailText("text 1", errors.New("synthesis crashed"))
	c := newTestController(t, testDeck(t, 2, false), n, nil)
	rec := newRecorder(c)

	if err := c.Start(context.Background(), fastOptions()); err != nil {
		t.Fatal(err)
	}
	rec.waitIdle(t)

	if got := rec.ids(EventNarrationFailed); !slices.Equal(got, []string{"1"}) {
		t.Errorf("failures for %v, want [1]", got)
	}
	if rec.count(EventSessionCompleted) != 1 {
		t.Error("session did not complete")
	}
}

// lateCancelSpeaker delays CancelAll, as if the goroutine calling it lost
// the CPU, and records the result of every primary narration.
type lateCancelSpeaker struct {
	*tts.Narrator
	delay time.Duration

	mu      sync.Mutex
	results map[string][]error
}

func (s *lateCancelSpeaker) SpeakRepeated(ctx context.Context, text string, sel tts.VoiceSelector, rate float64, reps int, gap time.Duration) error {
	err := s.Narrator.SpeakRepeated(ctx, text, sel, rate, reps, gap)
	s.mu.Lock()
	s.results[text] = append(s.results[text], err)
	s.mu.Unlock()
	return err
}

func (s *lateCancelSpeaker) CancelAll() {
	time.Sleep(s.delay)
	s.Narrator.CancelAll()
}

func (s *lateCancelSpeaker) result(text string) []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.results[text])
}

func TestSkipDoesNotCancelNextItem(t *testing.T) {
	n, engine, player := newTestNarrator(t)
	engine.SetDurationPerChar(20 * time.Millisecond)
	player.SetDelayFactor(1)
	sp := &lateCancelSpeaker{Narrator: n, delay: 20 * time.Millisecond, results: map[string][]error{}}

	c := newTestController(t, testDeck(t, 3, false), sp, nil)
	rec := newRecorder(c)
	if err := c.Start(context.Background(), fastOptions()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "item 1 to play", func() bool { return player.PlayCount() >= 1 })
	if err := c.Skip(); err != nil {
		t.Fatal(err)
	}
	rec.waitIdle(t)

	if got := rec.ids(EventItemSkipped); !slices.Equal(got, []string{"1"}) {
		t.Errorf("skipped %v, want [1]", got)
	}
	if got := rec.ids(EventItemCompleted); !slices.Equal(got, []string{"2", "3"}) {
		t.Errorf("completed %v, want [2 3]", got)
	}
	if res := sp.result("text 1"); len(res) != 1 || !tts.IsCanceled(res[0]) {
		t.Errorf("text 1 results = %v, want one canceled narration", res)
	}
	for _, text := range []string{"text 2", "text 3"} {
		if res := sp.result(text); len(res) != 1 || res[0] != nil {
			t.Errorf("%s results = %v, want one clean narration", text, res)
		}
	}
}
