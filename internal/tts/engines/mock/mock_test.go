package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgnsrekt/drill/internal/tts"
)

func TestSynthesizeProducesSilence(t *testing.T) {
	e := New()
	audio, err := e.Synthesize(context.Background(), "hola", tts.Voice{}, 1)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if audio.SampleRate != SampleRate || audio.Channels != 1 {
		t.Errorf("format = %d Hz / %d ch", audio.SampleRate, audio.Channels)
	}
	if got, want := audio.Duration(), 4*time.Millisecond; got < want-time.Millisecond || got > want {
		t.Errorf("Duration() = %v, want about %v", got, want)
	}
	for _, b := range audio.Data {
		if b != 0 {
			t.Fatal("mock audio should be silence")
		}
	}
}

func TestFailures(t *testing.T) {
	boom := errors.New("boom")
	e := New()

	e.FailText("bad", boom)
	if _, err := e.Synthesize(context.Background(), "bad", tts.Voice{}, 1); !errors.Is(err, boom) {
		t.Errorf("Synthesize(bad) error = %v, want boom", err)
	}
	if _, err := e.Synthesize(context.Background(), "good", tts.Voice{}, 1); err != nil {
		t.Errorf("Synthesize(good) error = %v", err)
	}

	e.SetFailure(boom)
	if _, err := e.Synthesize(context.Background(), "good", tts.Voice{}, 1); !errors.Is(err, boom) {
		t.Errorf("Synthesize() error = %v, want boom", err)
	}

	e.ClearFailure()
	if _, err := e.Synthesize(context.Background(), "bad", tts.Voice{}, 1); err != nil {
		t.Errorf("Synthesize() after ClearFailure error = %v", err)
	}
	if e.CallCount() != 4 {
		t.Errorf("CallCount() = %d, want 4", e.CallCount())
	}
}

func TestDelayHonorsContext(t *testing.T) {
	e := New()
	e.SetDelay(10 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := e.Synthesize(ctx, "slow", tts.Voice{}, 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Synthesize() error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Synthesize ignored the context")
	}
}

func TestCallsRecordVoiceAndRate(t *testing.T) {
	e := New()
	voice := tts.Voice{ID: "mock-es", Language: "es-ES"}
	_, _ = e.Synthesize(context.Background(), "uno", voice, 1.5)

	calls := e.Calls()
	if len(calls) != 1 || calls[0].Voice.ID != "mock-es" || calls[0].Rate != 1.5 || calls[0].Text != "uno" {
		t.Errorf("Calls() = %+v", calls)
	}
	if err := e.Close(); err != nil || !e.Closed() {
		t.Error("Close() did not mark the engine closed")
	}
}
