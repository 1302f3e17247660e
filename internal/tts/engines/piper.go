package engines

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/drill/internal/tts"
)

const (
	piperMaxTextSize  = 5000
	piperMaxAudioSize = 10 * 1024 * 1024 // 10MB
	piperTimeout      = 10 * time.Second
)

// PiperConfig holds configuration for the Piper engine.
type PiperConfig struct {
	// Binary is the piper executable, "piper" by default.
	Binary string

	// Models maps a language tag ("es-ES") to an .onnx voice model.
	// At least one model is required.
	Models map[string]string

	// DefaultLanguage picks the model used when no voice is requested.
	// Defaults to the first language in sorted order.
	DefaultLanguage string

	// SampleRate of the models, 22050 by default.
	SampleRate int

	// Timeout per synthesis, 10s by default.
	Timeout time.Duration
}

// PiperEngine implements tts.Engine using Piper (offline TTS).
// Every synthesis runs a fresh process with stdin pre-configured.
type PiperEngine struct {
	binary     string
	voices     []tts.Voice
	models     map[string]string // voice id -> model path
	defaultID  string
	sampleRate int
	timeout    time.Duration
	run        runFunc

	mu sync.RWMutex
}

// NewPiperEngine creates a new Piper TTS engine.
func NewPiperEngine(config PiperConfig) (*PiperEngine, error) {
	if len(config.Models) == 0 {
		return nil, fmt.Errorf("%w: piper needs at least one model\n\n%s", tts.ErrEngineNotAvailable, piperModelGuidance)
	}
	if config.Binary == "" {
		config.Binary = "piper"
	}
	if config.SampleRate == 0 {
		config.SampleRate = 22050
	}
	if config.Timeout == 0 {
		config.Timeout = piperTimeout
	}

	langs := make([]string, 0, len(config.Models))
	for lang := range config.Models {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	e := &PiperEngine{
		binary:     config.Binary,
		models:     make(map[string]string, len(langs)),
		sampleRate: config.SampleRate,
		timeout:    config.Timeout,
		run:        runCommand,
	}

	for _, lang := range langs {
		path := config.Models[lang]
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("model file for %s not found: %w", lang, err)
		}
		id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		e.models[id] = path
		e.voices = append(e.voices, tts.Voice{ID: id, Name: id, Language: lang})
		if e.defaultID == "" {
			e.defaultID = id
		}
	}
	if config.DefaultLanguage != "" {
		if v, ok := tts.SelectVoice(e.voices, tts.VoiceSelector{Language: config.DefaultLanguage}); ok {
			e.defaultID = v.ID
		}
	}

	return e, nil
}

// Synthesize converts text to audio using Piper.
func (e *PiperEngine) Synthesize(ctx context.Context, text string, voice tts.Voice, rate float64) (tts.Audio, error) {
	if text == "" {
		return tts.Audio{}, tts.ErrEmptyText
	}
	if len(text) > piperMaxTextSize {
		return tts.Audio{}, fmt.Errorf("%w: %d characters (max %d)", tts.ErrTextTooLong, len(text), piperMaxTextSize)
	}

	e.mu.RLock()
	model := e.modelFor(voice)
	run := e.run
	e.mu.RUnlock()

	args := []string{
		"--model", model,
		"--output-raw",
		"--length-scale", tts.LengthScale(rate),
	}
	if cfg := model + ".json"; fileExists(cfg) {
		args = append(args, "--config", cfg)
	}

	audio, err := run(ctx, e.timeout, []byte(text), e.binary, args...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return tts.Audio{}, tts.NewTTSError(tts.ErrorCodeEngineTimeout, "piper timed out", err)
		}
		return tts.Audio{}, err
	}
	if len(audio) > piperMaxAudioSize {
		return tts.Audio{}, fmt.Errorf("piper output too large: %d bytes (max %d)", len(audio), piperMaxAudioSize)
	}

	return tts.Audio{Data: audio, SampleRate: e.sampleRate, Channels: 1}, nil
}

// modelFor must be called with the read lock held.
func (e *PiperEngine) modelFor(voice tts.Voice) string {
	if path, ok := e.models[voice.ID]; ok {
		return path
	}
	if voice.Language != "" {
		if v, ok := tts.SelectVoice(e.voices, tts.VoiceSelector{Language: voice.Language}); ok {
			return e.models[v.ID]
		}
	}
	return e.models[e.defaultID]
}

// Voices returns one voice per configured model.
func (e *PiperEngine) Voices() []tts.Voice {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]tts.Voice(nil), e.voices...)
}

// Info returns engine capabilities.
func (e *PiperEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        "piper",
		Version:     "1",
		SampleRate:  e.sampleRate,
		Channels:    1,
		BitDepth:    16,
		MaxTextSize: piperMaxTextSize,
		IsOnline:    false,
	}
}

// Validate checks that the binary runs and every model is readable.
func (e *PiperEngine) Validate() error {
	path, err := exec.LookPath(e.binary)
	if err != nil {
		return fmt.Errorf("%w: piper not found in PATH: %w\n\n%s", tts.ErrEngineNotAvailable, err, piperInstallGuidance)
	}
	if err := exec.Command(path, "--help").Run(); err != nil {
		return fmt.Errorf("%w: cannot execute piper: %w", tts.ErrEngineNotAvailable, err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, model := range e.models {
		if _, err := os.Stat(model); err != nil {
			return fmt.Errorf("model file not accessible: %w\n\n%s", err, piperModelGuidance)
		}
	}
	return nil
}

// Close releases resources held by the engine.
func (e *PiperEngine) Close() error {
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

const piperInstallGuidance = `Piper TTS is not installed. To install:

1. Download Piper from: https://github.com/rhasspy/piper/releases
2. Extract it and put the piper binary on your PATH
3. Download voice models from: https://github.com/rhasspy/piper/blob/master/VOICES.md`

const piperModelGuidance = `Configure one Piper model per language in drill.yml:

  piper:
    models:
      es-ES: ~/.local/share/piper/es_ES-carlfm-x_low.onnx
      en-US: ~/.local/share/piper/en_US-amy-medium.onnx`

var _ tts.Engine = (*PiperEngine)(nil)
