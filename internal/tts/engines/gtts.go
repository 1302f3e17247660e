package engines

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/dgnsrekt/drill/internal/tts"
	"golang.org/x/time/rate"
)

const (
	gttsMaxTextSize  = 5000
	gttsSampleRate   = 44100
	gttsTimeout      = 30 * time.Second // network round trip
	ffmpegTimeout    = 15 * time.Second
	gttsMaxMP3Size   = 50 * 1024 * 1024
	gttsDefaultLang  = "en"
	gttsDefaultLimit = 50 // requests per minute
)

// GTTSConfig holds configuration for the gTTS engine.
type GTTSConfig struct {
	// Languages offered as voices, e.g. "es", "en". Defaults to a small set.
	Languages []string

	// DefaultLanguage when no voice is requested, "en" by default.
	DefaultLanguage string

	// RequestsPerMinute limits calls to Google to avoid being blocked.
	RequestsPerMinute int
}

// GTTSEngine implements tts.Engine with gtts-cli (Google Translate TTS).
// gtts-cli produces MP3, ffmpeg converts it to 44.1kHz mono PCM.
type GTTSEngine struct {
	languages   []string
	defaultLang string
	limiter     *rate.Limiter
	run         runFunc
}

// NewGTTSEngine creates a new gTTS engine.
func NewGTTSEngine(config GTTSConfig) *GTTSEngine {
	if len(config.Languages) == 0 {
		config.Languages = []string{"en", "es", "fr", "de", "it", "pt"}
	}
	if config.DefaultLanguage == "" {
		config.DefaultLanguage = gttsDefaultLang
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = gttsDefaultLimit
	}

	return &GTTSEngine{
		languages:   config.Languages,
		defaultLang: tts.BaseLanguage(config.DefaultLanguage),
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
		run:         runCommand,
	}
}

// Synthesize converts text to audio: text -> gtts-cli -> MP3 -> ffmpeg -> PCM.
func (e *GTTSEngine) Synthesize(ctx context.Context, text string, voice tts.Voice, speed float64) (tts.Audio, error) {
	if text == "" {
		return tts.Audio{}, tts.ErrEmptyText
	}
	if len(text) > gttsMaxTextSize {
		return tts.Audio{}, fmt.Errorf("%w: %d characters (max %d)", tts.ErrTextTooLong, len(text), gttsMaxTextSize)
	}

	lang := e.defaultLang
	if voice.Language != "" {
		lang = tts.BaseLanguage(voice.Language)
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return tts.Audio{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}

	mp3, err := e.run(ctx, gttsTimeout, nil, "gtts-cli", text, "-l", lang, "-o", "-")
	if err != nil {
		return tts.Audio{}, e.wrap(ctx, "MP3 generation failed", err)
	}
	if len(mp3) > gttsMaxMP3Size {
		return tts.Audio{}, fmt.Errorf("gtts-cli MP3 output too large: %d bytes (max %d)", len(mp3), gttsMaxMP3Size)
	}

	pcm, err := e.run(ctx, ffmpegTimeout, mp3, "ffmpeg", ffmpegArgs(speed)...)
	if err != nil {
		return tts.Audio{}, e.wrap(ctx, "MP3 to PCM conversion failed", err)
	}

	return tts.Audio{Data: pcm, SampleRate: gttsSampleRate, Channels: 1}, nil
}

// ffmpegArgs reads MP3 from stdin and writes s16le PCM to stdout.
// The atempo filter supports 0.5 to 2.0, the same range as tts.ClampRate.
func ffmpegArgs(speed float64) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", fmt.Sprint(gttsSampleRate),
		"-ac", "1",
	}
	if speed = tts.ClampRate(speed); speed != 1.0 {
		args = append(args, "-filter:a", fmt.Sprintf("atempo=%.2f", speed))
	}
	return append(args, "pipe:1")
}

func (e *GTTSEngine) wrap(ctx context.Context, msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return tts.NewTTSError(tts.ErrorCodeEngineTimeout, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Voices returns one voice per configured language.
func (e *GTTSEngine) Voices() []tts.Voice {
	voices := make([]tts.Voice, 0, len(e.languages))
	for _, lang := range e.languages {
		voices = append(voices, tts.Voice{
			ID:       "gtts-" + lang,
			Name:     "Google " + lang,
			Language: lang,
		})
	}
	return voices
}

// Info returns engine capabilities.
func (e *GTTSEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        "gtts",
		Version:     "1",
		SampleRate:  gttsSampleRate,
		Channels:    1,
		BitDepth:    16,
		MaxTextSize: gttsMaxTextSize,
		IsOnline:    true,
	}
}

// Validate checks that gtts-cli and ffmpeg are installed.
func (e *GTTSEngine) Validate() error {
	if _, err := exec.LookPath("gtts-cli"); err != nil {
		return fmt.Errorf("%w: gtts-cli not found in PATH: %w\n\nInstall with: pip install gtts", tts.ErrEngineNotAvailable, err)
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("%w: ffmpeg not found in PATH: %w\n\nInstall ffmpeg for audio conversion", tts.ErrEngineNotAvailable, err)
	}
	return nil
}

// Close releases resources held by the engine.
func (e *GTTSEngine) Close() error {
	return nil
}

var _ tts.Engine = (*GTTSEngine)(nil)
