package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/drill/internal/audio"
	"github.com/dgnsrekt/drill/internal/cache"
	"github.com/dgnsrekt/drill/internal/config"
	"github.com/dgnsrekt/drill/internal/deck"
	"github.com/dgnsrekt/drill/internal/progress"
	"github.com/dgnsrekt/drill/internal/tts"
	"github.com/dgnsrekt/drill/internal/tts/engines"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

var errNoDeck = errors.New("no deck loaded: pass a CSV file or run `drill import FILE` first")

// expandPath expands a leading ~ in user supplied paths.
func expandPath(path string) string {
	if path == "" {
		return ""
	}
	p, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return p
}

func dataDir() (string, error) {
	p, err := gap.NewScope(gap.User, appName).DataPath("progress.db")
	if err != nil {
		return "", fmt.Errorf("unable to find data dir: %w", err)
	}
	return filepath.Dir(p), nil
}

// openProgress opens the configured progress store.
func openProgress(ctx context.Context) (*progress.Progress, error) {
	path := expandPath(viper.GetString("storage.path"))
	backend := strings.ToLower(viper.GetString("storage.backend"))

	if path == "" {
		dir, err := dataDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "progress.db")
		if backend == "file" {
			path = filepath.Join(dir, "progress")
		}
	}

	var store progress.Store
	switch backend {
	case "sqlite", "":
		s, err := progress.OpenSQLite(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("unable to open progress database: %w", err)
		}
		store = s
	case "file":
		s, err := progress.NewFileStore(path)
		if err != nil {
			return nil, fmt.Errorf("unable to open progress directory: %w", err)
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown storage backend %q: use sqlite or file", backend)
	}

	log.Debug("progress store opened", "backend", backend, "path", path)
	return progress.New(store, log.Default()), nil
}

// loadSettings layers the config file, environment and flags over the
// settings saved by the last run.
func loadSettings(ctx context.Context, p *progress.Progress) (config.Settings, error) {
	s := config.Merge(p.LoadSettings(ctx, config.Default()), viper.GetViper())
	if err := s.Validate(); err != nil {
		return s, err //nolint:wrapcheck
	}
	return s, nil
}

func deckLayout() (deck.Layout, error) {
	return deck.ParseLayout(viper.GetString("deck.layout")) //nolint:wrapcheck
}

// loadDeck imports the deck at arg, or restores the last imported one when
// arg is empty. Persisted scheduler fields are applied either way.
func loadDeck(ctx context.Context, p *progress.Progress, arg string) (*deck.Deck, error) {
	var items []deck.Item
	if arg != "" {
		layout, err := deckLayout()
		if err != nil {
			return nil, err
		}
		res, err := importSource(ctx, arg, layout)
		if err != nil {
			return nil, err
		}
		if len(res.Items) == 0 {
			return nil, fmt.Errorf("no items found in %s", arg)
		}
		if res.Skipped > 0 {
			log.Info("skipped malformed lines", "source", arg, "skipped", res.Skipped)
		}
		if err := p.SaveDeck(ctx, res.Items); err != nil {
			log.Warn("unable to save deck", "error", err)
		}
		items = res.Items
	} else {
		saved, ok := p.LoadDeck(ctx)
		if !ok || len(saved) == 0 {
			return nil, errNoDeck
		}
		items = saved
	}

	d, err := deck.New(items)
	if err != nil {
		return nil, fmt.Errorf("invalid deck: %w", err)
	}
	applied := p.ApplySchedule(ctx, d)
	log.Debug("deck loaded", "items", d.Len(), "scheduled", applied)
	return d, nil
}

// reloadDeck prepares a re-imported deck file for the running session. It
// restores the persisted schedule onto the items and saves them. A reload
// without items is ignored, since a half-written file looks the same.
func reloadDeck(ctx context.Context, p *progress.Progress, res deck.ImportResult) bool {
	if len(res.Items) == 0 {
		log.Warn("ignoring deck reload without items", "skipped", res.Skipped)
		return false
	}
	scheduled := p.ScheduleItems(ctx, res.Items)
	if err := p.SaveDeck(ctx, res.Items); err != nil {
		log.Warn("unable to save reloaded deck", "error", err)
	}
	log.Debug("deck reloaded", "items", len(res.Items), "scheduled", scheduled)
	return true
}

func newEngine(s config.Settings) (tts.Engine, error) {
	models := make(map[string]string)
	for lang, path := range viper.GetStringMapString("piper.models") {
		models[lang] = expandPath(path)
	}

	engine, err := engines.New(engines.Options{
		Engine: s.Engine,
		Piper: engines.PiperConfig{
			Binary:          viper.GetString("piper.binary"),
			Models:          models,
			DefaultLanguage: s.SourceLang,
			Timeout:         viper.GetDuration("piper.timeout"),
		},
		GTTS: engines.GTTSConfig{
			Languages:         viper.GetStringSlice("gtts.languages"),
			DefaultLanguage:   s.SourceLang,
			RequestsPerMinute: viper.GetInt("gtts.requests_per_minute"),
		},
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if err := engine.Validate(); err != nil {
		_ = engine.Close()
		return nil, err //nolint:wrapcheck
	}
	return engine, nil
}

func newPlayer(s config.Settings) (tts.Player, error) {
	if s.Engine == "mock" {
		return audio.NewMockPlayer(), nil
	}
	cfg := audio.DefaultPlayerConfig()
	if rate := viper.GetInt("audio.sample_rate"); rate > 0 {
		cfg.SampleRate = rate
	}
	player, err := audio.NewPlayer(cfg)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return player, nil
}

func cacheConfig() (cache.Config, error) {
	cfg := cache.DefaultConfig()
	cfg.DiskPath = expandPath(viper.GetString("cache.dir"))
	if cfg.DiskPath == "" {
		dir, err := gap.NewScope(gap.User, appName).CacheDir()
		if err != nil {
			return cfg, fmt.Errorf("unable to find cache dir: %w", err)
		}
		cfg.DiskPath = filepath.Join(dir, "audio")
	}
	if mb := viper.GetInt64("cache.memory_mb"); mb > 0 {
		cfg.MemoryCapacity = mb * 1024 * 1024
	}
	if mb := viper.GetInt64("cache.disk_mb"); mb > 0 {
		cfg.DiskCapacity = mb * 1024 * 1024
	}
	if ttl := viper.GetDuration("cache.ttl"); ttl > 0 {
		cfg.TTL = ttl
	}
	return cfg, nil
}

// newNarrator wires engine, player and audio cache. The returned func
// releases all three.
func newNarrator(s config.Settings) (*tts.Narrator, func() error, error) {
	engine, err := newEngine(s)
	if err != nil {
		return nil, nil, err
	}
	player, err := newPlayer(s)
	if err != nil {
		_ = engine.Close()
		return nil, nil, err
	}

	opts := []tts.NarratorOption{tts.WithLogger(log.Default())}
	var mgr *cache.Manager
	if viper.GetBool("cache.enabled") {
		cfg, err := cacheConfig()
		if err == nil {
			mgr, err = cache.NewManager(cfg, log.Default())
		}
		if err != nil {
			log.Warn("audio cache disabled", "error", err)
		} else {
			opts = append(opts, tts.WithCache(mgr))
		}
	}

	n := tts.NewNarrator(engine, player, opts...)
	log.Debug("narrator ready", "engine", engine.Info().Name, "voices", len(n.Voices()), "cache", mgr != nil)

	closer := func() error {
		err := n.Close()
		if mgr != nil {
			err = errors.Join(err, mgr.Close())
		}
		return err
	}
	return n, closer, nil
}

// saveRate remembers the speed chosen in the TUI for the next run.
func saveRate(ctx context.Context, p *progress.Progress, s config.Settings, rate float64) {
	if rate <= 0 || rate == s.Rate {
		return
	}
	s.Rate = tts.ClampRate(rate)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.SaveSettings(ctx, s); err != nil {
		log.Warn("unable to save settings", "error", err)
	}
}
