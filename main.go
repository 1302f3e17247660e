// Package main provides the entry point for the drill CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/drill/internal/config"
	"github.com/dgnsrekt/drill/internal/deck"
	"github.com/dgnsrekt/drill/internal/progress"
	"github.com/dgnsrekt/drill/internal/session"
	"github.com/dgnsrekt/drill/ui"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const appName = "drill"

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string

	rootCmd = &cobra.Command{
		Use:   "drill [DECK]",
		Short: "Listen-and-repeat sentence drills in the terminal",
		Long: paragraph(
			fmt.Sprintf("\nDrill sentences %s. Every item is spoken, repeated for shadowing and followed by its translation.", keyword("out loud")),
		),
		Example: paragraph("drill sentences.csv\ndrill --rounds 3 --repetitions 2\ndrill review"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return []string{"csv", "txt"}, cobra.ShellCompDirectiveFilterFileExt
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	if f := cmd.Flags().Lookup("config"); f != nil && f.Changed {
		viper.SetConfigFile(expandPath(configFile))
		// drill config creates a missing file.
		if err := viper.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}
	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	if _, err := deckLayout(); err != nil {
		return err
	}
	if r := viper.GetInt("audio.sample_rate"); r != 0 && r != 44100 && r != 48000 {
		return fmt.Errorf("audio sample_rate must be 44100 or 48000, got %d", r)
	}
	return nil
}

// openDeck opens the progress store, resolves the settings and loads the
// deck named by args, if any. The caller closes the returned progress.
func openDeck(ctx context.Context, args []string) (*progress.Progress, config.Settings, *deck.Deck, error) {
	p, err := openProgress(ctx)
	if err != nil {
		return nil, config.Settings{}, nil, err
	}
	settings, err := loadSettings(ctx, p)
	if err != nil {
		_ = p.Close()
		return nil, settings, nil, err
	}
	var arg string
	if len(args) > 0 {
		arg = args[0]
	}
	d, err := loadDeck(ctx, p, arg)
	if err != nil {
		_ = p.Close()
		return nil, settings, nil, err
	}
	return p, settings, d, nil
}

func execute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, settings, d, err := openDeck(ctx, args)
	if err != nil {
		return err
	}
	defer p.Close() //nolint:errcheck

	narrator, closeNarrator, err := newNarrator(settings)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeNarrator(); err != nil {
			log.Warn("unable to release narrator", "error", err)
		}
	}()

	ctrl, err := session.NewController(session.Config{
		Deck:     d,
		Speaker:  narrator,
		Progress: p,
		Logger:   log.Default(),
	})
	if err != nil {
		return fmt.Errorf("unable to create session: %w", err)
	}

	// Read environment to get UI knobs
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	cfg.Layout, _ = deckLayout()
	if len(args) > 0 && args[0] != "-" && !strings.Contains(args[0], "://") {
		cfg.DeckPath, _ = filepath.Abs(expandPath(args[0]))
		cfg.Watch = viper.GetBool("deck.watch")
	}

	prog := ui.NewDrillProgram(cfg, ctrl, d, session.OptionsFromSettings(settings))

	if cfg.Watch {
		w, err := deck.NewWatcher(cfg.DeckPath, cfg.Layout)
		if err != nil {
			log.Warn("not watching the deck file", "error", err)
		} else {
			wctx, cancel := context.WithCancel(ctx)
			defer cancel()
			defer w.Close() //nolint:errcheck
			go func() {
				err := w.Run(wctx, func(res deck.ImportResult) {
					if reloadDeck(wctx, p, res) {
						prog.DeckReloaded(res)
					}
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					log.Error("deck watcher stopped", "error", err)
				}
			}()
		}
	}

	opts, err := prog.Run()
	if err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	saveRate(ctx, p, settings, opts.Rate)
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	flags.Bool("debug", false, "write debug output to the log file")
	flags.StringP("engine", "e", "", "speech engine: piper, gtts or mock")
	flags.String("voice", "", "voice id for the primary text")
	flags.String("source-lang", "", "language of the primary text, e.g. es")
	flags.String("target-lang", "", "language of the translation, e.g. en")
	flags.Float64("rate", 1.0, "speech rate between 0.5 and 2.0")
	flags.IntP("repetitions", "r", 1, "how often each sentence is spoken")
	flags.Int("rounds", 1, "passes over the deck per session")
	flags.Int("shadow-delay", int(config.DefaultShadowDelay.Milliseconds()), "pause between repetitions in milliseconds")
	flags.Int("pair-gap", 300, "pause between sentence and translation in milliseconds")
	flags.Int("item-gap", 400, "pause after each item in milliseconds")
	flags.Bool("shuffle", true, "shuffle the deck every round")
	flags.IntP("batch", "b", 0, "study a window of N items starting where the last session ended (0 plays the whole deck)")
	flags.String("layout", "auto", "CSV layout: auto, pair or triple (auto reads mostly two-field files as pairs)")
	rootCmd.Flags().Bool("watch", true, "reload the deck file when it changes")

	// Config bindings
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag(config.KeyEngine, flags.Lookup("engine"))
	_ = viper.BindPFlag(config.KeyVoice, flags.Lookup("voice"))
	_ = viper.BindPFlag(config.KeySourceLang, flags.Lookup("source-lang"))
	_ = viper.BindPFlag(config.KeyTargetLang, flags.Lookup("target-lang"))
	_ = viper.BindPFlag(config.KeyRate, flags.Lookup("rate"))
	_ = viper.BindPFlag(config.KeyRepetitions, flags.Lookup("repetitions"))
	_ = viper.BindPFlag(config.KeyRounds, flags.Lookup("rounds"))
	_ = viper.BindPFlag(config.KeyShadowDelay, flags.Lookup("shadow-delay"))
	_ = viper.BindPFlag(config.KeyPairGap, flags.Lookup("pair-gap"))
	_ = viper.BindPFlag(config.KeyItemGap, flags.Lookup("item-gap"))
	_ = viper.BindPFlag(config.KeyShuffle, flags.Lookup("shuffle"))
	_ = viper.BindPFlag(config.KeyBatchSize, flags.Lookup("batch"))
	_ = viper.BindPFlag("deck.layout", flags.Lookup("layout"))
	_ = viper.BindPFlag("deck.watch", rootCmd.Flags().Lookup("watch"))

	// The drill.* settings deliberately have no viper defaults; see
	// config.Merge.
	viper.SetDefault("deck.layout", "auto")
	viper.SetDefault("deck.watch", true)
	viper.SetDefault("storage.backend", "sqlite")
	viper.SetDefault("piper.binary", "piper")
	viper.SetDefault("piper.timeout", "10s")
	viper.SetDefault("gtts.requests_per_minute", 50)
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.memory_mb", 32)
	viper.SetDefault("cache.disk_mb", 256)
	viper.SetDefault("cache.ttl", "720h")
	viper.SetDefault("audio.sample_rate", 44100)

	rootCmd.AddCommand(configCmd, manCmd, importCmd, listCmd, statsCmd, reviewCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, appName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, appName)}, dirs...)
	}

	if c := os.Getenv("DRILL_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(appName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(appName)
	// drill.rate reads DRILL_RATE, piper.binary reads DRILL_PIPER_BINARY.
	viper.SetEnvKeyReplacer(strings.NewReplacer("drill.", "", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], appName+".yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
