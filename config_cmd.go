package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/dgnsrekt/drill/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const defaultConfig = `# Drill settings. Anything set here overrides what the last session saved;
# flags and DRILL_* environment variables override this file.
drill:
  # speech engine: piper, gtts or mock
  # engine: "piper"
  # source_lang: "es"
  # target_lang: "en"
  # voice: ""
  # speech rate, 0.5 to 2.0
  # rate: 1.0
  # how often each sentence is spoken
  # repetitions: 1
  # passes over the deck per session
  # rounds: 1
  # pause between repetitions, pair parts and items (milliseconds)
  # shadow_delay_ms: 700
  # pair_gap_ms: 300
  # item_gap_ms: 400
  # shuffle: true
  # study N items per session starting where the last one ended, 0 for all
  # batch_size: 0

piper:
  binary: "piper"
  timeout: "10s"
  # voice models per language
  # models:
  #   es: "~/.local/share/piper/es_ES-davefx-medium.onnx"
  #   en: "~/.local/share/piper/en_US-lessac-medium.onnx"

gtts:
  requests_per_minute: 50
  # languages: ["es", "en"]

cache:
  enabled: true
  memory_mb: 32
  disk_mb: 256
  ttl: "720h"
  # dir: "~/.cache/drill/audio"

storage:
  # sqlite or file
  backend: "sqlite"
  # path: "~/.local/share/drill/progress.db"

audio:
  # 44100 or 48000
  sample_rate: 44100

deck:
  # CSV layout: auto, pair (text,translation) or triple (word,text,translation)
  layout: "auto"
  # reload the deck file when it changes
  watch: true
`

var (
	dumpConfig bool

	configCmd = &cobra.Command{
		Use:     "config",
		Hidden:  false,
		Short:   "Edit the drill config file",
		Long:    paragraph(fmt.Sprintf("\n%s the drill config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
		Example: paragraph("drill config\ndrill config --dump\ndrill config --config path/to/config.yml"),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dumpConfig {
				return dumpSettings(cmd.Context())
			}

			if err := ensureConfigFile(); err != nil {
				return err
			}

			c, err := editor.Cmd("Drill", configFile)
			if err != nil {
				return fmt.Errorf("unable to set config file: %w", err)
			}
			c.Stdin = os.Stdin
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			if err := c.Run(); err != nil {
				return fmt.Errorf("unable to run command: %w", err)
			}

			fmt.Println("Wrote config file to:", configFile)
			return nil
		},
	}
)

// dumpSettings prints the settings a drill session would start with.
func dumpSettings(ctx context.Context) error {
	p, err := openProgress(ctx)
	if err != nil {
		return err
	}
	defer p.Close() //nolint:errcheck

	s, err := loadSettings(ctx, p)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(struct {
		Drill config.Settings `yaml:"drill"`
	}{s})
	if err != nil {
		return fmt.Errorf("unable to encode settings: %w", err)
	}
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Printf("# %s\n", used)
	}
	fmt.Print(string(out))
	return nil
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}
		if err := os.WriteFile(configFile, []byte(defaultConfig), 0o600); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}

func init() {
	configCmd.Flags().BoolVar(&dumpConfig, "dump", false, "print the effective drill settings and exit")
}
