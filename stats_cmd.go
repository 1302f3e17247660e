package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/drill/internal/cache"
	"github.com/dgnsrekt/drill/internal/deck"
	"github.com/dgnsrekt/drill/internal/srs"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var statsCmd = &cobra.Command{
	Use:     "stats [DECK]",
	Short:   "Show review counters and deck progress",
	Long:    paragraph(fmt.Sprintf("\n%s how much has been drilled, what is due and how large the audio cache has grown.", keyword("Show"))),
	Example: paragraph("drill stats\ndrill stats sentences.csv"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, settings, d, err := openDeck(ctx, args)
		if err != nil {
			return err
		}
		defer p.Close() //nolint:errcheck

		r := statsReport{
			Deck:      d,
			Stats:     p.LoadStats(ctx),
			Cursor:    p.LoadCursor(ctx),
			BatchSize: settings.BatchSize,
			Now:       time.Now(),
		}
		if viper.GetBool("cache.enabled") {
			r.Cache = cacheUsage()
		}

		out, err := renderMarkdown(r.Markdown())
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

// statsReport collects what `drill stats` prints.
type statsReport struct {
	Deck      *deck.Deck
	Stats     srs.Stats
	Cursor    int
	BatchSize int
	Now       time.Time
	Cache     *cache.Stats
}

// Markdown renders the report as a markdown document.
func (r statsReport) Markdown() string {
	items := r.Deck.Items()
	due := srs.DueItems(items, r.Now)

	var reviewed int
	var next time.Time
	for _, it := range items {
		if it.ReviewCount == 0 {
			continue
		}
		reviewed++
		if srs.IsDue(it, r.Now) {
			continue
		}
		if at := time.UnixMilli(it.NextDueAt); next.IsZero() || at.Before(next) {
			next = at
		}
	}

	var b strings.Builder
	b.WriteString("# Drill progress\n\n")
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Items | %s |\n", humanize.Comma(int64(len(items))))
	fmt.Fprintf(&b, "| Reviewed at least once | %s |\n", humanize.Comma(int64(reviewed)))
	fmt.Fprintf(&b, "| Due now | %s |\n", humanize.Comma(int64(len(due))))
	if !next.IsZero() {
		fmt.Fprintf(&b, "| Next due | %s |\n", humanize.RelTime(next, r.Now, "ago", "from now"))
	}
	if r.BatchSize > 0 && len(items) > 0 {
		fmt.Fprintf(&b, "| Next batch | items %d to %d |\n",
			r.Cursor+1, min(r.Cursor+r.BatchSize, len(items)))
	}

	b.WriteString("\n## Counters\n\n")
	fmt.Fprintf(&b, "- **Graded:** %s\n", humanize.Comma(int64(r.Stats.Drilled)))
	fmt.Fprintf(&b, "- **Unique items graded:** %s\n", humanize.Comma(int64(r.Stats.Unique)))
	fmt.Fprintf(&b, "- **Played in sessions:** %s\n", humanize.Comma(int64(r.Stats.Played)))

	if r.Cache != nil {
		b.WriteString("\n## Audio cache\n\n")
		fmt.Fprintf(&b, "- **Clips:** %s\n", humanize.Comma(r.Cache.Items))
		fmt.Fprintf(&b, "- **Size:** %s of %s\n",
			humanize.Bytes(uint64(r.Cache.Size)), humanize.Bytes(uint64(r.Cache.Capacity))) //nolint:gosec
	}
	return b.String()
}

// cacheUsage reports the on-disk audio cache, or nil when it is unreadable.
func cacheUsage() *cache.Stats {
	cfg, err := cacheConfig()
	if err != nil {
		log.Debug("no cache stats", "error", err)
		return nil
	}
	cfg.CleanupInterval = 0
	mgr, err := cache.NewManager(cfg, log.Default())
	if err != nil {
		log.Debug("no cache stats", "error", err)
		return nil
	}
	defer mgr.Close() //nolint:errcheck
	st := mgr.Stats().L2
	return &st
}

func renderMarkdown(md string) (string, error) {
	width := terminalWidth()
	opts := []glamour.TermRendererOption{
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		glamour.WithWordWrap(min(width, 100)),
	}
	if term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle("notty"))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("unable to create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("unable to render markdown: %w", err)
	}
	return out, nil
}
