package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/drill/internal/session"
	"github.com/dgnsrekt/drill/internal/srs"
	"github.com/dgnsrekt/drill/ui"
	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review [DECK]",
	Short: "Grade due items one at a time",
	Long: paragraph(fmt.Sprintf("\n%s the items that are due: listen, recall the translation and grade yourself. "+
		"Items graded %s come back in a minute, %s doubles the wait.", keyword("Review"), keyword("again"), keyword("good"))),
	Example: paragraph("drill review\ndrill review sentences.csv"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		rev, err := session.NewReviewer(session.ReviewerConfig{
			Scheduler: srs.New(d, srs.WithStats(p.LoadStats(ctx))),
			Speaker:   narrator,
			Progress:  p,
			Options:   session.OptionsFromSettings(settings),
			Logger:    log.Default(),
		})
		if err != nil {
			return fmt.Errorf("unable to create reviewer: %w", err)
		}

		cfg, err := env.ParseAs[ui.Config]()
		if err != nil {
			return fmt.Errorf("error parsing config: %v", err)
		}
		if _, err := ui.NewReviewProgram(cfg, rev, d).Run(); err != nil {
			return fmt.Errorf("unable to run tui program: %w", err)
		}
		return nil
	},
}
