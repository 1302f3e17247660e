package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/drill/internal/deck"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import SOURCE",
	Short: "Import a deck without starting a session",
	Long: paragraph(fmt.Sprintf("\n%s a CSV deck from a file, a URL or stdin (-). "+
		"Items keep the schedule they had in earlier sessions as long as their line numbers did not change.\n\n"+
		"Lines are text,translation or word,text,translation. With the auto layout a file with more two-field lines than longer ones is read as pairs, "+
		"so quote a field that contains a comma or pass --layout.", keyword("Import"))),
	Example: paragraph("drill import sentences.csv\ncat sentences.csv | drill import -\ndrill import --layout triple https://example.com/words.csv"),
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		layout, err := deckLayout()
		if err != nil {
			return err
		}
		res, err := importSource(ctx, args[0], layout)
		if err != nil {
			return err
		}
		if len(res.Items) == 0 {
			return fmt.Errorf("no items found in %s", args[0])
		}

		p, err := openProgress(ctx)
		if err != nil {
			return err
		}
		defer p.Close() //nolint:errcheck

		d, err := deck.New(res.Items)
		if err != nil {
			return fmt.Errorf("invalid deck: %w", err)
		}
		if err := p.SaveDeck(ctx, res.Items); err != nil {
			return fmt.Errorf("unable to save deck: %w", err)
		}
		scheduled := p.ApplySchedule(ctx, d)
		log.Debug("deck imported", "source", args[0], "items", d.Len(), "scheduled", scheduled)

		fmt.Printf("  Imported %s items (%s with review history)\n",
			keyword(humanize.Comma(int64(d.Len()))), humanize.Comma(int64(scheduled)))
		if res.Skipped > 0 {
			fmt.Println(faint(fmt.Sprintf("  Skipped %s malformed %s",
				humanize.Comma(int64(res.Skipped)), plural(res.Skipped, "line", "lines"))))
		}
		return nil
	},
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
