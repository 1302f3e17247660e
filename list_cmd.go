package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgnsrekt/drill/internal/deck"
	"github.com/dgnsrekt/drill/internal/srs"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const defaultListWidth = 80

var (
	listFilter  string
	listDueOnly bool

	listCmd = &cobra.Command{
		Use:     "list [DECK]",
		Short:   "List the items of a deck",
		Long:    paragraph(fmt.Sprintf("\n%s the items of a deck along with when they are due. Without DECK the last imported deck is listed.", keyword("List"))),
		Example: paragraph("drill list\ndrill list --filter hola\ndrill list --due sentences.csv"),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, d, err := openDeck(cmd.Context(), args)
			if err != nil {
				return err
			}
			defer p.Close() //nolint:errcheck

			items := d.Items()
			if listDueOnly {
				items = srs.DueItems(items, time.Now())
			}
			fmt.Print(renderList(items, listFilter, time.Now(), terminalWidth()))
			return nil
		},
	}
)

// itemLines is a fuzzy.Source over the searchable line of each item.
type itemLines []deck.Item

func (l itemLines) String(i int) string { return itemLine(l[i]) }
func (l itemLines) Len() int            { return len(l) }

func itemLine(it deck.Item) string {
	var parts []string
	if it.Word != "" {
		parts = append(parts, it.Word)
	}
	parts = append(parts, it.Text)
	if it.HasTranslation() {
		parts = append(parts, it.Translation)
	}
	return strings.Join(parts, " · ")
}

// renderList prints one line per item. With a filter, only fuzzy matches
// are listed, best first, with the matched characters highlighted.
func renderList(items []deck.Item, filter string, now time.Time, width int) string {
	type row struct {
		item deck.Item
		line string
	}

	var rows []row
	if filter == "" {
		for _, it := range items {
			rows = append(rows, row{it, itemLine(it)})
		}
	} else {
		for _, m := range fuzzy.FindFrom(filter, itemLines(items)) {
			rows = append(rows, row{items[m.Index], highlightMatches(m.Str, m.MatchedIndexes)})
		}
	}

	if len(rows) == 0 {
		return faint("  No items.") + "\n"
	}

	var b strings.Builder
	for _, r := range rows {
		prefix := fmt.Sprintf("  %4s  %-16s ", r.item.ID, dueLabel(r.item, now))
		avail := max(width-len(prefix), 10)
		line := truncate.StringWithTail(r.line, uint(avail), "…") //nolint:gosec
		b.WriteString(faint(prefix) + line + "\n")
	}
	fmt.Fprintf(&b, "\n  %s\n", faint(fmt.Sprintf("%s of %s items",
		humanize.Comma(int64(len(rows))), humanize.Comma(int64(len(items))))))
	return b.String()
}

func dueLabel(it deck.Item, now time.Time) string {
	switch {
	case it.ReviewCount == 0:
		return "new"
	case srs.IsDue(it, now):
		return "due"
	default:
		return humanize.RelTime(time.UnixMilli(it.NextDueAt), now, "ago", "from now")
	}
}

func highlightMatches(s string, matched []int) string {
	if len(matched) == 0 {
		return s
	}
	set := make(map[int]struct{}, len(matched))
	for _, i := range matched {
		set[i] = struct{}{}
	}
	var b strings.Builder
	for i, r := range s {
		if _, ok := set[i]; ok {
			b.WriteString(highlight(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd()) //nolint:gosec
	if !term.IsTerminal(fd) {
		return defaultListWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultListWidth
	}
	return w
}

func init() {
	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "", "fuzzy filter on word, text and translation")
	listCmd.Flags().BoolVar(&listDueOnly, "due", false, "only list items that are due now")
}
