package deck

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Layout describes how the columns of an imported line map onto an item.
type Layout int

const (
	// LayoutAuto reads a file with more two-field lines than longer ones
	// as LayoutPair. Otherwise each line picks its layout from its number
	// of fields: one field is text, two are text and translation, three or
	// more are word, text and translation.
	LayoutAuto Layout = iota
	// LayoutPair reads "text,translation".
	LayoutPair
	// LayoutTriple reads "word,text,translation". Lines with fewer than
	// three fields are skipped.
	LayoutTriple
)

// String returns the layout name as used in configuration.
func (l Layout) String() string {
	switch l {
	case LayoutAuto:
		return "auto"
	case LayoutPair:
		return "pair"
	case LayoutTriple:
		return "triple"
	default:
		return "unknown"
	}
}

// ParseLayout parses a layout name.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return LayoutAuto, nil
	case "pair":
		return LayoutPair, nil
	case "triple":
		return LayoutTriple, nil
	default:
		return LayoutAuto, fmt.Errorf("unknown deck layout %q", s)
	}
}

// ImportResult is the outcome of an import.
type ImportResult struct {
	Items   []Item
	Skipped int // malformed lines
}

// ImportCSV reads comma-separated items from r. Item ids are the 1-based
// line numbers of the source. Blank lines and lines starting with '#' are
// ignored; lines that cannot be parsed are skipped and counted.
func ImportCSV(r io.Reader, layout Layout) (ImportResult, error) {
	var res ImportResult
	var records []record

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields, err := splitLine(line)
		if err != nil {
			log.Debug("skipping malformed line", "line", lineNo, "error", err)
			res.Skipped++
			continue
		}
		records = append(records, record{line: lineNo, fields: fields})
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("unable to read deck: %w", err)
	}

	if layout == LayoutAuto {
		layout = detectLayout(records)
	}
	for _, rec := range records {
		item, ok := itemFromFields(rec.fields, layout)
		if !ok {
			log.Debug("skipping incomplete line", "line", rec.line, "fields", len(rec.fields))
			res.Skipped++
			continue
		}
		item.ID = strconv.Itoa(rec.line)
		res.Items = append(res.Items, item)
	}
	return res, nil
}

type record struct {
	line   int
	fields []string
}

// detectLayout settles LayoutAuto for a whole file. When two-field lines
// outnumber longer ones the file is read as pairs, and a stray unquoted
// comma cannot turn a sentence into a word entry.
func detectLayout(records []record) Layout {
	var pairs, triples int
	for _, rec := range records {
		switch n := len(rec.fields); {
		case n == 2:
			pairs++
		case n >= 3:
			triples++
		}
	}
	if pairs > triples {
		log.Debug("reading deck as pairs", "pairs", pairs, "triples", triples)
		return LayoutPair
	}
	return LayoutAuto
}

func splitLine(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	fields, err := cr.Read()
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, nil
}

func itemFromFields(fields []string, layout Layout) (Item, bool) {
	var it Item
	switch {
	case layout == LayoutTriple || (layout == LayoutAuto && len(fields) >= 3):
		if len(fields) < 3 {
			return it, false
		}
		it.Word, it.Text, it.Translation = fields[0], fields[1], fields[2]
	default:
		it.Text = fields[0]
		if len(fields) > 1 {
			it.Translation = fields[1]
		}
	}
	return it, it.Text != ""
}
