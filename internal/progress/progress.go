package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/drill/internal/config"
	"github.com/dgnsrekt/drill/internal/deck"
	"github.com/dgnsrekt/drill/internal/srs"
)

// Version is the layout version written with every value.
const Version = 1

// Keys under which state is stored.
const (
	KeyDeck     = "deck"
	KeySchedule = "schedule"
	KeyCursor   = "cursor"
	KeySettings = "settings"
	KeyStats    = "stats"
)

type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// ScheduleEntry is the persisted scheduler state of one item.
type ScheduleEntry struct {
	ID          string `json:"id"`
	Interval    int    `json:"interval"`
	NextDueAt   int64  `json:"nextDueAt"`
	ReviewCount int    `json:"reviewCount"`
}

// Progress reads and writes drill state through a Store.
//
// Loads never fail: missing, malformed or unknown-version values are
// treated as absent and reported at warn level. Saves return write errors so
// callers can log them. Keys are written independently; there is no
// atomicity across keys.
type Progress struct {
	store  Store
	logger *log.Logger
}

// New returns a Progress over store. A nil logger uses the default logger.
func New(store Store, logger *log.Logger) *Progress {
	if logger == nil {
		logger = log.Default()
	}
	return &Progress{store: store, logger: logger}
}

// Close closes the underlying store.
func (p *Progress) Close() error {
	return p.store.Close() //nolint:wrapcheck
}

func (p *Progress) load(ctx context.Context, key string, dst any) bool {
	raw, ok, err := p.store.Get(ctx, key)
	if err != nil {
		p.logger.Warn("unable to read progress", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		p.logger.Warn("discarding malformed progress", "key", key, "error", err)
		return false
	}
	if env.Version != Version {
		p.logger.Warn("discarding progress with unknown version", "key", key, "version", env.Version)
		return false
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		p.logger.Warn("discarding malformed progress", "key", key, "error", err)
		return false
	}
	return true
}

func (p *Progress) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("unable to encode %s: %w", key, err)
	}
	raw, err := json.Marshal(envelope{Version: Version, Data: data})
	if err != nil {
		return fmt.Errorf("unable to encode %s: %w", key, err)
	}
	return p.store.Set(ctx, key, raw) //nolint:wrapcheck
}

// LoadDeck returns the last imported deck.
func (p *Progress) LoadDeck(ctx context.Context) ([]deck.Item, bool) {
	var items []deck.Item
	if !p.load(ctx, KeyDeck, &items) {
		return nil, false
	}
	return items, true
}

// SaveDeck stores the deck items, scheduler fields included.
func (p *Progress) SaveDeck(ctx context.Context, items []deck.Item) error {
	return p.save(ctx, KeyDeck, items)
}

// LoadSchedule returns the persisted scheduler fields, keyed by item id.
func (p *Progress) LoadSchedule(ctx context.Context) map[string]ScheduleEntry {
	var entries []ScheduleEntry
	if !p.load(ctx, KeySchedule, &entries) {
		return map[string]ScheduleEntry{}
	}
	out := make(map[string]ScheduleEntry, len(entries))
	for _, e := range entries {
		if e.ID == "" || e.Interval < 0 || e.ReviewCount < 0 {
			p.logger.Debug("skipping invalid schedule entry", "id", e.ID)
			continue
		}
		out[e.ID] = e
	}
	return out
}

// SaveSchedule stores the scheduler fields of items, in deck order.
func (p *Progress) SaveSchedule(ctx context.Context, items []deck.Item) error {
	entries := make([]ScheduleEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, ScheduleEntry{
			ID:          it.ID,
			Interval:    it.Interval,
			NextDueAt:   it.NextDueAt,
			ReviewCount: it.ReviewCount,
		})
	}
	return p.save(ctx, KeySchedule, entries)
}

// ApplySchedule copies persisted scheduler fields onto the matching items
// of d and returns how many items were updated. Entries for ids that are
// no longer in the deck are ignored.
func (p *Progress) ApplySchedule(ctx context.Context, d *deck.Deck) int {
	entries := p.LoadSchedule(ctx)
	applied := 0
	for _, it := range d.Items() {
		e, ok := entries[it.ID]
		if !ok {
			continue
		}
		_, err := d.Update(it.ID, func(it *deck.Item) {
			it.Interval = e.Interval
			it.NextDueAt = e.NextDueAt
			it.ReviewCount = e.ReviewCount
		})
		if err == nil {
			applied++
		}
	}
	return applied
}

// ScheduleItems is ApplySchedule for items not yet in a deck. It updates
// items in place and returns how many were updated.
func (p *Progress) ScheduleItems(ctx context.Context, items []deck.Item) int {
	entries := p.LoadSchedule(ctx)
	applied := 0
	for i := range items {
		e, ok := entries[items[i].ID]
		if !ok {
			continue
		}
		items[i].Interval = e.Interval
		items[i].NextDueAt = e.NextDueAt
		items[i].ReviewCount = e.ReviewCount
		applied++
	}
	return applied
}

// LoadCursor returns the batch cursor, or 0.
func (p *Progress) LoadCursor(ctx context.Context) int {
	var n int
	if !p.load(ctx, KeyCursor, &n) || n < 0 {
		return 0
	}
	return n
}

// SaveCursor stores the batch cursor.
func (p *Progress) SaveCursor(ctx context.Context, n int) error {
	return p.save(ctx, KeyCursor, n)
}

// LoadStats returns the review counters, or zero values.
func (p *Progress) LoadStats(ctx context.Context) srs.Stats {
	var st srs.Stats
	if !p.load(ctx, KeyStats, &st) {
		return srs.Stats{}
	}
	return st
}

// SaveStats stores the review counters.
func (p *Progress) SaveStats(ctx context.Context, st srs.Stats) error {
	return p.save(ctx, KeyStats, st)
}

// LoadSettings overlays the persisted settings onto base. Fields missing
// from the stored value keep their base value; stored settings that fail
// validation are ignored.
func (p *Progress) LoadSettings(ctx context.Context, base config.Settings) config.Settings {
	s := base
	if !p.load(ctx, KeySettings, &s) {
		return base
	}
	if err := s.Validate(); err != nil {
		p.logger.Warn("ignoring stored settings", "error", err)
		return base
	}
	return s
}

// SaveSettings stores s.
func (p *Progress) SaveSettings(ctx context.Context, s config.Settings) error {
	return p.save(ctx, KeySettings, s)
}
