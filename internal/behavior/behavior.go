// Package behavior tracks click/return interactions per result URL and turns
// them into a ranking penalty.
//
// A click followed by a quick return (pogo-sticking) raises the URL's
// penalty; a click with sufficient dwell time lowers it. Penalties live in
// [0,1] and are mutated only by these discrete events — scorers read them,
// never write them.
//
// State persists in a single SQLite file (modernc.org/sqlite). Persistence
// failures are logged and never block ranking: the in-memory penalty is
// authoritative for the life of the process.
package behavior

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Config holds the tunable behavior-tracking parameters.
type Config struct {
	// DwellThreshold is the minimum time on a page before a return stops
	// counting as a pogo-stick event.
	DwellThreshold time.Duration
	// PenaltyStep is added to the penalty on every pogo event.
	PenaltyStep float64
	// RewardStep is subtracted from the penalty on a dwell-confirmed return.
	RewardStep float64
	// Retention bounds how long click history is kept.
	Retention time.Duration
}

// DefaultConfig returns the reference parameters.
func DefaultConfig() Config {
	return Config{
		DwellThreshold: 5 * time.Second,
		PenaltyStep:    0.15,
		RewardStep:     0.05,
		Retention:      24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DwellThreshold <= 0 {
		c.DwellThreshold = d.DwellThreshold
	}
	if c.PenaltyStep <= 0 {
		c.PenaltyStep = d.PenaltyStep
	}
	if c.RewardStep <= 0 {
		c.RewardStep = d.RewardStep
	}
	if c.Retention <= 0 {
		c.Retention = d.Retention
	}
	return c
}

// record is the per-URL behavior state.
type record struct {
	clicks    []time.Time
	pogoCount int
	penalty   float64
}

type lastClick struct {
	url   string
	query string
	at    time.Time
}

// ClickReceipt acknowledges a recorded click.
type ClickReceipt struct {
	URL      string    `json:"url"`
	Recorded bool      `json:"recorded"`
	At       time.Time `json:"timestamp"`
}

// ReturnOutcome reports what a recorded return meant.
type ReturnOutcome struct {
	PogoDetected bool    `json:"pogo_detected"`
	DwellSeconds float64 `json:"time_spent_seconds,omitempty"`
	PogoCount    int     `json:"pogo_count,omitempty"`
	Penalty      float64 `json:"penalty"`
	Reason       string  `json:"reason,omitempty"`
}

// Stats summarizes tracker state for observability.
type Stats struct {
	URLsTracked     int `json:"total_urls_tracked"`
	URLsWithPogo    int `json:"urls_with_pogo"`
	URLsPenalized   int `json:"urls_penalized"`
	TotalPogoEvents int `json:"total_pogo_events"`
}

// Tracker is the behavior feedback store. All event mutations take the
// tracker lock, so concurrent click/return recording never loses updates.
type Tracker struct {
	mu      sync.Mutex
	cfg     Config
	db      *sql.DB // nil when running memory-only
	logger  *zap.Logger
	now     func() time.Time
	records map[string]*record
	last    *lastClick
}

const schema = `
CREATE TABLE IF NOT EXISTS behavior (
	url        TEXT PRIMARY KEY,
	penalty    REAL    NOT NULL DEFAULT 0,
	pogo_count INTEGER NOT NULL DEFAULT 0,
	first_seen TEXT    NOT NULL,
	updated_at TEXT    NOT NULL
);
`

// Open creates a tracker. An empty dbPath runs memory-only; otherwise the
// SQLite file is opened (created if needed) and existing penalties load into
// memory. Use ":memory:" for an ephemeral database in tests.
func Open(dbPath string, cfg Config, logger *zap.Logger) (*Tracker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		cfg:     cfg.withDefaults(),
		logger:  logger,
		now:     time.Now,
		records: make(map[string]*record),
	}
	if dbPath == "" {
		return t, nil
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating behavior db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening behavior db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configuring behavior db: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating behavior schema: %w", err)
	}
	t.db = db

	if err := t.loadPenalties(); err != nil {
		db.Close()
		return nil, err
	}
	return t, nil
}

func (t *Tracker) loadPenalties() error {
	rows, err := t.db.Query("SELECT url, penalty, pogo_count FROM behavior")
	if err != nil {
		return fmt.Errorf("loading behavior penalties: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		var penalty float64
		var pogo int
		if err := rows.Scan(&url, &penalty, &pogo); err != nil {
			return fmt.Errorf("scanning behavior row: %w", err)
		}
		t.records[url] = &record{penalty: clamp01(penalty), pogoCount: pogo}
	}
	return rows.Err()
}

// Close releases the backing database, if any.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.db != nil {
		err := t.db.Close()
		t.db = nil
		return err
	}
	return nil
}

// RecordClick records that the user clicked a result for the given query.
// First click on a URL creates a zero-penalty record.
func (t *Tracker) RecordClick(url, query string) ClickReceipt {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	rec, ok := t.records[url]
	if !ok {
		rec = &record{}
		t.records[url] = rec
		t.registerURL(url, now)
	}
	rec.clicks = append(rec.clicks, now)
	t.last = &lastClick{url: url, query: query, at: now}

	return ClickReceipt{URL: url, Recorded: true, At: now}
}

// RecordReturn records that the user came back from a clicked result. When
// the URL does not match the most recent click nothing is detected. A return
// under the dwell threshold is a pogo event: the pogo count increments and
// the penalty rises by PenaltyStep (clamped to 1). A sufficient dwell lowers
// the penalty by RewardStep (floored at 0).
func (t *Tracker) RecordReturn(url string) ReturnOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.last == nil || t.last.url != url {
		return ReturnOutcome{PogoDetected: false, Reason: "no matching click"}
	}

	rec := t.records[url]
	if rec == nil {
		rec = &record{}
		t.records[url] = rec
	}

	dwell := t.now().Sub(t.last.at)
	dwellSecs := dwell.Seconds()

	if dwell < t.cfg.DwellThreshold {
		rec.pogoCount++
		rec.penalty = clamp01(rec.penalty + t.cfg.PenaltyStep)
		t.savePenalty(url, rec)
		return ReturnOutcome{
			PogoDetected: true,
			DwellSeconds: dwellSecs,
			PogoCount:    rec.pogoCount,
			Penalty:      rec.penalty,
		}
	}

	if rec.penalty > 0 {
		rec.penalty = rec.penalty - t.cfg.RewardStep
		if rec.penalty < 0 {
			rec.penalty = 0
		}
		t.savePenalty(url, rec)
	}
	return ReturnOutcome{
		PogoDetected: false,
		DwellSeconds: dwellSecs,
		PogoCount:    rec.pogoCount,
		Penalty:      rec.penalty,
		Reason:       "sufficient time spent on page",
	}
}

// Penalty returns the current ranking penalty for a URL. Pure read.
func (t *Tracker) Penalty(url string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.records[url]; ok {
		return rec.penalty
	}
	return 0
}

// PogoCount returns the pogo-stick count for a URL.
func (t *Tracker) PogoCount(url string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.records[url]; ok {
		return rec.pogoCount
	}
	return 0
}

// Stats reports aggregate tracking state.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	var s Stats
	s.URLsTracked = len(t.records)
	for _, rec := range t.records {
		if rec.pogoCount > 0 {
			s.URLsWithPogo++
			s.TotalPogoEvents += rec.pogoCount
		}
		if rec.penalty > 0 {
			s.URLsPenalized++
		}
	}
	return s
}

// Cleanup drops click history older than the retention window. Accumulated
// penalties are deliberately preserved: a URL that earned a penalty keeps it
// until events reverse it, even after its click history ages out. Records
// with no remaining history and nothing accumulated are removed entirely.
// Returns the number of records removed.
func (t *Tracker) Cleanup() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.cfg.Retention)
	removed := 0
	for url, rec := range t.records {
		kept := rec.clicks[:0]
		for _, ts := range rec.clicks {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		rec.clicks = kept

		if len(rec.clicks) == 0 && rec.penalty == 0 && rec.pogoCount == 0 {
			delete(t.records, url)
			t.deleteURL(url)
			removed++
		}
	}
	return removed
}

// --- persistence (best effort; failures never block ranking) ---

func (t *Tracker) registerURL(url string, now time.Time) {
	if t.db == nil {
		return
	}
	_, err := t.db.Exec(
		"INSERT OR IGNORE INTO behavior (url, penalty, pogo_count, first_seen, updated_at) VALUES (?, 0, 0, ?, ?)",
		url, now.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339),
	)
	if err != nil {
		t.logger.Warn("behavior store write failed; keeping in-memory state",
			zap.String("url", url), zap.Error(err))
	}
}

func (t *Tracker) savePenalty(url string, rec *record) {
	if t.db == nil {
		return
	}
	now := t.now().UTC().Format(time.RFC3339)
	_, err := t.db.Exec(
		`INSERT INTO behavior (url, penalty, pogo_count, first_seen, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET penalty=excluded.penalty, pogo_count=excluded.pogo_count, updated_at=excluded.updated_at`,
		url, rec.penalty, rec.pogoCount, now, now,
	)
	if err != nil {
		t.logger.Warn("behavior store write failed; keeping in-memory state",
			zap.String("url", url), zap.Error(err))
	}
}

func (t *Tracker) deleteURL(url string) {
	if t.db == nil {
		return
	}
	if _, err := t.db.Exec("DELETE FROM behavior WHERE url = ?", url); err != nil {
		t.logger.Warn("behavior store delete failed", zap.String("url", url), zap.Error(err))
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
