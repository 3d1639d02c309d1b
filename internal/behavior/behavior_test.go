package behavior

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testClock is a manually advanced clock for deterministic dwell times.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTracker(t *testing.T) (*Tracker, *testClock) {
	t.Helper()
	tr, err := Open(":memory:", DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { tr.Close() })

	clock := &testClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	tr.now = clock.Now
	return tr, clock
}

func TestQuickReturnIsPogo(t *testing.T) {
	tr, clock := newTestTracker(t)

	tr.RecordClick("https://example.com/a", "earthquake california")
	clock.Advance(2 * time.Second)
	out := tr.RecordReturn("https://example.com/a")

	if !out.PogoDetected {
		t.Fatalf("2s return should be a pogo event: %+v", out)
	}
	if out.PogoCount != 1 {
		t.Fatalf("pogo count = %d, want 1", out.PogoCount)
	}
	if out.Penalty != 0.15 {
		t.Fatalf("penalty = %.2f, want 0.15 after first pogo", out.Penalty)
	}
}

func TestLongDwellIsNotPogo(t *testing.T) {
	tr, clock := newTestTracker(t)

	tr.RecordClick("https://example.com/a", "q")
	clock.Advance(30 * time.Second)
	out := tr.RecordReturn("https://example.com/a")

	if out.PogoDetected {
		t.Fatalf("30s dwell flagged as pogo: %+v", out)
	}
	if tr.Penalty("https://example.com/a") != 0 {
		t.Fatalf("penalty should stay 0 for a clean visit")
	}
}

func TestDwellExactlyAtThresholdIsNotPogo(t *testing.T) {
	tr, clock := newTestTracker(t)

	tr.RecordClick("u", "q")
	clock.Advance(5 * time.Second)
	if out := tr.RecordReturn("u"); out.PogoDetected {
		t.Fatalf("dwell equal to threshold should not count as pogo")
	}
}

func TestPenaltyAccumulatesAndClamps(t *testing.T) {
	tr, clock := newTestTracker(t)

	prev := 0.0
	for i := 0; i < 10; i++ {
		tr.RecordClick("u", "q")
		clock.Advance(time.Second)
		out := tr.RecordReturn("u")
		if out.Penalty < prev {
			t.Fatalf("penalty decreased during pogo streak: %.2f -> %.2f", prev, out.Penalty)
		}
		prev = out.Penalty
	}
	if prev != 1.0 {
		t.Fatalf("penalty after 10 pogo events = %.2f, want clamp at 1.0", prev)
	}
	if got := tr.PogoCount("u"); got != 10 {
		t.Fatalf("pogo count = %d, want 10", got)
	}
}

func TestDwellReducesPenalty(t *testing.T) {
	tr, clock := newTestTracker(t)

	tr.RecordClick("u", "q")
	clock.Advance(time.Second)
	tr.RecordReturn("u") // penalty 0.15

	tr.RecordClick("u", "q")
	clock.Advance(time.Minute)
	out := tr.RecordReturn("u")

	if out.PogoDetected {
		t.Fatalf("long dwell flagged as pogo")
	}
	if want := 0.15 - 0.05; !closeTo(out.Penalty, want) {
		t.Fatalf("penalty = %.2f, want %.2f after confirmed dwell", out.Penalty, want)
	}
}

func TestPenaltyFloorsAtZero(t *testing.T) {
	tr, clock := newTestTracker(t)

	// One pogo (0.15), then four confirmed dwells (-0.05 each) must not go
	// negative.
	tr.RecordClick("u", "q")
	clock.Advance(time.Second)
	tr.RecordReturn("u")
	for i := 0; i < 4; i++ {
		tr.RecordClick("u", "q")
		clock.Advance(time.Minute)
		tr.RecordReturn("u")
	}
	if got := tr.Penalty("u"); got != 0 {
		t.Fatalf("penalty = %.2f, want floor 0", got)
	}
}

func TestReturnWithoutMatchingClick(t *testing.T) {
	tr, _ := newTestTracker(t)

	out := tr.RecordReturn("never-clicked")
	if out.PogoDetected {
		t.Fatalf("return without click detected as pogo")
	}

	tr.RecordClick("a", "q")
	if out := tr.RecordReturn("b"); out.PogoDetected {
		t.Fatalf("return for a different URL than the last click detected as pogo")
	}
}

func TestUnknownURLReadsAreZero(t *testing.T) {
	tr, _ := newTestTracker(t)
	if tr.Penalty("nope") != 0 || tr.PogoCount("nope") != 0 {
		t.Fatalf("unknown URL should read as zero")
	}
}

func TestStats(t *testing.T) {
	tr, clock := newTestTracker(t)

	tr.RecordClick("a", "q")
	clock.Advance(time.Second)
	tr.RecordReturn("a")
	tr.RecordClick("a", "q")
	clock.Advance(time.Second)
	tr.RecordReturn("a")

	tr.RecordClick("b", "q")
	clock.Advance(time.Minute)
	tr.RecordReturn("b")

	s := tr.Stats()
	if s.URLsTracked != 2 {
		t.Fatalf("tracked = %d, want 2", s.URLsTracked)
	}
	if s.URLsWithPogo != 1 || s.URLsPenalized != 1 {
		t.Fatalf("with pogo = %d, penalized = %d, want 1/1", s.URLsWithPogo, s.URLsPenalized)
	}
	if s.TotalPogoEvents != 2 {
		t.Fatalf("total pogo events = %d, want 2", s.TotalPogoEvents)
	}
}

func TestCleanupPreservesPenalties(t *testing.T) {
	tr, clock := newTestTracker(t)

	tr.RecordClick("penalized", "q")
	clock.Advance(time.Second)
	tr.RecordReturn("penalized")

	tr.RecordClick("clean", "q")
	clock.Advance(time.Minute)
	tr.RecordReturn("clean")

	clock.Advance(48 * time.Hour)
	removed := tr.Cleanup()

	if removed != 1 {
		t.Fatalf("removed = %d, want 1 (only the clean record)", removed)
	}
	if got := tr.Penalty("penalized"); got != 0.15 {
		t.Fatalf("cleanup dropped an accumulated penalty: %.2f", got)
	}
	if tr.Penalty("clean") != 0 || tr.Stats().URLsTracked != 1 {
		t.Fatalf("clean aged-out record should be gone")
	}
}

func TestCleanupKeepsRecentClicks(t *testing.T) {
	tr, clock := newTestTracker(t)

	tr.RecordClick("fresh", "q")
	clock.Advance(time.Hour)
	if removed := tr.Cleanup(); removed != 0 {
		t.Fatalf("removed %d records with recent clicks", removed)
	}
}

func TestPenaltySurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "behavior.db")

	tr, err := Open(path, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	clock := &testClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	tr.now = clock.Now

	tr.RecordClick("u", "q")
	clock.Advance(time.Second)
	tr.RecordReturn("u")
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if got := reopened.Penalty("u"); got != 0.15 {
		t.Fatalf("penalty after reopen = %.2f, want 0.15", got)
	}
	if got := reopened.PogoCount("u"); got != 1 {
		t.Fatalf("pogo count after reopen = %d, want 1", got)
	}
}

func TestOpenCreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist", "behavior.db")

	tr, err := Open(path, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Open with missing parent directory: %v", err)
	}
	defer tr.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file not created: %v", err)
	}
}

func TestMemoryOnlyTracker(t *testing.T) {
	tr, err := Open("", DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Open memory-only: %v", err)
	}
	defer tr.Close()

	clock := &testClock{now: time.Now()}
	tr.now = clock.Now

	tr.RecordClick("u", "q")
	clock.Advance(time.Second)
	if out := tr.RecordReturn("u"); !out.PogoDetected {
		t.Fatalf("memory-only tracker should still detect pogo")
	}
}

func closeTo(got, want float64) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}
