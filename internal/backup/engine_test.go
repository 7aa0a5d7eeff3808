package backup

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// fakeSource serves fixed items in pages and records the engine's
// call pattern.
type fakeSource struct {
	items []string
	pos   int

	loadErr    error
	processErr error
	saveErr    error

	loads     int
	processed [][]string
	saves     int
}

func (s *fakeSource) Kind() string { return "widgets" }

func (s *fakeSource) Load(context.Context) error {
	s.loads++
	return s.loadErr
}

func (s *fakeSource) Total(context.Context) (int, error) {
	return len(s.items) - s.pos, nil
}

func (s *fakeSource) Page(_ context.Context, limit int) ([]string, error) {
	end := s.pos + limit
	if end > len(s.items) {
		end = len(s.items)
	}
	return s.items[s.pos:end], nil
}

func (s *fakeSource) Process(_ context.Context, items []string) error {
	if s.processErr != nil {
		return s.processErr
	}
	s.processed = append(s.processed, items)
	return nil
}

func (s *fakeSource) Advance(items []string) { s.pos += len(items) }

func (s *fakeSource) Save(context.Context) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	return nil
}

// countingSink records progress calls.
type countingSink struct {
	total int
	added int
}

func (c *countingSink) SetTotal(total int) { c.total = total }
func (c *countingSink) Add(n int)          { c.added += n }

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRunProcessesAllPages(t *testing.T) {
	src := &fakeSource{items: []string{"a", "b", "c", "d", "e"}}
	sink := &countingSink{}

	n, err := Run(context.Background(), testLogger(), src, 2, sink)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 5 {
		t.Errorf("Run() = %d, want 5", n)
	}
	if len(src.processed) != 3 {
		t.Errorf("pages processed = %d, want 3", len(src.processed))
	}
	if sink.total != 5 || sink.added != 5 {
		t.Errorf("sink total/added = %d/%d, want 5/5", sink.total, sink.added)
	}
}

func TestRunSavesAfterEveryPage(t *testing.T) {
	src := &fakeSource{items: []string{"a", "b", "c"}}

	if _, err := Run(context.Background(), testLogger(), src, 1, NopSink{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if src.saves != 3 {
		t.Errorf("saves = %d, want one per page (3)", src.saves)
	}
}

func TestRunResumesFromCursor(t *testing.T) {
	// A source that already advanced past two items only serves the
	// rest.
	src := &fakeSource{items: []string{"a", "b", "c", "d"}, pos: 2}

	n, err := Run(context.Background(), testLogger(), src, 10, NopSink{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Run() = %d, want 2", n)
	}
	if len(src.processed) != 1 || len(src.processed[0]) != 2 {
		t.Fatalf("processed = %v, want one page of [c d]", src.processed)
	}
	if got := src.processed[0][0]; got != "c" {
		t.Errorf("first resumed item = %q, want %q", got, "c")
	}
}

func TestRunEmptyCollection(t *testing.T) {
	src := &fakeSource{}

	n, err := Run(context.Background(), testLogger(), src, 10, NopSink{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Run() = %d, want 0", n)
	}
	if src.saves != 0 {
		t.Errorf("saves = %d, want no checkpoint writes for empty run", src.saves)
	}
}

func TestRunProcessErrorCarriesPosition(t *testing.T) {
	src := &fakeSource{
		items:      []string{"a", "b"},
		processErr: errors.New("boom"),
	}

	n, err := Run(context.Background(), testLogger(), src, 1, NopSink{})
	if err == nil {
		t.Fatal("Run() error = nil, want processing error")
	}
	if n != 0 {
		t.Errorf("Run() = %d, want 0", n)
	}
	if !strings.Contains(err.Error(), "after 0 items") {
		t.Errorf("error %q does not name the resume position", err)
	}
}

func TestRunLoadError(t *testing.T) {
	src := &fakeSource{loadErr: errors.New("corrupt")}

	if _, err := Run(context.Background(), testLogger(), src, 1, NopSink{}); err == nil {
		t.Fatal("Run() error = nil, want load error")
	}
	if len(src.processed) != 0 {
		t.Error("pages were processed despite load failure")
	}
}

func TestRunSaveErrorStopsPass(t *testing.T) {
	src := &fakeSource{
		items:   []string{"a", "b"},
		saveErr: errors.New("disk full"),
	}

	n, err := Run(context.Background(), testLogger(), src, 1, NopSink{})
	if err == nil {
		t.Fatal("Run() error = nil, want save error")
	}
	if n != 0 {
		t.Errorf("Run() = %d, want 0 committed items", n)
	}
	if len(src.processed) != 1 {
		t.Errorf("pages processed = %d, want 1", len(src.processed))
	}
}
