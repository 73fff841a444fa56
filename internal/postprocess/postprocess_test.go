package postprocess

import (
	"context"
	"errors"
	"testing"
)

type fakeRecorder struct {
	titles     []string
	increments int
	fail       bool
}

func (r *fakeRecorder) UpdateJobTitle(_ context.Context, _ string, title string) error {
	if r.fail {
		return errors.New("cms down")
	}
	r.titles = append(r.titles, title)
	return nil
}

func (r *fakeRecorder) IncrementUsage(_ context.Context, _ string) error {
	if r.fail {
		return errors.New("cms down")
	}
	r.increments++
	return nil
}

func TestProcessStripsFinalSectionAndExtractsTitle(t *testing.T) {
	rec := &fakeRecorder{}
	p := New(rec, nil)

	raw := "Great answers overall.\n<!--SECTION 3!-->\nBased on our talk:\n<b>Job Title: Senior Engineer</b>\nGood luck!"
	got := p.Process(context.Background(), "item-1", raw)

	if got != "Great answers overall." {
		t.Fatalf("processed text = %q", got)
	}
	if len(rec.titles) != 1 || rec.titles[0] != "Senior Engineer" {
		t.Fatalf("extracted titles = %v, want [Senior Engineer]", rec.titles)
	}
	if rec.increments != 1 {
		t.Fatalf("usage increments = %d, want 1", rec.increments)
	}
}

func TestProcessWithoutMarkersLeavesTextAlone(t *testing.T) {
	rec := &fakeRecorder{}
	p := New(rec, nil)

	raw := "Tell me about a project you led."
	if got := p.Process(context.Background(), "item-1", raw); got != raw {
		t.Fatalf("text changed: %q", got)
	}
	if len(rec.titles) != 0 || rec.increments != 0 {
		t.Fatalf("recorder should not be touched: %+v", rec)
	}
}

func TestProcessIncrementsUsageForMidSectionMarker(t *testing.T) {
	rec := &fakeRecorder{}
	p := New(rec, nil)

	raw := "<!--SECTION 1!-->\nLet's move to the next part."
	if got := p.Process(context.Background(), "item-1", raw); got != raw {
		t.Fatalf("non-final markers must not be stripped, got %q", got)
	}
	if rec.increments != 1 {
		t.Fatalf("usage increments = %d, want 1", rec.increments)
	}
	if len(rec.titles) != 0 {
		t.Fatalf("no title expected, got %v", rec.titles)
	}
}

func TestProcessKeepsBlockWithoutTitle(t *testing.T) {
	rec := &fakeRecorder{}
	p := New(rec, nil)

	raw := "Summary.\n<!--SECTION 3!-->\nNo title line here."
	if got := p.Process(context.Background(), "item-1", raw); got != raw {
		t.Fatalf("block without a title must stay, got %q", got)
	}
}

func TestProcessSwallowsRecorderFailures(t *testing.T) {
	rec := &fakeRecorder{fail: true}
	p := New(rec, nil)

	raw := "Done.\n<!--SECTION 3!-->\n<b>Job Title: Analyst</b>"
	got := p.Process(context.Background(), "item-1", raw)
	if got != "Done." {
		t.Fatalf("directory failure must not change the returned text: %q", got)
	}
}

func TestRecordStructuredValues(t *testing.T) {
	rec := &fakeRecorder{}
	p := New(rec, nil)

	p.RecordJobTitle(context.Background(), "item-1", "  Staff Engineer ")
	p.RecordUsage(context.Background(), "item-1")

	if len(rec.titles) != 1 || rec.titles[0] != "Staff Engineer" {
		t.Fatalf("titles = %v", rec.titles)
	}
	if rec.increments != 1 {
		t.Fatalf("increments = %d, want 1", rec.increments)
	}
}

func TestRecordJobTitleSkipsEmptyTitle(t *testing.T) {
	rec := &fakeRecorder{}
	p := New(rec, nil)

	p.RecordJobTitle(context.Background(), "item-1", "   ")

	if len(rec.titles) != 0 {
		t.Fatalf("titles = %v, want none", rec.titles)
	}
}
