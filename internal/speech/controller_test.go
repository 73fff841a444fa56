package speech

import (
	"errors"
	"testing"
)

func TestTimelineRelativeTimestampsWithOffset(t *testing.T) {
	c := NewAnimationController()
	events := []VisemeEvent{
		{OffsetMS: 200, VisemeID: 2},
		{OffsetMS: 290, VisemeID: 7},
	}
	anim, err := c.Timeline(events)
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	// First frame: 200-200-10 clamps to 0. Second: 290-200-10 = 80.
	if anim.Frames[0].TimestampMS != 0 {
		t.Fatalf("first timestamp = %v, want 0", anim.Frames[0].TimestampMS)
	}
	if anim.Frames[1].TimestampMS != 80 {
		t.Fatalf("second timestamp = %v, want 80", anim.Frames[1].TimestampMS)
	}
	if anim.StartTimeMS != 200 {
		t.Fatalf("start time = %v, want 200", anim.StartTimeMS)
	}
	if anim.TotalDurationMS != 90+TailPaddingMS {
		t.Fatalf("total duration = %v, want %v", anim.TotalDurationMS, 90+TailPaddingMS)
	}
}

func TestTimelineEnforcesDurationFloor(t *testing.T) {
	c := NewAnimationController()
	anim, err := c.Timeline([]VisemeEvent{{OffsetMS: 50, VisemeID: 1}})
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	want := c.MinGapMS + TailPaddingMS
	if anim.TotalDurationMS != want {
		t.Fatalf("total duration = %v, want floor %v", anim.TotalDurationMS, want)
	}
}

func TestTimelineConfigurableThreshold(t *testing.T) {
	c := &AnimationController{MinGapMS: 200, TimingOffsetMS: DefaultTimingOffsetMS}
	events := []VisemeEvent{
		{OffsetMS: 0, VisemeID: 1},
		{OffsetMS: 100, VisemeID: 2},
		{OffsetMS: 210, VisemeID: 3},
	}
	anim, err := c.Timeline(events)
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if len(anim.Frames) != 2 {
		t.Fatalf("frames = %+v, want 2 with 200ms threshold", anim.Frames)
	}
}

func TestTimelineEmptyInput(t *testing.T) {
	c := NewAnimationController()
	if _, err := c.Timeline(nil); !errors.Is(err, ErrNoVisemeData) {
		t.Fatalf("error = %v, want ErrNoVisemeData", err)
	}
}

func TestVisemeImageFallback(t *testing.T) {
	if got := visemeImage(14); got != "14.png" {
		t.Fatalf("visemeImage(14) = %q", got)
	}
	if got := visemeImage(99); got != "0.png" {
		t.Fatalf("visemeImage(99) = %q, want neutral fallback", got)
	}
}
