package speech

import (
	"context"
	"errors"
	"testing"
)

type scriptedProvider struct {
	audio  []byte
	events []VisemeEvent
	err    error
	calls  int
}

func (p *scriptedProvider) Synthesize(_ context.Context, _ SynthesisRequest, onViseme func(VisemeEvent)) ([]byte, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	for _, ev := range p.events {
		onViseme(ev)
	}
	return p.audio, nil
}

func TestSynthesizeBuildsCoalescedAnimation(t *testing.T) {
	provider := &scriptedProvider{
		audio: []byte("pcm-bytes"),
		events: []VisemeEvent{
			{OffsetMS: 0, VisemeID: 18},
			{OffsetMS: 40, VisemeID: 1},
			{OffsetMS: 90, VisemeID: 5},
			{OffsetMS: 300, VisemeID: 14},
		},
	}
	s := NewSynthesizer(provider, 0, nil)

	res, err := s.Synthesize(context.Background(), "en-GB-OliverNeural", 0, "hello there")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(res.Audio) != "pcm-bytes" {
		t.Fatalf("audio = %q", res.Audio)
	}
	// 0 retained, 40 dropped, 90 retained (>=75 from 0), 300 retained.
	if len(res.Animation.Frames) != 3 {
		t.Fatalf("frames = %+v, want 3", res.Animation.Frames)
	}
	if res.Animation.Frames[0].Image != "18.png" {
		t.Fatalf("frame image = %q, want 18.png", res.Animation.Frames[0].Image)
	}
	if res.Animation.TotalDurationMS != 300+TailPaddingMS {
		t.Fatalf("total duration = %v, want %v", res.Animation.TotalDurationMS, 300+TailPaddingMS)
	}
}

func TestSynthesizeNoVisemesYieldsZeroDuration(t *testing.T) {
	provider := &scriptedProvider{audio: []byte("a")}
	s := NewSynthesizer(provider, 0, nil)

	res, err := s.Synthesize(context.Background(), "voice", 0, "hi")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(res.Animation.Frames) != 0 || res.Animation.TotalDurationMS != 0 {
		t.Fatalf("animation = %+v, want empty with zero duration", res.Animation)
	}
}

func TestSynthesizeSurfacesProviderReason(t *testing.T) {
	provider := &scriptedProvider{err: &SynthesisError{Reason: "canceled"}}
	s := NewSynthesizer(provider, 0, nil)

	_, err := s.Synthesize(context.Background(), "voice", 0, "hi")
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) || synthErr.Reason != "canceled" {
		t.Fatalf("error = %v, want SynthesisError{canceled}", err)
	}
}

func TestSynthesizeDoesNotLeakStateAcrossCalls(t *testing.T) {
	provider := &scriptedProvider{
		audio:  []byte("a"),
		events: []VisemeEvent{{OffsetMS: 10, VisemeID: 1}},
	}
	s := NewSynthesizer(provider, 0, nil)

	first, err := s.Synthesize(context.Background(), "voice", 0, "one")
	if err != nil {
		t.Fatalf("first call error = %v", err)
	}
	second, err := s.Synthesize(context.Background(), "voice", 0, "two")
	if err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if len(first.Animation.Frames) != 1 || len(second.Animation.Frames) != 1 {
		t.Fatalf("frames accumulated across calls: %d then %d",
			len(first.Animation.Frames), len(second.Animation.Frames))
	}
}

type flakyProvider struct {
	failures int
	reason   string
	calls    int
}

func (p *flakyProvider) Synthesize(_ context.Context, _ SynthesisRequest, onViseme func(VisemeEvent)) ([]byte, error) {
	p.calls++
	if p.calls <= p.failures {
		// Partial viseme delivery before the failure.
		onViseme(VisemeEvent{OffsetMS: 1, VisemeID: 9})
		return nil, &SynthesisError{Reason: p.reason}
	}
	onViseme(VisemeEvent{OffsetMS: 10, VisemeID: 2})
	return []byte("pcm"), nil
}

func TestSynthesizeRetriesTransientReason(t *testing.T) {
	provider := &flakyProvider{failures: 1, reason: "rate_limited"}
	s := NewSynthesizer(provider, 0, nil)

	res, err := s.Synthesize(context.Background(), "voice", 0, "hi")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if provider.calls != 2 {
		t.Fatalf("provider calls = %d, want 2", provider.calls)
	}
	if len(res.Animation.Frames) != 1 || res.Animation.Frames[0].VisemeID != 2 {
		t.Fatalf("frames from failed attempt leaked: %+v", res.Animation.Frames)
	}
}

func TestSynthesizeDoesNotRetryTerminalReason(t *testing.T) {
	provider := &flakyProvider{failures: 2, reason: "invalid_voice"}
	s := NewSynthesizer(provider, 0, nil)

	if _, err := s.Synthesize(context.Background(), "voice", 0, "hi"); err == nil {
		t.Fatal("expected error")
	}
	if provider.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", provider.calls)
	}
}
