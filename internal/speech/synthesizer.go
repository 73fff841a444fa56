package speech

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mindorah/interviewd/internal/reliability"
)

// SynthesisRequest configures one synthesis call. Voice and rate come from
// the session's selections; the output format is fixed by the synthesizer.
type SynthesisRequest struct {
	Voice        string
	RatePercent  int
	Text         string
	OutputFormat string
}

// OutputFormatPCM is the fixed audio container requested from the provider:
// RIFF-wrapped 24kHz 16-bit mono PCM.
const OutputFormatPCM = "riff-24khz-16bit-mono-pcm"

// Provider runs one blocking synthesis, invoking onViseme for every raw
// viseme event as it arrives, and returns the complete audio bytes. A
// non-success completion must be reported as a *SynthesisError.
type Provider interface {
	Synthesize(ctx context.Context, req SynthesisRequest, onViseme func(VisemeEvent)) ([]byte, error)
}

// Synthesizer converts agent text into audio plus a coalesced animation
// timeline. It holds no per-call state: every call owns its own buffers, so
// nothing leaks between requests.
type Synthesizer struct {
	provider Provider
	minGapMS float64
	logger   *slog.Logger
}

func NewSynthesizer(provider Provider, minGapMS float64, logger *slog.Logger) *Synthesizer {
	if minGapMS <= 0 {
		minGapMS = DefaultMinGapMS
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{provider: provider, minGapMS: minGapMS, logger: logger}
}

// Synthesize runs one synthesis call. The raw viseme buffer is scoped to
// this call and discarded after the animation is built, on every exit path.
func (s *Synthesizer) Synthesize(ctx context.Context, voice string, ratePercent int, text string) (*Result, error) {
	req := SynthesisRequest{
		Voice:        voice,
		RatePercent:  ratePercent,
		Text:         text,
		OutputFormat: OutputFormatPCM,
	}

	var events []VisemeEvent
	audio, err := s.provider.Synthesize(ctx, req, func(ev VisemeEvent) {
		events = append(events, ev)
	})
	if err != nil {
		// One retry for transient provider rejections; any visemes from the
		// failed attempt are discarded.
		var synthErr *SynthesisError
		if errors.As(err, &synthErr) && reliability.IsRetryableSynthesisReason(synthErr.Reason) && ctx.Err() == nil {
			s.logger.Warn("synthesis retry", "reason", synthErr.Reason)
			events = events[:0]
			audio, err = s.provider.Synthesize(ctx, req, func(ev VisemeEvent) {
				events = append(events, ev)
			})
		}
		if err != nil {
			return nil, err
		}
	}

	retained := Coalesce(events, s.minGapMS)
	s.logger.Debug("synthesis complete",
		"audio_bytes", len(audio),
		"raw_visemes", len(events),
		"retained_frames", len(retained),
	)

	animation := Animation{Frames: make([]AnimationFrame, 0, len(retained))}
	for _, ev := range retained {
		animation.Frames = append(animation.Frames, AnimationFrame{
			TimestampMS: ev.OffsetMS,
			VisemeID:    ev.VisemeID,
			Image:       visemeImage(ev.VisemeID),
		})
	}
	if len(retained) > 0 {
		animation.TotalDurationMS = retained[len(retained)-1].OffsetMS + TailPaddingMS
	}

	return &Result{Audio: audio, Animation: animation}, nil
}
