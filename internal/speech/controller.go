package speech

import "errors"

// ErrNoVisemeData means a timeline was requested for an empty event list.
var ErrNoVisemeData = errors.New("no viseme data provided")

// DefaultTimingOffsetMS nudges replayed frames slightly earlier so the mouth
// leads the audio rather than trailing it.
const DefaultTimingOffsetMS = -10

// AnimationController recomputes an animation timeline from an already
// captured viseme list. Same min-gap filter as the live path, but with a
// configurable threshold and a timing offset applied to each frame's
// timestamp relative to the first retained event.
type AnimationController struct {
	MinGapMS       float64
	TimingOffsetMS float64
}

func NewAnimationController() *AnimationController {
	return &AnimationController{
		MinGapMS:       DefaultMinGapMS,
		TimingOffsetMS: DefaultTimingOffsetMS,
	}
}

// Timeline builds the replay animation for the captured events.
func (c *AnimationController) Timeline(events []VisemeEvent) (Animation, error) {
	if len(events) == 0 {
		return Animation{}, ErrNoVisemeData
	}

	retained := Coalesce(events, c.MinGapMS)
	start := retained[0].OffsetMS

	frames := make([]AnimationFrame, 0, len(retained))
	for _, ev := range retained {
		ts := ev.OffsetMS - start + c.TimingOffsetMS
		if ts < 0 {
			ts = 0
		}
		frames = append(frames, AnimationFrame{
			TimestampMS: ts,
			VisemeID:    ev.VisemeID,
			Image:       visemeImage(ev.VisemeID),
		})
	}

	total := retained[len(retained)-1].OffsetMS - start + TailPaddingMS
	if floor := c.MinGapMS + TailPaddingMS; total < floor {
		total = floor
	}

	return Animation{
		Frames:          frames,
		TotalDurationMS: total,
		StartTimeMS:     start,
	}, nil
}
