package speech

// DefaultMinGapMS is the minimum spacing between retained viseme events.
// Both the live synthesis path and the replay controller share this default;
// either can be configured to a different threshold.
const DefaultMinGapMS = 75

// TailPaddingMS is added past the last retained event when computing the
// animation's total duration, giving the mouth time to settle.
const TailPaddingMS = 120

// Coalesce applies the greedy min-gap filter: the first event is always
// retained; each later event is retained only if it falls at least
// thresholdMS past the last retained event. This is not a fixed-rate
// resample, so the filter is idempotent.
func Coalesce(events []VisemeEvent, thresholdMS float64) []VisemeEvent {
	if len(events) == 0 {
		return nil
	}
	if thresholdMS <= 0 {
		thresholdMS = DefaultMinGapMS
	}

	retained := make([]VisemeEvent, 0, len(events))
	last := events[0]
	retained = append(retained, last)
	for _, ev := range events[1:] {
		if ev.OffsetMS-last.OffsetMS >= thresholdMS {
			retained = append(retained, ev)
			last = ev
		}
	}
	return retained
}
