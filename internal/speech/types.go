package speech

import "fmt"

// VisemeEvent is one raw mouth-shape callback record emitted by the provider
// while synthesis runs. Offsets are milliseconds from synthesis start.
// Events live only for the duration of one synthesis call.
type VisemeEvent struct {
	OffsetMS float64 `json:"offset"`
	VisemeID int     `json:"visemeId"`
}

// AnimationFrame is one coalesced mouth-shape frame.
type AnimationFrame struct {
	TimestampMS float64 `json:"timestamp"`
	VisemeID    int     `json:"viseme_id"`
	Image       string  `json:"image"`
}

// Animation is the frame timeline for one synthesized utterance.
type Animation struct {
	Frames          []AnimationFrame `json:"frames"`
	TotalDurationMS float64          `json:"total_duration"`
	StartTimeMS     float64          `json:"start_time,omitempty"`
}

// Result carries the audio bytes and the animation for one synthesis call.
type Result struct {
	Audio     []byte
	Animation Animation
}

// SynthesisError is a failed synthesis with the provider's reason code.
type SynthesisError struct {
	Reason string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis failed: %s", e.Reason)
}

const maxVisemeID = 21

// visemeImage maps a viseme class to its mouth-shape image asset.
func visemeImage(id int) string {
	if id < 0 || id > maxVisemeID {
		return "0.png"
	}
	return fmt.Sprintf("%d.png", id)
}
