package agent

import (
	"regexp"
	"strings"
)

var segmentRe = regexp.MustCompile(`#(.*?)#`)

// ExtractSegments splits an assistant reply of the form "before #cue# after"
// into its video cue and the text around it. Replies without a cue get the
// default "table" cue and keep all text in the before part.
func ExtractSegments(text string) (segment, before, after string) {
	match := segmentRe.FindStringSubmatch(text)
	if match == nil {
		return "table", text, ""
	}
	segment = match[1]
	parts := strings.SplitN(text, "#"+segment+"#", 2)
	before = parts[0]
	if len(parts) > 1 {
		after = parts[1]
	}
	return segment, before, after
}
