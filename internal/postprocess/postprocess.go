// Package postprocess extracts side-channel markers the interview prompt
// instructs the model to embed in its replies, strips them from the text
// shown to the candidate, and forwards the extracted values to the user
// directory. Bookkeeping failures never fail the turn.
package postprocess

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// finalSectionMarker opens the trailing block that carries the recommended
// job title. The block runs to the end of the reply.
const finalSectionMarker = "<!--SECTION 3!-->"

var (
	sectionMarkerRe = regexp.MustCompile(`<!--SECTION \d!-->`)
	jobTitleRe      = regexp.MustCompile(`<b>Job Title: (.*?)</b>`)
)

// Recorder receives extracted side-channel values. Calls are fire-and-forget.
type Recorder interface {
	UpdateJobTitle(ctx context.Context, itemID, title string) error
	IncrementUsage(ctx context.Context, itemID string) error
}

type Processor struct {
	recorder Recorder
	logger   *slog.Logger
}

func New(recorder Recorder, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{recorder: recorder, logger: logger}
}

// Process runs both marker checks on the raw reply and returns the text to
// hand back to the caller. The job-title strip and the usage increment are
// independent; the usage check always sees the original, unstripped text.
func (p *Processor) Process(ctx context.Context, itemID, response string) string {
	modified := p.extractJobTitle(ctx, itemID, response)

	if sectionMarkerRe.MatchString(response) {
		p.record(ctx, "usage increment", itemID, func() error {
			return p.recorder.IncrementUsage(ctx, itemID)
		})
	}
	return modified
}

// extractJobTitle strips the trailing final-section block when it carries a
// job title, and forwards the title to the directory.
func (p *Processor) extractJobTitle(ctx context.Context, itemID, response string) string {
	idx := strings.Index(response, finalSectionMarker)
	if idx < 0 {
		return response
	}
	block := response[idx:]

	m := jobTitleRe.FindStringSubmatch(block)
	if m == nil {
		return response
	}
	title := strings.TrimSpace(m[1])

	modified := strings.TrimRight(strings.Replace(response, block, "", 1), " \t\r\n")
	p.record(ctx, "job title update", itemID, func() error {
		return p.recorder.UpdateJobTitle(ctx, itemID, title)
	})
	return modified
}

// RecordJobTitle forwards a structured job-title value to the directory.
// Used when the model returns bookkeeping as reply fields instead of text
// markers.
func (p *Processor) RecordJobTitle(ctx context.Context, itemID, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	p.record(ctx, "job title update", itemID, func() error {
		return p.recorder.UpdateJobTitle(ctx, itemID, title)
	})
}

// RecordUsage forwards a structured section-delivered signal.
func (p *Processor) RecordUsage(ctx context.Context, itemID string) {
	p.record(ctx, "usage increment", itemID, func() error {
		return p.recorder.IncrementUsage(ctx, itemID)
	})
}

func (p *Processor) record(ctx context.Context, op, itemID string, fn func() error) {
	if p.recorder == nil || itemID == "" {
		p.logger.Warn("post-process: no recorder target, skipping", "op", op)
		return
	}
	if err := fn(); err != nil {
		p.logger.Error("post-process: directory update failed", "op", op, "item_id", itemID, "error", err)
	}
}
