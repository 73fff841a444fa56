package cvparse

import (
	"context"
	"fmt"
	"strings"
)

// Service wraps the extraction call for callers that want prompt text
// rather than a structured profile.
type Service struct {
	extractor Extractor
}

func NewService(extractor Extractor) *Service {
	return &Service{extractor: extractor}
}

// PromptFromCV parses cvText and renders the profile as a prompt section.
// Text the model rejects as not-a-CV yields NotCVSentinel, which callers
// store as the session prompt to block the interview.
func (s *Service) PromptFromCV(ctx context.Context, cvText string) (string, error) {
	profile, err := Parse(ctx, s.extractor, cvText)
	if err != nil {
		return "", err
	}
	if !profile.IsValidCV {
		return NotCVSentinel, nil
	}
	return profile.PromptSection(), nil
}

// PromptSection renders the profile as plain text suitable for inclusion in
// the interviewer's system prompt.
func (p *Profile) PromptSection() string {
	var sb strings.Builder
	sb.WriteString("Candidate profile:\n")
	if p.CandidateName != "" {
		fmt.Fprintf(&sb, "Name: %s\n", p.CandidateName)
	}
	if p.Summary != "" {
		fmt.Fprintf(&sb, "Summary: %s\n", p.Summary)
	}
	if len(p.ProfessionalExperience) > 0 {
		sb.WriteString("Experience:\n")
		for _, exp := range p.ProfessionalExperience {
			fmt.Fprintf(&sb, "- %s at %s", exp.JobTitle, exp.Company)
			if exp.Duration != "" {
				fmt.Fprintf(&sb, " (%s)", exp.Duration)
			}
			if exp.Level != "" {
				fmt.Fprintf(&sb, ", %s level", exp.Level)
			}
			if len(exp.Responsibilities) > 0 {
				fmt.Fprintf(&sb, ": %s", strings.Join(exp.Responsibilities, "; "))
			}
			sb.WriteString("\n")
		}
	}
	if len(p.Skills) > 0 {
		fmt.Fprintf(&sb, "Skills: %s\n", strings.Join(p.Skills, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}
