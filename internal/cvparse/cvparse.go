// Package cvparse turns raw CV text into structured candidate information
// via a mandatory model tool call. Text that the model judges not to be a
// CV at all yields the NotCVSentinel marker instead of extracted fields.
package cvparse

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mindorah/interviewd/internal/llm"
)

// NotCVSentinel flags session prompts built from an upload that was not a
// CV. Downstream turn handling checks for it before calling the model.
const NotCVSentinel = "<-- IS NOT CV -->"

const extractToolName = "extract_cv_information"

const systemInstructions = `You are an expert assistant specializing in extracting structured information from curriculum vitae (CVs).

First, determine if the provided text is actually a CV/resume. A valid CV/resume typically includes:
- Professional experience with job titles and companies
- Skills section or skills mentioned throughout
- Educational background (usually)
- Contact information or personal details
- Possibly a professional summary or objective

If the text doesn't appear to be a CV/resume, set is_valid_cv to false and don't extract any information.
If it is a valid CV, set is_valid_cv to true and extract the requested information.`

const extractToolSchema = `{
	"type": "object",
	"properties": {
		"is_valid_cv": {
			"type": "boolean",
			"description": "Indicates whether the provided text appears to be a CV/resume."
		},
		"candidate_name": {
			"type": "string",
			"description": "The full name of the candidate, if available."
		},
		"summary": {
			"type": "string",
			"description": "The professional summary or objective statement from the CV, if present."
		},
		"professional_experience": {
			"type": "array",
			"description": "A list of the candidate's previous or current roles.",
			"items": {
				"type": "object",
				"properties": {
					"job_title": {"type": "string", "description": "The title of the role"},
					"company": {"type": "string", "description": "The name of the company"},
					"duration": {"type": "string", "description": "The dates or duration worked"},
					"level": {"type": "string", "description": "Inferred seniority level"},
					"key_responsibilities_or_achievements": {
						"type": "array",
						"items": {"type": "string"},
						"description": "Key responsibilities or achievements"
					}
				},
				"required": ["job_title", "company"]
			}
		},
		"skills": {
			"type": "array",
			"description": "A list of key technical or soft skills mentioned in the CV.",
			"items": {"type": "string"}
		}
	},
	"required": ["is_valid_cv"]
}`

// Experience is one role from the candidate's history.
type Experience struct {
	JobTitle         string   `json:"job_title"`
	Company          string   `json:"company"`
	Duration         string   `json:"duration,omitempty"`
	Level            string   `json:"level,omitempty"`
	Responsibilities []string `json:"key_responsibilities_or_achievements,omitempty"`
}

// Profile is the structured result of parsing one CV.
type Profile struct {
	IsValidCV              bool         `json:"is_valid_cv"`
	CandidateName          string       `json:"candidate_name,omitempty"`
	Summary                string       `json:"summary,omitempty"`
	ProfessionalExperience []Experience `json:"professional_experience,omitempty"`
	Skills                 []string     `json:"skills,omitempty"`

	// Message carries NotCVSentinel when IsValidCV is false.
	Message string `json:"message,omitempty"`
}

// Extractor drives the structured-extraction call.
type Extractor interface {
	ExtractStructured(ctx context.Context, messages []llm.Message, tool llm.Tool) (json.RawMessage, error)
}

// Parse asks the model to classify and extract cvText. The tool call is
// mandatory; a reply without one is an error rather than an empty profile.
func Parse(ctx context.Context, extractor Extractor, cvText string) (*Profile, error) {
	messages := []llm.Message{
		{Role: "system", Content: systemInstructions},
		{Role: "user", Content: "Please analyze the following text and determine if it's a CV/resume. If it is, extract the professional experience and skills:\n\n" + cvText},
	}
	tool := llm.Tool{
		Name:        extractToolName,
		Description: "Extracts relevant professional experience, skills, and summary from CV text for interview preparation.",
		Parameters:  json.RawMessage(extractToolSchema),
	}

	args, err := extractor.ExtractStructured(ctx, messages, tool)
	if err != nil {
		return nil, fmt.Errorf("extract cv information: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(args, &profile); err != nil {
		return nil, fmt.Errorf("decode cv extraction arguments: %w", err)
	}
	if !profile.IsValidCV {
		return &Profile{IsValidCV: false, Message: NotCVSentinel}, nil
	}
	return &profile, nil
}
