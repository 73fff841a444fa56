package agent

import (
	"context"
	"encoding/json"

	"github.com/mindorah/interviewd/internal/llm"
)

// ReplyMeta carries the bookkeeping values a structured reply returns
// alongside the visible text, replacing the marker convention embedded in
// free-text replies.
type ReplyMeta struct {
	JobTitle     string `json:"job_title,omitempty"`
	FinalSection bool   `json:"final_section,omitempty"`
}

func (m ReplyMeta) isZero() bool {
	return m.JobTitle == "" && !m.FinalSection
}

type structuredReply struct {
	Response string `json:"response"`
	ReplyMeta
}

// StructuredExtractor is the forced-tool side of the model provider.
type StructuredExtractor interface {
	ExtractStructured(ctx context.Context, messages []llm.Message, tool llm.Tool) (json.RawMessage, error)
}

const replyToolName = "compose_reply"

const replyToolSchema = `{
  "type": "object",
  "properties": {
    "response": {
      "type": "string",
      "description": "The interviewer's next message, shown verbatim to the candidate. Plain text, no control markers."
    },
    "job_title": {
      "type": "string",
      "description": "The job title recommended to the candidate, only when the reply announces one."
    },
    "final_section": {
      "type": "boolean",
      "description": "True when this reply delivers a numbered interview section, including the final one."
    }
  },
  "required": ["response"]
}`

func replyTool() llm.Tool {
	return llm.Tool{
		Name:        replyToolName,
		Description: "Compose the interviewer's next reply together with its bookkeeping fields.",
		Parameters:  json.RawMessage(replyToolSchema),
	}
}

// UseStructuredReplies switches the service to forced-tool replies: the
// model returns its bookkeeping values as fields instead of embedding text
// markers in the reply.
func (s *Service) UseStructuredReplies(extractor StructuredExtractor) {
	s.extractor = extractor
}

func (s *Service) structuredTurn(ctx context.Context, sessionID string, outbound []llm.Message) (string, *ReplyMeta, error) {
	raw, err := s.extractor.ExtractStructured(ctx, outbound, replyTool())
	if err != nil {
		return "", nil, err
	}
	var reply structuredReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return "", nil, err
	}
	if reply.ReplyMeta.isZero() {
		return reply.Response, nil, nil
	}
	s.logger.Debug("structured reply carries bookkeeping",
		"session_id", sessionID,
		"job_title", reply.JobTitle,
		"final_section", reply.FinalSection,
	)
	meta := reply.ReplyMeta
	return reply.Response, &meta, nil
}
