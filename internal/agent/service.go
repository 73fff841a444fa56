// Package agent drives conversation turns for the mock interview. The
// service itself holds no conversation state: everything mutable lives in
// the Session passed to each call, so one shared Service instance safely
// serves every request.
package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mindorah/interviewd/internal/cvparse"
	"github.com/mindorah/interviewd/internal/llm"
	"github.com/mindorah/interviewd/internal/session"
)

// Clients send a start sentinel to kick off the interview without recording
// a user turn. The escaped form arrives from pages that HTML-encode form
// values before posting.
const (
	StartSentinel        = "<-START->"
	StartSentinelEscaped = "&lt;-START-&gt"
)

const fallbackPrompt = "You are a friendly AI interviewer."

// Fixed client-safe replies. Raw provider errors never reach the client.
const (
	notCVReply           = "The provided file was not a CV/resume. Please upload a valid CV/resume."
	contentFilteredReply = "I'm sorry, but your message violates our community standards. Please try again."
	networkErrorReply    = "I'm sorry, there was a network error. Please try again later."
	unexpectedErrorReply = "I'm sorry, an unexpected error occurred. Please try again later."
)

const (
	maxCompletionTokens = 12000
	chatTemperature     = 1
)

// Chatter is the chat-completion side of the model provider.
type Chatter interface {
	Chat(ctx context.Context, messages []llm.Message, maxTokens int, temperature float32) (string, error)
}

// Augmenter prepares the outbound message list, possibly injecting retrieved
// context. It must return a copy and never mutate the transcript.
type Augmenter interface {
	Augment(ctx context.Context, transcript []session.Turn) []session.Turn
}

// Service runs interview turns against the model provider.
type Service struct {
	chatter   Chatter
	augmenter Augmenter
	extractor StructuredExtractor
	logger    *slog.Logger
}

func NewService(chatter Chatter, augmenter Augmenter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{chatter: chatter, augmenter: augmenter, logger: logger}
}

// SubmitTurn records userText (unless it is a start sentinel), asks the
// model for the next reply and appends that reply to the transcript. The
// returned string is always safe to show the client: model failures map to
// fixed apology messages and are logged, not surfaced. ReplyMeta is non-nil
// only for structured replies that carry bookkeeping values.
func (s *Service) SubmitTurn(ctx context.Context, sess *session.Session, userText string) (string, *ReplyMeta) {
	if len(sess.Transcript) == 0 {
		prompt := strings.TrimSpace(sess.Prompt)
		if prompt == "" {
			s.logger.Warn("session has no prompt, using fallback", "session_id", sess.ID)
			prompt = fallbackPrompt
		}
		sess.InitTranscript(prompt)
	}

	// The opening exchange is driven by the system prompt alone; a user turn
	// is only recorded once the model has spoken.
	if userText != "" && userText != StartSentinel && userText != StartSentinelEscaped && len(sess.Transcript) > 1 {
		sess.AppendUser(userText)
	}

	// A session whose prompt was built from a rejected upload never reaches
	// the model.
	if sess.Prompt == cvparse.NotCVSentinel {
		return notCVReply, nil
	}

	outbound := sess.Transcript
	if s.augmenter != nil {
		outbound = s.augmenter.Augment(ctx, sess.Transcript)
	}

	var (
		reply string
		meta  *ReplyMeta
		err   error
	)
	if s.extractor != nil {
		reply, meta, err = s.structuredTurn(ctx, sess.ID, toMessages(outbound))
	} else {
		reply, err = s.chatter.Chat(ctx, toMessages(outbound), maxCompletionTokens, chatTemperature)
	}
	if err != nil {
		return s.safeErrorReply(sess.ID, err), nil
	}

	reply = strings.TrimSpace(reply)
	sess.AppendAssistant(reply)
	return reply, meta
}

func (s *Service) safeErrorReply(sessionID string, err error) string {
	switch {
	case llm.IsContentFiltered(err):
		s.logger.Warn("model refused turn: content filtered", "session_id", sessionID, "error", err)
		return contentFilteredReply
	case llm.IsTransport(err):
		s.logger.Error("model call failed: transport", "session_id", sessionID, "error", err)
		return networkErrorReply
	default:
		s.logger.Error("model call failed", "session_id", sessionID, "error", err)
		return unexpectedErrorReply
	}
}

// Outcome classifies a SubmitTurn reply for metrics. Replies matching one of
// the fixed safe strings are failures of the corresponding kind; anything
// else is a successful turn.
func Outcome(reply string) string {
	switch reply {
	case notCVReply:
		return "not_cv"
	case contentFilteredReply:
		return "content_filtered"
	case networkErrorReply:
		return "network_error"
	case unexpectedErrorReply:
		return "error"
	default:
		return "ok"
	}
}

func toMessages(turns []session.Turn) []llm.Message {
	out := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, llm.Message{Role: t.Role, Content: t.Content})
	}
	return out
}
