package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mindorah/interviewd/internal/agent"
	"github.com/mindorah/interviewd/internal/cvparse"
	"github.com/mindorah/interviewd/internal/directory"
	"github.com/mindorah/interviewd/internal/session"
)

// handleInterface runs one interview turn: record the candidate's message,
// get the model's reply, strip side-channel markers and return the cleaned
// text.
func (s *Server) handleInterface(r *http.Request, sess *session.Session) (int, any) {
	if err := r.ParseForm(); err != nil {
		return http.StatusBadRequest, errorResponse{Error: "Missing chat message"}
	}
	message := r.PostFormValue("chat")
	if message == "" {
		return http.StatusBadRequest, errorResponse{Error: "Missing chat message"}
	}

	turnStart := time.Now()

	// The model call is registered so a cleanup request for this session can
	// cancel it mid-flight.
	ctx, cancel := context.WithCancel(r.Context())
	release := s.cancels.register(sess.ID, cancel)
	defer release()
	defer cancel()

	modelStart := time.Now()
	reply, meta := s.agent.SubmitTurn(ctx, sess, message)
	s.stages.Observe("model", float64(time.Since(modelStart).Milliseconds()))

	outcome := agent.Outcome(reply)
	if s.metrics != nil {
		s.metrics.TurnsTotal.WithLabelValues(outcome).Inc()
	}

	postStart := time.Now()
	processed := reply
	if s.post != nil && outcome == "ok" {
		itemID := ""
		if sess.User != nil {
			itemID = sess.User.ItemID
		}
		switch {
		case meta != nil:
			// Structured reply: bookkeeping came back as fields and the
			// text carries no markers to strip.
			if meta.JobTitle != "" {
				s.post.RecordJobTitle(r.Context(), itemID, meta.JobTitle)
			}
			if meta.FinalSection {
				s.post.RecordUsage(r.Context(), itemID)
			}
		default:
			processed = s.post.Process(r.Context(), itemID, reply)
			if processed != reply && len(sess.Transcript) > 0 {
				// Keep the persisted transcript in sync with what the client saw.
				last := len(sess.Transcript) - 1
				if sess.Transcript[last].Role == session.RoleAssistant {
					sess.Transcript[last].Content = processed
					sess.MarkDirty()
				}
			}
		}
	}
	s.stages.Observe("postprocess", float64(time.Since(postStart).Milliseconds()))
	s.stages.Observe("turn_total", float64(time.Since(turnStart).Milliseconds()))

	return http.StatusOK, map[string]any{"response": processed}
}

// handleAutoLogin bootstraps a candidate session from a CMS item id: look
// up the record, build the interview prompt (template plus parsed CV), seed
// the session and redirect to the interview page.
func (s *Server) handleAutoLogin(w http.ResponseWriter, r *http.Request) {
	itemID := r.URL.Query().Get("_id")
	if itemID == "" {
		s.logger.Error("autoLogin called without item id")
		respondJSON(w, http.StatusBadRequest, map[string]any{"msg": "item_id is required"})
		return
	}

	sess, err := s.store.Open(r.Context(), "")
	if err != nil {
		s.logger.Error("autoLogin session open failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{"msg": "Internal server error"})
		return
	}

	user, err := s.directory.LookupUser(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			s.logger.Error("autoLogin user not found", "item_id", itemID)
			respondJSON(w, http.StatusNotFound, map[string]any{"msg": "User not found"})
			return
		}
		s.logger.Error("autoLogin directory lookup failed", "item_id", itemID, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{"msg": "Internal server error"})
		return
	}

	sess.User = &session.UserData{
		ItemID:    user.ItemID,
		UserID:    user.UserID,
		CVPath:    user.CVPath,
		Uses:      user.Uses,
		JobTitles: user.JobTitles,
	}
	sess.Avatar = s.cfg.DefaultAvatar
	sess.Voice = s.cfg.DefaultVoice
	sess.VoiceRate = s.cfg.DefaultVoiceRate
	sess.Prompt = s.buildPrompt(r.Context(), user)
	sess.MarkDirty()

	stored, err := s.store.Save(r.Context(), sess)
	if err != nil {
		s.logger.Error("autoLogin session save failed", "session_id", sess.ID, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{"msg": "Internal server error"})
		return
	}
	s.setSessionCookie(w, sess.ID, stored)
	if s.metrics != nil {
		s.metrics.SessionEvents.WithLabelValues("auto_login").Inc()
	}

	http.Redirect(w, r, s.cfg.InterfaceURL, http.StatusFound)
}

// buildPrompt assembles the interview system prompt: the CMS template, plus
// the candidate's parsed CV profile when one can be extracted. A CV the
// model rejects poisons the whole prompt with the sentinel so the agent
// refuses the interview.
func (s *Server) buildPrompt(ctx context.Context, user *directory.User) string {
	prompt, err := s.directory.FetchPromptTemplate(ctx, s.cfg.InterviewTitle)
	if err != nil {
		s.logger.Error("prompt template fetch failed, using fallback", "interview", s.cfg.InterviewTitle, "error", err)
		prompt = "You are a friendly AI interviewer."
	}

	if s.docs == nil || s.cvParser == nil || strings.TrimSpace(user.CVPath) == "" {
		return prompt
	}

	url, err := s.docs.ResolveDocumentURI(ctx, user.CVPath)
	if err != nil {
		s.logger.Error("cv document resolve failed", "item_id", user.ItemID, "error", err)
		return prompt
	}
	extract, err := s.docs.ExtractText(ctx, url)
	if err != nil {
		s.logger.Error("cv text extraction failed", "item_id", user.ItemID, "error", err)
		return prompt
	}
	section, err := s.cvParser.PromptFromCV(ctx, extract.Text)
	if err != nil {
		s.logger.Error("cv parsing failed", "item_id", user.ItemID, "error", err)
		return prompt
	}
	if section == cvparse.NotCVSentinel {
		return cvparse.NotCVSentinel
	}
	return prompt + "\n\n" + section
}

// handleGetSessionData returns the candidate record snapshot. The transcript
// is never exposed to the client.
func (s *Server) handleGetSessionData(_ *http.Request, sess *session.Session) (int, any) {
	if sess.User == nil {
		return http.StatusOK, map[string]any{}
	}
	return http.StatusOK, sess.User
}

func (s *Server) handleGetAvatar(_ *http.Request, sess *session.Session) (int, any) {
	var avatar any
	if sess.Avatar != "" {
		avatar = sess.Avatar
	}
	return http.StatusOK, map[string]any{"avatar": avatar}
}

// handleCleanupSession stops any in-flight model call for this session and
// destroys the stored record. Idempotent: cleaning an absent session still
// succeeds.
func (s *Server) handleCleanupSession(w http.ResponseWriter, r *http.Request) {
	var id string
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		id = c.Value
	}
	if id == "" {
		respondJSON(w, http.StatusOK, map[string]any{"message": "No session to clean up.", "success": true})
		return
	}

	s.cancels.cancel(id)

	if err := s.store.Delete(r.Context(), id); err != nil {
		s.logger.Error("cleanup session delete failed", "session_id", id, "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{"message": "Error during cleanup", "success": false})
		return
	}
	s.setSessionCookie(w, id, false)
	if s.metrics != nil {
		s.metrics.SessionEvents.WithLabelValues("cleaned_up").Inc()
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "API call was stopped and session cleared.", "success": true})
}

// handleRecordUsage accumulates client-reported recording seconds into the
// session metrics.
func (s *Server) handleRecordUsage(r *http.Request, sess *session.Session) (int, any) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return http.StatusUnsupportedMediaType, errorResponse{Error: "Content type must be application/json"}
	}
	var req struct {
		RecordingSeconds *float64 `json:"recording_seconds"`
	}
	if err := decodeJSON(r, &req); err != nil || req.RecordingSeconds == nil {
		return http.StatusBadRequest, errorResponse{Error: "Invalid recording_seconds value"}
	}

	total := sess.AddMetric("recordingsCoach", int(*req.RecordingSeconds))
	return http.StatusOK, map[string]any{
		"success":          true,
		"recorded_seconds": *req.RecordingSeconds,
		"total_seconds":    total,
	}
}
