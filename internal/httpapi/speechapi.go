package httpapi

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/mindorah/interviewd/internal/audio"
	"github.com/mindorah/interviewd/internal/session"
)

const synthesisSampleRate = 24000

// handleSynthesize turns reply text into spoken audio plus the mouth
// animation timeline. Audio goes out base64-encoded as a WAV envelope.
func (s *Server) handleSynthesize(r *http.Request, sess *session.Session) (int, any) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return http.StatusUnsupportedMediaType, errorResponse{Error: "Content type must be application/json"}
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Text == "" {
		return http.StatusBadRequest, errorResponse{Error: "No text provided"}
	}

	start := time.Now()
	result, err := s.synth.Synthesize(r.Context(), sess.Voice, sess.VoiceRate, req.Text)
	if err != nil {
		s.logger.Error("speech synthesis failed", "session_id", sess.ID, "error", err)
		return http.StatusInternalServerError, errorResponse{Error: "speech synthesis failed"}
	}
	s.stages.Observe("synthesize", float64(time.Since(start).Milliseconds()))
	if s.metrics != nil {
		s.metrics.ObserveSynthesis(time.Since(start), len(result.Audio))
	}

	wav, err := audio.EncodeWAVPCM16LE(result.Audio, synthesisSampleRate)
	if err != nil {
		s.logger.Error("wav encoding failed", "session_id", sess.ID, "error", err)
		return http.StatusInternalServerError, errorResponse{Error: "speech synthesis failed"}
	}

	sess.AddMetric("playStopPressesCoach", 1)

	return http.StatusOK, map[string]any{
		"animation": result.Animation,
		"audio":     base64.StdEncoding.EncodeToString(wav),
	}
}

// handleSpeechCleanup releases synthesis resources for the session. The
// synthesizer keeps no cross-call state, so there is never anything left to
// tear down; the endpoint exists for clients that call it on page unload.
func (s *Server) handleSpeechCleanup(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Cleanup completed successfully",
	})
}
