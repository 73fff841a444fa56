// Package httpapi is the HTTP surface of the interview service: candidate
// auth and turn submission, speech synthesis, session lifecycle and the
// operational endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mindorah/interviewd/internal/agent"
	"github.com/mindorah/interviewd/internal/config"
	"github.com/mindorah/interviewd/internal/directory"
	"github.com/mindorah/interviewd/internal/document"
	"github.com/mindorah/interviewd/internal/observability"
	"github.com/mindorah/interviewd/internal/session"
	"github.com/mindorah/interviewd/internal/speech"
)

// Agent runs one conversation turn. Replies are always client-safe strings;
// meta is non-nil only when the model returned bookkeeping values as
// structured reply fields.
type Agent interface {
	SubmitTurn(ctx context.Context, sess *session.Session, userText string) (string, *agent.ReplyMeta)
}

// Synthesizer turns reply text into audio plus an animation timeline.
type Synthesizer interface {
	Synthesize(ctx context.Context, voice string, ratePercent int, text string) (*speech.Result, error)
}

// PostProcessor strips side-channel markers from agent text and triggers the
// directory bookkeeping they encode. The Record methods take structured
// bookkeeping values directly, bypassing marker extraction.
type PostProcessor interface {
	Process(ctx context.Context, itemID, response string) string
	RecordJobTitle(ctx context.Context, itemID, title string)
	RecordUsage(ctx context.Context, itemID string)
}

// Directory is the candidate-record side of the CMS.
type Directory interface {
	LookupUser(ctx context.Context, itemID string) (*directory.User, error)
	FetchPromptTemplate(ctx context.Context, interviewKey string) (string, error)
}

// DocumentFetcher resolves and extracts candidate CV text.
type DocumentFetcher interface {
	ResolveDocumentURI(ctx context.Context, uri string) (string, error)
	ExtractText(ctx context.Context, url string) (*document.Extract, error)
}

// CVParser classifies and summarizes raw CV text into a session prompt.
type CVParser interface {
	PromptFromCV(ctx context.Context, cvText string) (string, error)
}

type Server struct {
	cfg       config.Config
	store     *session.Store
	agent     Agent
	synth     Synthesizer
	post      PostProcessor
	directory Directory
	docs      DocumentFetcher
	cvParser  CVParser
	metrics   *observability.Metrics
	stages    *observability.TurnStageWindow
	cancels   *cancelRegistry
	logger    *slog.Logger
}

func New(cfg config.Config, store *session.Store, agent Agent, synth Synthesizer, post PostProcessor, dir Directory, docs DocumentFetcher, cvParser CVParser, metrics *observability.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:       cfg,
		store:     store,
		agent:     agent,
		synth:     synth,
		post:      post,
		directory: dir,
		docs:      docs,
		cvParser:  cvParser,
		metrics:   metrics,
		stages:    observability.NewTurnStageWindow(256),
		cancels:   newCancelRegistry(),
		logger:    logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.corsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Route("/candidate", func(r chi.Router) {
		r.Get("/autoLogin", s.handleAutoLogin)
		r.Post("/interface", s.withSession(s.handleInterface))
		r.Get("/get_session_data", s.withSession(s.handleGetSessionData))
		r.Get("/get_avatar", s.withSession(s.handleGetAvatar))
		r.Post("/cleanup_session", s.handleCleanupSession)
		r.Post("/record_usage", s.withSession(s.handleRecordUsage))
	})

	r.Route("/api/speech", func(r chi.Router) {
		r.Post("/synthesize", s.withSession(s.handleSynthesize))
		r.Post("/cleanup", s.handleSpeechCleanup)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.stages.Snapshot())
}

// corsMiddleware answers cross-origin requests for origins on the
// allow-list. The session cookie is cross-site, so allowed origins get
// credentialed responses; everything else is left to same-origin policy.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.AllowedOrigins {
		if strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}
	return false
}

type errorResponse struct {
	Error string `json:"error"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
