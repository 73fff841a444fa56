package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// RealtimeConfig carries the speech provider connection settings.
type RealtimeConfig struct {
	APIKey    string
	WSBaseURL string
}

// RealtimeProvider synthesizes speech over the provider's realtime
// websocket endpoint, collecting audio chunks and viseme metadata in a
// single blocking exchange per call.
type RealtimeProvider struct {
	cfg RealtimeConfig
}

func NewRealtimeProvider(cfg RealtimeConfig) *RealtimeProvider {
	if strings.TrimSpace(cfg.WSBaseURL) == "" {
		cfg.WSBaseURL = "wss://speech.mindorah.net"
	}
	return &RealtimeProvider{cfg: cfg}
}

type wsServerMessage struct {
	Type     string  `json:"type"`
	Audio    string  `json:"audio,omitempty"`
	OffsetMS float64 `json:"offset_ms,omitempty"`
	VisemeID int     `json:"viseme_id,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

func (p *RealtimeProvider) Synthesize(ctx context.Context, req SynthesisRequest, onViseme func(VisemeEvent)) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, &SynthesisError{Reason: "empty_text"}
	}

	u, err := url.Parse(strings.TrimRight(p.cfg.WSBaseURL, "/") + "/v1/tts/realtime")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("output_format", req.OutputFormat)
	q.Set("request_sentence_boundary", "true")
	q.Set("request_word_boundary", "true")
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Ocp-Apim-Subscription-Key", p.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return nil, fmt.Errorf("dial tts websocket: %w", err)
	}
	s := &realtimeCall{conn: conn, done: make(chan struct{})}
	// Teardown on every exit path, success or not.
	defer s.close()

	go s.watchCancel(ctx)

	if err := s.writeJSON(map[string]any{
		"type":         "synthesize",
		"voice":        req.Voice,
		"rate_percent": req.RatePercent,
		"text":         req.Text,
		"visemes":      true,
	}); err != nil {
		return nil, fmt.Errorf("send synthesis request: %w", err)
	}

	var audio []byte
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read tts websocket: %w", err)
		}
		var msg wsServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "audio":
			chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err != nil {
				return nil, fmt.Errorf("decode audio chunk: %w", err)
			}
			audio = append(audio, chunk...)
		case "viseme":
			if onViseme != nil {
				onViseme(VisemeEvent{OffsetMS: msg.OffsetMS, VisemeID: msg.VisemeID})
			}
		case "completed":
			if msg.Reason != "" && msg.Reason != "synthesis_completed" {
				return nil, &SynthesisError{Reason: msg.Reason}
			}
			return audio, nil
		case "error", "failed":
			reason := msg.Reason
			if reason == "" {
				reason = msg.Type
			}
			return nil, &SynthesisError{Reason: reason}
		}
	}
}

type realtimeCall struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func (s *realtimeCall) writeJSON(payload map[string]any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(payload)
}

func (s *realtimeCall) watchCancel(ctx context.Context) {
	select {
	case <-ctx.Done():
		s.close()
	case <-s.done:
	}
}

func (s *realtimeCall) close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
		close(s.done)
	})
}
