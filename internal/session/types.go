package session

// Turn roles. Transcript[0] is always the single persisted system turn once
// the conversation is initialized; any additional system turns are built only
// for an outbound model call and never stored.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one role-tagged message in a conversation transcript.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserData is the directory snapshot captured at login.
type UserData struct {
	ItemID    string `json:"item_id"`
	UserID    string `json:"user_id"`
	CVPath    string `json:"cv_path"`
	Uses      int    `json:"uses"`
	JobTitles string `json:"job_titles"`
}

// Session is the cross-request conversation state. The store is its sole
// owner; request handlers load it, mutate it, and save it back.
type Session struct {
	ID         string         `json:"_id"`
	Transcript []Turn         `json:"conversation_log,omitempty"`
	Prompt     string         `json:"prompt,omitempty"`
	Metrics    map[string]int `json:"user_metrics,omitempty"`
	Avatar     string         `json:"avatar,omitempty"`
	Voice      string         `json:"voice,omitempty"`
	VoiceRate  int            `json:"voice_rate,omitempty"`
	User       *UserData      `json:"user_data,omitempty"`

	dirty bool
}

// Dirty reports whether the session was modified since it was opened.
func (s *Session) Dirty() bool { return s.dirty }

// MarkDirty flags the session for persistence on the next Save.
func (s *Session) MarkDirty() { s.dirty = true }

// Empty reports whether the session carries no state worth persisting.
func (s *Session) Empty() bool {
	return len(s.Transcript) == 0 && s.Prompt == "" && len(s.Metrics) == 0 &&
		s.Avatar == "" && s.Voice == "" && s.VoiceRate == 0 && s.User == nil
}

// InitTranscript seeds the transcript with the system prompt turn,
// replacing whatever was there.
func (s *Session) InitTranscript(prompt string) {
	s.Transcript = []Turn{{Role: RoleSystem, Content: prompt}}
	s.dirty = true
}

// AppendUser appends a user turn.
func (s *Session) AppendUser(content string) {
	s.Transcript = append(s.Transcript, Turn{Role: RoleUser, Content: content})
	s.dirty = true
}

// AppendAssistant appends an assistant turn.
func (s *Session) AppendAssistant(content string) {
	s.Transcript = append(s.Transcript, Turn{Role: RoleAssistant, Content: content})
	s.dirty = true
}

// AddMetric increments a named usage counter.
func (s *Session) AddMetric(name string, delta int) int {
	if s.Metrics == nil {
		s.Metrics = make(map[string]int)
	}
	s.Metrics[name] += delta
	s.dirty = true
	return s.Metrics[name]
}

// Clear wipes all conversation state. A cleared, dirty session is deleted
// from the backing store on the next Save instead of being written back.
func (s *Session) Clear() {
	s.Transcript = nil
	s.Prompt = ""
	s.Metrics = nil
	s.Avatar = ""
	s.Voice = ""
	s.VoiceRate = 0
	s.User = nil
	s.dirty = true
}
