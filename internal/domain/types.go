package domain

import "time"

// Status marks the outcome of an orchestrated operation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Prompt is an immutable provider-ready text payload plus an optional
// output-shape hint (expected keys and example values).
type Prompt struct {
	Text  string         `json:"text"`
	Shape map[string]any `json:"shape,omitempty"`
}

// Request is the canonical request sent to a provider backend.
type Request struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	TopP        float32 `json:"top_p,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// JSONMode requests structured output from providers that support it.
	JSONMode bool `json:"json_mode,omitempty"`
}

// ProviderResult is the outcome of one backend invocation. Exactly one of
// Text or ErrKind is meaningful: OK with Text set, or !OK with ErrKind set.
type ProviderResult struct {
	OK      bool      `json:"ok"`
	Text    string    `json:"text,omitempty"`
	ErrKind ErrorKind `json:"error,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

// StructuredResponse is a parsed, well-formed object produced by the
// normalizer. It is always a mapping; top-level JSON arrays are wrapped
// under an "items" key so consumers never branch on shape.
type StructuredResponse map[string]any

// Turn is one question/answer exchange within a session.
type Turn struct {
	Question string             `json:"question"`
	Response StructuredResponse `json:"response"`
}

// SessionContext is the per-session accumulated state used to give
// follow-up questions continuity.
type SessionContext struct {
	ID        string         `json:"id"`
	Domain    string         `json:"domain"`
	Region    string         `json:"region"`
	History   []Turn         `json:"history"`
	Extra     map[string]any `json:"extra,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Result is the orchestrator's response for a single processed question.
// It is the sole data contract consumed by the presentation layer.
type Result struct {
	SessionID string             `json:"session_id"`
	Domain    string             `json:"domain"`
	Region    string             `json:"region"`
	Question  string             `json:"question"`
	Response  StructuredResponse `json:"agent_response,omitempty"`
	Elapsed   float64            `json:"processing_time"`
	Status    Status             `json:"status"`
	Kind      ErrorKind          `json:"error_kind,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// SummaryResponse is the derived, read-only summary of a full session.
// It is produced on demand and never persisted back into the session.
type SummaryResponse struct {
	Summary           string   `json:"summary"`
	KeyInsights       []string `json:"key_insights"`
	Recommendations   []string `json:"recommendations"`
	FollowUpQuestions []string `json:"follow_up_questions"`
}

// FinalizeResult wraps a session summary with operation status.
type FinalizeResult struct {
	SessionID string           `json:"session_id"`
	Status    Status           `json:"status"`
	Kind      ErrorKind        `json:"error_kind,omitempty"`
	Error     string           `json:"error,omitempty"`
	Summary   *SummaryResponse `json:"summary,omitempty"`
}

// SurveyBundle is the complete output of the topic-to-survey pipeline.
// All three content fields are always populated; a failed stage contributes
// its degraded output rather than emptying the bundle.
type SurveyBundle struct {
	Topic           string `json:"topic"`
	ResearchSummary string `json:"research_summary"`
	Survey          string `json:"final_survey"`
	Recommendations string `json:"recommendations"`
}

// SearchResult is one ranked snippet from the search collaborator.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// PersistedTurn is the immutable record written to the response log for
// each processed call. Ownership transfers to the log on write.
type PersistedTurn struct {
	ID        string             `json:"id,omitempty"`
	SessionID string             `json:"session_id"`
	Domain    string             `json:"domain"`
	Region    string             `json:"region"`
	Question  string             `json:"question"`
	Response  StructuredResponse `json:"agent_response"`
	Elapsed   float64            `json:"processing_time"`
	Status    Status             `json:"status"`
	Timestamp time.Time          `json:"timestamp"`
}

// Message is a role-tagged entry in a pipeline conversation transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
