// Package orchestrator sequences agent calls for single-question survey
// turns: resolve the domain agent, build the prompt from accumulated
// session context, invoke the bound provider, normalize the output, and
// record the turn.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/canvass-ai/surveyd/internal/agent"
	"github.com/canvass-ai/surveyd/internal/domain"
	"github.com/canvass-ai/surveyd/internal/normalizer"
	"github.com/canvass-ai/surveyd/internal/provider"
	"github.com/canvass-ai/surveyd/internal/session"
	"github.com/canvass-ai/surveyd/internal/storage"
	"github.com/canvass-ai/surveyd/internal/tokens"
)

// summaryTokenBudget caps the transcript embedded in the finalize prompt.
const summaryTokenBudget = 3000

// Orchestrator drives the question-processing pipeline. All collaborators
// are injected; there is no hidden global state.
type Orchestrator struct {
	agents     *agent.Registry
	providers  provider.Set
	normalizer *normalizer.Normalizer
	sessions   session.Store
	log        storage.ResponseLog
	counter    *tokens.Counter
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an orchestrator.
func New(agents *agent.Registry, providers provider.Set, norm *normalizer.Normalizer, sessions session.Store, log storage.ResponseLog, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		agents:     agents,
		providers:  providers,
		normalizer: norm,
		sessions:   sessions,
		log:        log,
		counter:    tokens.NewCounter(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("surveyd/orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// QuestionRequest is the input for one processed question.
type QuestionRequest struct {
	Domain    string         `json:"domain"`
	Question  string         `json:"question"`
	Region    string         `json:"region"`
	SessionID string         `json:"session_id,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// ProcessQuestion runs one full turn and never panics outward: any
// unexpected failure is converted into an error result.
func (o *Orchestrator) ProcessQuestion(ctx context.Context, req *QuestionRequest) (result *domain.Result) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("process question panicked", slog.Any("panic", r))
			result = &domain.Result{
				Domain:   req.Domain,
				Region:   req.Region,
				Question: req.Question,
				Elapsed:  time.Since(start).Seconds(),
				Status:   domain.StatusError,
				Error:    fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	ctx, span := o.tracer.Start(ctx, "orchestrator.process_question",
		trace.WithAttributes(attribute.String("domain", req.Domain)))
	defer span.End()

	ag := o.agents.Get(req.Domain)
	if ag == nil {
		perr := domain.NewError(domain.ErrUnknownDomain, "Unknown domain %s", req.Domain)
		return &domain.Result{
			Domain:   req.Domain,
			Region:   req.Region,
			Question: req.Question,
			Elapsed:  time.Since(start).Seconds(),
			Status:   domain.StatusError,
			Kind:     perr.Kind,
			Error:    perr.Message,
		}
	}

	sid := req.SessionID
	if sid == "" {
		sid = uuid.NewString()
	}

	// Merge the caller-supplied context before building the prompt so
	// follow-up questions see it.
	snap := o.sessions.Update(sid, func(c *domain.SessionContext) {
		for k, v := range req.Context {
			c.Extra[k] = v
		}
		c.Domain = req.Domain
		c.Region = req.Region
	})

	prompt := ag.BuildPrompt(req.Question, req.Region, promptContext(snap))

	prov := o.providers.Get(ag.ProviderName())
	var cleaned domain.StructuredResponse
	if prov == nil {
		cleaned = normalizer.Fallback(fmt.Sprintf("provider %s not configured", ag.ProviderName()))
	} else {
		res := prov.Generate(ctx, &domain.Request{
			Prompt:   prompt.Text,
			Model:    ag.Model(),
			JSONMode: true,
		})
		if res.OK {
			cleaned = o.normalizer.Normalize(ctx, res.Text, prompt.Shape)
		} else {
			o.logger.Warn("agent provider call failed",
				slog.String("provider", ag.ProviderName()),
				slog.String("kind", string(res.ErrKind)),
				slog.String("detail", res.Detail),
			)
			cleaned = normalizer.Fallback(res.Detail)
		}
	}

	o.sessions.Update(sid, func(c *domain.SessionContext) {
		c.History = append(c.History, domain.Turn{Question: req.Question, Response: cleaned})
	})

	result = &domain.Result{
		SessionID: sid,
		Domain:    req.Domain,
		Region:    req.Region,
		Question:  req.Question,
		Response:  cleaned,
		Elapsed:   time.Since(start).Seconds(),
		Status:    domain.StatusSuccess,
	}

	o.persist(ctx, result)
	return result
}

// GetHistory returns the ordered turn list for a session; an unknown id
// yields an empty sequence, not an error.
func (o *Orchestrator) GetHistory(sessionID string) []domain.Turn {
	return o.sessions.History(sessionID)
}

// FinalizeSession derives a summary from every turn of an existing
// session. The session is not destroyed. On provider or parse failure a
// minimal locally-computed summary is returned; finalize never fails once
// the session exists.
func (o *Orchestrator) FinalizeSession(ctx context.Context, sessionID string) (result *domain.FinalizeResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("finalize panicked", slog.Any("panic", r))
			result = &domain.FinalizeResult{
				SessionID: sessionID,
				Status:    domain.StatusError,
				Error:     fmt.Sprintf("internal error: %v", r),
			}
		}
	}()

	ctx, span := o.tracer.Start(ctx, "orchestrator.finalize_session")
	defer span.End()

	snap, ok := o.sessions.Get(sessionID)
	if !ok || len(snap.History) == 0 {
		perr := domain.NewError(domain.ErrNoSession, "No session")
		return &domain.FinalizeResult{
			SessionID: sessionID,
			Status:    domain.StatusError,
			Kind:      perr.Kind,
			Error:     perr.Message,
		}
	}

	summary := o.summarize(ctx, snap)
	return &domain.FinalizeResult{
		SessionID: sessionID,
		Status:    domain.StatusSuccess,
		Summary:   summary,
	}
}

// RecentResponses exposes the response log for history display.
func (o *Orchestrator) RecentResponses(ctx context.Context, limit int) ([]domain.PersistedTurn, error) {
	return o.log.ListRecent(ctx, limit)
}

func (o *Orchestrator) summarize(ctx context.Context, snap *domain.SessionContext) *domain.SummaryResponse {
	transcript := o.counter.TruncateTranscript(transcriptOf(snap.History), summaryTokenBudget)

	prompt := fmt.Sprintf(`Summarize the survey conversation into a final JSON object capturing key_insights, recommendations, follow_up_questions.
Domain: %s
Region: %s
Conversation:
%s
Return JSON only with keys: summary, key_insights, recommendations, follow_up_questions.`,
		snap.Domain, snap.Region, transcript)

	if prov := o.providers.Get(provider.NameOpenAI); prov != nil {
		res := prov.Generate(ctx, &domain.Request{Prompt: prompt, JSONMode: true})
		if res.OK {
			var summary domain.SummaryResponse
			if err := json.Unmarshal([]byte(res.Text), &summary); err == nil && summary.Summary != "" {
				return fillSummary(&summary)
			}
			o.logger.Warn("summary response was not parseable, using fallback")
		} else {
			o.logger.Warn("summary provider call failed, using fallback",
				slog.String("kind", string(res.ErrKind)))
		}
	}

	return fillSummary(&domain.SummaryResponse{
		Summary: fmt.Sprintf("%d turns in %s/%s", len(snap.History), snap.Domain, snap.Region),
	})
}

// fillSummary replaces nil slices so the summary always serializes with
// every key present.
func fillSummary(s *domain.SummaryResponse) *domain.SummaryResponse {
	if s.KeyInsights == nil {
		s.KeyInsights = []string{}
	}
	if s.Recommendations == nil {
		s.Recommendations = []string{}
	}
	if s.FollowUpQuestions == nil {
		s.FollowUpQuestions = []string{}
	}
	return s
}

func (o *Orchestrator) persist(ctx context.Context, res *domain.Result) {
	turn := &domain.PersistedTurn{
		SessionID: res.SessionID,
		Domain:    res.Domain,
		Region:    res.Region,
		Question:  res.Question,
		Response:  res.Response,
		Elapsed:   res.Elapsed,
		Status:    res.Status,
		Timestamp: time.Now().UTC(),
	}
	if _, err := o.log.SaveTurn(ctx, turn); err != nil {
		// Auditing must not fail the request.
		o.logger.Error("failed to persist turn",
			slog.String("session_id", res.SessionID),
			slog.String("error", err.Error()),
		)
	}
}

// promptContext flattens the accumulated session state into the mapping
// embedded in the agent prompt.
func promptContext(snap *domain.SessionContext) map[string]any {
	out := make(map[string]any, len(snap.Extra)+3)
	for k, v := range snap.Extra {
		out[k] = v
	}
	if snap.Domain != "" {
		out["domain"] = snap.Domain
	}
	if snap.Region != "" {
		out["region"] = snap.Region
	}
	if len(snap.History) > 0 {
		out["history"] = snap.History
	}
	return out
}

func transcriptOf(history []domain.Turn) string {
	var b strings.Builder
	for _, turn := range history {
		encoded, err := json.Marshal(turn.Response)
		if err != nil {
			encoded = []byte("{}")
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", turn.Question, encoded)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
