package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/canvass-ai/surveyd/internal/agent"
	"github.com/canvass-ai/surveyd/internal/domain"
	"github.com/canvass-ai/surveyd/internal/normalizer"
	"github.com/canvass-ai/surveyd/internal/provider"
	"github.com/canvass-ai/surveyd/internal/session"
	memlog "github.com/canvass-ai/surveyd/internal/storage/memory"
)

// stubProvider returns a canned result and records its calls.
type stubProvider struct {
	name   string
	result *domain.ProviderResult
	panics bool
	calls  int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(ctx context.Context, req *domain.Request) *domain.ProviderResult {
	s.calls++
	if s.panics {
		panic("stub provider exploded")
	}
	return s.result
}

type fixture struct {
	orch     *Orchestrator
	sessions *session.MemoryStore
	log      *memlog.Store
	hf       *stubProvider
	openai   *stubProvider
}

func newFixture(t *testing.T, hf, openai *stubProvider) *fixture {
	t.Helper()

	providers := provider.Set{}
	if hf != nil {
		providers[provider.NameHF] = hf
	}
	if openai != nil {
		providers[provider.NameOpenAI] = openai
	}

	sessions := session.NewMemoryStore()
	log := memlog.New()
	orch := New(
		agent.DefaultRegistry(nil),
		providers,
		normalizer.New(providers),
		sessions,
		log,
	)
	return &fixture{orch: orch, sessions: sessions, log: log, hf: hf, openai: openai}
}

func TestProcessQuestionUnknownDomain(t *testing.T) {
	hf := &stubProvider{name: provider.NameHF, result: domain.Success("unused")}
	f := newFixture(t, hf, nil)

	result := f.orch.ProcessQuestion(context.Background(), &QuestionRequest{
		Domain:   "telepathy",
		Question: "anything",
		Region:   "north",
	})

	if result.Status != domain.StatusError {
		t.Errorf("Status = %q, want error", result.Status)
	}
	if !strings.Contains(result.Error, "Unknown domain telepathy") {
		t.Errorf("Error = %q, want unknown domain message", result.Error)
	}
	if hf.calls != 0 {
		t.Errorf("provider called %d times for unknown domain, want 0", hf.calls)
	}
	if turns, _ := f.log.ListRecent(context.Background(), 10); len(turns) != 0 {
		t.Errorf("persisted %d turns for unknown domain, want 0", len(turns))
	}
}

func TestProcessQuestionSuccess(t *testing.T) {
	hf := &stubProvider{name: provider.NameHF, result: domain.Success("messy model output")}
	openai := &stubProvider{
		name:   provider.NameOpenAI,
		result: domain.Success(`{"farmer_response": "good monsoon crops", "confidence": 0.9}`),
	}
	f := newFixture(t, hf, openai)

	result := f.orch.ProcessQuestion(context.Background(), &QuestionRequest{
		Domain:   "agriculture",
		Question: "What crops grow best?",
		Region:   "north",
		Context:  map[string]any{"crop": "wheat"},
	})

	if result.Status != domain.StatusSuccess {
		t.Fatalf("Status = %q (error %q), want success", result.Status, result.Error)
	}
	if result.SessionID == "" {
		t.Error("SessionID not generated")
	}
	if result.Response["farmer_response"] != "good monsoon crops" {
		t.Errorf("Response = %v, want normalized farmer_response", result.Response)
	}
	if hf.calls != 1 {
		t.Errorf("hf called %d times, want 1", hf.calls)
	}

	history := f.orch.GetHistory(result.SessionID)
	if len(history) != 1 {
		t.Fatalf("len(history) = %d, want 1", len(history))
	}
	if history[0].Question != "What crops grow best?" {
		t.Errorf("history question = %q", history[0].Question)
	}

	turns, err := f.log.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("persisted %d turns, want 1", len(turns))
	}
	if turns[0].SessionID != result.SessionID {
		t.Errorf("persisted session id = %q, want %q", turns[0].SessionID, result.SessionID)
	}
}

func TestProcessQuestionSessionContinuity(t *testing.T) {
	hf := &stubProvider{name: provider.NameHF, result: domain.Success("raw")}
	openai := &stubProvider{name: provider.NameOpenAI, result: domain.Success(`{"farmer_response": "ok"}`)}
	f := newFixture(t, hf, openai)

	first := f.orch.ProcessQuestion(context.Background(), &QuestionRequest{
		Domain: "agriculture", Question: "q1", Region: "north",
	})
	second := f.orch.ProcessQuestion(context.Background(), &QuestionRequest{
		Domain: "agriculture", Question: "q2", Region: "north", SessionID: first.SessionID,
	})

	if second.SessionID != first.SessionID {
		t.Fatalf("session id changed: %q vs %q", first.SessionID, second.SessionID)
	}
	history := f.orch.GetHistory(first.SessionID)
	if len(history) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(history))
	}
	if history[0].Question != "q1" || history[1].Question != "q2" {
		t.Errorf("history order wrong: %q, %q", history[0].Question, history[1].Question)
	}
}

func TestProcessQuestionProviderFailureDegrades(t *testing.T) {
	hf := &stubProvider{
		name:   provider.NameHF,
		result: domain.Failure(domain.ErrProviderCallFailed, "upstream 500"),
	}
	f := newFixture(t, hf, nil)

	result := f.orch.ProcessQuestion(context.Background(), &QuestionRequest{
		Domain: "education", Question: "q", Region: "south",
	})

	if result.Status != domain.StatusSuccess {
		t.Fatalf("Status = %q, want success with degraded response", result.Status)
	}
	if result.Response["confidence"] != 0.3 {
		t.Errorf("confidence = %v, want degraded 0.3", result.Response["confidence"])
	}
}

func TestProcessQuestionRecoversPanic(t *testing.T) {
	hf := &stubProvider{name: provider.NameHF, panics: true}
	f := newFixture(t, hf, nil)

	result := f.orch.ProcessQuestion(context.Background(), &QuestionRequest{
		Domain: "healthcare", Question: "q", Region: "east",
	})

	if result.Status != domain.StatusError {
		t.Fatalf("Status = %q, want error", result.Status)
	}
	if !strings.Contains(result.Error, "internal error") {
		t.Errorf("Error = %q, want internal error message", result.Error)
	}
}

func TestFinalizeSessionMissing(t *testing.T) {
	f := newFixture(t, &stubProvider{name: provider.NameHF, result: domain.Success("x")}, nil)

	result := f.orch.FinalizeSession(context.Background(), "does-not-exist")
	if result.Status != domain.StatusError {
		t.Errorf("Status = %q, want error", result.Status)
	}
	if result.Error != "No session" {
		t.Errorf("Error = %q, want No session", result.Error)
	}
}

func TestFinalizeSessionEmptyHistory(t *testing.T) {
	f := newFixture(t, &stubProvider{name: provider.NameHF, result: domain.Success("x")}, nil)
	f.sessions.Update("s1", func(c *domain.SessionContext) {
		c.Domain = "agriculture"
	})

	result := f.orch.FinalizeSession(context.Background(), "s1")
	if result.Status != domain.StatusError {
		t.Errorf("Status = %q, want error for zero turns", result.Status)
	}
}

func seedSession(f *fixture, id string, turns int) {
	f.sessions.Update(id, func(c *domain.SessionContext) {
		c.Domain = "agriculture"
		c.Region = "north"
		for i := 0; i < turns; i++ {
			c.History = append(c.History, domain.Turn{
				Question: "q",
				Response: domain.StructuredResponse{"farmer_response": "a"},
			})
		}
	})
}

func TestFinalizeSessionSummarizes(t *testing.T) {
	openai := &stubProvider{
		name: provider.NameOpenAI,
		result: domain.Success(`{
			"summary": "Farmers report good yields.",
			"key_insights": ["irrigation matters"],
			"recommendations": ["subsidize drip irrigation"],
			"follow_up_questions": ["which districts?"]
		}`),
	}
	f := newFixture(t, nil, openai)
	seedSession(f, "s1", 2)

	result := f.orch.FinalizeSession(context.Background(), "s1")
	if result.Status != domain.StatusSuccess {
		t.Fatalf("Status = %q (error %q), want success", result.Status, result.Error)
	}
	if result.Summary.Summary != "Farmers report good yields." {
		t.Errorf("Summary = %q", result.Summary.Summary)
	}
	if len(result.Summary.KeyInsights) != 1 {
		t.Errorf("KeyInsights = %v", result.Summary.KeyInsights)
	}

	// The session survives finalization.
	if got := f.orch.GetHistory("s1"); len(got) != 2 {
		t.Errorf("history after finalize = %d turns, want 2", len(got))
	}
}

func TestFinalizeSessionFallback(t *testing.T) {
	openai := &stubProvider{
		name:   provider.NameOpenAI,
		result: domain.Failure(domain.ErrProviderUnavailable, "no key"),
	}
	f := newFixture(t, nil, openai)
	seedSession(f, "s1", 3)

	result := f.orch.FinalizeSession(context.Background(), "s1")
	if result.Status != domain.StatusSuccess {
		t.Fatalf("Status = %q, want success with fallback summary", result.Status)
	}
	if result.Summary.Summary != "3 turns in agriculture/north" {
		t.Errorf("Summary = %q, want fallback wording", result.Summary.Summary)
	}
	if result.Summary.KeyInsights == nil || result.Summary.Recommendations == nil || result.Summary.FollowUpQuestions == nil {
		t.Error("fallback summary has nil slices")
	}
}

func TestFinalizeSessionUnparseableSummary(t *testing.T) {
	openai := &stubProvider{name: provider.NameOpenAI, result: domain.Success("not json")}
	f := newFixture(t, nil, openai)
	seedSession(f, "s1", 1)

	result := f.orch.FinalizeSession(context.Background(), "s1")
	if result.Status != domain.StatusSuccess {
		t.Fatalf("Status = %q, want success", result.Status)
	}
	if result.Summary.Summary != "1 turns in agriculture/north" {
		t.Errorf("Summary = %q, want fallback wording", result.Summary.Summary)
	}
}
