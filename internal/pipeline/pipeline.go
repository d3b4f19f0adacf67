// Package pipeline builds a complete survey from a bare topic in five
// stages: research the topic, draft open-ended and structured questions
// concurrently, compile them into one survey document, and derive
// follow-up recommendations. Every stage degrades instead of failing, so
// the returned bundle is always fully populated.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/canvass-ai/surveyd/internal/domain"
	"github.com/canvass-ai/surveyd/internal/provider"
	"github.com/canvass-ai/surveyd/internal/search"
	"github.com/canvass-ai/surveyd/internal/tokens"
)

const (
	// researchModel and compilerModel need the larger Groq model; the
	// default is kept for the lighter insight pass.
	researchModel = "llama3-70b-8192"
	compilerModel = "llama3-70b-8192"

	// insightTokenBudget caps the role-tagged transcript embedded in the
	// recommendation prompt.
	insightTokenBudget = 3000

	defaultMaxResults = 5
)

// Pipeline generates surveys from topics.
type Pipeline struct {
	providers  provider.Set
	search     search.Client
	counter    *tokens.Counter
	logger     *slog.Logger
	tracer     trace.Tracer
	maxResults int
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMaxResults sets how many search results feed the research stage.
func WithMaxResults(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxResults = n
		}
	}
}

// New creates a pipeline over the provider set and search client.
func New(providers provider.Set, searcher search.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		providers:  providers,
		search:     searcher,
		counter:    tokens.NewCounter(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("surveyd/pipeline"),
		maxResults: defaultMaxResults,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GenerateSurvey runs all five stages and always returns a bundle with
// non-empty research summary, survey, and recommendations.
func (p *Pipeline) GenerateSurvey(ctx context.Context, topic string) (bundle *domain.SurveyBundle) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("survey pipeline panicked", slog.Any("panic", r))
			bundle = &domain.SurveyBundle{
				Topic:           topic,
				ResearchSummary: fmt.Sprintf("Research unavailable (internal error: %v)", r),
				Survey:          degradedSurvey("", ""),
				Recommendations: "Recommendations unavailable (internal error).",
			}
		}
	}()

	ctx, span := p.tracer.Start(ctx, "pipeline.generate_survey",
		trace.WithAttributes(attribute.String("topic", topic)))
	defer span.End()

	research := p.researchStage(ctx, topic)

	var creative, structured string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		creative = p.creativeStage(gctx, topic, research)
		return nil
	})
	g.Go(func() error {
		structured = p.structuredStage(gctx, topic, research)
		return nil
	})
	// Stage funcs degrade internally and never return errors.
	_ = g.Wait()

	survey := p.compilerStage(ctx, topic, creative, structured)
	recommendations := p.insightStage(ctx, topic, research, survey)

	return &domain.SurveyBundle{
		Topic:           topic,
		ResearchSummary: research,
		Survey:          survey,
		Recommendations: recommendations,
	}
}

// researchStage searches the web for the topic and summarizes the snippet
// block. With no search results or no provider, the snippet block itself
// is the summary.
func (p *Pipeline) researchStage(ctx context.Context, topic string) string {
	ctx, span := p.tracer.Start(ctx, "pipeline.research")
	defer span.End()

	query := fmt.Sprintf("key aspects, challenges and public opinion on %s", topic)
	var snippets string
	results, err := p.search.Search(ctx, query, p.maxResults)
	if err != nil {
		p.logger.Warn("web search failed", slog.String("error", err.Error()))
		snippets = fmt.Sprintf("An error occurred during the web search: %v", err)
	} else {
		snippets = search.FormatResults(results)
	}

	prompt := fmt.Sprintf(`You are a research assistant. Summarize the key themes, concerns and open questions about the topic below, based on the search results. Keep it under 300 words.

Topic: %s

Search results:
%s`, topic, snippets)

	if text, ok := p.generate(ctx, provider.NameGroq, researchModel, prompt); ok {
		return text
	}
	return snippets
}

// creativeStage drafts open-ended questions from the research summary.
func (p *Pipeline) creativeStage(ctx context.Context, topic, research string) string {
	ctx, span := p.tracer.Start(ctx, "pipeline.creative")
	defer span.End()

	prompt := fmt.Sprintf(`You are a creative survey designer. Based on the research summary below, write 5 open-ended survey questions about "%s" that invite detailed personal answers. Number them 1-5, one per line, no other text.

Research summary:
%s`, topic, research)

	if text, ok := p.generate(ctx, provider.NameOpenAI, "", prompt); ok {
		return text
	}
	return fmt.Sprintf("1. What is your overall experience with %s?\n2. What challenges related to %s affect you most?\n3. What changes regarding %s would help you?", topic, topic, topic)
}

// structuredStage drafts multiple-choice and Likert questions from the
// research summary.
func (p *Pipeline) structuredStage(ctx context.Context, topic, research string) string {
	ctx, span := p.tracer.Start(ctx, "pipeline.structured")
	defer span.End()

	prompt := fmt.Sprintf(`You are a quantitative survey designer. Based on the research summary below, write 5 structured survey questions about "%s": a mix of multiple-choice questions (list the options) and Likert-scale statements (1 = strongly disagree, 5 = strongly agree). Number them 1-5.

Research summary:
%s`, topic, research)

	if text, ok := p.generate(ctx, provider.NameGemini, "", prompt); ok {
		return text
	}
	return fmt.Sprintf("1. How familiar are you with %s? (Not at all / Somewhat / Very)\n2. \"%s affects my daily life.\" (1-5)\n3. How often do you engage with %s? (Never / Monthly / Weekly / Daily)", topic, topic, topic)
}

// compilerStage merges both question drafts into one de-duplicated survey
// document. Without a provider the drafts are concatenated locally so the
// survey still carries both question styles.
func (p *Pipeline) compilerStage(ctx context.Context, topic, creative, structured string) string {
	ctx, span := p.tracer.Start(ctx, "pipeline.compiler")
	defer span.End()

	prompt := fmt.Sprintf(`You are a survey editor. Combine the two question sets below into one coherent survey about "%s" in Markdown. Remove duplicates and near-duplicates, keep both open-ended and structured questions, group them under "## Open-Ended Questions" and "## Structured Questions", and add a one-paragraph introduction.

Open-ended questions:
%s

Structured questions:
%s`, topic, creative, structured)

	if text, ok := p.generate(ctx, provider.NameGroq, compilerModel, prompt); ok {
		return text
	}
	return degradedSurvey(creative, structured)
}

// insightStage reviews the run as a role-tagged transcript and produces
// follow-up recommendations.
func (p *Pipeline) insightStage(ctx context.Context, topic, research, survey string) string {
	ctx, span := p.tracer.Start(ctx, "pipeline.insight")
	defer span.End()

	transcript := formatTranscript([]domain.Message{
		{Role: "user", Content: fmt.Sprintf("Generate a survey about %s", topic)},
		{Role: "assistant", Content: research},
		{Role: "assistant", Content: survey},
	})
	transcript = p.counter.TruncateTranscript(transcript, insightTokenBudget)

	prompt := fmt.Sprintf(`You are a survey methodology expert. Review the conversation below and give 2-3 concrete recommendations for improving the survey or its distribution. Keep each recommendation to one sentence.

%s`, transcript)

	if text, ok := p.generate(ctx, provider.NameGroq, "", prompt); ok {
		return text
	}
	return "Recommendations unavailable: review the compiled survey manually before distribution."
}

// generate runs one provider call for a stage, logging and reporting
// failure instead of propagating it.
func (p *Pipeline) generate(ctx context.Context, providerName, model, prompt string) (string, bool) {
	prov := p.providers.Get(providerName)
	if prov == nil {
		p.logger.Warn("stage provider not configured", slog.String("provider", providerName))
		return "", false
	}

	res := prov.Generate(ctx, &domain.Request{Prompt: prompt, Model: model})
	if !res.OK {
		p.logger.Warn("stage provider call failed",
			slog.String("provider", providerName),
			slog.String("kind", string(res.ErrKind)),
			slog.String("detail", res.Detail),
		)
		return "", false
	}
	if strings.TrimSpace(res.Text) == "" {
		return "", false
	}
	return res.Text, true
}

// formatTranscript renders role-tagged messages as one line per message.
// Lines are the truncation unit for the token budget.
func formatTranscript(messages []domain.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, strings.ReplaceAll(m.Content, "\n", " ")))
	}
	return strings.Join(lines, "\n")
}

// degradedSurvey assembles the survey locally when the compiler provider
// is unavailable. Both sections stay present even when a draft stage also
// degraded.
func degradedSurvey(creative, structured string) string {
	if creative == "" {
		creative = "(no open-ended questions generated)"
	}
	if structured == "" {
		structured = "(no structured questions generated)"
	}
	return fmt.Sprintf("## Open-Ended Questions\n%s\n\n## Structured Questions\n%s", creative, structured)
}
