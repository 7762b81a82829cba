package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kirillkom/dataroom-assistant/internal/core/domain"
	"github.com/kirillkom/dataroom-assistant/internal/core/ports"
)

const (
	NoDocumentsMessage = "No documents have been indexed yet. Upload a PDF, DOCX or TXT file first."
	NoContextMessage   = "I couldn't find any relevant information in the uploaded documents to answer that question."
)

var defaultExampleQuestions = []string{
	"What is the total installed capacity mentioned?",
	"Summarize the environmental impact assessment.",
	"Describe the financing structure or PPA details.",
	"What are the land lease terms mentioned?",
	"List the main permitting requirements outlined.",
}

// DefaultExampleQuestions returns a copy of the built-in suggestions.
func DefaultExampleQuestions() []string {
	return append([]string(nil), defaultExampleQuestions...)
}

type QAConfig struct {
	TopK            int
	MaxContextChars int
	Answer          domain.GenerationParams
	Examples        domain.GenerationParams
}

func DefaultQAConfig() QAConfig {
	return QAConfig{
		TopK:            5,
		MaxContextChars: 12000,
		Answer: domain.GenerationParams{
			Temperature:     0.4,
			TopP:            0.9,
			TopK:            40,
			MaxOutputTokens: 2000,
		},
		Examples: domain.GenerationParams{
			Temperature:     0.6,
			TopP:            0.9,
			TopK:            50,
			MaxOutputTokens: 500,
		},
	}
}

type QAEngine struct {
	sessions  *SessionManager
	embedder  ports.Embedder
	generator ports.Generator
	logger    ports.QueryLogger
	cfg       QAConfig
}

// NewQAEngine builds the answer pipeline. logger may be nil.
func NewQAEngine(
	sessions *SessionManager,
	embedder ports.Embedder,
	generator ports.Generator,
	logger ports.QueryLogger,
	cfg QAConfig,
) *QAEngine {
	defaults := DefaultQAConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = defaults.TopK
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = defaults.MaxContextChars
	}
	if cfg.Answer == (domain.GenerationParams{}) {
		cfg.Answer = defaults.Answer
	}
	if cfg.Examples == (domain.GenerationParams{}) {
		cfg.Examples = defaults.Examples
	}
	return &QAEngine{
		sessions:  sessions,
		embedder:  embedder,
		generator: generator,
		logger:    logger,
		cfg:       cfg,
	}
}

func (e *QAEngine) Answer(ctx context.Context, sessionID, question string) (*domain.Answer, error) {
	sess, err := e.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return e.Ask(ctx, sess, question)
}

// Ask answers one question against the session's documents.
func (e *QAEngine) Ask(ctx context.Context, sess *Session, question string) (*domain.Answer, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "qa.answer")
	defer span.End()
	start := time.Now()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("question is required"))
	}

	entry := domain.QueryLog{
		ID:        uuid.NewString(),
		SessionID: sess.ID(),
		Question:  question,
		CreatedAt: time.Now().UTC(),
	}

	if sess.Empty() {
		entry.Status = domain.QueryNoDocuments
		entry.Answer = NoDocumentsMessage
		e.logQuery(ctx, entry)
		span.SetAttributes(attribute.Bool("qa.no_documents", true))
		return &domain.Answer{
			QueryID:     entry.ID,
			Question:    question,
			Text:        NoDocumentsMessage,
			Citations:   []domain.Citation{},
			Context:     []domain.RetrievedChunk{},
			NoDocuments: true,
		}, nil
	}

	answer, err := e.answer(ctx, sess, question)
	if err != nil {
		entry.Status = domain.QueryFailed
		entry.Error = err.Error()
		e.logQuery(ctx, entry)
		span.RecordError(err)
		span.SetStatus(codes.Error, "answer failed")
		slog.Warn("query_failed",
			"session_id", sess.ID(),
			"query_id", entry.ID,
			"error", err,
			"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
		)
		return nil, err
	}

	answer.QueryID = entry.ID
	entry.Status = domain.QueryAnswered
	entry.Answer = answer.Text
	entry.Citations = answer.Citations
	e.logQuery(ctx, entry)

	span.SetAttributes(
		attribute.Int("qa.retrieved", len(answer.Context)),
		attribute.Int("qa.citations", len(answer.Citations)),
	)
	slog.Info("query_answered",
		"session_id", sess.ID(),
		"query_id", entry.ID,
		"retrieved", len(answer.Context),
		"citations", len(answer.Citations),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return answer, nil
}

func (e *QAEngine) answer(ctx context.Context, sess *Session, question string) (*domain.Answer, error) {
	vector, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, asEmbeddingError("embed question", err)
	}

	retrieved, err := sess.Search(vector, e.cfg.TopK)
	if err != nil {
		return nil, err
	}
	if len(retrieved) == 0 {
		return &domain.Answer{
			Question:  question,
			Text:      NoContextMessage,
			Citations: []domain.Citation{},
			Context:   []domain.RetrievedChunk{},
		}, nil
	}

	prompt := buildAnswerPrompt(question, retrieved, e.cfg.MaxContextChars)
	gen, err := e.generator.Generate(ctx, prompt, e.cfg.Answer)
	if err != nil {
		return nil, domain.WrapError(domain.ErrGeneration, "generate answer", err)
	}

	text, citations := parseAnswer(gen.Text, retrieved)
	if text == "" {
		return nil, domain.WrapError(domain.ErrGeneration, "generate answer", errors.New("model returned empty answer"))
	}
	usage := gen.Usage
	return &domain.Answer{
		Question:  question,
		Text:      text,
		Citations: citations,
		Context:   retrieved,
		Usage:     &usage,
	}, nil
}

// ExampleQuestions suggests questions for the documents in a session.
func (e *QAEngine) ExampleQuestions(ctx context.Context, sessionID string, count int) ([]string, error) {
	sess, err := e.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	docs := sess.Documents()
	filenames := make([]string, 0, len(docs))
	for _, d := range docs {
		filenames = append(filenames, d.Filename)
	}
	return e.SuggestQuestions(ctx, filenames, count), nil
}

// SuggestQuestions never fails: any problem yields the default list.
func (e *QAEngine) SuggestQuestions(ctx context.Context, filenames []string, count int) []string {
	if count <= 0 {
		count = len(defaultExampleQuestions)
	}
	fallback := DefaultExampleQuestions()
	if len(fallback) > count {
		fallback = fallback[:count]
	}
	if len(filenames) == 0 {
		return fallback
	}

	gen, err := e.generator.Generate(ctx, buildExampleQuestionsPrompt(filenames, count), e.cfg.Examples)
	if err != nil {
		slog.Warn("example_questions_failed", "error", err)
		return fallback
	}

	questions := parseQuestionLines(gen.Text)
	if len(questions) == 0 || len(questions) > count+2 {
		slog.Warn("example_questions_unusable", "lines", len(questions), "requested", count)
		return fallback
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	return questions
}

func parseQuestionLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeftFunc(line, func(r rune) bool {
			return r == '-' || r == '*' || r == '•' || r == '.' || r == ')' || unicode.IsDigit(r) || unicode.IsSpace(r)
		})
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (e *QAEngine) logQuery(ctx context.Context, entry domain.QueryLog) {
	if e.logger == nil {
		return
	}
	if err := e.logger.LogQuery(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("query_log_failed", "session_id", entry.SessionID, "query_id", entry.ID, "error", err)
	}
}
