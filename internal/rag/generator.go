package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/amariwest/folio/internal/profile"
)

const (
	// maxConfidence caps reported confidence; the assistant never claims
	// full certainty.
	maxConfidence = 0.95

	// defaultTopK is how many chunks a chat turn retrieves.
	defaultTopK = 5

	// defaultMinScore is the similarity threshold passed to the store.
	defaultMinScore = 0.3
)

// Answer is the complete result of one chat turn.
type Answer struct {
	Answer     string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	Confidence float32    `json:"confidence"`
}

// Turn is the prepared state of one chat turn: retrieval done, prompt
// assembled, citations extracted. Preparing before generating is what lets
// the transport send citation metadata ahead of any generated text.
type Turn struct {
	Citations  []Citation
	Confidence float32

	query    string
	chunks   []Retrieved
	messages []*ai.Message
	fallback bool
}

// Fallback reports whether this turn will be answered by the rule-based
// responder instead of the model.
func (t *Turn) Fallback() bool { return t.fallback }

// EngineConfig configures an Engine.
type EngineConfig struct {
	Genkit    *genkit.Genkit // nil = generation unavailable, fallback only
	ModelName string         // provider-qualified, e.g. "openai/gpt-4o-mini"
	Retriever *Retriever
	Store     *Store
	Profile   profile.Profile

	// Temperature is the sampling temperature; nil means the default 0.7.
	// A pointer so an explicit 0 (deterministic output) is distinguishable
	// from unset.
	Temperature *float32

	MaxTokens int // default 1024
	TopK        int
	MinScore    float32

	Logger *slog.Logger
}

// Engine orchestrates retrieve → assemble → generate, with an explicit
// two-variant strategy: the provider-backed responder when every dependency
// is available, the local rule-based responder otherwise. The selection is a
// capability check per request, not exception interception — though any
// failure of the primary path still degrades rather than erroring, as the
// outer safety net.
type Engine struct {
	g         *genkit.Genkit
	modelName string
	retriever *Retriever
	store     *Store
	fallback  *Fallback

	temperature float32
	maxTokens   int
	topK        int
	minScore    float32

	logger *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	temperature := float32(0.7)
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	minScore := cfg.MinScore
	if minScore == 0 {
		minScore = defaultMinScore
	}

	return &Engine{
		g:           cfg.Genkit,
		modelName:   cfg.ModelName,
		retriever:   cfg.Retriever,
		store:       cfg.Store,
		fallback:    NewFallback(cfg.Profile),
		temperature: temperature,
		maxTokens:   maxTokens,
		topK:        topK,
		minScore:    minScore,
		logger:      logger,
	}
}

// available reports whether the provider-backed path can serve a request.
func (e *Engine) available(ctx context.Context) bool {
	return e.g != nil &&
		e.retriever != nil &&
		e.retriever.embedder.Available() &&
		e.store.Available(ctx)
}

// Prepare runs retrieval and prompt assembly for one chat turn. It never
// fails: any error on the primary path degrades to a fallback turn.
func (e *Engine) Prepare(ctx context.Context, query string, chatCtx Context) *Turn {
	if !e.available(ctx) {
		e.logger.Debug("provider path unavailable, using fallback")
		return e.fallbackTurn(query)
	}

	opts := RetrieveOptions{Limit: e.topK, MinScore: e.minScore}
	if chatCtx.Enabled && chatCtx.ItemID != "" {
		opts.Filter = Filter{ItemID: chatCtx.ItemID}
		opts.BoostItemID = chatCtx.ItemID
	}

	chunks, err := e.retriever.Retrieve(ctx, query, opts)
	if err != nil {
		e.logger.Warn("retrieval failed, using fallback", "error", err)
		return e.fallbackTurn(query)
	}

	return &Turn{
		Citations:  ExtractCitations(chunks),
		Confidence: confidence(chunks),
		query:      query,
		chunks:     chunks,
		messages:   BuildMessages(query, chunks, chatCtx),
	}
}

// Respond generates the complete answer for a turn (non-streaming).
func (e *Engine) Respond(ctx context.Context, turn *Turn) (*Answer, error) {
	if turn.fallback {
		return e.fallback.Respond(turn.query), nil
	}

	resp, err := e.generate(ctx, turn, nil)
	if err != nil {
		e.logger.Warn("generation failed, using fallback", "error", err)
		return e.fallback.Respond(turn.query), nil
	}

	return &Answer{
		Answer:     resp.Text(),
		Citations:  turn.Citations,
		Confidence: turn.Confidence,
	}, nil
}

// Stream generates the answer for a turn, invoking onChunk for each text
// fragment in provider-yield order. If generation fails before any fragment
// was delivered, the fallback responder takes over as a simulated stream; a
// mid-stream failure is returned to the caller, which terminates the client
// stream with an error event.
func (e *Engine) Stream(ctx context.Context, turn *Turn, onChunk func(text string) error) (*Answer, error) {
	if turn.fallback {
		return e.fallback.Stream(ctx, turn.query, onChunk)
	}

	delivered := false
	resp, err := e.generate(ctx, turn, func(_ context.Context, chunk *ai.ModelResponseChunk) error {
		text := chunk.Text()
		if text == "" {
			return nil
		}
		delivered = true
		return onChunk(text)
	})
	if err != nil {
		if delivered {
			return nil, fmt.Errorf("generation failed mid-stream: %w", err)
		}
		e.logger.Warn("generation failed before streaming, using fallback", "error", err)
		return e.fallback.Stream(ctx, turn.query, onChunk)
	}

	return &Answer{
		Answer:     resp.Text(),
		Citations:  turn.Citations,
		Confidence: turn.Confidence,
	}, nil
}

// generate calls the chat-completion model. The request context is passed
// through so a client disconnect cancels the in-flight provider call.
func (e *Engine) generate(ctx context.Context, turn *Turn, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	opts := []ai.GenerateOption{
		ai.WithMessages(turn.messages...),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     float64(e.temperature),
			MaxOutputTokens: e.maxTokens,
		}),
	}
	if e.modelName != "" {
		opts = append(opts, ai.WithModelName(e.modelName))
	}
	if cb != nil {
		opts = append(opts, ai.WithStreaming(cb))
	}

	resp, err := genkit.Generate(ctx, e.g, opts...)
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}
	return resp, nil
}

func (e *Engine) fallbackTurn(query string) *Turn {
	answer := e.fallback.Respond(query)
	return &Turn{
		Citations:  answer.Citations,
		Confidence: answer.Confidence,
		query:      query,
		fallback:   true,
	}
}

// confidence is the mean similarity of retrieved chunks, capped. Zero
// retrieved chunks report the fallback confidence: the answer will come
// from persona knowledge, not grounded passages.
func confidence(chunks []Retrieved) float32 {
	if len(chunks) == 0 {
		return fallbackConfidence
	}
	var sum float32
	for _, c := range chunks {
		sum += c.Similarity
	}
	return min(sum/float32(len(chunks)), maxConfidence)
}
