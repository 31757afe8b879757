package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"charactermemory/internal/character"
	"charactermemory/internal/entity"
	"charactermemory/internal/llm"
	"charactermemory/internal/memory"
	"charactermemory/internal/models"
	"charactermemory/internal/mood"
	"charactermemory/internal/prompt"
	"charactermemory/internal/relationship"

	"golang.org/x/time/rate"
)

// Config tunes the turn state machine's timing budgets.
type Config struct {
	TurnTimeout     time.Duration
	PersistGrace    time.Duration
	PromptMaxChars  int
	QueueSize       int
	MinTurnInterval time.Duration
}

// DefaultConfig matches spec.md section 4.6's defaults.
func DefaultConfig() Config {
	return Config{
		TurnTimeout:     2500 * time.Millisecond,
		PersistGrace:    500 * time.Millisecond,
		PromptMaxChars:  prompt.DefaultMaxChars,
		QueueSize:       1,
		MinTurnInterval: 60 * time.Second,
	}
}

// Orchestrator wires the four core engines plus ambient collaborators
// (character loader, LLM client) into the single-turn pipeline.
type Orchestrator struct {
	cfg Config

	memoryEngine       *memory.Engine
	relationshipEngine *relationship.Engine
	moodStore          *mood.Store
	characters         character.Loader
	llmInvoker         *llm.Invoker

	registry *Registry
	logger   *slog.Logger
}

// New constructs an Orchestrator.
func New(cfg Config, memEngine *memory.Engine, relEngine *relationship.Engine, moodStore *mood.Store, characters character.Loader, llmInvoker *llm.Invoker, logger *slog.Logger) *Orchestrator {
	minIntervalRate := rate.Inf
	if cfg.MinTurnInterval > 0 {
		minIntervalRate = rate.Every(cfg.MinTurnInterval)
	}
	return &Orchestrator{
		cfg:                cfg,
		memoryEngine:       memEngine,
		relationshipEngine: relEngine,
		moodStore:          moodStore,
		characters:         characters,
		llmInvoker:         llmInvoker,
		registry:           NewRegistry(cfg.QueueSize, minIntervalRate),
		logger:             logger,
	}
}

// ChatRequest is one inbound user turn.
type ChatRequest struct {
	CharacterID    string
	UserID         string
	ConversationID string
	Message        string
}

// ChatResult is what the HTTP surface renders back to the caller.
type ChatResult struct {
	Response              string
	CharacterName         string
	Relationship          *models.RelationshipState
	Mood                  *models.CharacterState
	LeveledUp             bool
	Reward                *models.Reward
	ClarificationRequired bool
	AmbiguousReferences   []string
}

// Handle runs the full turn state machine:
// Start → Preflight → (MoodUpdate ∥ EntityExtract/MemoryIngestUser) →
// Retrieve → AmbiguityCheck → (Clarify | LLMCall) → Analyze → Persist → Reply.
func (o *Orchestrator) Handle(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	turnStart := time.Now()
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("character_id", req.CharacterID, "user_id", req.UserID)

	desc, err := o.characters.Get(req.CharacterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	if req.ConversationID == "" {
		req.ConversationID = "default"
	}

	key := pairKey(req.CharacterID, req.UserID)
	release, err := o.registry.Acquire(key)
	if err != nil {
		return nil, err
	}
	defer release()

	turnCtx, cancel := context.WithTimeout(ctx, o.cfg.TurnTimeout)
	defer cancel()

	type moodResult struct {
		state *models.CharacterState
		err   error
	}
	type ingestResult struct {
		res *memory.IngestResult
		err error
	}

	moodCh := make(chan moodResult, 1)
	ingestCh := make(chan ingestResult, 1)

	go func() {
		state, err := o.moodStore.UpdateFromMessage(turnCtx, req.CharacterID, req.UserID, req.Message, "user")
		moodCh <- moodResult{state, err}
	}()
	go func() {
		res, err := o.memoryEngine.Ingest(turnCtx, req.CharacterID, req.UserID, req.ConversationID, req.Message, models.MemoryTypeUserMessage)
		ingestCh <- ingestResult{res, err}
	}()

	var moodState *models.CharacterState
	var ingest *memory.IngestResult

	for i := 0; i < 2; i++ {
		select {
		case mr := <-moodCh:
			if mr.err != nil {
				logger.Warn("mood update failed, degrading", "error", mr.err)
			}
			moodState = mr.state
		case ir := <-ingestCh:
			if ir.err != nil {
				logger.Warn("memory ingest failed, degrading to reply without persisted context", "error", ir.err)
			}
			ingest = ir.res
		case <-turnCtx.Done():
			o.persistBestEffort(req)
			return o.cannedResult(desc), nil
		}
	}

	if ingest != nil && len(ingest.Ambiguous) > 0 {
		clarification := entity.ClarificationPrompt(ingest.Ambiguous[0], nil)
		return &ChatResult{
			Response:              clarification,
			CharacterName:         desc.Name,
			ClarificationRequired: true,
			AmbiguousReferences:   ingest.Ambiguous,
		}, nil
	}

	bundle, err := o.memoryEngine.GetContext(turnCtx, memory.GetContextRequest{
		CharacterID:      req.CharacterID,
		UserID:           req.UserID,
		ConversationID:   req.ConversationID,
		IncludeEmotional: true,
	})
	if err != nil {
		logger.Warn("context retrieval failed, degrading", "error", err)
		bundle = &models.ContextBundle{}
	}

	assembled := prompt.Assemble(prompt.Request{
		PersonaFields:   desc.PersonaFields,
		PersonalDetails: bundle.PersonalDetails,
		Context:         bundle,
		Mood:            moodState,
		UserMessage:     req.Message,
		MaxChars:        o.cfg.PromptMaxChars,
	})

	genResult := o.llmInvoker.Invoke(turnCtx, assembled, req.Message, req.UserID)
	response := genResult.Text

	if _, err := o.memoryEngine.Ingest(turnCtx, req.CharacterID, req.UserID, req.ConversationID, response, models.MemoryTypeResponse); err != nil {
		logger.Warn("response persist failed", "error", err)
	}

	relResult, err := o.relationshipEngine.UpdateExchange(turnCtx, req.UserID, req.CharacterID, req.Message, response, time.Since(turnStart).Minutes())
	if err != nil && !errors.Is(err, relationship.ErrTooSoon) {
		logger.Warn("relationship update failed, still replying", "error", err)
	}

	result := &ChatResult{
		Response:      response,
		CharacterName: desc.Name,
		Mood:          moodState,
	}
	if relResult != nil {
		result.Relationship = relResult.State
		result.LeveledUp = relResult.LeveledUp
		result.Reward = relResult.Reward
	}

	return result, nil
}

// persistBestEffort attempts to persist the raw user message within a short
// grace period detached from the (already expired) turn context, per
// SPEC_FULL.md section 4.6's cancellation contract.
func (o *Orchestrator) persistBestEffort(req ChatRequest) {
	graceCtx, cancel := context.WithTimeout(context.Background(), o.cfg.PersistGrace)
	defer cancel()
	if _, err := o.memoryEngine.Ingest(graceCtx, req.CharacterID, req.UserID, req.ConversationID, req.Message, models.MemoryTypeUserMessage); err != nil {
		slog.Default().Warn("grace-period persist failed", "error", err)
	}
}

func (o *Orchestrator) cannedResult(desc *models.CharacterDescriptor) *ChatResult {
	return &ChatResult{
		Response:      "I need just a moment to gather my thoughts — can we pick this up again?",
		CharacterName: desc.Name,
	}
}

// ErrNotFound signals the character loader couldn't resolve a character ID.
var ErrNotFound = errors.New("orchestrator: character not found")
