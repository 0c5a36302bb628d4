// Package core wires extraction, inference, storage, ranking, and assembly
// into the one entry point the surrounding application calls per turn.
package core

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/kontexthq/kontext/internal/config"
	"github.com/kontexthq/kontext/internal/core/assemble"
	"github.com/kontexthq/kontext/internal/core/extraction"
	"github.com/kontexthq/kontext/internal/core/inference"
	"github.com/kontexthq/kontext/internal/core/model"
	"github.com/kontexthq/kontext/internal/core/ranking"
	"github.com/kontexthq/kontext/internal/core/tokens"
	"github.com/kontexthq/kontext/internal/store"
)

// queryLimit bounds how much stored knowledge one turn considers before
// ranking prunes it.
const queryLimit = 100

// TurnResult is everything ProcessTurn produced for one user message.
type TurnResult struct {
	TurnID    string          `json:"turn_id"`
	Prompt    string          `json:"prompt"`
	Extracted []model.Entity  `json:"extracted"`
	Selection model.Selection `json:"selection"`
}

type Engine struct {
	store      store.KnowledgeStore
	extractor  *extraction.Extractor
	inferencer *inference.Inferencer
	estimator  tokens.Estimator
	selector   *ranking.Selector
	assembler  *assemble.Assembler
	cfg        config.EngineConfig
	logger     *log.Logger

	// roll decides the per-request cleanup trigger; injectable in tests.
	roll func() float64
}

func NewEngine(st store.KnowledgeStore, cfg config.EngineConfig, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	est := tokens.NewHeuristicEstimator()
	ext := extraction.NewExtractor()
	if cfg.MaxExtracted > 0 {
		ext.MaxEntities = cfg.MaxExtracted
	}
	sel := ranking.NewSelector(ranking.Config{
		ConfidenceWeight:    cfg.ConfidenceWeight,
		RecencyWeight:       cfg.RecencyWeight,
		SimilarityWeight:    cfg.SimilarityWeight,
		RelevanceThreshold:  cfg.RelevanceThreshold,
		SimilarityThreshold: cfg.SimilarityThreshold,
		DecayHours:          cfg.DecayHours,
		MaxEntities:         cfg.MaxEntities,
		MaxRelationships:    cfg.MaxRelationships,
	}, est)
	return &Engine{
		store:      st,
		extractor:  ext,
		inferencer: inference.NewInferencer(),
		estimator:  est,
		selector:   sel,
		assembler:  assemble.NewAssembler(est),
		cfg:        cfg,
		logger:     logger,
		roll:       rand.Float64,
	}
}

// ProcessTurn runs the full pipeline for one user message and returns the
// prompt to hand to the generative text service. Storage trouble degrades
// the prompt, it never fails the turn; the only error out of here is a dead
// context.
func (e *Engine) ProcessTurn(ctx context.Context, userID, message string, facts *model.ProfileFacts) (TurnResult, error) {
	if err := ctx.Err(); err != nil {
		return TurnResult{}, err
	}
	now := time.Now().UTC()
	result := TurnResult{TurnID: uuid.New().String()}

	result.Extracted = e.extractor.Extract(message, facts)
	rels := e.inferencer.Infer(result.Extracted)

	// Snapshot stored knowledge before this turn's upsert: the prompt may
	// only claim context accumulated on previous turns, so a brand-new user
	// gets the short template even though extraction succeeded.
	stored, err := e.store.QueryEntities(ctx, userID, e.cfg.MinConfidenceFloor, queryLimit)
	if err != nil {
		e.logger.Warn("entity query failed, proceeding without stored knowledge", "turn", result.TurnID, "err", err)
	}
	storedRels, err := e.store.QueryRelationships(ctx, userID, e.cfg.MinStrengthFloor, queryLimit)
	if err != nil {
		e.logger.Warn("relationship query failed", "turn", result.TurnID, "err", err)
	}

	if len(result.Extracted) > 0 {
		if err := e.store.UpsertEntities(ctx, userID, result.Extracted); err != nil {
			e.logger.Warn("entity upsert failed", "turn", result.TurnID, "err", err)
		}
	}
	if len(rels) > 0 {
		if err := e.store.UpsertRelationships(ctx, userID, rels); err != nil {
			e.logger.Warn("relationship upsert failed", "turn", result.TurnID, "err", err)
		}
	}

	sel := e.selector.Select(result.Extracted, stored, storedRels, message, now, e.cfg.TokenBudget)
	if !sel.Empty() {
		sel.RenderedContext = e.assembler.RenderKnowledge(sel)
	}
	result.Selection = sel
	result.Prompt = e.assembler.Assemble(message, sel, facts)

	e.logger.Debug("turn processed",
		"turn", result.TurnID,
		"user", userID,
		"extracted", len(result.Extracted),
		"selected", len(sel.Entities),
		"tokens", sel.TokenCount,
		"boilerplate", e.assembler.BoilerplateCost(message, facts))

	e.maybeCleanup(ctx, userID)
	return result, nil
}

// maybeCleanup runs the maintenance sweep for this user on a low-probability
// per-request trigger, detached from the request path.
func (e *Engine) maybeCleanup(ctx context.Context, userID string) {
	if e.cfg.CleanupChance <= 0 || e.roll() >= e.cfg.CleanupChance {
		return
	}
	sweep := context.WithoutCancel(ctx)
	go func() {
		if _, err := e.CleanupUser(sweep, userID); err != nil {
			e.logger.Warn("background cleanup failed", "user", userID, "err", err)
		}
	}()
}

// CleanupUser removes this user's stale low-value knowledge: records older
// than max_age_days AND below the confidence/strength floors.
func (e *Engine) CleanupUser(ctx context.Context, userID string) (int, error) {
	maxAge := time.Duration(e.cfg.MaxAgeDays) * 24 * time.Hour
	return e.store.Cleanup(ctx, userID, maxAge, e.cfg.MinConfidenceFloor, e.cfg.MinStrengthFloor)
}

// CleanupAll sweeps every user known to the store. One user's failure never
// aborts the others; the sweep stops between users when the context dies.
func (e *Engine) CleanupAll(ctx context.Context) (int, error) {
	users, err := e.store.Users(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		n, err := e.CleanupUser(ctx, u)
		if err != nil {
			e.logger.Warn("cleanup failed for user", "user", u, "err", err)
			continue
		}
		removed += n
	}
	return removed, nil
}

// ClearUser drops all accumulated knowledge for one user.
func (e *Engine) ClearUser(ctx context.Context, userID string) error {
	return e.store.ClearUser(ctx, userID)
}

// Knowledge returns this user's stored entities and relationships above the
// given confidence, for diagnostics.
func (e *Engine) Knowledge(ctx context.Context, userID string, minConfidence float64) ([]model.Entity, []model.Relationship, error) {
	entities, err := e.store.QueryEntities(ctx, userID, minConfidence, queryLimit)
	if err != nil {
		return nil, nil, err
	}
	rels, err := e.store.QueryRelationships(ctx, userID, 0, queryLimit)
	if err != nil {
		return entities, nil, err
	}
	return entities, rels, nil
}

// Ping reports whether the durable store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}
