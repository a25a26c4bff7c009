// Package scoring ranks candidates by a weighted mix of skill similarity and
// keyword factors.
package scoring

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/spigell/cv-ranker/internal/candidates"
	"github.com/spigell/cv-ranker/internal/embedding"
	"github.com/spigell/cv-ranker/internal/logger"
)

// Breakdown holds the unweighted components of a composite score.
type Breakdown struct {
	Skill   float64            `json:"skill"`
	Factors map[string]float64 `json:"factors"`
}

// Result is one scored candidate.
type Result struct {
	// Index is the candidate's position in the slice passed to Score.
	Index     int       `json:"-"`
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Score     float64   `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
}

// Engine computes composite scores. It holds no ranking state of its own.
type Engine struct {
	embedder embedding.Embedder
	factors  []Factor
	logger   *zap.Logger
}

// NewEngine creates an engine. Nil factors means KeywordFactors.
func NewEngine(embedder embedding.Embedder, factors []Factor, log *zap.Logger) *Engine {
	if factors == nil {
		factors = KeywordFactors()
	}
	return &Engine{
		embedder: embedder,
		factors:  factors,
		logger:   logger.WithFields(log),
	}
}

func (e *Engine) Factors() []Factor {
	return append([]Factor(nil), e.factors...)
}

// Score computes every candidate's composite score for the query and weights and
// returns them sorted by score, highest first. Equal scores keep input order.
// An embedding failure aborts the whole pass.
func (e *Engine) Score(ctx context.Context, cands []candidates.Candidate, q Query, w Weights) ([]Result, error) {
	terms, err := e.embedTerms(ctx, q)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(cands))
	for i, c := range cands {
		skill, err := skillScore(c, terms)
		if err != nil {
			return nil, err
		}

		breakdown := Breakdown{Skill: skill, Factors: make(map[string]float64, len(e.factors))}
		score := float64(w.Skill) / weightTotal * skill
		for _, f := range e.factors {
			v := f.Value(c.Text)
			breakdown.Factors[f.Name()] = v
			score += float64(f.Weight(w)) / weightTotal * v
		}

		results[i] = Result{
			Index:     i,
			ID:        c.ID,
			Email:     c.Email,
			Score:     score,
			Breakdown: breakdown,
		}
	}

	Sort(results)

	e.logger.Debug("scored candidates",
		zap.Int("candidates", len(results)),
		zap.Int("terms", q.Len()),
		zap.Any("weights", w),
	)
	return results, nil
}

// Sort orders results by descending score, keeping the relative order of ties.
func Sort(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func (e *Engine) embedTerms(ctx context.Context, q Query) ([][]float32, error) {
	terms := q.Terms()
	vectors := make([][]float32, 0, len(terms))
	for _, term := range terms {
		vec, err := e.embedder.Embed(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("embed skill %q: %w", term, err)
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

// skillScore averages the cosine similarity of the candidate against every term.
// Without terms it is 0.
func skillScore(c candidates.Candidate, terms [][]float32) (float64, error) {
	if len(terms) == 0 {
		return 0, nil
	}

	var sum float64
	for _, term := range terms {
		if len(term) != len(c.Embedding) {
			return 0, fmt.Errorf("%w: candidate %s has %d dimensions, skill vector has %d",
				embedding.ErrEmbedding, c.ID, len(c.Embedding), len(term))
		}
		sum += embedding.Cosine(c.Embedding, term)
	}
	return sum / float64(len(terms)), nil
}
