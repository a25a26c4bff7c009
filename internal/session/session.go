// Package session holds the recruiter's ranking state: the candidate pool, the
// active skills, the weights and the latest ranking.
//
// Every operation runs under one mutex, so callers on different goroutines (HTTP
// handlers, the interactive loop) never observe a half-applied update. A scoring
// pass is computed off to the side and committed only when it succeeds.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/cv-ranker/internal/candidates"
	"github.com/spigell/cv-ranker/internal/embedding"
	"github.com/spigell/cv-ranker/internal/logger"
	"github.com/spigell/cv-ranker/internal/notify"
	"github.com/spigell/cv-ranker/internal/scoring"
)

// DefaultTopK is how many candidates are notified when nothing else is configured.
const DefaultTopK = 5

// ErrNotifierMissing is returned by NotifyTop when no notifier was configured.
var ErrNotifierMissing = errors.New("notifications are not configured")

type Options struct {
	Store    *candidates.Store
	Embedder embedding.Embedder
	// Factors defaults to scoring.KeywordFactors.
	Factors  []scoring.Factor
	Notifier *notify.Notifier
	// Weights defaults to scoring.DefaultWeights.
	Weights *scoring.Weights
	TopK    int
	Logger  *zap.Logger
}

// Result is the state returned to callers after a ranking-affecting operation.
type Result struct {
	Ranked       []scoring.Result `json:"ranked"`
	ActiveSkills []string         `json:"activeSkills"`
	Weights      scoring.Weights  `json:"weights"`
}

// Notification pairs the notified slice with the delivery report.
type Notification struct {
	Emailed []candidates.Candidate `json:"emailed"`
	Report  notify.Report          `json:"report"`
}

type Session struct {
	mu sync.Mutex

	store    *candidates.Store
	engine   *scoring.Engine
	notifier *notify.Notifier
	topK     int
	logger   *zap.Logger

	query   scoring.Query
	weights scoring.Weights
	// ranking is nil until the first successful scoring pass and after Reset.
	ranking []scoring.Result
}

func New(opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, errors.New("candidate store is required")
	}
	if opts.Embedder == nil {
		return nil, errors.New("embedder is required")
	}

	weights := scoring.DefaultWeights()
	if opts.Weights != nil {
		if err := opts.Weights.Validate(); err != nil {
			return nil, fmt.Errorf("configured weights: %w", err)
		}
		weights = *opts.Weights
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	log := logger.WithFields(opts.Logger).Named("session")
	return &Session{
		store:    opts.Store,
		engine:   scoring.NewEngine(embedding.NewMemo(opts.Embedder), opts.Factors, log),
		notifier: opts.Notifier,
		topK:     topK,
		logger:   log,
		weights:  weights,
	}, nil
}

// SetWeights replaces the weights. Invalid weights leave the previous ones in place.
// The current ranking is not recomputed; see Rescore.
func (s *Session) SetWeights(w scoring.Weights) (scoring.Weights, error) {
	if err := w.Validate(); err != nil {
		return s.Weights(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.weights = w
	s.logger.Info("updated weights", zap.Any("weights", w))
	return w, nil
}

// AddSkill appends a term to the query and rescores every candidate. On any error the
// query, scores and ranking stay as they were.
func (s *Session) AddSkill(ctx context.Context, term string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.query.With(term)
	if err != nil {
		return Result{}, err
	}

	if err := s.rank(ctx, q); err != nil {
		return Result{}, err
	}

	s.logger.Info("active skills", zap.Strings("skills", q.Terms()))
	return s.result(), nil
}

// Rescore applies the current query with the current weights. Without active skills it
// leaves the unranked state alone.
func (s *Session) Rescore(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.query.IsEmpty() {
		return s.result(), nil
	}
	if err := s.rank(ctx, s.query); err != nil {
		return Result{}, err
	}
	return s.result(), nil
}

// Reset clears the skills, zeroes every score and restores the store order. The
// weights are kept.
func (s *Session) Reset() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.query = scoring.Query{}
	s.ranking = nil
	s.store.ResetScores()

	s.logger.Info("skills reset")
	return s.result()
}

// Snapshot returns the current state without changing it.
func (s *Session) Snapshot() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result()
}

// TopK returns the first min(k, n) candidates of the current ranking, or of the store
// order when nothing has been ranked yet.
func (s *Session) TopK(k int) []candidates.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.top(k)
}

// NotifyTop notifies the configured number of top candidates for the active skills.
func (s *Session) NotifyTop(ctx context.Context) (Notification, error) {
	if s.notifier == nil {
		return Notification{}, ErrNotifierMissing
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	top := s.top(s.topK)
	report := s.notifier.Notify(ctx, top, s.query.Terms())
	return Notification{Emailed: top, Report: report}, nil
}

func (s *Session) Weights() scoring.Weights {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weights
}

func (s *Session) Skills() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query.Terms()
}

// Describe lists the scoring components with their current weights.
func (s *Session) Describe() []scoring.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scoring.Describe(s.engine.Factors(), s.weights, s.query)
}

func (s *Session) TopKSize() int { return s.topK }

// rank scores the store for q and commits query, scores and ranking together.
func (s *Session) rank(ctx context.Context, q scoring.Query) error {
	results, err := s.engine.Score(ctx, s.store.Candidates(), q, s.weights)
	if err != nil {
		s.logger.Error("scoring failed", zap.Strings("skills", q.Terms()), zap.Error(err))
		return err
	}

	scores := make([]float64, s.store.Len())
	for _, r := range results {
		scores[r.Index] = r.Score
	}
	if err := s.store.SetScores(scores); err != nil {
		return err
	}

	s.query = q
	s.ranking = results
	return nil
}

func (s *Session) result() Result {
	return Result{
		Ranked:       s.view(),
		ActiveSkills: s.query.Terms(),
		Weights:      s.weights,
	}
}

// view returns a copy of the ranking, or the unscored store order.
func (s *Session) view() []scoring.Result {
	if s.ranking != nil {
		out := make([]scoring.Result, len(s.ranking))
		copy(out, s.ranking)
		return out
	}

	cands := s.store.Candidates()
	out := make([]scoring.Result, len(cands))
	for i, c := range cands {
		out[i] = scoring.Result{Index: i, ID: c.ID, Email: c.Email, Score: c.Score}
	}
	return out
}

func (s *Session) top(k int) []candidates.Candidate {
	if k < 0 {
		k = 0
	}
	view := s.view()
	k = min(k, len(view))

	cands := s.store.Candidates()
	out := make([]candidates.Candidate, 0, k)
	for _, r := range view[:k] {
		out = append(out, cands[r.Index])
	}
	return out
}
