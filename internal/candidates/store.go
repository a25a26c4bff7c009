package candidates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/cv-ranker/internal/embedding"
	"github.com/spigell/cv-ranker/internal/logger"
)

// Failure policies for documents that cannot be ingested.
const (
	PolicyAbort = "abort"
	PolicySkip  = "skip"
)

const (
	defaultWorkers = 4
	logPreviewLen  = 80
)

// Options configures Initialize.
type Options struct {
	Source    DocumentSource
	Extractor TextExtractor
	Emails    EmailMapping
	Embedder  embedding.Embedder
	// Workers bounds concurrent extraction and embedding.
	Workers int
	// OnError is PolicyAbort (default) or PolicySkip.
	OnError string
	Logger  *zap.Logger
}

// Store is the fixed pool of candidates. Its order is the listing order of the
// documents and never changes; rankings are views on top of it.
type Store struct {
	items []Candidate
	index map[string]int
}

// NewStore builds a store from ready candidates. Ids must be unique.
func NewStore(items []Candidate) (*Store, error) {
	s := &Store{
		items: make([]Candidate, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for _, c := range items {
		if _, dup := s.index[c.ID]; dup {
			return nil, &InitError{Document: c.ID, Err: errors.New("duplicate candidate id")}
		}
		c.Score = 0
		s.index[c.ID] = len(s.items)
		s.items = append(s.items, c)
	}
	return s, nil
}

// Initialize extracts, embeds and collects every document of the source. With the
// abort policy the first failure cancels the remaining work and no store is returned.
func Initialize(ctx context.Context, opts Options) (*Store, error) {
	if opts.Source == nil || opts.Extractor == nil || opts.Embedder == nil {
		return nil, errors.New("source, extractor and embedder are required")
	}

	log := logger.WithFields(opts.Logger)
	policy := strings.ToLower(strings.TrimSpace(opts.OnError))
	switch policy {
	case "":
		policy = PolicyAbort
	case PolicyAbort, PolicySkip:
	default:
		return nil, fmt.Errorf("unknown failure policy %q", opts.OnError)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	docs, err := opts.Source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	log.Info("ingesting resumes",
		zap.Int("documents", len(docs)),
		zap.Int("workers", workers),
		zap.String("on_error", policy),
	)
	started := time.Now()

	built := make([]*Candidate, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, doc := range docs {
		g.Go(func() error {
			c, err := build(gctx, opts, doc)
			if err != nil {
				initErr := &InitError{Document: doc.Name, Err: err}
				if policy == PolicySkip {
					log.Warn("skipping resume", zap.String("document", doc.Name), zap.Error(err))
					return nil
				}
				return initErr
			}

			log.Debug("resume ingested",
				zap.String(logger.FieldCandidate, c.ID),
				zap.Bool("has_email", c.HasEmail()),
				zap.String("text_preview", logger.Preview(c.Text, logPreviewLen)),
			)
			built[i] = c
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]Candidate, 0, len(built))
	seen := make(map[string]string, len(built))
	for i, c := range built {
		if c == nil {
			continue
		}
		if first, dup := seen[c.ID]; dup {
			err := &InitError{Document: docs[i].Name, Err: fmt.Errorf("candidate id %q already taken by %s", c.ID, first)}
			if policy == PolicySkip {
				log.Warn("skipping resume", zap.String("document", docs[i].Name), zap.Error(err.Err))
				continue
			}
			return nil, err
		}
		seen[c.ID] = docs[i].Name
		items = append(items, *c)
	}

	store, err := NewStore(items)
	if err != nil {
		return nil, err
	}

	log.Info("loaded resumes",
		zap.Int("count", store.Len()),
		zap.Int("skipped", len(docs)-store.Len()),
		zap.Duration("took", time.Since(started)),
	)
	return store, nil
}

func build(ctx context.Context, opts Options, doc Document) (*Candidate, error) {
	text, err := opts.Extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	vec, err := opts.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	return &Candidate{
		ID:        doc.ID,
		Email:     opts.Emails.Get(doc.ID),
		Text:      text,
		Embedding: vec,
	}, nil
}

func (s *Store) Len() int { return len(s.items) }

// Candidates returns a copy of the candidates in store order.
func (s *Store) Candidates() []Candidate {
	out := make([]Candidate, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns a candidate by id.
func (s *Store) Get(id string) (Candidate, bool) {
	i, ok := s.index[id]
	if !ok {
		return Candidate{}, false
	}
	return s.items[i], true
}

// SetScores overwrites every score. scores is indexed in store order.
func (s *Store) SetScores(scores []float64) error {
	if len(scores) != len(s.items) {
		return fmt.Errorf("got %d scores for %d candidates", len(scores), len(s.items))
	}
	for i := range s.items {
		s.items[i].Score = scores[i]
	}
	return nil
}

// ResetScores sets every score back to 0.
func (s *Store) ResetScores() {
	for i := range s.items {
		s.items[i].Score = 0
	}
}
