// Package embedding turns text into fixed-length vectors.
//
// Providers implement Embedder. Lazy defers provider construction until the first
// call and shares that construction between concurrent callers; Memo caches vectors
// for short, repeated inputs such as skill terms.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrEmbedding marks failures to load a model or embed a text.
var ErrEmbedding = errors.New("embedding failed")

// Embedder generates a vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Loader constructs an Embedder. It is called at most once per successful load.
type Loader func(ctx context.Context) (Embedder, error)

const loadKey = "model"

// Lazy loads its provider on first use and keeps it for the process lifetime.
// Returned vectors are unit length.
type Lazy struct {
	load   Loader
	logger *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	model Embedder
}

func NewLazy(load Loader, logger *zap.Logger) *Lazy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lazy{load: load, logger: logger}
}

// Embed resolves the model, then embeds and normalizes text.
func (l *Lazy) Embed(ctx context.Context, text string) ([]float32, error) {
	model, err := l.resolve(ctx)
	if err != nil {
		return nil, err
	}

	vec, err := model.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: provider returned an empty vector", ErrEmbedding)
	}

	return Normalize(vec), nil
}

// Loaded reports whether the model has been loaded.
func (l *Lazy) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.model != nil
}

func (l *Lazy) resolve(ctx context.Context) (Embedder, error) {
	l.mu.RLock()
	model := l.model
	l.mu.RUnlock()
	if model != nil {
		return model, nil
	}

	// The load outlives a cancelled first caller so that other waiters still get a model.
	loadCtx := context.WithoutCancel(ctx)
	result := l.group.DoChan(loadKey, func() (any, error) {
		l.mu.RLock()
		existing := l.model
		l.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		l.logger.Info("loading embedding model")
		started := time.Now()

		loaded, err := l.load(loadCtx)
		if err != nil {
			return nil, err
		}
		if loaded == nil {
			return nil, errors.New("loader returned no model")
		}

		l.mu.Lock()
		l.model = loaded
		l.mu.Unlock()

		l.logger.Info("embedding model loaded", zap.Duration("took", time.Since(started)))
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, ctx.Err())
	case res := <-result:
		if res.Err != nil {
			return nil, fmt.Errorf("%w: load model: %w", ErrEmbedding, res.Err)
		}
		return res.Val.(Embedder), nil
	}
}

// Memo caches vectors by exact input text. Concurrent requests for the same text
// share a single call to the underlying embedder.
type Memo struct {
	next Embedder

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string][]float32
}

func NewMemo(next Embedder) *Memo {
	return &Memo{next: next, cache: make(map[string][]float32)}
}

func (m *Memo) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.RLock()
	vec, ok := m.cache[text]
	m.mu.RUnlock()
	if ok {
		return clone(vec), nil
	}

	v, err, _ := m.group.Do(text, func() (any, error) {
		vec, err := m.next.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.cache[text] = vec
		m.mu.Unlock()
		return vec, nil
	})
	if err != nil {
		return nil, err
	}

	return clone(v.([]float32)), nil
}

// Len returns the number of cached vectors.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}

func clone(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
