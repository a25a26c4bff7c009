package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubEmbedder struct {
	calls atomic.Int32
	vec   []float32
	err   error
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func TestLazyLoadsOnceUnderConcurrency(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})

	lazy := NewLazy(func(context.Context) (Embedder, error) {
		loads.Add(1)
		<-release
		return &stubEmbedder{vec: []float32{3, 4}}, nil
	}, zap.NewNop())

	const callers = 16
	var wg sync.WaitGroup
	results := make([][]float32, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = lazy.Embed(context.Background(), "python")
		}(i)
	}

	// let callers pile up on the in-flight load
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	assert.True(t, lazy.Loaded())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.InDeltaSlice(t, []float32{0.6, 0.8}, results[i], 1e-6)
	}

	_, err := lazy.Embed(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, int32(1), loads.Load())
}

func TestLazyLoadFailureIsNotCached(t *testing.T) {
	var loads atomic.Int32
	lazy := NewLazy(func(context.Context) (Embedder, error) {
		if loads.Add(1) == 1 {
			return nil, errors.New("model file missing")
		}
		return &stubEmbedder{vec: []float32{1}}, nil
	}, nil)

	_, err := lazy.Embed(context.Background(), "go")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.ErrorContains(t, err, "model file missing")
	assert.False(t, lazy.Loaded())

	_, err = lazy.Embed(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, int32(2), loads.Load())
}

func TestLazyWrapsProviderErrors(t *testing.T) {
	lazy := NewLazy(func(context.Context) (Embedder, error) {
		return &stubEmbedder{err: errors.New("quota exceeded")}, nil
	}, nil)

	_, err := lazy.Embed(context.Background(), "go")
	assert.ErrorIs(t, err, ErrEmbedding)
	assert.ErrorContains(t, err, "quota exceeded")

	empty := NewLazy(func(context.Context) (Embedder, error) {
		return &stubEmbedder{vec: []float32{}}, nil
	}, nil)
	_, err = empty.Embed(context.Background(), "go")
	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestMemoCachesByText(t *testing.T) {
	stub := &stubEmbedder{vec: []float32{1, 0}}
	memo := NewMemo(stub)

	first, err := memo.Embed(context.Background(), "Python")
	require.NoError(t, err)
	first[0] = 42

	second, err := memo.Embed(context.Background(), "Python")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, second, "cached vectors must not be shared with callers")

	_, err = memo.Embed(context.Background(), "Go")
	require.NoError(t, err)

	assert.Equal(t, int32(2), stub.calls.Load())
	assert.Equal(t, 2, memo.Len())
}

func TestMemoDoesNotCacheErrors(t *testing.T) {
	stub := &stubEmbedder{err: errors.New("boom")}
	memo := NewMemo(stub)

	_, err := memo.Embed(context.Background(), "Go")
	require.Error(t, err)
	assert.Zero(t, memo.Len())
}

func TestNewLoader(t *testing.T) {
	load, err := NewLoader(Config{Dimensions: 16}, nil)
	require.NoError(t, err)

	model, err := load(context.Background())
	require.NoError(t, err)
	require.IsType(t, &HashModel{}, model)
	assert.Equal(t, 16, model.(*HashModel).Dimensions())

	load, err = NewLoader(Config{Provider: " Ollama "}, nil)
	require.NoError(t, err)
	model, err = load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaultOllamaModel, model.(*Ollama).Model())

	load, err = NewLoader(Config{Provider: ProviderGemini}, nil)
	require.NoError(t, err)
	_, err = load(context.Background())
	assert.ErrorContains(t, err, "api key is required")

	_, err = NewLoader(Config{Provider: "word2vec"}, nil)
	assert.ErrorContains(t, err, "unsupported embedding provider")
}
