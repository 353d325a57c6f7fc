package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(index VectorIndex, emb Embedder, retain bool) *RetrievalStore {
	return NewRetrievalStore(index, emb, NewTextChunker(), RetrievalOptions{
		ChunkSize:     40,
		TopK:          3,
		RetainIndexes: retain,
	}, nil)
}

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "c9fde06c", DocumentID("jane.pdf"))
	assert.Len(t, DocumentID("jane.pdf"), 8)
	assert.Equal(t, DocumentID("jane.pdf"), DocumentID("/tmp/uploads/jane.pdf"))
	assert.NotEqual(t, DocumentID("jane.pdf"), DocumentID("john.pdf"))
	assert.Equal(t, "resume_"+DocumentID("jane.pdf"), IndexName("jane.pdf"))
}

func TestIndexDocumentReplacesPreviousChunks(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex()
	store := newTestStore(index, &hashEmbedder{}, true)

	name, n, err := store.IndexDocument(ctx, "jane.pdf", strings.Repeat("python sql ", 20))
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	count, err := index.Count(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	name2, n2, err := store.IndexDocument(ctx, "jane.pdf", "certified kubernetes administrator")
	require.NoError(t, err)
	assert.Equal(t, name, name2)
	assert.Equal(t, 1, n2)

	count, err = index.Count(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	text, err := store.RetrieveContext(ctx, name, "python", 3)
	require.NoError(t, err)
	assert.Equal(t, "certified kubernetes administrator", text)
}

func TestRetrieveContextRanksRelevantChunks(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(NewMemoryIndex(), &hashEmbedder{}, true)

	raw := "aaaa bbbb cccc dddd eeee ffff gggg hhhh " +
		"certifications publications awarded xxx " +
		"zzzz yyyy wwww vvvv uuuu tttt ssss rrrr "
	name, n, err := store.IndexDocument(ctx, "a.txt", raw)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	text, err := store.RetrieveContext(ctx, name, "  certifications   or publications ", 1)
	require.NoError(t, err)
	assert.Equal(t, "certifications publications awarded xxx ", text)
}

func TestContextForReleasesIndex(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex()
	store := newTestStore(index, &hashEmbedder{}, false)

	text, err := store.ContextFor(ctx, "jane.pdf", "training in go", "certifications or publications")
	require.NoError(t, err)
	assert.Equal(t, "training in go", text)

	_, err = index.Count(ctx, IndexName("jane.pdf"))
	assert.Error(t, err)
}

func TestContextForEmptyDocument(t *testing.T) {
	store := newTestStore(NewMemoryIndex(), &hashEmbedder{}, false)

	text, err := store.ContextFor(context.Background(), "empty.txt", "", "certifications or publications")
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestRetrievalErrorsAreTagged(t *testing.T) {
	store := newTestStore(NewMemoryIndex(), &hashEmbedder{err: errors.New("quota")}, false)

	_, err := store.ContextFor(context.Background(), "a.txt", "some text", "q")
	assert.ErrorIs(t, err, ErrRetrievalIndex)

	_, err = newTestStore(NewMemoryIndex(), &hashEmbedder{}, false).RetrieveContext(context.Background(), "resume_missing", "q", 3)
	assert.ErrorIs(t, err, ErrRetrievalIndex)
}

func TestConcurrentIndexingOfSameNameIsSerialized(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(NewMemoryIndex(), &hashEmbedder{}, false)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text, err := store.ContextFor(ctx, "same.pdf", "owned by worker", "q")
			assert.NoError(t, err)
			results[i] = text
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "owned by worker", r)
	}
}
