// Package retrieval implements C8: turning a query into a deduplicated,
// deterministically ordered set of candidate note references.
package retrieval

import (
	"context"
	"sort"

	"github.com/omars-lab/knowledge-agents/internal/config"
	"github.com/omars-lab/knowledge-agents/internal/models"
)

// Embedder produces a query vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, apiToken, text string) ([]float32, error)
	Dimension() int
}

// Searcher performs nearest-neighbour search over a named collection.
type Searcher interface {
	Search(ctx context.Context, collection string, vector []float32, topN int) ([]models.NoteReference, error)
}

// Retriever runs the embed-then-search step and normalizes its output.
type Retriever struct {
	embedder        Embedder
	searcher        Searcher
	collectionName  string
	topN            int
	similarityFloor *float64
}

// New builds a Retriever from Settings and its two backing clients.
func New(settings *config.Settings, embedder Embedder, searcher Searcher) *Retriever {
	return &Retriever{
		embedder:        embedder,
		searcher:        searcher,
		collectionName:  settings.CollectionName,
		topN:            settings.RetrievalTopN,
		similarityFloor: settings.SimilarityFloor,
	}
}

// Retrieve embeds query, searches the collection, deduplicates by file path
// (keeping the highest-scoring occurrence), and sorts the result
// deterministically: descending similarity score, ascending file path on
// ties. An empty result is a legal outcome, not an error.
func (r *Retriever) Retrieve(ctx context.Context, apiToken, query string) (models.RetrievalResult, error) {
	vector, err := r.embedder.Embed(ctx, apiToken, query)
	if err != nil {
		return models.RetrievalResult{}, err
	}

	raw, err := r.searcher.Search(ctx, r.collectionName, vector, r.topN)
	if err != nil {
		return models.RetrievalResult{}, err
	}

	byPath := make(map[string]models.NoteReference, len(raw))
	for _, ref := range raw {
		if r.similarityFloor != nil && ref.SimilarityScore < *r.similarityFloor {
			continue
		}
		existing, ok := byPath[ref.FilePath]
		if !ok || ref.SimilarityScore > existing.SimilarityScore {
			byPath[ref.FilePath] = ref
		}
	}

	deduped := make([]models.NoteReference, 0, len(byPath))
	for _, ref := range byPath {
		deduped = append(deduped, ref)
	}
	sort.Slice(deduped, func(i, j int) bool {
		if deduped[i].SimilarityScore != deduped[j].SimilarityScore {
			return deduped[i].SimilarityScore > deduped[j].SimilarityScore
		}
		return deduped[i].FilePath < deduped[j].FilePath
	})

	return models.RetrievalResult{
		References:        deduped,
		QueryEmbeddingDim: r.embedder.Dimension(),
		CollectionName:    r.collectionName,
	}, nil
}
