// Package retrieve implements C8, the hybrid retriever: BM25 and vector
// search run concurrently, fused by unweighted Reciprocal Rank Fusion,
// rescored by recency decay and memory-type weighting, then expanded one
// hop across the chunk-link graph.
//
// The parallel-dispatch shape is grounded on the teacher's
// search/engine.go; the RRF accumulation and deterministic sort on
// pkg/searcher/fusion.go's fuseResults, simplified to spec §4.8's
// unweighted, single-pass variant (the teacher supports per-source
// weights and a query classifier; spec names neither).
package retrieve

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rishitank/holocron/internal/chunk"
	"github.com/rishitank/holocron/internal/herrors"
	"github.com/rishitank/holocron/internal/store"
)

func wallClockMillis() int64 { return time.Now().UnixMilli() }

// RRFConstant is spec §4.8's fixed smoothing constant.
const RRFConstant = 60

const (
	decayFloor         = 0.5
	decayPerMonth      = 0.95
	monthMillis        = 30 * 24 * 3600 * 1000
	semanticTypeWeight = 1.0
	proceduralWeight   = 0.8

	graphHopSeedCount = 5
	graphHopLinkLimit = 3
	graphHopMinSim    = 0.9
	graphHopDiscount  = 0.5
)

// Embedder is the subset of internal/embed.Embedder the retriever needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Store is the subset of internal/store.Store the retriever reads from.
type Store interface {
	SearchBM25(query string, topK int) ([]store.SearchHit, error)
	SearchVector(queryVec []float32, topK int) ([]store.SearchHit, error)
	GetLinks(srcID string, limit int) ([]store.Link, error)
	GetChunkByID(id string) (*store.ChunkMeta, error)
	HasVectors() bool
}

// Options configures one Search call (spec §4.8).
type Options struct {
	MaxResults int
	MinScore   float64
	Languages  []string
	// Directory restricts results to chunks whose file path falls under
	// this directory (spec.md §2's directory filter). Empty means no
	// restriction.
	Directory string
}

// SearchResult is one ranked hit (spec §4.8's emitted SearchResult).
type SearchResult struct {
	Chunk  store.ChunkMeta
	Score  float64
	Source string
}

// Engine runs hybrid search against one store/embedder pair.
type Engine struct {
	store    Store
	embedder Embedder
	nowFn    func() int64
}

// New builds an Engine. nowFn defaults to a wall-clock reader if nil;
// tests may substitute a fixed clock.
func New(st Store, embedder Embedder, nowFn func() int64) *Engine {
	if nowFn == nil {
		nowFn = wallClockMillis
	}
	return &Engine{store: st, embedder: embedder, nowFn: nowFn}
}

type accumulated struct {
	chunk      store.ChunkMeta
	rrfScore   float64
	finalScore float64
}

// Search implements spec §4.8's eight-step algorithm.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]SearchResult, error) {
	k := opts.MaxResults
	if k <= 0 {
		k = 10
	}
	fetchLimit := 2 * k
	now := e.nowFn()

	bm25Hits, vectorHits, err := e.fetchCandidates(ctx, query, fetchLimit)
	if err != nil {
		return nil, err
	}

	acc := e.fuse(bm25Hits, vectorHits, now)
	if len(acc) == 0 {
		return nil, nil
	}

	primary := sortedByFinalScore(acc)
	if len(primary) > k {
		primary = primary[:k]
	}

	if e.store.HasVectors() && len(primary) > 0 {
		primary = e.expandGraphHops(primary, now, k)
	}

	return e.filterAndConvert(primary, opts), nil
}

// fetchCandidates runs search_bm25 and (if the embedder reports a non-zero
// dimension) search_vector concurrently.
func (e *Engine) fetchCandidates(ctx context.Context, query string, fetchLimit int) ([]store.SearchHit, []store.SearchHit, error) {
	var bm25Hits, vectorHits []store.SearchHit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := e.store.SearchBM25(query, fetchLimit)
		if err != nil {
			return herrors.Wrap(herrors.CodeStoreIO, fmt.Errorf("search_bm25: %w", err))
		}
		bm25Hits = hits
		return nil
	})

	if e.embedder != nil && e.embedder.Dimensions() > 0 {
		g.Go(func() error {
			queryVec, embedErr := e.embedder.Embed(gctx, chunk.NormalizeQuery(query))
			if embedErr != nil {
				// Embedder failures degrade to lexical-only, per spec §7's
				// treatment of embedder errors as non-fatal to retrieval.
				return nil
			}
			hits, err := e.store.SearchVector(queryVec, fetchLimit)
			if err != nil {
				return nil
			}
			vectorHits = hits
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return bm25Hits, vectorHits, nil
}

// fuse applies unweighted RRF across both hit lists, then rescales each
// accumulated id by recency decay and memory-type weight.
func (e *Engine) fuse(bm25Hits, vectorHits []store.SearchHit, now int64) map[string]*accumulated {
	scores := make(map[string]float64)
	chunks := make(map[string]store.ChunkMeta)

	accumulate := func(hits []store.SearchHit) {
		for rank, h := range hits {
			scores[h.Chunk.ID] += 1.0 / float64(RRFConstant+rank+1)
			if _, seen := chunks[h.Chunk.ID]; !seen {
				chunks[h.Chunk.ID] = h.Chunk
			}
		}
	}
	accumulate(bm25Hits)
	accumulate(vectorHits)

	out := make(map[string]*accumulated, len(scores))
	for id, rrfScore := range scores {
		c := chunks[id]
		out[id] = &accumulated{
			chunk:      c,
			rrfScore:   rrfScore,
			finalScore: rrfScore * decay(now, c.IngestedAt) * typeWeight(c.MemoryType),
		}
	}
	return out
}

func decay(now, ingestedAt int64) float64 {
	ageMonths := float64(now-ingestedAt) / float64(monthMillis)
	if ageMonths < 0 {
		ageMonths = 0
	}
	d := math.Pow(decayPerMonth, ageMonths)
	if d < decayFloor {
		return decayFloor
	}
	return d
}

func typeWeight(t chunk.MemoryType) float64 {
	if t == chunk.MemoryTypeProcedural {
		return proceduralWeight
	}
	return semanticTypeWeight
}

func sortedByFinalScore(acc map[string]*accumulated) []*accumulated {
	out := make([]*accumulated, 0, len(acc))
	for _, a := range acc {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].finalScore != out[j].finalScore {
			return out[i].finalScore > out[j].finalScore
		}
		return out[i].chunk.ID < out[j].chunk.ID
	})
	return out
}

// expandGraphHops implements spec §4.8 step 7: one hop across chunk_links
// from the top seeds, discounted and merged back into primary, re-sorted
// and truncated to k.
func (e *Engine) expandGraphHops(primary []*accumulated, now int64, k int) []*accumulated {
	present := make(map[string]struct{}, len(primary))
	for _, a := range primary {
		present[a.chunk.ID] = struct{}{}
	}

	seedCount := graphHopSeedCount
	if seedCount > len(primary) {
		seedCount = len(primary)
	}

	var expansions []*accumulated
	for _, seed := range primary[:seedCount] {
		links, err := e.store.GetLinks(seed.chunk.ID, graphHopLinkLimit)
		if err != nil {
			continue
		}
		for _, link := range links {
			if link.Similarity < graphHopMinSim {
				continue
			}
			if _, already := present[link.DstID]; already {
				continue
			}
			dst, err := e.store.GetChunkByID(link.DstID)
			if err != nil || dst == nil {
				continue
			}
			discounted := seed.finalScore * graphHopDiscount * link.Similarity *
				decay(now, dst.IngestedAt) * typeWeight(dst.MemoryType)
			present[link.DstID] = struct{}{}
			expansions = append(expansions, &accumulated{chunk: *dst, finalScore: discounted})
		}
	}

	merged := append(append([]*accumulated{}, primary...), expansions...)
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].finalScore != merged[j].finalScore {
			return merged[i].finalScore > merged[j].finalScore
		}
		return merged[i].chunk.ID < merged[j].chunk.ID
	})
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged
}

func (e *Engine) filterAndConvert(acc []*accumulated, opts Options) []SearchResult {
	var allowedLanguages map[string]struct{}
	if len(opts.Languages) > 0 {
		allowedLanguages = make(map[string]struct{}, len(opts.Languages))
		for _, lang := range opts.Languages {
			allowedLanguages[lang] = struct{}{}
		}
	}

	var dirPrefix string
	if normalized := normalizeScope(opts.Directory); normalized != "" {
		dirPrefix = normalized + "/"
	}

	out := make([]SearchResult, 0, len(acc))
	for _, a := range acc {
		if a.finalScore < opts.MinScore {
			continue
		}
		if allowedLanguages != nil {
			if _, ok := allowedLanguages[a.chunk.Language]; !ok {
				continue
			}
		}
		if dirPrefix != "" && !strings.HasPrefix(normalizeScope(a.chunk.FilePath)+"/", dirPrefix) {
			continue
		}
		out = append(out, SearchResult{Chunk: a.chunk, Score: a.finalScore, Source: "hybrid"})
	}
	return out
}

// normalizeScope trims leading/trailing path separators. Grounded on the
// teacher's internal/search/options.go NormalizeScope/scopeFilter: adding
// the trailing separator back before a prefix comparison keeps a filter
// for "services/api" from matching a sibling like "services/api-v2".
func normalizeScope(p string) string {
	return strings.Trim(p, "/")
}
