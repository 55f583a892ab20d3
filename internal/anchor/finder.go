// Package anchor finds maximal-length word sequences that appear, in order,
// in both a transcription and at least a configured number of reference
// lyric sources, and resolves the overlapping candidates into a
// non-overlapping, best-scoring accepted set.
//
// The search runs longest n-gram length first so long confirmed spans win
// over their own sub-spans. Distinct lengths are independent units of work
// and run on a bounded worker pool; a pool failure or per-worker timeout
// degrades to sequential in-process processing that reuses every result
// already collected. Accepted sets are persisted through a content-addressed
// cache so identical inputs skip the search entirely.
package anchor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nomadkaraoke/lyralign/internal/cache"
	"github.com/nomadkaraoke/lyralign/internal/normalize"
	"github.com/nomadkaraoke/lyralign/internal/observe"
	"github.com/nomadkaraoke/lyralign/pkg/types"
)

// Config carries the anchor-search knobs.
type Config struct {
	// MinSequenceLength is the shortest n-gram length searched. Default: 3.
	MinSequenceLength int

	// MinSources is the minimum number of reference sources that must contain
	// an n-gram for it to become an anchor candidate. Default: 1.
	MinSources int

	// Timeout is the overall wall-clock budget for one FindAnchors call,
	// checked at phase boundaries. Default: 10 minutes.
	Timeout time.Duration

	// MaxIterationsPerNGram caps the matching passes per n-gram length,
	// bounding pathological repeated-phrase inputs. Default: 1000.
	MaxIterationsPerNGram int

	// ProgressCheckInterval is how many passes elapse between stagnation
	// checks; three consecutive checks without a new candidate abort the
	// length. Default: 5.
	ProgressCheckInterval int
}

func (c Config) withDefaults() Config {
	if c.MinSequenceLength < 1 {
		c.MinSequenceLength = 3
	}
	if c.MinSources < 1 {
		c.MinSources = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Minute
	}
	if c.MaxIterationsPerNGram < 1 {
		c.MaxIterationsPerNGram = 1000
	}
	if c.ProgressCheckInterval < 1 {
		c.ProgressCheckInterval = 5
	}
	return c
}

// Option is a functional option for [NewFinder].
type Option func(*Finder)

// WithCache attaches a content-addressed anchor cache. When nil (the
// default), every call searches from scratch.
func WithCache(store *cache.Store) Option {
	return func(f *Finder) { f.store = store }
}

// WithMetrics attaches OTel instruments for search telemetry.
func WithMetrics(m *observe.Metrics) Option {
	return func(f *Finder) { f.metrics = m }
}

// WithWorkers overrides the worker pool size. Default: NumCPU−1, minimum 1.
func WithWorkers(n int) Option {
	return func(f *Finder) {
		if n > 0 {
			f.workers = n
		}
	}
}

// Finder searches for anchors. Safe for concurrent use: all per-call search
// state lives on the call stack, never on the Finder.
type Finder struct {
	cfg     Config
	scorer  PhraseScorer
	store   *cache.Store
	metrics *observe.Metrics
	workers int
}

// NewFinder constructs a [Finder] that scores candidates through scorer.
func NewFinder(scorer PhraseScorer, cfg Config, opts ...Option) *Finder {
	f := &Finder{
		cfg:     cfg.withDefaults(),
		scorer:  scorer,
		workers: max(1, runtime.NumCPU()-1),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// searchData is the read-only, pre-normalised input shared by all length
// workers of one FindAnchors call.
type searchData struct {
	transWords  []types.Word
	transTokens []string
	refWords    map[string][]types.Word
	refTokens   map[string][]string
	totalSources int
}

// FindAnchors searches for the accepted, non-overlapping anchor set between
// transcribed and the reference sources in refs.
//
// Total absence of matches is not an error — an empty slice is returned. An
// overall budget breach returns an error matching [ErrTimeout], after the
// sequential fallback has been attempted. The returned anchors are sorted by
// transcription position.
func (f *Finder) FindAnchors(ctx context.Context, transcribed []types.Word, refs map[string][]types.Word) ([]types.ScoredAnchor, error) {
	start := time.Now()
	deadline := start.Add(f.cfg.Timeout)
	ctx, span := observe.StartSpan(ctx, "anchor.search")
	defer span.End()
	log := observe.Logger(ctx)

	if err := checkBudget(deadline, "init"); err != nil {
		return nil, err
	}

	texts := make([]string, len(transcribed))
	for i, w := range transcribed {
		texts[i] = w.Text
	}
	transcriptionText := strings.Join(texts, " ")

	key := cache.Key(transcriptionText, transcribed, refs)
	if f.store != nil {
		if anchors, ok := f.store.Get(key); ok {
			log.Debug("anchor cache hit", "key", key, "anchors", len(anchors))
			f.metrics.AddCacheLookup(ctx, true)
			return anchors, nil
		}
		f.metrics.AddCacheLookup(ctx, false)
	}

	data := searchData{
		transWords:   transcribed,
		transTokens:  normalize.WordTokens(texts),
		refWords:     make(map[string][]types.Word, len(refs)),
		refTokens:    make(map[string][]string, len(refs)),
		totalSources: len(refs),
	}
	for source, words := range refs {
		refTexts := make([]string, len(words))
		for i, w := range words {
			refTexts[i] = w.Text
		}
		data.refWords[source] = words
		data.refTokens[source] = normalize.WordTokens(refTexts)
	}

	if err := checkBudget(deadline, "preprocess"); err != nil {
		return nil, err
	}

	lengths := f.candidateLengths(data)
	log.Debug("anchor search dispatch",
		"lengths", len(lengths), "workers", f.workers, "sources", data.totalSources)

	if err := checkBudget(deadline, "dispatch"); err != nil {
		return nil, err
	}

	candidates, err := f.searchLengths(ctx, data, lengths, start)
	if err != nil {
		return nil, err
	}
	f.metrics.AddCandidates(ctx, len(candidates))

	if err := checkBudget(deadline, "resolve"); err != nil {
		return nil, err
	}

	accepted := f.resolveOverlaps(ctx, candidates, data, transcriptionText, deadline)
	f.metrics.RecordSearch(ctx, time.Since(start), len(accepted))

	if f.store != nil {
		f.store.Put(key, accepted)
	}

	log.Info("anchor search complete",
		"candidates", len(candidates), "accepted", len(accepted),
		"duration", time.Since(start).Round(time.Millisecond))
	return accepted, nil
}

// candidateLengths returns the n-gram lengths to search, longest first.
// Sources shorter than the minimum sequence length can never match, so they
// are excluded from the upper-bound computation.
func (f *Finder) candidateLengths(data searchData) []int {
	maxLen := len(data.transTokens)
	usable := false
	for _, tokens := range data.refTokens {
		if len(tokens) < f.cfg.MinSequenceLength {
			continue
		}
		usable = true
		if len(tokens) < maxLen {
			maxLen = len(tokens)
		}
	}
	if !usable || maxLen < f.cfg.MinSequenceLength {
		return nil
	}

	lengths := make([]int, 0, maxLen-f.cfg.MinSequenceLength+1)
	for n := maxLen; n >= f.cfg.MinSequenceLength; n-- {
		lengths = append(lengths, n)
	}
	return lengths
}

// searchLengths runs one length worker per n-gram length on a bounded pool,
// falling back to sequential in-process processing when the pool fails or a
// worker times out. Results already collected are always reused; the
// fallback runs under a looser 2× budget ceiling.
func (f *Finder) searchLengths(ctx context.Context, data searchData, lengths []int, start time.Time) ([]types.AnchorSequence, error) {
	if len(lengths) == 0 {
		return nil, nil
	}

	results := make([][]types.AnchorSequence, len(lengths))
	completed := make([]bool, len(lengths))

	// Each worker gets roughly half the overall budget, floor one minute.
	workerBudget := f.cfg.Timeout / 2
	if workerBudget < time.Minute {
		workerBudget = time.Minute
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(f.workers)
	for i, n := range lengths {
		eg.Go(func() error {
			wCtx, cancel := context.WithTimeout(egCtx, workerBudget)
			defer cancel()

			cands, done := f.processLength(wCtx, data, n)
			results[i] = cands
			completed[i] = done
			if !done {
				return fmt.Errorf("anchor: length %d worker interrupted: %w", n, wCtx.Err())
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		partial := 0
		for _, done := range completed {
			if done {
				partial++
			}
		}
		slog.Warn("anchor worker pool failed, falling back to sequential",
			"completed", partial, "total", len(lengths), "err", err)

		if err := f.sequentialFallback(ctx, data, lengths, results, completed, start); err != nil {
			return nil, err
		}
	}

	// Concatenate in submission (descending length) order.
	var candidates []types.AnchorSequence
	for _, r := range results {
		candidates = append(candidates, r...)
	}
	return candidates, nil
}

// sequentialFallback reprocesses every length the pool did not complete, one
// at a time, under a ceiling of twice the overall budget.
func (f *Finder) sequentialFallback(ctx context.Context, data searchData, lengths []int, results [][]types.AnchorSequence, completed []bool, start time.Time) error {
	ceiling := start.Add(2 * f.cfg.Timeout)

	for i, n := range lengths {
		if completed[i] {
			continue
		}
		if time.Now().After(ceiling) {
			return timeoutError("sequential-fallback")
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("anchor: sequential fallback: %w", err)
		}

		sCtx, cancel := context.WithDeadline(ctx, ceiling)
		cands, done := f.processLength(sCtx, data, n)
		cancel()

		// A timed-out length keeps whatever it found; correctness does not
		// depend on completeness, only on what was found being genuine.
		results[i] = cands
		completed[i] = done
		if !done {
			return timeoutError("sequential-fallback")
		}
	}
	return nil
}

func checkBudget(deadline time.Time, phase string) error {
	if time.Now().After(deadline) {
		return timeoutError(phase)
	}
	return nil
}
