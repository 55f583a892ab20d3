// Package cache provides content-addressable persistence for accepted anchor
// sets, so repeated runs over the same transcription and references skip the
// expensive n-gram search.
//
// Each entry is one JSON file per cache key under a configured directory,
// fronted by a bounded in-memory LRU. Missing, unreadable, or schema-mismatched
// files are treated as a cache miss — the store never fails its caller over a
// bad file. Concurrent runs for the same key are not deduplicated here; a
// higher layer may lock on the key if at-most-one-concurrent-build matters.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nomadkaraoke/lyralign/pkg/types"
)

// schemaVersion is the current on-disk envelope version. Bump whenever the
// serialised anchor shape changes incompatibly.
const schemaVersion = 2

// envelope is the on-disk file shape.
type envelope struct {
	Version int                  `json:"version"`
	Anchors []types.ScoredAnchor `json:"anchors"`
}

// Store is a content-addressed anchor cache. Safe for concurrent use.
type Store struct {
	dir string
	mem *lru.Cache[string, []types.ScoredAnchor]
}

// NewStore creates a Store rooted at dir, creating it if necessary.
// memEntries bounds the in-memory LRU layer; values below 1 default to 64.
func NewStore(dir string, memEntries int) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cache: dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir %q: %w", dir, err)
	}
	if memEntries < 1 {
		memEntries = 64
	}
	mem, err := lru.New[string, []types.ScoredAnchor](memEntries)
	if err != nil {
		return nil, fmt.Errorf("cache: create lru: %w", err)
	}
	return &Store{dir: dir, mem: mem}, nil
}

// Key computes the stable content hash for an anchor-search input: the
// transcription text, the transcription word id+text pairs, and each
// reference source's word id+text pairs, sorted by source name.
func Key(transcriptionText string, transcribed []types.Word, refs map[string][]types.Word) string {
	h := sha256.New()
	fmt.Fprintf(h, "transcription\x00%s\x00", transcriptionText)
	for _, w := range transcribed {
		fmt.Fprintf(h, "%s\x1f%s\x1e", w.ID, w.Text)
	}

	sources := make([]string, 0, len(refs))
	for name := range refs {
		sources = append(sources, name)
	}
	sort.Strings(sources)
	for _, name := range sources {
		fmt.Fprintf(h, "\x00source\x00%s\x00", name)
		for _, w := range refs[name] {
			fmt.Fprintf(h, "%s\x1f%s\x1e", w.ID, w.Text)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached anchor set for key, or ok=false on any miss,
// including corrupt or legacy-shaped files that cannot be upconverted.
func (s *Store) Get(key string) ([]types.ScoredAnchor, bool) {
	if anchors, ok := s.mem.Get(key); ok {
		return anchors, true
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("anchor cache unreadable, treating as miss", "key", key, "err", err)
		}
		return nil, false
	}

	anchors, ok := decode(data)
	if !ok {
		slog.Warn("anchor cache entry corrupt or legacy, treating as miss", "key", key)
		return nil, false
	}

	s.mem.Add(key, anchors)
	return anchors, true
}

// Put persists the anchor set for key. Write failures are logged, not
// returned: the cache is an optimisation, never a correctness dependency.
func (s *Store) Put(key string, anchors []types.ScoredAnchor) {
	s.mem.Add(key, anchors)

	env := envelope{Version: schemaVersion, Anchors: anchors}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		slog.Warn("anchor cache encode failed", "key", key, "err", err)
		return
	}
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		slog.Warn("anchor cache write failed", "key", key, "err", err)
	}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// decode parses an on-disk entry. It accepts the current envelope shape and
// upconverts the legacy bare-array shape when every anchor carries complete
// word identity; anything else is a miss so old entries are never served with
// missing fields.
func decode(data []byte) ([]types.ScoredAnchor, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Version == schemaVersion {
		if valid(env.Anchors) {
			return env.Anchors, true
		}
		return nil, false
	}

	// Legacy shape: a bare array of {anchor, phrase_score} objects.
	var legacy []types.ScoredAnchor
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, false
	}
	if !valid(legacy) {
		return nil, false
	}
	return legacy, true
}

// valid reports whether every anchor carries the word identity the current
// schema requires: non-empty transcribed word ids and, per matched source, a
// reference id list of the same length.
func valid(anchors []types.ScoredAnchor) bool {
	for _, sa := range anchors {
		a := sa.Anchor
		if a.ID == "" || len(a.TranscribedWordIDs) == 0 {
			return false
		}
		if !sa.Score.PhraseType.IsValid() {
			return false
		}
		for source := range a.ReferencePositions {
			if len(a.ReferenceWordIDs[source]) != len(a.TranscribedWordIDs) {
				return false
			}
		}
	}
	return true
}
