package correct

import (
	"sort"
	"strings"

	"github.com/nomadkaraoke/lyralign/pkg/types"
)

// slot tracks the correction state of one original transcription word: the
// word itself and the stream of words replacing it (zero words after a
// deletion, several after a split). Original words are never mutated.
type slot struct {
	original types.Word
	words    []types.Word
	touched  bool
}

// segRange maps an original segment onto its word index range in the
// flattened transcription.
type segRange struct {
	segment types.LyricsSegment
	start   int
	end     int
}

// applier applies correction steps to the original word stream and rebuilds
// segments against the original segment boundaries.
type applier struct {
	slots     []slot
	segRanges []segRange

	// newSegIDs caches the corrected-side id assigned to each touched
	// original segment, so repeated steps over the same segment keep one
	// stable mapping.
	newSegIDs map[string]string

	wordIDMap map[string]string
	segIDMap  map[string]string

	// positionCorrections indexes applied corrections by original position
	// for the final corrected-position fixup.
	positionCorrections map[int][]*types.WordCorrection
}

func newApplier(segments []types.LyricsSegment) *applier {
	a := &applier{
		newSegIDs:           make(map[string]string),
		wordIDMap:           make(map[string]string),
		segIDMap:            make(map[string]string),
		positionCorrections: make(map[int][]*types.WordCorrection),
	}
	pos := 0
	for _, seg := range segments {
		start := pos
		for _, w := range seg.Words {
			a.slots = append(a.slots, slot{original: w, words: []types.Word{w}})
			pos++
		}
		a.segRanges = append(a.segRanges, segRange{segment: seg, start: start, end: pos})
	}
	return a
}

// applyStep applies one handler invocation's corrections and returns the
// audit step describing exactly what was touched, created, and deleted.
// Corrections are updated in place with the ids of the words they created.
func (a *applier) applyStep(handlerName string, corrections []types.WordCorrection) types.CorrectionStep {
	step := types.CorrectionStep{
		HandlerName: handlerName,
		Corrections: corrections,
	}

	// Group by original position; splits at one position apply together.
	byPosition := make(map[int][]*types.WordCorrection)
	positions := make([]int, 0, len(corrections))
	for i := range corrections {
		c := &corrections[i]
		if _, seen := byPosition[c.OriginalPosition]; !seen {
			positions = append(positions, c.OriginalPosition)
		}
		byPosition[c.OriginalPosition] = append(byPosition[c.OriginalPosition], c)
	}
	sort.Ints(positions)

	touched := make(map[int]struct{}, len(positions))
	for _, pos := range positions {
		if pos < 0 || pos >= len(a.slots) {
			continue
		}
		created, deleted := a.applyAt(pos, byPosition[pos])
		step.CreatedWordIDs = append(step.CreatedWordIDs, created...)
		step.DeletedWordIDs = append(step.DeletedWordIDs, deleted...)
		step.AffectedWordIDs = append(step.AffectedWordIDs, a.slots[pos].original.ID)
		touched[pos] = struct{}{}
		a.positionCorrections[pos] = append(a.positionCorrections[pos], byPosition[pos]...)
	}

	// Snapshot the segments whose ranges contain a touched position.
	for _, sr := range a.segRanges {
		affected := false
		for pos := sr.start; pos < sr.end; pos++ {
			if _, ok := touched[pos]; ok {
				affected = true
				break
			}
		}
		if !affected {
			continue
		}
		step.AffectedSegmentIDs = append(step.AffectedSegmentIDs, sr.segment.ID)
		step.SegmentsBefore = append(step.SegmentsBefore, sr.segment)
		if after, ok := a.rebuildSegment(sr); ok {
			step.SegmentsAfter = append(step.SegmentsAfter, after)
		}
	}

	return step
}

// applyAt applies the corrections targeting one original position.
func (a *applier) applyAt(pos int, group []*types.WordCorrection) (created, deleted []string) {
	s := &a.slots[pos]
	original := s.original

	splits := splitGroup(group)
	if len(splits) > 1 {
		// One word → N words: subdivide the original time range evenly.
		words := make([]types.Word, len(splits))
		span := original.EndTime - original.StartTime
		width := span / float64(len(splits))
		for i, c := range splits {
			start := original.StartTime + float64(i)*width
			end := start + width
			if i == len(splits)-1 {
				end = original.EndTime
			}
			w := types.Word{
				ID:                      types.NewID(),
				Text:                    preserveFormatting(original.Text, c.CorrectedWord),
				StartTime:               start,
				EndTime:                 end,
				CreatedDuringCorrection: true,
			}
			words[i] = w
			c.WordID = original.ID
			c.CorrectedWordID = w.ID
			created = append(created, w.ID)
		}
		s.words = words
		s.touched = true
		a.wordIDMap[original.ID] = words[0].ID
		return created, nil
	}

	c := group[0]
	c.WordID = original.ID
	if c.IsDeletion {
		s.words = nil
		s.touched = true
		c.CorrectedWordID = ""
		a.wordIDMap[original.ID] = ""
		return nil, []string{original.ID}
	}

	w := types.Word{
		ID:                      types.NewID(),
		Text:                    preserveFormatting(original.Text, c.CorrectedWord),
		StartTime:               original.StartTime,
		EndTime:                 original.EndTime,
		CreatedDuringCorrection: true,
	}
	s.words = []types.Word{w}
	s.touched = true
	c.CorrectedWordID = w.ID
	a.wordIDMap[original.ID] = w.ID
	return []string{w.ID}, nil
}

// splitGroup returns the group ordered by split index when it represents a
// single-word split (all members share a common non-zero SplitTotal), or nil
// otherwise.
func splitGroup(group []*types.WordCorrection) []*types.WordCorrection {
	if len(group) < 2 {
		return nil
	}
	total := group[0].SplitTotal
	if total != len(group) {
		return nil
	}
	for _, c := range group {
		if c.SplitTotal != total {
			return nil
		}
	}
	ordered := make([]*types.WordCorrection, len(group))
	copy(ordered, group)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SplitIndex < ordered[j].SplitIndex })
	return ordered
}

// rebuildSegment rebuilds one original segment from the current slot state.
// ok is false when every word in the segment was deleted. The corrected id
// is preserved when the segment content is unchanged, otherwise a fresh id
// is assigned once and reused for later rebuilds of the same segment.
func (a *applier) rebuildSegment(sr segRange) (types.LyricsSegment, bool) {
	var words []types.Word
	touched := false
	for pos := sr.start; pos < sr.end; pos++ {
		words = append(words, a.slots[pos].words...)
		if a.slots[pos].touched {
			touched = true
		}
	}

	if !touched {
		return sr.segment, true
	}
	if len(words) == 0 {
		a.segIDMap[sr.segment.ID] = ""
		return types.LyricsSegment{}, false
	}

	id, ok := a.newSegIDs[sr.segment.ID]
	if !ok {
		id = types.NewID()
		a.newSegIDs[sr.segment.ID] = id
		a.segIDMap[sr.segment.ID] = id
	}
	return types.NewSegment(id, words), true
}

// finish assembles the final corrected segment stream and fixes up every
// applied correction's corrected position against it.
func (a *applier) finish() (segments []types.LyricsSegment, totalWords int) {
	// Corrected word-stream index of each slot's first word.
	streamPos := make([]int, len(a.slots))
	n := 0
	for i := range a.slots {
		streamPos[i] = n
		n += len(a.slots[i].words)
	}
	totalWords = n

	for pos, group := range a.positionCorrections {
		for _, c := range group {
			switch {
			case c.IsDeletion:
				c.CorrectedPosition = -1
			case c.SplitTotal > 0:
				c.CorrectedPosition = streamPos[pos] + c.SplitIndex
			default:
				c.CorrectedPosition = streamPos[pos]
			}
		}
	}

	for _, sr := range a.segRanges {
		if seg, ok := a.rebuildSegment(sr); ok {
			segments = append(segments, seg)
		}
	}
	return segments, totalWords
}

// preserveFormatting transfers the original word's leading and trailing
// whitespace onto the replacement text.
func preserveFormatting(original, replacement string) string {
	trimmed := strings.TrimSpace(original)
	lead, _, _ := strings.Cut(original, trimmed)
	trail := original[len(lead)+len(trimmed):]
	return lead + strings.TrimSpace(replacement) + trail
}
