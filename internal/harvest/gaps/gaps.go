// internal/harvest/gaps/gaps.go

// Package gaps tracks which index ranges of a paginated review feed
// still need fetching across harvest runs. Feeds are ordered
// most-recent-first, so items that appeared since the previous run
// occupy the head of the feed and every previously missed range shifts
// forward by the number of new items.
package gaps

import "sort"

// Range is an inclusive index interval within a feed.
type Range struct {
	Start int
	End   int
}

// Len returns the number of indexes covered. A Range like (0, -1) is
// empty and yields zero items.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// State is the per-business harvest bookkeeping persisted between runs.
type State struct {
	// LastCount is the review count observed on the previous run;
	// -1 means the feed has never been harvested.
	LastCount int
	// CurrentCount is the review count observed on this run.
	CurrentCount int
	// Ranges holds the outstanding intervals. nil means fully resolved.
	Ranges []Range
	// Resolved records which indexes of Ranges completed this run.
	Resolved map[int]struct{}
}

// NewState builds a State for one business from its persisted counts
// and outstanding ranges.
func NewState(lastCount, currentCount int, ranges []Range) *State {
	return &State{
		LastCount:    lastCount,
		CurrentCount: currentCount,
		Ranges:       ranges,
		Resolved:     make(map[int]struct{}),
	}
}

// Plan computes the target ranges for this run and stores them back on
// the state as the new outstanding set.
//
//   - Never harvested: the whole feed, (0, CurrentCount-1).
//   - delta <= 0: the previously persisted ranges, unchanged. Stale
//     ranges beyond a shrunk CurrentCount are deliberately not
//     re-validated; the source system behaves the same way.
//   - delta > 0: a synthesized (0, delta-1) for the new head items,
//     except that an existing range starting at 0 absorbs it and is
//     extended to (0, end+delta). Every other range shifts by +delta.
func (s *State) Plan() []Range {
	if s.LastCount == -1 {
		s.Ranges = []Range{{Start: 0, End: s.CurrentCount - 1}}
		return s.Ranges
	}

	delta := s.CurrentCount - s.LastCount
	if delta <= 0 {
		return s.Ranges
	}

	head := Range{Start: 0, End: delta - 1}
	var targets []Range
	for _, r := range s.Ranges {
		if r.Start == 0 {
			// The new items and the old start-0 gap are one
			// contiguous needs-refetch region.
			head = Range{Start: 0, End: r.End + delta}
			continue
		}
		targets = append(targets, Range{Start: r.Start + delta, End: r.End + delta})
	}
	targets = append(targets, head)

	sort.Slice(targets, func(i, j int) bool { return targets[i].Start < targets[j].Start })
	s.Ranges = targets
	return s.Ranges
}

// MarkResolved records that the range at index i completed this run.
func (s *State) MarkResolved(i int) {
	if s.Resolved == nil {
		s.Resolved = make(map[int]struct{})
	}
	s.Resolved[i] = struct{}{}
}

// AdvanceStart moves the start of the range at index i forward to
// newStart, keeping its end. Called when a page request fails after the
// range had already made progress so the fetched prefix is not
// re-fetched on the next run. newStart is clamped to End+1: when a
// short page ended the feed early the failing offset lies past the
// range end, and the range empties out instead of inverting.
func (s *State) AdvanceStart(i, newStart int) {
	if i < 0 || i >= len(s.Ranges) {
		return
	}
	if limit := s.Ranges[i].End + 1; newStart > limit {
		newStart = limit
	}
	s.Ranges[i].Start = newStart
}

// Outstanding returns the ranges that did not resolve this run, in
// order. Empty ranges count as resolved: there is nothing left in them
// to fetch, so they are not carried into the persisted state. nil
// means everything resolved.
func (s *State) Outstanding() []Range {
	var out []Range
	for i, r := range s.Ranges {
		if _, ok := s.Resolved[i]; ok {
			continue
		}
		if r.Len() == 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}

// PageStart aligns a target start index down to the nearest page
// boundary. Feed requests only accept offsets that are multiples of the
// page size.
func PageStart(start, pageSize int) int {
	if pageSize <= 0 {
		return start
	}
	return start - (start % pageSize)
}

// ExtractWindow returns only the items of one fetched page whose
// absolute feed index falls inside target. pageStart is the absolute
// index of the first item on the page. Targets partially or wholly
// outside the page clamp to the page boundaries; an inverted window
// yields nothing.
func ExtractWindow[T any](items []T, pageStart int, target Range) []T {
	if len(items) == 0 {
		return nil
	}

	localStart := 0
	if target.Start > pageStart {
		localStart = target.Start - pageStart
	}

	pageEnd := pageStart + len(items) - 1
	localEnd := len(items)
	if pageEnd > target.End {
		localEnd = len(items) - (pageEnd - target.End)
	}

	if localStart >= len(items) || localEnd <= localStart {
		return nil
	}
	if localEnd > len(items) {
		localEnd = len(items)
	}
	return items[localStart:localEnd]
}
