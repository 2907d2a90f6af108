// Package segments implements the pure timeline math of spec.md §4.D:
// segment/gap inversion, intersection, pin-segment reconstruction and
// mute-segment derivation. Every algorithm here is an iterative linear
// sweep over a slice sorted by the caller; there is no recursion and no
// locking, per the "Deep recursion in timeline math" design note (§9).
package segments

import "sort"

// Segment is a half-open interval [Start, End). Units (ns or ms) are
// whatever the caller is working in; this package never mixes units itself.
type Segment struct {
	Start int64
	End   int64
}

// Length returns End-Start, or 0 if the segment is inverted (should not
// happen for well-formed input).
func (s Segment) Length() int64 {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// Invert returns the gaps between segments within [0, totalDuration).
// segments must be sorted ascending by Start and non-overlapping; this is
// the caller's responsibility (video segments arrive pre-sorted from the
// edited-video description).
//
// If segments is empty, the single gap [0, totalDuration) is returned.
// Otherwise: a leading gap [0, s0.Start) if s0.Start > 0, an internal gap
// between each adjacent pair, and a trailing gap [sn.End, totalDuration)
// iff totalDuration-sn.End > minSegmentLength.
func Invert(segs []Segment, totalDuration int64, minSegmentLength int64) []Segment {
	if len(segs) == 0 {
		return []Segment{{Start: 0, End: totalDuration}}
	}

	gaps := make([]Segment, 0, len(segs)+1)

	if segs[0].Start > 0 {
		gaps = append(gaps, Segment{Start: 0, End: segs[0].Start})
	}

	for i := 0; i+1 < len(segs); i++ {
		if segs[i+1].Start > segs[i].End {
			gaps = append(gaps, Segment{Start: segs[i].End, End: segs[i+1].Start})
		}
	}

	last := segs[len(segs)-1]
	if totalDuration-last.End > minSegmentLength {
		gaps = append(gaps, Segment{Start: last.End, End: totalDuration})
	}

	return gaps
}

// Intersect returns the pairwise overlaps between a and b via a linear sweep
// under half-open semantics. Both inputs must be sorted ascending by Start
// and internally non-overlapping.
func Intersect(a, b []Segment) []Segment {
	var out []Segment
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := maxInt64(a[i].Start, b[j].Start)
		end := minInt64(a[i].End, b[j].End)
		if start < end {
			out = append(out, Segment{Start: start, End: end})
		}
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

// SumLength returns the total length of all segments.
func SumLength(segs []Segment) int64 {
	var total int64
	for _, s := range segs {
		total += s.Length()
	}
	return total
}

// ShiftByGaps computes how far left `occurredAt` slides once every gap that
// starts before it has been collapsed out of the timeline: for each gap with
// gap.Start < occurredAt, it subtracts min(gap.End, occurredAt) - gap.Start.
// This is the core of both the room-adjust clone (§4.E "Original room") and
// the edition-commit clone (§4.G step 3): "slide left by the total gap
// consumed before me."
func ShiftByGaps(occurredAt int64, gaps []Segment) int64 {
	var consumed int64
	for _, g := range gaps {
		if g.Start < occurredAt {
			consumed += minInt64(g.End, occurredAt) - g.Start
		}
	}
	return occurredAt - consumed
}

// SortByStart sorts segs ascending by Start in place and returns it, for
// callers that receive segments in arbitrary order (e.g. parsed from JSON).
func SortByStart(segs []Segment) []Segment {
	sort.Slice(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })
	return segs
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
