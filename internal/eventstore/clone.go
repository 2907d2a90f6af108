package eventstore

import "sort"

// ApplyShiftWithTiebreak computes each event's shifted OccurredAt via shift,
// then resolves same-target collisions by adding row_number()-1 nanoseconds
// to rows that land on the same target, ordered by CreatedAt ascending
// (spec.md §4.A.2: "Ordering invariant on clone"). The input slice is not
// mutated; a new slice is returned in the same order as the input.
func ApplyShiftWithTiebreak(events []Event, shift func(occurredAt int64) int64) []Event {
	out := make([]Event, len(events))
	copy(out, events)

	targets := make([]int64, len(out))
	for i := range out {
		targets[i] = shift(out[i].OccurredAt)
	}

	byTarget := make(map[int64][]int)
	for i, t := range targets {
		byTarget[t] = append(byTarget[t], i)
	}

	for target, idxs := range byTarget {
		sort.Slice(idxs, func(a, b int) bool {
			return out[idxs[a]].CreatedAt.Before(out[idxs[b]].CreatedAt)
		})
		for rowNumber, idx := range idxs {
			out[idx].OccurredAt = target + int64(rowNumber)
		}
	}

	return out
}
