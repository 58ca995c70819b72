// package align computes the ordered insertions that reconcile a remote track
// sequence with a desired local sequence.
//
// The aligner never deletes or reorders elements of the existing sequence; it
// only proposes insertions, computed from a weighted edit-distance table.
package align

import "math"

// TrackID is an entry in an alignment sequence. A nil entry is an unmatched
// placeholder: a desired nil is never inserted, an existing nil stands in for
// a remote element with no usable identifier.
type TrackID = *string

// Insertion inserts IDs, in order, immediately before index Position of the
// existing sequence.
type Insertion struct {
	Position int      `json:"position"`
	IDs      []string `json:"ids"`
}

// ID is a convenience constructor for a non-nil TrackID.
func ID(s string) TrackID { return &s }

// Align returns the insertions that make existing a supersequence consistent
// with desired's matched elements. The result is ordered by decreasing
// Position so the operations can be applied to the live remote sequence
// without shifting later positions.
//
// Consuming an element of existing costs a value smaller than any other edit,
// scaled to 1/len(existing) and rounded down to a power of two so path sums
// stay exact in floating point. Consuming an element of desired (which
// becomes an emitted insertion) costs 1. Substitution costs 0 for equal
// elements and max(len(desired), len(existing)) otherwise, so only exact
// matches align.
func Align(desired, existing []TrackID) []Insertion {
	dists := table(desired, existing)

	d := len(desired)
	e := len(existing)
	var result []Insertion
	var run []string

	// Runs accumulate in reverse while walking backwards; flush restores
	// desired order.
	flush := func() {
		if len(run) == 0 {
			return
		}
		ids := make([]string, len(run))
		for i, id := range run {
			ids[len(run)-1-i] = id
		}
		result = append(result, Insertion{Position: e, IDs: ids})
		run = run[:0]
	}

	take := func() {
		d--
		if id := desired[d]; id != nil {
			run = append(run, *id)
		}
	}

	for d > 0 {
		if e == 0 {
			take()
			continue
		}
		min := math.Min(dists[d-1][e], math.Min(dists[d][e-1], dists[d-1][e-1]))
		switch min {
		case dists[d][e-1]:
			flush()
			e--
		case dists[d-1][e-1]:
			flush()
			d--
			e--
		default:
			take()
		}
	}
	flush()

	return result
}

// table builds the edit-distance table with desired on the first axis and
// existing on the second.
func table(desired, existing []TrackID) [][]float64 {
	ins := existingCost(len(existing))
	sub := float64(max(len(desired), len(existing)))

	first := make([]float64, len(existing)+1)
	for e := range existing {
		first[e+1] = first[e] + ins
	}

	dists := make([][]float64, len(desired)+1)
	dists[0] = first
	for d, de := range desired {
		row := make([]float64, len(existing)+1)
		row[0] = dists[d][0] + 1
		for e, ee := range existing {
			row[e+1] = math.Min(dists[d][e+1]+1,
				math.Min(row[e]+ins, dists[d][e]+subCost(de, ee, sub)))
		}
		dists[d+1] = row
	}
	return dists
}

// existingCost is the cost of consuming one element of existing: the largest
// power of two no greater than 1/n. With an empty existing sequence the cost
// is never charged, so any positive value works.
func existingCost(n int) float64 {
	if n == 0 {
		return 1
	}
	return math.Pow(2, math.Floor(math.Log2(1/float64(n))))
}

func subCost(a, b TrackID, mismatch float64) float64 {
	if equal(a, b) {
		return 0
	}
	return mismatch
}

func equal(a, b TrackID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
