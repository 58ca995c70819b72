package align

import (
	"reflect"
	"testing"
)

func ids(ss ...string) []TrackID {
	out := make([]TrackID, len(ss))
	for i, s := range ss {
		if s == "" {
			out[i] = nil
		} else {
			out[i] = ID(s)
		}
	}
	return out
}

func TestAlign(t *testing.T) {
	tests := []struct {
		name     string
		desired  []TrackID
		existing []TrackID
		want     []Insertion
	}{
		{
			name:     "identical sequences need nothing",
			desired:  ids("a", "b", "c"),
			existing: ids("a", "b", "c"),
			want:     nil,
		},
		{
			name:     "empty existing inserts everything at the front",
			desired:  ids("a", "b", "c"),
			existing: nil,
			want:     []Insertion{{Position: 0, IDs: []string{"a", "b", "c"}}},
		},
		{
			name:     "single gap",
			desired:  ids("a", "b", "c"),
			existing: ids("a", "c"),
			want:     []Insertion{{Position: 1, IDs: []string{"b"}}},
		},
		{
			name:     "unmatched desired entries are never inserted",
			desired:  []TrackID{ID("a"), nil, ID("b")},
			existing: ids("a"),
			want:     []Insertion{{Position: 1, IDs: []string{"b"}}},
		},
		{
			name:     "all-null desired is a no-op",
			desired:  []TrackID{nil, nil},
			existing: ids("a"),
			want:     nil,
		},
		{
			name:     "extra remote elements are kept, not deleted",
			desired:  ids("a"),
			existing: ids("x", "a", "y"),
			want:     nil,
		},
		{
			name:     "gaps at both ends",
			desired:  ids("x", "a", "y"),
			existing: ids("a"),
			want: []Insertion{
				{Position: 1, IDs: []string{"y"}},
				{Position: 0, IDs: []string{"x"}},
			},
		},
		{
			name:     "consecutive run collapses into one op",
			desired:  ids("a", "b", "c", "d"),
			existing: ids("a", "d"),
			want:     []Insertion{{Position: 1, IDs: []string{"b", "c"}}},
		},
		{
			name:     "null existing placeholders are skipped over",
			desired:  ids("a", "b"),
			existing: []TrackID{nil, ID("a")},
			want:     []Insertion{{Position: 2, IDs: []string{"b"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Align(tt.desired, tt.existing)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Align() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// Positions must come out strictly decreasing so the operations can be applied
// to a live sequence front to back.
func TestAlignDescendingPositions(t *testing.T) {
	desired := ids("p", "a", "q", "b", "r", "c", "s")
	existing := ids("a", "b", "c")

	got := Align(desired, existing)
	for i := 1; i < len(got); i++ {
		if got[i].Position >= got[i-1].Position {
			t.Fatalf("positions not strictly decreasing: %+v", got)
		}
	}
}

// Applying the insertions must yield a supersequence containing desired's
// matched elements in order, with every existing element still present.
func TestAlignNeverDeletes(t *testing.T) {
	tests := []struct {
		desired  []TrackID
		existing []TrackID
	}{
		{ids("a", "b"), ids("b", "a")},
		{ids("a", "b", "c"), ids("c")},
		{ids("x", "y"), ids("a", "b", "c")},
		{[]TrackID{ID("a"), nil, ID("c")}, ids("b")},
	}

	for _, tt := range tests {
		ops := Align(tt.desired, tt.existing)

		applied := make([]TrackID, len(tt.existing))
		copy(applied, tt.existing)
		for _, op := range ops {
			inserted := make([]TrackID, 0, len(applied)+len(op.IDs))
			inserted = append(inserted, applied[:op.Position]...)
			for i := range op.IDs {
				inserted = append(inserted, &op.IDs[i])
			}
			inserted = append(inserted, applied[op.Position:]...)
			applied = inserted
		}

		counts := map[string]int{}
		for _, id := range applied {
			if id != nil {
				counts[*id]++
			}
		}
		for _, id := range tt.existing {
			if id != nil {
				counts[*id]--
			}
		}
		for id, n := range counts {
			if n < 0 {
				t.Errorf("existing element %q was lost applying %+v to %v", id, ops, tt.existing)
			}
		}
	}
}
