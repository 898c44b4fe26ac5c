package grid

// Range is a contiguous span of tile columns, inclusive on both ends.
type Range struct {
	Start int
	End   int
}

// Len returns the number of columns covered.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether x falls inside the range.
func (r Range) Contains(x int) bool { return x >= r.Start && x <= r.End }

// Row is one tile row of a computed footprint: the ranges of columns that
// intersect the shape between two scanlines. Center marks the row holding
// the footprint's center index.
type Row struct {
	Y      int
	Ranges []Range
	Center bool
}

// Count returns the number of tiles in the row.
func (r Row) Count() int {
	n := 0
	for _, rg := range r.Ranges {
		n += rg.Len()
	}
	return n
}

// Contains reports whether column x is inside any range of the row.
func (r Row) Contains(x int) bool {
	for _, rg := range r.Ranges {
		if rg.Contains(x) {
			return true
		}
	}
	return false
}

// mergeRanges collapses sorted, possibly touching integer ranges.
func mergeRanges(ranges []Range) []Range {
	if len(ranges) < 2 {
		return ranges
	}
	out := ranges[:1]
	for _, r := range ranges[1:] {
		last := &out[len(out)-1]
		if r.Start <= last.End+1 {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}
