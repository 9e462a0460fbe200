package model

import "fmt"

// Assoc tells with which side a position at an insertion point is
// associated.
type Assoc int

const (
	// Before keeps a position before content inserted at its offset.
	Before Assoc = -1
	// After moves a position after content inserted at its offset, as
	// typing at the cursor does.
	After Assoc = 1
)

// MapResult is an offset mapped through a splice with extra information.
type MapResult struct {
	// The mapped version of the offset.
	Offset int
	// Tells you whether the offset was inside the deleted part of the
	// splice.
	Deleted bool
}

// Splice describes the change made to the offsets of one node by a
// primitive mutation: Old items starting at Start were replaced by New
// items. Characters are the items of text nodes, children are the items of
// elements.
type Splice struct {
	Start int
	Old   int
	New   int
}

// Map maps an offset of the node through the splice. Offsets inside a
// deleted span map to its start; an offset at an insertion point follows
// assoc.
func (s Splice) Map(offset int, assoc Assoc) int {
	return s.MapResult(offset, assoc).Offset
}

// MapResult maps an offset and tells whether it was deleted.
func (s Splice) MapResult(offset int, assoc Assoc) MapResult {
	if offset < s.Start {
		return MapResult{Offset: offset}
	}
	end := s.Start + s.Old
	if offset > end {
		return MapResult{Offset: offset + s.New - s.Old}
	}
	var side Assoc
	switch {
	case s.Old == 0:
		side = assoc
	case offset == s.Start:
		side = After
	case offset == end:
		side = Before
	default:
		side = assoc
	}
	result := s.Start
	if side == After {
		result += s.New
	}
	deleted := offset != end
	if assoc == Before {
		deleted = offset != s.Start
	}
	return MapResult{Offset: result, Deleted: deleted && s.Old > 0}
}

// Invert returns the splice that undoes this one.
func (s Splice) Invert() Splice {
	return Splice{Start: s.Start, Old: s.New, New: s.Old}
}

func (s Splice) String() string {
	return fmt.Sprintf("[%d, %d, %d]", s.Start, s.Old, s.New)
}
