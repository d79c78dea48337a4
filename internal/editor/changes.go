package editor

import "fmt"

// ChangeKind is a kind of polygon edit.
type ChangeKind int

const (
	ChangeMove ChangeKind = iota
	ChangeAdd
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeMove:
		return "move"
	case ChangeAdd:
		return "add"
	case ChangeDelete:
		return "delete"
	default:
		return fmt.Sprintf("change(%d)", int(k))
	}
}

// PolygonChanges counts completed polygon edits by kind.
type PolygonChanges struct {
	Move   int `json:"move"`
	Add    int `json:"add"`
	Delete int `json:"delete"`
}

// Total returns the sum of all counters.
func (c PolygonChanges) Total() int {
	return c.Move + c.Add + c.Delete
}

// ChangeTracker tallies completed edit gestures. Counters only ever grow.
type ChangeTracker struct {
	rectangleMoves map[int]int
	polygon        PolygonChanges
}

// NewChangeTracker returns an empty tracker.
func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{rectangleMoves: make(map[int]int)}
}

// RecordRectangleMove counts one finished drag of rectangle index.
func (t *ChangeTracker) RecordRectangleMove(index int) {
	t.rectangleMoves[index]++
}

// RecordPolygonChange counts one polygon edit of the given kind.
func (t *ChangeTracker) RecordPolygonChange(kind ChangeKind) {
	switch kind {
	case ChangeMove:
		t.polygon.Move++
	case ChangeAdd:
		t.polygon.Add++
	case ChangeDelete:
		t.polygon.Delete++
	}
}

// RectangleMoves returns the move count of rectangle index, 0 if never moved.
func (t *ChangeTracker) RectangleMoves(index int) int {
	return t.rectangleMoves[index]
}

// AllRectangleMoves returns a copy of every recorded rectangle move count.
func (t *ChangeTracker) AllRectangleMoves() map[int]int {
	out := make(map[int]int, len(t.rectangleMoves))
	for k, v := range t.rectangleMoves {
		out[k] = v
	}
	return out
}

// PolygonChanges returns the polygon counters.
func (t *ChangeTracker) PolygonChanges() PolygonChanges {
	return t.polygon
}
