// Package lineage tracks which nodes are being expanded along the current traversal branch, so
// a reference back to one of them is told apart from a reference that merely reaches a node
// already expanded on a sibling branch.
package lineage

import "github.com/speakeasy-api/openapi-deref/node"

// Frame is the set of node IDs entered since the last reference boundary.
type Frame map[uint64]struct{}

// Has reports whether id is in the frame.
func (f Frame) Has(id uint64) bool {
	_, ok := f[id]
	return ok
}

// Lineage is the ordered list of frames of one traversal branch, outermost first. Each frame is
// opened when a reference boundary is crossed and closed when the expansion returns.
type Lineage struct {
	frames []Frame
}

// ToAncestorLineage builds a lineage from the nodes of a traversal path grouped by the reference
// boundaries crossed along it. All groups but the last become frames of the lineage; the last
// group is returned separately as the frame of the current expansion.
func ToAncestorLineage(groups [][]*node.Node) (*Lineage, Frame) {
	l := &Lineage{}
	current := Frame{}
	for i, group := range groups {
		f := Frame{}
		for _, n := range group {
			f[n.ID()] = struct{}{}
		}
		if i == len(groups)-1 {
			current = f
			continue
		}
		l.frames = append(l.frames, f)
	}
	return l, current
}

// Push opens a new frame.
func (l *Lineage) Push() {
	l.frames = append(l.frames, Frame{})
}

// PushFrame opens f as the new current frame.
func (l *Lineage) PushFrame(f Frame) {
	l.frames = append(l.frames, f)
}

// Pop closes the current frame and returns it. The outermost frame is never removed.
func (l *Lineage) Pop() Frame {
	if len(l.frames) <= 1 {
		return l.Current()
	}
	f := l.frames[len(l.frames)-1]
	l.frames = l.frames[:len(l.frames)-1]
	return f
}

// Current returns the innermost frame.
func (l *Lineage) Current() Frame {
	if len(l.frames) == 0 {
		l.frames = append(l.frames, Frame{})
	}
	return l.frames[len(l.frames)-1]
}

// Add records id as being expanded in the current frame.
func (l *Lineage) Add(id uint64) {
	l.Current()[id] = struct{}{}
}

// Remove forgets id in the current frame.
func (l *Lineage) Remove(id uint64) {
	delete(l.Current(), id)
}

// Has reports whether any frame contains id, meaning the node is its own ancestor along this
// branch.
func (l *Lineage) Has(id uint64) bool {
	for i := len(l.frames) - 1; i >= 0; i-- {
		if l.frames[i].Has(id) {
			return true
		}
	}
	return false
}

// Depth returns the number of frames.
func (l *Lineage) Depth() int {
	return len(l.frames)
}
