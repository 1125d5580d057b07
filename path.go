package followgraph

// VisitedPath is the chain of user ids from the traversal root down to the
// current node. It is immutable: Extend returns a new path sharing the
// receiver as its tail, so sibling subtrees never see each other's visits.
// The zero value is the empty path.
type VisitedPath struct {
	head *pathLink
}

type pathLink struct {
	id     string
	parent *pathLink
	depth  int
}

// Extend returns the path with id appended.
func (p VisitedPath) Extend(id string) VisitedPath {
	depth := 1
	if p.head != nil {
		depth = p.head.depth + 1
	}
	return VisitedPath{head: &pathLink{id: id, parent: p.head, depth: depth}}
}

// Contains reports whether id is already on the path.
func (p VisitedPath) Contains(id string) bool {
	for l := p.head; l != nil; l = l.parent {
		if l.id == id {
			return true
		}
	}
	return false
}

// Len returns the number of ids on the path.
func (p VisitedPath) Len() int {
	if p.head == nil {
		return 0
	}
	return p.head.depth
}

// IDs returns the path from root to tip.
func (p VisitedPath) IDs() []string {
	ids := make([]string, p.Len())
	i := len(ids) - 1
	for l := p.head; l != nil; l = l.parent {
		ids[i] = l.id
		i--
	}
	return ids
}
