package tour

// DisjointSet partitions {0 .. n-1} into disjoint components.
//
// Find applies full path compression and Union merges by rank, which keeps
// tree height within O(log n).
type DisjointSet struct {
	parent []int
	rank   []int
}

// NewDisjointSet creates n singleton components.
func NewDisjointSet(n int) *DisjointSet {
	d := &DisjointSet{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range d.parent {
		d.parent[i] = i
	}
	return d
}

// Find returns the root of x's component. Every node on the walk from x is
// rebound directly to the root.
func (d *DisjointSet) Find(x int) int {
	root := x
	for d.parent[root] != root {
		root = d.parent[root]
	}
	for d.parent[x] != root {
		next := d.parent[x]
		d.parent[x] = root
		x = next
	}
	return root
}

// Union merges the components of u and v. It reports false when they were
// already joined. On equal rank u's root becomes the parent.
func (d *DisjointSet) Union(u, v int) bool {
	rootU, rootV := d.Find(u), d.Find(v)
	if rootU == rootV {
		return false
	}

	switch {
	case d.rank[rootU] > d.rank[rootV]:
		d.parent[rootV] = rootU
	case d.rank[rootU] < d.rank[rootV]:
		d.parent[rootU] = rootV
	default:
		d.parent[rootV] = rootU
		d.rank[rootU]++
	}
	return true
}
