package tour

import "sort"

// Edge is an undirected edge of the complete graph implied by a matrix.
type Edge struct {
	From   int
	To     int
	Weight float64
}

// SpanningTree is the result of Kruskal's algorithm over a DistanceMatrix.
type SpanningTree struct {
	// Edges holds the accepted edges in acceptance order.
	Edges []Edge
	// Adjacency lists the neighbors of every node in acceptance order.
	Adjacency [][]int
	Weight    float64
}

// MinimumSpanningTree runs Kruskal's algorithm over the upper triangle of m.
// Equal weights keep their (i, j) enumeration order, so the result is
// reproducible.
func MinimumSpanningTree(m *DistanceMatrix) (*SpanningTree, error) {
	if err := checkMatrix(m); err != nil {
		return nil, err
	}
	n := m.Size()

	edges := make([]Edge, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			edges = append(edges, Edge{From: i, To: j, Weight: m.Cost(i, j)})
		}
	}
	sort.SliceStable(edges, func(a, b int) bool {
		return edges[a].Weight < edges[b].Weight
	})

	tree := &SpanningTree{
		Edges:     make([]Edge, 0, n-1),
		Adjacency: make([][]int, n),
	}
	ds := NewDisjointSet(n)
	for _, e := range edges {
		if len(tree.Edges) == n-1 {
			break
		}
		if ds.Find(e.From) == ds.Find(e.To) {
			continue
		}
		ds.Union(e.From, e.To)
		tree.Edges = append(tree.Edges, e)
		tree.Adjacency[e.From] = append(tree.Adjacency[e.From], e.To)
		tree.Adjacency[e.To] = append(tree.Adjacency[e.To], e.From)
		tree.Weight += e.Weight
	}
	return tree, nil
}

// Preorder walks the tree depth-first from root and returns nodes in the
// order they are first reached. Neighbors are explored in adjacency order.
func (t *SpanningTree) Preorder(root int) []int {
	type frame struct {
		node int
		next int
	}

	visited := make([]bool, len(t.Adjacency))
	order := make([]int, 0, len(t.Adjacency))

	visited[root] = true
	order = append(order, root)
	stack := []frame{{node: root}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		neighbors := t.Adjacency[top.node]
		if top.next >= len(neighbors) {
			stack = stack[:len(stack)-1]
			continue
		}
		nb := neighbors[top.next]
		top.next++
		if visited[nb] {
			continue
		}
		visited[nb] = true
		order = append(order, nb)
		stack = append(stack, frame{node: nb})
	}
	return order
}

// BuildMSTTour builds a tour from the preorder walk of the minimum spanning
// tree rooted at the depot, closed by returning to the depot. It does not
// compute a total distance; use PathCost when one is needed.
func BuildMSTTour(m *DistanceMatrix) ([]int, error) {
	tree, err := MinimumSpanningTree(m)
	if err != nil {
		return nil, err
	}

	path := tree.Preorder(0)
	path = append(path, path[0])
	return path, nil
}
