// Package cluster groups similar token pairs into equivalence classes: the
// connected components of the graph whose edges are the pairs.
package cluster

import (
	"sort"

	"github.com/cognicore/canon/pkg/canon/similarity"
)

// Component is a set of interchangeable tokens, sorted ascending.
type Component []string

// Edge is an undirected edge between two tokens.
type Edge struct {
	A, B string
}

// EdgesFromPairs converts scored pairs into graph edges.
func EdgesFromPairs(pairs []similarity.Pair) []Edge {
	edges := make([]Edge, len(pairs))
	for i, p := range pairs {
		edges[i] = Edge{A: p.A, B: p.B}
	}
	return edges
}

// Components returns the connected components of the similarity graph.
// Only tokens that appear in at least one pair are vertices, so every
// component has two or more members.
func Components(pairs []similarity.Pair) []Component {
	return FromEdges(EdgesFromPairs(pairs))
}

// FromEdges computes connected components with a union-find over the edge
// endpoints. Members are sorted and components are ordered by their first
// member, so the output is independent of edge order.
func FromEdges(edges []Edge) []Component {
	uf := newUnionFind()
	for _, e := range edges {
		if e.A == e.B {
			uf.add(e.A)
			continue
		}
		uf.union(e.A, e.B)
	}

	groups := make(map[int][]string)
	for tok, id := range uf.index {
		root := uf.find(id)
		groups[root] = append(groups[root], tok)
	}

	comps := make([]Component, 0, len(groups))
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		comps = append(comps, Component(members))
	}
	sort.Slice(comps, func(i, j int) bool {
		return comps[i][0] < comps[j][0]
	})
	return comps
}

// unionFind is a disjoint-set forest over string vertices, with path
// compression and union by size.
type unionFind struct {
	index  map[string]int
	parent []int
	size   []int
}

func newUnionFind() *unionFind {
	return &unionFind{index: make(map[string]int)}
}

func (u *unionFind) add(tok string) int {
	if id, ok := u.index[tok]; ok {
		return id
	}
	id := len(u.parent)
	u.index[tok] = id
	u.parent = append(u.parent, id)
	u.size = append(u.size, 1)
	return id
}

func (u *unionFind) find(x int) int {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		next := u.parent[x]
		u.parent[x] = root
		x = next
	}
	return root
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(u.add(a)), u.find(u.add(b))
	if ra == rb {
		return
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
}
