// Package graph reduces raw extracted entity-relation graphs to the subgraph
// meaningfully connected to a central concept and attributes surviving nodes
// to academic domains.
package graph

// RawNode is an entity as produced by the extraction engine, before pruning.
// SourceID is the engine's provenance string listing the chunk ids the
// entity was extracted from.
type RawNode struct {
	ID          string `json:"id"`
	EntityName  string `json:"entity_name"`
	Description string `json:"description"`
	SourceID    string `json:"source_id"`
}

type RawEdge struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

type RawGraph struct {
	Nodes []RawNode `json:"nodes"`
	Edges []RawEdge `json:"edges"`
}

// undirected is a minimal adjacency-list view over a RawGraph. Only
// component membership, degree and induced subgraphs are ever needed, so no
// graph library is pulled in.
type undirected struct {
	adj map[string]map[string]bool
}

func newUndirected(g RawGraph) *undirected {
	u := &undirected{adj: make(map[string]map[string]bool, len(g.Nodes))}
	for _, n := range g.Nodes {
		if _, ok := u.adj[n.ID]; !ok {
			u.adj[n.ID] = make(map[string]bool)
		}
	}
	for _, e := range g.Edges {
		if e.Source == e.Target {
			continue
		}
		if _, ok := u.adj[e.Source]; !ok {
			continue
		}
		if _, ok := u.adj[e.Target]; !ok {
			continue
		}
		u.adj[e.Source][e.Target] = true
		u.adj[e.Target][e.Source] = true
	}
	return u
}

func (u *undirected) has(id string) bool {
	_, ok := u.adj[id]
	return ok
}

func (u *undirected) degree(id string) int {
	return len(u.adj[id])
}

func (u *undirected) neighbors(id string) []string {
	out := make([]string, 0, len(u.adj[id]))
	for n := range u.adj[id] {
		out = append(out, n)
	}
	return out
}

// componentOf returns the connected component containing start, via BFS.
func (u *undirected) componentOf(start string) map[string]bool {
	comp := map[string]bool{start: true}
	if !u.has(start) {
		return comp
	}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range u.adj[cur] {
			if comp[next] {
				continue
			}
			comp[next] = true
			queue = append(queue, next)
		}
	}
	return comp
}

// largestComponent returns the node set of the largest connected component.
// Ties break toward the component containing the earliest node in order,
// which keeps the result deterministic.
func (u *undirected) largestComponent(order []string) map[string]bool {
	visited := make(map[string]bool, len(u.adj))
	var best map[string]bool
	for _, id := range order {
		if visited[id] || !u.has(id) {
			continue
		}
		comp := u.componentOf(id)
		for n := range comp {
			visited[n] = true
		}
		if len(comp) > len(best) {
			best = comp
		}
	}
	return best
}

// induced returns the subgraph of g restricted to keep, preserving the
// original node and edge order and all attributes.
func induced(g RawGraph, keep map[string]bool) RawGraph {
	out := RawGraph{}
	for _, n := range g.Nodes {
		if keep[n.ID] {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range g.Edges {
		if keep[e.Source] && keep[e.Target] {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}
