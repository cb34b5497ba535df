package repertoire

import (
	"github.com/kapu/chess-driller/internal/domain"
)

// NodeID indexes a node in the graph's arena. The root position is always 0.
type NodeID int32

const Root NodeID = 0

// Edge links a position to the one reached by a single SAN move, together
// with the number of ingested games that passed through it.
type Edge struct {
	Child NodeID `json:"child"`
	Count int    `json:"count"`
}

// Node holds the known continuations from one position, keyed by SAN.
// An empty edge map marks the end of all known lines through the node.
type Node struct {
	Edges map[string]Edge `json:"edges,omitempty"`
}

// Graph is the opening repertoire: a strict tree of positions keyed by the
// SAN path from the initial position. Positions that transpose are kept
// apart on purpose, the drill memorizes move order rather than the
// resulting position. Read-only once built.
type Graph struct {
	nodes []Node
}

// New returns a graph holding only the root position.
func New() *Graph {
	return &Graph{nodes: make([]Node, 1)}
}

// Build inserts every game record independently from the root. Divergent
// openings create sibling branches. maxPly > 0 caps how many plies of each
// game are kept.
func Build(games []domain.GameRecord, maxPly int) *Graph {
	g := New()
	for _, game := range games {
		moves := game.Moves
		if maxPly > 0 && len(moves) > maxPly {
			moves = moves[:maxPly]
		}
		g.Insert(moves)
	}
	return g
}

// Insert descends from the root along the move sequence, creating missing
// edges and bumping the visit count of every edge on the path. Moves are
// assumed legal in the order played; no board is consulted here.
func (g *Graph) Insert(moves []string) {
	cur := Root
	for _, san := range moves {
		node := &g.nodes[cur]
		if node.Edges == nil {
			node.Edges = make(map[string]Edge)
		}
		edge, ok := node.Edges[san]
		if !ok {
			g.nodes = append(g.nodes, Node{})
			edge = Edge{Child: NodeID(len(g.nodes) - 1)}
			// g.nodes may have been reallocated by the append
			node = &g.nodes[cur]
			if node.Edges == nil {
				node.Edges = make(map[string]Edge)
			}
		}
		edge.Count++
		node.Edges[san] = edge
		cur = edge.Child
	}
}

// ChildrenOf returns the visit count per known continuation. The empty map
// denotes a leaf.
func (g *Graph) ChildrenOf(id NodeID) map[string]int {
	out := make(map[string]int)
	if !g.valid(id) {
		return out
	}
	for san, edge := range g.nodes[id].Edges {
		out[san] = edge.Count
	}
	return out
}

// Child resolves a single SAN edge from the given node.
func (g *Graph) Child(id NodeID, san string) (NodeID, bool) {
	if !g.valid(id) {
		return 0, false
	}
	edge, ok := g.nodes[id].Edges[san]
	if !ok {
		return 0, false
	}
	return edge.Child, true
}

// FindPath descends from the given node following each move in order. It
// fails the moment a move is absent, signaling the path is unknown.
func (g *Graph) FindPath(from NodeID, moves []string) (NodeID, bool) {
	cur := from
	for _, san := range moves {
		next, ok := g.Child(cur, san)
		if !ok {
			return 0, false
		}
		cur = next
	}
	return cur, true
}

// IsLeaf reports whether the node has no known continuations.
func (g *Graph) IsLeaf(id NodeID) bool {
	if !g.valid(id) {
		return true
	}
	return len(g.nodes[id].Edges) == 0
}

// Empty reports whether no games have been inserted at all.
func (g *Graph) Empty() bool {
	return g.IsLeaf(Root)
}

// Size returns the number of positions in the graph, root included.
func (g *Graph) Size() int {
	return len(g.nodes)
}

func (g *Graph) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}
