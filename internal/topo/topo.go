// Package topo provides ordering and traversal over the registry:
// Kahn topological sort with deterministic tie-breaking, cycle
// detection, and downstream BFS for incremental recomputation.
package topo

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/roach88/prism/internal/graph"
)

// View is the read-only graph surface topology needs. *graph.Registry
// satisfies it; tests substitute fakes to exercise cyclic shapes the
// append-only registry cannot produce.
type View interface {
	Count() int
	OpOf(graph.NodeID) graph.Op
	Parents(graph.NodeID) []graph.NodeID
	ForEachChild(graph.NodeID, func(graph.NodeID))
}

// CycleError reports that the graph has a cycle among non-constraint
// edges. Nodes is the residual set (every node left with a non-zero
// in-degree after Kahn), ascending.
type CycleError struct {
	Nodes []graph.NodeID
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected involving %d node(s): %v", len(e.Nodes), e.Nodes)
}

// nodeHeap is a min-heap of NodeIDs; the Kahn ready set.
type nodeHeap []graph.NodeID

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h nodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)        { *h = append(*h, x.(graph.NodeID)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Sort returns a Kahn topological order over the parent edges. Nodes
// with equal readiness are emitted in ascending NodeID order, which
// makes the order fully deterministic; it is part of the public
// execution contract.
//
// Constraint nodes contribute no ordering edges: their parent links are
// virtual dependencies consumed only by the solver bridge.
func Sort(v View) ([]graph.NodeID, error) {
	n := v.Count()
	indeg := make([]int, n)
	for i := 0; i < n; i++ {
		id := graph.NodeID(i)
		if v.OpOf(id) == graph.OpConstraint {
			continue
		}
		indeg[i] = len(v.Parents(id))
	}

	ready := make(nodeHeap, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			ready = append(ready, graph.NodeID(i))
		}
	}
	heap.Init(&ready)

	order := make([]graph.NodeID, 0, n)
	for ready.Len() > 0 {
		id := heap.Pop(&ready).(graph.NodeID)
		order = append(order, id)
		v.ForEachChild(id, func(child graph.NodeID) {
			if v.OpOf(child) == graph.OpConstraint {
				return
			}
			indeg[child.Index()]--
			if indeg[child.Index()] == 0 {
				heap.Push(&ready, child)
			}
		})
	}

	// Constraint nodes carry no in-degree but still need a slot in the
	// order; they were emitted above as zero-degree roots.
	if len(order) < n {
		residual := make([]graph.NodeID, 0, n-len(order))
		for i := 0; i < n; i++ {
			if indeg[i] > 0 {
				residual = append(residual, graph.NodeID(i))
			}
		}
		return nil, &CycleError{Nodes: residual}
	}
	return order, nil
}

// DownstreamFrom returns the transitive consumers of seeds (seeds
// included), in topological order. O(V+E): a BFS over child edges, then
// an id sort. Ascending NodeID is a valid topological order because
// every parent id is strictly smaller than its child's.
func DownstreamFrom(v View, seeds []graph.NodeID) []graph.NodeID {
	visited := make(map[graph.NodeID]struct{}, len(seeds))
	queue := make([]graph.NodeID, 0, len(seeds))
	for _, s := range seeds {
		if _, ok := visited[s]; ok {
			continue
		}
		visited[s] = struct{}{}
		queue = append(queue, s)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		v.ForEachChild(id, func(child graph.NodeID) {
			if _, ok := visited[child]; ok {
				return
			}
			visited[child] = struct{}{}
			queue = append(queue, child)
		})
	}

	out := make([]graph.NodeID, 0, len(visited))
	for id := range visited {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
