package core

import (
	"fmt"
	"sort"

	"github.com/valter-silva-au/projectcolab/pkg/models"
)

// Node is one task in a built forest together with its ordered children.
type Node struct {
	Task     models.Task `json:"task"`
	ParentID string      `json:"parentId,omitempty"`
	Children []*Node     `json:"children,omitempty"`
}

// FlatRow is a forest entry in pre-order with its depth. Task is an
// unmodified copy of the input task; ParentID is the parent the builder
// actually resolved, which is empty for roots even when Task.ParentID is set.
type FlatRow struct {
	Task        models.Task `json:"task"`
	Depth       int         `json:"depth"`
	ParentID    string      `json:"parentId,omitempty"`
	HasChildren bool        `json:"hasChildren"`
}

// BuildForest arranges a flat task list into an ordered forest. A task whose
// parent id is empty, unknown, or its own id becomes a root. Siblings (roots
// included) are ordered by Order ascending with ties kept in input order.
//
// Stored data may already contain a parent loop. For each loop the member
// that comes first in the input is treated as a root for this build, so every
// task still appears exactly once. Stored parent ids are never modified.
func BuildForest(tasks []models.Task) []*Node {
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		if _, dup := index[t.ID]; !dup {
			index[t.ID] = i
		}
	}

	parent := make([]int, len(tasks))
	for i, t := range tasks {
		parent[i] = -1
		if t.ParentID == "" || t.ParentID == t.ID {
			continue
		}
		if p, ok := index[t.ParentID]; ok && p != i {
			parent[i] = p
		}
	}
	breakParentLoops(parent)

	nodes := make([]*Node, len(tasks))
	for i, t := range tasks {
		nodes[i] = &Node{Task: t}
	}

	var roots []*Node
	for i, n := range nodes {
		if parent[i] < 0 {
			roots = append(roots, n)
			continue
		}
		p := nodes[parent[i]]
		n.ParentID = p.Task.ID
		p.Children = append(p.Children, n)
	}

	sortSiblings(roots)
	for _, n := range nodes {
		sortSiblings(n.Children)
	}
	return roots
}

// breakParentLoops detaches the lowest-indexed member of every loop in the
// parent array so the result is a proper forest.
func breakParentLoops(parent []int) {
	const (
		unseen = iota
		onPath
		done
	)
	state := make([]int, len(parent))
	for start := range parent {
		if state[start] != unseen {
			continue
		}
		var path []int
		cur := start
		for cur >= 0 && state[cur] == unseen {
			state[cur] = onPath
			path = append(path, cur)
			cur = parent[cur]
		}
		if cur >= 0 && state[cur] == onPath {
			loopStart := 0
			for path[loopStart] != cur {
				loopStart++
			}
			lowest := cur
			for _, member := range path[loopStart:] {
				if member < lowest {
					lowest = member
				}
			}
			parent[lowest] = -1
		}
		for _, n := range path {
			state[n] = done
		}
	}
}

// sortSiblings relies on nodes being appended in input order, which
// sort.SliceStable preserves for equal Order values.
func sortSiblings(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Task.Order < nodes[j].Task.Order
	})
}

// Flatten walks the forest in pre-order. The position of a row in the result
// is the row index used by both the task table and the timeline.
func Flatten(forest []*Node) []FlatRow {
	var rows []FlatRow
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		rows = append(rows, FlatRow{
			Task:        n.Task,
			Depth:       depth,
			ParentID:    n.ParentID,
			HasChildren: len(n.Children) > 0,
		})
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	for _, root := range forest {
		walk(root, 0)
	}
	return rows
}

// CheckReparent reports whether making newParentID the parent of taskID would
// close a loop in the parent chain of tasks. The walk is bounded by the
// number of tasks and also rejects chains that already loop.
func CheckReparent(tasks []models.Task, taskID, newParentID string) error {
	if newParentID == "" {
		return nil
	}
	if newParentID == taskID {
		return fmt.Errorf("task %s cannot be its own parent: %w", taskID, ErrParentCycle)
	}

	parentOf := make(map[string]string, len(tasks))
	for _, t := range tasks {
		parentOf[t.ID] = t.ParentID
	}

	visited := make(map[string]bool)
	cur := newParentID
	for steps := 0; cur != ""; steps++ {
		if cur == taskID {
			return fmt.Errorf("moving %s under %s: %w", taskID, newParentID, ErrParentCycle)
		}
		if visited[cur] || steps > len(tasks) {
			return fmt.Errorf("ancestors of %s already loop: %w", newParentID, ErrParentCycle)
		}
		visited[cur] = true
		next, ok := parentOf[cur]
		if !ok {
			return nil
		}
		cur = next
	}
	return nil
}
