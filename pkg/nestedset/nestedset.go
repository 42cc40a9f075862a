// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package nestedset derives nested-set (lft/rght) coordinates for a forest
// described by parent pointers and sibling order keys.
//
// Parent/order is the source of truth. Coordinates are recomputed in full by
// a preorder walk that hands out two consecutive counter values per node, so
// a forest of N nodes always occupies exactly [1 .. 2N].
package nestedset

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrCycle is returned when parent pointers loop back on themselves.
	ErrCycle = errors.New("nestedset: cycle detected")
	// ErrUnreachable is returned when a node cannot be reached from any root,
	// typically because its parent does not exist.
	ErrUnreachable = errors.New("nestedset: node unreachable from any root")
	// ErrDuplicateID is returned when two nodes share an id.
	ErrDuplicateID = errors.New("nestedset: duplicate node id")
)

// Node is the structural view of a tree row.
type Node struct {
	ID       int64
	ParentID *int64
	Order    int
}

// Coordinate is the nested-set interval assigned to a node.
type Coordinate struct {
	ID   int64
	Lft  int
	Rght int
}

// Compare orders siblings by order key, then id.
func Compare(a, b Node) int {
	if c := cmp.Compare(a.Order, b.Order); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Rebuild assigns fresh coordinates to every node. The result is in preorder,
// i.e. ascending Lft. Nothing is returned on error.
func Rebuild(nodes []Node) ([]Coordinate, error) {
	byID := make(map[int64]Node, len(nodes))
	children := make(map[int64][]Node, len(nodes))
	var roots []Node

	for _, n := range nodes {
		if _, ok := byID[n.ID]; ok {
			return nil, errors.Wrapf(ErrDuplicateID, "id %d", n.ID)
		}
		byID[n.ID] = n
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		children[*n.ParentID] = append(children[*n.ParentID], n)
	}

	slices.SortFunc(roots, Compare)
	for pid := range children {
		slices.SortFunc(children[pid], Compare)
	}

	coords := make([]Coordinate, 0, len(nodes))
	visited := make(map[int64]bool, len(nodes))
	counter := 1

	var visit func(n Node) error
	visit = func(n Node) error {
		if visited[n.ID] {
			return errors.Wrapf(ErrCycle, "node %d visited twice", n.ID)
		}
		visited[n.ID] = true

		idx := len(coords)
		coords = append(coords, Coordinate{ID: n.ID, Lft: counter})
		counter++

		for _, c := range children[n.ID] {
			if err := visit(c); err != nil {
				return err
			}
		}

		coords[idx].Rght = counter
		counter++
		return nil
	}

	for _, r := range roots {
		if err := visit(r); err != nil {
			return nil, err
		}
	}

	if len(visited) != len(nodes) {
		return nil, diagnoseUnvisited(nodes, byID, visited)
	}
	if counter-1 != 2*len(nodes) {
		return nil, errors.Errorf("nestedset: counter ended at %d for %d nodes", counter-1, len(nodes))
	}
	return coords, nil
}

// diagnoseUnvisited walks parent pointers from the first node the traversal
// missed and reports either the loop or the missing ancestor.
func diagnoseUnvisited(nodes []Node, byID map[int64]Node, visited map[int64]bool) error {
	for _, n := range nodes {
		if visited[n.ID] {
			continue
		}
		onPath := map[int64]int{}
		var path []int64
		cur := n
		for {
			if pos, ok := onPath[cur.ID]; ok {
				loop := append(path[pos:], cur.ID)
				return errors.Wrapf(ErrCycle, "%s", joinIDs(loop))
			}
			onPath[cur.ID] = len(path)
			path = append(path, cur.ID)

			if cur.ParentID == nil {
				break
			}
			parent, ok := byID[*cur.ParentID]
			if !ok {
				return errors.Wrapf(ErrUnreachable, "node %d has missing parent %d", cur.ID, *cur.ParentID)
			}
			cur = parent
		}
		return errors.Wrapf(ErrUnreachable, "node %d", n.ID)
	}
	return errors.WithStack(ErrUnreachable)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, " -> ")
}

// Contains reports whether inner lies strictly inside outer.
func Contains(outer, inner Coordinate) bool {
	return outer.Lft < inner.Lft && inner.Rght < outer.Rght
}

// DescendantCount is the number of nodes below c in a freshly rebuilt tree.
// It is not a depth.
func DescendantCount(c Coordinate) int {
	return (c.Rght - c.Lft - 1) / 2
}
