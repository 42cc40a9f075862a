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

package nestedset

import (
	"slices"

	"github.com/pkg/errors"
)

// ErrInvariant is returned by Verify when stored coordinates do not describe
// the forest given by parent/order.
var ErrInvariant = errors.New("nestedset: invariant violated")

// Placed is a node together with the coordinates currently stored for it.
// Lft/Rght are nil until the first rebuild.
type Placed struct {
	Node
	Lft  *int
	Rght *int
}

// Verify checks stored coordinates against the forest without modifying
// anything. It returns the first violation found.
func Verify(nodes []Placed) error {
	structural := make([]Node, len(nodes))
	coords := make(map[int64]Coordinate, len(nodes))
	for i, p := range nodes {
		structural[i] = p.Node
		if p.Lft == nil || p.Rght == nil {
			return errors.Wrapf(ErrInvariant, "node %d has no coordinates", p.ID)
		}
		c := Coordinate{ID: p.ID, Lft: *p.Lft, Rght: *p.Rght}
		if c.Lft >= c.Rght {
			return errors.Wrapf(ErrInvariant, "node %d has lft %d >= rght %d", c.ID, c.Lft, c.Rght)
		}
		coords[p.ID] = c
	}

	// the parent graph itself must be a forest before intervals mean anything
	if _, err := Rebuild(structural); err != nil {
		return err
	}

	if err := verifyCoverage(nodes); err != nil {
		return err
	}

	siblings := make(map[int64][]Node)
	var roots []Node
	for _, n := range structural {
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		parent := coords[*n.ParentID]
		child := coords[n.ID]
		if !Contains(parent, child) {
			return errors.Wrapf(ErrInvariant, "node %d [%d,%d] not inside parent %d [%d,%d]",
				child.ID, child.Lft, child.Rght, parent.ID, parent.Lft, parent.Rght)
		}
		siblings[*n.ParentID] = append(siblings[*n.ParentID], n)
	}

	if err := verifySiblings(roots, coords); err != nil {
		return err
	}
	for _, group := range siblings {
		if err := verifySiblings(group, coords); err != nil {
			return err
		}
	}
	return nil
}

func verifyCoverage(nodes []Placed) error {
	want := 2 * len(nodes)
	seen := make([]bool, want+1)
	mark := func(id int64, v int) error {
		if v < 1 || v > want {
			return errors.Wrapf(ErrInvariant, "node %d coordinate %d outside [1,%d]", id, v, want)
		}
		if seen[v] {
			return errors.Wrapf(ErrInvariant, "coordinate %d used twice (node %d)", v, id)
		}
		seen[v] = true
		return nil
	}
	for _, p := range nodes {
		if err := mark(p.ID, *p.Lft); err != nil {
			return err
		}
		if err := mark(p.ID, *p.Rght); err != nil {
			return err
		}
	}
	return nil
}

// verifySiblings requires lft order to follow (order, id) and intervals not to overlap.
func verifySiblings(group []Node, coords map[int64]Coordinate) error {
	slices.SortFunc(group, Compare)
	for i := 1; i < len(group); i++ {
		prev, cur := coords[group[i-1].ID], coords[group[i].ID]
		if prev.Rght >= cur.Lft {
			return errors.Wrapf(ErrInvariant, "sibling %d [%d,%d] overlaps or precedes %d [%d,%d] against order",
				cur.ID, cur.Lft, cur.Rght, prev.ID, prev.Lft, prev.Rght)
		}
	}
	return nil
}
