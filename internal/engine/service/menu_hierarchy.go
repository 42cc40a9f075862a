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

package service

import (
	"context"

	"github.com/signalops/beacon/internal/engine/model"
	"github.com/signalops/beacon/pkg/log"
	"github.com/signalops/beacon/pkg/nestedset"
)

// HierarchyFilter selects the nodes of a filtered menu view.
// Codes empty means every code is allowed.
type HierarchyFilter struct {
	ActiveOnly bool
	Codes      []string
}

func (f HierarchyFilter) allows(n *model.MenuNode) bool {
	if f.ActiveOnly && !n.Active {
		return false
	}
	if len(f.Codes) == 0 {
		return true
	}
	for _, c := range f.Codes {
		if c == n.Code {
			return true
		}
	}
	return false
}

// BuildHierarchy 将扁平列表组装为树
// Children keep the input order. A node whose parent is not in the list
// becomes a root of the result.
func BuildHierarchy(nodes []model.MenuNode) []*model.MenuTreeNode {
	byID := make(map[int64]*model.MenuTreeNode, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = toTreeNode(&nodes[i])
	}

	roots := make([]*model.MenuTreeNode, 0)
	for i := range nodes {
		tn := byID[nodes[i].ID]
		if nodes[i].ParentID != nil {
			if parent, ok := byID[*nodes[i].ParentID]; ok {
				parent.Children = append(parent.Children, tn)
				continue
			}
			log.Debugw("menu parent not in list, promoting to root", "id", tn.ID, "parentId", *nodes[i].ParentID)
		}
		roots = append(roots, tn)
	}
	return roots
}

func toTreeNode(n *model.MenuNode) *model.MenuTreeNode {
	tn := &model.MenuTreeNode{
		ID:        n.ID,
		ParentID:  n.ParentID,
		Name:      n.Name,
		Code:      n.Code,
		Route:     n.Route,
		Icon:      n.Icon,
		Order:     n.Order,
		Active:    n.Active,
		Navigable: n.Navigable(),
		Lft:       n.Lft,
		Rght:      n.Rght,
		Meta:      n.Meta,
		Children:  make([]*model.MenuTreeNode, 0),
	}
	if c, ok := coordinateOf(n); ok {
		tn.DescendantCount = nestedset.DescendantCount(c)
	}
	return tn
}

// ExtractRoutes 收集可导航的路由，先序
func ExtractRoutes(tree []*model.MenuTreeNode) []string {
	var routes []string
	var walk func([]*model.MenuTreeNode)
	walk = func(nodes []*model.MenuTreeNode) {
		for _, n := range nodes {
			if n.Navigable {
				routes = append(routes, n.Route)
			}
			walk(n.Children)
		}
	}
	walk(tree)
	return routes
}

// GetHierarchy rebuilds, filters and assembles the nested view.
func (s *MenuService) GetHierarchy(ctx context.Context, filter HierarchyFilter) ([]*model.MenuTreeNode, error) {
	nodes, err := s.GetTree(ctx)
	if err != nil {
		return nil, err
	}
	kept := nodes[:0]
	for i := range nodes {
		if filter.allows(&nodes[i]) {
			kept = append(kept, nodes[i])
		}
	}
	return BuildHierarchy(kept), nil
}
