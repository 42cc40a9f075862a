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
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/signalops/beacon/internal/engine/model"
	"github.com/signalops/beacon/internal/engine/repo"
	"github.com/signalops/beacon/pkg/log"
	"github.com/signalops/beacon/pkg/metrics"
	"github.com/signalops/beacon/pkg/nestedset"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const menuTracerName = "github.com/signalops/beacon/internal/engine/service/menu"

// MenuService 菜单树服务
// parent_id + sort_order are the source of truth. Every mutation runs under the
// tree lock and inside one store transaction, and ends with a full rebuild of lft/rght.
type MenuService struct {
	menuRepo repo.IMenuRepository
	locker   TreeLocker
	metrics  *metrics.MenuMetrics
	tracer   trace.Tracer
	tree     singleflight.Group
}

func NewMenuService(menuRepo repo.IMenuRepository, locker TreeLocker, m *metrics.MenuMetrics) *MenuService {
	return &MenuService{
		menuRepo: menuRepo,
		locker:   locker,
		metrics:  m,
		tracer:   otel.Tracer(menuTracerName),
	}
}

// Create 创建菜单节点
func (s *MenuService) Create(ctx context.Context, in *model.MenuCreate) (*model.MenuNode, error) {
	if in == nil || strings.TrimSpace(in.Name) == "" {
		return nil, invalidOperation(0, "name is required")
	}

	var node *model.MenuNode
	err := s.mutate(ctx, "create", 0, func(ctx context.Context, tx repo.IMenuRepository) error {
		if in.ParentID != nil {
			if _, err := s.get(ctx, tx, *in.ParentID); err != nil {
				return err
			}
		}
		order, err := s.resolveOrder(ctx, tx, in.ParentID, in.Order, 0)
		if err != nil {
			return err
		}

		node = &model.MenuNode{
			Name:     in.Name,
			Code:     in.Code,
			Route:    in.Route,
			Icon:     in.Icon,
			Order:    order,
			ParentID: in.ParentID,
			Active:   true,
			Meta:     in.Meta,
		}
		if in.Active != nil {
			node.Active = *in.Active
		}
		if err := tx.Insert(ctx, node); err != nil {
			return fmt.Errorf("insert menu: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.get(ctx, s.menuRepo, node.ID)
}

// Update 更新菜单节点，未提供的字段保持原值
func (s *MenuService) Update(ctx context.Context, id int64, fields *model.MenuFields) (*model.MenuNode, error) {
	if fields == nil {
		fields = &model.MenuFields{}
	}
	if fields.Name != nil && strings.TrimSpace(*fields.Name) == "" {
		return nil, invalidOperation(id, "name must not be empty")
	}

	err := s.mutate(ctx, "update", id, func(ctx context.Context, tx repo.IMenuRepository) error {
		node, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}

		patch := *fields
		if fields.Structural() {
			if err := s.placePatch(ctx, tx, node, &patch); err != nil {
				return err
			}
		}

		if err := tx.UpdateFields(ctx, id, &patch); err != nil {
			return fmt.Errorf("update menu %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.get(ctx, s.menuRepo, id)
}

// placePatch validates a parent or order change and fixes the patch's final
// order. A parent equal to the current one is dropped from the patch.
func (s *MenuService) placePatch(ctx context.Context, tx repo.IMenuRepository, node *model.MenuNode, patch *model.MenuFields) error {
	if patch.Parent.Set && !sameParent(node.ParentID, patch.Parent.ID) {
		if err := s.checkReparent(ctx, tx, node, patch.Parent.ID); err != nil {
			return err
		}
		order, err := s.resolveOrder(ctx, tx, patch.Parent.ID, patch.Order, node.ID)
		if err != nil {
			return err
		}
		patch.Order = &order
		return nil
	}
	patch.Parent = model.OptionalID{}
	if patch.Order != nil && *patch.Order != node.Order {
		if _, err := s.resolveOrder(ctx, tx, node.ParentID, patch.Order, node.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete 删除叶子节点，有子节点时拒绝
func (s *MenuService) Delete(ctx context.Context, id int64) error {
	return s.mutate(ctx, "delete", id, func(ctx context.Context, tx repo.IMenuRepository) error {
		if _, err := s.get(ctx, tx, id); err != nil {
			return err
		}
		n, err := tx.CountChildren(ctx, id)
		if err != nil {
			return fmt.Errorf("count children of %d: %w", id, err)
		}
		if n > 0 {
			return invalidOperation(id, "has children (%d), delete them first", n)
		}
		if err := tx.Delete(ctx, id); err != nil {
			if errors.Is(err, repo.ErrMenuNotFound) {
				return notFound(id, err)
			}
			return fmt.Errorf("delete menu %d: %w", id, err)
		}
		return nil
	})
}

// MoveUp 与前一个兄弟交换排序
func (s *MenuService) MoveUp(ctx context.Context, id int64) error {
	return s.mutate(ctx, "move_up", id, func(ctx context.Context, tx repo.IMenuRepository) error {
		node, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		prev, err := tx.PrevSibling(ctx, node)
		if err != nil {
			return fmt.Errorf("find previous sibling of %d: %w", id, err)
		}
		if prev == nil {
			return invalidOperation(id, "already first")
		}
		return swapOrder(ctx, tx, node, prev)
	})
}

// MoveDown 与后一个兄弟交换排序
func (s *MenuService) MoveDown(ctx context.Context, id int64) error {
	return s.mutate(ctx, "move_down", id, func(ctx context.Context, tx repo.IMenuRepository) error {
		node, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := tx.NextSibling(ctx, node)
		if err != nil {
			return fmt.Errorf("find next sibling of %d: %w", id, err)
		}
		if next == nil {
			return invalidOperation(id, "already last")
		}
		return swapOrder(ctx, tx, node, next)
	})
}

// swapOrder exchanges the order of two siblings. Equal orders would make the
// swap a no-op, so the sibling group is renumbered 1..k first.
func swapOrder(ctx context.Context, tx repo.IMenuRepository, a, b *model.MenuNode) error {
	if a.Order == b.Order {
		renumbered, err := renumberSiblings(ctx, tx, a.ParentID)
		if err != nil {
			return err
		}
		a.Order, b.Order = renumbered[a.ID], renumbered[b.ID]
	}
	aOrder, bOrder := a.Order, b.Order
	if err := tx.UpdateFields(ctx, a.ID, &model.MenuFields{Order: &bOrder}); err != nil {
		return fmt.Errorf("update order of %d: %w", a.ID, err)
	}
	if err := tx.UpdateFields(ctx, b.ID, &model.MenuFields{Order: &aOrder}); err != nil {
		return fmt.Errorf("update order of %d: %w", b.ID, err)
	}
	return nil
}

func renumberSiblings(ctx context.Context, tx repo.IMenuRepository, parentID *int64) (map[int64]int, error) {
	siblings, err := tx.ListChildren(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("list siblings: %w", err)
	}
	orders := make(map[int64]int, len(siblings))
	for i := range siblings {
		order := i + 1
		orders[siblings[i].ID] = order
		if siblings[i].Order == order {
			continue
		}
		if err := tx.UpdateFields(ctx, siblings[i].ID, &model.MenuFields{Order: &order}); err != nil {
			return nil, fmt.Errorf("renumber sibling %d: %w", siblings[i].ID, err)
		}
	}
	return orders, nil
}

// ChangeParent 移动节点到新的父节点下（nil 表示成为根节点），排在最后
func (s *MenuService) ChangeParent(ctx context.Context, id int64, newParentID *int64) (*model.MenuNode, error) {
	err := s.mutate(ctx, "change_parent", id, func(ctx context.Context, tx repo.IMenuRepository) error {
		if newParentID != nil && *newParentID == id {
			return invalidOperation(id, "a node cannot be its own parent")
		}
		node, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.checkReparent(ctx, tx, node, newParentID); err != nil {
			return err
		}
		order, err := s.resolveOrder(ctx, tx, newParentID, nil, id)
		if err != nil {
			return err
		}
		return tx.UpdateFields(ctx, id, &model.MenuFields{
			Parent: model.OptionalID{Set: true, ID: newParentID},
			Order:  &order,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.get(ctx, s.menuRepo, id)
}

// checkReparent validates moving node under newParentID using the coordinates
// stored before the move.
func (s *MenuService) checkReparent(ctx context.Context, tx repo.IMenuRepository, node *model.MenuNode, newParentID *int64) error {
	if newParentID == nil {
		return nil
	}
	if *newParentID == node.ID {
		return invalidOperation(node.ID, "a node cannot be its own parent")
	}
	parent, err := s.get(ctx, tx, *newParentID)
	if err != nil {
		return err
	}
	inside, err := isDescendant(ctx, tx, node, parent)
	if err != nil {
		return err
	}
	if inside {
		return invalidOperation(node.ID, "cannot move into own descendant %d", parent.ID)
	}
	return nil
}

// isDescendant reports whether candidate lies below node. Coordinates are
// authoritative after every committed mutation; rows without them (imported
// data never rebuilt) fall back to walking parent pointers.
func isDescendant(ctx context.Context, tx repo.IMenuRepository, node, candidate *model.MenuNode) (bool, error) {
	if c, ok := coordinateOf(node); ok {
		if d, ok := coordinateOf(candidate); ok {
			return nestedset.Contains(c, d), nil
		}
	}

	nodes, err := tx.ListAll(ctx)
	if err != nil {
		return false, fmt.Errorf("list menus: %w", err)
	}
	parents := make(map[int64]*int64, len(nodes))
	for i := range nodes {
		parents[nodes[i].ID] = nodes[i].ParentID
	}
	seen := make(map[int64]bool)
	for cur := candidate.ParentID; cur != nil; cur = parents[*cur] {
		if *cur == node.ID {
			return true, nil
		}
		if seen[*cur] {
			return false, consistency(*cur, "parent chain loops", nestedset.ErrCycle)
		}
		seen[*cur] = true
	}
	return false, nil
}

// resolveOrder validates an explicit order against siblings under parentID or
// picks max + 1.
func (s *MenuService) resolveOrder(ctx context.Context, tx repo.IMenuRepository, parentID *int64, explicit *int, selfID int64) (int, error) {
	if explicit != nil {
		taken, err := tx.SiblingOrderTaken(ctx, parentID, *explicit, selfID)
		if err != nil {
			return 0, fmt.Errorf("check sibling order: %w", err)
		}
		if taken {
			return 0, invalidOperation(selfID, "order %d is already used by a sibling", *explicit)
		}
		return *explicit, nil
	}
	maxOrder, ok, err := tx.MaxSiblingOrder(ctx, parentID)
	if err != nil {
		return 0, fmt.Errorf("max sibling order: %w", err)
	}
	if !ok {
		return 1, nil
	}
	return maxOrder + 1, nil
}

// Rebuild 全量重建 lft/rght
func (s *MenuService) Rebuild(ctx context.Context) error {
	return s.mutate(ctx, "rebuild", 0, func(context.Context, repo.IMenuRepository) error {
		return nil
	})
}

// GetTree rebuilds and returns every node in preorder. Concurrent callers
// share one rebuild.
func (s *MenuService) GetTree(ctx context.Context) ([]model.MenuNode, error) {
	ctx, span := s.tracer.Start(ctx, "menu.get_tree")
	v, err, shared := s.tree.Do("tree", func() (any, error) {
		var nodes []model.MenuNode
		// not tied to the first caller's cancellation
		err := s.locked(context.WithoutCancel(ctx), func(ctx context.Context, tx repo.IMenuRepository) error {
			if err := s.rebuild(ctx, tx); err != nil {
				return err
			}
			var err error
			nodes, err = tx.ListAll(ctx)
			return err
		})
		return nodes, err
	})
	span.SetAttributes(attribute.Bool("menu.shared", shared))
	finishSpan(span, err)
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]model.MenuNode)), nil
}

// GetDescendants 子孙节点，按 lft 排序，不加锁
func (s *MenuService) GetDescendants(ctx context.Context, id int64) ([]model.MenuNode, error) {
	ctx, span := s.tracer.Start(ctx, "menu.get_descendants", trace.WithAttributes(attribute.Int64("menu.id", id)))
	nodes, err := s.rangeQuery(ctx, id, s.menuRepo.ListDescendants)
	finishSpan(span, err)
	return nodes, err
}

// GetAncestors 祖先节点，根在前，不加锁
func (s *MenuService) GetAncestors(ctx context.Context, id int64) ([]model.MenuNode, error) {
	ctx, span := s.tracer.Start(ctx, "menu.get_ancestors", trace.WithAttributes(attribute.Int64("menu.id", id)))
	nodes, err := s.rangeQuery(ctx, id, s.menuRepo.ListAncestors)
	finishSpan(span, err)
	return nodes, err
}

// GetDepth is the number of ancestors, 0 for a root.
func (s *MenuService) GetDepth(ctx context.Context, id int64) (int, error) {
	node, err := s.get(ctx, s.menuRepo, id)
	if err != nil {
		return 0, err
	}
	c, ok := coordinateOf(node)
	if !ok {
		return 0, consistency(id, "node has no coordinates, rebuild required", nil)
	}
	n, err := s.menuRepo.CountAncestors(ctx, c.Lft, c.Rght)
	if err != nil {
		return 0, fmt.Errorf("count ancestors of %d: %w", id, err)
	}
	return int(n), nil
}

func (s *MenuService) rangeQuery(ctx context.Context, id int64, query func(context.Context, int, int) ([]model.MenuNode, error)) ([]model.MenuNode, error) {
	node, err := s.get(ctx, s.menuRepo, id)
	if err != nil {
		return nil, err
	}
	c, ok := coordinateOf(node)
	if !ok {
		return nil, consistency(id, "node has no coordinates, rebuild required", nil)
	}
	nodes, err := query(ctx, c.Lft, c.Rght)
	if err != nil {
		return nil, fmt.Errorf("range query for %d: %w", id, err)
	}
	return nodes, nil
}

// Verify checks stored coordinates against parent/order without writing.
func (s *MenuService) Verify(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "menu.verify")
	nodes, err := s.menuRepo.ListAll(ctx)
	if err != nil {
		err = fmt.Errorf("list menus: %w", err)
		finishSpan(span, err)
		return err
	}
	placed := make([]nestedset.Placed, len(nodes))
	for i := range nodes {
		placed[i] = nestedset.Placed{Node: structural(&nodes[i]), Lft: nodes[i].Lft, Rght: nodes[i].Rght}
	}
	if err := nestedset.Verify(placed); err != nil {
		err = consistency(0, "stored coordinates are inconsistent", err)
		finishSpan(span, err)
		return err
	}
	finishSpan(span, nil)
	return nil
}

// mutate wraps fn with tracing, metrics and a log line, then runs it under
// the tree lock inside one transaction followed by a rebuild.
func (s *MenuService) mutate(ctx context.Context, op string, id int64, fn func(ctx context.Context, tx repo.IMenuRepository) error) (err error) {
	ctx, span := s.tracer.Start(ctx, "menu."+op, trace.WithAttributes(attribute.Int64("menu.id", id)))
	defer func() {
		s.metrics.ObserveMutation(op, err)
		finishSpan(span, err)
		logMutation(ctx, op, id, err)
	}()
	return s.withTree(ctx, fn)
}

func (s *MenuService) withTree(ctx context.Context, fn func(ctx context.Context, tx repo.IMenuRepository) error) error {
	return s.locked(ctx, func(ctx context.Context, tx repo.IMenuRepository) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return s.rebuild(ctx, tx)
	})
}

// locked runs fn under the tree lock inside one transaction.
func (s *MenuService) locked(ctx context.Context, fn func(ctx context.Context, tx repo.IMenuRepository) error) error {
	unlock, err := s.locker.Lock(ctx)
	if err != nil {
		return fmt.Errorf("acquire menu tree lock: %w", err)
	}
	defer unlock()

	return s.menuRepo.Transaction(ctx, func(tx repo.IMenuRepository) error {
		return fn(ctx, tx)
	})
}

// rebuild recomputes every coordinate from parent/order and writes the ones
// that changed. Nothing is written when the graph is not a forest.
func (s *MenuService) rebuild(ctx context.Context, tx repo.IMenuRepository) error {
	start := time.Now()
	nodes, err := tx.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list menus: %w", err)
	}

	graph := make([]nestedset.Node, len(nodes))
	current := make(map[int64]*model.MenuNode, len(nodes))
	for i := range nodes {
		graph[i] = structural(&nodes[i])
		current[nodes[i].ID] = &nodes[i]
	}

	coords, err := nestedset.Rebuild(graph)
	if err != nil {
		return consistency(0, "rebuild failed", err)
	}

	changed := make([]model.MenuCoordinate, 0, len(coords))
	for _, c := range coords {
		if old, ok := coordinateOf(current[c.ID]); ok && old == c {
			continue
		}
		changed = append(changed, model.MenuCoordinate{ID: c.ID, Lft: c.Lft, Rght: c.Rght})
	}
	if err := tx.UpdateCoordinates(ctx, changed); err != nil {
		return fmt.Errorf("update coordinates: %w", err)
	}

	s.metrics.ObserveRebuild(time.Since(start), len(nodes))
	log.WithContext(ctx).Debugw("menu tree rebuilt", "nodes", len(nodes), "changed", len(changed))
	return nil
}

func (s *MenuService) get(ctx context.Context, r repo.IMenuRepository, id int64) (*model.MenuNode, error) {
	node, err := r.Get(ctx, id)
	if errors.Is(err, repo.ErrMenuNotFound) {
		return nil, notFound(id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get menu %d: %w", id, err)
	}
	return node, nil
}

func structural(n *model.MenuNode) nestedset.Node {
	return nestedset.Node{ID: n.ID, ParentID: n.ParentID, Order: n.Order}
}

func coordinateOf(n *model.MenuNode) (nestedset.Coordinate, bool) {
	if n == nil || n.Lft == nil || n.Rght == nil {
		return nestedset.Coordinate{}, false
	}
	return nestedset.Coordinate{ID: n.ID, Lft: *n.Lft, Rght: *n.Rght}, true
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func logMutation(ctx context.Context, op string, id int64, err error) {
	l := log.WithContext(ctx)
	switch {
	case err == nil:
		l.Infow("menu mutation", "op", op, "id", id)
	case errors.Is(err, ErrConsistency):
		l.Errorw("menu mutation failed, tree is inconsistent", "op", op, "id", id, "error", err)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidOperation):
		l.Infow("menu mutation rejected", "op", op, "id", id, "error", err)
	default:
		l.Warnw("menu mutation failed", "op", op, "id", id, "error", err)
	}
}
