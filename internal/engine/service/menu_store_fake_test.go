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
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/signalops/beacon/internal/engine/model"
	"github.com/signalops/beacon/internal/engine/repo"
)

// memStore is an in-memory IMenuRepository. Transactions work on a copy of
// the rows that replaces the committed set only when fn succeeds.
type memStore struct {
	mu     sync.Mutex
	rows   map[int64]model.MenuNode
	nextID int64

	// failCoordinates makes UpdateCoordinates fail when set
	failCoordinates error
	coordinateWrites int
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]model.MenuNode{}}
}

func (m *memStore) repo() repo.IMenuRepository {
	return &memRepo{store: m, mu: &m.mu, rows: &m.rows, nextID: &m.nextID}
}

// put inserts a row as is, bypassing the service
func (m *memStore) put(n model.MenuNode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == 0 {
		m.nextID++
		n.ID = m.nextID
	} else if n.ID > m.nextID {
		m.nextID = n.ID
	}
	m.rows[n.ID] = n
}

func (m *memStore) snapshot() map[int64]model.MenuNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.rows)
}

type memRepo struct {
	store  *memStore
	mu     *sync.Mutex
	rows   *map[int64]model.MenuNode
	nextID *int64
}

func byLft(a, b model.MenuNode) int {
	switch {
	case a.Lft == nil && b.Lft == nil:
		return cmp.Compare(a.ID, b.ID)
	case a.Lft == nil:
		return -1
	case b.Lft == nil:
		return 1
	}
	return cmp.Or(cmp.Compare(*a.Lft, *b.Lft), cmp.Compare(a.ID, b.ID))
}

func bySibling(a, b model.MenuNode) int {
	return cmp.Or(cmp.Compare(a.Order, b.Order), cmp.Compare(a.ID, b.ID))
}

func (r *memRepo) filter(keep func(model.MenuNode) bool, order func(a, b model.MenuNode) int) []model.MenuNode {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.MenuNode, 0)
	for _, n := range *r.rows {
		if keep(n) {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, order)
	return out
}

func sameParentID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *memRepo) ListAll(context.Context) ([]model.MenuNode, error) {
	return r.filter(func(model.MenuNode) bool { return true }, byLft), nil
}

func (r *memRepo) Get(_ context.Context, id int64) (*model.MenuNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := (*r.rows)[id]
	if !ok {
		return nil, fmt.Errorf("menu %d: %w", id, repo.ErrMenuNotFound)
	}
	return &n, nil
}

func (r *memRepo) ListChildren(_ context.Context, parentID *int64) ([]model.MenuNode, error) {
	return r.filter(func(n model.MenuNode) bool { return sameParentID(n.ParentID, parentID) }, bySibling), nil
}

func (r *memRepo) Insert(_ context.Context, node *model.MenuNode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.nextID++
	node.ID = *r.nextID
	(*r.rows)[node.ID] = *node
	return nil
}

func (r *memRepo) UpdateFields(_ context.Context, id int64, f *model.MenuFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := (*r.rows)[id]
	if !ok {
		return fmt.Errorf("menu %d: %w", id, repo.ErrMenuNotFound)
	}
	if f.Name != nil {
		n.Name = *f.Name
	}
	if f.Code != nil {
		n.Code = *f.Code
	}
	if f.Route != nil {
		n.Route = *f.Route
	}
	if f.Icon != nil {
		n.Icon = *f.Icon
	}
	if f.Order != nil {
		n.Order = *f.Order
	}
	if f.Active != nil {
		n.Active = *f.Active
	}
	if f.Parent.Set {
		n.ParentID = f.Parent.ID
	}
	if f.Meta != nil {
		n.Meta = f.Meta
	}
	(*r.rows)[id] = n
	return nil
}

func (r *memRepo) UpdateCoordinates(_ context.Context, coords []model.MenuCoordinate) error {
	if r.store.failCoordinates != nil {
		return r.store.failCoordinates
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range coords {
		n := (*r.rows)[c.ID]
		lft, rght := c.Lft, c.Rght
		n.Lft, n.Rght = &lft, &rght
		(*r.rows)[c.ID] = n
	}
	r.store.coordinateWrites += len(coords)
	return nil
}

func (r *memRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := (*r.rows)[id]; !ok {
		return fmt.Errorf("menu %d: %w", id, repo.ErrMenuNotFound)
	}
	delete(*r.rows, id)
	return nil
}

func (r *memRepo) CountChildren(ctx context.Context, id int64) (int64, error) {
	children, _ := r.ListChildren(ctx, &id)
	return int64(len(children)), nil
}

func inside(n model.MenuNode, lft, rght int) bool {
	return n.Lft != nil && n.Rght != nil && *n.Lft > lft && *n.Rght < rght
}

func encloses(n model.MenuNode, lft, rght int) bool {
	return n.Lft != nil && n.Rght != nil && *n.Lft < lft && *n.Rght > rght
}

func (r *memRepo) ListDescendants(_ context.Context, lft, rght int) ([]model.MenuNode, error) {
	return r.filter(func(n model.MenuNode) bool { return inside(n, lft, rght) }, byLft), nil
}

func (r *memRepo) ListAncestors(_ context.Context, lft, rght int) ([]model.MenuNode, error) {
	return r.filter(func(n model.MenuNode) bool { return encloses(n, lft, rght) }, byLft), nil
}

func (r *memRepo) CountAncestors(ctx context.Context, lft, rght int) (int64, error) {
	nodes, _ := r.ListAncestors(ctx, lft, rght)
	return int64(len(nodes)), nil
}

func (r *memRepo) MaxSiblingOrder(ctx context.Context, parentID *int64) (int, bool, error) {
	siblings, _ := r.ListChildren(ctx, parentID)
	if len(siblings) == 0 {
		return 0, false, nil
	}
	return siblings[len(siblings)-1].Order, true, nil
}

func (r *memRepo) SiblingOrderTaken(ctx context.Context, parentID *int64, order int, excludeID int64) (bool, error) {
	siblings, _ := r.ListChildren(ctx, parentID)
	for _, s := range siblings {
		if s.Order == order && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) PrevSibling(ctx context.Context, node *model.MenuNode) (*model.MenuNode, error) {
	siblings, _ := r.ListChildren(ctx, node.ParentID)
	i := slices.IndexFunc(siblings, func(n model.MenuNode) bool { return n.ID == node.ID })
	if i <= 0 {
		return nil, nil
	}
	return &siblings[i-1], nil
}

func (r *memRepo) NextSibling(ctx context.Context, node *model.MenuNode) (*model.MenuNode, error) {
	siblings, _ := r.ListChildren(ctx, node.ParentID)
	i := slices.IndexFunc(siblings, func(n model.MenuNode) bool { return n.ID == node.ID })
	if i < 0 || i == len(siblings)-1 {
		return nil, nil
	}
	return &siblings[i+1], nil
}

func (r *memRepo) Transaction(ctx context.Context, fn func(tx repo.IMenuRepository) error) error {
	r.mu.Lock()
	rows := maps.Clone(*r.rows)
	nextID := *r.nextID
	r.mu.Unlock()

	tx := &memRepo{store: r.store, mu: &sync.Mutex{}, rows: &rows, nextID: &nextID}
	if err := fn(tx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	*r.rows = rows
	*r.nextID = nextID
	return nil
}
