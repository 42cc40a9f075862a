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

package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/signalops/beacon/internal/engine/model"
	"github.com/signalops/beacon/pkg/database"
	"gorm.io/gorm"
)

// ErrMenuNotFound is returned for an id with no row
var ErrMenuNotFound = errors.New("menu node not found")

// coordinateBatchSize bounds the CASE expression of one coordinate UPDATE
const coordinateBatchSize = 500

func init() {
	database.RegisterModels(&model.MenuNode{})
}

// IMenuRepository menu tree storage. Sibling lists are ordered by (sort_order, id),
// range queries by lft.
type IMenuRepository interface {
	ListAll(ctx context.Context) ([]model.MenuNode, error)
	Get(ctx context.Context, id int64) (*model.MenuNode, error)
	ListChildren(ctx context.Context, parentID *int64) ([]model.MenuNode, error)
	Insert(ctx context.Context, node *model.MenuNode) error
	UpdateFields(ctx context.Context, id int64, fields *model.MenuFields) error
	UpdateCoordinates(ctx context.Context, coords []model.MenuCoordinate) error
	Delete(ctx context.Context, id int64) error
	CountChildren(ctx context.Context, id int64) (int64, error)

	// ListDescendants returns nodes strictly inside (lft, rght)
	ListDescendants(ctx context.Context, lft, rght int) ([]model.MenuNode, error)
	// ListAncestors returns nodes strictly enclosing (lft, rght), root first
	ListAncestors(ctx context.Context, lft, rght int) ([]model.MenuNode, error)
	CountAncestors(ctx context.Context, lft, rght int) (int64, error)

	// MaxSiblingOrder reports false when parentID has no children
	MaxSiblingOrder(ctx context.Context, parentID *int64) (int, bool, error)
	SiblingOrderTaken(ctx context.Context, parentID *int64, order int, excludeID int64) (bool, error)
	// PrevSibling and NextSibling return nil when node is already first or last
	PrevSibling(ctx context.Context, node *model.MenuNode) (*model.MenuNode, error)
	NextSibling(ctx context.Context, node *model.MenuNode) (*model.MenuNode, error)

	// Transaction runs fn against a repository bound to one database transaction
	Transaction(ctx context.Context, fn func(tx IMenuRepository) error) error
}

type MenuRepo struct {
	database.IDatabase
	inTx bool
}

func NewMenuRepo(db database.IDatabase) IMenuRepository {
	return &MenuRepo{
		IDatabase: db,
	}
}

func (r *MenuRepo) db(ctx context.Context) *gorm.DB {
	return r.Database().WithContext(ctx)
}

// reader sends range queries to a replica unless a transaction is open
func (r *MenuRepo) reader(ctx context.Context) *gorm.DB {
	if r.inTx {
		return r.db(ctx)
	}
	return database.ReadDB(r.db(ctx))
}

func withParent(parentID *int64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if parentID == nil {
			return db.Where("parent_id IS NULL")
		}
		return db.Where("parent_id = ?", *parentID)
	}
}

// ListAll 获取全部节点，按 lft 排序
func (r *MenuRepo) ListAll(ctx context.Context) ([]model.MenuNode, error) {
	var nodes []model.MenuNode
	err := r.db(ctx).Order("lft ASC").Order("id ASC").Find(&nodes).Error
	return nodes, err
}

// Get 获取单个节点
func (r *MenuRepo) Get(ctx context.Context, id int64) (*model.MenuNode, error) {
	var node model.MenuNode
	err := r.db(ctx).Where("id = ?", id).First(&node).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("menu %d: %w", id, ErrMenuNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// ListChildren 获取直接子节点
func (r *MenuRepo) ListChildren(ctx context.Context, parentID *int64) ([]model.MenuNode, error) {
	var nodes []model.MenuNode
	err := r.db(ctx).Scopes(withParent(parentID)).
		Order("sort_order ASC").Order("id ASC").
		Find(&nodes).Error
	return nodes, err
}

// Insert 新增节点，id 回填到 node
func (r *MenuRepo) Insert(ctx context.Context, node *model.MenuNode) error {
	return r.db(ctx).Create(node).Error
}

// UpdateFields 按字段更新，nil 字段不变
func (r *MenuRepo) UpdateFields(ctx context.Context, id int64, fields *model.MenuFields) error {
	values := menuFieldValues(fields)
	if len(values) == 0 {
		return nil
	}
	return r.db(ctx).Model(&model.MenuNode{}).Where("id = ?", id).Updates(values).Error
}

func menuFieldValues(f *model.MenuFields) map[string]any {
	values := map[string]any{}
	if f == nil {
		return values
	}
	if f.Name != nil {
		values["name"] = *f.Name
	}
	if f.Code != nil {
		values["code"] = *f.Code
	}
	if f.Route != nil {
		values["route"] = *f.Route
	}
	if f.Icon != nil {
		values["icon"] = *f.Icon
	}
	if f.Order != nil {
		values["sort_order"] = *f.Order
	}
	if f.Active != nil {
		values["active"] = *f.Active
	}
	if f.Parent.Set {
		if f.Parent.ID == nil {
			values["parent_id"] = nil
		} else {
			values["parent_id"] = *f.Parent.ID
		}
	}
	if f.Meta != nil {
		values["meta"] = f.Meta
	}
	return values
}

// UpdateCoordinates 批量写入 lft/rght
// One UPDATE ... SET lft = CASE id WHEN .. END per batch, all batches in one transaction.
func (r *MenuRepo) UpdateCoordinates(ctx context.Context, coords []model.MenuCoordinate) error {
	if len(coords) == 0 {
		return nil
	}
	return r.db(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(coords); start += coordinateBatchSize {
			batch := coords[start:min(start+coordinateBatchSize, len(coords))]

			ids := make([]int64, len(batch))
			lftArgs := make([]any, 0, 2*len(batch))
			rghtArgs := make([]any, 0, 2*len(batch))
			var lftCase, rghtCase strings.Builder
			lftCase.WriteString("CASE id")
			rghtCase.WriteString("CASE id")
			for i, c := range batch {
				ids[i] = c.ID
				lftCase.WriteString(" WHEN ? THEN ?")
				rghtCase.WriteString(" WHEN ? THEN ?")
				lftArgs = append(lftArgs, c.ID, c.Lft)
				rghtArgs = append(rghtArgs, c.ID, c.Rght)
			}
			lftCase.WriteString(" END")
			rghtCase.WriteString(" END")

			err := tx.Model(&model.MenuNode{}).Where("id IN ?", ids).UpdateColumns(map[string]any{
				"lft":  gorm.Expr(lftCase.String(), lftArgs...),
				"rght": gorm.Expr(rghtCase.String(), rghtArgs...),
			}).Error
			if err != nil {
				return fmt.Errorf("update coordinates batch at %d: %w", start, err)
			}
		}
		return nil
	})
}

// Delete 删除单个节点
func (r *MenuRepo) Delete(ctx context.Context, id int64) error {
	res := r.db(ctx).Where("id = ?", id).Delete(&model.MenuNode{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("menu %d: %w", id, ErrMenuNotFound)
	}
	return nil
}

// CountChildren 直接子节点数量
func (r *MenuRepo) CountChildren(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := r.db(ctx).Model(&model.MenuNode{}).Where("parent_id = ?", id).Count(&n).Error
	return n, err
}

func (r *MenuRepo) ListDescendants(ctx context.Context, lft, rght int) ([]model.MenuNode, error) {
	var nodes []model.MenuNode
	err := r.reader(ctx).Where("lft > ? AND rght < ?", lft, rght).
		Order("lft ASC").Find(&nodes).Error
	return nodes, err
}

func (r *MenuRepo) ListAncestors(ctx context.Context, lft, rght int) ([]model.MenuNode, error) {
	var nodes []model.MenuNode
	err := r.reader(ctx).Where("lft < ? AND rght > ?", lft, rght).
		Order("lft ASC").Find(&nodes).Error
	return nodes, err
}

func (r *MenuRepo) CountAncestors(ctx context.Context, lft, rght int) (int64, error) {
	var n int64
	err := r.reader(ctx).Model(&model.MenuNode{}).Where("lft < ? AND rght > ?", lft, rght).Count(&n).Error
	return n, err
}

// MaxSiblingOrder 同级最大排序值
func (r *MenuRepo) MaxSiblingOrder(ctx context.Context, parentID *int64) (int, bool, error) {
	var maxOrder sql.NullInt64
	err := r.db(ctx).Model(&model.MenuNode{}).Scopes(withParent(parentID)).
		Select("MAX(sort_order)").Row().Scan(&maxOrder)
	if err != nil {
		return 0, false, err
	}
	if !maxOrder.Valid {
		return 0, false, nil
	}
	return int(maxOrder.Int64), true, nil
}

// SiblingOrderTaken 同级下是否已有该排序值
func (r *MenuRepo) SiblingOrderTaken(ctx context.Context, parentID *int64, order int, excludeID int64) (bool, error) {
	var n int64
	err := r.db(ctx).Model(&model.MenuNode{}).Scopes(withParent(parentID)).
		Where("sort_order = ? AND id <> ?", order, excludeID).
		Count(&n).Error
	return n > 0, err
}

// PrevSibling 排在 node 之前的最近兄弟
func (r *MenuRepo) PrevSibling(ctx context.Context, node *model.MenuNode) (*model.MenuNode, error) {
	return r.adjacentSibling(ctx, node,
		"(sort_order < ? OR (sort_order = ? AND id < ?))", "sort_order DESC, id DESC")
}

// NextSibling 排在 node 之后的最近兄弟
func (r *MenuRepo) NextSibling(ctx context.Context, node *model.MenuNode) (*model.MenuNode, error) {
	return r.adjacentSibling(ctx, node,
		"(sort_order > ? OR (sort_order = ? AND id > ?))", "sort_order ASC, id ASC")
}

func (r *MenuRepo) adjacentSibling(ctx context.Context, node *model.MenuNode, cond, order string) (*model.MenuNode, error) {
	var siblings []model.MenuNode
	err := r.db(ctx).Scopes(withParent(node.ParentID)).
		Where(cond, node.Order, node.Order, node.ID).
		Order(order).Limit(1).Find(&siblings).Error
	if err != nil {
		return nil, err
	}
	if len(siblings) == 0 {
		return nil, nil
	}
	return &siblings[0], nil
}

func (r *MenuRepo) Transaction(ctx context.Context, fn func(tx IMenuRepository) error) error {
	return r.db(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&MenuRepo{IDatabase: database.NewGormDB(tx), inTx: true})
	})
}
