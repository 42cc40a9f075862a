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

package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// BaseModel 公共字段
type BaseModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// MenuNode 菜单节点表
// parent_id + sort_order 是唯一的结构来源，lft/rght 由全量重建得出
type MenuNode struct {
	BaseModel
	Name     string         `gorm:"column:name;size:128;not null" json:"name"`    // 菜单名称
	Code     string         `gorm:"column:code;size:128;index" json:"code"`       // 机器可读标识
	Route    string         `gorm:"column:route;size:255" json:"route"`           // 路由，空或 "#" 表示子菜单标题
	Icon     string         `gorm:"column:icon;size:128" json:"icon"`             // 图标
	Order    int            `gorm:"column:sort_order;not null" json:"order"`      // 同级排序
	ParentID *int64         `gorm:"column:parent_id;index" json:"parentId"`       // 父节点，nil 表示根
	Active   bool           `gorm:"column:active;not null" json:"active"`         // 是否可见
	Lft      *int           `gorm:"column:lft;index" json:"lft"`                  // nested-set 左值
	Rght     *int           `gorm:"column:rght;index" json:"rght"`                // nested-set 右值
	Meta     datatypes.JSON `gorm:"column:meta" json:"meta,omitempty"`            // 扩展元数据
}

func (MenuNode) TableName() string {
	return "t_menu_node"
}

// Navigable reports whether the node links somewhere rather than being a submenu header.
func (m *MenuNode) Navigable() bool {
	return m.Route != "" && m.Route != "#"
}

// MenuCreate 创建菜单节点参数
type MenuCreate struct {
	Name     string         `json:"name"`
	Code     string         `json:"code"`
	Route    string         `json:"route"`
	Icon     string         `json:"icon"`
	ParentID *int64         `json:"parentId"`
	Order    *int           `json:"order"` // nil 时取同级最大值 + 1
	Active   *bool          `json:"active"`
	Meta     datatypes.JSON `json:"meta"`
}

// MenuFields 更新菜单节点参数，nil 字段保持原值
type MenuFields struct {
	Name   *string        `json:"name"`
	Code   *string        `json:"code"`
	Route  *string        `json:"route"`
	Icon   *string        `json:"icon"`
	Order  *int           `json:"order"`
	Active *bool          `json:"active"`
	Parent OptionalID     `json:"parentId"`
	Meta   datatypes.JSON `json:"meta"`
}

// Structural reports whether the patch touches parent or order.
func (f *MenuFields) Structural() bool {
	return f.Parent.Set || f.Order != nil
}

// OptionalID distinguishes an absent parentId from an explicit null.
type OptionalID struct {
	Set bool
	ID  *int64
}

// SomeID is an explicit parent id.
func SomeID(id int64) OptionalID {
	return OptionalID{Set: true, ID: &id}
}

// NoParent is an explicit null parent, i.e. make the node a root.
func NoParent() OptionalID {
	return OptionalID{Set: true}
}

func (o *OptionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.ID = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	o.ID = &id
	return nil
}

func (o OptionalID) MarshalJSON() ([]byte, error) {
	if !o.Set || o.ID == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.ID)
}

// MenuCoordinate 重建后的 nested-set 区间
type MenuCoordinate struct {
	ID   int64
	Lft  int
	Rght int
}

// MenuTreeNode 嵌套结构的菜单节点
type MenuTreeNode struct {
	ID              int64           `json:"id"`
	ParentID        *int64          `json:"parentId"`
	Name            string          `json:"name"`
	Code            string          `json:"code"`
	Route           string          `json:"route"`
	Icon            string          `json:"icon"`
	Order           int             `json:"order"`
	Active          bool            `json:"active"`
	Navigable       bool            `json:"navigable"`
	Lft             *int            `json:"lft"`
	Rght            *int            `json:"rght"`
	DescendantCount int             `json:"descendantCount"`
	Meta            datatypes.JSON  `json:"meta,omitempty"`
	Children        []*MenuTreeNode `json:"children"`
}
