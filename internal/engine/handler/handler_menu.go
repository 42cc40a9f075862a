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

package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/signalops/beacon/internal/engine/model"
	"github.com/signalops/beacon/internal/engine/service"
	"github.com/signalops/beacon/pkg/http"
	"github.com/signalops/beacon/pkg/log"
)

// MenuService is the part of the menu tree service the HTTP layer uses
type MenuService interface {
	Create(ctx context.Context, in *model.MenuCreate) (*model.MenuNode, error)
	Update(ctx context.Context, id int64, fields *model.MenuFields) (*model.MenuNode, error)
	Delete(ctx context.Context, id int64) error
	MoveUp(ctx context.Context, id int64) error
	MoveDown(ctx context.Context, id int64) error
	ChangeParent(ctx context.Context, id int64, newParentID *int64) (*model.MenuNode, error)
	Rebuild(ctx context.Context) error
	GetTree(ctx context.Context) ([]model.MenuNode, error)
	GetHierarchy(ctx context.Context, filter service.HierarchyFilter) ([]*model.MenuTreeNode, error)
	GetDescendants(ctx context.Context, id int64) ([]model.MenuNode, error)
	GetAncestors(ctx context.Context, id int64) ([]model.MenuNode, error)
	GetDepth(ctx context.Context, id int64) (int, error)
	Verify(ctx context.Context) error
}

// MenuHandler 菜单树处理器
type MenuHandler struct {
	Menu MenuService
}

func NewMenuHandler(menu MenuService) *MenuHandler {
	return &MenuHandler{
		Menu: menu,
	}
}

type changeParentRequest struct {
	ParentID model.OptionalID `json:"parentId"`
}

// ============ 查询 ============

// GetTree 全量先序列表
func (h *MenuHandler) GetTree(c *fiber.Ctx) error {
	nodes, err := h.Menu.GetTree(c.UserContext())
	if err != nil {
		return menuError(c, err)
	}
	return http.WithRepJSON(c, nodes)
}

// GetHierarchy 嵌套结构，支持 activeOnly 与 codes 过滤
func (h *MenuHandler) GetHierarchy(c *fiber.Ctx) error {
	tree, err := h.Menu.GetHierarchy(c.UserContext(), hierarchyFilter(c))
	if err != nil {
		return menuError(c, err)
	}
	return http.WithRepJSON(c, tree)
}

// GetRoutes 可导航路由列表
func (h *MenuHandler) GetRoutes(c *fiber.Ctx) error {
	tree, err := h.Menu.GetHierarchy(c.UserContext(), hierarchyFilter(c))
	if err != nil {
		return menuError(c, err)
	}
	return http.WithRepJSON(c, service.ExtractRoutes(tree))
}

func hierarchyFilter(c *fiber.Ctx) service.HierarchyFilter {
	filter := service.HierarchyFilter{ActiveOnly: c.QueryBool("activeOnly", false)}
	if codes := c.Query("codes"); codes != "" {
		for _, code := range strings.Split(codes, ",") {
			if code = strings.TrimSpace(code); code != "" {
				filter.Codes = append(filter.Codes, code)
			}
		}
	}
	return filter
}

func (h *MenuHandler) GetDescendants(c *fiber.Ctx) error {
	id, err := menuID(c)
	if err != nil {
		return parseError(c, err)
	}
	nodes, err := h.Menu.GetDescendants(c.UserContext(), id)
	if err != nil {
		return menuError(c, err)
	}
	return http.WithRepJSON(c, nodes)
}

func (h *MenuHandler) GetAncestors(c *fiber.Ctx) error {
	id, err := menuID(c)
	if err != nil {
		return parseError(c, err)
	}
	nodes, err := h.Menu.GetAncestors(c.UserContext(), id)
	if err != nil {
		return menuError(c, err)
	}
	return http.WithRepJSON(c, nodes)
}

func (h *MenuHandler) GetDepth(c *fiber.Ctx) error {
	id, err := menuID(c)
	if err != nil {
		return parseError(c, err)
	}
	depth, err := h.Menu.GetDepth(c.UserContext(), id)
	if err != nil {
		return menuError(c, err)
	}
	return http.WithRepJSON(c, fiber.Map{"id": id, "depth": depth})
}

// Verify 校验存储的 lft/rght，不做修改
func (h *MenuHandler) Verify(c *fiber.Ctx) error {
	if err := h.Menu.Verify(c.UserContext()); err != nil {
		return menuError(c, err)
	}
	return http.WithRepNotDetail(c)
}

// ============ 变更 ============

func (h *MenuHandler) Create(c *fiber.Ctx) error {
	var req model.MenuCreate
	if err := c.BodyParser(&req); err != nil {
		return parseError(c, err)
	}
	node, err := h.Menu.Create(c.UserContext(), &req)
	if err != nil {
		return menuError(c, err)
	}
	return http.WithRepCreated(c, node)
}

func (h *MenuHandler) Update(c *fiber.Ctx) error {
	id, err := menuID(c)
	if err != nil {
		return parseError(c, err)
	}
	var req model.MenuFields
	if err := c.BodyParser(&req); err != nil {
		return parseError(c, err)
	}
	node, err := h.Menu.Update(c.UserContext(), id, &req)
	if err != nil {
		return menuError(c, err)
	}
	return http.WithRepJSON(c, node)
}

func (h *MenuHandler) Delete(c *fiber.Ctx) error {
	id, err := menuID(c)
	if err != nil {
		return parseError(c, err)
	}
	if err := h.Menu.Delete(c.UserContext(), id); err != nil {
		return menuError(c, err)
	}
	return http.WithRepNotDetail(c)
}

func (h *MenuHandler) MoveUp(c *fiber.Ctx) error {
	id, err := menuID(c)
	if err != nil {
		return parseError(c, err)
	}
	if err := h.Menu.MoveUp(c.UserContext(), id); err != nil {
		return menuError(c, err)
	}
	return http.WithRepNotDetail(c)
}

func (h *MenuHandler) MoveDown(c *fiber.Ctx) error {
	id, err := menuID(c)
	if err != nil {
		return parseError(c, err)
	}
	if err := h.Menu.MoveDown(c.UserContext(), id); err != nil {
		return menuError(c, err)
	}
	return http.WithRepNotDetail(c)
}

// ChangeParent body {"parentId": 12} or {"parentId": null} for a root
func (h *MenuHandler) ChangeParent(c *fiber.Ctx) error {
	id, err := menuID(c)
	if err != nil {
		return parseError(c, err)
	}
	var req changeParentRequest
	if err := c.BodyParser(&req); err != nil {
		return parseError(c, err)
	}
	if !req.ParentID.Set {
		return http.WithRepErrStatus(c, fiber.StatusBadRequest, http.BadRequest.Code, "parentId is required, use null for a root")
	}
	node, err := h.Menu.ChangeParent(c.UserContext(), id, req.ParentID.ID)
	if err != nil {
		return menuError(c, err)
	}
	return http.WithRepJSON(c, node)
}

func (h *MenuHandler) Rebuild(c *fiber.Ctx) error {
	if err := h.Menu.Rebuild(c.UserContext()); err != nil {
		return menuError(c, err)
	}
	return http.WithRepNotDetail(c)
}

func menuID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id must be a positive integer, got %q", c.Params("id"))
	}
	return int64(id), nil
}

func parseError(c *fiber.Ctx, err error) error {
	return http.WithRepErrStatus(c, fiber.StatusBadRequest, http.RequestParameterParsingFailed.Code, err.Error())
}

// menuError maps the service error kinds onto status and envelope codes
func menuError(c *fiber.Ctx, err error) error {
	switch service.KindOf(err) {
	case service.KindNotFound:
		return http.WithRepErrStatus(c, fiber.StatusNotFound, http.MenuNotExist.Code, err.Error())
	case service.KindInvalidOperation:
		return http.WithRepErrStatus(c, fiber.StatusBadRequest, http.MenuInvalidOperation.Code, err.Error())
	case service.KindConsistency:
		log.WithContext(c.UserContext()).Errorw("menu tree inconsistent", "path", c.Path(), "error", err)
		return http.WithRepErrStatus(c, fiber.StatusInternalServerError, http.MenuInconsistent.Code, err.Error())
	default:
		log.WithContext(c.UserContext()).Errorw("menu request failed", "path", c.Path(), "error", err)
		return http.WithRepErrStatus(c, fiber.StatusInternalServerError, http.InternalError.Code, http.InternalError.Msg)
	}
}
