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

package router

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/signalops/beacon/internal/engine/handler"
	"github.com/signalops/beacon/internal/engine/model"
	"github.com/signalops/beacon/internal/engine/repo"
	"github.com/signalops/beacon/internal/engine/service"
	"github.com/signalops/beacon/pkg/database"
	beaconhttp "github.com/signalops/beacon/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

type envelope struct {
	Code   int             `json:"code"`
	Msg    string          `json:"msg"`
	ErrMsg string          `json:"errMsg"`
	Detail json.RawMessage `json:"detail"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "menu.db")), database.Database{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	svc := service.NewMenuService(repo.NewMenuRepo(database.NewGormDB(db)), service.NewLocalLocker(), nil)
	rt := NewRouter(&beaconhttp.Http{}, handler.NewMenuHandler(svc))
	return rt.Router()
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func createMenu(t *testing.T, app *fiber.App, body string) model.MenuNode {
	t.Helper()
	status, env := do(t, app, http.MethodPost, "/api/v1/menus", body)
	require.Equal(t, fiber.StatusCreated, status, env.ErrMsg)
	var n model.MenuNode
	require.NoError(t, json.Unmarshal(env.Detail, &n))
	return n
}

func treeNames(t *testing.T, app *fiber.App) []string {
	t.Helper()
	status, env := do(t, app, http.MethodGet, "/api/v1/menus/tree", "")
	require.Equal(t, fiber.StatusOK, status)
	var nodes []model.MenuNode
	require.NoError(t, json.Unmarshal(env.Detail, &nodes))
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	return names
}

func TestRouter_HealthAndVersion(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/version", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	status, env := do(t, app, http.MethodGet, "/nope", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, beaconhttp.NotFound.Code, env.Code)
}

func TestRouter_MenuLifecycle(t *testing.T) {
	app := newTestApp(t)

	admin := createMenu(t, app, `{"name":"Admin","code":"admin","route":"#"}`)
	users := createMenu(t, app, fmt.Sprintf(`{"name":"Users","code":"users","route":"/users","parentId":%d}`, admin.ID))
	reports := createMenu(t, app, fmt.Sprintf(`{"name":"Reports","code":"reports","route":"/reports","parentId":%d}`, admin.ID))
	assert.Equal(t, []string{"Admin", "Users", "Reports"}, treeNames(t, app))

	// delete with children
	status, env := do(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/menus/%d", admin.ID), "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, beaconhttp.MenuInvalidOperation.Code, env.Code)
	assert.Contains(t, env.ErrMsg, "has children")

	// move down
	status, _ = do(t, app, http.MethodPost, fmt.Sprintf("/api/v1/menus/%d/move-down", users.ID), "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []string{"Admin", "Reports", "Users"}, treeNames(t, app))

	// move into own descendant
	sales := createMenu(t, app, fmt.Sprintf(`{"name":"Sales","route":"/sales","parentId":%d}`, users.ID))
	status, env = do(t, app, http.MethodPut, fmt.Sprintf("/api/v1/menus/%d/parent", users.ID),
		fmt.Sprintf(`{"parentId":%d}`, sales.ID))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, env.ErrMsg, "descendant")

	// reparent
	status, _ = do(t, app, http.MethodPut, fmt.Sprintf("/api/v1/menus/%d/parent", reports.ID),
		fmt.Sprintf(`{"parentId":%d}`, users.ID))
	assert.Equal(t, fiber.StatusOK, status)

	status, env = do(t, app, http.MethodGet, fmt.Sprintf("/api/v1/menus/%d/descendants", users.ID), "")
	require.Equal(t, fiber.StatusOK, status)
	var desc []model.MenuNode
	require.NoError(t, json.Unmarshal(env.Detail, &desc))
	require.Len(t, desc, 2)
	assert.Equal(t, sales.ID, desc[0].ID)
	assert.Equal(t, reports.ID, desc[1].ID)

	status, env = do(t, app, http.MethodGet, fmt.Sprintf("/api/v1/menus/%d/depth", reports.ID), "")
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"depth":2}`, reports.ID), string(env.Detail))

	status, env = do(t, app, http.MethodGet, fmt.Sprintf("/api/v1/menus/%d/ancestors", reports.ID), "")
	require.Equal(t, fiber.StatusOK, status)
	var anc []model.MenuNode
	require.NoError(t, json.Unmarshal(env.Detail, &anc))
	require.Len(t, anc, 2)
	assert.Equal(t, admin.ID, anc[0].ID)

	// hierarchy and routes
	status, env = do(t, app, http.MethodGet, "/api/v1/menus/hierarchy", "")
	require.Equal(t, fiber.StatusOK, status)
	var tree []model.MenuTreeNode
	require.NoError(t, json.Unmarshal(env.Detail, &tree))
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	assert.Len(t, tree[0].Children[0].Children, 2)

	status, env = do(t, app, http.MethodGet, "/api/v1/menus/routes?codes=users,reports", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `["/users","/reports"]`, string(env.Detail))

	// partial update keeps the rest, explicit null parent makes a root
	status, env = do(t, app, http.MethodPut, fmt.Sprintf("/api/v1/menus/%d", reports.ID), `{"name":"Stats","parentId":null}`)
	require.Equal(t, fiber.StatusOK, status, env.ErrMsg)
	var updated model.MenuNode
	require.NoError(t, json.Unmarshal(env.Detail, &updated))
	assert.Equal(t, "Stats", updated.Name)
	assert.Equal(t, "/reports", updated.Route)
	assert.Nil(t, updated.ParentID)

	status, _ = do(t, app, http.MethodGet, "/api/v1/menus/verify", "")
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = do(t, app, http.MethodPost, "/api/v1/menus/rebuild", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = do(t, app, http.MethodDelete, fmt.Sprintf("/api/v1/menus/%d", sales.ID), "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []string{"Admin", "Users", "Stats"}, treeNames(t, app))
}

func TestRouter_MenuErrors(t *testing.T) {
	app := newTestApp(t)

	status, env := do(t, app, http.MethodGet, "/api/v1/menus/42/descendants", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, beaconhttp.MenuNotExist.Code, env.Code)

	status, env = do(t, app, http.MethodDelete, "/api/v1/menus/abc", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, beaconhttp.RequestParameterParsingFailed.Code, env.Code)

	status, env = do(t, app, http.MethodPost, "/api/v1/menus", `{"name":`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, beaconhttp.RequestParameterParsingFailed.Code, env.Code)

	status, env = do(t, app, http.MethodPost, "/api/v1/menus", `{"name":""}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, beaconhttp.MenuInvalidOperation.Code, env.Code)

	status, env = do(t, app, http.MethodPost, "/api/v1/menus", `{"name":"x","parentId":7}`)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, beaconhttp.MenuNotExist.Code, env.Code)

	root := createMenu(t, app, `{"name":"Root"}`)
	status, env = do(t, app, http.MethodPut, fmt.Sprintf("/api/v1/menus/%d/parent", root.ID), `{}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, beaconhttp.BadRequest.Code, env.Code)

	status, env = do(t, app, http.MethodPost, fmt.Sprintf("/api/v1/menus/%d/move-up", root.ID), "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, env.ErrMsg, "already first")
}
