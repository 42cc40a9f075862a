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
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/signalops/beacon/internal/engine/handler"
	"github.com/signalops/beacon/pkg/http"
	"github.com/signalops/beacon/pkg/http/middleware"
	"github.com/signalops/beacon/pkg/trace/inject"
	"github.com/signalops/beacon/pkg/version"
)

/**
 * @file: router.go
 * @description: setup router
 */

type Router struct {
	Http *http.Http
	Menu *handler.MenuHandler
}

func NewRouter(httpConf *http.Http, menu *handler.MenuHandler) *Router {
	return &Router{
		Http: httpConf,
		Menu: menu,
	}
}

func (rt *Router) Router() *fiber.App {
	rt.Http.SetDefaults()

	app := fiber.New(fiber.Config{
		AppName:               "Beacon",
		DisableStartupMessage: true,
		ReadTimeout:           time.Duration(rt.Http.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(rt.Http.WriteTimeout) * time.Second,
		IdleTimeout:           time.Duration(rt.Http.IdleTimeout) * time.Second,
		BodyLimit:             rt.Http.BodyLimit,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		ErrorHandler:          errorHandler,
	})

	// 中间件
	app.Use(
		middleware.ExceptionMiddleware,
		middleware.RequestMiddleware(),
		inject.FiberMiddleware(), // 链路追踪中间件
		middleware.AccessLogMiddleware(rt.Http),
		cors.New(),
	)

	// 健康检查
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	// 版本信息
	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(version.GetVersion())
	})

	rt.menuRouter(app.Group(rt.Http.ContextPath))

	// 找不到路径时的处理 - 必须在所有路由注册之后
	app.Use(func(c *fiber.Ctx) error {
		return http.WithRepErrStatus(c, fiber.StatusNotFound, http.NotFound.Code, "request path not found")
	})

	return app
}

// errorHandler renders errors that escaped a handler in the unified envelope
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := http.Failed.Code
		switch {
		case fe.Code == fiber.StatusNotFound:
			code = http.NotFound.Code
		case fe.Code < fiber.StatusInternalServerError:
			code = http.BadRequest.Code
		}
		return http.WithRepErrStatus(c, fe.Code, code, fe.Message)
	}
	return http.WithRepErrStatus(c, fiber.StatusInternalServerError, http.InternalError.Code, http.InternalError.Msg)
}
