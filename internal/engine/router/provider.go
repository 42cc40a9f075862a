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
	"github.com/gofiber/fiber/v2"
	"github.com/google/wire"
	"github.com/signalops/beacon/internal/engine/handler"
	"github.com/signalops/beacon/pkg/http"
)

// ProviderSet 提供路由相关的依赖
var ProviderSet = wire.NewSet(ProvideRouter, ProvideApp)

// ProvideRouter 提供路由实例
func ProvideRouter(httpConf *http.Http, menu *handler.MenuHandler) *Router {
	return NewRouter(httpConf, menu)
}

// ProvideApp builds the fiber app
func ProvideApp(rt *Router) *fiber.App {
	return rt.Router()
}
