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
	"github.com/google/wire"
	"github.com/signalops/beacon/internal/engine/service"
)

// ProviderSet 提供处理器层相关的依赖
var ProviderSet = wire.NewSet(
	NewMenuHandler,
	wire.Bind(new(MenuService), new(*service.MenuService)),
)
