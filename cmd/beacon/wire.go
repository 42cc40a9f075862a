//go:build wireinject
// +build wireinject

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

package main

import (
	"github.com/google/wire"
	"github.com/signalops/beacon/internal/engine/bootstrap"
	"github.com/signalops/beacon/internal/engine/config"
	"github.com/signalops/beacon/internal/engine/handler"
	"github.com/signalops/beacon/internal/engine/repo"
	"github.com/signalops/beacon/internal/engine/router"
	"github.com/signalops/beacon/internal/engine/service"
	"github.com/signalops/beacon/pkg/database"
	"github.com/signalops/beacon/pkg/log"
	"github.com/signalops/beacon/pkg/metrics"
	"github.com/signalops/beacon/pkg/pprof"
)

func initApp(configPath string) (*bootstrap.App, func(), error) {
	panic(wire.Build(
		// 配置层
		config.ProviderSet,
		// 日志层（依赖 config）
		log.ProviderSet,
		// 数据库层（依赖 config, log）
		database.ProviderSet,
		// 指标层（依赖 config）
		metrics.ProviderSet,
		// pprof层（依赖 config, log）
		pprof.ProviderSet,
		// 仓储层（依赖 database）
		repo.ProviderSet,
		// 服务层（依赖 repo, metrics）
		service.ProviderSet,
		// 接口层
		handler.ProviderSet,
		router.ProviderSet,
		// 应用层
		bootstrap.NewApp,
	))
}
