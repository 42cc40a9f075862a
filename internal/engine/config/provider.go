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

package config

import (
	"github.com/google/wire"
	"github.com/signalops/beacon/internal/engine/service"
	"github.com/signalops/beacon/pkg/cache"
	"github.com/signalops/beacon/pkg/database"
	"github.com/signalops/beacon/pkg/http"
	"github.com/signalops/beacon/pkg/log"
	"github.com/signalops/beacon/pkg/metrics"
	"github.com/signalops/beacon/pkg/pprof"
	"github.com/signalops/beacon/pkg/trace"
)

// ProviderSet 提供配置层相关的依赖
var ProviderSet = wire.NewSet(
	NewConf,
	ProvideHttpConfig,
	ProvideLogConfig,
	ProvideDatabaseConfig,
	ProvideRedisConfig,
	ProvideMetricsConfig,
	ProvidePprofConfig,
	ProvideTraceConfig,
	ProvideMenuConfig,
)

// ProvideHttpConfig 提供 HTTP 配置
func ProvideHttpConfig(appConf AppConfig) *http.Http {
	httpConfig := appConf.Http
	httpConfig.SetDefaults()
	return &httpConfig
}

// ProvideLogConfig 提供日志配置
func ProvideLogConfig(appConf AppConfig) *log.Conf {
	logConfig := appConf.Log
	if logConfig.Output == "" {
		logConfig = *log.SetDefaults()
	}
	return &logConfig
}

// ProvideDatabaseConfig 提供数据库配置
func ProvideDatabaseConfig(appConf AppConfig) database.Database {
	return appConf.Database
}

// ProvideRedisConfig 提供 Redis 配置
func ProvideRedisConfig(appConf AppConfig) cache.Redis {
	return appConf.Redis
}

// ProvideMetricsConfig 提供 Metrics 配置
func ProvideMetricsConfig(appConf AppConfig) metrics.MetricsConfig {
	metricsConfig := appConf.Metrics
	metricsConfig.SetDefaults()
	return metricsConfig
}

// ProvidePprofConfig 提供 Pprof 配置
func ProvidePprofConfig(appConf AppConfig) pprof.PprofConfig {
	pprofConfig := appConf.Pprof
	pprofConfig.SetDefaults()
	return pprofConfig
}

// ProvideTraceConfig 提供链路追踪配置
func ProvideTraceConfig(appConf AppConfig) trace.TraceConfig {
	traceConfig := appConf.Trace
	traceConfig.SetDefaults()
	return traceConfig
}

// ProvideMenuConfig 提供菜单树配置
func ProvideMenuConfig(appConf AppConfig) service.MenuConfig {
	menuConfig := appConf.Menu
	menuConfig.SetDefaults()
	return menuConfig
}
