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
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/signalops/beacon/internal/engine/service"
	"github.com/signalops/beacon/pkg/cache"
	"github.com/signalops/beacon/pkg/database"
	"github.com/signalops/beacon/pkg/http"
	"github.com/signalops/beacon/pkg/log"
	"github.com/signalops/beacon/pkg/metrics"
	"github.com/signalops/beacon/pkg/pprof"
	"github.com/signalops/beacon/pkg/trace"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. BEACON_DATABASE_MYSQL_HOST
const EnvPrefix = "BEACON"

type AppConfig struct {
	Log      log.Conf              `mapstructure:"log"`
	Http     http.Http             `mapstructure:"http"`
	Database database.Database     `mapstructure:"database"`
	Redis    cache.Redis           `mapstructure:"redis"`
	Metrics  metrics.MetricsConfig `mapstructure:"metrics"`
	Pprof    pprof.PprofConfig     `mapstructure:"pprof"`
	Trace    trace.TraceConfig     `mapstructure:"trace"`
	Menu     service.MenuConfig    `mapstructure:"menu"`
}

var (
	cfg    AppConfig
	cfgErr error
	once   sync.Once
)

// NewConf loads the file once per process
func NewConf(confDir string) (AppConfig, error) {
	once.Do(func() {
		cfg, cfgErr = LoadConfigFile(confDir)
	})
	return cfg, cfgErr
}

// LoadConfigFile load config file
// Only the log level is hot reloaded; other sections need a restart.
func LoadConfigFile(confDir string) (AppConfig, error) {
	var loaded AppConfig

	config := viper.New()
	config.SetConfigFile(confDir) //文件名
	config.SetConfigType("toml")
	config.SetEnvPrefix(EnvPrefix)
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	if err := config.ReadInConfig(); err != nil {
		return loaded, fmt.Errorf("failed to read configuration file: %w", err)
	}
	if err := config.Unmarshal(&loaded); err != nil {
		return loaded, fmt.Errorf("failed to unmarshal configuration file: %w", err)
	}

	config.OnConfigChange(func(e fsnotify.Event) {
		var changed AppConfig
		if err := config.Unmarshal(&changed); err != nil {
			log.Warnw("failed to unmarshal changed configuration", "file", e.Name, "error", err)
			return
		}
		log.SetLevel(changed.Log.Level)
		log.Infow("configuration changed, log level reloaded", "file", e.Name, "level", changed.Log.Level)
	})
	config.WatchConfig()

	log.Infow("config file loaded",
		"path", confDir,
	)
	return loaded, nil
}
