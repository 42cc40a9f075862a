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

package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/signalops/beacon/internal/engine/config"
	"github.com/signalops/beacon/internal/engine/service"
	"github.com/signalops/beacon/pkg/database"
	"github.com/signalops/beacon/pkg/log"
	"github.com/signalops/beacon/pkg/metrics"
	"github.com/signalops/beacon/pkg/pprof"
	"github.com/signalops/beacon/pkg/safe"
	"github.com/signalops/beacon/pkg/trace"
)

const stopTimeout = 5 * time.Second

type App struct {
	HttpApp       *fiber.App
	MetricsServer *metrics.Server
	PprofServer   *pprof.Server
	Audit         *service.MenuAudit
	Menu          *service.MenuService
	DB            database.IDatabase
	Logger        *log.Logger
	AppConf       config.AppConfig
}

// InitAppFunc init app function type
type InitAppFunc func(configPath string) (*App, func(), error)

func NewApp(
	httpApp *fiber.App,
	menu *service.MenuService,
	audit *service.MenuAudit,
	metricsServer *metrics.Server,
	pprofServer *pprof.Server,
	logger *log.Logger,
	db database.IDatabase,
	appConf config.AppConfig,
) (*App, func(), error) {
	if err := trace.Init(appConf.Trace); err != nil {
		return nil, nil, fmt.Errorf("init tracing: %w", err)
	}

	if appConf.Menu.AutoMigrate {
		if err := database.AutoMigrate(db.Database()); err != nil {
			_ = trace.Shutdown(context.Background())
			return nil, nil, fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("menu schema migrated")
	}

	app := &App{
		HttpApp:       httpApp,
		MetricsServer: metricsServer,
		PprofServer:   pprofServer,
		Audit:         audit,
		Menu:          menu,
		DB:            db,
		Logger:        logger,
		AppConf:       appConf,
	}

	cleanup := func() {
		// audit stops before the database pool closes
		if audit != nil {
			audit.Stop()
		}

		if pprofServer != nil {
			log.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			if err := pprofServer.Stop(shutdownCtx); err != nil {
				log.Errorw("Failed to stop pprof server", "error", err)
			}
		}

		if metricsServer != nil {
			log.Info("Shutting down metrics server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			if err := metricsServer.Stop(shutdownCtx); err != nil {
				log.Errorw("Failed to stop metrics server", "error", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := trace.Shutdown(shutdownCtx); err != nil {
			log.Errorw("Failed to flush traces", "error", err)
		}
	}

	return app, cleanup, nil
}

// Bootstrap init app, return App instance and cleanup function
func Bootstrap(configFile string, initApp InitAppFunc) (*App, func(), config.AppConfig, error) {
	// wire 注入所有依赖
	app, cleanup, err := initApp(configFile)
	if err != nil {
		return nil, nil, config.AppConfig{}, err
	}
	return app, cleanup, app.AppConf, nil
}

// Run start app and wait for exit signal, then gracefully shutdown
func Run(app *App, cleanup func()) {
	appConf := app.AppConf
	httpConf := appConf.Http
	httpConf.SetDefaults()

	if app.MetricsServer != nil {
		if err := app.MetricsServer.Start(); err != nil {
			log.Errorw("Metrics server failed", "error", err)
		}
	}

	if app.PprofServer != nil {
		if err := app.PprofServer.Start(); err != nil {
			log.Errorw("Pprof server failed", "error", err)
		}
	}

	if app.Audit != nil {
		if err := app.Audit.Start(); err != nil {
			log.Errorw("Menu audit not scheduled", "error", err)
		}
	}

	// set signal listener (graceful shutdown)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// start HTTP server (async)
	safe.Go("http-listener", func() {
		addr := httpConf.Addr()
		log.Infow("HTTP listener started", "address", addr, "contextPath", httpConf.ContextPath)
		if err := app.HttpApp.Listen(addr); err != nil {
			log.Errorw("HTTP listener failed", "address", addr, "error", err)
		}
	})

	sig := <-quit
	log.Infow("Received signal, shutting down gracefully...", "signal", sig)

	if err := app.HttpApp.ShutdownWithTimeout(httpConf.ShutdownDuration()); err != nil {
		log.Errorw("HTTP server shutdown error", "error", err)
	} else {
		log.Info("HTTP server shut down gracefully")
	}

	cleanup()

	log.Info("Server shutdown complete")
}
