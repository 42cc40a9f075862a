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
	"context"
	"fmt"
	"os"
	"time"

	"github.com/signalops/beacon/internal/engine/bootstrap"
	"github.com/signalops/beacon/pkg/database"
	"github.com/signalops/beacon/pkg/log"
	"github.com/signalops/beacon/pkg/version"
	"github.com/spf13/cobra"
)

const commandTimeout = 5 * time.Minute

var configFile string

var rootCmd = &cobra.Command{
	Use:   "beacon",
	Short: "beacon serves a hierarchical menu tree",
	Long:  "beacon keeps a menu forest in MySQL with nested-set coordinates and serves it over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recompute every nested-set coordinate",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *bootstrap.App) error {
			if err := app.Menu.Rebuild(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "menu tree rebuilt")
			return nil
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check stored coordinates without repairing them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *bootstrap.App) error {
			if err := app.Menu.Verify(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "menu tree is consistent")
			return nil
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the menu schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *bootstrap.App) error {
			if err := database.AutoMigrate(app.DB.Database().WithContext(ctx)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "menu schema migrated")
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "conf", "c", "conf.d/config.toml", "conf file path, e.g. -c ./conf.d/config.toml")
	rootCmd.SilenceUsage = true
	rootCmd.AddCommand(serveCmd, rebuildCmd, verifyCmd, migrateCmd, version.VersionCmd)
}

func serve() error {
	app, cleanup, _, err := bootstrap.Bootstrap(configFile, initApp)
	if err != nil {
		return err
	}
	bootstrap.Run(app, cleanup)
	return nil
}

// withApp runs a one-shot maintenance command without starting any listener
func withApp(fn func(ctx context.Context, app *bootstrap.App) error) error {
	app, cleanup, _, err := bootstrap.Bootstrap(configFile, initApp)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := fn(ctx, app); err != nil {
		log.Errorw("command failed", "error", err)
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
