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

package database

import (
	"fmt"

	"github.com/signalops/beacon/pkg/log"
	"github.com/signalops/beacon/pkg/trace/inject"

	"gorm.io/gorm"
)

// Manager owns the database connection for the process lifetime
type Manager interface {
	// MySQL returns the primary connection (dbresolver routes reads when configured)
	MySQL() *gorm.DB

	// Close closes the underlying pool
	Close() error
}

type managerImpl struct {
	mysql *gorm.DB
}

func (m *managerImpl) MySQL() *gorm.DB {
	return m.mysql
}

func (m *managerImpl) Close() error {
	if m.mysql == nil {
		return nil
	}
	sqlDB, err := m.mysql.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close MySQL: %w", err)
	}
	return nil
}

// NewManager connects to MySQL and installs the tracing plugin
func NewManager(cfg Database) (Manager, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := newMySQLConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect MySQL: %w", err)
	}
	log.Infow("MySQL database connected successfully", "host", cfg.MySQL.Host, "db", cfg.MySQL.DBName)

	return NewManagerFromDB(db), nil
}

// NewManagerFromDB wraps an already opened connection, e.g. sqlite in tests.
func NewManagerFromDB(db *gorm.DB) Manager {
	if err := inject.RegisterGormPlugin(db, false, true); err != nil {
		log.Warnw("failed to register OpenTelemetry gorm plugin", "error", err)
	}
	return &managerImpl{mysql: db}
}
