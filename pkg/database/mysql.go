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

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// IDatabase define database interface (abstract)
type IDatabase interface {
	// Database return the underlying *gorm.DB
	Database() *gorm.DB
}

// GormDB GORM database implementation
type GormDB struct {
	db *gorm.DB
}

// NewGormDB wraps an opened *gorm.DB, also used for transaction handles
func NewGormDB(db *gorm.DB) IDatabase {
	return &GormDB{db: db}
}

func (g *GormDB) Database() *gorm.DB {
	return g.db
}

// Open opens a gorm connection on any dialector with the shared logger settings.
func Open(dialector gorm.Dialector, cfg Database) (*gorm.DB, error) {
	logConfig := gormlogger.Config{
		SlowThreshold:             cfg.slowThreshold(),
		LogLevel:                  gormlogger.Warn,
		Colorful:                  false,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	}

	var gl gormlogger.Interface
	if cfg.OutPut {
		logConfig.LogLevel = gormlogger.Info
		gl = NewGormLogger(logConfig, gormlogger.Info)
	} else {
		gl = NewGormLogger(logConfig, gormlogger.Warn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gl})
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	return db, nil
}

// newMySQLConnection opens the default source and registers dbresolver when
// primary or replica sources are configured.
func newMySQLConnection(cfg Database) (*gorm.DB, error) {
	db, err := Open(mysql.Open(cfg.MySQL.DSN()), cfg)
	if err != nil {
		return nil, err
	}

	hasPrimary := len(cfg.MySQL.Primary) > 0
	hasReplicas := len(cfg.MySQL.Replicas) > 0
	if hasPrimary || hasReplicas {
		resolver := dbresolver.Config{TraceResolverMode: cfg.OutPut}
		if resolver.Sources, err = buildDialectors(cfg.MySQL.Primary); err != nil {
			return nil, fmt.Errorf("primary sources: %w", err)
		}
		if resolver.Replicas, err = buildDialectors(cfg.MySQL.Replicas); err != nil {
			return nil, fmt.Errorf("replica sources: %w", err)
		}
		err = db.Use(dbresolver.Register(resolver).
			SetConnMaxIdleTime(cfg.ConnMaxIdleTime()).
			SetConnMaxLifetime(cfg.ConnMaxLifetime()).
			SetMaxIdleConns(cfg.MaxIdleConns).
			SetMaxOpenConns(cfg.MaxOpenConns))
		if err != nil {
			return nil, fmt.Errorf("failed to register dbresolver: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime())
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime())

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if hasPrimary || hasReplicas {
		log.Infow("MySQL connected with read-write separation",
			"primary", len(cfg.MySQL.Primary), "replicas", len(cfg.MySQL.Replicas))
	}
	return db, nil
}
