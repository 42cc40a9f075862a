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
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// SourceConfig is a single primary or replica endpoint
type SourceConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// MySQLConfig MySQL data source.
// Host/Port/User/Password/DBName is the default source. Primary overrides it for
// writes and Replicas enables read-write separation through dbresolver.
type MySQLConfig struct {
	Host     string         `mapstructure:"host"`
	Port     string         `mapstructure:"port"`
	User     string         `mapstructure:"user"`
	Password string         `mapstructure:"password"`
	DBName   string         `mapstructure:"dbname"`
	Primary  []SourceConfig `mapstructure:"primary"`
	Replicas []SourceConfig `mapstructure:"replicas"`
}

// Database common pool settings plus the MySQL source
type Database struct {
	OutPut       bool        `mapstructure:"output"`
	SlowSQL      int         `mapstructure:"slowSql"` // milliseconds
	MaxOpenConns int         `mapstructure:"maxOpenConns"`
	MaxIdleConns int         `mapstructure:"maxIdleConns"`
	MaxLifetime  int         `mapstructure:"maxLifeTime"`
	MaxIdleTime  int         `mapstructure:"maxIdleTime"`
	MySQL        MySQLConfig `mapstructure:"mysql"`
}

// SetDefaults fills pool settings left at zero
func (d *Database) SetDefaults() {
	if d.MaxOpenConns <= 0 {
		d.MaxOpenConns = 50
	}
	if d.MaxIdleConns <= 0 {
		d.MaxIdleConns = 10
	}
	if d.SlowSQL <= 0 {
		d.SlowSQL = 1000
	}
	if d.MySQL.Port == "" {
		d.MySQL.Port = "3306"
	}
}

// Validate checks that the default source is usable
func (d *Database) Validate() error {
	if d.MySQL.Host == "" || d.MySQL.User == "" || d.MySQL.DBName == "" {
		return fmt.Errorf("database.mysql: host, user and dbname are required")
	}
	return nil
}

// ConnMaxLifetime defaults to 5 minutes
func (d *Database) ConnMaxLifetime() time.Duration {
	if d.MaxLifetime > 0 {
		return time.Duration(d.MaxLifetime) * time.Second
	}
	return 300 * time.Second
}

// ConnMaxIdleTime defaults to 1 minute
func (d *Database) ConnMaxIdleTime() time.Duration {
	if d.MaxIdleTime > 0 {
		return time.Duration(d.MaxIdleTime) * time.Second
	}
	return 60 * time.Second
}

func (d *Database) slowThreshold() time.Duration {
	return time.Duration(d.SlowSQL) * time.Millisecond
}

// DSN of the default source
func (c *MySQLConfig) DSN() string {
	return buildMySQLDSN(c.User, c.Password, c.Host, c.Port, c.DBName)
}

func buildMySQLDSN(user, password, host, port, db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, db)
}

// buildDialectors converts source configs to mysql dialectors
func buildDialectors(sources []SourceConfig) ([]gorm.Dialector, error) {
	dialectors := make([]gorm.Dialector, 0, len(sources))
	for _, s := range sources {
		if s.Host == "" || s.User == "" || s.DBName == "" {
			return nil, fmt.Errorf("incomplete database source %q: host, user and dbname are required", s.Host)
		}
		port := s.Port
		if port == "" {
			port = "3306"
		}
		dialectors = append(dialectors, mysql.Open(buildMySQLDSN(s.User, s.Password, s.Host, port, s.DBName)))
	}
	return dialectors, nil
}
