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

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/signalops/beacon/pkg/cache"
	"github.com/signalops/beacon/pkg/log"
)

const (
	LockModeLocal = "local"
	LockModeRedis = "redis"
)

// TreeLocker serializes writers of the menu tree. Every mutation holds it for
// the whole validate-write-rebuild sequence.
type TreeLocker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// LocalLocker is a ctx-aware mutex for single instance deployments
type LocalLocker struct {
	ch chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{ch: make(chan struct{}, 1)}
}

func (l *LocalLocker) Lock(ctx context.Context) (func(), error) {
	select {
	case l.ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-l.ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// MenuConfig menu engine settings
type MenuConfig struct {
	LockMode    string `mapstructure:"lockMode"` // local or redis
	LockKey     string `mapstructure:"lockKey"`
	LockTTL     int    `mapstructure:"lockTTL"`   // seconds, lease renewed while held
	LockWait    int    `mapstructure:"lockWait"`  // seconds
	AuditSpec   string `mapstructure:"auditSpec"` // robfig/cron spec, empty disables the audit
	AutoMigrate bool   `mapstructure:"autoMigrate"`
}

func (c *MenuConfig) SetDefaults() {
	if c.LockMode == "" {
		c.LockMode = LockModeLocal
	}
	if c.LockKey == "" {
		c.LockKey = "beacon:menu:tree:lock"
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 30
	}
	if c.LockWait <= 0 {
		c.LockWait = 10
	}
}

// ProvideTreeLocker picks the lock implementation. Redis is only dialed in redis mode.
func ProvideTreeLocker(cfg MenuConfig, redisCfg cache.Redis) (TreeLocker, func(), error) {
	cfg.SetDefaults()
	switch cfg.LockMode {
	case LockModeLocal:
		return NewLocalLocker(), func() {}, nil
	case LockModeRedis:
		client, err := cache.NewRedis(redisCfg)
		if err != nil {
			return nil, nil, err
		}
		lock := cache.NewRedisLock(client, cfg.LockKey,
			time.Duration(cfg.LockTTL)*time.Second, time.Duration(cfg.LockWait)*time.Second)
		log.Infow("menu tree lock uses redis", "key", cfg.LockKey, "ttl", cfg.LockTTL)
		return lock, func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported menu lock mode: %q", cfg.LockMode)
	}
}
