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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"
	"github.com/signalops/beacon/pkg/log"
	"github.com/signalops/beacon/pkg/metrics"
	"github.com/signalops/beacon/pkg/safe"
)

const auditTimeout = time.Minute

// MenuAudit periodically verifies the stored coordinates. It never repairs;
// a violation is logged and counted.
type MenuAudit struct {
	svc     *MenuService
	spec    string
	metrics *metrics.MenuMetrics

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewMenuAudit(svc *MenuService, cfg MenuConfig, m *metrics.MenuMetrics) *MenuAudit {
	return &MenuAudit{svc: svc, spec: cfg.AuditSpec, metrics: m}
}

// Enabled reports whether a schedule is configured
func (a *MenuAudit) Enabled() bool {
	return a.spec != ""
}

// Start schedules the audit. A no-op when no schedule is configured.
func (a *MenuAudit) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.Enabled() || a.running {
		return nil
	}

	c := cron.New()
	if err := c.AddFunc(a.spec, func() {
		_ = safe.Do("menu-audit", func() {
			ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
			defer cancel()
			_ = a.RunOnce(ctx)
		})
	}); err != nil {
		return fmt.Errorf("invalid menu audit schedule %q: %w", a.spec, err)
	}
	c.Start()
	a.cron = c
	a.running = true
	log.Infow("menu audit scheduled", "spec", a.spec)
	return nil
}

func (a *MenuAudit) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return
	}
	a.cron.Stop()
	a.running = false
	log.Info("menu audit stopped")
}

// RunOnce verifies the tree once and records the outcome.
func (a *MenuAudit) RunOnce(ctx context.Context) error {
	err := a.svc.Verify(ctx)
	violation := errors.Is(err, ErrConsistency)
	a.metrics.ObserveAudit(violation, err)

	switch {
	case err == nil:
		log.WithContext(ctx).Debug("menu audit passed")
	case violation:
		log.WithContext(ctx).Errorw("menu audit found inconsistent tree", "error", err)
	default:
		log.WithContext(ctx).Warnw("menu audit failed", "error", err)
	}
	return err
}
