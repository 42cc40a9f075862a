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
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/signalops/beacon/internal/engine/model"
	"github.com/signalops/beacon/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenuAudit_RunOnce(t *testing.T) {
	s, store := newTestService(t)
	m := metrics.NewMenuMetrics()
	audit := NewMenuAudit(s, MenuConfig{}, m)
	ctx := context.Background()

	adminTree(t, s)
	require.NoError(t, audit.RunOnce(ctx))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditRuns.WithLabelValues(metrics.ResultOK)))

	store.put(model.MenuNode{Name: "Stray", Order: 1})
	err := audit.RunOnce(ctx)
	assert.ErrorIs(t, err, ErrConsistency)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditViolations))

	// the audit never repairs
	err = audit.RunOnce(ctx)
	assert.ErrorIs(t, err, ErrConsistency)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuditViolations))
}

func TestMenuAudit_Schedule(t *testing.T) {
	s, _ := newTestService(t)

	disabled := NewMenuAudit(s, MenuConfig{}, nil)
	assert.False(t, disabled.Enabled())
	require.NoError(t, disabled.Start())
	disabled.Stop()

	bad := NewMenuAudit(s, MenuConfig{AuditSpec: "not a schedule"}, nil)
	assert.Error(t, bad.Start())

	audit := NewMenuAudit(s, MenuConfig{AuditSpec: "@every 1h"}, nil)
	require.NoError(t, audit.Start())
	require.NoError(t, audit.Start(), "starting twice is a no-op")
	audit.Stop()
	audit.Stop()
}
