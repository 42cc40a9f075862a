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

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errTemporary = errors.New("temporary error")

func TestDo_RetryUntilSuccess(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemporary
		}
		return nil
	}, WithMaxAttempts(3), WithBackoff(Fixed(time.Millisecond)))

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_MaxAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errTemporary
	}, WithMaxAttempts(3), WithBackoff(Fixed(time.Millisecond)))

	assert.ErrorIs(t, err, errTemporary)
	assert.Equal(t, 3, attempts)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return fatal
	}, WithRetryIf(func(err error) bool { return !errors.Is(err, fatal) }))

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, attempts)
}

func TestDo_UnboundedAttemptsStopOnElapsed(t *testing.T) {
	attempts := 0
	start := time.Now()
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errTemporary
	}, WithMaxAttempts(0), WithBackoff(Fixed(10*time.Millisecond)), WithMaxElapsedTime(55*time.Millisecond))

	assert.ErrorIs(t, err, errTemporary)
	assert.Greater(t, attempts, 2)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Do(ctx, func(ctx context.Context) error {
		attempts++
		cancel()
		return errTemporary
	}, WithMaxAttempts(5), WithBackoff(Fixed(time.Second)))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestExponential(t *testing.T) {
	b := Exponential(10*time.Millisecond, 35*time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, b.Next(0))
	assert.Equal(t, 20*time.Millisecond, b.Next(1))
	assert.Equal(t, 35*time.Millisecond, b.Next(2))
	assert.Equal(t, 35*time.Millisecond, b.Next(100))
}

func TestHalfJitter(t *testing.T) {
	for range 100 {
		d := HalfJitter(100 * time.Millisecond)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.Less(t, d, 100*time.Millisecond)
	}
}
