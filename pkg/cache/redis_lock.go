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

package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/signalops/beacon/pkg/id"
	"github.com/signalops/beacon/pkg/log"
	"github.com/signalops/beacon/pkg/retry"
	"github.com/signalops/beacon/pkg/safe"
)

// ErrLockTimeout is returned when the lock is still held by someone else
// after the wait budget.
var ErrLockTimeout = errors.New("redis lock: wait timeout")

// only the holder of the token may release
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extends the lease only while the key still carries our token
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLock is a single-key mutual exclusion lock shared by every process
// talking to the same redis. TTL is a lease: it is renewed every ttl/3 while
// the lock is held and bounds how long a crashed holder blocks others.
type RedisLock struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

func NewRedisLock(client redis.Cmdable, key string, ttl, wait time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if wait <= 0 {
		wait = 10 * time.Second
	}
	return &RedisLock{
		client: client,
		key:    key,
		ttl:    ttl,
		wait:   wait,
		retry:  50 * time.Millisecond,
	}
}

// errLockHeld marks an attempt that found the key taken
var errLockHeld = errors.New("redis lock: held")

// Lock blocks until the lock is acquired, ctx is done or the wait budget runs
// out. The returned func releases the lock and is safe to call once.
func (l *RedisLock) Lock(ctx context.Context) (func(), error) {
	token := id.UUID()

	err := retry.Do(ctx, func(ctx context.Context) error {
		ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return err
		}
		if !ok {
			return errLockHeld
		}
		return nil
	},
		retry.WithMaxAttempts(0),
		retry.WithMaxElapsedTime(l.wait),
		retry.WithBackoff(retry.Fixed(l.retry)),
		retry.WithJitter(retry.HalfJitter),
		retry.WithRetryIf(func(err error) bool { return errors.Is(err, errLockHeld) }),
	)
	switch {
	case err == nil:
		stop := make(chan struct{})
		done := make(chan struct{})
		safe.Go("redis-lock-renew", func() {
			defer close(done)
			l.renew(token, stop)
		})
		var once sync.Once
		return func() {
			once.Do(func() {
				close(stop)
				<-done
				l.release(token)
			})
		}, nil
	case errors.Is(err, errLockHeld):
		return nil, ErrLockTimeout
	default:
		return nil, err
	}
}

// renew keeps extending the lease until stop is closed or the token is gone
func (l *RedisLock) renew(token string, stop <-chan struct{}) {
	every := max(l.ttl/3, time.Millisecond)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), every)
		n, err := renewScript.Run(ctx, l.client, []string{l.key}, token, l.ttl.Milliseconds()).Int()
		cancel()
		if err != nil {
			log.Warnw("failed to renew redis lock", "key", l.key, "error", err)
			continue
		}
		if n == 0 {
			log.Warnw("redis lock lost before renewal", "key", l.key, "ttl", l.ttl)
			return
		}
	}
}

func (l *RedisLock) release(token string) {
	// the caller's ctx may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int()
	if err != nil {
		log.Warnw("failed to release redis lock", "key", l.key, "error", err)
		return
	}
	if n == 0 {
		log.Warnw("redis lock expired before release", "key", l.key, "ttl", l.ttl)
	}
}
