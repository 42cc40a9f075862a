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
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// set BEACON_TEST_REDIS=127.0.0.1:6379 to run against a real server
func testRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	addr := os.Getenv("BEACON_TEST_REDIS")
	if addr == "" {
		t.Skip("BEACON_TEST_REDIS not set")
	}
	client, err := NewRedis(Redis{Mode: ModeSingle, Address: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedis_SetDefaults(t *testing.T) {
	r := Redis{}
	r.SetDefaults()
	assert.Equal(t, ModeSingle, r.Mode)
	assert.Equal(t, "127.0.0.1:6379", r.Address)
	assert.Equal(t, 20, r.PoolSize)
}

func TestNewRedis_UnsupportedMode(t *testing.T) {
	_, err := NewRedis(Redis{Mode: "ring"})
	assert.ErrorContains(t, err, "unsupported redis mode")
}

func TestSplitAddrs(t *testing.T) {
	assert.Equal(t, []string{"a:1", "b:2"}, splitAddrs(" a:1, ,b:2 "))
}

func TestRedisLock_MutualExclusion(t *testing.T) {
	client := testRedis(t)
	key := "beacon:test:lock:" + uuid.NewString()
	lock := NewRedisLock(client, key, 5*time.Second, 5*time.Second)

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := lock.Lock(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestRedisLock_WaitTimeout(t *testing.T) {
	client := testRedis(t)
	key := "beacon:test:lock:" + uuid.NewString()

	holder := NewRedisLock(client, key, 5*time.Second, time.Second)
	unlock, err := holder.Lock(context.Background())
	require.NoError(t, err)
	defer unlock()

	waiter := NewRedisLock(client, key, 5*time.Second, 100*time.Millisecond)
	_, err = waiter.Lock(context.Background())
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestRedisLock_LeaseRenewedWhileHeld(t *testing.T) {
	client := testRedis(t)
	key := "beacon:test:lock:" + uuid.NewString()

	holder := NewRedisLock(client, key, 300*time.Millisecond, time.Second)
	unlock, err := holder.Lock(context.Background())
	require.NoError(t, err)

	// held well past the ttl
	time.Sleep(time.Second)

	waiter := NewRedisLock(client, key, 300*time.Millisecond, 200*time.Millisecond)
	_, err = waiter.Lock(context.Background())
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	exists, err := client.Exists(context.Background(), key).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	unlock, err = waiter.Lock(context.Background())
	require.NoError(t, err)
	unlock()
}

func TestRedisLock_ReleaseKeepsForeignToken(t *testing.T) {
	client := testRedis(t)
	key := "beacon:test:lock:" + uuid.NewString()
	lock := NewRedisLock(client, key, time.Second, time.Second)

	unlock, err := lock.Lock(context.Background())
	require.NoError(t, err)

	// simulate expiry and takeover by another holder
	require.NoError(t, client.Set(context.Background(), key, "someone-else", time.Second).Err())
	unlock()

	v, err := client.Get(context.Background(), key).Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}
