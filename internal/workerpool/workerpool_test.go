// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package workerpool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWorkerPool(t *testing.T) {
	t.Run("With happy path", func(t *testing.T) {
		pool := New(WithNumShards(256), WithPassivateAfter(10*time.Millisecond))
		require.NotNil(t, pool)
		require.Equal(t, maxShards, pool.numShards)

		pool.Start()
		require.Zero(t, pool.SpawnedWorkers())

		workCount := 1000
		executed := atomic.NewInt64(0)
		var wg sync.WaitGroup
		wg.Add(workCount)
		for range workCount {
			require.True(t, pool.SubmitWork(func() {
				defer wg.Done()
				time.Sleep(time.Millisecond)
				executed.Inc()
			}))
		}

		require.NotZero(t, pool.SpawnedWorkers())
		wg.Wait()
		require.EqualValues(t, workCount, executed.Load())

		pool.Stop()
		// already stopped
		pool.Stop()

		require.Eventually(t, func() bool { return pool.SpawnedWorkers() == 0 }, time.Second, 5*time.Millisecond)
	})
	t.Run("When not started", func(t *testing.T) {
		pool := New()
		require.False(t, pool.SubmitWork(func() {}))
		pool.Stop()
		require.False(t, pool.stopped.Load())
	})
	t.Run("When stopped rejects work", func(t *testing.T) {
		pool := New()
		pool.Start()
		pool.Stop()
		require.False(t, pool.SubmitWork(func() { t.Fatal("must not run") }))
	})
	t.Run("Reuses idle workers", func(t *testing.T) {
		pool := New(WithPassivateAfter(time.Minute))
		pool.Start()
		defer pool.Stop()

		for range 10 {
			done := make(chan struct{})
			require.True(t, pool.SubmitWork(func() { close(done) }))
			<-done
			// wait for the worker to park itself again
			require.Eventually(t, func() bool {
				pool.shards[0].mu.Lock()
				defer pool.shards[0].mu.Unlock()
				return len(pool.shards[0].idle) == 1
			}, time.Second, time.Millisecond)
		}
		assert.Equal(t, 1, pool.SpawnedWorkers())
	})
	t.Run("Passivates expired idle workers", func(t *testing.T) {
		pool := New(WithPassivateAfter(20 * time.Millisecond))
		pool.Start()
		defer pool.Stop()

		total := passivationThreshold * 2
		release := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(total)
		for range total {
			require.True(t, pool.SubmitWork(func() {
				wg.Done()
				<-release
			}))
		}
		wg.Wait()
		close(release)

		require.Eventually(t, func() bool {
			return pool.SpawnedWorkers() <= passivationThreshold
		}, 2*time.Second, 10*time.Millisecond)
	})
	t.Run("Invalid options fall back to defaults", func(t *testing.T) {
		pool := New(WithNumShards(-1), WithPassivateAfter(0))
		assert.Equal(t, 1, pool.numShards)
		assert.Equal(t, time.Second, pool.passivateAfter)
	})
}
