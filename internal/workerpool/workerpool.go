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

// Package workerpool provides the sharded goroutine pool that backs the
// concurrent execution units of a multi-active scheduler.
package workerpool

import (
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/atomic"
)

const (
	// maximum number of shards supported by the pool
	maxShards = 128

	// idle workers a shard keeps before passivation kicks in
	passivationThreshold = 64
)

// Option is the interface that applies a WorkerPool option.
type Option interface {
	// Apply sets the Option value of a WorkerPool.
	Apply(pool *WorkerPool)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(pool *WorkerPool)

// Apply applies the WorkerPool's option
func (f OptionFunc) Apply(pool *WorkerPool) {
	f(pool)
}

// WithPassivateAfter sets the duration after which an idle worker goroutine exits
func WithPassivateAfter(d time.Duration) Option {
	return OptionFunc(func(pool *WorkerPool) {
		pool.passivateAfter = d
	})
}

// WithNumShards sets the number of shards
func WithNumShards(numShards int) Option {
	return OptionFunc(func(pool *WorkerPool) {
		pool.numShards = numShards
	})
}

// WorkerPool hands submitted tasks to reusable worker goroutines spread
// across shards to reduce contention on the idle lists.
type WorkerPool struct {
	passivateAfter time.Duration
	numShards      int
	shards         []*poolShard
	mutex          sync.RWMutex
	started        *atomic.Bool
	stopped        *atomic.Bool
	spawned        *atomic.Int64
	stopSig        chan struct{}
	cleanupDone    chan struct{}
}

// worker is a goroutine that executes submitted tasks one at a time.
type worker struct {
	tasks    chan func()
	shard    *poolShard
	lastUsed *atomic.Time
	closed   *atomic.Bool
}

// poolShard holds the idle workers of one subdivision of the pool.
// idle is ordered from least to most recently used.
type poolShard struct {
	pool    *WorkerPool
	mu      sync.Mutex
	idle    []*worker
	stopped bool
}

// New creates a new worker pool with the given options.
func New(opts ...Option) *WorkerPool {
	wp := &WorkerPool{
		passivateAfter: time.Second,
		numShards:      1,
		started:        atomic.NewBool(false),
		stopped:        atomic.NewBool(false),
		spawned:        atomic.NewInt64(0),
		stopSig:        make(chan struct{}),
		cleanupDone:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt.Apply(wp)
	}

	switch {
	case wp.numShards < 1:
		wp.numShards = 1
	case wp.numShards > maxShards:
		wp.numShards = maxShards
	}

	if wp.passivateAfter <= 0 {
		wp.passivateAfter = time.Second
	}

	return wp
}

// SpawnedWorkers returns the number of live worker goroutines.
func (wp *WorkerPool) SpawnedWorkers() int {
	return int(wp.spawned.Load())
}

// Start initializes the shards and begins the passivation routine.
// It is safe to call Start multiple times.
func (wp *WorkerPool) Start() {
	wp.mutex.Lock()
	defer wp.mutex.Unlock()
	if wp.started.Load() {
		return
	}

	wp.shards = make([]*poolShard, wp.numShards)
	for i := range wp.numShards {
		wp.shards[i] = &poolShard{
			pool: wp,
			idle: make([]*worker, 0, passivationThreshold),
		}
	}

	wp.started.Store(true)
	go wp.cleanup()
}

// Stop closes every idle worker and rejects further submissions.
// Tasks already running complete normally, after which their workers exit.
func (wp *WorkerPool) Stop() {
	wp.mutex.Lock()
	if !wp.started.Load() || wp.stopped.Swap(true) {
		wp.mutex.Unlock()
		return
	}

	for _, shard := range wp.shards {
		shard.mu.Lock()
		shard.stopped = true
		for i, w := range shard.idle {
			w.close()
			shard.idle[i] = nil
		}
		shard.idle = shard.idle[:0]
		shard.mu.Unlock()
	}

	close(wp.stopSig)
	wp.mutex.Unlock()
	<-wp.cleanupDone
}

// SubmitWork hands the task to an idle worker or spawns a new one.
// It returns false when the pool is not running, in which case the task
// is not executed.
func (wp *WorkerPool) SubmitWork(task func()) bool {
	wp.mutex.RLock()
	if !wp.started.Load() || wp.stopped.Load() {
		wp.mutex.RUnlock()
		return false
	}

	shard := wp.shards[rand.IntN(wp.numShards)]
	wp.mutex.RUnlock()
	return shard.dispatch(task)
}

func (shard *poolShard) dispatch(task func()) bool {
	shard.mu.Lock()
	if shard.stopped {
		shard.mu.Unlock()
		return false
	}

	if n := len(shard.idle); n > 0 {
		w := shard.idle[n-1]
		shard.idle[n-1] = nil
		shard.idle = shard.idle[:n-1]
		shard.mu.Unlock()
		w.tasks <- task
		return true
	}
	shard.mu.Unlock()

	w := &worker{
		tasks:    make(chan func(), 1),
		shard:    shard,
		lastUsed: atomic.NewTime(time.Now()),
		closed:   atomic.NewBool(false),
	}

	w.tasks <- task
	shard.pool.spawned.Inc()
	go w.run()
	return true
}

// release puts the worker back on the idle list. It returns false once the
// shard has been stopped.
func (shard *poolShard) release(w *worker) bool {
	w.lastUsed.Store(time.Now())

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if shard.stopped {
		return false
	}
	shard.idle = append(shard.idle, w)
	return true
}

func (w *worker) run() {
	defer w.shard.pool.spawned.Dec()
	for task := range w.tasks {
		task()
		if !w.shard.release(w) {
			return
		}
	}
}

func (w *worker) close() {
	if !w.closed.Swap(true) {
		close(w.tasks)
	}
}

// cleanup periodically closes the workers that stayed idle longer than
// passivateAfter.
func (wp *WorkerPool) cleanup() {
	defer close(wp.cleanupDone)

	ticker := time.NewTicker(wp.passivateAfter)
	defer ticker.Stop()

	var expired []*worker
	for {
		select {
		case <-wp.stopSig:
			return
		case <-ticker.C:
		}

		cutoff := time.Now().Add(-wp.passivateAfter)
		for _, shard := range wp.shards {
			expired = shard.expire(cutoff, expired[:0])
			for i, w := range expired {
				w.close()
				expired[i] = nil
			}
		}
	}
}

// expire detaches the idle workers last used before cutoff once the shard
// holds more than passivationThreshold of them.
func (shard *poolShard) expire(cutoff time.Time, into []*worker) []*worker {
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if shard.stopped || len(shard.idle) <= passivationThreshold {
		return into
	}

	// idle is ordered by release time so the expired workers form a prefix
	pos := 0
	for pos < len(shard.idle) && shard.idle[pos].lastUsed.Load().Before(cutoff) {
		pos++
	}

	if pos == 0 {
		return into
	}

	into = append(into, shard.idle[:pos]...)
	remaining := copy(shard.idle, shard.idle[pos:])
	for i := remaining; i < len(shard.idle); i++ {
		shard.idle[i] = nil
	}
	shard.idle = shard.idle[:remaining]
	return into
}
