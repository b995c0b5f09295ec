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

package activeobject

import (
	"sync"

	"github.com/zeebo/xxh3"

	"github.com/activecore/activecore/request"
)

// workerRegistry holds the live per-caller workers of one receiver,
// sharded by caller identity
type workerRegistry struct {
	shards []*registryShard
}

type registryShard struct {
	mu      sync.Mutex
	workers map[request.Identity]*callerWorker
}

func newWorkerRegistry(shards int) *workerRegistry {
	registry := &workerRegistry{shards: make([]*registryShard, shards)}
	for i := range registry.shards {
		registry.shards[i] = &registryShard{workers: make(map[request.Identity]*callerWorker)}
	}
	return registry
}

func (x *workerRegistry) shardOf(caller request.Identity) *registryShard {
	return x.shards[xxh3.HashString(string(caller))%uint64(len(x.shards))]
}

// getOrCreate returns the live worker of the caller, creating and
// registering one with create when there is none or it has stopped
func (x *workerRegistry) getOrCreate(caller request.Identity, create func() *callerWorker) (worker *callerWorker, created bool) {
	shard := x.shardOf(caller)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if existing, ok := shard.workers[caller]; ok && !existing.isStopped() {
		return existing, false
	}

	worker = create()
	shard.workers[caller] = worker
	return worker, true
}

// remove deregisters the worker if it is still the one bound to its caller
func (x *workerRegistry) remove(worker *callerWorker) {
	shard := x.shardOf(worker.caller)
	shard.mu.Lock()
	if current, ok := shard.workers[worker.caller]; ok && current == worker {
		delete(shard.workers, worker.caller)
	}
	shard.mu.Unlock()
}

// drain deregisters and returns every worker
func (x *workerRegistry) drain() []*callerWorker {
	var out []*callerWorker
	for _, shard := range x.shards {
		shard.mu.Lock()
		for caller, worker := range shard.workers {
			out = append(out, worker)
			delete(shard.workers, caller)
		}
		shard.mu.Unlock()
	}
	return out
}

// len returns the number of registered workers
func (x *workerRegistry) len() int {
	total := 0
	for _, shard := range x.shards {
		shard.mu.Lock()
		total += len(shard.workers)
		shard.mu.Unlock()
	}
	return total
}
