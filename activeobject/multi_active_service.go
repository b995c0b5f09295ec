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
	"context"
	"sync"
	"time"

	goset "github.com/deckarep/golang-set/v2"
	"go.uber.org/atomic"

	"github.com/activecore/activecore/errors"
	"github.com/activecore/activecore/internal/metric"
	"github.com/activecore/activecore/internal/workerpool"
	"github.com/activecore/activecore/log"
	"github.com/activecore/activecore/request"
)

// execution is one request running under a MultiActiveService
type execution struct {
	request   *request.Request
	startedAt time.Time
}

// MultiActiveService is an activity loop running several requests of the
// same active object at once. A request is admitted only when its method
// is compatible with the method of every running request, according to a
// CompatibilityGraph rebuilt from the declarations at each loop start.
//
// The oldest pending request is always considered first. A request that
// cannot be admitted keeps its position and blocks the admission of the
// younger ones until the running requests it conflicts with complete.
type MultiActiveService struct {
	service         *Service
	queue           *RequestQueue
	declarations    map[string][]string
	maxActive       int
	executionShards int
	logger          log.Logger
	metric          *metric.SchedulerMetric
	serving         *atomic.Bool

	// guarded by mu
	mu           sync.Mutex
	graph        *CompatibilityGraph
	running      map[string]goset.Set[*execution]
	runningCount int
	admitting    bool
	completed    chan struct{}
	pool         *workerpool.WorkerPool

	inflight sync.WaitGroup
}

// NewMultiActiveService creates a MultiActiveService serving the requests of
// the queue on the body. Compatibility declarations are given with
// WithCompatibility; without them no two requests ever run together.
func NewMultiActiveService(body Body, queue *RequestQueue, opts ...Option) (*MultiActiveService, error) {
	cfg := newConfig(opts...)
	if err := validateTarget(body, queue, cfg); err != nil {
		return nil, err
	}

	declarations := make(map[string][]string, len(cfg.compatibility))
	for method, compatibles := range cfg.compatibility {
		declarations[method] = append([]string(nil), compatibles...)
	}

	service := newService(body, queue, cfg)
	return &MultiActiveService{
		service:         service,
		queue:           queue,
		declarations:    declarations,
		maxActive:       cfg.maxActive,
		executionShards: cfg.executionShards,
		logger:          cfg.logger,
		metric:          service.exec.metric,
		serving:         atomic.NewBool(false),
		graph:           NewCompatibilityGraph(declarations),
		running:         make(map[string]goset.Set[*execution]),
		completed:       make(chan struct{}),
	}, nil
}

// Service returns the Service sharing the queue and the body, giving
// access to the single-request policies
func (m *MultiActiveService) Service() *Service {
	return m.service
}

// Graph returns the compatibility graph of the current or last loop
func (m *MultiActiveService) Graph() *CompatibilityGraph {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph
}

// IsServing reports whether MultiActiveServing is running
func (m *MultiActiveService) IsServing() bool {
	return m.serving.Load()
}

// Running returns the number of running requests per method
func (m *MultiActiveService) Running() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.running))
	for method, executions := range m.running {
		out[method] = executions.Cardinality()
	}
	return out
}

// RunningCount returns the number of running requests
func (m *MultiActiveService) RunningCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runningCount
}

// MultiActiveServing runs the activity loop until the body is no longer
// active, the queue is destroyed or the context is done. It returns once
// every admitted request has completed. Executions receive ctx.
func (m *MultiActiveService) MultiActiveServing(ctx context.Context) error {
	if !m.serving.CompareAndSwap(false, true) {
		return errors.ErrAlreadyServing
	}
	defer m.serving.Store(false)

	pool := workerpool.New(workerpool.WithNumShards(m.executionShards))
	pool.Start()

	m.mu.Lock()
	m.graph = NewCompatibilityGraph(m.declarations)
	m.running = make(map[string]goset.Set[*execution])
	m.runningCount = 0
	m.pool = pool
	m.admitting = true
	m.mu.Unlock()

	m.logger.Debugf("multi-active serving of %s started with %d compatible method(s)", m.service.body.ID(), m.graph.Len())

	for m.service.serving(ctx) {
		// capture both signals before trying so no wake-up is lost
		changed := m.queue.changes()
		completed := m.completions()
		if m.tryScheduleOne(ctx) {
			continue
		}

		select {
		case <-changed:
		case <-completed:
		case <-ctx.Done():
		}
	}

	m.mu.Lock()
	m.admitting = false
	m.mu.Unlock()

	m.inflight.Wait()
	pool.Stop()

	m.logger.Debugf("multi-active serving of %s stopped", m.service.body.ID())
	return nil
}

// tryScheduleOne admits the oldest pending request when it is compatible
// with every running request and reports whether it did
func (m *MultiActiveService) tryScheduleOne(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scheduleLocked(ctx)
}

func (m *MultiActiveService) scheduleLocked(ctx context.Context) bool {
	if !m.admitting || (m.maxActive > 0 && m.runningCount >= m.maxActive) {
		return false
	}

	r := m.queue.removeOldestIf(func(candidate *request.Request) bool {
		return m.admissibleLocked(candidate.MethodName())
	})
	if r == nil {
		return false
	}

	exec := &execution{request: r, startedAt: time.Now()}
	m.addRunningLocked(exec)
	m.inflight.Add(1)
	m.metric.AddRunning(ctx, 1)

	if !m.pool.SubmitWork(func() { m.execute(ctx, exec) }) {
		m.removeRunningLocked(exec)
		m.metric.AddRunning(ctx, -1)
		m.inflight.Done()
		if err := m.queue.requeueFront(r); err != nil {
			m.logger.Warnf("failed to requeue %s: %v", r, err)
		}
		return false
	}
	return true
}

// admissibleLocked reports whether the method is compatible with the
// method of every running request
func (m *MultiActiveService) admissibleLocked(method string) bool {
	for running := range m.running {
		if !m.graph.AreCompatible(running, method) {
			return false
		}
	}
	return true
}

// execute serves the request then frees its slot and admits the next one.
// Faults are delivered to the caller by the executor and never stall the loop.
func (m *MultiActiveService) execute(ctx context.Context, exec *execution) {
	defer func() {
		m.mu.Lock()
		m.removeRunningLocked(exec)
		m.notifyCompletionLocked()
		m.scheduleLocked(ctx)
		m.mu.Unlock()

		m.metric.AddRunning(ctx, -1)
		m.logger.Debugf("%s completed after %s", exec.request, time.Since(exec.startedAt))
		m.inflight.Done()
	}()

	m.service.exec.serve(ctx, exec.request)
}

func (m *MultiActiveService) addRunningLocked(exec *execution) {
	method := exec.request.MethodName()
	executions, ok := m.running[method]
	if !ok {
		executions = goset.NewThreadUnsafeSet[*execution]()
		m.running[method] = executions
	}
	executions.Add(exec)
	m.runningCount++
}

func (m *MultiActiveService) removeRunningLocked(exec *execution) {
	method := exec.request.MethodName()
	executions, ok := m.running[method]
	if !ok || !executions.Contains(exec) {
		return
	}
	executions.Remove(exec)
	m.runningCount--
	if executions.Cardinality() == 0 {
		delete(m.running, method)
	}
}

func (m *MultiActiveService) completions() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed
}

func (m *MultiActiveService) notifyCompletionLocked() {
	close(m.completed)
	m.completed = make(chan struct{})
}
