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

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/activecore/activecore/errors"
	"github.com/activecore/activecore/internal/errorschain"
	"github.com/activecore/activecore/internal/metric"
	"github.com/activecore/activecore/log"
	"github.com/activecore/activecore/request"
)

// RequestReceiver is the admission controller of an active object. Every
// arriving request goes through Receive, which according to its
// ServiceMode either queues it, serves it on the arrival goroutine, or
// hands it to the worker bound to its caller.
type RequestReceiver struct {
	body         Body
	queue        *RequestQueue
	exec         *executor
	modes        *serviceModeTable
	registry     *workerRegistry
	prober       Prober
	pingPeriod   time.Duration
	probeRetries int
	probeBackoff time.Duration
	shards       int
	logger       log.Logger
	metric       *metric.SchedulerMetric

	// guards the termination against concurrent worker creation
	lifecycle  sync.RWMutex
	terminated *atomic.Bool
}

// NewRequestReceiver creates a RequestReceiver feeding the queue of the
// body. The prober checks the liveness of the callers bound to per-caller
// workers; a nil prober deems every caller alive.
func NewRequestReceiver(body Body, queue *RequestQueue, prober Prober, opts ...Option) (*RequestReceiver, error) {
	cfg := newConfig(opts...)
	if err := validateTarget(body, queue, cfg); err != nil {
		return nil, err
	}

	if prober == nil {
		prober = alwaysAlive{}
	}

	m := cfg.schedulerMetric()
	receiver := &RequestReceiver{
		body:         body,
		queue:        queue,
		exec:         newExecutor(body, cfg, m),
		modes:        newServiceModeTable(),
		registry:     newWorkerRegistry(cfg.registryShards),
		prober:       prober,
		pingPeriod:   cfg.pingPeriod,
		probeRetries: cfg.probeRetries,
		probeBackoff: cfg.probeBackoff,
		shards:       cfg.registryShards,
		logger:       cfg.logger,
		metric:       m,
		terminated:   atomic.NewBool(false),
	}

	for _, method := range cfg.immediateServices {
		receiver.modes.setForName(method, ImmediateMultiThread)
	}
	for _, method := range cfg.uniqueThreadServices {
		receiver.modes.setForName(method, ImmediateUniqueThread)
	}
	return receiver, nil
}

// Receive admits the request.
//
//   - Queued requests, and requests served on the arrival goroutine, return
//     nil; their execution faults travel in their reply.
//   - Requests served by a per-caller worker return once served, or a
//     ReceiverUnavailableError when the worker cannot serve them, or the
//     context error when the wait is cancelled.
//   - Queuing fails with ErrQueueDestroyed once the queue is destroyed.
func (x *RequestReceiver) Receive(ctx context.Context, r *request.Request) error {
	if r == nil {
		return errors.ErrNilRequest
	}

	if r.IsNonFunctional() && r.NonFunctionalPriority() == request.NFImmediatePriority {
		x.metric.RecordImmediate(ctx, ImmediateMultiThread.String())
		x.exec.serve(ctx, r)
		return nil
	}

	switch mode := x.modes.lookup(r); mode {
	case ImmediateMultiThread:
		x.metric.RecordImmediate(ctx, mode.String())
		x.exec.serve(ctx, r)
		return nil
	case ImmediateUniqueThread:
		x.metric.RecordImmediate(ctx, mode.String())
		err := x.delegate(ctx, r)
		if err != nil {
			x.logger.Warnf("failed to serve %s on %s: %v", r, x.body.ID(), err)
		}
		return err
	default:
		return x.enqueue(r)
	}
}

func (x *RequestReceiver) enqueue(r *request.Request) error {
	r.NotifyReception()

	var err error
	if r.IsPriority() || (r.IsNonFunctional() && r.NonFunctionalPriority() == request.NFPriority) {
		err = x.queue.AddToFront(r)
	} else {
		err = x.queue.Add(r)
	}

	if err != nil {
		x.logger.Errorf("failed to queue %s on %s: %v", r, x.body.ID(), err)
	}
	return err
}

// delegate hands the request to the worker bound to its caller, starting
// one when needed
func (x *RequestReceiver) delegate(ctx context.Context, r *request.Request) error {
	x.lifecycle.RLock()
	if x.terminated.Load() {
		x.lifecycle.RUnlock()
		return errors.NewReceiverUnavailableError(r.Sender().String(), errors.ErrReceiverTerminated)
	}

	caller := r.Sender()
	worker, created := x.registry.getOrCreate(caller, func() *callerWorker {
		return newCallerWorker(x, caller)
	})
	if created {
		x.metric.AddCallerWorkers(ctx, 1)
		x.logger.Debugf("worker %s started for caller %s on %s", worker.id, caller, x.body.ID())
		worker.start()
	}
	x.lifecycle.RUnlock()

	return worker.delegate(ctx, r)
}

// SetImmediateService serves every signature of the method immediately:
// on the worker bound to the caller when uniqueThread is set, on the
// arrival goroutine otherwise
func (x *RequestReceiver) SetImmediateService(methodName string, uniqueThread bool) {
	x.modes.setForName(methodName, immediateMode(uniqueThread))
}

// SetImmediateServiceFor serves the given signature of the method
// immediately. It overrides the mode registered for the method name.
func (x *RequestReceiver) SetImmediateServiceFor(methodName string, parameterTypes []string, uniqueThread bool) {
	x.modes.setForSignature(methodName, parameterTypes, immediateMode(uniqueThread))
}

// RemoveImmediateService puts every signature of the method back to normal service
func (x *RequestReceiver) RemoveImmediateService(methodName string) {
	x.modes.removeMethod(methodName)
}

// RemoveImmediateServiceFor puts the given signature of the method back to
// normal service. The other signatures keep the mode of the method name.
func (x *RequestReceiver) RemoveImmediateServiceFor(methodName string, parameterTypes []string) {
	x.modes.setForSignature(methodName, parameterTypes, NormalService)
}

// ServiceModeOf returns the mode the request would be served with
func (x *RequestReceiver) ServiceModeOf(r *request.Request) ServiceMode {
	if r == nil {
		return NormalService
	}
	return x.modes.lookup(r)
}

// WorkerCount returns the number of live per-caller workers
func (x *RequestReceiver) WorkerCount() int {
	return x.registry.len()
}

// IsTerminated reports whether Terminate has been called
func (x *RequestReceiver) IsTerminated() bool {
	return x.terminated.Load()
}

// Terminate stops every per-caller worker and waits for them until the
// context is done. Later unique-thread requests fail with a
// ReceiverUnavailableError. Other modes keep working. It is idempotent.
func (x *RequestReceiver) Terminate(ctx context.Context) error {
	x.lifecycle.Lock()
	if x.terminated.Swap(true) {
		x.lifecycle.Unlock()
		return nil
	}
	workers := x.registry.drain()
	x.lifecycle.Unlock()

	chain := errorschain.New(errorschain.ReturnAll())
	eg := new(errgroup.Group)
	eg.SetLimit(x.shards)
	for _, worker := range workers {
		eg.Go(func() error {
			chain.AddError(worker.stop(ctx))
			return nil
		})
	}
	_ = eg.Wait()

	x.logger.Infof("receiver of %s terminated, %d caller worker(s) stopped", x.body.ID(), len(workers))
	return chain.Error()
}

func immediateMode(uniqueThread bool) ServiceMode {
	if uniqueThread {
		return ImmediateUniqueThread
	}
	return ImmediateMultiThread
}
