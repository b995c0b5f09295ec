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
	"errors"
	"fmt"
	"sync"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/flowchartsman/retry"
	"github.com/google/uuid"
	"go.uber.org/atomic"

	gerrors "github.com/activecore/activecore/errors"
	"github.com/activecore/activecore/request"
)

// delegation is one request handed to a callerWorker. done receives the
// outcome of the hand-off once: nil when the request was served, the
// unavailability fault otherwise.
type delegation struct {
	ctx     context.Context
	request *request.Request
	done    chan error
}

// callerWorker is the long-lived goroutine serving, one at a time, the
// unique-thread requests of a single caller. Idle for longer than the ping
// period it probes its caller and stops when the caller is gone.
type callerWorker struct {
	id       string
	caller   request.Identity
	receiver *RequestReceiver

	// at most one delegation in flight per worker
	callers sync.Mutex
	inbox   *queue.Queue

	ctx      context.Context
	cancel   context.CancelFunc
	closing  *atomic.Bool
	cause    *atomic.Error
	shutOnce sync.Once
	stopped  chan struct{}
}

func newCallerWorker(receiver *RequestReceiver, caller request.Identity) *callerWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &callerWorker{
		id:       uuid.NewString(),
		caller:   caller,
		receiver: receiver,
		inbox:    queue.New(1),
		ctx:      ctx,
		cancel:   cancel,
		closing:  atomic.NewBool(false),
		cause:    atomic.NewError(nil),
		stopped:  make(chan struct{}),
	}
}

func (w *callerWorker) start() {
	go w.run()
}

// delegate hands the request to the worker and waits until it is served.
// A cancelled context stops the wait but not the worker, which still
// serves the request.
func (w *callerWorker) delegate(ctx context.Context, r *request.Request) error {
	w.callers.Lock()
	defer w.callers.Unlock()

	d := &delegation{ctx: ctx, request: r, done: make(chan error, 1)}
	if err := w.inbox.Put(d); err != nil {
		return w.unavailable(w.shutdownCause())
	}

	select {
	case err := <-d.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *callerWorker) run() {
	defer func() {
		w.cancel()
		w.receiver.registry.remove(w)
		w.receiver.metric.AddCallerWorkers(context.Background(), -1)
		close(w.stopped)
	}()

	for {
		items, err := w.inbox.Poll(1, w.receiver.pingPeriod)
		if err == nil {
			for _, item := range items {
				d := item.(*delegation)
				w.receiver.exec.serve(d.ctx, d.request)
				d.done <- nil
			}
			continue
		}

		if !errors.Is(err, queue.ErrTimeout) {
			// disposed
			return
		}

		if perr := w.probe(); perr != nil {
			if w.ctx.Err() == nil {
				w.receiver.logger.Warnf("caller %s failed the liveness probe of worker %s: %v", w.caller, w.id, perr)
			}
			w.shutdown(gerrors.ErrCallerNotAlive)
			return
		}
	}
}

// probe checks the liveness of the caller, retrying with backoff
func (w *callerWorker) probe() error {
	ctx, cancel := context.WithTimeout(w.ctx, w.receiver.pingPeriod)
	defer cancel()

	retrier := retry.NewRetrier(w.receiver.probeRetries, w.receiver.probeBackoff, w.receiver.pingPeriod)
	return retrier.RunContext(ctx, func(ctx context.Context) error {
		alive, err := w.receiver.prober.Probe(ctx, w.caller)
		if err != nil {
			return err
		}
		if !alive {
			return gerrors.ErrCallerNotAlive
		}
		return nil
	})
}

// shutdown disposes the inbox and fails the delegations still pending in it
func (w *callerWorker) shutdown(cause error) {
	w.shutOnce.Do(func() {
		// recorded before the inbox rejects new delegations
		w.cause.Store(cause)
		w.closing.Store(true)
		for _, item := range w.inbox.Dispose() {
			item.(*delegation).done <- w.unavailable(cause)
		}
	})
}

// stop shuts the worker down and waits for its goroutine to exit
func (w *callerWorker) stop(ctx context.Context) error {
	w.cancel()
	w.shutdown(gerrors.ErrReceiverTerminated)

	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker %s of caller %s did not stop: %w", w.id, w.caller, ctx.Err())
	}
}

// shutdownCause returns the reason the worker was shut down for
func (w *callerWorker) shutdownCause() error {
	if cause := w.cause.Load(); cause != nil {
		return cause
	}
	return gerrors.ErrReceiverTerminated
}

func (w *callerWorker) isStopped() bool {
	return w.closing.Load()
}

func (w *callerWorker) unavailable(cause error) error {
	return gerrors.NewReceiverUnavailableError(w.caller.String(), cause)
}
