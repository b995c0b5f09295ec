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

	"github.com/activecore/activecore/errors"
	"github.com/activecore/activecore/internal/metric"
	"github.com/activecore/activecore/log"
	"github.com/activecore/activecore/request"
)

// Server executes the requests a RequestQueue selects during ProcessRequests
type Server interface {
	// Serve executes the request and replies to its caller
	Serve(ctx context.Context, r *request.Request)
	// ServeWithException replies to the caller with the given fault instead of executing the request
	ServeWithException(ctx context.Context, r *request.Request, fault error)
}

// RequestQueue is the mailbox of an active object: an ordered, blocking and
// filterable collection of pending requests.
//
// Ordering
//   - Add appends at the youngest end. AddToFront inserts at the oldest end
//     and is reserved for priority requests.
//   - The queue never reorders its content on its own; "oldest" and
//     "youngest" refer to the current queue position only.
//
// Blocking
//   - Blocking operations wait for a matching request, the destruction of
//     the queue, the timeout or the context, whichever comes first. A zero
//     timeout waits without bound.
//   - Waiters are woken by a notification channel closed on every insertion
//     and on Resume. Nothing polls.
//
// Suspension
//   - While suspended, blocking removals and lookups wait even when a
//     matching request exists. Insertions and non-blocking operations keep
//     working.
//
// Destruction
//   - Destroy empties the queue for good, releases every waiter and makes
//     every later blocking call return immediately with nil.
//
// All mutating operations are mutually exclusive. The queue is safe for
// concurrent use.
type RequestQueue struct {
	mu        sync.Mutex
	requests  []*request.Request
	changed   chan struct{}
	suspended bool
	destroyed bool

	logger log.Logger
	metric *metric.SchedulerMetric
}

// NewRequestQueue creates an empty RequestQueue.
// Only the logging and telemetry options apply to the queue.
func NewRequestQueue(opts ...Option) *RequestQueue {
	cfg := newConfig(opts...)
	return &RequestQueue{
		requests: make([]*request.Request, 0),
		changed:  make(chan struct{}),
		logger:   cfg.logger,
		metric:   cfg.schedulerMetric(),
	}
}

// Add appends the request at the youngest end of the queue
func (q *RequestQueue) Add(r *request.Request) error {
	return q.insert(r, false, true)
}

// AddToFront inserts the request ahead of every pending request
func (q *RequestQueue) AddToFront(r *request.Request) error {
	return q.insert(r, true, true)
}

// requeueFront puts back at the oldest end a request taken by the
// scheduler without waking the waiters
func (q *RequestQueue) requeueFront(r *request.Request) error {
	return q.insert(r, true, false)
}

func (q *RequestQueue) insert(r *request.Request, front, notify bool) error {
	if r == nil {
		return errors.ErrNilRequest
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return errors.ErrQueueDestroyed
	}

	if front {
		q.requests = append(q.requests, nil)
		copy(q.requests[1:], q.requests)
		q.requests[0] = r
	} else {
		q.requests = append(q.requests, r)
	}

	if notify {
		q.notifyLocked()
	}
	return nil
}

// GetOldest returns the oldest request matching the filter without removing it
func (q *RequestQueue) GetOldest(filter request.Filter) *request.Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i := q.oldestLocked(filter); i >= 0 {
		return q.requests[i]
	}
	return nil
}

// GetYoungest returns the youngest request matching the filter without removing it
func (q *RequestQueue) GetYoungest(filter request.Filter) *request.Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i := q.youngestLocked(filter); i >= 0 {
		return q.requests[i]
	}
	return nil
}

// RemoveOldest removes and returns the oldest request matching the filter
func (q *RequestQueue) RemoveOldest(filter request.Filter) *request.Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeAtLocked(q.oldestLocked(filter))
}

// RemoveYoungest removes and returns the youngest request matching the filter
func (q *RequestQueue) RemoveYoungest(filter request.Filter) *request.Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeAtLocked(q.youngestLocked(filter))
}

// removeOldestIf removes the oldest request when admit accepts it. A
// request refused by admit stays at its position. Nothing is removed while
// the queue is suspended.
func (q *RequestQueue) removeOldestIf(admit func(*request.Request) bool) *request.Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.suspended || len(q.requests) == 0 || !admit(q.requests[0]) {
		return nil
	}
	return q.removeAtLocked(0)
}

// BlockingRemoveOldest waits for a request matching the filter and removes
// the oldest one. It returns nil on timeout, on context cancellation or
// when the queue is destroyed.
func (q *RequestQueue) BlockingRemoveOldest(ctx context.Context, filter request.Filter, timeout time.Duration) *request.Request {
	var removed *request.Request
	q.await(ctx, timeout, func() bool {
		removed = q.removeAtLocked(q.oldestLocked(filter))
		return removed != nil
	})
	return removed
}

// BlockingRemoveYoungest waits for a request matching the filter and
// removes the youngest one. It returns nil on timeout, on context
// cancellation or when the queue is destroyed.
func (q *RequestQueue) BlockingRemoveYoungest(ctx context.Context, filter request.Filter, timeout time.Duration) *request.Request {
	var removed *request.Request
	q.await(ctx, timeout, func() bool {
		removed = q.removeAtLocked(q.youngestLocked(filter))
		return removed != nil
	})
	return removed
}

// BlockingGetOldest waits for a request matching the filter and returns the
// oldest one without removing it
func (q *RequestQueue) BlockingGetOldest(ctx context.Context, filter request.Filter, timeout time.Duration) *request.Request {
	var found *request.Request
	q.await(ctx, timeout, func() bool {
		if i := q.oldestLocked(filter); i >= 0 {
			found = q.requests[i]
		}
		return found != nil
	})
	return found
}

// BlockingGetYoungest waits for a request matching the filter and returns
// the youngest one without removing it
func (q *RequestQueue) BlockingGetYoungest(ctx context.Context, filter request.Filter, timeout time.Duration) *request.Request {
	var found *request.Request
	q.await(ctx, timeout, func() bool {
		if i := q.youngestLocked(filter); i >= 0 {
			found = q.requests[i]
		}
		return found != nil
	})
	return found
}

// WaitForRequest waits until the queue holds a request and reports whether it does
func (q *RequestQueue) WaitForRequest(ctx context.Context, timeout time.Duration) bool {
	return q.await(ctx, timeout, func() bool {
		return len(q.requests) > 0
	})
}

// ProcessRequests visits the pending requests once, from the oldest to the
// youngest, and applies the verdict of the processor to each of them.
// Removals happen in the same locked pass, so nothing interleaves between
// the decisions. The requests to serve are then handed to the target in
// visit order once the lock is released, which lets their execution
// enqueue into this very queue. It returns the number of requests served.
//
// The processor runs under the queue lock and must not call the queue.
func (q *RequestQueue) ProcessRequests(ctx context.Context, processor request.Processor, target Server) int {
	toServe, discarded := q.sweep(processor)
	q.metric.RecordDiscarded(ctx, discarded)
	for _, s := range toServe {
		if s.fault != nil {
			target.ServeWithException(ctx, s.request, s.fault)
			continue
		}
		target.Serve(ctx, s.request)
	}
	return len(toServe)
}

// selected is a request picked by a processing pass, with its injected fault if any
type selected struct {
	request *request.Request
	fault   error
}

// sweep runs the processor over the pending requests under the lock. The
// pending requests are only replaced once the pass completes, so a
// panicking processor leaves the queue as it was.
func (q *RequestQueue) sweep(processor request.Processor) (toServe []selected, discarded int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return nil, 0
	}

	if preparer, ok := processor.(request.Preparer); ok {
		preparer.Prepare(q.requests)
	}

	kept := make([]*request.Request, 0, len(q.requests))
	for _, r := range q.requests {
		outcome := processor.Process(r)
		switch outcome.Verdict {
		case request.RemoveAndServe:
			toServe = append(toServe, selected{request: r, fault: outcome.Fault})
		case request.Remove:
			discarded++
			q.logger.Debugf("discarding %s", r)
		default:
			kept = append(kept, r)
		}
	}

	q.requests = kept
	return toServe, discarded
}

// Suspend stops the blocking removals until Resume is called
func (q *RequestQueue) Suspend() {
	q.mu.Lock()
	q.suspended = true
	q.mu.Unlock()
}

// Resume lifts a suspension and wakes the waiters
func (q *RequestQueue) Resume() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.suspended || q.destroyed {
		q.suspended = false
		return
	}
	q.suspended = false
	q.notifyLocked()
}

// IsSuspended reports whether the queue is suspended
func (q *RequestQueue) IsSuspended() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.suspended
}

// Destroy empties the queue for good and releases every waiter.
// It is idempotent.
func (q *RequestQueue) Destroy() {
	q.mu.Lock()
	if q.destroyed {
		q.mu.Unlock()
		return
	}

	q.destroyed = true
	discarded := len(q.requests)
	q.requests = nil
	close(q.changed)
	q.mu.Unlock()

	q.metric.RecordDiscarded(context.Background(), discarded)
	q.logger.Infof("request queue destroyed, %d pending request(s) discarded", discarded)
}

// IsDestroyed reports whether the queue has been destroyed
func (q *RequestQueue) IsDestroyed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.destroyed
}

// Len returns the number of pending requests
func (q *RequestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// IsEmpty reports whether the queue has no pending request
func (q *RequestQueue) IsEmpty() bool {
	return q.Len() == 0
}

// HasRequest reports whether a pending request matches the filter
func (q *RequestQueue) HasRequest(filter request.Filter) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.oldestLocked(filter) >= 0
}

// Snapshot returns a copy of the pending requests from the oldest to the youngest
func (q *RequestQueue) Snapshot() []*request.Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*request.Request, len(q.requests))
	copy(out, q.requests)
	return out
}

// Clear removes every pending request without serving it and returns them
func (q *RequestQueue) Clear() []*request.Request {
	q.mu.Lock()
	cleared := q.requests
	if !q.destroyed {
		q.requests = make([]*request.Request, 0)
	}
	q.mu.Unlock()

	q.metric.RecordDiscarded(context.Background(), len(cleared))
	if len(cleared) > 0 {
		q.logger.Debugf("request queue cleared, %d pending request(s) discarded", len(cleared))
	}
	return cleared
}

// changes returns the channel closed on the next insertion or resumption
func (q *RequestQueue) changes() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.changed
}

// await runs ready under the lock until it succeeds. It returns false on
// timeout, on context cancellation or when the queue is destroyed.
func (q *RequestQueue) await(ctx context.Context, timeout time.Duration, ready func() bool) bool {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		ok, done, changed := q.check(ready)
		if done {
			return ok
		}

		select {
		case <-changed:
		case <-expired:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

// check evaluates ready once under the lock. done tells await to return
// ok; otherwise changed is the channel to wait on before checking again.
func (q *RequestQueue) check(ready func() bool) (ok, done bool, changed <-chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return false, true, nil
	}
	if !q.suspended && ready() {
		return true, true, nil
	}
	return false, false, q.changed
}

func (q *RequestQueue) notifyLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}

func (q *RequestQueue) oldestLocked(filter request.Filter) int {
	for i, r := range q.requests {
		if filter.Match(r) {
			return i
		}
	}
	return -1
}

func (q *RequestQueue) youngestLocked(filter request.Filter) int {
	for i := len(q.requests) - 1; i >= 0; i-- {
		if filter.Match(q.requests[i]) {
			return i
		}
	}
	return -1
}

func (q *RequestQueue) removeAtLocked(index int) *request.Request {
	if index < 0 || index >= len(q.requests) {
		return nil
	}
	r := q.requests[index]
	copy(q.requests[index:], q.requests[index+1:])
	q.requests[len(q.requests)-1] = nil
	q.requests = q.requests[:len(q.requests)-1]
	return r
}
