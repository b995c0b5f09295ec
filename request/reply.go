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

package request

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"github.com/activecore/activecore/errors"
)

// Reply carries the outcome of a served request: either a result or a fault
type Reply struct {
	Result any
	Fault  error
}

// Failed reports whether the reply carries a fault
func (r *Reply) Failed() bool {
	return r != nil && r.Fault != nil
}

// Replier delivers the reply of a request to its caller
type Replier interface {
	Reply(ctx context.Context, reply *Reply) error
}

// ReplierFunc implements the Replier interface
type ReplierFunc func(ctx context.Context, reply *Reply) error

// Reply calls f(ctx, reply)
func (f ReplierFunc) Reply(ctx context.Context, reply *Reply) error {
	return f(ctx, reply)
}

// Future is a Replier completed at most once that callers can wait on
type Future struct {
	done      chan struct{}
	completed *atomic.Bool
	mu        sync.RWMutex
	reply     *Reply
}

// enforce compilation error
var _ Replier = (*Future)(nil)

// NewFuture creates a pending Future
func NewFuture() *Future {
	return &Future{
		done:      make(chan struct{}),
		completed: atomic.NewBool(false),
	}
}

// Reply completes the future. A second call returns ErrFutureCompleted
// and leaves the first reply untouched.
func (f *Future) Reply(_ context.Context, reply *Reply) error {
	if !f.completed.CompareAndSwap(false, true) {
		return errors.ErrFutureCompleted
	}

	if reply == nil {
		reply = new(Reply)
	}

	f.mu.Lock()
	f.reply = reply
	f.mu.Unlock()
	close(f.done)
	return nil
}

// Await blocks until the future completes or the context is done and
// returns the result and the fault of the reply.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		reply, _ := f.Result()
		return reply.Result, reply.Fault
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done returns a channel closed once the future completes
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the reply without blocking. The boolean is false while
// the future is pending.
func (f *Future) Result() (*Reply, bool) {
	select {
	case <-f.done:
		f.mu.RLock()
		defer f.mu.RUnlock()
		return f.reply, true
	default:
		return nil, false
	}
}
