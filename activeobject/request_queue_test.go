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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/activecore/activecore/errors"
	"github.com/activecore/activecore/request"
)

func TestRequestQueue(t *testing.T) {
	t.Run("Oldest and youngest follow insertion order", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		for _, name := range []string{"r1", "r2", "r3"} {
			require.NoError(t, queue.Add(newTagged("put", name)))
		}

		assert.Equal(t, "r1", tag(queue.GetOldest(nil)))
		assert.Equal(t, "r3", tag(queue.GetYoungest(nil)))
		assert.Equal(t, 3, queue.Len())

		assert.Equal(t, "r3", tag(queue.RemoveYoungest(nil)))
		assert.Equal(t, "r1", tag(queue.RemoveOldest(nil)))
		assert.Equal(t, []string{"r2"}, tags(queue.Snapshot()))
	})
	t.Run("Front insertions come before the requests already present", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		require.NoError(t, queue.Add(newTagged("put", "n1")))
		require.NoError(t, queue.Add(newTagged("put", "n2")))
		require.NoError(t, queue.AddToFront(newTagged("put", "p1")))
		require.NoError(t, queue.Add(newTagged("put", "n3")))
		require.NoError(t, queue.AddToFront(newTagged("put", "p2")))

		var order []string
		for r := queue.RemoveOldest(nil); r != nil; r = queue.RemoveOldest(nil) {
			order = append(order, tag(r))
		}
		assert.Equal(t, []string{"p2", "p1", "n1", "n2", "n3"}, order)
		assert.True(t, queue.IsEmpty())
	})
	t.Run("Filtered lookups and removals", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		require.NoError(t, queue.Add(newTagged("put", "p1")))
		require.NoError(t, queue.Add(newTagged("get", "g1")))
		require.NoError(t, queue.Add(newTagged("put", "p2")))
		require.NoError(t, queue.Add(newTagged("get", "g2")))

		byGet := request.ByMethod("get")
		assert.Equal(t, "g1", tag(queue.GetOldest(byGet)))
		assert.Equal(t, "g2", tag(queue.GetYoungest(byGet)))
		assert.Nil(t, queue.GetOldest(request.ByMethod("delete")))
		assert.Nil(t, queue.RemoveOldest(request.ByMethod("delete")))
		assert.True(t, queue.HasRequest(byGet))

		assert.Equal(t, "g2", tag(queue.RemoveYoungest(byGet)))
		assert.Equal(t, "g1", tag(queue.RemoveOldest(byGet)))
		assert.False(t, queue.HasRequest(byGet))
		assert.Equal(t, []string{"p1", "p2"}, tags(queue.Snapshot()))
	})
	t.Run("Nil requests are rejected", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		assert.ErrorIs(t, queue.Add(nil), gerrors.ErrNilRequest)
		assert.ErrorIs(t, queue.AddToFront(nil), gerrors.ErrNilRequest)
	})
	t.Run("Clear discards every request", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		require.NoError(t, queue.Add(newTagged("put", "r1")))
		require.NoError(t, queue.Add(newTagged("put", "r2")))

		assert.Equal(t, []string{"r1", "r2"}, tags(queue.Clear()))
		assert.True(t, queue.IsEmpty())
		assert.Empty(t, queue.Clear())
		require.NoError(t, queue.Add(newTagged("put", "r3")))
	})
	t.Run("requeueFront restores the head without waking waiters", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		require.NoError(t, queue.Add(newTagged("put", "r2")))
		changed := queue.changes()
		require.NoError(t, queue.requeueFront(newTagged("put", "r1")))

		select {
		case <-changed:
			t.Fatal("requeue must not notify")
		default:
		}
		assert.Equal(t, []string{"r1", "r2"}, tags(queue.Snapshot()))
	})
	t.Run("removeOldestIf only removes an admitted head", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		require.NoError(t, queue.Add(newTagged("put", "r1")))
		require.NoError(t, queue.Add(newTagged("get", "r2")))

		refuse := func(*request.Request) bool { return false }
		assert.Nil(t, queue.removeOldestIf(refuse))
		assert.Equal(t, []string{"r1", "r2"}, tags(queue.Snapshot()))

		admit := func(*request.Request) bool { return true }
		queue.Suspend()
		assert.Nil(t, queue.removeOldestIf(admit))
		queue.Resume()
		assert.Equal(t, "r1", tag(queue.removeOldestIf(admit)))
	})
}

func TestRequestQueueBlocking(t *testing.T) {
	ctx := context.Background()

	t.Run("BlockingRemoveOldest returns as soon as a match arrives", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		result := make(chan *request.Request, 1)
		go func() {
			result <- queue.BlockingRemoveOldest(ctx, request.ByMethod("put"), 0)
		}()

		// a non matching arrival does not release the waiter
		require.NoError(t, queue.Add(newTagged("get", "g1")))
		select {
		case <-result:
			t.Fatal("waiter released by a non matching request")
		case <-time.After(50 * time.Millisecond):
		}

		require.NoError(t, queue.Add(newTagged("put", "p1")))
		select {
		case r := <-result:
			assert.Equal(t, "p1", tag(r))
		case <-time.After(eventuallyWait):
			t.Fatal("waiter not released")
		}
		assert.Equal(t, []string{"g1"}, tags(queue.Snapshot()))
	})
	t.Run("BlockingRemoveYoungest returns the youngest match", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		require.NoError(t, queue.Add(newTagged("put", "r1")))
		require.NoError(t, queue.Add(newTagged("put", "r2")))
		assert.Equal(t, "r2", tag(queue.BlockingRemoveYoungest(ctx, nil, time.Second)))
	})
	t.Run("Blocking calls time out", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		start := time.Now()
		assert.Nil(t, queue.BlockingRemoveOldest(ctx, nil, 30*time.Millisecond))
		assert.Nil(t, queue.BlockingGetYoungest(ctx, nil, 10*time.Millisecond))
		assert.False(t, queue.WaitForRequest(ctx, 10*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})
	t.Run("Blocking calls honor the context", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		cctx, cancel := context.WithCancel(ctx)
		result := make(chan *request.Request, 1)
		go func() {
			result <- queue.BlockingRemoveOldest(cctx, nil, 0)
		}()
		cancel()
		select {
		case r := <-result:
			assert.Nil(t, r)
		case <-time.After(eventuallyWait):
			t.Fatal("waiter not released")
		}
	})
	t.Run("Blocking lookups do not remove", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		result := make(chan *request.Request, 1)
		go func() {
			result <- queue.BlockingGetOldest(ctx, nil, 0)
		}()
		require.NoError(t, queue.Add(newTagged("put", "r1")))
		assert.Equal(t, "r1", tag(<-result))
		assert.Equal(t, 1, queue.Len())
		assert.True(t, queue.WaitForRequest(ctx, 0))
	})
	t.Run("Destroy releases every waiter for good", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		require.NoError(t, queue.Add(newTagged("get", "g1")))

		const waiters = 3
		released := make(chan *request.Request, waiters)
		for range waiters {
			go func() {
				released <- queue.BlockingRemoveOldest(ctx, request.ByMethod("put"), 0)
			}()
		}

		time.Sleep(20 * time.Millisecond)
		queue.Destroy()
		for range waiters {
			select {
			case r := <-released:
				assert.Nil(t, r)
			case <-time.After(eventuallyWait):
				t.Fatal("waiter not released")
			}
		}

		assert.True(t, queue.IsDestroyed())
		assert.True(t, queue.IsEmpty())
		assert.ErrorIs(t, queue.Add(newTagged("put", "late")), gerrors.ErrQueueDestroyed)
		assert.ErrorIs(t, queue.AddToFront(newTagged("put", "late")), gerrors.ErrQueueDestroyed)

		start := time.Now()
		assert.Nil(t, queue.BlockingRemoveOldest(ctx, nil, 0))
		assert.False(t, queue.WaitForRequest(ctx, 0))
		assert.Less(t, time.Since(start), time.Second)

		// idempotent
		queue.Destroy()
		queue.Resume()
		assert.Zero(t, queue.ProcessRequests(ctx, serveAllProcessor(nil, nil), newRecordingServer()))
	})
	t.Run("Suspension holds blocking removals until resumed", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		require.NoError(t, queue.Add(newTagged("put", "r1")))
		queue.Suspend()
		assert.True(t, queue.IsSuspended())

		assert.Nil(t, queue.BlockingRemoveOldest(ctx, nil, 20*time.Millisecond))

		result := make(chan *request.Request, 1)
		go func() {
			result <- queue.BlockingRemoveOldest(ctx, nil, 0)
		}()

		// insertion and non-blocking lookups keep working
		require.NoError(t, queue.Add(newTagged("put", "r2")))
		assert.Equal(t, 2, queue.Len())
		select {
		case <-result:
			t.Fatal("suspended queue served a waiter")
		case <-time.After(30 * time.Millisecond):
		}

		queue.Resume()
		assert.False(t, queue.IsSuspended())
		select {
		case r := <-result:
			assert.Equal(t, "r1", tag(r))
		case <-time.After(eventuallyWait):
			t.Fatal("waiter not released by resume")
		}
	})
}

func TestRequestQueueProcessRequests(t *testing.T) {
	ctx := context.Background()

	t.Run("Flushing youngest serves the last match only", func(t *testing.T) {
		for _, layout := range [][]string{{"r1", "r2", "r3"}, {"r2", "r1", "r3"}, {"r1", "r3", "r2"}} {
			queue := NewRequestQueue(testOptions()...)
			methods := map[string]string{"r1": "A", "r2": "B", "r3": "A"}
			for _, name := range layout {
				require.NoError(t, queue.Add(newTagged(methods[name], name)))
			}

			server := newRecordingServer()
			served := queue.ProcessRequests(ctx, newFlushingYoungestProcessor(request.ByMethod("A")), server)
			assert.Equal(t, 1, served)
			assert.Equal(t, []string{"r3"}, server.served)
			assert.Equal(t, []string{"r2"}, tags(queue.Snapshot()))
		}
	})
	t.Run("Flushing oldest serves the first match only", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		require.NoError(t, queue.Add(newTagged("A", "r1")))
		require.NoError(t, queue.Add(newTagged("B", "r2")))
		require.NoError(t, queue.Add(newTagged("A", "r3")))

		server := newRecordingServer()
		queue.ProcessRequests(ctx, newFlushingOldestProcessor(request.ByMethod("A")), server)
		assert.Equal(t, []string{"r1"}, server.served)
		assert.Equal(t, []string{"r2"}, tags(queue.Snapshot()))
	})
	t.Run("Injected faults replace execution", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		require.NoError(t, queue.Add(newTagged("A", "r1")))
		require.NoError(t, queue.Add(newTagged("B", "r2")))

		fault := errors.New("rejected")
		server := newRecordingServer()
		served := queue.ProcessRequests(ctx, serveAllProcessor(request.ByMethod("A"), fault), server)
		assert.Equal(t, 1, served)
		assert.Empty(t, server.served)
		assert.ErrorIs(t, server.injected["r1"], fault)
		assert.Equal(t, []string{"r2"}, tags(queue.Snapshot()))
	})
	t.Run("Served requests can enqueue into the same queue", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		require.NoError(t, queue.Add(newTagged("A", "r1")))

		server := &reentrantServer{queue: queue}
		assert.Equal(t, 1, queue.ProcessRequests(ctx, serveAllProcessor(nil, nil), server))
		assert.Equal(t, []string{"follow-up"}, tags(queue.Snapshot()))
	})
}

// reentrantServer enqueues a follow-up request each time it serves one
type reentrantServer struct {
	queue *RequestQueue
}

func (s *reentrantServer) Serve(_ context.Context, _ *request.Request) {
	_ = s.queue.Add(newTagged("B", "follow-up"))
}

func (s *reentrantServer) ServeWithException(context.Context, *request.Request, error) {}

func TestRequestQueuePanickingCallbacks(t *testing.T) {
	ctx := context.Background()
	// returnsWithin fails the test when fn blocks, e.g. on a lock left held
	returnsWithin := func(t *testing.T, fn func()) {
		t.Helper()
		done := make(chan struct{})
		go func() {
			fn()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(eventuallyWait):
			t.Fatal("queue is locked")
		}
	}

	t.Run("A panicking filter in a blocking call", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		require.NoError(t, queue.Add(newTagged("put", "r1")))

		panicking := func(*request.Request) bool { panic("filter failed") }
		assert.Panics(t, func() {
			queue.BlockingRemoveOldest(ctx, panicking, time.Second)
		})
		assert.Panics(t, func() {
			queue.BlockingGetYoungest(ctx, panicking, time.Second)
		})

		returnsWithin(t, func() {
			assert.Equal(t, 1, queue.Len())
			assert.Equal(t, "r1", tag(queue.BlockingRemoveOldest(ctx, nil, time.Second)))
			queue.Destroy()
		})
		assert.True(t, queue.IsDestroyed())
	})
	t.Run("A panicking processor leaves the queue untouched", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		require.NoError(t, queue.Add(newTagged("A", "r1")))
		require.NoError(t, queue.Add(newTagged("B", "r2")))

		visited := 0
		processor := request.ProcessorFunc(func(r *request.Request) request.Outcome {
			visited++
			if visited == 2 {
				panic("processor failed")
			}
			return request.Outcome{Verdict: request.Remove}
		})
		server := newRecordingServer()
		assert.Panics(t, func() {
			queue.ProcessRequests(ctx, processor, server)
		})

		returnsWithin(t, func() {
			assert.Equal(t, []string{"r1", "r2"}, tags(queue.Snapshot()))
			assert.Equal(t, 2, queue.ProcessRequests(ctx, serveAllProcessor(nil, nil), server))
			queue.Destroy()
		})
		assert.Equal(t, []string{"r1", "r2"}, server.served)
	})
	t.Run("A panicking preparer", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		require.NoError(t, queue.Add(newTagged("A", "r1")))

		assert.Panics(t, func() {
			queue.ProcessRequests(ctx, panickingPreparer{}, newRecordingServer())
		})
		returnsWithin(t, func() {
			assert.Equal(t, 1, queue.Len())
			queue.Destroy()
		})
	})
}

// panickingPreparer fails before the processing pass starts
type panickingPreparer struct{}

func (panickingPreparer) Prepare([]*request.Request) {
	panic("prepare failed")
}

func (panickingPreparer) Process(*request.Request) request.Outcome {
	return request.KeepOutcome
}
