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

// gatedBody exposes the given methods, all held by the same gate
func gatedBody(g *gate, j *journal, methods ...string) *FuncBody {
	table := make(map[string]MethodFunc, len(methods))
	for _, method := range methods {
		table[method] = g.method(j)
	}
	return NewFuncBody("multi", table)
}

// startMultiActive runs the activity loop in the background and returns
// the function stopping it
func startMultiActive(t *testing.T, service *MultiActiveService) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- service.MultiActiveServing(ctx)
	}()
	require.Eventually(t, service.IsServing, eventuallyWait, eventuallyTick)

	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(eventuallyWait):
			t.Fatal("multi-active loop did not stop")
		}
	}
}

func addAll(t *testing.T, queue *RequestQueue, requests ...*request.Request) {
	t.Helper()
	for _, r := range requests {
		require.NoError(t, queue.Add(r))
	}
}

func TestNewMultiActiveService(t *testing.T) {
	t.Run("With a missing body", func(t *testing.T) {
		_, err := NewMultiActiveService(nil, NewRequestQueue(testOptions()...), testOptions()...)
		assert.ErrorIs(t, err, gerrors.ErrUndefinedBody)
	})
	t.Run("With a negative limit", func(t *testing.T) {
		_, err := NewMultiActiveService(NewFuncBody("x", nil), NewRequestQueue(testOptions()...), testOptions(WithMaxActive(-1))...)
		assert.ErrorIs(t, err, gerrors.ErrInvalidMaxActive)
	})
	t.Run("Declarations are copied", func(t *testing.T) {
		declarations := map[string][]string{"A": {"B"}, "B": {"A"}}
		service, err := NewMultiActiveService(NewFuncBody("x", nil), NewRequestQueue(testOptions()...),
			testOptions(WithCompatibility(declarations))...)
		require.NoError(t, err)

		declarations["A"][0] = "C"
		assert.True(t, service.Graph().AreCompatible("A", "B"))
		assert.NotNil(t, service.Service())
		assert.False(t, service.IsServing())
		assert.Zero(t, service.RunningCount())
	})
}

func TestMultiActiveServing(t *testing.T) {
	t.Run("Compatible requests run together and the others wait", func(t *testing.T) {
		g, j := newGate(8).hold("a1", "b1"), new(journal)
		queue := NewRequestQueue(testOptions()...)
		service, err := NewMultiActiveService(gatedBody(g, j, "A", "B", "C"), queue,
			testOptions(WithCompatibility(map[string][]string{"A": {"B"}, "B": {"A"}}))...)
		require.NoError(t, err)

		addAll(t, queue, newTagged("A", "a1"), newTagged("B", "b1"), newTagged("C", "c1"))
		stop := startMultiActive(t, service)
		defer stop()

		assert.ElementsMatch(t, []string{"a1", "b1"}, g.awaitStarted(t, 2))
		g.noneStarted(t, 50*time.Millisecond)
		assert.Equal(t, map[string]int{"A": 1, "B": 1}, service.Running())
		assert.Equal(t, []string{"c1"}, tags(queue.Snapshot()))

		// c1 still conflicts with b1 once a1 is done
		g.openTag("a1")
		require.Eventually(t, func() bool { return service.RunningCount() == 1 }, eventuallyWait, eventuallyTick)
		g.noneStarted(t, 50*time.Millisecond)
		assert.Equal(t, map[string]int{"B": 1}, service.Running())
		assert.Equal(t, []string{"c1"}, tags(queue.Snapshot()))

		g.openTag("b1")
		assert.Equal(t, []string{"c1"}, g.awaitStarted(t, 1))
		g.open()
		require.Eventually(t, func() bool { return j.len() == 3 }, eventuallyWait, eventuallyTick)
		assert.Equal(t, []string{"a1", "b1", "c1"}, j.list())
	})
	t.Run("A one-sided declaration never runs concurrently", func(t *testing.T) {
		g, j := newGate(8), new(journal)
		queue := NewRequestQueue(testOptions()...)
		service, err := NewMultiActiveService(gatedBody(g, j, "A", "B"), queue,
			testOptions(WithCompatibility(map[string][]string{"A": {"B"}}))...)
		require.NoError(t, err)

		addAll(t, queue, newTagged("A", "a1"), newTagged("B", "b1"))
		stop := startMultiActive(t, service)
		defer stop()

		assert.Equal(t, []string{"a1"}, g.awaitStarted(t, 1))
		g.noneStarted(t, 50*time.Millisecond)
		g.open()
		assert.Equal(t, []string{"b1"}, g.awaitStarted(t, 1))
		require.Eventually(t, func() bool { return j.len() == 2 }, eventuallyWait, eventuallyTick)
		assert.Equal(t, []string{"a1", "b1"}, j.list())
	})
	t.Run("A refused head keeps its position", func(t *testing.T) {
		g, j := newGate(8), new(journal)
		queue := NewRequestQueue(testOptions()...)
		service, err := NewMultiActiveService(gatedBody(g, j, "A", "B", "C"), queue,
			testOptions(WithCompatibility(map[string][]string{"A": {"A", "B"}, "B": {"A"}}))...)
		require.NoError(t, err)

		addAll(t, queue, newTagged("A", "a1"), newTagged("C", "c1"), newTagged("B", "b1"))
		stop := startMultiActive(t, service)
		defer stop()

		assert.Equal(t, []string{"a1"}, g.awaitStarted(t, 1))
		// b1 is compatible with a1 but stays behind c1
		g.noneStarted(t, 50*time.Millisecond)
		assert.Equal(t, []string{"c1", "b1"}, tags(queue.Snapshot()))

		g.open()
		assert.Equal(t, []string{"c1", "b1"}, g.awaitStarted(t, 2))
		require.Eventually(t, func() bool { return j.len() == 3 }, eventuallyWait, eventuallyTick)
	})
	t.Run("Self-compatible methods run side by side", func(t *testing.T) {
		g, j := newGate(8), new(journal)
		queue := NewRequestQueue(testOptions()...)
		service, err := NewMultiActiveService(gatedBody(g, j, "read"), queue,
			testOptions(
				WithCompatibility(map[string][]string{"read": {"read"}}),
				WithExecutionShards(4),
			)...)
		require.NoError(t, err)

		stop := startMultiActive(t, service)
		defer stop()
		addAll(t, queue, newTagged("read", "r1"), newTagged("read", "r2"), newTagged("read", "r3"))

		assert.ElementsMatch(t, []string{"r1", "r2", "r3"}, g.awaitStarted(t, 3))
		assert.Equal(t, 3, service.RunningCount())
		assert.Equal(t, map[string]int{"read": 3}, service.Running())

		g.open()
		require.Eventually(t, func() bool { return service.RunningCount() == 0 }, eventuallyWait, eventuallyTick)
		assert.Empty(t, service.Running())
	})
	t.Run("The limit caps the running requests", func(t *testing.T) {
		g, j := newGate(8), new(journal)
		queue := NewRequestQueue(testOptions()...)
		service, err := NewMultiActiveService(gatedBody(g, j, "read"), queue,
			testOptions(
				WithCompatibility(map[string][]string{"read": {"read"}}),
				WithMaxActive(2),
			)...)
		require.NoError(t, err)

		addAll(t, queue, newTagged("read", "r1"), newTagged("read", "r2"), newTagged("read", "r3"))
		stop := startMultiActive(t, service)
		defer stop()

		assert.ElementsMatch(t, []string{"r1", "r2"}, g.awaitStarted(t, 2))
		g.noneStarted(t, 50*time.Millisecond)
		assert.Equal(t, 2, service.RunningCount())

		g.open()
		assert.Equal(t, []string{"r3"}, g.awaitStarted(t, 1))
		require.Eventually(t, func() bool { return j.len() == 3 }, eventuallyWait, eventuallyTick)
	})
	t.Run("Faults reach the caller and do not stall the loop", func(t *testing.T) {
		fault := errors.New("failed")
		j := new(journal)
		body := NewFuncBody("multi", map[string]MethodFunc{
			"fail": func(context.Context, *request.Request) (any, error) {
				return nil, fault
			},
			"panic": func(context.Context, *request.Request) (any, error) {
				panic("boom")
			},
			"ok": func(_ context.Context, r *request.Request) (any, error) {
				j.record(tag(r))
				return tag(r), nil
			},
		})
		queue := NewRequestQueue(testOptions()...)
		service, err := NewMultiActiveService(body, queue, testOptions()...)
		require.NoError(t, err)

		stop := startMultiActive(t, service)
		defer stop()

		failed, panicked, served := request.NewFuture(), request.NewFuture(), request.NewFuture()
		addAll(t, queue,
			request.New("fail", request.WithReplier(failed)),
			request.New("panic", request.WithReplier(panicked)),
			newTagged("ok", "o1", request.WithReplier(served)),
		)

		ctx, cancel := context.WithTimeout(context.Background(), eventuallyWait)
		defer cancel()

		_, err = failed.Await(ctx)
		assert.ErrorIs(t, err, fault)
		_, err = panicked.Await(ctx)
		var pe *gerrors.PanicError
		assert.ErrorAs(t, err, &pe)
		result, err := served.Await(ctx)
		require.NoError(t, err)
		assert.Equal(t, "o1", result)
	})
	t.Run("A suspended queue admits nothing", func(t *testing.T) {
		g, j := newGate(8), new(journal)
		queue := NewRequestQueue(testOptions()...)
		service, err := NewMultiActiveService(gatedBody(g, j, "A"), queue, testOptions()...)
		require.NoError(t, err)

		queue.Suspend()
		stop := startMultiActive(t, service)
		defer stop()

		addAll(t, queue, newTagged("A", "a1"))
		g.noneStarted(t, 50*time.Millisecond)

		queue.Resume()
		assert.Equal(t, []string{"a1"}, g.awaitStarted(t, 1))
		g.open()
		require.Eventually(t, func() bool { return j.len() == 1 }, eventuallyWait, eventuallyTick)
	})
	t.Run("A second loop is refused", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		service, err := NewMultiActiveService(NewFuncBody("x", nil), queue, testOptions()...)
		require.NoError(t, err)

		stop := startMultiActive(t, service)
		assert.ErrorIs(t, service.MultiActiveServing(context.Background()), gerrors.ErrAlreadyServing)
		stop()

		assert.False(t, service.IsServing())
	})
	t.Run("Stopping waits for the running requests", func(t *testing.T) {
		g, j := newGate(8), new(journal)
		queue := NewRequestQueue(testOptions()...)
		service, err := NewMultiActiveService(gatedBody(g, j, "A"), queue, testOptions()...)
		require.NoError(t, err)

		addAll(t, queue, newTagged("A", "a1"))
		stop := startMultiActive(t, service)
		g.awaitStarted(t, 1)

		// the execution observes the cancellation and returns
		stop()
		assert.Zero(t, service.RunningCount())
		assert.Zero(t, j.len())
	})
	t.Run("Destroying the queue ends the loop", func(t *testing.T) {
		queue := NewRequestQueue(testOptions()...)
		service, err := NewMultiActiveService(NewFuncBody("x", nil), queue, testOptions()...)
		require.NoError(t, err)

		done := make(chan error, 1)
		go func() {
			done <- service.MultiActiveServing(context.Background())
		}()
		require.Eventually(t, service.IsServing, eventuallyWait, eventuallyTick)

		queue.Destroy()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(eventuallyWait):
			t.Fatal("loop did not stop on queue destruction")
		}
	})
}
