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

// Package activeobject implements the scheduling core of an active object:
// the blocking request queue acting as its mailbox, the serving policies
// run by its activity loop, a scheduler admitting compatible requests into
// concurrent execution, and the admission controller deciding on arrival
// whether a request is queued or served immediately.
package activeobject

import (
	"context"
	"sort"

	"go.uber.org/atomic"

	"github.com/activecore/activecore/errors"
	"github.com/activecore/activecore/request"
)

// Body is the served object. It executes the requests the scheduling core
// selects and tells which methods it exposes.
type Body interface {
	// ID returns the identifier of the object
	ID() string
	// IsActive reports whether the activity loop should keep serving
	IsActive() bool
	// HasMethod reports whether the object declares the given method
	HasMethod(methodName string) bool
	// Execute runs the body of the request and returns its result or fault
	Execute(ctx context.Context, r *request.Request) (any, error)
}

// MethodFunc implements one method of a FuncBody
type MethodFunc func(ctx context.Context, r *request.Request) (any, error)

// FuncBody is a Body whose methods are plain functions.
// It starts active.
type FuncBody struct {
	id      string
	methods map[string]MethodFunc
	active  *atomic.Bool
}

// enforce compilation error
var _ Body = (*FuncBody)(nil)

// NewFuncBody creates a FuncBody exposing the given methods
func NewFuncBody(id string, methods map[string]MethodFunc) *FuncBody {
	copied := make(map[string]MethodFunc, len(methods))
	for name, fn := range methods {
		copied[name] = fn
	}
	return &FuncBody{
		id:      id,
		methods: copied,
		active:  atomic.NewBool(true),
	}
}

// ID returns the identifier of the object
func (x *FuncBody) ID() string {
	return x.id
}

// IsActive reports whether the activity loop should keep serving
func (x *FuncBody) IsActive() bool {
	return x.active.Load()
}

// Deactivate makes the activity loops return once their current step
// completes. A loop idling on an empty queue is not woken: it returns after
// serving the next arrival, on Destroy, or when its context is done.
func (x *FuncBody) Deactivate() {
	x.active.Store(false)
}

// HasMethod reports whether the object declares the given method
func (x *FuncBody) HasMethod(methodName string) bool {
	_, ok := x.methods[methodName]
	return ok
}

// Methods returns the sorted names of the declared methods
func (x *FuncBody) Methods() []string {
	names := make([]string, 0, len(x.methods))
	for name := range x.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the method invoked by the request
func (x *FuncBody) Execute(ctx context.Context, r *request.Request) (any, error) {
	fn, ok := x.methods[r.MethodName()]
	if !ok || fn == nil {
		return nil, errors.NewErrNoSuchMethod(r.MethodName())
	}
	return fn(ctx, r)
}
