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
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	gerrors "github.com/activecore/activecore/errors"
	"github.com/activecore/activecore/internal/metric"
	"github.com/activecore/activecore/log"
	"github.com/activecore/activecore/request"
)

// executor runs requests against a body and delivers their replies.
// Execution faults, panics included, never escape it.
type executor struct {
	body   Body
	logger log.Logger
	metric *metric.SchedulerMetric
	tracer trace.Tracer
}

func newExecutor(body Body, cfg *config, m *metric.SchedulerMetric) *executor {
	return &executor{
		body:   body,
		logger: cfg.logger,
		metric: m,
		tracer: cfg.telemetry.Tracer(),
	}
}

// serve executes the request and hands the outcome to its caller
func (x *executor) serve(ctx context.Context, r *request.Request) {
	ctx, span := x.tracer.Start(ctx, "activeobject.serve",
		trace.WithAttributes(
			attribute.String("activeobject.id", x.body.ID()),
			attribute.String("request.method", r.MethodName()),
			attribute.String("request.id", r.ID()),
		))
	defer span.End()

	start := time.Now()
	result, err := x.execute(ctx, r)
	x.metric.RecordServed(ctx, r.MethodName(), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if r.IsOneWay() {
		if err != nil {
			x.logger.Errorf("one-way request %s on %s failed: %v", r, x.body.ID(), err)
		}
		return
	}

	if rerr := r.Respond(ctx, &request.Reply{Result: result, Fault: err}); rerr != nil {
		x.logger.Warnf("failed to reply to %s on %s: %v", r, x.body.ID(), rerr)
	}
}

// serveWithException answers the request with the given fault without executing it
func (x *executor) serveWithException(ctx context.Context, r *request.Request, fault error) {
	x.metric.RecordInjected(ctx, r.MethodName())

	if r.IsOneWay() {
		x.logger.Debugf("dropping fault %v injected into one-way request %s on %s", fault, r, x.body.ID())
		return
	}

	if err := r.Respond(ctx, &request.Reply{Fault: fault}); err != nil {
		x.logger.Warnf("failed to reply to %s on %s: %v", r, x.body.ID(), err)
	}
}

// execute calls the body and turns a panic into a PanicError
func (x *executor) execute(ctx context.Context, r *request.Request) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = toPanicError(rec)
		}
	}()
	return x.body.Execute(ctx, r)
}

func toPanicError(rec any) error {
	// frame 0 is this function, 1 the deferred recovery, 2 runtime.gopanic
	pc, fn, line, _ := runtime.Caller(3)
	if err, ok := rec.(error); ok {
		var pe *gerrors.PanicError
		if errors.As(err, &pe) {
			return pe
		}
		return gerrors.NewPanicError(fmt.Errorf("%w at %s[%s:%d]", err, runtime.FuncForPC(pc).Name(), fn, line))
	}
	return gerrors.NewPanicError(fmt.Errorf("%#v at %s[%s:%d]", rec, runtime.FuncForPC(pc).Name(), fn, line))
}
