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

package metric

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	methodKey = "method"
	modeKey   = "mode"
)

// SchedulerMetric defines the scheduling core instrumentation
type SchedulerMetric struct {
	// Specifies the total number of requests executed
	served metric.Int64Counter
	// Specifies the total number of requests removed without being executed
	discarded metric.Int64Counter
	// Specifies the total number of requests answered with an injected fault
	injected metric.Int64Counter
	// Specifies the number of requests currently executing
	running metric.Int64UpDownCounter
	// Specifies the total number of requests served outside the queue
	immediate metric.Int64Counter
	// Specifies the number of live per-caller workers
	callerWorkers metric.Int64UpDownCounter
	// Specifies the execution latency in milliseconds
	executionDuration metric.Int64Histogram
}

// NewSchedulerMetric creates an instance of SchedulerMetric
func NewSchedulerMetric(meter metric.Meter) (*SchedulerMetric, error) {
	schedulerMetric := new(SchedulerMetric)
	var err error

	if schedulerMetric.served, err = meter.Int64Counter(
		"activeobject_requests_served",
		metric.WithDescription("Total number of requests executed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create served instrument, %w", err)
	}

	if schedulerMetric.discarded, err = meter.Int64Counter(
		"activeobject_requests_discarded",
		metric.WithDescription("Total number of requests removed without being executed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create discarded instrument, %w", err)
	}

	if schedulerMetric.injected, err = meter.Int64Counter(
		"activeobject_requests_injected",
		metric.WithDescription("Total number of requests answered with an injected fault"),
	); err != nil {
		return nil, fmt.Errorf("failed to create injected instrument, %w", err)
	}

	if schedulerMetric.running, err = meter.Int64UpDownCounter(
		"activeobject_requests_running",
		metric.WithDescription("Number of requests currently executing"),
	); err != nil {
		return nil, fmt.Errorf("failed to create running instrument, %w", err)
	}

	if schedulerMetric.immediate, err = meter.Int64Counter(
		"activeobject_immediate_requests",
		metric.WithDescription("Total number of requests served without going through the queue"),
	); err != nil {
		return nil, fmt.Errorf("failed to create immediate instrument, %w", err)
	}

	if schedulerMetric.callerWorkers, err = meter.Int64UpDownCounter(
		"activeobject_caller_workers",
		metric.WithDescription("Number of live per-caller workers"),
	); err != nil {
		return nil, fmt.Errorf("failed to create callerWorkers instrument, %w", err)
	}

	if schedulerMetric.executionDuration, err = meter.Int64Histogram(
		"activeobject_execution_duration",
		metric.WithDescription("The latency of request executions in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create executionDuration instrument, %w", err)
	}

	return schedulerMetric, nil
}

// RecordServed records one executed request of the given method and its latency
func (x *SchedulerMetric) RecordServed(ctx context.Context, method string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String(methodKey, method))
	x.served.Add(ctx, 1, attrs)
	x.executionDuration.Record(ctx, elapsed.Milliseconds(), attrs)
}

// RecordDiscarded records requests removed from a queue without execution
func (x *SchedulerMetric) RecordDiscarded(ctx context.Context, count int) {
	if count > 0 {
		x.discarded.Add(ctx, int64(count))
	}
}

// RecordInjected records one request answered with an injected fault
func (x *SchedulerMetric) RecordInjected(ctx context.Context, method string) {
	x.injected.Add(ctx, 1, metric.WithAttributes(attribute.String(methodKey, method)))
}

// AddRunning adjusts the number of running requests
func (x *SchedulerMetric) AddRunning(ctx context.Context, delta int64) {
	x.running.Add(ctx, delta)
}

// RecordImmediate records one request served outside the queue under the given mode
func (x *SchedulerMetric) RecordImmediate(ctx context.Context, mode string) {
	x.immediate.Add(ctx, 1, metric.WithAttributes(attribute.String(modeKey, mode)))
}

// AddCallerWorkers adjusts the number of live per-caller workers
func (x *SchedulerMetric) AddCallerWorkers(ctx context.Context, delta int64) {
	x.callerWorkers.Add(ctx, delta)
}
