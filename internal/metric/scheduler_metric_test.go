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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNewSchedulerMetric(t *testing.T) {
	// create the instance of a meter
	meter := noop.NewMeterProvider().Meter("test")
	schedulerMetric, err := NewSchedulerMetric(meter)
	require.NoError(t, err)
	require.NotNil(t, schedulerMetric)

	assert.NotNil(t, schedulerMetric.served)
	assert.NotNil(t, schedulerMetric.discarded)
	assert.NotNil(t, schedulerMetric.injected)
	assert.NotNil(t, schedulerMetric.running)
	assert.NotNil(t, schedulerMetric.immediate)
	assert.NotNil(t, schedulerMetric.callerWorkers)
	assert.NotNil(t, schedulerMetric.executionDuration)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		schedulerMetric.RecordServed(ctx, "put", time.Millisecond)
		schedulerMetric.RecordDiscarded(ctx, 0)
		schedulerMetric.RecordDiscarded(ctx, 3)
		schedulerMetric.RecordInjected(ctx, "put")
		schedulerMetric.AddRunning(ctx, 1)
		schedulerMetric.AddRunning(ctx, -1)
		schedulerMetric.RecordImmediate(ctx, "immediate_multi_thread")
		schedulerMetric.AddCallerWorkers(ctx, 1)
	})
}
