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
	"math"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/activecore/activecore/errors"
	"github.com/activecore/activecore/internal/metric"
	"github.com/activecore/activecore/internal/validation"
	"github.com/activecore/activecore/log"
	"github.com/activecore/activecore/telemetry"
)

const (
	// DefaultPingPeriod is how long a per-caller worker idles before probing its caller
	DefaultPingPeriod = 30 * time.Second
	// DefaultProbeRetries is the number of liveness probe attempts before a caller is declared dead
	DefaultProbeRetries = 3

	defaultProbeBackoff   = 100 * time.Millisecond
	defaultRegistryShards = 32

	maxExecutionShards = 128
	maxRegistryShards  = 1024
	maxProbeRetries    = 100
)

// Option is the interface that applies a configuration option to the
// scheduling core components. Components ignore the options that do not
// concern them.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(cfg *config)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(cfg *config)

// Apply applies the option
func (f OptionFunc) Apply(c *config) {
	f(c)
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	})
}

// WithTelemetry sets the tracer and meter providers. A nil value is ignored.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return OptionFunc(func(cfg *config) {
		if tel != nil {
			cfg.telemetry = tel
		}
	})
}

// WithMaxActive caps the number of requests a MultiActiveService runs at
// the same time. Zero means no limit.
func WithMaxActive(maxActive int) Option {
	return OptionFunc(func(cfg *config) {
		cfg.maxActive = maxActive
	})
}

// WithCompatibility sets the per-method compatibility declarations of a
// MultiActiveService: each method maps to the methods it declares it can
// run alongside. Only the pairs declared on both sides are honored.
func WithCompatibility(declarations map[string][]string) Option {
	return OptionFunc(func(cfg *config) {
		cfg.compatibility = declarations
	})
}

// WithExecutionShards sets the number of shards of the goroutine pool
// running the executions of a MultiActiveService
func WithExecutionShards(shards int) Option {
	return OptionFunc(func(cfg *config) {
		cfg.executionShards = shards
	})
}

// WithPingPeriod sets how long a per-caller worker idles before probing its caller
func WithPingPeriod(period time.Duration) Option {
	return OptionFunc(func(cfg *config) {
		cfg.pingPeriod = period
	})
}

// WithProbeRetries sets the number of liveness probe attempts and the
// initial delay between two attempts.
func WithProbeRetries(attempts int, backoff time.Duration) Option {
	return OptionFunc(func(cfg *config) {
		cfg.probeRetries = attempts
		cfg.probeBackoff = backoff
	})
}

// WithImmediateServices registers methods served on the arrival goroutine
func WithImmediateServices(methods ...string) Option {
	return OptionFunc(func(cfg *config) {
		cfg.immediateServices = append(cfg.immediateServices, methods...)
	})
}

// WithUniqueThreadServices registers methods served on the worker bound to the caller
func WithUniqueThreadServices(methods ...string) Option {
	return OptionFunc(func(cfg *config) {
		cfg.uniqueThreadServices = append(cfg.uniqueThreadServices, methods...)
	})
}

// WithRegistryShards sets the number of shards of the per-caller worker registry
func WithRegistryShards(shards int) Option {
	return OptionFunc(func(cfg *config) {
		cfg.registryShards = shards
	})
}

type config struct {
	logger               log.Logger
	telemetry            *telemetry.Telemetry
	maxActive            int
	compatibility        map[string][]string
	executionShards      int
	pingPeriod           time.Duration
	probeRetries         int
	probeBackoff         time.Duration
	immediateServices    []string
	uniqueThreadServices []string
	registryShards       int
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		logger:          log.DefaultLogger,
		telemetry:       telemetry.New(),
		executionShards: 1,
		pingPeriod:      DefaultPingPeriod,
		probeRetries:    DefaultProbeRetries,
		probeBackoff:    defaultProbeBackoff,
		registryShards:  defaultRegistryShards,
	}

	for _, opt := range opts {
		opt.Apply(cfg)
	}
	return cfg
}

// Validate checks the configuration and returns every violation found
func (c *config) Validate() error {
	return validation.New(validation.AllErrors()).
		AddValidator(validation.NewRangeValidator("maxActive", c.maxActive, 0, math.MaxInt, errors.ErrInvalidMaxActive)).
		AddValidator(validation.NewRangeValidator("executionShards", c.executionShards, 1, maxExecutionShards, nil)).
		AddValidator(validation.NewPositiveDurationValidator("pingPeriod", c.pingPeriod, errors.ErrInvalidPingPeriod)).
		AddValidator(validation.NewRangeValidator("probeRetries", c.probeRetries, 1, maxProbeRetries, nil)).
		AddValidator(validation.NewPositiveDurationValidator("probeBackoff", c.probeBackoff, nil)).
		AddValidator(validation.NewRangeValidator("registryShards", c.registryShards, 1, maxRegistryShards, nil)).
		Validate()
}

// schedulerMetric builds the instruments from the configured meter. The
// core keeps working without metrics when the meter rejects them.
func (c *config) schedulerMetric() *metric.SchedulerMetric {
	m, err := metric.NewSchedulerMetric(c.telemetry.Meter())
	if err == nil {
		return m
	}

	c.logger.Warnf("failed to create scheduler metrics, metrics are disabled: %v", err)
	m, _ = metric.NewSchedulerMetric(noop.NewMeterProvider().Meter(""))
	return m
}
