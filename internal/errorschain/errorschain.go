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

// Package errorschain collects errors, possibly from several goroutines,
// and reports them in insertion order.
package errorschain

import (
	"sync"

	"go.uber.org/multierr"
)

// Chain defines an error chain. It is safe for concurrent use.
type Chain struct {
	mu          sync.Mutex
	returnFirst bool
	fns         []func() error
}

// ChainOption configures a chain at creation time.
type ChainOption func(*Chain)

// New creates a new error chain. All errors will be evaluated respectively
// according to their insertion order
func New(opts ...ChainOption) *Chain {
	chain := &Chain{
		fns: make([]func() error, 0),
	}

	for _, opt := range opts {
		opt(chain)
	}

	return chain
}

// ReturnFirst sets whether a chain should stop on the first error.
func ReturnFirst() ChainOption {
	return func(c *Chain) { c.returnFirst = true }
}

// ReturnAll sets whether a chain should return all errors.
func ReturnAll() ChainOption {
	return func(c *Chain) { c.returnFirst = false }
}

// AddError adds errors to the chain. Nil errors are kept and skipped at evaluation.
func (c *Chain) AddError(errs ...error) *Chain {
	c.mu.Lock()
	for _, err := range errs {
		c.fns = append(c.fns, func() error { return err })
	}
	c.mu.Unlock()
	return c
}

// AddErrorFn adds lazily evaluated errors to the chain. The functions run
// when Error is called and, with ReturnFirst, only until the first failure.
func (c *Chain) AddErrorFn(fns ...func() error) *Chain {
	c.mu.Lock()
	c.fns = append(c.fns, fns...)
	c.mu.Unlock()
	return c
}

// Len returns the number of entries in the chain
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fns)
}

// Error evaluates the chain and returns the resulting error
func (c *Chain) Error() error {
	c.mu.Lock()
	fns := make([]func() error, len(c.fns))
	copy(fns, c.fns)
	c.mu.Unlock()

	var err error
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		if v := fn(); v != nil {
			if c.returnFirst {
				return v
			}
			err = multierr.Append(err, v)
		}
	}
	return err
}
