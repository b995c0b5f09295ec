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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSuchMethod is returned when a serving policy names a method that the
	// served object does not declare. It is raised before the queue is touched.
	ErrNoSuchMethod = errors.New("no such method")

	// ErrReceiverUnavailable indicates that a request delegated to a per-caller
	// worker could not be served because the worker is terminated or its caller
	// failed a liveness probe.
	ErrReceiverUnavailable = errors.New("receiver unavailable")

	// ErrReceiverTerminated is returned when a request is delegated after the
	// receiver has been terminated.
	ErrReceiverTerminated = errors.New("receiver is terminated")

	// ErrCallerNotAlive is returned when a liveness probe reports that the caller
	// bound to a per-caller worker is gone.
	ErrCallerNotAlive = errors.New("caller is not alive")

	// ErrQueueDestroyed is returned when a request is added to a destroyed queue.
	ErrQueueDestroyed = errors.New("request queue is destroyed")

	// ErrServiceUnavailable is the fault injected into pending requests when an
	// active object rejects work, typically while shutting down.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrNilRequest is returned when a nil request is handed to the core.
	ErrNilRequest = errors.New("request is nil")

	// ErrUndefinedBody is returned when a component is created without a body.
	ErrUndefinedBody = errors.New("body is not defined")

	// ErrUndefinedQueue is returned when a component is created without a queue.
	ErrUndefinedQueue = errors.New("request queue is not defined")

	// ErrInvalidPingPeriod is returned when the per-caller worker ping period is not positive.
	ErrInvalidPingPeriod = errors.New("invalid ping period")

	// ErrInvalidMaxActive is returned when the multi-active concurrency limit is negative.
	ErrInvalidMaxActive = errors.New("invalid max active")

	// ErrAlreadyServing is returned when an activity loop is started twice on
	// the same scheduler.
	ErrAlreadyServing = errors.New("activity loop is already running")

	// ErrFutureCompleted is returned when a reply is delivered to a future that
	// has already been completed.
	ErrFutureCompleted = errors.New("future already completed")
)

// NewErrNoSuchMethod formats an ErrNoSuchMethod with the given method name.
func NewErrNoSuchMethod(method string) error {
	return fmt.Errorf("method=(%s) %w", method, ErrNoSuchMethod)
}

// PanicError defines the panic error
// wrapping the underlying error
type PanicError struct {
	err error
}

// enforce compilation error
var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError
func NewPanicError(err error) *PanicError {
	return &PanicError{err}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

func (e *PanicError) Unwrap() error {
	return e.err
}

// ReceiverUnavailableError is the fault signalled to a caller whose request
// was delegated to a per-caller worker that could not serve it.
// It matches ErrReceiverUnavailable with errors.Is.
type ReceiverUnavailableError struct {
	caller string
	err    error
}

// enforce compilation error
var _ error = (*ReceiverUnavailableError)(nil)

// NewReceiverUnavailableError creates an instance of ReceiverUnavailableError
func NewReceiverUnavailableError(caller string, err error) *ReceiverUnavailableError {
	return &ReceiverUnavailableError{caller: caller, err: err}
}

// Error implements the standard error interface
func (e *ReceiverUnavailableError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("caller=(%s) %v", e.caller, ErrReceiverUnavailable)
	}
	return fmt.Sprintf("caller=(%s) %v: %v", e.caller, ErrReceiverUnavailable, e.err)
}

// Caller returns the identity of the caller the worker was bound to
func (e *ReceiverUnavailableError) Caller() string {
	return e.caller
}

// Is reports whether target is ErrReceiverUnavailable
func (e *ReceiverUnavailableError) Is(target error) bool {
	return target == ErrReceiverUnavailable
}

func (e *ReceiverUnavailableError) Unwrap() error {
	return e.err
}
