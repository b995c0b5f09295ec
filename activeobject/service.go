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
	"time"

	"github.com/activecore/activecore/errors"
	"github.com/activecore/activecore/internal/validation"
	"github.com/activecore/activecore/log"
	"github.com/activecore/activecore/request"
)

// Service implements the serving policies an active object runs on its own
// activity goroutine. Every policy is a composition of the RequestQueue
// primitives. Policies taking a method name first check that the body
// declares it and return ErrNoSuchMethod before touching the queue.
type Service struct {
	body   Body
	queue  *RequestQueue
	exec   *executor
	logger log.Logger
}

// enforce compilation error
var _ Server = (*Service)(nil)

// NewService creates a Service serving the requests of the queue on the body
func NewService(body Body, queue *RequestQueue, opts ...Option) (*Service, error) {
	cfg := newConfig(opts...)
	if err := validateTarget(body, queue, cfg); err != nil {
		return nil, err
	}
	return newService(body, queue, cfg), nil
}

func newService(body Body, queue *RequestQueue, cfg *config) *Service {
	return &Service{
		body:   body,
		queue:  queue,
		exec:   newExecutor(body, cfg, cfg.schedulerMetric()),
		logger: cfg.logger,
	}
}

func validateTarget(body Body, queue *RequestQueue, cfg *config) error {
	return validation.New(validation.FailFast()).
		AddValidator(validation.NewNotNilValidator("body", body, errors.ErrUndefinedBody)).
		AddValidator(validation.NewNotNilValidator("queue", queue, errors.ErrUndefinedQueue)).
		AddValidator(cfg).
		Validate()
}

// Body returns the served object
func (s *Service) Body() Body {
	return s.body
}

// Queue returns the served queue
func (s *Service) Queue() *RequestQueue {
	return s.queue
}

// Serve executes the request and replies to its caller.
// Execution faults are delivered in the reply and never returned.
func (s *Service) Serve(ctx context.Context, r *request.Request) {
	if r != nil {
		s.exec.serve(ctx, r)
	}
}

// ServeWithException replies to the caller of the request with the fault
// instead of executing it
func (s *Service) ServeWithException(ctx context.Context, r *request.Request, fault error) {
	if r != nil {
		s.exec.serveWithException(ctx, r, fault)
	}
}

// FifoServing serves the requests from the oldest to the youngest until
// the body is no longer active, the queue is destroyed or the context is done.
// The activity of the body is checked between two requests only.
func (s *Service) FifoServing(ctx context.Context) {
	s.drain(ctx, s.queue.BlockingRemoveOldest)
}

// LifoServing serves the requests from the youngest to the oldest until
// the body is no longer active, the queue is destroyed or the context is done.
func (s *Service) LifoServing(ctx context.Context) {
	s.drain(ctx, s.queue.BlockingRemoveYoungest)
}

func (s *Service) drain(ctx context.Context, remove func(context.Context, request.Filter, time.Duration) *request.Request) {
	for s.serving(ctx) {
		if r := remove(ctx, nil, 0); r != nil {
			s.exec.serve(ctx, r)
		}
	}
}

// serving reports whether an activity loop should go on
func (s *Service) serving(ctx context.Context) bool {
	return ctx.Err() == nil && s.body.IsActive() && !s.queue.IsDestroyed()
}

// ServeOldest serves the oldest request matching the filter, if any
func (s *Service) ServeOldest(ctx context.Context, filter request.Filter) bool {
	return s.serveIfFound(ctx, s.queue.RemoveOldest(filter))
}

// ServeYoungest serves the youngest request matching the filter, if any
func (s *Service) ServeYoungest(ctx context.Context, filter request.Filter) bool {
	return s.serveIfFound(ctx, s.queue.RemoveYoungest(filter))
}

// ServeOldestByName serves the oldest request invoking the method, if any
func (s *Service) ServeOldestByName(ctx context.Context, methodName string) (bool, error) {
	if err := s.checkMethod(methodName); err != nil {
		return false, err
	}
	return s.ServeOldest(ctx, request.ByMethod(methodName)), nil
}

// ServeYoungestByName serves the youngest request invoking the method, if any
func (s *Service) ServeYoungestByName(ctx context.Context, methodName string) (bool, error) {
	if err := s.checkMethod(methodName); err != nil {
		return false, err
	}
	return s.ServeYoungest(ctx, request.ByMethod(methodName)), nil
}

// BlockingServeOldest waits for a request matching the filter and serves
// the oldest one. It reports whether a request was served before the
// timeout, the cancellation of the context or the destruction of the queue.
func (s *Service) BlockingServeOldest(ctx context.Context, filter request.Filter, timeout time.Duration) bool {
	return s.serveIfFound(ctx, s.queue.BlockingRemoveOldest(ctx, filter, timeout))
}

// BlockingServeYoungest waits for a request matching the filter and serves
// the youngest one.
func (s *Service) BlockingServeYoungest(ctx context.Context, filter request.Filter, timeout time.Duration) bool {
	return s.serveIfFound(ctx, s.queue.BlockingRemoveYoungest(ctx, filter, timeout))
}

// BlockingServeOldestByName waits for a request invoking the method and serves the oldest one
func (s *Service) BlockingServeOldestByName(ctx context.Context, methodName string, timeout time.Duration) (bool, error) {
	if err := s.checkMethod(methodName); err != nil {
		return false, err
	}
	return s.BlockingServeOldest(ctx, request.ByMethod(methodName), timeout), nil
}

// BlockingServeYoungestByName waits for a request invoking the method and serves the youngest one
func (s *Service) BlockingServeYoungestByName(ctx context.Context, methodName string, timeout time.Duration) (bool, error) {
	if err := s.checkMethod(methodName); err != nil {
		return false, err
	}
	return s.BlockingServeYoungest(ctx, request.ByMethod(methodName), timeout), nil
}

// ServeOldestWithException answers the oldest request matching the filter
// with the fault instead of executing it
func (s *Service) ServeOldestWithException(ctx context.Context, filter request.Filter, fault error) bool {
	return s.injectIfFound(ctx, s.queue.RemoveOldest(filter), fault)
}

// ServeYoungestWithException answers the youngest request matching the
// filter with the fault instead of executing it
func (s *Service) ServeYoungestWithException(ctx context.Context, filter request.Filter, fault error) bool {
	return s.injectIfFound(ctx, s.queue.RemoveYoungest(filter), fault)
}

// BlockingServeOldestWithException waits for a request matching the filter
// and answers the oldest one with the fault
func (s *Service) BlockingServeOldestWithException(ctx context.Context, filter request.Filter, fault error, timeout time.Duration) bool {
	return s.injectIfFound(ctx, s.queue.BlockingRemoveOldest(ctx, filter, timeout), fault)
}

// BlockingServeYoungestWithException waits for a request matching the
// filter and answers the youngest one with the fault
func (s *Service) BlockingServeYoungestWithException(ctx context.Context, filter request.Filter, fault error, timeout time.Duration) bool {
	return s.injectIfFound(ctx, s.queue.BlockingRemoveYoungest(ctx, filter, timeout), fault)
}

// ServeAll serves, in one pass, every request matching the filter and
// returns how many were served
func (s *Service) ServeAll(ctx context.Context, filter request.Filter) int {
	return s.queue.ProcessRequests(ctx, serveAllProcessor(filter, nil), s)
}

// ServeAllByName serves, in one pass, every request invoking the method
func (s *Service) ServeAllByName(ctx context.Context, methodName string) (int, error) {
	if err := s.checkMethod(methodName); err != nil {
		return 0, err
	}
	return s.ServeAll(ctx, request.ByMethod(methodName)), nil
}

// ServeAllWithException answers, in one pass, every request matching the
// filter with the fault. A nil fault defaults to ErrServiceUnavailable.
func (s *Service) ServeAllWithException(ctx context.Context, filter request.Filter, fault error) int {
	if fault == nil {
		fault = errors.ErrServiceUnavailable
	}
	return s.queue.ProcessRequests(ctx, serveAllProcessor(filter, fault), s)
}

// FlushingServeOldest serves the oldest request matching the filter and
// discards every other match in the same pass. Requests not matching the
// filter are left untouched. It reports whether a request was served.
func (s *Service) FlushingServeOldest(ctx context.Context, filter request.Filter) bool {
	return s.queue.ProcessRequests(ctx, newFlushingOldestProcessor(filter), s) > 0
}

// FlushingServeYoungest serves the youngest request matching the filter and
// discards every other match in the same pass.
func (s *Service) FlushingServeYoungest(ctx context.Context, filter request.Filter) bool {
	return s.queue.ProcessRequests(ctx, newFlushingYoungestProcessor(filter), s) > 0
}

// FlushingServeOldestByName serves the oldest request invoking the method
// and discards the other requests invoking it
func (s *Service) FlushingServeOldestByName(ctx context.Context, methodName string) (bool, error) {
	if err := s.checkMethod(methodName); err != nil {
		return false, err
	}
	return s.FlushingServeOldest(ctx, request.ByMethod(methodName)), nil
}

// FlushingServeYoungestByName serves the youngest request invoking the
// method and discards the other requests invoking it
func (s *Service) FlushingServeYoungestByName(ctx context.Context, methodName string) (bool, error) {
	if err := s.checkMethod(methodName); err != nil {
		return false, err
	}
	return s.FlushingServeYoungest(ctx, request.ByMethod(methodName)), nil
}

// FlushAll discards every pending request without serving it and returns how many were discarded
func (s *Service) FlushAll(ctx context.Context) int {
	discarded := 0
	s.queue.ProcessRequests(ctx, request.ProcessorFunc(func(*request.Request) request.Outcome {
		discarded++
		return request.Outcome{Verdict: request.Remove}
	}), s)
	return discarded
}

// GetOldest returns the oldest request matching the filter without removing it
func (s *Service) GetOldest(filter request.Filter) *request.Request {
	return s.queue.GetOldest(filter)
}

// GetYoungest returns the youngest request matching the filter without removing it
func (s *Service) GetYoungest(filter request.Filter) *request.Request {
	return s.queue.GetYoungest(filter)
}

// GetOldestByName returns the oldest request invoking the method without removing it
func (s *Service) GetOldestByName(methodName string) (*request.Request, error) {
	if err := s.checkMethod(methodName); err != nil {
		return nil, err
	}
	return s.queue.GetOldest(request.ByMethod(methodName)), nil
}

// GetYoungestByName returns the youngest request invoking the method without removing it
func (s *Service) GetYoungestByName(methodName string) (*request.Request, error) {
	if err := s.checkMethod(methodName); err != nil {
		return nil, err
	}
	return s.queue.GetYoungest(request.ByMethod(methodName)), nil
}

// BlockingGetOldest waits for a request matching the filter and returns the oldest without removing it
func (s *Service) BlockingGetOldest(ctx context.Context, filter request.Filter, timeout time.Duration) *request.Request {
	return s.queue.BlockingGetOldest(ctx, filter, timeout)
}

// BlockingGetYoungest waits for a request matching the filter and returns the youngest without removing it
func (s *Service) BlockingGetYoungest(ctx context.Context, filter request.Filter, timeout time.Duration) *request.Request {
	return s.queue.BlockingGetYoungest(ctx, filter, timeout)
}

// HasRequestToServe reports whether a pending request matches the filter
func (s *Service) HasRequestToServe(filter request.Filter) bool {
	return s.queue.HasRequest(filter)
}

// RequestCount returns the number of pending requests
func (s *Service) RequestCount() int {
	return s.queue.Len()
}

// WaitForRequest waits until a request is pending
func (s *Service) WaitForRequest(ctx context.Context, timeout time.Duration) bool {
	return s.queue.WaitForRequest(ctx, timeout)
}

func (s *Service) checkMethod(methodName string) error {
	if !s.body.HasMethod(methodName) {
		return errors.NewErrNoSuchMethod(methodName)
	}
	return nil
}

func (s *Service) serveIfFound(ctx context.Context, r *request.Request) bool {
	if r == nil {
		return false
	}
	s.exec.serve(ctx, r)
	return true
}

func (s *Service) injectIfFound(ctx context.Context, r *request.Request, fault error) bool {
	if r == nil {
		return false
	}
	if fault == nil {
		fault = errors.ErrServiceUnavailable
	}
	s.exec.serveWithException(ctx, r, fault)
	return true
}
