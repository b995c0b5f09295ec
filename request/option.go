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

package request

// Option is the interface that applies a request construction option.
type Option interface {
	// Apply sets the Option value of a Request.
	Apply(r *Request)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(r *Request)

// Apply applies the request's option
func (f OptionFunc) Apply(r *Request) {
	f(r)
}

// WithParameters sets the invocation parameters
func WithParameters(parameters ...any) Option {
	return OptionFunc(func(r *Request) {
		r.parameters = append([]any(nil), parameters...)
	})
}

// WithParameterTypes overrides the parameter type names. By default they
// are derived from the dynamic type of each parameter.
func WithParameterTypes(types ...string) Option {
	return OptionFunc(func(r *Request) {
		r.parameterTypes = append(make([]string, 0, len(types)), types...)
	})
}

// WithSender sets the caller identity
func WithSender(sender Identity) Option {
	return OptionFunc(func(r *Request) {
		r.sender = sender
	})
}

// WithSequenceNumber sets the number assigned by the sender
func WithSequenceNumber(sequenceNumber int64) Option {
	return OptionFunc(func(r *Request) {
		r.sequenceNumber = sequenceNumber
	})
}

// WithOneWay marks the request as not expecting any reply
func WithOneWay() Option {
	return OptionFunc(func(r *Request) {
		r.oneWay = true
	})
}

// WithPriority marks the request to be served ahead of the pending ones
func WithPriority() Option {
	return OptionFunc(func(r *Request) {
		r.priority = true
	})
}

// WithNonFunctional marks the request as an administrative call of the given priority
func WithNonFunctional(priority NonFunctionalPriority) Option {
	return OptionFunc(func(r *Request) {
		r.nonFunctional = true
		r.nfPriority = priority
	})
}

// WithReplier sets where the reply of the request is delivered
func WithReplier(replier Replier) Option {
	return OptionFunc(func(r *Request) {
		r.replier = replier
	})
}

// WithReceptionHook sets a function called every time the request
// arrives at an active object.
func WithReceptionHook(hook func(*Request)) Option {
	return OptionFunc(func(r *Request) {
		r.receptionHook = hook
	})
}
