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

// Package request defines the unit of work exchanged with an active object:
// the pending invocation, the filters and processors used to select it from
// a queue, and the reply channel back to its caller.
package request

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Identity identifies the caller of a request
type Identity string

// NoSender is the identity of requests that have no caller, such as
// requests built locally by the active object itself.
const NoSender Identity = ""

// String returns the identity as a string
func (x Identity) String() string {
	if x == NoSender {
		return "<none>"
	}
	return string(x)
}

// NonFunctionalPriority orders non-functional requests, which carry
// administrative rather than business calls.
type NonFunctionalPriority int

const (
	// NFNoPriority queues the request like any other
	NFNoPriority NonFunctionalPriority = iota
	// NFPriority queues the request ahead of the pending ones
	NFPriority
	// NFImmediatePriority serves the request on arrival, bypassing the queue
	NFImmediatePriority
)

// String returns the string representation of the priority
func (x NonFunctionalPriority) String() string {
	switch x {
	case NFNoPriority:
		return "none"
	case NFPriority:
		return "priority"
	case NFImmediatePriority:
		return "immediate"
	default:
		return fmt.Sprintf("NonFunctionalPriority(%d)", int(x))
	}
}

// Request is one pending invocation of a method of an active object.
// Its method and parameters never change once built. Every field is set
// at construction and a Request is safe for concurrent reads.
type Request struct {
	id             string
	methodName     string
	parameters     []any
	parameterTypes []string
	sender         Identity
	sequenceNumber int64
	oneWay         bool
	priority       bool
	nonFunctional  bool
	nfPriority     NonFunctionalPriority
	replier        Replier
	receptionHook  func(*Request)
	receivedAt     *atomic.Time
}

// New creates a request invoking the given method
func New(methodName string, opts ...Option) *Request {
	r := &Request{
		id:         uuid.NewString(),
		methodName: methodName,
		sender:     NoSender,
		receivedAt: atomic.NewTime(time.Time{}),
	}

	for _, opt := range opts {
		opt.Apply(r)
	}

	if r.parameterTypes == nil {
		r.parameterTypes = make([]string, len(r.parameters))
		for i, p := range r.parameters {
			r.parameterTypes[i] = fmt.Sprintf("%T", p)
		}
	}

	return r
}

// ID returns the unique identifier of the request
func (r *Request) ID() string {
	return r.id
}

// MethodName returns the name of the invoked method
func (r *Request) MethodName() string {
	return r.methodName
}

// Parameters returns a copy of the invocation parameters
func (r *Request) Parameters() []any {
	out := make([]any, len(r.parameters))
	copy(out, r.parameters)
	return out
}

// Parameter returns the parameter at the given position, or nil when
// the position is out of range.
func (r *Request) Parameter(index int) any {
	if index < 0 || index >= len(r.parameters) {
		return nil
	}
	return r.parameters[index]
}

// ParameterTypes returns a copy of the parameter type names
func (r *Request) ParameterTypes() []string {
	out := make([]string, len(r.parameterTypes))
	copy(out, r.parameterTypes)
	return out
}

// Signature returns the method name followed by its parameter types,
// for instance "put(string,int)".
func (r *Request) Signature() string {
	return Signature(r.methodName, r.parameterTypes...)
}

// Sender returns the identity of the caller
func (r *Request) Sender() Identity {
	return r.sender
}

// SequenceNumber returns the number assigned by the sender
func (r *Request) SequenceNumber() int64 {
	return r.sequenceNumber
}

// IsOneWay reports whether the caller does not wait for a reply
func (r *Request) IsOneWay() bool {
	return r.oneWay
}

// IsPriority reports whether the request is served ahead of the pending ones
func (r *Request) IsPriority() bool {
	return r.priority
}

// IsNonFunctional reports whether the request is an administrative call
func (r *Request) IsNonFunctional() bool {
	return r.nonFunctional
}

// NonFunctionalPriority returns the priority of a non-functional request
func (r *Request) NonFunctionalPriority() NonFunctionalPriority {
	return r.nfPriority
}

// ReceivedAt returns the time of the last arrival notification, or the
// zero time when the request has not been received yet.
func (r *Request) ReceivedAt() time.Time {
	return r.receivedAt.Load()
}

// NotifyReception marks the arrival of the request at its target
func (r *Request) NotifyReception() {
	r.receivedAt.Store(time.Now())
	if r.receptionHook != nil {
		r.receptionHook(r)
	}
}

// Respond hands the reply to the caller. One-way requests and requests
// without replier have nobody waiting and the reply is dropped.
func (r *Request) Respond(ctx context.Context, reply *Reply) error {
	if r.oneWay || r.replier == nil {
		return nil
	}
	return r.replier.Reply(ctx, reply)
}

// String returns a short description of the request
func (r *Request) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(r.Signature())
	sb.WriteString(" from=")
	sb.WriteString(r.sender.String())
	fmt.Fprintf(&sb, " seq=%d", r.sequenceNumber)
	if r.oneWay {
		sb.WriteString(" oneway")
	}
	if r.priority {
		sb.WriteString(" priority")
	}
	if r.nonFunctional {
		sb.WriteString(" nf=")
		sb.WriteString(r.nfPriority.String())
	}
	sb.WriteString("]")
	return sb.String()
}

// Signature builds the signature key of a method given its parameter types
func Signature(methodName string, parameterTypes ...string) string {
	return methodName + "(" + strings.Join(parameterTypes, ",") + ")"
}
