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

import "fmt"

// Verdict is the decision a Processor takes for one queued request
type Verdict int

const (
	// Keep leaves the request in the queue
	Keep Verdict = iota
	// Remove takes the request out of the queue without serving it
	Remove
	// RemoveAndServe takes the request out of the queue and serves it
	RemoveAndServe
)

// String returns the string representation of the verdict
func (v Verdict) String() string {
	switch v {
	case Keep:
		return "keep"
	case Remove:
		return "remove"
	case RemoveAndServe:
		return "remove_and_serve"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// Outcome is returned by a Processor for each visited request. When Fault
// is set on a RemoveAndServe outcome the request is answered with that
// fault instead of being executed.
type Outcome struct {
	Verdict Verdict
	Fault   error
}

// KeepOutcome leaves the request in place
var KeepOutcome = Outcome{Verdict: Keep}

// Processor visits the queued requests once, from the oldest to the youngest
type Processor interface {
	Process(r *Request) Outcome
}

// ProcessorFunc implements the Processor interface
type ProcessorFunc func(r *Request) Outcome

// Process calls f(r)
func (f ProcessorFunc) Process(r *Request) Outcome {
	return f(r)
}

// Preparer is implemented by processors that need to look at the whole
// queue content before the visit starts. Prepare receives the pending
// requests from the oldest to the youngest and must not retain the slice.
type Preparer interface {
	Prepare(pending []*Request)
}
