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
	"github.com/activecore/activecore/request"
)

// serveAllProcessor serves every request matching the filter, with the
// fault when one is given
func serveAllProcessor(filter request.Filter, fault error) request.Processor {
	return request.ProcessorFunc(func(r *request.Request) request.Outcome {
		if !filter.Match(r) {
			return request.KeepOutcome
		}
		return request.Outcome{Verdict: request.RemoveAndServe, Fault: fault}
	})
}

// flushingOldestProcessor serves the first match and discards the others
type flushingOldestProcessor struct {
	filter request.Filter
	served bool
}

func newFlushingOldestProcessor(filter request.Filter) *flushingOldestProcessor {
	return &flushingOldestProcessor{filter: filter}
}

func (p *flushingOldestProcessor) Process(r *request.Request) request.Outcome {
	if !p.filter.Match(r) {
		return request.KeepOutcome
	}
	if p.served {
		return request.Outcome{Verdict: request.Remove}
	}
	p.served = true
	return request.Outcome{Verdict: request.RemoveAndServe}
}

// flushingYoungestProcessor serves the last match and discards the others.
// It counts the matches before the visit to recognize the last one.
type flushingYoungestProcessor struct {
	filter  request.Filter
	matches int
	seen    int
}

var _ request.Preparer = (*flushingYoungestProcessor)(nil)

func newFlushingYoungestProcessor(filter request.Filter) *flushingYoungestProcessor {
	return &flushingYoungestProcessor{filter: filter}
}

func (p *flushingYoungestProcessor) Prepare(pending []*request.Request) {
	p.matches, p.seen = 0, 0
	for _, r := range pending {
		if p.filter.Match(r) {
			p.matches++
		}
	}
}

func (p *flushingYoungestProcessor) Process(r *request.Request) request.Outcome {
	if !p.filter.Match(r) {
		return request.KeepOutcome
	}
	p.seen++
	if p.seen == p.matches {
		return request.Outcome{Verdict: request.RemoveAndServe}
	}
	return request.Outcome{Verdict: request.Remove}
}
