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

	"github.com/activecore/activecore/request"
)

// Prober checks whether a caller is still alive. Any error is taken as the
// caller being gone.
type Prober interface {
	Probe(ctx context.Context, caller request.Identity) (bool, error)
}

// ProberFunc implements the Prober interface
type ProberFunc func(ctx context.Context, caller request.Identity) (bool, error)

// Probe calls f(ctx, caller)
func (f ProberFunc) Probe(ctx context.Context, caller request.Identity) (bool, error) {
	return f(ctx, caller)
}

// alwaysAlive is the Prober used when none is given
type alwaysAlive struct{}

func (alwaysAlive) Probe(context.Context, request.Identity) (bool, error) {
	return true, nil
}
