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
	"fmt"
	"sync"

	"github.com/activecore/activecore/request"
)

// ServiceMode tells how a RequestReceiver serves an arriving request
type ServiceMode int

const (
	// NormalService queues the request
	NormalService ServiceMode = iota
	// ImmediateMultiThread serves the request on the arrival goroutine,
	// concurrently with anything else. Only suitable for methods safe to
	// run alongside any other.
	ImmediateMultiThread
	// ImmediateUniqueThread serves the request on the worker bound to its
	// caller, one request at a time per caller.
	ImmediateUniqueThread
)

// String returns the string representation of the mode
func (m ServiceMode) String() string {
	switch m {
	case NormalService:
		return "normal"
	case ImmediateMultiThread:
		return "immediate_multi_thread"
	case ImmediateUniqueThread:
		return "immediate_unique_thread"
	default:
		return fmt.Sprintf("ServiceMode(%d)", int(m))
	}
}

// serviceModeTable maps methods, and optionally exact signatures, to their
// ServiceMode. A signature entry overrides the entry of its method name.
type serviceModeTable struct {
	mu          sync.RWMutex
	byName      map[string]ServiceMode
	bySignature map[string]map[string]ServiceMode
}

func newServiceModeTable() *serviceModeTable {
	return &serviceModeTable{
		byName:      make(map[string]ServiceMode),
		bySignature: make(map[string]map[string]ServiceMode),
	}
}

// setForName registers the mode of every signature of the method
func (t *serviceModeTable) setForName(method string, mode ServiceMode) {
	t.mu.Lock()
	t.byName[method] = mode
	t.mu.Unlock()
}

// setForSignature registers the mode of one signature of the method
func (t *serviceModeTable) setForSignature(method string, parameterTypes []string, mode ServiceMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	signatures, ok := t.bySignature[method]
	if !ok {
		signatures = make(map[string]ServiceMode)
		t.bySignature[method] = signatures
	}
	signatures[request.Signature(method, parameterTypes...)] = mode
}

// removeMethod drops the name entry and every signature entry of the method
func (t *serviceModeTable) removeMethod(method string) {
	t.mu.Lock()
	delete(t.byName, method)
	delete(t.bySignature, method)
	t.mu.Unlock()
}

// lookup returns the mode of the request, NormalService when nothing is registered
func (t *serviceModeTable) lookup(r *request.Request) ServiceMode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if signatures, ok := t.bySignature[r.MethodName()]; ok {
		if mode, ok := signatures[r.Signature()]; ok {
			return mode
		}
	}
	if mode, ok := t.byName[r.MethodName()]; ok {
		return mode
	}
	return NormalService
}
