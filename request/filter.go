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

import (
	goset "github.com/deckarep/golang-set/v2"
)

// Filter selects requests. A nil Filter matches every request.
type Filter func(r *Request) bool

// Match reports whether the request is selected by the filter
func (f Filter) Match(r *Request) bool {
	return f == nil || f(r)
}

// Accept matches every request
func Accept() Filter {
	return nil
}

// ByMethod matches the requests invoking the given method
func ByMethod(methodName string) Filter {
	return func(r *Request) bool {
		return r.methodName == methodName
	}
}

// ByMethods matches the requests invoking any of the given methods
func ByMethods(methodNames ...string) Filter {
	names := goset.NewThreadUnsafeSet(methodNames...)
	return func(r *Request) bool {
		return names.Contains(r.methodName)
	}
}

// BySender matches the requests sent by the given caller
func BySender(sender Identity) Filter {
	return func(r *Request) bool {
		return r.sender == sender
	}
}

// BySignature matches the requests of the given method and parameter types
func BySignature(methodName string, parameterTypes ...string) Filter {
	signature := Signature(methodName, parameterTypes...)
	return func(r *Request) bool {
		return r.Signature() == signature
	}
}

// And matches the requests selected by every given filter
func And(filters ...Filter) Filter {
	return func(r *Request) bool {
		for _, f := range filters {
			if !f.Match(r) {
				return false
			}
		}
		return true
	}
}

// Or matches the requests selected by at least one given filter.
// Or without filters matches nothing.
func Or(filters ...Filter) Filter {
	return func(r *Request) bool {
		for _, f := range filters {
			if f.Match(r) {
				return true
			}
		}
		return false
	}
}

// Not matches the requests the given filter rejects
func Not(filter Filter) Filter {
	return func(r *Request) bool {
		return !filter.Match(r)
	}
}
