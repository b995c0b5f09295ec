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
	"sort"

	goset "github.com/deckarep/golang-set/v2"
)

// CompatibilityGraph is the symmetric relation telling which methods may
// run at the same time on one active object. It is read-only once built.
type CompatibilityGraph struct {
	edges map[string]goset.Set[string]
}

// NewCompatibilityGraph builds the graph from per-method declarations.
// A pair is kept only when each method declares the other one. A method
// left without any compatible method is dropped and is compatible with
// nothing. A method declaring itself may run alongside itself.
func NewCompatibilityGraph(declarations map[string][]string) *CompatibilityGraph {
	declared := make(map[string]goset.Set[string], len(declarations))
	for method, compatibles := range declarations {
		declared[method] = goset.NewThreadUnsafeSet(compatibles...)
	}

	edges := make(map[string]goset.Set[string], len(declared))
	for method, compatibles := range declared {
		kept := goset.NewThreadUnsafeSet[string]()
		for _, other := range compatibles.ToSlice() {
			if reverse, ok := declared[other]; ok && reverse.Contains(method) {
				kept.Add(other)
			}
		}
		if kept.Cardinality() > 0 {
			edges[method] = kept
		}
	}

	return &CompatibilityGraph{edges: edges}
}

// AreCompatible reports whether the two methods may run at the same time
func (g *CompatibilityGraph) AreCompatible(a, b string) bool {
	compatibles, ok := g.edges[a]
	return ok && compatibles.Contains(b)
}

// CompatibleWith returns the sorted methods compatible with the given one
func (g *CompatibilityGraph) CompatibleWith(method string) []string {
	compatibles, ok := g.edges[method]
	if !ok {
		return nil
	}
	out := compatibles.ToSlice()
	sort.Strings(out)
	return out
}

// Methods returns the sorted methods having at least one compatible method
func (g *CompatibilityGraph) Methods() []string {
	out := make([]string, 0, len(g.edges))
	for method := range g.edges {
		out = append(out, method)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of methods in the graph
func (g *CompatibilityGraph) Len() int {
	return len(g.edges)
}
