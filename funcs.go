// Copyright (c) Marcos Laine 2024
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package exthash

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// String converts m to a string representation using V's String
// function.
func String[V interface {
	comparable
	fmt.Stringer
}](m *Multimap[V]) string {
	return StringFunc(m, func(v V) string { return v.String() })
}

// String converts m to a string representation using fmt formatting
// for the values.
func (m *Multimap[V]) String() string {
	return StringFunc(m, func(v V) string { return fmt.Sprint(v) })
}

type strKV struct {
	k int64
	s string
	v string
}

// StringFunc converts m to a string representation with the help of a
// strV function to stringify m's values. Entries are ordered by key,
// then by stringified value.
func StringFunc[V comparable](m *Multimap[V], strV func(v V) string) string {
	if m == nil || m.Len() == 0 {
		return "exthash.Multimap[]"
	}
	entries := m.Entries()
	strs := make([]strKV, len(entries))
	size := 0
	for i, e := range entries {
		kv := &strs[i]
		kv.k = e.Key
		kv.s = strconv.FormatInt(e.Key, 10)
		kv.v = strV(e.Value)
		size += len(kv.s) + len(kv.v)
	}
	slices.SortFunc(strs, func(a, b strKV) bool {
		if a.k != b.k {
			return a.k < b.k
		}
		return a.v < b.v
	})

	var b strings.Builder
	b.Grow(len("exthash.Multimap[]") + // space for header and footer
		len(strs)*2 - 1 + // space for delimiters
		size) // space for keys and values
	b.WriteString("exthash.Multimap[")
	for i, kv := range strs {
		if i != 0 {
			b.WriteByte(' ')
		}
		b.WriteString(kv.s)
		b.WriteByte(':')
		b.WriteString(kv.v)
	}
	b.WriteByte(']')
	return b.String()
}

// Equal returns true if the same multiset of entries is in m1 and m2.
// Entries are compared using ==.
func Equal[V comparable](m1, m2 *Multimap[V]) bool {
	e1, e2 := m1.Entries(), m2.Entries()
	if len(e1) != len(e2) {
		return false
	}
	counts := make(map[Entry[V]]int, len(e1))
	for _, e := range e1 {
		counts[e]++
	}
	for _, e := range e2 {
		counts[e]--
		if counts[e] < 0 {
			return false
		}
	}
	return true
}

// EqualFunc returns true if the same multiset of entries is in m1 and
// m2. Values are compared using eq.
func EqualFunc[V comparable](m1, m2 *Multimap[V], eq func(V, V) bool) bool {
	e1, e2 := m1.Entries(), m2.Entries()
	if len(e1) != len(e2) {
		return false
	}
	used := make([]bool, len(e2))
outer:
	for _, a := range e1 {
		for i, b := range e2 {
			if !used[i] && a.Key == b.Key && eq(a.Value, b.Value) {
				used[i] = true
				continue outer
			}
		}
		return false
	}
	return true
}

// DebugString renders the directory and bucket layout of m in a
// human-readable form: one line per directory slot with the slot's
// address bits, the bucket's local depth, and its entries in storage
// order.
func (m *Multimap[V]) DebugString() string {
	if m == nil {
		return "exthash.Multimap<nil>"
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "len: %d, depth: %d, slots: %d, bucketCap: %d\n",
		m.count, m.depth, len(m.dir), m.bucketCap)
	for i, b := range m.dir {
		fmt.Fprintf(&buf, "slot %0*b: depth=%d", m.depth, i, b.depth)
		for _, e := range b.entries {
			fmt.Fprintf(&buf, " %d:%v", e.Key, e.Value)
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}
