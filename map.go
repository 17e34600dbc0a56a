// Copyright (c) Marcos Laine 2024
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package exthash provides Multimap, an in-memory extensible hashing
// index from int64 keys to values of any comparable type. It is a
// multimap: one key may be associated with many values, and duplicate
// (key, value) pairs are kept as distinct entries.
//
// The following requirements are the user's responsibility to follow:
//   - A Multimap is not safe for concurrent use. Callers that share
//     one across goroutines must provide their own mutual exclusion.
//   - Values are compared with ==. A value type containing pointers,
//     maps, or slices must not have its referenced data mutated in a
//     way that affects ==, or entry removal misbehaves.
//   - The directory only ever grows. Deleting entries never merges
//     buckets or shrinks the directory.
package exthash

// This file implements extensible hashing with a bucket directory.
//
// The directory is a slice of bucket pointers whose length is always
// 2^depth for the current global depth. A key is addressed by its low
// depth bits: slot = key & (len(dir)-1). Each bucket carries a local
// depth, the number of low-order key bits its membership was last
// discriminated by; a bucket's local depth never exceeds the global
// depth.
//
// Inserting into a full bucket is resolved in one of two ways. If the
// bucket's local depth is below the global depth, a spare address bit
// exists: the bucket is split, its entries are redistributed between
// it and a new sibling by their current slot, and directory slots on
// the odd side of the new bit are repointed at the sibling. If the
// bucket is already at the global depth, the directory doubles first:
// the global depth is incremented and every slot i of the old half is
// given a fresh copy of its bucket at slot i+oldSize, entries and all.
// The two copies are independent objects from that point on and evolve
// separately under later inserts and splits; a key keeps resolving
// because the copy sitting at the key's own slot carries the entry.
//
// Lookups and removals read exactly one bucket, the one at the key's
// slot, so they cost O(bucket capacity). Inserts are amortized O(1)
// with an occasional O(len(dir)) pass when the directory doubles.
// There is no declared failure mode: an absent key yields an empty
// result or false, and adversarial insert patterns (more duplicates
// of one key than a bucket can hold) grow the directory without
// bound.

import (
	"golang.org/x/exp/rand"
	"golang.org/x/exp/slices"
)

// Entry is a single (key, value) association held by a Multimap.
type Entry[V comparable] struct {
	Key   int64
	Value V
}

type bucket[V comparable] struct {
	entries []Entry[V]
	depth   int // local depth, <= the owning Multimap's global depth
}

// add appends unconditionally. Capacity is the Multimap's concern;
// the bucket itself never rejects an entry.
func (b *bucket[V]) add(key int64, value V) {
	b.entries = append(b.entries, Entry[V]{Key: key, Value: value})
}

// removeAll deletes every entry with a matching key and reports how
// many were deleted.
func (b *bucket[V]) removeAll(key int64) int {
	kept := b.entries[:0]
	for _, e := range b.entries {
		if e.Key != key {
			kept = append(kept, e)
		}
	}
	removed := len(b.entries) - len(kept)
	// Clear the tail in case values contain pointers.
	for i := len(kept); i < len(b.entries); i++ {
		b.entries[i] = Entry[V]{}
	}
	b.entries = kept
	return removed
}

// removeOne deletes at most one entry matching both key and value and
// reports whether a deletion happened. Entries are unordered, so the
// hole is filled by the last entry.
func (b *bucket[V]) removeOne(key int64, value V) bool {
	for i, e := range b.entries {
		if e.Key == key && e.Value == value {
			last := len(b.entries) - 1
			b.entries[i] = b.entries[last]
			b.entries[last] = Entry[V]{}
			b.entries = b.entries[:last]
			return true
		}
	}
	return false
}

// lookup returns a fresh slice of the values stored under key, never
// a view into the bucket.
func (b *bucket[V]) lookup(key int64) []V {
	var vals []V
	for _, e := range b.entries {
		if e.Key == key {
			vals = append(vals, e.Value)
		}
	}
	return vals
}

func (b *bucket[V]) containsKey(key int64) bool {
	for _, e := range b.entries {
		if e.Key == key {
			return true
		}
	}
	return false
}

func (b *bucket[V]) size() int {
	return len(b.entries)
}

func (b *bucket[V]) clear() {
	b.entries = nil
}

func (b *bucket[V]) full(capacity int) bool {
	return b.size() >= capacity
}

// Multimap is an extensible hashing index from int64 keys to values.
// The zero value is not usable; call New.
type Multimap[V comparable] struct {
	dir       []*bucket[V] // always 2^depth slots
	depth     int          // global depth
	bucketCap int
	count     int // live entries, inserts minus removals
}

// New instantiates an empty Multimap whose buckets hold up to
// bucketCap entries before an insert triggers a split. A bucketCap
// below 1 is treated as 1.
func New[V comparable](bucketCap int) *Multimap[V] {
	if bucketCap < 1 {
		bucketCap = 1
	}
	return &Multimap[V]{
		dir:       []*bucket[V]{{depth: 1}, {depth: 1}},
		depth:     1,
		bucketCap: bucketCap,
	}
}

func (m *Multimap[V]) mask() uint64 {
	return uint64(len(m.dir) - 1)
}

func (m *Multimap[V]) slot(key int64) uint64 {
	return uint64(key) & m.mask()
}

// Len returns the number of entries in m.
func (m *Multimap[V]) Len() int {
	if m == nil {
		return 0
	}
	return m.count
}

// Empty reports whether m holds no entries.
func (m *Multimap[V]) Empty() bool {
	return m.Len() == 0
}

// Depth returns the global depth: the number of low-order key bits
// used to address the directory, so len(directory) == 1<<Depth(). It
// never decreases under inserts and removals.
func (m *Multimap[V]) Depth() int {
	if m == nil {
		return 0
	}
	return m.depth
}

// Insert associates value with key. Duplicate (key, value) pairs are
// kept; nothing is ever overwritten.
func (m *Multimap[V]) Insert(key int64, value V) {
	if m == nil {
		panic("Insert called on nil Multimap")
	}
	for {
		s := m.slot(key)
		b := m.dir[s]
		if !b.full(m.bucketCap) {
			b.add(key, value)
			m.count++
			return
		}
		if b.depth == m.depth {
			// No address bit remains to discriminate this bucket;
			// splitting cannot help until the directory doubles.
			m.grow()
			s = m.slot(key)
		}
		m.split(s)
	}
}

// grow doubles the directory. Slot i of the old half keeps its bucket
// and slot i+oldSize receives a full copy of it: same local depth,
// every entry duplicated. Every key stays resolvable at the instant
// of growth because both slots hold identical entry sets; afterwards
// the two buckets are independent objects.
func (m *Multimap[V]) grow() {
	old := len(m.dir)
	m.depth++
	for i := 0; i < old; i++ {
		b := m.dir[i]
		m.dir = append(m.dir, &bucket[V]{
			entries: slices.Clone(b.entries),
			depth:   b.depth,
		})
	}
}

// split relieves the full bucket at slot s. Its entries are snapshot
// and redistributed under the current directory mask: entries whose
// slot is still s stay, all others move to a new sibling at the
// incremented local depth. Directory slots that reference the split
// bucket and have the new discriminating bit set are repointed at the
// sibling; slots holding independent copies from earlier growth are
// left alone.
func (m *Multimap[V]) split(s uint64) {
	b := m.dir[s]
	depth := b.depth + 1
	snapshot := b.entries
	b.clear()
	b.depth = depth

	sib := &bucket[V]{depth: depth}
	for _, e := range snapshot {
		if m.slot(e.Key) == s {
			b.add(e.Key, e.Value)
		} else {
			sib.add(e.Key, e.Value)
		}
	}
	for i := range m.dir {
		if m.dir[i] == b && uint64(i)>>(depth-1)&1 == 1 {
			m.dir[i] = sib
		}
	}
}

// Lookup returns the values associated with key. The result is a
// fresh slice, nil when the key is absent.
func (m *Multimap[V]) Lookup(key int64) []V {
	if m == nil {
		return nil
	}
	return m.dir[m.slot(key)].lookup(key)
}

// Contains reports whether at least one entry exists under key.
func (m *Multimap[V]) Contains(key int64) bool {
	if m == nil {
		return false
	}
	return m.dir[m.slot(key)].containsKey(key)
}

// DeleteAll removes every entry under key and reports whether any
// entry was removed.
func (m *Multimap[V]) DeleteAll(key int64) bool {
	if m == nil {
		return false
	}
	n := m.dir[m.slot(key)].removeAll(key)
	m.count -= n
	return n > 0
}

// DeleteEntry removes at most one entry matching both key and value
// and reports whether an entry was removed. With duplicates of the
// same pair present, exactly one is removed.
func (m *Multimap[V]) DeleteEntry(key int64, value V) bool {
	if m == nil {
		return false
	}
	if m.dir[m.slot(key)].removeOne(key, value) {
		m.count--
		return true
	}
	return false
}

// Clear drops all entries and resets the directory to its initial
// two-bucket layout.
func (m *Multimap[V]) Clear() {
	if m == nil {
		return
	}
	m.dir = []*bucket[V]{{depth: 1}, {depth: 1}}
	m.depth = 1
	m.count = 0
}

// Entries returns every entry reachable through a Lookup. Ordering is
// undefined. The result is meant for external serialization and is
// detached from the Multimap.
func (m *Multimap[V]) Entries() []Entry[V] {
	if m == nil || m.count == 0 {
		return nil
	}
	out := make([]Entry[V], 0, m.count)
	for s, b := range m.dir {
		for _, e := range b.entries {
			if m.slot(e.Key) == uint64(s) {
				out = append(out, e)
			}
		}
	}
	return out
}

// Values returns the values of every entry reachable through a
// Lookup. Ordering is undefined.
func (m *Multimap[V]) Values() []V {
	if m == nil || m.count == 0 {
		return nil
	}
	out := make([]V, 0, m.count)
	for s, b := range m.dir {
		for _, e := range b.entries {
			if m.slot(e.Key) == uint64(s) {
				out = append(out, e.Value)
			}
		}
	}
	return out
}

// Iterator is instantiated by a call to Iter. It allows iterating
// over a Multimap's entries.
type Iterator[V comparable] struct {
	m       *Multimap[V]
	cur     Entry[V]
	slot    int
	start   int
	i       int
	wrapped bool
}

// Key returns the key at the iterator's current position. This is
// only valid after a call to Next() that returns true.
func (it *Iterator[V]) Key() int64 {
	return it.cur.Key
}

// Value returns the value at the iterator's current position. This is
// only valid after a call to Next() that returns true.
func (it *Iterator[V]) Value() V {
	return it.cur.Value
}

// Iter instantiates an Iterator over the entries of m. Ordering is
// undefined and is intentionally randomized. Mutating m during
// iteration leaves the iterator's remaining output undefined.
func (m *Multimap[V]) Iter() *Iterator[V] {
	if m == nil || m.count == 0 {
		return &Iterator[V]{}
	}
	start := int(rand.Uint64() & m.mask())
	return &Iterator[V]{m: m, slot: start, start: start}
}

// Next moves the iterator to the next entry. Next returns false when
// the iterator is complete.
func (it *Iterator[V]) Next() bool {
	m := it.m
	if m == nil {
		return false
	}
	for {
		b := m.dir[it.slot]
		for ; it.i < len(b.entries); it.i++ {
			e := b.entries[it.i]
			// Emit an entry at its home slot only, so a bucket's
			// leftover copies from directory growth are not replayed.
			if m.slot(e.Key) == uint64(it.slot) {
				it.cur = e
				it.i++
				return true
			}
		}
		it.i = 0
		it.slot++
		if it.slot == len(m.dir) {
			it.slot = 0
			it.wrapped = true
		}
		if it.slot == it.start && it.wrapped {
			it.cur = Entry[V]{}
			it.m = nil
			return false
		}
	}
}
