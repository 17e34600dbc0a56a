// Copyright (c) Marcos Laine 2024
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build goexperiment.rangefunc

package exthash

import "iter"

// All returns an iterator over key-value pairs from m.
func (m *Multimap[V]) All() iter.Seq2[int64, V] {
	return func(yield func(int64, V) bool) {
		for it := m.Iter(); it.Next(); {
			if !yield(it.Key(), it.Value()) {
				return
			}
		}
	}
}
