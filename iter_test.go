// Copyright (c) Marcos Laine 2024
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build goexperiment.rangefunc

package exthash

import "testing"

func TestAll(t *testing.T) {
	m := New[string](2)
	m.Insert(1, "A")
	m.Insert(3, "B")
	m.Insert(5, "C")

	got := map[Entry[string]]int{}
	for k, v := range m.All() {
		got[Entry[string]{Key: k, Value: v}]++
	}
	want := map[Entry[string]]int{}
	for _, e := range m.Entries() {
		want[e]++
	}
	for e, n := range want {
		if got[e] != n {
			t.Errorf("range saw %v %d times, want %d", e, got[e], n)
		}
	}
	if len(got) != len(want) {
		t.Errorf("range yielded %d distinct entries, want %d", len(got), len(want))
	}

	// Early break must not panic or keep yielding.
	n := 0
	for range m.All() {
		n++
		break
	}
	if n != 1 {
		t.Errorf("expected a single yield before break, got %d", n)
	}
}
