/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package realloc performs the overlap-safe relocation of up to two
// retained sub-ranges during a structural reallocate: given a source and
// destination buffer it picks a move order and, for non-trivial element
// types, a move direction that never overwrites a source element before
// it has been read.
package realloc

import "unsafe"

// SubRange describes one retained contiguous run of elements: Count
// elements of the mover's ElemSize, read starting at FromOffset bytes
// into the source buffer and written starting at ToOffset bytes into the
// destination buffer.
type SubRange struct {
	FromOffset uintptr
	ToOffset   uintptr
	Count      uintptr
}

func (s SubRange) empty() bool { return s.Count == 0 }

// Mover supplies the per-element move operations for a non-trivial
// element type. Direct moves src into dst directly; Intermediary routes
// the move through a caller-owned local temporary, for use when src and
// dst overlap within a single element and Direct would not tolerate the
// interleaving.
type Mover struct {
	ElemSize     uintptr
	Trivial      bool
	Direct       func(src, dst unsafe.Pointer)
	Intermediary func(src, dst unsafe.Pointer)
}

// Move relocates r1 and r2 from fromBase to toBase. Sub-ranges whose
// source and destination absolute addresses coincide are skipped. The two
// sub-ranges are reordered, if needed, so that the one landing at the
// lower destination address moves first, which guarantees moving one
// retained range never clobbers bytes the other still needs to read.
func Move(fromBase, toBase uintptr, r1, r2 SubRange, mv Mover) {
	ranges := [2]SubRange{r1, r2}
	dest := [2]uintptr{toBase + r1.ToOffset, toBase + r2.ToOffset}
	if !ranges[0].empty() && !ranges[1].empty() && dest[1] < dest[0] {
		ranges[0], ranges[1] = ranges[1], ranges[0]
	}

	for _, r := range ranges {
		if r.empty() {
			continue
		}
		src := fromBase + r.FromOffset
		dst := toBase + r.ToOffset
		if src == dst {
			continue
		}
		moveOne(src, dst, r.Count, mv)
	}
}

func moveOne(src, dst, count uintptr, mv Mover) {
	bytes := count * mv.ElemSize
	if mv.Trivial || mv.ElemSize == 0 {
		memmove(dst, src, bytes)
		return
	}

	dist := dst - src
	if dst < src {
		dist = src - dst
	}

	srcEnd := src + bytes
	forward := dst < src || dst >= srcEnd

	moveFn := mv.Direct
	if dist < mv.ElemSize {
		moveFn = mv.Intermediary
	}

	if forward {
		for i := uintptr(0); i < count; i++ {
			moveFn(unsafe.Pointer(src+i*mv.ElemSize), unsafe.Pointer(dst+i*mv.ElemSize))
		}
	} else {
		for i := count; i > 0; i-- {
			idx := i - 1
			moveFn(unsafe.Pointer(src+idx*mv.ElemSize), unsafe.Pointer(dst+idx*mv.ElemSize))
		}
	}
}

// memmove copies n bytes from src to dst, tolerating overlap, by routing
// through Go's built-in copy (which is memmove-safe for overlapping
// slices sharing a backing array) rather than reimplementing the
// direction choice by hand for the trivially-copyable case.
func memmove(dst, src, n uintptr) {
	if n == 0 {
		return
	}
	s := unsafe.Slice((*byte)(unsafe.Pointer(src)), n)
	d := unsafe.Slice((*byte)(unsafe.Pointer(dst)), n)
	copy(d, s)
}
