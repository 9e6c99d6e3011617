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

package realloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func trivialMover() Mover {
	return Mover{ElemSize: 1, Trivial: true}
}

func TestMoveTrivialNonOverlapping(t *testing.T) {
	src := []byte("hello!!!")
	dst := make([]byte, 16)

	Move(
		uintptr(unsafe.Pointer(&src[0])), uintptr(unsafe.Pointer(&dst[0])),
		SubRange{FromOffset: 0, ToOffset: 8, Count: 8},
		SubRange{},
		trivialMover(),
	)
	assert.Equal(t, "hello!!!", string(dst[8:16]))
}

func TestMoveTrivialOverlappingForward(t *testing.T) {
	buf := []byte("abcdefgh")
	base := uintptr(unsafe.Pointer(&buf[0]))

	// shift [0,8) to [2,10) within the same backing array; emulate by
	// growing the slice.
	buf = append(buf, 0, 0)
	base = uintptr(unsafe.Pointer(&buf[0]))
	Move(base, base, SubRange{FromOffset: 0, ToOffset: 2, Count: 8}, SubRange{}, trivialMover())
	assert.Equal(t, "ababcdefgh", string(buf))
}

func TestMoveSkipsIdenticalAddress(t *testing.T) {
	buf := []byte("unchanged")
	base := uintptr(unsafe.Pointer(&buf[0]))
	Move(base, base, SubRange{FromOffset: 0, ToOffset: 0, Count: uintptr(len(buf))}, SubRange{}, trivialMover())
	assert.Equal(t, "unchanged", string(buf))
}

func TestMoveOrientationSwapsByDestination(t *testing.T) {
	// Two non-overlapping element ranges in a []int32-like buffer, but
	// supplied to Move with sub-range 2 landing before sub-range 1: Move
	// must still execute sub-range 2 first without corrupting either.
	type elem = int32
	const elemSize = unsafe.Sizeof(elem(0))

	src := make([]elem, 4)
	for i := range src {
		src[i] = elem(i + 1)
	}
	dst := make([]elem, 4)

	mover := Mover{
		ElemSize: elemSize,
		Direct: func(s, d unsafe.Pointer) {
			*(*elem)(d) = *(*elem)(s)
		},
		Intermediary: func(s, d unsafe.Pointer) {
			tmp := *(*elem)(s)
			*(*elem)(d) = tmp
		},
	}

	srcBase := uintptr(unsafe.Pointer(&src[0]))
	dstBase := uintptr(unsafe.Pointer(&dst[0]))

	// sub-range "1" targets offset 2*elemSize (dst[2:3]), sub-range "2"
	// targets offset 0 (dst[0:1]) - destination of range 2 precedes range
	// 1's, so Move must swap them internally.
	Move(srcBase, dstBase,
		SubRange{FromOffset: 0, ToOffset: 2 * elemSize, Count: 1},
		SubRange{FromOffset: 1 * elemSize, ToOffset: 0, Count: 1},
		mover,
	)
	assert.Equal(t, elem(1), dst[2])
	assert.Equal(t, elem(2), dst[0])
}

func TestMoveUsesIntermediaryWhenOverlapWithinOneElement(t *testing.T) {
	type elem = int64
	const elemSize = unsafe.Sizeof(elem(0))

	buf := make([]elem, 3)
	buf[0], buf[1], buf[2] = 10, 20, 30
	base := uintptr(unsafe.Pointer(&buf[0]))

	var usedIntermediary bool
	mover := Mover{
		ElemSize: elemSize,
		Direct: func(s, d unsafe.Pointer) {
			*(*elem)(d) = *(*elem)(s)
		},
		Intermediary: func(s, d unsafe.Pointer) {
			usedIntermediary = true
			tmp := *(*elem)(s)
			*(*elem)(d) = tmp
		},
	}

	// Shift within the same buffer by less than elemSize is not directly
	// expressible at 8-byte granularity; instead verify the dispatch
	// using a synthetic byte-level offset smaller than ElemSize.
	Move(base, base+elemSize/2, SubRange{FromOffset: 0, ToOffset: 0, Count: 1}, SubRange{}, mover)
	assert.True(t, usedIntermediary)
}
