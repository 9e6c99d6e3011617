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

package pool

import (
	"unsafe"

	"github.com/cloudwego/rcmalloc/block"
	"github.com/cloudwego/rcmalloc/realloc"
)

// AllocRequest mirrors the allocate entry point's input record (spec
// §6.1). Size is raised to 1 if zero, Alignment to MinAlignment if
// smaller, and Size is rounded up to a multiple of ByteRounding before
// use.
type AllocRequest struct {
	Size         uint32
	Alignment    uint32
	SizeOf       uint32
	MinAlignment uint32
	ByteRounding uint32
}

// FreeRequest mirrors the deallocate entry point's input record (spec
// §6.1). Ptr == 0 is a no-op.
type FreeRequest struct {
	Ptr          uintptr
	Size         uint32
	Alignment    uint32
	SizeOf       uint32
	MinAlignment uint32
	ByteRounding uint32
}

// ReallocRequest mirrors the reallocate entry point's input record (spec
// §6.1). All Keep*Offset fields are signed byte offsets from the
// aligned, user-visible buffer start. Ptr == 0 delegates to Allocate.
// FromBytes == ToBytes performs the retained-range moves in place without
// touching any Block state.
type ReallocRequest struct {
	Ptr     uintptr
	Hint    uintptr
	HasHint bool

	FromBytes, ToBytes uint32

	KeepSize1, KeepSize2           uint32
	KeepFromOffset1, KeepFromOffset2 int32
	KeepToOffset1, KeepToOffset2     int32
	FromCount1, FromCount2           uint32

	Alignment    uint32
	SizeOf       uint32
	MinAlignment uint32
	ByteRounding uint32

	MoveFn             func(src, dst unsafe.Pointer)
	IntermediaryMoveFn func(src, dst unsafe.Pointer)
	IsTrivial          bool

	// OnPlaced, if non-nil, runs once the destination address is known
	// but before the retained ranges are copied there, letting a
	// wrapping layer (align.Shim) translate KeepToOffset{1,2} into its
	// own addressing scheme. It returns the adjusted offsets, in the
	// same units as KeepToOffset{1,2}.
	OnPlaced func(newBase uintptr) (toOffset1, toOffset2 int32)
}

// blockOnPlaced adapts OnPlaced to block.Request's uintptr-offset shape,
// or returns nil if no hook was set.
func (r ReallocRequest) blockOnPlaced() func(uintptr) (uintptr, uintptr) {
	if r.OnPlaced == nil {
		return nil
	}
	return func(newBase uintptr) (uintptr, uintptr) {
		t1, t2 := r.OnPlaced(newBase)
		return uintptr(int64(t1)), uintptr(int64(t2))
	}
}

func addSigned(base uintptr, off int32) uintptr {
	if off >= 0 {
		return base + uintptr(off)
	}
	return base - uintptr(-off)
}

func (r ReallocRequest) keep1(oldBase uintptr) block.Keep {
	if r.KeepSize1 == 0 {
		return block.Keep{}
	}
	return block.Keep{
		OrigAddr: addSigned(oldBase, r.KeepFromOffset1),
		ToOffset: uintptr(int64(r.KeepToOffset1)),
		Bytes:    uintptr(r.KeepSize1),
	}
}

func (r ReallocRequest) keep2(oldBase uintptr) block.Keep {
	if r.KeepSize2 == 0 {
		return block.Keep{}
	}
	return block.Keep{
		OrigAddr: addSigned(oldBase, r.KeepFromOffset2),
		ToOffset: uintptr(int64(r.KeepToOffset2)),
		Bytes:    uintptr(r.KeepSize2),
	}
}

func (r ReallocRequest) mover() realloc.Mover {
	elemSize := uintptr(r.SizeOf)
	if elemSize == 0 {
		elemSize = 1
	}
	return realloc.Mover{
		ElemSize:     elemSize,
		Trivial:      r.IsTrivial,
		Direct:       r.MoveFn,
		Intermediary: r.IntermediaryMoveFn,
	}
}

// subRange converts a Keep descriptor (absolute source address) into a
// realloc.SubRange relative to oldBase/elemSize, for the two call sites
// that invoke realloc.Move directly instead of through block.Reallocate.
func subRange(k block.Keep, oldBase, elemSize uintptr) realloc.SubRange {
	if k.Bytes == 0 {
		return realloc.SubRange{}
	}
	return realloc.SubRange{
		FromOffset: k.OrigAddr - oldBase,
		ToOffset:   k.ToOffset,
		Count:      k.Bytes / elemSize,
	}
}
