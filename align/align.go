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

// Package align wraps a pool.Pool with the extra-bytes-and-offset-byte
// trick needed to hand back addresses aligned to more than the pool's
// own allocation granularity, without a side table (spec §4.5).
package align

import (
	"unsafe"

	"github.com/cloudwego/rcmalloc/pool"
)

// Shim wraps a Pool and applies the §4.5 alignment trick whenever a
// request's Alignment is >= 2. Alignment <= 1 passes straight through.
type Shim struct {
	Pool *pool.Pool
}

// NewShim wraps p.
func NewShim(p *pool.Pool) *Shim { return &Shim{Pool: p} }

// maxAlignment is the largest alignment this shim can restore, since the
// forward offset is stored in a single byte immediately before the
// returned address.
const maxAlignment = 255

func normalize(size, alignment, minAlignment, byteRounding uint32) (uint32, uint32) {
	if size == 0 {
		size = 1
	}
	if alignment < minAlignment {
		alignment = minAlignment
	}
	if byteRounding > 1 {
		if rem := size % byteRounding; rem != 0 {
			size += byteRounding - rem
		}
	}
	return size, alignment
}

// alignForward returns the smallest multiple of alignment >= rawBase,
// advancing by a full alignment if rawBase is already aligned so at
// least one byte of slack always precedes the result.
func alignForward(rawBase, alignment uintptr) uintptr {
	rem := rawBase % alignment
	if rem == 0 {
		return rawBase + alignment
	}
	return rawBase + (alignment - rem)
}

func writeOffset(aligned, rawBase uintptr) {
	offset := aligned - rawBase
	if offset > maxAlignment {
		panic("align: alignment exceeds the 255-byte offset ceiling")
	}
	*(*byte)(unsafe.Pointer(aligned - 1)) = byte(offset)
}

func readOffset(ptr uintptr) uintptr {
	return uintptr(*(*byte)(unsafe.Pointer(ptr - 1)))
}

// Allocate satisfies req, routing through the pool directly when no
// alignment handling is requested.
func (s *Shim) Allocate(req pool.AllocRequest) (uintptr, bool) {
	if req.Alignment <= 1 {
		return s.Pool.Allocate(req)
	}
	size, alignment := normalize(req.Size, req.Alignment, req.MinAlignment, req.ByteRounding)
	if alignment > maxAlignment {
		panic("align: alignment exceeds the 255-byte offset ceiling")
	}
	rawSize := uintptr(size) + uintptr(alignment)

	rawBase, ok := s.Pool.Allocate(pool.AllocRequest{Size: uint32(rawSize)})
	if !ok {
		return 0, false
	}
	aligned := alignForward(rawBase, uintptr(alignment))
	writeOffset(aligned, rawBase)
	return aligned, true
}

// Free reverses Allocate's bookkeeping and releases the underlying raw
// span.
func (s *Shim) Free(req pool.FreeRequest) {
	if req.Ptr == 0 {
		return
	}
	if req.Alignment <= 1 {
		s.Pool.Free(req)
		return
	}
	size, alignment := normalize(req.Size, req.Alignment, req.MinAlignment, req.ByteRounding)
	offset := readOffset(req.Ptr)
	rawBase := req.Ptr - offset
	s.Pool.Free(pool.FreeRequest{Ptr: rawBase, Size: uint32(uintptr(size) + uintptr(alignment))})
}

// Reallocate reverses Allocate's bookkeeping on the old span, delegates
// to the pool with raw (unaligned) offsets, and re-applies the trick to
// the resulting address. KeepFromOffset{1,2} are corrected by the old
// span's recorded slack up front, since it is read from the byte before
// the old pointer and so is already known. KeepToOffset{1,2} cannot be
// corrected up front, since the new span's slack depends on where the
// pool places it; instead the pool's OnPlaced hook fires once that
// address is fixed, so the correction lands before the retained ranges
// are actually copied there (mirrors internal_realloc aligning rslt
// before invoking doMemMove).
func (s *Shim) Reallocate(req pool.ReallocRequest) (uintptr, bool) {
	if req.Alignment <= 1 {
		return s.Pool.Reallocate(req)
	}
	if req.Ptr == 0 {
		return s.Allocate(pool.AllocRequest{
			Size: req.ToBytes, Alignment: req.Alignment, SizeOf: req.SizeOf,
			MinAlignment: req.MinAlignment, ByteRounding: req.ByteRounding,
		})
	}

	fromSize, alignment := normalize(req.FromBytes, req.Alignment, req.MinAlignment, req.ByteRounding)
	toSize, _ := normalize(req.ToBytes, req.Alignment, req.MinAlignment, req.ByteRounding)
	if alignment > maxAlignment {
		panic("align: alignment exceeds the 255-byte offset ceiling")
	}
	offset := readOffset(req.Ptr)

	adjusted := req
	adjusted.Ptr = req.Ptr - offset
	adjusted.FromBytes = uint32(uintptr(fromSize) + uintptr(alignment))
	adjusted.ToBytes = uint32(uintptr(toSize) + uintptr(alignment))
	adjusted.KeepFromOffset1 += int32(offset)
	adjusted.KeepFromOffset2 += int32(offset)
	// Already-final sizes above; suppress the pool's own normalization.
	adjusted.Alignment, adjusted.MinAlignment, adjusted.ByteRounding = 0, 0, 1

	var newSlack uintptr
	adjusted.OnPlaced = func(newRawBase uintptr) (int32, int32) {
		newAligned := alignForward(newRawBase, uintptr(alignment))
		newSlack = newAligned - newRawBase
		return req.KeepToOffset1 + int32(newSlack), req.KeepToOffset2 + int32(newSlack)
	}

	newRawBase, ok := s.Pool.Reallocate(adjusted)
	if !ok {
		return 0, false
	}
	newAligned := newRawBase + newSlack
	writeOffset(newAligned, newRawBase)
	return newAligned, true
}
