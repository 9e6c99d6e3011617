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

// Package rawshim satisfies arbitrary raw-pointer new/delete traffic
// from the registry's default pool: every allocation gets an 8-byte
// magic+size header placed immediately before the returned pointer, so
// Free can recover the original size without the caller tracking it
// (spec §6.2). A header precedes the pointer rather than a footer
// following it, because unlike a fixed-size-class pool this shim hands
// out arbitrarily sized blocks to callers that only ever hold the raw
// pointer, never a Go slice header with a known length.
package rawshim

import (
	"unsafe"

	"github.com/cloudwego/rcmalloc/pool"
	"github.com/cloudwego/rcmalloc/registry"
)

const headerMagic uint32 = 0x7263_6d61 // "rcma"

type header struct {
	magic uint32
	size  uint32
}

const headerSize = unsafe.Sizeof(header{})

// slack returns the distance from the raw pool pointer to the header,
// which is also the distance from the raw pointer to the user pointer
// (the header sits in the headerSize bytes immediately before it). It is
// headerSize unless alignment demands more room than that: the pool
// already hands back a pointer aligned to alignment, and raw+headerSize
// only stays a multiple of alignment when alignment divides headerSize,
// so for larger alignments the header must move to the end of the full
// alignment-sized gap instead.
func slack(alignment uint32) uintptr {
	if uintptr(alignment) > headerSize {
		return uintptr(alignment)
	}
	return headerSize
}

// Alloc satisfies a size-byte request, aligned to alignment (0 means the
// pool's default). The returned pointer must be released with Free.
func Alloc(size uintptr, alignment uint32) unsafe.Pointer {
	gap := slack(alignment)
	raw, ok := registry.Default().Allocate(pool.AllocRequest{
		Size:      uint32(size + gap),
		Alignment: alignment,
	})
	if !ok {
		return nil
	}
	userPtr := raw + gap
	hdr := (*header)(unsafe.Pointer(userPtr - headerSize))
	hdr.magic = headerMagic
	hdr.size = uint32(size)
	return unsafe.Pointer(userPtr)
}

// Free releases a pointer obtained from Alloc. Passing nil is a no-op.
// A corrupted or foreign header panics rather than silently freeing the
// wrong span.
func Free(p unsafe.Pointer, alignment uint32) {
	if p == nil {
		return
	}
	hdr := (*header)(unsafe.Pointer(uintptr(p) - headerSize))
	if hdr.magic != headerMagic {
		panic("rawshim: free of a pointer with a corrupted or missing header")
	}
	base := uintptr(p) - slack(alignment)
	registry.Default().Free(pool.FreeRequest{
		Ptr:       base,
		Size:      hdr.size + uint32(slack(alignment)),
		Alignment: alignment,
	})
}
