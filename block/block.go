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

// Package block implements one contiguous system page (or over-sized
// slab): intra-block allocate, allocate-at-hint, free-with-coalesce, and
// the placement search that backs a structural reallocate.
package block

import (
	"unsafe"

	"github.com/cloudwego/rcmalloc/internal/sortedarray"
	"github.com/cloudwego/rcmalloc/internal/syspage"
)

// Block is one system-obtained span carved into live allocations and Free
// Regions. A Block is never relocated or resized over its lifetime.
type Block struct {
	backing []byte
	span    syspage.Span
	start   uintptr
	total   uintptr
	free    uintptr

	// sizes orders Free Regions by (size asc, base asc) for best-fit
	// lookup; freeList orders the same set by (base asc) for locate-by-
	// address and coalescing. Both always hold the identical entry set.
	sizes    sortedarray.Array[freeRegion]
	freeList sortedarray.Array[freeRegion]
}

// New provisions a Block of exactly size bytes from the system.
func New(size uintptr) (*Block, error) {
	span, err := syspage.Acquire(int(size))
	if err != nil {
		return nil, err
	}
	b := &Block{
		backing: span.Bytes,
		span:    span,
		start:   uintptr(unsafe.Pointer(&span.Bytes[0])),
		total:   size,
		free:    size,
	}
	b.sizes.PushBack(freeRegion{Base: b.start, Size: size})
	b.freeList.PushBack(freeRegion{Base: b.start, Size: size})
	return b, nil
}

// NewFull provisions a Block of exactly size bytes that is immediately
// reported as fully consumed (used for the oversize, request>=pageSize
// path, where the whole Block belongs to the single allocation it was
// carved for).
func NewFull(size uintptr) (*Block, error) {
	span, err := syspage.Acquire(int(size))
	if err != nil {
		return nil, err
	}
	return &Block{
		backing: span.Bytes,
		span:    span,
		start:   uintptr(unsafe.Pointer(&span.Bytes[0])),
		total:   size,
		free:    0,
	}, nil
}

// Release returns the Block's backing span to the system. The Block must
// not be used afterward.
func (b *Block) Release() error {
	return syspage.Release(b.span)
}

// Start returns the address of the first byte of this Block's backing
// span.
func (b *Block) Start() uintptr { return b.start }

// TotalBytes returns the Block's total capacity.
func (b *Block) TotalBytes() uintptr { return b.total }

// FreeBytes returns the running sum of all Free Regions in this Block.
func (b *Block) FreeBytes() uintptr { return b.free }

// Contains reports whether ptr falls within this Block's backing span.
func (b *Block) Contains(ptr uintptr) bool {
	return ptr >= b.start && ptr < b.start+b.total
}

// Allocate satisfies size bytes with no placement preference (spec §4.2.1).
func (b *Block) Allocate(size uintptr) (uintptr, bool) {
	if b.free < size {
		return 0, false
	}

	idx, _ := b.sizes.Search(cmpSizeAtLeast(size))
	if idx >= b.sizes.Len() {
		return 0, false
	}
	region := b.sizes.At(idx)

	fidx, found := b.freeList.Search(cmpAddr(region.Base))
	if !found {
		// sizes and freeList are required to hold identical entries;
		// reaching here means that invariant broke.
		panic("block: sizes/freeList desynchronized")
	}

	result := region.Base
	b.free -= size

	if region.Size == size {
		b.sizes.EraseAt(idx)
		b.freeList.EraseAt(fidx)
	} else {
		region.Size -= size
		region.Base += size
		b.sizes.Set(idx, region)
		b.freeList.Set(fidx, region)
		b.sizes.BubbleUpFrom(idx, bySize)
		// freeList stays ordered: Base only increased.
	}
	return result, true
}

// AllocateAtHint succeeds only if the Free Region located at hint covers
// [hint, hint+size) (spec §4.2.2). It is used by the Realloc Engine's
// placement strategies and by the pool's catastrophic-failure restore
// path.
func (b *Block) AllocateAtHint(size, hint uintptr) (uintptr, bool) {
	fidx, found := b.freeList.IndexOf(func(r freeRegion) bool {
		return hint >= r.Base && hint+size <= r.Base+r.Size
	})
	if !found {
		return 0, false
	}
	region := b.freeList.At(fidx)

	sidx, sfound := b.sizes.Search(cmpSize(region))
	if !sfound {
		panic("block: sizes/freeList desynchronized")
	}

	switch {
	case hint == region.Base && hint+size == region.Base+region.Size:
		// whole region consumed
		b.freeList.EraseAt(fidx)
		b.sizes.EraseAt(sidx)
	case hint == region.Base:
		// hint matches the beginning
		region.Base += size
		region.Size -= size
		b.freeList.Set(fidx, region)
		b.sizes.Set(sidx, region)
		b.sizes.BubbleUpFrom(sidx, bySize)
	case hint+size == region.Base+region.Size:
		// hint matches the end
		region.Size -= size
		b.freeList.Set(fidx, region)
		b.sizes.Set(sidx, region)
		b.sizes.BubbleUpFrom(sidx, bySize)
	default:
		// hint lies in the interior: split into two
		tail := freeRegion{Base: hint + size, Size: region.Base + region.Size - (hint + size)}
		region.Size = hint - region.Base
		b.freeList.Set(fidx, region)
		b.sizes.Set(sidx, region)
		b.sizes.BubbleUpFrom(sidx, bySize)

		b.freeList.InsertAt(fidx+1, tail)
		tidx, _ := b.sizes.Search(cmpSize(tail))
		b.sizes.InsertAt(tidx, tail)
	}
	b.free -= size
	return hint, true
}

// Free returns [p, p+size) to this Block, coalescing with adjacent Free
// Regions (spec §4.2.3). It reports the index within freeList of the
// resulting (possibly merged) region, for use as the "free cursor" hint
// strategy during a reallocate.
func (b *Block) Free(p, size uintptr) (cursor int, ok bool) {
	if !b.Contains(p) {
		return 0, false
	}

	if b.free == 0 {
		r := freeRegion{Base: p, Size: size}
		b.sizes.PushBack(r)
		b.freeList.PushBack(r)
		b.free += size
		return 0, true
	}

	afterIdx, _ := b.freeList.Search(cmpAddrAfter(p))
	beforeIdx := afterIdx - 1

	var before, after freeRegion
	hasBefore := beforeIdx >= 0
	hasAfter := afterIdx < b.freeList.Len()
	if hasBefore {
		before = b.freeList.At(beforeIdx)
	}
	if hasAfter {
		after = b.freeList.At(afterIdx)
	}

	connectsBefore := hasBefore && before.Base+before.Size == p
	connectsAfter := hasAfter && p+size == after.Base

	switch {
	case connectsBefore && connectsAfter:
		merged := before
		merged.Size += size + after.Size

		bsidx, bfound := b.sizes.Search(cmpSize(before))
		if !bfound {
			panic("block: sizes/freeList desynchronized")
		}
		asidx, afound := b.sizes.Search(cmpSize(after))
		if !afound {
			panic("block: sizes/freeList desynchronized")
		}

		b.freeList.EraseAt(afterIdx)
		b.freeList.Set(beforeIdx, merged)

		b.sizes.EraseAt(asidx)
		if asidx < bsidx {
			bsidx--
		}
		b.sizes.Set(bsidx, merged)
		b.sizes.BubbleDownFrom(bsidx, bySize)
		b.free += size
		fcursor, _ := b.freeList.Search(cmpAddr(merged.Base))
		return fcursor, true

	case connectsBefore:
		merged := before
		merged.Size += size
		bsidx, bfound := b.sizes.Search(cmpSize(before))
		if !bfound {
			panic("block: sizes/freeList desynchronized")
		}
		b.freeList.Set(beforeIdx, merged)
		b.sizes.Set(bsidx, merged)
		b.sizes.BubbleDownFrom(bsidx, bySize)
		b.free += size
		return beforeIdx, true

	case connectsAfter:
		merged := after
		merged.Base = p
		merged.Size += size
		asidx, afound := b.sizes.Search(cmpSize(after))
		if !afound {
			panic("block: sizes/freeList desynchronized")
		}
		b.freeList.Set(afterIdx, merged)
		b.sizes.Set(asidx, merged)
		b.sizes.BubbleDownFrom(asidx, bySize)
		b.free += size
		return afterIdx, true

	default:
		r := freeRegion{Base: p, Size: size}
		b.freeList.InsertAt(afterIdx, r)
		sidx, _ := b.sizes.Search(cmpSize(r))
		b.sizes.InsertAt(sidx, r)
		b.free += size
		return afterIdx, true
	}
}

// LargestFreeRegion returns the base and size of the largest Free Region
// in this Block, used by the "head of largest Free Region" placement
// strategy.
func (b *Block) LargestFreeRegion() (base, size uintptr, ok bool) {
	n := b.sizes.Len()
	if n == 0 {
		return 0, 0, false
	}
	r := b.sizes.At(n - 1)
	return r.Base, r.Size, true
}

// CursorRegion returns the base/size of the Free Region at a freeList
// index previously returned by Free, used by the "head of the current
// free cursor" placement strategy.
func (b *Block) CursorRegion(idx int) (base, size uintptr, ok bool) {
	if idx < 0 || idx >= b.freeList.Len() {
		return 0, 0, false
	}
	r := b.freeList.At(idx)
	return r.Base, r.Size, true
}
