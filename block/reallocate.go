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

package block

import "github.com/cloudwego/rcmalloc/realloc"

// Keep describes one retained sub-range of a reallocate, in terms of its
// original absolute address (before the old span was freed) and the byte
// offset it must land at within the new allocation.
type Keep struct {
	OrigAddr uintptr
	ToOffset uintptr
	Bytes    uintptr
}

func (k Keep) valid() bool { return k.Bytes > 0 }

// Request describes a structural reallocate to be attempted within a
// single Block.
type Request struct {
	OldPtr  uintptr
	OldSize uintptr
	NewSize uintptr

	HasHint bool
	Hint    uintptr

	Keep1, Keep2 Keep

	Move realloc.Mover

	// OnPlaced, if non-nil, runs once placement has picked newBase but
	// before the retained ranges are copied there. A caller whose
	// user-visible address is not newBase itself (the Alignment Shim,
	// which only learns its forward-aligned address once newBase is
	// known) uses this to correct Keep1/Keep2's ToOffset before the move
	// executes, mirroring internal_realloc aligning rslt before the
	// move in the original.
	OnPlaced func(newBase uintptr) (keep1ToOffset, keep2ToOffset uintptr)
}

// Reallocate frees the old span and attempts, in the six orders given by
// the spec, to place the new allocation (spec §4.2.4): user hint,
// keep-front, keep-back (larger retained range first), head of the
// largest Free Region, head of the just-freed cursor, then any fit. On
// success it performs the overlap-safe move of both retained sub-ranges
// and returns the new base address. On failure no Block state changes
// beyond the initial free of the old span.
func (b *Block) Reallocate(req Request) (uintptr, bool) {
	cursorIdx, freed := b.Free(req.OldPtr, req.OldSize)
	if !freed {
		return 0, false
	}

	newBase, ok := b.placeReallocation(req, cursorIdx)
	if !ok {
		return 0, false
	}

	keep1, keep2 := req.Keep1, req.Keep2
	if req.OnPlaced != nil {
		keep1.ToOffset, keep2.ToOffset = req.OnPlaced(newBase)
	}

	elemSize := req.Move.ElemSize
	if elemSize == 0 {
		elemSize = 1
	}
	realloc.Move(req.OldPtr, newBase,
		keepToSubRange(keep1, req.OldPtr, elemSize),
		keepToSubRange(keep2, req.OldPtr, elemSize),
		req.Move,
	)
	return newBase, true
}

func keepToSubRange(k Keep, oldBase, elemSize uintptr) realloc.SubRange {
	if !k.valid() {
		return realloc.SubRange{}
	}
	return realloc.SubRange{
		FromOffset: k.OrigAddr - oldBase,
		ToOffset:   k.ToOffset,
		Count:      k.Bytes / elemSize,
	}
}

func (b *Block) placeReallocation(req Request, cursorIdx int) (uintptr, bool) {
	if req.HasHint {
		if p, ok := b.AllocateAtHint(req.NewSize, req.Hint); ok {
			return p, true
		}
	}

	first, second := req.Keep1, req.Keep2
	if second.Bytes > first.Bytes {
		first, second = second, first
	}
	for _, k := range [2]Keep{first, second} {
		if !k.valid() {
			continue
		}
		candidate := k.OrigAddr - k.ToOffset
		if p, ok := b.AllocateAtHint(req.NewSize, candidate); ok {
			return p, true
		}
	}

	if base, _, ok := b.LargestFreeRegion(); ok {
		if p, ok := b.AllocateAtHint(req.NewSize, base); ok {
			return p, true
		}
	}

	if base, _, ok := b.CursorRegion(cursorIdx); ok {
		if p, ok := b.AllocateAtHint(req.NewSize, base); ok {
			return p, true
		}
	}

	return b.Allocate(req.NewSize)
}
