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

// Package pool dispatches allocate/free/reallocate traffic across a
// growing set of Blocks: it provisions new Blocks on demand, retires
// empty ones, and routes a pointer back to its owning Block by address.
// Pool itself carries no synchronization - that is safe.Wrapper's job.
package pool

import (
	"go.uber.org/zap"

	"github.com/cloudwego/rcmalloc/block"
	"github.com/cloudwego/rcmalloc/internal/sortedarray"
	"github.com/cloudwego/rcmalloc/rclog"
	"github.com/cloudwego/rcmalloc/rcstats"
	"github.com/cloudwego/rcmalloc/realloc"
)

// freshnessProbeLimit bounds how many of the most-recently-touched Blocks
// a no-hint Allocate will try before giving up and provisioning a new
// Block.
const freshnessProbeLimit = 10

// Pool owns a set of Blocks obtained from the system and dispatches
// allocate/free/reallocate traffic to them.
type Pool struct {
	pageSize uintptr
	id       string

	byAddress   sortedarray.Array[*block.Block]
	byFreshness sortedarray.Array[*block.Block]
}

// New constructs an empty Pool that provisions Blocks in multiples of
// pageSize. id labels this pool's Prometheus series and log lines.
func New(pageSize uintptr, id string) *Pool {
	return &Pool{pageSize: pageSize, id: id}
}

// PageSize returns the Block granularity this Pool provisions in.
func (p *Pool) PageSize() uintptr { return p.pageSize }

// Blocks returns the Pool's current Blocks in address order. Intended
// for tests and diagnostics; callers must not mutate the result.
func (p *Pool) Blocks() []*block.Block {
	return p.byAddress.Slice()
}

func normalizeSize(size, alignment, minAlignment, byteRounding uint32) (uint32, uint32) {
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

func ceilDiv(n, mult uintptr) uintptr {
	return (n + mult - 1) / mult
}

// Allocate satisfies an AllocRequest, per spec §4.2.1/§4.4: requests at
// or above the page size get a dedicated Block; otherwise the last
// freshnessProbeLimit Blocks are probed most-recent first before a fresh
// Block is provisioned.
func (p *Pool) Allocate(req AllocRequest) (uintptr, bool) {
	size, _ := normalizeSize(req.Size, req.Alignment, req.MinAlignment, req.ByteRounding)
	sz := uintptr(size)

	if sz >= p.pageSize {
		b, err := block.NewFull(sz)
		if err != nil {
			rclog.L().Warn("pool: oversize block provisioning failed", zap.String("pool", p.id), zap.Uint64("size", uint64(sz)))
			return 0, false
		}
		p.insertBlock(b)
		rcstats.Default.ObserveAllocate(p.id)
		rcstats.Default.SetBlockCount(p.id, p.byAddress.Len())
		return b.Start(), true
	}

	n := p.byFreshness.Len()
	probe := n
	if probe > freshnessProbeLimit {
		probe = freshnessProbeLimit
	}
	for i := 0; i < probe; i++ {
		idx := n - 1 - i
		b := p.byFreshness.At(idx)
		if ptr, ok := b.Allocate(sz); ok {
			p.nudgeFreshnessDown(idx)
			rcstats.Default.ObserveAllocate(p.id)
			return ptr, true
		}
	}

	nb, err := block.New(ceilDiv(sz, p.pageSize) * p.pageSize)
	if err != nil {
		rclog.L().Warn("pool: block provisioning failed", zap.String("pool", p.id), zap.Uint64("requested", uint64(sz)))
		return 0, false
	}
	p.insertBlock(nb)
	ptr, ok := nb.Allocate(sz)
	rcstats.Default.ObserveAllocate(p.id)
	rcstats.Default.SetBlockCount(p.id, p.byAddress.Len())
	return ptr, ok
}

// Free returns a previously-allocated span to its owning Block, retiring
// the Block if it is now entirely empty and at least one other Block
// remains (spec §4.4).
func (p *Pool) Free(req FreeRequest) {
	if req.Ptr == 0 {
		return
	}
	size, _ := normalizeSize(req.Size, req.Alignment, req.MinAlignment, req.ByteRounding)

	owner, ownerIdx, ok := p.lookupOwner(req.Ptr)
	if !ok {
		panic("pool: free of a pointer this pool does not own")
	}
	if _, freed := owner.Free(req.Ptr, uintptr(size)); !freed {
		panic("pool: free of a pointer outside its reported owning block")
	}
	rcstats.Default.ObserveFree(p.id)

	if owner.FreeBytes() == owner.TotalBytes() && p.byAddress.Len() > 1 {
		p.retireBlock(owner, ownerIdx)
		return
	}

	if fidx, ok := p.byFreshness.IndexOf(func(b *block.Block) bool { return b == owner }); ok {
		p.nudgeFreshnessDown(fidx)
	}
}

// Reallocate resizes the allocation at req.Ptr, delegating first to the
// owning Block's own placement search (spec §4.2.4) and, only on that
// failure, provisioning a fresh Block and moving the retained sub-ranges
// into it directly (spec §4.4). req.Ptr == 0 delegates to Allocate.
func (p *Pool) Reallocate(req ReallocRequest) (uintptr, bool) {
	if req.Ptr == 0 {
		return p.Allocate(AllocRequest{
			Size: req.ToBytes, Alignment: req.Alignment, SizeOf: req.SizeOf,
			MinAlignment: req.MinAlignment, ByteRounding: req.ByteRounding,
		})
	}

	fromSize, _ := normalizeSize(req.FromBytes, req.Alignment, req.MinAlignment, req.ByteRounding)
	toSize, _ := normalizeSize(req.ToBytes, req.Alignment, req.MinAlignment, req.ByteRounding)
	mover := req.mover()
	k1, k2 := req.keep1(req.Ptr), req.keep2(req.Ptr)

	if req.FromBytes == req.ToBytes {
		if req.OnPlaced != nil {
			t1, t2 := req.OnPlaced(req.Ptr)
			k1.ToOffset, k2.ToOffset = uintptr(int64(t1)), uintptr(int64(t2))
		}
		realloc.Move(req.Ptr, req.Ptr,
			subRange(k1, req.Ptr, mover.ElemSize), subRange(k2, req.Ptr, mover.ElemSize), mover)
		return req.Ptr, true
	}

	owner, _, ok := p.lookupOwner(req.Ptr)
	if !ok {
		panic("pool: reallocate of a pointer this pool does not own")
	}

	breq := block.Request{
		OldPtr:   req.Ptr,
		OldSize:  uintptr(fromSize),
		NewSize:  uintptr(toSize),
		HasHint:  req.HasHint,
		Hint:     req.Hint,
		Keep1:    k1,
		Keep2:    k2,
		Move:     mover,
		OnPlaced: req.blockOnPlaced(),
	}
	if newPtr, ok := owner.Reallocate(breq); ok {
		rcstats.Default.ObserveRealloc(p.id)
		if fidx, ok := p.byFreshness.IndexOf(func(b *block.Block) bool { return b == owner }); ok {
			p.nudgeFreshnessDown(fidx)
		}
		return newPtr, true
	}

	// owner.Reallocate always frees the old span before searching for a
	// new home (spec §4.2.4 step 1), so reaching here means the old span
	// already lives on owner's free list with nowhere for the grown
	// allocation to land.
	rcstats.Default.ObserveReallocFallback(p.id)
	nb, err := block.New(ceilDiv(uintptr(toSize), p.pageSize) * p.pageSize)
	if err != nil {
		return p.restoreOrGiveUp(owner, req.Ptr, uintptr(fromSize))
	}
	newPtr, ok := nb.Allocate(uintptr(toSize))
	if !ok {
		_ = nb.Release()
		return p.restoreOrGiveUp(owner, req.Ptr, uintptr(fromSize))
	}
	p.insertBlock(nb)

	if req.OnPlaced != nil {
		t1, t2 := req.OnPlaced(newPtr)
		k1.ToOffset, k2.ToOffset = uintptr(int64(t1)), uintptr(int64(t2))
	}
	realloc.Move(req.Ptr, newPtr,
		subRange(k1, req.Ptr, mover.ElemSize), subRange(k2, req.Ptr, mover.ElemSize), mover)
	return newPtr, true
}

// restoreOrGiveUp attempts to put the freed span back exactly where it
// was, per spec §4.4/§9's documented loss-of-data edge case: if even the
// restore fails the original buffer's contents are gone.
func (p *Pool) restoreOrGiveUp(owner *block.Block, ptr, size uintptr) (uintptr, bool) {
	if _, ok := owner.AllocateAtHint(size, ptr); ok {
		rclog.L().Warn("pool: reallocate failed, original span restored", zap.String("pool", p.id))
		return 0, false
	}
	rclog.L().Error("pool: reallocate failed and original span could not be restored, buffer lost", zap.String("pool", p.id))
	return 0, false
}

func (p *Pool) insertBlock(b *block.Block) {
	idx, _ := p.byAddress.Search(cmpBlockStart(b.Start()))
	p.byAddress.InsertAt(idx, b)
	p.byFreshness.PushBack(b)
}

func (p *Pool) retireBlock(b *block.Block, addrIdx int) {
	if idx, ok := p.byAddress.IndexOf(func(v *block.Block) bool { return v == b }); ok {
		p.byAddress.EraseAt(idx)
	} else {
		p.byAddress.EraseAt(addrIdx)
	}
	if idx, ok := p.byFreshness.IndexOf(func(v *block.Block) bool { return v == b }); ok {
		p.byFreshness.EraseAt(idx)
	}
	_ = b.Release()
	rcstats.Default.ObserveBlockRetired(p.id)
	rcstats.Default.SetBlockCount(p.id, p.byAddress.Len())
	rclog.L().Info("pool: block retired", zap.String("pool", p.id))
}

// nudgeFreshnessDown performs the single swap-down step described in
// spec §4.4: a Block that now has more free capacity than its right-hand
// neighbor moves one slot closer to the tail, where probing starts.
func (p *Pool) nudgeFreshnessDown(idx int) {
	n := p.byFreshness.Len()
	if idx < 0 || idx+1 >= n {
		return
	}
	cur := p.byFreshness.At(idx)
	next := p.byFreshness.At(idx + 1)
	if cur.FreeBytes() > next.FreeBytes() {
		p.byFreshness.Set(idx, next)
		p.byFreshness.Set(idx+1, cur)
	}
}

func cmpBlockStart(start uintptr) func(*block.Block) int {
	return func(v *block.Block) int {
		vs := v.Start()
		if vs != start {
			if vs < start {
				return -1
			}
			return 1
		}
		return 0
	}
}

// lookupOwner finds the Block with the greatest Start() <= p, the address
// sorted index's role per spec §4.4.
func (p *Pool) lookupOwner(ptr uintptr) (*block.Block, int, bool) {
	idx, found := p.byAddress.Search(cmpBlockStart(ptr))
	if found {
		return p.byAddress.At(idx), idx, true
	}
	ownerIdx := idx - 1
	if ownerIdx < 0 {
		return nil, 0, false
	}
	candidate := p.byAddress.At(ownerIdx)
	if !candidate.Contains(ptr) {
		return nil, 0, false
	}
	return candidate, ownerIdx, true
}

