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

// Package safe serializes access to an align.Shim with a single
// exclusive lock per pool, the Thread Wrapper of spec §5. The core
// allocator (pool, block, align) is cooperative single-threaded and
// carries no locking of its own; this package supplies it.
package safe

import (
	"sync"

	"go.uber.org/zap"

	"github.com/cloudwego/rcmalloc/align"
	"github.com/cloudwego/rcmalloc/pool"
	"github.com/cloudwego/rcmalloc/rclog"
)

// Wrapper serializes Allocate/Free/Reallocate against a single pool.
type Wrapper struct {
	mu   sync.Mutex
	shim *align.Shim
}

// NewWrapper wraps p behind a Shim and a mutex.
func NewWrapper(p *pool.Pool) *Wrapper {
	return &Wrapper{shim: align.NewShim(p)}
}

// Allocate serializes a pool allocate.
func (w *Wrapper) Allocate(req pool.AllocRequest) (ptr uintptr, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shim.Allocate(req)
}

// Free serializes a pool free.
func (w *Wrapper) Free(req pool.FreeRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shim.Free(req)
}

// Reallocate serializes a pool reallocate, except for the same-size
// case: when FromBytes == ToBytes != 0 no Block state is mutated, so the
// move runs without acquiring the lock at all (spec §5's required
// optimization).
func (w *Wrapper) Reallocate(req pool.ReallocRequest) (ptr uintptr, ok bool) {
	if req.Ptr != 0 && req.FromBytes == req.ToBytes && req.FromBytes != 0 {
		return w.shim.Reallocate(req)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shim.Reallocate(req)
}

// Recover should be deferred by any entry point that must not let a
// guarded-assertion panic escape uncontrolled: it logs the panic via
// rclog and re-panics, so misuse is always both recorded and surfaced.
func Recover() {
	if r := recover(); r != nil {
		rclog.L().Error("safe: recovered panic, re-raising", zap.Any("panic", r))
		panic(r)
	}
}
