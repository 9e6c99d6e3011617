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

// Package objpool layers typed, generic allocate/free helpers over a
// Registry: allocate N objects of a type, construct each from its zero
// value, and on teardown run a caller-supplied Destructor before
// returning the bytes. Go has no implicit destructors, so the Destructor
// hook is the honest stand-in for a placement-constructed/destructed
// object (spec §6.3).
package objpool

import (
	"unsafe"

	"github.com/cloudwego/rcmalloc/pool"
)

// Registry is the allocate/free surface objpool needs; *safe.Wrapper and
// *align.Shim both satisfy it.
type Registry interface {
	Allocate(req pool.AllocRequest) (uintptr, bool)
	Free(req pool.FreeRequest)
}

// Destructor is invoked on each element of a typed allocation immediately
// before its memory is returned to the pool.
type Destructor[T any] func(*T)

// New allocates and zero-value constructs a single T.
func New[T any](r Registry) *T {
	var zero T
	size := unsafe.Sizeof(zero)
	ptr, ok := r.Allocate(pool.AllocRequest{Size: uint32(size), Alignment: uint32(unsafe.Alignof(zero))})
	if !ok {
		return nil
	}
	p := (*T)(unsafe.Pointer(ptr))
	*p = zero
	return p
}

// NewN allocates n contiguous, zero-value constructed Ts.
func NewN[T any](r Registry, n int) []T {
	if n <= 0 {
		return nil
	}
	var zero T
	elemSize := unsafe.Sizeof(zero)
	ptr, ok := r.Allocate(pool.AllocRequest{
		Size:      uint32(elemSize * uintptr(n)),
		Alignment: uint32(unsafe.Alignof(zero)),
	})
	if !ok {
		return nil
	}
	s := unsafe.Slice((*T)(unsafe.Pointer(ptr)), n)
	for i := range s {
		s[i] = zero
	}
	return s
}

// Free destructs and releases a single T allocated by New.
func Free[T any](r Registry, p *T, dtor Destructor[T]) {
	if p == nil {
		return
	}
	if dtor != nil {
		dtor(p)
	}
	var zero T
	r.Free(pool.FreeRequest{
		Ptr:       uintptr(unsafe.Pointer(p)),
		Size:      uint32(unsafe.Sizeof(zero)),
		Alignment: uint32(unsafe.Alignof(zero)),
	})
}

// FreeN destructs and releases a slice allocated by NewN. dtor, if
// non-nil, runs on every element before the backing memory is released.
func FreeN[T any](r Registry, s []T, dtor Destructor[T]) {
	if len(s) == 0 {
		return
	}
	if dtor != nil {
		for i := range s {
			dtor(&s[i])
		}
	}
	var zero T
	elemSize := unsafe.Sizeof(zero)
	r.Free(pool.FreeRequest{
		Ptr:       uintptr(unsafe.Pointer(&s[0])),
		Size:      uint32(elemSize * uintptr(len(s))),
		Alignment: uint32(unsafe.Alignof(zero)),
	})
}
