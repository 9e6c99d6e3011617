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

// freeRegion is an unused (base, size) span inside one Block. The same
// freeRegion values live in both of a Block's indices - sizes and
// freeList - kept in lock-step by Block's methods rather than aliased,
// since Go has no reference-counted/aliasing-discipline container that
// would let two indices share one underlying entry safely.
type freeRegion struct {
	Base uintptr
	Size uintptr
}

// bySize orders (size asc, base asc), used by the sizes index for
// best-fit-by-size lookup.
func bySize(a, b freeRegion) bool {
	if a.Size != b.Size {
		return a.Size < b.Size
	}
	return a.Base < b.Base
}

// byAddr orders (base asc), used by the freeList index for locate-by-
// address and neighbor coalescing.
func byAddr(a, b freeRegion) bool {
	return a.Base < b.Base
}

// cmpSize returns a Search comparator that finds key's position under the
// (size, base) ordering.
func cmpSize(key freeRegion) func(freeRegion) int {
	return func(v freeRegion) int {
		if v.Size != key.Size {
			if v.Size < key.Size {
				return -1
			}
			return 1
		}
		if v.Base != key.Base {
			if v.Base < key.Base {
				return -1
			}
			return 1
		}
		return 0
	}
}

// cmpSizeAtLeast returns a Search comparator that finds the smallest
// region with Size >= want, breaking ties toward the lowest base - i.e.
// the lower bound of the half-open range [{want, 0}, ...).
func cmpSizeAtLeast(want uintptr) func(freeRegion) int {
	return func(v freeRegion) int {
		if v.Size < want {
			return -1
		}
		return 1
	}
}

// cmpAddr returns a Search comparator that finds base's position under
// the (base) ordering.
func cmpAddr(base uintptr) func(freeRegion) int {
	return func(v freeRegion) int {
		if v.Base != base {
			if v.Base < base {
				return -1
			}
			return 1
		}
		return 0
	}
}

// cmpAddrAfter returns a Search comparator locating the first region with
// Base > base (the "after" neighbor in Block.Free's coalesce search).
func cmpAddrAfter(base uintptr) func(freeRegion) int {
	return func(v freeRegion) int {
		if v.Base <= base {
			return -1
		}
		return 1
	}
}
