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

// Package registry is the process-wide home for lazily-constructed,
// thread-safe pools, keyed by (page size, pool id) (spec §9).
package registry

import (
	"fmt"
	"sync"

	"github.com/cloudwego/rcmalloc/pool"
	"github.com/cloudwego/rcmalloc/safe"
)

// defaultPageSize matches the original allocator's ALLOC_PAGE_SIZE.
const defaultPageSize = 4096 * 4

type key struct {
	pageSize uintptr
	poolID   uint32
}

var (
	mu    sync.Mutex
	pools = make(map[key]*safe.Wrapper)
)

// Get returns the Wrapper for (pageSize, poolID), constructing it on
// first use.
func Get(pageSize uintptr, poolID uint32) *safe.Wrapper {
	k := key{pageSize: pageSize, poolID: poolID}

	mu.Lock()
	defer mu.Unlock()
	if w, ok := pools[k]; ok {
		return w
	}
	w := safe.NewWrapper(pool.New(pageSize, fmt.Sprintf("%d:%d", pageSize, poolID)))
	pools[k] = w
	return w
}

// Default returns the pool used when a caller has no reason to pick a
// pool id of its own.
func Default() *safe.Wrapper {
	return Get(defaultPageSize, 0)
}
