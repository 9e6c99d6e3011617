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

package safe

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloudwego/rcmalloc/pool"
)

// Three goroutines hammer one thread-wrapped pool with paired
// allocate/free of random sizes. At quiescence every Block must be
// fully free: nothing should have leaked or corrupted free-list state
// under concurrent access.
func TestThreeGoroutinesPairedAllocFreeLeavesEveryBlockFullyFree(t *testing.T) {
	const (
		goroutines = 3
		opsEach    = 1_000_000 / goroutines
	)

	p := pool.New(4096, "fuzz")
	w := NewWrapper(p)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < opsEach; i++ {
				size := uint32(rng.Intn(1024) + 1)
				ptr, ok := w.Allocate(pool.AllocRequest{Size: size})
				if !ok {
					continue
				}
				w.Free(pool.FreeRequest{Ptr: ptr, Size: size})
			}
		}(int64(g + 1))
	}
	wg.Wait()

	for _, b := range p.Blocks() {
		assert.Equal(t, b.TotalBytes(), b.FreeBytes())
	}
}
