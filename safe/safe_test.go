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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/rcmalloc/pool"
)

func TestAllocateFreeRoundTrip(t *testing.T) {
	w := NewWrapper(pool.New(4096, "safe-roundtrip"))
	ptr, ok := w.Allocate(pool.AllocRequest{Size: 64})
	require.True(t, ok)
	assert.NotZero(t, ptr)
	w.Free(pool.FreeRequest{Ptr: ptr, Size: 64})
}

func TestReallocateGrowMovesUnderLock(t *testing.T) {
	w := NewWrapper(pool.New(4096, "safe-grow"))
	ptr, ok := w.Allocate(pool.AllocRequest{Size: 64})
	require.True(t, ok)

	newPtr, ok := w.Reallocate(pool.ReallocRequest{
		Ptr: ptr, FromBytes: 64, ToBytes: 128,
		KeepSize1: 64, IsTrivial: true,
	})
	require.True(t, ok)
	assert.NotZero(t, newPtr)
}

// Same-size reallocate bypasses the mutex entirely (spec §5): called
// while the lock is already held, it must still return rather than
// deadlock against itself.
func TestReallocateSameSizeBypassesTheLock(t *testing.T) {
	w := NewWrapper(pool.New(4096, "safe-bypass"))
	ptr, ok := w.Allocate(pool.AllocRequest{Size: 64})
	require.True(t, ok)

	w.mu.Lock()
	newPtr, ok := w.Reallocate(pool.ReallocRequest{
		Ptr: ptr, FromBytes: 64, ToBytes: 64,
		KeepSize1: 64, IsTrivial: true,
	})
	w.mu.Unlock()

	assert.True(t, ok)
	assert.Equal(t, ptr, newPtr)
}

func TestConcurrentAllocateFreeLeavesNoCorruption(t *testing.T) {
	w := NewWrapper(pool.New(4096, "safe-concurrent"))
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				ptr, ok := w.Allocate(pool.AllocRequest{Size: 32})
				if !ok {
					continue
				}
				w.Free(pool.FreeRequest{Ptr: ptr, Size: 32})
			}
		}()
	}
	wg.Wait()
}
