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

package rawshim

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocFreeRoundTrip(t *testing.T) {
	p := Alloc(128, 0)
	require.NotNil(t, p)
	b := unsafe.Slice((*byte)(p), 128)
	for i := range b {
		b[i] = byte(i)
	}
	assert.NotPanics(t, func() { Free(p, 0) })
}

func TestFreeNilIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { Free(nil, 0) })
}

func TestFreeOfCorruptedHeaderPanics(t *testing.T) {
	p := Alloc(64, 0)
	require.NotNil(t, p)
	base := (*header)(unsafe.Pointer(uintptr(p) - headerSize))
	base.magic = 0

	assert.Panics(t, func() { Free(p, 0) })
}

// headerSize is 8 bytes; an alignment wider than that must still land the
// user pointer on the requested boundary, not merely 8 bytes past raw.
func TestAllocHonorsAlignmentWiderThanHeader(t *testing.T) {
	const alignment = 32
	p := Alloc(48, alignment)
	require.NotNil(t, p)
	assert.Zero(t, uintptr(p)%alignment, "pointer not aligned to %d", alignment)

	b := unsafe.Slice((*byte)(p), 48)
	for i := range b {
		b[i] = byte(i)
	}
	assert.NotPanics(t, func() { Free(p, alignment) })
}
