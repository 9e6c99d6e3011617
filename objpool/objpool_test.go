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

package objpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/rcmalloc/pool"
	"github.com/cloudwego/rcmalloc/safe"
)

type widget struct {
	ID    int64
	Name  [8]byte
	Ready bool
}

func newTestRegistry(t *testing.T) Registry {
	t.Helper()
	return safe.NewWrapper(pool.New(4096, "objpool-test"))
}

func TestNewZeroesTheValue(t *testing.T) {
	r := newTestRegistry(t)
	w := New[widget](r)
	require.NotNil(t, w)
	assert.Zero(t, w.ID)
	assert.False(t, w.Ready)
	Free(r, w, nil)
}

func TestNewNAllocatesContiguousSlice(t *testing.T) {
	r := newTestRegistry(t)
	ws := NewN[widget](r, 4)
	require.Len(t, ws, 4)
	for i := range ws {
		ws[i].ID = int64(i)
	}
	FreeN(r, ws, nil)
}

func TestFreeInvokesDestructor(t *testing.T) {
	r := newTestRegistry(t)
	w := New[widget](r)
	require.NotNil(t, w)

	var destructed bool
	Free(r, w, func(v *widget) { destructed = true; v.Ready = false })
	assert.True(t, destructed)
}

func TestFreeNInvokesDestructorPerElement(t *testing.T) {
	r := newTestRegistry(t)
	ws := NewN[widget](r, 3)
	require.Len(t, ws, 3)

	count := 0
	FreeN(r, ws, func(v *widget) { count++ })
	assert.Equal(t, 3, count)
}
