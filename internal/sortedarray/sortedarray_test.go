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

package sortedarray

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intCmp(target int) func(int) int {
	return func(v int) int { return v - target }
}

func TestInsertKeepsOrder(t *testing.T) {
	var a Array[int]
	for _, v := range []int{5, 1, 9, 3, 7} {
		idx, found := a.Search(intCmp(v))
		require.False(t, found)
		a.InsertAt(idx, v)
	}
	assert.Equal(t, []int{1, 3, 5, 7, 9}, a.Slice())
}

func TestSearchFindsInsertionPoint(t *testing.T) {
	a := Array[int]{}
	for _, v := range []int{10, 20, 30, 40} {
		a.PushBack(v)
	}

	tests := []struct {
		target    int
		wantIdx   int
		wantFound bool
	}{
		{5, 0, false},
		{10, 0, true},
		{15, 1, false},
		{40, 3, true},
		{45, 4, false},
	}
	for _, tt := range tests {
		idx, found := a.Search(intCmp(tt.target))
		assert.Equal(t, tt.wantIdx, idx, "target=%d", tt.target)
		assert.Equal(t, tt.wantFound, found, "target=%d", tt.target)
	}
}

func TestEraseAtShiftsLeft(t *testing.T) {
	a := Array[int]{}
	for _, v := range []int{1, 2, 3, 4, 5} {
		a.PushBack(v)
	}
	got := a.EraseAt(2)
	assert.Equal(t, 3, got)
	assert.Equal(t, []int{1, 2, 4, 5}, a.Slice())
}

func TestPushPopBack(t *testing.T) {
	a := Array[int]{}
	a.PushBack(1)
	a.PushBack(2)
	assert.Equal(t, 2, a.PopBack())
	assert.Equal(t, 1, a.PopBack())
	assert.Equal(t, 0, a.Len())
}

func TestGrowthDoublesFromTen(t *testing.T) {
	a := Array[int]{}
	for i := 0; i < 11; i++ {
		a.PushBack(i)
	}
	assert.Equal(t, 11, a.Len())
	assert.GreaterOrEqual(t, cap(a.Slice()), 11)
}

func TestBubbleUpFrom(t *testing.T) {
	a := Array[int]{}
	for _, v := range []int{1, 2, 3, 4, 5} {
		a.PushBack(v)
	}
	a.Set(4, 0) // last element now smallest
	idx := a.BubbleUpFrom(4, func(x, y int) bool { return x < y })
	assert.Equal(t, 0, idx)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, a.Slice())
}

func TestBubbleDownFrom(t *testing.T) {
	a := Array[int]{}
	for _, v := range []int{1, 2, 3, 4, 5} {
		a.PushBack(v)
	}
	a.Set(0, 10) // first element now largest
	idx := a.BubbleDownFrom(0, func(x, y int) bool { return x < y })
	assert.Equal(t, 4, idx)
	assert.Equal(t, []int{2, 3, 4, 5, 10}, a.Slice())
}

func TestIndexOf(t *testing.T) {
	a := Array[int]{}
	for _, v := range []int{1, 2, 3} {
		a.PushBack(v)
	}
	idx, found := a.IndexOf(func(v int) bool { return v == 2 })
	assert.True(t, found)
	assert.Equal(t, 1, idx)

	_, found = a.IndexOf(func(v int) bool { return v == 99 })
	assert.False(t, found)
}
