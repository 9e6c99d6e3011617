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

// Package syspage acquires and releases the raw byte spans that a Block
// wraps. It is the literal "obtained from the system" half of the spec: on
// unix-like platforms a span is a real, page-aligned anonymous mmap, backed
// by golang.org/x/sys/unix; everywhere else (and whenever mmap returns an
// error) it falls back to an uninitialized heap allocation, mirroring the
// original allocator's use of malloc rather than calloc for fresh pages.
// Requests of zero or fewer bytes are rejected with an error.
package syspage

// Span is a raw byte span obtained from the system. Release must be called
// exactly once, with the same Span that Acquire returned (not a reslice of
// it), to return the backing memory.
type Span struct {
	Bytes  []byte
	mapped bool
}

// Acquire reserves n bytes from the system. n must be > 0.
func Acquire(n int) (Span, error) {
	if n <= 0 {
		return Span{}, errInvalidSize
	}
	return acquire(n)
}

// Release returns a Span's backing memory to the system.
func Release(s Span) error {
	if len(s.Bytes) == 0 {
		return nil
	}
	return release(s)
}
