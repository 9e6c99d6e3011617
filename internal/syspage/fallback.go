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

package syspage

import "github.com/bytedance/gopkg/lang/dirtmake"

// acquireFallback satisfies a page request with an uninitialized heap
// allocation instead of a real mapping. dirtmake.Bytes skips the zero-fill
// make() would otherwise perform, matching the original allocator's use of
// malloc rather than calloc for fresh pages: this allocator treats every
// byte of a freshly carved block as undefined until written, never as
// implicitly zeroed.
func acquireFallback(n int) (Span, error) {
	return Span{Bytes: dirtmake.Bytes(n, n)}, nil
}
