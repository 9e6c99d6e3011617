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

//go:build linux || darwin || freebsd

package syspage

import (
	"golang.org/x/sys/unix"
)

func acquire(n int) (Span, error) {
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		// the system refused the mapping (e.g. ENOMEM, or n not a multiple
		// of the platform page size on some kernels) - fall back rather
		// than propagate a platform-specific mmap error to the caller.
		return acquireFallback(n)
	}
	return Span{Bytes: b, mapped: true}, nil
}

func release(s Span) error {
	if !s.mapped {
		return nil
	}
	return unix.Munmap(s.Bytes)
}
