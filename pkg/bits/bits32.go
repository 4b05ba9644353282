// Copyright 2026 The kmpu Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bits includes non-atomic bit and field operations on 32-bit
// register words.
package bits

// IsOn32 returns true if *all* bits set in 'bits' are set in 'mask'.
func IsOn32(mask, bits uint32) bool {
	return mask&bits == bits
}

// IsAnyOn32 returns true if *any* bit set in 'bits' is set in 'mask'.
func IsAnyOn32(mask, bits uint32) bool {
	return mask&bits != 0
}

// Mask32 returns a uint32 with all of the given bits set.
func Mask32(is ...int) uint32 {
	ret := uint32(0)
	for _, i := range is {
		ret |= MaskOf32(i)
	}
	return ret
}

// MaskOf32 is like Mask32, but sets only a single bit (more efficiently).
func MaskOf32(i int) uint32 {
	return uint32(1) << uint32(i)
}

// FieldMask32 returns the in-place mask of a field of the given width
// starting at bit offset.
func FieldMask32(offset, width int) uint32 {
	if width >= 32 {
		return ^uint32(0) << uint32(offset)
	}
	return ((uint32(1) << uint32(width)) - 1) << uint32(offset)
}

// Field32 extracts the field of the given width at offset from v.
func Field32(v uint32, offset, width int) uint32 {
	return (v & FieldMask32(offset, width)) >> uint32(offset)
}

// SetField32 returns v with the field at offset replaced by val. Bits of val
// that do not fit in the field are dropped.
func SetField32(v uint32, offset, width int, val uint32) uint32 {
	m := FieldMask32(offset, width)
	return (v &^ m) | ((val << uint32(offset)) & m)
}

// AlignDown32 rounds v down to a multiple of align, which must be a power of
// two.
func AlignDown32(v, align uint32) uint32 {
	return v &^ (align - 1)
}

// AlignUp32 rounds v up to a multiple of align, which must be a power of
// two. The second return value is false if the result would overflow.
func AlignUp32(v, align uint32) (uint32, bool) {
	r := AlignDown32(v+align-1, align)
	return r, r >= v
}

// IsAligned32 returns true if v is a multiple of align, which must be a
// power of two.
func IsAligned32(v, align uint32) bool {
	return v&(align-1) == 0
}
