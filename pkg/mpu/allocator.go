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

package mpu

const maxAddr = 1 << 32

// AllocateRegion grants permission over [start, start+size) in cfg and
// returns the granted region.
//
// The request is checked, in order, for overlap with any occupied slot
// (including the reserved slot if it is set), for a free allocatable slot
// (first fit), and for alignment: start and size must be multiples of
// Granule, and size must be at least minSize. On failure cfg is unchanged
// and the error wraps ErrAllocationFailed.
func (m *MPU) AllocateRegion(start, size, minSize uint32, perm Permission, cfg *Config) (Region, error) {
	if s, ok := cfg.intersects(start, uint64(size), noSlot); ok {
		return Region{}, allocationFailed("[%#x, %#x) overlaps slot %d", start, uint64(start)+uint64(size), s)
	}
	slot, ok := cfg.firstFree()
	if !ok {
		return Region{}, allocationFailed("no free region slot")
	}
	switch {
	case int(slot) >= m.slots:
		return Region{}, allocationFailed("slot %d beyond the %d implemented by hardware", slot, m.slots)
	case start&granuleMask != 0:
		return Region{}, allocationFailed("start %#x not %d byte aligned", start, Granule)
	case size&granuleMask != 0:
		return Region{}, allocationFailed("size %#x not %d byte aligned", size, Granule)
	case size == 0 || size < minSize:
		return Region{}, allocationFailed("size %#x below minimum %#x", size, max(minSize, Granule))
	case uint64(start)+uint64(size) > maxAddr:
		return Region{}, allocationFailed("[%#x, +%#x) wraps the address space", start, size)
	case !perm.Valid():
		return Region{}, allocationFailed("invalid permission %v", perm)
	}

	// The end word holds the start of the last granule; the hardware
	// extends it to the granule's last byte.
	end := (start + size - 1) &^ granuleMask
	d, err := NewRegionDescriptor(start, end, perm, false)
	if err != nil {
		return Region{}, allocationFailed("%v", err)
	}
	cfg.set(slot, d)
	return Region{Start: start, Size: size}, nil
}

// NumberTotalRegions returns the number of regions software may allocate.
func (m *MPU) NumberTotalRegions() int {
	return m.slots - 1
}
