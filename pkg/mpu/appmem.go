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

import (
	"kinetis.dev/kmpu/pkg/bits"
)

// appMemory tracks a process's growable memory block.
//
// The block [start, end) holds app memory growing up from start and kernel
// grant memory growing down from end. The app memory region covers
// [start, roundup(appBreak)) and must never reach kernelBreak.
type appMemory struct {
	// slot holds the app memory region. ReservedSlot means there is none,
	// since the allocator never uses it.
	slot Slot

	start       uint32
	end         uint64
	minSize     uint32
	appBreak    uint32
	kernelBreak uint32
}

// AppMemory describes the app memory block of a Config.
type AppMemory struct {
	// Start is the first address of the block and of the app region.
	Start uint32

	// End is the address one past the block.
	End uint64

	// MinSize is the smallest the app region may shrink to.
	MinSize uint32

	// AppBreak is the end of memory the process asked for.
	AppBreak uint32

	// KernelBreak is the lowest address of the kernel-reserved tail.
	KernelBreak uint32

	// Region is the range currently enforced for the process.
	Region AddrRange
}

// AppMemory returns the app memory block. ok is false if none has been
// allocated.
func (c *Config) AppMemory() (AppMemory, bool) {
	if c.app.slot == ReservedSlot {
		return AppMemory{}, false
	}
	r, _ := c.regions[c.app.slot].Range()
	return AppMemory{
		Start:       c.app.start,
		End:         c.app.end,
		MinSize:     c.app.minSize,
		AppBreak:    c.app.appBreak,
		KernelBreak: c.app.kernelBreak,
		Region:      r,
	}, true
}

// ReleaseAppMemory frees the app memory region and forgets the block.
func (c *Config) ReleaseAppMemory() bool {
	if c.app.slot == ReservedSlot {
		return false
	}
	c.regions[c.app.slot] = RegionDescriptor{}
	c.app = appMemory{}
	return true
}

func roundUp(v uint64) uint64 {
	return (v + granuleMask) &^ granuleMask
}

// AllocateAppMemoryRegion carves a process memory block out of
// [unallocatedStart, unallocatedStart+unallocatedSize) and grants perm over
// its app part.
//
// The block starts at the first granule boundary at or after
// unallocatedStart. The app region is max(initialAppSize, minMemorySize)
// rounded up to whole granules (at least one), and the kernel tail is
// initialKernelSize rounded up to whole granules. The app break is recorded
// at the end of the app region, so the initial breaks always pass
// UpdateAppMemoryRegion. It returns the block start and size. On failure cfg is unchanged and the error wraps
// ErrAllocationFailed.
func (m *MPU) AllocateAppMemoryRegion(unallocatedStart, unallocatedSize, minMemorySize, initialAppSize, initialKernelSize uint32, perm Permission, cfg *Config) (uint32, uint32, error) {
	if cfg.app.slot != ReservedSlot {
		return 0, 0, allocationFailed("app memory region already allocated in slot %d", cfg.app.slot)
	}
	if !perm.Valid() {
		return 0, 0, allocationFailed("invalid permission %v", perm)
	}
	start, ok := bits.AlignUp32(unallocatedStart, Granule)
	if !ok {
		return 0, 0, allocationFailed("start %#x cannot be aligned", unallocatedStart)
	}
	appSize := roundUp(uint64(max(initialAppSize, minMemorySize, Granule)))
	kernelSize := roundUp(uint64(initialKernelSize))
	end := uint64(start) + appSize + kernelSize
	if limit := uint64(unallocatedStart) + uint64(unallocatedSize); end > limit {
		return 0, 0, allocationFailed("block of %#x bytes at %#x does not fit before %#x", end-uint64(start), start, limit)
	}
	if end >= maxAddr {
		return 0, 0, allocationFailed("block at %#x wraps the address space", start)
	}
	if s, ok := cfg.intersects(start, end-uint64(start), noSlot); ok {
		return 0, 0, allocationFailed("block [%#x, %#x) overlaps slot %d", start, end, s)
	}
	slot, ok := cfg.firstFree()
	if !ok {
		return 0, 0, allocationFailed("no free region slot")
	}
	if int(slot) >= m.slots {
		return 0, 0, allocationFailed("slot %d beyond the %d implemented by hardware", slot, m.slots)
	}

	d, err := NewRegionDescriptor(start, start+uint32(appSize)-Granule, perm, false)
	if err != nil {
		return 0, 0, allocationFailed("%v", err)
	}
	cfg.set(slot, d)
	cfg.app = appMemory{
		slot:        slot,
		start:       start,
		end:         end,
		minSize:     minMemorySize,
		appBreak:    start + uint32(appSize),
		kernelBreak: uint32(end - kernelSize),
	}
	return start, uint32(end - uint64(start)), nil
}

// UpdateAppMemoryRegion moves the app memory region to end at appBreak,
// rounded up to a granule, and records kernelBreak as the start of the
// kernel-reserved tail.
//
// Both breaks must lie within the block. The rounded app break may not pass
// kernelBreak, the region may not shrink below the block's minimum size or
// to nothing, and it may not overlap another occupied slot. On failure cfg
// is unchanged and the error wraps ErrGrowthRejected.
func (m *MPU) UpdateAppMemoryRegion(appBreak, kernelBreak uint32, perm Permission, cfg *Config) error {
	app := &cfg.app
	if app.slot == ReservedSlot {
		return growthRejected("no app memory region")
	}
	if !perm.Valid() {
		return growthRejected("invalid permission %v", perm)
	}
	if appBreak < app.start || uint64(appBreak) > app.end {
		return growthRejected("app break %#x outside [%#x, %#x]", appBreak, app.start, app.end)
	}
	if kernelBreak < app.start || uint64(kernelBreak) > app.end {
		return growthRejected("kernel break %#x outside [%#x, %#x]", kernelBreak, app.start, app.end)
	}
	newEnd := roundUp(uint64(appBreak))
	if newEnd > uint64(kernelBreak) {
		return growthRejected("app break %#x rounds to %#x, past kernel break %#x", appBreak, newEnd, kernelBreak)
	}
	size := newEnd - uint64(app.start)
	if size == 0 {
		return growthRejected("app memory region would be empty")
	}
	if size < uint64(app.minSize) {
		return growthRejected("app memory region of %#x bytes below minimum %#x", size, app.minSize)
	}
	if s, ok := cfg.intersects(app.start, size, app.slot); ok {
		return growthRejected("app memory region [%#x, %#x) overlaps slot %d", app.start, newEnd, s)
	}

	d, err := NewRegionDescriptor(app.start, uint32(newEnd)-Granule, perm, false)
	if err != nil {
		return growthRejected("%v", err)
	}
	cfg.regions[app.slot] = d
	app.appBreak = appBreak
	app.kernelBreak = kernelBreak
	return nil
}
