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
	"fmt"
	"strings"
)

// NumSlots is the number of hardware region descriptor slots.
const NumSlots = 12

// NumUsableSlots is the number of slots software may allocate. Slot 0 is
// reserved for the debugger/boot region.
const NumUsableSlots = NumSlots - 1

// Slot names a region descriptor slot.
type Slot int

// ReservedSlot is never assigned by the allocator.
const ReservedSlot Slot = 0

// noSlot marks the absence of a slot.
const noSlot Slot = -1

// Valid returns true if s names a hardware slot.
func (s Slot) Valid() bool {
	return s >= 0 && s < NumSlots
}

// Allocatable returns true if the allocator may place a region in s.
func (s Slot) Allocatable() bool {
	return s.Valid() && s != ReservedSlot
}

// Config is the complete protection state of one process: one descriptor
// per hardware slot. The zero value has every slot unused.
//
// A Config is owned by a single process and is not safe for concurrent use.
type Config struct {
	regions [NumSlots]RegionDescriptor

	// app describes the growable app memory region, if any.
	app appMemory
}

// Slot returns the descriptor in s. It panics if s is not a hardware slot.
func (c *Config) Slot(s Slot) RegionDescriptor {
	if !s.Valid() {
		panic(fmt.Sprintf("slot %d out of range [0, %d)", s, NumSlots))
	}
	return c.regions[s]
}

// SetReserved records the region held by the reserved slot so that
// allocations are checked against it. Pass the zero RegionDescriptor to
// forget it.
func (c *Config) SetReserved(d RegionDescriptor) {
	c.regions[ReservedSlot] = d
}

// set stores d in an allocatable slot.
func (c *Config) set(s Slot, d RegionDescriptor) {
	if !s.Allocatable() {
		panic(fmt.Sprintf("allocator used slot %d", s))
	}
	c.regions[s] = d
}

// firstFree returns the lowest allocatable slot that is unused.
func (c *Config) firstFree() (Slot, bool) {
	for s := ReservedSlot + 1; s < NumSlots; s++ {
		if !c.regions[s].used {
			return s, true
		}
	}
	return noSlot, false
}

// intersects returns the first occupied slot, other than skip, whose range
// shares an address with [start, start+size).
func (c *Config) intersects(start uint32, size uint64, skip Slot) (Slot, bool) {
	for s := range c.regions {
		if Slot(s) == skip {
			continue
		}
		if c.regions[s].intersects(start, size) {
			return Slot(s), true
		}
	}
	return noSlot, false
}

// Occupied returns the number of allocatable slots in use.
func (c *Config) Occupied() int {
	n := 0
	for s := ReservedSlot + 1; s < NumSlots; s++ {
		if c.regions[s].used {
			n++
		}
	}
	return n
}

// Regions returns the regions granted by the allocator in slot order. The
// reserved slot is not included.
func (c *Config) Regions() []Region {
	var rs []Region
	for s := ReservedSlot + 1; s < NumSlots; s++ {
		if r, ok := c.regions[s].Range(); ok {
			rs = append(rs, Region{Start: r.Start, Size: uint32(r.Size())})
		}
	}
	return rs
}

// Release frees the slot holding a region that starts at r.Start. The app
// memory region is released with ReleaseAppMemory instead. It returns false
// if no such region exists.
func (c *Config) Release(r Region) bool {
	for s := ReservedSlot + 1; s < NumSlots; s++ {
		if s == c.app.slot {
			continue
		}
		if rng, ok := c.regions[s].Range(); ok && rng.Start == r.Start {
			c.regions[s] = RegionDescriptor{}
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.String.
func (c *Config) String() string {
	var b strings.Builder
	for s, d := range c.regions {
		if !d.used {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%d: %v", s, d)
	}
	return "{" + b.String() + "}"
}
