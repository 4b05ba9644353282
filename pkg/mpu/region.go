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

	"kinetis.dev/kmpu/pkg/bits"
)

// Granule is the MPU address granularity in bytes. Region starts are
// multiples of Granule and region ends cover whole granules.
const Granule = 32

// granuleMask selects the offset within a granule.
const granuleMask = Granule - 1

// BusMaster selects which per-master access control fields in word 2 of a
// region descriptor are managed. Masters 0 through 3 have separate
// supervisor and user fields; master 0 is the core.
type BusMaster uint8

// NumBusMasters is the number of bus masters with supervisor/user fields.
const NumBusMasters = 4

// CoreMaster is the bus master used by the CPU core.
const CoreMaster BusMaster = 0

// Valid returns true if m has supervisor/user fields.
func (m BusMaster) Valid() bool {
	return m < NumBusMasters
}

func (m BusMaster) userOffset() int {
	return 6 * int(m)
}

func (m BusMaster) supervisorOffset() int {
	return 6*int(m) + 3
}

// EncodeAccessControl returns a word 2 value granting perm to user mode and
// the matching supervisor mode to master m. Fields of other masters are
// zero.
func EncodeAccessControl(m BusMaster, perm Permission, supervisorAsUser bool) uint32 {
	return encodeAccess(0, m, perm.UserCode(), supervisorMode(supervisorAsUser))
}

func encodeAccess(word uint32, m BusMaster, user uint32, sup SupervisorMode) uint32 {
	word = bits.SetField32(word, m.userOffset(), 3, user)
	return bits.SetField32(word, m.supervisorOffset(), 2, uint32(sup))
}

// DecodeAccessControl extracts master m's fields from a word 2 value. ok is
// false if the user code is not a Permission.
func DecodeAccessControl(word uint32, m BusMaster) (perm Permission, sup SupervisorMode, ok bool) {
	sup = SupervisorMode(bits.Field32(word, m.supervisorOffset(), 2))
	perm, ok = PermissionFromCode(bits.Field32(word, m.userOffset(), 3))
	return perm, sup, ok
}

// Region identifies memory granted to a process. It says where memory was
// granted, not which hardware slot holds it.
type Region struct {
	// Start is the first address of the region.
	Start uint32

	// Size is the size of the region in bytes.
	Size uint32
}

// End returns the address one past the region.
func (r Region) End() uint64 {
	return uint64(r.Start) + uint64(r.Size)
}

// String implements fmt.Stringer.String.
func (r Region) String() string {
	return fmt.Sprintf("[%#08x, %#08x)", r.Start, r.End())
}

// AddrRange is the address range of an occupied region descriptor.
//
// Both fields are multiples of Granule. End is the start of the last granule
// covered by the region, the value held in the descriptor's end word; the
// region therefore covers [Start, End+Granule).
type AddrRange struct {
	Start uint32
	End   uint32
}

// Last returns the inclusive last address covered by the range.
func (r AddrRange) Last() uint32 {
	return r.End | granuleMask
}

// Size returns the number of bytes covered by the range.
func (r AddrRange) Size() uint64 {
	return uint64(r.End) + Granule - uint64(r.Start)
}

// Contains returns true if addr is covered by the range.
func (r AddrRange) Contains(addr uint32) bool {
	return addr >= r.Start && addr <= r.Last()
}

// Intersects returns true if [start, start+size) and the range share at
// least one address. A zero size never intersects.
func (r AddrRange) Intersects(start uint32, size uint64) bool {
	if size == 0 {
		return false
	}
	return uint64(start) <= uint64(r.Last()) && uint64(start)+size > uint64(r.Start)
}

// String implements fmt.Stringer.String.
func (r AddrRange) String() string {
	return fmt.Sprintf("[%#08x, %#08x]", r.Start, r.Last())
}

// RegionDescriptor is the software model of one protection region. The zero
// value is an unused slot.
type RegionDescriptor struct {
	rng              AddrRange
	used             bool
	perm             Permission
	supervisorAsUser bool
}

// NewRegionDescriptor returns an occupied descriptor. start must be
// granule aligned and end must be the granule aligned start of the last
// granule, not below start.
func NewRegionDescriptor(start, end uint32, perm Permission, supervisorAsUser bool) (RegionDescriptor, error) {
	if start&granuleMask != 0 || end&granuleMask != 0 {
		return RegionDescriptor{}, fmt.Errorf("range [%#x, %#x] is not %d byte aligned", start, end, Granule)
	}
	if end < start {
		return RegionDescriptor{}, fmt.Errorf("range end %#x below start %#x", end, start)
	}
	if !perm.Valid() {
		return RegionDescriptor{}, fmt.Errorf("invalid permission %v", perm)
	}
	return RegionDescriptor{
		rng:              AddrRange{Start: start, End: end},
		used:             true,
		perm:             perm,
		supervisorAsUser: supervisorAsUser,
	}, nil
}

// Range returns the descriptor's address range. ok is false for an unused
// slot.
func (d RegionDescriptor) Range() (r AddrRange, ok bool) {
	return d.rng, d.used
}

// InUse returns true if the descriptor describes a region.
func (d RegionDescriptor) InUse() bool {
	return d.used
}

// Permission returns the user mode permission.
func (d RegionDescriptor) Permission() Permission {
	return d.perm
}

// SupervisorAsUser returns true if privileged code is restricted to the
// user mode permission.
func (d RegionDescriptor) SupervisorAsUser() bool {
	return d.supervisorAsUser
}

// intersects is like AddrRange.Intersects but false for unused slots.
func (d RegionDescriptor) intersects(start uint32, size uint64) bool {
	return d.used && d.rng.Intersects(start, size)
}

// Words returns the four hardware words for the descriptor when managed by
// master m. An unused descriptor encodes as all zeroes, which leaves the
// valid bit clear.
func (d RegionDescriptor) Words(m BusMaster) [WordsPerSlot]uint32 {
	if !d.used {
		return [WordsPerSlot]uint32{}
	}
	return [WordsPerSlot]uint32{
		WordStart:  addrField(d.rng.Start),
		WordEnd:    addrField(d.rng.End),
		WordAccess: EncodeAccessControl(m, d.perm, d.supervisorAsUser),
		WordValid:  validBit,
	}
}

// DecodeRegionDescriptor turns hardware words back into a descriptor, as
// seen by master m. An invalid descriptor decodes as unused.
func DecodeRegionDescriptor(w [WordsPerSlot]uint32, m BusMaster) (RegionDescriptor, error) {
	if w[WordValid]&validBit == 0 {
		return RegionDescriptor{}, nil
	}
	perm, sup, ok := DecodeAccessControl(w[WordAccess], m)
	if !ok {
		return RegionDescriptor{}, fmt.Errorf("user access %s for master %d is not a supported permission", codeString(bits.Field32(w[WordAccess], m.userOffset(), 3)), m)
	}
	if sup != SupervisorReadWriteExecute && sup != SupervisorSameAsUser {
		return RegionDescriptor{}, fmt.Errorf("supervisor access %v for master %d is not managed by the kernel", sup, m)
	}
	start := w[WordStart] &^ granuleMask
	end := w[WordEnd] &^ granuleMask
	return NewRegionDescriptor(start, end, perm, sup == SupervisorSameAsUser)
}

// String implements fmt.Stringer.String.
func (d RegionDescriptor) String() string {
	if !d.used {
		return "unused"
	}
	sup := "rwx"
	if d.supervisorAsUser {
		sup = "user"
	}
	return fmt.Sprintf("%v user=%s super=%s", d.rng, d.perm.ShortString(), sup)
}
