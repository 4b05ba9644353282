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
	"encoding/binary"
	"fmt"
)

// Reset values of the K66 register block.
const (
	// resetCESR: revision 1, 5 slave ports, 12 descriptors, valid.
	resetCESR = 0x00815101

	// resetRGD0Access gives every master full access in both modes.
	resetRGD0Access = 0x0061f7df
)

// RegisterWrite is one store made through MemRegisters.
type RegisterWrite struct {
	Offset uint32
	Value  uint32
}

// String implements fmt.Stringer.String.
func (w RegisterWrite) String() string {
	return fmt.Sprintf("%#05x <- %#08x", w.Offset, w.Value)
}

// MemRegisters is an in-memory register block with the write semantics of
// the K66 that matter to the driver:
//
//   - In CESR only the valid bit is writable; the SPnERR bits are cleared by
//     writing one, and the configuration fields are read-only.
//   - The reserved descriptor's words are read-only; its access control is
//     changed through the alternate access control register, which aliases
//     word 2.
//   - Every other alternate access control register aliases word 2 of its
//     descriptor.
//
// Every Write32 is recorded, including writes the hardware ignores.
type MemRegisters struct {
	words  [BlockSize / 4]uint32
	writes []RegisterWrite
}

// NewMemRegisters returns a register block in its reset state.
func NewMemRegisters() *MemRegisters {
	r := &MemRegisters{}
	r.Reset()
	return r
}

// Reset restores the reset state and forgets recorded writes.
func (r *MemRegisters) Reset() {
	r.words = [BlockSize / 4]uint32{}
	r.writes = nil
	r.words[cesrOffset/4] = resetCESR
	r.words[regionWordOffset(0, WordEnd)/4] = 0xffffffff
	r.words[regionWordOffset(0, WordAccess)/4] = resetRGD0Access
	r.words[regionWordOffset(0, WordValid)/4] = validBit
}

func checkOffset(off uint32) {
	if off%4 != 0 || off >= BlockSize {
		panic(fmt.Sprintf("register offset %#x out of range or unaligned", off))
	}
}

// canonical maps alternate access control offsets onto the word 2 they
// alias.
func canonical(off uint32) uint32 {
	if off >= rgdaacOffset {
		slot := int(off-rgdaacOffset) / 4
		return regionWordOffset(slot, WordAccess)
	}
	return off
}

// Read32 implements Registers.Read32.
func (r *MemRegisters) Read32(off uint32) uint32 {
	checkOffset(off)
	return r.words[canonical(off)/4]
}

// Write32 implements Registers.Write32.
func (r *MemRegisters) Write32(off uint32, v uint32) {
	checkOffset(off)
	r.writes = append(r.writes, RegisterWrite{Offset: off, Value: v})
	switch {
	case off == cesrOffset:
		cur := r.words[0]
		cur &^= v & cesrErrMask
		cur = (cur &^ cesrVLD) | (v & cesrVLD)
		r.words[0] = cur
	case off >= rgdOffset && off < rgdOffset+16:
		// Reserved descriptor words are read-only.
	case off >= rgdOffset:
		r.words[canonical(off)/4] = v
	default:
		// Error capture registers are read-only.
	}
}

// Writes returns the writes recorded since the last Reset or ClearWrites.
func (r *MemRegisters) Writes() []RegisterWrite {
	return r.writes
}

// ClearWrites forgets recorded writes.
func (r *MemRegisters) ClearWrites() {
	r.writes = nil
}

// Snapshot returns a copy of the register contents, indexed by word.
func (r *MemRegisters) Snapshot() []uint32 {
	s := make([]uint32, len(r.words))
	copy(s, r.words[:])
	return s
}

// Bytes returns the register block as little-endian bytes, laid out as in
// the address space. Alternate access control registers read back the word 2
// they alias.
func (r *MemRegisters) Bytes() []byte {
	b := make([]byte, BlockSize)
	for off := uint32(0); off < BlockSize; off += 4 {
		binary.LittleEndian.PutUint32(b[off:], r.Read32(off))
	}
	return b
}

// InjectFault records an access violation on port as the hardware would.
func (r *MemRegisters) InjectFault(port int, ear, edr uint32) {
	checkPort(port)
	r.words[0] |= portErrBit(port)
	r.words[(earOffset+uint32(port)*8)/4] = ear
	r.words[(edrOffset+uint32(port)*8)/4] = edr
}
