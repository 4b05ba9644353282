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

// Registers is a 32-bit register file addressed by byte offset from the base
// of the MPU block.
//
// Implementations must perform each access at the natural 32-bit width and
// must not reorder accesses relative to each other.
type Registers interface {
	// Read32 returns the word at the given byte offset.
	Read32(off uint32) uint32

	// Write32 stores v at the given byte offset.
	Write32(off uint32, v uint32)
}

// BaseAddress is the physical address of the MPU register block on the K66.
const BaseAddress = 0x4000D000

// Layout of the register block, as byte offsets from BaseAddress.
const (
	cesrOffset   = 0x000
	earOffset    = 0x010 // + 8*port
	edrOffset    = 0x014 // + 8*port
	rgdOffset    = 0x400 // + 16*slot + 4*word
	rgdaacOffset = 0x800 // + 4*slot

	// BlockSize is the size in bytes of the register block.
	BlockSize = rgdaacOffset + 4*NumSlots
)

// NumErrorPorts is the number of slave ports with error capture registers.
const NumErrorPorts = 5

// Region descriptor word indices.
const (
	WordStart  = 0
	WordEnd    = 1
	WordAccess = 2
	WordValid  = 3

	WordsPerSlot = 4
)

// CESR fields.
const (
	cesrVLD        = 1 << 0
	cesrNRGDOffset = 8
	cesrNSPOffset  = 12
	cesrHRLOffset  = 16
	cesrFieldWidth = 4

	// cesrErrMask covers the write-one-to-clear SPnERR bits, SP0ERR at bit 31
	// down to SP4ERR at bit 27.
	cesrErrMask = 0xf8000000
)

// Region descriptor word fields.
const (
	addrFieldOffset = 5
	addrFieldWidth  = 27
	validBit        = 1 << 0
)

// Block is a typed view over the MPU register block. It performs no
// validation beyond slot and port bounds; an out-of-range index is a kernel
// bug and panics.
type Block struct {
	regs Registers
}

// NewBlock returns a view over regs.
func NewBlock(regs Registers) Block {
	return Block{regs: regs}
}

// Status returns the control/error status register (CESR).
func (b Block) Status() uint32 {
	return b.regs.Read32(cesrOffset)
}

// SetStatus writes the control/error status register.
func (b Block) SetStatus(v uint32) {
	b.regs.Write32(cesrOffset, v)
}

func checkSlot(slot int) {
	if slot < 0 || slot >= NumSlots {
		panic(fmt.Sprintf("region descriptor slot %d out of range [0, %d)", slot, NumSlots))
	}
}

func regionWordOffset(slot, word int) uint32 {
	checkSlot(slot)
	if word < 0 || word >= WordsPerSlot {
		panic(fmt.Sprintf("region descriptor word %d out of range [0, %d)", word, WordsPerSlot))
	}
	return rgdOffset + uint32(slot)*16 + uint32(word)*4
}

// RegionWord returns word of the region descriptor in slot.
func (b Block) RegionWord(slot, word int) uint32 {
	return b.regs.Read32(regionWordOffset(slot, word))
}

// SetRegionWord writes word of the region descriptor in slot.
func (b Block) SetRegionWord(slot, word int, v uint32) {
	b.regs.Write32(regionWordOffset(slot, word), v)
}

// Region returns all four words of the region descriptor in slot.
func (b Block) Region(slot int) [WordsPerSlot]uint32 {
	var w [WordsPerSlot]uint32
	for i := range w {
		w[i] = b.RegionWord(slot, i)
	}
	return w
}

// AltAccess returns the alternate access control register for slot.
func (b Block) AltAccess(slot int) uint32 {
	checkSlot(slot)
	return b.regs.Read32(rgdaacOffset + uint32(slot)*4)
}

// SetAltAccess writes the alternate access control register for slot.
func (b Block) SetAltAccess(slot int, v uint32) {
	checkSlot(slot)
	b.regs.Write32(rgdaacOffset+uint32(slot)*4, v)
}

func checkPort(port int) {
	if port < 0 || port >= NumErrorPorts {
		panic(fmt.Sprintf("error port %d out of range [0, %d)", port, NumErrorPorts))
	}
}

// ErrorAddress returns the captured error address for a slave port.
func (b Block) ErrorAddress(port int) uint32 {
	checkPort(port)
	return b.regs.Read32(earOffset + uint32(port)*8)
}

// ErrorDetail returns the captured error detail for a slave port.
func (b Block) ErrorDetail(port int) uint32 {
	checkPort(port)
	return b.regs.Read32(edrOffset + uint32(port)*8)
}

// addrField packs an address into the bits[31:5] field of a start or end
// word.
func addrField(addr uint32) uint32 {
	return bits.SetField32(0, addrFieldOffset, addrFieldWidth, addr>>addrFieldOffset)
}
