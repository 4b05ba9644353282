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

// HardwareInfo is the MPU configuration reported in CESR.
type HardwareInfo struct {
	// Revision is the hardware revision level.
	Revision int

	// SlavePorts is the number of slave ports.
	SlavePorts int

	// Descriptors is the number of region descriptors, or 0 if the field
	// holds a reserved encoding.
	Descriptors int
}

// Info decodes the hardware configuration fields of CESR.
func (m *MPU) Info() HardwareInfo {
	cesr := m.regs.Status()
	info := HardwareInfo{
		Revision:   int(bits.Field32(cesr, cesrHRLOffset, cesrFieldWidth)),
		SlavePorts: int(bits.Field32(cesr, cesrNSPOffset, cesrFieldWidth)),
	}
	switch bits.Field32(cesr, cesrNRGDOffset, cesrFieldWidth) {
	case 0:
		info.Descriptors = 8
	case 1:
		info.Descriptors = 12
	case 2:
		info.Descriptors = 16
	}
	return info
}

// FaultAttr describes the access that caused a fault.
type FaultAttr uint8

// Fault attributes, as encoded in EDR.EATTR.
const (
	UserInstruction       FaultAttr = 0
	UserData              FaultAttr = 1
	SupervisorInstruction FaultAttr = 2
	SupervisorData        FaultAttr = 3
)

// String implements fmt.Stringer.String.
func (a FaultAttr) String() string {
	switch a {
	case UserInstruction:
		return "user instruction"
	case UserData:
		return "user data"
	case SupervisorInstruction:
		return "supervisor instruction"
	case SupervisorData:
		return "supervisor data"
	default:
		return fmt.Sprintf("FaultAttr(%d)", uint8(a))
	}
}

// Fault is an access violation captured by a slave port.
type Fault struct {
	// Port is the slave port that captured the fault.
	Port int

	// Address is the faulting address.
	Address uint32

	// AccessControl has one bit set per region descriptor that matched the
	// address but denied the access. Zero means no descriptor matched.
	AccessControl uint16

	// PID is the process identifier of the access.
	PID uint8

	// Master is the bus master that made the access.
	Master uint8

	// Attr is the kind of access.
	Attr FaultAttr

	// Write is true for a write, false for a read.
	Write bool
}

// EDR fields.
const (
	edrERW         = 1 << 0
	edrEATTROffset = 1
	edrEMNOffset   = 4
	edrEPIDOffset  = 8
	edrEACDOffset  = 16
)

// DecodeFault builds a Fault from the captured address and detail words.
func DecodeFault(port int, ear, edr uint32) Fault {
	return Fault{
		Port:          port,
		Address:       ear,
		AccessControl: uint16(bits.Field32(edr, edrEACDOffset, 16)),
		PID:           uint8(bits.Field32(edr, edrEPIDOffset, 8)),
		Master:        uint8(bits.Field32(edr, edrEMNOffset, 4)),
		Attr:          FaultAttr(bits.Field32(edr, edrEATTROffset, 3)),
		Write:         bits.IsOn32(edr, edrERW),
	}
}

// String implements fmt.Stringer.String.
func (f Fault) String() string {
	op := "read"
	if f.Write {
		op = "write"
	}
	return fmt.Sprintf("port %d: %s %s at %#08x by master %d (pid %d, descriptors %#04x)", f.Port, f.Attr, op, f.Address, f.Master, f.PID, f.AccessControl)
}

func portErrBit(port int) uint32 {
	return bits.MaskOf32(31 - port)
}

// Faults returns the faults pending in CESR, in port order.
func (m *MPU) Faults() []Fault {
	cesr := m.regs.Status()
	var fs []Fault
	for p := 0; p < NumErrorPorts; p++ {
		if !bits.IsOn32(cesr, portErrBit(p)) {
			continue
		}
		fs = append(fs, DecodeFault(p, m.regs.ErrorAddress(p), m.regs.ErrorDetail(p)))
	}
	return fs
}

// ClearFaults acknowledges every pending fault, leaving the valid bit as is.
func (m *MPU) ClearFaults() {
	cesr := m.regs.Status()
	m.regs.SetStatus(cesr & (cesrErrMask | cesrVLD))
}
