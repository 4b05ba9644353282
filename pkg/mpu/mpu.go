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

// Package mpu drives the K66 memory protection unit.
//
// The MPU enforces up to 12 region descriptors, each an aligned address range
// with per-bus-master user and supervisor permissions. A Config holds the
// regions of one process; the MPU type grants regions into a Config and
// writes a Config to the hardware before the process runs.
//
// Register access goes through the Registers interface, implemented by
// MemRegisters for tests and tools and by MappedRegisters for a mapped
// register block.
package mpu

import (
	"fmt"

	"kinetis.dev/kmpu/pkg/bits"
	"kinetis.dev/kmpu/pkg/log"
)

// Opts are MPU options.
type Opts struct {
	// BusMaster is the master whose access control fields are managed.
	BusMaster BusMaster
}

// MPU is a handle to the MPU register block. It is created once at boot and
// owned by the kernel's memory management from then on.
//
// MPU is not safe for concurrent use.
type MPU struct {
	regs   Block
	master BusMaster

	// slots is the number of descriptors the hardware implements, capped at
	// NumSlots.
	slots int
}

// New returns an MPU driving regs.
func New(regs Registers, opts Opts) (*MPU, error) {
	if !opts.BusMaster.Valid() {
		return nil, fmt.Errorf("bus master %d has no access control fields", opts.BusMaster)
	}
	m := &MPU{
		regs:   NewBlock(regs),
		master: opts.BusMaster,
	}
	info := m.Info()
	m.slots = min(info.Descriptors, NumSlots)
	if m.slots == 0 {
		m.slots = NumSlots
	}
	if info.Descriptors != NumSlots {
		log.Warningf("MPU reports %d region descriptors, expected %d", info.Descriptors, NumSlots)
	}
	log.Debugf("MPU revision %d, %d slave ports, %d descriptors, bus master %d", info.Revision, info.SlavePorts, info.Descriptors, m.master)
	return m, nil
}

// Block returns the register view.
func (m *MPU) Block() Block {
	return m.regs
}

// BusMaster returns the managed bus master.
func (m *MPU) BusMaster() BusMaster {
	return m.master
}

// setValid updates the global valid bit without acknowledging pending
// errors: SPnERR bits are write-one-to-clear, so they are masked off.
func (m *MPU) setValid(on bool) {
	cesr := m.regs.Status() &^ cesrErrMask
	if on {
		cesr |= cesrVLD
	} else {
		cesr &^= cesrVLD
	}
	m.regs.SetStatus(cesr)
}

// Enable turns on protection.
//
// At reset the reserved slot grants every master full access to the whole
// address space in both modes. Enable keeps supervisor access for the
// managed master and removes its user access, so processes never inherit
// the boot-time grant, then sets the global valid bit.
func (m *MPU) Enable() {
	aac := m.regs.AltAccess(int(ReservedSlot))
	aac = encodeAccess(aac, m.master, 0, SupervisorReadWriteExecute)
	m.regs.SetAltAccess(int(ReservedSlot), aac)
	m.setValid(true)
	log.Debugf("MPU enabled")
}

// Disable turns off protection. It must only be called when no process can
// run.
func (m *MPU) Disable() {
	m.setValid(false)
	log.Debugf("MPU disabled")
}

// Enabled returns true if the global valid bit is set.
func (m *MPU) Enabled() bool {
	return bits.IsOn32(m.regs.Status(), cesrVLD)
}

// Configure writes every implemented slot of cfg to the hardware, including
// the reserved slot's descriptor words. Occupied slots are written valid and
// empty slots invalid.
//
// Each slot is first invalidated, then its start, end and access control
// words are written, and its valid bit is set last, so a partially written
// descriptor is never enforced. Configure is idempotent.
func (m *MPU) Configure(cfg *Config) {
	for s := 0; s < m.slots; s++ {
		w := cfg.regions[s].Words(m.master)
		m.regs.SetRegionWord(s, WordValid, 0)
		m.regs.SetRegionWord(s, WordStart, w[WordStart])
		m.regs.SetRegionWord(s, WordEnd, w[WordEnd])
		m.regs.SetRegionWord(s, WordAccess, w[WordAccess])
		if w[WordValid] != 0 {
			m.regs.SetRegionWord(s, WordValid, w[WordValid])
		}
	}
	if log.IsLogging(log.Debug) {
		log.Debugf("MPU configured: %v", cfg)
	}
}

// Slots returns the hardware descriptors as seen by the managed master.
// Descriptors whose access control the kernel never writes are returned as
// errors in the second slice, indexed by slot.
func (m *MPU) Slots() ([]RegionDescriptor, []error) {
	ds := make([]RegionDescriptor, m.slots)
	errs := make([]error, m.slots)
	for s := range ds {
		ds[s], errs[s] = DecodeRegionDescriptor(m.regs.Region(s), m.master)
	}
	return ds, errs
}
