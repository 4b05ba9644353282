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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewInvalidBusMaster(t *testing.T) {
	if _, err := New(NewMemRegisters(), Opts{BusMaster: NumBusMasters}); err == nil {
		t.Errorf("New with bus master %d succeeded", NumBusMasters)
	}
}

func TestInfo(t *testing.T) {
	m, _ := newTestMPU(t)
	want := HardwareInfo{Revision: 1, SlavePorts: 5, Descriptors: 12}
	if diff := cmp.Diff(want, m.Info()); diff != "" {
		t.Errorf("Info() mismatch (-want +got):\n%s", diff)
	}
}

func TestEnable(t *testing.T) {
	m, regs := newTestMPU(t)
	m.Disable()
	if m.Enabled() {
		t.Fatalf("Enabled() after Disable")
	}
	m.Enable()
	if !m.Enabled() {
		t.Errorf("Enabled() false after Enable")
	}
	// Master 0 loses user access and keeps supervisor read/write/execute.
	// Other masters keep their reset access.
	if got, want := m.Block().RegionWord(0, WordAccess), uint32(0x0061f7c0); got != want {
		t.Errorf("reserved slot access got %#x, wanted %#x", got, want)
	}
	if got, want := regs.Read32(rgdaacOffset), uint32(0x0061f7c0); got != want {
		t.Errorf("RGDAAC0 got %#x, wanted %#x", got, want)
	}
}

func TestEnableOtherMaster(t *testing.T) {
	m, err := New(NewMemRegisters(), Opts{BusMaster: 2})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	m.Enable()
	// Master 2 fields are bits 12 to 16.
	if got, want := m.Block().RegionWord(0, WordAccess), uint32(0x0061f7df)&^0x1f000; got != want {
		t.Errorf("reserved slot access got %#x, wanted %#x", got, want)
	}
}

func TestDisableKeepsFaults(t *testing.T) {
	m, regs := newTestMPU(t)
	regs.InjectFault(1, 0x20001000, 0)
	m.Disable()
	if m.Enabled() {
		t.Errorf("Enabled() after Disable")
	}
	if got := len(m.Faults()); got != 1 {
		t.Errorf("Disable acknowledged faults: %d pending, wanted 1", got)
	}
	m.Enable()
	if got := len(m.Faults()); got != 1 {
		t.Errorf("Enable acknowledged faults: %d pending, wanted 1", got)
	}
}

func TestFaults(t *testing.T) {
	m, regs := newTestMPU(t)
	if fs := m.Faults(); len(fs) != 0 {
		t.Fatalf("Faults() after reset: got %v, wanted none", fs)
	}
	regs.InjectFault(3, 0x1fff0000, 0)
	regs.InjectFault(2, 0x20001000, 0x0002<<16|7<<8|1<<1|1)
	want := []Fault{
		{
			Port:          2,
			Address:       0x20001000,
			AccessControl: 0x2,
			PID:           7,
			Master:        0,
			Attr:          UserData,
			Write:         true,
		},
		{
			Port:    3,
			Address: 0x1fff0000,
			Attr:    UserInstruction,
		},
	}
	if diff := cmp.Diff(want, m.Faults()); diff != "" {
		t.Errorf("Faults() mismatch (-want +got):\n%s", diff)
	}

	m.ClearFaults()
	if fs := m.Faults(); len(fs) != 0 {
		t.Errorf("Faults() after ClearFaults: got %v, wanted none", fs)
	}
	if !m.Enabled() {
		t.Errorf("ClearFaults changed the valid bit")
	}
}

func TestFaultString(t *testing.T) {
	f := DecodeFault(0, 0x20001000, 0x0002<<16|7<<8|1<<4|3<<1|1)
	want := "port 0: supervisor data write at 0x20001000 by master 1 (pid 7, descriptors 0x0002)"
	if got := f.String(); got != want {
		t.Errorf("String(): got %q, wanted %q", got, want)
	}
}

func testConfig(t *testing.T, m *MPU) *Config {
	t.Helper()
	cfg := &Config{}
	if _, err := m.AllocateRegion(0x20000000, 0x400, 0x400, ReadWriteOnly, cfg); err != nil {
		t.Fatalf("AllocateRegion failed: %v", err)
	}
	if _, err := m.AllocateRegion(0x00010000, 0x8000, 0x8000, ReadExecuteOnly, cfg); err != nil {
		t.Fatalf("AllocateRegion failed: %v", err)
	}
	return cfg
}

func TestConfigure(t *testing.T) {
	m, regs := newTestMPU(t)
	cfg := testConfig(t, m)
	regs.ClearWrites()
	m.Configure(cfg)

	want := [][WordsPerSlot]uint32{
		// Slot 0 keeps its reset contents.
		{0x00000000, 0xffffffff, 0x0061f7df, 1},
		{0x20000000, 0x200003e0, 0b110, 1},
		{0x00010000, 0x00017fe0, 0b101, 1},
	}
	for s := 3; s < NumSlots; s++ {
		want = append(want, [WordsPerSlot]uint32{})
	}
	var got [][WordsPerSlot]uint32
	for s := 0; s < NumSlots; s++ {
		got = append(got, m.Block().Region(s))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("descriptors mismatch (-want +got):\n%s", diff)
	}

	// The valid bit is cleared first and set last.
	var slot1 []RegisterWrite
	for _, w := range regs.Writes() {
		if w.Offset >= 0x410 && w.Offset < 0x420 {
			slot1 = append(slot1, w)
		}
	}
	wantWrites := []RegisterWrite{
		{Offset: 0x41c, Value: 0},
		{Offset: 0x410, Value: 0x20000000},
		{Offset: 0x414, Value: 0x200003e0},
		{Offset: 0x418, Value: 0b110},
		{Offset: 0x41c, Value: 1},
	}
	if diff := cmp.Diff(wantWrites, slot1); diff != "" {
		t.Errorf("slot 1 writes mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigureIdempotent(t *testing.T) {
	m, regs := newTestMPU(t)
	cfg := testConfig(t, m)
	m.Configure(cfg)
	first := regs.Snapshot()
	m.Configure(cfg)
	if diff := cmp.Diff(first, regs.Snapshot()); diff != "" {
		t.Errorf("second Configure changed registers (-first +second):\n%s", diff)
	}
}

func TestConfigureClearsReleasedSlots(t *testing.T) {
	m, _ := newTestMPU(t)
	cfg := testConfig(t, m)
	m.Configure(cfg)
	cfg.Release(Region{Start: 0x20000000, Size: 0x400})
	m.Configure(cfg)
	if got := m.Block().RegionWord(1, WordValid); got != 0 {
		t.Errorf("released slot 1 valid word got %#x, wanted 0", got)
	}
}

func TestConfigureOtherMaster(t *testing.T) {
	m, err := New(NewMemRegisters(), Opts{BusMaster: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	m.Configure(testConfig(t, m))
	if got, want := m.Block().RegionWord(1, WordAccess), uint32(0b110<<6); got != want {
		t.Errorf("slot 1 access got %#x, wanted %#x", got, want)
	}
}

func TestSlots(t *testing.T) {
	m, _ := newTestMPU(t)
	cfg := testConfig(t, m)
	m.Configure(cfg)

	ds, errs := m.Slots()
	if len(ds) != NumSlots {
		t.Fatalf("Slots() returned %d descriptors, wanted %d", len(ds), NumSlots)
	}
	for s := Slot(0); s < NumSlots; s++ {
		if errs[s] != nil {
			t.Errorf("slot %d: unexpected error %v", s, errs[s])
			continue
		}
		if s == ReservedSlot {
			continue
		}
		if ds[s] != cfg.Slot(s) {
			t.Errorf("slot %d: got %v, wanted %v", s, ds[s], cfg.Slot(s))
		}
	}
	if want := mustDescriptor(t, 0, 0xffffffe0, ReadWriteExecute, true); ds[0] != want {
		t.Errorf("slot 0: got %v, wanted %v", ds[0], want)
	}

	// After Enable the reserved slot denies user access, which the kernel
	// never encodes.
	m.Enable()
	if _, errs := m.Slots(); errs[0] == nil {
		t.Errorf("slot 0 decoded after Enable, wanted an error")
	}
}
