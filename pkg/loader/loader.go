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

// Package loader places processes in flash and RAM and keeps their MPU
// configurations.
//
// Each process gets one read/execute region covering its code in flash and
// one app memory block in RAM. The block's app part is readable and
// writable by the process; its kernel part holds grants and is only
// reachable from supervisor mode.
package loader

import (
	"errors"
	"fmt"
	"math"
	"time"

	"kinetis.dev/kmpu/pkg/bits"
	"kinetis.dev/kmpu/pkg/cleanup"
	"kinetis.dev/kmpu/pkg/log"
	"kinetis.dev/kmpu/pkg/mpu"
)

var (
	// ErrProcessExists is returned when loading a process whose name is
	// taken.
	ErrProcessExists = errors.New("process already loaded")

	// ErrNoProcess is returned for a process that is not loaded.
	ErrNoProcess = errors.New("no such process")
)

// Memory describes the flash and RAM available to processes.
type Memory struct {
	FlashStart uint32
	FlashSize  uint32
	RAMStart   uint32
	RAMSize    uint32
}

// Image describes a process to load.
type Image struct {
	// Name identifies the process.
	Name string

	// FlashSize is the size of the process's code. It is rounded up to
	// whole granules.
	FlashSize uint32

	// MinRAM is the smallest the app memory region may become.
	MinRAM uint32

	// AppSize is the initial app memory size.
	AppSize uint32

	// KernelSize is the initial size of the kernel-owned grant area.
	KernelSize uint32
}

// Loader owns the MPU and the memory handed out to processes.
//
// Loader is not safe for concurrent use.
type Loader struct {
	mpu   *mpu.MPU
	flash *Pool
	ram   *Pool

	// procs holds loaded processes in load order.
	procs []*Process

	// current is the process whose configuration the MPU enforces.
	current *Process

	// warn reports rejected memory requests, which a misbehaving process
	// can make at a high rate.
	warn log.Logger
}

// New returns a Loader that places processes in mem.
func New(m *mpu.MPU, mem Memory) *Loader {
	return &Loader{
		mpu:   m,
		flash: NewPool("flash", mem.FlashStart, mem.FlashSize),
		ram:   NewPool("ram", mem.RAMStart, mem.RAMSize),
		warn:  log.BasicRateLimitedLogger(time.Second),
	}
}

// MPU returns the MPU the loader configures.
func (l *Loader) MPU() *mpu.MPU {
	return l.mpu
}

// Flash returns the flash pool.
func (l *Loader) Flash() *Pool {
	return l.flash
}

// RAM returns the RAM pool.
func (l *Loader) RAM() *Pool {
	return l.ram
}

// Processes returns the loaded processes in load order.
func (l *Loader) Processes() []*Process {
	return append([]*Process(nil), l.procs...)
}

// Lookup returns the loaded process called name.
func (l *Loader) Lookup(name string) (*Process, bool) {
	for _, p := range l.procs {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// Current returns the process last switched to, or nil.
func (l *Loader) Current() *Process {
	return l.current
}

// Load places img in flash and RAM and builds its MPU configuration. On
// failure nothing is left allocated.
func (l *Loader) Load(img Image) (*Process, error) {
	if _, ok := l.Lookup(img.Name); ok {
		return nil, fmt.Errorf("process %q: %w", img.Name, ErrProcessExists)
	}
	flashSize, ok := bits.AlignUp32(img.FlashSize, mpu.Granule)
	if !ok || flashSize == 0 {
		return nil, fmt.Errorf("process %q: invalid flash size %#x", img.Name, img.FlashSize)
	}

	p := &Process{name: img.Name, loader: l}
	flashStart, err := l.flash.Take(flashSize, mpu.Granule)
	if err != nil {
		return nil, fmt.Errorf("process %q: %w", img.Name, err)
	}
	cu := cleanup.Make(func() {
		if err := l.flash.Release(flashStart, flashSize); err != nil {
			panic(fmt.Sprintf("releasing flash of %q: %v", img.Name, err))
		}
	})
	defer cu.Clean()

	p.flash, err = l.mpu.AllocateRegion(flashStart, flashSize, flashSize, mpu.ReadExecuteOnly, &p.cfg)
	if err != nil {
		return nil, fmt.Errorf("process %q: flash region: %w", img.Name, err)
	}

	// Try each free RAM span in address order.
	var lastErr error
	for _, s := range l.ram.Spans() {
		size := uint32(min(s.Size(), math.MaxUint32))
		start, blockSize, err := l.mpu.AllocateAppMemoryRegion(uint32(s.Start), size, img.MinRAM, img.AppSize, img.KernelSize, mpu.ReadWriteOnly, &p.cfg)
		if err != nil {
			lastErr = err
			continue
		}
		if err := l.ram.Reserve(start, blockSize); err != nil {
			panic(fmt.Sprintf("reserving app memory of %q: %v", img.Name, err))
		}
		p.ram = Span{Start: uint64(start), End: uint64(start) + uint64(blockSize)}
		p.grantTop = start + blockSize
		break
	}
	if p.ram.Size() == 0 {
		return nil, fmt.Errorf("process %q: app memory: %w", img.Name, errors.Join(ErrOutOfMemory, lastErr))
	}

	cu.Release()
	l.procs = append(l.procs, p)
	mem, _ := p.cfg.AppMemory()
	log.Infof("Loaded process %q: flash %v, app memory %v, kernel break %#x", p.name, p.flash, mem.Region, mem.KernelBreak)
	return p, nil
}

func (l *Loader) index(p *Process) (int, error) {
	for i, q := range l.procs {
		if q == p {
			return i, nil
		}
	}
	return -1, fmt.Errorf("process %q: %w", p.name, ErrNoProcess)
}

// Unload returns p's flash and RAM to the pools and forgets it.
func (l *Loader) Unload(p *Process) error {
	i, err := l.index(p)
	if err != nil {
		return err
	}
	if err := l.flash.Release(p.flash.Start, p.flash.Size); err != nil {
		return fmt.Errorf("process %q: %w", p.name, err)
	}
	if err := l.ram.Release(uint32(p.ram.Start), uint32(p.ram.Size())); err != nil {
		return fmt.Errorf("process %q: %w", p.name, err)
	}
	p.cfg.ReleaseAppMemory()
	p.cfg.Release(p.flash)
	p.loader = nil
	l.procs = append(l.procs[:i], l.procs[i+1:]...)
	if l.current == p {
		l.current = nil
	}
	log.Infof("Unloaded process %q", p.name)
	return nil
}

// Switch configures the MPU for p before it runs.
func (l *Loader) Switch(p *Process) error {
	if _, err := l.index(p); err != nil {
		return err
	}
	l.mpu.Configure(&p.cfg)
	l.current = p
	return nil
}
