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

package loader

import (
	"fmt"

	"kinetis.dev/kmpu/pkg/mpu"
)

// Process is a loaded process.
type Process struct {
	name   string
	loader *Loader
	cfg    mpu.Config
	flash  mpu.Region

	// ram is the whole app memory block, app and kernel parts.
	ram Span

	// grantTop is the lowest address handed out as a grant. Grants fill the
	// kernel tail from the block end down.
	grantTop uint32
}

// Name returns the process name.
func (p *Process) Name() string {
	return p.name
}

// Config returns the process's MPU configuration.
func (p *Process) Config() *mpu.Config {
	return &p.cfg
}

// Flash returns the process's code region.
func (p *Process) Flash() mpu.Region {
	return p.flash
}

// Block returns the process's app memory block.
func (p *Process) Block() Span {
	return p.ram
}

// Memory returns the current layout of the app memory block.
func (p *Process) Memory() mpu.AppMemory {
	mem, _ := p.cfg.AppMemory()
	return mem
}

// String implements fmt.Stringer.String.
func (p *Process) String() string {
	return fmt.Sprintf("%s: flash %v, ram %v", p.name, p.flash, p.ram)
}

// update moves the breaks and re-enforces the configuration if p is
// running.
func (p *Process) update(appBreak, kernelBreak uint32) error {
	if p.loader == nil {
		return fmt.Errorf("process %q: %w", p.name, ErrNoProcess)
	}
	l := p.loader
	if err := l.mpu.UpdateAppMemoryRegion(appBreak, kernelBreak, mpu.ReadWriteOnly, &p.cfg); err != nil {
		return err
	}
	if l.current == p {
		l.mpu.Configure(&p.cfg)
	}
	return nil
}

// Brk moves the end of app memory to addr and returns the break in effect
// afterwards. On failure the break is unchanged.
func (p *Process) Brk(addr uint32) (uint32, error) {
	mem := p.Memory()
	if err := p.update(addr, mem.KernelBreak); err != nil {
		if p.loader != nil {
			p.loader.warn.Warningf("Process %q: brk to %#x rejected: %v", p.name, addr, err)
		}
		return mem.AppBreak, err
	}
	return addr, nil
}

// AllocateGrant takes size bytes for the kernel below any earlier grants and
// returns their start. Grants are granule aligned. They fill the kernel tail
// reserved at load time first; once it is used up, the kernel break moves
// down, which fails if app memory is in the way.
func (p *Process) AllocateGrant(size uint32) (uint32, error) {
	if p.loader == nil {
		return 0, fmt.Errorf("process %q: %w", p.name, ErrNoProcess)
	}
	mem := p.Memory()
	if size == 0 || size > p.grantTop-mem.Start {
		return 0, fmt.Errorf("process %q: grant of %#x bytes does not fit below %#x: %w", p.name, size, p.grantTop, mpu.ErrGrowthRejected)
	}
	top := (p.grantTop - size) &^ (mpu.Granule - 1)
	if top < mem.KernelBreak {
		if err := p.update(mem.AppBreak, top); err != nil {
			p.loader.warn.Warningf("Process %q: grant of %#x bytes rejected: %v", p.name, size, err)
			return 0, err
		}
	}
	p.grantTop = top
	return top, nil
}
