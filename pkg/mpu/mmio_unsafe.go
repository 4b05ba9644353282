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

//go:build linux
// +build linux

package mpu

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MappedRegisters is a register block mapped from a file: /dev/mem for a
// live block, or a raw little-endian dump of one.
//
// Accesses are single 32-bit atomic loads and stores, which the compiler
// neither splits nor reorders.
type MappedRegisters struct {
	mem      []byte
	off      int
	writable bool
}

// MapRegisters maps the BlockSize bytes at offset base of the file at path.
// base must be 4 byte aligned.
func MapRegisters(path string, base int64, writable bool) (*MappedRegisters, error) {
	if base%4 != 0 || base < 0 {
		return nil, fmt.Errorf("register block offset %#x is not word aligned", base)
	}
	flags, prot := os.O_RDONLY, unix.PROT_READ
	if writable {
		flags, prot = os.O_RDWR|unix.O_SYNC, unix.PROT_READ|unix.PROT_WRITE
	}
	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, fmt.Errorf("error opening register file: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("error stating %q: %w", path, err)
	}
	if st.Mode().IsRegular() && st.Size() < base+BlockSize {
		return nil, fmt.Errorf("%q is %d bytes, too short for a register block at %#x", path, st.Size(), base)
	}

	page := int64(os.Getpagesize())
	pageBase := base &^ (page - 1)
	off := int(base - pageBase)
	mem, err := unix.Mmap(int(f.Fd()), pageBase, off+BlockSize, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("error mapping %q at %#x: %w", path, base, err)
	}
	return &MappedRegisters{
		mem:      mem,
		off:      off,
		writable: writable,
	}, nil
}

func (r *MappedRegisters) word(off uint32) *uint32 {
	checkOffset(off)
	return (*uint32)(unsafe.Pointer(&r.mem[r.off+int(off)]))
}

// Read32 implements Registers.Read32.
func (r *MappedRegisters) Read32(off uint32) uint32 {
	return atomic.LoadUint32(r.word(off))
}

// Write32 implements Registers.Write32. It panics if the block was mapped
// read-only.
func (r *MappedRegisters) Write32(off uint32, v uint32) {
	if !r.writable {
		panic(fmt.Sprintf("write of %#x to read-only register mapping at %#x", v, off))
	}
	atomic.StoreUint32(r.word(off), v)
}

// Close unmaps the block.
func (r *MappedRegisters) Close() error {
	if r.mem == nil {
		return nil
	}
	err := unix.Munmap(r.mem)
	r.mem = nil
	return err
}
