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

package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"kinetis.dev/kmpu/mpuctl/config"
	"kinetis.dev/kmpu/pkg/mpu"
)

// Dump implements subcommands.Command for the "dump" command.
type Dump struct {
	file   string
	dev    string
	base   uint64
	master uint
}

// Name implements subcommands.Command.Name.
func (*Dump) Name() string {
	return "dump"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Dump) Synopsis() string {
	return "decode a live or saved MPU register block"
}

// Usage implements subcommands.Command.Usage.
func (*Dump) Usage() string {
	return `dump (-file <regs.bin> | -dev <path>) [flags] - prints the hardware
configuration, pending faults and region descriptors of a register block.
The block is mapped read-only.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (d *Dump) SetFlags(f *flag.FlagSet) {
	f.StringVar(&d.file, "file", "", "raw little-endian register dump, starting at offset -base (default 0)")
	f.StringVar(&d.dev, "dev", "", "physical memory device, e.g. /dev/mem, mapped at -base (default the board's MPU base)")
	f.Uint64Var(&d.base, "base", 0, "offset of the register block in the file or device")
	f.UintVar(&d.master, "master", 0, "bus master whose access control fields are decoded")
}

// Execute implements subcommands.Command.Execute.
func (d *Dump) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 || (d.file == "") == (d.dev == "") {
		f.Usage()
		return subcommands.ExitUsageError
	}
	path, base := d.file, d.base
	if d.dev != "" {
		path = d.dev
		if !isFlagSet(f, "base") {
			base = mpu.BaseAddress
			if conf := args[0].(*config.Config); conf != nil {
				base = uint64(conf.MPU.Base)
			}
		}
	}

	regs, err := mpu.MapRegisters(path, int64(base), false)
	if err != nil {
		Fatalf("%v", err)
	}
	defer regs.Close()

	if err := writeDump(os.Stdout, regs, d.master); err != nil {
		Fatalf("%v", err)
	}
	return subcommands.ExitSuccess
}

func isFlagSet(f *flag.FlagSet, name string) bool {
	set := false
	f.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			set = true
		}
	})
	return set
}

// writeDump prints what regs hold as seen by bus master n.
func writeDump(w io.Writer, regs mpu.Registers, n uint) error {
	if n >= mpu.NumBusMasters {
		return fmt.Errorf("bus master %d out of range [0, %d)", n, mpu.NumBusMasters)
	}
	master := mpu.BusMaster(n)
	m, err := mpu.New(regs, mpu.Opts{BusMaster: master})
	if err != nil {
		return err
	}
	info := m.Info()
	state := "disabled"
	if m.Enabled() {
		state = "enabled"
	}
	fmt.Fprintf(w, "revision %d, %d slave ports, %d region descriptors, %s\n", info.Revision, info.SlavePorts, info.Descriptors, state)

	faults := m.Faults()
	if len(faults) == 0 {
		fmt.Fprintf(w, "no pending faults\n")
	}
	for _, fault := range faults {
		fmt.Fprintf(w, "fault %v\n", fault)
	}
	fmt.Fprintln(w)
	return writeSlots(w, hardwareSlots(m), master)
}
