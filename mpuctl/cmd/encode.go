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
	"kinetis.dev/kmpu/pkg/mpu"
)

// Encode implements subcommands.Command for the "encode" command.
type Encode struct {
	start            uint64
	size             uint64
	perm             string
	master           uint
	supervisorAsUser bool
}

// Name implements subcommands.Command.Name.
func (*Encode) Name() string {
	return "encode"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Encode) Synopsis() string {
	return "print the descriptor words for one region"
}

// Usage implements subcommands.Command.Usage.
func (*Encode) Usage() string {
	return `encode -start <addr> -size <bytes> -perm <perm> [flags] - prints the four
region descriptor words granting perm over [start, start+size).

perm is a permission name (ReadWriteExecute, ReadWriteOnly, ReadExecuteOnly,
ReadOnly, ExecuteOnly) or its rwx form (rwx, rw-, r-x, r--, --x).
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (e *Encode) SetFlags(f *flag.FlagSet) {
	f.Uint64Var(&e.start, "start", 0, "region start address, 32 byte aligned")
	f.Uint64Var(&e.size, "size", 0, "region size in bytes, a nonzero multiple of 32")
	f.StringVar(&e.perm, "perm", "", "user mode permission")
	f.UintVar(&e.master, "master", 0, "bus master whose access control fields are written")
	f.BoolVar(&e.supervisorAsUser, "supervisor-as-user", false, "restrict supervisor mode to the user permission")
}

// Execute implements subcommands.Command.Execute.
func (e *Encode) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 0 || e.perm == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if err := e.write(os.Stdout); err != nil {
		Fatalf("%v", err)
	}
	return subcommands.ExitSuccess
}

func (e *Encode) write(w io.Writer) error {
	perm, err := mpu.ParsePermission(e.perm)
	if err != nil {
		return err
	}
	if e.master >= mpu.NumBusMasters {
		return fmt.Errorf("bus master %d out of range [0, %d)", e.master, mpu.NumBusMasters)
	}
	master := mpu.BusMaster(e.master)
	if e.size == 0 || e.size%mpu.Granule != 0 || e.start%mpu.Granule != 0 {
		return fmt.Errorf("region [%#x, +%#x) is not a nonzero whole number of %d byte granules", e.start, e.size, mpu.Granule)
	}
	if e.start+e.size > 1<<32 {
		return fmt.Errorf("region [%#x, +%#x) wraps the address space", e.start, e.size)
	}
	d, err := mpu.NewRegionDescriptor(uint32(e.start), uint32(e.start+e.size-mpu.Granule), perm, e.supervisorAsUser)
	if err != nil {
		return err
	}
	return writeSlots(w, [][mpu.WordsPerSlot]uint32{d.Words(master)}, master)
}
