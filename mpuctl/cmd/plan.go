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
	"kinetis.dev/kmpu/pkg/loader"
	"kinetis.dev/kmpu/pkg/log"
	"kinetis.dev/kmpu/pkg/mpu"
)

// Plan implements subcommands.Command for the "plan" command.
type Plan struct{}

// Name implements subcommands.Command.Name.
func (*Plan) Name() string {
	return "plan"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Plan) Synopsis() string {
	return "lay out the board's processes and print their MPU configurations"
}

// Usage implements subcommands.Command.Usage.
func (*Plan) Usage() string {
	return `plan - loads every process in the board file against a simulated MPU
and prints the region descriptors written when switching to each one.

Usage: mpuctl -config board.toml plan
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Plan) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Plan) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	if conf == nil {
		Fatalf("plan requires a board file, set with -config")
	}
	if err := writePlan(os.Stdout, conf); err != nil {
		Fatalf("%v", err)
	}
	return subcommands.ExitSuccess
}

// writePlan loads conf's processes on a simulated MPU and prints the result.
func writePlan(w io.Writer, conf *config.Config) error {
	m, err := mpu.New(mpu.NewMemRegisters(), mpu.Opts{BusMaster: mpu.BusMaster(conf.MPU.BusMaster)})
	if err != nil {
		return err
	}
	m.Enable()

	l := loader.New(m, conf.Memory.Loader())
	for _, p := range conf.Processes {
		if _, err := l.Load(p.Image()); err != nil {
			return err
		}
	}
	log.Debugf("Loaded %d processes", len(l.Processes()))

	for _, p := range l.Processes() {
		if err := l.Switch(p); err != nil {
			return err
		}
		mem := p.Memory()
		fmt.Fprintf(w, "process %s\n", p.Name())
		fmt.Fprintf(w, "  flash       %v\n", p.Flash())
		fmt.Fprintf(w, "  app memory  %v\n", mem.Region)
		fmt.Fprintf(w, "  app break   %#08x\n", mem.AppBreak)
		fmt.Fprintf(w, "  kernel      [%#08x, %#08x)\n", mem.KernelBreak, mem.End)
		if err := writeSlots(w, hardwareSlots(m), m.BusMaster()); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "flash free: %#x bytes, ram free: %#x bytes\n", l.Flash().Free(), l.RAM().Free())
	return nil
}
