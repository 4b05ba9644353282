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
	"bytes"
	"strings"
	"testing"

	"kinetis.dev/kmpu/mpuctl/config"
	"kinetis.dev/kmpu/pkg/mpu"
)

func checkOutput(t *testing.T, got string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("output missing %q:\n%s", w, got)
		}
	}
}

func TestWritePlan(t *testing.T) {
	conf, err := config.Parse(`
[memory]
flash_start = 0x00010000
flash_size  = 0x00010000
ram_start   = 0x20000000
ram_size    = 0x00004000

[[process]]
name        = "blink"
flash_size  = 0x400
min_ram     = 0x400
app_size    = 0x800
kernel_size = 0x400
`)
	if err != nil {
		t.Fatalf("config.Parse failed: %v", err)
	}
	var buf bytes.Buffer
	if err := writePlan(&buf, conf); err != nil {
		t.Fatalf("writePlan failed: %v", err)
	}
	checkOutput(t, buf.String(),
		"process blink\n",
		"flash       [0x00010000, 0x00010400)",
		"app memory  [0x20000000, 0x200007ff]",
		"kernel      [0x20000800, 0x20000c00)",
		"[0x00010000, 0x000103ff]",
		"r-x",
		"rw-",
		"flash free: 0xfc00 bytes, ram free: 0x3400 bytes",
	)
}

func TestWritePlanOutOfMemory(t *testing.T) {
	conf, err := config.Parse(`
[memory]
flash_size = 0x1000
ram_size   = 0x1000

[[process]]
name       = "big"
flash_size = 0x100
app_size   = 0x2000
`)
	if err != nil {
		t.Fatalf("config.Parse failed: %v", err)
	}
	if err := writePlan(&bytes.Buffer{}, conf); err == nil {
		t.Errorf("writePlan succeeded for a process that does not fit")
	}
}

func TestWriteDump(t *testing.T) {
	regs := mpu.NewMemRegisters()
	regs.InjectFault(0, 0x20001000, 1)
	var buf bytes.Buffer
	if err := writeDump(&buf, regs, 0); err != nil {
		t.Fatalf("writeDump failed: %v", err)
	}
	checkOutput(t, buf.String(),
		"revision 1, 5 slave ports, 12 region descriptors, enabled",
		"fault port 0: user instruction write at 0x20001000",
		"[0x00000000, 0xffffffff]",
		"0x0061f7df",
	)
}

func TestWriteDumpBusMaster(t *testing.T) {
	for _, master := range []uint{mpu.NumBusMasters, 256, 260} {
		var buf bytes.Buffer
		if err := writeDump(&buf, mpu.NewMemRegisters(), master); err == nil {
			t.Errorf("writeDump with bus master %d succeeded:\n%s", master, buf.String())
		}
	}
	var buf bytes.Buffer
	if err := writeDump(&buf, mpu.NewMemRegisters(), mpu.NumBusMasters-1); err != nil {
		t.Errorf("writeDump with bus master %d failed: %v", mpu.NumBusMasters-1, err)
	}
}

func TestEncode(t *testing.T) {
	for _, tc := range []struct {
		name string
		e    Encode
		want []string
	}{
		{
			name: "rw",
			e:    Encode{start: 0x20000000, size: 0x400, perm: "rw"},
			want: []string{"[0x20000000, 0x200003ff]", "0x20000000", "0x200003e0", "0x00000006", "0x00000001"},
		},
		{
			name: "supervisor as user on master 1",
			e:    Encode{start: 0x1000, size: 0x20, perm: "ReadOnly", master: 1, supervisorAsUser: true},
			want: []string{"[0x00001000, 0x0000101f]", "0x00000700"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tc.e.write(&buf); err != nil {
				t.Fatalf("write failed: %v", err)
			}
			checkOutput(t, buf.String(), tc.want...)
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	for _, e := range []Encode{
		{start: 0x1000, size: 0x20, perm: "bogus"},
		{start: 0x1010, size: 0x20, perm: "rw"},
		{start: 0x1000, size: 0x10, perm: "rw"},
		{start: 0x1000, size: 0, perm: "rw"},
		{start: 0xffffffe0, size: 0x40, perm: "rw"},
		{start: 0x1000, size: 0x20, perm: "rw", master: 4},
		{start: 0x1000, size: 0x20, perm: "rw", master: 256},
	} {
		if err := e.write(&bytes.Buffer{}); err == nil {
			t.Errorf("write of %+v succeeded", e)
		}
	}
}
