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

// Package cmd holds implementations of the mpuctl commands.
package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"kinetis.dev/kmpu/pkg/log"
	"kinetis.dev/kmpu/pkg/mpu"
)

// Fatalf logs to stderr and exits with a failure status code.
func Fatalf(format string, args ...any) {
	// If logging is directed to stderr, the message would be printed twice.
	log.Warningf("FATAL ERROR: "+format, args...)
	fmt.Fprintf(os.Stderr, "mpuctl: "+format+"\n", args...)
	os.Exit(128)
}

// writeSlots prints one line per descriptor with its hardware words.
// Descriptors that cannot be decoded are shown with their error.
func writeSlots(w io.Writer, words [][mpu.WordsPerSlot]uint32, master mpu.BusMaster) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "SLOT\tRANGE\tUSER\tSUPER\tWORD0\tWORD1\tWORD2\tWORD3\n")
	for s, ws := range words {
		d, err := mpu.DecodeRegionDescriptor(ws, master)
		var rng, user, super string
		switch {
		case err != nil:
			rng, user, super = "?", "?", err.Error()
		case !d.InUse():
			rng, user, super = "-", "-", "-"
		default:
			r, _ := d.Range()
			rng = r.String()
			user = d.Permission().ShortString()
			super = "rwx"
			if d.SupervisorAsUser() {
				super = user
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%#08x\t%#08x\t%#08x\t%#08x\n", s, rng, user, super, ws[mpu.WordStart], ws[mpu.WordEnd], ws[mpu.WordAccess], ws[mpu.WordValid])
	}
	return tw.Flush()
}

// hardwareSlots reads every implemented descriptor of m.
func hardwareSlots(m *mpu.MPU) [][mpu.WordsPerSlot]uint32 {
	n := m.NumberTotalRegions() + 1
	words := make([][mpu.WordsPerSlot]uint32, n)
	for s := range words {
		words[s] = m.Block().Region(s)
	}
	return words
}
