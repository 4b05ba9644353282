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

package cleanup

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCleanOrder(t *testing.T) {
	var got []int
	cu := Make(func() { got = append(got, 1) })
	cu.Add(func() { got = append(got, 2) })
	cu.Add(nil)
	cu.Add(func() { got = append(got, 3) })
	cu.Clean()
	if diff := cmp.Diff([]int{3, 2, 1}, got); diff != "" {
		t.Errorf("cleanup order mismatch (-want +got):\n%s", diff)
	}

	// A cleaned Cleanup does nothing.
	cu.Clean()
	if len(got) != 3 {
		t.Errorf("second Clean ran cleanup functions again: %v", got)
	}
}

func TestRelease(t *testing.T) {
	calls := 0
	cu := Make(func() { calls++ })
	cu.Add(func() { calls++ })
	cleaner := cu.Release()
	cu.Clean()
	if calls != 0 {
		t.Fatalf("Clean after Release ran %d functions", calls)
	}
	cleaner()
	if calls != 2 {
		t.Errorf("released cleaner ran %d functions, wanted 2", calls)
	}
}

func TestMakeNil(t *testing.T) {
	cu := Make(nil)
	cu.Clean()
}
