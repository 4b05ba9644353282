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
)

func TestPermissionCodes(t *testing.T) {
	for _, tc := range []struct {
		perm  Permission
		code  uint32
		short string
	}{
		{ReadWriteExecute, 0b111, "rwx"},
		{ReadWriteOnly, 0b110, "rw-"},
		{ReadExecuteOnly, 0b101, "r-x"},
		{ReadOnly, 0b100, "r--"},
		{ExecuteOnly, 0b001, "--x"},
	} {
		if got := tc.perm.UserCode(); got != tc.code {
			t.Errorf("%v.UserCode(): got %#b, wanted %#b", tc.perm, got, tc.code)
		}
		if got := tc.perm.ShortString(); got != tc.short {
			t.Errorf("%v.ShortString(): got %q, wanted %q", tc.perm, got, tc.short)
		}
	}
}

func TestPermissionRoundTrip(t *testing.T) {
	for _, p := range Permissions {
		got, ok := PermissionFromCode(p.UserCode())
		if !ok || got != p {
			t.Errorf("PermissionFromCode(%v.UserCode()): got (%v, %v), wanted (%v, true)", p, got, ok, p)
		}
	}
}

func TestPermissionFromUnsupportedCode(t *testing.T) {
	for _, code := range []uint32{0b000, 0b010, 0b011} {
		if p, ok := PermissionFromCode(code); ok {
			t.Errorf("PermissionFromCode(%#b): got %v, wanted no permission", code, p)
		}
	}
}

func TestPermissionAccessors(t *testing.T) {
	for _, tc := range []struct {
		perm    Permission
		r, w, x bool
	}{
		{ReadWriteExecute, true, true, true},
		{ReadWriteOnly, true, true, false},
		{ReadExecuteOnly, true, false, true},
		{ReadOnly, true, false, false},
		{ExecuteOnly, false, false, true},
		{Permission(0), false, false, false},
	} {
		if tc.perm.CanRead() != tc.r || tc.perm.CanWrite() != tc.w || tc.perm.CanExecute() != tc.x {
			t.Errorf("%v: got r=%v w=%v x=%v, wanted r=%v w=%v x=%v", tc.perm,
				tc.perm.CanRead(), tc.perm.CanWrite(), tc.perm.CanExecute(), tc.r, tc.w, tc.x)
		}
	}
}

func TestZeroPermissionInvalid(t *testing.T) {
	var p Permission
	if p.Valid() {
		t.Fatalf("zero Permission is valid")
	}
	defer func() {
		if recover() == nil {
			t.Errorf("UserCode of zero Permission did not panic")
		}
	}()
	p.UserCode()
}

func TestParsePermission(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    Permission
		wantErr bool
	}{
		{in: "rwx", want: ReadWriteExecute},
		{in: "rw", want: ReadWriteOnly},
		{in: "rw-", want: ReadWriteOnly},
		{in: "R-X", want: ReadExecuteOnly},
		{in: "r", want: ReadOnly},
		{in: "x", want: ExecuteOnly},
		{in: "ReadOnly", want: ReadOnly},
		{in: "readexecuteonly", want: ReadExecuteOnly},
		{in: "w", wantErr: true},
		{in: "wx", wantErr: true},
		{in: "", wantErr: true},
		{in: "rwz", wantErr: true},
	} {
		got, err := ParsePermission(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParsePermission(%q): got %v, wanted error", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParsePermission(%q): got (%v, %v), wanted %v", tc.in, got, err, tc.want)
		}
	}
}
