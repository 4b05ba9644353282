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
	"fmt"
	"strings"
)

// Permission is the access granted to unprivileged code for a region.
//
// The set is closed: the hardware user-mode field can express other
// combinations (write-only, for example) but the kernel never grants them.
// The zero value is not a valid Permission.
type Permission uint8

const (
	// ReadWriteExecute grants read, write and instruction fetch.
	ReadWriteExecute Permission = iota + 1

	// ReadWriteOnly grants read and write.
	ReadWriteOnly

	// ReadExecuteOnly grants read and instruction fetch.
	ReadExecuteOnly

	// ReadOnly grants read.
	ReadOnly

	// ExecuteOnly grants instruction fetch.
	ExecuteOnly
)

// Permissions lists every valid Permission.
var Permissions = []Permission{
	ReadWriteExecute,
	ReadWriteOnly,
	ReadExecuteOnly,
	ReadOnly,
	ExecuteOnly,
}

// User mode access bits, in the order the hardware field uses.
const (
	userRead  = 0b100
	userWrite = 0b010
	userExec  = 0b001
)

// Valid returns true if p is one of the defined permissions.
func (p Permission) Valid() bool {
	return p >= ReadWriteExecute && p <= ExecuteOnly
}

// UserCode returns the 3-bit user mode access code for p. It panics if p is
// not valid.
func (p Permission) UserCode() uint32 {
	switch p {
	case ReadWriteExecute:
		return userRead | userWrite | userExec
	case ReadWriteOnly:
		return userRead | userWrite
	case ReadExecuteOnly:
		return userRead | userExec
	case ReadOnly:
		return userRead
	case ExecuteOnly:
		return userExec
	default:
		panic(fmt.Sprintf("invalid permission %d", p))
	}
}

// PermissionFromCode returns the Permission encoded by a 3-bit user mode
// access code. The second return value is false for codes that do not
// correspond to a Permission (no access, write-only, write-execute).
func PermissionFromCode(code uint32) (Permission, bool) {
	for _, p := range Permissions {
		if p.UserCode() == code {
			return p, true
		}
	}
	return 0, false
}

// CanRead returns true if p grants reads.
func (p Permission) CanRead() bool {
	return p.Valid() && p.UserCode()&userRead != 0
}

// CanWrite returns true if p grants writes.
func (p Permission) CanWrite() bool {
	return p.Valid() && p.UserCode()&userWrite != 0
}

// CanExecute returns true if p grants instruction fetch.
func (p Permission) CanExecute() bool {
	return p.Valid() && p.UserCode()&userExec != 0
}

// String implements fmt.Stringer.String.
func (p Permission) String() string {
	switch p {
	case ReadWriteExecute:
		return "ReadWriteExecute"
	case ReadWriteOnly:
		return "ReadWriteOnly"
	case ReadExecuteOnly:
		return "ReadExecuteOnly"
	case ReadOnly:
		return "ReadOnly"
	case ExecuteOnly:
		return "ExecuteOnly"
	default:
		return fmt.Sprintf("Permission(%d)", uint8(p))
	}
}

// ShortString returns a three-character rwx string for p.
func (p Permission) ShortString() string {
	if !p.Valid() {
		return "???"
	}
	return codeString(p.UserCode())
}

func codeString(code uint32) string {
	b := []byte("---")
	if code&userRead != 0 {
		b[0] = 'r'
	}
	if code&userWrite != 0 {
		b[1] = 'w'
	}
	if code&userExec != 0 {
		b[2] = 'x'
	}
	return string(b)
}

// ParsePermission parses either a Permission name or its rwx form ("rw",
// "r-x", "rwx"). Matching is case insensitive.
func ParsePermission(s string) (Permission, error) {
	for _, p := range Permissions {
		if strings.EqualFold(s, p.String()) {
			return p, nil
		}
	}
	var code uint32
	for _, c := range strings.ToLower(s) {
		switch c {
		case 'r':
			code |= userRead
		case 'w':
			code |= userWrite
		case 'x':
			code |= userExec
		case '-':
		default:
			return 0, fmt.Errorf("invalid permission %q", s)
		}
	}
	if p, ok := PermissionFromCode(code); ok {
		return p, nil
	}
	return 0, fmt.Errorf("permission %q is not supported by the MPU", s)
}

// SupervisorMode is the 2-bit supervisor mode access code.
type SupervisorMode uint8

const (
	// SupervisorReadWriteExecute gives privileged code unrestricted access.
	SupervisorReadWriteExecute SupervisorMode = 0

	// SupervisorReadExecute gives privileged code read and fetch access.
	SupervisorReadExecute SupervisorMode = 1

	// SupervisorReadWrite gives privileged code read and write access.
	SupervisorReadWrite SupervisorMode = 2

	// SupervisorSameAsUser restricts privileged code to the user mode field.
	SupervisorSameAsUser SupervisorMode = 3
)

// String implements fmt.Stringer.String.
func (s SupervisorMode) String() string {
	switch s {
	case SupervisorReadWriteExecute:
		return "rwx"
	case SupervisorReadExecute:
		return "r-x"
	case SupervisorReadWrite:
		return "rw-"
	case SupervisorSameAsUser:
		return "user"
	default:
		return fmt.Sprintf("SupervisorMode(%d)", uint8(s))
	}
}

func supervisorMode(asUser bool) SupervisorMode {
	if asUser {
		return SupervisorSameAsUser
	}
	return SupervisorReadWriteExecute
}
