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
	"errors"
	"fmt"
)

var (
	// ErrAllocationFailed is returned when a region cannot be granted. The
	// wrapped message names the reason.
	ErrAllocationFailed = errors.New("MPU region allocation failed")

	// ErrGrowthRejected is returned when the app memory region cannot be
	// moved to a requested break.
	ErrGrowthRejected = errors.New("MPU app memory update rejected")
)

func allocationFailed(format string, v ...any) error {
	return fmt.Errorf("%w: %s", ErrAllocationFailed, fmt.Sprintf(format, v...))
}

func growthRejected(format string, v ...any) error {
	return fmt.Errorf("%w: %s", ErrGrowthRejected, fmt.Sprintf(format, v...))
}
