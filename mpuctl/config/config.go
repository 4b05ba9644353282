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

// Package config holds the mpuctl board configuration.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"kinetis.dev/kmpu/pkg/loader"
	"kinetis.dev/kmpu/pkg/log"
	"kinetis.dev/kmpu/pkg/mpu"
)

// Config describes a board and the processes to place on it.
type Config struct {
	MPU       MPU       `toml:"mpu"`
	Memory    Memory    `toml:"memory"`
	Log       Log       `toml:"log"`
	Processes []Process `toml:"process"`
}

// MPU selects the register block and the managed bus master.
type MPU struct {
	// Base is the physical address of the register block.
	Base uint32 `toml:"base"`

	// BusMaster is the master whose access control fields are written.
	BusMaster uint8 `toml:"bus_master"`
}

// Memory is the flash and RAM available to processes.
type Memory struct {
	FlashStart uint32 `toml:"flash_start"`
	FlashSize  uint32 `toml:"flash_size"`
	RAMStart   uint32 `toml:"ram_start"`
	RAMSize    uint32 `toml:"ram_size"`
}

// Loader converts m for the loader.
func (m Memory) Loader() loader.Memory {
	return loader.Memory{
		FlashStart: m.FlashStart,
		FlashSize:  m.FlashSize,
		RAMStart:   m.RAMStart,
		RAMSize:    m.RAMSize,
	}
}

// Log configures logging.
type Log struct {
	Level  log.Level `toml:"level"`
	Format string    `toml:"format"`
}

// Process is one process image.
type Process struct {
	Name       string `toml:"name"`
	FlashSize  uint32 `toml:"flash_size"`
	MinRAM     uint32 `toml:"min_ram"`
	AppSize    uint32 `toml:"app_size"`
	KernelSize uint32 `toml:"kernel_size"`
}

// Image converts p for the loader.
func (p Process) Image() loader.Image {
	return loader.Image{
		Name:       p.Name,
		FlashSize:  p.FlashSize,
		MinRAM:     p.MinRAM,
		AppSize:    p.AppSize,
		KernelSize: p.KernelSize,
	}
}

// Load reads and validates the board file at path.
func Load(path string) (*Config, error) {
	var c Config
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return nil, fmt.Errorf("error decoding %q: %w", path, err)
	}
	if err := c.finish(md); err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	return &c, nil
}

// Parse is like Load for a board file held in data.
func Parse(data string) (*Config, error) {
	var c Config
	md, err := toml.Decode(data, &c)
	if err != nil {
		return nil, err
	}
	if err := c.finish(md); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) finish(md toml.MetaData) error {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys %v", undecoded)
	}
	if !md.IsDefined("mpu", "base") {
		c.MPU.Base = mpu.BaseAddress
	}
	if !md.IsDefined("log", "level") {
		c.Log.Level = log.Info
	}
	if c.Log.Format == "" {
		c.Log.Format = log.FormatText
	}
	return c.Validate()
}

// Validate checks c for values the loader or MPU cannot use.
func (c *Config) Validate() error {
	if !mpu.BusMaster(c.MPU.BusMaster).Valid() {
		return fmt.Errorf("bus_master %d out of range [0, %d)", c.MPU.BusMaster, mpu.NumBusMasters)
	}
	if c.MPU.Base%4 != 0 {
		return fmt.Errorf("base %#x is not word aligned", c.MPU.Base)
	}
	if err := checkPool("flash", c.Memory.FlashStart, c.Memory.FlashSize); err != nil {
		return err
	}
	if err := checkPool("ram", c.Memory.RAMStart, c.Memory.RAMSize); err != nil {
		return err
	}
	switch c.Log.Format {
	case log.FormatText, log.FormatJSON:
	default:
		return fmt.Errorf("invalid log format %q, must be %q or %q", c.Log.Format, log.FormatText, log.FormatJSON)
	}

	names := make(map[string]struct{})
	for i, p := range c.Processes {
		if p.Name == "" {
			return fmt.Errorf("process %d has no name", i)
		}
		if _, ok := names[p.Name]; ok {
			return fmt.Errorf("duplicate process name %q", p.Name)
		}
		names[p.Name] = struct{}{}
		if p.FlashSize == 0 {
			return fmt.Errorf("process %q: flash_size must be set", p.Name)
		}
	}
	return nil
}

func checkPool(name string, start, size uint32) error {
	if size == 0 {
		return fmt.Errorf("%s_size must be set", name)
	}
	if start%mpu.Granule != 0 || size%mpu.Granule != 0 {
		return fmt.Errorf("%s [%#x, +%#x) is not %d byte aligned", name, start, size, mpu.Granule)
	}
	if uint64(start)+uint64(size) > 1<<32 {
		return fmt.Errorf("%s [%#x, +%#x) wraps the address space", name, start, size)
	}
	return nil
}
