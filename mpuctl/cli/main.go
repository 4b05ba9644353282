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

// Package cli is the main entrypoint for mpuctl.
package cli

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/google/subcommands"
	"kinetis.dev/kmpu/mpuctl/cmd"
	"kinetis.dev/kmpu/mpuctl/config"
	"kinetis.dev/kmpu/pkg/log"
)

var (
	configPath = flag.String("config", "", "board file (TOML) describing the MPU, memory and processes.")
	debug      = flag.Bool("debug", false, "enable debug logging.")
	logFormat  = flag.String("log-format", "", "log format: text or json. Overrides the board file.")
	logFile    = flag.String("log", "", "file to append logs to. Logs go to stderr if empty.")
)

// Main is the main entrypoint.
func Main() {
	// Register all commands.
	forEachCmd(subcommands.Register)

	// All subcommands must be registered before flag parsing.
	flag.Parse()

	var conf *config.Config
	if *configPath != "" {
		var err error
		if conf, err = config.Load(*configPath); err != nil {
			cmd.Fatalf("%v", err)
		}
	}

	// Set up logging. Flags override the board file.
	level, format := log.Info, log.FormatText
	if conf != nil {
		level, format = conf.Log.Level, conf.Log.Format
	}
	if *debug {
		level = log.Debug
	}
	if *logFormat != "" {
		format = *logFormat
	}
	var target io.Writer = os.Stderr
	if f, err := log.OpenFile(*logFile); err != nil {
		cmd.Fatalf("error opening log file %q: %v", *logFile, err)
	} else if f != nil {
		target = f
	}
	if err := log.SetTarget(target, format); err != nil {
		cmd.Fatalf("%v", err)
	}
	log.SetLevel(level)
	log.Debugf("Args: %v", os.Args)

	// Call the subcommand and pass in the configuration.
	status := subcommands.Execute(context.Background(), conf)
	if status != subcommands.ExitSuccess {
		log.Warningf("Failure to execute command, err: %v", status)
	}
	os.Exit(int(status))
}

// forEachCmd invokes the passed callback for each command supported by
// mpuctl.
func forEachCmd(cb func(cmd subcommands.Command, group string)) {
	// Help and flags commands are generated automatically.
	cb(subcommands.HelpCommand(), "")
	cb(subcommands.FlagsCommand(), "")
	cb(subcommands.CommandsCommand(), "")

	cb(new(cmd.Plan), "")
	cb(new(cmd.Dump), "")
	cb(new(cmd.Encode), "")
}
