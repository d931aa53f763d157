// Copyright 2025 The EmberFS Authors.
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

// Binary emberfs manipulates ext2 filesystem images: formatting, file
// transfer in and out, and directory maintenance.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"emberfs.dev/emberfs/cmd/emberfs/cmd"
)

var debug = flag.Bool("debug", false, "enable debug logging")

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")

	subcommands.Register(new(cmd.Mkfs), "image")
	subcommands.Register(new(cmd.Df), "image")

	subcommands.Register(new(cmd.Ls), "files")
	subcommands.Register(new(cmd.Cat), "files")
	subcommands.Register(new(cmd.Put), "files")
	subcommands.Register(new(cmd.Get), "files")
	subcommands.Register(new(cmd.Stat), "files")
	subcommands.Register(new(cmd.Mkdir), "files")
	subcommands.Register(new(cmd.Rm), "files")
	subcommands.Register(new(cmd.Rmdir), "files")

	flag.Parse()

	logrus.SetOutput(os.Stderr)
	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	os.Exit(int(subcommands.Execute(context.Background())))
}
