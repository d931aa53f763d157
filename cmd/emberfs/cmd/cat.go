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

package cmd

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"emberfs.dev/emberfs/pkg/ext2"
	"emberfs.dev/emberfs/pkg/vfs"
)

// Cat implements subcommands.Command for the "cat" command.
type Cat struct {
	image string
}

// Name implements subcommands.Command.Name.
func (*Cat) Name() string { return "cat" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Cat) Synopsis() string { return "write files inside the image to stdout" }

// Usage implements subcommands.Command.Usage.
func (*Cat) Usage() string {
	return `cat --image <path> <file> [...] - write files inside the image to stdout
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *Cat) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.image, "image", "", "path of the image file")
}

// Execute implements subcommands.Command.Execute.
func (c *Cat) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	err := withImage(c.image, func(v *vfs.VirtualFilesystem, _ *ext2.Filesystem) error {
		for _, path := range f.Args() {
			if err := catFile(v, path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		Fatalf("cat: %v", err)
	}
	return subcommands.ExitSuccess
}

func catFile(v *vfs.VirtualFilesystem, path string) error {
	fd, err := v.Open(path, vfs.O_RDONLY)
	if err != nil {
		return err
	}
	defer v.Close(fd)

	buf := make([]byte, 4096)
	for {
		n, err := v.Read(fd, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, err := os.Stdout.Write(buf[:n]); err != nil {
			return err
		}
	}
}
