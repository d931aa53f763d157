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
	"fmt"
	"os"

	"github.com/google/subcommands"

	"emberfs.dev/emberfs/pkg/ext2"
	"emberfs.dev/emberfs/pkg/vfs"
)

// Put implements subcommands.Command for the "put" command.
type Put struct {
	image string
}

// Name implements subcommands.Command.Name.
func (*Put) Name() string { return "put" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Put) Synopsis() string { return "copy a local file into the image" }

// Usage implements subcommands.Command.Usage.
func (*Put) Usage() string {
	return `put --image <path> <local file> <image path> - copy a local file into the image
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (p *Put) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.image, "image", "", "path of the image file")
}

// Execute implements subcommands.Command.Execute.
func (p *Put) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	src, dst := f.Arg(0), f.Arg(1)

	data, err := os.ReadFile(src)
	if err != nil {
		Fatalf("reading %q: %v", src, err)
	}

	err = withImage(p.image, func(v *vfs.VirtualFilesystem, _ *ext2.Filesystem) error {
		fd, err := v.Open(dst, vfs.O_WRONLY|vfs.O_CREAT|vfs.O_TRUNC)
		if err != nil {
			return err
		}
		defer v.Close(fd)
		n, err := v.Write(fd, data)
		if err != nil {
			return err
		}
		if n != len(data) {
			return fmt.Errorf("short write: %d of %d bytes", n, len(data))
		}
		return nil
	})
	if err != nil {
		Fatalf("put %q: %v", dst, err)
	}
	fmt.Printf("%s -> %s (%d bytes)\n", src, dst, len(data))
	return subcommands.ExitSuccess
}

// Get implements subcommands.Command for the "get" command.
type Get struct {
	image string
}

// Name implements subcommands.Command.Name.
func (*Get) Name() string { return "get" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Get) Synopsis() string { return "copy a file out of the image" }

// Usage implements subcommands.Command.Usage.
func (*Get) Usage() string {
	return `get --image <path> <image path> <local file> - copy a file out of the image
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (g *Get) SetFlags(f *flag.FlagSet) {
	f.StringVar(&g.image, "image", "", "path of the image file")
}

// Execute implements subcommands.Command.Execute.
func (g *Get) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	src, dst := f.Arg(0), f.Arg(1)

	var data []byte
	err := withImage(g.image, func(v *vfs.VirtualFilesystem, _ *ext2.Filesystem) error {
		fd, err := v.Open(src, vfs.O_RDONLY)
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
			data = append(data, buf[:n]...)
		}
	})
	if err != nil {
		Fatalf("get %q: %v", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		Fatalf("writing %q: %v", dst, err)
	}
	fmt.Printf("%s -> %s (%d bytes)\n", src, dst, len(data))
	return subcommands.ExitSuccess
}
