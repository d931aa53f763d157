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

	"github.com/google/subcommands"

	"emberfs.dev/emberfs/pkg/ext2"
	"emberfs.dev/emberfs/pkg/vfs"
)

// Stat implements subcommands.Command for the "stat" command.
type Stat struct {
	image string
}

// Name implements subcommands.Command.Name.
func (*Stat) Name() string { return "stat" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Stat) Synopsis() string { return "describe paths inside the image" }

// Usage implements subcommands.Command.Usage.
func (*Stat) Usage() string {
	return `stat --image <path> <path> [...] - describe paths inside the image
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Stat) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.image, "image", "", "path of the image file")
}

// Execute implements subcommands.Command.Execute.
func (s *Stat) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	err := withImage(s.image, func(v *vfs.VirtualFilesystem, _ *ext2.Filesystem) error {
		for _, path := range f.Args() {
			st, err := v.Stat(path)
			if err != nil {
				return fmt.Errorf("stat %q: %w", path, err)
			}
			fmt.Printf("%s: type %c inode %d size %d\n", path, typeChar(st.Type), st.Ino, st.Size)
		}
		return nil
	})
	if err != nil {
		Fatalf("stat: %v", err)
	}
	return subcommands.ExitSuccess
}

// Df implements subcommands.Command for the "df" command.
type Df struct {
	image string
}

// Name implements subcommands.Command.Name.
func (*Df) Name() string { return "df" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Df) Synopsis() string { return "report image space usage" }

// Usage implements subcommands.Command.Usage.
func (*Df) Usage() string {
	return `df --image <path> - report image space usage
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (d *Df) SetFlags(f *flag.FlagSet) {
	f.StringVar(&d.image, "image", "", "path of the image file")
}

// Execute implements subcommands.Command.Execute.
func (d *Df) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	err := withImage(d.image, func(_ *vfs.VirtualFilesystem, fs *ext2.Filesystem) error {
		sb := fs.SuperBlock()
		bs := fs.BlockSize()
		fmt.Printf("block size:   %d\n", bs)
		fmt.Printf("blocks:       %d (%d free)\n", sb.BlocksCount, sb.FreeBlocksCount)
		fmt.Printf("inodes:       %d (%d free)\n", sb.InodesCount, sb.FreeInodesCount)
		fmt.Printf("groups:       %d\n", sb.GroupCount())
		fmt.Printf("used:         %d KiB of %d KiB\n",
			(sb.BlocksCount-sb.FreeBlocksCount)*bs/1024, sb.BlocksCount*bs/1024)
		return nil
	})
	if err != nil {
		Fatalf("df: %v", err)
	}
	return subcommands.ExitSuccess
}
