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

// Ls implements subcommands.Command for the "ls" command.
type Ls struct {
	image string
}

// Name implements subcommands.Command.Name.
func (*Ls) Name() string { return "ls" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Ls) Synopsis() string { return "list a directory inside the image" }

// Usage implements subcommands.Command.Usage.
func (*Ls) Usage() string {
	return `ls --image <path> [dir] - list a directory inside the image
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (l *Ls) SetFlags(f *flag.FlagSet) {
	f.StringVar(&l.image, "image", "", "path of the image file")
}

// Execute implements subcommands.Command.Execute.
func (l *Ls) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	dir := "/"
	if f.NArg() > 0 {
		dir = f.Arg(0)
	}
	err := withImage(l.image, func(v *vfs.VirtualFilesystem, _ *ext2.Filesystem) error {
		return v.ReadDir(dir, func(name string, inode uint32, fileType uint8) bool {
			st, err := v.Stat(dir + "/" + name)
			if err != nil {
				fmt.Printf("?%8s %8d %s\n", "?", inode, name)
				return true
			}
			fmt.Printf("%c %8d %8d %s\n", typeChar(st.Type), st.Size, inode, name)
			return true
		})
	})
	if err != nil {
		Fatalf("ls %q: %v", dir, err)
	}
	return subcommands.ExitSuccess
}
