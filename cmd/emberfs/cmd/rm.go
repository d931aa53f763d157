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

	"github.com/google/subcommands"

	"emberfs.dev/emberfs/pkg/ext2"
	"emberfs.dev/emberfs/pkg/vfs"
)

// Rm implements subcommands.Command for the "rm" command.
type Rm struct {
	image string
}

// Name implements subcommands.Command.Name.
func (*Rm) Name() string { return "rm" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Rm) Synopsis() string { return "remove files inside the image" }

// Usage implements subcommands.Command.Usage.
func (*Rm) Usage() string {
	return `rm --image <path> <file> [...] - remove files inside the image
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Rm) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.image, "image", "", "path of the image file")
}

// Execute implements subcommands.Command.Execute.
func (r *Rm) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	err := withImage(r.image, func(v *vfs.VirtualFilesystem, _ *ext2.Filesystem) error {
		for _, path := range f.Args() {
			if err := v.Unlink(path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		Fatalf("rm: %v", err)
	}
	return subcommands.ExitSuccess
}

// Rmdir implements subcommands.Command for the "rmdir" command.
type Rmdir struct {
	image string
}

// Name implements subcommands.Command.Name.
func (*Rmdir) Name() string { return "rmdir" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Rmdir) Synopsis() string { return "remove empty directories inside the image" }

// Usage implements subcommands.Command.Usage.
func (*Rmdir) Usage() string {
	return `rmdir --image <path> <dir> [...] - remove empty directories inside the image
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Rmdir) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.image, "image", "", "path of the image file")
}

// Execute implements subcommands.Command.Execute.
func (r *Rmdir) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	err := withImage(r.image, func(v *vfs.VirtualFilesystem, _ *ext2.Filesystem) error {
		for _, path := range f.Args() {
			if err := v.Rmdir(path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		Fatalf("rmdir: %v", err)
	}
	return subcommands.ExitSuccess
}
