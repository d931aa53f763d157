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

// Mkdir implements subcommands.Command for the "mkdir" command.
type Mkdir struct {
	image string
}

// Name implements subcommands.Command.Name.
func (*Mkdir) Name() string { return "mkdir" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Mkdir) Synopsis() string { return "create directories inside the image" }

// Usage implements subcommands.Command.Usage.
func (*Mkdir) Usage() string {
	return `mkdir --image <path> <dir> [...] - create directories inside the image
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (m *Mkdir) SetFlags(f *flag.FlagSet) {
	f.StringVar(&m.image, "image", "", "path of the image file")
}

// Execute implements subcommands.Command.Execute.
func (m *Mkdir) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	err := withImage(m.image, func(v *vfs.VirtualFilesystem, _ *ext2.Filesystem) error {
		for _, dir := range f.Args() {
			if err := v.Mkdir(dir); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		Fatalf("mkdir: %v", err)
	}
	return subcommands.ExitSuccess
}
