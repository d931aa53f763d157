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

// Package cmd holds the emberfs subcommands.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"emberfs.dev/emberfs/pkg/blockdev"
	"emberfs.dev/emberfs/pkg/ext2"
	"emberfs.dev/emberfs/pkg/vfs"
)

// Fatalf logs to stderr and exits with failure.
func Fatalf(format string, args ...interface{}) {
	logrus.Errorf(format, args...)
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(128)
}

// withImage mounts the image at path, runs fn against it and unmounts,
// flushing metadata, regardless of fn's outcome.
func withImage(path string, fn func(v *vfs.VirtualFilesystem, fs *ext2.Filesystem) error) error {
	if path == "" {
		return fmt.Errorf("missing --image flag")
	}
	dev, err := blockdev.OpenFileDevice(path)
	if err != nil {
		return fmt.Errorf("opening image %q: %w", path, err)
	}
	defer dev.Close()

	fs, err := ext2.Mount(dev)
	if err != nil {
		return fmt.Errorf("mounting image %q: %w", path, err)
	}

	v := vfs.New()
	if err := v.MountRoot(fs.VFS()); err != nil {
		return err
	}

	ferr := fn(v, fs)

	if err := v.UnmountRoot(); err != nil && ferr == nil {
		ferr = err
	}
	if err := fs.Unmount(); err != nil && ferr == nil {
		ferr = err
	}
	return ferr
}

// typeChar maps a node type to its listing tag.
func typeChar(t vfs.NodeType) byte {
	switch t {
	case vfs.TypeDirectory:
		return 'd'
	case vfs.TypePipe:
		return 'p'
	default:
		return '-'
	}
}
