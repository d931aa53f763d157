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

// Package vfs is the filesystem indirection layer: a single mount point,
// path resolution and a fixed table of open file descriptors, with the
// per-filesystem work dispatched through the FilesystemImpl interface.
//
// Like the rest of the storage core it assumes one logical execution
// context and takes no locks.
package vfs

import (
	"github.com/sirupsen/logrus"

	"emberfs.dev/emberfs/pkg/syserr"
)

// Table and path limits.
const (
	// MaxOpenFiles is the size of the descriptor table. Descriptors 0-2
	// are reserved for the standard streams.
	MaxOpenFiles = 16
	// MaxPath bounds a normalized path, including the NUL a C consumer
	// would append.
	MaxPath = 256
	// FirstUserFD is the lowest descriptor Open will hand out.
	FirstUserFD = 3
)

// Open flags.
const (
	O_RDONLY  = 0x0
	O_WRONLY  = 0x1
	O_RDWR    = 0x2
	O_ACCMODE = 0x3
	O_CREAT   = 0x40
	O_TRUNC   = 0x200
	O_APPEND  = 0x400
)

// Seek origins.
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

// DefaultFileMode is the permission bits given to files created through
// Open with O_CREAT.
const DefaultFileMode = 0o644

// NodeType classifies a resolved node.
type NodeType int

const (
	TypeFile NodeType = iota + 1
	TypeDirectory
	TypePipe
)

// Node is a filesystem-agnostic handle to one file or directory. It
// carries identity and size; per-open state (offset, flags) lives in the
// descriptor, so several descriptors can share one node.
type Node struct {
	Name string
	Ino  uint32
	Size uint32
	Type NodeType
	FS   FilesystemImpl
}

// VirtualFilesystem owns the mount point and the descriptor table.
type VirtualFilesystem struct {
	root  FilesystemImpl
	files [MaxOpenFiles]fileDescription
}

// New returns an empty VirtualFilesystem with the standard stream slots
// reserved. They hold no node until something is dup2'd onto them.
func New() *VirtualFilesystem {
	v := &VirtualFilesystem{}
	for fd := 0; fd < FirstUserFD; fd++ {
		v.files[fd].inUse = true
	}
	return v
}

// MountRoot installs fs as the root filesystem. There is exactly one mount
// point; mounting twice is an error.
func (v *VirtualFilesystem) MountRoot(fs FilesystemImpl) error {
	if fs == nil {
		return syserr.ErrInvalid
	}
	if v.root != nil {
		return syserr.ErrExists
	}
	if _, err := fs.Root(); err != nil {
		return err
	}
	v.root = fs
	logrus.WithField("fs", fs.Name()).Info("vfs: mounted root")
	return nil
}

// UnmountRoot flushes the root filesystem and detaches it. Open
// descriptors into it become dangling; the caller closes them first.
func (v *VirtualFilesystem) UnmountRoot() error {
	if v.root == nil {
		return syserr.ErrNotMounted
	}
	if err := v.root.Sync(); err != nil {
		return err
	}
	logrus.WithField("fs", v.root.Name()).Info("vfs: unmounted root")
	v.root = nil
	return nil
}

// resolve walks an already-normalized absolute path component by component
// from the root node.
func (v *VirtualFilesystem) resolve(path string) (*Node, error) {
	if v.root == nil {
		return nil, syserr.ErrNotMounted
	}
	node, err := v.root.Root()
	if err != nil {
		return nil, err
	}
	for _, name := range splitComponents(path) {
		if node.Type != TypeDirectory {
			return nil, syserr.ErrNotDir
		}
		node, err = node.FS.Lookup(node, name)
		if err != nil {
			return nil, err
		}
	}
	return node, nil
}
