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

package vfs

// DirentCallback receives one directory entry per call. Returning false
// stops the listing early.
type DirentCallback func(name string, inode uint32, fileType uint8) bool

// FilesystemImpl is the contract a concrete filesystem fulfills to be
// mountable. The VFS owns paths and descriptors; the implementation owns
// everything below the node.
//
// Node arguments are always nodes the implementation itself handed out,
// and dir arguments are always directories — the VFS checks types before
// dispatching.
type FilesystemImpl interface {
	// Name identifies the filesystem type, e.g. "ext2".
	Name() string

	// Root returns the root directory node.
	Root() (*Node, error)

	// Lookup finds name directly under dir.
	Lookup(dir *Node, name string) (*Node, error)

	// ReadDir lists dir's live entries.
	ReadDir(dir *Node, fn DirentCallback) error

	// Read copies file contents from byte offset off into dst, returning
	// the count. Reads past the end return 0.
	Read(n *Node, off uint32, dst []byte) (int, error)

	// Write stores src at byte offset off, growing the file as needed,
	// and keeps n.Size current.
	Write(n *Node, off uint32, src []byte) (int, error)

	// Create makes an empty regular file under dir.
	Create(dir *Node, name string, perm uint16) (*Node, error)

	// Mkdir makes an empty directory under dir.
	Mkdir(dir *Node, name string, perm uint16) error

	// Unlink removes the regular file name from dir.
	Unlink(dir *Node, name string) error

	// Rmdir removes the empty directory name from dir.
	Rmdir(dir *Node, name string) error

	// Sync flushes cached metadata to stable storage.
	Sync() error
}

// Truncater is implemented by filesystems that can discard a file's
// contents in place; Open uses it for O_TRUNC.
type Truncater interface {
	Truncate(n *Node) error
}
