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

package ext2

import (
	"emberfs.dev/emberfs/pkg/ext2/disklayout"
	"emberfs.dev/emberfs/pkg/syserr"
	"emberfs.dev/emberfs/pkg/vfs"
)

// vfsFilesystem adapts a mounted Filesystem to the vfs mount contract.
// Nodes carry only the inode number; the record is re-read per operation,
// so two nodes for the same inode cannot go stale against each other.
type vfsFilesystem struct {
	fs *Filesystem
}

var _ vfs.FilesystemImpl = (*vfsFilesystem)(nil)
var _ vfs.Truncater = (*vfsFilesystem)(nil)

// VFS returns the adapter that lets this filesystem be mounted as the
// root of a vfs.VirtualFilesystem.
func (fs *Filesystem) VFS() vfs.FilesystemImpl {
	return &vfsFilesystem{fs: fs}
}

// Name implements vfs.FilesystemImpl.Name.
func (*vfsFilesystem) Name() string { return "ext2" }

func (x *vfsFilesystem) nodeFor(name string, ino uint32) (*vfs.Node, error) {
	in, err := x.fs.ReadInode(ino)
	if err != nil {
		return nil, err
	}
	typ := vfs.TypeFile
	if in.IsDir() {
		typ = vfs.TypeDirectory
	} else if !in.IsRegular() {
		// Device nodes and the like are not representable here.
		return nil, syserr.ErrInvalid
	}
	return &vfs.Node{Name: name, Ino: ino, Size: in.Size, Type: typ, FS: x}, nil
}

// Root implements vfs.FilesystemImpl.Root.
func (x *vfsFilesystem) Root() (*vfs.Node, error) {
	return x.nodeFor("/", disklayout.RootInode)
}

// Lookup implements vfs.FilesystemImpl.Lookup.
func (x *vfsFilesystem) Lookup(dir *vfs.Node, name string) (*vfs.Node, error) {
	ino, err := x.fs.Lookup(dir.Ino, name)
	if err != nil {
		return nil, err
	}
	return x.nodeFor(name, ino)
}

// ReadDir implements vfs.FilesystemImpl.ReadDir.
func (x *vfsFilesystem) ReadDir(dir *vfs.Node, fn vfs.DirentCallback) error {
	return x.fs.ListDir(dir.Ino, fn)
}

// Read implements vfs.FilesystemImpl.Read.
func (x *vfsFilesystem) Read(n *vfs.Node, off uint32, dst []byte) (int, error) {
	return x.fs.ReadFileAt(n.Ino, off, dst)
}

// Write implements vfs.FilesystemImpl.Write.
func (x *vfsFilesystem) Write(n *vfs.Node, off uint32, src []byte) (int, error) {
	count, err := x.fs.WriteFileAt(n.Ino, off, src)
	if end := off + uint32(count); end > n.Size {
		n.Size = end
	}
	return count, err
}

// Create implements vfs.FilesystemImpl.Create.
func (x *vfsFilesystem) Create(dir *vfs.Node, name string, perm uint16) (*vfs.Node, error) {
	ino, err := x.fs.CreateFile(dir.Ino, name, perm)
	if err != nil {
		return nil, err
	}
	return x.nodeFor(name, ino)
}

// Mkdir implements vfs.FilesystemImpl.Mkdir.
func (x *vfsFilesystem) Mkdir(dir *vfs.Node, name string, perm uint16) error {
	_, err := x.fs.CreateDir(dir.Ino, name, perm)
	return err
}

// Unlink implements vfs.FilesystemImpl.Unlink.
func (x *vfsFilesystem) Unlink(dir *vfs.Node, name string) error {
	return x.fs.RemoveFile(dir.Ino, name)
}

// Rmdir implements vfs.FilesystemImpl.Rmdir.
func (x *vfsFilesystem) Rmdir(dir *vfs.Node, name string) error {
	return x.fs.RemoveDir(dir.Ino, name)
}

// Sync implements vfs.FilesystemImpl.Sync.
func (x *vfsFilesystem) Sync() error {
	return x.fs.flushMetadata()
}

// Truncate implements vfs.Truncater.
func (x *vfsFilesystem) Truncate(n *vfs.Node) error {
	if err := x.fs.Truncate(n.Ino); err != nil {
		return err
	}
	n.Size = 0
	return nil
}
