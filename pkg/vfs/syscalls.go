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

import (
	"github.com/sirupsen/logrus"

	"emberfs.dev/emberfs/pkg/syserr"
)

// Open resolves path and returns a new descriptor for it. With O_CREAT a
// missing final component is created in its parent directory, which may be
// any resolvable directory, not just the root. O_TRUNC discards existing
// contents and O_APPEND starts the offset at the current end. Directories
// cannot be opened.
func (v *VirtualFilesystem) Open(path string, flags uint32) (int, error) {
	norm, err := NormalizePath("/", path)
	if err != nil {
		return -1, err
	}

	node, err := v.resolve(norm)
	if err == syserr.ErrNotFound && flags&O_CREAT != 0 {
		node, err = v.createAt(norm)
	}
	if err != nil {
		return -1, err
	}
	if node.Type == TypeDirectory {
		return -1, syserr.ErrIsDir
	}

	writable := flags&O_ACCMODE != O_RDONLY
	if flags&O_TRUNC != 0 && writable && node.Size > 0 {
		t, ok := node.FS.(Truncater)
		if !ok {
			return -1, syserr.ErrInvalid
		}
		if err := t.Truncate(node); err != nil {
			return -1, err
		}
	}

	fd, err := v.allocFD()
	if err != nil {
		return -1, err
	}
	f := &v.files[fd]
	f.node = node
	f.flags = flags
	if flags&O_APPEND != 0 {
		f.pos = node.Size
	}
	logrus.WithFields(logrus.Fields{"path": norm, "fd": fd}).Debug("vfs: open")
	return fd, nil
}

// createAt creates an empty file at the normalized path norm.
func (v *VirtualFilesystem) createAt(norm string) (*Node, error) {
	dir, base := SplitPath(norm)
	if base == "" {
		return nil, syserr.ErrInvalid
	}
	parent, err := v.resolve(dir)
	if err != nil {
		return nil, err
	}
	if parent.Type != TypeDirectory {
		return nil, syserr.ErrNotDir
	}
	return parent.FS.Create(parent, base, DefaultFileMode)
}

// Read copies up to len(dst) bytes from the descriptor's current offset
// and advances it by the count read.
func (v *VirtualFilesystem) Read(fd int, dst []byte) (int, error) {
	f, err := v.getFile(fd)
	if err != nil {
		return 0, err
	}
	if f.pipe != nil {
		return f.pipe.Read(dst)
	}
	if f.flags&O_ACCMODE == O_WRONLY {
		return 0, syserr.ErrAccess
	}
	n, err := f.node.FS.Read(f.node, f.pos, dst)
	f.pos += uint32(n)
	return n, err
}

// Write stores len(src) bytes at the descriptor's current offset and
// advances it by the count written.
func (v *VirtualFilesystem) Write(fd int, src []byte) (int, error) {
	f, err := v.getFile(fd)
	if err != nil {
		return 0, err
	}
	if f.pipe != nil {
		return f.pipe.Write(src)
	}
	if f.flags&O_ACCMODE == O_RDONLY {
		return 0, syserr.ErrAccess
	}
	n, err := f.node.FS.Write(f.node, f.pos, src)
	f.pos += uint32(n)
	return n, err
}

// Seek repositions the descriptor's offset. A move that would land before
// byte zero fails and leaves the offset untouched. Pipes do not seek.
func (v *VirtualFilesystem) Seek(fd int, offset int64, whence int) (uint32, error) {
	f, err := v.getFile(fd)
	if err != nil {
		return 0, err
	}
	if f.pipe != nil {
		return 0, syserr.ErrInvalid
	}

	var base int64
	switch whence {
	case SeekSet:
		base = 0
	case SeekCur:
		base = int64(f.pos)
	case SeekEnd:
		base = int64(f.node.Size)
	default:
		return 0, syserr.ErrInvalid
	}
	pos := base + offset
	if pos < 0 {
		return 0, syserr.ErrInvalid
	}
	f.pos = uint32(pos)
	return f.pos, nil
}

// Mkdir creates a directory at path.
func (v *VirtualFilesystem) Mkdir(path string) error {
	norm, err := NormalizePath("/", path)
	if err != nil {
		return err
	}
	dir, base := SplitPath(norm)
	if base == "" {
		return syserr.ErrExists // Only "/" has an empty base.
	}
	parent, err := v.resolve(dir)
	if err != nil {
		return err
	}
	if parent.Type != TypeDirectory {
		return syserr.ErrNotDir
	}
	return parent.FS.Mkdir(parent, base, DefaultFileMode|0o111)
}

// Rmdir removes the empty directory at path.
func (v *VirtualFilesystem) Rmdir(path string) error {
	norm, err := NormalizePath("/", path)
	if err != nil {
		return err
	}
	dir, base := SplitPath(norm)
	if base == "" {
		return syserr.ErrInvalid // The root is not removable.
	}
	parent, err := v.resolve(dir)
	if err != nil {
		return err
	}
	if parent.Type != TypeDirectory {
		return syserr.ErrNotDir
	}
	return parent.FS.Rmdir(parent, base)
}

// Unlink removes the regular file at path.
func (v *VirtualFilesystem) Unlink(path string) error {
	norm, err := NormalizePath("/", path)
	if err != nil {
		return err
	}
	dir, base := SplitPath(norm)
	if base == "" {
		return syserr.ErrIsDir
	}
	parent, err := v.resolve(dir)
	if err != nil {
		return err
	}
	if parent.Type != TypeDirectory {
		return syserr.ErrNotDir
	}
	return parent.FS.Unlink(parent, base)
}

// Stat describes a resolved node.
type Stat struct {
	Name string
	Ino  uint32
	Size uint32
	Type NodeType
}

// Stat resolves path and reports the node behind it.
func (v *VirtualFilesystem) Stat(path string) (Stat, error) {
	norm, err := NormalizePath("/", path)
	if err != nil {
		return Stat{}, err
	}
	node, err := v.resolve(norm)
	if err != nil {
		return Stat{}, err
	}
	return Stat{Name: node.Name, Ino: node.Ino, Size: node.Size, Type: node.Type}, nil
}

// Exists reports whether path resolves. Resolution errors other than
// absence read as absence.
func (v *VirtualFilesystem) Exists(path string) bool {
	_, err := v.Stat(path)
	return err == nil
}

// ReadDir lists the directory at path.
func (v *VirtualFilesystem) ReadDir(path string, fn DirentCallback) error {
	norm, err := NormalizePath("/", path)
	if err != nil {
		return err
	}
	node, err := v.resolve(norm)
	if err != nil {
		return err
	}
	if node.Type != TypeDirectory {
		return syserr.ErrNotDir
	}
	return node.FS.ReadDir(node, fn)
}
