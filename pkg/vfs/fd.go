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
	"emberfs.dev/emberfs/pkg/syserr"
)

// fileDescription is one open file: a node or pipe end plus the per-open
// offset and flags. Slots 0-2 start in use with nothing behind them; they
// only become real streams when dup2'd onto.
type fileDescription struct {
	node  *Node
	pipe  Pipe
	flags uint32
	pos   uint32
	inUse bool
}

func (f *fileDescription) reset() {
	*f = fileDescription{}
}

// allocFD claims the lowest free descriptor at or above FirstUserFD.
func (v *VirtualFilesystem) allocFD() (int, error) {
	for fd := FirstUserFD; fd < MaxOpenFiles; fd++ {
		if !v.files[fd].inUse {
			v.files[fd].inUse = true
			return fd, nil
		}
	}
	return -1, syserr.ErrFDExhausted
}

// getFile returns the open descriptor behind fd. A reserved standard
// stream slot with nothing dup2'd onto it is not a usable file.
func (v *VirtualFilesystem) getFile(fd int) (*fileDescription, error) {
	if fd < 0 || fd >= MaxOpenFiles || !v.files[fd].inUse {
		return nil, syserr.ErrBadFD
	}
	f := &v.files[fd]
	if f.node == nil && f.pipe == nil {
		return nil, syserr.ErrBadFD
	}
	return f, nil
}

// Close releases descriptor fd. Pipe ends notify the pipe so it can tear
// down when both sides are gone. Closing a reserved-but-empty standard
// stream slot is an error; the slot stays reserved either way.
func (v *VirtualFilesystem) Close(fd int) error {
	f, err := v.getFile(fd)
	if err != nil {
		return err
	}
	if f.pipe != nil {
		if err := v.closePipeEnd(f); err != nil {
			return err
		}
	}
	if fd < FirstUserFD {
		// Keep the slot reserved, drop what was behind it.
		*f = fileDescription{inUse: true}
		return nil
	}
	f.reset()
	return nil
}

// Dup2 makes newfd refer to the same open file as oldfd, closing whatever
// newfd held first. Duplicating a descriptor onto itself is a no-op. The
// two descriptors share flags but each keeps its own offset from the
// moment of the copy.
func (v *VirtualFilesystem) Dup2(oldfd, newfd int) (int, error) {
	f, err := v.getFile(oldfd)
	if err != nil {
		return -1, err
	}
	if newfd < 0 || newfd >= MaxOpenFiles {
		return -1, syserr.ErrBadFD
	}
	if newfd == oldfd {
		return newfd, nil
	}
	if _, err := v.getFile(newfd); err == nil {
		if err := v.Close(newfd); err != nil {
			return -1, err
		}
	}
	v.files[newfd] = *f
	v.files[newfd].inUse = true
	return newfd, nil
}
