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

// Pipe is the boundary to an IPC channel implemented elsewhere. The VFS
// only routes descriptor reads, writes and closes to it; buffering and
// blocking policy belong to the implementation. Implementations that allow
// their ends to be duplicated with Dup2 must reference count, since every
// descriptor close notifies its end.
type Pipe interface {
	Read(dst []byte) (int, error)
	Write(src []byte) (int, error)
	CloseRead() error
	CloseWrite() error
}

// CreatePipe wires both ends of p into the descriptor table and returns
// the read and write descriptors, in that order.
func (v *VirtualFilesystem) CreatePipe(p Pipe) (readFD, writeFD int, err error) {
	if p == nil {
		return -1, -1, syserr.ErrInvalid
	}
	readFD, err = v.allocFD()
	if err != nil {
		return -1, -1, err
	}
	writeFD, err = v.allocFD()
	if err != nil {
		v.files[readFD].reset()
		return -1, -1, err
	}
	v.files[readFD] = fileDescription{pipe: p, flags: O_RDONLY, inUse: true}
	v.files[writeFD] = fileDescription{pipe: p, flags: O_WRONLY, inUse: true}
	return readFD, writeFD, nil
}

// closePipeEnd tells the pipe which of its ends just lost a descriptor.
func (v *VirtualFilesystem) closePipeEnd(f *fileDescription) error {
	if f.flags&O_ACCMODE == O_WRONLY {
		return f.pipe.CloseWrite()
	}
	return f.pipe.CloseRead()
}
