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

package disklayout

import (
	"encoding/binary"

	"emberfs.dev/emberfs/pkg/syserr"
)

// DirentHeaderSize is the fixed prefix of every directory entry: inode (4),
// record length (2), name length (1) and file type (1).
const DirentHeaderSize = 8

// Dirent is one variable-length directory entry. Entries are laid out
// back to back inside a directory's data blocks; within any block the
// record lengths sum exactly to the block size, so an entry also describes
// the free slack after its name. An entry whose Inode is zero is a
// tombstone: dead space pending reuse, never compacted away.
type Dirent struct {
	Inode    uint32
	RecLen   uint16
	NameLen  uint8
	FileType uint8
	Name     string
}

// DirentRecordSize returns the 4-byte aligned on-disk footprint of an entry
// with the given name length.
func DirentRecordSize(nameLen int) uint16 {
	return uint16((DirentHeaderSize + nameLen + 3) &^ 3)
}

// UnmarshalBytes decodes the entry starting at b[0]. b must extend at least
// to the end of the record's name.
func (d *Dirent) UnmarshalBytes(b []byte) error {
	if len(b) < DirentHeaderSize {
		return syserr.ErrCorrupt
	}
	d.Inode = binary.LittleEndian.Uint32(b)
	d.RecLen = binary.LittleEndian.Uint16(b[4:])
	d.NameLen = b[6]
	d.FileType = b[7]
	if d.RecLen < DirentHeaderSize || int(d.RecLen) < DirentHeaderSize+int(d.NameLen) {
		return syserr.ErrCorrupt
	}
	if len(b) < DirentHeaderSize+int(d.NameLen) {
		return syserr.ErrCorrupt
	}
	d.Name = string(b[DirentHeaderSize : DirentHeaderSize+int(d.NameLen)])
	return nil
}

// MarshalBytes encodes the entry into b, which must be at least RecLen
// bytes. Bytes between the end of the name and RecLen are left untouched;
// they are slack belonging to this record.
func (d *Dirent) MarshalBytes(b []byte) {
	binary.LittleEndian.PutUint32(b, d.Inode)
	binary.LittleEndian.PutUint16(b[4:], d.RecLen)
	b[6] = d.NameLen
	b[7] = d.FileType
	copy(b[DirentHeaderSize:], d.Name)
}
