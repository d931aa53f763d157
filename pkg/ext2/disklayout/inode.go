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
	"bytes"
	"encoding/binary"
)

// Inode mirrors the classic 128-byte ext2 inode record.
//
// All time fields are in seconds since the epoch. BlocksCount counts
// 512-byte units, not filesystem blocks. The Block array holds the 15 block
// pointer slots; a zero pointer means "no block" at every level.
type Inode struct {
	Mode             uint16
	UID              uint16
	Size             uint32
	AccessTime       uint32
	ChangeTime       uint32
	ModificationTime uint32
	DeletionTime     uint32
	GID              uint16
	LinksCount       uint16
	BlocksCount      uint32
	Flags            uint32
	OSD1             uint32
	Block            [NBlocks]uint32
	Generation       uint32
	FileACL          uint32
	DirACL           uint32
	FragAddr         uint32
	OSD2             [12]byte
}

// IsDir returns true if the inode describes a directory.
func (in *Inode) IsDir() bool { return in.Mode&ModeTypeMask == ModeDirectory }

// IsRegular returns true if the inode describes a regular file.
func (in *Inode) IsRegular() bool { return in.Mode&ModeTypeMask == ModeRegular }

// FileType returns the directory entry type tag matching the inode's mode.
func (in *Inode) FileType() uint8 {
	switch in.Mode & ModeTypeMask {
	case ModeRegular:
		return FTRegular
	case ModeDirectory:
		return FTDir
	case ModeCharDev:
		return FTCharDev
	case ModeBlockDev:
		return FTBlockDev
	case ModeFIFO:
		return FTFIFO
	case ModeSocket:
		return FTSocket
	case ModeSymlink:
		return FTSymlink
	}
	return FTUnknown
}

// UnmarshalBytes decodes the inode from its 128-byte on-disk form.
func (in *Inode) UnmarshalBytes(b []byte) error {
	return binary.Read(bytes.NewReader(b), binary.LittleEndian, in)
}

// MarshalBytes encodes the inode into its 128-byte on-disk form.
func (in *Inode) MarshalBytes() []byte {
	var buf bytes.Buffer
	buf.Grow(InodeSize)
	if err := binary.Write(&buf, binary.LittleEndian, in); err != nil {
		panic(err) // All fields are fixed-size; cannot fail.
	}
	return buf.Bytes()
}
