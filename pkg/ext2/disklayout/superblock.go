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

	"emberfs.dev/emberfs/pkg/syserr"
)

// SuperBlock mirrors the ext2 superblock record. It sums to exactly 1024
// bytes and lives at byte offset 1024 of the volume regardless of block
// size.
//
// The mounted filesystem caches one copy in memory; that copy is the single
// source of truth for the free counts during a mount session and is flushed
// back to media on unmount.
type SuperBlock struct {
	InodesCount         uint32
	BlocksCount         uint32
	ReservedBlocksCount uint32
	FreeBlocksCount     uint32
	FreeInodesCount     uint32
	FirstDataBlock      uint32
	LogBlockSize        uint32
	LogFragSize         uint32
	BlocksPerGroup      uint32
	FragsPerGroup       uint32
	InodesPerGroup      uint32
	MountTime           uint32
	WriteTime           uint32
	MountCount          uint16
	MaxMountCount       uint16
	MagicRaw            uint16
	State               uint16
	Errors              uint16
	MinorRevLevel       uint16
	LastCheck           uint32
	CheckInterval       uint32
	CreatorOS           uint32
	RevLevel            uint32
	DefResUID           uint16
	DefResGID           uint16

	// Extended fields (revision >= 1).
	FirstInodeRaw   uint32
	InodeSizeRaw    uint16
	BlockGroupNr    uint16
	FeatureCompat   uint32
	FeatureIncompat uint32
	FeatureROCompat uint32
	UUID            [16]byte
	VolumeName      [16]byte
	LastMounted     [64]byte
	AlgoUsageBitmap uint32

	PreallocBlocks    uint8
	PreallocDirBlocks uint8
	_                 uint16

	// Journaling fields (ext3); carried but unused.
	JournalUUID [16]byte
	JournalInum uint32
	JournalDev  uint32
	LastOrphan  uint32

	_ [197]uint32
}

// BlockSize returns the filesystem block size in bytes.
func (sb *SuperBlock) BlockSize() uint32 { return MinBlockSize << sb.LogBlockSize }

// GroupCount returns the number of block groups on the volume.
func (sb *SuperBlock) GroupCount() uint32 {
	return (sb.BlocksCount + sb.BlocksPerGroup - 1) / sb.BlocksPerGroup
}

// InodeSize returns the on-disk inode record size. Revision 0 filesystems
// leave the field zero, meaning the classic 128-byte record.
func (sb *SuperBlock) InodeSize() uint32 {
	if sb.InodeSizeRaw > 0 {
		return uint32(sb.InodeSizeRaw)
	}
	return InodeSize
}

// FirstInode returns the first allocatable inode number. Revision 0
// filesystems leave the field zero, meaning the classic threshold of 11.
func (sb *SuperBlock) FirstInode() uint32 {
	if sb.FirstInodeRaw > 0 {
		return sb.FirstInodeRaw
	}
	return FirstNonReservedInode
}

// Validate checks the signature and geometry. It is the gate a mount must
// pass before any other superblock field is trusted.
func (sb *SuperBlock) Validate() error {
	if sb.MagicRaw != Magic {
		return syserr.ErrBadMagic
	}
	bs := sb.BlockSize()
	if bs < MinBlockSize || bs > MaxBlockSize {
		return syserr.ErrCorrupt
	}
	if sb.BlocksPerGroup == 0 || sb.InodesPerGroup == 0 {
		return syserr.ErrCorrupt
	}
	return nil
}

// UnmarshalBytes decodes the superblock from its 1024-byte on-disk form.
func (sb *SuperBlock) UnmarshalBytes(b []byte) error {
	return binary.Read(bytes.NewReader(b), binary.LittleEndian, sb)
}

// MarshalBytes encodes the superblock into its 1024-byte on-disk form.
func (sb *SuperBlock) MarshalBytes() []byte {
	var buf bytes.Buffer
	buf.Grow(SbSize)
	if err := binary.Write(&buf, binary.LittleEndian, sb); err != nil {
		panic(err) // All fields are fixed-size; cannot fail.
	}
	return buf.Bytes()
}
