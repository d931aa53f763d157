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

// Package disklayout provides bit-exact representations of the ext2 on-disk
// structures: superblock, block group descriptor, inode and directory
// entry.
//
// All multi-byte fields are little-endian and the records are packed with
// no implicit padding, so images written here are readable by standard ext2
// tooling and vice versa. Fixed-size records round-trip through
// encoding/binary; the variable-length directory entry has a hand-written
// codec.
package disklayout

// Superblock location and size. The first 1024 bytes of the volume are
// reserved for boot blocks.
const (
	SbOffset = 1024
	SbSize   = 1024
)

// Magic is the ext2 superblock signature.
const Magic = 0xEF53

// Block size bounds. The actual block size is 1024 << LogBlockSize.
const (
	MinBlockSize = 1024
	MaxBlockSize = 4096
)

// Well-known inode numbers. Inode 0 is invalid on disk and doubles as the
// "no inode" sentinel throughout the driver.
const (
	RootInode             = 2
	FirstNonReservedInode = 11
)

// InodeSize is the on-disk inode record size.
const InodeSize = 128

// Block pointer slots in an inode: 12 direct pointers followed by the
// single, double and triple indirect pointers.
const (
	NDirectBlocks = 12
	IndBlock      = 12
	DIndBlock     = 13
	TIndBlock     = 14
	NBlocks       = 15
)

// MaxNameLen is the longest permitted directory entry name.
const MaxNameLen = 255

// Filesystem states recorded in the superblock.
const (
	StateClean  = 1
	StateErrors = 2
)

// Inode mode type bits.
const (
	ModeTypeMask  = 0xF000
	ModeSocket    = 0xC000
	ModeSymlink   = 0xA000
	ModeRegular   = 0x8000
	ModeBlockDev  = 0x6000
	ModeDirectory = 0x4000
	ModeCharDev   = 0x2000
	ModeFIFO      = 0x1000
)

// Directory entry file type tags.
const (
	FTUnknown  = 0
	FTRegular  = 1
	FTDir      = 2
	FTCharDev  = 3
	FTBlockDev = 4
	FTFIFO     = 5
	FTSocket   = 6
	FTSymlink  = 7
)
