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

// Package ext2 implements a read/write ext2 filesystem driver over a sector
// block device.
//
// The driver assumes a single active execution context: bitmap scans, inode
// table updates and directory mutations are performed with no internal
// locking. Callers that introduce concurrency must serialize access to a
// Filesystem with one coarse exclusive guard.
package ext2

import (
	"github.com/sirupsen/logrus"

	"emberfs.dev/emberfs/pkg/blockdev"
	"emberfs.dev/emberfs/pkg/ext2/disklayout"
	"emberfs.dev/emberfs/pkg/syserr"
)

// Filesystem is one mounted ext2 instance. The cached superblock and group
// descriptor table are the single source of truth while mounted; both are
// flushed back to media by Unmount.
type Filesystem struct {
	dev blockdev.Device

	sb     *disklayout.SuperBlock
	groups []disklayout.BlockGroup

	blockSize       uint32
	sectorsPerBlock uint32
	numGroups       uint32
	inodesPerBlock  uint32
}

// Mount reads and validates the superblock, loads the group descriptor
// table and checks the free-count invariant. It either returns a fully
// usable Filesystem or an error; there is no partially mounted state.
func Mount(dev blockdev.Device) (*Filesystem, error) {
	fs := &Filesystem{dev: dev}

	// The superblock always lives at byte offset 1024, i.e. sectors 2 and 3.
	sbBuf := make([]byte, disklayout.SbSize)
	for i := uint32(0); i < disklayout.SbSize/blockdev.SectorSize; i++ {
		off := i * blockdev.SectorSize
		if err := dev.ReadSector(disklayout.SbOffset/blockdev.SectorSize+i, sbBuf[off:off+blockdev.SectorSize]); err != nil {
			return nil, err
		}
	}

	sb := &disklayout.SuperBlock{}
	if err := sb.UnmarshalBytes(sbBuf); err != nil {
		return nil, syserr.ErrCorrupt
	}
	if err := sb.Validate(); err != nil {
		return nil, err
	}

	fs.sb = sb
	fs.blockSize = sb.BlockSize()
	fs.sectorsPerBlock = fs.blockSize / blockdev.SectorSize
	fs.numGroups = sb.GroupCount()
	fs.inodesPerBlock = fs.blockSize / sb.InodeSize()

	// The group descriptor table starts in the block after the superblock's.
	descPerBlock := fs.blockSize / disklayout.BlockGroupSize
	gdtBlocks := (fs.numGroups + descPerBlock - 1) / descPerBlock
	gdt := make([]byte, 0, gdtBlocks*fs.blockSize)
	for i := uint32(0); i < gdtBlocks; i++ {
		blk, err := fs.readBlock(sb.FirstDataBlock + 1 + i)
		if err != nil {
			return nil, err
		}
		gdt = append(gdt, blk...)
	}

	fs.groups = make([]disklayout.BlockGroup, fs.numGroups)
	for g := range fs.groups {
		off := uint32(g) * disklayout.BlockGroupSize
		if err := fs.groups[g].UnmarshalBytes(gdt[off : off+disklayout.BlockGroupSize]); err != nil {
			return nil, syserr.ErrCorrupt
		}
	}

	// Per-group free counts must sum to the superblock's global counts.
	var freeBlocks, freeInodes uint32
	for g := range fs.groups {
		freeBlocks += uint32(fs.groups[g].FreeBlocksCount)
		freeInodes += uint32(fs.groups[g].FreeInodesCount)
	}
	if freeBlocks != sb.FreeBlocksCount || freeInodes != sb.FreeInodesCount {
		logrus.WithFields(logrus.Fields{
			"group_free_blocks": freeBlocks,
			"sb_free_blocks":    sb.FreeBlocksCount,
			"group_free_inodes": freeInodes,
			"sb_free_inodes":    sb.FreeInodesCount,
		}).Error("ext2: free count mismatch between groups and superblock")
		return nil, syserr.ErrCorrupt
	}

	// The root directory is always inode 2.
	root, err := fs.ReadInode(disklayout.RootInode)
	if err != nil {
		return nil, err
	}
	if !root.IsDir() {
		return nil, syserr.ErrCorrupt
	}

	logrus.WithFields(logrus.Fields{
		"blocks":     sb.BlocksCount,
		"inodes":     sb.InodesCount,
		"block_size": fs.blockSize,
		"groups":     fs.numGroups,
	}).Debug("ext2: mounted")
	return fs, nil
}

// SuperBlock returns the cached superblock.
func (fs *Filesystem) SuperBlock() *disklayout.SuperBlock { return fs.sb }

// BlockSize returns the filesystem block size in bytes.
func (fs *Filesystem) BlockSize() uint32 { return fs.blockSize }

// Unmount flushes the cached superblock and group descriptor table back to
// media and marks the filesystem clean. The Filesystem must not be used
// afterwards.
func (fs *Filesystem) Unmount() error {
	fs.sb.State = disklayout.StateClean
	if err := fs.flushMetadata(); err != nil {
		return err
	}
	logrus.Debug("ext2: unmounted")
	return nil
}

// flushMetadata writes the cached superblock and group descriptors out.
func (fs *Filesystem) flushMetadata() error {
	sbBuf := fs.sb.MarshalBytes()
	for i := uint32(0); i < disklayout.SbSize/blockdev.SectorSize; i++ {
		off := i * blockdev.SectorSize
		if err := fs.dev.WriteSector(disklayout.SbOffset/blockdev.SectorSize+i, sbBuf[off:off+blockdev.SectorSize]); err != nil {
			return err
		}
	}

	descPerBlock := fs.blockSize / disklayout.BlockGroupSize
	gdtBlocks := (fs.numGroups + descPerBlock - 1) / descPerBlock
	gdt := make([]byte, gdtBlocks*fs.blockSize)
	for g := range fs.groups {
		copy(gdt[uint32(g)*disklayout.BlockGroupSize:], fs.groups[g].MarshalBytes())
	}
	for i := uint32(0); i < gdtBlocks; i++ {
		off := i * fs.blockSize
		if err := fs.writeBlock(fs.sb.FirstDataBlock+1+i, gdt[off:off+fs.blockSize]); err != nil {
			return err
		}
	}
	return nil
}

// readBlock reads one filesystem block. The transfer unit at the device
// boundary is the sector; the driver performs the fan-out.
func (fs *Filesystem) readBlock(n uint32) ([]byte, error) {
	buf := make([]byte, fs.blockSize)
	sector := n * fs.sectorsPerBlock
	for i := uint32(0); i < fs.sectorsPerBlock; i++ {
		off := i * blockdev.SectorSize
		if err := fs.dev.ReadSector(sector+i, buf[off:off+blockdev.SectorSize]); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// writeBlock writes one filesystem block.
func (fs *Filesystem) writeBlock(n uint32, buf []byte) error {
	if uint32(len(buf)) != fs.blockSize {
		return syserr.ErrInvalid
	}
	sector := n * fs.sectorsPerBlock
	for i := uint32(0); i < fs.sectorsPerBlock; i++ {
		off := i * blockdev.SectorSize
		if err := fs.dev.WriteSector(sector+i, buf[off:off+blockdev.SectorSize]); err != nil {
			return err
		}
	}
	return nil
}

// zeroBlock writes a zero-filled block to n.
func (fs *Filesystem) zeroBlock(n uint32) error {
	return fs.writeBlock(n, make([]byte, fs.blockSize))
}
