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
	"github.com/sirupsen/logrus"

	"emberfs.dev/emberfs/pkg/syserr"
)

// Bitmap bit i of a group's block bitmap covers block
// FirstDataBlock + group*BlocksPerGroup + i; bit i of an inode bitmap covers
// inode group*InodesPerGroup + i + 1. A set bit means in use.

func bitmapTest(bm []byte, i uint32) bool { return bm[i/8]&(1<<(i%8)) != 0 }
func bitmapSet(bm []byte, i uint32)       { bm[i/8] |= 1 << (i % 8) }
func bitmapClear(bm []byte, i uint32)     { bm[i/8] &^= 1 << (i % 8) }

// AllocBlock allocates one data block, preferring the given group for
// locality and falling back to the remaining groups in ascending order. The
// bitmap bit, the group descriptor and the superblock free count are all
// updated before it returns. The new block's contents are whatever was on
// disk; callers that need zeroes must clear it.
func (fs *Filesystem) AllocBlock(hintGroup uint32) (uint32, error) {
	if fs.sb.FreeBlocksCount == 0 {
		return 0, syserr.ErrNoBlocks
	}
	hintGroup %= fs.numGroups
	for i := uint32(0); i < fs.numGroups; i++ {
		g := (hintGroup + i) % fs.numGroups
		if fs.groups[g].FreeBlocksCount == 0 {
			continue
		}
		b, err := fs.allocBlockInGroup(g)
		if err == syserr.ErrNoBlocks {
			continue
		}
		return b, err
	}
	return 0, syserr.ErrNoBlocks
}

func (fs *Filesystem) allocBlockInGroup(g uint32) (uint32, error) {
	bm, err := fs.readBlock(fs.groups[g].BlockBitmap)
	if err != nil {
		return 0, err
	}
	for i := uint32(0); i < fs.sb.BlocksPerGroup; i++ {
		block := fs.sb.FirstDataBlock + g*fs.sb.BlocksPerGroup + i
		if block >= fs.sb.BlocksCount {
			break
		}
		if bitmapTest(bm, i) {
			continue
		}
		bitmapSet(bm, i)
		if err := fs.writeBlock(fs.groups[g].BlockBitmap, bm); err != nil {
			return 0, err
		}
		fs.groups[g].FreeBlocksCount--
		fs.sb.FreeBlocksCount--
		return block, nil
	}
	// Descriptor claimed free space the bitmap does not have.
	logrus.WithField("group", g).Warn("ext2: stale free block count in group descriptor")
	return 0, syserr.ErrNoBlocks
}

// FreeBlock releases block b back to its group's bitmap and bumps the free
// counts. Freeing an already-free block is not detected and corrupts the
// counts; the caller owns that invariant.
func (fs *Filesystem) FreeBlock(b uint32) error {
	if b < fs.sb.FirstDataBlock || b >= fs.sb.BlocksCount {
		return syserr.ErrInvalid
	}
	rel := b - fs.sb.FirstDataBlock
	g := rel / fs.sb.BlocksPerGroup
	bm, err := fs.readBlock(fs.groups[g].BlockBitmap)
	if err != nil {
		return err
	}
	bitmapClear(bm, rel%fs.sb.BlocksPerGroup)
	if err := fs.writeBlock(fs.groups[g].BlockBitmap, bm); err != nil {
		return err
	}
	fs.groups[g].FreeBlocksCount++
	fs.sb.FreeBlocksCount++
	return nil
}

// AllocInode allocates one inode number, preferring the given group. Inode
// numbers below the superblock's first-inode threshold are reserved and
// never handed out.
func (fs *Filesystem) AllocInode(hintGroup uint32) (uint32, error) {
	if fs.sb.FreeInodesCount == 0 {
		return 0, syserr.ErrNoInodes
	}
	hintGroup %= fs.numGroups
	for i := uint32(0); i < fs.numGroups; i++ {
		g := (hintGroup + i) % fs.numGroups
		if fs.groups[g].FreeInodesCount == 0 {
			continue
		}
		n, err := fs.allocInodeInGroup(g)
		if err == syserr.ErrNoInodes {
			continue
		}
		return n, err
	}
	return 0, syserr.ErrNoInodes
}

func (fs *Filesystem) allocInodeInGroup(g uint32) (uint32, error) {
	bm, err := fs.readBlock(fs.groups[g].InodeBitmap)
	if err != nil {
		return 0, err
	}
	for i := uint32(0); i < fs.sb.InodesPerGroup; i++ {
		ino := g*fs.sb.InodesPerGroup + i + 1
		if ino < fs.sb.FirstInode() {
			continue
		}
		if ino > fs.sb.InodesCount {
			break
		}
		if bitmapTest(bm, i) {
			continue
		}
		bitmapSet(bm, i)
		if err := fs.writeBlock(fs.groups[g].InodeBitmap, bm); err != nil {
			return 0, err
		}
		fs.groups[g].FreeInodesCount--
		fs.sb.FreeInodesCount--
		return ino, nil
	}
	logrus.WithField("group", g).Warn("ext2: stale free inode count in group descriptor")
	return 0, syserr.ErrNoInodes
}

// FreeInode releases inode number n back to its group's bitmap.
func (fs *Filesystem) FreeInode(n uint32) error {
	if n == 0 || n > fs.sb.InodesCount {
		return syserr.ErrInvalid
	}
	index := n - 1
	g := index / fs.sb.InodesPerGroup
	bm, err := fs.readBlock(fs.groups[g].InodeBitmap)
	if err != nil {
		return err
	}
	bitmapClear(bm, index%fs.sb.InodesPerGroup)
	if err := fs.writeBlock(fs.groups[g].InodeBitmap, bm); err != nil {
		return err
	}
	fs.groups[g].FreeInodesCount++
	fs.sb.FreeInodesCount++
	return nil
}

// inodeGroup returns the block group that inode n's record lives in, used
// as an allocation locality hint.
func (fs *Filesystem) inodeGroup(n uint32) uint32 {
	return (n - 1) / fs.sb.InodesPerGroup
}
