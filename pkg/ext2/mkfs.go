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
	"crypto/rand"
	"time"

	"github.com/sirupsen/logrus"

	"emberfs.dev/emberfs/pkg/blockdev"
	"emberfs.dev/emberfs/pkg/ext2/disklayout"
	"emberfs.dev/emberfs/pkg/syserr"
)

// MkfsOptions controls volume creation. Zero values select the defaults.
type MkfsOptions struct {
	// BlockSize in bytes; 1024, 2048 or 4096. Defaults to 1024.
	BlockSize uint32
	// InodesPerGroup; defaults to one inode per four blocks, rounded up to
	// a whole inode table block.
	InodesPerGroup uint32
	// VolumeName is recorded in the superblock, truncated to 16 bytes.
	VolumeName string
}

// Mkfs writes a fresh filesystem covering the whole device: superblock,
// group descriptors, bitmaps, inode tables and an empty root directory.
// Backup superblocks are not written; only group 0 carries metadata copies.
func Mkfs(dev blockdev.Device, opts MkfsOptions) error {
	bs := opts.BlockSize
	if bs == 0 {
		bs = disklayout.MinBlockSize
	}
	if bs < disklayout.MinBlockSize || bs > disklayout.MaxBlockSize || bs&(bs-1) != 0 {
		return syserr.ErrInvalid
	}
	logBS := uint32(0)
	for s := uint32(disklayout.MinBlockSize); s < bs; s <<= 1 {
		logBS++
	}

	sectorsPerBlock := bs / blockdev.SectorSize
	totalBlocks := dev.SectorCount() / sectorsPerBlock
	firstDataBlock := uint32(0)
	if bs == disklayout.MinBlockSize {
		firstDataBlock = 1
	}

	bpg := bs * 8 // One bitmap block's worth of bits.
	numGroups := (totalBlocks - firstDataBlock + bpg - 1) / bpg
	if totalBlocks <= firstDataBlock || numGroups == 0 {
		return syserr.ErrNoSpace
	}

	inodesPerBlock := bs / disklayout.InodeSize
	ipg := opts.InodesPerGroup
	if ipg == 0 {
		ipg = bpg / 4
	}
	// Round up to a whole inode table block, cap at the bitmap's capacity.
	ipg = (ipg + inodesPerBlock - 1) / inodesPerBlock * inodesPerBlock
	if ipg > bs*8 {
		ipg = bs * 8
	}

	gdtBlocks := (numGroups*disklayout.BlockGroupSize + bs - 1) / bs
	itBlocks := ipg * disklayout.InodeSize / bs

	writeBlock := func(n uint32, buf []byte) error {
		sector := n * sectorsPerBlock
		for i := uint32(0); i < sectorsPerBlock; i++ {
			off := i * blockdev.SectorSize
			if err := dev.WriteSector(sector+i, buf[off:off+blockdev.SectorSize]); err != nil {
				return err
			}
		}
		return nil
	}

	groups := make([]disklayout.BlockGroup, numGroups)
	var freeBlocks, freeInodes uint32
	var rootBlock uint32

	zero := make([]byte, bs)
	for g := uint32(0); g < numGroups; g++ {
		groupStart := firstDataBlock + g*bpg
		metaStart := groupStart
		if g == 0 {
			// Skip the superblock's block and the descriptor table.
			metaStart += 1 + gdtBlocks
		}
		blockBitmap := metaStart
		inodeBitmap := metaStart + 1
		inodeTable := metaStart + 2
		dataStart := inodeTable + itBlocks

		blocksInGroup := bpg
		if groupStart+blocksInGroup > totalBlocks {
			blocksInGroup = totalBlocks - groupStart
		}
		if dataStart >= groupStart+blocksInGroup {
			return syserr.ErrNoSpace
		}

		// Block bitmap: metadata used, tail beyond the volume used.
		bbm := make([]byte, bs)
		for b := groupStart; b < dataStart; b++ {
			bitmapSet(bbm, b-groupStart)
		}
		for i := blocksInGroup; i < bs*8; i++ {
			bitmapSet(bbm, i)
		}
		groupFreeBlocks := groupStart + blocksInGroup - dataStart

		// Inode bitmap: group 0 holds the reserved inodes 1..10; tail
		// bits past the group's inode count are used.
		ibm := make([]byte, bs)
		groupFreeInodes := ipg
		if g == 0 {
			for i := uint32(0); i < disklayout.FirstNonReservedInode-1; i++ {
				bitmapSet(ibm, i)
			}
			groupFreeInodes -= disklayout.FirstNonReservedInode - 1
		}
		for i := ipg; i < bs*8; i++ {
			bitmapSet(ibm, i)
		}

		if g == 0 {
			// Root directory takes the first data block.
			rootBlock = dataStart
			bitmapSet(bbm, rootBlock-groupStart)
			groupFreeBlocks--
			groups[g].UsedDirsCount = 1
		}

		if err := writeBlock(blockBitmap, bbm); err != nil {
			return err
		}
		if err := writeBlock(inodeBitmap, ibm); err != nil {
			return err
		}
		for i := uint32(0); i < itBlocks; i++ {
			if err := writeBlock(inodeTable+i, zero); err != nil {
				return err
			}
		}

		groups[g].BlockBitmap = blockBitmap
		groups[g].InodeBitmap = inodeBitmap
		groups[g].InodeTable = inodeTable
		groups[g].FreeBlocksCount = uint16(groupFreeBlocks)
		groups[g].FreeInodesCount = uint16(groupFreeInodes)
		freeBlocks += groupFreeBlocks
		freeInodes += groupFreeInodes
	}

	// Root directory block: "." and ".." both point at inode 2, with the
	// second record's length running to the end of the block.
	rootBuf := make([]byte, bs)
	dot := disklayout.Dirent{Inode: disklayout.RootInode, RecLen: disklayout.DirentRecordSize(1), NameLen: 1, FileType: disklayout.FTDir, Name: "."}
	dot.MarshalBytes(rootBuf)
	dotdot := disklayout.Dirent{
		Inode:    disklayout.RootInode,
		RecLen:   uint16(bs) - dot.RecLen,
		NameLen:  2,
		FileType: disklayout.FTDir,
		Name:     "..",
	}
	dotdot.MarshalBytes(rootBuf[dot.RecLen:])
	if err := writeBlock(rootBlock, rootBuf); err != nil {
		return err
	}

	now := uint32(time.Now().Unix())
	rootInode := &disklayout.Inode{
		Mode:             disklayout.ModeDirectory | 0o755,
		Size:             bs,
		LinksCount:       2,
		BlocksCount:      sectorsPerBlock,
		AccessTime:       now,
		ChangeTime:       now,
		ModificationTime: now,
	}
	rootInode.Block[0] = rootBlock

	// Patch the root record into the first inode table block of group 0.
	itBuf := make([]byte, bs)
	off := (disklayout.RootInode - 1) * disklayout.InodeSize
	copy(itBuf[off:off+disklayout.InodeSize], rootInode.MarshalBytes())
	if err := writeBlock(groups[0].InodeTable, itBuf); err != nil {
		return err
	}

	sb := &disklayout.SuperBlock{
		InodesCount:     ipg * numGroups,
		BlocksCount:     totalBlocks,
		FreeBlocksCount: freeBlocks,
		FreeInodesCount: freeInodes,
		FirstDataBlock:  firstDataBlock,
		LogBlockSize:    logBS,
		LogFragSize:     logBS,
		BlocksPerGroup:  bpg,
		FragsPerGroup:   bpg,
		InodesPerGroup:  ipg,
		MountTime:       now,
		WriteTime:       now,
		MagicRaw:        disklayout.Magic,
		State:           disklayout.StateClean,
		Errors:          1,
		RevLevel:        1,
		FirstInodeRaw:   disklayout.FirstNonReservedInode,
		InodeSizeRaw:    disklayout.InodeSize,
	}
	if _, err := rand.Read(sb.UUID[:]); err != nil {
		return err
	}
	copy(sb.VolumeName[:], opts.VolumeName)

	sbBuf := sb.MarshalBytes()
	for i := uint32(0); i < disklayout.SbSize/blockdev.SectorSize; i++ {
		o := i * blockdev.SectorSize
		if err := dev.WriteSector(disklayout.SbOffset/blockdev.SectorSize+i, sbBuf[o:o+blockdev.SectorSize]); err != nil {
			return err
		}
	}

	gdt := make([]byte, gdtBlocks*bs)
	for g := range groups {
		copy(gdt[uint32(g)*disklayout.BlockGroupSize:], groups[g].MarshalBytes())
	}
	for i := uint32(0); i < gdtBlocks; i++ {
		o := i * bs
		if err := writeBlock(firstDataBlock+1+i, gdt[o:o+bs]); err != nil {
			return err
		}
	}

	logrus.WithFields(logrus.Fields{
		"blocks":     totalBlocks,
		"inodes":     ipg * numGroups,
		"block_size": bs,
		"groups":     numGroups,
	}).Info("ext2: formatted volume")
	return nil
}
