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
	"encoding/binary"

	"emberfs.dev/emberfs/pkg/ext2/disklayout"
	"emberfs.dev/emberfs/pkg/syserr"
)

// Block pointer resolution. An inode's 15 pointer slots split into 12
// direct pointers and three indirect roots of depth 1, 2 and 3. One
// recursive walker handles all indirect levels; the depth parameter is the
// number of pointer blocks between the slot and the data.

// mapBlock resolves logical block idx of a file to its physical block
// number. With alloc false a hole at any level yields physical block 0.
// With alloc true missing blocks are allocated along the way: pointer
// blocks are zero-filled, and the caller is told via inodeDirty when an
// inode slot was written so the record can be persisted.
func (fs *Filesystem) mapBlock(in *disklayout.Inode, idx uint32, alloc bool, hintGroup uint32) (phys uint32, inodeDirty bool, err error) {
	ppb := fs.blockSize / 4

	if idx < disklayout.NDirectBlocks {
		return fs.mapSlot(in, int(idx), 0, 0, alloc, hintGroup)
	}
	idx -= disklayout.NDirectBlocks

	if idx < ppb {
		return fs.mapSlot(in, disklayout.IndBlock, 1, idx, alloc, hintGroup)
	}
	idx -= ppb

	if idx < ppb*ppb {
		return fs.mapSlot(in, disklayout.DIndBlock, 2, idx, alloc, hintGroup)
	}
	idx -= ppb * ppb

	if idx < ppb*ppb*ppb {
		return fs.mapSlot(in, disklayout.TIndBlock, 3, idx, alloc, hintGroup)
	}
	return 0, false, syserr.ErrFileTooBig
}

// mapSlot resolves through one inode pointer slot. For depth 0 the slot is
// the data block itself.
func (fs *Filesystem) mapSlot(in *disklayout.Inode, slot int, depth uint32, idx uint32, alloc bool, hintGroup uint32) (uint32, bool, error) {
	root := in.Block[slot]
	dirty := false
	if root == 0 {
		if !alloc {
			return 0, false, nil
		}
		b, err := fs.allocTreeBlock(hintGroup)
		if err != nil {
			return 0, false, err
		}
		in.Block[slot] = b
		root = b
		dirty = true
	}
	if depth == 0 {
		return root, dirty, nil
	}
	phys, err := fs.walkIndirect(root, depth, idx, alloc, hintGroup)
	return phys, dirty, err
}

// walkIndirect descends an indirect tree rooted at pointer block blk.
// depth counts the pointer-block levels remaining, so depth 1 means blk's
// entries are data block numbers. idx is relative to this subtree.
func (fs *Filesystem) walkIndirect(blk uint32, depth uint32, idx uint32, alloc bool, hintGroup uint32) (uint32, error) {
	buf, err := fs.readBlock(blk)
	if err != nil {
		return 0, err
	}

	ppb := fs.blockSize / 4
	stride := uint32(1)
	for d := uint32(1); d < depth; d++ {
		stride *= ppb
	}
	slot := idx / stride

	ptr := binary.LittleEndian.Uint32(buf[slot*4:])
	if ptr == 0 {
		if !alloc {
			return 0, nil
		}
		b, err := fs.allocTreeBlock(hintGroup)
		if err != nil {
			return 0, err
		}
		binary.LittleEndian.PutUint32(buf[slot*4:], b)
		if err := fs.writeBlock(blk, buf); err != nil {
			return 0, err
		}
		ptr = b
	}
	if depth == 1 {
		return ptr, nil
	}
	return fs.walkIndirect(ptr, depth-1, idx%stride, alloc, hintGroup)
}

// allocTreeBlock allocates one zeroed block for the file tree. Pointer
// blocks must start zeroed so every entry reads as "no block"; data blocks
// must start zeroed so the slack around a partial write reads as a hole
// would.
func (fs *Filesystem) allocTreeBlock(hintGroup uint32) (uint32, error) {
	b, err := fs.AllocBlock(hintGroup)
	if err != nil {
		return 0, err
	}
	if err := fs.zeroBlock(b); err != nil {
		return 0, err
	}
	return b, nil
}

// freeInodeBlocks releases every data and pointer block reachable from the
// inode and clears its pointer slots.
func (fs *Filesystem) freeInodeBlocks(in *disklayout.Inode) error {
	for i := 0; i < disklayout.NDirectBlocks; i++ {
		if in.Block[i] != 0 {
			if err := fs.FreeBlock(in.Block[i]); err != nil {
				return err
			}
			in.Block[i] = 0
		}
	}
	for depth, slot := uint32(1), disklayout.IndBlock; slot <= disklayout.TIndBlock; depth, slot = depth+1, slot+1 {
		if in.Block[slot] == 0 {
			continue
		}
		if err := fs.freeIndirectTree(in.Block[slot], depth); err != nil {
			return err
		}
		in.Block[slot] = 0
	}
	in.BlocksCount = 0
	return nil
}

// freeIndirectTree frees an indirect subtree bottom-up, children before the
// pointer block itself.
func (fs *Filesystem) freeIndirectTree(blk uint32, depth uint32) error {
	buf, err := fs.readBlock(blk)
	if err != nil {
		return err
	}
	for off := uint32(0); off < fs.blockSize; off += 4 {
		ptr := binary.LittleEndian.Uint32(buf[off:])
		if ptr == 0 {
			continue
		}
		if depth > 1 {
			if err := fs.freeIndirectTree(ptr, depth-1); err != nil {
				return err
			}
		} else if err := fs.FreeBlock(ptr); err != nil {
			return err
		}
	}
	return fs.FreeBlock(blk)
}
