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
	"emberfs.dev/emberfs/pkg/ext2/disklayout"
	"emberfs.dev/emberfs/pkg/syserr"
)

// inodeLocation maps an inode number to the block of its group's inode
// table that holds it and the byte offset within that block. Inode numbers
// start at 1.
func (fs *Filesystem) inodeLocation(n uint32) (blk uint32, off uint32, err error) {
	if n == 0 || n > fs.sb.InodesCount {
		return 0, 0, syserr.ErrInvalid
	}
	index := n - 1
	group := index / fs.sb.InodesPerGroup
	if group >= fs.numGroups {
		return 0, 0, syserr.ErrCorrupt
	}
	local := index % fs.sb.InodesPerGroup
	blk = fs.groups[group].InodeTable + local/fs.inodesPerBlock
	off = (local % fs.inodesPerBlock) * fs.sb.InodeSize()
	return blk, off, nil
}

// ReadInode reads the on-disk record for inode n.
func (fs *Filesystem) ReadInode(n uint32) (*disklayout.Inode, error) {
	blk, off, err := fs.inodeLocation(n)
	if err != nil {
		return nil, err
	}
	buf, err := fs.readBlock(blk)
	if err != nil {
		return nil, err
	}
	in := &disklayout.Inode{}
	if err := in.UnmarshalBytes(buf[off : off+disklayout.InodeSize]); err != nil {
		return nil, syserr.ErrCorrupt
	}
	return in, nil
}

// WriteInode writes the record for inode n back to the inode table. The
// containing table block is read, patched and rewritten whole.
func (fs *Filesystem) WriteInode(n uint32, in *disklayout.Inode) error {
	blk, off, err := fs.inodeLocation(n)
	if err != nil {
		return err
	}
	buf, err := fs.readBlock(blk)
	if err != nil {
		return err
	}
	copy(buf[off:off+disklayout.InodeSize], in.MarshalBytes())
	return fs.writeBlock(blk, buf)
}
