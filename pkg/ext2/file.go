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
	"time"

	"emberfs.dev/emberfs/pkg/ext2/disklayout"
)

// ReadFileAt reads up to len(dst) bytes of inode n's contents starting at
// byte offset off. Reads beyond the file size are clamped; a read starting
// at or past the size returns 0 bytes. Holes read as zeroes.
func (fs *Filesystem) ReadFileAt(n uint32, off uint32, dst []byte) (int, error) {
	in, err := fs.ReadInode(n)
	if err != nil {
		return 0, err
	}
	return fs.readInodeAt(in, off, dst)
}

func (fs *Filesystem) readInodeAt(in *disklayout.Inode, off uint32, dst []byte) (int, error) {
	if off >= in.Size {
		return 0, nil
	}
	if remaining := in.Size - off; uint32(len(dst)) > remaining {
		dst = dst[:remaining]
	}

	done := 0
	for done < len(dst) {
		pos := off + uint32(done)
		idx := pos / fs.blockSize
		blkOff := pos % fs.blockSize

		phys, _, err := fs.mapBlock(in, idx, false, 0)
		if err != nil {
			return done, err
		}

		chunk := fs.blockSize - blkOff
		if rest := uint32(len(dst) - done); chunk > rest {
			chunk = rest
		}

		if phys == 0 {
			// Hole: zero fill without touching the device.
			for i := uint32(0); i < chunk; i++ {
				dst[done+int(i)] = 0
			}
		} else {
			buf, err := fs.readBlock(phys)
			if err != nil {
				return done, err
			}
			copy(dst[done:done+int(chunk)], buf[blkOff:blkOff+chunk])
		}
		done += int(chunk)
	}
	return done, nil
}

// WriteFileAt writes src to inode n starting at byte offset off, allocating
// blocks as needed and growing the size if the write extends past the end.
// The updated inode record is persisted before returning. On allocation
// failure the bytes written so far stay written and the count reflects
// them.
func (fs *Filesystem) WriteFileAt(n uint32, off uint32, src []byte) (int, error) {
	if len(src) == 0 {
		// Zero-length writes never extend the file.
		return 0, nil
	}
	in, err := fs.ReadInode(n)
	if err != nil {
		return 0, err
	}
	done, werr := fs.writeInodeAt(in, n, off, src)
	if done > 0 || werr == nil {
		if err := fs.finishWrite(n, in, off+uint32(done)); err != nil && werr == nil {
			werr = err
		}
	}
	return done, werr
}

func (fs *Filesystem) writeInodeAt(in *disklayout.Inode, n uint32, off uint32, src []byte) (int, error) {
	hint := fs.inodeGroup(n)

	done := 0
	for done < len(src) {
		pos := off + uint32(done)
		idx := pos / fs.blockSize
		blkOff := pos % fs.blockSize

		phys, inodeDirty, err := fs.mapBlock(in, idx, true, hint)
		if err != nil {
			return done, err
		}
		if inodeDirty {
			if err := fs.WriteInode(n, in); err != nil {
				return done, err
			}
		}

		chunk := fs.blockSize - blkOff
		if rest := uint32(len(src) - done); chunk > rest {
			chunk = rest
		}

		if chunk == fs.blockSize {
			if err := fs.writeBlock(phys, src[done:done+int(chunk)]); err != nil {
				return done, err
			}
		} else {
			// Partial block: read-modify-write.
			buf, err := fs.readBlock(phys)
			if err != nil {
				return done, err
			}
			copy(buf[blkOff:blkOff+chunk], src[done:done+int(chunk)])
			if err := fs.writeBlock(phys, buf); err != nil {
				return done, err
			}
		}
		done += int(chunk)
	}
	return done, nil
}

// finishWrite updates the inode's size, block accounting and modification
// time after a write that reached byte offset end.
func (fs *Filesystem) finishWrite(n uint32, in *disklayout.Inode, end uint32) error {
	if end > in.Size {
		in.Size = end
	}
	// BlocksCount is in 512-byte units; approximate from the size, ignoring
	// holes and pointer blocks like everything else that reads this field.
	blocks := (in.Size + fs.blockSize - 1) / fs.blockSize
	in.BlocksCount = blocks * fs.sectorsPerBlock
	in.ModificationTime = uint32(time.Now().Unix())
	return fs.WriteInode(n, in)
}

// Truncate discards inode n's contents, releasing every data and pointer
// block and resetting the size to zero.
func (fs *Filesystem) Truncate(n uint32) error {
	in, err := fs.ReadInode(n)
	if err != nil {
		return err
	}
	if err := fs.freeInodeBlocks(in); err != nil {
		return err
	}
	in.Size = 0
	in.ModificationTime = uint32(time.Now().Unix())
	return fs.WriteInode(n, in)
}
