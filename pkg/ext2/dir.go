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

	"github.com/sirupsen/logrus"

	"emberfs.dev/emberfs/pkg/ext2/disklayout"
	"emberfs.dev/emberfs/pkg/syserr"
)

// Directory contents are a sequence of whole blocks; every mutation below
// rewrites exactly the block it touched. Removal never compacts: space is
// reclaimed by merging a record into its predecessor or leaving a
// zero-inode tombstone, both of which later insertions reuse.

func checkName(name string) error {
	if name == "" {
		return syserr.ErrInvalid
	}
	if len(name) > disklayout.MaxNameLen {
		return syserr.ErrNameTooLong
	}
	return nil
}

// Lookup finds name in directory dir and returns its inode number.
func (fs *Filesystem) Lookup(dir uint32, name string) (uint32, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	var found uint32
	err := fs.ListDir(dir, func(entry string, ino uint32, _ uint8) bool {
		if entry == name {
			found = ino
			return false
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	if found == 0 {
		return 0, syserr.ErrNotFound
	}
	return found, nil
}

// ListDir invokes fn for every live entry of directory dir, tombstones
// excluded. Returning false from fn stops the walk early.
func (fs *Filesystem) ListDir(dir uint32, fn func(name string, inode uint32, fileType uint8) bool) error {
	in, err := fs.ReadInode(dir)
	if err != nil {
		return err
	}
	if !in.IsDir() {
		return syserr.ErrNotDir
	}

	buf := make([]byte, fs.blockSize)
	for off := uint32(0); off < in.Size; off += fs.blockSize {
		if _, err := fs.readInodeAt(in, off, buf); err != nil {
			return err
		}
		pos := uint32(0)
		for pos < fs.blockSize {
			var d disklayout.Dirent
			if err := d.UnmarshalBytes(buf[pos:]); err != nil {
				return err
			}
			if d.Inode != 0 {
				if !fn(d.Name, d.Inode, d.FileType) {
					return nil
				}
			}
			pos += uint32(d.RecLen)
		}
		if pos != fs.blockSize {
			logrus.WithFields(logrus.Fields{"inode": dir, "offset": off}).Error("ext2: directory block record lengths do not cover the block")
			return syserr.ErrCorrupt
		}
	}
	return nil
}

// addDirent links name to inode ino in directory dir. The first slot large
// enough wins: a tombstone record, the slack after a live record, or a
// fresh block appended to the directory.
func (fs *Filesystem) addDirent(dir uint32, din *disklayout.Inode, name string, ino uint32, fileType uint8) error {
	needed := disklayout.DirentRecordSize(len(name))

	buf := make([]byte, fs.blockSize)
	for off := uint32(0); off < din.Size; off += fs.blockSize {
		if _, err := fs.readInodeAt(din, off, buf); err != nil {
			return err
		}
		pos := uint32(0)
		for pos < fs.blockSize {
			var d disklayout.Dirent
			if err := d.UnmarshalBytes(buf[pos:]); err != nil {
				return err
			}

			if d.Inode == 0 && d.RecLen >= needed {
				// Claim the tombstone, keeping its full extent.
				d.Inode = ino
				d.NameLen = uint8(len(name))
				d.FileType = fileType
				d.Name = name
				d.MarshalBytes(buf[pos:])
				return fs.writeDirBlock(dir, din, off, buf)
			}

			if d.Inode != 0 {
				used := disklayout.DirentRecordSize(int(d.NameLen))
				if d.RecLen >= used && d.RecLen-used >= needed {
					// Split the slack off the live record.
					slack := d.RecLen - used
					d.RecLen = used
					d.MarshalBytes(buf[pos:])
					nd := disklayout.Dirent{
						Inode:    ino,
						RecLen:   slack,
						NameLen:  uint8(len(name)),
						FileType: fileType,
						Name:     name,
					}
					nd.MarshalBytes(buf[pos+uint32(used):])
					return fs.writeDirBlock(dir, din, off, buf)
				}
			}
			pos += uint32(d.RecLen)
		}
	}

	// No room anywhere; append a block whose single record spans it.
	for i := range buf {
		buf[i] = 0
	}
	nd := disklayout.Dirent{
		Inode:    ino,
		RecLen:   uint16(fs.blockSize),
		NameLen:  uint8(len(name)),
		FileType: fileType,
		Name:     name,
	}
	nd.MarshalBytes(buf)
	done, err := fs.writeInodeAt(din, dir, din.Size, buf)
	if err != nil {
		return err
	}
	din.Size += uint32(done)
	din.ModificationTime = uint32(time.Now().Unix())
	return fs.WriteInode(dir, din)
}

// writeDirBlock writes back the directory block at byte offset off and
// touches the directory's modification time.
func (fs *Filesystem) writeDirBlock(dir uint32, din *disklayout.Inode, off uint32, buf []byte) error {
	if _, err := fs.writeInodeAt(din, dir, off, buf); err != nil {
		return err
	}
	din.ModificationTime = uint32(time.Now().Unix())
	return fs.WriteInode(dir, din)
}

// removeDirent unlinks name from directory dir. A record with a live
// predecessor in the same block is absorbed into it; a record at the head
// of its block becomes a tombstone.
func (fs *Filesystem) removeDirent(dir uint32, din *disklayout.Inode, name string) error {
	buf := make([]byte, fs.blockSize)
	for off := uint32(0); off < din.Size; off += fs.blockSize {
		if _, err := fs.readInodeAt(din, off, buf); err != nil {
			return err
		}
		pos := uint32(0)
		prev := int64(-1)
		for pos < fs.blockSize {
			var d disklayout.Dirent
			if err := d.UnmarshalBytes(buf[pos:]); err != nil {
				return err
			}

			if d.Inode != 0 && d.Name == name {
				if prev >= 0 {
					var pd disklayout.Dirent
					if err := pd.UnmarshalBytes(buf[prev:]); err != nil {
						return err
					}
					pd.RecLen += d.RecLen
					pd.MarshalBytes(buf[prev:])
				} else {
					d.Inode = 0
					d.MarshalBytes(buf[pos:])
				}
				return fs.writeDirBlock(dir, din, off, buf)
			}

			prev = int64(pos)
			pos += uint32(d.RecLen)
		}
	}
	return syserr.ErrNotFound
}

// isDirEmpty reports whether the directory holds no live entries besides
// "." and "..".
func (fs *Filesystem) isDirEmpty(dir uint32) (bool, error) {
	empty := true
	err := fs.ListDir(dir, func(name string, _ uint32, _ uint8) bool {
		if name == "." || name == ".." {
			return true
		}
		empty = false
		return false
	})
	return empty, err
}

// CreateFile creates an empty regular file named name in directory dir and
// returns its inode number.
func (fs *Filesystem) CreateFile(dir uint32, name string, perm uint16) (uint32, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	din, err := fs.ReadInode(dir)
	if err != nil {
		return 0, err
	}
	if !din.IsDir() {
		return 0, syserr.ErrNotDir
	}
	if _, err := fs.Lookup(dir, name); err == nil {
		return 0, syserr.ErrExists
	} else if err != syserr.ErrNotFound {
		return 0, err
	}

	ino, err := fs.AllocInode(fs.inodeGroup(dir))
	if err != nil {
		return 0, err
	}

	now := uint32(time.Now().Unix())
	in := &disklayout.Inode{
		Mode:             disklayout.ModeRegular | perm&0x0FFF,
		LinksCount:       1,
		AccessTime:       now,
		ChangeTime:       now,
		ModificationTime: now,
	}
	if err := fs.WriteInode(ino, in); err != nil {
		fs.FreeInode(ino)
		return 0, err
	}
	if err := fs.addDirent(dir, din, name, ino, disklayout.FTRegular); err != nil {
		fs.FreeInode(ino)
		return 0, err
	}
	logrus.WithFields(logrus.Fields{"dir": dir, "name": name, "inode": ino}).Debug("ext2: created file")
	return ino, nil
}

// CreateDir creates an empty directory named name in dir, seeded with its
// "." and ".." entries, and returns its inode number. The parent's link
// count grows by one for the child's "..".
func (fs *Filesystem) CreateDir(dir uint32, name string, perm uint16) (uint32, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	din, err := fs.ReadInode(dir)
	if err != nil {
		return 0, err
	}
	if !din.IsDir() {
		return 0, syserr.ErrNotDir
	}
	if _, err := fs.Lookup(dir, name); err == nil {
		return 0, syserr.ErrExists
	} else if err != syserr.ErrNotFound {
		return 0, err
	}

	ino, err := fs.AllocInode(fs.inodeGroup(dir))
	if err != nil {
		return 0, err
	}
	blk, err := fs.AllocBlock(fs.inodeGroup(ino))
	if err != nil {
		fs.FreeInode(ino)
		return 0, err
	}

	buf := make([]byte, fs.blockSize)
	dot := disklayout.Dirent{Inode: ino, RecLen: disklayout.DirentRecordSize(1), NameLen: 1, FileType: disklayout.FTDir, Name: "."}
	dot.MarshalBytes(buf)
	dotdot := disklayout.Dirent{
		Inode:    dir,
		RecLen:   uint16(fs.blockSize) - dot.RecLen,
		NameLen:  2,
		FileType: disklayout.FTDir,
		Name:     "..",
	}
	dotdot.MarshalBytes(buf[dot.RecLen:])
	if err := fs.writeBlock(blk, buf); err != nil {
		fs.FreeBlock(blk)
		fs.FreeInode(ino)
		return 0, err
	}

	now := uint32(time.Now().Unix())
	in := &disklayout.Inode{
		Mode:             disklayout.ModeDirectory | perm&0x0FFF,
		Size:             fs.blockSize,
		LinksCount:       2, // "." plus the parent's entry.
		BlocksCount:      fs.sectorsPerBlock,
		AccessTime:       now,
		ChangeTime:       now,
		ModificationTime: now,
	}
	in.Block[0] = blk
	if err := fs.WriteInode(ino, in); err != nil {
		fs.FreeBlock(blk)
		fs.FreeInode(ino)
		return 0, err
	}

	if err := fs.addDirent(dir, din, name, ino, disklayout.FTDir); err != nil {
		fs.FreeBlock(blk)
		fs.FreeInode(ino)
		return 0, err
	}
	din.LinksCount++
	if err := fs.WriteInode(dir, din); err != nil {
		return 0, err
	}
	fs.groups[fs.inodeGroup(ino)].UsedDirsCount++
	logrus.WithFields(logrus.Fields{"dir": dir, "name": name, "inode": ino}).Debug("ext2: created directory")
	return ino, nil
}

// RemoveFile unlinks the regular file name from directory dir. When the
// link count reaches zero the inode's blocks are released, its deletion
// time is stamped and the inode number is returned to the bitmap.
func (fs *Filesystem) RemoveFile(dir uint32, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	din, err := fs.ReadInode(dir)
	if err != nil {
		return err
	}
	if !din.IsDir() {
		return syserr.ErrNotDir
	}

	ino, err := fs.Lookup(dir, name)
	if err != nil {
		return err
	}
	in, err := fs.ReadInode(ino)
	if err != nil {
		return err
	}
	if in.IsDir() {
		return syserr.ErrIsDir
	}

	if err := fs.removeDirent(dir, din, name); err != nil {
		return err
	}

	in.LinksCount--
	if in.LinksCount == 0 {
		if err := fs.freeInodeBlocks(in); err != nil {
			return err
		}
		in.Size = 0
		in.DeletionTime = uint32(time.Now().Unix())
		if err := fs.WriteInode(ino, in); err != nil {
			return err
		}
		return fs.FreeInode(ino)
	}
	return fs.WriteInode(ino, in)
}

// RemoveDir removes the empty directory name from dir. "." and ".." are
// never removable, and a directory with any other live entry is rejected.
func (fs *Filesystem) RemoveDir(dir uint32, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if name == "." || name == ".." {
		return syserr.ErrInvalid
	}
	din, err := fs.ReadInode(dir)
	if err != nil {
		return err
	}
	if !din.IsDir() {
		return syserr.ErrNotDir
	}

	ino, err := fs.Lookup(dir, name)
	if err != nil {
		return err
	}
	in, err := fs.ReadInode(ino)
	if err != nil {
		return err
	}
	if !in.IsDir() {
		return syserr.ErrNotDir
	}
	empty, err := fs.isDirEmpty(ino)
	if err != nil {
		return err
	}
	if !empty {
		return syserr.ErrNotEmpty
	}

	if err := fs.removeDirent(dir, din, name); err != nil {
		return err
	}
	// Drop the child's ".." reference to the parent.
	din.LinksCount--
	if err := fs.WriteInode(dir, din); err != nil {
		return err
	}

	if err := fs.freeInodeBlocks(in); err != nil {
		return err
	}
	in.Size = 0
	in.LinksCount = 0
	in.DeletionTime = uint32(time.Now().Unix())
	if err := fs.WriteInode(ino, in); err != nil {
		return err
	}
	if err := fs.FreeInode(ino); err != nil {
		return err
	}
	fs.groups[fs.inodeGroup(ino)].UsedDirsCount--
	logrus.WithFields(logrus.Fields{"dir": dir, "name": name, "inode": ino}).Debug("ext2: removed directory")
	return nil
}
