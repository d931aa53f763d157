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
	"bytes"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"emberfs.dev/emberfs/pkg/blockdev"
	"emberfs.dev/emberfs/pkg/ext2/disklayout"
	"emberfs.dev/emberfs/pkg/syserr"
)

// testImageMiB is large enough for two block groups with 1 KiB blocks.
const testImageMiB = 16

func newTestDevice(t *testing.T) *blockdev.MemDevice {
	t.Helper()
	dev := blockdev.NewMemDevice(testImageMiB * 1024 * 1024 / blockdev.SectorSize)
	if err := Mkfs(dev, MkfsOptions{VolumeName: "scratch"}); err != nil {
		t.Fatalf("Mkfs failed: %v", err)
	}
	return dev
}

func newTestFS(t *testing.T) *Filesystem {
	t.Helper()
	fs, err := Mount(newTestDevice(t))
	if err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	return fs
}

// pattern fills a buffer with a position-dependent byte sequence so
// misplaced blocks show up as content mismatches.
func pattern(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i*7 + i/251)
	}
	return buf
}

func TestMountFreshVolume(t *testing.T) {
	fs := newTestFS(t)

	sb := fs.SuperBlock()
	if sb.GroupCount() != 2 {
		t.Errorf("GroupCount() = %d, want 2", sb.GroupCount())
	}
	if fs.BlockSize() != 1024 {
		t.Errorf("BlockSize() = %d, want 1024", fs.BlockSize())
	}

	root, err := fs.ReadInode(disklayout.RootInode)
	if err != nil {
		t.Fatalf("ReadInode(root) failed: %v", err)
	}
	if !root.IsDir() {
		t.Error("root inode is not a directory")
	}
	if root.LinksCount != 2 {
		t.Errorf("root links = %d, want 2", root.LinksCount)
	}

	var names []string
	if err := fs.ListDir(disklayout.RootInode, func(name string, _ uint32, _ uint8) bool {
		names = append(names, name)
		return true
	}); err != nil {
		t.Fatalf("ListDir failed: %v", err)
	}
	if diff := cmp.Diff([]string{".", ".."}, names); diff != "" {
		t.Errorf("fresh root entries mismatch (-want +got):\n%s", diff)
	}
}

func TestMountRejectsBadMagic(t *testing.T) {
	dev := newTestDevice(t)
	// Clobber the magic halfway into the superblock.
	dev.Bytes()[1024+56] = 0x00
	if _, err := Mount(dev); err != syserr.ErrBadMagic {
		t.Errorf("Mount = %v, want %v", err, syserr.ErrBadMagic)
	}
}

func TestAllocBlockUpdatesCounts(t *testing.T) {
	fs := newTestFS(t)
	sb := fs.SuperBlock()

	freeBefore := sb.FreeBlocksCount
	groupBefore := fs.groups[0].FreeBlocksCount

	b, err := fs.AllocBlock(0)
	if err != nil {
		t.Fatalf("AllocBlock failed: %v", err)
	}
	if b == 0 {
		t.Fatal("AllocBlock returned the no-block sentinel")
	}
	if sb.FreeBlocksCount != freeBefore-1 || fs.groups[0].FreeBlocksCount != groupBefore-1 {
		t.Errorf("free counts after alloc: sb=%d group=%d, want %d and %d",
			sb.FreeBlocksCount, fs.groups[0].FreeBlocksCount, freeBefore-1, groupBefore-1)
	}

	// Allocating again must not hand out the same block.
	b2, err := fs.AllocBlock(0)
	if err != nil {
		t.Fatalf("second AllocBlock failed: %v", err)
	}
	if b2 == b {
		t.Errorf("AllocBlock returned %d twice", b)
	}

	if err := fs.FreeBlock(b); err != nil {
		t.Fatalf("FreeBlock failed: %v", err)
	}
	if err := fs.FreeBlock(b2); err != nil {
		t.Fatalf("FreeBlock failed: %v", err)
	}
	if sb.FreeBlocksCount != freeBefore || fs.groups[0].FreeBlocksCount != groupBefore {
		t.Errorf("free counts did not return to baseline: sb=%d group=%d", sb.FreeBlocksCount, fs.groups[0].FreeBlocksCount)
	}
}

func TestAllocBlockFallsBackAcrossGroups(t *testing.T) {
	fs := newTestFS(t)
	// A hint pointing at the last group still allocates somewhere.
	b, err := fs.AllocBlock(fs.numGroups + 5)
	if err != nil {
		t.Fatalf("AllocBlock with wrapping hint failed: %v", err)
	}
	if b == 0 || b >= fs.SuperBlock().BlocksCount {
		t.Errorf("AllocBlock returned out-of-range block %d", b)
	}
}

func TestAllocInodeSkipsReserved(t *testing.T) {
	fs := newTestFS(t)
	ino, err := fs.AllocInode(0)
	if err != nil {
		t.Fatalf("AllocInode failed: %v", err)
	}
	if ino < disklayout.FirstNonReservedInode {
		t.Errorf("AllocInode returned reserved inode %d", ino)
	}
	if err := fs.FreeInode(ino); err != nil {
		t.Fatalf("FreeInode failed: %v", err)
	}
}

func TestCreateFileInitialState(t *testing.T) {
	fs := newTestFS(t)

	ino, err := fs.CreateFile(disklayout.RootInode, "hello.txt", 0o644)
	if err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}

	in, err := fs.ReadInode(ino)
	if err != nil {
		t.Fatalf("ReadInode failed: %v", err)
	}
	if !in.IsRegular() {
		t.Error("new file is not a regular file")
	}
	if in.Size != 0 || in.BlocksCount != 0 || in.LinksCount != 1 {
		t.Errorf("new file state: size=%d blocks=%d links=%d, want 0/0/1", in.Size, in.BlocksCount, in.LinksCount)
	}

	got, err := fs.Lookup(disklayout.RootInode, "hello.txt")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got != ino {
		t.Errorf("Lookup = inode %d, want %d", got, ino)
	}
}

func TestCreateFileDuplicate(t *testing.T) {
	fs := newTestFS(t)
	if _, err := fs.CreateFile(disklayout.RootInode, "dup", 0o644); err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}
	if _, err := fs.CreateFile(disklayout.RootInode, "dup", 0o644); err != syserr.ErrExists {
		t.Errorf("second CreateFile = %v, want %v", err, syserr.ErrExists)
	}
}

func TestFileReadWrite(t *testing.T) {
	// Sizes straddle the direct region (12 KiB), the single indirect
	// region (268 KiB with 1 KiB blocks) and partial blocks on both ends.
	for _, size := range []int{1, 10, 1023, 1024, 1025, 4000, 12 * 1024, 12*1024 + 1, 100 * 1024, 300 * 1024} {
		t.Run(fmt.Sprintf("%dB", size), func(t *testing.T) {
			fs := newTestFS(t)
			ino, err := fs.CreateFile(disklayout.RootInode, "data", 0o644)
			if err != nil {
				t.Fatalf("CreateFile failed: %v", err)
			}

			src := pattern(size)
			n, err := fs.WriteFileAt(ino, 0, src)
			if err != nil {
				t.Fatalf("WriteFileAt failed: %v", err)
			}
			if n != size {
				t.Fatalf("WriteFileAt wrote %d bytes, want %d", n, size)
			}

			in, err := fs.ReadInode(ino)
			if err != nil {
				t.Fatalf("ReadInode failed: %v", err)
			}
			if in.Size != uint32(size) {
				t.Errorf("size = %d, want %d", in.Size, size)
			}

			dst := make([]byte, size)
			n, err = fs.ReadFileAt(ino, 0, dst)
			if err != nil {
				t.Fatalf("ReadFileAt failed: %v", err)
			}
			if n != size {
				t.Fatalf("ReadFileAt read %d bytes, want %d", n, size)
			}
			if !bytes.Equal(src, dst) {
				t.Error("contents did not round trip")
			}

			// Reading at the end returns nothing.
			if n, err := fs.ReadFileAt(ino, uint32(size), dst); err != nil || n != 0 {
				t.Errorf("read at EOF = (%d, %v), want (0, nil)", n, err)
			}
		})
	}
}

func TestReadClampsToSize(t *testing.T) {
	fs := newTestFS(t)
	ino, err := fs.CreateFile(disklayout.RootInode, "short", 0o644)
	if err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}
	if _, err := fs.WriteFileAt(ino, 0, []byte("abcde")); err != nil {
		t.Fatalf("WriteFileAt failed: %v", err)
	}

	dst := make([]byte, 100)
	n, err := fs.ReadFileAt(ino, 2, dst)
	if err != nil {
		t.Fatalf("ReadFileAt failed: %v", err)
	}
	if n != 3 || string(dst[:n]) != "cde" {
		t.Errorf("ReadFileAt = (%d, %q), want (3, %q)", n, dst[:n], "cde")
	}
}

func TestSparseFileHoles(t *testing.T) {
	fs := newTestFS(t)
	ino, err := fs.CreateFile(disklayout.RootInode, "sparse", 0o644)
	if err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}

	// Land the write deep in the triple indirect region. Only the pointer
	// chain and one data block are allocated; everything before is holes.
	const off = 70 << 20
	freeBefore := fs.SuperBlock().FreeBlocksCount
	if _, err := fs.WriteFileAt(ino, off, []byte("tail")); err != nil {
		t.Fatalf("WriteFileAt failed: %v", err)
	}
	if used := freeBefore - fs.SuperBlock().FreeBlocksCount; used > 4 {
		t.Errorf("sparse write consumed %d blocks, want at most 4", used)
	}

	dst := make([]byte, 4)
	if _, err := fs.ReadFileAt(ino, off, dst); err != nil {
		t.Fatalf("ReadFileAt at tail failed: %v", err)
	}
	if string(dst) != "tail" {
		t.Errorf("tail = %q, want %q", dst, "tail")
	}

	// A hole in the middle reads as zeroes.
	hole := make([]byte, 512)
	if _, err := fs.ReadFileAt(ino, 30<<20, hole); err != nil {
		t.Fatalf("ReadFileAt in hole failed: %v", err)
	}
	if !bytes.Equal(hole, make([]byte, 512)) {
		t.Error("hole did not read as zeroes")
	}
}

func TestRemoveFileRestoresCounts(t *testing.T) {
	fs := newTestFS(t)
	sb := fs.SuperBlock()
	freeBlocks, freeInodes := sb.FreeBlocksCount, sb.FreeInodesCount

	ino, err := fs.CreateFile(disklayout.RootInode, "big", 0o644)
	if err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}
	// Deep enough to build single and double indirect trees.
	if _, err := fs.WriteFileAt(ino, 0, pattern(300*1024)); err != nil {
		t.Fatalf("WriteFileAt failed: %v", err)
	}
	if sb.FreeBlocksCount >= freeBlocks {
		t.Fatal("write did not consume blocks")
	}

	if err := fs.RemoveFile(disklayout.RootInode, "big"); err != nil {
		t.Fatalf("RemoveFile failed: %v", err)
	}
	if sb.FreeBlocksCount != freeBlocks || sb.FreeInodesCount != freeInodes {
		t.Errorf("free counts after remove: blocks=%d inodes=%d, want %d and %d",
			sb.FreeBlocksCount, sb.FreeInodesCount, freeBlocks, freeInodes)
	}
	if _, err := fs.Lookup(disklayout.RootInode, "big"); err != syserr.ErrNotFound {
		t.Errorf("Lookup after remove = %v, want %v", err, syserr.ErrNotFound)
	}
}

func TestRemoveFileRejectsDirectory(t *testing.T) {
	fs := newTestFS(t)
	if _, err := fs.CreateDir(disklayout.RootInode, "d", 0o755); err != nil {
		t.Fatalf("CreateDir failed: %v", err)
	}
	if err := fs.RemoveFile(disklayout.RootInode, "d"); err != syserr.ErrIsDir {
		t.Errorf("RemoveFile on directory = %v, want %v", err, syserr.ErrIsDir)
	}
}

func TestMkdirRmdir(t *testing.T) {
	fs := newTestFS(t)

	rootBefore, err := fs.ReadInode(disklayout.RootInode)
	if err != nil {
		t.Fatalf("ReadInode failed: %v", err)
	}

	dirIno, err := fs.CreateDir(disklayout.RootInode, "sub", 0o755)
	if err != nil {
		t.Fatalf("CreateDir failed: %v", err)
	}

	din, err := fs.ReadInode(dirIno)
	if err != nil {
		t.Fatalf("ReadInode failed: %v", err)
	}
	if !din.IsDir() || din.LinksCount != 2 || din.Size != fs.BlockSize() {
		t.Errorf("new dir state: dir=%t links=%d size=%d", din.IsDir(), din.LinksCount, din.Size)
	}

	// The child's ".." points back at the root, whose link count grew.
	parent, err := fs.Lookup(dirIno, "..")
	if err != nil {
		t.Fatalf("Lookup(..) failed: %v", err)
	}
	if parent != disklayout.RootInode {
		t.Errorf("'..' = inode %d, want %d", parent, disklayout.RootInode)
	}
	rootAfter, err := fs.ReadInode(disklayout.RootInode)
	if err != nil {
		t.Fatalf("ReadInode failed: %v", err)
	}
	if rootAfter.LinksCount != rootBefore.LinksCount+1 {
		t.Errorf("root links = %d, want %d", rootAfter.LinksCount, rootBefore.LinksCount+1)
	}

	// Non-empty directories do not come off.
	if _, err := fs.CreateFile(dirIno, "blocker", 0o644); err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}
	if err := fs.RemoveDir(disklayout.RootInode, "sub"); err != syserr.ErrNotEmpty {
		t.Errorf("RemoveDir on non-empty dir = %v, want %v", err, syserr.ErrNotEmpty)
	}

	if err := fs.RemoveFile(dirIno, "blocker"); err != nil {
		t.Fatalf("RemoveFile failed: %v", err)
	}
	if err := fs.RemoveDir(disklayout.RootInode, "sub"); err != nil {
		t.Fatalf("RemoveDir failed: %v", err)
	}

	rootFinal, err := fs.ReadInode(disklayout.RootInode)
	if err != nil {
		t.Fatalf("ReadInode failed: %v", err)
	}
	if rootFinal.LinksCount != rootBefore.LinksCount {
		t.Errorf("root links after rmdir = %d, want %d", rootFinal.LinksCount, rootBefore.LinksCount)
	}
	if _, err := fs.Lookup(disklayout.RootInode, "sub"); err != syserr.ErrNotFound {
		t.Errorf("Lookup after rmdir = %v, want %v", err, syserr.ErrNotFound)
	}
}

func TestRemoveDirRejectsDots(t *testing.T) {
	fs := newTestFS(t)
	for _, name := range []string{".", ".."} {
		if err := fs.RemoveDir(disklayout.RootInode, name); err != syserr.ErrInvalid {
			t.Errorf("RemoveDir(%q) = %v, want %v", name, err, syserr.ErrInvalid)
		}
	}
}

func TestDirentSlotReuse(t *testing.T) {
	fs := newTestFS(t)

	for _, name := range []string{"aaaa", "bbbb", "cccc"} {
		if _, err := fs.CreateFile(disklayout.RootInode, name, 0o644); err != nil {
			t.Fatalf("CreateFile(%q) failed: %v", name, err)
		}
	}
	sizeBefore, err := fs.ReadInode(disklayout.RootInode)
	if err != nil {
		t.Fatalf("ReadInode failed: %v", err)
	}

	// Removing and recreating a same-length name must reuse the dead
	// record instead of growing the directory.
	if err := fs.RemoveFile(disklayout.RootInode, "bbbb"); err != nil {
		t.Fatalf("RemoveFile failed: %v", err)
	}
	if _, err := fs.CreateFile(disklayout.RootInode, "dddd", 0o644); err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}

	sizeAfter, err := fs.ReadInode(disklayout.RootInode)
	if err != nil {
		t.Fatalf("ReadInode failed: %v", err)
	}
	if sizeAfter.Size != sizeBefore.Size {
		t.Errorf("directory grew from %d to %d bytes", sizeBefore.Size, sizeAfter.Size)
	}

	var names []string
	if err := fs.ListDir(disklayout.RootInode, func(name string, _ uint32, _ uint8) bool {
		if name != "." && name != ".." {
			names = append(names, name)
		}
		return true
	}); err != nil {
		t.Fatalf("ListDir failed: %v", err)
	}
	if diff := cmp.Diff([]string{"aaaa", "dddd", "cccc"}, names); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestLookupErrors(t *testing.T) {
	fs := newTestFS(t)
	if _, err := fs.Lookup(disklayout.RootInode, "ghost"); err != syserr.ErrNotFound {
		t.Errorf("Lookup missing = %v, want %v", err, syserr.ErrNotFound)
	}
	if _, err := fs.Lookup(disklayout.RootInode, ""); err != syserr.ErrInvalid {
		t.Errorf("Lookup empty name = %v, want %v", err, syserr.ErrInvalid)
	}

	ino, err := fs.CreateFile(disklayout.RootInode, "plain", 0o644)
	if err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}
	if _, err := fs.Lookup(ino, "x"); err != syserr.ErrNotDir {
		t.Errorf("Lookup in file = %v, want %v", err, syserr.ErrNotDir)
	}
}

func TestUnmountRemount(t *testing.T) {
	dev := newTestDevice(t)
	fs, err := Mount(dev)
	if err != nil {
		t.Fatalf("Mount failed: %v", err)
	}

	ino, err := fs.CreateFile(disklayout.RootInode, "persist", 0o644)
	if err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}
	src := pattern(20 * 1024)
	if _, err := fs.WriteFileAt(ino, 0, src); err != nil {
		t.Fatalf("WriteFileAt failed: %v", err)
	}
	if err := fs.Unmount(); err != nil {
		t.Fatalf("Unmount failed: %v", err)
	}

	fs2, err := Mount(dev)
	if err != nil {
		t.Fatalf("remount failed: %v", err)
	}
	got, err := fs2.Lookup(disklayout.RootInode, "persist")
	if err != nil {
		t.Fatalf("Lookup after remount failed: %v", err)
	}
	if got != ino {
		t.Errorf("inode changed across remount: %d != %d", got, ino)
	}
	dst := make([]byte, len(src))
	if _, err := fs2.ReadFileAt(got, 0, dst); err != nil {
		t.Fatalf("ReadFileAt after remount failed: %v", err)
	}
	if !bytes.Equal(src, dst) {
		t.Error("contents did not survive the remount")
	}
}

func TestTruncate(t *testing.T) {
	fs := newTestFS(t)
	sb := fs.SuperBlock()

	ino, err := fs.CreateFile(disklayout.RootInode, "trunc", 0o644)
	if err != nil {
		t.Fatalf("CreateFile failed: %v", err)
	}
	freeBefore := sb.FreeBlocksCount
	if _, err := fs.WriteFileAt(ino, 0, pattern(50*1024)); err != nil {
		t.Fatalf("WriteFileAt failed: %v", err)
	}

	if err := fs.Truncate(ino); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}
	in, err := fs.ReadInode(ino)
	if err != nil {
		t.Fatalf("ReadInode failed: %v", err)
	}
	if in.Size != 0 || in.BlocksCount != 0 {
		t.Errorf("after truncate: size=%d blocks=%d, want 0/0", in.Size, in.BlocksCount)
	}
	if sb.FreeBlocksCount != freeBefore {
		t.Errorf("truncate leaked blocks: free=%d, want %d", sb.FreeBlocksCount, freeBefore)
	}
}
