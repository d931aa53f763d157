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
	"testing"

	"github.com/google/go-cmp/cmp"

	"emberfs.dev/emberfs/pkg/syserr"
)

func TestRecordSizes(t *testing.T) {
	if got := len((&SuperBlock{}).MarshalBytes()); got != SbSize {
		t.Errorf("superblock marshals to %d bytes, want %d", got, SbSize)
	}
	if got := len((&BlockGroup{}).MarshalBytes()); got != BlockGroupSize {
		t.Errorf("block group marshals to %d bytes, want %d", got, BlockGroupSize)
	}
	if got := len((&Inode{}).MarshalBytes()); got != InodeSize {
		t.Errorf("inode marshals to %d bytes, want %d", got, InodeSize)
	}
}

func TestSuperBlockGeometry(t *testing.T) {
	sb := SuperBlock{
		BlocksCount:    8193,
		BlocksPerGroup: 8192,
		LogBlockSize:   0,
	}
	if got, want := sb.BlockSize(), uint32(1024); got != want {
		t.Errorf("BlockSize() = %d, want %d", got, want)
	}
	if got, want := sb.GroupCount(), uint32(2); got != want {
		t.Errorf("GroupCount() = %d, want %d", got, want)
	}

	sb.LogBlockSize = 2
	if got, want := sb.BlockSize(), uint32(4096); got != want {
		t.Errorf("BlockSize() = %d, want %d", got, want)
	}

	// Revision 0 leaves the extended fields zero; the classic values apply.
	if got, want := sb.InodeSize(), uint32(InodeSize); got != want {
		t.Errorf("InodeSize() = %d, want %d", got, want)
	}
	if got, want := sb.FirstInode(), uint32(FirstNonReservedInode); got != want {
		t.Errorf("FirstInode() = %d, want %d", got, want)
	}
}

func TestSuperBlockValidate(t *testing.T) {
	valid := SuperBlock{
		MagicRaw:       Magic,
		BlocksPerGroup: 8192,
		InodesPerGroup: 2048,
	}
	for _, test := range []struct {
		name   string
		mutate func(*SuperBlock)
		want   error
	}{
		{
			name:   "valid",
			mutate: func(*SuperBlock) {},
			want:   nil,
		},
		{
			name:   "bad magic",
			mutate: func(sb *SuperBlock) { sb.MagicRaw = 0xEF51 },
			want:   syserr.ErrBadMagic,
		},
		{
			name:   "block size too large",
			mutate: func(sb *SuperBlock) { sb.LogBlockSize = 3 },
			want:   syserr.ErrCorrupt,
		},
		{
			name:   "zero blocks per group",
			mutate: func(sb *SuperBlock) { sb.BlocksPerGroup = 0 },
			want:   syserr.ErrCorrupt,
		},
		{
			name:   "zero inodes per group",
			mutate: func(sb *SuperBlock) { sb.InodesPerGroup = 0 },
			want:   syserr.ErrCorrupt,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			sb := valid
			test.mutate(&sb)
			if err := sb.Validate(); err != test.want {
				t.Errorf("Validate() = %v, want %v", err, test.want)
			}
		})
	}
}

func TestSuperBlockRoundTrip(t *testing.T) {
	sb := SuperBlock{
		InodesCount:     2048,
		BlocksCount:     8192,
		FreeBlocksCount: 7000,
		FreeInodesCount: 2037,
		FirstDataBlock:  1,
		BlocksPerGroup:  8192,
		InodesPerGroup:  2048,
		MagicRaw:        Magic,
		State:           StateClean,
		RevLevel:        1,
		FirstInodeRaw:   11,
		InodeSizeRaw:    128,
	}
	copy(sb.VolumeName[:], "scratch")

	// The struct has blank padding fields, so compare through the encoded
	// form rather than field by field.
	var got SuperBlock
	if err := got.UnmarshalBytes(sb.MarshalBytes()); err != nil {
		t.Fatalf("UnmarshalBytes failed: %v", err)
	}
	if diff := cmp.Diff(sb.MarshalBytes(), got.MarshalBytes()); diff != "" {
		t.Errorf("superblock mismatch (-want +got):\n%s", diff)
	}
	if got.MagicRaw != Magic || got.FreeBlocksCount != sb.FreeBlocksCount || got.VolumeName != sb.VolumeName {
		t.Errorf("superblock fields did not survive the round trip: %+v", got)
	}
}

func TestInodeFileType(t *testing.T) {
	for _, test := range []struct {
		mode uint16
		want uint8
	}{
		{ModeRegular | 0o644, FTRegular},
		{ModeDirectory | 0o755, FTDir},
		{ModeCharDev | 0o600, FTCharDev},
		{ModeFIFO, FTFIFO},
		{ModeSymlink | 0o777, FTSymlink},
		{0, FTUnknown},
	} {
		in := Inode{Mode: test.mode}
		if got := in.FileType(); got != test.want {
			t.Errorf("FileType() for mode %#x = %d, want %d", test.mode, got, test.want)
		}
	}

	dir := Inode{Mode: ModeDirectory | 0o755}
	if !dir.IsDir() || dir.IsRegular() {
		t.Errorf("mode %#x misclassified: IsDir=%t IsRegular=%t", dir.Mode, dir.IsDir(), dir.IsRegular())
	}
}

func TestDirentRecordSize(t *testing.T) {
	for _, test := range []struct {
		nameLen int
		want    uint16
	}{
		{1, 12},
		{2, 12},
		{4, 12},
		{5, 16},
		{8, 16},
		{255, 264},
	} {
		if got := DirentRecordSize(test.nameLen); got != test.want {
			t.Errorf("DirentRecordSize(%d) = %d, want %d", test.nameLen, got, test.want)
		}
	}
}

func TestDirentRoundTrip(t *testing.T) {
	d := Dirent{
		Inode:    42,
		RecLen:   24,
		NameLen:  5,
		FileType: FTRegular,
		Name:     "hello",
	}
	buf := make([]byte, d.RecLen)
	d.MarshalBytes(buf)

	var got Dirent
	if err := got.UnmarshalBytes(buf); err != nil {
		t.Fatalf("UnmarshalBytes failed: %v", err)
	}
	if diff := cmp.Diff(d, got); diff != "" {
		t.Errorf("dirent mismatch (-want +got):\n%s", diff)
	}
}

func TestDirentCorrupt(t *testing.T) {
	for _, test := range []struct {
		name string
		buf  []byte
	}{
		{
			name: "short buffer",
			buf:  []byte{1, 0, 0},
		},
		{
			name: "rec_len smaller than header",
			buf:  []byte{1, 0, 0, 0, 4, 0, 0, 1},
		},
		{
			name: "name overruns rec_len",
			buf:  []byte{1, 0, 0, 0, 12, 0, 10, 1, 'a', 'b', 'c', 'd'},
		},
		{
			name: "name overruns buffer",
			buf:  []byte{1, 0, 0, 0, 32, 0, 20, 1, 'a', 'b'},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			var d Dirent
			if err := d.UnmarshalBytes(test.buf); err != syserr.ErrCorrupt {
				t.Errorf("UnmarshalBytes = %v, want %v", err, syserr.ErrCorrupt)
			}
		})
	}
}
