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
	"bytes"
	"encoding/binary"
)

// BlockGroupSize is the on-disk size of one group descriptor.
const BlockGroupSize = 32

// BlockGroup mirrors the ext2 block group descriptor. The descriptor table
// is an array of these starting in the block after the superblock's block.
//
// Invariant: the per-group free counts summed over all descriptors must
// equal the superblock's global free counts; any deviation is a corruption.
type BlockGroup struct {
	BlockBitmap     uint32
	InodeBitmap     uint32
	InodeTable      uint32
	FreeBlocksCount uint16
	FreeInodesCount uint16
	UsedDirsCount   uint16
	_               uint16
	_               [3]uint32
}

// UnmarshalBytes decodes the descriptor from its 32-byte on-disk form.
func (bg *BlockGroup) UnmarshalBytes(b []byte) error {
	return binary.Read(bytes.NewReader(b), binary.LittleEndian, bg)
}

// MarshalBytes encodes the descriptor into its 32-byte on-disk form.
func (bg *BlockGroup) MarshalBytes() []byte {
	var buf bytes.Buffer
	buf.Grow(BlockGroupSize)
	if err := binary.Write(&buf, binary.LittleEndian, bg); err != nil {
		panic(err) // All fields are fixed-size; cannot fail.
	}
	return buf.Bytes()
}
