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

// Package blockdev provides the block device boundary consumed by
// filesystem drivers.
//
// Devices transfer whole 512-byte sectors, synchronously. There is no
// caching, no retry and no cancellation at this layer: a call either
// returns with the sector transferred or fails hard.
package blockdev

import (
	"emberfs.dev/emberfs/pkg/syserr"
)

// SectorSize is the fixed unit of transfer, in bytes.
const SectorSize = 512

// Device is a fixed-geometry sector device.
type Device interface {
	// ReadSector reads sector n into buf. buf must be exactly SectorSize
	// bytes long.
	ReadSector(n uint32, buf []byte) error

	// WriteSector writes buf to sector n. buf must be exactly SectorSize
	// bytes long.
	WriteSector(n uint32, buf []byte) error

	// SectorCount returns the device capacity in sectors.
	SectorCount() uint32

	// Close releases the device.
	Close() error
}

// MemDevice is a volatile in-memory Device. It is primarily used by tests
// and by mkfs when assembling an image before it is written out.
type MemDevice struct {
	data []byte
}

var _ Device = (*MemDevice)(nil)

// NewMemDevice creates a zero-filled in-memory device with the given number
// of sectors.
func NewMemDevice(sectors uint32) *MemDevice {
	return &MemDevice{data: make([]byte, int64(sectors)*SectorSize)}
}

// ReadSector implements Device.ReadSector.
func (d *MemDevice) ReadSector(n uint32, buf []byte) error {
	if len(buf) != SectorSize {
		return syserr.ErrInvalid
	}
	off := int64(n) * SectorSize
	if off+SectorSize > int64(len(d.data)) {
		return syserr.ErrIO
	}
	copy(buf, d.data[off:off+SectorSize])
	return nil
}

// WriteSector implements Device.WriteSector.
func (d *MemDevice) WriteSector(n uint32, buf []byte) error {
	if len(buf) != SectorSize {
		return syserr.ErrInvalid
	}
	off := int64(n) * SectorSize
	if off+SectorSize > int64(len(d.data)) {
		return syserr.ErrIO
	}
	copy(d.data[off:off+SectorSize], buf)
	return nil
}

// SectorCount implements Device.SectorCount.
func (d *MemDevice) SectorCount() uint32 {
	return uint32(int64(len(d.data)) / SectorSize)
}

// Close implements Device.Close.
func (d *MemDevice) Close() error { return nil }

// Bytes exposes the raw backing store. Mutating the returned slice mutates
// the device.
func (d *MemDevice) Bytes() []byte { return d.data }
