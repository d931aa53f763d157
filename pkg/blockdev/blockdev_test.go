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

package blockdev

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"emberfs.dev/emberfs/pkg/syserr"
)

func TestMemDeviceRoundTrip(t *testing.T) {
	dev := NewMemDevice(8)
	if got, want := dev.SectorCount(), uint32(8); got != want {
		t.Fatalf("SectorCount() = %d, want %d", got, want)
	}

	src := make([]byte, SectorSize)
	for i := range src {
		src[i] = byte(i)
	}
	if err := dev.WriteSector(5, src); err != nil {
		t.Fatalf("WriteSector failed: %v", err)
	}

	dst := make([]byte, SectorSize)
	if err := dev.ReadSector(5, dst); err != nil {
		t.Fatalf("ReadSector failed: %v", err)
	}
	if !bytes.Equal(src, dst) {
		t.Error("sector contents did not round trip")
	}
}

func TestMemDeviceBounds(t *testing.T) {
	dev := NewMemDevice(4)
	buf := make([]byte, SectorSize)
	if err := dev.ReadSector(4, buf); err != syserr.ErrIO {
		t.Errorf("ReadSector(4) = %v, want %v", err, syserr.ErrIO)
	}
	if err := dev.WriteSector(100, buf); err != syserr.ErrIO {
		t.Errorf("WriteSector(100) = %v, want %v", err, syserr.ErrIO)
	}
	if err := dev.ReadSector(0, buf[:10]); err != syserr.ErrInvalid {
		t.Errorf("ReadSector with short buffer = %v, want %v", err, syserr.ErrInvalid)
	}
}

func TestFileDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	if err := os.WriteFile(path, make([]byte, 16*SectorSize), 0o644); err != nil {
		t.Fatalf("creating backing file: %v", err)
	}

	dev, err := OpenFileDevice(path)
	if err != nil {
		t.Fatalf("OpenFileDevice failed: %v", err)
	}
	defer dev.Close()

	if got, want := dev.SectorCount(), uint32(16); got != want {
		t.Fatalf("SectorCount() = %d, want %d", got, want)
	}

	src := bytes.Repeat([]byte{0xAB}, SectorSize)
	if err := dev.WriteSector(3, src); err != nil {
		t.Fatalf("WriteSector failed: %v", err)
	}
	dst := make([]byte, SectorSize)
	if err := dev.ReadSector(3, dst); err != nil {
		t.Fatalf("ReadSector failed: %v", err)
	}
	if !bytes.Equal(src, dst) {
		t.Error("sector contents did not round trip through the file")
	}
}

func TestFileDeviceLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	if err := os.WriteFile(path, make([]byte, 16*SectorSize), 0o644); err != nil {
		t.Fatalf("creating backing file: %v", err)
	}

	dev, err := OpenFileDevice(path)
	if err != nil {
		t.Fatalf("OpenFileDevice failed: %v", err)
	}
	defer dev.Close()

	// A second open of the same image must be refused while the first
	// holds the lock.
	if second, err := OpenFileDevice(path); err == nil {
		second.Close()
		t.Error("second OpenFileDevice succeeded, want lock conflict")
	}
}
