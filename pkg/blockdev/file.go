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
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"emberfs.dev/emberfs/pkg/syserr"
)

// FileDevice is a Device backed by a disk image file. The image is held
// under an exclusive advisory lock for the lifetime of the device so that
// two processes cannot mutate the same image at once.
type FileDevice struct {
	file    *os.File
	lock    *flock.Flock
	sectors uint32
}

var _ Device = (*FileDevice)(nil)

// OpenFileDevice opens the disk image at path. The image size must be a
// whole number of sectors.
func OpenFileDevice(path string) (*FileDevice, error) {
	lock := flock.New(path + ".lock")
	held, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking image %q: %w", path, err)
	}
	if !held {
		return nil, fmt.Errorf("image %q is locked by another process", path)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		lock.Unlock()
		return nil, err
	}
	if st.Size()%SectorSize != 0 {
		f.Close()
		lock.Unlock()
		return nil, fmt.Errorf("image %q size %d is not sector aligned", path, st.Size())
	}

	return &FileDevice{
		file:    f,
		lock:    lock,
		sectors: uint32(st.Size() / SectorSize),
	}, nil
}

// ReadSector implements Device.ReadSector.
func (d *FileDevice) ReadSector(n uint32, buf []byte) error {
	if len(buf) != SectorSize {
		return syserr.ErrInvalid
	}
	if n >= d.sectors {
		return syserr.ErrIO
	}
	c, err := unix.Pread(int(d.file.Fd()), buf, int64(n)*SectorSize)
	if err != nil || c != SectorSize {
		return syserr.ErrIO
	}
	return nil
}

// WriteSector implements Device.WriteSector.
func (d *FileDevice) WriteSector(n uint32, buf []byte) error {
	if len(buf) != SectorSize {
		return syserr.ErrInvalid
	}
	if n >= d.sectors {
		return syserr.ErrIO
	}
	c, err := unix.Pwrite(int(d.file.Fd()), buf, int64(n)*SectorSize)
	if err != nil || c != SectorSize {
		return syserr.ErrIO
	}
	return nil
}

// SectorCount implements Device.SectorCount.
func (d *FileDevice) SectorCount() uint32 { return d.sectors }

// Close implements Device.Close. It releases the image lock.
func (d *FileDevice) Close() error {
	err := d.file.Close()
	if lerr := d.lock.Unlock(); err == nil {
		err = lerr
	}
	return err
}
