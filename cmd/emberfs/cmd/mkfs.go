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

package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/google/subcommands"

	"emberfs.dev/emberfs/pkg/blockdev"
	"emberfs.dev/emberfs/pkg/ext2"
)

// mkfsConfig is the TOML form of the volume geometry, an alternative to
// spelling everything out in flags.
type mkfsConfig struct {
	SizeMB         uint32 `toml:"size_mb"`
	BlockSize      uint32 `toml:"block_size"`
	InodesPerGroup uint32 `toml:"inodes_per_group"`
	Label          string `toml:"label"`
}

// Mkfs implements subcommands.Command for the "mkfs" command.
type Mkfs struct {
	image          string
	config         string
	sizeMB         uint
	blockSize      uint
	inodesPerGroup uint
	label          string
}

// Name implements subcommands.Command.Name.
func (*Mkfs) Name() string { return "mkfs" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Mkfs) Synopsis() string { return "create a fresh filesystem image" }

// Usage implements subcommands.Command.Usage.
func (*Mkfs) Usage() string {
	return `mkfs --image <path> [--size-mb <n>] [--config <file.toml>] - create a fresh filesystem image
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (m *Mkfs) SetFlags(f *flag.FlagSet) {
	f.StringVar(&m.image, "image", "", "path of the image file to create")
	f.StringVar(&m.config, "config", "", "TOML file with volume geometry; flags override it")
	f.UintVar(&m.sizeMB, "size-mb", 0, "image size in MiB")
	f.UintVar(&m.blockSize, "block-size", 0, "filesystem block size (1024, 2048 or 4096)")
	f.UintVar(&m.inodesPerGroup, "inodes-per-group", 0, "inodes per block group")
	f.StringVar(&m.label, "label", "", "volume label, up to 16 bytes")
}

// Execute implements subcommands.Command.Execute.
func (m *Mkfs) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if m.image == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	var cfg mkfsConfig
	if m.config != "" {
		if _, err := toml.DecodeFile(m.config, &cfg); err != nil {
			Fatalf("reading config %q: %v", m.config, err)
		}
	}
	if m.sizeMB != 0 {
		cfg.SizeMB = uint32(m.sizeMB)
	}
	if m.blockSize != 0 {
		cfg.BlockSize = uint32(m.blockSize)
	}
	if m.inodesPerGroup != 0 {
		cfg.InodesPerGroup = uint32(m.inodesPerGroup)
	}
	if m.label != "" {
		cfg.Label = m.label
	}
	if cfg.SizeMB == 0 {
		cfg.SizeMB = 16
	}

	file, err := os.OpenFile(m.image, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		Fatalf("creating image %q: %v", m.image, err)
	}
	if err := file.Truncate(int64(cfg.SizeMB) * 1 << 20); err != nil {
		file.Close()
		Fatalf("sizing image %q: %v", m.image, err)
	}
	file.Close()

	dev, err := blockdev.OpenFileDevice(m.image)
	if err != nil {
		Fatalf("opening image %q: %v", m.image, err)
	}
	defer dev.Close()

	opts := ext2.MkfsOptions{
		BlockSize:      cfg.BlockSize,
		InodesPerGroup: cfg.InodesPerGroup,
		VolumeName:     cfg.Label,
	}
	if err := ext2.Mkfs(dev, opts); err != nil {
		Fatalf("formatting %q: %v", m.image, err)
	}
	fmt.Printf("%s: formatted, %d MiB\n", m.image, cfg.SizeMB)
	return subcommands.ExitSuccess
}
