// Copyright © 2024 The jznand Authors
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

package nand

import (
	"bytes"
	"fmt"
)

// Definition describes one known flash device. Entries either spell the
// full geometry out (full-ID parts whose spare area the extended ID
// cannot encode) or leave PageSize zero to have it decoded from the
// extended ID bytes.
type Definition struct {
	// Name of the device, e.g. "TC58NVG2S0F 4G 3,3V 8-bit".
	Name string

	// ID is the prefix of the ID bytes matching this device. Two bytes
	// for extended-ID parts, longer for full-ID entries.
	ID []byte

	// ChipSize is the device size in bytes.
	ChipSize int64

	// Explicit geometry; PageSize == 0 selects extended-ID decoding.
	PageSize  int
	OOBSize   int
	EraseSize int
}

var definitions []*Definition

// RegisterDevice adds a definition to the ID table. Longer ID prefixes
// win over shorter ones at lookup time.
func RegisterDevice(d *Definition) {
	for _, other := range definitions {
		if other.Name == d.Name {
			panic("device already registered with name " + d.Name)
		}
	}
	definitions = append(definitions, d)
}

// identify matches the ID bytes read from a device against the table,
// preferring the longest matching prefix.
func identify(id []byte) *Definition {
	var best *Definition
	for _, d := range definitions {
		if len(d.ID) > len(id) || !bytes.Equal(id[:len(d.ID)], d.ID) {
			continue
		}
		if best == nil || len(d.ID) > len(best.ID) {
			best = d
		}
	}
	return best
}

// decodeExtID fills geometry from the 4th ID byte of extended-ID parts:
// two bits of page size, one of spare size per 512 bytes, two of erase
// block size.
func decodeExtID(c *Chip, extid uint8) {
	c.PageSize = 1024 << (extid & 0x3)
	c.OOBSize = (8 << (extid >> 2 & 0x1)) * (c.PageSize / 512)
	c.EraseSize = (64 * 1024) << (extid >> 4 & 0x3)
}

func applyDefinition(c *Chip, d *Definition, id []byte) error {
	c.Name = d.Name
	c.ChipSize = d.ChipSize

	if d.PageSize != 0 {
		c.PageSize = d.PageSize
		c.OOBSize = d.OOBSize
		c.EraseSize = d.EraseSize
	} else {
		if len(id) < 4 {
			return fmt.Errorf("device %q needs 4 ID bytes for geometry, got %d",
				d.Name, len(id))
		}
		decodeExtID(c, id[3])
	}

	if c.PageSize < 2048 {
		return fmt.Errorf("device %q: small-page devices are not supported", d.Name)
	}
	return nil
}

func init() {
	// Extended-ID parts: geometry decoded from ID byte 4.
	RegisterDevice(&Definition{Name: "NAND 128MiB 3,3V 8-bit", ID: []byte{0xec, 0xf1}, ChipSize: 128 << 20})
	RegisterDevice(&Definition{Name: "NAND 256MiB 3,3V 8-bit", ID: []byte{0xec, 0xda}, ChipSize: 256 << 20})
	RegisterDevice(&Definition{Name: "NAND 512MiB 3,3V 8-bit", ID: []byte{0xec, 0xdc}, ChipSize: 512 << 20})
	RegisterDevice(&Definition{Name: "NAND 1GiB 3,3V 8-bit", ID: []byte{0xec, 0xd3}, ChipSize: 1 << 30})

	// Full-ID parts whose spare area the extended ID cannot express.
	RegisterDevice(&Definition{
		Name:      "TC58NVG2S0F 4G 3,3V 8-bit",
		ID:        []byte{0x98, 0xdc, 0x90, 0x26, 0x76, 0x15, 0x01, 0x08},
		ChipSize:  512 << 20,
		PageSize:  4096,
		OOBSize:   224,
		EraseSize: 256 * 1024,
	})
}
