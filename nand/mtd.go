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

// MTD is the memory-technology-device view of a scanned chip: the
// surface registered with the mtd package and the entry point for page
// operations.
type MTD struct {
	name string
	chip *Chip
}

// NewMTD pairs a chip with its device name. The chip must have been
// scanned first.
func NewMTD(name string, c *Chip) *MTD {
	return &MTD{name: name, chip: c}
}

func (m *MTD) Chip() *Chip    { return m.chip }
func (m *MTD) Name() string   { return m.name }
func (m *MTD) Size() int64    { return m.chip.ChipSize }
func (m *MTD) WriteSize() int { return m.chip.PageSize }
func (m *MTD) EraseSize() int { return m.chip.EraseSize }
func (m *MTD) OOBSize() int   { return m.chip.OOBSize }

// acquire takes the controller lock and selects the chip; every
// operation is bracketed by acquire/release so hooks are never
// re-entered concurrently for one controller.
func (m *MTD) acquire() {
	m.chip.Controller.acquire(m.chip)
	m.chip.SelectChip(m.chip.Index)
}

func (m *MTD) release() {
	m.chip.SelectChip(-1)
	m.chip.Controller.release()
}
