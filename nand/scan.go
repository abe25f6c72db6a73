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
	"errors"
	"fmt"
	"log"
)

// The scan runs in two phases so drivers can size their ECC between
// them: ScanIdent discovers the device and its geometry, the driver
// then derives ECC parameters and layout from that geometry, and
// ScanTail validates the result and finishes the chip.

// ScanIdent resets the device, reads its ID and fills the chip's
// geometry from the ID table.
func ScanIdent(c *Chip) error {
	if c.Controller == nil || c.SelectChip == nil || c.CmdCtrl == nil {
		return errors.New("chip hooks not installed")
	}
	if c.ChipDelay == 0 {
		c.ChipDelay = DefaultChipDelay
	}

	c.Controller.acquire(c)
	defer c.Controller.release()
	c.SelectChip(c.Index)
	defer c.SelectChip(-1)

	id, err := c.readID()
	if err != nil {
		return err
	}

	d := identify(id)
	if d == nil {
		return fmt.Errorf("%w: % x", ErrUnknownDevice, id)
	}
	if err := applyDefinition(c, d, id); err != nil {
		return err
	}

	log.Printf("nand: found %s (page %d, oob %d, erase %d)",
		c.Name, c.PageSize, c.OOBSize, c.EraseSize)
	return nil
}

// ScanTail validates the ECC configuration against the discovered
// geometry and derives the per-page step counts. For the software mode
// it also installs the framework's own parameters and layout.
func ScanTail(c *Chip) error {
	e := &c.ECC

	switch e.Mode {
	case ECCNone:
		return nil

	case ECCSoft:
		e.Size = HammingBlockSize
		e.Bytes = HammingBytes
		e.Strength = 1

	case ECCSoftBCH:
		return errors.New("software BCH is not supported by this framework")

	case ECCHard:
		if e.Size <= 0 || e.Bytes <= 0 || e.Strength <= 0 {
			return errors.New("hardware ECC configured without parameters")
		}
		if e.Hwctl == nil || e.Calculate == nil || e.Correct == nil {
			return errors.New("hardware ECC configured without hooks")
		}

	default:
		return fmt.Errorf("invalid ECC mode %d", e.Mode)
	}

	if c.PageSize%e.Size != 0 {
		return fmt.Errorf("page size %d is not a multiple of ECC step %d",
			c.PageSize, e.Size)
	}
	e.Steps = c.PageSize / e.Size
	e.Total = e.Steps * e.Bytes

	if e.Mode == ECCSoft {
		layout, err := tailLayout(c.OOBSize, e.Total)
		if err != nil {
			return err
		}
		e.Layout = layout
	}

	return e.validate(c.OOBSize)
}

// tailLayout right-aligns the ECC bytes in the OOB area, reserving the
// leading two bytes for bad-block markers.
func tailLayout(oobSize, total int) (*OOBLayout, error) {
	if total+2 > oobSize {
		return nil, fmt.Errorf("%w: %d ECC bytes + 2 reserved > %d OOB",
			ErrEccLayout, total, oobSize)
	}

	l := &OOBLayout{
		ECCBytes: total,
		ECCPos:   make([]int, total),
		Free:     []OOBFree{{Offset: 2, Length: oobSize - total - 2}},
	}
	for i := range l.ECCPos {
		l.ECCPos[i] = oobSize - total + i
	}
	return l, nil
}
