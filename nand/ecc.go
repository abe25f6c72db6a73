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
)

// ECCMode selects who computes and applies ECC.
type ECCMode int

const (
	// ECCNone stores pages raw.
	ECCNone ECCMode = iota
	// ECCHard offloads ECC to a hardware engine via the chip's
	// Hwctl/Calculate/Correct hooks.
	ECCHard
	// ECCSoft uses the framework's software Hamming code.
	ECCSoft
	// ECCSoftBCH is software BCH, also framework-owned.
	ECCSoftBCH
)

func (m ECCMode) String() string {
	switch m {
	case ECCNone:
		return "none"
	case ECCHard:
		return "hw"
	case ECCSoft:
		return "soft"
	case ECCSoftBCH:
		return "soft_bch"
	default:
		return "invalid"
	}
}

// ParseECCMode maps the firmware nand-ecc-mode strings onto modes.
func ParseECCMode(s string) (ECCMode, error) {
	switch s {
	case "none":
		return ECCNone, nil
	case "hw":
		return ECCHard, nil
	case "soft":
		return ECCSoft, nil
	case "soft_bch":
		return ECCSoftBCH, nil
	default:
		return ECCNone, fmt.Errorf("unknown ECC mode %q", s)
	}
}

// ECCOp tells the hardware-ECC hwctl hook which direction the upcoming
// page operation moves data.
type ECCOp int

const (
	ECCRead ECCOp = iota
	ECCWrite
)

// OOBFree is one span of the OOB area not consumed by ECC.
type OOBFree struct {
	Offset int
	Length int
}

// OOBLayout places ECC bytes and free space within the OOB area.
type OOBLayout struct {
	// ECCBytes is the total ECC byte count for a full page.
	ECCBytes int
	// ECCPos lists the OOB byte offsets holding ECC, in storage order.
	ECCPos []int
	// Free lists the spans usable for metadata.
	Free []OOBFree
}

// ECC is the per-chip ECC configuration. For ECCHard the driver fills
// the hooks and geometry before ScanTail; for the software modes the
// framework fills them itself.
type ECC struct {
	Mode ECCMode

	// Size is the data step size one code word covers, Bytes the ECC
	// bytes per step, Strength the correctable bits per step.
	Size     int
	Bytes    int
	Strength int

	// Steps and Total are derived by ScanTail from the page size.
	Steps int
	Total int

	Layout *OOBLayout

	// Hwctl announces the direction of the upcoming operation.
	Hwctl func(op ECCOp)
	// Calculate computes ECC for one step into ecc.
	Calculate func(data []byte, ecc []byte) error
	// Correct repairs one step in place given the ECC read back and the
	// one just calculated, returning the number of bits fixed.
	Correct func(data, readECC, calcECC []byte) (int, error)
}

var ErrEccLayout = errors.New("ECC layout does not fit OOB area")

// validate checks a layout against the chip's OOB size and the derived
// ECC totals.
func (e *ECC) validate(oobSize int) error {
	if e.Layout == nil {
		return errors.New("no ECC layout")
	}
	if len(e.Layout.ECCPos) != e.Total || e.Layout.ECCBytes != e.Total {
		return fmt.Errorf("ECC layout holds %d bytes, need %d",
			e.Layout.ECCBytes, e.Total)
	}
	for _, pos := range e.Layout.ECCPos {
		if pos < 0 || pos >= oobSize {
			return ErrEccLayout
		}
	}
	for _, f := range e.Layout.Free {
		if f.Offset < 0 || f.Offset+f.Length > oobSize {
			return ErrEccLayout
		}
	}
	return nil
}
