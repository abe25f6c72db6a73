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

package jz4780

import (
	"fmt"
	"log"
	"math/bits"

	"github.com/HarveyHunt/jznand/bch"
	"github.com/HarveyHunt/jznand/nand"
)

// ECCBytesPerStep is the check byte count a BCH code needs for one
// step: strength code symbols over a Galois field wide enough to
// address every bit of the step, rounded up to whole bytes.
func ECCBytesPerStep(stepSize, strength int) int {
	return (strength*bits.Len(uint(1+8*stepSize)) + 7) / 8
}

func (c *chip) bchParams() bch.Params {
	return bch.Params{
		Size:     c.nand.ECC.Size,
		Bytes:    c.nand.ECC.Bytes,
		Strength: c.nand.ECC.Strength,
	}
}

func (c *chip) eccHwctl(op nand.ECCOp) {
	c.reading = op == nand.ECCRead
}

func (c *chip) eccCalculate(data, ecc []byte) error {
	// No ECC to generate when reading; the BCH engine computes and
	// applies correction in one shot inside eccCorrect.
	if c.reading {
		return nil
	}
	return c.nfc.bch.Calculate(c.bchParams(), data, ecc)
}

func (c *chip) eccCorrect(data, readECC, calcECC []byte) (int, error) {
	return c.nfc.bch.Correct(c.bchParams(), data, readECC)
}

// initECC runs between the scan phases: geometry is known, the layout
// is not yet validated. It derives the ECC byte count, acquires the
// shared BCH engine for hardware ECC, and generates the OOB layout for
// every mode whose layout the framework does not own.
func (c *chip) initECC() error {
	nfc := c.nfc
	e := &c.nand.ECC

	if e.Size > 0 {
		e.Bytes = ECCBytesPerStep(e.Size, e.Strength)
	}

	if e.Mode == nand.ECCHard {
		// Only set up the BCH engine once; it is shared by every chip
		// on the controller.
		if nfc.bch == nil {
			ph, ok := nfc.bchPhandle()
			if !ok {
				return fmt.Errorf("%s: no bch controller in DT", DriverName)
			}
			h, err := bch.Get(ph)
			if err != nil {
				return err
			}
			nfc.bch = h
		}

		e.Hwctl = c.eccHwctl
		e.Calculate = c.eccCalculate
		e.Correct = c.eccCorrect
	}

	if e.Mode != nand.ECCNone {
		kind := "software"
		if nfc.bch != nil {
			kind = "hardware"
		}
		log.Printf("%s: using %s BCH (strength %d, size %d, bytes %d)",
			DriverName, kind, e.Strength, e.Size, e.Bytes)
	} else {
		log.Printf("%s: not using ECC", DriverName)
	}

	// The framework generates the layout for the software modes.
	if e.Mode == nand.ECCSoft || e.Mode == nand.ECCSoftBCH {
		return nil
	}

	return c.generateLayout()
}

// generateLayout right-aligns the ECC codes in the OOB area. The first
// two OOB bytes stay reserved for bad-block markers; the single free
// region spans from there to the start of the ECC bytes. A chip whose
// OOB cannot hold the codes is refused.
func (c *chip) generateLayout() error {
	e := &c.nand.ECC

	total := 0
	if e.Size > 0 {
		total = c.nand.PageSize / e.Size * e.Bytes
	}
	if total+2 > c.nand.OOBSize {
		return fmt.Errorf("%s: %d ECC bytes + 2 reserved exceed %d OOB bytes",
			DriverName, total, c.nand.OOBSize)
	}

	c.layout = nand.OOBLayout{
		ECCBytes: total,
		ECCPos:   make([]int, total),
		Free:     []nand.OOBFree{{Offset: 2, Length: c.nand.OOBSize - total - 2}},
	}
	start := c.nand.OOBSize - total
	for i := range c.layout.ECCPos {
		c.layout.ECCPos[i] = start + i
	}

	e.Layout = &c.layout
	return nil
}
