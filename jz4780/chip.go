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
	"log"

	"periph.io/x/conn/v3/gpio"

	"github.com/HarveyHunt/jznand/nand"
	"github.com/u-root/u-root/pkg/dt"
)

// chip is one physical NAND device on an NEMC bank.
type chip struct {
	nfc  *Controller
	nand nand.Chip
	node *dt.Node
	mtd  *nand.MTD

	// rd stays on the data sub-window; wr follows the control lines.
	rd, wr *pointer

	busyGPIO      gpio.PinIO
	wpGPIO        gpio.PinIO
	busyActiveLow bool
	wpActiveLow   bool

	// reading is the ECC-direction hint last set through hwctl.
	reading bool

	// selected indexes the controller's bank table, -1 when no chip
	// holds the bus.
	selected int

	layout nand.OOBLayout
}

// selectChip records the framework's chip selection and points the data
// pointers at the bank's data sub-window. Chip-enable is deliberately
// left alone here: the framework sequences it through cmdCtrl, and
// asserting it early breaks multi-chip operation.
func (c *chip) selectChip(n int) {
	if n == -1 {
		// Ensure the currently selected chip is deasserted.
		if c.selected >= 0 {
			cs := &c.nfc.banks[c.selected]
			c.nfc.nemc.Assert(cs.bank, false)
		}
	} else {
		cs := &c.nfc.banks[n]
		c.rd.retarget(cs.win, OffsetData)
		c.wr.retarget(cs.win, OffsetData)
	}

	c.selected = n
}

// cmdCtrl commits a bus state change (write pointer retarget plus
// chip-enable) before emitting the byte, preserving the framework's
// cycle ordering.
func (c *chip) cmdCtrl(cmd int, ctrl nand.Ctrl) {
	if c.selected < 0 {
		log.Printf("jz4780: cmd_ctrl(%#02x, %#02x) with no chip selected", cmd, uint(ctrl))
		return
	}

	cs := &c.nfc.banks[c.selected]

	if ctrl&nand.CtrlChange != 0 {
		switch {
		case ctrl&nand.CtrlALE != 0:
			c.wr.retarget(cs.win, OffsetAddr)
		case ctrl&nand.CtrlCLE != 0:
			c.wr.retarget(cs.win, OffsetCmd)
		default:
			c.wr.retarget(cs.win, OffsetData)
		}
		c.nfc.nemc.Assert(cs.bank, ctrl&nand.CtrlNCE != 0)
	}

	if cmd != nand.CmdNone {
		c.wr.WriteByte(uint8(cmd))
	}
}

// devReady reports the ready/busy line, XORed with its polarity so
// logical high means ready. Only installed when an rb GPIO is wired;
// without one the framework falls back to the fixed command delay.
func (c *chip) devReady() bool {
	return (c.busyGPIO.Read() == gpio.High) != c.busyActiveLow
}
