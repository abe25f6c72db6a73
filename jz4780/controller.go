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

// Package jz4780 drives NAND chips attached to the Ingenic JZ4780's
// external memory controller. Each chip sits behind an NEMC bank window
// whose address bits 22 and 23 multiplex command, address and data
// cycles; ECC is offloaded to the SoC's BCH block.
package jz4780

import (
	"errors"
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio"

	"github.com/HarveyHunt/jznand/bch"
	"github.com/HarveyHunt/jznand/mtd"
	"github.com/HarveyHunt/jznand/nand"
	"github.com/HarveyHunt/jznand/nemc"
	"github.com/u-root/u-root/pkg/dt"
)

// DriverName doubles as the MTD name prefix.
const DriverName = "jz4780-nand"

// Compatible is the controller node's device-tree compatible string.
const Compatible = "ingenic,jz4780-nand"

var ErrNoBanks = errors.New("no NEMC banks found")

// Device bundles the platform resources a controller is probed from.
// The device-tree node is the authoritative external surface; the rest
// are the collaborator bindings the core consumes.
type Device struct {
	// Node is the controller's firmware node. Its children describe the
	// attached chips; each must carry a one-cell reg property holding
	// the NEMC bank index.
	Node *dt.Node

	// NEMC owns bank timing and chip-enable lines.
	NEMC nemc.Controller

	// MapBank maps a bank's memory window. The mapping's lifetime is
	// tied to the platform device; the core never unmaps.
	MapBank func(bank uint32) (Window, error)

	// LookupGPIO resolves a firmware GPIO reference. Optional when no
	// chip declares rb-gpios or wp-gpios.
	LookupGPIO func(ph dt.PHandle, pin uint32) (gpio.PinIO, error)
}

// bankWindow pairs an NEMC bank index with its mapped window. The
// controller keeps them in a compact array indexed by framework chip
// number; bank indices may be an arbitrary subset of the NEMC's banks.
type bankWindow struct {
	bank uint32
	win  Window
}

// Controller aggregates the chips sharing one NAND bus.
type Controller struct {
	dev      *Device
	nemc     nemc.Controller
	numBanks uint32

	// hw is the serialization primitive handed to the framework; hooks
	// only ever run under its lock.
	hw nand.Controller

	// bch is acquired on the first hardware-ECC chip and shared, then
	// released exactly once at Remove.
	bch *bch.Handle

	banks []bankWindow
	chips []*chip
}

// Probe brings the controller up: it sizes the bank table from the
// NEMC, enumerates the firmware children and attaches one chip per
// child. On any failure every already-attached chip is rolled back.
func Probe(dev *Device) (*Controller, error) {
	numBanks := dev.NEMC.NumBanks()
	if numBanks == 0 {
		return nil, ErrNoBanks
	}

	nfc := &Controller{
		dev:      dev,
		nemc:     dev.NEMC,
		numBanks: numBanks,
		banks:    make([]bankWindow, 0, numBanks),
	}

	if err := nfc.initChips(); err != nil {
		nfc.teardown()
		return nil, err
	}
	return nfc, nil
}

// Chips reports the registered MTD devices, in chip order.
func (nfc *Controller) Chips() []*nand.MTD {
	var mtds []*nand.MTD
	for _, c := range nfc.chips {
		mtds = append(mtds, c.mtd)
	}
	return mtds
}

// initChips walks the controller node's children. Bank numbers need not
// be consecutive, but the framework expects chip numbers to be, so the
// compact bank table maps chip number to actual bank.
func (nfc *Controller) initChips() error {
	children := nfc.dev.Node.Children
	if len(children) > int(nfc.numBanks) {
		return fmt.Errorf("%s: found %d chips but only %d banks",
			DriverName, len(children), nfc.numBanks)
	}

	for i, np := range children {
		reg, ok := np.LookProperty("reg")
		if !ok {
			return fmt.Errorf("%s: child %q has no reg property", DriverName, np.Name)
		}
		bank, err := reg.AsU32()
		if err != nil {
			return fmt.Errorf("%s: child %q: bad reg: %v", DriverName, np.Name, err)
		}

		nfc.banks = append(nfc.banks, bankWindow{bank: bank})
		if err := nfc.initChip(np, i); err != nil {
			return err
		}
	}
	return nil
}

func (nfc *Controller) initChip(np *dt.Node, chipnr int) error {
	cs := &nfc.banks[chipnr]

	if err := nfc.nemc.SetType(cs.bank, nemc.BankNAND); err != nil {
		return err
	}

	win, err := nfc.dev.MapBank(cs.bank)
	if err != nil {
		return fmt.Errorf("%s: failed to map bank %d: %v", DriverName, cs.bank, err)
	}
	cs.win = win

	c := &chip{
		nfc:      nfc,
		node:     np,
		selected: -1,
		rd:       &pointer{},
		wr:       &pointer{},
	}

	c.busyGPIO, c.busyActiveLow, err = nfc.requestGPIO(np, "rb-gpios", false)
	if err != nil {
		return fmt.Errorf("%s: failed to request busy GPIO: %v", DriverName, err)
	}
	c.wpGPIO, c.wpActiveLow, err = nfc.requestGPIO(np, "wp-gpios", true)
	if err != nil {
		return fmt.Errorf("%s: failed to request WP GPIO: %v", DriverName, err)
	}

	nc := &c.nand
	nc.Controller = &nfc.hw
	nc.Index = chipnr
	nc.SelectChip = c.selectChip
	nc.CmdCtrl = c.cmdCtrl
	nc.ChipDelay = nand.DefaultChipDelay
	nc.IOR = c.rd
	nc.IOW = c.wr
	if c.busyGPIO != nil {
		nc.DevReady = c.devReady
	}

	if err := readECCConfig(np, &nc.ECC); err != nil {
		return err
	}

	// Two-phase scan: identify discovers the geometry the ECC setup
	// depends on; the tail scan validates the generated layout.
	if err := nand.ScanIdent(nc); err != nil {
		return err
	}
	if err := c.initECC(); err != nil {
		return err
	}
	if err := nand.ScanTail(nc); err != nil {
		return err
	}

	c.mtd = nand.NewMTD(fmt.Sprintf("%s.%d", DriverName, cs.bank), nc)

	parts, err := mtd.ParsePartitions(np)
	if err != nil {
		return err
	}
	if err := mtd.Register(c.mtd, parts); err != nil {
		return err
	}

	nfc.chips = append(nfc.chips, c)
	return nil
}

// Remove detaches every chip from the MTD registry and drops the shared
// BCH handle. Windows and GPIOs are released by the platform device's
// scoped lifetime.
func (nfc *Controller) Remove() {
	nfc.teardown()
}

func (nfc *Controller) teardown() {
	for _, c := range nfc.chips {
		if err := mtd.Unregister(c.mtd.Name()); err != nil {
			log.Printf("%s: unregister %s: %v", DriverName, c.mtd.Name(), err)
		}
	}
	nfc.chips = nil

	if nfc.bch != nil {
		nfc.bch.Release()
		nfc.bch = nil
	}
}

func (nfc *Controller) bchPhandle() (dt.PHandle, bool) {
	prop, ok := nfc.dev.Node.LookProperty("ingenic,bch-controller")
	if !ok {
		return 0, false
	}
	ph, err := prop.AsPHandle()
	if err != nil {
		return 0, false
	}
	return ph, true
}

// requestGPIO resolves an optional firmware GPIO reference: a 3-cell
// (phandle, pin, flags) array where flags bit 0 declares the line
// active-low. Inputs are configured for polling, outputs driven low.
func (nfc *Controller) requestGPIO(np *dt.Node, name string, output bool) (gpio.PinIO, bool, error) {
	prop, ok := np.LookProperty(name)
	if !ok {
		return nil, false, nil
	}

	arr, err := prop.AsPropEncodedArray()
	if err != nil || len(arr) != 12 {
		return nil, false, fmt.Errorf("%s must be <phandle pin flags>", name)
	}
	ph := dt.PHandle(beU32(arr[0:]))
	pin := beU32(arr[4:])
	activeLow := beU32(arr[8:])&1 != 0

	if nfc.dev.LookupGPIO == nil {
		return nil, false, fmt.Errorf("%s declared but no GPIO provider", name)
	}
	p, err := nfc.dev.LookupGPIO(ph, pin)
	if err != nil {
		return nil, false, err
	}

	if output {
		err = p.Out(gpio.Low)
	} else {
		err = p.In(gpio.PullNoChange, gpio.NoEdge)
	}
	if err != nil {
		return nil, false, err
	}
	return p, activeLow, nil
}

func beU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// readECCConfig applies the generic NAND ECC bindings from a chip node.
// Absent properties leave the zero values: no ECC, parameters to be
// derived later.
func readECCConfig(np *dt.Node, e *nand.ECC) error {
	if prop, ok := np.LookProperty("nand-ecc-mode"); ok {
		s, err := prop.AsString()
		if err != nil {
			return fmt.Errorf("bad nand-ecc-mode: %v", err)
		}
		mode, err := nand.ParseECCMode(s)
		if err != nil {
			return err
		}
		e.Mode = mode
	}
	if prop, ok := np.LookProperty("nand-ecc-step-size"); ok {
		v, err := prop.AsU32()
		if err != nil {
			return fmt.Errorf("bad nand-ecc-step-size: %v", err)
		}
		e.Size = int(v)
	}
	if prop, ok := np.LookProperty("nand-ecc-strength"); ok {
		v, err := prop.AsU32()
		if err != nil {
			return fmt.Errorf("bad nand-ecc-strength: %v", err)
		}
		e.Strength = int(v)
	}
	return nil
}
