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
	"reflect"
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/HarveyHunt/jznand/nand"
	"github.com/HarveyHunt/jznand/sim"
	"github.com/davecgh/go-spew/spew"
)

// testBankChip wires one chip onto a controller's bank table without a
// full probe, for exercising the hooks in isolation.
func testBankChip(nfc *Controller, bank uint32, win Window) *chip {
	nfc.banks = append(nfc.banks, bankWindow{bank: bank, win: win})
	c := &chip{
		nfc:      nfc,
		selected: -1,
		rd:       &pointer{},
		wr:       &pointer{},
	}
	c.selectChip(len(nfc.banks) - 1)
	return c
}

func TestCmdCtrlRoutesCycles(t *testing.T) {
	nemcSim := sim.NewNEMC(6)
	nandSim := sim.NewTC58NVG2S0F()
	nfc := &Controller{nemc: nemcSim}
	c := testBankChip(nfc, 1, nandSim)

	// A status command the way the framework issues it: one command
	// cycle, then the bus returned to data with chip-enable dropped.
	c.cmdCtrl(nand.CmdStatus, nand.CtrlCLE|nand.CtrlNCE|nand.CtrlChange)
	c.cmdCtrl(nand.CmdNone, nand.CtrlNCE|nand.CtrlChange)

	// A single address cycle.
	c.cmdCtrl(0x00, nand.CtrlALE|nand.CtrlNCE|nand.CtrlChange)

	want := []sim.Write{
		{Off: OffsetCmd, Val: nand.CmdStatus},
		{Off: OffsetAddr, Val: 0x00},
	}
	if !reflect.DeepEqual(nandSim.Writes, want) {
		spew.Dump(nandSim.Writes)
		t.Fatal("bus writes landed on the wrong sub-windows")
	}
}

func TestCmdCtrlWritePointerFollowsLines(t *testing.T) {
	cases := []struct {
		ctrl nand.Ctrl
		off  uint32
	}{
		{nand.CtrlCLE | nand.CtrlNCE | nand.CtrlChange, OffsetCmd},
		{nand.CtrlALE | nand.CtrlNCE | nand.CtrlChange, OffsetAddr},
		{nand.CtrlNCE | nand.CtrlChange, OffsetData},
	}

	nfc := &Controller{nemc: sim.NewNEMC(6)}
	c := testBankChip(nfc, 1, sim.NewTC58NVG2S0F())

	for _, tc := range cases {
		c.cmdCtrl(nand.CmdNone, tc.ctrl)
		if c.wr.off != tc.off {
			t.Fatalf("ctrl %#02x: write pointer at %#x, want %#x", uint(tc.ctrl), c.wr.off, tc.off)
		}
		// The read pointer never leaves the data sub-window.
		if c.rd.off != OffsetData {
			t.Fatalf("ctrl %#02x: read pointer moved to %#x", uint(tc.ctrl), c.rd.off)
		}
	}
}

// Without CtrlChange the pointer must stay put: repeated address cycles
// reuse the committed line state.
func TestCmdCtrlNoChangeKeepsWindow(t *testing.T) {
	nfc := &Controller{nemc: sim.NewNEMC(6)}
	c := testBankChip(nfc, 1, sim.NewTC58NVG2S0F())

	c.cmdCtrl(0x01, nand.CtrlALE|nand.CtrlNCE|nand.CtrlChange)
	c.cmdCtrl(0x02, nand.CtrlALE|nand.CtrlNCE)
	c.cmdCtrl(0x03, nand.CtrlALE|nand.CtrlNCE)

	if c.wr.off != OffsetAddr {
		t.Fatalf("write pointer at %#x after address run", c.wr.off)
	}
}

func TestCmdCtrlChipEnable(t *testing.T) {
	nemcSim := sim.NewNEMC(6)
	nfc := &Controller{nemc: nemcSim}
	c := testBankChip(nfc, 3, sim.NewTC58NVG2S0F())

	c.cmdCtrl(nand.CmdStatus, nand.CtrlCLE|nand.CtrlNCE|nand.CtrlChange)
	if banks := nemcSim.AssertedBanks(); !reflect.DeepEqual(banks, []uint32{3}) {
		t.Fatalf("asserted banks %v during command, want [3]", banks)
	}

	c.cmdCtrl(nand.CmdNone, nand.CtrlNCE|nand.CtrlChange)
	if banks := nemcSim.AssertedBanks(); !reflect.DeepEqual(banks, []uint32{3}) {
		t.Fatalf("asserted banks %v on data return, want [3]", banks)
	}

	// Dropping NCE with a change deasserts the bank.
	c.cmdCtrl(nand.CmdNone, nand.CtrlChange)
	if banks := nemcSim.AssertedBanks(); len(banks) != 0 {
		t.Fatalf("asserted banks %v after NCE drop, want none", banks)
	}
}

// Selection alone must not touch chip-enable; only cmdCtrl sequences it.
func TestSelectDoesNotAssert(t *testing.T) {
	nemcSim := sim.NewNEMC(6)
	nfc := &Controller{nemc: nemcSim}
	c := testBankChip(nfc, 1, sim.NewTC58NVG2S0F())

	if len(nemcSim.Log) != 0 {
		t.Fatalf("select produced %d assert calls", len(nemcSim.Log))
	}

	// Deselect after a command deasserts the bank.
	c.cmdCtrl(nand.CmdStatus, nand.CtrlCLE|nand.CtrlNCE|nand.CtrlChange)
	c.selectChip(-1)
	if banks := nemcSim.AssertedBanks(); len(banks) != 0 {
		t.Fatalf("banks %v still asserted after deselect", banks)
	}
	if c.selected != -1 {
		t.Fatalf("selected = %d after deselect", c.selected)
	}
}

func TestCmdCtrlNoSelectionIsNoop(t *testing.T) {
	c := &chip{selected: -1}

	// Must not panic or touch anything; there is no bank to talk to.
	c.cmdCtrl(nand.CmdStatus, nand.CtrlCLE|nand.CtrlNCE|nand.CtrlChange)
}

// Interleaved operations on two chips may never enable both banks at
// once, and must leave everything deasserted.
func TestTwoChipExclusion(t *testing.T) {
	node := controllerNode(newPH(), chipNode(1), chipNode(3))
	p := newPlatform(t, 6, node, map[uint32]*sim.NAND{
		1: sim.NewTC58NVG2S0F(),
		3: sim.NewTC58NVG2S0F(),
	})
	nfc := p.probe(t)
	mtds := nfc.Chips()

	data := make([]byte, mtds[0].WriteSize())
	for i := range data {
		data[i] = byte(i)
	}

	for round := 0; round < 3; round++ {
		for _, m := range mtds {
			if err := m.WritePage(round, data, nil); err != nil {
				t.Fatalf("%s: WritePage: %v", m.Name(), err)
			}
			back := make([]byte, m.WriteSize())
			if _, err := m.ReadPage(round, back, nil); err != nil {
				t.Fatalf("%s: ReadPage: %v", m.Name(), err)
			}
			if !reflect.DeepEqual(back, data) {
				t.Fatalf("%s: page %d corrupted", m.Name(), round)
			}
		}
	}

	if p.nemc.MaxAsserted > 1 {
		t.Fatalf("%d banks asserted concurrently", p.nemc.MaxAsserted)
	}
	if banks := p.nemc.AssertedBanks(); len(banks) != 0 {
		t.Fatalf("banks %v left asserted", banks)
	}
}

func TestDevReadyPolarity(t *testing.T) {
	cases := []struct {
		level     gpio.Level
		activeLow bool
		want      bool
	}{
		{gpio.High, false, true},
		{gpio.Low, false, false},
		{gpio.High, true, false},
		{gpio.Low, true, true},
	}

	for _, tc := range cases {
		c := &chip{
			busyGPIO:      &gpiotest.Pin{N: "RB", L: tc.level},
			busyActiveLow: tc.activeLow,
		}
		if got := c.devReady(); got != tc.want {
			t.Fatalf("level %v activeLow %v: ready %v, want %v",
				tc.level, tc.activeLow, got, tc.want)
		}
	}
}

// A chip without a ready/busy line falls back to the fixed command
// delay: the framework hook must stay nil.
func TestNoBusyGPIOMeansDelayFallback(t *testing.T) {
	child := chipNode(1)
	child.Properties = child.Properties[:len(child.Properties)-1] // drop rb-gpios
	node := controllerNode(newPH(), child)
	p := newPlatform(t, 6, node, map[uint32]*sim.NAND{1: sim.NewTC58NVG2S0F()})
	nfc := p.probe(t)

	c := nfc.chips[0]
	if c.nand.DevReady != nil {
		t.Fatal("DevReady installed without an rb GPIO")
	}
	if c.nand.ChipDelay != nand.DefaultChipDelay {
		t.Fatalf("ChipDelay = %v, want default", c.nand.ChipDelay)
	}

	// Operations still work on the delay path.
	m := nfc.Chips()[0]
	if _, err := m.Status(); err != nil {
		t.Fatalf("Status: %v", err)
	}
}
