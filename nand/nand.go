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

// Package nand is a small raw-NAND framework: it drives byte-wide
// command, address and data cycles through driver-provided hooks and
// layers page read/program, block erase and ECC handling on top.
//
// Drivers own the bus. The framework only ever touches it through the
// hook set on Chip, and always with the chip's Controller lock held.
package nand

import (
	"errors"
	"sync"
	"time"
)

// Ctrl describes the bus line state accompanying one hook call.
type Ctrl uint

const (
	// CtrlNCE requests the chip-enable line be asserted.
	CtrlNCE Ctrl = 0x01
	// CtrlCLE latches the byte as a command.
	CtrlCLE Ctrl = 0x02
	// CtrlALE latches the byte as an address cycle.
	CtrlALE Ctrl = 0x04
	// CtrlChange marks a bus state change: the line selection or
	// chip-enable differs from the previous call and must be committed
	// before any byte is emitted.
	CtrlChange Ctrl = 0x80
)

// CmdNone is the "no byte" sentinel passed to the command-control hook
// when only the line state changes.
const CmdNone = -1

// NAND command set (large-page devices).
const (
	CmdRead0       = 0x00
	CmdRndOut      = 0x05
	CmdPageProg    = 0x10
	CmdReadStart   = 0x30
	CmdErase1      = 0x60
	CmdStatus      = 0x70
	CmdSeqIn       = 0x80
	CmdReadID      = 0x90
	CmdRndOutStart = 0xe0
	CmdErase2      = 0xd0
	CmdReset       = 0xff
)

// Status register bits.
const (
	StatusFail  = 0x01
	StatusReady = 0x40
	StatusWP    = 0x80 // clear means write-protected
)

var (
	ErrTimeout        = errors.New("timeout waiting for device ready")
	ErrUnknownDevice  = errors.New("unknown device ID")
	ErrWriteProtected = errors.New("device is write-protected")
	ErrProgramFailed  = errors.New("program/erase operation failed")
)

// readyTimeout bounds DevReady polling; mirrors the framework's longest
// erase timeout.
const readyTimeout = 400 * time.Millisecond

// DefaultChipDelay is the fixed post-command wait used when no
// ready/busy line is wired.
const DefaultChipDelay = 100 * time.Microsecond

// Pointer is a byte-wide location on the NAND bus. The driver retargets
// the chip's pointers between the data, command and address sub-windows.
type Pointer interface {
	WriteByte(v uint8)
	ReadByte() uint8
}

// Controller serializes all operations against the chips sharing one
// physical bus. The driver allocates one per hardware controller; every
// hook is only ever invoked with its lock held.
type Controller struct {
	mu sync.Mutex

	// Active is the chip currently holding the bus, nil between
	// operations.
	Active *Chip
}

func (c *Controller) acquire(chip *Chip) {
	c.mu.Lock()
	c.Active = chip
}

func (c *Controller) release() {
	c.Active = nil
	c.mu.Unlock()
}

// Chip is one physical NAND device, its driver hooks and its geometry.
// Drivers fill the hooks and Controller before ScanIdent; geometry is
// discovered by the scan.
type Chip struct {
	Controller *Controller

	// Index is the framework chip number passed to SelectChip,
	// consecutive from 0 across the controller.
	Index int

	// SelectChip selects chip n for following bus cycles, or deselects
	// everything when n is -1.
	SelectChip func(n int)

	// CmdCtrl is the command-control hook: cmd is a byte value or
	// CmdNone, ctrl the accompanying line state.
	CmdCtrl func(cmd int, ctrl Ctrl)

	// DevReady reports the ready/busy line, if the driver wired one.
	// Left nil, the framework waits ChipDelay after every command.
	DevReady func() bool

	// IOR and IOW are the data read/write pointers. The driver points
	// them at the data sub-window on select.
	IOR, IOW Pointer

	// ChipDelay is the post-command wait used when DevReady is nil.
	ChipDelay time.Duration

	ECC ECC

	// Geometry, filled by ScanIdent.
	Name      string
	ChipSize  int64
	PageSize  int
	OOBSize   int
	EraseSize int
}

// pagesPerChip is derived geometry used for bounds checks.
func (c *Chip) pages() int {
	if c.PageSize == 0 {
		return 0
	}
	return int(c.ChipSize / int64(c.PageSize))
}

func (c *Chip) readBuf(p []byte) {
	for i := range p {
		p[i] = c.IOR.ReadByte()
	}
}

func (c *Chip) writeBuf(p []byte) {
	for i := range p {
		c.IOW.WriteByte(p[i])
	}
}
