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

// Package sim provides simulated hardware - a NAND chip behind a bank
// window, an NEMC and a BCH engine - so the whole hook protocol can be
// exercised without silicon.
package sim

import (
	"github.com/HarveyHunt/jznand/nand"
)

// Cycle-type offsets within a bank window, decoded from address bits
// 22 and 23 exactly like the NEMC does.
const (
	offMask = 0xc00000
	offCmd  = 0x400000
	offAddr = 0x800000
)

// Write records one byte write seen on the bus, for tests that check
// where cycles land.
type Write struct {
	Off uint32
	Val uint8
}

type readSource int

const (
	readPage readSource = iota
	readID
	readStatus
)

// NAND is a large-page NAND chip state machine mounted behind a bank
// window. Pages are stored sparsely and read as erased (0xff) until
// written; programming can only clear bits, like the real array.
type NAND struct {
	ID            []byte
	PageSize      int
	OOBSize       int
	PagesPerBlock int

	pages map[int][]byte

	// bus state
	cmd     uint8
	addr    []uint8
	src     readSource
	idPos   int
	page    int
	pos     int
	pageReg []byte
	status  uint8

	// Writes logs every byte write with its window offset.
	Writes []Write
}

// NewTC58NVG2S0F builds the simulated Toshiba part the ID table knows:
// 4096-byte pages, 224 OOB bytes, 256 KiB blocks.
func NewTC58NVG2S0F() *NAND {
	return New([]byte{0x98, 0xdc, 0x90, 0x26, 0x76, 0x15, 0x01, 0x08}, 4096, 224, 64)
}

// New builds a simulated chip. The ID bytes must match an entry of the
// framework's device table for scans to succeed.
func New(id []byte, pageSize, oobSize, pagesPerBlock int) *NAND {
	return &NAND{
		ID:            id,
		PageSize:      pageSize,
		OOBSize:       oobSize,
		PagesPerBlock: pagesPerBlock,
		pages:         make(map[int][]byte),
		status:        nand.StatusReady | nand.StatusWP,
	}
}

func (n *NAND) rowSize() int { return n.PageSize + n.OOBSize }

// pageData returns the stored content of a page, materializing an
// erased page on first touch.
func (n *NAND) pageData(page int) []byte {
	p, ok := n.pages[page]
	if !ok {
		p = make([]byte, n.rowSize())
		for i := range p {
			p[i] = 0xff
		}
		n.pages[page] = p
	}
	return p
}

// WriteByte decodes one bus write: bits 22/23 of the offset select the
// cycle type.
func (n *NAND) WriteByte(off uint32, v uint8) {
	n.Writes = append(n.Writes, Write{Off: off, Val: v})

	switch off & offMask {
	case offCmd:
		n.command(v)
	case offAddr:
		n.addr = append(n.addr, v)
		if n.cmd == nand.CmdSeqIn && len(n.addr) == 5 {
			n.loadPageReg()
		}
	default:
		if n.pageReg != nil && n.pos < len(n.pageReg) {
			n.pageReg[n.pos] &= v
			n.pos++
		}
	}
}

// ReadByte serves data cycles from whichever source the last command
// selected.
func (n *NAND) ReadByte(off uint32) uint8 {
	switch n.src {
	case readID:
		if n.idPos < len(n.ID) {
			v := n.ID[n.idPos]
			n.idPos++
			return v
		}
		return 0
	case readStatus:
		return n.status
	default:
		if n.pageReg != nil && n.pos < len(n.pageReg) {
			v := n.pageReg[n.pos]
			n.pos++
			return v
		}
		return 0xff
	}
}

func (n *NAND) command(cmd uint8) {
	n.cmd = cmd

	switch cmd {
	case nand.CmdReset:
		n.addr = nil
		n.pageReg = nil
		n.src = readPage
		n.status = nand.StatusReady | nand.StatusWP

	case nand.CmdReadID:
		n.addr = nil
		n.src = readID
		n.idPos = 0

	case nand.CmdStatus:
		n.src = readStatus

	case nand.CmdRead0, nand.CmdSeqIn, nand.CmdErase1:
		n.addr = nil
		n.src = readPage

	case nand.CmdReadStart:
		n.decodeAddr()
		row := n.pageData(n.page)
		n.pageReg = make([]byte, len(row))
		copy(n.pageReg, row)
		n.src = readPage

	case nand.CmdPageProg:
		if n.pageReg != nil {
			row := n.pageData(n.page)
			for i, v := range n.pageReg {
				row[i] &= v
			}
			n.pageReg = nil
		}
		n.status = nand.StatusReady | nand.StatusWP

	case nand.CmdErase2:
		n.decodeRowAddr()
		base := n.page - n.page%n.PagesPerBlock
		for p := base; p < base+n.PagesPerBlock; p++ {
			delete(n.pages, p)
		}
		n.status = nand.StatusReady | nand.StatusWP
	}
}

// loadPageReg starts a program: the page register is all ones so data
// cycles can only clear bits of what PageProg later ANDs into the array.
func (n *NAND) loadPageReg() {
	n.decodeAddr()
	n.pageReg = make([]byte, n.rowSize())
	for i := range n.pageReg {
		n.pageReg[i] = 0xff
	}
}

func (n *NAND) decodeAddr() {
	if len(n.addr) >= 5 {
		column := int(n.addr[0]) | int(n.addr[1])<<8
		n.page = int(n.addr[2]) | int(n.addr[3])<<8 | int(n.addr[4])<<16
		n.pos = column
	}
}

func (n *NAND) decodeRowAddr() {
	if len(n.addr) >= 3 {
		n.page = int(n.addr[0]) | int(n.addr[1])<<8 | int(n.addr[2])<<16
	}
}

// Corrupt flips one stored bit of a page, for ECC tests.
func (n *NAND) Corrupt(page, byteOff int, bit uint) {
	row := n.pageData(page)
	row[byteOff] ^= 1 << bit
}

// PageWritten reports whether a page has ever been touched.
func (n *NAND) PageWritten(page int) bool {
	_, ok := n.pages[page]
	return ok
}
