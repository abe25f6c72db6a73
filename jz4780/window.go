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

// Window offsets: the NEMC decodes address bits 22 and 23 of a bank
// window into the cycle type. These are a hardware contract; 00 is a
// data cycle, 01 a command cycle, 10 an address cycle.
const (
	OffsetData = 0x000000
	OffsetCmd  = 0x400000
	OffsetAddr = 0x800000
)

// Window is one mapped NEMC bank window, at least 12 MiB wide so the
// cycle-type bits stay inside it. Byte-wide programmed I/O only.
type Window interface {
	WriteByte(off uint32, v uint8)
	ReadByte(off uint32) uint8
}

// pointer is a retargetable location within a bank window; the chip's
// read pointer stays on the data sub-window while the write pointer
// moves between the three sub-windows as the control lines change.
type pointer struct {
	win Window
	off uint32
}

func (p *pointer) WriteByte(v uint8) { p.win.WriteByte(p.off, v) }
func (p *pointer) ReadByte() uint8   { return p.win.ReadByte(p.off) }

func (p *pointer) retarget(win Window, off uint32) {
	p.win = win
	p.off = off
}
