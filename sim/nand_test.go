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

package sim

import (
	"testing"

	"github.com/HarveyHunt/jznand/nand"
)

// program runs a raw SeqIn/PageProg sequence against the bus, the way
// the framework's cycle stream arrives.
func program(n *NAND, page int, data []byte) {
	n.WriteByte(offCmd, nand.CmdSeqIn)
	n.WriteByte(offAddr, 0)
	n.WriteByte(offAddr, 0)
	n.WriteByte(offAddr, uint8(page))
	n.WriteByte(offAddr, uint8(page>>8))
	n.WriteByte(offAddr, uint8(page>>16))
	for _, b := range data {
		n.WriteByte(0, b)
	}
	n.WriteByte(offCmd, nand.CmdPageProg)
}

func read(n *NAND, page, count int) []byte {
	n.WriteByte(offCmd, nand.CmdRead0)
	n.WriteByte(offAddr, 0)
	n.WriteByte(offAddr, 0)
	n.WriteByte(offAddr, uint8(page))
	n.WriteByte(offAddr, uint8(page>>8))
	n.WriteByte(offAddr, uint8(page>>16))
	n.WriteByte(offCmd, nand.CmdReadStart)

	out := make([]byte, count)
	for i := range out {
		out[i] = n.ReadByte(0)
	}
	return out
}

func TestProgramClearsBitsOnly(t *testing.T) {
	n := NewTC58NVG2S0F()

	program(n, 0, []byte{0xf0})
	program(n, 0, []byte{0x0f})

	// Two programs AND together; bits only ever clear.
	if got := read(n, 0, 1); got[0] != 0x00 {
		t.Fatalf("byte after overlapping programs %#02x, want 0x00", got[0])
	}
	if !n.PageWritten(0) {
		t.Fatal("page 0 not marked written")
	}
}

func TestEraseRestoresBlock(t *testing.T) {
	n := NewTC58NVG2S0F()

	program(n, 1, []byte{0x00, 0x11, 0x22})

	n.WriteByte(offCmd, nand.CmdErase1)
	n.WriteByte(offAddr, 1)
	n.WriteByte(offAddr, 0)
	n.WriteByte(offAddr, 0)
	n.WriteByte(offCmd, nand.CmdErase2)

	if n.PageWritten(1) {
		t.Fatal("page survived a block erase")
	}
	got := read(n, 1, 3)
	for i, b := range got {
		if b != 0xff {
			t.Fatalf("byte %d reads %#02x after erase, want 0xff", i, b)
		}
	}
}

func TestStatusAndID(t *testing.T) {
	n := NewTC58NVG2S0F()

	n.WriteByte(offCmd, nand.CmdStatus)
	if s := n.ReadByte(0); s&nand.StatusReady == 0 || s&nand.StatusWP == 0 {
		t.Fatalf("status %#02x, want ready and not write-protected", s)
	}

	n.WriteByte(offCmd, nand.CmdReadID)
	n.WriteByte(offAddr, 0)
	for i, want := range n.ID {
		if got := n.ReadByte(0); got != want {
			t.Fatalf("ID byte %d = %#02x, want %#02x", i, got, want)
		}
	}
}
