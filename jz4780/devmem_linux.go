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
	"os"

	"golang.org/x/sys/unix"
)

// The JZ4780 places the NEMC chip-select windows back to back below
// 0x1c000000: CS1 at 0x1b000000, CS2 at 0x1a000000, down to CS6. Each
// window is 16 MiB, comfortably wider than the 12 MiB the cycle-type
// bits need.
const (
	bankWindowSize = 0x1000000
	bankWindowTop  = 0x1c000000
	maxBank        = 6
)

// BankBase returns the physical base address of an NEMC bank window.
func BankBase(bank uint32) (int64, error) {
	if bank < 1 || bank > maxBank {
		return 0, fmt.Errorf("bank %d out of range 1..%d", bank, maxBank)
	}
	return int64(bankWindowTop - bank*bankWindowSize), nil
}

// physWindow is a bank window mapped through /dev/mem.
type physWindow struct {
	mem []byte
	f   *os.File
}

func (w *physWindow) WriteByte(off uint32, v uint8) { w.mem[off] = v }
func (w *physWindow) ReadByte(off uint32) uint8     { return w.mem[off] }

func (w *physWindow) Close() error {
	if err := unix.Munmap(w.mem); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// MapBank maps a bank window for programmed I/O. Suitable as a Device's
// MapBank binding on real hardware.
func MapBank(bank uint32) (Window, error) {
	base, err := BankBase(bank)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}

	mem, err := unix.Mmap(int(f.Fd()), base, bankWindowSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap bank %d at %#x: %v", bank, base, err)
	}

	return &physWindow{mem: mem, f: f}, nil
}
