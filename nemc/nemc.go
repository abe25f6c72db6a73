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

// Package nemc describes the NAND/External Memory Controller, the SoC
// block that owns per-bank timing and chip-enable lines. The NAND core
// only ever talks to it through this interface; the concrete
// implementation belongs to the platform (or to the simulator).
package nemc

// BankType selects how the NEMC drives a bank's bus cycles.
type BankType int

const (
	// BankSRAM is the reset state: plain static memory timing.
	BankSRAM BankType = iota
	// BankNAND enables NAND-style cycle generation on the bank.
	BankNAND
)

func (t BankType) String() string {
	switch t {
	case BankSRAM:
		return "sram"
	case BankNAND:
		return "nand"
	default:
		return "unknown"
	}
}

// Controller is the slice of the NEMC the NAND core consumes.
//
// Bank numbers are the hardware chip-select indices (1-based on the
// JZ4780), not the compact chip indices the NAND framework uses.
type Controller interface {
	// NumBanks reports how many banks the NEMC exposes to this device.
	NumBanks() uint32

	// SetType configures the cycle generation for a bank.
	SetType(bank uint32, typ BankType) error

	// Assert drives the bank's chip-enable line. The NEMC owns the
	// authoritative line state; callers must not assume anything about
	// the state of other banks.
	Assert(bank uint32, assert bool)
}
