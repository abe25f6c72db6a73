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
	"fmt"

	"github.com/HarveyHunt/jznand/nemc"
)

// AssertEvent records one chip-enable transition.
type AssertEvent struct {
	Bank     uint32
	Asserted bool
}

// NEMC is a recording NEMC: it tracks bank types and chip-enable state
// and remembers the worst-case number of simultaneously asserted banks.
type NEMC struct {
	Banks uint32

	Types    map[uint32]nemc.BankType
	Asserted map[uint32]bool

	// Log is every Assert call in order; MaxAsserted the peak count of
	// concurrently asserted banks.
	Log         []AssertEvent
	MaxAsserted int
}

func NewNEMC(banks uint32) *NEMC {
	return &NEMC{
		Banks:    banks,
		Types:    make(map[uint32]nemc.BankType),
		Asserted: make(map[uint32]bool),
	}
}

func (n *NEMC) NumBanks() uint32 { return n.Banks }

func (n *NEMC) SetType(bank uint32, typ nemc.BankType) error {
	if bank < 1 || bank > n.Banks {
		return fmt.Errorf("nemc: bank %d out of range", bank)
	}
	n.Types[bank] = typ
	return nil
}

func (n *NEMC) Assert(bank uint32, assert bool) {
	n.Log = append(n.Log, AssertEvent{Bank: bank, Asserted: assert})

	if assert {
		n.Asserted[bank] = true
	} else {
		delete(n.Asserted, bank)
	}
	if len(n.Asserted) > n.MaxAsserted {
		n.MaxAsserted = len(n.Asserted)
	}
}

// AssertedBanks lists the banks currently enabled.
func (n *NEMC) AssertedBanks() []uint32 {
	var banks []uint32
	for b := range n.Asserted {
		banks = append(banks, b)
	}
	return banks
}
