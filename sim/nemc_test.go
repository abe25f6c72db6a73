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

	"github.com/HarveyHunt/jznand/nemc"
)

func TestNEMCBankRange(t *testing.T) {
	n := NewNEMC(2)

	if err := n.SetType(2, nemc.BankNAND); err != nil {
		t.Fatalf("SetType(2): %v", err)
	}
	// The bound is the constructed bank count, not the SoC maximum.
	if err := n.SetType(3, nemc.BankNAND); err == nil {
		t.Fatal("SetType(3) accepted on a 2-bank NEMC")
	}
	if err := n.SetType(0, nemc.BankNAND); err == nil {
		t.Fatal("SetType(0) accepted; banks are 1-based")
	}
}

func TestNEMCAssertTracking(t *testing.T) {
	n := NewNEMC(6)

	n.Assert(1, true)
	n.Assert(3, true)
	n.Assert(1, false)
	n.Assert(3, false)

	if n.MaxAsserted != 2 {
		t.Fatalf("MaxAsserted = %d, want 2", n.MaxAsserted)
	}
	if banks := n.AssertedBanks(); len(banks) != 0 {
		t.Fatalf("banks %v still asserted", banks)
	}
	if len(n.Log) != 4 {
		t.Fatalf("logged %d events, want 4", len(n.Log))
	}
}
