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

package cmd

import (
	"testing"

	"github.com/HarveyHunt/jznand/mtd"
	"github.com/u-root/u-root/pkg/dt"
)

func TestConnectControllerDemoTree(t *testing.T) {
	nfc, err := connectController()
	if err != nil {
		t.Fatalf("connectController: %v", err)
	}
	defer nfc.Remove()

	chips := nfc.Chips()
	if len(chips) != 1 {
		t.Fatalf("attached %d chips, want 1", len(chips))
	}
	m := chips[0]
	if m.Name() != "jz4780-nand.1" {
		t.Fatalf("chip named %q, want jz4780-nand.1", m.Name())
	}

	id, err := m.ReadID()
	if err != nil {
		t.Fatalf("ReadID: %v", err)
	}
	if id[0] != 0x98 || id[1] != 0xdc {
		t.Fatalf("ID starts % x, want the Toshiba part", id[:2])
	}

	entry, ok := mtd.Lookup(m.Name())
	if !ok {
		t.Fatal("chip not in the MTD registry")
	}
	if len(entry.Partitions) != 2 {
		t.Fatalf("parsed %d partitions, want 2", len(entry.Partitions))
	}
}

// The controller node is usually nested somewhere under the tree root,
// not the root itself.
func TestFindControllerNested(t *testing.T) {
	root := &dt.Node{
		Name: "/",
		Children: []*dt.Node{
			{Name: "cpus"},
			{Name: "soc", Children: []*dt.Node{demoTree()}},
		},
	}

	node, err := findController(root)
	if err != nil {
		t.Fatalf("findController: %v", err)
	}
	if node.Name != "nand-controller@1b000000" {
		t.Fatalf("found %q", node.Name)
	}

	if _, err := findController(&dt.Node{Name: "/"}); err == nil {
		t.Fatal("found a controller in an empty tree")
	}
}
