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

package nand

import (
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestIdentify(t *testing.T) {
	cases := []struct {
		id        []byte
		name      string
		pageSize  int
		oobSize   int
		eraseSize int
	}{
		// Extended-ID decode: 0x15 = 2048-byte pages, 64 OOB, 128 KiB blocks.
		{[]byte{0xec, 0xf1, 0x00, 0x15, 0x00, 0x00, 0x00, 0x00},
			"NAND 128MiB 3,3V 8-bit", 2048, 64, 128 * 1024},
		// 0x26 = 4096-byte pages, 128 OOB, 256 KiB blocks.
		{[]byte{0xec, 0xdc, 0x10, 0x26, 0x00, 0x00, 0x00, 0x00},
			"NAND 512MiB 3,3V 8-bit", 4096, 128, 256 * 1024},
		// Full-ID entry wins over any shorter prefix and carries its own
		// geometry, including the 224-byte spare the extended ID cannot
		// express.
		{[]byte{0x98, 0xdc, 0x90, 0x26, 0x76, 0x15, 0x01, 0x08},
			"TC58NVG2S0F 4G 3,3V 8-bit", 4096, 224, 256 * 1024},
	}

	for i, tc := range cases {
		d := identify(tc.id)
		if d == nil {
			t.Fatalf("case %d: ID % x not identified", i, tc.id)
		}
		if d.Name != tc.name {
			t.Fatalf("case %d: identified %q, want %q", i, d.Name, tc.name)
		}

		var c Chip
		if err := applyDefinition(&c, d, tc.id); err != nil {
			t.Fatalf("case %d: applyDefinition: %v", i, err)
		}
		got := [3]int{c.PageSize, c.OOBSize, c.EraseSize}
		want := [3]int{tc.pageSize, tc.oobSize, tc.eraseSize}
		if got != want {
			t.Fatalf("case %d: geometry %v, want %v", i, got, want)
		}
	}
}

func TestIdentifyUnknown(t *testing.T) {
	if d := identify([]byte{0x00, 0x00, 0x00, 0x00}); d != nil {
		t.Fatalf("identified %q from a blank ID", d.Name)
	}
}

func TestScanTailSoft(t *testing.T) {
	c := &Chip{
		PageSize: 2048,
		OOBSize:  64,
		ECC:      ECC{Mode: ECCSoft},
	}

	if err := ScanTail(c); err != nil {
		t.Fatalf("ScanTail: %v", err)
	}

	e := &c.ECC
	if e.Size != HammingBlockSize || e.Bytes != HammingBytes || e.Strength != 1 {
		t.Fatalf("soft parameters = {%d %d %d}", e.Size, e.Bytes, e.Strength)
	}
	if e.Steps != 8 || e.Total != 24 {
		t.Fatalf("steps %d total %d, want 8 and 24", e.Steps, e.Total)
	}

	wantFree := []OOBFree{{Offset: 2, Length: 64 - 24 - 2}}
	if !reflect.DeepEqual(e.Layout.Free, wantFree) {
		spew.Dump(e.Layout)
		t.Fatalf("free region %v, want %v", e.Layout.Free, wantFree)
	}
	if e.Layout.ECCPos[0] != 40 || e.Layout.ECCPos[23] != 63 {
		t.Fatalf("ECC positions %d..%d, want 40..63",
			e.Layout.ECCPos[0], e.Layout.ECCPos[23])
	}
}

func TestScanTailHardRequiresConfig(t *testing.T) {
	c := &Chip{
		PageSize: 4096,
		OOBSize:  224,
		ECC:      ECC{Mode: ECCHard, Size: 1024, Bytes: 42, Strength: 24},
	}

	// Parameters without hooks must be rejected.
	if err := ScanTail(c); err == nil {
		t.Fatal("ScanTail accepted hardware ECC without hooks")
	}
}
