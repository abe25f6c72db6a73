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
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/HarveyHunt/jznand/mtd"
)

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probe a controller description and list the attached chips",
	Long: `Parses the device tree, attaches a simulated chip per declared
bank and lists what the driver found: geometry, ECC layout and
partitions`,
	RunE: func(cmd *cobra.Command, args []string) error {
		nfc, err := connectController()
		if err != nil {
			return err
		}
		defer nfc.Remove()

		for _, m := range nfc.Chips() {
			chip := m.Chip()
			color.Green("%s: %s", m.Name(), chip.Name)
			if id, err := m.ReadID(); err == nil {
				fmt.Printf("  id % x\n", id)
			}
			fmt.Printf("  size %d MiB, page %d, oob %d, erase %d KiB\n",
				m.Size()>>20, m.WriteSize(), m.OOBSize(), m.EraseSize()>>10)
			fmt.Printf("  ecc %s", chip.ECC.Mode)
			if layout := chip.ECC.Layout; layout != nil && layout.ECCBytes > 0 {
				fmt.Printf(": %d bytes at %d..%d, free (%d, %d)",
					layout.ECCBytes,
					layout.ECCPos[0], layout.ECCPos[len(layout.ECCPos)-1],
					layout.Free[0].Offset, layout.Free[0].Length)
			}
			fmt.Println()

			if e, ok := mtd.Lookup(m.Name()); ok {
				for _, p := range e.Partitions {
					fmt.Printf("  partition %s\n", p)
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
