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
	"encoding/hex"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Program and read back a page through the full driver path",
	Long: `Programs a recognizable pattern into a page of the simulated
chip, reads it back through the hardware-ECC path and dumps the first
bytes, reporting any bit errors the BCH bridge corrected`,
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")

		nfc, err := connectController()
		if err != nil {
			return err
		}
		defer nfc.Remove()

		mtds := nfc.Chips()
		if len(mtds) == 0 {
			return fmt.Errorf("no chips attached")
		}
		m := mtds[0]

		data := make([]byte, m.WriteSize())
		for i := range data {
			data[i] = byte(i)
		}
		if err := m.WritePage(page, data, nil); err != nil {
			return err
		}

		back := make([]byte, m.WriteSize())
		corrected, err := m.ReadPage(page, back, nil)
		if err != nil {
			color.Red("read failed: %v", err)
			return err
		}

		fmt.Printf("%s page %d (%d bit errors corrected):\n", m.Name(), page, corrected)
		fmt.Print(hex.Dump(back[:64]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(readCmd)

	readCmd.Flags().IntP("page", "p", 0, "page number")
}
