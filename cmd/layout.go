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

	"github.com/HarveyHunt/jznand/jz4780"
)

// layoutCmd represents the layout command
var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Compute the ECC byte count and OOB layout",
	Long: `Computes the per-step BCH check byte count for a step size and
strength, and the resulting OOB layout for a page geometry`,
	RunE: func(cmd *cobra.Command, args []string) error {
		step, _ := cmd.Flags().GetInt("step")
		strength, _ := cmd.Flags().GetInt("strength")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		oobSize, _ := cmd.Flags().GetInt("oob-size")

		if step <= 0 || strength <= 0 {
			return fmt.Errorf("step (%d) and strength (%d) must be positive", step, strength)
		}
		if pageSize%step != 0 {
			return fmt.Errorf("page size %d is not a multiple of step %d", pageSize, step)
		}

		bytesPerStep := jz4780.ECCBytesPerStep(step, strength)
		steps := pageSize / step
		total := steps * bytesPerStep

		fmt.Printf("ECC bytes per step:  %d\n", bytesPerStep)
		fmt.Printf("Steps per page:      %d\n", steps)
		fmt.Printf("Total ECC bytes:     %d\n", total)

		if total+2 > oobSize {
			color.Red("layout does not fit: %d ECC bytes + 2 reserved > %d OOB bytes", total, oobSize)
			return fmt.Errorf("OOB area too small")
		}

		fmt.Printf("ECC positions:       %d..%d\n", oobSize-total, oobSize-1)
		fmt.Printf("Free OOB region:     offset 2, length %d\n", oobSize-total-2)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(layoutCmd)

	layoutCmd.Flags().IntP("step", "s", 1024, "ECC step size in bytes")
	layoutCmd.Flags().IntP("strength", "t", 24, "correctable bits per step")
	layoutCmd.Flags().IntP("page-size", "p", 4096, "page write size in bytes")
	layoutCmd.Flags().IntP("oob-size", "o", 224, "OOB area size in bytes")
}
