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

	"github.com/HarveyHunt/jznand/bch"
	"github.com/HarveyHunt/jznand/nand"
)

// BCH stands in for the hardware BCH block. It produces real,
// correcting codes - a Hamming code per 256-byte sub-block, padded to
// the requested ECC byte count - so read paths see genuine single-bit
// correction and honest corrected-bit counts.
type BCH struct {
	CalculateCalls int
	CorrectCalls   int
}

func (b *BCH) subBlocks(p bch.Params) (int, error) {
	if p.Size%nand.HammingBlockSize != 0 {
		return 0, fmt.Errorf("sim bch: step %d not a multiple of %d", p.Size, nand.HammingBlockSize)
	}
	n := p.Size / nand.HammingBlockSize
	if n*nand.HammingBytes > p.Bytes {
		return 0, fmt.Errorf("sim bch: %d ECC bytes cannot hold %d sub-block codes", p.Bytes, n)
	}
	return n, nil
}

func (b *BCH) Calculate(p bch.Params, data, ecc []byte) error {
	b.CalculateCalls++

	n, err := b.subBlocks(p)
	if err != nil {
		return err
	}

	for i := range ecc[:p.Bytes] {
		ecc[i] = 0
	}
	for i := 0; i < n; i++ {
		nand.HammingCalculate(
			data[i*nand.HammingBlockSize:(i+1)*nand.HammingBlockSize],
			ecc[i*nand.HammingBytes:(i+1)*nand.HammingBytes])
	}
	return nil
}

func (b *BCH) Correct(p bch.Params, data, readECC []byte) (int, error) {
	b.CorrectCalls++

	n, err := b.subBlocks(p)
	if err != nil {
		return 0, err
	}

	corrected := 0
	calc := make([]byte, nand.HammingBytes)
	for i := 0; i < n; i++ {
		block := data[i*nand.HammingBlockSize : (i+1)*nand.HammingBlockSize]
		nand.HammingCalculate(block, calc)
		fixed, err := nand.HammingCorrect(block,
			readECC[i*nand.HammingBytes:(i+1)*nand.HammingBytes], calc)
		if err != nil {
			return corrected, bch.ErrUncorrectable
		}
		corrected += fixed
	}
	return corrected, nil
}
