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
	"errors"
	"math/bits"
)

// Software Hamming ECC over 256-byte blocks, 3 code bytes per block:
// corrects a single flipped data bit and tolerates a single flipped
// code bit. Used by ECCSoft.

// HammingBlockSize is the data span one Hamming code word covers.
const HammingBlockSize = 256

// HammingBytes is the code size per block.
const HammingBytes = 3

var ErrHammingUncorrectable = errors.New("uncorrectable Hamming ECC error")

// HammingCalculate computes the 3-byte code for a 256-byte block into
// ecc. Byte 0 carries the line (byte address) parity, byte 1 its
// complement, byte 2 the column (bit address) parity and complement in
// its low and high nibbles.
func HammingCalculate(data, ecc []byte) {
	var lp, lpInv uint8 // line parity over byte addresses
	var colXor uint8    // XOR fold of all bytes

	for i, b := range data {
		if bits.OnesCount8(b)&1 != 0 {
			lp ^= uint8(i)
			lpInv ^= ^uint8(i)
		}
		colXor ^= b
	}

	var ba, baInv uint8 // column parity over bit addresses
	for j := uint8(0); j < 8; j++ {
		if colXor&(1<<j) != 0 {
			ba ^= j
			baInv ^= ^j & 7
		}
	}

	ecc[0] = lp
	ecc[1] = lpInv
	ecc[2] = ba | baInv<<4
}

// HammingCorrect repairs a single-bit error in a 256-byte block given
// the code read back from the device and the one calculated over the
// read data. It returns the number of bits corrected (0 or 1).
func HammingCorrect(data, readECC, calcECC []byte) (int, error) {
	d0 := readECC[0] ^ calcECC[0]
	d1 := readECC[1] ^ calcECC[1]
	d2 := readECC[2] ^ calcECC[2]

	if d0|d1|d2 == 0 {
		return 0, nil
	}

	// A single flipped data bit shows up as complementary address and
	// address-complement halves.
	if d0^d1 == 0xff && (d2&7)^(d2>>4&7) == 7 && d2&0x88 == 0 {
		data[d0] ^= 1 << (d2 & 7)
		return 1, nil
	}

	// A single flipped bit in the stored code itself; data is intact.
	if bits.OnesCount8(d0)+bits.OnesCount8(d1)+bits.OnesCount8(d2) == 1 {
		return 1, nil
	}

	return 0, ErrHammingUncorrectable
}
