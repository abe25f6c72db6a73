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

package mtd

import (
	"encoding/binary"
	"fmt"

	"github.com/u-root/u-root/pkg/dt"
)

// Partition is one firmware-declared span of a device.
type Partition struct {
	Name     string
	Offset   int64
	Size     int64
	ReadOnly bool
}

func (p Partition) String() string {
	ro := ""
	if p.ReadOnly {
		ro = " (ro)"
	}
	return fmt.Sprintf("%q at %#x, %d bytes%s", p.Name, p.Offset, p.Size, ro)
}

// ParsePartitions reads the fixed-partitions description under a device's
// firmware node. The node may carry a "partitions" child whose children
// each hold a 2-cell reg property (offset, size); older trees declare the
// partition nodes directly under the device node. A nil or partitionless
// node yields no partitions, which is not an error.
func ParsePartitions(node *dt.Node) ([]Partition, error) {
	if node == nil {
		return nil, nil
	}

	parent := node
	for _, child := range node.Children {
		if child.Name == "partitions" {
			parent = child
			break
		}
	}

	var parts []Partition
	for _, child := range parent.Children {
		reg, ok := child.LookProperty("reg")
		if !ok {
			continue
		}

		val := reg.Value
		if len(val) != 8 {
			return nil, fmt.Errorf("partition %q: reg must be <offset size>, got %d bytes",
				child.Name, len(val))
		}

		p := Partition{
			Name:   child.Name,
			Offset: int64(binary.BigEndian.Uint32(val[0:])),
			Size:   int64(binary.BigEndian.Uint32(val[4:])),
		}

		if label, ok := child.LookProperty("label"); ok {
			s, err := label.AsString()
			if err != nil {
				return nil, fmt.Errorf("partition %q: bad label: %v", child.Name, err)
			}
			p.Name = s
		}

		if _, ok := child.LookProperty("read-only"); ok {
			p.ReadOnly = true
		}

		parts = append(parts, p)
	}

	return parts, nil
}
