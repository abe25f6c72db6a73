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
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/HarveyHunt/jznand/bch"
	"github.com/HarveyHunt/jznand/jz4780"
	"github.com/HarveyHunt/jznand/sim"
	"github.com/u-root/u-root/pkg/dt"
)

var bchRegistered = map[dt.PHandle]bool{}

// connectController builds a simulated platform around the controller
// node - one simulated chip per child, a recording NEMC, a BCH engine
// under the declared phandle - and probes the driver against it.
func connectController() (*jz4780.Controller, error) {
	root, err := loadTree()
	if err != nil {
		return nil, err
	}

	node, err := findController(root)
	if err != nil {
		return nil, err
	}

	chips := map[uint32]*sim.NAND{}
	for _, child := range node.Children {
		reg, ok := child.LookProperty("reg")
		if !ok {
			continue
		}
		bank, err := reg.AsU32()
		if err != nil {
			return nil, err
		}
		chips[bank] = sim.NewTC58NVG2S0F()
	}

	if prop, ok := node.LookProperty("ingenic,bch-controller"); ok {
		ph, err := prop.AsPHandle()
		if err != nil {
			return nil, err
		}
		if !bchRegistered[ph] {
			bch.Register(ph, &sim.BCH{})
			bchRegistered[ph] = true
		}
	}

	dev := &jz4780.Device{
		Node: node,
		NEMC: sim.NewNEMC(6),
		MapBank: func(bank uint32) (jz4780.Window, error) {
			chip, ok := chips[bank]
			if !ok {
				return nil, fmt.Errorf("no chip on bank %d", bank)
			}
			return chip, nil
		},
		LookupGPIO: func(ph dt.PHandle, pin uint32) (gpio.PinIO, error) {
			return &gpiotest.Pin{N: fmt.Sprintf("GPIO%d", pin), Num: int(pin), L: gpio.High}, nil
		},
	}

	return jz4780.Probe(dev)
}

func loadTree() (*dt.Node, error) {
	if dtbFile == "" {
		return demoTree(), nil
	}

	f, err := os.Open(dtbFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fdt, err := dt.ReadFDT(f)
	if err != nil {
		return nil, err
	}
	return fdt.RootNode, nil
}

func findController(root *dt.Node) (*dt.Node, error) {
	nodes, ok := root.FindAll(func(n *dt.Node) bool {
		p, ok := n.LookProperty("compatible")
		if !ok {
			return false
		}
		s, err := p.AsString()
		return err == nil && s == jz4780.Compatible
	})
	if !ok || len(nodes) == 0 {
		return nil, errors.New("no JZ4780 NAND controller node found")
	}
	return nodes[0], nil
}

// demoTree is the built-in controller description used when no DTB is
// given: one chip on bank 1 with hardware BCH, step 1024, strength 24.
func demoTree() *dt.Node {
	return &dt.Node{
		Name: "nand-controller@1b000000",
		Properties: []dt.Property{
			{Name: "compatible", Value: strProp(jz4780.Compatible)},
			{Name: "ingenic,bch-controller", Value: u32Prop(0x10)},
		},
		Children: []*dt.Node{
			{
				Name: "nand@1",
				Properties: []dt.Property{
					{Name: "reg", Value: u32Prop(1)},
					{Name: "nand-ecc-mode", Value: strProp("hw")},
					{Name: "nand-ecc-step-size", Value: u32Prop(1024)},
					{Name: "nand-ecc-strength", Value: u32Prop(24)},
				},
				Children: []*dt.Node{
					{
						Name: "partitions",
						Children: []*dt.Node{
							{
								Name: "boot@0",
								Properties: []dt.Property{
									{Name: "label", Value: strProp("boot")},
									{Name: "reg", Value: regProp(0x0, 0x800000)},
									{Name: "read-only", Value: nil},
								},
							},
							{
								Name: "system@800000",
								Properties: []dt.Property{
									{Name: "label", Value: strProp("system")},
									{Name: "reg", Value: regProp(0x800000, 0x8000000)},
								},
							},
						},
					},
				},
			},
		},
	}
}

func u32Prop(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func regProp(offset, size uint32) []byte {
	return append(u32Prop(offset), u32Prop(size)...)
}

func strProp(s string) []byte {
	return append([]byte(s), 0)
}
