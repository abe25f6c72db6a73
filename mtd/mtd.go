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

// Package mtd registers memory technology devices and parses their
// firmware-declared partitions.
package mtd

import (
	"errors"
	"fmt"
	"sync"
)

var ErrNotRegistered = errors.New("device not registered")

// Device is the slice of an MTD the registry cares about. The NAND
// framework's MTD type implements it.
type Device interface {
	// Name identifies the device; must be unique among registered devices.
	Name() string
	// Size is the total device size in bytes.
	Size() int64
	// WriteSize is the page program granularity in bytes.
	WriteSize() int
	// EraseSize is the block erase granularity in bytes.
	EraseSize() int
	// OOBSize is the spare bytes available per page.
	OOBSize() int
}

// Entry pairs a registered device with its partitions.
type Entry struct {
	Device     Device
	Partitions []Partition
}

var (
	mu      sync.Mutex
	entries = map[string]*Entry{}
)

// Register adds a device and its partitions to the registry. Registering
// two devices with the same name is a bug in the caller.
func Register(dev Device, parts []Partition) error {
	mu.Lock()
	defer mu.Unlock()

	name := dev.Name()
	if _, ok := entries[name]; ok {
		return fmt.Errorf("mtd device %q already registered", name)
	}

	for _, p := range parts {
		if p.Offset+p.Size > dev.Size() {
			return fmt.Errorf("partition %q [%#x..%#x) exceeds device size %#x",
				p.Name, p.Offset, p.Offset+p.Size, dev.Size())
		}
	}

	entries[name] = &Entry{Device: dev, Partitions: parts}
	return nil
}

// Unregister removes a device from the registry.
func Unregister(name string) error {
	mu.Lock()
	defer mu.Unlock()

	if _, ok := entries[name]; !ok {
		return ErrNotRegistered
	}
	delete(entries, name)
	return nil
}

// Lookup returns the entry for a registered device.
func Lookup(name string) (*Entry, bool) {
	mu.Lock()
	defer mu.Unlock()

	e, ok := entries[name]
	return e, ok
}

// Names lists registered device names.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()

	var names []string
	for n := range entries {
		names = append(names, n)
	}
	return names
}
