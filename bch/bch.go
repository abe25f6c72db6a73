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

// Package bch binds the NAND core to the hardware BCH engine. The engine
// itself lives in its own driver; providers register themselves here under
// the phandle of their device-tree node and consumers acquire a refcounted
// handle through Get.
package bch

import (
	"errors"
	"fmt"
	"sync"

	"github.com/u-root/u-root/pkg/dt"
)

var (
	ErrNoEngine      = errors.New("no BCH engine registered for phandle")
	ErrUncorrectable = errors.New("uncorrectable ECC error")
)

// Params carries the ECC geometry for one Calculate or Correct call.
type Params struct {
	// Size is the data step size in bytes over which one code word is
	// computed.
	Size int
	// Bytes is the number of ECC bytes per step.
	Bytes int
	// Strength is the number of correctable bit errors per step.
	Strength int
}

func (p Params) String() string {
	return fmt.Sprintf("size %d, bytes %d, strength %d", p.Size, p.Bytes, p.Strength)
}

// Engine is the calculate/correct surface of a BCH block. Implementations
// serialize access internally; calls may block on the engine's completion.
type Engine interface {
	// Calculate computes ECC for data and writes p.Bytes bytes into ecc.
	Calculate(p Params, data []byte, ecc []byte) error

	// Correct fixes bit errors in data in place using the ECC read back
	// from the device. It returns the number of bit errors corrected, or
	// ErrUncorrectable if the data cannot be repaired.
	Correct(p Params, data []byte, readECC []byte) (int, error)
}

type provider struct {
	engine Engine
	refs   int
}

var (
	mu        sync.Mutex
	providers = map[dt.PHandle]*provider{}
)

// Register makes an engine available under a device-tree phandle.
// Registering the same phandle twice is a bug in the provider.
func Register(ph dt.PHandle, e Engine) {
	mu.Lock()
	defer mu.Unlock()

	if _, ok := providers[ph]; ok {
		panic(fmt.Sprintf("BCH engine already registered for phandle %d", ph))
	}
	providers[ph] = &provider{engine: e}
}

// Unregister removes a previously registered engine. It is a bug to
// unregister an engine that still has outstanding handles.
func Unregister(ph dt.PHandle) {
	mu.Lock()
	defer mu.Unlock()

	p, ok := providers[ph]
	if !ok {
		panic(fmt.Sprintf("no BCH engine registered for phandle %d", ph))
	}
	if p.refs != 0 {
		panic(fmt.Sprintf("BCH engine for phandle %d still has %d handles", ph, p.refs))
	}
	delete(providers, ph)
}

// Handle is a refcounted reference to an engine. Release it exactly once.
type Handle struct {
	Engine

	ph       dt.PHandle
	released bool
}

// Get acquires a handle on the engine registered under ph.
func Get(ph dt.PHandle) (*Handle, error) {
	mu.Lock()
	defer mu.Unlock()

	p, ok := providers[ph]
	if !ok {
		return nil, ErrNoEngine
	}
	p.refs++
	return &Handle{Engine: p.engine, ph: ph}, nil
}

// Release drops the handle's reference. Double release is a bug.
func (h *Handle) Release() {
	mu.Lock()
	defer mu.Unlock()

	if h.released {
		panic("BCH handle released twice")
	}
	h.released = true

	if p, ok := providers[h.ph]; ok {
		p.refs--
	}
}
