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
	"fmt"
	"time"
)

// command issues one command cycle plus optional column/row address
// cycles (pass -1 to skip either), leaving the bus back on data cycles.
// The first cycle of each kind carries CtrlChange; the trailing CmdNone
// call commits the return to the data sub-window.
func (c *Chip) command(cmd uint8, column, page int) {
	c.CmdCtrl(int(cmd), CtrlCLE|CtrlNCE|CtrlChange)

	if column >= 0 || page >= 0 {
		ctrl := CtrlALE | CtrlNCE | CtrlChange
		if column >= 0 {
			c.CmdCtrl(column&0xff, ctrl)
			ctrl &^= CtrlChange
			c.CmdCtrl(column>>8&0xff, ctrl)
		}
		if page >= 0 {
			c.CmdCtrl(page&0xff, ctrl)
			ctrl &^= CtrlChange
			c.CmdCtrl(page>>8&0xff, ctrl)
			c.CmdCtrl(page>>16&0xff, ctrl)
		}
	}

	c.CmdCtrl(CmdNone, CtrlNCE|CtrlChange)
}

// waitReady blocks until the device leaves its busy state: by polling
// the ready/busy line when one is wired, otherwise by the fixed
// post-command delay.
func (c *Chip) waitReady() error {
	if c.DevReady == nil {
		time.Sleep(c.ChipDelay)
		return nil
	}

	deadline := time.Now().Add(readyTimeout)
	for !c.DevReady() {
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(10 * time.Microsecond)
	}
	return nil
}

func (c *Chip) readStatus() uint8 {
	c.command(CmdStatus, -1, -1)
	return c.IOR.ReadByte()
}

// readPageCmd addresses a page for reading and waits for the transfer
// from the array to the device's page register.
func (c *Chip) readPageCmd(column, page int) error {
	c.command(CmdRead0, column, page)
	c.command(CmdReadStart, -1, -1)
	return c.waitReady()
}

func (m *MTD) checkPage(page int) error {
	if page < 0 || page >= m.chip.pages() {
		return fmt.Errorf("page %d out of range (%d pages)", page, m.chip.pages())
	}
	return nil
}

// ReadID resets the device and returns its raw ID bytes.
func (m *MTD) ReadID() ([]byte, error) {
	m.acquire()
	defer m.release()
	return m.chip.readID()
}

func (c *Chip) readID() ([]byte, error) {
	c.command(CmdReset, -1, -1)
	if err := c.waitReady(); err != nil {
		return nil, err
	}

	c.CmdCtrl(CmdReadID, CtrlCLE|CtrlNCE|CtrlChange)
	c.CmdCtrl(0x00, CtrlALE|CtrlNCE|CtrlChange)
	c.CmdCtrl(CmdNone, CtrlNCE|CtrlChange)

	id := make([]byte, 8)
	c.readBuf(id)
	return id, nil
}

// Status reads the device status register.
func (m *MTD) Status() (uint8, error) {
	m.acquire()
	defer m.release()
	return m.chip.readStatus(), nil
}

// ReadPage reads one page into data (PageSize bytes) and, when oob is
// non-nil (OOBSize bytes), the spare area as stored. It returns the
// number of bit errors corrected.
func (m *MTD) ReadPage(page int, data, oob []byte) (int, error) {
	c := m.chip
	if err := m.checkPage(page); err != nil {
		return 0, err
	}
	if len(data) != c.PageSize {
		return 0, fmt.Errorf("data buffer is %d bytes, page is %d", len(data), c.PageSize)
	}

	m.acquire()
	defer m.release()

	if err := c.readPageCmd(0, page); err != nil {
		return 0, err
	}

	spare := make([]byte, c.OOBSize)
	var corrected int
	var err error

	switch c.ECC.Mode {
	case ECCHard:
		corrected, err = c.readPageHWECC(data, spare)
	case ECCSoft:
		corrected, err = c.readPageSoft(data, spare)
	default:
		c.readBuf(data)
		c.readBuf(spare)
	}
	if oob != nil {
		copy(oob, spare)
	}
	return corrected, err
}

// readPageHWECC drives the hardware-ECC hook protocol: per step, tell
// the engine the direction, move the data, call calculate (a no-op on
// the read path for engines that correct in one shot), then hand each
// step to correct together with the ECC bytes stored in the OOB tail.
func (c *Chip) readPageHWECC(data, oob []byte) (int, error) {
	e := &c.ECC
	eccCalc := make([]byte, e.Total)
	eccRead := make([]byte, e.Total)

	for s := 0; s < e.Steps; s++ {
		e.Hwctl(ECCRead)
		step := data[s*e.Size : (s+1)*e.Size]
		c.readBuf(step)
		if err := e.Calculate(step, eccCalc[s*e.Bytes:(s+1)*e.Bytes]); err != nil {
			return 0, err
		}
	}

	c.readBuf(oob)
	for i, pos := range e.Layout.ECCPos {
		eccRead[i] = oob[pos]
	}

	corrected := 0
	for s := 0; s < e.Steps; s++ {
		step := data[s*e.Size : (s+1)*e.Size]
		n, err := e.Correct(step,
			eccRead[s*e.Bytes:(s+1)*e.Bytes],
			eccCalc[s*e.Bytes:(s+1)*e.Bytes])
		if err != nil {
			return corrected, err
		}
		corrected += n
	}
	return corrected, nil
}

func (c *Chip) readPageSoft(data, oob []byte) (int, error) {
	e := &c.ECC
	c.readBuf(data)
	c.readBuf(oob)

	corrected := 0
	calc := make([]byte, HammingBytes)
	read := make([]byte, HammingBytes)
	for s := 0; s < e.Steps; s++ {
		step := data[s*e.Size : (s+1)*e.Size]
		HammingCalculate(step, calc)
		for i := 0; i < e.Bytes; i++ {
			read[i] = oob[e.Layout.ECCPos[s*e.Bytes+i]]
		}
		n, err := HammingCorrect(step, read, calc)
		if err != nil {
			return corrected, err
		}
		corrected += n
	}
	return corrected, nil
}

// WritePage programs one page. oob, when non-nil, seeds the spare area;
// ECC bytes are placed over it per the layout.
func (m *MTD) WritePage(page int, data, oob []byte) error {
	c := m.chip
	if err := m.checkPage(page); err != nil {
		return err
	}
	if len(data) != c.PageSize {
		return fmt.Errorf("data buffer is %d bytes, page is %d", len(data), c.PageSize)
	}

	m.acquire()
	defer m.release()

	spare := make([]byte, c.OOBSize)
	for i := range spare {
		spare[i] = 0xff
	}
	if oob != nil {
		copy(spare, oob)
	}

	c.command(CmdSeqIn, 0, page)

	switch c.ECC.Mode {
	case ECCHard:
		if err := c.writePageHWECC(data, spare); err != nil {
			return err
		}
	case ECCSoft:
		c.writePageSoft(data, spare)
	default:
		c.writeBuf(data)
		c.writeBuf(spare)
	}

	c.command(CmdPageProg, -1, -1)
	if err := c.waitReady(); err != nil {
		return err
	}
	return c.checkStatus()
}

func (c *Chip) writePageHWECC(data, oob []byte) error {
	e := &c.ECC
	eccCalc := make([]byte, e.Total)

	for s := 0; s < e.Steps; s++ {
		e.Hwctl(ECCWrite)
		step := data[s*e.Size : (s+1)*e.Size]
		c.writeBuf(step)
		if err := e.Calculate(step, eccCalc[s*e.Bytes:(s+1)*e.Bytes]); err != nil {
			return err
		}
	}

	for i, pos := range e.Layout.ECCPos {
		oob[pos] = eccCalc[i]
	}
	c.writeBuf(oob)
	return nil
}

func (c *Chip) writePageSoft(data, oob []byte) {
	e := &c.ECC
	ecc := make([]byte, HammingBytes)
	for s := 0; s < e.Steps; s++ {
		HammingCalculate(data[s*e.Size:(s+1)*e.Size], ecc)
		for i := 0; i < e.Bytes; i++ {
			oob[e.Layout.ECCPos[s*e.Bytes+i]] = ecc[i]
		}
	}
	c.writeBuf(data)
	c.writeBuf(oob)
}

func (c *Chip) checkStatus() error {
	status := c.readStatus()
	if status&StatusWP == 0 {
		return ErrWriteProtected
	}
	if status&StatusFail != 0 {
		return ErrProgramFailed
	}
	return nil
}

// ReadOOB reads a page's spare area as stored.
func (m *MTD) ReadOOB(page int) ([]byte, error) {
	c := m.chip
	if err := m.checkPage(page); err != nil {
		return nil, err
	}

	m.acquire()
	defer m.release()

	if err := c.readPageCmd(c.PageSize, page); err != nil {
		return nil, err
	}
	oob := make([]byte, c.OOBSize)
	c.readBuf(oob)
	return oob, nil
}

// EraseBlock erases the block containing page.
func (m *MTD) EraseBlock(page int) error {
	c := m.chip
	if err := m.checkPage(page); err != nil {
		return err
	}

	m.acquire()
	defer m.release()

	c.command(CmdErase1, -1, page)
	c.command(CmdErase2, -1, -1)
	if err := c.waitReady(); err != nil {
		return err
	}
	return c.checkStatus()
}
