// Copyright (c) 2020 MinIO Inc. All rights reserved.
// Use of this source code is governed by a license that can be
// found in the LICENSE file.

package hwhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type regWrite struct {
	reg, val uint32
}

// recordDevice stores every register write and hands out mappings
// without interpreting anything.
type recordDevice struct {
	regs   map[uint32]uint32
	writes []regWrite
	maps   map[uint32][]byte
	next   uint32
	busy   int
	irq    chan struct{}
}

func newRecordDevice() *recordDevice {
	return &recordDevice{
		regs: make(map[uint32]uint32),
		maps: make(map[uint32][]byte),
		next: 0x100,
		irq:  make(chan struct{}),
	}
}

func (d *recordDevice) Read(reg uint32) uint32 { return d.regs[reg] }

func (d *recordDevice) Write(reg, val uint32) {
	d.regs[reg] = val
	d.writes = append(d.writes, regWrite{reg, val})
}

func (d *recordDevice) Map(buf []byte) (uint32, error) {
	if d.busy > 0 {
		d.busy--
		return 0, ErrDeviceBusy
	}
	addr := d.next
	d.next += 0x100
	d.maps[addr] = buf
	return addr, nil
}

func (d *recordDevice) Unmap(addr uint32) { delete(d.maps, addr) }

func (d *recordDevice) IRQ() <-chan struct{} { return d.irq }

func TestResetAndConfigure(t *testing.T) {
	dev := newRecordDevice()
	resetAndConfigure(dev, SHA256.mode(), 1000)

	want := []regWrite{
		{regCtrl, ctrlHashFlush | 0xffff0000},
		{regCtrl, 0xffff0000},
	}
	for i := uint32(0); i < 8; i++ {
		want = append(want, regWrite{regHashDout0 + 4*i, 0})
	}
	want = append(want,
		regWrite{regIntEna, 0x0c},
		regWrite{regIntSts, 0x0c},
		regWrite{regHashCtrl, hashModeSHA256 | hashSwapDO},
		regWrite{regConf, 0x38},
		regWrite{regHashMsgLen, 1000},
	)
	assert.Equal(t, want, dev.writes)
}

func TestFlushHashKeepsCtrlBits(t *testing.T) {
	dev := newRecordDevice()
	dev.regs[regCtrl] = 0x200

	flushHash(dev)

	assert.Equal(t, []regWrite{
		{regCtrl, 0x200 | ctrlHashFlush | 0xffff0000},
		{regCtrl, 0x200 | 0xffff0000},
	}, dev.writes)
}

func TestStartDMA(t *testing.T) {
	for _, tc := range []struct {
		count int
		words uint32
	}{
		{1, 1}, {3, 1}, {4, 1}, {5, 2}, {13, 4}, {4096, 1024},
	} {
		dev := newRecordDevice()
		startDMA(dev, 0x2000, tc.count)
		assert.Equal(t, []regWrite{
			{regHrDMAStart, 0x2000},
			{regHrDMALen, tc.words},
			{regCtrl, 0x00080008},
		}, dev.writes, "count %d", tc.count)
	}
}
