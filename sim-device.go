// Copyright (c) 2020 MinIO Inc. All rights reserved.
// Use of this source code is governed by a license that can be
// found in the LICENSE file.

package hwhash

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"sync"

	"github.com/klauspost/cpuid/v2"
	md5simd "github.com/minio/md5-simd"
)

// SimDevice is an in-memory hashing accelerator with the register layout
// the engine programs. Data passed to a started burst is hashed in
// software; MD5 runs on the md5-simd server when the CPU has AVX2.
//
// Fault hooks allow DMA errors, busy mappings, dropped interrupts and a
// core that never settles to be injected.
type SimDevice struct {
	mu   sync.Mutex
	regs map[uint32]uint32
	irq  chan struct{}

	mapped   map[uint32][]byte
	nextAddr uint32

	md5srv md5simd.Server
	core   hash.Hash
	fed    uint32 // bytes of the current message hashed so far
	sum    []byte // result waiting to settle
	settle int    // STS reads left before sum is published
	busy   bool   // message configured and not finished
	failed bool   // current message saw a DMA error

	settleReads int
	neverSettle bool
	failBursts  map[int]bool
	busyMaps    int
	dropIRQ     int

	writes      int
	bursts      int
	interleaved int
	closed      bool
}

// NewSimDevice returns a simulated accelerator.
func NewSimDevice() *SimDevice {
	d := &SimDevice{
		regs:        make(map[uint32]uint32),
		irq:         make(chan struct{}, 16),
		mapped:      make(map[uint32][]byte),
		nextAddr:    0x1000,
		settleReads: 2,
		failBursts:  make(map[int]bool),
	}
	if cpuid.CPU.Supports(cpuid.AVX2) {
		d.md5srv = md5simd.NewServer()
	}
	return d
}

// Accelerated reports whether MD5 bursts run on the SIMD server.
func (d *SimDevice) Accelerated() bool { return d.md5srv != nil }

// Close releases the device and closes the interrupt line.
func (d *SimDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.resetCore()
	close(d.irq)
	if d.md5srv != nil {
		d.md5srv.Close()
	}
}

// SetSettleReads sets how many HASH_STS reads report busy after the last
// burst before the result is published.
func (d *SimDevice) SetSettleReads(n int) {
	d.mu.Lock()
	d.settleReads = n
	d.mu.Unlock()
}

// NeverSettle keeps HASH_STS clear forever.
func (d *SimDevice) NeverSettle() {
	d.mu.Lock()
	d.neverSettle = true
	d.mu.Unlock()
}

// FailBurst makes the n-th burst (counting from 1 over the device
// lifetime) raise a DMA error.
func (d *SimDevice) FailBurst(n int) {
	d.mu.Lock()
	d.failBursts[n] = true
	d.mu.Unlock()
}

// BusyMaps makes the next n calls to Map fail with ErrDeviceBusy.
func (d *SimDevice) BusyMaps(n int) {
	d.mu.Lock()
	d.busyMaps = n
	d.mu.Unlock()
}

// DropIRQ swallows the next n interrupts.
func (d *SimDevice) DropIRQ(n int) {
	d.mu.Lock()
	d.dropIRQ = n
	d.mu.Unlock()
}

// Writes returns the number of register writes so far.
func (d *SimDevice) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}

// Bursts returns the number of bursts started so far.
func (d *SimDevice) Bursts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bursts
}

// Interleaved returns how often the core was flushed while a message
// was partly hashed and had not seen a DMA error.
func (d *SimDevice) Interleaved() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.interleaved
}

// Mapped returns the number of live DMA mappings.
func (d *SimDevice) Mapped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.mapped)
}

// IRQ implements Device.
func (d *SimDevice) IRQ() <-chan struct{} { return d.irq }

// Read implements Device.
func (d *SimDevice) Read(reg uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if reg == regHashSts {
		if d.sum == nil || d.neverSettle {
			return 0
		}
		if d.settle > 0 {
			d.settle--
			return 0
		}
		d.publish()
		return hashDone
	}
	return d.regs[reg]
}

// Write implements Device.
func (d *SimDevice) Write(reg, val uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes++

	switch reg {
	case regCtrl:
		mask := val >> ctrlWriteMaskBits
		old := d.regs[regCtrl]
		cur := (old &^ mask) | (val & mask & 0xffff)
		if cur&ctrlHashFlush != 0 && old&ctrlHashFlush == 0 {
			if d.busy && d.fed > 0 && !d.failed {
				d.interleaved++
			}
			d.resetCore()
		}
		start := cur&ctrlHashStart != 0
		d.regs[regCtrl] = cur &^ ctrlHashStart
		if start {
			d.startBurst()
		}
	case regIntSts:
		d.regs[regIntSts] &^= val
	case regHashMsgLen:
		d.regs[reg] = val
		d.busy = val > 0
	default:
		d.regs[reg] = val
	}
}

// Map implements Device.
func (d *SimDevice) Map(buf []byte) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busyMaps > 0 {
		d.busyMaps--
		return 0, ErrDeviceBusy
	}
	addr := d.nextAddr
	d.nextAddr += 0x1000
	d.mapped[addr] = buf
	return addr, nil
}

// Unmap implements Device.
func (d *SimDevice) Unmap(addr uint32) {
	d.mu.Lock()
	delete(d.mapped, addr)
	d.mu.Unlock()
}

func (d *SimDevice) resetCore() {
	if c, ok := d.core.(md5simd.Hasher); ok {
		c.Close()
	}
	d.core = nil
	d.fed = 0
	d.sum = nil
	d.busy = false
	d.failed = false
	for i := uint32(0); i < hashDoutWords; i++ {
		d.regs[regHashDout0+4*i] = 0
	}
}

func (d *SimDevice) newCore() hash.Hash {
	switch d.regs[regHashCtrl] & hashModeMask {
	case hashModeMD5:
		if d.md5srv != nil {
			return d.md5srv.NewHash()
		}
		return md5.New()
	case hashModeSHA1:
		return sha1.New()
	case hashModeSHA256:
		return sha256.New()
	}
	return nil
}

// startBurst consumes the buffer at HRDMAS. The message length register
// decides where the message ends, so padding of the last word is ignored.
func (d *SimDevice) startBurst() {
	d.bursts++

	buf, ok := d.mapped[d.regs[regHrDMAStart]]
	msgLen := d.regs[regHashMsgLen]
	if d.core == nil && d.sum == nil {
		d.core = d.newCore()
	}
	if !ok || d.core == nil || d.failBursts[d.bursts] ||
		d.regs[regCtrl]&ctrlHashFlush != 0 || d.fed >= msgLen {
		d.failed = true
		d.raise(intHrDMAErr)
		return
	}

	n := min(uint64(d.regs[regHrDMALen])*4, uint64(len(buf)), uint64(msgLen-d.fed))
	d.core.Write(buf[:n])
	d.fed += uint32(n)

	if d.fed == msgLen {
		d.sum = d.core.Sum(nil)
		d.settle = d.settleReads
		if c, ok := d.core.(md5simd.Hasher); ok {
			c.Close()
		}
		d.core = nil
		d.busy = false
	}
	d.raise(intHrDMADone)
}

// publish loads the result registers. Without HASH_SWAP_DO the words come
// out in the core's native order.
func (d *SimDevice) publish() {
	swap := d.regs[regHashCtrl]&hashSwapDO != 0
	for i := 0; i+4 <= len(d.sum); i += 4 {
		w := binary.BigEndian.Uint32(d.sum[i:])
		if swap {
			w = binary.LittleEndian.Uint32(d.sum[i:])
		}
		d.regs[regHashDout0+uint32(i)] = w
	}
}

func (d *SimDevice) raise(bits uint32) {
	d.regs[regIntSts] |= bits
	if d.regs[regIntEna]&bits == 0 || d.closed {
		return
	}
	if d.dropIRQ > 0 {
		d.dropIRQ--
		return
	}
	select {
	case d.irq <- struct{}{}:
	default:
	}
}
