// Copyright (c) 2020 MinIO Inc. All rights reserved.
// Use of this source code is governed by a license that can be
// found in the LICENSE file.

package hwhash

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// irqEvent is sent from the interrupt goroutine to the dispatcher.
type irqEvent struct {
	id     uint64 // job armed when the interrupt was taken
	status uint32 // INTSTS as read before clearing
}

// irqLoop services device interrupts. It only reads and clears the status
// register; everything else happens on the dispatcher.
func (e *Engine) irqLoop() {
	defer close(e.irqDone)
	irq := e.dev.IRQ()
	for {
		select {
		case _, ok := <-irq:
			if !ok {
				return
			}
			status := e.dev.Read(regIntSts)
			e.dev.Write(regIntSts, status)

			select {
			case e.events <- irqEvent{id: e.armed.Load(), status: status}:
			case <-e.stopIRQ:
				return
			}
		case <-e.stopIRQ:
			return
		}
	}
}

// handleIRQ classifies an interrupt for the active request.
func (e *Engine) handleIRQ(ev irqEvent) {
	s := &e.sess
	if s.job == nil || ev.id != s.job.id || ev.status&(intHrDMADone|intDMAErrMask) == 0 {
		e.log.Debug("stale interrupt", zap.Uint64("id", ev.id), zap.Uint32("status", ev.status))
		return
	}
	if ev.status&intDMAErrMask != 0 {
		e.log.Warn("DMA error", zap.Uint64("id", ev.id), zap.Uint32("status", ev.status))
		e.fault(dmaFault(ev.status))
		return
	}
	e.onBurstComplete()
}

// settle polls until the hash core has finished the rounds following the
// last burst. The time needed depends on the size of the last chunk and
// no interrupt is raised for it.
func (e *Engine) settle() error {
	for i := 0; i < e.cfg.SettleRetries; i++ {
		if e.dev.Read(regHashSts)&hashDone != 0 {
			return nil
		}
		time.Sleep(e.cfg.SettleInterval)
	}
	return errors.Wrapf(ErrHardwareTimeout, "hash core not done after %d polls", e.cfg.SettleRetries)
}

// readDigest copies len(out) bytes of the result registers into out.
func readDigest(dev Device, out []byte) {
	var word [4]byte
	for i := 0; i < len(out); i += 4 {
		binary.LittleEndian.PutUint32(word[:], dev.Read(regHashDout0+uint32(i)))
		copy(out[i:], word[:])
	}
}
