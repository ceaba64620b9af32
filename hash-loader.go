// Copyright (c) 2020 MinIO Inc. All rights reserved.
// Use of this source code is governed by a license that can be
// found in the LICENSE file.

package hwhash

import (
	"time"
	"unsafe"

	"github.com/pkg/errors"
)

// alignSize is the DMA alignment unit in bytes.
const alignSize = 4

// ScatterList is an ordered list of discontiguous buffers hashed as one
// message.
type ScatterList [][]byte

// Len returns the total number of bytes in the list.
func (sl ScatterList) Len() (n int) {
	for _, b := range sl {
		n += len(b)
	}
	return
}

// Bytes returns the list contents as one contiguous buffer.
func (sl ScatterList) Bytes() []byte {
	buf := make([]byte, 0, sl.Len())
	for _, b := range sl {
		buf = append(buf, b...)
	}
	return buf
}

// limit returns the list cut down to its first n bytes.
func (sl ScatterList) limit(n int) ScatterList {
	out := make(ScatterList, 0, len(sl))
	for _, b := range sl {
		if n <= 0 {
			break
		}
		b = b[:min(n, len(b))]
		out = append(out, b)
		n -= len(b)
	}
	return out
}

// copyAt fills dst with the bytes starting at stream offset off and
// returns the number of bytes copied.
func (sl ScatterList) copyAt(dst []byte, off int) (n int) {
	for _, b := range sl {
		if n == len(dst) {
			break
		}
		if off >= len(b) {
			off -= len(b)
			continue
		}
		n += copy(dst[n:], b[off:])
		off = 0
	}
	return
}

func isAligned(b []byte, unit int) bool {
	if len(b)%unit != 0 {
		return false
	}
	if len(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))%uintptr(unit) == 0
}

type reqState int

const (
	stateIdle reqState = iota
	stateConfiguring
	stateBurst
	stateDone
	stateFaulted
)

func (s reqState) String() string {
	switch s {
	case stateConfiguring:
		return "configuring"
	case stateBurst:
		return "burst"
	case stateDone:
		return "done"
	case stateFaulted:
		return "faulted"
	}
	return "idle"
}

// session is the engine state of the active request. Only the dispatcher
// goroutine touches it.
type session struct {
	job   *job
	state reqState

	total int // message length
	left  int // bytes not yet staged
	src   ScatterList
	cur   int // node index of the aligned cursor

	aligned bool
	align   int

	staging []byte
	addr    uint32
	count   int
	mapped  bool

	deadline <-chan time.Time
}

func newSession(stagingSize int) session {
	return session{staging: make([]byte, stagingSize), align: alignSize}
}

// begin binds j to the session and resets the counters.
func (s *session) begin(j *job) {
	s.job = j
	s.state = stateConfiguring
	s.total = j.total
	s.left = j.total
	s.src = j.src
	s.cur = 0
	s.aligned = true
	s.align = alignSize
	s.addr, s.count, s.mapped = 0, 0, false
	s.deadline = nil
}

// end detaches the active job and returns the session to idle.
func (s *session) end() *job {
	j := s.job
	s.job = nil
	s.src = nil
	s.state = stateIdle
	s.deadline = nil
	return j
}

// stage maps the next chunk of the message for DMA. Aligned nodes are
// mapped in place; once a node is found unaligned the rest of the message
// is copied through the staging buffer. Nothing changes when the device
// reports busy, so stage may simply be called again.
func (s *session) stage(dev Device) error {
	if s.aligned {
		for s.cur < len(s.src)-1 && len(s.src[s.cur]) == 0 {
			s.cur++
		}
		s.aligned = s.cur < len(s.src) && isAligned(s.src[s.cur], s.align)
	}

	var buf []byte
	if s.aligned {
		node := s.src[s.cur]
		n := min(s.left, len(node))
		if n == 0 {
			return errors.Wrapf(ErrInsufficientData, "%d bytes left after last node", s.left)
		}
		buf = node[:n]
	} else {
		n := min(s.left, len(s.staging))
		if s.src.copyAt(s.staging[:n], s.total-s.left) < n {
			return errors.Wrapf(ErrInsufficientData, "%d of %d bytes available", s.src.Len(), s.total)
		}
		buf = s.staging[:n]
	}

	addr, err := dev.Map(buf)
	if err != nil {
		if errors.Is(err, ErrDeviceBusy) {
			return errors.WithStack(&transientError{err: err})
		}
		return errors.Wrap(err, "map dma buffer")
	}
	s.addr, s.count, s.mapped = addr, len(buf), true
	s.left -= len(buf)
	return nil
}

// unload releases the mapping of the last staged chunk.
func (s *session) unload(dev Device) {
	if s.mapped {
		dev.Unmap(s.addr)
		s.mapped = false
	}
}

// advance moves the cursor after a completed burst. A node that was
// mapped in place has been consumed whole; unaligned data is read by
// stream offset and leaves the cursor alone.
func (s *session) advance() error {
	if !s.aligned {
		return nil
	}
	if s.cur >= len(s.src)-1 {
		return errors.Wrapf(ErrInsufficientData, "%d bytes left after last node", s.left)
	}
	s.cur++
	return nil
}
