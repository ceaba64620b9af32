// Copyright (c) 2020 MinIO Inc. All rights reserved.
// Use of this source code is governed by a license that can be
// found in the LICENSE file.

package hwhash

import "sync/atomic"

// Stats holds engine usage counters.
type Stats struct {
	Requests    uint64 // requests admitted to the hardware
	Bursts      uint64 // DMA bursts started
	Completed   uint64 // hardware requests that produced a digest
	Faults      uint64 // hardware requests that failed
	Timeouts    uint64 // faults caused by a missing interrupt or settle
	BusyRetries uint64 // stagings retried because the device was busy
	ZeroMessage uint64 // digests answered from the empty-message table
	Fallback    uint64 // digests computed in software
	Transforms  int64  // transforms currently bound
}

type stats struct {
	requests    atomic.Uint64
	bursts      atomic.Uint64
	completed   atomic.Uint64
	faults      atomic.Uint64
	timeouts    atomic.Uint64
	busyRetries atomic.Uint64
	zeroMessage atomic.Uint64
	fallback    atomic.Uint64
	transforms  atomic.Int64
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Requests:    e.stats.requests.Load(),
		Bursts:      e.stats.bursts.Load(),
		Completed:   e.stats.completed.Load(),
		Faults:      e.stats.faults.Load(),
		Timeouts:    e.stats.timeouts.Load(),
		BusyRetries: e.stats.busyRetries.Load(),
		ZeroMessage: e.stats.zeroMessage.Load(),
		Fallback:    e.stats.fallback.Load(),
		Transforms:  e.stats.transforms.Load(),
	}
}
